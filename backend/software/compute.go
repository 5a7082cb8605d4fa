// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"fmt"

	"github.com/gogpu/oit/gpucore"
)

// ComputeShaderDispatch implements gpucore.Backend. Invocations outside
// the window are skipped; groupsZ multiplies the work without adding a
// coordinate, as every compute program is two-dimensional.
func (d *Device) ComputeShaderDispatch(groupsX, groupsY, groupsZ uint32) error {
	if d.closed {
		return gpucore.ErrClosed
	}
	prog, ok := d.programs[d.current]
	if !ok || prog.stage != gpucore.StageCompute {
		return gpucore.ErrNoProgram
	}
	ctx := &computeContext{constants: &d.constants, width: d.width, height: d.height}
	for i, id := range d.readable {
		if id == gpucore.InvalidID {
			continue
		}
		r, err := d.lookup(id)
		if err != nil {
			return err
		}
		ctx.readable[i] = r
	}
	for i, id := range d.writable {
		if id == gpucore.InvalidID {
			continue
		}
		r, err := d.lookup(id)
		if err != nil {
			return err
		}
		if r.readOnly() {
			return fmt.Errorf("%w: %q bound writable", gpucore.ErrResourceKind, r.cfg.Label)
		}
		ctx.writable[i] = r
	}

	w := min(int(groupsX)*gpucore.ThreadGroupSize, d.width)
	h := min(int(groupsY)*gpucore.ThreadGroupSize, d.height)
	if w <= 0 || h <= 0 || groupsZ == 0 {
		return nil
	}
	for range groupsZ {
		d.pool.For(h, func(lo, hi int) {
			for y := lo; y < hi; y++ {
				for x := range w {
					prog.compute(ctx, x, y)
				}
			}
		})
	}
	return nil
}
