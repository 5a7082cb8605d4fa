// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/oit/gpucore"
)

// ComputeShaderDispatch implements gpucore.Backend. Kernels skip
// invocations outside the window; groupsZ repeats the grid, as every
// compute program is two-dimensional.
func (d *Device) ComputeShaderDispatch(groupsX, groupsY, groupsZ uint32) error {
	if d.closed {
		return gpucore.ErrClosed
	}
	prog, ok := d.programs[d.current]
	if !ok || prog.stage != gpucore.StageCompute {
		return gpucore.ErrNoProgram
	}

	prm := &params{Constants: d.constants}
	prm.Dims = [4]uint32{uint32(d.width), uint32(d.height)}

	var readable [gpucore.MaxReadableSlots]hal.Buffer
	for i, id := range d.readable {
		if id == gpucore.InvalidID {
			continue
		}
		r, err := d.lookup(id)
		if err != nil {
			return err
		}
		readable[i] = r.buffer()
		prm.Dims[3] |= boundReadable0 << i
	}
	var writable [gpucore.MaxComputeUAVSlots]*resource
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
		writable[i] = r
		prm.Counts[i] = uint32(r.words)
	}
	if w := writable[0]; w != nil && w.isTexture() {
		prm.Formats[2] = uint32(w.cfg.Format)
	}

	buffers := make([]hal.Buffer, len(prog.kernel.slots))
	for i, s := range prog.kernel.slots {
		var b hal.Buffer
		switch s {
		case slotReadable0, slotReadable1:
			b = readable[s-slotReadable0]
		case slotWritable0, slotWritable1, slotWritable2:
			if r := writable[s-slotWritable0]; r != nil {
				b = r.buf
			}
		case slotCounter1:
			if r := writable[1]; r != nil {
				b = r.counter
			}
		}
		if b == nil {
			// A program missing one of its bindings is a no-op.
			slogger().Warn("wgpu: dispatch with unbound slot", "program", prog.name, "slot", slotDecls[s].name)
			return nil
		}
		buffers[i] = b
	}
	if err := d.applyResets(); err != nil {
		return err
	}

	w := min(groupsX, gpucore.GroupCount(d.width))
	h := min(groupsY, gpucore.GroupCount(d.height))
	for range groupsZ {
		if err := d.dispatch(prog, prm, buffers, w, h, 1); err != nil {
			return err
		}
	}
	return nil
}
