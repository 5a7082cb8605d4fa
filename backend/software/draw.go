// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"fmt"

	"github.com/gogpu/oit/gpucore"
	"github.com/gogpu/oit/internal/blend"
	"github.com/gogpu/oit/internal/raster"
)

// drawPass is a validated draw ready to execute.
type drawPass struct {
	prog    *program
	ctx     drawContext
	targets []*resource
	depth   *resource
	state   gpucore.PipelineState
}

// DrawMesh implements gpucore.Backend.
func (d *Device) DrawMesh(id gpucore.MeshID) error {
	if d.closed {
		return gpucore.ErrClosed
	}
	m, ok := d.meshes[id]
	if !ok {
		return fmt.Errorf("%w: mesh %d", gpucore.ErrUnknownResource, id)
	}
	pass, err := d.prepareDraw(m)
	if err != nil {
		return err
	}

	frags := rasterize(m, raster.Matrix(d.constants.World), raster.Matrix(d.constants.ViewProj), d.state.CullMode, d.width, d.height)
	if len(frags) == 0 {
		return nil
	}
	if pass.serialized() {
		d.runOrdered(pass, frags)
	} else {
		d.pool.For(len(frags), func(lo, hi int) {
			for _, f := range frags[lo:hi] {
				pass.shade(f)
			}
		})
	}
	return nil
}

func (d *Device) prepareDraw(m *mesh) (*drawPass, error) {
	prog, ok := d.programs[d.current]
	if !ok || prog.stage != gpucore.StageDraw {
		return nil, gpucore.ErrNoProgram
	}
	if len(d.targets) > gpucore.MaxRenderTargets {
		return nil, fmt.Errorf("%w: %d render targets bound", gpucore.ErrInvalidConfig, len(d.targets))
	}
	if d.state.DepthTest && !raster.ValidCompare(d.state.DepthCompare) {
		return nil, fmt.Errorf("%w: depth compare %v", gpucore.ErrInvalidConfig, d.state.DepthCompare)
	}

	pass := &drawPass{
		prog:  prog,
		state: d.state,
		ctx: drawContext{
			constants: &d.constants,
			mesh:      m,
			width:     d.width,
		},
	}
	for _, id := range d.targets {
		if id == gpucore.InvalidID {
			pass.targets = append(pass.targets, nil)
			continue
		}
		r, err := d.lookup(id)
		if err != nil {
			return nil, err
		}
		if !r.isTexture() || r.isDepth() || r.readOnly() {
			return nil, fmt.Errorf("%w: %q bound as render target", gpucore.ErrResourceKind, r.cfg.Label)
		}
		pass.targets = append(pass.targets, r)
	}
	if d.depth != gpucore.InvalidID {
		r, err := d.lookup(d.depth)
		if err != nil {
			return nil, err
		}
		if !r.isDepth() {
			return nil, fmt.Errorf("%w: %q bound as depth target", gpucore.ErrResourceKind, r.cfg.Label)
		}
		pass.depth = r
	}
	for i, id := range d.readable {
		if id == gpucore.InvalidID {
			continue
		}
		r, err := d.lookup(id)
		if err != nil {
			return nil, err
		}
		if !r.isTexture() {
			return nil, fmt.Errorf("%w: %q bound readable", gpucore.ErrResourceKind, r.cfg.Label)
		}
		pass.ctx.readable[i] = r
	}
	for i, id := range d.drawUAVs {
		if id == gpucore.InvalidID {
			continue
		}
		r, err := d.lookup(id)
		if err != nil {
			return nil, err
		}
		if r.readOnly() {
			return nil, fmt.Errorf("%w: %q bound writable", gpucore.ErrResourceKind, r.cfg.Label)
		}
		pass.ctx.uavs[i] = r
	}
	return pass, nil
}

// serialized reports whether fragments of a pixel must run one at a time
// in primitive order: ordered programs, render target blending and depth
// writes all require it.
func (p *drawPass) serialized() bool {
	if p.prog.ordered || p.writesDepth() {
		return true
	}
	for _, t := range p.targets {
		if t != nil {
			return true
		}
	}
	return false
}

func (p *drawPass) testsDepth() bool {
	return p.depth != nil && p.state.DepthTest
}

func (p *drawPass) writesDepth() bool {
	return p.testsDepth() && p.state.DepthWrite && !p.depth.readOnly()
}

// shade runs the depth test, the program and the output merge for one
// fragment.
func (p *drawPass) shade(f rasterFrag) {
	if p.testsDepth() && !raster.Compare(p.state.DepthCompare, f.Depth, p.depth.value(f.Pixel)) {
		return
	}
	out, keep := p.prog.draw(&p.ctx, f)
	if !keep {
		return
	}
	if p.writesDepth() {
		p.depth.setValue(f.Pixel, f.Depth)
	}
	for i, t := range p.targets {
		if t == nil {
			continue
		}
		src := out[i]
		switch p.state.Blend {
		case gpucore.BlendOver:
			t.setColor(f.Pixel, blend.Over(src, t.color(f.Pixel)))
		case gpucore.BlendWeighted:
			dst := t.color(f.Pixel)
			if i == 0 {
				t.setColor(f.Pixel, gpucore.Color{R: dst.R + src.R, G: dst.G + src.G, B: dst.B + src.B, A: dst.A + src.A})
			} else {
				t.setColor(f.Pixel, gpucore.Color{R: dst.R * (1 - src.R), G: dst.G, B: dst.B, A: dst.A})
			}
		default:
			t.setColor(f.Pixel, src)
		}
	}
}

// runOrdered groups fragments by pixel, keeping primitive order inside each
// group, and runs the groups in parallel.
func (d *Device) runOrdered(p *drawPass, frags []rasterFrag) {
	pixels := d.width * d.height
	start := make([]int32, pixels+1)
	for _, f := range frags {
		start[f.Pixel+1]++
	}
	for i := 1; i <= pixels; i++ {
		start[i] += start[i-1]
	}
	grouped := make([]rasterFrag, len(frags))
	next := make([]int32, pixels)
	copy(next, start[:pixels])
	for _, f := range frags {
		grouped[next[f.Pixel]] = f
		next[f.Pixel]++
	}

	// Covered pixels, in order, so workers get balanced fragment ranges.
	covered := next[:0]
	for px := range pixels {
		if start[px+1] > start[px] {
			covered = append(covered, int32(px))
		}
	}
	d.pool.For(len(covered), func(lo, hi int) {
		for _, px := range covered[lo:hi] {
			for _, f := range grouped[start[px]:start[px+1]] {
				p.shade(f)
			}
		}
	})
}
