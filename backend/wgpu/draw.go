// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/oit/gpucore"
	"github.com/gogpu/oit/internal/raster"
)

// triangleWords is the size of a set-up triangle in the triangle buffer;
// it must match TRI_WORDS in shaders/raster.wgsl.
const triangleWords = 20

// DrawMesh implements gpucore.Backend.
func (d *Device) DrawMesh(id gpucore.MeshID) error {
	if d.closed {
		return gpucore.ErrClosed
	}
	m, ok := d.meshes[id]
	if !ok {
		return fmt.Errorf("%w: mesh %d", gpucore.ErrUnknownResource, id)
	}
	prog, ok := d.programs[d.current]
	if !ok || prog.stage != gpucore.StageDraw {
		return gpucore.ErrNoProgram
	}
	if len(d.targets) > gpucore.MaxRenderTargets {
		return fmt.Errorf("%w: %d render targets bound", gpucore.ErrInvalidConfig, len(d.targets))
	}
	if d.state.DepthTest && !raster.ValidCompare(d.state.DepthCompare) {
		return fmt.Errorf("%w: depth compare %v", gpucore.ErrInvalidConfig, d.state.DepthCompare)
	}

	prm := &params{Constants: d.constants}
	prm.Dims = [4]uint32{uint32(d.width), uint32(d.height)}
	prm.State[2] = compareCode(d.state.DepthCompare)
	prm.State[3] = uint32(d.state.Blend)

	var targets [gpucore.MaxRenderTargets]hal.Buffer
	for i, tid := range d.targets {
		if tid == gpucore.InvalidID {
			continue
		}
		r, err := d.lookup(tid)
		if err != nil {
			return err
		}
		if !r.isTexture() || r.isDepth() || r.readOnly() {
			return fmt.Errorf("%w: %q bound as render target", gpucore.ErrResourceKind, r.cfg.Label)
		}
		targets[i] = r.buf
		prm.Formats[i] = uint32(r.cfg.Format)
		prm.Dims[3] |= boundTarget0 << i
	}

	depth := d.dummyWrite
	if d.depth != gpucore.InvalidID {
		r, err := d.lookup(d.depth)
		if err != nil {
			return err
		}
		if !r.isDepth() {
			return fmt.Errorf("%w: %q bound as depth target", gpucore.ErrResourceKind, r.cfg.Label)
		}
		depth = r.buffer()
		if d.state.DepthTest {
			prm.State[0] = 1
			if d.state.DepthWrite && !r.readOnly() {
				prm.State[1] = 1
			}
		}
	}

	var readable [gpucore.MaxReadableSlots]hal.Buffer
	for i, rid := range d.readable {
		if rid == gpucore.InvalidID {
			continue
		}
		r, err := d.lookup(rid)
		if err != nil {
			return err
		}
		if !r.isTexture() {
			return fmt.Errorf("%w: %q bound readable", gpucore.ErrResourceKind, r.cfg.Label)
		}
		readable[i] = r.buffer()
		prm.Dims[3] |= boundReadable0 << i
	}

	var uavs [gpucore.MaxDrawUAVSlots]*resource
	for i, uid := range d.drawUAVs {
		if uid == gpucore.InvalidID {
			continue
		}
		r, err := d.lookup(uid)
		if err != nil {
			return err
		}
		if r.readOnly() {
			return fmt.Errorf("%w: %q bound writable", gpucore.ErrResourceKind, r.cfg.Label)
		}
		uavs[i] = r
		prm.Counts[i] = uint32(r.words)
	}
	if uavs[0] != nil && uavs[0].isTexture() {
		prm.Formats[2] = uint32(uavs[0].cfg.Format)
	}

	if !prog.kernel.ordered && (prm.State[1] != 0 || prm.Dims[3]&(boundTarget0|boundTarget1) != 0) {
		return fmt.Errorf("%w: unordered program %s cannot write depth or render targets",
			gpucore.ErrInvalidConfig, prog.name)
	}

	tris := raster.NewRasterizer(d.width, d.height).Setup(nil, m.vertices, m.indices,
		raster.Matrix(d.constants.World), raster.Matrix(d.constants.ViewProj), d.state.CullMode)
	if len(tris) == 0 {
		return nil
	}
	if err := d.applyResets(); err != nil {
		return err
	}
	triBuf, err := d.upload(m.label+"/triangles", gputypes.BufferUsageStorage, packTriangles(tris))
	if err != nil {
		return err
	}
	prm.Dims[2] = uint32(len(tris))

	texels := d.dummyRead
	if m.texture != nil {
		texels = m.texture
		prm.Tex = [4]uint32{uint32(m.texW), uint32(m.texH), 1}
	}

	buffers := make([]hal.Buffer, len(prog.kernel.slots))
	for i, s := range prog.kernel.slots {
		var b hal.Buffer
		switch s {
		case slotTriangles:
			b = triBuf
		case slotTexels:
			b = texels
		case slotTarget0, slotTarget1:
			b = targets[s-slotTarget0]
		case slotDepth:
			b = depth
		case slotReadable0, slotReadable1:
			b = readable[s-slotReadable0]
		case slotWritable0, slotWritable1:
			if r := uavs[s-slotWritable0]; r != nil {
				b = r.buf
			}
		case slotCounter1:
			if r := uavs[1]; r != nil {
				b = r.counter
			}
		}
		if b == nil {
			if !slotDecls[s].readOnly && s >= slotWritable0 {
				slogger().Warn("wgpu: draw with unbound slot", "program", prog.name, "slot", slotDecls[s].name)
				return nil
			}
			b = d.dummyFor(s)
		}
		buffers[i] = b
	}

	z := uint32(1)
	if !prog.kernel.ordered {
		z = uint32(len(tris))
	}
	return d.dispatch(prog, prm, buffers, gpucore.GroupCount(d.width), gpucore.GroupCount(d.height), z)
}

func (d *Device) dummyFor(s slot) hal.Buffer {
	if slotDecls[s].readOnly {
		return d.dummyRead
	}
	return d.dummyWrite
}

// packTriangles encodes set-up triangles for shaders/raster.wgsl.
func packTriangles(tris []raster.Triangle) []byte {
	out := make([]byte, len(tris)*triangleWords*4)
	put := func(o int, v float32) { binary.LittleEndian.PutUint32(out[o*4:], math.Float32bits(v)) }
	for i := range tris {
		t := &tris[i]
		base := i * triangleWords
		for k, v := range [3]raster.Vertex{t.A, t.B, t.C} {
			o := base + k*6
			put(o, v.X)
			put(o+1, v.Y)
			put(o+2, v.Z)
			put(o+3, v.InvW)
			put(o+4, v.UW)
			put(o+5, v.VW)
		}
		var own uint32
		if raster.OwnsEdge(t.B, t.C) {
			own |= 1
		}
		if raster.OwnsEdge(t.C, t.A) {
			own |= 2
		}
		if raster.OwnsEdge(t.A, t.B) {
			own |= 4
		}
		binary.LittleEndian.PutUint32(out[(base+18)*4:], own)
		put(base+19, 1/t.Area())
	}
	return out
}

// compareCode maps a comparison to the COMPARE_* codes of the raster
// kernels. Unknown functions always pass.
func compareCode(fn gputypes.CompareFunction) uint32 {
	switch fn {
	case gputypes.CompareFunctionNever:
		return 0
	case gputypes.CompareFunctionLess:
		return 1
	case gputypes.CompareFunctionLessEqual:
		return 2
	case gputypes.CompareFunctionEqual:
		return 3
	case gputypes.CompareFunctionGreater:
		return 4
	case gputypes.CompareFunctionGreaterEqual:
		return 5
	case gputypes.CompareFunctionNotEqual:
		return 6
	default:
		return 7
	}
}
