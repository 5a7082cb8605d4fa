// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"embed"
	"fmt"
	"slices"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"

	"github.com/gogpu/oit/gpucore"
)

//go:embed shaders/*.wgsl
var shaderFS embed.FS

// slot is a storage binding a kernel may declare. Binding 0 is always the
// uniform parameter block; declared slots follow in program order.
type slot uint8

const (
	slotTriangles slot = iota
	slotTexels
	slotTarget0
	slotTarget1
	slotDepth
	slotReadable0
	slotReadable1
	slotWritable0
	slotWritable1
	slotWritable2
	slotCounter1
)

var slotDecls = [...]struct {
	name     string
	access   string
	elem     string
	readOnly bool
}{
	slotTriangles: {"tris", "read", "f32", true},
	slotTexels:    {"texels", "read", "f32", true},
	slotTarget0:   {"t0", "read_write", "f32", false},
	slotTarget1:   {"t1", "read_write", "f32", false},
	slotDepth:     {"depth", "read_write", "f32", false},
	slotReadable0: {"r0", "read", "f32", true},
	slotReadable1: {"r1", "read", "f32", true},
	slotWritable0: {"w0", "read_write", "atomic<u32>", false},
	slotWritable1: {"w1", "read_write", "atomic<u32>", false},
	slotWritable2: {"w2", "read_write", "atomic<u32>", false},
	slotCounter1:  {"c1", "read_write", "atomic<u32>", false},
}

func (s slot) bindingType() gputypes.BufferBindingType {
	if slotDecls[s].readOnly {
		return gputypes.BufferBindingTypeReadOnlyStorage
	}
	return gputypes.BufferBindingTypeStorage
}

// programFill clears textures and buffers and resets counters. It is not
// part of the gpucore program set.
const programFill gpucore.ProgramName = "fill"

// kernel describes how a program is assembled from the shader sources.
type kernel struct {
	body  string
	slots []slot

	// ordered draw kernels walk the triangles of a pixel in one invocation;
	// the others run one invocation per pixel and triangle.
	ordered bool
}

var drawSlots = []slot{slotTriangles, slotTexels, slotTarget0, slotTarget1, slotDepth}

func drawKernel(body string, ordered bool, extra ...slot) kernel {
	return kernel{body: body, slots: append(slices.Clone(drawSlots), extra...), ordered: ordered}
}

var kernels = map[gpucore.ProgramName]kernel{
	gpucore.ProgramOpaque:             drawKernel("opaque.wgsl", true),
	gpucore.ProgramTranslucent:        drawKernel("translucent.wgsl", true),
	gpucore.ProgramPeel:               drawKernel("peel.wgsl", true, slotReadable0, slotReadable1),
	gpucore.ProgramPeelReverse:        drawKernel("peel_reverse.wgsl", true, slotReadable0),
	gpucore.ProgramLinkedListPopulate: drawKernel("ll_populate.wgsl", false, slotWritable0, slotWritable1, slotCounter1),
	gpucore.ProgramMLABPopulate:       drawKernel("mlab_populate.wgsl", true, slotWritable0, slotWritable1),
	gpucore.ProgramWeightedAccumulate: drawKernel("wb_accumulate.wgsl", true),
	gpucore.ProgramUAVBlend:           drawKernel("uav_blend.wgsl", false, slotWritable0),
	gpucore.ProgramUAVBlendOrdered:    drawKernel("uav_blend.wgsl", true, slotWritable0),

	gpucore.ProgramLinkedListClear:     {body: "ll_clear.wgsl", slots: []slot{slotWritable0}},
	gpucore.ProgramLinkedListComposite: {body: "ll_composite.wgsl", slots: []slot{slotWritable0, slotWritable1, slotWritable2, slotCounter1}},
	gpucore.ProgramMLABResolve:         {body: "mlab_resolve.wgsl", slots: []slot{slotWritable0, slotWritable1, slotWritable2}},
	gpucore.ProgramWeightedResolve:     {body: "wb_resolve.wgsl", slots: []slot{slotReadable0, slotReadable1, slotWritable0}},
	gpucore.ProgramDepthMax:            {body: "depth_max.wgsl", slots: []slot{slotReadable0, slotWritable0}},
	gpucore.ProgramDepthMin:            {body: "depth_min.wgsl", slots: []slot{slotReadable0, slotWritable0}},
	gpucore.ProgramColorUnder:          {body: "color_under.wgsl", slots: []slot{slotReadable0, slotReadable1, slotWritable0}},
	gpucore.ProgramCompositeOver:       {body: "composite_over.wgsl", slots: []slot{slotReadable0, slotWritable0}},
	gpucore.ProgramCopy:                {body: "copy.wgsl", slots: []slot{slotReadable0, slotWritable0}},
	gpucore.ProgramBlit:                {body: "blit.wgsl", slots: []slot{slotReadable0, slotWritable0}},

	programFill: {body: "fill.wgsl", slots: []slot{slotWritable0}},
}

func (k *kernel) draw() bool {
	return slices.Contains(k.slots, slotTriangles)
}

func shaderFile(name string) string {
	b, err := shaderFS.ReadFile("shaders/" + name)
	if err != nil {
		panic("wgpu: missing embedded shader " + name)
	}
	return string(b)
}

// Programs returns the names of every kernel the backend builds, in a
// stable order.
func Programs() []gpucore.ProgramName {
	names := make([]gpucore.ProgramName, 0, len(kernels))
	names = append(names, gpucore.DrawPrograms...)
	names = append(names, gpucore.ComputePrograms...)
	return append(names, programFill)
}

// Source returns the complete WGSL module of a program.
func Source(name gpucore.ProgramName) (string, error) {
	k, ok := kernels[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", gpucore.ErrUnknownProgram, name)
	}
	return k.source(), nil
}

func (k *kernel) source() string {
	var b strings.Builder
	b.WriteString(shaderFile("common.wgsl"))
	b.WriteByte('\n')
	for i, s := range k.slots {
		d := slotDecls[s]
		fmt.Fprintf(&b, "@group(0) @binding(%d) var<storage, %s> %s: array<%s>;\n", i+1, d.access, d.name, d.elem)
	}
	b.WriteByte('\n')
	if k.draw() {
		b.WriteString(shaderFile("raster.wgsl"))
		b.WriteByte('\n')
		if k.ordered {
			b.WriteString(shaderFile("draw_ordered.wgsl"))
		} else {
			b.WriteString(shaderFile("draw_unordered.wgsl"))
		}
		b.WriteByte('\n')
	}
	if slices.Contains(k.slots, slotWritable0) {
		b.WriteString(shaderFile("writable.wgsl"))
		b.WriteByte('\n')
	}
	b.WriteString(shaderFile(k.body))
	return b.String()
}

// CompileSPIRV compiles a program's WGSL to SPIR-V words.
func CompileSPIRV(name gpucore.ProgramName) ([]uint32, error) {
	src, err := Source(name)
	if err != nil {
		return nil, err
	}
	spirv, err := naga.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("wgpu: compile %s: %w", name, err)
	}
	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirv)/4)
	for i := range words {
		words[i] = uint32(spirv[i*4]) |
			uint32(spirv[i*4+1])<<8 |
			uint32(spirv[i*4+2])<<16 |
			uint32(spirv[i*4+3])<<24
	}
	return words, nil
}
