// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"sync/atomic"

	"github.com/chewxy/math32"

	"github.com/gogpu/oit/gpucore"
	"github.com/gogpu/oit/internal/blend"
	"github.com/gogpu/oit/internal/fragment"
)

// drawKernel shades one fragment that passed the depth test. It returns
// the outputs for render targets 0 and 1; keep false discards the
// fragment, leaving depth and targets untouched.
type drawKernel func(c *drawContext, f rasterFrag) (out [gpucore.MaxRenderTargets]gpucore.Color, keep bool)

// computeKernel runs one invocation at (x, y) inside the window.
type computeKernel func(c *computeContext, x, y int)

// program is the CPU implementation of a named program.
type program struct {
	name  gpucore.ProgramName
	stage gpucore.Stage

	// ordered programs see the fragments of a pixel one at a time in
	// primitive order.
	ordered bool

	draw    drawKernel
	compute computeKernel
}

// drawContext holds the bindings of a draw.
type drawContext struct {
	constants *gpucore.Constants
	mesh      *mesh
	width     int
	readable  [gpucore.MaxReadableSlots]*resource
	uavs      [gpucore.MaxDrawUAVSlots]*resource
}

// computeContext holds the bindings of a dispatch.
type computeContext struct {
	constants *gpucore.Constants
	width     int
	height    int
	readable  [gpucore.MaxReadableSlots]*resource
	writable  [gpucore.MaxComputeUAVSlots]*resource
}

var programTable = map[gpucore.ProgramName]*program{
	gpucore.ProgramOpaque:             {ordered: true, draw: drawOpaque},
	gpucore.ProgramTranslucent:        {ordered: true, draw: drawTranslucent},
	gpucore.ProgramPeel:               {ordered: true, draw: drawPeel},
	gpucore.ProgramPeelReverse:        {ordered: true, draw: drawPeelReverse},
	gpucore.ProgramLinkedListPopulate: {draw: drawLinkedListPopulate},
	gpucore.ProgramMLABPopulate:       {ordered: true, draw: drawMLABPopulate},
	gpucore.ProgramWeightedAccumulate: {ordered: true, draw: drawWeightedAccumulate},
	gpucore.ProgramUAVBlend:           {draw: drawUAVBlend},
	gpucore.ProgramUAVBlendOrdered:    {ordered: true, draw: drawUAVBlendOrdered},

	gpucore.ProgramLinkedListClear:     {compute: computeLinkedListClear},
	gpucore.ProgramLinkedListComposite: {compute: computeLinkedListComposite},
	gpucore.ProgramMLABResolve:         {compute: computeMLABResolve},
	gpucore.ProgramWeightedResolve:     {compute: computeWeightedResolve},
	gpucore.ProgramDepthMax:            {compute: computeDepthMax},
	gpucore.ProgramDepthMin:            {compute: computeDepthMin},
	gpucore.ProgramColorUnder:          {compute: computeColorUnder},
	gpucore.ProgramCompositeOver:       {compute: computeCompositeOver},
	gpucore.ProgramCopy:                {compute: computeCopy},
	gpucore.ProgramBlit:                {compute: computeBlit},
}

func lookupProgram(name gpucore.ProgramName) (*program, error) {
	stage, err := gpucore.StageOf(name)
	if err != nil {
		return nil, err
	}
	p := *programTable[name]
	p.name = name
	p.stage = stage
	return &p, nil
}

// shade returns the premultiplied color of a fragment: the tint, modulated
// by the mesh texture when texturing is enabled.
func (c *drawContext) shade(f rasterFrag) gpucore.Color {
	col := c.constants.Tint
	if c.constants.Flags[gpucore.FlagTextured] == 0 || !c.mesh.hasTexture {
		return col
	}
	t := c.sample(f.U, f.V)
	return gpucore.Color{R: col.R * t.R, G: col.G * t.G, B: col.B * t.B, A: col.A * t.A}
}

// sample returns the nearest texel with repeat addressing.
func (c *drawContext) sample(u, v float32) gpucore.Color {
	m := c.mesh
	x := wrap(int(math32.Floor(u*float32(m.texW))), m.texW)
	y := wrap(int(math32.Floor(v*float32(m.texH))), m.texH)
	return m.texture[y*m.texW+x]
}

func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

// readableDepth returns the depth in readable slot i, or fallback when the
// slot is empty.
func (c *drawContext) readableDepth(i, pixel int, fallback float32) float32 {
	if r := c.readable[i]; r != nil {
		return r.value(pixel)
	}
	return fallback
}

func (c *drawContext) opaqueTest() bool {
	return c.constants.Flags[gpucore.FlagOpaqueTest] != 0
}

func drawOpaque(c *drawContext, f rasterFrag) (out [gpucore.MaxRenderTargets]gpucore.Color, keep bool) {
	out[0] = blend.Opaque(c.shade(f))
	return out, true
}

func drawTranslucent(c *drawContext, f rasterFrag) (out [gpucore.MaxRenderTargets]gpucore.Color, keep bool) {
	out[0] = c.shade(f)
	return out, true
}

// drawPeel keeps fragments strictly behind the threshold in readable slot 0
// and, with the opaque test enabled, strictly in front of the opaque depth
// in readable slot 1.
func drawPeel(c *drawContext, f rasterFrag) (out [gpucore.MaxRenderTargets]gpucore.Color, keep bool) {
	if f.Depth <= c.readableDepth(0, f.Pixel, 0) {
		return out, false
	}
	if c.opaqueTest() && f.Depth >= c.readableDepth(1, f.Pixel, 1) {
		return out, false
	}
	out[0] = c.shade(f)
	return out, true
}

// drawPeelReverse keeps fragments strictly in front of the threshold in
// readable slot 0.
func drawPeelReverse(c *drawContext, f rasterFrag) (out [gpucore.MaxRenderTargets]gpucore.Color, keep bool) {
	if f.Depth >= c.readableDepth(0, f.Pixel, 1) {
		return out, false
	}
	out[0] = c.shade(f)
	return out, true
}

func drawLinkedListPopulate(c *drawContext, f rasterFrag) (out [gpucore.MaxRenderTargets]gpucore.Color, keep bool) {
	heads, nodes := c.uavs[0], c.uavs[1]
	if heads == nil || nodes == nil {
		return out, false
	}
	l := fragment.LinkedList{Heads: heads.words, Nodes: nodes.words, Counter: &nodes.counter}
	l.Insert(f.Pixel, fragment.Fragment{Color: c.shade(f), Depth: f.Depth})
	return out, false
}

func drawMLABPopulate(c *drawContext, f rasterFrag) (out [gpucore.MaxRenderTargets]gpucore.Color, keep bool) {
	entries, mask := c.uavs[0], c.uavs[1]
	capacity := int(c.constants.Flags[gpucore.FlagCapacity])
	if entries == nil || mask == nil || capacity <= 0 || capacity > fragment.MaxCapacity {
		return out, false
	}
	m := fragment.MLAB{Entries: entries.words, Mask: mask.words, Capacity: capacity}
	m.Insert(f.Pixel, fragment.Fragment{Color: c.shade(f), Depth: f.Depth})
	return out, false
}

// drawWeightedAccumulate outputs the weighted color to target 0 and the
// coverage to target 1; BlendWeighted adds the first and multiplies the
// second target by one minus the coverage.
func drawWeightedAccumulate(c *drawContext, f rasterFrag) (out [gpucore.MaxRenderTargets]gpucore.Color, keep bool) {
	col := c.shade(f)
	accum, _ := blend.Accumulate(col, f.Depth)
	out[0] = accum
	out[1] = gpucore.Color{R: col.A}
	return out, true
}

// drawUAVBlend composites into the texture in UAV slot 0 with a plain
// load and store, racing with other fragments of the same pixel.
func drawUAVBlend(c *drawContext, f rasterFrag) (out [gpucore.MaxRenderTargets]gpucore.Color, keep bool) {
	t := c.uavs[0]
	if t == nil {
		return out, false
	}
	dst := t.loadColorAtomic(f.Pixel)
	t.storeColorAtomic(f.Pixel, blend.Over(c.shade(f), dst))
	return out, false
}

func drawUAVBlendOrdered(c *drawContext, f rasterFrag) (out [gpucore.MaxRenderTargets]gpucore.Color, keep bool) {
	t := c.uavs[0]
	if t == nil {
		return out, false
	}
	t.setColor(f.Pixel, blend.Over(c.shade(f), t.color(f.Pixel)))
	return out, false
}

func computeLinkedListClear(c *computeContext, x, y int) {
	heads := c.writable[0]
	if heads == nil {
		return
	}
	heads.words[y*c.width+x] = fragment.Sentinel
}

// computeLinkedListComposite composites a pixel's list over writable slot 0
// and counts truncated pixels in the heads counter.
func computeLinkedListComposite(c *computeContext, x, y int) {
	target, heads, nodes := c.writable[0], c.writable[1], c.writable[2]
	if target == nil || heads == nil || nodes == nil {
		return
	}
	p := y*c.width + x
	l := fragment.LinkedList{
		Heads:    heads.words,
		Nodes:    nodes.words,
		Counter:  &nodes.counter,
		Capacity: int(c.constants.Flags[gpucore.FlagCapacity]),
	}
	var scratch [fragment.MaxCapacity]blend.Layer
	out, truncated, _ := l.Composite(p, target.color(p), scratch[:0])
	if truncated {
		atomic.AddUint32(&heads.counter, 1)
	}
	target.setColor(p, out)
}

func computeMLABResolve(c *computeContext, x, y int) {
	target, entries, mask := c.writable[0], c.writable[1], c.writable[2]
	capacity := int(c.constants.Flags[gpucore.FlagCapacity])
	if target == nil || entries == nil || mask == nil || capacity <= 0 {
		return
	}
	p := y*c.width + x
	m := fragment.MLAB{Entries: entries.words, Mask: mask.words, Capacity: capacity}
	target.setColor(p, m.Resolve(p, target.color(p)))
}

func computeWeightedResolve(c *computeContext, x, y int) {
	accum, reveal, target := c.readable[0], c.readable[1], c.writable[0]
	if accum == nil || reveal == nil || target == nil {
		return
	}
	p := y*c.width + x
	target.setColor(p, blend.Resolve(accum.color(p), reveal.value(p), target.color(p)))
}

func computeDepthMax(c *computeContext, x, y int) {
	src, dst := c.readable[0], c.writable[0]
	if src == nil || dst == nil {
		return
	}
	p := y*c.width + x
	dst.setValue(p, math32.Max(dst.value(p), src.value(p)))
}

func computeDepthMin(c *computeContext, x, y int) {
	src, dst := c.readable[0], c.writable[0]
	if src == nil || dst == nil {
		return
	}
	p := y*c.width + x
	dst.setValue(p, math32.Min(dst.value(p), src.value(p)))
}

// computeColorUnder writes readable slot 1 composited under the
// accumulation in readable slot 0 to writable slot 0.
func computeColorUnder(c *computeContext, x, y int) {
	accum, layer, dst := c.readable[0], c.readable[1], c.writable[0]
	if accum == nil || layer == nil || dst == nil {
		return
	}
	p := y*c.width + x
	dst.setColor(p, blend.Under(layer.color(p), accum.color(p)))
}

func computeCompositeOver(c *computeContext, x, y int) {
	src, dst := c.readable[0], c.writable[0]
	if src == nil || dst == nil {
		return
	}
	p := y*c.width + x
	dst.setColor(p, blend.Over(src.color(p), dst.color(p)))
}

func computeCopy(c *computeContext, x, y int) {
	src, dst := c.readable[0], c.writable[0]
	if src == nil || dst == nil {
		return
	}
	p := y*c.width + x
	dst.setColor(p, src.color(p))
}

// computeBlit copies the texels inside Constants.Rect, given as
// {x0, y0, x1, y1} with exclusive upper bounds.
func computeBlit(c *computeContext, x, y int) {
	r := c.constants.Rect
	if uint32(x) < r[0] || uint32(x) >= r[2] || uint32(y) < r[1] || uint32(y) >= r[3] {
		return
	}
	computeCopy(c, x, y)
}
