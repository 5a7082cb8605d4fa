// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package technique

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/oit/gpucore"
	"github.com/gogpu/oit/internal/fragment"
	"github.com/gogpu/oit/internal/mode"
	"github.com/gogpu/oit/scene"
)

// DefaultPeelCount is the number of depth peeling passes.
const DefaultPeelCount = 2

// MaxPeelCount bounds the peel count accepted from the console.
const MaxPeelCount = 64

// Pass is the per-quadrant configuration of one executor invocation.
type Pass struct {
	Quadrant int
	Tier     fragment.Tier

	// Textured enables texture sampling for objects that carry one.
	Textured bool

	// DepthTest tests translucent fragments against the opaque depth.
	DepthTest bool

	// Immediate uploads meshes for every draw instead of drawing the
	// retained ones.
	Immediate bool

	// PeelCount is the number of layers depth peeling and virtual pixel
	// maps extract. Zero means DefaultPeelCount.
	PeelCount int
}

func (p Pass) peelCount() int {
	if p.PeelCount <= 0 {
		return DefaultPeelCount
	}
	return min(p.PeelCount, MaxPeelCount)
}

// Stats reports the work of one invocation.
type Stats struct {
	Technique mode.Technique

	// Passes is the number of draws of the translucent list.
	Passes int

	// Fragments is the number of fragments offered to a linked list pool.
	Fragments uint32

	// Dropped is the number of fragments that found the pool exhausted.
	Dropped uint32

	// TruncatedPixels is the number of pixels whose chain was longer than
	// the composite walk.
	TruncatedPixels uint32
}

// Executor renders the translucent objects of a scene into a quadrant with
// one technique.
//
// A call sequence is Prepare, Execute, Composite, then Release, which must
// run even when an earlier step failed.
type Executor interface {
	// Technique returns the technique implemented.
	Technique() mode.Technique

	// Prepare binds the executor to the resources and the quadrant of p and
	// acquires the shared targets it needs.
	Prepare(res *Resources, p Pass) error

	// Execute runs the passes over the translucent objects of sc.
	Execute(sc *scene.Scene, cam *scene.Camera) error

	// Composite resolves the result into target.
	Composite(target QuadrantTarget) error

	// Stats returns the statistics of the last invocation.
	Stats() Stats

	// Release returns the shared targets.
	Release()
}

// New returns the executor of technique t.
func New(t mode.Technique) (Executor, error) {
	switch t {
	case mode.TechniqueDepthLess:
		return newDepthTest(t, gputypes.CompareFunctionLess), nil
	case mode.TechniqueDepthGreater:
		return newDepthTest(t, gputypes.CompareFunctionGreater), nil
	case mode.TechniqueWorstCase:
		return newBlended(t, false), nil
	case mode.TechniqueCPUSorted:
		return newBlended(t, true), nil
	case mode.TechniqueDepthPeeling:
		return newDepthPeeling(), nil
	case mode.TechniqueLinkedList:
		return newLinkedList(), nil
	case mode.TechniqueWeightedBlended:
		return newWeighted(), nil
	case mode.TechniqueMLAB:
		return newMLAB(), nil
	case mode.TechniqueVirtualPixelMaps:
		return newVirtualPixelMaps(), nil
	case mode.TechniqueUAVWithoutROV:
		return newUAV(t, false), nil
	case mode.TechniqueUAVWithROV:
		return newUAV(t, true), nil
	default:
		return nil, &mode.EnumError{Kind: "technique", Value: t.String()}
	}
}

// Run renders sc into quadrant p.Quadrant with e, after the opaque pass has
// filled the quadrant targets.
func Run(e Executor, res *Resources, p Pass, sc *scene.Scene, cam *scene.Camera) (Stats, error) {
	target, err := res.Quadrant(p.Quadrant)
	if err != nil {
		return Stats{}, err
	}
	defer e.Release()
	if err := e.Prepare(res, p); err != nil {
		return Stats{}, fmt.Errorf("%v: prepare: %w", e.Technique(), err)
	}
	if err := e.Execute(sc, cam); err != nil {
		return Stats{}, fmt.Errorf("%v: execute: %w", e.Technique(), err)
	}
	if err := e.Composite(target); err != nil {
		return Stats{}, fmt.Errorf("%v: composite: %w", e.Technique(), err)
	}
	st := e.Stats()
	slogger().Debug("technique: quadrant rendered",
		"quadrant", p.Quadrant+1, "technique", st.Technique, "passes", st.Passes,
		"fragments", st.Fragments, "dropped", st.Dropped, "truncated", st.TruncatedPixels)
	return st, nil
}

// base carries the state and helpers every executor shares.
type base struct {
	tech   mode.Technique
	res    *Resources
	b      gpucore.Backend
	pass   Pass
	target QuadrantTarget
	stats  Stats
	held   []Shared

	// template holds the constants common to every draw of a pass.
	template gpucore.Constants
}

func (e *base) Technique() mode.Technique { return e.tech }

func (e *base) Stats() Stats { return e.stats }

// prepare records the invocation and acquires the shared sets.
func (e *base) prepare(res *Resources, p Pass, shared ...Shared) error {
	target, err := res.Quadrant(p.Quadrant)
	if err != nil {
		return err
	}
	e.res, e.b, e.pass, e.target = res, res.Backend(), p, target
	e.stats = Stats{Technique: e.tech}
	e.template = gpucore.Constants{}
	for _, s := range shared {
		if err := res.Acquire(s); err != nil {
			return err
		}
		e.held = append(e.held, s)
	}
	return nil
}

func (e *base) Release() {
	for _, s := range e.held {
		e.res.Release(s)
	}
	e.held = e.held[:0]
}

// Composite is a no-op for executors that render straight into the
// quadrant target.
func (e *base) Composite(QuadrantTarget) error { return nil }

func (e *base) program(name gpucore.ProgramName) error {
	id, err := e.res.Program(name)
	if err != nil {
		return err
	}
	e.b.UseProgram(id)
	return nil
}

// bindReadable binds ids to the readable slots and clears the rest.
func (e *base) bindReadable(ids ...gpucore.ResourceID) {
	var slots [gpucore.MaxReadableSlots]gpucore.ResourceID
	copy(slots[:], ids)
	e.b.BindReadableResources(0, slots[:]...)
}

// bindWritable binds uavs to the compute writable slots and clears the rest.
func (e *base) bindWritable(uavs ...gpucore.UAVBinding) {
	var slots [gpucore.MaxComputeUAVSlots]gpucore.UAVBinding
	for i := range slots {
		slots[i] = gpucore.Writable(gpucore.InvalidID)
	}
	copy(slots[:], uavs)
	e.b.BindWritableResourcesToComputeShader(0, slots[:]...)
}

// dispatch runs a compute program over the window.
func (e *base) dispatch(name gpucore.ProgramName) error {
	if err := e.program(name); err != nil {
		return err
	}
	e.b.SetConstants(&e.template)
	w, h := e.res.Size()
	return e.b.ComputeShaderDispatch(gpucore.GroupCount(w), gpucore.GroupCount(h), 1)
}

// translucentDepth returns the depth binding and pipeline state of a
// translucent pass: a test-only comparison against the opaque depth when
// the depth test is on, no depth otherwise.
func (e *base) translucentDepth(blendMode gpucore.BlendMode) (gpucore.ResourceID, gpucore.PipelineState) {
	ps := gpucore.PipelineState{
		DepthCompare: gputypes.CompareFunctionLess,
		CullMode:     gputypes.CullModeNone,
		Blend:        blendMode,
	}
	if !e.pass.DepthTest {
		return gpucore.InvalidID, ps
	}
	ps.DepthTest = true
	return e.target.Depth.ReadOnly, ps
}

// drawList draws objs in order with the template constants.
func (e *base) drawList(objs []*scene.Object, cam *scene.Camera) error {
	viewProj := [16]float32(cam.ViewProj())
	for _, o := range objs {
		c := e.template
		c.World = [16]float32(o.World)
		c.ViewProj = viewProj
		c.Tint = o.Color
		c.Flags[gpucore.FlagTextured] = 0
		if e.pass.Textured && o.Texture != nil {
			c.Flags[gpucore.FlagTextured] = 1
		}
		e.b.SetConstants(&c)
		if err := e.drawObject(o); err != nil {
			return fmt.Errorf("draw %q: %w", o.Label, err)
		}
	}
	return nil
}

func (e *base) drawObject(o *scene.Object) error {
	if !e.pass.Immediate && o.Mesh != gpucore.InvalidID {
		return e.b.DrawMesh(o.Mesh)
	}
	id, err := e.b.CreateMesh(o.MeshDesc())
	if err != nil {
		return err
	}
	defer e.b.DestroyMesh(id)
	return e.b.DrawMesh(id)
}

// OpaquePass clears the targets of quadrant p.Quadrant to background and
// far depth and draws the opaque objects of sc with a depth-tested,
// back-face-culled pass.
func OpaquePass(res *Resources, p Pass, sc *scene.Scene, cam *scene.Camera, background gpucore.Color) error {
	e := &base{}
	if err := e.prepare(res, p); err != nil {
		return err
	}
	if err := e.b.ClearRenderTargetResource(e.target.Color, background); err != nil {
		return fmt.Errorf("opaque: clear color: %w", err)
	}
	if err := e.b.ClearDepthResource(e.target.Depth.Resource, 1); err != nil {
		return fmt.Errorf("opaque: clear depth: %w", err)
	}
	e.bindReadable()
	e.b.BindRenderAndDepthResources([]gpucore.ResourceID{e.target.Color}, e.target.Depth.Resource)
	e.b.SetPipelineState(gpucore.PipelineState{
		DepthTest:    true,
		DepthWrite:   true,
		DepthCompare: gputypes.CompareFunctionLess,
		CullMode:     gputypes.CullModeBack,
		Blend:        gpucore.BlendReplace,
	})
	if err := e.program(gpucore.ProgramOpaque); err != nil {
		return err
	}
	if err := e.drawList(sc.Opaque, cam); err != nil {
		return fmt.Errorf("opaque: %w", err)
	}
	return nil
}
