// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package technique

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/oit/gpucore"
	"github.com/gogpu/oit/internal/mode"
	"github.com/gogpu/oit/scene"
)

// depthTest draws the translucent objects as opaque ones, writing depth
// with a configurable comparison.
type depthTest struct {
	base
	compare gputypes.CompareFunction
}

func newDepthTest(t mode.Technique, compare gputypes.CompareFunction) *depthTest {
	return &depthTest{base: base{tech: t}, compare: compare}
}

func (e *depthTest) Prepare(res *Resources, p Pass) error { return e.prepare(res, p) }

func (e *depthTest) Execute(sc *scene.Scene, cam *scene.Camera) error {
	depth := gpucore.ResourceID(gpucore.InvalidID)
	if e.pass.DepthTest {
		depth = e.target.Depth.Resource
	}
	e.bindReadable()
	e.b.BindRenderAndDepthResources([]gpucore.ResourceID{e.target.Color}, depth)
	e.b.SetPipelineState(gpucore.PipelineState{
		DepthTest:    e.pass.DepthTest,
		DepthWrite:   true,
		DepthCompare: e.compare,
		CullMode:     gputypes.CullModeNone,
		Blend:        gpucore.BlendReplace,
	})
	if err := e.program(gpucore.ProgramOpaque); err != nil {
		return err
	}
	e.stats.Passes = 1
	return e.drawList(sc.Translucent, cam)
}

// blended draws the translucent objects with "over" blending, in load order
// or sorted back to front by the CPU.
type blended struct {
	base
	sorted bool
}

func newBlended(t mode.Technique, sorted bool) *blended {
	return &blended{base: base{tech: t}, sorted: sorted}
}

func (e *blended) Prepare(res *Resources, p Pass) error { return e.prepare(res, p) }

func (e *blended) Execute(sc *scene.Scene, cam *scene.Camera) error {
	objs := sc.Translucent
	if e.sorted {
		sc.SortBackToFront(cam)
		objs = sc.Sorted()
	}
	depth, ps := e.translucentDepth(gpucore.BlendOver)
	e.bindReadable()
	e.b.BindRenderAndDepthResources([]gpucore.ResourceID{e.target.Color}, depth)
	e.b.SetPipelineState(ps)
	if err := e.program(gpucore.ProgramTranslucent); err != nil {
		return err
	}
	e.stats.Passes = 1
	return e.drawList(objs, cam)
}

// uav blends into the quadrant color target bound as a writable resource,
// with or without rasterizer-ordered execution.
type uav struct {
	base
	ordered bool
}

func newUAV(t mode.Technique, ordered bool) *uav {
	return &uav{base: base{tech: t}, ordered: ordered}
}

func (e *uav) Prepare(res *Resources, p Pass) error { return e.prepare(res, p) }

func (e *uav) Execute(sc *scene.Scene, cam *scene.Camera) error {
	name := gpucore.ProgramUAVBlend
	if e.ordered {
		name = gpucore.ProgramUAVBlendOrdered
	}
	depth, ps := e.translucentDepth(gpucore.BlendReplace)
	e.bindReadable()
	e.b.BindUAVsRenderAndDepthTargets(nil, depth, []gpucore.UAVBinding{gpucore.Writable(e.target.Color)})
	e.b.SetPipelineState(ps)
	if err := e.program(name); err != nil {
		return err
	}
	e.stats.Passes = 1
	return e.drawList(sc.Translucent, cam)
}
