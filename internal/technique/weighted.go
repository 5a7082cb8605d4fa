// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package technique

import (
	"github.com/gogpu/oit/gpucore"
	"github.com/gogpu/oit/internal/mode"
	"github.com/gogpu/oit/scene"
)

// weighted approximates the sorted result with an order-independent,
// depth-weighted sum of colors and a product of transmissions.
type weighted struct {
	base
}

func newWeighted() *weighted {
	return &weighted{base: base{tech: mode.TechniqueWeightedBlended}}
}

func (e *weighted) Prepare(res *Resources, p Pass) error {
	return e.prepare(res, p, SharedWeighted)
}

func (e *weighted) Execute(sc *scene.Scene, cam *scene.Camera) error {
	wt := &e.res.weighted
	if err := e.b.ClearRenderTargetResource(wt.accum, gpucore.Transparent); err != nil {
		return err
	}
	if err := e.b.ClearRenderTargetResource(wt.reveal, gpucore.Color{R: 1}); err != nil {
		return err
	}

	depth, ps := e.translucentDepth(gpucore.BlendWeighted)
	e.bindReadable()
	e.b.BindRenderAndDepthResources([]gpucore.ResourceID{wt.accum, wt.reveal}, depth)
	e.b.SetPipelineState(ps)
	if err := e.program(gpucore.ProgramWeightedAccumulate); err != nil {
		return err
	}
	e.stats.Passes = 1
	return e.drawList(sc.Translucent, cam)
}

func (e *weighted) Composite(target QuadrantTarget) error {
	e.bindReadable(e.res.weighted.accum, e.res.weighted.reveal)
	e.bindWritable(gpucore.Writable(target.Color))
	return e.dispatch(gpucore.ProgramWeightedResolve)
}
