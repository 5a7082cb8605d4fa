// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package technique

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/oit/gpucore"
	"github.com/gogpu/oit/internal/mode"
	"github.com/gogpu/oit/scene"
)

// depthPeeling extracts the nearest layers one pass at a time and
// accumulates them front to back with "under" compositing.
//
// The peeled-depth threshold starts at 0. Each pass draws into a fresh
// depth target cleared to 1 with a Less comparison, discarding fragments
// at or in front of the threshold, so the pass keeps the nearest remaining
// layer. The threshold then becomes the max of itself and the pass depth,
// and the pass color is composited under the accumulation, which
// ping-pongs between two targets.
type depthPeeling struct {
	base
	cur int
}

func newDepthPeeling() *depthPeeling {
	return &depthPeeling{base: base{tech: mode.TechniqueDepthPeeling}}
}

func (e *depthPeeling) Prepare(res *Resources, p Pass) error {
	return e.prepare(res, p, SharedPeel)
}

func (e *depthPeeling) Execute(sc *scene.Scene, cam *scene.Camera) error {
	pt := &e.res.peel
	if err := e.b.ClearDepthResource(pt.threshold.Resource, 0); err != nil {
		return err
	}
	if err := e.b.ClearRenderTargetResource(pt.accum[0], gpucore.Transparent); err != nil {
		return err
	}
	e.cur = 0

	opaque := gpucore.ResourceID(gpucore.InvalidID)
	if e.pass.DepthTest {
		opaque = e.target.Depth.ReadOnly
		e.template.Flags[gpucore.FlagOpaqueTest] = 1
	}

	for i := range e.pass.peelCount() {
		e.template.Flags[gpucore.FlagPass] = uint32(i)
		if err := e.peel(sc, cam, opaque); err != nil {
			return fmt.Errorf("pass %d: %w", i, err)
		}

		e.bindReadable(pt.depth.ReadOnly)
		e.bindWritable(gpucore.Writable(pt.threshold.Resource))
		if err := e.dispatch(gpucore.ProgramDepthMax); err != nil {
			return fmt.Errorf("pass %d: %w", i, err)
		}

		next := 1 - e.cur
		e.bindReadable(pt.accum[e.cur], pt.color)
		e.bindWritable(gpucore.Writable(pt.accum[next]))
		if err := e.dispatch(gpucore.ProgramColorUnder); err != nil {
			return fmt.Errorf("pass %d: %w", i, err)
		}
		e.cur = next
	}
	return nil
}

func (e *depthPeeling) peel(sc *scene.Scene, cam *scene.Camera, opaque gpucore.ResourceID) error {
	pt := &e.res.peel
	if err := e.b.ClearRenderTargetResource(pt.color, gpucore.Transparent); err != nil {
		return err
	}
	if err := e.b.ClearDepthResource(pt.depth.Resource, 1); err != nil {
		return err
	}
	e.bindReadable(pt.threshold.ReadOnly, opaque)
	e.b.BindRenderAndDepthResources([]gpucore.ResourceID{pt.color}, pt.depth.Resource)
	e.b.SetPipelineState(gpucore.PipelineState{
		DepthTest:    true,
		DepthWrite:   true,
		DepthCompare: gputypes.CompareFunctionLess,
		CullMode:     gputypes.CullModeNone,
		Blend:        gpucore.BlendReplace,
	})
	if err := e.program(gpucore.ProgramPeel); err != nil {
		return err
	}
	e.stats.Passes++
	return e.drawList(sc.Translucent, cam)
}

// Composite draws the accumulated layers over the quadrant target.
func (e *depthPeeling) Composite(target QuadrantTarget) error {
	e.bindReadable(e.res.peel.accum[e.cur])
	e.bindWritable(gpucore.Writable(target.Color))
	return e.dispatch(gpucore.ProgramCompositeOver)
}

// virtualPixelMaps peels layers back to front and composites every layer
// straight over the quadrant target.
//
// The threshold starts at the opaque depth (or 1 without the depth test).
// Each pass draws into a fresh depth target cleared to 0 with a Greater
// comparison, discarding fragments at or behind the threshold, so the pass
// keeps the farthest remaining layer in front of it. The layer is
// composited over the quadrant target and the threshold becomes the min of
// itself and the pass depth.
type virtualPixelMaps struct {
	base
}

func newVirtualPixelMaps() *virtualPixelMaps {
	return &virtualPixelMaps{base: base{tech: mode.TechniqueVirtualPixelMaps}}
}

func (e *virtualPixelMaps) Prepare(res *Resources, p Pass) error {
	return e.prepare(res, p, SharedPeel)
}

func (e *virtualPixelMaps) Execute(sc *scene.Scene, cam *scene.Camera) error {
	pt := &e.res.peel
	if e.pass.DepthTest {
		e.bindReadable(e.target.Depth.ReadOnly)
		e.bindWritable(gpucore.Writable(pt.threshold.Resource))
		if err := e.dispatch(gpucore.ProgramCopy); err != nil {
			return err
		}
	} else if err := e.b.ClearDepthResource(pt.threshold.Resource, 1); err != nil {
		return err
	}

	for i := range e.pass.peelCount() {
		e.template.Flags[gpucore.FlagPass] = uint32(i)
		if err := e.peel(sc, cam); err != nil {
			return fmt.Errorf("pass %d: %w", i, err)
		}

		e.bindReadable(pt.color)
		e.bindWritable(gpucore.Writable(e.target.Color))
		if err := e.dispatch(gpucore.ProgramCompositeOver); err != nil {
			return fmt.Errorf("pass %d: %w", i, err)
		}

		e.bindReadable(pt.depth.ReadOnly)
		e.bindWritable(gpucore.Writable(pt.threshold.Resource))
		if err := e.dispatch(gpucore.ProgramDepthMin); err != nil {
			return fmt.Errorf("pass %d: %w", i, err)
		}
	}
	return nil
}

func (e *virtualPixelMaps) peel(sc *scene.Scene, cam *scene.Camera) error {
	pt := &e.res.peel
	if err := e.b.ClearRenderTargetResource(pt.color, gpucore.Transparent); err != nil {
		return err
	}
	if err := e.b.ClearDepthResource(pt.depth.Resource, 0); err != nil {
		return err
	}
	e.bindReadable(pt.threshold.ReadOnly)
	e.b.BindRenderAndDepthResources([]gpucore.ResourceID{pt.color}, pt.depth.Resource)
	e.b.SetPipelineState(gpucore.PipelineState{
		DepthTest:    true,
		DepthWrite:   true,
		DepthCompare: gputypes.CompareFunctionGreater,
		CullMode:     gputypes.CullModeNone,
		Blend:        gpucore.BlendReplace,
	})
	if err := e.program(gpucore.ProgramPeelReverse); err != nil {
		return err
	}
	e.stats.Passes++
	return e.drawList(sc.Translucent, cam)
}
