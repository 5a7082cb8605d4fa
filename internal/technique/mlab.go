// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package technique

import (
	"github.com/gogpu/oit/gpucore"
	"github.com/gogpu/oit/internal/fragment"
	"github.com/gogpu/oit/internal/mode"
	"github.com/gogpu/oit/scene"
)

// mlab keeps a fixed-size depth-sorted array per pixel, inserted under
// rasterizer ordering and merging the two farthest entries on overflow.
type mlab struct {
	base
	store *fragment.Store
}

func newMLAB() *mlab {
	return &mlab{base: base{tech: mode.TechniqueMLAB}}
}

func (e *mlab) Prepare(res *Resources, p Pass) error {
	if err := e.prepare(res, p); err != nil {
		return err
	}
	s, err := res.Stores().Get(fragment.LayoutMLAB, p.Tier)
	if err != nil {
		return err
	}
	e.store = s
	e.template.Flags[gpucore.FlagCapacity] = uint32(s.Capacity())
	return nil
}

func (e *mlab) Execute(sc *scene.Scene, cam *scene.Camera) error {
	depth, ps := e.translucentDepth(gpucore.BlendReplace)
	e.bindReadable()
	e.b.BindUAVsRenderAndDepthTargets(nil, depth, []gpucore.UAVBinding{
		gpucore.Writable(e.store.Primary),
		gpucore.Writable(e.store.Secondary),
	})
	e.b.SetPipelineState(ps)
	if err := e.program(gpucore.ProgramMLABPopulate); err != nil {
		return err
	}
	e.stats.Passes = 1
	return e.drawList(sc.Translucent, cam)
}

// Composite resolves the arrays over the quadrant target and leaves every
// pixel untouched for the next frame.
func (e *mlab) Composite(target QuadrantTarget) error {
	e.bindReadable()
	e.bindWritable(
		gpucore.Writable(target.Color),
		gpucore.Writable(e.store.Primary),
		gpucore.Writable(e.store.Secondary),
	)
	return e.dispatch(gpucore.ProgramMLABResolve)
}
