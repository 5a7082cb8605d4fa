// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package technique

import (
	"github.com/gogpu/oit/gpucore"
	"github.com/gogpu/oit/internal/fragment"
	"github.com/gogpu/oit/internal/mode"
	"github.com/gogpu/oit/scene"
)

// linkedList captures every translucent fragment into per-pixel lists in a
// single pass, then sorts and composites each list in a compute pass.
type linkedList struct {
	base
	store *fragment.Store
}

func newLinkedList() *linkedList {
	return &linkedList{base: base{tech: mode.TechniqueLinkedList}}
}

func (e *linkedList) Prepare(res *Resources, p Pass) error {
	if err := e.prepare(res, p); err != nil {
		return err
	}
	s, err := res.Stores().Get(fragment.LayoutLinkedList, p.Tier)
	if err != nil {
		return err
	}
	e.store = s
	return nil
}

func (e *linkedList) Execute(sc *scene.Scene, cam *scene.Camera) error {
	heads, nodes := e.store.Primary, e.store.Secondary

	e.bindReadable()
	e.bindWritable(gpucore.Writable(heads))
	if err := e.dispatch(gpucore.ProgramLinkedListClear); err != nil {
		return err
	}

	depth, ps := e.translucentDepth(gpucore.BlendReplace)
	e.b.BindUAVsRenderAndDepthTargets(nil, depth, []gpucore.UAVBinding{
		gpucore.Writable(heads),
		{Resource: nodes, InitialCount: 0},
	})
	e.b.SetPipelineState(ps)
	if err := e.program(gpucore.ProgramLinkedListPopulate); err != nil {
		return err
	}
	e.stats.Passes = 1
	return e.drawList(sc.Translucent, cam)
}

// Composite walks at most the tier's node count per pixel. The heads
// counter collects the number of pixels whose chain was cut short.
func (e *linkedList) Composite(target QuadrantTarget) error {
	heads, nodes := e.store.Primary, e.store.Secondary
	e.template.Flags[gpucore.FlagCapacity] = uint32(e.store.Capacity())
	e.bindReadable()
	e.bindWritable(
		gpucore.Writable(target.Color),
		gpucore.UAVBinding{Resource: heads, InitialCount: 0},
		gpucore.Writable(nodes),
	)
	if err := e.dispatch(gpucore.ProgramLinkedListComposite); err != nil {
		return err
	}

	allocated, err := e.b.ReadCounter(nodes)
	if err != nil {
		return err
	}
	truncated, err := e.b.ReadCounter(heads)
	if err != nil {
		return err
	}
	pool := uint32(e.store.Pixels() * e.store.Capacity())
	e.stats.Fragments = allocated
	if allocated > pool {
		e.stats.Dropped = allocated - pool
		slogger().Warn("technique: linked list pool exhausted",
			"tier", e.store.Tier, "pool", pool, "dropped", e.stats.Dropped)
	}
	e.stats.TruncatedPixels = truncated
	return nil
}
