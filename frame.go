// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package oit

import (
	"fmt"
	"image"
	"image/color"

	"github.com/gogpu/oit/gpucore"
	"github.com/gogpu/oit/internal/blend"
	"github.com/gogpu/oit/internal/mode"
	"github.com/gogpu/oit/internal/technique"
)

// RenderFrame renders every active quadrant with its selected technique
// and blits the quadrants to the backbuffer.
//
// Quadrants render one after another; each runs its full pass sequence,
// opaque pass included, before the next starts.
func (tb *Testbed) RenderFrame() error {
	if tb.closed {
		return ErrClosed
	}
	sc := tb.store.Active()
	sc.UpdateBillboards(tb.cam)

	for q := range tb.dispatch.Active() {
		st, err := tb.renderQuadrant(q)
		if err != nil {
			return fmt.Errorf("oit: quadrant %d: %w", q+1, err)
		}
		tb.stats[q] = st
	}
	for q := tb.dispatch.Active(); q < MaxQuadrants; q++ {
		tb.stats[q] = Stats{}
	}

	if err := tb.screenPass(); err != nil {
		return fmt.Errorf("oit: screen pass: %w", err)
	}
	if err := tb.backend.Flush(); err != nil {
		return err
	}

	tb.frames++
	if o := tb.cfg.Camera.Orbit; o != 0 {
		tb.cam.Orbit(o)
	}
	Logger().Debug("oit: frame rendered", "frame", tb.frames, "scene", sc.Name,
		"layout", tb.dispatch.Layout())
	return nil
}

func (tb *Testbed) renderQuadrant(q int) (Stats, error) {
	s, err := tb.dispatch.State(q)
	if err != nil {
		return Stats{}, err
	}
	t, err := s.Mode().Technique()
	if err != nil {
		return Stats{}, err
	}
	e, err := tb.executor(t)
	if err != nil {
		return Stats{}, err
	}

	p := technique.Pass{
		Quadrant:  q,
		Tier:      s.Tier(),
		Textured:  tb.dispatch.Textured(),
		DepthTest: tb.dispatch.DepthTest(),
		Immediate: tb.dispatch.Immediate(),
		PeelCount: tb.peelCount,
	}
	sc := tb.store.Active()
	if err := technique.OpaquePass(tb.res, p, sc, tb.cam, tb.background); err != nil {
		return Stats{}, err
	}
	return technique.Run(e, tb.res, p, sc, tb.cam)
}

// executor returns the cached executor of t.
func (tb *Testbed) executor(t mode.Technique) (technique.Executor, error) {
	if e, ok := tb.executors[t]; ok {
		return e, nil
	}
	e, err := technique.New(t)
	if err != nil {
		return nil, err
	}
	tb.executors[t] = e
	return e, nil
}

// screenPass copies the pixels of every active quadrant target that lie
// inside the quadrant's screen rectangle to the backbuffer.
func (tb *Testbed) screenPass() error {
	b := tb.backend
	id, err := tb.res.Program(gpucore.ProgramBlit)
	if err != nil {
		return err
	}
	w, h := tb.res.Size()
	bb := b.Backbuffer()
	if err := b.ClearRenderTargetResource(bb, gpucore.Black); err != nil {
		return err
	}

	b.UseProgram(id)
	b.BindWritableResourcesToComputeShader(0,
		gpucore.Writable(bb), gpucore.Writable(gpucore.InvalidID), gpucore.Writable(gpucore.InvalidID))
	layout := tb.dispatch.Layout()
	for q := range layout.Quadrants() {
		target, err := tb.res.Quadrant(q)
		if err != nil {
			return err
		}
		r := layout.Rect(q, w, h)
		b.BindReadableResources(0, target.Color, gpucore.InvalidID)
		b.SetConstants(&gpucore.Constants{
			Rect: [4]uint32{uint32(r.Min.X), uint32(r.Min.Y), uint32(r.Max.X), uint32(r.Max.Y)},
		})
		if err := b.ComputeShaderDispatch(gpucore.GroupCount(w), gpucore.GroupCount(h), 1); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot returns the backbuffer of the last frame.
func (tb *Testbed) Snapshot() (*image.RGBA, error) {
	if tb.closed {
		return nil, ErrClosed
	}
	px, err := tb.backend.ReadColor(tb.backend.Backbuffer())
	if err != nil {
		return nil, err
	}
	w, h := tb.backend.Size()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetRGBA(x, y, toRGBA(px[y*w+x]))
		}
	}
	return img, nil
}

// QuadrantPixels returns the float texels of the target of quadrant q
// (0-based) in row-major order.
func (tb *Testbed) QuadrantPixels(q int) ([]gpucore.Color, error) {
	if tb.closed {
		return nil, ErrClosed
	}
	target, err := tb.res.Quadrant(q)
	if err != nil {
		return nil, err
	}
	return tb.backend.ReadColor(target.Color)
}

func toRGBA(c gpucore.Color) color.RGBA {
	r, g, b, a := blend.ToRGBA8(c)
	return color.RGBA{R: r, G: g, B: b, A: a}
}
