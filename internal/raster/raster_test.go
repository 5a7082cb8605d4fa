// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package raster

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/oit/gpucore"
)

// quad covers NDC [-1, 1]^2 with two counter-clockwise triangles.
var (
	quadVerts = []gpucore.Vertex{
		{Pos: [3]float32{-1, -1, 0}, UV: [2]float32{0.25, 0.75}},
		{Pos: [3]float32{1, -1, 0}, UV: [2]float32{0.25, 0.75}},
		{Pos: [3]float32{1, 1, 0}, UV: [2]float32{0.25, 0.75}},
		{Pos: [3]float32{-1, 1, 0}, UV: [2]float32{0.25, 0.75}},
	}
	quadIndices = []uint32{0, 1, 2, 0, 2, 3}
)

func TestCompare(t *testing.T) {
	tests := []struct {
		fn     gputypes.CompareFunction
		frag   float32
		stored float32
		want   bool
	}{
		{gputypes.CompareFunctionNever, 0, 1, false},
		{gputypes.CompareFunctionLess, 0.2, 0.5, true},
		{gputypes.CompareFunctionLess, 0.5, 0.5, false},
		{gputypes.CompareFunctionLessEqual, 0.5, 0.5, true},
		{gputypes.CompareFunctionEqual, 0.5, 0.5, true},
		{gputypes.CompareFunctionEqual, 0.4, 0.5, false},
		{gputypes.CompareFunctionGreater, 0.7, 0.5, true},
		{gputypes.CompareFunctionGreaterEqual, 0.5, 0.5, true},
		{gputypes.CompareFunctionGreaterEqual, 0.4, 0.5, false},
		{gputypes.CompareFunctionNotEqual, 0.4, 0.5, true},
		{gputypes.CompareFunctionAlways, 1, 0, true},
	}
	for _, tt := range tests {
		if got := Compare(tt.fn, tt.frag, tt.stored); got != tt.want {
			t.Errorf("Compare(%v, %v, %v) = %v, want %v", tt.fn, tt.frag, tt.stored, got, tt.want)
		}
	}
	if ValidCompare(gputypes.CompareFunction(99)) {
		t.Error("ValidCompare(99) = true, want false")
	}
}

func TestMatrix(t *testing.T) {
	if got := Matrix([16]float32{}); got != mgl32.Ident4() {
		t.Errorf("Matrix(zero) = %v, want identity", got)
	}
	m := mgl32.Translate3D(1, 2, 3)
	if got := Matrix([16]float32(m)); got != m {
		t.Errorf("Matrix(translate) = %v, want %v", got, m)
	}
}

func TestSharedEdgeCoveredOnce(t *testing.T) {
	r := NewRasterizer(4, 4)
	frags := r.Rasterize(quadVerts, quadIndices, mgl32.Ident4(), mgl32.Ident4(), gputypes.CullModeNone)
	if len(frags) != 16 {
		t.Fatalf("got %d fragments, want 16", len(frags))
	}
	var seen [16]int
	for _, f := range frags {
		seen[f.Pixel]++
		if f.Depth != 0.5 {
			t.Errorf("pixel %d depth = %v, want 0.5", f.Pixel, f.Depth)
		}
		if math32.Abs(f.U-0.25) > 1e-6 || math32.Abs(f.V-0.75) > 1e-6 {
			t.Errorf("pixel %d uv = (%v, %v), want (0.25, 0.75)", f.Pixel, f.U, f.V)
		}
	}
	for p, n := range seen {
		if n != 1 {
			t.Errorf("pixel %d covered %d times", p, n)
		}
	}
}

func TestSetupCulling(t *testing.T) {
	tests := []struct {
		cull gputypes.CullMode
		want int
	}{
		{gputypes.CullModeNone, 2},
		{gputypes.CullModeBack, 2},
		{gputypes.CullModeFront, 0},
	}
	r := NewRasterizer(8, 8)
	for _, tt := range tests {
		tris := r.Setup(nil, quadVerts, quadIndices, mgl32.Ident4(), mgl32.Ident4(), tt.cull)
		if len(tris) != tt.want {
			t.Errorf("cull %v: %d triangles, want %d", tt.cull, len(tris), tt.want)
		}
		for i := range tris {
			if tris[i].Area() <= 0 {
				t.Errorf("cull %v: triangle %d area %v, want positive", tt.cull, i, tris[i].Area())
			}
		}
	}

	// Reversed winding faces away.
	back := []uint32{0, 2, 1}
	if got := r.Setup(nil, quadVerts, back, mgl32.Ident4(), mgl32.Ident4(), gputypes.CullModeBack); len(got) != 0 {
		t.Errorf("clockwise triangle with back culling: %d triangles, want 0", len(got))
	}
	if got := r.Setup(nil, quadVerts, back, mgl32.Ident4(), mgl32.Ident4(), gputypes.CullModeNone); len(got) != 1 {
		t.Errorf("clockwise triangle without culling: %d triangles, want 1", len(got))
	}
}

func TestSetupDropsBehindNearPlane(t *testing.T) {
	// w = -z, so vertices with positive z lie behind the eye.
	proj := mgl32.Ident4()
	proj[11] = -1
	proj[15] = 0
	verts := []gpucore.Vertex{
		{Pos: [3]float32{-0.5, -0.5, -1}},
		{Pos: [3]float32{0.5, -0.5, -1}},
		{Pos: [3]float32{0, 0.5, -1}},
		{Pos: [3]float32{0, 0.5, 1}},
	}
	r := NewRasterizer(8, 8)
	tris := r.Setup(nil, verts, []uint32{0, 1, 2, 0, 1, 3}, mgl32.Ident4(), proj, gputypes.CullModeNone)
	if len(tris) != 1 {
		t.Fatalf("got %d triangles, want 1", len(tris))
	}
	if tris[0].A.InvW != 1 {
		t.Errorf("InvW = %v, want 1", tris[0].A.InvW)
	}
}

func TestRasterizeDropsOutsideDepthRange(t *testing.T) {
	verts := make([]gpucore.Vertex, len(quadVerts))
	copy(verts, quadVerts)
	for i := range verts {
		verts[i].Pos[2] = 2
	}
	r := NewRasterizer(4, 4)
	if got := r.Rasterize(verts, quadIndices, mgl32.Ident4(), mgl32.Ident4(), gputypes.CullModeNone); len(got) != 0 {
		t.Errorf("got %d fragments beyond the far plane, want 0", len(got))
	}
}

func TestBoundsClipToWindow(t *testing.T) {
	r := NewRasterizer(4, 4)
	tri := Triangle{
		A: Vertex{X: -10, Y: -10},
		B: Vertex{X: 20, Y: -10},
		C: Vertex{X: -10, Y: 20},
	}
	x0, y0, x1, y1 := r.Bounds(&tri)
	if x0 != 0 || y0 != 0 || x1 != 3 || y1 != 3 {
		t.Errorf("Bounds() = (%d, %d, %d, %d), want (0, 0, 3, 3)", x0, y0, x1, y1)
	}
}
