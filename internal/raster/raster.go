// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package raster provides the triangle setup and edge-function coverage
// rules shared by the backends.
//
// Setup transforms mesh vertices to window space, drops triangles reaching
// behind the near plane, applies face culling and normalizes the winding.
// The software backend walks the resulting triangles on the CPU; the wgpu
// backend uploads them and evaluates the same edge functions per pixel in
// WGSL.
package raster

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/oit/gpucore"
)

// MinW rejects vertices reaching behind the near plane. The rasterizer
// does not clip; a triangle with such a vertex is dropped whole.
const MinW = 1e-5

// Vertex is a vertex after the viewport transform.
type Vertex struct {
	X, Y, Z float32
	InvW    float32

	// UW and VW are the texture coordinates divided by w.
	UW, VW float32
}

// Triangle is a window-space triangle with positive edge-function area.
type Triangle struct {
	A, B, C Vertex
}

// Frag is one covered pixel of one triangle.
type Frag struct {
	Pixel int
	Depth float32
	U, V  float32
}

// Rasterizer turns meshes into window-space triangles and fragments for a
// fixed window size.
type Rasterizer struct {
	width  int
	height int
}

// NewRasterizer creates a rasterizer for the given window size.
func NewRasterizer(width, height int) *Rasterizer {
	return &Rasterizer{width: width, height: height}
}

// Setup appends the triangles of the indexed mesh to dst in primitive
// order, culled by cull.
func (r *Rasterizer) Setup(dst []Triangle, verts []gpucore.Vertex, indices []uint32, world, viewProj mgl32.Mat4, cull gputypes.CullMode) []Triangle {
	mvp := viewProj.Mul4(world)

	sv := make([]Vertex, len(verts))
	valid := make([]bool, len(verts))
	fw, fh := float32(r.width), float32(r.height)
	for i, v := range verts {
		clip := mvp.Mul4x1(mgl32.Vec4{v.Pos[0], v.Pos[1], v.Pos[2], 1})
		w := clip.W()
		if w < MinW {
			continue
		}
		inv := 1 / w
		sv[i] = Vertex{
			X:    (clip.X()*inv*0.5 + 0.5) * fw,
			Y:    (0.5 - clip.Y()*inv*0.5) * fh,
			Z:    clip.Z()*inv*0.5 + 0.5,
			InvW: inv,
			UW:   v.UV[0] * inv,
			VW:   v.UV[1] * inv,
		}
		valid[i] = true
	}

	for t := 0; t+2 < len(indices); t += 3 {
		i0, i1, i2 := indices[t], indices[t+1], indices[t+2]
		if !valid[i0] || !valid[i1] || !valid[i2] {
			continue
		}
		if tri, ok := setupTriangle(sv[i0], sv[i1], sv[i2], cull); ok {
			dst = append(dst, tri)
		}
	}
	return dst
}

// Rasterize returns the fragments of every triangle of the mesh in
// primitive order. Depth is the window-space depth in [0, 1]; fragments
// outside that range are dropped.
func (r *Rasterizer) Rasterize(verts []gpucore.Vertex, indices []uint32, world, viewProj mgl32.Mat4, cull gputypes.CullMode) []Frag {
	var out []Frag
	for _, t := range r.Setup(nil, verts, indices, world, viewProj, cull) {
		out = r.Cover(out, &t)
	}
	return out
}

// Edge is the edge function of a->b evaluated at (px, py). It is positive
// on the inner side of a triangle with positive area.
func Edge(a, b Vertex, px, py float32) float32 {
	return (b.X-a.X)*(py-a.Y) - (b.Y-a.Y)*(px-a.X)
}

// OwnsEdge breaks ties for pixel centres exactly on an edge so that an
// edge shared by two triangles is rasterized once.
func OwnsEdge(a, b Vertex) bool {
	dy := b.Y - a.Y
	return dy > 0 || (dy == 0 && b.X < a.X)
}

func setupTriangle(a, b, c Vertex, cull gputypes.CullMode) (Triangle, bool) {
	area := Edge(a, b, c.X, c.Y)
	if area == 0 {
		return Triangle{}, false
	}
	// Counter-clockwise triangles in clip space have negative area in
	// window space, where y grows downwards.
	front := area < 0
	switch {
	case cull == gputypes.CullModeBack && !front:
		return Triangle{}, false
	case cull == gputypes.CullModeFront && front:
		return Triangle{}, false
	}
	if area < 0 {
		b, c = c, b
	}
	return Triangle{A: a, B: b, C: c}, true
}

// Area returns the edge-function area of t.
func (t *Triangle) Area() float32 { return Edge(t.A, t.B, t.C.X, t.C.Y) }

// Bounds returns the inclusive pixel bounds of t clipped to the window.
// The bounds are empty when x0 > x1 or y0 > y1.
func (r *Rasterizer) Bounds(t *Triangle) (x0, y0, x1, y1 int) {
	x0 = max(int(math32.Floor(min(t.A.X, t.B.X, t.C.X))), 0)
	x1 = min(int(math32.Ceil(max(t.A.X, t.B.X, t.C.X))), r.width-1)
	y0 = max(int(math32.Floor(min(t.A.Y, t.B.Y, t.C.Y))), 0)
	y1 = min(int(math32.Ceil(max(t.A.Y, t.B.Y, t.C.Y))), r.height-1)
	return x0, y0, x1, y1
}

// Cover appends the fragments of t to out in row-major order.
func (r *Rasterizer) Cover(out []Frag, t *Triangle) []Frag {
	a, b, c := t.A, t.B, t.C
	inv := 1 / t.Area()
	ownBC, ownCA, ownAB := OwnsEdge(b, c), OwnsEdge(c, a), OwnsEdge(a, b)

	x0, y0, x1, y1 := r.Bounds(t)
	for y := y0; y <= y1; y++ {
		py := float32(y) + 0.5
		for x := x0; x <= x1; x++ {
			px := float32(x) + 0.5
			w0 := Edge(b, c, px, py)
			w1 := Edge(c, a, px, py)
			w2 := Edge(a, b, px, py)
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			if (w0 == 0 && !ownBC) || (w1 == 0 && !ownCA) || (w2 == 0 && !ownAB) {
				continue
			}
			l0, l1, l2 := w0*inv, w1*inv, w2*inv
			z := l0*a.Z + l1*b.Z + l2*c.Z
			if z < 0 || z > 1 {
				continue
			}
			iw := l0*a.InvW + l1*b.InvW + l2*c.InvW
			out = append(out, Frag{
				Pixel: y*r.width + x,
				Depth: z,
				U:     (l0*a.UW + l1*b.UW + l2*c.UW) / iw,
				V:     (l0*a.VW + l1*b.VW + l2*c.VW) / iw,
			})
		}
	}
	return out
}

// Compare evaluates "fragment <fn> stored".
func Compare(fn gputypes.CompareFunction, frag, stored float32) bool {
	switch fn {
	case gputypes.CompareFunctionNever:
		return false
	case gputypes.CompareFunctionLess:
		return frag < stored
	case gputypes.CompareFunctionLessEqual:
		return frag <= stored
	case gputypes.CompareFunctionEqual:
		return frag == stored
	case gputypes.CompareFunctionGreater:
		return frag > stored
	case gputypes.CompareFunctionGreaterEqual:
		return frag >= stored
	case gputypes.CompareFunctionNotEqual:
		return frag != stored
	default:
		return true
	}
}

// ValidCompare reports whether fn is a comparison Compare understands.
func ValidCompare(fn gputypes.CompareFunction) bool {
	switch fn {
	case gputypes.CompareFunctionNever, gputypes.CompareFunctionLess,
		gputypes.CompareFunctionLessEqual, gputypes.CompareFunctionEqual,
		gputypes.CompareFunctionGreater, gputypes.CompareFunctionGreaterEqual,
		gputypes.CompareFunctionNotEqual, gputypes.CompareFunctionAlways:
		return true
	}
	return false
}

// Matrix converts a column-major constant block matrix. The zero matrix
// stands for the identity so that a zeroed block draws in NDC.
func Matrix(m [16]float32) mgl32.Mat4 {
	if m == ([16]float32{}) {
		return mgl32.Ident4()
	}
	return mgl32.Mat4(m)
}
