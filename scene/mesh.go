// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package scene

import "github.com/gogpu/oit/gpucore"

// Quad returns a unit square in the XY plane centred at the origin, facing
// +Z with counter-clockwise winding.
func Quad() *gpucore.MeshDesc {
	return &gpucore.MeshDesc{
		Vertices: []gpucore.Vertex{
			{Pos: [3]float32{-0.5, -0.5, 0}, UV: [2]float32{0, 1}},
			{Pos: [3]float32{0.5, -0.5, 0}, UV: [2]float32{1, 1}},
			{Pos: [3]float32{0.5, 0.5, 0}, UV: [2]float32{1, 0}},
			{Pos: [3]float32{-0.5, 0.5, 0}, UV: [2]float32{0, 0}},
		},
		Indices: []uint32{0, 1, 2, 0, 2, 3},
	}
}

// cubeFaces lists, per face, the outward normal axis and sign plus the two
// in-plane axes ordered so that (u x v) points outward.
var cubeFaces = [6]struct {
	axis, u, v int
	sign       float32
}{
	{axis: 2, u: 0, v: 1, sign: 1},  // +Z
	{axis: 2, u: 1, v: 0, sign: -1}, // -Z
	{axis: 0, u: 1, v: 2, sign: 1},  // +X
	{axis: 0, u: 2, v: 1, sign: -1}, // -X
	{axis: 1, u: 2, v: 0, sign: 1},  // +Y
	{axis: 1, u: 0, v: 2, sign: -1}, // -Y
}

// Cube returns a unit cube centred at the origin with outward-facing
// counter-clockwise triangles.
func Cube() *gpucore.MeshDesc {
	d := &gpucore.MeshDesc{
		Vertices: make([]gpucore.Vertex, 0, 24),
		Indices:  make([]uint32, 0, 36),
	}
	corners := [4][2]float32{{-0.5, -0.5}, {0.5, -0.5}, {0.5, 0.5}, {-0.5, 0.5}}
	uvs := [4][2]float32{{0, 1}, {1, 1}, {1, 0}, {0, 0}}
	for _, f := range cubeFaces {
		base := uint32(len(d.Vertices))
		for i, c := range corners {
			var p [3]float32
			p[f.axis] = 0.5 * f.sign
			p[f.u] = c[0]
			p[f.v] = c[1]
			d.Vertices = append(d.Vertices, gpucore.Vertex{Pos: p, UV: uvs[i]})
		}
		d.Indices = append(d.Indices, base, base+1, base+2, base, base+2, base+3)
	}
	return d
}
