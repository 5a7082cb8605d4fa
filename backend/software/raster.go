// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/oit/internal/raster"
)

// rasterFrag is one covered pixel of one triangle.
type rasterFrag = raster.Frag

// rasterize returns the fragments of every triangle of m in primitive order.
func rasterize(m *mesh, world, viewProj mgl32.Mat4, cull gputypes.CullMode, width, height int) []rasterFrag {
	return raster.NewRasterizer(width, height).Rasterize(m.vertices, m.indices, world, viewProj, cull)
}
