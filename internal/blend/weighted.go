// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package blend

import (
	"github.com/chewxy/math32"

	"github.com/gogpu/oit/gpucore"
)

// Weighted blended OIT constants.
const (
	// WeightMin and WeightMax clamp the per-fragment weight.
	WeightMin = 1e-2
	WeightMax = 3e3

	// ResolveEpsilon guards the accumulation divide.
	ResolveEpsilon = 1e-5
)

// Weight returns the depth and alpha weight of a fragment, z being the
// window-space depth in [0, 1]:
//
//	w = clamp(a * max(1e-2, 3e3 * (1-z)^3), 1e-2, 3e3)
func Weight(z, alpha float32) float32 {
	d := 1 - Clamp01(z)
	w := alpha * math32.Max(WeightMin, WeightMax*d*d*d)
	return math32.Min(math32.Max(w, WeightMin), WeightMax)
}

// Accumulate returns the contributions of a premultiplied fragment to the
// accumulation target (added) and to the revealage target (the factor the
// stored revealage is multiplied by).
func Accumulate(c gpucore.Color, z float32) (accum gpucore.Color, revealFactor float32) {
	w := Weight(z, c.A)
	return gpucore.Color{R: c.R * w, G: c.G * w, B: c.B * w, A: c.A * w}, 1 - c.A
}

// Resolve reconstructs the translucent layer from accumulation and revealage
// and composites it over dst:
//
//	avg   = accum.rgb / max(accum.a, eps)
//	alpha = 1 - revealage
//	out   = avg*alpha + dst*(1-alpha)
//
// For a single fragment this reduces to the fragment composited over dst.
func Resolve(accum gpucore.Color, revealage float32, dst gpucore.Color) gpucore.Color {
	return Over(Reconstruct(accum, revealage), dst)
}

// Reconstruct returns the premultiplied translucent layer encoded by
// accumulation and revealage.
func Reconstruct(accum gpucore.Color, revealage float32) gpucore.Color {
	alpha := 1 - revealage
	inv := alpha / math32.Max(accum.A, ResolveEpsilon)
	return gpucore.Color{R: accum.R * inv, G: accum.G * inv, B: accum.B * inv, A: alpha}
}
