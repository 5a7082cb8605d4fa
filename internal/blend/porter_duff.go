// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package blend implements the compositing math shared by the OIT techniques.
//
// All operations work on linear float colors with premultiplied alpha. The
// same formulas are executed by the software backend's kernels and mirrored
// by the WGSL programs of the wgpu backend, so they also serve as the
// reference the techniques are tested against.
//
// References:
//   - Porter-Duff: "Compositing Digital Images" (1984)
//   - McGuire, Bavoil: "Weighted Blended Order-Independent Transparency" (2013)
//   - Salvi, Vaidyanathan: "Multi-Layer Alpha Blending" (2014)
package blend

import "github.com/gogpu/oit/gpucore"

// Mode represents a Porter-Duff compositing operation.
type Mode uint8

const (
	ModeClear           Mode = iota // Result: 0
	ModeSource                      // Result: S
	ModeDestination                 // Result: D
	ModeSourceOver                  // Result: S + D*(1-Sa)
	ModeDestinationOver             // Result: S*(1-Da) + D
	ModePlus                        // Result: S + D
	ModeModulate                    // Result: S*D
)

// Func composites src with dst. Both colors are premultiplied.
type Func func(src, dst gpucore.Color) gpucore.Color

// Get returns the compositing function for mode.
// Returns Over for unknown modes.
func Get(mode Mode) Func {
	switch mode {
	case ModeClear:
		return clearColor
	case ModeSource:
		return keepSource
	case ModeDestination:
		return keepDestination
	case ModeSourceOver:
		return Over
	case ModeDestinationOver:
		return Under
	case ModePlus:
		return Plus
	case ModeModulate:
		return Modulate
	default:
		return Over
	}
}

func clearColor(_, _ gpucore.Color) gpucore.Color { return gpucore.Color{} }

func keepSource(src, _ gpucore.Color) gpucore.Color { return src }

func keepDestination(_, dst gpucore.Color) gpucore.Color { return dst }

// Over composites src over dst.
// Formula: S + D*(1-Sa)
func Over(src, dst gpucore.Color) gpucore.Color {
	inv := 1 - src.A
	return gpucore.Color{
		R: src.R + dst.R*inv,
		G: src.G + dst.G*inv,
		B: src.B + dst.B*inv,
		A: src.A + dst.A*inv,
	}
}

// Under composites layer beneath accum, the front-to-back counterpart of
// Over: Under(layer, accum) == Over(accum, layer).
// Formula: S*(1-Da) + D, with S = layer and D = accum.
func Under(layer, accum gpucore.Color) gpucore.Color {
	inv := 1 - accum.A
	return gpucore.Color{
		R: accum.R + layer.R*inv,
		G: accum.G + layer.G*inv,
		B: accum.B + layer.B*inv,
		A: accum.A + layer.A*inv,
	}
}

// Plus adds src and dst without clamping.
func Plus(src, dst gpucore.Color) gpucore.Color {
	return gpucore.Color{R: src.R + dst.R, G: src.G + dst.G, B: src.B + dst.B, A: src.A + dst.A}
}

// Modulate multiplies src and dst channel by channel.
func Modulate(src, dst gpucore.Color) gpucore.Color {
	return gpucore.Color{R: src.R * dst.R, G: src.G * dst.G, B: src.B * dst.B, A: src.A * dst.A}
}

// Premultiply converts a straight-alpha color to premultiplied form.
func Premultiply(r, g, b, a float32) gpucore.Color {
	return gpucore.Color{R: r * a, G: g * a, B: b * a, A: a}
}

// Opaque returns c with alpha forced to 1 and color un-premultiplied.
// Fully transparent colors become opaque black.
func Opaque(c gpucore.Color) gpucore.Color {
	if c.A <= 0 {
		return gpucore.Black
	}
	inv := 1 / c.A
	return gpucore.Color{R: c.R * inv, G: c.G * inv, B: c.B * inv, A: 1}
}

// Scale multiplies every channel by s.
func Scale(c gpucore.Color, s float32) gpucore.Color {
	return gpucore.Color{R: c.R * s, G: c.G * s, B: c.B * s, A: c.A * s}
}
