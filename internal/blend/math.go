// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package blend

import (
	"github.com/chewxy/math32"

	"github.com/gogpu/oit/gpucore"
)

// Clamp01 clamps v to [0, 1]. NaN maps to 0.
func Clamp01(v float32) float32 {
	if !(v > 0) {
		return 0
	}
	return math32.Min(v, 1)
}

// Quantize8 rounds v to the nearest value representable by an 8-bit
// normalized channel.
func Quantize8(v float32) float32 {
	return math32.Round(Clamp01(v)*255) / 255
}

// ToRGBA8 converts a premultiplied color to 8-bit premultiplied channels,
// as stored by image.RGBA.
func ToRGBA8(c gpucore.Color) (r, g, b, a uint8) {
	return to8(c.R), to8(c.G), to8(c.B), to8(c.A)
}

func to8(v float32) uint8 {
	return uint8(math32.Round(Clamp01(v) * 255))
}

// ApproxEqual reports whether every channel of a and b differs by at most tol.
func ApproxEqual(a, b gpucore.Color, tol float32) bool {
	return math32.Abs(a.R-b.R) <= tol &&
		math32.Abs(a.G-b.G) <= tol &&
		math32.Abs(a.B-b.B) <= tol &&
		math32.Abs(a.A-b.A) <= tol
}
