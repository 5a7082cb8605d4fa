// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package blend

import (
	"sort"

	"github.com/gogpu/oit/gpucore"
)

// Layer is one translucent surface covering a pixel.
type Layer struct {
	Color gpucore.Color
	Depth float32
}

// SortBackToFront orders layers farthest first. Equal depths keep their
// relative order.
func SortBackToFront(layers []Layer) {
	sort.SliceStable(layers, func(i, j int) bool {
		return layers[i].Depth > layers[j].Depth
	})
}

// CompositeBackToFront composites layers, already sorted farthest first,
// over dst.
func CompositeBackToFront(layers []Layer, dst gpucore.Color) gpucore.Color {
	for _, l := range layers {
		dst = Over(l.Color, dst)
	}
	return dst
}

// CompositeFrontToBack composites layers, sorted nearest first, under each
// other and the result over dst. It equals CompositeBackToFront on the
// reversed slice up to rounding.
func CompositeFrontToBack(layers []Layer, dst gpucore.Color) gpucore.Color {
	var accum gpucore.Color
	for _, l := range layers {
		accum = Under(l.Color, accum)
	}
	return Over(accum, dst)
}

// Reference returns the exact sorted composite of layers over dst. The
// input slice is not modified.
func Reference(layers []Layer, dst gpucore.Color) gpucore.Color {
	sorted := append([]Layer(nil), layers...)
	SortBackToFront(sorted)
	return CompositeBackToFront(sorted, dst)
}
