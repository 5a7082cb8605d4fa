// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package fragment

import (
	"math"

	"github.com/gogpu/oit/gpucore"
)

// Entry is one blended layer of an MLAB pixel.
type Entry struct {
	// Color is premultiplied.
	Color gpucore.Color

	// Transmission is the product of (1 - alpha) of the merged fragments.
	Transmission float32

	Depth float32
}

// emptyEntry composites as a no-op and sorts behind every fragment.
var emptyEntry = Entry{Transmission: 1, Depth: float32(math.Inf(1))}

// MLAB is a view over a per-pixel fixed-capacity array of entries and the
// per-pixel untouched mask.
//
// Insert is not atomic: calls for the same pixel must be serialized in
// submission order, the guarantee rasterizer-ordered execution provides.
// Calls for different pixels may run concurrently.
type MLAB struct {
	// Entries holds Capacity entries of EntryWords words per pixel.
	Entries []uint32

	// Mask holds MaskUntouched or MaskTouched per pixel.
	Mask []uint32

	Capacity int
}

// Reset marks every pixel untouched.
func (m *MLAB) Reset() {
	for i := range m.Mask {
		m.Mask[i] = MaskUntouched
	}
}

func (m *MLAB) entryWords(pixel, i int) []uint32 {
	base := (pixel*m.Capacity + i) * EntryWords
	return m.Entries[base : base+EntryWords]
}

// Entry decodes entry i of pixel.
func (m *MLAB) Entry(pixel, i int) Entry {
	w := m.entryWords(pixel, i)
	return Entry{
		Color:        gpucore.Color{R: f32(w[entryR]), G: f32(w[entryG]), B: f32(w[entryB]), A: 1 - f32(w[entryT])},
		Transmission: f32(w[entryT]),
		Depth:        f32(w[entryDepth]),
	}
}

func (m *MLAB) setEntry(pixel, i int, e Entry) {
	w := m.entryWords(pixel, i)
	w[entryR] = bits(e.Color.R)
	w[entryG] = bits(e.Color.G)
	w[entryB] = bits(e.Color.B)
	w[entryT] = bits(e.Transmission)
	w[entryDepth] = bits(e.Depth)
}

// Insert adds f to pixel's array in depth order, nearest first. When the
// array overflows, the two farthest entries are merged into one, keeping
// the pixel's total transmission exact.
func (m *MLAB) Insert(pixel int, f Fragment) {
	if m.Mask[pixel] == MaskUntouched {
		for i := range m.Capacity {
			m.setEntry(pixel, i, emptyEntry)
		}
		m.Mask[pixel] = MaskTouched
	}

	var buf [MaxCapacity + 1]Entry
	entries := buf[:m.Capacity+1]
	for i := range m.Capacity {
		entries[i] = m.Entry(pixel, i)
	}

	in := Entry{Color: f.Color, Transmission: 1 - f.Color.A, Depth: f.Depth}
	pos := m.Capacity
	for pos > 0 && entries[pos-1].Depth > in.Depth {
		entries[pos] = entries[pos-1]
		pos--
	}
	entries[pos] = in

	last := m.Capacity - 1
	entries[last] = Merge(entries[last], entries[last+1])

	for i := range m.Capacity {
		m.setEntry(pixel, i, entries[i])
	}
}

// Merge combines two adjacent entries, near in front of far, into one
// entry at near's depth.
func Merge(near, far Entry) Entry {
	t := near.Transmission
	return Entry{
		Color: gpucore.Color{
			R: near.Color.R + far.Color.R*t,
			G: near.Color.G + far.Color.G*t,
			B: near.Color.B + far.Color.B*t,
		},
		Transmission: t * far.Transmission,
		Depth:        near.Depth,
	}
}

// Resolve composites pixel's entries back to front over dst and marks the
// pixel untouched. Untouched pixels return dst unchanged.
func (m *MLAB) Resolve(pixel int, dst gpucore.Color) gpucore.Color {
	if m.Mask[pixel] == MaskUntouched {
		return dst
	}
	for i := m.Capacity - 1; i >= 0; i-- {
		e := m.Entry(pixel, i)
		dst = gpucore.Color{
			R: e.Color.R + dst.R*e.Transmission,
			G: e.Color.G + dst.G*e.Transmission,
			B: e.Color.B + dst.B*e.Transmission,
			A: (1 - e.Transmission) + dst.A*e.Transmission,
		}
	}
	m.Mask[pixel] = MaskUntouched
	return dst
}

// Transmission returns the product of the transmissions of pixel's entries.
func (m *MLAB) Transmission(pixel int) float32 {
	if m.Mask[pixel] == MaskUntouched {
		return 1
	}
	t := float32(1)
	for i := range m.Capacity {
		t *= m.Entry(pixel, i).Transmission
	}
	return t
}

func colorFromWords(r, g, b, a uint32) gpucore.Color {
	return gpucore.Color{R: f32(r), G: f32(g), B: f32(b), A: f32(a)}
}
