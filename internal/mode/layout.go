// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package mode

import (
	"fmt"
	"image"
	"strings"
)

// MaxQuadrants is the number of quadrants of the 4-way layout.
const MaxQuadrants = 4

// Layout is the split-screen arrangement of quadrants.
type Layout uint8

// Layouts, in cycling order.
const (
	LayoutSingle Layout = iota
	LayoutSplit2
	LayoutSplit4

	layoutCount
)

var layoutNames = [layoutCount]string{
	LayoutSingle: "single",
	LayoutSplit2: "2-way",
	LayoutSplit4: "4-way",
}

func (l Layout) String() string {
	if l < layoutCount {
		return layoutNames[l]
	}
	return fmt.Sprintf("Layout(%d)", uint8(l))
}

// ParseLayout returns the layout named s, ignoring case.
func ParseLayout(s string) (Layout, error) {
	for l, name := range layoutNames {
		if strings.EqualFold(name, s) {
			return Layout(l), nil
		}
	}
	return 0, enumError("layout", s)
}

// Valid reports whether l is a known layout.
func (l Layout) Valid() bool { return l < layoutCount }

// Next returns the following layout, wrapping around.
func (l Layout) Next() Layout { return Layout(wrap(int(l)+1, int(layoutCount))) }

// Quadrants returns the number of active quadrants.
func (l Layout) Quadrants() int {
	switch l {
	case LayoutSplit2:
		return 2
	case LayoutSplit4:
		return 4
	default:
		return 1
	}
}

// Rect returns the screen rectangle of quadrant q in a window of the
// given size. Quadrants outside the layout have an empty rectangle.
//
// In the 2-way layout quadrant 0 is the left half; in the 4-way layout
// quadrants are numbered row-major from the top-left.
func (l Layout) Rect(q, width, height int) image.Rectangle {
	if q < 0 || q >= l.Quadrants() {
		return image.Rectangle{}
	}
	hw, hh := width/2, height/2
	switch l {
	case LayoutSplit2:
		if q == 0 {
			return image.Rect(0, 0, hw, height)
		}
		return image.Rect(hw, 0, width, height)
	case LayoutSplit4:
		x0, x1 := 0, hw
		if q%2 == 1 {
			x0, x1 = hw, width
		}
		y0, y1 := 0, hh
		if q >= 2 {
			y0, y1 = hh, height
		}
		return image.Rect(x0, y0, x1, y1)
	default:
		return image.Rect(0, 0, width, height)
	}
}
