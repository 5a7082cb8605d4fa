// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package fragment defines the GPU-resident per-pixel fragment stores of the
// linked-list and MLAB techniques.
//
// Both stores live in structured resources made of 32-bit words. The types
// in this package are views over those words: the software backend runs its
// kernels through them, and tests use them to check the invariants of the
// memory a backend hands back. The linked list keeps the arena+index shape
// of the GPU structure: nodes are addressed by index into one pool and
// linked by index, never by pointer.
package fragment

import (
	"fmt"
	"math"

	"github.com/gogpu/oit/gpucore"
)

// Sentinel marks an empty head or the end of a chain.
const Sentinel = ^uint32(0)

// Word layout of a linked-list node: premultiplied color, depth, next index.
const (
	nodeR = iota
	nodeG
	nodeB
	nodeA
	nodeDepth
	nodeNext

	// NodeWords is the stride of a node in words.
	NodeWords
)

// Word layout of an MLAB entry: premultiplied color, transmission, depth.
const (
	entryR = iota
	entryG
	entryB
	entryT
	entryDepth

	// EntryWords is the stride of an entry in words.
	EntryWords
)

// Mask values of an MLAB pixel.
const (
	MaskTouched   uint32 = 0
	MaskUntouched uint32 = 1
)

// Fragment is one covered pixel's shaded result.
type Fragment struct {
	Color gpucore.Color
	Depth float32
}

// Tier is the per-pixel node capacity of a fragment store.
type Tier uint8

// Tiers.
const (
	Tier2 Tier = iota
	Tier4
	Tier32

	tierCount
)

// Tiers lists every tier in cycling order.
var Tiers = []Tier{Tier2, Tier4, Tier32}

var tierNodes = [tierCount]int{Tier2: 2, Tier4: 4, Tier32: 32}

// MaxCapacity is the largest per-pixel capacity of any tier.
const MaxCapacity = 32

// NodesPerPixel returns the capacity of the tier.
func (t Tier) NodesPerPixel() int {
	if t >= tierCount {
		return 0
	}
	return tierNodes[t]
}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool { return t < tierCount }

// Next returns the following tier with wraparound.
func (t Tier) Next() Tier { return (t + 1) % tierCount }

func (t Tier) String() string {
	if !t.Valid() {
		return fmt.Sprintf("Tier(%d)", uint8(t))
	}
	return fmt.Sprintf("%d", tierNodes[t])
}

// TierForNodes returns the tier with the given per-pixel capacity.
func TierForNodes(nodes int) (Tier, bool) {
	for t, n := range tierNodes {
		if n == nodes {
			return Tier(t), true
		}
	}
	return 0, false
}

func f32(w uint32) float32 { return math.Float32frombits(w) }

func bits(f float32) uint32 { return math.Float32bits(f) }
