// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package fragment

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/gogpu/oit/gpucore"
	"github.com/gogpu/oit/internal/blend"
)

// ErrCorruptList is returned by Verify when a chain does not terminate at
// the sentinel through valid, distinct node indices.
var ErrCorruptList = errors.New("fragment: corrupt linked list")

// LinkedList is a view over a head buffer, a node pool and the pool's
// allocation counter.
//
// Insert may be called concurrently from any number of goroutines.
// Clear, Gather, Composite and Verify must not run concurrently with Insert.
type LinkedList struct {
	// Heads holds one node index per pixel.
	Heads []uint32

	// Nodes holds NodeWords words per node.
	Nodes []uint32

	// Counter is the monotonic node allocator.
	Counter *uint32

	// Capacity bounds the composite walk per pixel.
	Capacity int
}

// NodeCount returns the number of nodes in the pool.
func (l *LinkedList) NodeCount() int {
	return len(l.Nodes) / NodeWords
}

// Clear resets every head to the sentinel.
func (l *LinkedList) Clear() {
	for i := range l.Heads {
		l.Heads[i] = Sentinel
	}
}

// Insert allocates a node for f and prepends it to pixel's list. It returns
// false when the pool is exhausted; the fragment is then dropped and no
// memory outside the pool is touched.
func (l *LinkedList) Insert(pixel int, f Fragment) bool {
	idx := atomic.AddUint32(l.Counter, 1) - 1
	if uint64(idx) >= uint64(l.NodeCount()) {
		return false
	}

	node := l.Nodes[int(idx)*NodeWords : int(idx+1)*NodeWords]
	node[nodeR] = bits(f.Color.R)
	node[nodeG] = bits(f.Color.G)
	node[nodeB] = bits(f.Color.B)
	node[nodeA] = bits(f.Color.A)
	node[nodeDepth] = bits(f.Depth)

	head := &l.Heads[pixel]
	for {
		old := atomic.LoadUint32(head)
		node[nodeNext] = old
		if atomic.CompareAndSwapUint32(head, old, idx) {
			return true
		}
	}
}

// Node decodes node idx.
func (l *LinkedList) Node(idx uint32) (f Fragment, next uint32) {
	node := l.Nodes[int(idx)*NodeWords : int(idx+1)*NodeWords]
	return Fragment{
		Color: colorFromWords(node[nodeR], node[nodeG], node[nodeB], node[nodeA]),
		Depth: f32(node[nodeDepth]),
	}, node[nodeNext]
}

// Gather appends up to Capacity fragments of pixel's chain to dst, most
// recently inserted first. truncated reports whether the chain continued
// past the walk bound.
func (l *LinkedList) Gather(pixel int, dst []blend.Layer) (layers []blend.Layer, truncated bool) {
	n := uint32(l.NodeCount())
	idx := l.Heads[pixel]
	for walked := 0; idx != Sentinel; walked++ {
		if walked == l.Capacity || idx >= n {
			return dst, true
		}
		f, next := l.Node(idx)
		dst = append(dst, blend.Layer{Color: f.Color, Depth: f.Depth})
		idx = next
	}
	return dst, false
}

// Composite gathers pixel's fragments, insertion-sorts them back to front
// and composites them over dst. scratch is reused between calls to avoid
// allocation and may be nil.
func (l *LinkedList) Composite(pixel int, dst gpucore.Color, scratch []blend.Layer) (out gpucore.Color, truncated bool, buf []blend.Layer) {
	layers, truncated := l.Gather(pixel, scratch[:0])
	InsertionSortBackToFront(layers)
	return blend.CompositeBackToFront(layers, dst), truncated, layers
}

// Chain returns the node indices of pixel's list, head first.
func (l *LinkedList) Chain(pixel int) ([]uint32, error) {
	n := uint32(l.NodeCount())
	var chain []uint32
	for idx := l.Heads[pixel]; idx != Sentinel; {
		if idx >= n {
			return chain, fmt.Errorf("%w: pixel %d links to node %d of %d", ErrCorruptList, pixel, idx, n)
		}
		if len(chain) > int(n) {
			return chain, fmt.Errorf("%w: pixel %d has a cycle", ErrCorruptList, pixel)
		}
		chain = append(chain, idx)
		_, idx = l.Node(idx)
	}
	return chain, nil
}

// Verify checks that every chain terminates at the sentinel, that no node
// belongs to two chains, and that every allocated node is reachable.
func (l *LinkedList) Verify() error {
	allocated := min(uint64(atomic.LoadUint32(l.Counter)), uint64(l.NodeCount()))
	seen := make(map[uint32]int, allocated)
	for pixel := range l.Heads {
		chain, err := l.Chain(pixel)
		if err != nil {
			return err
		}
		for _, idx := range chain {
			if other, dup := seen[idx]; dup {
				return fmt.Errorf("%w: node %d in pixels %d and %d", ErrCorruptList, idx, other, pixel)
			}
			seen[idx] = pixel
		}
	}
	if uint64(len(seen)) != allocated {
		return fmt.Errorf("%w: %d nodes allocated, %d reachable", ErrCorruptList, allocated, len(seen))
	}
	return nil
}

// InsertionSortBackToFront sorts layers farthest first in place. Equal
// depths keep their relative order.
func InsertionSortBackToFront(layers []blend.Layer) {
	for i := 1; i < len(layers); i++ {
		l := layers[i]
		j := i - 1
		for ; j >= 0 && layers[j].Depth < l.Depth; j-- {
			layers[j+1] = layers[j]
		}
		layers[j+1] = l
	}
}
