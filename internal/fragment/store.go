// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package fragment

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/oit/gpucore"
)

// Layout selects the kind of fragment store.
type Layout uint8

// Layouts.
const (
	LayoutLinkedList Layout = iota + 1
	LayoutMLAB
)

func (l Layout) String() string {
	switch l {
	case LayoutLinkedList:
		return "LinkedList"
	case LayoutMLAB:
		return "MLAB"
	default:
		return fmt.Sprintf("Layout(%d)", uint8(l))
	}
}

// Descriptor is the capacity-parameterized description of a fragment store.
type Descriptor struct {
	Layout Layout
	Tier   Tier
	Width  int
	Height int
}

// Pixels returns the pixel count covered by the store.
func (d Descriptor) Pixels() int { return d.Width * d.Height }

// Capacity returns the per-pixel capacity.
func (d Descriptor) Capacity() int { return d.Tier.NodesPerPixel() }

// Configs returns the two resources backing the store: the head buffer and
// node pool of a linked list, or the entry array and mask of an MLAB.
func (d Descriptor) Configs() ([2]gpucore.ResourceConfig, error) {
	if !d.Tier.Valid() {
		return [2]gpucore.ResourceConfig{}, fmt.Errorf("fragment: invalid tier %v", d.Tier)
	}
	pixels := d.Pixels()
	rw := gpucore.BindUnorderedAccess | gpucore.BindShaderResource
	prefix := fmt.Sprintf("%s/%s", d.Layout, d.Tier)

	switch d.Layout {
	case LayoutLinkedList:
		return [2]gpucore.ResourceConfig{
			{
				Label: prefix + "/heads", Kind: gpucore.KindStructured, Bind: rw,
				ElementStride: 4, ElementCount: pixels,
			},
			{
				Label: prefix + "/nodes", Kind: gpucore.KindStructured, Bind: rw,
				ElementStride: NodeWords * 4, ElementCount: pixels * d.Capacity(),
			},
		}, nil
	case LayoutMLAB:
		return [2]gpucore.ResourceConfig{
			{
				Label: prefix + "/entries", Kind: gpucore.KindStructured, Bind: rw,
				ElementStride: EntryWords * 4, ElementCount: pixels * d.Capacity(),
			},
			{
				Label: prefix + "/mask", Kind: gpucore.KindStructured, Bind: rw,
				ElementStride: 4, ElementCount: pixels,
				InitialData: filledWords(pixels, MaskUntouched),
			},
		}, nil
	default:
		return [2]gpucore.ResourceConfig{}, fmt.Errorf("fragment: invalid layout %v", d.Layout)
	}
}

func filledWords(n int, v uint32) []byte {
	b := make([]byte, n*4)
	for i := 0; i < len(b); i += 4 {
		binary.LittleEndian.PutUint32(b[i:], v)
	}
	return b
}

// Store is a created fragment store.
type Store struct {
	Descriptor

	// Primary is the head buffer (linked list) or the entry array (MLAB).
	Primary gpucore.ResourceID

	// Secondary is the node pool (linked list) or the mask (MLAB).
	Secondary gpucore.ResourceID
}

// Factory creates fragment stores on first use and keeps one per
// (layout, tier).
type Factory struct {
	backend gpucore.Backend
	width   int
	height  int
	stores  map[key]*Store
}

type key struct {
	layout Layout
	tier   Tier
}

// NewFactory returns a factory sizing stores to the backend's window.
func NewFactory(backend gpucore.Backend) *Factory {
	w, h := backend.Size()
	return &Factory{backend: backend, width: w, height: h, stores: make(map[key]*Store)}
}

// Get returns the store for layout and tier, creating it if needed.
func (f *Factory) Get(layout Layout, tier Tier) (*Store, error) {
	k := key{layout, tier}
	if s, ok := f.stores[k]; ok {
		return s, nil
	}

	d := Descriptor{Layout: layout, Tier: tier, Width: f.width, Height: f.height}
	cfgs, err := d.Configs()
	if err != nil {
		return nil, err
	}
	s := &Store{Descriptor: d}
	if s.Primary, err = f.backend.CreateResourceFromConfig(&cfgs[0]); err != nil {
		return nil, fmt.Errorf("fragment: create %s: %w", cfgs[0].Label, err)
	}
	if s.Secondary, err = f.backend.CreateResourceFromConfig(&cfgs[1]); err != nil {
		f.backend.DestroyResource(s.Primary)
		return nil, fmt.Errorf("fragment: create %s: %w", cfgs[1].Label, err)
	}
	f.stores[k] = s
	return s, nil
}

// Len returns the number of created stores.
func (f *Factory) Len() int { return len(f.stores) }

// Release destroys every created store.
func (f *Factory) Release() {
	for k, s := range f.stores {
		f.backend.DestroyResource(s.Primary)
		f.backend.DestroyResource(s.Secondary)
		delete(f.stores, k)
	}
}
