// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package scene

// Scene is a named set of opaque and translucent objects.
type Scene struct {
	Name string

	// Opaque and Translucent are in load order.
	Opaque      []*Object
	Translucent []*Object

	// sorted is a permutation of Translucent.
	sorted []*Object
}

// New returns a scene splitting objects by translucency.
func New(name string, objects ...*Object) *Scene {
	s := &Scene{Name: name}
	for _, o := range objects {
		s.Add(o)
	}
	return s
}

// Add appends o to the opaque or translucent list.
func (s *Scene) Add(o *Object) {
	if o.Translucent() {
		s.Translucent = append(s.Translucent, o)
		s.sorted = append(s.sorted, o)
		return
	}
	s.Opaque = append(s.Opaque, o)
}

// Objects returns every object, opaque first.
func (s *Scene) Objects() []*Object {
	all := make([]*Object, 0, len(s.Opaque)+len(s.Translucent))
	all = append(all, s.Opaque...)
	return append(all, s.Translucent...)
}

// Sorted returns the sorted copy of the translucent list, in the order left
// by the last SortBackToFront.
func (s *Scene) Sorted() []*Object {
	return s.sorted
}

// SortBackToFront reorders the sorted copy farthest first by squared
// camera-space distance of each object's center, using a selection sort.
// Ties keep the order of the previous sort.
func (s *Scene) SortBackToFront(cam *Camera) {
	if len(s.sorted) != len(s.Translucent) {
		s.sorted = append(s.sorted[:0], s.Translucent...)
	}

	dist := make([]float32, len(s.sorted))
	for i, o := range s.sorted {
		dist[i] = cam.DistanceSq(o.Center)
	}

	for i := 0; i < len(s.sorted)-1; i++ {
		far := i
		for j := i + 1; j < len(s.sorted); j++ {
			if dist[j] > dist[far] {
				far = j
			}
		}
		if far != i {
			s.sorted[i], s.sorted[far] = s.sorted[far], s.sorted[i]
			dist[i], dist[far] = dist[far], dist[i]
		}
	}
}

// UpdateBillboards turns every billboard towards the camera.
func (s *Scene) UpdateBillboards(cam *Camera) {
	for _, o := range s.Opaque {
		o.FaceCamera(cam)
	}
	for _, o := range s.Translucent {
		o.FaceCamera(cam)
	}
}
