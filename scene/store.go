// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package scene

import (
	"errors"
	"fmt"

	"github.com/gogpu/oit/gpucore"
)

// ErrUnknownScene is returned when selecting a scene name that was not loaded.
var ErrUnknownScene = errors.New("scene: unknown scene")

// Store holds every loaded scene and the active one.
type Store struct {
	scenes []*Scene
	byName map[string]int
	active int
}

// NewStore returns a store over scenes. The first scene is active.
func NewStore(scenes ...*Scene) (*Store, error) {
	if len(scenes) == 0 {
		return nil, errors.New("scene: no scenes")
	}
	s := &Store{scenes: scenes, byName: make(map[string]int, len(scenes))}
	for i, sc := range scenes {
		if _, dup := s.byName[sc.Name]; dup {
			return nil, fmt.Errorf("scene: duplicate scene name %q", sc.Name)
		}
		s.byName[sc.Name] = i
	}
	return s, nil
}

// Len returns the number of scenes.
func (s *Store) Len() int { return len(s.scenes) }

// Names returns the scene names in load order.
func (s *Store) Names() []string {
	names := make([]string, len(s.scenes))
	for i, sc := range s.scenes {
		names[i] = sc.Name
	}
	return names
}

// Active returns the active scene.
func (s *Store) Active() *Scene { return s.scenes[s.active] }

// ActiveIndex returns the load-order index of the active scene.
func (s *Store) ActiveIndex() int { return s.active }

// Scene returns the scene with the given name.
func (s *Store) Scene(name string) (*Scene, error) {
	i, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownScene, name)
	}
	return s.scenes[i], nil
}

// Select makes the named scene active.
func (s *Store) Select(name string) error {
	i, ok := s.byName[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownScene, name)
	}
	s.active = i
	return nil
}

// SelectIndex makes the scene at load-order index i active, wrapping around.
func (s *Store) SelectIndex(i int) {
	n := len(s.scenes)
	s.active = ((i % n) + n) % n
}

// Upload creates the mesh of every object.
func (s *Store) Upload(b gpucore.Backend) error {
	for _, sc := range s.scenes {
		for _, o := range sc.Objects() {
			if o.Mesh != gpucore.InvalidID {
				continue
			}
			id, err := b.CreateMesh(o.MeshDesc())
			if err != nil {
				return fmt.Errorf("scene %q: upload %q: %w", sc.Name, o.Label, err)
			}
			o.Mesh = id
		}
	}
	return nil
}

// Release destroys every uploaded mesh.
func (s *Store) Release(b gpucore.Backend) {
	for _, sc := range s.scenes {
		for _, o := range sc.Objects() {
			if o.Mesh != gpucore.InvalidID {
				b.DestroyMesh(o.Mesh)
				o.Mesh = gpucore.InvalidID
			}
		}
	}
}
