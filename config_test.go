// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package oit

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/oit/internal/fragment"
	"github.com/gogpu/oit/internal/mode"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}
	if cfg.PeelCount != 2 {
		t.Errorf("PeelCount = %d, want 2", cfg.PeelCount)
	}
	if !cfg.Textured || !cfg.DepthTest || cfg.Immediate {
		t.Errorf("toggles = %v %v %v, want true true false", cfg.Textured, cfg.DepthTest, cfg.Immediate)
	}
}

func TestParseConfig(t *testing.T) {
	data := []byte(`
width = 64
height = 48
peel_count = 4
layout = "4-way"
backend = "software"

[camera]
eye = [0.0, 1.0, 6.0]

[[quadrant]]
quadrant = 2
family = "alphablending"
sub = "cpusorted"

[[quadrant]]
quadrant = 3
family = "OIT"
sub = "LinkedList"
nodes = 32
`)
	cfg, err := ParseConfig(data)
	if err != nil {
		t.Fatalf("ParseConfig() = %v", err)
	}
	if cfg.Width != 64 || cfg.Height != 48 {
		t.Errorf("size = %dx%d, want 64x48", cfg.Width, cfg.Height)
	}
	if cfg.PeelCount != 4 {
		t.Errorf("PeelCount = %d, want 4", cfg.PeelCount)
	}
	if cfg.Camera.Eye != [3]float32{0, 1, 6} {
		t.Errorf("Camera.Eye = %v, want [0 1 6]", cfg.Camera.Eye)
	}
	// Keys the file leaves out keep their defaults.
	if cfg.Camera.FovY != DefaultConfig().Camera.FovY {
		t.Errorf("Camera.FovY = %v, want default %v", cfg.Camera.FovY, DefaultConfig().Camera.FovY)
	}
	if len(cfg.Quadrants) != 2 {
		t.Fatalf("len(Quadrants) = %d, want 2", len(cfg.Quadrants))
	}

	d := mode.NewDispatcher()
	for _, q := range cfg.Quadrants {
		if err := q.apply(d); err != nil {
			t.Fatalf("apply(%+v) = %v", q, err)
		}
	}
	s, _ := d.State(1)
	if got, _ := s.Mode().Technique(); got != mode.TechniqueCPUSorted {
		t.Errorf("quadrant 2 technique = %v, want CPUSorted", got)
	}
	s, _ = d.State(2)
	if got, _ := s.Mode().Technique(); got != mode.TechniqueLinkedList {
		t.Errorf("quadrant 3 technique = %v, want LinkedList", got)
	}
	if s.Tier() != fragment.Tier32 {
		t.Errorf("quadrant 3 tier = %v, want Tier32", s.Tier())
	}
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		enum bool
	}{
		{"unknown key", "colour = 1\n", false},
		{"zero width", "width = 0\n", false},
		{"peel count", "peel_count = 65\n", false},
		{"layout", "layout = \"3-way\"\n", true},
		{"camera", "[camera]\nnear = 0.0\n", false},
		{"quadrant", "[[quadrant]]\nquadrant = 5\nfamily = \"OIT\"\nsub = \"MLAB\"\n", true},
		{"family", "[[quadrant]]\nquadrant = 1\nfamily = \"Raytracing\"\nsub = \"MLAB\"\n", true},
		{"sub-mode", "[[quadrant]]\nquadrant = 1\nfamily = \"OIT\"\nsub = \"Greater\"\n", true},
		{"tier", "[[quadrant]]\nquadrant = 1\nfamily = \"OIT\"\nsub = \"MLAB\"\nnodes = 8\n", true},
		{"syntax", "width = \n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.data))
			if err == nil {
				t.Fatal("ParseConfig() = nil, want error")
			}
			if got := errors.Is(err, ErrInvalidEnum); got != tt.enum {
				t.Errorf("errors.Is(%v, ErrInvalidEnum) = %v, want %v", err, got, tt.enum)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oit.toml")
	if err := os.WriteFile(path, []byte("peel_count = 7\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() = %v", err)
	}
	if cfg.PeelCount != 7 {
		t.Errorf("PeelCount = %d, want 7", cfg.PeelCount)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("LoadConfig(missing) = %v, want os.ErrNotExist", err)
	}
}

func TestTierOf(t *testing.T) {
	tests := []struct {
		nodes int
		want  fragment.Tier
		ok    bool
	}{
		{0, fragment.Tier2, true},
		{2, fragment.Tier2, true},
		{4, fragment.Tier4, true},
		{32, fragment.Tier32, true},
		{3, 0, false},
		{-1, 0, false},
	}
	for _, tt := range tests {
		got, err := tierOf(tt.nodes)
		if (err == nil) != tt.ok {
			t.Errorf("tierOf(%d) error = %v, want ok=%v", tt.nodes, err, tt.ok)
			continue
		}
		if tt.ok && got != tt.want {
			t.Errorf("tierOf(%d) = %v, want %v", tt.nodes, got, tt.want)
		}
	}
}
