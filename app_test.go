// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package oit

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/oit/backend"
	"github.com/gogpu/oit/backend/software"
	"github.com/gogpu/oit/gpucore"
	"github.com/gogpu/oit/internal/mode"
)

// testConfig returns a small software configuration.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 32, 24
	cfg.Backend = "software"
	cfg.Workers = 1
	return cfg
}

func newTestbed(t *testing.T, edit func(*Config)) *Testbed {
	t.Helper()
	cfg := testConfig()
	if edit != nil {
		edit(&cfg)
	}
	tb, err := New(WithConfig(cfg))
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	t.Cleanup(tb.Close)
	return tb
}

func mustMode(t *testing.T, family, sub string) Mode {
	t.Helper()
	m, err := ParseMode(family, sub)
	if err != nil {
		t.Fatalf("ParseMode(%q, %q) = %v", family, sub, err)
	}
	return m
}

func TestNewDefaults(t *testing.T) {
	tb := newTestbed(t, nil)

	if got := tb.Backend().Name(); got != "software" {
		t.Errorf("Backend().Name() = %q, want software", got)
	}
	want := []string{"TwoQuads", "MultipleQuads", "Interpenetrating", "Billboards"}
	if got := tb.Scenes(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Scenes() = %v, want %v", got, want)
	}
	if got := tb.Scene().Name; got != "TwoQuads" {
		t.Errorf("Scene() = %q, want TwoQuads", got)
	}
	if tb.Layout() != mode.LayoutSingle || tb.Active() != 1 {
		t.Errorf("layout = %v with %d quadrants, want single with 1", tb.Layout(), tb.Active())
	}
	if tb.PeelCount() != 2 {
		t.Errorf("PeelCount() = %d, want 2", tb.PeelCount())
	}
	for q := range MaxQuadrants {
		info, err := tb.Quadrant(q)
		if err != nil {
			t.Fatalf("Quadrant(%d) = %v", q, err)
		}
		if info.Mode != mode.DefaultMode(q) || info.Nodes != 2 {
			t.Errorf("Quadrant(%d) = %+v, want %v with 2 nodes", q, info, mode.DefaultMode(q))
		}
	}
}

func TestNewErrors(t *testing.T) {
	tests := []struct {
		name string
		edit func(*Config)
		enum bool
	}{
		{"unknown scene", func(c *Config) { c.Scene = "Nope" }, true},
		{"unknown backend", func(c *Config) { c.Backend = "no-such-backend" }, false},
		{"bad layout", func(c *Config) { c.Layout = "8-way" }, true},
		{"bad size", func(c *Config) { c.Width = 0 }, false},
		{"missing scene file", func(c *Config) { c.Scenes = "testdata/missing.xml" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.edit(&cfg)
			tb, err := New(WithConfig(cfg))
			if err == nil {
				tb.Close()
				t.Fatal("New() = nil error")
			}
			if got := errors.Is(err, ErrInvalidEnum); got != tt.enum {
				t.Errorf("errors.Is(%v, ErrInvalidEnum) = %v, want %v", err, got, tt.enum)
			}
		})
	}
}

func TestRenderFrameSnapshot(t *testing.T) {
	tb := newTestbed(t, nil)
	if err := tb.RenderFrame(); err != nil {
		t.Fatalf("RenderFrame() = %v", err)
	}
	if tb.Frames() != 1 {
		t.Errorf("Frames() = %d, want 1", tb.Frames())
	}
	img, err := tb.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() = %v", err)
	}
	if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 24 {
		t.Errorf("Snapshot bounds = %v, want 32x24", b)
	}
	st, _ := tb.Stats(0)
	if st.Technique != mode.TechniqueDepthPeeling || st.Passes != 2 {
		t.Errorf("Stats(0) = %+v, want DepthPeeling with 2 passes", st)
	}
	for q := 1; q < MaxQuadrants; q++ {
		if st, _ := tb.Stats(q); st != (Stats{}) {
			t.Errorf("Stats(%d) = %+v for an inactive quadrant, want zero", q, st)
		}
	}
	if _, err := tb.Stats(MaxQuadrants); !errors.Is(err, ErrInvalidEnum) {
		t.Errorf("Stats(%d) = %v, want ErrInvalidEnum", MaxQuadrants, err)
	}
}

// TestEveryModeOnEveryScene renders each of the eleven techniques on every
// built-in scene in both depth test settings.
func TestEveryModeOnEveryScene(t *testing.T) {
	tb := newTestbed(t, func(c *Config) { c.Width, c.Height = 16, 12 })
	for _, name := range tb.Scenes() {
		if err := tb.SelectScene(name); err != nil {
			t.Fatal(err)
		}
		for f := range mode.FamilyCount {
			family := mode.Family(f)
			for sub := range family.SubModes() {
				m := Mode{Family: family, Sub: sub}
				if err := tb.SetMode(0, m); err != nil {
					t.Fatal(err)
				}
				for _, z := range []bool{true, false} {
					tb.dispatch.SetToggles(true, z, false)
					if err := tb.RenderFrame(); err != nil {
						t.Errorf("%s %v depth test %v: RenderFrame() = %v", name, m, z, err)
					}
				}
			}
		}
	}
}

func TestTwoQuadsLinkedListMatchesCPUSorted(t *testing.T) {
	tb := newTestbed(t, func(c *Config) {
		c.Layout = "2-way"
		c.Quadrants = []QuadrantConfig{
			{Quadrant: 1, Family: "AlphaBlending", Sub: "CPUSorted"},
			{Quadrant: 2, Family: "OIT", Sub: "LinkedList", Nodes: 2},
		}
	})
	if err := tb.RenderFrame(); err != nil {
		t.Fatalf("RenderFrame() = %v", err)
	}
	sorted, err := tb.QuadrantPixels(0)
	if err != nil {
		t.Fatal(err)
	}
	ll, err := tb.QuadrantPixels(1)
	if err != nil {
		t.Fatal(err)
	}
	for i := range sorted {
		if !closeColor(sorted[i], ll[i], 1e-6) {
			t.Fatalf("pixel %d: linked list %v, sorted %v", i, ll[i], sorted[i])
		}
	}
	st, _ := tb.Stats(1)
	if st.Dropped != 0 || st.TruncatedPixels != 0 {
		t.Errorf("Stats(1) = %+v, want no drops or truncation", st)
	}
}

func TestMultipleQuadsTruncatesSmallTier(t *testing.T) {
	tb := newTestbed(t, func(c *Config) {
		c.Scene = "MultipleQuads"
		c.Quadrants = []QuadrantConfig{{Quadrant: 1, Family: "OIT", Sub: "LinkedList", Nodes: 2}}
	})
	if err := tb.RenderFrame(); err != nil {
		t.Fatalf("RenderFrame() = %v", err)
	}
	st, _ := tb.Stats(0)
	if st.Fragments == 0 {
		t.Error("Fragments = 0, want fragments offered")
	}
	if st.Dropped != 0 {
		t.Errorf("Dropped = %d, want 0", st.Dropped)
	}
	if st.TruncatedPixels == 0 {
		t.Error("TruncatedPixels = 0, want pixels with more than 2 layers")
	}

	if _, err := tb.Exec("Tier Quadrant=1 Nodes=32"); err != nil {
		t.Fatal(err)
	}
	if err := tb.RenderFrame(); err != nil {
		t.Fatalf("RenderFrame() = %v", err)
	}
	if st, _ := tb.Stats(0); st.TruncatedPixels != 0 {
		t.Errorf("TruncatedPixels at 32 nodes = %d, want 0", st.TruncatedPixels)
	}
}

func TestScreenPassCropsQuadrants(t *testing.T) {
	tb := newTestbed(t, func(c *Config) {
		c.Layout = "4-way"
		c.Quadrants = []QuadrantConfig{
			{Quadrant: 1, Family: "DepthTest", Sub: "Less"},
			{Quadrant: 2, Family: "AlphaBlending", Sub: "WorstCase"},
			{Quadrant: 3, Family: "OIT", Sub: "WeightedBlended"},
			{Quadrant: 4, Family: "UAVWrites", Sub: "WithROV"},
		}
	})
	if err := tb.RenderFrame(); err != nil {
		t.Fatalf("RenderFrame() = %v", err)
	}
	img, err := tb.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	w, h := tb.Backend().Size()
	for q := range MaxQuadrants {
		px, err := tb.QuadrantPixels(q)
		if err != nil {
			t.Fatal(err)
		}
		r := tb.Layout().Rect(q, w, h)
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				want := toRGBA(px[y*w+x])
				if got := img.RGBAAt(x, y); got != want {
					t.Fatalf("quadrant %d pixel (%d,%d) = %v, want %v", q+1, x, y, got, want)
				}
			}
		}
	}
}

func TestHandleKey(t *testing.T) {
	tb := newTestbed(t, nil)

	act, err := tb.HandleKey(KeyQuadrant3)
	if err != nil || act != mode.ActionIgnored {
		t.Errorf("HandleKey(3) in single layout = %v, %v; want ignored", act, err)
	}
	if tb.Control() != 0 {
		t.Errorf("Control() = %d, want 0", tb.Control())
	}

	if err := tb.HandleKeys(KeyUp); err != nil {
		t.Fatal(err)
	}
	if info, _ := tb.Quadrant(0); info.Technique != mode.TechniqueLinkedList {
		t.Errorf("after Up technique = %v, want LinkedList", info.Technique)
	}
	if err := tb.HandleKeys(KeyJ, KeyJ); err != nil {
		t.Fatal(err)
	}
	if info, _ := tb.Quadrant(0); info.Nodes != 32 {
		t.Errorf("after J J nodes = %d, want 32", info.Nodes)
	}
	if err := tb.HandleKeys(KeyN, KeyQuadrant2); err != nil {
		t.Fatal(err)
	}
	if tb.Active() != 2 || tb.Control() != 1 {
		t.Errorf("after N 2: active %d control %d, want 2 and 1", tb.Active(), tb.Control())
	}
}

func TestSceneCyclingWhenLocked(t *testing.T) {
	tb := newTestbed(t, nil)
	before, _ := tb.Quadrant(0)

	steps := []struct {
		key  Key
		want string
	}{
		{KeyRight, "MultipleQuads"},
		{KeyLeft, "TwoQuads"},
		{KeyLeft, "Billboards"},
		{KeyRight, "TwoQuads"},
	}
	if _, err := tb.HandleKey(KeyL); err != nil {
		t.Fatal(err)
	}
	for _, s := range steps {
		if _, err := tb.HandleKey(s.key); err != nil {
			t.Fatal(err)
		}
		if got := tb.Scene().Name; got != s.want {
			t.Errorf("after %v scene = %q, want %q", s.key, got, s.want)
		}
	}
	if after, _ := tb.Quadrant(0); after != before {
		t.Errorf("locked cycling changed the mode: %+v, was %+v", after, before)
	}
}

func TestWithBackend(t *testing.T) {
	dev, err := software.New(backend.DeviceConfig{Width: 16, Height: 8, Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Close()

	tb, err := New(WithBackend(dev))
	if err != nil {
		t.Fatalf("New(WithBackend) = %v", err)
	}
	if c := tb.Config(); c.Width != 16 || c.Height != 8 {
		t.Errorf("Config size = %dx%d, want the device's 16x8", c.Width, c.Height)
	}
	if err := tb.RenderFrame(); err != nil {
		t.Fatalf("RenderFrame() = %v", err)
	}
	tb.Close()

	// The testbed must leave a borrowed device usable.
	if _, err := dev.ReadColor(dev.Backbuffer()); err != nil {
		t.Errorf("device after Close: ReadColor() = %v", err)
	}
}

func TestClose(t *testing.T) {
	tb := newTestbed(t, nil)
	tb.Close()
	tb.Close()

	if err := tb.RenderFrame(); !errors.Is(err, ErrClosed) {
		t.Errorf("RenderFrame() after Close = %v, want ErrClosed", err)
	}
	if _, err := tb.Snapshot(); !errors.Is(err, ErrClosed) {
		t.Errorf("Snapshot() after Close = %v, want ErrClosed", err)
	}
	if _, err := tb.Exec("Help"); !errors.Is(err, ErrClosed) {
		t.Errorf("Exec() after Close = %v, want ErrClosed", err)
	}
	if _, err := tb.HandleKey(KeyN); !errors.Is(err, ErrClosed) {
		t.Errorf("HandleKey() after Close = %v, want ErrClosed", err)
	}
}

func closeColor(a, b gpucore.Color, tol float32) bool {
	d := func(x, y float32) bool { return x-y <= tol && y-x <= tol }
	return d(a.R, b.R) && d(a.G, b.G) && d(a.B, b.B) && d(a.A, b.A)
}
