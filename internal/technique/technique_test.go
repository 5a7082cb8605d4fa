// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package technique

import (
	"errors"
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/oit/backend"
	"github.com/gogpu/oit/backend/software"
	"github.com/gogpu/oit/gpucore"
	"github.com/gogpu/oit/internal/blend"
	"github.com/gogpu/oit/internal/fragment"
	"github.com/gogpu/oit/internal/mode"
	"github.com/gogpu/oit/scene"
)

const testSize = 16

var (
	background = gpucore.Color{R: 0.2, G: 0.3, B: 0.4, A: 1}
	red        = gpucore.Color{R: 0.5, A: 0.5}
	green      = gpucore.Color{G: 0.4, A: 0.4}
	blue       = gpucore.Color{B: 0.3, A: 0.3}
	wall       = gpucore.Color{R: 0.9, G: 0.8, B: 0.1, A: 1}
)

func newTestResources(t *testing.T) *Resources {
	t.Helper()
	d, err := software.New(backend.DeviceConfig{Width: testSize, Height: testSize, Workers: 2})
	if err != nil {
		t.Fatalf("software.New: %v", err)
	}
	t.Cleanup(d.Close)
	res, err := NewResources(d)
	if err != nil {
		t.Fatalf("NewResources: %v", err)
	}
	t.Cleanup(res.Close)
	return res
}

func fullQuad(label string, c gpucore.Color, z float32) *scene.Object {
	return scene.NewObject(label, scene.MeshQuad, c,
		mgl32.Vec3{0, 0, z}, mgl32.Vec3{20, 20, 1}, mgl32.Vec3{})
}

// layeredScene covers every pixel with a backdrop and three translucent
// layers listed out of depth order: red at z 0, green at z -1, blue at z 1.
func layeredScene() *scene.Scene {
	return scene.New("layers",
		fullQuad("backdrop", background, -3),
		fullQuad("red", red, 0),
		fullQuad("green", green, -1),
		fullQuad("blue", blue, 1),
	)
}

// sortedReference is the back-to-front composite of layeredScene.
func sortedReference() gpucore.Color {
	return blend.Over(blue, blend.Over(red, blend.Over(green, background)))
}

// occludedScene puts a small opaque wall in front of a translucent layer
// in the middle of the window.
func occludedScene() *scene.Scene {
	return scene.New("occluded",
		fullQuad("backdrop", background, -3),
		scene.NewObject("wall", scene.MeshQuad, wall,
			mgl32.Vec3{0, 0, 0.5}, mgl32.Vec3{1, 1, 1}, mgl32.Vec3{}),
		fullQuad("behind", red, -1),
	)
}

func render(t *testing.T, res *Resources, tech mode.Technique, p Pass, sc *scene.Scene) ([]gpucore.Color, Stats) {
	t.Helper()
	cam := scene.DefaultCamera(1)
	if err := OpaquePass(res, p, sc, cam, background); err != nil {
		t.Fatalf("OpaquePass: %v", err)
	}
	e, err := New(tech)
	if err != nil {
		t.Fatalf("New(%v): %v", tech, err)
	}
	st, err := Run(e, res, p, sc, cam)
	if err != nil {
		t.Fatalf("Run(%v): %v", tech, err)
	}
	target, _ := res.Quadrant(p.Quadrant)
	px, err := res.Backend().ReadColor(target.Color)
	if err != nil {
		t.Fatalf("ReadColor: %v", err)
	}
	return px, st
}

func closeColor(a, b gpucore.Color, tol float32) bool {
	return math32.Abs(a.R-b.R) <= tol && math32.Abs(a.G-b.G) <= tol &&
		math32.Abs(a.B-b.B) <= tol && math32.Abs(a.A-b.A) <= tol
}

func checkAll(t *testing.T, name string, px []gpucore.Color, want gpucore.Color, tol float32) {
	t.Helper()
	for i, got := range px {
		if !closeColor(got, want, tol) {
			t.Errorf("%s: pixel %d = %+v, want %+v", name, i, got, want)
			return
		}
	}
}

func defaultPass() Pass {
	return Pass{Tier: fragment.Tier4, Textured: true, DepthTest: true}
}

func TestOpaqueOcclusion(t *testing.T) {
	center := testSize/2*testSize + testSize/2
	for _, tech := range []mode.Technique{
		mode.TechniqueDepthLess,
		mode.TechniqueWorstCase,
		mode.TechniqueCPUSorted,
		mode.TechniqueDepthPeeling,
		mode.TechniqueLinkedList,
		mode.TechniqueWeightedBlended,
		mode.TechniqueMLAB,
		mode.TechniqueVirtualPixelMaps,
		mode.TechniqueUAVWithoutROV,
		mode.TechniqueUAVWithROV,
	} {
		t.Run(tech.String(), func(t *testing.T) {
			res := newTestResources(t)
			px, _ := render(t, res, tech, defaultPass(), occludedScene())
			if got := px[center]; got != wall {
				t.Errorf("center = %+v, want the wall %+v", got, wall)
			}
			want := blend.Over(red, background)
			if tech == mode.TechniqueDepthLess {
				want = blend.Opaque(red)
			}
			if got := px[0]; !closeColor(got, want, 2e-3) {
				t.Errorf("corner = %+v, want %+v", got, want)
			}
		})
	}
}

func TestSortingTechniquesMatchReference(t *testing.T) {
	tests := []struct {
		tech mode.Technique
		tol  float32
	}{
		{mode.TechniqueCPUSorted, 1e-6},
		{mode.TechniqueLinkedList, 1e-6},
		{mode.TechniqueMLAB, 1e-5},
		{mode.TechniqueDepthPeeling, 2e-3},
		{mode.TechniqueVirtualPixelMaps, 2e-3},
	}
	for _, tt := range tests {
		t.Run(tt.tech.String(), func(t *testing.T) {
			res := newTestResources(t)
			p := defaultPass()
			p.PeelCount = 3
			px, _ := render(t, res, tt.tech, p, layeredScene())
			checkAll(t, tt.tech.String(), px, sortedReference(), tt.tol)
		})
	}
}

func TestWorstCaseUsesSubmissionOrder(t *testing.T) {
	res := newTestResources(t)
	px, _ := render(t, res, mode.TechniqueWorstCase, defaultPass(), layeredScene())
	want := blend.Over(blue, blend.Over(green, blend.Over(red, background)))
	checkAll(t, "worst case", px, want, 1e-6)
}

func TestOrderedUAVMatchesWorstCase(t *testing.T) {
	res := newTestResources(t)
	worst, _ := render(t, res, mode.TechniqueWorstCase, defaultPass(), layeredScene())
	rov, _ := render(t, res, mode.TechniqueUAVWithROV, defaultPass(), layeredScene())
	for i := range worst {
		if worst[i] != rov[i] {
			t.Fatalf("pixel %d: ROV %+v, worst case %+v", i, rov[i], worst[i])
		}
	}
}

func TestDepthTestModes(t *testing.T) {
	tests := []struct {
		tech mode.Technique
		want gpucore.Color
	}{
		{mode.TechniqueDepthLess, blend.Opaque(blue)},
		{mode.TechniqueDepthGreater, blend.Opaque(blue)},
	}
	for _, tt := range tests {
		t.Run(tt.tech.String(), func(t *testing.T) {
			res := newTestResources(t)
			p := defaultPass()
			p.DepthTest = false
			px, st := render(t, res, tt.tech, p, layeredScene())
			// Without a depth target the last drawn object wins.
			checkAll(t, tt.tech.String(), px, tt.want, 0)
			if st.Passes != 1 {
				t.Errorf("passes = %d, want 1", st.Passes)
			}
		})
	}

	res := newTestResources(t)
	px, _ := render(t, res, mode.TechniqueDepthLess, defaultPass(), layeredScene())
	checkAll(t, "depth less", px, blend.Opaque(blue), 0)
	// Every layer lies in front of the backdrop, so Greater rejects them all.
	px, _ = render(t, res, mode.TechniqueDepthGreater, defaultPass(), layeredScene())
	checkAll(t, "depth greater", px, background, 0)
}

func TestWeightedSingleLayerIsOver(t *testing.T) {
	res := newTestResources(t)
	sc := scene.New("single", fullQuad("backdrop", background, -3), fullQuad("red", red, 0))
	px, _ := render(t, res, mode.TechniqueWeightedBlended, defaultPass(), sc)
	checkAll(t, "weighted", px, blend.Over(red, background), 2e-3)
}

func TestDepthPeelingLayers(t *testing.T) {
	tests := []struct {
		peels int
		want  gpucore.Color
	}{
		{1, blend.Over(blue, background)},
		{2, blend.Over(blue, blend.Over(red, background))},
		{3, sortedReference()},
		{5, sortedReference()},
	}
	for _, tt := range tests {
		res := newTestResources(t)
		p := defaultPass()
		p.PeelCount = tt.peels
		px, st := render(t, res, mode.TechniqueDepthPeeling, p, layeredScene())
		checkAll(t, "depth peeling", px, tt.want, 2e-3)
		if st.Passes != tt.peels {
			t.Errorf("%d peels: passes = %d", tt.peels, st.Passes)
		}
	}
}

func TestDepthPeelingExtraPassesAreIdempotent(t *testing.T) {
	res := newTestResources(t)
	p := defaultPass()
	p.PeelCount = 3
	exact, _ := render(t, res, mode.TechniqueDepthPeeling, p, layeredScene())
	p.PeelCount = 8
	extra, _ := render(t, res, mode.TechniqueDepthPeeling, p, layeredScene())
	for i := range exact {
		if exact[i] != extra[i] {
			t.Fatalf("pixel %d: %+v after 8 peels, %+v after 3", i, extra[i], exact[i])
		}
	}
}

func TestVirtualPixelMapsKeepsFarthestLayers(t *testing.T) {
	res := newTestResources(t)
	p := defaultPass()
	p.PeelCount = 1
	px, st := render(t, res, mode.TechniqueVirtualPixelMaps, p, layeredScene())
	checkAll(t, "virtual pixel maps", px, blend.Over(green, background), 2e-3)
	if st.Passes != 1 {
		t.Errorf("passes = %d, want 1", st.Passes)
	}
}

func TestLinkedListOverflowStats(t *testing.T) {
	sc := scene.New("five",
		fullQuad("backdrop", background, -3),
		fullQuad("q0", red, 0),
		fullQuad("q1", green, -0.8),
		fullQuad("q2", blue, 0.8),
		fullQuad("q3", red, -0.4),
		fullQuad("q4", green, 0.4),
	)
	const pixels = testSize * testSize
	tests := []struct {
		tier        fragment.Tier
		wantDropped uint32
	}{
		{fragment.Tier2, 3 * pixels},
		{fragment.Tier4, pixels},
		{fragment.Tier32, 0},
	}
	for _, tt := range tests {
		t.Run(tt.tier.String(), func(t *testing.T) {
			res := newTestResources(t)
			p := defaultPass()
			p.Tier = tt.tier
			_, st := render(t, res, mode.TechniqueLinkedList, p, sc)
			if st.Fragments != 5*pixels {
				t.Errorf("fragments = %d, want %d", st.Fragments, 5*pixels)
			}
			if st.Dropped != tt.wantDropped {
				t.Errorf("dropped = %d, want %d", st.Dropped, tt.wantDropped)
			}
			if st.TruncatedPixels != 0 {
				t.Errorf("truncated pixels = %d, want 0", st.TruncatedPixels)
			}
		})
	}
}

func TestLinkedListTwoLayersExactAtSmallestTier(t *testing.T) {
	res := newTestResources(t)
	sc := scene.New("two",
		fullQuad("backdrop", background, -3),
		fullQuad("red", red, 0),
		fullQuad("green", green, -1),
	)
	p := defaultPass()
	p.Tier = fragment.Tier2
	px, st := render(t, res, mode.TechniqueLinkedList, p, sc)
	checkAll(t, "linked list", px, blend.Over(red, blend.Over(green, background)), 1e-6)
	if st.Dropped != 0 {
		t.Errorf("dropped = %d, want 0", st.Dropped)
	}
}

func TestImmediateModeMatchesRetained(t *testing.T) {
	res := newTestResources(t)
	sc := layeredScene()
	store, err := scene.NewStore(sc)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Upload(res.Backend()); err != nil {
		t.Fatal(err)
	}
	defer store.Release(res.Backend())

	p := defaultPass()
	retained, _ := render(t, res, mode.TechniqueCPUSorted, p, sc)
	p.Immediate = true
	immediate, _ := render(t, res, mode.TechniqueCPUSorted, p, sc)
	for i := range retained {
		if retained[i] != immediate[i] {
			t.Fatalf("pixel %d: immediate %+v, retained %+v", i, immediate[i], retained[i])
		}
	}
}

func TestSharedResourceBusy(t *testing.T) {
	res := newTestResources(t)
	if err := res.Acquire(SharedPeel); err != nil {
		t.Fatal(err)
	}
	e, _ := New(mode.TechniqueDepthPeeling)
	_, err := Run(e, res, defaultPass(), layeredScene(), scene.DefaultCamera(1))
	if !errors.Is(err, ErrResourceBusy) {
		t.Errorf("Run with peel targets held: got %v, want ErrResourceBusy", err)
	}
	if !res.Busy(SharedPeel) {
		t.Error("failed run released a set it never acquired")
	}

	res.Release(SharedPeel)
	e, _ = New(mode.TechniqueDepthPeeling)
	if _, err := Run(e, res, defaultPass(), layeredScene(), scene.DefaultCamera(1)); err != nil {
		t.Fatalf("Run after release: %v", err)
	}
	if res.Busy(SharedPeel) {
		t.Error("Run left the peel targets acquired")
	}
}

func TestQuadrantOutOfRange(t *testing.T) {
	res := newTestResources(t)
	e, _ := New(mode.TechniqueCPUSorted)
	p := defaultPass()
	p.Quadrant = mode.MaxQuadrants
	_, err := Run(e, res, p, layeredScene(), scene.DefaultCamera(1))
	if !errors.Is(err, mode.ErrInvalidEnum) {
		t.Errorf("got %v, want ErrInvalidEnum", err)
	}
}

func TestQuadrantsAreIndependent(t *testing.T) {
	res := newTestResources(t)
	p := defaultPass()
	p.Quadrant = 1
	render(t, res, mode.TechniqueWorstCase, p, layeredScene())
	p.Quadrant = 2
	render(t, res, mode.TechniqueLinkedList, p, layeredScene())

	first, _ := res.Quadrant(1)
	px, err := res.Backend().ReadColor(first.Color)
	if err != nil {
		t.Fatal(err)
	}
	want := blend.Over(blue, blend.Over(green, blend.Over(red, background)))
	checkAll(t, "quadrant 2", px, want, 1e-6)
}
