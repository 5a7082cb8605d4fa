// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package oit

import (
	"errors"
	"fmt"

	"github.com/gogpu/oit/backend"
	_ "github.com/gogpu/oit/backend/software" // always available fallback
	"github.com/gogpu/oit/gpucore"
	"github.com/gogpu/oit/internal/mode"
	"github.com/gogpu/oit/internal/technique"
	"github.com/gogpu/oit/scene"
)

// Selection and statistics types shared with the internal packages.
type (
	// Mode is a (family, sub-mode) pair.
	Mode = mode.Mode
	// Family is a mode family.
	Family = mode.Family
	// Technique is the renderer behind a mode.
	Technique = mode.Technique
	// Layout is the split-screen layout.
	Layout = mode.Layout
	// Key is a testbed input key.
	Key = mode.Key
	// Action tells what a key press changed.
	Action = mode.Action
	// Stats reports the work of one quadrant in the last frame.
	Stats = technique.Stats
)

// Keys.
const (
	KeyQuadrant1 = mode.KeyQuadrant1
	KeyQuadrant2 = mode.KeyQuadrant2
	KeyQuadrant3 = mode.KeyQuadrant3
	KeyQuadrant4 = mode.KeyQuadrant4
	KeyLeft      = mode.KeyLeft
	KeyRight     = mode.KeyRight
	KeyUp        = mode.KeyUp
	KeyDown      = mode.KeyDown
	KeyN         = mode.KeyN
	KeyL         = mode.KeyL
	KeyT         = mode.KeyT
	KeyZ         = mode.KeyZ
	KeyV         = mode.KeyV
	KeyJ         = mode.KeyJ
)

// Families.
const (
	FamilyDepthTest     = mode.FamilyDepthTest
	FamilyAlphaBlending = mode.FamilyAlphaBlending
	FamilyOIT           = mode.FamilyOIT
	FamilyUAVWrites     = mode.FamilyUAVWrites
)

// ParseMode parses a family and sub-mode name pair, ignoring case.
func ParseMode(family, sub string) (Mode, error) { return mode.ParseMode(family, sub) }

// MaxQuadrants is the number of quadrants a layout can show.
const MaxQuadrants = mode.MaxQuadrants

// ParseKeys parses a comma separated list of key names.
func ParseKeys(s string) ([]Key, error) { return mode.ParseKeys(s) }

// RegisterBackend makes a backend factory available to Config.Backend.
// It panics if name is already registered.
func RegisterBackend(name string, f backend.Factory) { backend.Register(name, f) }

// Testbed is the application context: the backend, the scene store, the
// quadrant resources, the mode dispatcher and the camera.
//
// Testbed is not safe for concurrent use.
type Testbed struct {
	cfg        Config
	backend    gpucore.Backend
	ownBackend bool

	res      *technique.Resources
	store    *scene.Store
	cam      *scene.Camera
	dispatch *mode.Dispatcher

	executors  map[mode.Technique]technique.Executor
	peelCount  int
	background gpucore.Color
	stats      [MaxQuadrants]Stats
	frames     uint64
	closed     bool
}

// New creates a testbed: it loads the scenes, opens the backend, creates
// every window-sized target and uploads the meshes.
func New(opts ...Option) (*Testbed, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger != nil {
		SetLogger(o.logger)
	}

	cfg := o.config
	if o.backend != nil {
		cfg.Width, cfg.Height = o.backend.Size()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	scenes := o.scenes
	if scenes == nil {
		var err error
		if scenes, err = loadScenes(cfg.Scenes); err != nil {
			return nil, err
		}
	}
	store, err := scene.NewStore(scenes...)
	if err != nil {
		return nil, err
	}
	if cfg.Scene != "" {
		if err := selectScene(store, cfg.Scene); err != nil {
			return nil, err
		}
	}

	tb := &Testbed{
		cfg:        cfg,
		store:      store,
		cam:        o.camera,
		dispatch:   mode.NewDispatcher(),
		executors:  make(map[mode.Technique]technique.Executor),
		peelCount:  cfg.PeelCount,
		background: premultiply(cfg.Background),
	}
	if tb.cam == nil {
		tb.cam = cfg.camera()
	}
	if err := tb.configureDispatcher(); err != nil {
		return nil, err
	}

	tb.backend, tb.ownBackend = o.backend, false
	if tb.backend == nil {
		if tb.backend, err = openBackend(&cfg); err != nil {
			return nil, err
		}
		tb.ownBackend = true
	}
	trackLogger(tb.backend)

	if tb.res, err = technique.NewResources(tb.backend); err != nil {
		tb.Close()
		return nil, err
	}
	if err := store.Upload(tb.backend); err != nil {
		tb.Close()
		return nil, err
	}

	Logger().Info("oit: testbed ready",
		"backend", tb.backend.Name(), "width", cfg.Width, "height", cfg.Height,
		"scenes", store.Names(), "active", store.Active().Name)
	return tb, nil
}

func loadScenes(path string) ([]*scene.Scene, error) {
	if path == "" {
		return scene.Builtin()
	}
	return scene.LoadFile(path)
}

func openBackend(cfg *Config) (gpucore.Backend, error) {
	dc := cfg.deviceConfig()
	dc.Logger = Logger()
	if cfg.Backend == "" {
		return backend.Default(dc)
	}
	return backend.Open(cfg.Backend, dc)
}

// selectScene activates the named scene; an unknown name is an invalid
// enumerant.
func selectScene(store *scene.Store, name string) error {
	err := store.Select(name)
	if errors.Is(err, scene.ErrUnknownScene) {
		return &EnumError{Kind: "scene", Value: name}
	}
	return err
}

func (tb *Testbed) configureDispatcher() error {
	l, err := mode.ParseLayout(tb.cfg.Layout)
	if err != nil {
		return err
	}
	if err := tb.dispatch.SetLayout(l); err != nil {
		return err
	}
	tb.dispatch.SetToggles(tb.cfg.Textured, tb.cfg.DepthTest, tb.cfg.Immediate)
	for _, q := range tb.cfg.Quadrants {
		if err := q.apply(tb.dispatch); err != nil {
			return err
		}
	}
	return nil
}

func premultiply(c [4]float32) gpucore.Color {
	return gpucore.Color{R: c[0] * c[3], G: c[1] * c[3], B: c[2] * c[3], A: c[3]}
}

// Backend returns the backend the testbed renders on.
func (tb *Testbed) Backend() gpucore.Backend { return tb.backend }

// Config returns the configuration the testbed was created with.
func (tb *Testbed) Config() Config { return tb.cfg }

// Camera returns the camera. Changes apply to the next frame.
func (tb *Testbed) Camera() *scene.Camera { return tb.cam }

// Scene returns the active scene.
func (tb *Testbed) Scene() *scene.Scene { return tb.store.Active() }

// Scenes returns the names of every loaded scene.
func (tb *Testbed) Scenes() []string { return tb.store.Names() }

// SelectScene activates the named scene.
func (tb *Testbed) SelectScene(name string) error { return selectScene(tb.store, name) }

// PeelCount returns the number of depth peeling passes.
func (tb *Testbed) PeelCount() int { return tb.peelCount }

// SetPeelCount sets the number of depth peeling and virtual pixel map
// passes, 1 to 64.
func (tb *Testbed) SetPeelCount(n int) error {
	if n < 1 || n > technique.MaxPeelCount {
		return fmt.Errorf("%w: peel count %d outside 1..%d", ErrBadCommand, n, technique.MaxPeelCount)
	}
	tb.peelCount = n
	return nil
}

// Layout returns the split-screen layout.
func (tb *Testbed) Layout() Layout { return tb.dispatch.Layout() }

// Active returns the number of quadrants shown.
func (tb *Testbed) Active() int { return tb.dispatch.Active() }

// Control returns the quadrant the mode keys apply to.
func (tb *Testbed) Control() int { return tb.dispatch.Control() }

// Locked reports whether Left and Right cycle scenes.
func (tb *Testbed) Locked() bool { return tb.dispatch.Locked() }

// QuadrantInfo is the selection of one quadrant.
type QuadrantInfo struct {
	Mode      Mode
	Technique Technique

	// Nodes is the per-pixel capacity of the fragment stores.
	Nodes int
}

// Quadrant returns the selection of quadrant q (0-based).
func (tb *Testbed) Quadrant(q int) (QuadrantInfo, error) {
	s, err := tb.dispatch.State(q)
	if err != nil {
		return QuadrantInfo{}, err
	}
	t, err := s.Mode().Technique()
	if err != nil {
		return QuadrantInfo{}, err
	}
	return QuadrantInfo{Mode: s.Mode(), Technique: t, Nodes: s.Tier().NodesPerPixel()}, nil
}

// SetMode selects mode m on quadrant q (0-based).
func (tb *Testbed) SetMode(q int, m Mode) error { return tb.dispatch.SetMode(q, m) }

// Stats returns the statistics of quadrant q (0-based) in the last frame.
func (tb *Testbed) Stats(q int) (Stats, error) {
	if q < 0 || q >= MaxQuadrants {
		return Stats{}, &EnumError{Kind: "quadrant", Value: fmt.Sprint(q + 1)}
	}
	return tb.stats[q], nil
}

// Frames returns the number of frames rendered.
func (tb *Testbed) Frames() uint64 { return tb.frames }

// Close releases the meshes and targets, and the backend if the testbed
// opened it. Close is idempotent.
func (tb *Testbed) Close() {
	if tb.closed {
		return
	}
	tb.closed = true
	if tb.backend == nil {
		return
	}
	tb.store.Release(tb.backend)
	if tb.res != nil {
		tb.res.Close()
	}
	untrackLogger(tb.backend)
	if tb.ownBackend {
		tb.backend.Close()
	}
}
