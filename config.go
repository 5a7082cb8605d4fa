// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package oit

import (
	"bytes"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pelletier/go-toml/v2"

	"github.com/gogpu/oit/backend"
	"github.com/gogpu/oit/internal/fragment"
	"github.com/gogpu/oit/internal/mode"
	"github.com/gogpu/oit/internal/technique"
	"github.com/gogpu/oit/scene"
)

// Config is the startup configuration of a Testbed.
//
// A TOML file only needs the keys it changes:
//
//	width = 1280
//	height = 720
//	peel_count = 4
//	layout = "4-way"
//
//	[camera]
//	eye = [0.0, 1.0, 6.0]
//
//	[[quadrant]]
//	quadrant = 2
//	family = "AlphaBlending"
//	sub = "CPUSorted"
type Config struct {
	Width  int `toml:"width"`
	Height int `toml:"height"`

	// PeelCount is the number of depth peeling and virtual pixel map passes.
	PeelCount int `toml:"peel_count"`

	// Scenes is the path of a scene XML file. Empty loads the built-in scenes.
	Scenes string `toml:"scenes"`

	// Scene is the name of the initially active scene. Empty selects the
	// first one.
	Scene string `toml:"scene"`

	// Backend names the registered backend to open. Empty tries every
	// registered backend in priority order.
	Backend string `toml:"backend"`

	// Workers bounds the parallelism of the software backend.
	Workers int `toml:"workers"`

	// Layout is "single", "2-way" or "4-way".
	Layout string `toml:"layout"`

	Textured  bool `toml:"textured"`
	DepthTest bool `toml:"depth_test"`
	Immediate bool `toml:"immediate"`

	// Background is the straight-alpha clear color of every quadrant.
	Background [4]float32 `toml:"background"`

	Camera    CameraConfig     `toml:"camera"`
	Quadrants []QuadrantConfig `toml:"quadrant"`
}

// CameraConfig places the camera.
type CameraConfig struct {
	Eye    [3]float32 `toml:"eye"`
	Target [3]float32 `toml:"target"`
	FovY   float32    `toml:"fov_y"`
	Near   float32    `toml:"near"`
	Far    float32    `toml:"far"`

	// Orbit rotates the eye around the target by this many degrees per
	// rendered frame.
	Orbit float32 `toml:"orbit"`
}

// QuadrantConfig overrides the initial selection of one quadrant.
type QuadrantConfig struct {
	// Quadrant is 1-based.
	Quadrant int    `toml:"quadrant"`
	Family   string `toml:"family"`
	Sub      string `toml:"sub"`

	// Nodes is the per-pixel capacity tier, 2, 4 or 32. Zero keeps 2.
	Nodes int `toml:"nodes"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	cam := scene.DefaultCamera(1)
	return Config{
		Width:      800,
		Height:     600,
		PeelCount:  technique.DefaultPeelCount,
		Layout:     mode.LayoutSingle.String(),
		Textured:   true,
		DepthTest:  true,
		Background: [4]float32{0.1, 0.1, 0.12, 1},
		Camera: CameraConfig{
			Eye:    cam.Eye,
			Target: cam.Target,
			FovY:   cam.FovY,
			Near:   cam.Near,
			Far:    cam.Far,
		},
	}
}

// LoadConfig reads a TOML file over DefaultConfig.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("oit: read config: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("oit: %s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes TOML over DefaultConfig and validates the result.
// Unknown keys are rejected.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every field.
func (c *Config) Validate() error {
	if err := c.deviceConfig().Validate(); err != nil {
		return err
	}
	if c.PeelCount < 1 || c.PeelCount > technique.MaxPeelCount {
		return fmt.Errorf("oit: peel_count %d outside 1..%d", c.PeelCount, technique.MaxPeelCount)
	}
	if _, err := mode.ParseLayout(c.Layout); err != nil {
		return err
	}
	if c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near || c.Camera.FovY <= 0 || c.Camera.FovY >= 180 {
		return fmt.Errorf("oit: invalid camera near %v far %v fov_y %v", c.Camera.Near, c.Camera.Far, c.Camera.FovY)
	}
	for _, q := range c.Quadrants {
		if _, err := q.state(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) deviceConfig() backend.DeviceConfig {
	return backend.DeviceConfig{Width: c.Width, Height: c.Height, Workers: c.Workers}
}

func (c *Config) camera() *scene.Camera {
	cam := scene.DefaultCamera(float32(c.Width) / float32(c.Height))
	cam.Eye = mgl32.Vec3(c.Camera.Eye)
	cam.Target = mgl32.Vec3(c.Camera.Target)
	cam.FovY = c.Camera.FovY
	cam.Near = c.Camera.Near
	cam.Far = c.Camera.Far
	return cam
}

// state validates q and returns its 0-based quadrant index.
func (q QuadrantConfig) state() (int, error) {
	if q.Quadrant < 1 || q.Quadrant > mode.MaxQuadrants {
		return 0, &EnumError{Kind: "quadrant", Value: fmt.Sprint(q.Quadrant)}
	}
	if _, err := mode.ParseMode(q.Family, q.Sub); err != nil {
		return 0, err
	}
	if _, err := tierOf(q.Nodes); err != nil {
		return 0, err
	}
	return q.Quadrant - 1, nil
}

func (q QuadrantConfig) apply(d *mode.Dispatcher) error {
	idx, err := q.state()
	if err != nil {
		return err
	}
	m, _ := mode.ParseMode(q.Family, q.Sub)
	t, _ := tierOf(q.Nodes)
	if err := d.SetMode(idx, m); err != nil {
		return err
	}
	return d.SetTier(idx, t)
}

// tierOf maps a node count to its tier; zero is the smallest tier.
func tierOf(nodes int) (fragment.Tier, error) {
	if nodes == 0 {
		return fragment.Tier2, nil
	}
	t, ok := fragment.TierForNodes(nodes)
	if !ok {
		return 0, &EnumError{Kind: "tier", Value: fmt.Sprint(nodes)}
	}
	return t, nil
}
