// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package oit

import (
	"log/slog"

	"github.com/gogpu/oit/gpucore"
	"github.com/gogpu/oit/scene"
)

// Option configures a Testbed during creation.
//
// Example:
//
//	// Built-in scenes on the default backend
//	tb, err := oit.New()
//
//	// Scenes from a file on a device the caller created
//	tb, err := oit.New(oit.WithConfig(cfg), oit.WithBackend(dev))
type Option func(*options)

// options holds optional configuration for Testbed creation.
type options struct {
	config  Config
	logger  *slog.Logger
	scenes  []*scene.Scene
	camera  *scene.Camera
	backend gpucore.Backend
}

// defaultOptions returns the default testbed options.
func defaultOptions() options {
	return options{config: DefaultConfig()}
}

// WithConfig replaces DefaultConfig.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// WithLogger sets the package logger, as SetLogger does, when the testbed
// is created.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithScenes uses scenes instead of loading Config.Scenes.
func WithScenes(scenes ...*scene.Scene) Option {
	return func(o *options) {
		o.scenes = scenes
	}
}

// WithCamera uses cam instead of the camera of Config.Camera.
func WithCamera(cam *scene.Camera) Option {
	return func(o *options) {
		o.camera = cam
	}
}

// WithBackend renders on b instead of opening Config.Backend. The testbed
// does not close b.
func WithBackend(b gpucore.Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}
