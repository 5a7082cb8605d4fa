// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"errors"
	"log/slog"

	"github.com/gogpu/oit/gpucore"
)

// Backend name constants.
const (
	// BackendSoftware is the name of the CPU device.
	BackendSoftware = "software"
	// BackendWGPU is the name of the gogpu/wgpu HAL device.
	BackendWGPU = "wgpu"
)

// ErrBackendNotAvailable is returned when no registered backend could be opened.
var ErrBackendNotAvailable = errors.New("backend: not available")

// DeviceConfig configures a device created through the registry.
type DeviceConfig struct {
	Width  int
	Height int

	// Workers bounds CPU parallelism of software execution. Zero means
	// GOMAXPROCS.
	Workers int

	// Logger receives device diagnostics. Nil discards them.
	Logger *slog.Logger
}

// Validate checks the window size.
func (c DeviceConfig) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return errors.New("backend: window size must be positive")
	}
	return nil
}

// Factory creates a device.
type Factory func(cfg DeviceConfig) (gpucore.Backend, error)
