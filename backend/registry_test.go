// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/oit/gpucore"
)

var errTestOpen = errors.New("test: adapter missing")

// register installs a factory recording its calls and removes it when the
// test ends.
func register(t *testing.T, name string, err error, calls *[]string) {
	t.Helper()
	Register(name, func(DeviceConfig) (gpucore.Backend, error) {
		*calls = append(*calls, name)
		return nil, err
	})
	t.Cleanup(func() { Unregister(name) })
}

func TestRegistryRegisterAndOpen(t *testing.T) {
	var calls []string
	register(t, "test-backend", nil, &calls)

	if !IsRegistered("test-backend") {
		t.Error("test-backend should be registered")
	}
	if !slices.Contains(Available(), "test-backend") {
		t.Errorf("Available() = %v, want test-backend included", Available())
	}
	if _, err := Open("test-backend", DeviceConfig{Width: 4, Height: 4}); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if len(calls) != 1 {
		t.Errorf("factory called %d times, want 1", len(calls))
	}

	Unregister("test-backend")
	if IsRegistered("test-backend") {
		t.Error("test-backend should be unregistered")
	}
}

func TestRegistryOpenErrors(t *testing.T) {
	var calls []string
	register(t, "test-backend", nil, &calls)

	if _, err := Open("nonexistent", DeviceConfig{Width: 4, Height: 4}); !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("Open(nonexistent) = %v, want ErrBackendNotAvailable", err)
	}
	if _, err := Open("test-backend", DeviceConfig{Width: 0, Height: 4}); err == nil {
		t.Error("Open(zero width) = nil, want error")
	}
	if len(calls) != 0 {
		t.Errorf("factory called for an invalid config: %v", calls)
	}
}

func TestRegistryDuplicatePanics(t *testing.T) {
	var calls []string
	register(t, "test-backend", nil, &calls)
	defer func() {
		if recover() == nil {
			t.Error("second Register did not panic")
		}
	}()
	Register("test-backend", func(DeviceConfig) (gpucore.Backend, error) { return nil, nil })
}

func TestRegistryDefault(t *testing.T) {
	tests := []struct {
		name      string
		wgpuErr   error
		wantCalls []string
		wantErr   bool
	}{
		{"gpu opens", nil, []string{BackendWGPU}, false},
		{"gpu falls back", errTestOpen, []string{BackendWGPU, BackendSoftware}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls []string
			register(t, BackendWGPU, tt.wgpuErr, &calls)
			register(t, BackendSoftware, nil, &calls)

			_, err := Default(DeviceConfig{Width: 4, Height: 4})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Default() error = %v", err)
			}
			if !slices.Equal(calls, tt.wantCalls) {
				t.Errorf("opened %v, want %v", calls, tt.wantCalls)
			}
		})
	}
}

func TestRegistryDefaultAllFail(t *testing.T) {
	var calls []string
	register(t, BackendWGPU, errTestOpen, &calls)

	_, err := Default(DeviceConfig{Width: 4, Height: 4})
	if !errors.Is(err, ErrBackendNotAvailable) || !errors.Is(err, errTestOpen) {
		t.Errorf("Default() = %v, want ErrBackendNotAvailable wrapping the open error", err)
	}
}

func TestRegistryDefaultNothingRegistered(t *testing.T) {
	if _, err := Default(DeviceConfig{Width: 4, Height: 4}); !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("Default() = %v, want ErrBackendNotAvailable", err)
	}
}
