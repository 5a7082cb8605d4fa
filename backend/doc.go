// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package backend selects the device that executes the testbed's passes.
//
// Device implementations register themselves from init() and are selected
// by name at runtime:
//
//	import (
//		"github.com/gogpu/oit/backend"
//		_ "github.com/gogpu/oit/backend/software"
//	)
//
//	dev, err := backend.Open(backend.BackendSoftware, backend.DeviceConfig{Width: 640, Height: 480})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer dev.Close()
//
// Two devices ship with the module:
//
//   - software: float32 targets, a triangle rasterizer and Go kernels run
//     across a goroutine pool. Deterministic and usable anywhere.
//   - wgpu: the same programs as WGSL compute shaders on the gogpu/wgpu
//     HAL (Vulkan by default).
package backend
