// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gpucore defines the backend renderer contract shared by the OIT
// testbed and its device implementations.
//
// The testbed never talks to a graphics API directly. Every pass it issues
// goes through the [Backend] interface, which exposes typed resource
// creation, resource binding, draws, compute dispatches and clears:
//
//	                +------------------+
//	                |  oit.Testbed     |
//	                | (technique passes)|
//	                +--------+---------+
//	                         |
//	          +--------------+--------------+
//	          |                             |
//	+---------v---------+        +----------v---------+
//	| backend/software  |        |   backend/wgpu     |
//	| (CPU, goroutines) |        | (gogpu/wgpu HAL)   |
//	+-------------------+        +--------------------+
//
// # Resources
//
// Resources are referenced by opaque [ResourceID] handles. Render targets
// and depth targets are window-sized; structured writable resources are
// created from a [ResourceConfig] and carry a hidden 32-bit counter that is
// reset through [UAVBinding.InitialCount] when bound.
//
// # Programs
//
// Shader programs are identified by [ProgramName]. Each backend ships its
// own implementation of every program: Go kernels in the software backend,
// WGSL in the wgpu backend. A program is either a draw program, run once
// per covered pixel of a mesh, or a compute program, run once per
// invocation of a dispatch.
package gpucore
