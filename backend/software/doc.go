// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package software implements gpucore.Backend on the CPU.
//
// Resources are slices of 32-bit words. A draw rasterizes the mesh into
// fragments in primitive order and runs the bound program on each of them;
// a dispatch runs the bound compute program once per invocation. Work is
// spread over a parallel.Pool:
//
//   - programs that blend into render targets, write depth or need
//     rasterizer ordering run fragments of one pixel serially in primitive
//     order, with distinct pixels in parallel
//   - unordered programs run every fragment concurrently and rely on
//     atomics, so racing read-modify-write sequences lose updates the way
//     UAV writes without ordering do on a GPU
//
// Texture stores round to the precision of the resource format, RGBA8 to
// 1/255 and 16-bit float formats through IEEE half precision.
//
// The package registers itself as backend.BackendSoftware on import.
package software
