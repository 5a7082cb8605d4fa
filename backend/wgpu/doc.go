// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package wgpu implements gpucore.Backend on the gogpu/wgpu HAL.
//
// The device runs every program as a WGSL compute kernel. Textures and
// structured resources are storage buffers of 32-bit words, laid out like
// those of the software backend, so both produce the same memory for the
// same commands. Draws are set up on the CPU with internal/raster and the
// window-space triangles are uploaded per draw; kernels evaluate the same
// edge functions per pixel.
//
// Draw programs that need rasterizer ordering run one invocation per pixel
// that walks the triangles in primitive order. Unordered programs run one
// invocation per pixel and triangle, so their read-modify-write sequences
// race like UAV writes without ordering.
//
// Commands are recorded into one command encoder and submitted on Flush or
// before a readback. Clears and counter resets are kernels too, which keeps
// them in submission order with the draws and dispatches around them.
//
// The package registers itself as backend.BackendWGPU on import. The HAL
// backend (for example github.com/gogpu/wgpu/hal/vulkan) must be imported
// separately.
package wgpu
