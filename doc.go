// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package oit is a comparison testbed for order-independent transparency.
//
// # Overview
//
// A Testbed renders the same scene through up to four quadrants. Each
// quadrant runs one technique from four families:
//
//   - DepthTest: translucent objects drawn opaque, with a Less or Greater
//     depth comparison
//   - AlphaBlending: "over" blending in submission order (the worst case)
//     or sorted back to front on the CPU
//   - OIT: depth peeling, per-pixel linked lists, weighted blended OIT,
//     multi-layered alpha blending (MLAB) and virtual pixel maps
//   - UAVWrites: blending through a writable color buffer, with and
//     without rasterizer ordering
//
// # Quick Start
//
//	tb, err := oit.New(oit.WithConfig(cfg))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tb.Close()
//
//	_ = tb.HandleKeys(oit.KeyN, oit.KeyN) // four quadrants
//	if err := tb.RenderFrame(); err != nil {
//	    log.Fatal(err)
//	}
//	img, err := tb.Snapshot()
//
// # Frame
//
// Every frame, for each active quadrant: the quadrant's color and depth
// targets are cleared, the opaque objects are drawn depth-tested and
// back-face culled, the translucent objects go through the selected
// technique, and the result is composited into the quadrant target. A
// screen pass then crops each quadrant target to its screen rectangle in
// the backbuffer.
//
// # Backends
//
// Passes are recorded against [gpucore.Backend]. The software backend
// (backend/software) executes them on the CPU and is always registered.
// The wgpu backend (backend/wgpu) runs the compute programs on a
// gogpu/wgpu HAL device; import it to register it.
//
// # Errors
//
// An invalid mode, layout, tier, quadrant or scene name is an
// [*EnumError] wrapping [ErrInvalidEnum]. Backend failures are returned as
// they come, wrapped with context. Nothing is retried.
package oit
