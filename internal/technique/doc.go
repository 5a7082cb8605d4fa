// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package technique implements the translucency techniques compared by the
// testbed as pass sequences over a gpucore.Backend.
//
// Every technique is an Executor. A frame renders each active quadrant in
// turn: the opaque pass fills the quadrant's color and depth targets, then
// the quadrant's executor is prepared, executed and composited into the
// quadrant target. Executors share window-sized intermediate targets
// through Resources; a shared set is held by one executor at a time.
//
// The executors are:
//
//   - depth test (Less or Greater): translucent objects drawn opaque
//   - worst case and CPU sorted: "over" blending in load or sorted order
//   - depth peeling: front-to-back layer extraction, composited under
//   - per-pixel linked lists: lock-free lists in a node pool, sorted on resolve
//   - weighted blended: order-independent weighted average
//   - MLAB: fixed-size depth-ordered per-pixel arrays with tail merging
//   - virtual pixel maps: back-to-front layer extraction, composited over
//   - UAV writes with and without rasterizer ordering
package technique
