// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package scene holds the scenes rendered by the OIT testbed.
//
// A [Store] owns every named [Scene] loaded at startup from scene XML (or
// the built-in scenes). Each scene keeps its opaque and translucent
// [Object] lists in load order, plus a sorted copy of the translucent list
// that the CPU-sorted technique reorders back to front every frame.
//
// Scene XML:
//
//	<Scenes>
//	  <Scene name="TwoQuads">
//	    <MeshInfo type="Quad" color="1 0 0 0.5" center="0 0 0"
//	              dimension="2 2 1" orientation="0 0 0" numOfTexturesBound="1">
//	      <TextureInfo texture="checker.png" debugTextureName="checker"/>
//	    </MeshInfo>
//	  </Scene>
//	</Scenes>
package scene
