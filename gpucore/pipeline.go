// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpucore

import (
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
)

// BlendMode selects the output-merger blend applied to draw outputs.
type BlendMode uint8

// Blend modes.
const (
	// BlendReplace writes the program output unchanged.
	BlendReplace BlendMode = iota

	// BlendOver composites premultiplied source over the target:
	// src*ONE + dst*ONE_MINUS_SRC_ALPHA.
	BlendOver

	// BlendWeighted is the dual-target weighted blended OIT state.
	// Target 0 adds (ONE, ONE); target 1 multiplies
	// (ZERO, ONE_MINUS_SRC_COLOR).
	BlendWeighted
)

func (m BlendMode) String() string {
	switch m {
	case BlendReplace:
		return "Replace"
	case BlendOver:
		return "Over"
	case BlendWeighted:
		return "Weighted"
	default:
		return fmt.Sprintf("BlendMode(%d)", uint8(m))
	}
}

// PipelineState is the fixed-function state of a draw.
type PipelineState struct {
	// DepthTest enables comparison against the bound depth target.
	DepthTest bool

	// DepthWrite stores passing fragment depth into the depth target.
	// Ignored when DepthTest is false.
	DepthWrite bool

	// DepthCompare is the comparison between fragment depth and the
	// stored depth. A fragment passes when "fragment <op> stored" holds.
	DepthCompare gputypes.CompareFunction

	// CullMode selects which triangle facing is discarded.
	CullMode gputypes.CullMode

	// Blend selects the output-merger blend.
	Blend BlendMode
}

// Constants is the per-draw and per-dispatch constant block.
//
// The layout matches the WGSL Constants struct used by the wgpu backend
// (192 bytes, 16-byte aligned).
type Constants struct {
	// World is the object-to-world matrix, column-major.
	World [16]float32

	// ViewProj is the world-to-clip matrix, column-major.
	ViewProj [16]float32

	// Tint is the premultiplied object color.
	Tint Color

	// Params holds program specific float parameters.
	Params [4]float32

	// Flags: x textured, y depth test against opaque depth,
	// z capacity (nodes per pixel), w pass index.
	Flags [4]uint32

	// Rect is the destination rectangle of a blit (x0, y0, x1, y1).
	Rect [4]uint32
}

// Flag indices into Constants.Flags.
const (
	FlagTextured = iota
	FlagOpaqueTest
	FlagCapacity
	FlagPass
)

// Vertex is one mesh vertex.
type Vertex struct {
	Pos [3]float32
	UV  [2]float32
}

// MeshDesc describes an indexed triangle list.
type MeshDesc struct {
	Label    string
	Vertices []Vertex
	Indices  []uint32

	// Texture, if non-nil, is sampled nearest-neighbour with repeat
	// addressing by programs that honour FlagTextured.
	Texture *image.NRGBA
}

// Validate checks that every index addresses a vertex and the index count
// forms whole triangles.
func (d *MeshDesc) Validate() error {
	if len(d.Indices)%3 != 0 {
		return fmt.Errorf("%w: mesh %q has %d indices", ErrInvalidConfig, d.Label, len(d.Indices))
	}
	for _, i := range d.Indices {
		if int(i) >= len(d.Vertices) {
			return fmt.Errorf("%w: mesh %q index %d out of range", ErrInvalidConfig, d.Label, i)
		}
	}
	return nil
}

// Stage distinguishes draw programs from compute programs.
type Stage uint8

// Stages.
const (
	StageDraw Stage = iota + 1
	StageCompute
)

// ThreadGroupSize is the workgroup edge of every compute program (8x8x1).
const ThreadGroupSize = 8

// GroupCount returns the number of thread groups covering n invocations.
func GroupCount(n int) uint32 {
	return uint32((n + ThreadGroupSize - 1) / ThreadGroupSize)
}

// ProgramName identifies a program implemented by every backend.
type ProgramName string

// Draw programs. Outputs go to the bound render targets, writable slots
// are the UAVs bound with BindUAVsRenderAndDepthTargets, readable slots
// are bound with BindReadableResources.
const (
	// ProgramOpaque writes Tint (alpha forced to 1, texture applied) to target 0.
	ProgramOpaque ProgramName = "opaque"

	// ProgramTranslucent writes the premultiplied Tint to target 0.
	ProgramTranslucent ProgramName = "translucent"

	// ProgramPeel writes the fragment only if it lies strictly farther than
	// the threshold depth in readable slot 0 and, with FlagOpaqueTest, in
	// front of the opaque depth in readable slot 1.
	ProgramPeel ProgramName = "peel"

	// ProgramPeelReverse writes the fragment only if it lies strictly
	// nearer than the threshold depth in readable slot 0.
	ProgramPeelReverse ProgramName = "peel_reverse"

	// ProgramLinkedListPopulate allocates a node from the counter of
	// writable slot 1 and prepends it to the head in writable slot 0.
	ProgramLinkedListPopulate ProgramName = "ll_populate"

	// ProgramMLABPopulate inserts into the per-pixel array in writable
	// slot 0 under rasterizer ordering; writable slot 1 is the mask.
	ProgramMLABPopulate ProgramName = "mlab_populate"

	// ProgramWeightedAccumulate writes weighted color to target 0 and
	// alpha to target 1 for BlendWeighted.
	ProgramWeightedAccumulate ProgramName = "wb_accumulate"

	// ProgramUAVBlend blends over the color texture in writable slot 0
	// with an unordered read-modify-write.
	ProgramUAVBlend ProgramName = "uav_blend"

	// ProgramUAVBlendOrdered is ProgramUAVBlend under rasterizer ordering.
	ProgramUAVBlendOrdered ProgramName = "uav_blend_rov"
)

// Compute programs. Writable slots are bound with
// BindWritableResourcesToComputeShader.
const (
	// ProgramLinkedListClear writes the sentinel to every head in writable slot 0.
	ProgramLinkedListClear ProgramName = "ll_clear"

	// ProgramLinkedListComposite sorts and composites the lists of writable
	// slots 1 (heads) and 2 (nodes) over the target in writable slot 0.
	ProgramLinkedListComposite ProgramName = "ll_composite"

	// ProgramMLABResolve composites the arrays of writable slot 1 over the
	// target in writable slot 0 and resets the mask in writable slot 2.
	ProgramMLABResolve ProgramName = "mlab_resolve"

	// ProgramWeightedResolve composites accumulation (readable 0) and
	// revealage (readable 1) over the target in writable slot 0.
	ProgramWeightedResolve ProgramName = "wb_resolve"

	// ProgramDepthMax raises the depth in writable slot 0 to readable 0
	// where readable 0 is farther.
	ProgramDepthMax ProgramName = "depth_max"

	// ProgramDepthMin lowers the depth in writable slot 0 to readable 0
	// where readable 0 is nearer.
	ProgramDepthMin ProgramName = "depth_min"

	// ProgramColorUnder writes readable 0 with readable 1 composited
	// under it to writable slot 0.
	ProgramColorUnder ProgramName = "color_under"

	// ProgramCompositeOver composites readable 0 over writable slot 0 in place.
	ProgramCompositeOver ProgramName = "composite_over"

	// ProgramCopy copies readable 0 to writable slot 0.
	ProgramCopy ProgramName = "copy"

	// ProgramBlit copies readable 0 to writable slot 0 inside Constants.Rect.
	ProgramBlit ProgramName = "blit"
)

// DrawPrograms lists every draw program.
var DrawPrograms = []ProgramName{
	ProgramOpaque, ProgramTranslucent, ProgramPeel, ProgramPeelReverse,
	ProgramLinkedListPopulate, ProgramMLABPopulate, ProgramWeightedAccumulate,
	ProgramUAVBlend, ProgramUAVBlendOrdered,
}

// ComputePrograms lists every compute program.
var ComputePrograms = []ProgramName{
	ProgramLinkedListClear, ProgramLinkedListComposite, ProgramMLABResolve,
	ProgramWeightedResolve, ProgramDepthMax, ProgramDepthMin, ProgramColorUnder,
	ProgramCompositeOver, ProgramCopy, ProgramBlit,
}

// StageOf returns the stage of a known program.
func StageOf(name ProgramName) (Stage, error) {
	for _, p := range DrawPrograms {
		if p == name {
			return StageDraw, nil
		}
	}
	for _, p := range ComputePrograms {
		if p == name {
			return StageCompute, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownProgram, name)
}
