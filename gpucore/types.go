// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpucore

import "fmt"

// ResourceID is an opaque handle to a backend resource.
type ResourceID uint64

// MeshID is an opaque handle to an uploaded mesh.
type MeshID uint64

// ProgramID is an opaque handle to a created program.
type ProgramID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// KeepCounter leaves a writable resource's hidden counter untouched on bind.
const KeepCounter = ^uint32(0)

// Format specifies the texel format of a render target or depth target.
type Format uint32

// Formats.
const (
	// FormatUndefined is the zero value.
	FormatUndefined Format = iota

	// FormatRGBA8Unorm is 8-bit RGBA, normalized unsigned integer.
	FormatRGBA8Unorm

	// FormatRGBA16Float is 16-bit RGBA, half precision floating point.
	FormatRGBA16Float

	// FormatR16Float is 16-bit red channel only, half precision floating point.
	FormatR16Float

	// FormatRGBA32Float is 32-bit RGBA, floating point.
	FormatRGBA32Float

	// FormatR32Float is 32-bit red channel only, floating point.
	FormatR32Float

	// FormatDepth32Float is a 32-bit floating point depth format.
	FormatDepth32Float
)

var formatNames = [...]string{
	FormatUndefined:    "Undefined",
	FormatRGBA8Unorm:   "RGBA8Unorm",
	FormatRGBA16Float:  "RGBA16Float",
	FormatR16Float:     "R16Float",
	FormatRGBA32Float:  "RGBA32Float",
	FormatR32Float:     "R32Float",
	FormatDepth32Float: "Depth32Float",
}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return fmt.Sprintf("Format(%d)", uint32(f))
}

// IsDepth reports whether f is a depth format.
func (f Format) IsDepth() bool { return f == FormatDepth32Float }

// Usage describes how often the CPU updates a resource.
type Usage uint8

// Usages.
const (
	// UsageDefault resources are read and written by the GPU only.
	UsageDefault Usage = iota

	// UsageDynamic resources are rewritten by the CPU every frame.
	UsageDynamic

	// UsageImmutable resources are initialized once from InitialData.
	UsageImmutable

	// UsageStaging resources are used for GPU to CPU readback.
	UsageStaging
)

// BindFlags is a bitmask of the pipeline stages a resource may be bound to.
type BindFlags uint32

// Bind flags.
const (
	// BindRenderTarget allows binding as a color output of a draw.
	BindRenderTarget BindFlags = 1 << iota

	// BindDepthStencil allows binding as the depth target of a draw.
	BindDepthStencil

	// BindShaderResource allows binding as a readable resource.
	BindShaderResource

	// BindUnorderedAccess allows binding as a writable resource.
	BindUnorderedAccess

	// BindConstant allows binding as a constant buffer.
	BindConstant
)

// Has reports whether all bits of other are set in b.
func (b BindFlags) Has(other BindFlags) bool { return b&other == other }

// Kind classifies a resource.
type Kind uint8

// Kinds.
const (
	// KindTexture is a window-sized 2D target.
	KindTexture Kind = iota + 1

	// KindStructured is an array of fixed-stride elements.
	KindStructured
)

// ResourceConfig describes a resource for Backend.CreateResourceFromConfig.
//
// Texture resources use Width, Height and Format. Structured resources use
// ElementStride (bytes, multiple of 4) and ElementCount.
type ResourceConfig struct {
	Label string
	Kind  Kind
	Usage Usage
	Bind  BindFlags

	Width  int
	Height int
	Format Format

	ElementStride int
	ElementCount  int

	// InitialData, if set, fills the resource at creation. Its length must
	// equal the resource size in bytes.
	InitialData []byte
}

// SizeBytes returns the payload size of a structured resource in bytes.
func (c *ResourceConfig) SizeBytes() int {
	return c.ElementStride * c.ElementCount
}

// Validate checks the descriptor for internal consistency.
func (c *ResourceConfig) Validate() error {
	switch c.Kind {
	case KindTexture:
		if c.Width <= 0 || c.Height <= 0 {
			return fmt.Errorf("%w: %q has size %dx%d", ErrInvalidConfig, c.Label, c.Width, c.Height)
		}
		if c.Format == FormatUndefined {
			return fmt.Errorf("%w: %q has no format", ErrInvalidConfig, c.Label)
		}
	case KindStructured:
		if c.ElementStride <= 0 || c.ElementStride%4 != 0 {
			return fmt.Errorf("%w: %q has element stride %d", ErrInvalidConfig, c.Label, c.ElementStride)
		}
		if c.ElementCount <= 0 {
			return fmt.Errorf("%w: %q has element count %d", ErrInvalidConfig, c.Label, c.ElementCount)
		}
		if c.InitialData != nil && len(c.InitialData) != c.SizeBytes() {
			return fmt.Errorf("%w: %q initial data is %d bytes, want %d",
				ErrInvalidConfig, c.Label, len(c.InitialData), c.SizeBytes())
		}
	default:
		return fmt.Errorf("%w: %q has kind %d", ErrInvalidConfig, c.Label, c.Kind)
	}
	return nil
}

// DepthTarget pairs a depth resource with its read-only view.
//
// The read-only view may be bound as a readable resource while Resource is
// bound as the depth target of a draw that does not write depth.
type DepthTarget struct {
	Resource ResourceID
	ReadOnly ResourceID
}

// UAVBinding binds a writable resource to a slot.
type UAVBinding struct {
	Resource ResourceID

	// InitialCount resets the hidden counter on bind. KeepCounter leaves
	// it unchanged.
	InitialCount uint32
}

// Writable returns a binding that keeps the resource's counter.
func Writable(id ResourceID) UAVBinding {
	return UAVBinding{Resource: id, InitialCount: KeepCounter}
}

// Color is a linear RGBA color with premultiplied alpha.
type Color struct {
	R, G, B, A float32
}

// Common colors.
var (
	Transparent = Color{}
	Black       = Color{A: 1}
	White       = Color{R: 1, G: 1, B: 1, A: 1}
)
