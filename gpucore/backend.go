// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpucore

import "errors"

// Errors returned by backends.
var (
	// ErrDeviceLost is returned when the device was removed or hung.
	// It is never recoverable.
	ErrDeviceLost = errors.New("gpucore: device lost")

	// ErrInvalidConfig is returned for inconsistent resource or mesh descriptors.
	ErrInvalidConfig = errors.New("gpucore: invalid resource config")

	// ErrUnknownProgram is returned for a program name a backend does not implement.
	ErrUnknownProgram = errors.New("gpucore: unknown program")

	// ErrUnknownResource is returned for a stale or foreign handle.
	ErrUnknownResource = errors.New("gpucore: unknown resource")

	// ErrResourceKind is returned when a resource is bound or read as
	// something it was not created for.
	ErrResourceKind = errors.New("gpucore: resource bound with wrong kind")

	// ErrNoProgram is returned by a draw or dispatch with no program in use,
	// or with a program of the wrong stage.
	ErrNoProgram = errors.New("gpucore: no program of the required stage in use")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("gpucore: backend closed")
)

// Binding limits shared by all backends.
const (
	MaxRenderTargets   = 2
	MaxReadableSlots   = 2
	MaxDrawUAVSlots    = 2
	MaxComputeUAVSlots = 3
)

// Backend is the renderer collaborator that executes the testbed's passes.
//
// Binding calls only record state; they are validated by the next draw or
// dispatch. Commands execute in submission order; Flush waits for all of
// them. A Backend is not safe for concurrent use.
type Backend interface {
	// Name returns the registry name of the backend.
	Name() string

	// Size returns the window client size every texture resource shares.
	Size() (width, height int)

	// Backbuffer returns the RGBA8 render target presented to the screen.
	Backbuffer() ResourceID

	// CreateRenderTargetResource creates a window-sized color target that
	// can also be bound readable and writable.
	CreateRenderTargetResource(label string, format Format) (ResourceID, error)

	// CreateDepthResource creates a window-sized depth target and its
	// read-only view.
	CreateDepthResource(label string) (DepthTarget, error)

	// CreateResourceFromConfig creates any resource from a descriptor.
	CreateResourceFromConfig(cfg *ResourceConfig) (ResourceID, error)

	// DestroyResource releases a resource. Destroying a depth resource
	// also releases its read-only view.
	DestroyResource(id ResourceID)

	// CreateMesh uploads an indexed triangle list.
	CreateMesh(desc *MeshDesc) (MeshID, error)

	// DestroyMesh releases a mesh.
	DestroyMesh(id MeshID)

	// CreateProgram returns the backend's implementation of a program.
	CreateProgram(name ProgramName) (ProgramID, error)

	// ClearRenderTargetResource fills every texel of a color target.
	ClearRenderTargetResource(id ResourceID, c Color) error

	// ClearDepthResource fills every texel of a depth target.
	ClearDepthResource(id ResourceID, depth float32) error

	// ClearWritableResource fills every word of a structured resource and
	// resets its counter to zero.
	ClearWritableResource(id ResourceID, value uint32) error

	// BindRenderAndDepthResources binds color targets and a depth target
	// for the following draws and unbinds draw UAVs. A depth of InvalidID
	// disables depth testing regardless of PipelineState.
	BindRenderAndDepthResources(targets []ResourceID, depth ResourceID)

	// BindUAVsRenderAndDepthTargets binds color targets, a depth target and
	// writable resources for the following draws.
	BindUAVsRenderAndDepthTargets(targets []ResourceID, depth ResourceID, uavs []UAVBinding)

	// BindReadableResources binds resources to consecutive readable slots
	// starting at start. InvalidID unbinds a slot.
	BindReadableResources(start int, ids ...ResourceID)

	// BindWritableResourcesToComputeShader binds resources to consecutive
	// compute writable slots starting at start.
	BindWritableResourcesToComputeShader(start int, uavs ...UAVBinding)

	// UseProgram selects the program of the following draws or dispatches.
	UseProgram(id ProgramID)

	// SetPipelineState sets the fixed-function state of following draws.
	SetPipelineState(ps PipelineState)

	// SetConstants sets the constant block of following draws or dispatches.
	SetConstants(c *Constants)

	// DrawMesh rasterizes a mesh with the current program and bindings.
	DrawMesh(id MeshID) error

	// ComputeShaderDispatch runs the current compute program over
	// groupsX*groupsY*groupsZ thread groups of ThreadGroupSize^2 invocations.
	ComputeShaderDispatch(groupsX, groupsY, groupsZ uint32) error

	// ReadColor returns the texels of a color target in row-major order.
	ReadColor(id ResourceID) ([]Color, error)

	// ReadDepth returns the texels of a depth or single-channel target.
	ReadDepth(id ResourceID) ([]float32, error)

	// ReadBuffer returns the words and hidden counter of a structured resource.
	ReadBuffer(id ResourceID) (words []uint32, counter uint32, err error)

	// ReadCounter returns the hidden counter of a structured resource.
	ReadCounter(id ResourceID) (uint32, error)

	// Flush submits pending work and waits for completion.
	Flush() error

	// Close releases every resource. The backend is unusable afterwards.
	Close()
}
