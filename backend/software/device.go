// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/oit/backend"
	"github.com/gogpu/oit/gpucore"
	"github.com/gogpu/oit/internal/parallel"
)

func init() {
	backend.Register(backend.BackendSoftware, func(cfg backend.DeviceConfig) (gpucore.Backend, error) {
		return New(cfg)
	})
}

// mesh is an uploaded triangle list with its texture converted to
// premultiplied texels.
type mesh struct {
	label    string
	vertices []gpucore.Vertex
	indices  []uint32

	texture    []gpucore.Color
	texW, texH int
	hasTexture bool
}

// Device is the CPU implementation of gpucore.Backend.
//
// Device is not safe for concurrent use, like every gpucore.Backend.
type Device struct {
	width, height int
	pool          *parallel.Pool

	nextID    uint64
	resources map[gpucore.ResourceID]*resource
	meshes    map[gpucore.MeshID]*mesh
	programs  map[gpucore.ProgramID]*program
	byName    map[gpucore.ProgramName]gpucore.ProgramID

	backbuffer gpucore.ResourceID

	targets  []gpucore.ResourceID
	depth    gpucore.ResourceID
	drawUAVs [gpucore.MaxDrawUAVSlots]gpucore.ResourceID
	readable [gpucore.MaxReadableSlots]gpucore.ResourceID
	writable [gpucore.MaxComputeUAVSlots]gpucore.ResourceID

	current   gpucore.ProgramID
	state     gpucore.PipelineState
	constants gpucore.Constants

	closed bool
}

// New creates a device with an RGBA8 backbuffer of the configured size.
func New(cfg backend.DeviceConfig) (*Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger != nil {
		setLogger(cfg.Logger)
	}

	d := &Device{
		width:     cfg.Width,
		height:    cfg.Height,
		pool:      parallel.NewPool(cfg.Workers),
		resources: make(map[gpucore.ResourceID]*resource),
		meshes:    make(map[gpucore.MeshID]*mesh),
		programs:  make(map[gpucore.ProgramID]*program),
		byName:    make(map[gpucore.ProgramName]gpucore.ProgramID),
		state: gpucore.PipelineState{
			DepthCompare: gputypes.CompareFunctionLess,
			CullMode:     gputypes.CullModeNone,
		},
	}
	bb, err := d.CreateRenderTargetResource("backbuffer", gpucore.FormatRGBA8Unorm)
	if err != nil {
		d.pool.Close()
		return nil, err
	}
	d.backbuffer = bb

	slogger().Debug("software: device created",
		"width", d.width, "height", d.height, "workers", d.pool.Workers())
	return d, nil
}

// SetLogger routes device diagnostics to l. Nil disables them.
func (d *Device) SetLogger(l *slog.Logger) { setLogger(l) }

// Name implements gpucore.Backend.
func (d *Device) Name() string { return backend.BackendSoftware }

// Size implements gpucore.Backend.
func (d *Device) Size() (width, height int) { return d.width, d.height }

// Backbuffer implements gpucore.Backend.
func (d *Device) Backbuffer() gpucore.ResourceID { return d.backbuffer }

func (d *Device) allocID() uint64 {
	d.nextID++
	return d.nextID
}

// CreateRenderTargetResource implements gpucore.Backend.
func (d *Device) CreateRenderTargetResource(label string, format gpucore.Format) (gpucore.ResourceID, error) {
	if format.IsDepth() {
		return gpucore.InvalidID, fmt.Errorf("%w: color target %q with depth format", gpucore.ErrInvalidConfig, label)
	}
	return d.CreateResourceFromConfig(&gpucore.ResourceConfig{
		Label:  label,
		Kind:   gpucore.KindTexture,
		Bind:   gpucore.BindRenderTarget | gpucore.BindShaderResource | gpucore.BindUnorderedAccess,
		Width:  d.width,
		Height: d.height,
		Format: format,
	})
}

// CreateDepthResource implements gpucore.Backend.
func (d *Device) CreateDepthResource(label string) (gpucore.DepthTarget, error) {
	id, err := d.CreateResourceFromConfig(&gpucore.ResourceConfig{
		Label:  label,
		Kind:   gpucore.KindTexture,
		Bind:   gpucore.BindDepthStencil | gpucore.BindShaderResource | gpucore.BindUnorderedAccess,
		Width:  d.width,
		Height: d.height,
		Format: gpucore.FormatDepth32Float,
	})
	if err != nil {
		return gpucore.DepthTarget{}, err
	}
	r := d.resources[id]
	viewID := gpucore.ResourceID(d.allocID())
	view := &resource{id: viewID, cfg: r.cfg, channels: r.channels, parent: r}
	view.cfg.Label = label + "/readonly"
	r.view = view
	d.resources[viewID] = view
	return gpucore.DepthTarget{Resource: id, ReadOnly: viewID}, nil
}

// CreateResourceFromConfig implements gpucore.Backend.
func (d *Device) CreateResourceFromConfig(cfg *gpucore.ResourceConfig) (gpucore.ResourceID, error) {
	if d.closed {
		return gpucore.InvalidID, gpucore.ErrClosed
	}
	if err := cfg.Validate(); err != nil {
		return gpucore.InvalidID, err
	}
	id := gpucore.ResourceID(d.allocID())
	var r *resource
	if cfg.Kind == gpucore.KindTexture {
		if cfg.Width != d.width || cfg.Height != d.height {
			return gpucore.InvalidID, fmt.Errorf("%w: texture %q is %dx%d, window is %dx%d",
				gpucore.ErrInvalidConfig, cfg.Label, cfg.Width, cfg.Height, d.width, d.height)
		}
		r = newTexture(id, *cfg)
	} else {
		r = newStructured(id, *cfg)
	}
	d.resources[id] = r
	slogger().Debug("software: resource created", "label", cfg.Label, "id", id, "words", len(r.words))
	return id, nil
}

// DestroyResource implements gpucore.Backend.
func (d *Device) DestroyResource(id gpucore.ResourceID) {
	r, ok := d.resources[id]
	if !ok {
		return
	}
	if r.parent != nil {
		r.parent.view = nil
	}
	if r.view != nil {
		delete(d.resources, r.view.id)
	}
	delete(d.resources, id)
}

// CreateMesh implements gpucore.Backend.
func (d *Device) CreateMesh(desc *gpucore.MeshDesc) (gpucore.MeshID, error) {
	if d.closed {
		return gpucore.InvalidID, gpucore.ErrClosed
	}
	if err := desc.Validate(); err != nil {
		return gpucore.InvalidID, err
	}
	m := &mesh{
		label:    desc.Label,
		vertices: append([]gpucore.Vertex(nil), desc.Vertices...),
		indices:  append([]uint32(nil), desc.Indices...),
	}
	if desc.Texture != nil {
		m.texture, m.texW, m.texH = premultipliedTexels(desc.Texture)
		m.hasTexture = m.texW > 0 && m.texH > 0
	}
	id := gpucore.MeshID(d.allocID())
	d.meshes[id] = m
	return id, nil
}

// DestroyMesh implements gpucore.Backend.
func (d *Device) DestroyMesh(id gpucore.MeshID) { delete(d.meshes, id) }

func premultipliedTexels(img *image.NRGBA) ([]gpucore.Color, int, int) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]gpucore.Color, w*h)
	for y := range h {
		for x := range w {
			off := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			p := img.Pix[off : off+4]
			a := float32(p[3]) / 255
			out[y*w+x] = gpucore.Color{
				R: float32(p[0]) / 255 * a,
				G: float32(p[1]) / 255 * a,
				B: float32(p[2]) / 255 * a,
				A: a,
			}
		}
	}
	return out, w, h
}

// CreateProgram implements gpucore.Backend. Programs are created once per
// name; later calls return the same handle.
func (d *Device) CreateProgram(name gpucore.ProgramName) (gpucore.ProgramID, error) {
	if id, ok := d.byName[name]; ok {
		return id, nil
	}
	p, err := lookupProgram(name)
	if err != nil {
		return gpucore.InvalidID, err
	}
	id := gpucore.ProgramID(d.allocID())
	d.programs[id] = p
	d.byName[name] = id
	return id, nil
}

// lookup resolves a handle to a live resource.
func (d *Device) lookup(id gpucore.ResourceID) (*resource, error) {
	r, ok := d.resources[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", gpucore.ErrUnknownResource, id)
	}
	return r, nil
}

// ClearRenderTargetResource implements gpucore.Backend.
func (d *Device) ClearRenderTargetResource(id gpucore.ResourceID, c gpucore.Color) error {
	r, err := d.lookup(id)
	if err != nil {
		return err
	}
	if !r.isTexture() || r.isDepth() || r.readOnly() {
		return fmt.Errorf("%w: clear %q as color target", gpucore.ErrResourceKind, r.cfg.Label)
	}
	r.fillColor(c)
	return nil
}

// ClearDepthResource implements gpucore.Backend.
func (d *Device) ClearDepthResource(id gpucore.ResourceID, depth float32) error {
	r, err := d.lookup(id)
	if err != nil {
		return err
	}
	if !r.isDepth() || r.readOnly() {
		return fmt.Errorf("%w: clear %q as depth target", gpucore.ErrResourceKind, r.cfg.Label)
	}
	r.fillColor(gpucore.Color{R: depth})
	return nil
}

// ClearWritableResource implements gpucore.Backend.
func (d *Device) ClearWritableResource(id gpucore.ResourceID, value uint32) error {
	r, err := d.lookup(id)
	if err != nil {
		return err
	}
	if r.isTexture() {
		return fmt.Errorf("%w: clear %q as structured buffer", gpucore.ErrResourceKind, r.cfg.Label)
	}
	r.fillWords(value)
	r.counter = 0
	return nil
}

// BindRenderAndDepthResources implements gpucore.Backend.
func (d *Device) BindRenderAndDepthResources(targets []gpucore.ResourceID, depth gpucore.ResourceID) {
	d.targets = append(d.targets[:0], targets...)
	d.depth = depth
	d.drawUAVs = [gpucore.MaxDrawUAVSlots]gpucore.ResourceID{}
}

// BindUAVsRenderAndDepthTargets implements gpucore.Backend.
func (d *Device) BindUAVsRenderAndDepthTargets(targets []gpucore.ResourceID, depth gpucore.ResourceID, uavs []gpucore.UAVBinding) {
	d.targets = append(d.targets[:0], targets...)
	d.depth = depth
	d.drawUAVs = [gpucore.MaxDrawUAVSlots]gpucore.ResourceID{}
	for i, u := range uavs {
		if i >= len(d.drawUAVs) {
			slogger().Warn("software: draw UAV slot out of range", "slot", i)
			break
		}
		d.drawUAVs[i] = u.Resource
		d.applyInitialCount(u)
	}
}

// BindReadableResources implements gpucore.Backend.
func (d *Device) BindReadableResources(start int, ids ...gpucore.ResourceID) {
	for i, id := range ids {
		slot := start + i
		if slot < 0 || slot >= len(d.readable) {
			slogger().Warn("software: readable slot out of range", "slot", slot)
			continue
		}
		d.readable[slot] = id
	}
}

// BindWritableResourcesToComputeShader implements gpucore.Backend.
func (d *Device) BindWritableResourcesToComputeShader(start int, uavs ...gpucore.UAVBinding) {
	for i, u := range uavs {
		slot := start + i
		if slot < 0 || slot >= len(d.writable) {
			slogger().Warn("software: writable slot out of range", "slot", slot)
			continue
		}
		d.writable[slot] = u.Resource
		d.applyInitialCount(u)
	}
}

func (d *Device) applyInitialCount(u gpucore.UAVBinding) {
	if u.InitialCount == gpucore.KeepCounter {
		return
	}
	if r, ok := d.resources[u.Resource]; ok && !r.isTexture() {
		r.counter = u.InitialCount
	}
}

// UseProgram implements gpucore.Backend.
func (d *Device) UseProgram(id gpucore.ProgramID) { d.current = id }

// SetPipelineState implements gpucore.Backend.
func (d *Device) SetPipelineState(ps gpucore.PipelineState) { d.state = ps }

// SetConstants implements gpucore.Backend.
func (d *Device) SetConstants(c *gpucore.Constants) { d.constants = *c }

// ReadColor implements gpucore.Backend.
func (d *Device) ReadColor(id gpucore.ResourceID) ([]gpucore.Color, error) {
	r, err := d.lookup(id)
	if err != nil {
		return nil, err
	}
	if !r.isTexture() {
		return nil, fmt.Errorf("%w: read %q as texture", gpucore.ErrResourceKind, r.cfg.Label)
	}
	out := make([]gpucore.Color, r.texels())
	for i := range out {
		out[i] = r.color(i)
	}
	return out, nil
}

// ReadDepth implements gpucore.Backend.
func (d *Device) ReadDepth(id gpucore.ResourceID) ([]float32, error) {
	r, err := d.lookup(id)
	if err != nil {
		return nil, err
	}
	if !r.isTexture() || r.storage().channels != 1 {
		return nil, fmt.Errorf("%w: read %q as single-channel texture", gpucore.ErrResourceKind, r.cfg.Label)
	}
	out := make([]float32, r.texels())
	for i := range out {
		out[i] = r.value(i)
	}
	return out, nil
}

// ReadBuffer implements gpucore.Backend.
func (d *Device) ReadBuffer(id gpucore.ResourceID) ([]uint32, uint32, error) {
	r, err := d.lookup(id)
	if err != nil {
		return nil, 0, err
	}
	if r.isTexture() {
		return nil, 0, fmt.Errorf("%w: read %q as structured buffer", gpucore.ErrResourceKind, r.cfg.Label)
	}
	return append([]uint32(nil), r.words...), r.counter, nil
}

// ReadCounter implements gpucore.Backend.
func (d *Device) ReadCounter(id gpucore.ResourceID) (uint32, error) {
	r, err := d.lookup(id)
	if err != nil {
		return 0, err
	}
	if r.isTexture() {
		return 0, fmt.Errorf("%w: read counter of %q", gpucore.ErrResourceKind, r.cfg.Label)
	}
	return r.counter, nil
}

// Flush implements gpucore.Backend. Commands execute synchronously, so
// there is nothing to wait for.
func (d *Device) Flush() error {
	if d.closed {
		return gpucore.ErrClosed
	}
	return nil
}

// Close implements gpucore.Backend.
func (d *Device) Close() {
	if d.closed {
		return
	}
	d.closed = true
	d.pool.Close()
	clear(d.resources)
	clear(d.meshes)
	clear(d.programs)
	clear(d.byName)
	slogger().Debug("software: device closed")
}

var _ gpucore.Backend = (*Device)(nil)
