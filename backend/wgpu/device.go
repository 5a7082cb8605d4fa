// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/oit/backend"
	"github.com/gogpu/oit/gpucore"
)

func init() {
	backend.Register(backend.BackendWGPU, func(cfg backend.DeviceConfig) (gpucore.Backend, error) {
		return New(cfg)
	})
}

// defaultFenceTimeout bounds the wait for a submitted batch.
const defaultFenceTimeout = 5 * time.Second

type options struct {
	halBackend   gputypes.Backend
	spirv        bool
	fenceTimeout time.Duration
}

// Option configures a Device.
type Option func(*options)

// WithHALBackend selects the HAL backend New opens. The default is Vulkan.
func WithHALBackend(b gputypes.Backend) Option {
	return func(o *options) { o.halBackend = b }
}

// WithSPIRV compiles kernels to SPIR-V with naga before handing them to
// the HAL instead of passing WGSL source.
func WithSPIRV() Option {
	return func(o *options) { o.spirv = true }
}

// WithFenceTimeout sets how long a submit may take before the device is
// considered lost.
func WithFenceTimeout(d time.Duration) Option {
	return func(o *options) { o.fenceTimeout = d }
}

// mesh is an uploaded triangle list. Vertices stay on the CPU for triangle
// setup; the texture lives in a storage buffer of premultiplied texels.
type mesh struct {
	label    string
	vertices []gpucore.Vertex
	indices  []uint32

	texture    hal.Buffer
	texW, texH int
}

// counterReset is a pending InitialCount of a UAV binding.
type counterReset struct {
	id    gpucore.ResourceID
	value uint32
}

// Device is the gogpu/wgpu implementation of gpucore.Backend.
//
// Device is not safe for concurrent use, like every gpucore.Backend.
type Device struct {
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	external bool
	adapter  string
	opts     options

	width, height int

	nextID    uint64
	resources map[gpucore.ResourceID]*resource
	meshes    map[gpucore.MeshID]*mesh
	programs  map[gpucore.ProgramID]*program
	byName    map[gpucore.ProgramName]gpucore.ProgramID
	compiled  map[gpucore.ProgramName]*program

	backbuffer gpucore.ResourceID

	targets  []gpucore.ResourceID
	depth    gpucore.ResourceID
	drawUAVs [gpucore.MaxDrawUAVSlots]gpucore.ResourceID
	readable [gpucore.MaxReadableSlots]gpucore.ResourceID
	writable [gpucore.MaxComputeUAVSlots]gpucore.ResourceID
	resets   []counterReset

	current   gpucore.ProgramID
	state     gpucore.PipelineState
	constants gpucore.Constants

	// dummyRead and dummyWrite fill declared slots nothing is bound to.
	dummyRead  hal.Buffer
	dummyWrite hal.Buffer

	batch  batch
	closed bool
}

// New opens the first GPU adapter of the configured HAL backend and creates
// a device on it.
func New(cfg backend.DeviceConfig, opts ...Option) (*Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := newOptions(opts)
	halBackend, ok := hal.GetBackend(o.halBackend)
	if !ok {
		return nil, fmt.Errorf("%w: HAL backend %v not linked", backend.ErrBackendNotAvailable, o.halBackend)
	}
	instance, err := halBackend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("%w: create instance: %w", backend.ErrBackendNotAvailable, err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("%w: no GPU adapters found", backend.ErrBackendNotAvailable)
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("%w: open device: %w", backend.ErrBackendNotAvailable, err)
	}

	d, err := newDevice(openDev.Device, openDev.Queue, cfg, o)
	if err != nil {
		openDev.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	d.instance = instance
	d.adapter = selected.Info.Name
	slogger().Info("wgpu: device opened", "adapter", d.adapter, "width", d.width, "height", d.height)
	return d, nil
}

// NewWithDevice creates a device on a HAL device owned by the caller.
// Close leaves device and queue alive.
func NewWithDevice(device hal.Device, queue hal.Queue, cfg backend.DeviceConfig, opts ...Option) (*Device, error) {
	if device == nil || queue == nil {
		return nil, fmt.Errorf("%w: device and queue are required", gpucore.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d, err := newDevice(device, queue, cfg, newOptions(opts))
	if err != nil {
		return nil, err
	}
	d.external = true
	return d, nil
}

// NewFromProvider creates a device sharing the GPU device of a host
// application. The provider must expose its HAL device and queue.
func NewFromProvider(provider gpucontext.DeviceProvider, cfg backend.DeviceConfig, opts ...Option) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("%w: provider does not expose HAL types", gpucore.ErrInvalidConfig)
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: provider HalDevice is not hal.Device", gpucore.ErrInvalidConfig)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: provider HalQueue is not hal.Queue", gpucore.ErrInvalidConfig)
	}
	slogger().Debug("wgpu: sharing provider device", "surface_format", provider.SurfaceFormat())
	return NewWithDevice(device, queue, cfg, opts...)
}

func newOptions(opts []Option) options {
	o := options{halBackend: gputypes.BackendVulkan, fenceTimeout: defaultFenceTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func newDevice(device hal.Device, queue hal.Queue, cfg backend.DeviceConfig, o options) (*Device, error) {
	if cfg.Logger != nil {
		setLogger(cfg.Logger)
	}
	d := &Device{
		device:    device,
		queue:     queue,
		opts:      o,
		width:     cfg.Width,
		height:    cfg.Height,
		resources: make(map[gpucore.ResourceID]*resource),
		meshes:    make(map[gpucore.MeshID]*mesh),
		programs:  make(map[gpucore.ProgramID]*program),
		byName:    make(map[gpucore.ProgramName]gpucore.ProgramID),
		compiled:  make(map[gpucore.ProgramName]*program),
		state: gpucore.PipelineState{
			DepthCompare: gputypes.CompareFunctionLess,
			CullMode:     gputypes.CullModeNone,
		},
	}
	var err error
	if d.dummyRead, err = d.device.CreateBuffer(&hal.BufferDescriptor{Label: "oit_dummy_read", Size: 16, Usage: storageUsage}); err != nil {
		return nil, fmt.Errorf("wgpu: create dummy buffer: %w", err)
	}
	if d.dummyWrite, err = d.device.CreateBuffer(&hal.BufferDescriptor{Label: "oit_dummy_write", Size: 16, Usage: storageUsage}); err != nil {
		d.device.DestroyBuffer(d.dummyRead)
		return nil, fmt.Errorf("wgpu: create dummy buffer: %w", err)
	}
	bb, err := d.CreateRenderTargetResource("backbuffer", gpucore.FormatRGBA8Unorm)
	if err != nil {
		d.release()
		return nil, err
	}
	d.backbuffer = bb
	return d, nil
}

// SetLogger routes device diagnostics to l. Nil disables them.
func (d *Device) SetLogger(l *slog.Logger) { setLogger(l) }

// Adapter returns the name of the adapter New opened, or "" for a device
// created on a caller's HAL device.
func (d *Device) Adapter() string { return d.adapter }

// Name implements gpucore.Backend.
func (d *Device) Name() string { return backend.BackendWGPU }

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
	if cfg.Kind == gpucore.KindTexture && (cfg.Width != d.width || cfg.Height != d.height) {
		return gpucore.InvalidID, fmt.Errorf("%w: texture %q is %dx%d, window is %dx%d",
			gpucore.ErrInvalidConfig, cfg.Label, cfg.Width, cfg.Height, d.width, d.height)
	}
	id := gpucore.ResourceID(d.allocID())
	r, err := d.newResource(id, cfg)
	if err != nil {
		return gpucore.InvalidID, err
	}
	d.resources[id] = r
	slogger().Debug("wgpu: resource created", "label", cfg.Label, "id", id, "words", r.words)
	return id, nil
}

// DestroyResource implements gpucore.Backend. Pending commands are
// submitted first since they may reference the resource.
func (d *Device) DestroyResource(id gpucore.ResourceID) {
	r, ok := d.resources[id]
	if !ok {
		return
	}
	d.settle()
	if r.parent != nil {
		r.parent.view = nil
		delete(d.resources, id)
		return
	}
	if r.view != nil {
		delete(d.resources, r.view.id)
	}
	delete(d.resources, id)
	d.destroyResource(r)
}

// settle submits the open batch, logging a failure since the callers
// cannot return one; the next Flush reports a lost device again.
func (d *Device) settle() {
	if d.batch.encoder == nil {
		return
	}
	if err := d.submit(); err != nil {
		slogger().Error("wgpu: submit before release failed", "err", err)
	}
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
		data, w, h := texelBytes(desc.Texture)
		if w > 0 && h > 0 {
			buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
				Label: desc.Label + "/texture",
				Size:  uint64(len(data)),
				Usage: storageUsage,
			})
			if err != nil {
				return gpucore.InvalidID, fmt.Errorf("wgpu: create texture of %q: %w", desc.Label, err)
			}
			d.queue.WriteBuffer(buf, 0, data)
			m.texture, m.texW, m.texH = buf, w, h
		}
	}
	id := gpucore.MeshID(d.allocID())
	d.meshes[id] = m
	return id, nil
}

// DestroyMesh implements gpucore.Backend.
func (d *Device) DestroyMesh(id gpucore.MeshID) {
	m, ok := d.meshes[id]
	if !ok {
		return
	}
	delete(d.meshes, id)
	if m.texture != nil {
		d.settle()
		d.device.DestroyBuffer(m.texture)
	}
}

// CreateProgram implements gpucore.Backend. Programs are built once per
// name; later calls return the same handle.
func (d *Device) CreateProgram(name gpucore.ProgramName) (gpucore.ProgramID, error) {
	if d.closed {
		return gpucore.InvalidID, gpucore.ErrClosed
	}
	if id, ok := d.byName[name]; ok {
		return id, nil
	}
	if _, err := gpucore.StageOf(name); err != nil {
		return gpucore.InvalidID, err
	}
	p, err := d.program(name)
	if err != nil {
		return gpucore.InvalidID, err
	}
	id := gpucore.ProgramID(d.allocID())
	d.programs[id] = p
	d.byName[name] = id
	return id, nil
}

func (d *Device) lookup(id gpucore.ResourceID) (*resource, error) {
	r, ok := d.resources[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", gpucore.ErrUnknownResource, id)
	}
	return r, nil
}

// ClearRenderTargetResource implements gpucore.Backend.
func (d *Device) ClearRenderTargetResource(id gpucore.ResourceID, c gpucore.Color) error {
	if d.closed {
		return gpucore.ErrClosed
	}
	r, err := d.lookup(id)
	if err != nil {
		return err
	}
	if !r.isTexture() || r.isDepth() || r.readOnly() {
		return fmt.Errorf("%w: clear %q as color target", gpucore.ErrResourceKind, r.cfg.Label)
	}
	return d.fill(r.buf, r.words, clearPattern(r.cfg.Format, c))
}

// ClearDepthResource implements gpucore.Backend.
func (d *Device) ClearDepthResource(id gpucore.ResourceID, depth float32) error {
	if d.closed {
		return gpucore.ErrClosed
	}
	r, err := d.lookup(id)
	if err != nil {
		return err
	}
	if !r.isDepth() || r.readOnly() {
		return fmt.Errorf("%w: clear %q as depth target", gpucore.ErrResourceKind, r.cfg.Label)
	}
	return d.fill(r.buf, r.words, clearPattern(r.cfg.Format, gpucore.Color{R: depth}))
}

// ClearWritableResource implements gpucore.Backend.
func (d *Device) ClearWritableResource(id gpucore.ResourceID, value uint32) error {
	if d.closed {
		return gpucore.ErrClosed
	}
	r, err := d.lookup(id)
	if err != nil {
		return err
	}
	if r.isTexture() {
		return fmt.Errorf("%w: clear %q as structured buffer", gpucore.ErrResourceKind, r.cfg.Label)
	}
	if err := d.fill(r.buf, r.words, []uint32{value}); err != nil {
		return err
	}
	return d.fill(r.counter, 1, []uint32{0})
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
			slogger().Warn("wgpu: draw UAV slot out of range", "slot", i)
			break
		}
		d.drawUAVs[i] = u.Resource
		d.queueReset(u)
	}
}

// BindReadableResources implements gpucore.Backend.
func (d *Device) BindReadableResources(start int, ids ...gpucore.ResourceID) {
	for i, id := range ids {
		slot := start + i
		if slot < 0 || slot >= len(d.readable) {
			slogger().Warn("wgpu: readable slot out of range", "slot", slot)
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
			slogger().Warn("wgpu: writable slot out of range", "slot", slot)
			continue
		}
		d.writable[slot] = u.Resource
		d.queueReset(u)
	}
}

// queueReset records an InitialCount. Bind calls cannot fail, so the reset
// is recorded as a fill kernel before the next command that may observe it.
func (d *Device) queueReset(u gpucore.UAVBinding) {
	if u.InitialCount == gpucore.KeepCounter {
		return
	}
	if r, ok := d.resources[u.Resource]; ok && !r.isTexture() {
		d.resets = append(d.resets, counterReset{id: u.Resource, value: u.InitialCount})
	}
}

func (d *Device) applyResets() error {
	resets := d.resets
	d.resets = d.resets[:0]
	for _, rs := range resets {
		r, ok := d.resources[rs.id]
		if !ok {
			continue
		}
		if err := d.fill(r.counter, 1, []uint32{rs.value}); err != nil {
			return err
		}
	}
	return nil
}

// UseProgram implements gpucore.Backend.
func (d *Device) UseProgram(id gpucore.ProgramID) { d.current = id }

// SetPipelineState implements gpucore.Backend.
func (d *Device) SetPipelineState(ps gpucore.PipelineState) { d.state = ps }

// SetConstants implements gpucore.Backend.
func (d *Device) SetConstants(c *gpucore.Constants) { d.constants = *c }

// ReadColor implements gpucore.Backend.
func (d *Device) ReadColor(id gpucore.ResourceID) ([]gpucore.Color, error) {
	if d.closed {
		return nil, gpucore.ErrClosed
	}
	r, err := d.lookup(id)
	if err != nil {
		return nil, err
	}
	if !r.isTexture() {
		return nil, fmt.Errorf("%w: read %q as texture", gpucore.ErrResourceKind, r.cfg.Label)
	}
	data, err := d.readback([]hal.Buffer{r.buffer()}, []uint64{r.size()})
	if err != nil {
		return nil, err
	}
	return decodeColors(data[0], r.storage().channels), nil
}

// ReadDepth implements gpucore.Backend.
func (d *Device) ReadDepth(id gpucore.ResourceID) ([]float32, error) {
	if d.closed {
		return nil, gpucore.ErrClosed
	}
	r, err := d.lookup(id)
	if err != nil {
		return nil, err
	}
	if !r.isTexture() || r.storage().channels != 1 {
		return nil, fmt.Errorf("%w: read %q as single-channel texture", gpucore.ErrResourceKind, r.cfg.Label)
	}
	data, err := d.readback([]hal.Buffer{r.buffer()}, []uint64{r.size()})
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(data[0])/4)
	for i := range out {
		out[i] = f32At(data[0], i*4)
	}
	return out, nil
}

// ReadBuffer implements gpucore.Backend.
func (d *Device) ReadBuffer(id gpucore.ResourceID) ([]uint32, uint32, error) {
	if d.closed {
		return nil, 0, gpucore.ErrClosed
	}
	r, err := d.lookup(id)
	if err != nil {
		return nil, 0, err
	}
	if r.isTexture() {
		return nil, 0, fmt.Errorf("%w: read %q as structured buffer", gpucore.ErrResourceKind, r.cfg.Label)
	}
	data, err := d.readback([]hal.Buffer{r.buf, r.counter}, []uint64{r.size(), 4})
	if err != nil {
		return nil, 0, err
	}
	return decodeWords(data[0]), decodeWords(data[1])[0], nil
}

// ReadCounter implements gpucore.Backend.
func (d *Device) ReadCounter(id gpucore.ResourceID) (uint32, error) {
	if d.closed {
		return 0, gpucore.ErrClosed
	}
	r, err := d.lookup(id)
	if err != nil {
		return 0, err
	}
	if r.isTexture() {
		return 0, fmt.Errorf("%w: read counter of %q", gpucore.ErrResourceKind, r.cfg.Label)
	}
	data, err := d.readback([]hal.Buffer{r.counter}, []uint64{4})
	if err != nil {
		return 0, err
	}
	return decodeWords(data[0])[0], nil
}

// Flush implements gpucore.Backend.
func (d *Device) Flush() error {
	if d.closed {
		return gpucore.ErrClosed
	}
	if err := d.applyResets(); err != nil {
		return err
	}
	return d.submit()
}

// Close implements gpucore.Backend. Unsubmitted commands are dropped.
func (d *Device) Close() {
	if d.closed {
		return
	}
	d.closed = true
	d.release()
	if !d.external {
		d.device.Destroy()
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	slogger().Debug("wgpu: device closed")
}

// release destroys every object the device created on the HAL device.
func (d *Device) release() {
	d.discard()
	for _, r := range d.resources {
		if r.parent == nil {
			d.destroyResource(r)
		}
	}
	for _, m := range d.meshes {
		if m.texture != nil {
			d.device.DestroyBuffer(m.texture)
		}
	}
	for _, p := range d.compiled {
		d.destroyProgram(p)
	}
	if d.dummyRead != nil {
		d.device.DestroyBuffer(d.dummyRead)
	}
	if d.dummyWrite != nil {
		d.device.DestroyBuffer(d.dummyWrite)
	}
	clear(d.resources)
	clear(d.meshes)
	clear(d.programs)
	clear(d.byName)
	clear(d.compiled)
	d.dummyRead, d.dummyWrite = nil, nil
}

var _ gpucore.Backend = (*Device)(nil)
