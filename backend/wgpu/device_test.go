// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"encoding/binary"
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/oit/backend"
	"github.com/gogpu/oit/gpucore"
	"github.com/gogpu/oit/internal/raster"
)

// createNoopDevice creates a noop device and queue for testing.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		openDev.Device.Destroy()
		instance.Destroy()
	})
	return openDev.Device, openDev.Queue
}

func newTestDevice(t *testing.T) *Device {
	t.Helper()
	device, queue := createNoopDevice(t)
	d, err := NewWithDevice(device, queue, backend.DeviceConfig{Width: 16, Height: 8})
	if err != nil {
		t.Fatalf("NewWithDevice() = %v", err)
	}
	t.Cleanup(d.Close)
	return d
}

func TestNewWithDevice(t *testing.T) {
	d := newTestDevice(t)
	if d.Name() != backend.BackendWGPU {
		t.Errorf("Name() = %q, want %q", d.Name(), backend.BackendWGPU)
	}
	if w, h := d.Size(); w != 16 || h != 8 {
		t.Errorf("Size() = %dx%d, want 16x8", w, h)
	}
	bb := d.resources[d.Backbuffer()]
	if bb == nil {
		t.Fatal("backbuffer not registered")
	}
	if bb.cfg.Format != gpucore.FormatRGBA8Unorm || bb.words != 16*8*4 {
		t.Errorf("backbuffer = %v with %d words, want RGBA8Unorm with %d", bb.cfg.Format, bb.words, 16*8*4)
	}
	if d.Adapter() != "" {
		t.Errorf("Adapter() = %q for a caller's device, want empty", d.Adapter())
	}
}

func TestNewWithDeviceErrors(t *testing.T) {
	if _, err := NewWithDevice(nil, nil, backend.DeviceConfig{Width: 4, Height: 4}); !errors.Is(err, gpucore.ErrInvalidConfig) {
		t.Errorf("NewWithDevice(nil) = %v, want ErrInvalidConfig", err)
	}
	device, queue := createNoopDevice(t)
	if _, err := NewWithDevice(device, queue, backend.DeviceConfig{}); err == nil {
		t.Error("NewWithDevice(zero size) = nil, want error")
	}
}

type testProvider struct {
	device hal.Device
	queue  hal.Queue
}

func (p *testProvider) Device() gpucontext.Device   { return nil }
func (p *testProvider) Queue() gpucontext.Queue     { return nil }
func (p *testProvider) Adapter() gpucontext.Adapter { return nil }
func (p *testProvider) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA8Unorm
}
func (p *testProvider) HalDevice() any { return p.device }
func (p *testProvider) HalQueue() any  { return p.queue }

// surfaceProvider exposes only the public gpucontext interfaces.
type surfaceProvider struct{}

func (surfaceProvider) Device() gpucontext.Device   { return nil }
func (surfaceProvider) Queue() gpucontext.Queue     { return nil }
func (surfaceProvider) Adapter() gpucontext.Adapter { return nil }
func (surfaceProvider) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatBGRA8Unorm
}

func TestNewFromProvider(t *testing.T) {
	device, queue := createNoopDevice(t)
	d, err := NewFromProvider(&testProvider{device: device, queue: queue}, backend.DeviceConfig{Width: 8, Height: 8})
	if err != nil {
		t.Fatalf("NewFromProvider() = %v", err)
	}
	defer d.Close()
	if !d.external {
		t.Error("device from a provider must not own the HAL device")
	}

	if _, err := NewFromProvider(&testProvider{}, backend.DeviceConfig{Width: 8, Height: 8}); !errors.Is(err, gpucore.ErrInvalidConfig) {
		t.Errorf("NewFromProvider(nil HAL) = %v, want ErrInvalidConfig", err)
	}
	if _, err := NewFromProvider(surfaceProvider{}, backend.DeviceConfig{Width: 8, Height: 8}); !errors.Is(err, gpucore.ErrInvalidConfig) {
		t.Errorf("NewFromProvider(no HAL accessors) = %v, want ErrInvalidConfig", err)
	}
}

func TestCreateProgram(t *testing.T) {
	d := newTestDevice(t)
	for _, name := range append(append([]gpucore.ProgramName{}, gpucore.DrawPrograms...), gpucore.ComputePrograms...) {
		id, err := d.CreateProgram(name)
		if err != nil {
			t.Fatalf("CreateProgram(%s) = %v", name, err)
		}
		again, _ := d.CreateProgram(name)
		if again != id {
			t.Errorf("CreateProgram(%s) twice = %d and %d, want one handle", name, id, again)
		}
		want, _ := gpucore.StageOf(name)
		if got := d.programs[id].stage; got != want {
			t.Errorf("program %s stage = %v, want %v", name, got, want)
		}
	}
	if _, err := d.CreateProgram("raytrace"); !errors.Is(err, gpucore.ErrUnknownProgram) {
		t.Errorf("CreateProgram(raytrace) = %v, want ErrUnknownProgram", err)
	}
	if _, err := d.CreateProgram(programFill); !errors.Is(err, gpucore.ErrUnknownProgram) {
		t.Errorf("CreateProgram(fill) = %v, want ErrUnknownProgram", err)
	}
}

func TestResources(t *testing.T) {
	d := newTestDevice(t)

	rt, err := d.CreateRenderTargetResource("accum", gpucore.FormatRGBA16Float)
	if err != nil {
		t.Fatalf("CreateRenderTargetResource() = %v", err)
	}
	if _, err := d.CreateRenderTargetResource("bad", gpucore.FormatDepth32Float); !errors.Is(err, gpucore.ErrInvalidConfig) {
		t.Errorf("CreateRenderTargetResource(depth format) = %v, want ErrInvalidConfig", err)
	}

	dt, err := d.CreateDepthResource("depth")
	if err != nil {
		t.Fatalf("CreateDepthResource() = %v", err)
	}
	view := d.resources[dt.ReadOnly]
	if view == nil || view.buffer() != d.resources[dt.Resource].buf {
		t.Error("read-only view must share the depth buffer")
	}

	sb, err := d.CreateResourceFromConfig(&gpucore.ResourceConfig{
		Label: "nodes", Kind: gpucore.KindStructured, ElementStride: 24, ElementCount: 10,
	})
	if err != nil {
		t.Fatalf("CreateResourceFromConfig() = %v", err)
	}
	if r := d.resources[sb]; r.words != 60 || r.counter == nil {
		t.Errorf("structured resource has %d words, counter %v; want 60 words and a counter", r.words, r.counter)
	}

	if _, err := d.CreateResourceFromConfig(&gpucore.ResourceConfig{
		Label: "small", Kind: gpucore.KindTexture, Width: 4, Height: 4, Format: gpucore.FormatR32Float,
	}); !errors.Is(err, gpucore.ErrInvalidConfig) {
		t.Errorf("texture of another size = %v, want ErrInvalidConfig", err)
	}

	kindTests := []struct {
		name string
		err  error
	}{
		{"clear structured as color", d.ClearRenderTargetResource(sb, gpucore.Black)},
		{"clear read-only view", d.ClearDepthResource(dt.ReadOnly, 1)},
		{"clear color as depth", d.ClearDepthResource(rt, 1)},
		{"clear texture as structured", d.ClearWritableResource(rt, 0)},
	}
	for _, tt := range kindTests {
		if !errors.Is(tt.err, gpucore.ErrResourceKind) {
			t.Errorf("%s = %v, want ErrResourceKind", tt.name, tt.err)
		}
	}
	if _, err := d.ReadDepth(rt); !errors.Is(err, gpucore.ErrResourceKind) {
		t.Errorf("ReadDepth(color) = %v, want ErrResourceKind", err)
	}
	if _, _, err := d.ReadBuffer(rt); !errors.Is(err, gpucore.ErrResourceKind) {
		t.Errorf("ReadBuffer(texture) = %v, want ErrResourceKind", err)
	}
	if _, err := d.ReadColor(sb); !errors.Is(err, gpucore.ErrResourceKind) {
		t.Errorf("ReadColor(structured) = %v, want ErrResourceKind", err)
	}

	d.DestroyResource(dt.Resource)
	if _, ok := d.resources[dt.ReadOnly]; ok {
		t.Error("destroying a depth resource must release its view")
	}
	if _, err := d.ReadColor(dt.Resource); !errors.Is(err, gpucore.ErrUnknownResource) {
		t.Errorf("ReadColor(destroyed) = %v, want ErrUnknownResource", err)
	}
}

func TestBindingsQueueCounterResets(t *testing.T) {
	d := newTestDevice(t)
	sb, err := d.CreateResourceFromConfig(&gpucore.ResourceConfig{
		Label: "heads", Kind: gpucore.KindStructured, ElementStride: 4, ElementCount: 128,
	})
	if err != nil {
		t.Fatal(err)
	}
	d.BindWritableResourcesToComputeShader(0, gpucore.Writable(d.Backbuffer()), gpucore.UAVBinding{Resource: sb})
	d.BindUAVsRenderAndDepthTargets(nil, gpucore.InvalidID, []gpucore.UAVBinding{gpucore.Writable(sb)})
	if len(d.resets) != 1 || d.resets[0] != (counterReset{id: sb, value: 0}) {
		t.Errorf("resets = %+v, want one reset of %d to 0", d.resets, sb)
	}
	d.BindWritableResourcesToComputeShader(5, gpucore.Writable(sb))
	if d.writable != [gpucore.MaxComputeUAVSlots]gpucore.ResourceID{d.Backbuffer(), sb} {
		t.Errorf("writable = %v after out-of-range bind", d.writable)
	}
}

func TestDrawAndDispatchErrors(t *testing.T) {
	d := newTestDevice(t)
	mesh, err := d.CreateMesh(&gpucore.MeshDesc{
		Label:    "quad",
		Vertices: []gpucore.Vertex{{Pos: [3]float32{-1, -1, 0}}, {Pos: [3]float32{1, -1, 0}}, {Pos: [3]float32{0, 1, 0}}},
		Indices:  []uint32{0, 1, 2},
	})
	if err != nil {
		t.Fatalf("CreateMesh() = %v", err)
	}
	if err := d.DrawMesh(mesh); !errors.Is(err, gpucore.ErrNoProgram) {
		t.Errorf("DrawMesh(no program) = %v, want ErrNoProgram", err)
	}
	if err := d.DrawMesh(mesh + 100); !errors.Is(err, gpucore.ErrUnknownResource) {
		t.Errorf("DrawMesh(unknown) = %v, want ErrUnknownResource", err)
	}

	clear, _ := d.CreateProgram(gpucore.ProgramLinkedListClear)
	d.UseProgram(clear)
	if err := d.DrawMesh(mesh); !errors.Is(err, gpucore.ErrNoProgram) {
		t.Errorf("DrawMesh(compute program) = %v, want ErrNoProgram", err)
	}

	blend, _ := d.CreateProgram(gpucore.ProgramUAVBlend)
	d.UseProgram(blend)
	if err := d.ComputeShaderDispatch(1, 1, 1); !errors.Is(err, gpucore.ErrNoProgram) {
		t.Errorf("ComputeShaderDispatch(draw program) = %v, want ErrNoProgram", err)
	}
	d.BindRenderAndDepthResources([]gpucore.ResourceID{d.Backbuffer()}, gpucore.InvalidID)
	if err := d.DrawMesh(mesh); !errors.Is(err, gpucore.ErrInvalidConfig) {
		t.Errorf("unordered DrawMesh with a render target = %v, want ErrInvalidConfig", err)
	}

	if _, err := d.CreateMesh(&gpucore.MeshDesc{Label: "bad", Indices: []uint32{0, 1}}); !errors.Is(err, gpucore.ErrInvalidConfig) {
		t.Errorf("CreateMesh(bad) = %v, want ErrInvalidConfig", err)
	}
}

func TestClose(t *testing.T) {
	device, queue := createNoopDevice(t)
	d, err := NewWithDevice(device, queue, backend.DeviceConfig{Width: 4, Height: 4})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.CreateProgram(gpucore.ProgramCopy); err != nil {
		t.Fatal(err)
	}
	d.Close()
	d.Close()

	if _, err := d.CreateRenderTargetResource("x", gpucore.FormatRGBA8Unorm); !errors.Is(err, gpucore.ErrClosed) {
		t.Errorf("CreateRenderTargetResource after Close = %v, want ErrClosed", err)
	}
	if err := d.Flush(); !errors.Is(err, gpucore.ErrClosed) {
		t.Errorf("Flush after Close = %v, want ErrClosed", err)
	}
	if err := d.ComputeShaderDispatch(1, 1, 1); !errors.Is(err, gpucore.ErrClosed) {
		t.Errorf("ComputeShaderDispatch after Close = %v, want ErrClosed", err)
	}
	if len(d.compiled) != 0 || len(d.resources) != 0 {
		t.Errorf("Close left %d programs and %d resources", len(d.compiled), len(d.resources))
	}
}

var bindingRe = regexp.MustCompile(`@binding\((\d+)\) var<(\w+)(?:, (\w+))?> (\w+)`)

func TestSources(t *testing.T) {
	for _, name := range Programs() {
		t.Run(string(name), func(t *testing.T) {
			src, err := Source(name)
			if err != nil {
				t.Fatalf("Source() = %v", err)
			}
			if strings.Count(src, "fn main(") != 1 {
				t.Error("source must define one entry point")
			}
			if !strings.Contains(src, "@workgroup_size(") {
				t.Error("source has no workgroup size")
			}
			k := kernels[name]
			matches := bindingRe.FindAllStringSubmatch(src, -1)
			if len(matches) != len(k.slots)+1 {
				t.Fatalf("source declares %d bindings, want %d", len(matches), len(k.slots)+1)
			}
			storage := 0
			for i, m := range matches {
				if m[1] != strconv.Itoa(i) {
					t.Errorf("binding %d declared as %s", i, m[1])
				}
				if m[2] == "storage" {
					storage++
				}
			}
			if storage > 8 {
				t.Errorf("%d storage buffers exceed the default per-stage limit of 8", storage)
			}
			if k.draw() != strings.Contains(src, "fn program(") {
				t.Errorf("draw kernel = %v but program() presence differs", k.draw())
			}
		})
	}
	if _, err := Source("nope"); !errors.Is(err, gpucore.ErrUnknownProgram) {
		t.Errorf("Source(nope) = %v, want ErrUnknownProgram", err)
	}
}

func TestOrderedKernels(t *testing.T) {
	tests := []struct {
		name    gpucore.ProgramName
		ordered bool
	}{
		{gpucore.ProgramLinkedListPopulate, false},
		{gpucore.ProgramUAVBlend, false},
		{gpucore.ProgramUAVBlendOrdered, true},
		{gpucore.ProgramMLABPopulate, true},
		{gpucore.ProgramWeightedAccumulate, true},
	}
	for _, tt := range tests {
		src, _ := Source(tt.name)
		if got := strings.Contains(src, "gid.z >= P.dims.z"); got == tt.ordered {
			t.Errorf("%s: per-triangle invocations = %v, want %v", tt.name, got, !tt.ordered)
		}
	}
}

func TestParamsLayout(t *testing.T) {
	var p params
	if got := binary.Size(&p); got != 304 {
		t.Errorf("params size = %d, want 304", got)
	}
	p.Constants.Tint = gpucore.Color{R: 0.5}
	p.Dims = [4]uint32{7, 9, 11, 13}
	b := p.bytes()
	if got := math.Float32frombits(binary.LittleEndian.Uint32(b[128:])); got != 0.5 {
		t.Errorf("tint.r at offset 128 = %v, want 0.5", got)
	}
	if got := binary.LittleEndian.Uint32(b[192+12:]); got != 13 {
		t.Errorf("dims.w at offset 204 = %d, want 13", got)
	}
}

func TestPackTriangles(t *testing.T) {
	a := raster.Vertex{X: 0, Y: 0, Z: 0.5, InvW: 1}
	b := raster.Vertex{X: 4, Y: 0, Z: 0.5, InvW: 1}
	c := raster.Vertex{X: 0, Y: 4, Z: 0.5, InvW: 1, UW: 1}
	tri := raster.Triangle{A: a, B: b, C: c}
	if tri.Area() <= 0 {
		t.Fatalf("test triangle area = %v, want positive", tri.Area())
	}
	out := packTriangles([]raster.Triangle{tri, tri})
	if len(out) != 2*triangleWords*4 {
		t.Fatalf("len = %d, want %d", len(out), 2*triangleWords*4)
	}
	word := func(i int) uint32 { return binary.LittleEndian.Uint32(out[i*4:]) }
	if got := math.Float32frombits(word(12 + 4)); got != 1 {
		t.Errorf("c.uw = %v, want 1", got)
	}
	var own uint32
	for bit, e := range [][2]raster.Vertex{{b, c}, {c, a}, {a, b}} {
		if raster.OwnsEdge(e[0], e[1]) {
			own |= 1 << bit
		}
	}
	if word(18) != own {
		t.Errorf("ownership bits = %03b, want %03b", word(18), own)
	}
	if got := math.Float32frombits(word(19)); got != 1/tri.Area() {
		t.Errorf("inverse area = %v, want %v", got, 1/tri.Area())
	}
	if word(triangleWords+18) != own {
		t.Error("second triangle not packed at its stride")
	}
}

func TestClearPattern(t *testing.T) {
	tests := []struct {
		format gpucore.Format
		c      gpucore.Color
		want   []float32
	}{
		{gpucore.FormatRGBA8Unorm, gpucore.Color{R: 0.5, G: 2, B: -1, A: 1}, []float32{128.0 / 255, 1, 0, 1}},
		{gpucore.FormatRGBA32Float, gpucore.Color{R: 0.1, G: 0.2, B: 0.3, A: 0.4}, []float32{0.1, 0.2, 0.3, 0.4}},
		{gpucore.FormatR16Float, gpucore.Color{R: 1, G: 5}, []float32{1}},
		{gpucore.FormatDepth32Float, gpucore.Color{R: 0.75}, []float32{0.75}},
	}
	for _, tt := range tests {
		got := clearPattern(tt.format, tt.c)
		if len(got) != len(tt.want) {
			t.Errorf("clearPattern(%v) has %d words, want %d", tt.format, len(got), len(tt.want))
			continue
		}
		for i, w := range got {
			if f := math.Float32frombits(w); f != tt.want[i] {
				t.Errorf("clearPattern(%v)[%d] = %v, want %v", tt.format, i, f, tt.want[i])
			}
		}
	}
}

func TestCompareCodes(t *testing.T) {
	src, _ := Source(gpucore.ProgramOpaque)
	tests := []struct {
		fn   gputypes.CompareFunction
		name string
	}{
		{gputypes.CompareFunctionNever, "NEVER"},
		{gputypes.CompareFunctionLess, "LESS"},
		{gputypes.CompareFunctionLessEqual, "LESS_EQUAL"},
		{gputypes.CompareFunctionEqual, "EQUAL"},
		{gputypes.CompareFunctionGreater, "GREATER"},
		{gputypes.CompareFunctionGreaterEqual, "GREATER_EQUAL"},
		{gputypes.CompareFunctionNotEqual, "NOT_EQUAL"},
	}
	for _, tt := range tests {
		decl := "const COMPARE_" + tt.name + ": u32 = " + strconv.Itoa(int(compareCode(tt.fn))) + "u;"
		if !strings.Contains(src, decl) {
			t.Errorf("compareCode(%v) does not match %q", tt.fn, decl)
		}
	}
	if compareCode(gputypes.CompareFunctionAlways) != 7 {
		t.Errorf("compareCode(Always) = %d, want 7", compareCode(gputypes.CompareFunctionAlways))
	}
}
