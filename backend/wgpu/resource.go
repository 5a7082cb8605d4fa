// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"encoding/binary"
	"fmt"
	"image"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/mrjoshuak/go-openexr/half"

	"github.com/gogpu/oit/gpucore"
	"github.com/gogpu/oit/internal/blend"
)

const storageUsage = gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst | gputypes.BufferUsageCopySrc

// resource is a texture or structured buffer backed by a storage buffer.
type resource struct {
	id       gpucore.ResourceID
	cfg      gpucore.ResourceConfig
	buf      hal.Buffer
	words    int
	channels int

	// counter is the hidden counter of a structured resource.
	counter hal.Buffer

	// parent is set on the read-only view of a depth resource; the view
	// shares parent's buffer.
	parent *resource
	view   *resource
}

func channelsOf(f gpucore.Format) int {
	switch f {
	case gpucore.FormatR16Float, gpucore.FormatR32Float, gpucore.FormatDepth32Float:
		return 1
	default:
		return 4
	}
}

func (r *resource) storage() *resource {
	if r.parent != nil {
		return r.parent
	}
	return r
}

func (r *resource) isTexture() bool { return r.storage().cfg.Kind == gpucore.KindTexture }

func (r *resource) isDepth() bool { return r.storage().cfg.Format.IsDepth() }

func (r *resource) readOnly() bool { return r.parent != nil }

func (r *resource) buffer() hal.Buffer { return r.storage().buf }

func (r *resource) format() gpucore.Format { return r.storage().cfg.Format }

func (r *resource) size() uint64 { return uint64(r.storage().words) * 4 }

// newResource allocates the buffers of a validated descriptor.
func (d *Device) newResource(id gpucore.ResourceID, cfg *gpucore.ResourceConfig) (*resource, error) {
	r := &resource{id: id, cfg: *cfg}
	if cfg.Kind == gpucore.KindTexture {
		r.channels = channelsOf(cfg.Format)
		r.words = cfg.Width * cfg.Height * r.channels
	} else {
		r.words = cfg.SizeBytes() / 4
	}
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: cfg.Label,
		Size:  uint64(r.words) * 4,
		Usage: storageUsage,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create buffer %q: %w", cfg.Label, err)
	}
	r.buf = buf
	if cfg.Kind == gpucore.KindStructured {
		counter, err := d.device.CreateBuffer(&hal.BufferDescriptor{
			Label: cfg.Label + "/counter",
			Size:  4,
			Usage: storageUsage,
		})
		if err != nil {
			d.device.DestroyBuffer(buf)
			return nil, fmt.Errorf("wgpu: create counter of %q: %w", cfg.Label, err)
		}
		r.counter = counter
		d.queue.WriteBuffer(counter, 0, make([]byte, 4))
	}
	if cfg.InitialData != nil {
		d.queue.WriteBuffer(buf, 0, cfg.InitialData)
	} else {
		d.queue.WriteBuffer(buf, 0, make([]byte, r.words*4))
	}
	return r, nil
}

func (d *Device) destroyResource(r *resource) {
	if r.buf != nil {
		d.device.DestroyBuffer(r.buf)
	}
	if r.counter != nil {
		d.device.DestroyBuffer(r.counter)
	}
}

// quantize rounds v to the precision of format, as stores to a texture of
// that format do.
func quantize(f gpucore.Format, v float32) float32 {
	switch f {
	case gpucore.FormatRGBA8Unorm:
		return blend.Quantize8(v)
	case gpucore.FormatRGBA16Float, gpucore.FormatR16Float:
		return half.FromFloat32(v).Float32()
	default:
		return v
	}
}

// clearPattern returns the words of one texel of c stored in format.
func clearPattern(f gpucore.Format, c gpucore.Color) []uint32 {
	if channelsOf(f) == 1 {
		return []uint32{math.Float32bits(quantize(f, c.R))}
	}
	return []uint32{
		math.Float32bits(quantize(f, c.R)),
		math.Float32bits(quantize(f, c.G)),
		math.Float32bits(quantize(f, c.B)),
		math.Float32bits(quantize(f, c.A)),
	}
}

// texelBytes converts an NRGBA image to premultiplied f32 texels.
func texelBytes(img *image.NRGBA) (data []byte, w, h int) {
	b := img.Bounds()
	w, h = b.Dx(), b.Dy()
	data = make([]byte, w*h*16)
	for y := range h {
		for x := range w {
			off := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			p := img.Pix[off : off+4]
			a := float32(p[3]) / 255
			o := (y*w + x) * 16
			binary.LittleEndian.PutUint32(data[o:], math.Float32bits(float32(p[0])/255*a))
			binary.LittleEndian.PutUint32(data[o+4:], math.Float32bits(float32(p[1])/255*a))
			binary.LittleEndian.PutUint32(data[o+8:], math.Float32bits(float32(p[2])/255*a))
			binary.LittleEndian.PutUint32(data[o+12:], math.Float32bits(a))
		}
	}
	return data, w, h
}

func decodeColors(data []byte, channels int) []gpucore.Color {
	n := len(data) / 4 / channels
	out := make([]gpucore.Color, n)
	for i := range out {
		o := i * channels * 4
		if channels == 1 {
			out[i] = gpucore.Color{R: f32At(data, o)}
			continue
		}
		out[i] = gpucore.Color{R: f32At(data, o), G: f32At(data, o+4), B: f32At(data, o+8), A: f32At(data, o+12)}
	}
	return out
}

func decodeWords(data []byte) []uint32 {
	out := make([]uint32, len(data)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return out
}

func f32At(data []byte, o int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(data[o:]))
}
