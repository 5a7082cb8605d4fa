// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"math"
	"sync/atomic"

	"github.com/mrjoshuak/go-openexr/half"

	"github.com/gogpu/oit/gpucore"
	"github.com/gogpu/oit/internal/blend"
)

// resource is a texture or structured buffer stored as 32-bit words.
//
// Textures keep channels float32 words per texel; every store rounds the
// value to the precision of the format. Structured resources keep their raw
// words plus the hidden counter.
type resource struct {
	id       gpucore.ResourceID
	cfg      gpucore.ResourceConfig
	words    []uint32
	channels int
	counter  uint32

	// parent is set on the read-only view of a depth resource; the view
	// shares parent's words.
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

func newTexture(id gpucore.ResourceID, cfg gpucore.ResourceConfig) *resource {
	ch := channelsOf(cfg.Format)
	return &resource{
		id:       id,
		cfg:      cfg,
		words:    make([]uint32, cfg.Width*cfg.Height*ch),
		channels: ch,
	}
}

func newStructured(id gpucore.ResourceID, cfg gpucore.ResourceConfig) *resource {
	r := &resource{id: id, cfg: cfg, words: make([]uint32, cfg.SizeBytes()/4)}
	if cfg.InitialData != nil {
		for i := range r.words {
			b := cfg.InitialData[i*4:]
			r.words[i] = uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
		}
	}
	return r
}

// storage returns the resource owning the words.
func (r *resource) storage() *resource {
	if r.parent != nil {
		return r.parent
	}
	return r
}

func (r *resource) isTexture() bool { return r.storage().cfg.Kind == gpucore.KindTexture }

func (r *resource) isDepth() bool { return r.storage().cfg.Format.IsDepth() }

func (r *resource) readOnly() bool { return r.parent != nil }

func (r *resource) texels() int { return r.cfg.Width * r.cfg.Height }

// quantize rounds v to the precision of format.
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

func (r *resource) color(i int) gpucore.Color {
	s := r.storage()
	if s.channels == 1 {
		return gpucore.Color{R: math.Float32frombits(s.words[i])}
	}
	w := s.words[i*4 : i*4+4]
	return gpucore.Color{
		R: math.Float32frombits(w[0]),
		G: math.Float32frombits(w[1]),
		B: math.Float32frombits(w[2]),
		A: math.Float32frombits(w[3]),
	}
}

func (r *resource) setColor(i int, c gpucore.Color) {
	f := r.cfg.Format
	if r.channels == 1 {
		r.words[i] = math.Float32bits(quantize(f, c.R))
		return
	}
	w := r.words[i*4 : i*4+4]
	w[0] = math.Float32bits(quantize(f, c.R))
	w[1] = math.Float32bits(quantize(f, c.G))
	w[2] = math.Float32bits(quantize(f, c.B))
	w[3] = math.Float32bits(quantize(f, c.A))
}

// value returns channel 0 of texel i.
func (r *resource) value(i int) float32 {
	s := r.storage()
	return math.Float32frombits(s.words[i*s.channels])
}

func (r *resource) setValue(i int, v float32) {
	r.words[i*r.channels] = math.Float32bits(quantize(r.cfg.Format, v))
}

// loadColorAtomic and storeColorAtomic access a texel from unordered
// kernels. Each channel is atomic on its own; a texel as a whole is not.
func (r *resource) loadColorAtomic(i int) gpucore.Color {
	w := r.words[i*4 : i*4+4]
	return gpucore.Color{
		R: math.Float32frombits(atomic.LoadUint32(&w[0])),
		G: math.Float32frombits(atomic.LoadUint32(&w[1])),
		B: math.Float32frombits(atomic.LoadUint32(&w[2])),
		A: math.Float32frombits(atomic.LoadUint32(&w[3])),
	}
}

func (r *resource) storeColorAtomic(i int, c gpucore.Color) {
	f := r.cfg.Format
	w := r.words[i*4 : i*4+4]
	atomic.StoreUint32(&w[0], math.Float32bits(quantize(f, c.R)))
	atomic.StoreUint32(&w[1], math.Float32bits(quantize(f, c.G)))
	atomic.StoreUint32(&w[2], math.Float32bits(quantize(f, c.B)))
	atomic.StoreUint32(&w[3], math.Float32bits(quantize(f, c.A)))
}

func (r *resource) fillColor(c gpucore.Color) {
	n := r.texels()
	if n == 0 {
		return
	}
	r.setColor(0, c)
	for i := 1; i < n; i++ {
		copy(r.words[i*r.channels:(i+1)*r.channels], r.words[:r.channels])
	}
}

func (r *resource) fillWords(v uint32) {
	for i := range r.words {
		r.words[i] = v
	}
}
