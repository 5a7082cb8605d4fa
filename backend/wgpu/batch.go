// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/oit/gpucore"
)

// maxBatchPasses bounds the passes recorded before an implicit submit.
const maxBatchPasses = 512

// params is the uniform block of every kernel. It must match Params in
// shaders/common.wgsl.
type params struct {
	Constants gpucore.Constants

	Dims     [4]uint32
	Tex      [4]uint32
	Formats  [4]uint32
	State    [4]uint32
	Counts   [4]uint32
	Fill     [4]uint32
	FillInfo [4]uint32
}

// Bits of params.Dims[3].
const (
	boundTarget0 = 1 << iota
	boundTarget1
	boundReadable0
	boundReadable1
)

func (p *params) bytes() []byte {
	var buf bytes.Buffer
	buf.Grow(binary.Size(p))
	// Writing fixed-size fields to a bytes.Buffer cannot fail.
	_ = binary.Write(&buf, binary.LittleEndian, p)
	return buf.Bytes()
}

// batch is the command encoder being recorded and the transient objects its
// passes reference. Everything is released after the batch completes.
type batch struct {
	encoder    hal.CommandEncoder
	bindGroups []hal.BindGroup
	buffers    []hal.Buffer
	passes     int
}

// encoder returns the open command encoder, starting a batch if needed.
func (d *Device) encoder() (hal.CommandEncoder, error) {
	if d.batch.encoder != nil {
		return d.batch.encoder, nil
	}
	enc, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "oit"})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := enc.BeginEncoding("oit"); err != nil {
		return nil, fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	d.batch.encoder = enc
	return enc, nil
}

// upload creates a transient buffer holding data.
func (d *Device) upload(label string, usage gputypes.BufferUsage, data []byte) (hal.Buffer, error) {
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create %s buffer: %w", label, err)
	}
	d.queue.WriteBuffer(buf, 0, data)
	d.batch.buffers = append(d.batch.buffers, buf)
	return buf, nil
}

// dispatch records one compute pass of prog. buffers holds one buffer per
// declared slot of the kernel.
func (d *Device) dispatch(prog *program, prm *params, buffers []hal.Buffer, x, y, z uint32) error {
	if x == 0 || y == 0 || z == 0 {
		return nil
	}
	enc, err := d.encoder()
	if err != nil {
		return err
	}
	uniform, err := d.upload(string(prog.name)+"/params", gputypes.BufferUsageUniform, prm.bytes())
	if err != nil {
		return err
	}

	entries := make([]gputypes.BindGroupEntry, 0, len(buffers)+1)
	entries = append(entries, bufferEntry(0, uniform))
	for i, b := range buffers {
		entries = append(entries, bufferEntry(uint32(i+1), b))
	}
	bg, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   string(prog.name),
		Layout:  prog.bindLayout,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create bind group for %s: %w", prog.name, err)
	}
	d.batch.bindGroups = append(d.batch.bindGroups, bg)

	pass := enc.BeginComputePass(&hal.ComputePassDescriptor{Label: string(prog.name)})
	pass.SetPipeline(prog.pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Dispatch(x, y, z)
	pass.End()
	d.batch.passes++

	slogger().Debug("wgpu: dispatched", "program", prog.name, "groups", [3]uint32{x, y, z})
	if d.batch.passes >= maxBatchPasses {
		return d.submit()
	}
	return nil
}

func bufferEntry(binding uint32, buf hal.Buffer) gputypes.BindGroupEntry {
	return gputypes.BindGroupEntry{
		Binding: binding,
		Resource: gputypes.BufferBinding{
			Buffer: buf.NativeHandle(),
			Offset: 0,
			Size:   0, // 0 = entire buffer
		},
	}
}

// fill records a fill of the first n words of buf with pattern.
func (d *Device) fill(buf hal.Buffer, n int, pattern []uint32) error {
	if n == 0 {
		return nil
	}
	prog, err := d.program(programFill)
	if err != nil {
		return err
	}
	prm := &params{}
	copy(prm.Fill[:], pattern)
	prm.FillInfo = [4]uint32{uint32(n), uint32(len(pattern))}

	const groupSize, maxGroups = 64, 65535
	groups := (n + groupSize - 1) / groupSize
	x := min(groups, maxGroups)
	y := (groups + x - 1) / x
	return d.dispatch(prog, prm, []hal.Buffer{buf}, uint32(x), uint32(y), 1)
}

// submit ends the open batch, submits it and waits for completion.
func (d *Device) submit() error {
	if d.batch.encoder == nil {
		return nil
	}
	defer d.releaseBatch()

	cmdBuf, err := d.batch.encoder.EndEncoding()
	d.batch.encoder = nil
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("wgpu: create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)

	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("%w: submit: %w", gpucore.ErrDeviceLost, err)
	}
	ok, err := d.device.Wait(fence, 1, d.opts.fenceTimeout)
	if err != nil {
		return fmt.Errorf("%w: wait: %w", gpucore.ErrDeviceLost, err)
	}
	if !ok {
		return fmt.Errorf("%w: timeout after %v", gpucore.ErrDeviceLost, d.opts.fenceTimeout)
	}
	return nil
}

// discard drops the open batch without submitting it.
func (d *Device) discard() {
	if d.batch.encoder != nil {
		d.batch.encoder.DiscardEncoding()
		d.batch.encoder = nil
	}
	d.releaseBatch()
}

func (d *Device) releaseBatch() {
	for _, bg := range d.batch.bindGroups {
		d.device.DestroyBindGroup(bg)
	}
	for _, b := range d.batch.buffers {
		d.device.DestroyBuffer(b)
	}
	d.batch = batch{}
}

// readback copies bufs into staging memory, submits every pending command
// and returns the contents.
func (d *Device) readback(bufs []hal.Buffer, sizes []uint64) ([][]byte, error) {
	if err := d.applyResets(); err != nil {
		return nil, err
	}
	enc, err := d.encoder()
	if err != nil {
		return nil, err
	}
	staging := make([]hal.Buffer, 0, len(bufs))
	defer func() {
		for _, s := range staging {
			d.device.DestroyBuffer(s)
		}
	}()
	for i, b := range bufs {
		s, err := d.device.CreateBuffer(&hal.BufferDescriptor{
			Label: "oit_staging",
			Size:  sizes[i],
			Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			d.discard()
			return nil, fmt.Errorf("wgpu: create staging buffer: %w", err)
		}
		staging = append(staging, s)
		enc.CopyBufferToBuffer(b, s, []hal.BufferCopy{{SrcOffset: 0, DstOffset: 0, Size: sizes[i]}})
	}
	if err := d.submit(); err != nil {
		return nil, err
	}
	out := make([][]byte, len(staging))
	for i, s := range staging {
		out[i] = make([]byte, sizes[i])
		if err := d.queue.ReadBuffer(s, 0, out[i]); err != nil {
			return nil, fmt.Errorf("wgpu: readback: %w", err)
		}
	}
	return out, nil
}
