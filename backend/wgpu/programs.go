// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/oit/gpucore"
)

// program is a compiled kernel with its pipeline objects.
type program struct {
	name   gpucore.ProgramName
	stage  gpucore.Stage
	kernel kernel

	module     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	layout     hal.PipelineLayout
	pipeline   hal.ComputePipeline
}

// program returns the compiled kernel for name, building it on first use.
func (d *Device) program(name gpucore.ProgramName) (*program, error) {
	if p, ok := d.compiled[name]; ok {
		return p, nil
	}
	k, ok := kernels[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", gpucore.ErrUnknownProgram, name)
	}
	stage := gpucore.StageCompute
	if k.draw() {
		stage = gpucore.StageDraw
	}
	p := &program{name: name, stage: stage, kernel: k}
	if err := d.buildProgram(p); err != nil {
		d.destroyProgram(p)
		return nil, err
	}
	d.compiled[name] = p
	slogger().Debug("wgpu: program built", "program", name, "bindings", len(k.slots)+1)
	return p, nil
}

func (d *Device) buildProgram(p *program) error {
	label := string(p.name)

	src := hal.ShaderSource{}
	if d.opts.spirv {
		words, err := CompileSPIRV(p.name)
		if err != nil {
			return err
		}
		src.SPIRV = words
	} else {
		src.WGSL = p.kernel.source()
	}
	module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{Label: label, Source: src})
	if err != nil {
		return fmt.Errorf("wgpu: compile %s shader: %w", label, err)
	}
	p.module = module

	entries := make([]gputypes.BindGroupLayoutEntry, 0, len(p.kernel.slots)+1)
	entries = append(entries, gputypes.BindGroupLayoutEntry{
		Binding:    0,
		Visibility: gputypes.ShaderStageCompute,
		Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
	})
	for i, s := range p.kernel.slots {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    uint32(i + 1),
			Visibility: gputypes.ShaderStageCompute,
			Buffer:     &gputypes.BufferBindingLayout{Type: s.bindingType()},
		})
	}
	bindLayout, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   label + "_bind_layout",
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create %s bind group layout: %w", label, err)
	}
	p.bindLayout = bindLayout

	layout, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label + "_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{bindLayout},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create %s pipeline layout: %w", label, err)
	}
	p.layout = layout

	pipeline, err := d.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:   label + "_pipeline",
		Layout:  layout,
		Compute: hal.ComputeState{Module: module, EntryPoint: "main"},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create %s compute pipeline: %w", label, err)
	}
	p.pipeline = pipeline
	return nil
}

func (d *Device) destroyProgram(p *program) {
	if p.pipeline != nil {
		d.device.DestroyComputePipeline(p.pipeline)
	}
	if p.layout != nil {
		d.device.DestroyPipelineLayout(p.layout)
	}
	if p.bindLayout != nil {
		d.device.DestroyBindGroupLayout(p.bindLayout)
	}
	if p.module != nil {
		d.device.DestroyShaderModule(p.module)
	}
}
