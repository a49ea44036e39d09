// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package haldevice

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framepool"
	"github.com/gogpu/framepool/device"
)

// ErrNoShader is returned when a draw uses a vertex layout without a
// registered shader.
var ErrNoShader = errors.New("haldevice: no shader for vertex layout")

// pipelineKey identifies a render pipeline. Layouts are compared by
// pointer; the vertex formats share static layout tables.
type pipelineKey struct {
	topology gputypes.PrimitiveTopology
	layout   *gputypes.VertexBufferLayout
	format   gputypes.TextureFormat
	indexed  bool
	blended  bool
	blend    gputypes.BlendState
}

func keyFor(cmd device.DrawCommand, format gputypes.TextureFormat) pipelineKey {
	k := pipelineKey{
		topology: cmd.Topology,
		layout:   cmd.Layout,
		format:   format,
		indexed:  cmd.Indices != nil,
	}
	if cmd.Blend != nil {
		k.blended = true
		k.blend = *cmd.Blend
	}
	return k
}

// shaderModule returns the compiled module for layout, building it on
// first use.
func (d *Device) shaderModule(layout *gputypes.VertexBufferLayout) (hal.ShaderModule, error) {
	if m, ok := d.modules[layout]; ok {
		return m, nil
	}
	src, ok := d.opts.shaders[layout]
	if !ok {
		return nil, ErrNoShader
	}
	spirv, err := compileWGSL(src)
	if err != nil {
		return nil, err
	}
	m, err := d.raw.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  fmt.Sprintf("%s_shader_%d", d.opts.label, len(d.modules)),
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		return nil, fmt.Errorf("haldevice: create shader module: %w", err)
	}
	d.modules[layout] = m
	return m, nil
}

// pipeline returns the cached render pipeline for k.
func (d *Device) pipeline(k pipelineKey) (hal.RenderPipeline, error) {
	return d.pipelines.GetOrCreate(k, func() (hal.RenderPipeline, error) {
		return d.createPipeline(k)
	})
}

func (d *Device) createPipeline(k pipelineKey) (hal.RenderPipeline, error) {
	module, err := d.shaderModule(k.layout)
	if err != nil {
		return nil, err
	}

	var blend *gputypes.BlendState
	if k.blended {
		b := k.blend
		blend = &b
	}
	primitive := gputypes.PrimitiveState{
		Topology: k.topology,
		CullMode: gputypes.CullModeNone,
	}
	if k.indexed && (k.topology == gputypes.PrimitiveTopologyTriangleStrip || k.topology == gputypes.PrimitiveTopologyLineStrip) {
		f := gputypes.IndexFormatUint16
		primitive.StripIndexFormat = &f
	}

	p, err := d.raw.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  d.opts.label + "_pipeline",
		Layout: d.pipeLayout,
		Vertex: hal.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers:    []gputypes.VertexBufferLayout{*k.layout},
		},
		Fragment: &hal.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    k.format,
					Blend:     blend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: primitive,
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("haldevice: create render pipeline: %w", err)
	}
	framepool.Logger().Debug("haldevice: render pipeline created",
		"topology", k.topology, "format", k.format, "blended", k.blended)
	return p, nil
}

// retirePipeline destroys p after the work that may still reference it
// has completed.
func (d *Device) retirePipeline(_ pipelineKey, p hal.RenderPipeline) {
	d.retiredPipelines = append(d.retiredPipelines, p)
}
