// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package haldevice

import "github.com/gogpu/gputypes"

// DefaultPipelineCacheSize is the number of render pipelines kept alive.
const DefaultPipelineCacheSize = 32

// Option configures a Device.
type Option func(*options)

type options struct {
	label        string
	clearColor   gputypes.Color
	shaders      map[*gputypes.VertexBufferLayout]string
	pipelines    int
	targetFormat gputypes.TextureFormat
}

func defaultOptions() options {
	return options{
		label:        "framepool",
		clearColor:   gputypes.Color{A: 1},
		shaders:      defaultShaders(),
		pipelines:    DefaultPipelineCacheSize,
		targetFormat: gputypes.TextureFormatBGRA8Unorm,
	}
}

// WithLabel sets the prefix of every hal object label.
func WithLabel(label string) Option {
	return func(o *options) {
		o.label = label
	}
}

// WithClearColor sets the color the first render pass of a frame clears to.
func WithClearColor(c gputypes.Color) Option {
	return func(o *options) {
		o.clearColor = c
	}
}

// WithShader registers WGSL source for vertices of the given layout. The
// module must export vs_main and fs_main and may read the viewport uniform
// at group 0, binding 0.
func WithShader(layout *gputypes.VertexBufferLayout, wgsl string) Option {
	return func(o *options) {
		o.shaders[layout] = wgsl
	}
}

// WithPipelineCacheSize sets how many render pipelines are kept. Evicted
// pipelines are destroyed once the device no longer uses them.
func WithPipelineCacheSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.pipelines = n
		}
	}
}

// WithTargetFormat sets the render target format used until the first
// SetRenderTarget call.
func WithTargetFormat(f gputypes.TextureFormat) Option {
	return func(o *options) {
		o.targetFormat = f
	}
}
