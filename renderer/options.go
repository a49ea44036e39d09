// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderer

import (
	"github.com/gogpu/framepool/frame"
	"github.com/gogpu/framepool/stats"
)

// Defaults used by New.
const (
	// DefaultFreeInterval is how many frames a pooled resource may sit
	// unused before it is destroyed.
	DefaultFreeInterval frame.ResetID = 300
	// DefaultFreeCheckInterval is how often idle vertex buffers are freed.
	DefaultFreeCheckInterval frame.ResetID = 300
	// DefaultQuadsPerBuffer is the capacity of one quad vertex buffer.
	DefaultQuadsPerBuffer = 1024
)

// Option configures a Renderer.
type Option func(*Renderer)

// WithFreeInterval sets how many frames pooled resources and per-node
// usages survive without being used.
func WithFreeInterval(n frame.ResetID) Option {
	return func(r *Renderer) {
		r.freeInterval = n
	}
}

// WithFreeCheckInterval sets how often, in frames, idle vertex buffers are
// released. Zero disables it.
func WithFreeCheckInterval(n frame.ResetID) Option {
	return func(r *Renderer) {
		r.freeCheckInterval = n
	}
}

// WithStats forwards every counter to sink in addition to the renderer's
// own FrameStats.
func WithStats(sink stats.Sink) Option {
	return func(r *Renderer) {
		r.sink = sink
	}
}

// WithQuadBatch sets the number of quads per vertex buffer and the number of
// buffers one frame may use. maxBuffers 0 means unlimited.
func WithQuadBatch(quads, maxBuffers int) Option {
	return func(r *Renderer) {
		r.quadsPerBuffer = quads
		r.maxQuadBuffers = maxBuffers
	}
}
