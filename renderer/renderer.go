// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package renderer drives the frame pipeline on the draw goroutine.
//
// A Renderer owns a frame.Context, the fence and staging pools and the quad
// batches draw nodes are drawn with. Every frame follows the same sequence:
//
//	r.BeginFrame()    // advance, recycle what the device finished with
//	r.DrawFrame(f)    // draw the latest published drawnode.Frame
//	r.FinishFrame()   // flush and submit behind a fence
//
// Vertex data is uploaded through pooled staging buffers so that uploads are
// ordered with the draws that read them.
package renderer

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/framepool"
	"github.com/gogpu/framepool/batch"
	"github.com/gogpu/framepool/batch/vertex"
	"github.com/gogpu/framepool/device"
	"github.com/gogpu/framepool/frame"
	"github.com/gogpu/framepool/pool"
	"github.com/gogpu/framepool/stats"
)

// ErrClosed is returned by every method after Close.
var ErrClosed = errors.New("renderer: closed")

// releaser is the part of a pool the frame loop drives.
type releaser interface {
	Name() string
	ReleaseUsedResources(untilID frame.ResetID)
	FreeUnusedResources(interval frame.ResetID) bool
	Close()
}

// Renderer draws drawnode frames on a device.Device. It is owned by the draw
// goroutine and is not safe for concurrent use.
type Renderer struct {
	ctx      *frame.Context
	counters *stats.Counters
	sink     stats.Sink

	fences          *pool.FencePool
	stagingBuffers  *pool.StagingBufferPool
	stagingTextures *pool.StagingTexturePool
	pools           []releaser

	quadsPerBuffer int
	maxQuadBuffers int
	quads          map[gputypes.BlendState]*batch.Batch[vertex.TexturedVertex2D]
	usages         map[uint64]*nodeUsage

	freeInterval      frame.ResetID
	freeCheckInterval frame.ResetID

	lastSignaled frame.ResetID
	last         FrameStats
	closed       bool
}

// New creates a Renderer drawing on dev.
func New(dev device.Device, opts ...Option) (*Renderer, error) {
	r := &Renderer{
		counters:          stats.NewCounters(),
		quadsPerBuffer:    DefaultQuadsPerBuffer,
		quads:             make(map[gputypes.BlendState]*batch.Batch[vertex.TexturedVertex2D]),
		usages:            make(map[uint64]*nodeUsage),
		freeInterval:      DefaultFreeInterval,
		freeCheckInterval: DefaultFreeCheckInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.quadsPerBuffer <= 0 || r.quadsPerBuffer > batch.MaxQuads {
		return nil, fmt.Errorf("renderer: %w: %d quads per buffer", batch.ErrTooManyQuads, r.quadsPerBuffer)
	}

	sink := stats.Sink(r.counters)
	if r.sink != nil {
		sink = stats.Tee(r.counters, r.sink)
	}
	r.ctx = frame.NewContext(dev, sink)
	r.ctx.Uploader = r

	r.fences = pool.NewFencePool(r.ctx)
	r.stagingBuffers = pool.NewStagingBufferPool(r.ctx)
	r.stagingTextures = pool.NewStagingTexturePool(r.ctx)
	r.pools = []releaser{r.fences, r.stagingBuffers, r.stagingTextures}

	framepool.Logger().Info("renderer created",
		"quadsPerBuffer", r.quadsPerBuffer,
		"freeInterval", r.freeInterval,
		"freeCheckInterval", r.freeCheckInterval)
	return r, nil
}

// Context returns the render context shared by the renderer's pools and
// batches.
func (r *Renderer) Context() *frame.Context {
	return r.ctx
}

// Stats returns the statistics of the last finished frame.
func (r *Renderer) Stats() FrameStats {
	return r.last
}

// BeginFrame starts a new frame. Resources the device finished with are
// returned to their pools, and resources idle for longer than the free
// interval are destroyed.
func (r *Renderer) BeginFrame() error {
	if r.closed {
		return ErrClosed
	}
	r.counters.ResetGroup(stats.GroupFrame)
	id := r.ctx.Advance()

	if done, ok := r.fences.LatestSignaledUseID(); ok && done > r.lastSignaled {
		r.lastSignaled = done
	}
	for _, p := range r.pools {
		p.ReleaseUsedResources(r.lastSignaled)
	}
	for _, p := range r.pools {
		p.FreeUnusedResources(r.freeInterval)
	}

	if r.freeCheckInterval > 0 && id%r.freeCheckInterval == 0 {
		if n := r.ctx.FreeIdle(r.freeCheckInterval); n > 0 {
			framepool.Logger().Debug("freed idle vertex buffers", "count", n, "inUse", r.ctx.InUse())
		}
	}
	return nil
}

// FinishFrame flushes pending draws and submits the frame behind a fence.
func (r *Renderer) FinishFrame() error {
	if r.closed {
		return ErrClosed
	}
	if err := r.ctx.FlushActiveBatch(); err != nil {
		return fmt.Errorf("renderer: flush: %w", err)
	}
	fence, err := r.fences.Get()
	if err != nil {
		return fmt.Errorf("renderer: acquire fence: %w", err)
	}
	if err := r.ctx.Device.Submit(fence); err != nil {
		return fmt.Errorf("renderer: submit frame %d: %w", r.ctx.ResetID(), err)
	}
	r.last = collectStats(r.ctx.ResetID(), r.counters)
	return nil
}

// Close waits for the device to finish and destroys every pooled resource
// and vertex buffer. It is safe to call more than once.
func (r *Renderer) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	err := r.ctx.Device.WaitIdle()
	for _, b := range r.quads {
		b.Dispose()
	}
	for _, p := range r.pools {
		p.Close()
	}
	clear(r.usages)
	framepool.Logger().Info("renderer closed", "frames", r.ctx.ResetID())
	if err != nil {
		return fmt.Errorf("renderer: wait idle: %w", err)
	}
	return nil
}
