// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package batch accumulates vertices into rotating device vertex buffers and
// skips re-uploading geometry that did not change between frames.
//
// A Batch owns a list of fixed-size VertexBuffers. Vertices are appended at
// a rolling index that restarts every frame; when the current buffer fills
// up it is drawn and the next one is used. Draw nodes take part through
// BeginUsage, which decides per frame whether the node's vertices must be
// written again or are still valid where the previous frame left them.
//
// Batches belong to the draw goroutine and are not safe for concurrent use.
package batch

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/framepool/batch/vertex"
	"github.com/gogpu/framepool/device"
	"github.com/gogpu/framepool/frame"
	"github.com/gogpu/framepool/stats"
)

// Batch errors.
var (
	// ErrBatchExhausted is returned when a batch needs more buffers than its
	// limit within one frame.
	ErrBatchExhausted = errors.New("batch: vertex buffer limit reached")

	// ErrTooManyQuads is returned by NewQuad for sizes a 16-bit index buffer
	// cannot address.
	ErrTooManyQuads = errors.New("batch: quad batch larger than MaxQuads")

	// ErrPartialQuad is returned when a quad batch is drawn with pending
	// vertices that do not form whole quads.
	ErrPartialQuad = errors.New("batch: pending vertices are not whole quads")
)

// Batch accumulates vertices of type T.
type Batch[T vertex.Vertex] struct {
	ctx        *frame.Context
	size       int
	maxBuffers int
	topology   gputypes.PrimitiveTopology
	blend      *gputypes.BlendState
	indices    *indexBuffer

	buffers []*VertexBuffer[T]
	current int

	// rolling counts the vertices added or skipped this frame.
	rolling int
	// drawStart and drawCount are the pending window in the current buffer.
	drawStart int
	drawCount int

	disposed bool
}

// NewLinear creates a batch of buffers holding size vertices each, drawn
// with topology. maxBuffers limits how many buffers one frame may use; 0
// means no limit.
func NewLinear[T vertex.Vertex](ctx *frame.Context, size, maxBuffers int, topology gputypes.PrimitiveTopology) *Batch[T] {
	if size <= 0 {
		panic(fmt.Sprintf("batch: buffer size %d must be positive", size))
	}
	return &Batch[T]{
		ctx:        ctx,
		size:       size,
		maxBuffers: maxBuffers,
		topology:   topology,
	}
}

// NewQuad creates a batch of indexed quads, quads per buffer. Every quad is
// four vertices in winding order, and vertices must be added or skipped in
// whole quads between draws.
func NewQuad[T vertex.Vertex](ctx *frame.Context, quads, maxBuffers int) (*Batch[T], error) {
	if quads <= 0 || quads > MaxQuads {
		return nil, fmt.Errorf("%w: %d quads", ErrTooManyQuads, quads)
	}
	b := NewLinear[T](ctx, quads*verticesPerQuad, maxBuffers, gputypes.PrimitiveTopologyTriangleList)
	b.indices = &indexBuffer{ctx: ctx, quads: quads}
	return b, nil
}

// Size returns the vertex capacity of each buffer.
func (b *Batch[T]) Size() int {
	return b.size
}

// SetBlend sets the blend state of the batch's draws. It applies to draws
// recorded after the call.
func (b *Batch[T]) SetBlend(s gputypes.BlendState) {
	b.blend = &s
	for _, buf := range b.buffers {
		buf.blend = b.blend
	}
}

// RollingIndex returns how many vertices were added or skipped this frame.
func (b *Batch[T]) RollingIndex() int {
	return b.rolling
}

// Buffers returns how many vertex buffers the batch owns.
func (b *Batch[T]) Buffers() int {
	return len(b.buffers)
}

// AddVertex appends v, flushing and moving to the next buffer when the
// current one is full.
func (b *Batch[T]) AddVertex(v T) error {
	if err := b.prepare(); err != nil {
		return err
	}
	b.buffers[b.current].SetVertex(b.drawStart+b.drawCount, v)
	b.advance()
	return nil
}

// Advance moves past one vertex whose data is already in place from an
// earlier frame.
func (b *Batch[T]) Advance() error {
	if err := b.prepare(); err != nil {
		return err
	}
	b.advance()
	return nil
}

// Draw records draws for the pending vertices and returns how many were
// drawn. A quad batch only draws whole quads; a partial one is left pending
// and reported as ErrPartialQuad.
func (b *Batch[T]) Draw() (int, error) {
	if b.indices != nil && b.drawCount%verticesPerQuad != 0 {
		return 0, fmt.Errorf("%w: %d vertices", ErrPartialQuad, b.drawCount)
	}
	count := b.drawCount
	for b.drawCount > 0 {
		buf := b.buffers[b.current]
		end := min(b.size, b.drawStart+b.drawCount)
		n := end - b.drawStart
		if err := buf.DrawRange(b.drawStart, end); err != nil {
			return count - b.drawCount, err
		}

		b.drawStart += n
		b.drawCount -= n
		if b.drawStart == b.size {
			b.drawStart = 0
			b.current++
		}

		b.ctx.Stats.Add(stats.GroupFrame, stats.DrawCalls, 1)
		b.ctx.Stats.Add(stats.GroupFrame, stats.VerticesDraw, int64(n))
	}
	return count, nil
}

// ResetCounters rewinds the batch to the start of its first buffer. Pending
// vertices that were not drawn are dropped.
func (b *Batch[T]) ResetCounters() {
	b.current = 0
	b.rolling = 0
	b.drawStart = 0
	b.drawCount = 0
}

// Dispose releases every buffer. The batch cannot be used afterwards.
func (b *Batch[T]) Dispose() {
	if b.disposed {
		return
	}
	b.disposed = true
	for _, buf := range b.buffers {
		buf.Dispose()
	}
	if b.indices != nil {
		b.indices.destroy()
	}
}

// prepare activates the batch and makes sure the current buffer has room
// for one more vertex.
func (b *Batch[T]) prepare() error {
	if b.disposed {
		return fmt.Errorf("batch: add to disposed batch: %w", device.ErrDisposed)
	}
	if err := b.ctx.SetActiveBatch(b); err != nil {
		return err
	}

	if b.current < len(b.buffers) && b.drawStart+b.drawCount >= b.size {
		if _, err := b.Draw(); err != nil {
			return err
		}
		b.ctx.Stats.Add(stats.GroupFrame, stats.VBufOverflow, 1)
	}
	for b.current >= len(b.buffers) {
		if b.maxBuffers > 0 && len(b.buffers) >= b.maxBuffers {
			return fmt.Errorf("%w: %d buffers of %d vertices", ErrBatchExhausted, b.maxBuffers, b.size)
		}
		buf := newVertexBuffer[T](b.ctx, b.size, b.topology, b.indices)
		buf.blend = b.blend
		b.buffers = append(b.buffers, buf)
	}
	return nil
}

func (b *Batch[T]) advance() {
	b.drawCount++
	b.rolling++
}
