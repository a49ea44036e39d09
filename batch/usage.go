// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package batch

import (
	"fmt"

	"github.com/gogpu/framepool/batch/vertex"
	"github.com/gogpu/framepool/frame"
)

// Node is the draw-side view of a draw node snapshot that BeginUsage
// inspects.
type Node interface {
	// InvalidationID changes whenever the node's visual state changes.
	InvalidationID() uint64
	// DrawIndex is the node's position in the frame's draw order.
	DrawIndex() int
}

// Usage correlates the vertices a node wrote last time with the batch's
// rolling index. It does not own anything; keep one per node and pass it
// back to BeginUsage every frame.
type Usage[T vertex.Vertex] struct {
	batch          *Batch[T]
	invalidationID uint64
	startIndex     int
	count          int
	drawIndex      int
	frameIndex     frame.ResetID
	drawRequired   bool
}

// DrawRequired reports whether the node must write its vertices this frame.
// When false, Add only advances past the vertices left by the previous
// frame.
func (u *Usage[T]) DrawRequired() bool { return u.drawRequired }

// StartIndex returns the rolling index of the usage's first vertex.
func (u *Usage[T]) StartIndex() int { return u.startIndex }

// Count returns how many vertices were added since BeginUsage.
func (u *Usage[T]) Count() int { return u.count }

// FrameIndex returns the frame BeginUsage was last called in.
func (u *Usage[T]) FrameIndex() frame.ResetID { return u.frameIndex }

// Add writes v when a draw is required and advances past the existing
// vertex otherwise.
func (u *Usage[T]) Add(v T) error {
	var err error
	if u.drawRequired {
		err = u.batch.AddVertex(v)
	} else {
		err = u.batch.Advance()
	}
	if err != nil {
		return err
	}
	u.count++
	return nil
}

// Skip advances past n vertices. It is only valid when no draw is required.
func (u *Usage[T]) Skip(n int) error {
	if u.drawRequired {
		return fmt.Errorf("batch: skip %d vertices of a usage that must be drawn", n)
	}
	for range n {
		if err := u.batch.Advance(); err != nil {
			return err
		}
		u.count++
	}
	return nil
}

// BeginUsage starts node's contribution to this frame and returns the usage
// to add vertices through. Pass nil for a node's first usage.
//
// A draw is required when the usage belongs to another batch, the node was
// invalidated, other vertices were added before the node, the usage skipped a
// frame, or the node moved in the draw order. A usage may be begun again in
// the same frame only directly after its own vertices; anything else is a
// bookkeeping bug and panics.
//
// The returned error comes from flushing the previously active batch.
func (b *Batch[T]) BeginUsage(u *Usage[T], node Node) (*Usage[T], error) {
	if err := b.ctx.SetActiveBatch(b); err != nil {
		return u, err
	}
	if u == nil {
		u = &Usage[T]{}
	}
	frameIndex := b.ctx.ResetID()

	if u.batch == b && frameIndex > 0 && u.frameIndex == frameIndex {
		if b.rolling != u.startIndex+u.count {
			panic(fmt.Sprintf("batch: usage re-begun at rolling index %d, want %d",
				b.rolling, u.startIndex+u.count))
		}
		return u, nil
	}

	drawRequired := u.batch != b ||
		u.invalidationID != node.InvalidationID() ||
		u.startIndex != b.rolling ||
		frameIndex-u.frameIndex > 1 ||
		u.drawIndex != node.DrawIndex()

	if drawRequired {
		*u = Usage[T]{
			batch:          b,
			invalidationID: node.InvalidationID(),
			startIndex:     b.rolling,
			drawIndex:      node.DrawIndex(),
		}
	}
	u.count = 0
	u.frameIndex = frameIndex
	u.drawRequired = drawRequired
	return u, nil
}
