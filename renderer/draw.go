// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderer

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/framepool/batch"
	"github.com/gogpu/framepool/batch/vertex"
	"github.com/gogpu/framepool/drawnode"
	"github.com/gogpu/framepool/frame"
)

// nodeUsage is the draw-side bookkeeping for one node.
type nodeUsage struct {
	usage     *batch.Usage[vertex.TexturedVertex2D]
	lastDrawn frame.ResetID
}

// DrawFrame draws every snapshot of f as one textured quad, in draw order.
// Nodes whose snapshot and position did not change since the previous frame
// are not written again. DrawFrame must be called at most once per frame.
func (r *Renderer) DrawFrame(f *drawnode.Frame) error {
	if r.closed {
		return ErrClosed
	}
	if f == nil {
		return nil
	}
	now := r.ctx.ResetID()

	for _, s := range f.Snapshots {
		st := s.State()
		b, err := r.quadBatch(st.Blend)
		if err != nil {
			return err
		}

		nu := r.usages[s.NodeID()]
		if nu == nil {
			nu = &nodeUsage{}
			r.usages[s.NodeID()] = nu
		}
		u, err := b.BeginUsage(nu.usage, s)
		if err != nil {
			return err
		}
		nu.usage = u
		nu.lastDrawn = now

		if !u.DrawRequired() {
			if err := u.Skip(4); err != nil {
				return err
			}
			continue
		}
		for _, v := range quadVertices(st) {
			if err := u.Add(v); err != nil {
				return fmt.Errorf("renderer: draw node %d: %w", s.NodeID(), err)
			}
		}
	}

	r.pruneUsages(now)
	return nil
}

// quadBatch returns the batch for blend, creating it on first use.
func (r *Renderer) quadBatch(blend gputypes.BlendState) (*batch.Batch[vertex.TexturedVertex2D], error) {
	if b, ok := r.quads[blend]; ok {
		return b, nil
	}
	b, err := batch.NewQuad[vertex.TexturedVertex2D](r.ctx, r.quadsPerBuffer, r.maxQuadBuffers)
	if err != nil {
		return nil, err
	}
	b.SetBlend(blend)
	r.quads[blend] = b
	return b, nil
}

// pruneUsages forgets nodes that were not drawn within the free interval.
func (r *Renderer) pruneUsages(now frame.ResetID) {
	for id, nu := range r.usages {
		if now-nu.lastDrawn > r.freeInterval {
			delete(r.usages, id)
		}
	}
}

// quadVertices returns the four corners of a node in winding order.
func quadVertices(s drawnode.State) [4]vertex.TexturedVertex2D {
	tr := s.TextureRect
	rect := [4]float32{tr.Left, tr.Top, tr.Right, tr.Bottom}
	corners := [4][4]float32{
		{0, 0, tr.Left, tr.Top},
		{s.Width, 0, tr.Right, tr.Top},
		{s.Width, s.Height, tr.Right, tr.Bottom},
		{0, s.Height, tr.Left, tr.Bottom},
	}

	var out [4]vertex.TexturedVertex2D
	for i, c := range corners {
		x, y := s.Transform.Apply(c[0], c[1])
		out[i] = vertex.TexturedVertex2D{
			Position:        [2]float32{x, y},
			TexturePosition: [2]float32{c[2], c[3]},
			TextureRect:     rect,
			BlendRange:      [2]float32{1, 1},
			Color:           s.Color,
		}
	}
	return out
}
