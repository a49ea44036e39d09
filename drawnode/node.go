// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package drawnode

import (
	"sync/atomic"

	"github.com/gogpu/gputypes"
)

// Rect is a (left, top, right, bottom) rectangle.
type Rect struct {
	Left, Top, Right, Bottom float32
}

// FullRect covers a whole texture in normalized coordinates.
var FullRect = Rect{Right: 1, Bottom: 1}

// State is the drawable state of a node. It holds values only, so copies
// share nothing with the node they came from.
type State struct {
	// Width and Height are the node's size in local units.
	Width, Height float32
	Color         [4]float32
	Transform     Affine
	// TextureRect is the sampled region in normalized texture coordinates.
	TextureRect Rect
	Blend       gputypes.BlendState
}

// DefaultState is the state of a new node: an opaque white unit quad
// sampling the whole texture with alpha blending.
func DefaultState() State {
	return State{
		Width:       1,
		Height:      1,
		Color:       [4]float32{1, 1, 1, 1},
		Transform:   Identity(),
		TextureRect: FullRect,
		Blend:       gputypes.BlendStateAlpha(),
	}
}

var lastNodeID atomic.Uint64

// Node is the update-side owner of a drawable's state. It is not safe for
// concurrent use; only the update loop touches it.
type Node struct {
	id             uint64
	state          State
	invalidationID uint64
	snapshot       *Snapshot
}

// NewNode creates a node in DefaultState.
func NewNode() *Node {
	return &Node{
		id:             lastNodeID.Add(1),
		state:          DefaultState(),
		invalidationID: 1,
	}
}

// ID returns the process-unique id of the node.
func (n *Node) ID() uint64 { return n.id }

// InvalidationID returns the current invalidation id. It starts at 1 and
// increments on every visual change.
func (n *Node) InvalidationID() uint64 { return n.invalidationID }

// State returns a copy of the node's state.
func (n *Node) State() State { return n.state }

// SetState replaces the whole state.
func (n *Node) SetState(s State) {
	if s == n.state {
		return
	}
	n.state = s
	n.invalidationID++
}

// SetSize sets the node size in pixels.
func (n *Node) SetSize(width, height float32) {
	s := n.state
	s.Width, s.Height = width, height
	n.SetState(s)
}

// SetColor sets the premultiplied RGBA color.
func (n *Node) SetColor(c [4]float32) {
	s := n.state
	s.Color = c
	n.SetState(s)
}

// SetTransform sets the node transform.
func (n *Node) SetTransform(t Affine) {
	s := n.state
	s.Transform = t
	n.SetState(s)
}

// SetTextureRect sets the texture region the node samples, in pixels.
func (n *Node) SetTextureRect(r Rect) {
	s := n.state
	s.TextureRect = r
	n.SetState(s)
}

// SetBlend sets the blend state the node draws with.
func (n *Node) SetBlend(b gputypes.BlendState) {
	s := n.state
	s.Blend = b
	n.SetState(s)
}

// Invalidate forces the next snapshot to be redrawn even though the state
// did not change, for example after the texture contents were rewritten.
func (n *Node) Invalidate() {
	n.invalidationID++
}

// ApplyState returns the node's snapshot for a frame in which it is drawn at
// drawIndex. When neither the state nor the draw index changed since the
// last call, the previous snapshot is returned as is.
func (n *Node) ApplyState(drawIndex int) *Snapshot {
	if s := n.snapshot; s != nil && s.invalidationID == n.invalidationID && s.drawIndex == drawIndex {
		return s
	}
	n.snapshot = &Snapshot{
		nodeID:         n.id,
		invalidationID: n.invalidationID,
		drawIndex:      drawIndex,
		state:          n.state,
	}
	return n.snapshot
}

// Snapshot is an immutable copy of a node's state for one or more frames.
// It is safe to read from any goroutine once published.
type Snapshot struct {
	nodeID         uint64
	invalidationID uint64
	drawIndex      int
	state          State
}

// NodeID returns the id of the node the snapshot was taken from.
func (s *Snapshot) NodeID() uint64 { return s.nodeID }

// InvalidationID returns the node's invalidation id at snapshot time.
func (s *Snapshot) InvalidationID() uint64 { return s.invalidationID }

// DrawIndex returns the snapshot's position in the frame's draw order.
func (s *Snapshot) DrawIndex() int { return s.drawIndex }

// State returns a copy of the captured state.
func (s *Snapshot) State() State { return s.state }
