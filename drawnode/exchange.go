// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package drawnode

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrDuplicateNode is returned by Produce when a node appears more than once
// in a traversal. A node has at most one snapshot per frame.
var ErrDuplicateNode = errors.New("drawnode: node listed twice in one frame")

// Frame is the published result of one update-side traversal.
type Frame struct {
	// Index increments with every produced frame, starting at 1.
	Index uint64
	// Snapshots are in draw order: Snapshots[i].DrawIndex() == i.
	Snapshots []*Snapshot
}

// Exchange is the single hand-off point between the update loop and the
// draw loop. Neither side ever blocks on it: a publish replaces the
// previous frame, and a reader always gets the newest one.
type Exchange struct {
	latest    atomic.Pointer[Frame]
	published atomic.Uint64
}

// Publish makes f the latest frame. f must not be modified afterwards.
func (x *Exchange) Publish(f *Frame) {
	x.latest.Store(f)
	x.published.Add(1)
}

// Latest returns the newest published frame, or nil before the first
// publish.
func (x *Exchange) Latest() *Frame {
	return x.latest.Load()
}

// Published returns how many frames were published so far.
func (x *Exchange) Published() uint64 {
	return x.published.Load()
}

// Producer turns node traversals into frames on the update side.
type Producer struct {
	exchange *Exchange
	index    uint64
	seen     map[*Node]struct{}
}

// NewProducer returns a Producer publishing on x.
func NewProducer(x *Exchange) *Producer {
	return &Producer{exchange: x, seen: make(map[*Node]struct{})}
}

// Produce snapshots nodes in traversal order, publishes the frame and
// returns it. A traversal listing the same node twice is rejected with
// ErrDuplicateNode before any snapshot is taken, and nothing is published.
func (p *Producer) Produce(nodes []*Node) (*Frame, error) {
	clear(p.seen)
	for _, n := range nodes {
		if _, dup := p.seen[n]; dup {
			return nil, fmt.Errorf("%w: node %d", ErrDuplicateNode, n.ID())
		}
		p.seen[n] = struct{}{}
	}

	p.index++
	f := &Frame{
		Index:     p.index,
		Snapshots: make([]*Snapshot, len(nodes)),
	}
	for i, n := range nodes {
		f.Snapshots[i] = n.ApplyState(i)
	}
	p.exchange.Publish(f)
	return f, nil
}
