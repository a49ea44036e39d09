// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package stats provides counter sinks for pool occupancy and per-frame draw
// statistics.
//
// Sinks are written to from the draw goroutine and may be read from any
// goroutine. A nil Sink is never passed around: use [Nop] instead.
package stats

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Counter groups.
const (
	// GroupPools holds the available and used counts of every pool.
	GroupPools = "Renderer Pools"

	// GroupFrame holds draw statistics. They are reset by the renderer at the
	// start of every frame.
	GroupFrame = "Frame"
)

// Frame counter names.
const (
	DrawCalls        = "DrawCalls"
	VerticesDraw     = "VerticesDraw"
	VerticesUploaded = "VerticesUpl"
	VBufOverflow     = "VBufOverflow"
)

// Sink receives counter increments. Implementations must not block and must
// tolerate any group or name.
type Sink interface {
	Add(group, name string, delta int64)
}

// Nop is a Sink that discards everything.
type Nop struct{}

// Add implements Sink.
func (Nop) Add(string, string, int64) {}

// Key identifies one counter.
type Key struct {
	Group string
	Name  string
}

// String returns "Group/Name".
func (k Key) String() string {
	return k.Group + "/" + k.Name
}

// Counters is an in-memory Sink.
//
// Counters is safe for concurrent use.
type Counters struct {
	mu     sync.Mutex
	values map[Key]int64
}

// NewCounters creates an empty counter set.
func NewCounters() *Counters {
	return &Counters{values: make(map[Key]int64)}
}

// Add implements Sink.
func (c *Counters) Add(group, name string, delta int64) {
	c.mu.Lock()
	c.values[Key{group, name}] += delta
	c.mu.Unlock()
}

// Get returns the current value of one counter.
func (c *Counters) Get(group, name string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[Key{group, name}]
}

// ResetGroup zeroes every counter in group.
func (c *Counters) ResetGroup(group string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.values {
		if k.Group == group {
			c.values[k] = 0
		}
	}
}

// Snapshot returns a copy of all counters.
func (c *Counters) Snapshot() map[Key]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[Key]int64, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// String returns the counters sorted by key, one per line.
func (c *Counters) String() string {
	snap := c.Snapshot()
	keys := make([]Key, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%d\n", k, snap[k])
	}
	return b.String()
}

// Tee fans every increment out to several sinks.
func Tee(sinks ...Sink) Sink {
	return tee(sinks)
}

type tee []Sink

func (t tee) Add(group, name string, delta int64) {
	for _, s := range t {
		s.Add(group, name, delta)
	}
}

// OrNop returns s, or Nop when s is nil.
func OrNop(s Sink) Sink {
	if s == nil {
		return Nop{}
	}
	return s
}
