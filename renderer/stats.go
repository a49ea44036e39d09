// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderer

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gogpu/framepool/frame"
	"github.com/gogpu/framepool/stats"
)

// FrameStats describes the last finished frame.
type FrameStats struct {
	ResetID frame.ResetID

	DrawCalls        int64
	VerticesDrawn    int64
	VerticesUploaded int64
	BufferOverflows  int64

	// Pools maps pool counters such as "Available Staging Buffers" to their
	// current value.
	Pools map[string]int64
}

func collectStats(id frame.ResetID, c *stats.Counters) FrameStats {
	fs := FrameStats{
		ResetID:          id,
		DrawCalls:        c.Get(stats.GroupFrame, stats.DrawCalls),
		VerticesDrawn:    c.Get(stats.GroupFrame, stats.VerticesDraw),
		VerticesUploaded: c.Get(stats.GroupFrame, stats.VerticesUploaded),
		BufferOverflows:  c.Get(stats.GroupFrame, stats.VBufOverflow),
		Pools:            make(map[string]int64),
	}
	for k, v := range c.Snapshot() {
		if k.Group == stats.GroupPools {
			fs.Pools[k.Name] = v
		}
	}
	return fs
}

func (s FrameStats) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "frame %d: %d draw calls, %d vertices drawn, %d uploaded, %d overflows",
		s.ResetID, s.DrawCalls, s.VerticesDrawn, s.VerticesUploaded, s.BufferOverflows)
	names := make([]string, 0, len(s.Pools))
	for name := range s.Pools {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(&sb, "; %s=%d", name, s.Pools[name])
	}
	return sb.String()
}
