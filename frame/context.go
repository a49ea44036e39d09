// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package frame provides the render context shared by every pool and batch
// of one renderer.
//
// A Context replaces any process-wide "current device": each pool and batch
// receives the Context it belongs to at construction time, so several
// renderers can coexist and every component can be tested with a fake
// device.
//
// A Context is owned by the draw goroutine and is not safe for concurrent
// use.
package frame

import (
	"github.com/gogpu/framepool/device"
	"github.com/gogpu/framepool/stats"
)

// ResetID is the monotonic per-frame counter used to timestamp resource
// usage. It never rolls back.
type ResetID uint64

// Batch is a vertex batch as seen by the Context.
type Batch interface {
	// Draw flushes pending vertices and returns how many were drawn.
	Draw() (int, error)
	// ResetCounters rewinds the batch to the start of its first buffer.
	ResetCounters()
}

// Uploader writes data into a device buffer in command order. The renderer
// implements it with staging buffers; tests may use the device directly.
type Uploader interface {
	UpdateBuffer(buf device.Buffer, offset uint64, data []byte) error
}

// Context is the per-renderer state pools and batches read.
type Context struct {
	// Device creates and drives device resources.
	Device device.Device
	// Stats receives pool and frame counters.
	Stats stats.Sink
	// Uploader writes vertex data. Nil means Device.
	Uploader Uploader

	resetID ResetID
	active  Batch
	used    []Batch
	inUse   []Freeable
}

// Freeable is a resource that holds device memory only while it is being
// used, such as a vertex buffer.
type Freeable interface {
	// LastUseResetID returns the frame of the last use, or 0 once freed.
	LastUseResetID() ResetID
	// Free releases the device and CPU memory. The resource initialises
	// itself again on its next use.
	Free()
}

// NewContext creates a Context for dev. A nil sink discards statistics.
func NewContext(dev device.Device, sink stats.Sink) *Context {
	return &Context{
		Device: dev,
		Stats:  stats.OrNop(sink),
	}
}

// ResetID returns the id of the frame being drawn.
func (c *Context) ResetID() ResetID {
	return c.resetID
}

// Advance starts a new frame: it increments the reset id, forgets the active
// batch and resets the counters of every batch used in the previous frame.
func (c *Context) Advance() ResetID {
	c.resetID++
	for _, b := range c.used {
		b.ResetCounters()
	}
	clear(c.used)
	c.used = c.used[:0]
	c.active = nil
	return c.resetID
}

// SetActiveBatch makes b the batch that receives vertices. When another
// batch was active it is flushed first so that draw order is preserved.
func (c *Context) SetActiveBatch(b Batch) error {
	if c.active == b {
		return nil
	}
	if err := c.FlushActiveBatch(); err != nil {
		return err
	}
	c.active = b
	if b != nil && !c.wasUsed(b) {
		c.used = append(c.used, b)
	}
	return nil
}

// FlushActiveBatch draws whatever the active batch has pending.
func (c *Context) FlushActiveBatch() error {
	if c.active == nil {
		return nil
	}
	_, err := c.active.Draw()
	return err
}

// ActiveBatch returns the batch currently receiving vertices, or nil.
func (c *Context) ActiveBatch() Batch {
	return c.active
}

// Upload writes data through the configured Uploader.
func (c *Context) Upload(buf device.Buffer, offset uint64, data []byte) error {
	if c.Uploader != nil {
		return c.Uploader.UpdateBuffer(buf, offset, data)
	}
	return c.Device.UpdateBuffer(buf, offset, data)
}

// TrackInUse registers a resource that has just initialised its memory.
func (c *Context) TrackInUse(f Freeable) {
	c.inUse = append(c.inUse, f)
}

// FreeIdle frees every tracked resource that has not been used for more than
// interval frames and returns how many were freed.
func (c *Context) FreeIdle(interval ResetID) int {
	kept := c.inUse[:0]
	freed := 0
	for _, f := range c.inUse {
		if last := f.LastUseResetID(); last == 0 || c.resetID-last > interval {
			if last != 0 {
				f.Free()
				freed++
			}
			continue
		}
		kept = append(kept, f)
	}
	clear(c.inUse[len(kept):])
	c.inUse = kept
	return freed
}

// InUse returns how many resources are tracked.
func (c *Context) InUse() int {
	return len(c.inUse)
}

func (c *Context) wasUsed(b Batch) bool {
	for _, u := range c.used {
		if u == b {
			return true
		}
	}
	return false
}
