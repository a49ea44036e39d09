// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package haldevice

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/framepool/device"
)

const copyAlignment = device.CopyAlignment

func alignCopy(n uint64) uint64 {
	return (n + copyAlignment - 1) &^ (copyAlignment - 1)
}

// Buffer is a device.Buffer backed by a hal buffer. Its allocation is
// rounded up to the copy alignment; Size reports the requested size.
type Buffer struct {
	dev       *Device
	raw       hal.Buffer
	size      uint64
	allocated uint64
	usage     gputypes.BufferUsage
	destroyed bool
}

// Size returns the requested size in bytes.
func (b *Buffer) Size() uint64 { return b.size }

// Usage returns the usage the buffer was created with.
func (b *Buffer) Usage() gputypes.BufferUsage { return b.usage }

// Raw returns the hal buffer, or nil once destroyed.
func (b *Buffer) Raw() hal.Buffer {
	if b.destroyed {
		return nil
	}
	return b.raw
}

// Destroy releases the hal buffer. It is safe to call more than once.
func (b *Buffer) Destroy() {
	if b.destroyed {
		return
	}
	b.destroyed = true
	b.dev.raw.DestroyBuffer(b.raw)
	b.raw = nil
}

// Texture is a device.Texture backed by a hal texture.
type Texture struct {
	dev       *Device
	raw       hal.Texture
	desc      device.TextureDescriptor
	destroyed bool
}

// Width returns the texture width in texels.
func (t *Texture) Width() uint32 { return t.desc.Width }

// Height returns the texture height in texels.
func (t *Texture) Height() uint32 { return t.desc.Height }

// Format returns the texel format.
func (t *Texture) Format() gputypes.TextureFormat { return t.desc.Format }

// Raw returns the hal texture, or nil once destroyed.
func (t *Texture) Raw() hal.Texture {
	if t.destroyed {
		return nil
	}
	return t.raw
}

// Destroy releases the hal texture. It is safe to call more than once.
func (t *Texture) Destroy() {
	if t.destroyed {
		return
	}
	t.destroyed = true
	t.dev.raw.DestroyTexture(t.raw)
	t.raw = nil
}

// Fence signals once the queue has completed the submission it was
// attached to. It owns no hal object.
type Fence struct {
	dev       *Device
	index     uint64
	destroyed bool
}

// Signaled reports whether the attached submission has completed. A fence
// that was never submitted is not signaled.
func (f *Fence) Signaled() bool {
	if f.destroyed || f.index == 0 {
		return false
	}
	return f.dev.queue.PollCompleted() >= f.index
}

// Reset detaches the fence from its submission.
func (f *Fence) Reset() error {
	if f.destroyed {
		return device.ErrDisposed
	}
	f.index = 0
	return nil
}

// Destroy marks the fence unusable.
func (f *Fence) Destroy() { f.destroyed = true }

var (
	_ device.Buffer  = (*Buffer)(nil)
	_ device.Texture = (*Texture)(nil)
	_ device.Fence   = (*Fence)(nil)
)
