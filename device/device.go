// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package device defines the graphics device capability that framepool's
// pools, batches and renderer are written against.
//
// The interfaces are deliberately narrow: creation of buffers, textures and
// fences, uploads, copies, draws and submission. The
// [github.com/gogpu/framepool/device/haldevice] package implements them on
// top of a github.com/gogpu/wgpu hal device.
package device

import (
	"errors"

	"github.com/gogpu/gputypes"
)

// Device errors.
var (
	// ErrDisposed is returned when a destroyed resource is bound, updated or
	// drawn. It is a usage error, distinct from ErrAllocation.
	ErrDisposed = errors.New("device: resource destroyed")

	// ErrAllocation wraps a device refusal to create a resource.
	ErrAllocation = errors.New("device: allocation failed")

	// ErrOutOfRange is returned when an upload or copy falls outside the
	// bounds of its destination.
	ErrOutOfRange = errors.New("device: range out of bounds")
)

// CopyAlignment is the granularity of buffer writes and copies. Offsets must
// be multiples of it. A size that is not a multiple is only accepted when
// the write or copy ends the destination buffer.
const CopyAlignment = 4

// Buffer is a linear device memory allocation.
type Buffer interface {
	// Size returns the buffer size in bytes.
	Size() uint64
	// Usage returns the usage flags the buffer was created with.
	Usage() gputypes.BufferUsage
	// Destroy releases the device memory. Further use returns ErrDisposed.
	Destroy()
}

// Texture is a two-dimensional device image.
type Texture interface {
	Width() uint32
	Height() uint32
	Format() gputypes.TextureFormat
	// Destroy releases the device memory. Further use returns ErrDisposed.
	Destroy()
}

// Fence is a device synchronization object. It signals once the work it was
// submitted with has completed on the device.
type Fence interface {
	// Signaled reports whether the device has finished the work submitted
	// with this fence. It never blocks.
	Signaled() bool
	// Reset returns the fence to the unsignaled state so it can be attached
	// to new work.
	Reset() error
	Destroy()
}

// TextureDescriptor describes a texture to create.
type TextureDescriptor struct {
	Label  string
	Width  uint32
	Height uint32
	Format gputypes.TextureFormat
	Usage  gputypes.TextureUsage
}

// Factory creates device resources.
type Factory interface {
	CreateBuffer(size uint64, usage gputypes.BufferUsage) (Buffer, error)
	CreateTexture(desc TextureDescriptor) (Texture, error)
	CreateFence() (Fence, error)
}

// DrawCommand is a single non-instanced draw call.
type DrawCommand struct {
	// Vertices is the vertex buffer bound at slot 0.
	Vertices Buffer
	// Indices, when non-nil, is a 16-bit index buffer and First and Count
	// are in indices rather than vertices.
	Indices Buffer
	// Layout describes the vertex format stored in Vertices.
	Layout   *gputypes.VertexBufferLayout
	Topology gputypes.PrimitiveTopology
	// Blend is the color blend state; nil replaces the target.
	Blend *gputypes.BlendState
	First uint32
	Count uint32
}

// Device is the full capability the renderer draws with.
//
// Operations are recorded in call order. Uploads through UpdateBuffer and
// UpdateTexture take effect before any command recorded after them.
type Device interface {
	Factory

	// UpdateBuffer writes data into buf at offset.
	UpdateBuffer(buf Buffer, offset uint64, data []byte) error
	// UpdateTexture writes tightly packed pixel data into the rectangle
	// (x, y, width, height) of tex.
	UpdateTexture(tex Texture, x, y, width, height uint32, data []byte) error
	// CopyBuffer records a buffer to buffer copy.
	CopyBuffer(src Buffer, srcOffset uint64, dst Buffer, dstOffset, size uint64) error
	// CopyTexture records a copy of the rectangle at (srcX, srcY) in src to
	// (dstX, dstY) in dst.
	CopyTexture(src Texture, srcX, srcY uint32, dst Texture, dstX, dstY, width, height uint32) error
	// Draw records a draw call.
	Draw(cmd DrawCommand) error
	// Submit submits everything recorded since the previous Submit. The
	// fence signals once the device has completed that work.
	Submit(fence Fence) error
	// WaitIdle blocks until all submitted work has completed.
	WaitIdle() error
}
