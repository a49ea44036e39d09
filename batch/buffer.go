// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package batch

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/framepool/batch/vertex"
	"github.com/gogpu/framepool/device"
	"github.com/gogpu/framepool/frame"
	"github.com/gogpu/framepool/stats"
)

// VertexBufferUsage is the usage of every vertex buffer.
const VertexBufferUsage = gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst

// VertexBuffer is a fixed-size device vertex buffer with a CPU shadow copy.
//
// Memory is allocated on first use and released by Free once the buffer has
// been idle for long enough; the next use allocates it again. Only vertices
// that changed since the last draw are uploaded.
type VertexBuffer[T vertex.Vertex] struct {
	ctx      *frame.Context
	size     int
	topology gputypes.PrimitiveTopology
	blend    *gputypes.BlendState
	indices  *indexBuffer

	vertices []T
	scratch  []byte
	buffer   device.Buffer

	// [dirtyStart, dirtyEnd) must be uploaded before the next draw.
	dirtyStart, dirtyEnd int

	lastUse  frame.ResetID
	disposed bool
}

func newVertexBuffer[T vertex.Vertex](ctx *frame.Context, size int, topology gputypes.PrimitiveTopology, indices *indexBuffer) *VertexBuffer[T] {
	return &VertexBuffer[T]{
		ctx:      ctx,
		size:     size,
		topology: topology,
		indices:  indices,
	}
}

// Size returns the number of vertices the buffer holds.
func (b *VertexBuffer[T]) Size() int {
	return b.size
}

// SetVertex stores v at index i and reports whether it differs from the
// vertex previously stored there.
func (b *VertexBuffer[T]) SetVertex(i int, v T) bool {
	b.use()
	if b.vertices[i] == v {
		return false
	}
	b.vertices[i] = v
	if b.dirtyStart >= b.dirtyEnd {
		b.dirtyStart, b.dirtyEnd = i, i+1
	} else {
		b.dirtyStart = min(b.dirtyStart, i)
		b.dirtyEnd = max(b.dirtyEnd, i+1)
	}
	return true
}

// Vertex returns the vertex stored at index i.
func (b *VertexBuffer[T]) Vertex(i int) T {
	b.use()
	return b.vertices[i]
}

// DrawRange uploads pending changes and records one draw of the vertices
// [start, end).
func (b *VertexBuffer[T]) DrawRange(start, end int) error {
	if err := b.bind(); err != nil {
		return err
	}
	if start < 0 || end > b.size || start >= end {
		return fmt.Errorf("batch: draw range [%d, %d) of %d vertices: %w", start, end, b.size, device.ErrOutOfRange)
	}
	if err := b.upload(); err != nil {
		return err
	}

	var zero T
	cmd := device.DrawCommand{
		Vertices: b.buffer,
		Layout:   zero.Layout(),
		Topology: b.topology,
		Blend:    b.blend,
		First:    uint32(start),
		Count:    uint32(end - start),
	}
	if b.indices != nil {
		ib, err := b.indices.get()
		if err != nil {
			return err
		}
		cmd.Indices = ib
		cmd.First = uint32(quadElementIndex(start))
		cmd.Count = uint32(quadElements(end - start))
	}
	return b.ctx.Device.Draw(cmd)
}

// LastUseResetID returns the frame of the last use, or 0 when the buffer
// holds no memory.
func (b *VertexBuffer[T]) LastUseResetID() frame.ResetID {
	return b.lastUse
}

// InUse reports whether the buffer currently holds memory.
func (b *VertexBuffer[T]) InUse() bool {
	return b.lastUse > 0
}

// Free releases the device buffer and the CPU copy.
func (b *VertexBuffer[T]) Free() {
	if b.buffer != nil {
		b.buffer.Destroy()
		b.buffer = nil
	}
	b.vertices = nil
	b.scratch = nil
	b.dirtyStart, b.dirtyEnd = 0, 0
	b.lastUse = 0
}

// Dispose frees the buffer for good. Drawing a disposed buffer returns
// device.ErrDisposed.
func (b *VertexBuffer[T]) Dispose() {
	if b.disposed {
		return
	}
	b.Free()
	b.disposed = true
}

// use allocates the CPU copy if needed and stamps the current frame.
func (b *VertexBuffer[T]) use() {
	if b.lastUse == 0 {
		b.vertices = make([]T, b.size)
		b.ctx.TrackInUse(b)
	}
	b.lastUse = b.ctx.ResetID()
	if b.lastUse == 0 {
		// Frames start at 1; a buffer touched before the first frame is
		// still in use.
		b.lastUse = 1
	}
}

// bind creates the device buffer on first draw.
func (b *VertexBuffer[T]) bind() error {
	if b.disposed {
		return fmt.Errorf("batch: bind vertex buffer: %w", device.ErrDisposed)
	}
	b.use()
	if b.buffer != nil {
		return nil
	}
	buf, err := b.ctx.Device.CreateBuffer(uint64(b.size*vertex.Stride[T]()), VertexBufferUsage)
	if err != nil {
		return fmt.Errorf("batch: create vertex buffer: %w", err)
	}
	b.buffer = buf
	return nil
}

func (b *VertexBuffer[T]) upload() error {
	if b.dirtyStart >= b.dirtyEnd {
		return nil
	}
	stride := vertex.Stride[T]()
	n := b.dirtyEnd - b.dirtyStart
	if cap(b.scratch) < n*stride {
		b.scratch = make([]byte, b.size*stride)
	}
	data := b.scratch[:n*stride]
	for i, v := range b.vertices[b.dirtyStart:b.dirtyEnd] {
		v.Encode(data[i*stride:])
	}
	if err := b.ctx.Upload(b.buffer, uint64(b.dirtyStart*stride), data); err != nil {
		return fmt.Errorf("batch: upload vertices: %w", err)
	}
	b.ctx.Stats.Add(stats.GroupFrame, stats.VerticesUploaded, int64(n))
	b.dirtyStart, b.dirtyEnd = 0, 0
	return nil
}

// Quads are drawn as two triangles sharing an edge.
const (
	verticesPerQuad = 4
	indicesPerQuad  = 6
)

// MaxQuads is the largest quad batch a 16-bit index buffer can address.
const MaxQuads = 65535 / indicesPerQuad

func quadElements(vertices int) int { return vertices / verticesPerQuad * indicesPerQuad }

func quadElementIndex(v int) int { return v / verticesPerQuad * indicesPerQuad }

// indexBuffer is the shared 16-bit index buffer of a quad batch.
type indexBuffer struct {
	ctx    *frame.Context
	quads  int
	buffer device.Buffer
}

func (ib *indexBuffer) get() (device.Buffer, error) {
	if ib.buffer != nil {
		return ib.buffer, nil
	}
	data := make([]byte, ib.quads*indicesPerQuad*2)
	for q := range ib.quads {
		base := uint16(q * verticesPerQuad)
		for j, k := range [indicesPerQuad]uint16{0, 1, 2, 2, 3, 0} {
			binary.LittleEndian.PutUint16(data[(q*indicesPerQuad+j)*2:], base+k)
		}
	}
	buf, err := ib.ctx.Device.CreateBuffer(uint64(len(data)), gputypes.BufferUsageIndex|gputypes.BufferUsageCopyDst)
	if err != nil {
		return nil, fmt.Errorf("batch: create index buffer: %w", err)
	}
	if err := ib.ctx.Upload(buf, 0, data); err != nil {
		buf.Destroy()
		return nil, fmt.Errorf("batch: upload indices: %w", err)
	}
	ib.buffer = buf
	return buf, nil
}

func (ib *indexBuffer) destroy() {
	if ib.buffer != nil {
		ib.buffer.Destroy()
		ib.buffer = nil
	}
}
