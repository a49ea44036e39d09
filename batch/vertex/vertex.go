// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package vertex defines the vertex formats framepool batches can hold.
//
// Every format declares its device layout as a package-level table next to
// the type, and encodes itself little-endian without reflection.
package vertex

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/gputypes"
)

// Vertex is the constraint satisfied by every vertex format.
type Vertex interface {
	comparable
	// Layout returns the static device layout of the format. The returned
	// table is shared and must not be modified.
	Layout() *gputypes.VertexBufferLayout
	// Encode writes the vertex into dst, which is at least
	// Layout().ArrayStride bytes long.
	Encode(dst []byte)
}

// Vertex2D is a colored 2D vertex.
type Vertex2D struct {
	Position [2]float32
	Color    [4]float32
}

// UncoloredVertex2D is a bare 2D position.
type UncoloredVertex2D struct {
	Position [2]float32
}

// TexturedVertex2D is a 2D vertex sampling a texture region.
type TexturedVertex2D struct {
	Position        [2]float32
	TexturePosition [2]float32
	// TextureRect is the (left, top, right, bottom) of the sampled region
	// in normalized texture coordinates.
	TextureRect [4]float32
	// BlendRange is the width of the edge smoothing band in pixels.
	BlendRange [2]float32
	Color      [4]float32
}

var vertex2DLayout = gputypes.VertexBufferLayout{
	ArrayStride: 24,
	StepMode:    gputypes.VertexStepModeVertex,
	Attributes: []gputypes.VertexAttribute{
		{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
		{Format: gputypes.VertexFormatFloat32x4, Offset: 8, ShaderLocation: 1},
	},
}

var uncoloredVertex2DLayout = gputypes.VertexBufferLayout{
	ArrayStride: 8,
	StepMode:    gputypes.VertexStepModeVertex,
	Attributes: []gputypes.VertexAttribute{
		{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
	},
}

var texturedVertex2DLayout = gputypes.VertexBufferLayout{
	ArrayStride: 56,
	StepMode:    gputypes.VertexStepModeVertex,
	Attributes: []gputypes.VertexAttribute{
		{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
		{Format: gputypes.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},
		{Format: gputypes.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 2},
		{Format: gputypes.VertexFormatFloat32x2, Offset: 32, ShaderLocation: 3},
		{Format: gputypes.VertexFormatFloat32x4, Offset: 40, ShaderLocation: 4},
	},
}

func (Vertex2D) Layout() *gputypes.VertexBufferLayout          { return &vertex2DLayout }
func (UncoloredVertex2D) Layout() *gputypes.VertexBufferLayout { return &uncoloredVertex2DLayout }
func (TexturedVertex2D) Layout() *gputypes.VertexBufferLayout  { return &texturedVertex2DLayout }

func (v Vertex2D) Encode(dst []byte) {
	dst = putFloats(dst, v.Position[:])
	putFloats(dst, v.Color[:])
}

func (v UncoloredVertex2D) Encode(dst []byte) {
	putFloats(dst, v.Position[:])
}

func (v TexturedVertex2D) Encode(dst []byte) {
	dst = putFloats(dst, v.Position[:])
	dst = putFloats(dst, v.TexturePosition[:])
	dst = putFloats(dst, v.TextureRect[:])
	dst = putFloats(dst, v.BlendRange[:])
	putFloats(dst, v.Color[:])
}

// putFloats writes fs little-endian and returns the rest of dst.
func putFloats(dst []byte, fs []float32) []byte {
	for _, f := range fs {
		binary.LittleEndian.PutUint32(dst, math.Float32bits(f))
		dst = dst[4:]
	}
	return dst
}

// Stride returns the size of one encoded vertex of type T.
func Stride[T Vertex]() int {
	var zero T
	return int(zero.Layout().ArrayStride)
}
