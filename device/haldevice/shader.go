// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package haldevice

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"

	"github.com/gogpu/framepool/batch/vertex"
)

// Embedded WGSL shader sources. Every default shader is prefixed with
// the viewport uniform.

//go:embed shaders/viewport.wgsl
var viewportShaderSource string

//go:embed shaders/vertex2d.wgsl
var vertex2DShaderSource string

//go:embed shaders/uncolored2d.wgsl
var uncoloredVertex2DShaderSource string

//go:embed shaders/textured2d.wgsl
var texturedVertex2DShaderSource string

// defaultShaders maps the framepool vertex layouts to their WGSL source.
func defaultShaders() map[*gputypes.VertexBufferLayout]string {
	return map[*gputypes.VertexBufferLayout]string{
		vertex.Vertex2D{}.Layout():          viewportShaderSource + vertex2DShaderSource,
		vertex.UncoloredVertex2D{}.Layout(): viewportShaderSource + uncoloredVertex2DShaderSource,
		vertex.TexturedVertex2D{}.Layout():  viewportShaderSource + texturedVertex2DShaderSource,
	}
}

// compileWGSL compiles WGSL source to SPIR-V words.
func compileWGSL(src string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("haldevice: compile shader: %w", err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("haldevice: compile shader: %d bytes is not a whole number of words", len(spirvBytes))
	}

	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}
