// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package renderer

import (
	"fmt"

	"github.com/gogpu/framepool/device"
)

// UpdateBuffer writes data into dst at offset through a pooled staging
// buffer. The copy is recorded in command order, so draws recorded earlier
// still see the previous contents. offset must be a multiple of
// device.CopyAlignment, and so must len(data) unless the update ends dst.
func (r *Renderer) UpdateBuffer(dst device.Buffer, offset uint64, data []byte) error {
	if r.closed {
		return ErrClosed
	}
	if len(data) == 0 {
		return nil
	}
	size := uint64(len(data))
	if offset+size > dst.Size() {
		return fmt.Errorf("renderer: update %d bytes at %d of a %d byte buffer: %w",
			size, offset, dst.Size(), device.ErrOutOfRange)
	}

	if offset%device.CopyAlignment != 0 ||
		(size%device.CopyAlignment != 0 && offset+size != dst.Size()) {
		return fmt.Errorf("renderer: update %d bytes at %d is not %d-byte aligned: %w",
			size, offset, device.CopyAlignment, device.ErrOutOfRange)
	}

	// The staging write covers whole words; only size bytes reach dst.
	if rem := size % device.CopyAlignment; rem != 0 {
		padded := make([]byte, size+device.CopyAlignment-rem)
		copy(padded, data)
		data = padded
	}
	staging, err := r.stagingBuffers.Get(uint64(len(data)))
	if err != nil {
		return fmt.Errorf("renderer: staging buffer: %w", err)
	}
	if err := r.ctx.Device.UpdateBuffer(staging, 0, data); err != nil {
		return err
	}
	return r.ctx.Device.CopyBuffer(staging, 0, dst, offset, size)
}

// UpdateTexture writes a width x height block of texels at (x, y) in dst
// through a region of a pooled staging texture. data is tightly packed in
// dst's format.
func (r *Renderer) UpdateTexture(dst device.Texture, x, y, width, height uint32, data []byte) error {
	if r.closed {
		return ErrClosed
	}
	bpp := device.BytesPerPixel(dst.Format())
	if bpp == 0 {
		return fmt.Errorf("renderer: unsupported texture format %s", dst.Format())
	}
	if want := uint64(width) * uint64(height) * uint64(bpp); uint64(len(data)) != want {
		return fmt.Errorf("renderer: %dx%d %s update needs %d bytes, got %d",
			width, height, dst.Format(), want, len(data))
	}
	if x+width > dst.Width() || y+height > dst.Height() {
		return fmt.Errorf("renderer: update %dx%d at (%d,%d) of a %dx%d texture: %w",
			width, height, x, y, dst.Width(), dst.Height(), device.ErrOutOfRange)
	}

	region, err := r.stagingTextures.Get(width, height, dst.Format())
	if err != nil {
		return fmt.Errorf("renderer: staging texture: %w", err)
	}
	if err := r.ctx.Device.UpdateTexture(region.Texture, region.X, region.Y, width, height, data); err != nil {
		return err
	}
	return r.ctx.Device.CopyTexture(region.Texture, region.X, region.Y, dst, x, y, width, height)
}
