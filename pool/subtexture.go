// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pool

import (
	"errors"
	"fmt"

	"github.com/gogpu/framepool/device"
	"github.com/gogpu/framepool/frame"
)

// ErrRegionUnavailable is returned when a sub-texture pool has no room left
// for a region of the requested size.
var ErrRegionUnavailable = errors.New("pool: no room for texture region")

// SubTexturePoolName is the statistics name of sub-texture pools.
const SubTexturePoolName = "Staging Texture Regions"

// TextureRegion is a rectangle inside a pooled texture.
type TextureRegion struct {
	Texture device.Texture
	X       uint32
	Y       uint32
	Width   uint32
	Height  uint32
}

// IsValid returns true if the region has a texture and non-zero dimensions.
func (r TextureRegion) IsValid() bool {
	return r.Texture != nil && r.Width > 0 && r.Height > 0
}

// Overlaps reports whether r and o share any texel of the same texture.
func (r TextureRegion) Overlaps(o TextureRegion) bool {
	return r.Texture == o.Texture &&
		r.X < o.X+o.Width && o.X < r.X+r.Width &&
		r.Y < o.Y+o.Height && o.Y < r.Y+r.Height
}

// String returns a string representation of the region.
func (r TextureRegion) String() string {
	return fmt.Sprintf("Region(%d,%d %dx%d)", r.X, r.Y, r.Width, r.Height)
}

// regionSize is the request of a SubTexturePool.
type regionSize struct {
	width, height uint32
}

// SubTexturePool carves regions out of one texture with a row-based bump
// allocator.
//
// Regions are placed left to right along the current row. A region that does
// not fit the rest of the row starts a new row at the lowest unused y. Space
// left at the end of a row is not reused until eviction lowers the high-water
// mark.
type SubTexturePool struct {
	*Pool[regionSize, TextureRegion]

	texture device.Texture

	// cursorX, cursorY is where the next new region is placed.
	cursorX, cursorY uint32
	// nextEmptyRow is the lowest y not covered by any region.
	nextEmptyRow uint32
}

// NewSubTexturePool creates a pool over tex. The pool owns tex and destroys
// it on Close.
func NewSubTexturePool(ctx *frame.Context, tex device.Texture) *SubTexturePool {
	p := &SubTexturePool{texture: tex}
	p.Pool = New[regionSize, TextureRegion](ctx, SubTexturePoolName, subTextureStrategy{p})
	return p
}

// Texture returns the texture regions are carved from.
func (p *SubTexturePool) Texture() device.Texture {
	return p.texture
}

// Get returns a region of at least width x height texels.
func (p *SubTexturePool) Get(width, height uint32) (TextureRegion, error) {
	return p.Pool.Get(regionSize{width, height})
}

// CanAllocateRegion reports whether a new width x height region fits either
// at the cursor or at the start of a fresh row.
func (p *SubTexturePool) CanAllocateRegion(width, height uint32) bool {
	w, h := p.texture.Width(), p.texture.Height()
	return (p.cursorX+width <= w && p.cursorY+height <= h) ||
		(width <= w && p.nextEmptyRow+height <= h)
}

// ReachesPoolEnd reports whether allocating a width x height region would
// fill the texture up to its bottom right corner.
func (p *SubTexturePool) ReachesPoolEnd(width, height uint32) bool {
	w, h := p.texture.Width(), p.texture.Height()
	return (p.cursorX+width == w && p.cursorY+height == h) ||
		(width == w && p.nextEmptyRow+height == h)
}

// hasAvailableRegion reports whether a released region can hold a width x
// height upload.
func (p *SubTexturePool) hasAvailableRegion(width, height uint32) bool {
	for e := p.available.Front(); e != nil; e = e.Next() {
		if r := e.Value.(*entry[TextureRegion]).resource; r.Width >= width && r.Height >= height {
			return true
		}
	}
	return false
}

// FreeUnusedResources frees unused regions and lowers the high-water mark to
// the bottom of the lowest region still held, so the freed rows are reused.
func (p *SubTexturePool) FreeUnusedResources(interval frame.ResetID) bool {
	if !p.Pool.FreeUnusedResources(interval) {
		return false
	}

	var bottom uint32
	p.each(func(ent *entry[TextureRegion]) {
		bottom = max(bottom, ent.resource.Y+ent.resource.Height)
	})
	p.nextEmptyRow = min(p.nextEmptyRow, bottom)
	p.cursorX, p.cursorY = 0, p.nextEmptyRow
	return true
}

// Close destroys the texture.
func (p *SubTexturePool) Close() {
	p.Pool.Close()
	p.texture.Destroy()
}

// allocate places a new region at the cursor, wrapping to a new row first
// when the current row is too short. A failed allocation leaves the cursor
// where it was.
func (p *SubTexturePool) allocate(width, height uint32) (TextureRegion, error) {
	texW, texH := p.texture.Width(), p.texture.Height()
	x, y := p.cursorX, p.cursorY
	if x+width > texW {
		x, y = 0, p.nextEmptyRow
	}
	if x+width > texW || y+height > texH {
		return TextureRegion{}, fmt.Errorf("%w: %dx%d in %dx%d texture", ErrRegionUnavailable,
			width, height, texW, texH)
	}

	p.nextEmptyRow = max(p.nextEmptyRow, y+height)
	p.cursorX, p.cursorY = x+width, y
	return TextureRegion{
		Texture: p.texture,
		X:       x,
		Y:       y,
		Width:   width,
		Height:  height,
	}, nil
}

type subTextureStrategy struct {
	p *SubTexturePool
}

func (subTextureStrategy) CanUseResource(req regionSize, r TextureRegion) bool {
	return r.Width >= req.width && r.Height >= req.height
}

func (subTextureStrategy) CanResourceRemainAvailable(regionSize, TextureRegion) bool { return false }

func (s subTextureStrategy) CreateResource(req regionSize) (TextureRegion, error) {
	return s.p.allocate(req.width, req.height)
}

// DestroyResource is a no-op: a region's texels are reclaimed when the
// high-water mark drops or the whole texture is destroyed.
func (subTextureStrategy) DestroyResource(TextureRegion) {}
