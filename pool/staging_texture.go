// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pool

import (
	"fmt"
	"math/bits"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/framepool/device"
	"github.com/gogpu/framepool/frame"
)

// StagingTexturePoolName is the statistics name of a StagingTexturePool.
const StagingTexturePoolName = "Staging Textures"

// MinStagingTextureSize is the smallest side of a staging texture.
const MinStagingTextureSize = 1024

// StagingTextureUsage is the usage of every staging texture.
const StagingTextureUsage = gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst

// stagingTextureRequest is the request of a StagingTexturePool.
type stagingTextureRequest struct {
	width, height uint32
	format        gputypes.TextureFormat
}

// StagingTexturePool hands out regions of shared staging textures. Each
// pooled resource is a SubTexturePool over one texture of a power of two
// size class, so many small uploads share a few large textures.
type StagingTexturePool struct {
	*Pool[stagingTextureRequest, *SubTexturePool]
}

// NewStagingTexturePool creates an empty staging texture pool.
func NewStagingTexturePool(ctx *frame.Context) *StagingTexturePool {
	return &StagingTexturePool{
		Pool: New[stagingTextureRequest, *SubTexturePool](ctx, StagingTexturePoolName, stagingTextureStrategy{ctx}),
	}
}

// Get returns a region of at least width x height texels in a staging
// texture of the given format.
func (p *StagingTexturePool) Get(width, height uint32, format gputypes.TextureFormat) (TextureRegion, error) {
	if width == 0 || height == 0 {
		return TextureRegion{}, fmt.Errorf("pool %q: empty region %dx%d", p.Name(), width, height)
	}
	sub, err := p.Pool.Get(stagingTextureRequest{width, height, format})
	if err != nil {
		return TextureRegion{}, err
	}
	return sub.Get(width, height)
}

// RecommendedSize returns the staging texture size class for a width x
// height upload.
func RecommendedSize(width, height uint32) (uint32, uint32) {
	return max(nextPowerOfTwo(width), MinStagingTextureSize),
		max(nextPowerOfTwo(height), MinStagingTextureSize)
}

func nextPowerOfTwo(v uint32) uint32 {
	if v <= 1 {
		return 1
	}
	return 1 << bits.Len32(v-1)
}

type stagingTextureStrategy struct {
	ctx *frame.Context
}

func (stagingTextureStrategy) CanUseResource(req stagingTextureRequest, sub *SubTexturePool) bool {
	w, h := RecommendedSize(req.width, req.height)
	tex := sub.Texture()
	if tex.Width() != w || tex.Height() != h || tex.Format() != req.format {
		return false
	}
	return sub.CanAllocateRegion(req.width, req.height) || sub.hasAvailableRegion(req.width, req.height)
}

func (stagingTextureStrategy) CanResourceRemainAvailable(req stagingTextureRequest, sub *SubTexturePool) bool {
	return !sub.ReachesPoolEnd(req.width, req.height)
}

func (s stagingTextureStrategy) CreateResource(req stagingTextureRequest) (*SubTexturePool, error) {
	w, h := RecommendedSize(req.width, req.height)
	tex, err := s.ctx.Device.CreateTexture(device.TextureDescriptor{
		Label:  "staging texture",
		Width:  w,
		Height: h,
		Format: req.format,
		Usage:  StagingTextureUsage,
	})
	if err != nil {
		return nil, err
	}
	return NewSubTexturePool(s.ctx, tex), nil
}

func (stagingTextureStrategy) DestroyResource(sub *SubTexturePool) { sub.Close() }
