// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pool

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/framepool/device"
	"github.com/gogpu/framepool/frame"
)

// StagingBufferPoolName is the statistics name of a StagingBufferPool.
const StagingBufferPoolName = "Staging Buffers"

// StagingBufferUsage is the usage of every staging buffer: written by the
// queue and copied into its destination.
const StagingBufferUsage = gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst

// StagingBufferPool recycles intermediate upload buffers.
type StagingBufferPool struct {
	*Pool[uint64, device.Buffer]
}

// NewStagingBufferPool creates an empty staging buffer pool.
func NewStagingBufferPool(ctx *frame.Context) *StagingBufferPool {
	return &StagingBufferPool{Pool: New[uint64, device.Buffer](ctx, StagingBufferPoolName, stagingBufferStrategy{ctx})}
}

// Get returns a staging buffer of at least size bytes.
func (p *StagingBufferPool) Get(size uint64) (device.Buffer, error) {
	return p.Pool.Get(size)
}

type stagingBufferStrategy struct {
	ctx *frame.Context
}

func (stagingBufferStrategy) CanUseResource(size uint64, buf device.Buffer) bool {
	return size <= buf.Size()
}

func (stagingBufferStrategy) CanResourceRemainAvailable(uint64, device.Buffer) bool { return false }

func (s stagingBufferStrategy) CreateResource(size uint64) (device.Buffer, error) {
	return s.ctx.Device.CreateBuffer(size, StagingBufferUsage)
}

func (stagingBufferStrategy) DestroyResource(buf device.Buffer) { buf.Destroy() }
