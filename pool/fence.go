// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package pool

import (
	"github.com/gogpu/framepool"
	"github.com/gogpu/framepool/device"
	"github.com/gogpu/framepool/frame"
)

// FencePoolName is the statistics name of a FencePool.
const FencePoolName = "Synchronisation fences"

// FencePool recycles device fences. The newest signaled fence tells the
// renderer which frames the device has finished.
type FencePool struct {
	*Pool[struct{}, device.Fence]
}

// NewFencePool creates an empty fence pool.
func NewFencePool(ctx *frame.Context) *FencePool {
	return &FencePool{Pool: New[struct{}, device.Fence](ctx, FencePoolName, fenceStrategy{ctx})}
}

// Get returns an unsignaled fence tagged with the current frame.
func (p *FencePool) Get() (device.Fence, error) {
	return p.Pool.Get(struct{}{})
}

// LatestSignaledUseID returns the use id of the newest used fence that has
// signaled. ok is false when no used fence has signaled yet.
func (p *FencePool) LatestSignaledUseID() (id frame.ResetID, ok bool) {
	p.usedEntries(func(ent *entry[device.Fence]) bool {
		if ent.resource.Signaled() {
			id, ok = ent.useID, true
			return false
		}
		return true
	})
	return id, ok
}

type fenceStrategy struct {
	ctx *frame.Context
}

// CanUseResource resets the fence; a fence must be unsignaled before it is
// attached to new work.
func (fenceStrategy) CanUseResource(_ struct{}, f device.Fence) bool {
	if err := f.Reset(); err != nil {
		framepool.Logger().Warn("fence reset failed", "err", err)
		return false
	}
	return true
}

func (fenceStrategy) CanResourceRemainAvailable(struct{}, device.Fence) bool { return false }

func (s fenceStrategy) CreateResource(struct{}) (device.Fence, error) {
	return s.ctx.Device.CreateFence()
}

func (fenceStrategy) DestroyResource(f device.Fence) { f.Destroy() }
