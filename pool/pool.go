// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package pool implements usage-tagged device resource pools.
//
// Every pooled resource is tagged with the reset id of the frame that last
// requested it. A resource that was handed out lives in the used list until
// the renderer learns, through a fence, that the device has finished the
// frame that used it; ReleaseUsedResources then moves it back to the
// available list. Resources that stay available for longer than the free
// interval are destroyed by FreeUnusedResources.
//
// Pools are owned by the draw goroutine and are not safe for concurrent use.
package pool

import (
	"container/list"
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/framepool"
	"github.com/gogpu/framepool/frame"
	"github.com/gogpu/framepool/stats"
)

// ErrClosed is returned by Get after Close.
var ErrClosed = errors.New("pool: closed")

// Strategy is the capability set that specializes a Pool for one resource
// kind.
type Strategy[Req, Res any] interface {
	// CanUseResource reports whether an available resource satisfies req.
	CanUseResource(req Req, res Res) bool
	// CanResourceRemainAvailable reports whether res still has spare capacity
	// after satisfying req. Resources that are fully claimed by a request
	// move to the used list.
	CanResourceRemainAvailable(req Req, res Res) bool
	// CreateResource creates a resource for req. It is called only when no
	// available resource fits.
	CreateResource(req Req) (Res, error)
	// DestroyResource releases the device object behind res.
	DestroyResource(res Res)
}

// Nested is implemented by resources that are pools themselves. The owning
// pool releases and frees them recursively.
type Nested interface {
	HasResources() bool
	ReleaseUsedResources(untilID frame.ResetID)
	FreeUnusedResources(interval frame.ResetID) bool
}

// entry is one pooled resource tagged with its last use.
type entry[Res any] struct {
	useID    frame.ResetID
	resource Res
}

// Pool is a generic request to resource cache.
type Pool[Req, Res any] struct {
	name     string
	ctx      *frame.Context
	strategy Strategy[Req, Res]

	// available and used hold *entry[Res] in ascending useID order.
	available *list.List
	used      *list.List

	availableStat string
	usedStat      string
	closed        bool
}

// New creates a pool. name appears in statistics and logs.
func New[Req, Res any](ctx *frame.Context, name string, strategy Strategy[Req, Res]) *Pool[Req, Res] {
	lower := strings.ToLower(name)
	return &Pool[Req, Res]{
		name:          name,
		ctx:           ctx,
		strategy:      strategy,
		available:     list.New(),
		used:          list.New(),
		availableStat: "Available " + lower,
		usedStat:      "Used " + lower,
	}
}

// Name returns the pool name.
func (p *Pool[Req, Res]) Name() string {
	return p.name
}

// Get returns a resource satisfying req, reusing the oldest admissible
// available resource or creating a new one.
func (p *Pool[Req, Res]) Get(req Req) (Res, error) {
	var zero Res
	if p.closed {
		return zero, ErrClosed
	}

	now := p.ctx.ResetID()

	var (
		el  *list.Element
		ent *entry[Res]
	)
	for e := p.available.Front(); e != nil; e = e.Next() {
		if cand := e.Value.(*entry[Res]); p.strategy.CanUseResource(req, cand.resource) {
			el, ent = e, cand
			break
		}
	}

	if ent == nil {
		res, err := p.strategy.CreateResource(req)
		if err != nil {
			return zero, fmt.Errorf("pool %q: create resource: %w", p.name, err)
		}
		ent = &entry[Res]{resource: res}
		framepool.Logger().Debug("pool grew", "pool", p.name, "available", p.available.Len(), "used", p.used.Len())
	}
	ent.useID = now

	switch {
	case !p.strategy.CanResourceRemainAvailable(req, ent.resource):
		if el != nil {
			p.available.Remove(el)
			p.stat(p.availableStat, -1)
		}
		p.used.PushBack(ent)
		p.stat(p.usedStat, 1)
	case el == nil:
		p.available.PushBack(ent)
		p.stat(p.availableStat, 1)
	}

	return ent.resource, nil
}

// ReleaseUsedResources returns every used resource whose use id is at most
// untilID to the available list. Nested pools are released first.
func (p *Pool[Req, Res]) ReleaseUsedResources(untilID frame.ResetID) {
	p.each(func(ent *entry[Res]) {
		if n, ok := any(ent.resource).(Nested); ok {
			n.ReleaseUsedResources(untilID)
		}
	})

	// Released entries are themselves in ascending order, so the insertion
	// point only ever moves forward.
	pivot := p.available.Front()
	for e := p.used.Front(); e != nil; e = p.used.Front() {
		ent := e.Value.(*entry[Res])
		if ent.useID > untilID {
			break
		}
		p.used.Remove(e)
		p.stat(p.usedStat, -1)

		for pivot != nil && pivot.Value.(*entry[Res]).useID <= ent.useID {
			pivot = pivot.Next()
		}
		if pivot != nil {
			p.available.InsertBefore(ent, pivot)
		} else {
			p.available.PushBack(ent)
		}
		p.stat(p.availableStat, 1)
	}
}

// FreeUnusedResources destroys available resources that have not been used
// for more than interval frames. Nested pools are freed recursively and kept
// while they still hold resources. It reports whether anything was destroyed.
func (p *Pool[Req, Res]) FreeUnusedResources(interval frame.ResetID) bool {
	now := p.ctx.ResetID()
	freed := 0

	var next *list.Element
	for e := p.available.Front(); e != nil; e = next {
		next = e.Next()
		ent := e.Value.(*entry[Res])
		if now-ent.useID <= interval {
			break
		}
		if n, ok := any(ent.resource).(Nested); ok {
			n.FreeUnusedResources(interval)
			if n.HasResources() {
				continue
			}
		}
		p.available.Remove(e)
		p.stat(p.availableStat, -1)
		p.strategy.DestroyResource(ent.resource)
		freed++
	}

	if freed > 0 {
		framepool.Logger().Debug("pool freed unused resources", "pool", p.name, "freed", freed, "available", p.available.Len())
	}
	return freed > 0
}

// HasResources reports whether the pool holds any resource.
func (p *Pool[Req, Res]) HasResources() bool {
	return p.available.Len() > 0 || p.used.Len() > 0
}

// Len returns the number of available and used resources.
func (p *Pool[Req, Res]) Len() (available, used int) {
	return p.available.Len(), p.used.Len()
}

// Close destroys every resource, available and used. The pool cannot be used
// afterwards. Close must only be called once the device has finished all
// work that references the pool's resources.
func (p *Pool[Req, Res]) Close() {
	if p.closed {
		return
	}
	p.closed = true
	p.each(func(ent *entry[Res]) {
		p.strategy.DestroyResource(ent.resource)
	})
	p.stat(p.availableStat, -int64(p.available.Len()))
	p.stat(p.usedStat, -int64(p.used.Len()))
	p.available.Init()
	p.used.Init()
}

// each calls fn for every entry, available first.
func (p *Pool[Req, Res]) each(fn func(*entry[Res])) {
	for _, l := range []*list.List{p.available, p.used} {
		for e := l.Front(); e != nil; e = e.Next() {
			fn(e.Value.(*entry[Res]))
		}
	}
}

// usedEntries iterates the used list from newest to oldest until fn returns
// false.
func (p *Pool[Req, Res]) usedEntries(fn func(*entry[Res]) bool) {
	for e := p.used.Back(); e != nil; e = e.Prev() {
		if !fn(e.Value.(*entry[Res])) {
			return
		}
	}
}

func (p *Pool[Req, Res]) stat(name string, delta int64) {
	if delta != 0 {
		p.ctx.Stats.Add(stats.GroupPools, name, delta)
	}
}
