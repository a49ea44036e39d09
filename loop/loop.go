// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package loop runs the update and draw loops of an application side by
// side.
//
// The update loop ticks at a fixed rate and publishes drawnode frames; the
// draw loop renders the latest published frame as fast as allowed. The two
// never wait for each other. A failure or panic in either loop stops both.
package loop

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/framepool"
)

// Loop errors.
var (
	// ErrDrawPanic wraps a panic recovered from the draw function.
	ErrDrawPanic = errors.New("loop: draw panicked")
	// ErrUpdatePanic wraps a panic recovered from the update function.
	ErrUpdatePanic = errors.New("loop: update panicked")
)

// DefaultUpdateRate is the update frequency in Hz.
const DefaultUpdateRate = 60

// Func is one iteration of a loop. dt is the time since the previous
// iteration, zero on the first one.
type Func func(ctx context.Context, dt time.Duration) error

type config struct {
	updateInterval time.Duration
	drawInterval   time.Duration
}

// Option configures Run.
type Option func(*config)

// WithUpdateRate sets the update frequency in Hz. Rates <= 0 are ignored.
func WithUpdateRate(hz float64) Option {
	return func(c *config) {
		if hz > 0 {
			c.updateInterval = time.Duration(float64(time.Second) / hz)
		}
	}
}

// WithDrawRate caps the draw frequency in Hz. 0 means uncapped.
func WithDrawRate(hz float64) Option {
	return func(c *config) {
		if hz <= 0 {
			c.drawInterval = 0
			return
		}
		c.drawInterval = time.Duration(float64(time.Second) / hz)
	}
}

// Run runs update and draw on their own goroutines until ctx is done or one
// of them fails. It returns the first error, or nil when ctx ended the run.
func Run(ctx context.Context, update, draw Func, opts ...Option) error {
	cfg := config{updateInterval: time.Second / DefaultUpdateRate}
	for _, opt := range opts {
		opt(&cfg)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return guard(ErrUpdatePanic, func() error {
			return runTicker(ctx, cfg.updateInterval, update)
		})
	})
	g.Go(func() error {
		return guard(ErrDrawPanic, func() error {
			return runFree(ctx, cfg.drawInterval, draw)
		})
	})
	err := g.Wait()
	if err != nil {
		framepool.Logger().Error("loop stopped", "err", err)
	}
	return err
}

// guard turns a panic in fn into an error wrapping sentinel.
func guard(sentinel error, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			framepool.Logger().Error("loop panic", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("%w: %v", sentinel, r)
		}
	}()
	return fn()
}

// runTicker calls fn once per interval.
func runTicker(ctx context.Context, interval time.Duration, fn Func) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			var dt time.Duration
			if !last.IsZero() {
				dt = now.Sub(last)
			}
			last = now
			if err := fn(ctx, dt); err != nil {
				return err
			}
		}
	}
}

// runFree calls fn back to back, at most once per interval when interval
// is positive.
func runFree(ctx context.Context, interval time.Duration, fn Func) error {
	var last time.Time
	for {
		if ctx.Err() != nil {
			return nil
		}
		now := time.Now()
		var dt time.Duration
		if !last.IsZero() {
			dt = now.Sub(last)
		}
		last = now
		if err := fn(ctx, dt); err != nil {
			return err
		}

		if interval <= 0 {
			continue
		}
		if remaining := interval - time.Since(now); remaining > 0 {
			timer := time.NewTimer(remaining)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil
			case <-timer.C:
			}
		}
	}
}
