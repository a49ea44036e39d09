package pool

import (
	"errors"
	"testing"

	"github.com/gogpu/framepool/frame"
	"github.com/gogpu/framepool/internal/testdevice"
)

func TestFencePoolLatestSignaledUseID(t *testing.T) {
	ctx, dev, _ := newTestContext()
	p := NewFencePool(ctx)

	if _, ok := p.LatestSignaledUseID(); ok {
		t.Fatal("empty pool reported a signaled fence")
	}

	var fences []*testdevice.Fence
	for range 4 {
		ctx.Advance()
		f, err := p.Get()
		if err != nil {
			t.Fatal(err)
		}
		fences = append(fences, f.(*testdevice.Fence))
	}
	if len(dev.Fences) != 4 {
		t.Fatalf("created %d fences, want 4", len(dev.Fences))
	}
	if _, ok := p.LatestSignaledUseID(); ok {
		t.Fatal("no fence signaled yet, but LatestSignaledUseID reported one")
	}

	fences[0].Signal()
	fences[2].Signal()
	id, ok := p.LatestSignaledUseID()
	if !ok || id != 3 {
		t.Errorf("LatestSignaledUseID() = (%d, %v), want (3, true)", id, ok)
	}

	p.ReleaseUsedResources(id)
	if avail, used := p.Len(); avail != 3 || used != 1 {
		t.Errorf("Len() = (%d, %d), want (3, 1)", avail, used)
	}
	if _, ok := p.LatestSignaledUseID(); ok {
		t.Error("only the unsignaled frame 4 fence is used, want none signaled")
	}
}

func TestFencePoolResetsOnReuse(t *testing.T) {
	ctx, dev, _ := newTestContext()
	p := NewFencePool(ctx)

	ctx.Advance()
	f, _ := p.Get()
	f.(*testdevice.Fence).Signal()
	p.ReleaseUsedResources(1)

	ctx.Advance()
	again, _ := p.Get()
	if again != f {
		t.Fatal("released fence was not reused")
	}
	if again.Signaled() {
		t.Error("reused fence is still signaled")
	}
	if got := dev.Fences[0].Resets; got != 1 {
		t.Errorf("Resets = %d, want 1", got)
	}
}

func TestFencePoolResetFailure(t *testing.T) {
	ctx, dev, _ := newTestContext()
	p := NewFencePool(ctx)

	ctx.Advance()
	f, _ := p.Get()
	f.(*testdevice.Fence).ResetErr = errors.New("lost")
	p.ReleaseUsedResources(1)

	ctx.Advance()
	again, err := p.Get()
	if err != nil {
		t.Fatal(err)
	}
	if again == f {
		t.Error("a fence that failed to reset was handed out")
	}
	if len(dev.Fences) != 2 {
		t.Errorf("created %d fences, want 2", len(dev.Fences))
	}
}

func TestFencePoolEvictsIdleFences(t *testing.T) {
	ctx, dev, _ := newTestContext()
	p := NewFencePool(ctx)

	ctx.Advance()
	p.Get()
	p.Get()
	p.ReleaseUsedResources(1)
	for ctx.ResetID() < frame.ResetID(400) {
		ctx.Advance()
	}
	p.FreeUnusedResources(300)
	for _, f := range dev.Fences {
		if !f.Destroyed {
			t.Errorf("fence %d not destroyed", f.ID)
		}
	}
}
