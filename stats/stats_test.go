package stats

import (
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	c := NewCounters()
	c.Add(GroupPools, "Available staging buffers", 2)
	c.Add(GroupPools, "Available staging buffers", -1)
	c.Add(GroupFrame, DrawCalls, 3)

	tests := []struct {
		group, name string
		want        int64
	}{
		{GroupPools, "Available staging buffers", 1},
		{GroupFrame, DrawCalls, 3},
		{GroupFrame, VerticesDraw, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Get(tt.group, tt.name); got != tt.want {
				t.Errorf("Get(%q, %q) = %d, want %d", tt.group, tt.name, got, tt.want)
			}
		})
	}

	c.ResetGroup(GroupFrame)
	if got := c.Get(GroupFrame, DrawCalls); got != 0 {
		t.Errorf("after ResetGroup DrawCalls = %d, want 0", got)
	}
	if got := c.Get(GroupPools, "Available staging buffers"); got != 1 {
		t.Errorf("ResetGroup touched another group: got %d, want 1", got)
	}
}

func TestCountersString(t *testing.T) {
	c := NewCounters()
	c.Add(GroupFrame, VerticesDraw, 8)
	c.Add(GroupFrame, DrawCalls, 2)

	got := c.String()
	want := "Frame/DrawCalls=2\nFrame/VerticesDraw=8\n"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestCountersConcurrent(t *testing.T) {
	c := NewCounters()
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				c.Add(GroupFrame, DrawCalls, 1)
			}
		}()
	}
	wg.Wait()
	if got := c.Get(GroupFrame, DrawCalls); got != 1000 {
		t.Errorf("DrawCalls = %d, want 1000", got)
	}
}

func TestTee(t *testing.T) {
	a, b := NewCounters(), NewCounters()
	s := Tee(a, b, Nop{})
	s.Add(GroupPools, "Used synchronisation fences", 1)

	for i, c := range []*Counters{a, b} {
		if got := c.Get(GroupPools, "Used synchronisation fences"); got != 1 {
			t.Errorf("sink %d = %d, want 1", i, got)
		}
	}
}

func TestOrNop(t *testing.T) {
	if _, ok := OrNop(nil).(Nop); !ok {
		t.Error("OrNop(nil) should return Nop")
	}
	c := NewCounters()
	if OrNop(c) != Sink(c) {
		t.Error("OrNop should return a non-nil sink unchanged")
	}
}

func TestPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	p, err := NewPrometheus(reg, "framepool")
	if err != nil {
		t.Fatalf("NewPrometheus() error = %v", err)
	}

	p.Add(GroupPools, "Used staging buffers", 3)
	p.Add(GroupPools, "Used staging buffers", -1)
	p.Add(GroupFrame, DrawCalls, 5)
	p.Add(GroupFrame, DrawCalls, 2)

	if got := testutil.ToFloat64(p.resources.WithLabelValues(GroupPools, "Used staging buffers")); got != 2 {
		t.Errorf("pool gauge = %v, want 2", got)
	}
	if got := testutil.ToFloat64(p.frame.WithLabelValues("drawcalls")); got != 7 {
		t.Errorf("frame counter = %v, want 7", got)
	}

	n, err := testutil.GatherAndCount(reg)
	if err != nil {
		t.Fatalf("GatherAndCount() error = %v", err)
	}
	if n != 2 {
		t.Errorf("exported series = %d, want 2", n)
	}
}

func TestPrometheusDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPrometheus(reg, "framepool"); err != nil {
		t.Fatalf("first NewPrometheus() error = %v", err)
	}
	_, err := NewPrometheus(reg, "framepool")
	if err == nil || !strings.Contains(err.Error(), "register prometheus collector") {
		t.Errorf("second NewPrometheus() error = %v, want registration error", err)
	}
}
