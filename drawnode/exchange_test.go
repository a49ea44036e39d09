package drawnode

import (
	"errors"
	"sync"
	"testing"
)

func TestProducerAssignsDrawOrder(t *testing.T) {
	var x Exchange
	p := NewProducer(&x)
	nodes := []*Node{NewNode(), NewNode(), NewNode()}

	f1, err := p.Produce(nodes)
	if err != nil {
		t.Fatal(err)
	}
	if f1.Index != 1 || x.Latest() != f1 || x.Published() != 1 {
		t.Fatalf("first frame: index %d, latest %p, published %d", f1.Index, x.Latest(), x.Published())
	}
	for i, s := range f1.Snapshots {
		if s.DrawIndex() != i || s.NodeID() != nodes[i].ID() {
			t.Errorf("Snapshots[%d] = (draw %d, node %d)", i, s.DrawIndex(), s.NodeID())
		}
	}

	// Swapping two nodes moves them in the draw order, the third keeps its
	// snapshot.
	nodes[0], nodes[1] = nodes[1], nodes[0]
	f2, err := p.Produce(nodes)
	if err != nil {
		t.Fatal(err)
	}
	if f2.Index != 2 {
		t.Errorf("Index = %d, want 2", f2.Index)
	}
	if f2.Snapshots[0] == f1.Snapshots[1] || f2.Snapshots[1] == f1.Snapshots[0] {
		t.Error("moved nodes kept their snapshots")
	}
	if f2.Snapshots[2] != f1.Snapshots[2] {
		t.Error("unchanged node got a new snapshot")
	}
}

func TestProducerRejectsDuplicateNodes(t *testing.T) {
	var x Exchange
	p := NewProducer(&x)
	n0, n1 := NewNode(), NewNode()

	tests := []struct {
		name  string
		nodes []*Node
	}{
		{"adjacent", []*Node{n0, n0, n1}},
		{"apart", []*Node{n0, n1, n0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := p.Produce(tt.nodes)
			if !errors.Is(err, ErrDuplicateNode) || f != nil {
				t.Fatalf("Produce() = %v, %v, want ErrDuplicateNode", f, err)
			}
		})
	}
	if x.Latest() != nil || x.Published() != 0 {
		t.Fatalf("rejected traversals were published")
	}

	f, err := p.Produce([]*Node{n0, n1})
	if err != nil {
		t.Fatal(err)
	}
	if f.Index != 1 {
		t.Errorf("Index = %d after rejected traversals, want 1", f.Index)
	}
	if s := f.Snapshots[0]; s.DrawIndex() != 0 || s.NodeID() != n0.ID() {
		t.Errorf("Snapshots[0] = (draw %d, node %d)", s.DrawIndex(), s.NodeID())
	}
}

func TestExchangeLatestBeforePublish(t *testing.T) {
	var x Exchange
	if x.Latest() != nil {
		t.Error("Latest() before any publish is not nil")
	}
}

// TestExchangeConcurrent runs an update goroutine that keeps mutating nodes
// against a draw goroutine reading snapshots. Run with -race.
func TestExchangeConcurrent(t *testing.T) {
	const frames = 500
	var x Exchange
	p := NewProducer(&x)
	nodes := make([]*Node, 16)
	for i := range nodes {
		nodes[i] = NewNode()
	}

	var wg sync.WaitGroup
	done := make(chan struct{})
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer close(done)
		for i := range frames {
			for j, n := range nodes {
				n.SetTransform(Translate(float32(i), float32(j)))
			}
			if _, err := p.Produce(nodes); err != nil {
				t.Error(err)
				return
			}
		}
	}()

	var lastIndex uint64
	var decreasing bool
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			f := x.Latest()
			if f == nil {
				continue
			}
			if f.Index < lastIndex {
				decreasing = true
			}
			lastIndex = f.Index
			for _, s := range f.Snapshots {
				_ = s.State().Transform
			}
		}
	}()
	wg.Wait()

	if decreasing {
		t.Error("draw side observed frames out of order")
	}
	if f := x.Latest(); f.Index != frames {
		t.Errorf("latest Index = %d, want %d", f.Index, frames)
	}
	if got := nodes[3].State().Transform; got != Translate(frames-1, 3) {
		t.Errorf("final transform = %+v", got)
	}
}
