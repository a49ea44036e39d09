package drawnode

import (
	"testing"

	"github.com/gogpu/gputypes"
)

func TestNodeSettersInvalidateOnChange(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(n *Node)
		changed bool
	}{
		{"same size", func(n *Node) { n.SetSize(1, 1) }, false},
		{"new size", func(n *Node) { n.SetSize(2, 1) }, true},
		{"same color", func(n *Node) { n.SetColor([4]float32{1, 1, 1, 1}) }, false},
		{"new color", func(n *Node) { n.SetColor([4]float32{1, 0, 0, 1}) }, true},
		{"same transform", func(n *Node) { n.SetTransform(Identity()) }, false},
		{"new transform", func(n *Node) { n.SetTransform(Translate(3, 4)) }, true},
		{"same texture rect", func(n *Node) { n.SetTextureRect(FullRect) }, false},
		{"new texture rect", func(n *Node) { n.SetTextureRect(Rect{Right: 0.5, Bottom: 0.5}) }, true},
		{"same blend", func(n *Node) { n.SetBlend(gputypes.BlendStateAlpha()) }, false},
		{"new blend", func(n *Node) { n.SetBlend(gputypes.BlendStateReplace()) }, true},
		{"same state", func(n *Node) { n.SetState(DefaultState()) }, false},
		{"explicit invalidate", func(n *Node) { n.Invalidate() }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNode()
			before := n.InvalidationID()
			tt.mutate(n)
			if got := n.InvalidationID() != before; got != tt.changed {
				t.Errorf("invalidation id changed = %v, want %v", got, tt.changed)
			}
		})
	}
}

func TestApplyStateReusesSnapshot(t *testing.T) {
	n := NewNode()
	s1 := n.ApplyState(0)
	if s1.InvalidationID() != 1 || s1.DrawIndex() != 0 || s1.NodeID() != n.ID() {
		t.Fatalf("snapshot = (inv %d, draw %d, node %d)", s1.InvalidationID(), s1.DrawIndex(), s1.NodeID())
	}

	if s2 := n.ApplyState(0); s2 != s1 {
		t.Error("unchanged node produced a new snapshot")
	}

	s3 := n.ApplyState(1)
	if s3 == s1 || s3.DrawIndex() != 1 {
		t.Error("moved node did not produce a new snapshot")
	}

	n.SetColor([4]float32{0, 0, 0, 1})
	s4 := n.ApplyState(1)
	if s4 == s3 {
		t.Fatal("changed node did not produce a new snapshot")
	}
	if s4.InvalidationID() != 2 {
		t.Errorf("InvalidationID() = %d, want 2", s4.InvalidationID())
	}
	if s3.State().Color != [4]float32{1, 1, 1, 1} {
		t.Error("earlier snapshot observed a later change")
	}
}

func TestNodeIDsAreUnique(t *testing.T) {
	a, b := NewNode(), NewNode()
	if a.ID() == b.ID() {
		t.Errorf("two nodes share id %d", a.ID())
	}
}

func TestAffine(t *testing.T) {
	m := Translate(10, 20).Multiply(Scale(2, 3))
	x, y := m.Apply(1, 1)
	if x != 12 || y != 23 {
		t.Errorf("Apply(1, 1) = (%v, %v), want (12, 23)", x, y)
	}
	if Identity().Multiply(m) != m {
		t.Error("identity is not neutral")
	}
}
