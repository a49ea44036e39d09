package renderer

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/framepool/device"
	"github.com/gogpu/framepool/drawnode"
	"github.com/gogpu/framepool/internal/testdevice"
	"github.com/gogpu/framepool/stats"
)

func newTestRenderer(t *testing.T, opts ...Option) (*Renderer, *testdevice.Device) {
	t.Helper()
	dev := testdevice.New()
	r, err := New(dev, append([]Option{WithQuadBatch(16, 0)}, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	return r, dev
}

func runFrame(t *testing.T, r *Renderer, f *drawnode.Frame) {
	t.Helper()
	if err := r.BeginFrame(); err != nil {
		t.Fatal(err)
	}
	if err := r.DrawFrame(f); err != nil {
		t.Fatal(err)
	}
	if err := r.FinishFrame(); err != nil {
		t.Fatal(err)
	}
}

func newNodes(n int) []*drawnode.Node {
	nodes := make([]*drawnode.Node, n)
	for i := range nodes {
		nodes[i] = drawnode.NewNode()
		nodes[i].SetTransform(drawnode.Translate(float32(i*10), 0))
	}
	return nodes
}

func stagingBuffers(dev *testdevice.Device) int {
	n := 0
	for _, b := range dev.Buffers {
		if b.Usage() == gputypes.BufferUsageCopySrc|gputypes.BufferUsageCopyDst {
			n++
		}
	}
	return n
}

func TestRendererSkipsUnchangedNodes(t *testing.T) {
	r, dev := newTestRenderer(t)
	var x drawnode.Exchange
	p := drawnode.NewProducer(&x)
	nodes := newNodes(3)

	produce(t, p, nodes)
	runFrame(t, r, x.Latest())
	s := r.Stats()
	if s.DrawCalls != 1 || s.VerticesDrawn != 12 || s.VerticesUploaded != 12 {
		t.Fatalf("frame 1 stats = %v", s)
	}
	if len(dev.Submitted) != 1 {
		t.Fatalf("submitted = %d, want 1", len(dev.Submitted))
	}

	// The update loop fell behind: the same frame is drawn again.
	runFrame(t, r, x.Latest())
	s = r.Stats()
	if s.DrawCalls != 1 || s.VerticesDrawn != 12 || s.VerticesUploaded != 0 {
		t.Errorf("frame 2 stats = %v, want 12 vertices drawn and none uploaded", s)
	}

	nodes[1].SetColor([4]float32{1, 0, 0, 1})
	produce(t, p, nodes)
	runFrame(t, r, x.Latest())
	if got := r.Stats().VerticesUploaded; got != 4 {
		t.Errorf("frame 3 uploaded %d vertices, want 4", got)
	}
}

func TestRendererRecyclesStagingBuffers(t *testing.T) {
	r, dev := newTestRenderer(t)
	var x drawnode.Exchange
	p := drawnode.NewProducer(&x)
	nodes := newNodes(3)

	produce(t, p, nodes)
	runFrame(t, r, x.Latest())
	// Vertices and indices were both uploaded through staging buffers.
	if got := stagingBuffers(dev); got != 2 {
		t.Fatalf("staging buffers after frame 1 = %d, want 2", got)
	}

	runFrame(t, r, x.Latest())
	dev.Fences[0].Signal()

	nodes[0].SetColor([4]float32{0, 1, 0, 1})
	produce(t, p, nodes)
	runFrame(t, r, x.Latest())

	if got := stagingBuffers(dev); got != 2 {
		t.Errorf("staging buffers after frame 3 = %d, want 2 (reused)", got)
	}
	if got := len(dev.Fences); got != 2 {
		t.Errorf("fences = %d, want 2 (frame 1 fence reused)", got)
	}
	if got := dev.Fences[0].Resets; got != 1 {
		t.Errorf("reused fence was reset %d times, want 1", got)
	}
	if got := r.Stats().Pools["Used staging buffers"]; got != 1 {
		t.Errorf("used staging buffers = %d, want 1", got)
	}
}

func TestRendererFreesIdleResources(t *testing.T) {
	r, dev := newTestRenderer(t, WithFreeInterval(4), WithFreeCheckInterval(4))
	dev.SignalOnSubmit = true
	var x drawnode.Exchange
	p := drawnode.NewProducer(&x)

	produce(t, p, newNodes(2))
	runFrame(t, r, x.Latest())
	empty := &drawnode.Frame{}
	for range 6 {
		runFrame(t, r, empty)
	}
	// Frame 7: the vertex buffer is still held, staging buffers are gone.
	if got := stagingBuffers(dev) - countDestroyedStaging(dev); got != 0 {
		t.Errorf("live staging buffers = %d, want 0", got)
	}
	if r.Context().InUse() != 1 {
		t.Errorf("in-use vertex buffers = %d, want 1", r.Context().InUse())
	}
	if len(r.usages) != 0 {
		t.Errorf("usages = %d, want 0 after pruning", len(r.usages))
	}

	runFrame(t, r, empty)
	if r.Context().InUse() != 0 {
		t.Errorf("in-use vertex buffers at frame 8 = %d, want 0", r.Context().InUse())
	}
	// Only the quad index buffer survives.
	if got := dev.LiveBuffers(); got != 1 {
		t.Errorf("live buffers = %d, want 1", got)
	}
}

func countDestroyedStaging(dev *testdevice.Device) int {
	n := 0
	for _, b := range dev.Buffers {
		if b.Destroyed && b.Usage() == gputypes.BufferUsageCopySrc|gputypes.BufferUsageCopyDst {
			n++
		}
	}
	return n
}

func TestRendererBlendBatches(t *testing.T) {
	r, dev := newTestRenderer(t)
	nodes := newNodes(3)
	nodes[1].SetBlend(gputypes.BlendStateReplace())
	var x drawnode.Exchange
	produce(t, drawnode.NewProducer(&x), nodes)

	runFrame(t, r, x.Latest())

	if got := dev.DrawCounts(); !slices.Equal(got, []uint32{6, 6, 6}) {
		t.Fatalf("draw counts = %v, want [6 6 6]", got)
	}
	want := []gputypes.BlendState{
		gputypes.BlendStateAlpha(),
		gputypes.BlendStateReplace(),
		gputypes.BlendStateAlpha(),
	}
	for i, cmd := range dev.Draws {
		if cmd.Blend == nil || *cmd.Blend != want[i] {
			t.Errorf("draw %d blend = %v, want %+v", i, cmd.Blend, want[i])
		}
	}
	if len(r.quads) != 2 {
		t.Errorf("quad batches = %d, want 2", len(r.quads))
	}
}

func produce(t *testing.T, p *drawnode.Producer, nodes []*drawnode.Node) {
	t.Helper()
	if _, err := p.Produce(nodes); err != nil {
		t.Fatalf("Produce() error = %v", err)
	}
}

func TestRendererUpdateBuffer(t *testing.T) {
	r, dev := newTestRenderer(t)
	dst, _ := dev.CreateBuffer(16, gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	r.BeginFrame()

	if err := r.UpdateBuffer(dst, 4, []byte{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	if got := dev.Buffers[0].Data[4:8]; !slices.Equal(got, []byte{1, 2, 3, 4}) {
		t.Errorf("dst[4:8] = %v", got)
	}
	if len(dev.Copies) != 1 || dev.Copies[0].Dst != dev.Buffers[0] {
		t.Errorf("copies = %+v, want one into dst", dev.Copies)
	}
	if err := r.UpdateBuffer(dst, 14, []byte{1, 2, 3, 4}); !errors.Is(err, device.ErrOutOfRange) {
		t.Errorf("overflowing update error = %v, want ErrOutOfRange", err)
	}
	if err := r.UpdateBuffer(dst, 0, nil); err != nil {
		t.Errorf("empty update error = %v", err)
	}
}

func TestRendererUpdateBufferAlignment(t *testing.T) {
	r, dev := newTestRenderer(t)
	dst, _ := dev.CreateBuffer(16, gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	tail, _ := dev.CreateBuffer(13, gputypes.BufferUsageUniform|gputypes.BufferUsageCopyDst)
	for i := range dev.Buffers[0].Data {
		dev.Buffers[0].Data[i] = 0xff
	}
	r.BeginFrame()

	tests := []struct {
		name   string
		dst    device.Buffer
		offset uint64
		size   int
	}{
		{"unaligned size inside buffer", dst, 0, 5},
		{"unaligned offset", dst, 2, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := r.UpdateBuffer(tt.dst, tt.offset, make([]byte, tt.size)); !errors.Is(err, device.ErrOutOfRange) {
				t.Fatalf("UpdateBuffer() error = %v, want ErrOutOfRange", err)
			}
		})
	}
	for i, b := range dev.Buffers[0].Data {
		if b != 0xff {
			t.Fatalf("dst[%d] = %#x after rejected updates, want untouched", i, b)
		}
	}
	if len(dev.Copies) != 0 {
		t.Fatalf("copies = %+v after rejected updates, want none", dev.Copies)
	}

	if err := r.UpdateBuffer(tail, 8, []byte{1, 2, 3, 4, 5}); err != nil {
		t.Fatalf("UpdateBuffer(end of buffer) error = %v", err)
	}
	if got := dev.Buffers[1].Data[8:]; !slices.Equal(got, []byte{1, 2, 3, 4, 5}) {
		t.Errorf("tail[8:] = %v, want [1 2 3 4 5]", got)
	}
	if len(dev.Copies) != 1 || dev.Copies[0].Width != 5 {
		t.Errorf("copies = %+v, want one 5 byte copy", dev.Copies)
	}
	if staging := dev.Copies[0].Src.(*testdevice.Buffer); staging.Size()%device.CopyAlignment != 0 {
		t.Errorf("staging buffer size = %d, want whole words", staging.Size())
	}
}

func TestRendererUpdateTexture(t *testing.T) {
	r, dev := newTestRenderer(t)
	dst, _ := dev.CreateTexture(device.TextureDescriptor{
		Width: 64, Height: 64, Format: gputypes.TextureFormatRGBA8Unorm,
	})
	r.BeginFrame()

	tests := []struct {
		name    string
		x, y    uint32
		w, h    uint32
		data    int
		wantErr bool
	}{
		{"fits", 8, 8, 16, 16, 16 * 16 * 4, false},
		{"short data", 0, 0, 4, 4, 10, true},
		{"out of range", 60, 60, 8, 8, 8 * 8 * 4, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.UpdateTexture(dst, tt.x, tt.y, tt.w, tt.h, make([]byte, tt.data))
			if (err != nil) != tt.wantErr {
				t.Fatalf("UpdateTexture() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if len(dev.Copies) != 1 {
		t.Fatalf("copies = %d, want 1", len(dev.Copies))
	}
	c := dev.Copies[0]
	if c.Dst != dst || c.DstX != 8 || c.DstY != 8 || c.Width != 16 || c.Height != 16 {
		t.Errorf("copy = %+v", c)
	}
	staging := c.Src.(*testdevice.Texture)
	if staging.Desc.Width != 1024 || staging.Desc.Format != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("staging texture = %+v", staging.Desc)
	}
}

func TestRendererClose(t *testing.T) {
	r, dev := newTestRenderer(t)
	var x drawnode.Exchange
	produce(t, drawnode.NewProducer(&x), newNodes(2))
	runFrame(t, r, x.Latest())
	r.BeginFrame()
	tex, _ := dev.CreateTexture(device.TextureDescriptor{Width: 4, Height: 4, Format: gputypes.TextureFormatRGBA8Unorm})
	if err := r.UpdateTexture(tex, 0, 0, 4, 4, make([]byte, 64)); err != nil {
		t.Fatal(err)
	}

	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if got := dev.LiveBuffers(); got != 0 {
		t.Errorf("live buffers after Close = %d, want 0", got)
	}
	// The caller's texture is the only one left.
	if got := dev.LiveTextures(); got != 1 {
		t.Errorf("live textures after Close = %d, want 1", got)
	}
	for _, f := range dev.Fences {
		if !f.Destroyed {
			t.Errorf("fence %d not destroyed", f.ID)
		}
	}
	if err := r.BeginFrame(); !errors.Is(err, ErrClosed) {
		t.Errorf("BeginFrame after Close = %v, want ErrClosed", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}

func TestNewRejectsBadQuadBatch(t *testing.T) {
	if _, err := New(testdevice.New(), WithQuadBatch(0, 0)); err == nil {
		t.Error("New accepted an empty quad batch")
	}
}

func TestFrameStatsString(t *testing.T) {
	s := FrameStats{
		ResetID:       3,
		DrawCalls:     2,
		VerticesDrawn: 8,
		Pools:         map[string]int64{"Used b": 1, "Available a": 2},
	}
	got := s.String()
	want := "frame 3: 2 draw calls, 8 vertices drawn, 0 uploaded, 0 overflows; Available a=2; Used b=1"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestRendererForwardsStats(t *testing.T) {
	c := stats.NewCounters()
	r, _ := newTestRenderer(t, WithStats(c))
	var x drawnode.Exchange
	produce(t, drawnode.NewProducer(&x), newNodes(1))
	runFrame(t, r, x.Latest())
	runFrame(t, r, x.Latest())

	// The external sink accumulates across frames.
	if got := c.Get(stats.GroupFrame, stats.VerticesDraw); got != 8 {
		t.Errorf("forwarded vertices drawn = %d, want 8", got)
	}
	if !strings.Contains(c.String(), "Renderer Pools/Used synchronisation fences") {
		t.Errorf("forwarded counters missing fence pool:\n%s", c)
	}
}
