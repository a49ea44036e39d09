package pool

import (
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/framepool/stats"
)

func TestRecommendedSize(t *testing.T) {
	tests := []struct {
		w, h         uint32
		wantW, wantH uint32
	}{
		{1, 1, 1024, 1024},
		{100, 50, 1024, 1024},
		{1024, 1024, 1024, 1024},
		{1025, 10, 2048, 1024},
		{3000, 5000, 4096, 8192},
	}
	for _, tt := range tests {
		gotW, gotH := RecommendedSize(tt.w, tt.h)
		if gotW != tt.wantW || gotH != tt.wantH {
			t.Errorf("RecommendedSize(%d, %d) = (%d, %d), want (%d, %d)",
				tt.w, tt.h, gotW, gotH, tt.wantW, tt.wantH)
		}
	}
}

func TestStagingTexturePoolSharesTextures(t *testing.T) {
	ctx, dev, _ := newTestContext()
	p := NewStagingTexturePool(ctx)
	ctx.Advance()

	var regions []TextureRegion
	for range 10 {
		r, err := p.Get(64, 64, gputypes.TextureFormatRGBA8Unorm)
		if err != nil {
			t.Fatal(err)
		}
		regions = append(regions, r)
	}
	if len(dev.Textures) != 1 {
		t.Fatalf("created %d textures, want 1", len(dev.Textures))
	}
	tex := dev.Textures[0]
	if tex.Desc.Width != 1024 || tex.Desc.Height != 1024 || tex.Desc.Usage != StagingTextureUsage {
		t.Errorf("texture desc = %+v, want 1024x1024 staging", tex.Desc)
	}
	for i := range regions {
		for j := i + 1; j < len(regions); j++ {
			if regions[i].Overlaps(regions[j]) {
				t.Errorf("regions %v and %v overlap", regions[i], regions[j])
			}
		}
	}
	if avail, used := p.Len(); avail != 1 || used != 0 {
		t.Errorf("Len() = (%d, %d), want the sub-pool to stay available", avail, used)
	}
}

func TestStagingTexturePoolSeparatesFormatsAndSizes(t *testing.T) {
	ctx, dev, _ := newTestContext()
	p := NewStagingTexturePool(ctx)
	ctx.Advance()

	p.Get(16, 16, gputypes.TextureFormatRGBA8Unorm)
	p.Get(16, 16, gputypes.TextureFormatR8Unorm)
	big, err := p.Get(2000, 10, gputypes.TextureFormatRGBA8Unorm)
	if err != nil {
		t.Fatal(err)
	}
	if len(dev.Textures) != 3 {
		t.Fatalf("created %d textures, want 3", len(dev.Textures))
	}
	if got := big.Texture.Width(); got != 2048 {
		t.Errorf("large upload texture width = %d, want 2048", got)
	}
	if got := dev.Textures[1].Desc.Format; got != gputypes.TextureFormatR8Unorm {
		t.Errorf("second texture format = %v, want R8Unorm", got)
	}
}

func TestStagingTexturePoolFullTextureMovesToUsed(t *testing.T) {
	ctx, dev, c := newTestContext()
	p := NewStagingTexturePool(ctx)
	ctx.Advance()

	if _, err := p.Get(1024, 1024, gputypes.TextureFormatRGBA8Unorm); err != nil {
		t.Fatal(err)
	}
	if avail, used := p.Len(); avail != 0 || used != 1 {
		t.Fatalf("Len() = (%d, %d), want (0, 1)", avail, used)
	}
	if got := c.Get(stats.GroupPools, "Used staging textures"); got != 1 {
		t.Errorf("Used staging textures = %d, want 1", got)
	}

	// The full texture is in flight, so the next upload needs another.
	p.Get(8, 8, gputypes.TextureFormatRGBA8Unorm)
	if len(dev.Textures) != 2 {
		t.Errorf("created %d textures, want 2", len(dev.Textures))
	}

	// Once the frame completes, the region filling the first texture is
	// released and is the only one large enough.
	p.ReleaseUsedResources(ctx.ResetID())
	ctx.Advance()
	r, err := p.Get(1024, 1024, gputypes.TextureFormatRGBA8Unorm)
	if err != nil {
		t.Fatal(err)
	}
	if r.Texture != dev.Textures[0] {
		t.Error("released full-texture region was not reused")
	}
	if len(dev.Textures) != 2 {
		t.Errorf("created %d textures, want 2", len(dev.Textures))
	}
}

func TestStagingTexturePoolNestedEviction(t *testing.T) {
	ctx, dev, _ := newTestContext()
	p := NewStagingTexturePool(ctx)
	ctx.Advance()
	p.Get(32, 32, gputypes.TextureFormatRGBA8Unorm)

	// The region is still used: the sub-pool must survive eviction even
	// though its own use id is old.
	for range 10 {
		ctx.Advance()
	}
	p.FreeUnusedResources(2)
	if dev.LiveTextures() != 1 {
		t.Fatalf("live textures = %d, want 1 while a region is used", dev.LiveTextures())
	}

	p.ReleaseUsedResources(1)
	if !p.FreeUnusedResources(2) {
		t.Fatal("FreeUnusedResources() = false, want true once the region is released")
	}
	if dev.LiveTextures() != 0 {
		t.Errorf("live textures = %d, want 0", dev.LiveTextures())
	}
	if p.HasResources() {
		t.Error("HasResources() = true after eviction")
	}
}

func TestStagingTexturePoolEmptyRequest(t *testing.T) {
	ctx, _, _ := newTestContext()
	p := NewStagingTexturePool(ctx)
	if _, err := p.Get(0, 10, gputypes.TextureFormatRGBA8Unorm); err == nil {
		t.Error("Get(0, 10) should fail")
	}
}

func TestStagingTexturePoolClose(t *testing.T) {
	ctx, dev, _ := newTestContext()
	p := NewStagingTexturePool(ctx)
	ctx.Advance()
	p.Get(32, 32, gputypes.TextureFormatRGBA8Unorm)
	p.Get(1024, 1024, gputypes.TextureFormatRGBA8Unorm)
	p.Close()
	if dev.LiveTextures() != 0 {
		t.Errorf("live textures = %d, want 0", dev.LiveTextures())
	}
}
