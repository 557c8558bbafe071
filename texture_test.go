package nxt

import (
	"image"
	"image/color"
	"testing"

	"github.com/gogpu/gputypes"
)

// complete sets every required texture property.
func complete(b *TextureBuilder) *TextureBuilder {
	return b.SetDimension(gputypes.TextureDimension2D).
		SetExtent(8, 8, 1).
		SetFormat(gputypes.TextureFormatRGBA8Unorm).
		SetMipLevels(1).
		SetAllowedUsage(gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst)
}

func TestTextureBuilderErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *TextureBuilder)
		want  string
	}{
		{"missing properties", func(b *TextureBuilder) {
			b.SetDimension(gputypes.TextureDimension2D).SetExtent(8, 8, 1)
		}, "Texture missing properties"},
		{"zero extent", func(b *TextureBuilder) {
			b.SetDimension(gputypes.TextureDimension2D).SetExtent(8, 0, 1).
				SetFormat(gputypes.TextureFormatRGBA8Unorm).SetMipLevels(1).
				SetAllowedUsage(gputypes.TextureUsageCopyDst)
		}, "Texture extent cannot be zero"},
		{"1D with height", func(b *TextureBuilder) {
			b.SetDimension(gputypes.TextureDimension1D).SetExtent(8, 2, 1).
				SetFormat(gputypes.TextureFormatRGBA8Unorm).SetMipLevels(1).
				SetAllowedUsage(gputypes.TextureUsageCopyDst)
		}, "1D texture height must be 1"},
		{"too many mips", func(b *TextureBuilder) {
			b.SetDimension(gputypes.TextureDimension2D).SetExtent(8, 8, 1).
				SetFormat(gputypes.TextureFormatRGBA8Unorm).SetMipLevels(5).
				SetAllowedUsage(gputypes.TextureUsageCopyDst)
		}, "Texture has too many mip levels"},
		{"array layers do not count toward mips", func(b *TextureBuilder) {
			b.SetDimension(gputypes.TextureDimension2D).SetExtent(4, 4, 64).
				SetFormat(gputypes.TextureFormatRGBA8Unorm).SetMipLevels(4).
				SetAllowedUsage(gputypes.TextureUsageCopyDst)
		}, "Texture has too many mip levels"},
		{"zero mips", func(b *TextureBuilder) {
			b.SetDimension(gputypes.TextureDimension2D).SetExtent(8, 8, 1).
				SetFormat(gputypes.TextureFormatRGBA8Unorm).SetMipLevels(0).
				SetAllowedUsage(gputypes.TextureUsageCopyDst)
		}, "Texture must have at least one mip level"},
		{"multisampled mips", func(b *TextureBuilder) {
			b.SetDimension(gputypes.TextureDimension2D).SetExtent(8, 8, 1).
				SetFormat(gputypes.TextureFormatRGBA8Unorm).SetMipLevels(2).SetSampleCount(4).
				SetAllowedUsage(gputypes.TextureUsageRenderAttachment)
		}, "Multisampled textures must be 2D with one mip level"},
		{"mips twice", func(b *TextureBuilder) {
			complete(b).SetMipLevels(2)
		}, "Texture mipLevels property set multiple times"},
		{"bad sample count", func(b *TextureBuilder) {
			complete(b).SetSampleCount(3)
		}, "Texture sample count must be 1 or 4"},
		{"initial not allowed", func(b *TextureBuilder) {
			complete(b).SetInitialUsage(gputypes.TextureUsageRenderAttachment)
		}, "Initial texture usage is not allowed"},
		{"compressed format", func(b *TextureBuilder) {
			b.SetDimension(gputypes.TextureDimension2D).SetExtent(8, 8, 1).
				SetFormat(gputypes.TextureFormatBC1RGBAUnorm).SetMipLevels(1).
				SetAllowedUsage(gputypes.TextureUsageCopyDst)
		}, "is not supported"},
		{"format twice", func(b *TextureBuilder) {
			b.SetFormat(gputypes.TextureFormatRGBA8Unorm).SetFormat(gputypes.TextureFormatR8Unorm)
		}, "Texture format property set multiple times"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			b := h.device.CreateTextureBuilder()
			h.expectError(tt.want, func() {
				tt.build(b)
				if tex := b.GetResult(); tex != nil {
					t.Error("GetResult() returned a texture")
				}
			})
		})
	}
}

func TestTextureBuilder(t *testing.T) {
	h := newHarness(t)
	tex := h.device.CreateTextureBuilder().
		SetDimension(gputypes.TextureDimension2D).
		SetExtent(16, 8, 1).
		SetFormat(gputypes.TextureFormatRGBA8Unorm).
		SetMipLevels(5).
		SetAllowedUsage(gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst).
		SetInitialUsage(gputypes.TextureUsageCopyDst).
		GetResult()
	if tex == nil {
		t.Fatalf("GetResult() = nil: %q", h.errors)
	}

	if w, hgt, d := tex.Extent(); w != 16 || hgt != 8 || d != 1 {
		t.Errorf("extent = %dx%dx%d", w, hgt, d)
	}
	if tex.MipLevels() != 5 || tex.SampleCount() != 1 || tex.Usage() != gputypes.TextureUsageCopyDst {
		t.Errorf("mips = %d samples = %d usage = %v", tex.MipLevels(), tex.SampleCount(), tex.Usage())
	}
	// 16x8 + 8x4 + 4x2 + 2x1 + 1x1 texels at 4 bytes.
	if s := h.device.MemoryStats(); s.UsedBytes != 4*(128+32+8+2+1) {
		t.Errorf("used = %d bytes", s.UsedBytes)
	}

	tex.Release()
	h.tick(2)
	if h.hal.texturesDestroyed != 1 {
		t.Errorf("textures destroyed = %d, want 1", h.hal.texturesDestroyed)
	}
	if s := h.device.MemoryStats(); s.UsedBytes != 0 {
		t.Errorf("used after release = %d bytes", s.UsedBytes)
	}
}

func TestTextureUsagePossible(t *testing.T) {
	const (
		src     = gputypes.TextureUsageCopySrc
		dst     = gputypes.TextureUsageCopyDst
		sampled = gputypes.TextureUsageTextureBinding
		target  = gputypes.TextureUsageRenderAttachment
	)
	tests := []struct {
		allowed, usage gputypes.TextureUsage
		want           bool
	}{
		{src | sampled, src | sampled, true},
		{target | src, target, true},
		{target | src, target | src, false},
		{sampled, dst, false},
		{dst, 0, true},
	}
	for _, tt := range tests {
		if got := TextureUsagePossible(tt.allowed, tt.usage); got != tt.want {
			t.Errorf("TextureUsagePossible(%v, %v) = %v, want %v", tt.allowed, tt.usage, got, tt.want)
		}
	}
}

func TestTextureViewBuilder(t *testing.T) {
	h := newHarness(t)
	tex := h.device.CreateTextureBuilder().
		SetDimension(gputypes.TextureDimension2D).
		SetExtent(8, 8, 6).
		SetFormat(gputypes.TextureFormatRGBA8Unorm).
		SetMipLevels(4).
		SetAllowedUsage(gputypes.TextureUsageTextureBinding).
		GetResult()
	if tex == nil {
		t.Fatalf("texture creation failed: %q", h.errors)
	}
	defer tex.Release()

	view := tex.CreateTextureViewBuilder().GetResult()
	if view == nil {
		t.Fatalf("default view failed: %q", h.errors)
	}
	if view.Dimension() != gputypes.TextureViewDimension2DArray || view.Format() != tex.Format() {
		t.Errorf("default view = %v %v", view.Dimension(), view.Format())
	}
	view.Release()

	h.expectError("Texture view mip range out of bounds", func() {
		tex.CreateTextureViewBuilder().SetMipLevels(2, 3).GetResult()
	})
	h.expectError("Texture view layer range out of bounds", func() {
		tex.CreateTextureViewBuilder().SetArrayLayers(6, 1).GetResult()
	})
	h.expectNoError(func() {
		v := tex.CreateTextureViewBuilder().
			SetDimension(gputypes.TextureViewDimensionCube).
			SetMipLevels(1, 3).
			GetResult()
		if v == nil {
			t.Fatal("cube view failed")
		}
		v.Release()
	})
}

func TestTextureWriteImage(t *testing.T) {
	h := newHarness(t)
	tex := h.device.CreateTextureBuilder().
		SetDimension(gputypes.TextureDimension2D).
		SetExtent(4, 4, 1).
		SetFormat(gputypes.TextureFormatBGRA8Unorm).
		SetMipLevels(3).
		SetAllowedUsage(gputypes.TextureUsageCopyDst | gputypes.TextureUsageTextureBinding).
		SetInitialUsage(gputypes.TextureUsageCopyDst).
		GetResult()
	if tex == nil {
		t.Fatalf("texture creation failed: %q", h.errors)
	}
	defer tex.Release()

	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := range 4 {
		for x := range 4 {
			img.Set(x, y, color.NRGBA{R: 255, A: 255})
		}
	}
	h.expectNoError(func() { tex.WriteImage(img, true) })
	h.expectError("WriteImage image size does not match the texture", func() {
		tex.WriteImage(image.NewRGBA(image.Rect(0, 0, 2, 2)), false)
	})

	tex.TransitionUsage(gputypes.TextureUsageTextureBinding)
	h.expectError("Texture needs the CopyDst usage bit", func() { tex.WriteImage(img, false) })
}

func TestSwapRedBlue(t *testing.T) {
	got := swapRedBlue([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	want := []byte{3, 2, 1, 4, 7, 6, 5, 8}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("swapRedBlue = %v, want %v", got, want)
		}
	}
}
