package nxt

import (
	"math/bits"

	"github.com/gogpu/gputypes"
)

// Usages that only read their resource. Any combination of them is a valid
// usage; a usage that writes must stand alone.
const (
	readOnlyBufferUsages = gputypes.BufferUsageMapRead | gputypes.BufferUsageCopySrc |
		gputypes.BufferUsageIndex | gputypes.BufferUsageVertex |
		gputypes.BufferUsageUniform | gputypes.BufferUsageIndirect

	readOnlyTextureUsages = gputypes.TextureUsageCopySrc | gputypes.TextureUsageTextureBinding
)

// BufferUsagePossible reports whether a buffer declared with allowed may be
// transitioned to usage.
func BufferUsagePossible(allowed, usage gputypes.BufferUsage) bool {
	if usage&^allowed != 0 {
		return false
	}
	return usage&^readOnlyBufferUsages == 0 || bits.OnesCount64(uint64(usage)) <= 1
}

// TextureUsagePossible reports whether a texture declared with allowed may
// be transitioned to usage.
func TextureUsagePossible(allowed, usage gputypes.TextureUsage) bool {
	if usage&^allowed != 0 {
		return false
	}
	return usage&^readOnlyTextureUsages == 0 || bits.OnesCount64(uint64(usage)) <= 1
}

// bytesPerTexel returns the texel size of uncompressed formats, 0 for
// formats textures cannot be created with.
func bytesPerTexel(f gputypes.TextureFormat) uint32 {
	switch f {
	case gputypes.TextureFormatR8Unorm, gputypes.TextureFormatR8Snorm,
		gputypes.TextureFormatR8Uint, gputypes.TextureFormatR8Sint,
		gputypes.TextureFormatStencil8:
		return 1
	case gputypes.TextureFormatR16Unorm, gputypes.TextureFormatR16Snorm,
		gputypes.TextureFormatR16Uint, gputypes.TextureFormatR16Sint,
		gputypes.TextureFormatR16Float,
		gputypes.TextureFormatRG8Unorm, gputypes.TextureFormatRG8Snorm,
		gputypes.TextureFormatRG8Uint, gputypes.TextureFormatRG8Sint,
		gputypes.TextureFormatDepth16Unorm:
		return 2
	case gputypes.TextureFormatR32Float, gputypes.TextureFormatR32Uint,
		gputypes.TextureFormatR32Sint,
		gputypes.TextureFormatRG16Unorm, gputypes.TextureFormatRG16Snorm,
		gputypes.TextureFormatRG16Uint, gputypes.TextureFormatRG16Sint,
		gputypes.TextureFormatRG16Float,
		gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8UnormSrgb,
		gputypes.TextureFormatRGBA8Snorm, gputypes.TextureFormatRGBA8Uint,
		gputypes.TextureFormatRGBA8Sint,
		gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatBGRA8UnormSrgb,
		gputypes.TextureFormatRGB10A2Uint, gputypes.TextureFormatRGB10A2Unorm,
		gputypes.TextureFormatRG11B10Ufloat, gputypes.TextureFormatRGB9E5Ufloat,
		gputypes.TextureFormatDepth24Plus, gputypes.TextureFormatDepth24PlusStencil8,
		gputypes.TextureFormatDepth32Float:
		return 4
	case gputypes.TextureFormatRG32Float, gputypes.TextureFormatRG32Uint,
		gputypes.TextureFormatRG32Sint,
		gputypes.TextureFormatRGBA16Unorm, gputypes.TextureFormatRGBA16Snorm,
		gputypes.TextureFormatRGBA16Uint, gputypes.TextureFormatRGBA16Sint,
		gputypes.TextureFormatRGBA16Float,
		gputypes.TextureFormatDepth32FloatStencil8:
		return 8
	case gputypes.TextureFormatRGBA32Float, gputypes.TextureFormatRGBA32Uint,
		gputypes.TextureFormatRGBA32Sint:
		return 16
	}
	return 0
}
