package nxt

import (
	"image"
	"math/bits"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	xdraw "golang.org/x/image/draw"
)

// Texture is an image allocation with tracked usage. Usage is tracked for
// the whole texture, not per subresource.
type Texture struct {
	object
	hal hal.Texture

	label       string
	dimension   gputypes.TextureDimension
	format      gputypes.TextureFormat
	width       uint32
	height      uint32
	depth       uint32
	mipLevels   uint32
	sampleCount uint32
	byteSize    uint64

	allowedUsage gputypes.TextureUsage
	usage        gputypes.TextureUsage

	// owner is set for swap chain textures, which the swap chain destroys
	owner *SwapChain
}

// Format returns the texel format.
func (t *Texture) Format() gputypes.TextureFormat { return t.format }

// Dimension returns the texture dimension.
func (t *Texture) Dimension() gputypes.TextureDimension { return t.dimension }

// Extent returns the size of mip level 0.
func (t *Texture) Extent() (width, height, depth uint32) { return t.width, t.height, t.depth }

// MipLevels returns the number of mip levels.
func (t *Texture) MipLevels() uint32 { return t.mipLevels }

// SampleCount returns the number of samples per texel.
func (t *Texture) SampleCount() uint32 { return t.sampleCount }

// AllowedUsage returns the usage mask declared at creation.
func (t *Texture) AllowedUsage() gputypes.TextureUsage { return t.allowedUsage }

// Usage returns the current usage.
func (t *Texture) Usage() gputypes.TextureUsage { return t.usage }

// HAL returns the backend texture.
func (t *Texture) HAL() hal.Texture { return t.hal }

// TransitionUsage moves the texture to usage outside of command buffers.
func (t *Texture) TransitionUsage(usage gputypes.TextureUsage) {
	t.device.procs.TextureTransitionUsage(t, usage)
}

// CreateTextureViewBuilder starts a view of the texture.
func (t *Texture) CreateTextureViewBuilder() *TextureViewBuilder {
	return t.device.procs.TextureCreateTextureViewBuilder(t)
}

// WriteImage uploads img to mip level 0 and, when generateMips is set,
// fills every other level with a bilinear downscale of the previous one.
// The texture must be an 8-bit RGBA or BGRA 2D texture the size of img, in
// a usage containing CopyDst.
func (t *Texture) WriteImage(img image.Image, generateMips bool) {
	t.device.procs.TextureWriteImage(t, img, generateMips)
}

// mipExtent returns the size of a mip level.
func (t *Texture) mipExtent(level uint32) (width, height, depth uint32) {
	width, height, depth = max(t.width>>level, 1), max(t.height>>level, 1), t.depth
	if t.dimension == gputypes.TextureDimension3D {
		depth = max(t.depth>>level, 1)
	}
	return width, height, depth
}

// arrayLayers returns the number of array layers.
func (t *Texture) arrayLayers() uint32 {
	if t.dimension == gputypes.TextureDimension3D {
		return 1
	}
	return t.depth
}

func (t *Texture) fullRange() hal.TextureRange {
	return hal.TextureRange{
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   t.mipLevels,
		ArrayLayerCount: t.arrayLayers(),
	}
}

func (t *Texture) transitionUsage(usage gputypes.TextureUsage) {
	d := t.device
	if !TextureUsagePossible(t.allowedUsage, usage) {
		d.handleError(validationError("Texture usage is not possible"))
		return
	}
	if usage == t.usage {
		return
	}
	enc, err := d.engine.PendingCommands()
	if d.consumedError(err) {
		return
	}
	enc.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.hal,
		Range:   t.fullRange(),
		Usage:   hal.TextureUsageTransition{OldUsage: t.usage, NewUsage: usage},
	}})
	t.usage = usage
}

func (t *Texture) writeImage(img image.Image, generateMips bool) {
	d := t.device
	bounds := img.Bounds()
	switch {
	case !t.usage.Contains(gputypes.TextureUsageCopyDst):
		d.handleError(validationError("Texture needs the CopyDst usage bit"))
		return
	case t.dimension != gputypes.TextureDimension2D || t.sampleCount != 1:
		d.handleError(validationError("WriteImage needs a single-sampled 2D texture"))
		return
	case uint32(bounds.Dx()) != t.width || uint32(bounds.Dy()) != t.height:
		d.handleError(validationError("WriteImage image size does not match the texture"))
		return
	}
	var swizzle bool
	switch t.format {
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8UnormSrgb:
	case gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatBGRA8UnormSrgb:
		swizzle = true
	default:
		d.handleError(validationError("WriteImage does not support format %v", t.format))
		return
	}

	levels := uint32(1)
	if generateMips {
		levels = t.mipLevels
	}

	level0 := image.NewRGBA(image.Rect(0, 0, int(t.width), int(t.height)))
	xdraw.Draw(level0, level0.Bounds(), img, bounds.Min, xdraw.Src)

	src := level0
	for level := uint32(0); level < levels; level++ {
		w, h, _ := t.mipExtent(level)
		cur := src
		if level > 0 {
			cur = image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
			xdraw.BiLinear.Scale(cur, cur.Bounds(), src, src.Bounds(), xdraw.Src, nil)
		}
		pix := cur.Pix
		if swizzle {
			pix = swapRedBlue(pix)
		}
		err := d.engine.Uploader().TextureSubData(
			&hal.ImageCopyTexture{Texture: t.hal, MipLevel: level, Aspect: gputypes.TextureAspectAll},
			pix,
			&hal.ImageDataLayout{BytesPerRow: uint32(cur.Stride), RowsPerImage: h},
			&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		)
		if d.consumedError(err) {
			return
		}
		src = cur
	}
}

// swapRedBlue returns a copy of RGBA pixels in BGRA order.
func swapRedBlue(pix []byte) []byte {
	out := make([]byte, len(pix))
	for i := 0; i+3 < len(pix); i += 4 {
		out[i], out[i+1], out[i+2], out[i+3] = pix[i+2], pix[i+1], pix[i], pix[i+3]
	}
	return out
}

func (t *Texture) destroyImpl() {
	d := t.device
	if t.owner != nil || d.closed {
		return
	}
	d.engine.Deleter().DeleteTexture(t.hal)
	d.engine.Memory().FreeWhenUnused(t.byteSize, d.engine.NextSerial())
}

// fullMipChain returns the number of levels down to 1x1x1.
func fullMipChain(width, height, depth uint32) uint32 {
	return uint32(bits.Len32(max(width, height, depth)))
}

// TextureBuilder configures a Texture. Dimension, extent, format, mip
// levels and allowed usage are required.
type TextureBuilder struct {
	builder
	label        string
	dimension    gputypes.TextureDimension
	format       gputypes.TextureFormat
	width        uint32
	height       uint32
	depth        uint32
	mipLevels    uint32
	sampleCount  uint32
	allowedUsage gputypes.TextureUsage
	initialUsage gputypes.TextureUsage
	props        uint32
}

// CreateTextureBuilder starts a texture.
func (d *Device) CreateTextureBuilder() *TextureBuilder {
	b := &TextureBuilder{sampleCount: 1}
	b.init(d)
	return b
}

// SetLabel names the texture in backend debug output.
func (b *TextureBuilder) SetLabel(label string) *TextureBuilder {
	if b.usable() {
		b.label = label
	}
	return b
}

// SetResultCallback sets the callback invoked by GetResult.
func (b *TextureBuilder) SetResultCallback(fn BuilderCallback) *TextureBuilder {
	b.callback = fn
	return b
}

// SetDimension sets the texture dimension.
func (b *TextureBuilder) SetDimension(dim gputypes.TextureDimension) *TextureBuilder {
	b.device.procs.TextureBuilderSetDimension(b, dim)
	return b
}

// SetExtent sets the size of mip level 0. depth is the array layer count
// for 1D and 2D textures.
func (b *TextureBuilder) SetExtent(width, height, depth uint32) *TextureBuilder {
	b.device.procs.TextureBuilderSetExtent(b, width, height, depth)
	return b
}

// SetFormat sets the texel format.
func (b *TextureBuilder) SetFormat(format gputypes.TextureFormat) *TextureBuilder {
	b.device.procs.TextureBuilderSetFormat(b, format)
	return b
}

// SetMipLevels sets the number of mip levels.
func (b *TextureBuilder) SetMipLevels(levels uint32) *TextureBuilder {
	b.device.procs.TextureBuilderSetMipLevels(b, levels)
	return b
}

// SetSampleCount sets the number of samples; 1 unless multisampled.
func (b *TextureBuilder) SetSampleCount(count uint32) *TextureBuilder {
	b.device.procs.TextureBuilderSetSampleCount(b, count)
	return b
}

// SetAllowedUsage declares every usage the texture may be transitioned to.
func (b *TextureBuilder) SetAllowedUsage(usage gputypes.TextureUsage) *TextureBuilder {
	b.device.procs.TextureBuilderSetAllowedUsage(b, usage)
	return b
}

// SetInitialUsage sets the usage the texture starts in.
func (b *TextureBuilder) SetInitialUsage(usage gputypes.TextureUsage) *TextureBuilder {
	b.device.procs.TextureBuilderSetInitialUsage(b, usage)
	return b
}

// GetResult creates the texture, or returns nil and reports the error.
func (b *TextureBuilder) GetResult() *Texture {
	return b.device.procs.TextureBuilderGetResult(b)
}

func (b *TextureBuilder) setDimension(dim gputypes.TextureDimension) {
	if b.setProp(&b.props, propDimension, "Texture dimension") {
		b.dimension = dim
	}
}

func (b *TextureBuilder) setExtent(width, height, depth uint32) {
	if b.setProp(&b.props, propExtent, "Texture extent") {
		b.width, b.height, b.depth = width, height, depth
	}
}

func (b *TextureBuilder) setFormat(format gputypes.TextureFormat) {
	if b.setProp(&b.props, propFormat, "Texture format") {
		b.format = format
	}
}

func (b *TextureBuilder) setMipLevels(levels uint32) {
	if b.setProp(&b.props, propMipLevels, "Texture mipLevels") {
		b.mipLevels = levels
	}
}

func (b *TextureBuilder) setSampleCount(count uint32) {
	if b.setProp(&b.props, propSampleCount, "Texture sampleCount") {
		b.sampleCount = count
	}
}

func (b *TextureBuilder) setAllowedUsage(usage gputypes.TextureUsage) {
	if b.setProp(&b.props, propAllowedUsage, "Texture allowedUsage") {
		b.allowedUsage = usage
	}
}

func (b *TextureBuilder) setInitialUsage(usage gputypes.TextureUsage) {
	if b.setProp(&b.props, propInitialUsage, "Texture initialUsage") {
		b.initialUsage = usage
	}
}

func (b *TextureBuilder) getResult() *Texture {
	return result(&b.builder, b.build)
}

func (b *TextureBuilder) validate() error {
	const required = propDimension | propExtent | propFormat | propMipLevels | propAllowedUsage
	if b.props&required != required {
		return validationError("Texture missing properties")
	}
	switch {
	case b.width == 0 || b.height == 0 || b.depth == 0:
		return validationError("Texture extent cannot be zero")
	case b.dimension == gputypes.TextureDimension1D && b.height != 1:
		return validationError("1D texture height must be 1")
	case bytesPerTexel(b.format) == 0:
		return validationError("Texture format %v is not supported", b.format)
	case b.mipLevels == 0:
		return validationError("Texture must have at least one mip level")
	case b.sampleCount != 1 && b.sampleCount != 4:
		return validationError("Texture sample count must be 1 or 4")
	case b.sampleCount > 1 && (b.mipLevels != 1 || b.dimension != gputypes.TextureDimension2D):
		return validationError("Multisampled textures must be 2D with one mip level")
	case !TextureUsagePossible(b.allowedUsage, b.initialUsage):
		return validationError("Initial texture usage is not allowed")
	}
	chainDepth := uint32(1)
	if b.dimension == gputypes.TextureDimension3D {
		chainDepth = b.depth
	}
	if b.mipLevels > fullMipChain(b.width, b.height, chainDepth) {
		return validationError("Texture has too many mip levels")
	}
	return nil
}

func (b *TextureBuilder) build() (*Texture, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	t := &Texture{
		label:        b.label,
		dimension:    b.dimension,
		format:       b.format,
		width:        b.width,
		height:       b.height,
		depth:        b.depth,
		mipLevels:    b.mipLevels,
		sampleCount:  b.sampleCount,
		allowedUsage: b.allowedUsage,
		usage:        b.initialUsage,
	}
	for level := uint32(0); level < t.mipLevels; level++ {
		w, h, dd := t.mipExtent(level)
		t.byteSize += uint64(w) * uint64(h) * uint64(dd) * uint64(bytesPerTexel(t.format)) * uint64(t.sampleCount)
	}

	d := b.device
	if err := d.engine.Memory().Allocate(t.byteSize); err != nil {
		return nil, outOfMemory("texture", err)
	}
	ht, err := d.engine.Device().CreateTexture(&hal.TextureDescriptor{
		Label:         b.label,
		Size:          hal.Extent3D{Width: b.width, Height: b.height, DepthOrArrayLayers: b.depth},
		MipLevelCount: b.mipLevels,
		SampleCount:   b.sampleCount,
		Dimension:     b.dimension,
		Format:        b.format,
		Usage:         b.allowedUsage,
	})
	if err != nil {
		d.engine.Memory().Free(t.byteSize)
		return nil, outOfMemory("create texture", err)
	}
	t.hal = ht
	t.init(d, "Texture", t.destroyImpl)
	return t, nil
}

// TextureView is a typed view of a range of a texture's subresources.
type TextureView struct {
	object
	hal     hal.TextureView
	texture *Texture

	format     gputypes.TextureFormat
	dimension  gputypes.TextureViewDimension
	baseMip    uint32
	mipCount   uint32
	baseLayer  uint32
	layerCount uint32
}

// Texture returns the viewed texture.
func (v *TextureView) Texture() *Texture { return v.texture }

// Format returns the view format, always the texture's format.
func (v *TextureView) Format() gputypes.TextureFormat { return v.format }

// Dimension returns the view dimension.
func (v *TextureView) Dimension() gputypes.TextureViewDimension { return v.dimension }

// HAL returns the backend view.
func (v *TextureView) HAL() hal.TextureView { return v.hal }

// size returns the extent of the view's base mip level.
func (v *TextureView) size() (width, height uint32) {
	w, h, _ := v.texture.mipExtent(v.baseMip)
	return w, h
}

func (v *TextureView) destroyImpl() {
	if d := v.device; !d.closed {
		d.engine.Deleter().DeleteTextureView(v.hal)
	}
	v.texture.Release()
}

// defaultViewDimension returns the view dimension covering a whole texture.
func defaultViewDimension(t *Texture) gputypes.TextureViewDimension {
	switch {
	case t.dimension == gputypes.TextureDimension1D:
		return gputypes.TextureViewDimension1D
	case t.dimension == gputypes.TextureDimension3D:
		return gputypes.TextureViewDimension3D
	case t.depth > 1:
		return gputypes.TextureViewDimension2DArray
	}
	return gputypes.TextureViewDimension2D
}

// TextureViewBuilder configures a TextureView. By default the view covers
// the whole texture.
type TextureViewBuilder struct {
	builder
	texture    *Texture
	dimension  gputypes.TextureViewDimension
	baseMip    uint32
	mipCount   uint32
	baseLayer  uint32
	layerCount uint32
}

func newTextureViewBuilder(t *Texture) *TextureViewBuilder {
	b := &TextureViewBuilder{
		texture:    t,
		dimension:  defaultViewDimension(t),
		mipCount:   t.mipLevels,
		layerCount: t.arrayLayers(),
	}
	b.init(t.device)
	return b
}

// SetResultCallback sets the callback invoked by GetResult.
func (b *TextureViewBuilder) SetResultCallback(fn BuilderCallback) *TextureViewBuilder {
	b.callback = fn
	return b
}

// SetDimension sets the view dimension.
func (b *TextureViewBuilder) SetDimension(dim gputypes.TextureViewDimension) *TextureViewBuilder {
	b.device.procs.TextureViewBuilderSetDimension(b, dim)
	return b
}

// SetMipLevels restricts the view to count levels starting at base.
func (b *TextureViewBuilder) SetMipLevels(base, count uint32) *TextureViewBuilder {
	b.device.procs.TextureViewBuilderSetMipLevels(b, base, count)
	return b
}

// SetArrayLayers restricts the view to count layers starting at base.
func (b *TextureViewBuilder) SetArrayLayers(base, count uint32) *TextureViewBuilder {
	b.device.procs.TextureViewBuilderSetArrayLayers(b, base, count)
	return b
}

// GetResult creates the view, or returns nil and reports the error.
func (b *TextureViewBuilder) GetResult() *TextureView {
	return b.device.procs.TextureViewBuilderGetResult(b)
}

func (b *TextureViewBuilder) setDimension(dim gputypes.TextureViewDimension) {
	if b.usable() {
		b.dimension = dim
	}
}

func (b *TextureViewBuilder) setMipLevels(base, count uint32) {
	if b.usable() {
		b.baseMip, b.mipCount = base, count
	}
}

func (b *TextureViewBuilder) setArrayLayers(base, count uint32) {
	if b.usable() {
		b.baseLayer, b.layerCount = base, count
	}
}

func (b *TextureViewBuilder) getResult() *TextureView {
	return result(&b.builder, func() (*TextureView, error) {
		t := b.texture
		switch {
		case b.mipCount == 0 || b.baseMip >= t.mipLevels || b.mipCount > t.mipLevels-b.baseMip:
			return nil, validationError("Texture view mip range out of bounds")
		case b.layerCount == 0 || b.baseLayer >= t.arrayLayers() || b.layerCount > t.arrayLayers()-b.baseLayer:
			return nil, validationError("Texture view layer range out of bounds")
		}
		hv, err := b.device.engine.Device().CreateTextureView(t.hal, &hal.TextureViewDescriptor{
			Label:           t.label,
			Format:          t.format,
			Dimension:       b.dimension,
			Aspect:          gputypes.TextureAspectAll,
			BaseMipLevel:    b.baseMip,
			MipLevelCount:   b.mipCount,
			BaseArrayLayer:  b.baseLayer,
			ArrayLayerCount: b.layerCount,
		})
		if err != nil {
			return nil, outOfMemory("create texture view", err)
		}
		t.Reference()
		v := &TextureView{
			hal:        hv,
			texture:    t,
			format:     t.format,
			dimension:  b.dimension,
			baseMip:    b.baseMip,
			mipCount:   b.mipCount,
			baseLayer:  b.baseLayer,
			layerCount: b.layerCount,
		}
		v.init(b.device, "TextureView", v.destroyImpl)
		return v, nil
	})
}
