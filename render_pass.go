package nxt

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/nxt/internal/cache"
)

// AttachmentLayout is the format signature of a subpass: its color formats
// in order, its depth-stencil format and its sample count. Layouts are
// deduplicated, so a pipeline is compatible with a subpass exactly when
// both point to the same layout.
type AttachmentLayout struct {
	object
	colorFormats [MaxColorAttachments]gputypes.TextureFormat
	colorCount   uint32
	depthFormat  gputypes.TextureFormat
	sampleCount  uint32

	blueprint bool
}

// ColorFormats returns the color attachment formats.
func (l *AttachmentLayout) ColorFormats() []gputypes.TextureFormat {
	return l.colorFormats[:l.colorCount]
}

// DepthStencilFormat returns the depth-stencil format, or
// gputypes.TextureFormatUndefined when there is none.
func (l *AttachmentLayout) DepthStencilFormat() gputypes.TextureFormat { return l.depthFormat }

// SampleCount returns the sample count of every attachment.
func (l *AttachmentLayout) SampleCount() uint32 { return l.sampleCount }

// Hash mixes the formats and the sample count.
func (l *AttachmentLayout) Hash() uint64 {
	h := cache.NewHasher()
	h.Uint32(l.colorCount)
	for _, f := range l.ColorFormats() {
		h.Uint32(uint32(f))
	}
	h.Uint32(uint32(l.depthFormat))
	h.Uint32(l.sampleCount)
	return h.Sum()
}

// Equal reports structural equality.
func (l *AttachmentLayout) Equal(other *AttachmentLayout) bool {
	return l.colorCount == other.colorCount &&
		l.colorFormats == other.colorFormats &&
		l.depthFormat == other.depthFormat &&
		l.sampleCount == other.sampleCount
}

func (l *AttachmentLayout) destroyImpl() {
	if !l.blueprint {
		l.device.attachmentLayouts.Remove(l)
	}
}

// getOrCreateAttachmentLayout returns a referenced cached layout equal to
// blueprint.
func (d *Device) getOrCreateAttachmentLayout(blueprint *AttachmentLayout) *AttachmentLayout {
	if cached, ok := d.attachmentLayouts.Find(blueprint); ok {
		cached.Reference()
		return cached
	}
	l := blueprint
	l.blueprint = false
	l.init(d, "AttachmentLayout", l.destroyImpl)
	d.attachmentLayouts.Insert(l)
	return l
}

// ColorAttachment is one color target of a render pass.
type ColorAttachment struct {
	View       *TextureView
	LoadOp     gputypes.LoadOp
	ClearColor gputypes.Color
}

// DepthStencilAttachment is the depth-stencil target of a render pass.
type DepthStencilAttachment struct {
	View              *TextureView
	DepthLoadOp       gputypes.LoadOp
	StencilLoadOp     gputypes.LoadOp
	DepthClearValue   float32
	StencilClearValue uint32
}

// subpass is one stage of a render pass. firstUse and depthFirst record
// whether the subpass is the first to use each attachment.
type subpass struct {
	colors     []uint32
	depth      bool
	layout     *AttachmentLayout
	firstUse   []bool
	depthFirst bool
}

// RenderPassDescriptor binds attachments to a render pass and splits it
// into subpasses.
type RenderPassDescriptor struct {
	object
	colors        [MaxColorAttachments]ColorAttachment
	colorCount    uint32
	depthStencil  *DepthStencilAttachment
	subpasses     []subpass
	width, height uint32
}

// SubpassCount returns the number of subpasses.
func (p *RenderPassDescriptor) SubpassCount() int { return len(p.subpasses) }

// SubpassLayout returns the attachment layout of subpass i.
func (p *RenderPassDescriptor) SubpassLayout(i int) *AttachmentLayout {
	return p.subpasses[i].layout
}

// Size returns the size shared by every attachment.
func (p *RenderPassDescriptor) Size() (width, height uint32) { return p.width, p.height }

// forEachAttachment calls fn for every attachment's texture.
func (p *RenderPassDescriptor) forEachAttachment(fn func(*Texture)) {
	for _, c := range p.colors[:p.colorCount] {
		fn(c.View.texture)
	}
	if p.depthStencil != nil {
		fn(p.depthStencil.View.texture)
	}
}

func (p *RenderPassDescriptor) destroyImpl() {
	for _, c := range p.colors[:p.colorCount] {
		c.View.Release()
	}
	if p.depthStencil != nil {
		p.depthStencil.View.Release()
	}
	for _, sp := range p.subpasses {
		sp.layout.Release()
	}
}

// RenderPassDescriptorBuilder configures a RenderPassDescriptor. Without
// AddSubpass the pass has one subpass using every attachment.
type RenderPassDescriptorBuilder struct {
	builder
	colors       [MaxColorAttachments]ColorAttachment
	colorSet     uint32
	depthStencil *DepthStencilAttachment
	subpasses    []subpass
}

// CreateRenderPassDescriptorBuilder starts a render pass descriptor.
func (d *Device) CreateRenderPassDescriptorBuilder() *RenderPassDescriptorBuilder {
	b := &RenderPassDescriptorBuilder{}
	b.init(d)
	return b
}

// SetResultCallback sets the callback invoked by GetResult.
func (b *RenderPassDescriptorBuilder) SetResultCallback(fn BuilderCallback) *RenderPassDescriptorBuilder {
	b.callback = fn
	return b
}

// SetColorAttachment sets color attachment index. Color attachments must
// be set contiguously from index 0.
func (b *RenderPassDescriptorBuilder) SetColorAttachment(index uint32, view *TextureView, loadOp gputypes.LoadOp) *RenderPassDescriptorBuilder {
	b.device.procs.RenderPassDescriptorBuilderSetColorAttachment(b, index, view, loadOp)
	return b
}

// SetColorAttachmentClearColor sets the clear color used by LoadOpClear.
func (b *RenderPassDescriptorBuilder) SetColorAttachmentClearColor(index uint32, r, g, bl, a float64) *RenderPassDescriptorBuilder {
	b.device.procs.RenderPassDescriptorBuilderSetColorAttachmentClearColor(b, index, gputypes.Color{R: r, G: g, B: bl, A: a})
	return b
}

// SetDepthStencilAttachment sets the depth-stencil attachment.
func (b *RenderPassDescriptorBuilder) SetDepthStencilAttachment(att DepthStencilAttachment) *RenderPassDescriptorBuilder {
	b.device.procs.RenderPassDescriptorBuilderSetDepthStencilAttachment(b, att)
	return b
}

// AddSubpass appends a subpass writing the given color attachments and,
// when depth is set, the depth-stencil attachment.
func (b *RenderPassDescriptorBuilder) AddSubpass(colors []uint32, depth bool) *RenderPassDescriptorBuilder {
	b.device.procs.RenderPassDescriptorBuilderAddSubpass(b, colors, depth)
	return b
}

// GetResult creates the descriptor, or returns nil and reports the error.
func (b *RenderPassDescriptorBuilder) GetResult() *RenderPassDescriptor {
	return b.device.procs.RenderPassDescriptorBuilderGetResult(b)
}

func (b *RenderPassDescriptorBuilder) setColorAttachment(index uint32, view *TextureView, loadOp gputypes.LoadOp) {
	if !b.usable() {
		return
	}
	switch {
	case index >= MaxColorAttachments:
		b.fail(validationError("Color attachment index out of bounds"))
	case b.colorSet&(1<<index) != 0:
		b.fail(validationError("Color attachment %d set multiple times", index))
	case view.format.IsDepthStencil():
		b.fail(validationError("Color attachment %d has a depth-stencil format", index))
	default:
		b.colors[index].View = view
		b.colors[index].LoadOp = loadOp
		b.colorSet |= 1 << index
	}
}

func (b *RenderPassDescriptorBuilder) setColorAttachmentClearColor(index uint32, c gputypes.Color) {
	if !b.usable() {
		return
	}
	if index >= MaxColorAttachments {
		b.fail(validationError("Color attachment index out of bounds"))
		return
	}
	b.colors[index].ClearColor = c
}

func (b *RenderPassDescriptorBuilder) setDepthStencilAttachment(att DepthStencilAttachment) {
	if !b.usable() {
		return
	}
	switch {
	case b.depthStencil != nil:
		b.fail(validationError("Depth stencil attachment set multiple times"))
	case !att.View.format.IsDepthStencil():
		b.fail(validationError("Depth stencil attachment needs a depth-stencil format"))
	default:
		b.depthStencil = &att
	}
}

func (b *RenderPassDescriptorBuilder) addSubpass(colors []uint32, depth bool) {
	if !b.usable() {
		return
	}
	if len(colors) > MaxColorAttachments {
		b.fail(validationError("Subpass has too many color attachments"))
		return
	}
	b.subpasses = append(b.subpasses, subpass{colors: append([]uint32(nil), colors...), depth: depth})
}

func (b *RenderPassDescriptorBuilder) getResult() *RenderPassDescriptor {
	return result(&b.builder, b.build)
}

func (b *RenderPassDescriptorBuilder) validate() (colorCount uint32, err error) {
	for b.colorSet&(1<<colorCount) != 0 {
		colorCount++
	}
	if b.colorSet>>colorCount != 0 {
		return 0, validationError("Color attachments must be contiguous")
	}
	if colorCount == 0 && b.depthStencil == nil {
		return 0, validationError("Render pass needs at least one attachment")
	}

	var width, height, samples uint32
	check := func(v *TextureView) error {
		if !v.texture.allowedUsage.Contains(gputypes.TextureUsageRenderAttachment) {
			return validationError("Attachment texture needs the RenderAttachment usage bit")
		}
		w, h := v.size()
		if width == 0 {
			width, height, samples = w, h, v.texture.sampleCount
		}
		if w != width || h != height {
			return validationError("Attachments must all have the same size")
		}
		if v.texture.sampleCount != samples {
			return validationError("Attachments must all have the same sample count")
		}
		return nil
	}
	for _, c := range b.colors[:colorCount] {
		if err := check(c.View); err != nil {
			return 0, err
		}
	}
	if b.depthStencil != nil {
		if err := check(b.depthStencil.View); err != nil {
			return 0, err
		}
	}

	for i, sp := range b.subpasses {
		var seen uint32
		for _, c := range sp.colors {
			if c >= colorCount {
				return 0, validationError("Subpass %d color attachment index out of bounds", i)
			}
			if seen&(1<<c) != 0 {
				return 0, validationError("Subpass %d uses color attachment %d twice", i, c)
			}
			seen |= 1 << c
		}
		if sp.depth && b.depthStencil == nil {
			return 0, validationError("Subpass %d uses a missing depth stencil attachment", i)
		}
	}
	return colorCount, nil
}

func (b *RenderPassDescriptorBuilder) build() (*RenderPassDescriptor, error) {
	colorCount, err := b.validate()
	if err != nil {
		return nil, err
	}
	d := b.device

	subpasses := b.subpasses
	if len(subpasses) == 0 {
		all := make([]uint32, colorCount)
		for i := range all {
			all[i] = uint32(i)
		}
		subpasses = []subpass{{colors: all, depth: b.depthStencil != nil}}
	}

	p := &RenderPassDescriptor{
		colors:       b.colors,
		colorCount:   colorCount,
		depthStencil: b.depthStencil,
	}
	var used uint32
	depthUsed := false
	for i := range subpasses {
		sp := &subpasses[i]
		blueprint := &AttachmentLayout{blueprint: true, colorCount: uint32(len(sp.colors))}
		sp.firstUse = make([]bool, len(sp.colors))
		for j, c := range sp.colors {
			view := b.colors[c].View
			blueprint.colorFormats[j] = view.format
			blueprint.sampleCount = view.texture.sampleCount
			sp.firstUse[j] = used&(1<<c) == 0
			used |= 1 << c
		}
		if sp.depth {
			sp.depthFirst = !depthUsed
			depthUsed = true
			blueprint.depthFormat = b.depthStencil.View.format
			blueprint.sampleCount = b.depthStencil.View.texture.sampleCount
		}
		if blueprint.sampleCount == 0 {
			blueprint.sampleCount = 1
		}
		sp.layout = d.getOrCreateAttachmentLayout(blueprint)
	}
	p.subpasses = subpasses

	for _, c := range p.colors[:colorCount] {
		c.View.Reference()
	}
	if p.depthStencil != nil {
		p.depthStencil.View.Reference()
	}
	if colorCount > 0 {
		p.width, p.height = p.colors[0].View.size()
	} else {
		p.width, p.height = p.depthStencil.View.size()
	}
	p.init(d, "RenderPassDescriptor", p.destroyImpl)
	return p, nil
}
