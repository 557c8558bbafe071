package nxt

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// BindGroup is a set of resources matching a BindGroupLayout. It keeps its
// layout and every bound resource alive.
type BindGroup struct {
	object
	hal    hal.BindGroup
	layout *BindGroupLayout

	bufferViews  [MaxBindingsPerGroup]*BufferView
	samplers     [MaxBindingsPerGroup]*Sampler
	textureViews [MaxBindingsPerGroup]*TextureView
}

// Layout returns the group's layout.
func (g *BindGroup) Layout() *BindGroupLayout { return g.layout }

// HAL returns the backend bind group.
func (g *BindGroup) HAL() hal.BindGroup { return g.hal }

// forEachBuffer calls fn for every bound buffer with the usage its
// binding needs.
func (g *BindGroup) forEachBuffer(fn func(*Buffer, gputypes.BufferUsage)) {
	for i, v := range g.bufferViews {
		if v != nil {
			fn(v.buffer, g.layout.types[i].bufferUsage())
		}
	}
}

// forEachTexture calls fn for every bound texture with the usage its
// binding needs.
func (g *BindGroup) forEachTexture(fn func(*Texture, gputypes.TextureUsage)) {
	for i, v := range g.textureViews {
		if v != nil {
			fn(v.texture, g.layout.types[i].textureUsage())
		}
	}
}

func (g *BindGroup) destroyImpl() {
	if d := g.device; !d.closed {
		d.engine.Deleter().DeleteBindGroup(g.hal)
	}
	for i := range MaxBindingsPerGroup {
		if v := g.bufferViews[i]; v != nil {
			v.Release()
		}
		if s := g.samplers[i]; s != nil {
			s.Release()
		}
		if v := g.textureViews[i]; v != nil {
			v.Release()
		}
	}
	g.layout.Release()
}

// BindGroupBuilder configures a BindGroup. Every binding of the layout
// must be set exactly once with a resource of the binding's type.
type BindGroupBuilder struct {
	builder
	label  string
	layout *BindGroupLayout
	set    uint32

	bufferViews  [MaxBindingsPerGroup]*BufferView
	samplers     [MaxBindingsPerGroup]*Sampler
	textureViews [MaxBindingsPerGroup]*TextureView
}

// CreateBindGroupBuilder starts a bind group.
func (d *Device) CreateBindGroupBuilder() *BindGroupBuilder {
	b := &BindGroupBuilder{}
	b.init(d)
	return b
}

// SetLabel names the bind group in backend debug output.
func (b *BindGroupBuilder) SetLabel(label string) *BindGroupBuilder {
	if b.usable() {
		b.label = label
	}
	return b
}

// SetResultCallback sets the callback invoked by GetResult.
func (b *BindGroupBuilder) SetResultCallback(fn BuilderCallback) *BindGroupBuilder {
	b.callback = fn
	return b
}

// SetLayout sets the layout. It must be called before any resource is set.
func (b *BindGroupBuilder) SetLayout(layout *BindGroupLayout) *BindGroupBuilder {
	b.device.procs.BindGroupBuilderSetLayout(b, layout)
	return b
}

// SetBufferViews binds views to consecutive bindings starting at start.
func (b *BindGroupBuilder) SetBufferViews(start uint32, views []*BufferView) *BindGroupBuilder {
	b.device.procs.BindGroupBuilderSetBufferViews(b, start, views)
	return b
}

// SetSamplers binds samplers to consecutive bindings starting at start.
func (b *BindGroupBuilder) SetSamplers(start uint32, samplers []*Sampler) *BindGroupBuilder {
	b.device.procs.BindGroupBuilderSetSamplers(b, start, samplers)
	return b
}

// SetTextureViews binds views to consecutive bindings starting at start.
func (b *BindGroupBuilder) SetTextureViews(start uint32, views []*TextureView) *BindGroupBuilder {
	b.device.procs.BindGroupBuilderSetTextureViews(b, start, views)
	return b
}

// GetResult creates the bind group, or returns nil and reports the error.
func (b *BindGroupBuilder) GetResult() *BindGroup {
	return b.device.procs.BindGroupBuilderGetResult(b)
}

func (b *BindGroupBuilder) setLayout(layout *BindGroupLayout) {
	if !b.usable() {
		return
	}
	if b.layout != nil {
		b.fail(validationError("Bind group layout property set multiple times"))
		return
	}
	b.layout = layout
}

// claim checks that bindings [start, start+count) are unset and accept a
// resource for which check returns true.
func (b *BindGroupBuilder) claim(start uint32, count int, check func(BindingType) bool) bool {
	if !b.usable() {
		return false
	}
	if b.layout == nil {
		b.fail(validationError("Bindgroup layout must be set before views"))
		return false
	}
	if uint64(start)+uint64(count) > MaxBindingsPerGroup {
		b.fail(validationError("Setting bindings out of range"))
		return false
	}
	for i := range uint32(count) {
		binding := start + i
		switch {
		case b.set&(1<<binding) != 0:
			b.fail(validationError("Setting already set binding"))
			return false
		case b.layout.mask&(1<<binding) == 0:
			b.fail(validationError("Setting non-existent binding"))
			return false
		case !check(b.layout.types[binding]):
			b.fail(validationError("Setting binding for a wrong layout binding type"))
			return false
		}
	}
	return true
}

func (b *BindGroupBuilder) setBufferViews(start uint32, views []*BufferView) {
	if !b.claim(start, len(views), BindingType.isBuffer) {
		return
	}
	for i, v := range views {
		binding := start + uint32(i)
		required := b.layout.types[binding].bufferUsage()
		if !v.buffer.allowedUsage.Contains(required) {
			b.fail(validationError("Buffer needs to allow the correct usage bit"))
			return
		}
	}
	for i, v := range views {
		binding := start + uint32(i)
		b.bufferViews[binding] = v
		b.set |= 1 << binding
	}
}

func (b *BindGroupBuilder) setSamplers(start uint32, samplers []*Sampler) {
	if !b.claim(start, len(samplers), func(t BindingType) bool { return t == BindingTypeSampler }) {
		return
	}
	for i, s := range samplers {
		binding := start + uint32(i)
		b.samplers[binding] = s
		b.set |= 1 << binding
	}
}

func (b *BindGroupBuilder) setTextureViews(start uint32, views []*TextureView) {
	isTexture := func(t BindingType) bool {
		return t == BindingTypeSampledTexture || t == BindingTypeStorageTexture
	}
	if !b.claim(start, len(views), isTexture) {
		return
	}
	for i, v := range views {
		binding := start + uint32(i)
		required := b.layout.types[binding].textureUsage()
		if !v.texture.allowedUsage.Contains(required) {
			b.fail(validationError("Texture needs to allow the correct usage bit"))
			return
		}
	}
	for i, v := range views {
		binding := start + uint32(i)
		b.textureViews[binding] = v
		b.set |= 1 << binding
	}
}

func (b *BindGroupBuilder) getResult() *BindGroup {
	return result(&b.builder, b.build)
}

func (b *BindGroupBuilder) build() (*BindGroup, error) {
	if b.layout == nil {
		return nil, validationError("Bindgroup layout not set")
	}
	if b.set != b.layout.mask {
		return nil, validationError("Bindgroup missing bindings")
	}

	entries := make([]gputypes.BindGroupEntry, 0, MaxBindingsPerGroup)
	for i := range uint32(MaxBindingsPerGroup) {
		if b.set&(1<<i) == 0 {
			continue
		}
		var res gputypes.BindingResource
		switch {
		case b.bufferViews[i] != nil:
			v := b.bufferViews[i]
			res = gputypes.BufferBinding{Buffer: v.buffer.hal.NativeHandle(), Offset: v.offset, Size: v.size}
		case b.samplers[i] != nil:
			res = gputypes.SamplerBinding{Sampler: b.samplers[i].hal.NativeHandle()}
		case b.textureViews[i] != nil:
			res = gputypes.TextureViewBinding{TextureView: b.textureViews[i].hal.NativeHandle()}
		}
		entries = append(entries, gputypes.BindGroupEntry{Binding: i, Resource: res})
	}

	hg, err := b.device.engine.Device().CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   b.label,
		Layout:  b.layout.hal,
		Entries: entries,
	})
	if err != nil {
		return nil, outOfMemory("create bind group", err)
	}

	g := &BindGroup{
		hal:          hg,
		layout:       b.layout,
		bufferViews:  b.bufferViews,
		samplers:     b.samplers,
		textureViews: b.textureViews,
	}
	g.layout.Reference()
	for i := range MaxBindingsPerGroup {
		if v := g.bufferViews[i]; v != nil {
			v.Reference()
		}
		if s := g.samplers[i]; s != nil {
			s.Reference()
		}
		if v := g.textureViews[i]; v != nil {
			v.Reference()
		}
	}
	g.init(b.device, "BindGroup", g.destroyImpl)
	return g, nil
}
