package nxt

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/nxt/internal/cache"
	"github.com/gogpu/wgpu/hal"
)

// BindingType is the kind of resource bound at a bind group slot.
type BindingType uint8

// BindingType values. The order matches the shader reflection kinds.
const (
	BindingTypeUniformBuffer BindingType = iota
	BindingTypeStorageBuffer
	BindingTypeReadOnlyStorageBuffer
	BindingTypeSampler
	BindingTypeSampledTexture
	BindingTypeStorageTexture
)

func (t BindingType) String() string {
	switch t {
	case BindingTypeUniformBuffer:
		return "UniformBuffer"
	case BindingTypeStorageBuffer:
		return "StorageBuffer"
	case BindingTypeReadOnlyStorageBuffer:
		return "ReadOnlyStorageBuffer"
	case BindingTypeSampler:
		return "Sampler"
	case BindingTypeSampledTexture:
		return "SampledTexture"
	case BindingTypeStorageTexture:
		return "StorageTexture"
	default:
		return fmt.Sprintf("BindingType(%d)", uint8(t))
	}
}

func (t BindingType) isBuffer() bool { return t <= BindingTypeReadOnlyStorageBuffer }

// bufferUsage returns the buffer usage a binding of type t needs.
func (t BindingType) bufferUsage() gputypes.BufferUsage {
	if t == BindingTypeUniformBuffer {
		return gputypes.BufferUsageUniform
	}
	return gputypes.BufferUsageStorage
}

// textureUsage returns the texture usage a binding of type t needs.
func (t BindingType) textureUsage() gputypes.TextureUsage {
	if t == BindingTypeStorageTexture {
		return gputypes.TextureUsageStorageBinding
	}
	return gputypes.TextureUsageTextureBinding
}

// layoutEntry maps a binding to its HAL layout entry.
func (t BindingType) layoutEntry(binding uint32, visibility gputypes.ShaderStages) gputypes.BindGroupLayoutEntry {
	e := gputypes.BindGroupLayoutEntry{Binding: binding, Visibility: visibility}
	switch t {
	case BindingTypeUniformBuffer:
		e.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}
	case BindingTypeStorageBuffer:
		e.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}
	case BindingTypeReadOnlyStorageBuffer:
		e.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}
	case BindingTypeSampler:
		e.Sampler = &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering}
	case BindingTypeSampledTexture:
		e.Texture = &gputypes.TextureBindingLayout{
			SampleType:    gputypes.TextureSampleTypeFloat,
			ViewDimension: gputypes.TextureViewDimension2D,
		}
	case BindingTypeStorageTexture:
		e.StorageTexture = &gputypes.StorageTextureBindingLayout{
			Access:        gputypes.StorageTextureAccessWriteOnly,
			Format:        gputypes.TextureFormatRGBA8Unorm,
			ViewDimension: gputypes.TextureViewDimension2D,
		}
	}
	return e
}

// BindGroupLayoutBinding declares one binding of a layout.
type BindGroupLayoutBinding struct {
	Binding    uint32
	Visibility gputypes.ShaderStages
	Type       BindingType
}

// BindGroupLayoutDescriptor describes a bind group layout.
type BindGroupLayoutDescriptor struct {
	// NextInChain is reserved for extensions and must be nil.
	NextInChain any
	Label       string
	Bindings    []BindGroupLayoutBinding
}

// BindGroupLayout is an immutable, deduplicated bind group layout:
// structurally equal descriptors return the same object while it is alive.
type BindGroupLayout struct {
	object
	hal hal.BindGroupLayout
	id  uint64

	mask         uint32
	visibilities [MaxBindingsPerGroup]gputypes.ShaderStages
	types        [MaxBindingsPerGroup]BindingType

	blueprint bool
}

// Mask returns the set of bound binding indices.
func (l *BindGroupLayout) Mask() uint32 { return l.mask }

// Binding returns the declaration of binding i, and whether it exists.
func (l *BindGroupLayout) Binding(i uint32) (BindGroupLayoutBinding, bool) {
	if i >= MaxBindingsPerGroup || l.mask&(1<<i) == 0 {
		return BindGroupLayoutBinding{}, false
	}
	return BindGroupLayoutBinding{Binding: i, Visibility: l.visibilities[i], Type: l.types[i]}, true
}

// HAL returns the backend layout.
func (l *BindGroupLayout) HAL() hal.BindGroupLayout { return l.hal }

// Hash mixes the binding mask with every populated (visibility, type) pair.
func (l *BindGroupLayout) Hash() uint64 {
	h := cache.NewHasher()
	h.Uint32(l.mask)
	for i := range MaxBindingsPerGroup {
		if l.mask&(1<<i) != 0 {
			h.Uint32(uint32(l.visibilities[i]))
			h.Uint32(uint32(l.types[i]))
		}
	}
	return h.Sum()
}

// Equal reports structural equality.
func (l *BindGroupLayout) Equal(other *BindGroupLayout) bool {
	if l.mask != other.mask {
		return false
	}
	for i := range MaxBindingsPerGroup {
		if l.mask&(1<<i) == 0 {
			continue
		}
		if l.visibilities[i] != other.visibilities[i] || l.types[i] != other.types[i] {
			return false
		}
	}
	return true
}

func (l *BindGroupLayout) destroyImpl() {
	d := l.device
	if l.blueprint {
		return
	}
	d.bindGroupLayouts.Remove(l)
	if !d.closed {
		d.engine.Deleter().DeleteBindGroupLayout(l.hal)
	}
}

// CreateBindGroupLayout returns the layout described by desc, reusing a
// live structurally equal layout when one exists.
func (d *Device) CreateBindGroupLayout(desc *BindGroupLayoutDescriptor) *BindGroupLayout {
	return d.procs.DeviceCreateBindGroupLayout(d, desc)
}

// BindGroupLayoutCacheLen returns the number of live cached layouts.
func (d *Device) BindGroupLayoutCacheLen() int {
	return d.bindGroupLayouts.Len()
}

func (d *Device) createBindGroupLayout(desc *BindGroupLayoutDescriptor) *BindGroupLayout {
	if d.closed {
		d.handleError(ErrDeviceLost)
		return nil
	}
	blueprint, err := bindGroupLayoutBlueprint(desc)
	if d.consumedError(err) {
		return nil
	}
	if cached, ok := d.bindGroupLayouts.Find(blueprint); ok {
		cached.Reference()
		return cached
	}

	entries := make([]gputypes.BindGroupLayoutEntry, 0, len(desc.Bindings))
	for _, b := range desc.Bindings {
		entries = append(entries, b.Type.layoutEntry(b.Binding, b.Visibility))
	}
	hl, err := d.engine.Device().CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   desc.Label,
		Entries: entries,
	})
	if err != nil {
		d.handleError(outOfMemory("create bind group layout", err))
		return nil
	}

	l := blueprint
	l.blueprint = false
	l.hal = hl
	l.id = d.newID()
	l.init(d, "BindGroupLayout", l.destroyImpl)
	d.bindGroupLayouts.Insert(l)
	return l
}

// bindGroupLayoutBlueprint validates desc and builds the cache key.
func bindGroupLayoutBlueprint(desc *BindGroupLayoutDescriptor) (*BindGroupLayout, error) {
	if desc == nil {
		return nil, validationError("Bind group layout descriptor is nil")
	}
	if desc.NextInChain != nil {
		return nil, validationError("nextInChain must be nil")
	}
	l := &BindGroupLayout{blueprint: true}
	for _, b := range desc.Bindings {
		switch {
		case b.Binding >= MaxBindingsPerGroup:
			return nil, validationError("some binding index exceeds the maximum value")
		case l.mask&(1<<b.Binding) != 0:
			return nil, validationError("some binding index was specified more than once")
		case b.Visibility == 0 || b.Visibility&^gputypes.ShaderStagesAll != 0:
			return nil, validationError("Binding %d has an invalid visibility", b.Binding)
		case b.Type > BindingTypeStorageTexture:
			return nil, validationError("Binding %d has an invalid type", b.Binding)
		}
		l.mask |= 1 << b.Binding
		l.visibilities[b.Binding] = b.Visibility
		l.types[b.Binding] = b.Type
	}
	return l, nil
}
