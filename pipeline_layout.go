package nxt

import (
	"github.com/gogpu/nxt/internal/cache"
	"github.com/gogpu/wgpu/hal"
)

// PipelineLayoutDescriptor lists the bind group layouts of a pipeline, one
// per group index.
type PipelineLayoutDescriptor struct {
	Label            string
	BindGroupLayouts []*BindGroupLayout
}

// PipelineLayout is an immutable, deduplicated pipeline layout. Two
// descriptors naming the same layouts in the same order share one object.
type PipelineLayout struct {
	object
	hal hal.PipelineLayout

	bindGroupLayouts [MaxBindGroups]*BindGroupLayout
	// mask has bit g set when group g has a layout
	mask uint32

	blueprint bool
}

// BindGroupLayout returns the layout of group, or nil.
func (l *PipelineLayout) BindGroupLayout(group uint32) *BindGroupLayout {
	if group >= MaxBindGroups {
		return nil
	}
	return l.bindGroupLayouts[group]
}

// Mask returns the set of populated group indices.
func (l *PipelineLayout) Mask() uint32 { return l.mask }

// HAL returns the backend pipeline layout.
func (l *PipelineLayout) HAL() hal.PipelineLayout { return l.hal }

// Hash mixes the identities of the bind group layouts in order.
func (l *PipelineLayout) Hash() uint64 {
	h := cache.NewHasher()
	h.Uint32(l.mask)
	for _, bgl := range l.bindGroupLayouts {
		if bgl != nil {
			h.Uint64(bgl.id)
		}
	}
	return h.Sum()
}

// Equal reports whether both layouts name the same bind group layouts.
func (l *PipelineLayout) Equal(other *PipelineLayout) bool {
	return l.bindGroupLayouts == other.bindGroupLayouts
}

func (l *PipelineLayout) destroyImpl() {
	d := l.device
	if l.blueprint {
		return
	}
	d.pipelineLayouts.Remove(l)
	if !d.closed {
		d.engine.Deleter().DeletePipelineLayout(l.hal)
	}
	for _, bgl := range l.bindGroupLayouts {
		if bgl != nil {
			bgl.Release()
		}
	}
}

// CreatePipelineLayout returns the pipeline layout described by desc.
func (d *Device) CreatePipelineLayout(desc *PipelineLayoutDescriptor) *PipelineLayout {
	return d.procs.DeviceCreatePipelineLayout(d, desc)
}

func (d *Device) createPipelineLayout(desc *PipelineLayoutDescriptor) *PipelineLayout {
	if d.closed {
		d.handleError(ErrDeviceLost)
		return nil
	}
	if desc == nil {
		desc = &PipelineLayoutDescriptor{}
	}
	if len(desc.BindGroupLayouts) > MaxBindGroups {
		d.handleError(validationError("too many bind group layouts"))
		return nil
	}

	blueprint := &PipelineLayout{blueprint: true}
	for i, bgl := range desc.BindGroupLayouts {
		if bgl == nil {
			d.handleError(validationError("Bind group layout %d is nil", i))
			return nil
		}
		blueprint.bindGroupLayouts[i] = bgl
		blueprint.mask |= 1 << i
	}
	if cached, ok := d.pipelineLayouts.Find(blueprint); ok {
		cached.Reference()
		return cached
	}

	halLayouts := make([]hal.BindGroupLayout, len(desc.BindGroupLayouts))
	for i, bgl := range desc.BindGroupLayouts {
		halLayouts[i] = bgl.hal
	}
	hl, err := d.engine.Device().CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: halLayouts,
	})
	if err != nil {
		d.handleError(outOfMemory("create pipeline layout", err))
		return nil
	}

	l := blueprint
	l.blueprint = false
	l.hal = hl
	for _, bgl := range desc.BindGroupLayouts {
		bgl.Reference()
	}
	l.init(d, "PipelineLayout", l.destroyImpl)
	d.pipelineLayouts.Insert(l)
	return l
}

// emptyPipelineLayout returns a reference to the layout with no groups,
// used by pipelines created without SetLayout.
func (d *Device) emptyPipelineLayout() *PipelineLayout {
	return d.createPipelineLayout(&PipelineLayoutDescriptor{Label: "empty"})
}
