package nxt

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// SamplerDescriptor describes texture filtering and addressing.
// Zero filter and address modes select Nearest and ClampToEdge.
type SamplerDescriptor struct {
	Label        string
	MagFilter    gputypes.FilterMode
	MinFilter    gputypes.FilterMode
	MipmapFilter gputypes.FilterMode
	AddressModeU gputypes.AddressMode
	AddressModeV gputypes.AddressMode
	AddressModeW gputypes.AddressMode
	// Compare makes a comparison sampler when not CompareFunctionUndefined.
	Compare gputypes.CompareFunction
}

// withDefaults fills unset modes.
func (desc SamplerDescriptor) withDefaults() SamplerDescriptor {
	for _, f := range []*gputypes.FilterMode{&desc.MagFilter, &desc.MinFilter, &desc.MipmapFilter} {
		if *f == gputypes.FilterModeUndefined {
			*f = gputypes.FilterModeNearest
		}
	}
	for _, a := range []*gputypes.AddressMode{&desc.AddressModeU, &desc.AddressModeV, &desc.AddressModeW} {
		if *a == gputypes.AddressModeUndefined {
			*a = gputypes.AddressModeClampToEdge
		}
	}
	return desc
}

// Sampler is an immutable sampler object.
type Sampler struct {
	object
	hal  hal.Sampler
	desc SamplerDescriptor
}

// Descriptor returns the descriptor the sampler was created with, with
// defaults applied.
func (s *Sampler) Descriptor() SamplerDescriptor { return s.desc }

// HAL returns the backend sampler.
func (s *Sampler) HAL() hal.Sampler { return s.hal }

func (s *Sampler) destroyImpl() {
	if d := s.device; !d.closed {
		d.engine.Deleter().DeleteSampler(s.hal)
	}
}

// CreateSampler creates a sampler, or returns nil and reports the error.
func (d *Device) CreateSampler(desc *SamplerDescriptor) *Sampler {
	return d.procs.DeviceCreateSampler(d, desc)
}

func (d *Device) createSampler(desc *SamplerDescriptor) *Sampler {
	if d.closed {
		d.handleError(ErrDeviceLost)
		return nil
	}
	if desc == nil {
		desc = &SamplerDescriptor{}
	}
	sd := desc.withDefaults()
	hs, err := d.engine.Device().CreateSampler(&hal.SamplerDescriptor{
		Label:        sd.Label,
		AddressModeU: sd.AddressModeU,
		AddressModeV: sd.AddressModeV,
		AddressModeW: sd.AddressModeW,
		MagFilter:    sd.MagFilter,
		MinFilter:    sd.MinFilter,
		MipmapFilter: sd.MipmapFilter,
		LodMaxClamp:  32,
		Compare:      sd.Compare,
		Anisotropy:   1,
	})
	if err != nil {
		d.handleError(outOfMemory("create sampler", err))
		return nil
	}
	s := &Sampler{hal: hs, desc: sd}
	s.init(d, "Sampler", s.destroyImpl)
	return s
}
