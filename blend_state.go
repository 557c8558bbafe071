package nxt

import "github.com/gogpu/gputypes"

// BlendState is the blending configuration of one color attachment.
type BlendState struct {
	object
	enabled   bool
	color     gputypes.BlendComponent
	alpha     gputypes.BlendComponent
	writeMask gputypes.ColorWriteMask
}

// halBlend returns the HAL blend state, nil when blending is disabled.
func (s *BlendState) halBlend() *gputypes.BlendState {
	if s == nil || !s.enabled {
		return nil
	}
	return &gputypes.BlendState{Color: s.color, Alpha: s.alpha}
}

func (s *BlendState) colorWriteMask() gputypes.ColorWriteMask {
	if s == nil {
		return gputypes.ColorWriteMaskAll
	}
	return s.writeMask
}

var defaultBlendComponent = gputypes.BlendComponent{
	SrcFactor: gputypes.BlendFactorOne,
	DstFactor: gputypes.BlendFactorZero,
	Operation: gputypes.BlendOperationAdd,
}

// BlendStateBuilder configures a BlendState. Blending starts disabled with
// One/Zero/Add components and every channel written.
type BlendStateBuilder struct {
	builder
	enabled   bool
	color     gputypes.BlendComponent
	alpha     gputypes.BlendComponent
	writeMask gputypes.ColorWriteMask
	props     uint32
}

const (
	propBlendEnabled = 1 << iota
	propColorBlend
	propAlphaBlend
	propWriteMask
)

// CreateBlendStateBuilder starts a blend state.
func (d *Device) CreateBlendStateBuilder() *BlendStateBuilder {
	b := &BlendStateBuilder{
		color:     defaultBlendComponent,
		alpha:     defaultBlendComponent,
		writeMask: gputypes.ColorWriteMaskAll,
	}
	b.init(d)
	return b
}

// SetResultCallback sets the callback invoked by GetResult.
func (b *BlendStateBuilder) SetResultCallback(fn BuilderCallback) *BlendStateBuilder {
	b.callback = fn
	return b
}

// SetBlendEnabled turns blending on or off.
func (b *BlendStateBuilder) SetBlendEnabled(enabled bool) *BlendStateBuilder {
	b.device.procs.BlendStateBuilderSetBlendEnabled(b, enabled)
	return b
}

// SetColorBlend sets the color component.
func (b *BlendStateBuilder) SetColorBlend(op gputypes.BlendOperation, src, dst gputypes.BlendFactor) *BlendStateBuilder {
	b.device.procs.BlendStateBuilderSetColorBlend(b, op, src, dst)
	return b
}

// SetAlphaBlend sets the alpha component.
func (b *BlendStateBuilder) SetAlphaBlend(op gputypes.BlendOperation, src, dst gputypes.BlendFactor) *BlendStateBuilder {
	b.device.procs.BlendStateBuilderSetAlphaBlend(b, op, src, dst)
	return b
}

// SetColorWriteMask sets the written channels.
func (b *BlendStateBuilder) SetColorWriteMask(mask gputypes.ColorWriteMask) *BlendStateBuilder {
	b.device.procs.BlendStateBuilderSetColorWriteMask(b, mask)
	return b
}

// GetResult creates the blend state, or returns nil and reports the error.
func (b *BlendStateBuilder) GetResult() *BlendState {
	return b.device.procs.BlendStateBuilderGetResult(b)
}

func (b *BlendStateBuilder) setBlendEnabled(enabled bool) {
	if b.setProp(&b.props, propBlendEnabled, "Blend enabled") {
		b.enabled = enabled
	}
}

func (b *BlendStateBuilder) setColorBlend(op gputypes.BlendOperation, src, dst gputypes.BlendFactor) {
	if b.setProp(&b.props, propColorBlend, "Color blend") {
		b.color = gputypes.BlendComponent{SrcFactor: src, DstFactor: dst, Operation: op}
	}
}

func (b *BlendStateBuilder) setAlphaBlend(op gputypes.BlendOperation, src, dst gputypes.BlendFactor) {
	if b.setProp(&b.props, propAlphaBlend, "Alpha blend") {
		b.alpha = gputypes.BlendComponent{SrcFactor: src, DstFactor: dst, Operation: op}
	}
}

func (b *BlendStateBuilder) setColorWriteMask(mask gputypes.ColorWriteMask) {
	if b.setProp(&b.props, propWriteMask, "Color write mask") {
		b.writeMask = mask
	}
}

func (b *BlendStateBuilder) getResult() *BlendState {
	return result(&b.builder, func() (*BlendState, error) {
		s := &BlendState{enabled: b.enabled, color: b.color, alpha: b.alpha, writeMask: b.writeMask}
		s.init(b.device, "BlendState", nil)
		return s, nil
	})
}
