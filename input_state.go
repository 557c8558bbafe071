package nxt

import "github.com/gogpu/gputypes"

type vertexAttribute struct {
	slot   uint32
	format gputypes.VertexFormat
	offset uint64
}

type vertexInput struct {
	stride   uint64
	stepMode gputypes.VertexStepMode
}

// InputState describes how vertex buffers feed vertex attributes.
type InputState struct {
	object
	attributesSet uint32
	attributes    [MaxVertexAttributes]vertexAttribute
	inputsSet     uint32
	inputs        [MaxVertexInputs]vertexInput
}

// AttributesSet returns the mask of declared attribute locations.
func (s *InputState) AttributesSet() uint32 { return s.attributesSet }

// InputsSet returns the mask of declared input slots.
func (s *InputState) InputsSet() uint32 { return s.inputsSet }

// vertexBufferLayouts returns one HAL layout per slot up to the highest
// declared one. Undeclared slots in between are marked unused.
func (s *InputState) vertexBufferLayouts() []gputypes.VertexBufferLayout {
	var n int
	for slot := range MaxVertexInputs {
		if s.inputsSet&(1<<slot) != 0 {
			n = slot + 1
		}
	}
	layouts := make([]gputypes.VertexBufferLayout, n)
	for slot := range layouts {
		if s.inputsSet&(1<<slot) == 0 {
			layouts[slot].StepMode = gputypes.VertexStepModeVertexBufferNotUsed
			continue
		}
		layouts[slot].ArrayStride = s.inputs[slot].stride
		layouts[slot].StepMode = s.inputs[slot].stepMode
	}
	for loc := range MaxVertexAttributes {
		if s.attributesSet&(1<<loc) == 0 {
			continue
		}
		a := s.attributes[loc]
		layouts[a.slot].Attributes = append(layouts[a.slot].Attributes, gputypes.VertexAttribute{
			Format:         a.format,
			Offset:         a.offset,
			ShaderLocation: uint32(loc),
		})
	}
	return layouts
}

// InputStateBuilder configures an InputState.
type InputStateBuilder struct {
	builder
	state InputState
}

// CreateInputStateBuilder starts an input state.
func (d *Device) CreateInputStateBuilder() *InputStateBuilder {
	b := &InputStateBuilder{}
	b.init(d)
	return b
}

// SetResultCallback sets the callback invoked by GetResult.
func (b *InputStateBuilder) SetResultCallback(fn BuilderCallback) *InputStateBuilder {
	b.callback = fn
	return b
}

// SetAttribute declares the attribute at shader location, read from
// bindingSlot at offset bytes into each element.
func (b *InputStateBuilder) SetAttribute(location, bindingSlot uint32, format gputypes.VertexFormat, offset uint64) *InputStateBuilder {
	b.device.procs.InputStateBuilderSetAttribute(b, location, bindingSlot, format, offset)
	return b
}

// SetInput declares the vertex buffer slot with its element stride.
func (b *InputStateBuilder) SetInput(bindingSlot uint32, stride uint64, stepMode gputypes.VertexStepMode) *InputStateBuilder {
	b.device.procs.InputStateBuilderSetInput(b, bindingSlot, stride, stepMode)
	return b
}

// GetResult creates the input state, or returns nil and reports the error.
func (b *InputStateBuilder) GetResult() *InputState {
	return b.device.procs.InputStateBuilderGetResult(b)
}

func (b *InputStateBuilder) setAttribute(location, slot uint32, format gputypes.VertexFormat, offset uint64) {
	if !b.usable() {
		return
	}
	switch {
	case location >= MaxVertexAttributes:
		b.fail(validationError("Setting attribute out of bounds"))
	case slot >= MaxVertexInputs:
		b.fail(validationError("Binding slot out of bounds"))
	case b.state.attributesSet&(1<<location) != 0:
		b.fail(validationError("Setting already set attribute"))
	default:
		b.state.attributesSet |= 1 << location
		b.state.attributes[location] = vertexAttribute{slot: slot, format: format, offset: offset}
	}
}

func (b *InputStateBuilder) setInput(slot uint32, stride uint64, stepMode gputypes.VertexStepMode) {
	if !b.usable() {
		return
	}
	switch {
	case slot >= MaxVertexInputs:
		b.fail(validationError("Setting input out of bounds"))
	case b.state.inputsSet&(1<<slot) != 0:
		b.fail(validationError("Setting already set input"))
	default:
		b.state.inputsSet |= 1 << slot
		b.state.inputs[slot] = vertexInput{stride: stride, stepMode: stepMode}
	}
}

func (b *InputStateBuilder) getResult() *InputState {
	return result(&b.builder, func() (*InputState, error) {
		for loc := range MaxVertexAttributes {
			if b.state.attributesSet&(1<<loc) == 0 {
				continue
			}
			a := b.state.attributes[loc]
			if b.state.inputsSet&(1<<a.slot) == 0 {
				return nil, validationError("Attribute %d uses undeclared input slot %d", loc, a.slot)
			}
			if a.offset+a.format.Size() > b.state.inputs[a.slot].stride {
				return nil, validationError("Attribute %d does not fit in the input stride", loc)
			}
		}
		s := &InputState{
			attributesSet: b.state.attributesSet,
			attributes:    b.state.attributes,
			inputsSet:     b.state.inputsSet,
			inputs:        b.state.inputs,
		}
		s.init(b.device, "InputState", nil)
		return s, nil
	})
}
