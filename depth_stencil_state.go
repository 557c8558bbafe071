package nxt

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// StencilFace selects the faces a stencil function applies to.
type StencilFace uint8

// StencilFace values.
const (
	StencilFaceBack StencilFace = 1 << iota
	StencilFaceFront
	StencilFaceBoth = StencilFaceBack | StencilFaceFront
)

// StencilFunction is the stencil test of one face.
type StencilFunction struct {
	Compare     gputypes.CompareFunction
	StencilFail gputypes.StencilOperation
	DepthFail   gputypes.StencilOperation
	Pass        gputypes.StencilOperation
}

var defaultStencilFunction = StencilFunction{
	Compare:     gputypes.CompareFunctionAlways,
	StencilFail: gputypes.StencilOperationKeep,
	DepthFail:   gputypes.StencilOperationKeep,
	Pass:        gputypes.StencilOperationKeep,
}

func (f StencilFunction) enabled() bool {
	return f != defaultStencilFunction
}

func (f StencilFunction) hal() hal.StencilFaceState {
	return hal.StencilFaceState{
		Compare:     f.Compare,
		FailOp:      halStencilOp(f.StencilFail),
		DepthFailOp: halStencilOp(f.DepthFail),
		PassOp:      halStencilOp(f.Pass),
	}
}

// halStencilOp converts from the 1-based gputypes enumeration to the
// 0-based HAL one.
func halStencilOp(op gputypes.StencilOperation) hal.StencilOperation {
	if op == gputypes.StencilOperationUndefined {
		return hal.StencilOperationKeep
	}
	return hal.StencilOperation(op - 1)
}

// DepthStencilState is the depth and stencil test configuration of a
// render pipeline.
type DepthStencilState struct {
	object
	depthCompare gputypes.CompareFunction
	depthWrite   bool
	front        StencilFunction
	back         StencilFunction
	readMask     uint32
	writeMask    uint32
}

// DepthTestEnabled reports whether depth testing or writing is on.
func (s *DepthStencilState) DepthTestEnabled() bool {
	return s.depthCompare != gputypes.CompareFunctionAlways || s.depthWrite
}

// StencilTestEnabled reports whether either face has a stencil test.
func (s *DepthStencilState) StencilTestEnabled() bool {
	return s.front.enabled() || s.back.enabled()
}

// halState returns the HAL state for an attachment of format.
func (s *DepthStencilState) halState(format gputypes.TextureFormat) *hal.DepthStencilState {
	return &hal.DepthStencilState{
		Format:            format,
		DepthWriteEnabled: s.depthWrite,
		DepthCompare:      s.depthCompare,
		StencilFront:      s.front.hal(),
		StencilBack:       s.back.hal(),
		StencilReadMask:   s.readMask,
		StencilWriteMask:  s.writeMask,
	}
}

// DepthStencilStateBuilder configures a DepthStencilState. The default
// state passes every fragment and writes nothing.
type DepthStencilStateBuilder struct {
	builder
	state DepthStencilState
	props uint32
	faces StencilFace
}

const (
	propDepthCompare = 1 << iota
	propDepthWrite
	propStencilMask
)

// CreateDepthStencilStateBuilder starts a depth-stencil state.
func (d *Device) CreateDepthStencilStateBuilder() *DepthStencilStateBuilder {
	b := &DepthStencilStateBuilder{}
	b.state.depthCompare = gputypes.CompareFunctionAlways
	b.state.front = defaultStencilFunction
	b.state.back = defaultStencilFunction
	b.state.readMask = 0xFF
	b.state.writeMask = 0xFF
	b.init(d)
	return b
}

// SetResultCallback sets the callback invoked by GetResult.
func (b *DepthStencilStateBuilder) SetResultCallback(fn BuilderCallback) *DepthStencilStateBuilder {
	b.callback = fn
	return b
}

// SetDepthCompareFunction sets the depth test.
func (b *DepthStencilStateBuilder) SetDepthCompareFunction(fn gputypes.CompareFunction) *DepthStencilStateBuilder {
	b.device.procs.DepthStencilStateBuilderSetDepthCompareFunction(b, fn)
	return b
}

// SetDepthWriteEnabled turns depth writes on or off.
func (b *DepthStencilStateBuilder) SetDepthWriteEnabled(enabled bool) *DepthStencilStateBuilder {
	b.device.procs.DepthStencilStateBuilderSetDepthWriteEnabled(b, enabled)
	return b
}

// SetStencilFunction sets the stencil test of the given faces.
func (b *DepthStencilStateBuilder) SetStencilFunction(face StencilFace, fn StencilFunction) *DepthStencilStateBuilder {
	b.device.procs.DepthStencilStateBuilderSetStencilFunction(b, face, fn)
	return b
}

// SetStencilMask sets the stencil read and write masks.
func (b *DepthStencilStateBuilder) SetStencilMask(readMask, writeMask uint32) *DepthStencilStateBuilder {
	b.device.procs.DepthStencilStateBuilderSetStencilMask(b, readMask, writeMask)
	return b
}

// GetResult creates the state, or returns nil and reports the error.
func (b *DepthStencilStateBuilder) GetResult() *DepthStencilState {
	return b.device.procs.DepthStencilStateBuilderGetResult(b)
}

func (b *DepthStencilStateBuilder) setDepthCompareFunction(fn gputypes.CompareFunction) {
	if b.setProp(&b.props, propDepthCompare, "Depth compare") {
		b.state.depthCompare = fn
	}
}

func (b *DepthStencilStateBuilder) setDepthWriteEnabled(enabled bool) {
	if b.setProp(&b.props, propDepthWrite, "Depth write enabled") {
		b.state.depthWrite = enabled
	}
}

func (b *DepthStencilStateBuilder) setStencilFunction(face StencilFace, fn StencilFunction) {
	if !b.usable() {
		return
	}
	if face == 0 || face&^StencilFaceBoth != 0 {
		b.fail(validationError("Stencil face is invalid"))
		return
	}
	if b.faces&face != 0 {
		b.fail(validationError("Stencil function property set multiple times"))
		return
	}
	b.faces |= face
	if face&StencilFaceFront != 0 {
		b.state.front = fn
	}
	if face&StencilFaceBack != 0 {
		b.state.back = fn
	}
}

func (b *DepthStencilStateBuilder) setStencilMask(readMask, writeMask uint32) {
	if b.setProp(&b.props, propStencilMask, "Stencil mask") {
		b.state.readMask, b.state.writeMask = readMask, writeMask
	}
}

func (b *DepthStencilStateBuilder) getResult() *DepthStencilState {
	return result(&b.builder, func() (*DepthStencilState, error) {
		s := &DepthStencilState{
			depthCompare: b.state.depthCompare,
			depthWrite:   b.state.depthWrite,
			front:        b.state.front,
			back:         b.state.back,
			readMask:     b.state.readMask,
			writeMask:    b.state.writeMask,
		}
		s.init(b.device, "DepthStencilState", nil)
		return s, nil
	})
}
