package nxt

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// RenderPipeline is a validated graphics pipeline bound to one attachment
// layout.
type RenderPipeline struct {
	object
	pipelineBase
	hal hal.RenderPipeline

	inputState        *InputState
	indexFormat       gputypes.IndexFormat
	topology          gputypes.PrimitiveTopology
	attachmentLayout  *AttachmentLayout
	blendStates       [MaxColorAttachments]*BlendState
	depthStencilState *DepthStencilState
}

// AttachmentLayout returns the layout of the subpasses the pipeline can be
// used in.
func (p *RenderPipeline) AttachmentLayout() *AttachmentLayout { return p.attachmentLayout }

// IndexFormat returns the index format, gputypes.IndexFormatUndefined
// when the pipeline cannot draw indexed.
func (p *RenderPipeline) IndexFormat() gputypes.IndexFormat { return p.indexFormat }

// InputState returns the vertex input state.
func (p *RenderPipeline) InputState() *InputState { return p.inputState }

// HAL returns the backend pipeline.
func (p *RenderPipeline) HAL() hal.RenderPipeline { return p.hal }

func (p *RenderPipeline) destroyImpl() {
	if d := p.device; !d.closed {
		d.engine.Deleter().DeleteRenderPipeline(p.hal)
	}
	p.release()
	p.inputState.Release()
	p.attachmentLayout.Release()
	for _, bs := range p.blendStates {
		if bs != nil {
			bs.Release()
		}
	}
	if p.depthStencilState != nil {
		p.depthStencilState.Release()
	}
}

// RenderPipelineBuilder configures a RenderPipeline. Vertex and fragment
// stages are required. Attachment formats come either from SetSubpass or
// from the SetColorAttachmentFormat family.
type RenderPipelineBuilder struct {
	pipelineBuilder
	inputState        *InputState
	indexFormat       gputypes.IndexFormat
	topology          gputypes.PrimitiveTopology
	colorFormats      [MaxColorAttachments]gputypes.TextureFormat
	colorSet          uint32
	depthFormat       gputypes.TextureFormat
	sampleCount       uint32
	subpassLayout     *AttachmentLayout
	blendStates       [MaxColorAttachments]*BlendState
	depthStencilState *DepthStencilState
}

// CreateRenderPipelineBuilder starts a render pipeline.
func (d *Device) CreateRenderPipelineBuilder() *RenderPipelineBuilder {
	b := &RenderPipelineBuilder{
		topology:    gputypes.PrimitiveTopologyTriangleList,
		sampleCount: 1,
	}
	b.init(d)
	return b
}

// SetLabel names the pipeline in backend debug output.
func (b *RenderPipelineBuilder) SetLabel(label string) *RenderPipelineBuilder {
	if b.usable() {
		b.label = label
	}
	return b
}

// SetResultCallback sets the callback invoked by GetResult.
func (b *RenderPipelineBuilder) SetResultCallback(fn BuilderCallback) *RenderPipelineBuilder {
	b.callback = fn
	return b
}

// SetLayout sets the pipeline layout; the empty layout is used otherwise.
func (b *RenderPipelineBuilder) SetLayout(layout *PipelineLayout) *RenderPipelineBuilder {
	b.device.procs.RenderPipelineBuilderSetLayout(b, layout)
	return b
}

// SetStage sets the module and entry point of stage.
func (b *RenderPipelineBuilder) SetStage(stage gputypes.ShaderStage, module *ShaderModule, entryPoint string) *RenderPipelineBuilder {
	b.device.procs.RenderPipelineBuilderSetStage(b, stage, module, entryPoint)
	return b
}

// SetInputState sets the vertex input state.
func (b *RenderPipelineBuilder) SetInputState(state *InputState) *RenderPipelineBuilder {
	b.device.procs.RenderPipelineBuilderSetInputState(b, state)
	return b
}

// SetIndexFormat sets the format of index buffers used with DrawElements.
func (b *RenderPipelineBuilder) SetIndexFormat(format gputypes.IndexFormat) *RenderPipelineBuilder {
	b.device.procs.RenderPipelineBuilderSetIndexFormat(b, format)
	return b
}

// SetPrimitiveTopology sets the primitive topology.
func (b *RenderPipelineBuilder) SetPrimitiveTopology(topology gputypes.PrimitiveTopology) *RenderPipelineBuilder {
	b.device.procs.RenderPipelineBuilderSetPrimitiveTopology(b, topology)
	return b
}

// SetColorAttachmentFormat sets the format of color attachment index.
func (b *RenderPipelineBuilder) SetColorAttachmentFormat(index uint32, format gputypes.TextureFormat) *RenderPipelineBuilder {
	b.device.procs.RenderPipelineBuilderSetColorAttachmentFormat(b, index, format)
	return b
}

// SetDepthStencilAttachmentFormat sets the depth-stencil attachment format.
func (b *RenderPipelineBuilder) SetDepthStencilAttachmentFormat(format gputypes.TextureFormat) *RenderPipelineBuilder {
	b.device.procs.RenderPipelineBuilderSetDepthStencilAttachmentFormat(b, format)
	return b
}

// SetSampleCount sets the attachment sample count.
func (b *RenderPipelineBuilder) SetSampleCount(count uint32) *RenderPipelineBuilder {
	b.device.procs.RenderPipelineBuilderSetSampleCount(b, count)
	return b
}

// SetSubpass takes the attachment layout of a subpass of renderPass.
func (b *RenderPipelineBuilder) SetSubpass(renderPass *RenderPassDescriptor, index uint32) *RenderPipelineBuilder {
	b.device.procs.RenderPipelineBuilderSetSubpass(b, renderPass, index)
	return b
}

// SetColorAttachmentBlendState sets the blending of color attachment index.
func (b *RenderPipelineBuilder) SetColorAttachmentBlendState(index uint32, state *BlendState) *RenderPipelineBuilder {
	b.device.procs.RenderPipelineBuilderSetColorAttachmentBlendState(b, index, state)
	return b
}

// SetDepthStencilState sets the depth and stencil tests.
func (b *RenderPipelineBuilder) SetDepthStencilState(state *DepthStencilState) *RenderPipelineBuilder {
	b.device.procs.RenderPipelineBuilderSetDepthStencilState(b, state)
	return b
}

// GetResult creates the pipeline, or returns nil and reports the error.
func (b *RenderPipelineBuilder) GetResult() *RenderPipeline {
	return b.device.procs.RenderPipelineBuilderGetResult(b)
}

func (b *RenderPipelineBuilder) setInputState(state *InputState) {
	if !b.usable() {
		return
	}
	if b.inputState != nil {
		b.fail(validationError("Input state property set multiple times"))
		return
	}
	b.inputState = state
}

func (b *RenderPipelineBuilder) setIndexFormat(format gputypes.IndexFormat) {
	if b.usable() {
		b.indexFormat = format
	}
}

func (b *RenderPipelineBuilder) setPrimitiveTopology(topology gputypes.PrimitiveTopology) {
	if b.usable() {
		b.topology = topology
	}
}

func (b *RenderPipelineBuilder) setColorAttachmentFormat(index uint32, format gputypes.TextureFormat) {
	if !b.usable() {
		return
	}
	switch {
	case index >= MaxColorAttachments:
		b.fail(validationError("Color attachment index out of bounds"))
	case b.colorSet&(1<<index) != 0:
		b.fail(validationError("Color attachment format set multiple times"))
	case format.IsDepthStencil():
		b.fail(validationError("Color attachment format cannot be depth-stencil"))
	default:
		b.colorFormats[index] = format
		b.colorSet |= 1 << index
	}
}

func (b *RenderPipelineBuilder) setDepthStencilAttachmentFormat(format gputypes.TextureFormat) {
	if !b.usable() {
		return
	}
	switch {
	case b.depthFormat != gputypes.TextureFormatUndefined:
		b.fail(validationError("Depth stencil attachment format set multiple times"))
	case !format.IsDepthStencil():
		b.fail(validationError("Depth stencil attachment format must be depth-stencil"))
	default:
		b.depthFormat = format
	}
}

func (b *RenderPipelineBuilder) setSampleCount(count uint32) {
	if !b.usable() {
		return
	}
	if count != 1 && count != 4 {
		b.fail(validationError("Sample count must be 1 or 4"))
		return
	}
	b.sampleCount = count
}

func (b *RenderPipelineBuilder) setSubpass(renderPass *RenderPassDescriptor, index uint32) {
	if !b.usable() {
		return
	}
	if index >= uint32(renderPass.SubpassCount()) {
		b.fail(validationError("Subpass index out of bounds"))
		return
	}
	b.subpassLayout = renderPass.subpasses[index].layout
}

func (b *RenderPipelineBuilder) setColorAttachmentBlendState(index uint32, state *BlendState) {
	if !b.usable() {
		return
	}
	switch {
	case index >= MaxColorAttachments:
		b.fail(validationError("Color attachment index out of bounds"))
	case b.blendStates[index] != nil:
		b.fail(validationError("Attachment blend state already set"))
	default:
		b.blendStates[index] = state
	}
}

func (b *RenderPipelineBuilder) setDepthStencilState(state *DepthStencilState) {
	if !b.usable() {
		return
	}
	if b.depthStencilState != nil {
		b.fail(validationError("Depth stencil state property set multiple times"))
		return
	}
	b.depthStencilState = state
}

func (b *RenderPipelineBuilder) getResult() *RenderPipeline {
	return result(&b.builder, b.build)
}

// attachmentLayout resolves the pipeline's attachment layout, referenced.
func (b *RenderPipelineBuilder) attachmentLayout() (*AttachmentLayout, error) {
	if b.subpassLayout != nil {
		if b.colorSet != 0 || b.depthFormat != gputypes.TextureFormatUndefined {
			return nil, validationError("Attachment formats cannot be set together with a subpass")
		}
		b.subpassLayout.Reference()
		return b.subpassLayout, nil
	}
	blueprint := &AttachmentLayout{blueprint: true, depthFormat: b.depthFormat, sampleCount: b.sampleCount}
	for b.colorSet&(1<<blueprint.colorCount) != 0 {
		blueprint.colorFormats[blueprint.colorCount] = b.colorFormats[blueprint.colorCount]
		blueprint.colorCount++
	}
	if b.colorSet>>blueprint.colorCount != 0 {
		return nil, validationError("Color attachment formats must be contiguous")
	}
	if blueprint.colorCount == 0 && blueprint.depthFormat == gputypes.TextureFormatUndefined {
		return nil, validationError("Pipeline should have at least one attachment")
	}
	return b.device.getOrCreateAttachmentLayout(blueprint), nil
}

func (b *RenderPipelineBuilder) build() (*RenderPipeline, error) {
	d := b.device
	layout, err := b.attachmentLayout()
	if err != nil {
		return nil, err
	}
	for i, bs := range b.blendStates {
		if bs != nil && uint32(i) >= layout.colorCount {
			layout.Release()
			return nil, validationError("Blend state set on unset color attachment %d", i)
		}
	}
	inputState := b.inputState
	if inputState == nil {
		inputState = &InputState{}
		inputState.init(d, "InputState", nil)
	} else {
		inputState.Reference()
	}
	cleanup := func() {
		layout.Release()
		inputState.Release()
	}

	vertex := b.stages[gputypes.ShaderStageVertex]
	if vertex.module != nil {
		used := vertex.module.module.UsedVertexAttributes
		if used&^inputState.attributesSet != 0 {
			cleanup()
			return nil, validationError("Pipeline vertex stage uses inputs not in the input state")
		}
	}

	base, err := b.base(gputypes.ShaderStageVertex, gputypes.ShaderStageFragment)
	if err != nil {
		cleanup()
		return nil, err
	}
	vertex = base.stages[gputypes.ShaderStageVertex]
	fragment := base.stages[gputypes.ShaderStageFragment]

	targets := make([]gputypes.ColorTargetState, layout.colorCount)
	for i := range targets {
		bs := b.blendStates[i]
		targets[i] = gputypes.ColorTargetState{
			Format:    layout.colorFormats[i],
			Blend:     bs.halBlend(),
			WriteMask: bs.colorWriteMask(),
		}
	}
	desc := &hal.RenderPipelineDescriptor{
		Label:  b.label,
		Layout: base.layout.hal,
		Vertex: hal.VertexState{
			Module:     vertex.module.hal,
			EntryPoint: vertex.entryPoint,
			Buffers:    inputState.vertexBufferLayouts(),
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  b.topology,
			FrontFace: gputypes.FrontFaceCCW,
			CullMode:  gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{Count: layout.sampleCount, Mask: 0xFFFFFFFF},
		Fragment: &hal.FragmentState{
			Module:     fragment.module.hal,
			EntryPoint: fragment.entryPoint,
			Targets:    targets,
		},
	}
	if layout.depthFormat != gputypes.TextureFormatUndefined {
		dss := b.depthStencilState
		if dss == nil {
			dss = &DepthStencilState{
				depthCompare: gputypes.CompareFunctionAlways,
				front:        defaultStencilFunction,
				back:         defaultStencilFunction,
				readMask:     0xFF,
				writeMask:    0xFF,
			}
		}
		desc.DepthStencil = dss.halState(layout.depthFormat)
	}
	if b.topology == gputypes.PrimitiveTopologyTriangleStrip || b.topology == gputypes.PrimitiveTopologyLineStrip {
		if b.indexFormat != gputypes.IndexFormatUndefined {
			f := b.indexFormat
			desc.Primitive.StripIndexFormat = &f
		}
	}

	hp, err := d.engine.Device().CreateRenderPipeline(desc)
	if err != nil {
		base.release()
		cleanup()
		return nil, outOfMemory("create render pipeline", err)
	}

	p := &RenderPipeline{
		pipelineBase:      base,
		hal:               hp,
		inputState:        inputState,
		indexFormat:       b.indexFormat,
		topology:          b.topology,
		attachmentLayout:  layout,
		blendStates:       b.blendStates,
		depthStencilState: b.depthStencilState,
	}
	for _, bs := range p.blendStates {
		if bs != nil {
			bs.Reference()
		}
	}
	if p.depthStencilState != nil {
		p.depthStencilState.Reference()
	}
	p.init(d, "RenderPipeline", p.destroyImpl)
	return p, nil
}
