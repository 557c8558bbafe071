package nxt

import (
	"image"

	"github.com/gogpu/gputypes"
)

// Procs is the entry-point table every public method dispatches through,
// one function per (type, method). ValidatingProcs range-checks arguments
// before forwarding; NonValidatingProcs forwards directly and skips the
// whole-command-buffer and submit validation.
type Procs struct {
	DeviceCreateBindGroupLayout func(d *Device, desc *BindGroupLayoutDescriptor) *BindGroupLayout
	DeviceCreatePipelineLayout  func(d *Device, desc *PipelineLayoutDescriptor) *PipelineLayout
	DeviceCreateSampler         func(d *Device, desc *SamplerDescriptor) *Sampler

	QueueSubmit func(q *Queue, commandBuffers []*CommandBuffer)

	BufferSetSubData              func(b *Buffer, start uint64, data []byte)
	BufferMapReadAsync            func(b *Buffer, start, size uint64, callback BufferMapCallback)
	BufferMapWriteAsync           func(b *Buffer, start, size uint64, callback BufferMapCallback)
	BufferUnmap                   func(b *Buffer)
	BufferTransitionUsage         func(b *Buffer, usage gputypes.BufferUsage)
	BufferCreateBufferViewBuilder func(b *Buffer) *BufferViewBuilder

	BufferBuilderSetSize         func(b *BufferBuilder, size uint64)
	BufferBuilderSetAllowedUsage func(b *BufferBuilder, usage gputypes.BufferUsage)
	BufferBuilderSetInitialUsage func(b *BufferBuilder, usage gputypes.BufferUsage)
	BufferBuilderGetResult       func(b *BufferBuilder) *Buffer

	BufferViewBuilderSetExtent func(b *BufferViewBuilder, offset, size uint64)
	BufferViewBuilderGetResult func(b *BufferViewBuilder) *BufferView

	TextureTransitionUsage          func(t *Texture, usage gputypes.TextureUsage)
	TextureCreateTextureViewBuilder func(t *Texture) *TextureViewBuilder
	TextureWriteImage               func(t *Texture, img image.Image, generateMips bool)

	TextureBuilderSetDimension    func(b *TextureBuilder, dim gputypes.TextureDimension)
	TextureBuilderSetExtent       func(b *TextureBuilder, width, height, depth uint32)
	TextureBuilderSetFormat       func(b *TextureBuilder, format gputypes.TextureFormat)
	TextureBuilderSetMipLevels    func(b *TextureBuilder, levels uint32)
	TextureBuilderSetSampleCount  func(b *TextureBuilder, count uint32)
	TextureBuilderSetAllowedUsage func(b *TextureBuilder, usage gputypes.TextureUsage)
	TextureBuilderSetInitialUsage func(b *TextureBuilder, usage gputypes.TextureUsage)
	TextureBuilderGetResult       func(b *TextureBuilder) *Texture

	TextureViewBuilderSetDimension   func(b *TextureViewBuilder, dim gputypes.TextureViewDimension)
	TextureViewBuilderSetMipLevels   func(b *TextureViewBuilder, base, count uint32)
	TextureViewBuilderSetArrayLayers func(b *TextureViewBuilder, base, count uint32)
	TextureViewBuilderGetResult      func(b *TextureViewBuilder) *TextureView

	ShaderModuleBuilderSetSource func(b *ShaderModuleBuilder, words []uint32)
	ShaderModuleBuilderSetWGSL   func(b *ShaderModuleBuilder, source string)
	ShaderModuleBuilderGetResult func(b *ShaderModuleBuilder) *ShaderModule

	BindGroupBuilderSetLayout       func(b *BindGroupBuilder, layout *BindGroupLayout)
	BindGroupBuilderSetBufferViews  func(b *BindGroupBuilder, start uint32, views []*BufferView)
	BindGroupBuilderSetSamplers     func(b *BindGroupBuilder, start uint32, samplers []*Sampler)
	BindGroupBuilderSetTextureViews func(b *BindGroupBuilder, start uint32, views []*TextureView)
	BindGroupBuilderGetResult       func(b *BindGroupBuilder) *BindGroup

	RenderPassDescriptorBuilderSetColorAttachment           func(b *RenderPassDescriptorBuilder, index uint32, view *TextureView, loadOp gputypes.LoadOp)
	RenderPassDescriptorBuilderSetColorAttachmentClearColor func(b *RenderPassDescriptorBuilder, index uint32, c gputypes.Color)
	RenderPassDescriptorBuilderSetDepthStencilAttachment    func(b *RenderPassDescriptorBuilder, att DepthStencilAttachment)
	RenderPassDescriptorBuilderAddSubpass                   func(b *RenderPassDescriptorBuilder, colors []uint32, depth bool)
	RenderPassDescriptorBuilderGetResult                    func(b *RenderPassDescriptorBuilder) *RenderPassDescriptor

	InputStateBuilderSetAttribute func(b *InputStateBuilder, location, bindingSlot uint32, format gputypes.VertexFormat, offset uint64)
	InputStateBuilderSetInput     func(b *InputStateBuilder, bindingSlot uint32, stride uint64, stepMode gputypes.VertexStepMode)
	InputStateBuilderGetResult    func(b *InputStateBuilder) *InputState

	BlendStateBuilderSetBlendEnabled   func(b *BlendStateBuilder, enabled bool)
	BlendStateBuilderSetColorBlend     func(b *BlendStateBuilder, op gputypes.BlendOperation, src, dst gputypes.BlendFactor)
	BlendStateBuilderSetAlphaBlend     func(b *BlendStateBuilder, op gputypes.BlendOperation, src, dst gputypes.BlendFactor)
	BlendStateBuilderSetColorWriteMask func(b *BlendStateBuilder, mask gputypes.ColorWriteMask)
	BlendStateBuilderGetResult         func(b *BlendStateBuilder) *BlendState

	DepthStencilStateBuilderSetDepthCompareFunction func(b *DepthStencilStateBuilder, fn gputypes.CompareFunction)
	DepthStencilStateBuilderSetDepthWriteEnabled    func(b *DepthStencilStateBuilder, enabled bool)
	DepthStencilStateBuilderSetStencilFunction      func(b *DepthStencilStateBuilder, face StencilFace, fn StencilFunction)
	DepthStencilStateBuilderSetStencilMask          func(b *DepthStencilStateBuilder, readMask, writeMask uint32)
	DepthStencilStateBuilderGetResult               func(b *DepthStencilStateBuilder) *DepthStencilState

	RenderPipelineBuilderSetLayout                       func(b *RenderPipelineBuilder, layout *PipelineLayout)
	RenderPipelineBuilderSetStage                        func(b *RenderPipelineBuilder, stage gputypes.ShaderStage, module *ShaderModule, entryPoint string)
	RenderPipelineBuilderSetInputState                   func(b *RenderPipelineBuilder, state *InputState)
	RenderPipelineBuilderSetIndexFormat                  func(b *RenderPipelineBuilder, format gputypes.IndexFormat)
	RenderPipelineBuilderSetPrimitiveTopology            func(b *RenderPipelineBuilder, topology gputypes.PrimitiveTopology)
	RenderPipelineBuilderSetColorAttachmentFormat        func(b *RenderPipelineBuilder, index uint32, format gputypes.TextureFormat)
	RenderPipelineBuilderSetDepthStencilAttachmentFormat func(b *RenderPipelineBuilder, format gputypes.TextureFormat)
	RenderPipelineBuilderSetSampleCount                  func(b *RenderPipelineBuilder, count uint32)
	RenderPipelineBuilderSetSubpass                      func(b *RenderPipelineBuilder, renderPass *RenderPassDescriptor, index uint32)
	RenderPipelineBuilderSetColorAttachmentBlendState    func(b *RenderPipelineBuilder, index uint32, state *BlendState)
	RenderPipelineBuilderSetDepthStencilState            func(b *RenderPipelineBuilder, state *DepthStencilState)
	RenderPipelineBuilderGetResult                       func(b *RenderPipelineBuilder) *RenderPipeline

	ComputePipelineBuilderSetLayout func(b *ComputePipelineBuilder, layout *PipelineLayout)
	ComputePipelineBuilderSetStage  func(b *ComputePipelineBuilder, stage gputypes.ShaderStage, module *ShaderModule, entryPoint string)
	ComputePipelineBuilderGetResult func(b *ComputePipelineBuilder) *ComputePipeline

	CommandBufferBuilderBeginComputePass       func(b *CommandBufferBuilder)
	CommandBufferBuilderEndComputePass         func(b *CommandBufferBuilder)
	CommandBufferBuilderBeginRenderPass        func(b *CommandBufferBuilder, renderPass *RenderPassDescriptor)
	CommandBufferBuilderBeginRenderSubpass     func(b *CommandBufferBuilder)
	CommandBufferBuilderEndRenderSubpass       func(b *CommandBufferBuilder)
	CommandBufferBuilderEndRenderPass          func(b *CommandBufferBuilder)
	CommandBufferBuilderSetComputePipeline     func(b *CommandBufferBuilder, pipeline *ComputePipeline)
	CommandBufferBuilderSetRenderPipeline      func(b *CommandBufferBuilder, pipeline *RenderPipeline)
	CommandBufferBuilderSetBindGroup           func(b *CommandBufferBuilder, index uint32, group *BindGroup)
	CommandBufferBuilderSetVertexBuffers       func(b *CommandBufferBuilder, startSlot uint32, buffers []*Buffer, offsets []uint64)
	CommandBufferBuilderSetIndexBuffer         func(b *CommandBufferBuilder, buffer *Buffer, offset uint64)
	CommandBufferBuilderSetBlendColor          func(b *CommandBufferBuilder, r, g, bl, a float32)
	CommandBufferBuilderSetStencilReference    func(b *CommandBufferBuilder, reference uint32)
	CommandBufferBuilderSetPushConstants       func(b *CommandBufferBuilder, stages gputypes.ShaderStages, offset uint32, values []uint32)
	CommandBufferBuilderDrawArrays             func(b *CommandBufferBuilder, vertexCount, instanceCount, firstVertex, firstInstance uint32)
	CommandBufferBuilderDrawElements           func(b *CommandBufferBuilder, indexCount, instanceCount, firstIndex, firstInstance uint32)
	CommandBufferBuilderDispatch               func(b *CommandBufferBuilder, x, y, z uint32)
	CommandBufferBuilderTransitionBufferUsage  func(b *CommandBufferBuilder, buffer *Buffer, usage gputypes.BufferUsage)
	CommandBufferBuilderTransitionTextureUsage func(b *CommandBufferBuilder, texture *Texture, usage gputypes.TextureUsage)
	CommandBufferBuilderCopyBufferToBuffer     func(b *CommandBufferBuilder, src *Buffer, srcOffset uint64, dst *Buffer, dstOffset, size uint64)
	CommandBufferBuilderCopyBufferToTexture    func(b *CommandBufferBuilder, buffer *Buffer, offset uint64, rowPitch uint32, region TextureRegion)
	CommandBufferBuilderCopyTextureToBuffer    func(b *CommandBufferBuilder, region TextureRegion, buffer *Buffer, offset uint64, rowPitch uint32)
	CommandBufferBuilderGetResult              func(b *CommandBufferBuilder) *CommandBuffer

	SwapChainBuilderSetImplementation func(b *SwapChainBuilder, impl SwapChainImplementation)
	SwapChainBuilderGetResult         func(b *SwapChainBuilder) *SwapChain
	SwapChainConfigure                func(sc *SwapChain, format gputypes.TextureFormat, allowedUsage gputypes.TextureUsage, width, height uint32)
	SwapChainGetNextTexture           func(sc *SwapChain) *Texture
	SwapChainPresent                  func(sc *SwapChain, texture *Texture)
}

// NonValidatingProcs returns a table that calls the implementations
// without argument checks. Command buffers are not validated as a whole
// and submissions are not checked against resource state; invalid use is
// undefined behavior.
func NonValidatingProcs() *Procs {
	return &Procs{
		DeviceCreateBindGroupLayout: (*Device).createBindGroupLayout,
		DeviceCreatePipelineLayout:  (*Device).createPipelineLayout,
		DeviceCreateSampler:         (*Device).createSampler,

		QueueSubmit: (*Queue).submit,

		BufferSetSubData: (*Buffer).setSubData,
		BufferMapReadAsync: func(b *Buffer, start, size uint64, callback BufferMapCallback) {
			b.mapAsync(start, size, gputypes.BufferUsageMapRead, callback)
		},
		BufferMapWriteAsync: func(b *Buffer, start, size uint64, callback BufferMapCallback) {
			b.mapAsync(start, size, gputypes.BufferUsageMapWrite, callback)
		},
		BufferUnmap:                   (*Buffer).unmap,
		BufferTransitionUsage:         (*Buffer).transitionUsage,
		BufferCreateBufferViewBuilder: newBufferViewBuilder,

		BufferBuilderSetSize:         (*BufferBuilder).setSize,
		BufferBuilderSetAllowedUsage: (*BufferBuilder).setAllowedUsage,
		BufferBuilderSetInitialUsage: (*BufferBuilder).setInitialUsage,
		BufferBuilderGetResult:       (*BufferBuilder).getResult,

		BufferViewBuilderSetExtent: (*BufferViewBuilder).setExtent,
		BufferViewBuilderGetResult: (*BufferViewBuilder).getResult,

		TextureTransitionUsage:          (*Texture).transitionUsage,
		TextureCreateTextureViewBuilder: newTextureViewBuilder,
		TextureWriteImage:               (*Texture).writeImage,

		TextureBuilderSetDimension:    (*TextureBuilder).setDimension,
		TextureBuilderSetExtent:       (*TextureBuilder).setExtent,
		TextureBuilderSetFormat:       (*TextureBuilder).setFormat,
		TextureBuilderSetMipLevels:    (*TextureBuilder).setMipLevels,
		TextureBuilderSetSampleCount:  (*TextureBuilder).setSampleCount,
		TextureBuilderSetAllowedUsage: (*TextureBuilder).setAllowedUsage,
		TextureBuilderSetInitialUsage: (*TextureBuilder).setInitialUsage,
		TextureBuilderGetResult:       (*TextureBuilder).getResult,

		TextureViewBuilderSetDimension:   (*TextureViewBuilder).setDimension,
		TextureViewBuilderSetMipLevels:   (*TextureViewBuilder).setMipLevels,
		TextureViewBuilderSetArrayLayers: (*TextureViewBuilder).setArrayLayers,
		TextureViewBuilderGetResult:      (*TextureViewBuilder).getResult,

		ShaderModuleBuilderSetSource: (*ShaderModuleBuilder).setSource,
		ShaderModuleBuilderSetWGSL:   (*ShaderModuleBuilder).setWGSL,
		ShaderModuleBuilderGetResult: (*ShaderModuleBuilder).getResult,

		BindGroupBuilderSetLayout:       (*BindGroupBuilder).setLayout,
		BindGroupBuilderSetBufferViews:  (*BindGroupBuilder).setBufferViews,
		BindGroupBuilderSetSamplers:     (*BindGroupBuilder).setSamplers,
		BindGroupBuilderSetTextureViews: (*BindGroupBuilder).setTextureViews,
		BindGroupBuilderGetResult:       (*BindGroupBuilder).getResult,

		RenderPassDescriptorBuilderSetColorAttachment:           (*RenderPassDescriptorBuilder).setColorAttachment,
		RenderPassDescriptorBuilderSetColorAttachmentClearColor: (*RenderPassDescriptorBuilder).setColorAttachmentClearColor,
		RenderPassDescriptorBuilderSetDepthStencilAttachment:    (*RenderPassDescriptorBuilder).setDepthStencilAttachment,
		RenderPassDescriptorBuilderAddSubpass:                   (*RenderPassDescriptorBuilder).addSubpass,
		RenderPassDescriptorBuilderGetResult:                    (*RenderPassDescriptorBuilder).getResult,

		InputStateBuilderSetAttribute: (*InputStateBuilder).setAttribute,
		InputStateBuilderSetInput:     (*InputStateBuilder).setInput,
		InputStateBuilderGetResult:    (*InputStateBuilder).getResult,

		BlendStateBuilderSetBlendEnabled:   (*BlendStateBuilder).setBlendEnabled,
		BlendStateBuilderSetColorBlend:     (*BlendStateBuilder).setColorBlend,
		BlendStateBuilderSetAlphaBlend:     (*BlendStateBuilder).setAlphaBlend,
		BlendStateBuilderSetColorWriteMask: (*BlendStateBuilder).setColorWriteMask,
		BlendStateBuilderGetResult:         (*BlendStateBuilder).getResult,

		DepthStencilStateBuilderSetDepthCompareFunction: (*DepthStencilStateBuilder).setDepthCompareFunction,
		DepthStencilStateBuilderSetDepthWriteEnabled:    (*DepthStencilStateBuilder).setDepthWriteEnabled,
		DepthStencilStateBuilderSetStencilFunction:      (*DepthStencilStateBuilder).setStencilFunction,
		DepthStencilStateBuilderSetStencilMask:          (*DepthStencilStateBuilder).setStencilMask,
		DepthStencilStateBuilderGetResult:               (*DepthStencilStateBuilder).getResult,

		RenderPipelineBuilderSetLayout: func(b *RenderPipelineBuilder, layout *PipelineLayout) {
			b.setLayout(layout)
		},
		RenderPipelineBuilderSetStage: func(b *RenderPipelineBuilder, stage gputypes.ShaderStage, module *ShaderModule, entryPoint string) {
			b.setStage(stage, module, entryPoint)
		},
		RenderPipelineBuilderSetInputState:                   (*RenderPipelineBuilder).setInputState,
		RenderPipelineBuilderSetIndexFormat:                  (*RenderPipelineBuilder).setIndexFormat,
		RenderPipelineBuilderSetPrimitiveTopology:            (*RenderPipelineBuilder).setPrimitiveTopology,
		RenderPipelineBuilderSetColorAttachmentFormat:        (*RenderPipelineBuilder).setColorAttachmentFormat,
		RenderPipelineBuilderSetDepthStencilAttachmentFormat: (*RenderPipelineBuilder).setDepthStencilAttachmentFormat,
		RenderPipelineBuilderSetSampleCount:                  (*RenderPipelineBuilder).setSampleCount,
		RenderPipelineBuilderSetSubpass:                      (*RenderPipelineBuilder).setSubpass,
		RenderPipelineBuilderSetColorAttachmentBlendState:    (*RenderPipelineBuilder).setColorAttachmentBlendState,
		RenderPipelineBuilderSetDepthStencilState:            (*RenderPipelineBuilder).setDepthStencilState,
		RenderPipelineBuilderGetResult:                       (*RenderPipelineBuilder).getResult,

		ComputePipelineBuilderSetLayout: func(b *ComputePipelineBuilder, layout *PipelineLayout) {
			b.setLayout(layout)
		},
		ComputePipelineBuilderSetStage: func(b *ComputePipelineBuilder, stage gputypes.ShaderStage, module *ShaderModule, entryPoint string) {
			b.setStage(stage, module, entryPoint)
		},
		ComputePipelineBuilderGetResult: (*ComputePipelineBuilder).getResult,

		CommandBufferBuilderBeginComputePass:       (*CommandBufferBuilder).beginComputePass,
		CommandBufferBuilderEndComputePass:         (*CommandBufferBuilder).endComputePass,
		CommandBufferBuilderBeginRenderPass:        (*CommandBufferBuilder).beginRenderPass,
		CommandBufferBuilderBeginRenderSubpass:     (*CommandBufferBuilder).beginRenderSubpass,
		CommandBufferBuilderEndRenderSubpass:       (*CommandBufferBuilder).endRenderSubpass,
		CommandBufferBuilderEndRenderPass:          (*CommandBufferBuilder).endRenderPass,
		CommandBufferBuilderSetComputePipeline:     (*CommandBufferBuilder).setComputePipeline,
		CommandBufferBuilderSetRenderPipeline:      (*CommandBufferBuilder).setRenderPipeline,
		CommandBufferBuilderSetBindGroup:           (*CommandBufferBuilder).setBindGroup,
		CommandBufferBuilderSetVertexBuffers:       (*CommandBufferBuilder).setVertexBuffers,
		CommandBufferBuilderSetIndexBuffer:         (*CommandBufferBuilder).setIndexBuffer,
		CommandBufferBuilderSetBlendColor:          (*CommandBufferBuilder).setBlendColor,
		CommandBufferBuilderSetStencilReference:    (*CommandBufferBuilder).setStencilReference,
		CommandBufferBuilderSetPushConstants:       (*CommandBufferBuilder).setPushConstants,
		CommandBufferBuilderDrawArrays:             (*CommandBufferBuilder).drawArrays,
		CommandBufferBuilderDrawElements:           (*CommandBufferBuilder).drawElements,
		CommandBufferBuilderDispatch:               (*CommandBufferBuilder).dispatch,
		CommandBufferBuilderTransitionBufferUsage:  (*CommandBufferBuilder).transitionBufferUsage,
		CommandBufferBuilderTransitionTextureUsage: (*CommandBufferBuilder).transitionTextureUsage,
		CommandBufferBuilderCopyBufferToBuffer:     (*CommandBufferBuilder).copyBufferToBuffer,
		CommandBufferBuilderCopyBufferToTexture:    (*CommandBufferBuilder).copyBufferToTexture,
		CommandBufferBuilderCopyTextureToBuffer:    (*CommandBufferBuilder).copyTextureToBuffer,
		CommandBufferBuilderGetResult: func(b *CommandBufferBuilder) *CommandBuffer {
			return b.getResult(false)
		},

		SwapChainBuilderSetImplementation: (*SwapChainBuilder).setImplementation,
		SwapChainBuilderGetResult:         (*SwapChainBuilder).getResult,
		SwapChainConfigure:                (*SwapChain).configure,
		SwapChainGetNextTexture:           (*SwapChain).getNextTexture,
		SwapChainPresent:                  (*SwapChain).present,
	}
}

// reject reports a failed argument check on a builder and poisons it.
func (b *builder) reject(method string) {
	if b.usable() {
		b.fail(badValue(method))
	}
}

func inRange[T ~uint8 | ~uint32](v, lo, hi T) bool {
	return v >= lo && v <= hi
}

func hasNil[T any](xs []*T) bool {
	for _, x := range xs {
		if x == nil {
			return true
		}
	}
	return false
}

func validFormat(f gputypes.TextureFormat) bool {
	return inRange(f, gputypes.TextureFormatR8Unorm, gputypes.TextureFormatASTC12x12UnormSrgb)
}

func validStage(s gputypes.ShaderStage) bool {
	return s == gputypes.ShaderStageVertex || s == gputypes.ShaderStageFragment || s == gputypes.ShaderStageCompute
}

func validBlend(op gputypes.BlendOperation, src, dst gputypes.BlendFactor) bool {
	return inRange(op, gputypes.BlendOperationAdd, gputypes.BlendOperationMax) &&
		inRange(src, gputypes.BlendFactorZero, gputypes.BlendFactorOneMinusConstant) &&
		inRange(dst, gputypes.BlendFactorZero, gputypes.BlendFactorOneMinusConstant)
}

func validStencilOp(op gputypes.StencilOperation) bool {
	return inRange(op, gputypes.StencilOperationKeep, gputypes.StencilOperationDecrementWrap)
}

func validCompare(fn gputypes.CompareFunction) bool {
	return inRange(fn, gputypes.CompareFunctionNever, gputypes.CompareFunctionAlways)
}

func validLoadOp(op gputypes.LoadOp) bool {
	return op == gputypes.LoadOpLoad || op == gputypes.LoadOpClear
}

// ValidatingProcs returns the default table: every argument is range
// checked, objects must be non-nil, command buffers are validated by
// GetResult and submissions against the current resource state. A failed
// check reports "Bad value in <Method>" and the call does nothing; on a
// builder it also makes GetResult fail.
func ValidatingProcs() *Procs {
	p := NonValidatingProcs()
	n := *p

	p.DeviceCreateBindGroupLayout = func(d *Device, desc *BindGroupLayoutDescriptor) *BindGroupLayout {
		if desc == nil {
			d.handleError(badValue("DeviceCreateBindGroupLayout"))
			return nil
		}
		return n.DeviceCreateBindGroupLayout(d, desc)
	}
	p.DeviceCreatePipelineLayout = func(d *Device, desc *PipelineLayoutDescriptor) *PipelineLayout {
		if desc == nil {
			d.handleError(badValue("DeviceCreatePipelineLayout"))
			return nil
		}
		return n.DeviceCreatePipelineLayout(d, desc)
	}
	p.DeviceCreateSampler = func(d *Device, desc *SamplerDescriptor) *Sampler {
		if desc != nil {
			ok := validCompare(desc.Compare) || desc.Compare == gputypes.CompareFunctionUndefined
			for _, f := range []gputypes.FilterMode{desc.MagFilter, desc.MinFilter, desc.MipmapFilter} {
				ok = ok && f <= gputypes.FilterModeLinear
			}
			for _, a := range []gputypes.AddressMode{desc.AddressModeU, desc.AddressModeV, desc.AddressModeW} {
				ok = ok && a <= gputypes.AddressModeMirrorRepeat
			}
			if !ok {
				d.handleError(badValue("DeviceCreateSampler"))
				return nil
			}
		}
		return n.DeviceCreateSampler(d, desc)
	}

	p.QueueSubmit = func(q *Queue, commandBuffers []*CommandBuffer) {
		if err := q.validateSubmit(commandBuffers); err != nil {
			q.device.handleError(err)
			return
		}
		n.QueueSubmit(q, commandBuffers)
	}

	p.BufferMapReadAsync = func(b *Buffer, start, size uint64, callback BufferMapCallback) {
		if callback == nil {
			b.device.handleError(badValue("BufferMapReadAsync"))
			return
		}
		n.BufferMapReadAsync(b, start, size, callback)
	}
	p.BufferMapWriteAsync = func(b *Buffer, start, size uint64, callback BufferMapCallback) {
		if callback == nil {
			b.device.handleError(badValue("BufferMapWriteAsync"))
			return
		}
		n.BufferMapWriteAsync(b, start, size, callback)
	}
	p.BufferTransitionUsage = func(b *Buffer, usage gputypes.BufferUsage) {
		if usage.ContainsUnknownBits() {
			b.device.handleError(badValue("BufferTransitionUsage"))
			return
		}
		n.BufferTransitionUsage(b, usage)
	}
	p.BufferBuilderSetAllowedUsage = func(b *BufferBuilder, usage gputypes.BufferUsage) {
		if usage.ContainsUnknownBits() {
			b.reject("BufferBuilderSetAllowedUsage")
			return
		}
		n.BufferBuilderSetAllowedUsage(b, usage)
	}
	p.BufferBuilderSetInitialUsage = func(b *BufferBuilder, usage gputypes.BufferUsage) {
		if usage.ContainsUnknownBits() {
			b.reject("BufferBuilderSetInitialUsage")
			return
		}
		n.BufferBuilderSetInitialUsage(b, usage)
	}

	p.TextureTransitionUsage = func(t *Texture, usage gputypes.TextureUsage) {
		if usage.ContainsUnknownBits() {
			t.device.handleError(badValue("TextureTransitionUsage"))
			return
		}
		n.TextureTransitionUsage(t, usage)
	}
	p.TextureWriteImage = func(t *Texture, img image.Image, generateMips bool) {
		if img == nil {
			t.device.handleError(badValue("TextureWriteImage"))
			return
		}
		n.TextureWriteImage(t, img, generateMips)
	}
	p.TextureBuilderSetDimension = func(b *TextureBuilder, dim gputypes.TextureDimension) {
		if !inRange(dim, gputypes.TextureDimension1D, gputypes.TextureDimension3D) {
			b.reject("TextureBuilderSetDimension")
			return
		}
		n.TextureBuilderSetDimension(b, dim)
	}
	p.TextureBuilderSetFormat = func(b *TextureBuilder, format gputypes.TextureFormat) {
		if !validFormat(format) {
			b.reject("TextureBuilderSetFormat")
			return
		}
		n.TextureBuilderSetFormat(b, format)
	}
	p.TextureBuilderSetAllowedUsage = func(b *TextureBuilder, usage gputypes.TextureUsage) {
		if usage.ContainsUnknownBits() {
			b.reject("TextureBuilderSetAllowedUsage")
			return
		}
		n.TextureBuilderSetAllowedUsage(b, usage)
	}
	p.TextureBuilderSetInitialUsage = func(b *TextureBuilder, usage gputypes.TextureUsage) {
		if usage.ContainsUnknownBits() {
			b.reject("TextureBuilderSetInitialUsage")
			return
		}
		n.TextureBuilderSetInitialUsage(b, usage)
	}
	p.TextureViewBuilderSetDimension = func(b *TextureViewBuilder, dim gputypes.TextureViewDimension) {
		if dim > gputypes.TextureViewDimension3D {
			b.reject("TextureViewBuilderSetDimension")
			return
		}
		n.TextureViewBuilderSetDimension(b, dim)
	}

	p.BindGroupBuilderSetLayout = func(b *BindGroupBuilder, layout *BindGroupLayout) {
		if layout == nil {
			b.reject("BindGroupBuilderSetLayout")
			return
		}
		n.BindGroupBuilderSetLayout(b, layout)
	}
	p.BindGroupBuilderSetBufferViews = func(b *BindGroupBuilder, start uint32, views []*BufferView) {
		if hasNil(views) {
			b.reject("BindGroupBuilderSetBufferViews")
			return
		}
		n.BindGroupBuilderSetBufferViews(b, start, views)
	}
	p.BindGroupBuilderSetSamplers = func(b *BindGroupBuilder, start uint32, samplers []*Sampler) {
		if hasNil(samplers) {
			b.reject("BindGroupBuilderSetSamplers")
			return
		}
		n.BindGroupBuilderSetSamplers(b, start, samplers)
	}
	p.BindGroupBuilderSetTextureViews = func(b *BindGroupBuilder, start uint32, views []*TextureView) {
		if hasNil(views) {
			b.reject("BindGroupBuilderSetTextureViews")
			return
		}
		n.BindGroupBuilderSetTextureViews(b, start, views)
	}

	p.RenderPassDescriptorBuilderSetColorAttachment = func(b *RenderPassDescriptorBuilder, index uint32, view *TextureView, loadOp gputypes.LoadOp) {
		if view == nil || !validLoadOp(loadOp) {
			b.reject("RenderPassDescriptorBuilderSetColorAttachment")
			return
		}
		n.RenderPassDescriptorBuilderSetColorAttachment(b, index, view, loadOp)
	}
	p.RenderPassDescriptorBuilderSetDepthStencilAttachment = func(b *RenderPassDescriptorBuilder, att DepthStencilAttachment) {
		if att.View == nil || !validLoadOp(att.DepthLoadOp) || !validLoadOp(att.StencilLoadOp) {
			b.reject("RenderPassDescriptorBuilderSetDepthStencilAttachment")
			return
		}
		n.RenderPassDescriptorBuilderSetDepthStencilAttachment(b, att)
	}

	p.InputStateBuilderSetAttribute = func(b *InputStateBuilder, location, bindingSlot uint32, format gputypes.VertexFormat, offset uint64) {
		if !inRange(format, gputypes.VertexFormatUint8x2, gputypes.VertexFormatUnorm1010102) {
			b.reject("InputStateBuilderSetAttribute")
			return
		}
		n.InputStateBuilderSetAttribute(b, location, bindingSlot, format, offset)
	}
	p.InputStateBuilderSetInput = func(b *InputStateBuilder, bindingSlot uint32, stride uint64, stepMode gputypes.VertexStepMode) {
		if !inRange(stepMode, gputypes.VertexStepModeVertex, gputypes.VertexStepModeInstance) {
			b.reject("InputStateBuilderSetInput")
			return
		}
		n.InputStateBuilderSetInput(b, bindingSlot, stride, stepMode)
	}

	p.BlendStateBuilderSetColorBlend = func(b *BlendStateBuilder, op gputypes.BlendOperation, src, dst gputypes.BlendFactor) {
		if !validBlend(op, src, dst) {
			b.reject("BlendStateBuilderSetColorBlend")
			return
		}
		n.BlendStateBuilderSetColorBlend(b, op, src, dst)
	}
	p.BlendStateBuilderSetAlphaBlend = func(b *BlendStateBuilder, op gputypes.BlendOperation, src, dst gputypes.BlendFactor) {
		if !validBlend(op, src, dst) {
			b.reject("BlendStateBuilderSetAlphaBlend")
			return
		}
		n.BlendStateBuilderSetAlphaBlend(b, op, src, dst)
	}
	p.BlendStateBuilderSetColorWriteMask = func(b *BlendStateBuilder, mask gputypes.ColorWriteMask) {
		if mask&^gputypes.ColorWriteMaskAll != 0 {
			b.reject("BlendStateBuilderSetColorWriteMask")
			return
		}
		n.BlendStateBuilderSetColorWriteMask(b, mask)
	}

	p.DepthStencilStateBuilderSetDepthCompareFunction = func(b *DepthStencilStateBuilder, fn gputypes.CompareFunction) {
		if !validCompare(fn) {
			b.reject("DepthStencilStateBuilderSetDepthCompareFunction")
			return
		}
		n.DepthStencilStateBuilderSetDepthCompareFunction(b, fn)
	}
	p.DepthStencilStateBuilderSetStencilFunction = func(b *DepthStencilStateBuilder, face StencilFace, fn StencilFunction) {
		if !inRange(face, StencilFaceBack, StencilFaceBoth) || !validCompare(fn.Compare) ||
			!validStencilOp(fn.StencilFail) || !validStencilOp(fn.DepthFail) || !validStencilOp(fn.Pass) {
			b.reject("DepthStencilStateBuilderSetStencilFunction")
			return
		}
		n.DepthStencilStateBuilderSetStencilFunction(b, face, fn)
	}

	p.RenderPipelineBuilderSetLayout = func(b *RenderPipelineBuilder, layout *PipelineLayout) {
		if layout == nil {
			b.reject("RenderPipelineBuilderSetLayout")
			return
		}
		n.RenderPipelineBuilderSetLayout(b, layout)
	}
	p.RenderPipelineBuilderSetStage = func(b *RenderPipelineBuilder, stage gputypes.ShaderStage, module *ShaderModule, entryPoint string) {
		if module == nil || !validStage(stage) {
			b.reject("RenderPipelineBuilderSetStage")
			return
		}
		n.RenderPipelineBuilderSetStage(b, stage, module, entryPoint)
	}
	p.RenderPipelineBuilderSetInputState = func(b *RenderPipelineBuilder, state *InputState) {
		if state == nil {
			b.reject("RenderPipelineBuilderSetInputState")
			return
		}
		n.RenderPipelineBuilderSetInputState(b, state)
	}
	p.RenderPipelineBuilderSetIndexFormat = func(b *RenderPipelineBuilder, format gputypes.IndexFormat) {
		if format > gputypes.IndexFormatUint32 {
			b.reject("RenderPipelineBuilderSetIndexFormat")
			return
		}
		n.RenderPipelineBuilderSetIndexFormat(b, format)
	}
	p.RenderPipelineBuilderSetPrimitiveTopology = func(b *RenderPipelineBuilder, topology gputypes.PrimitiveTopology) {
		if topology > gputypes.PrimitiveTopologyTriangleStrip {
			b.reject("RenderPipelineBuilderSetPrimitiveTopology")
			return
		}
		n.RenderPipelineBuilderSetPrimitiveTopology(b, topology)
	}
	p.RenderPipelineBuilderSetColorAttachmentFormat = func(b *RenderPipelineBuilder, index uint32, format gputypes.TextureFormat) {
		if !validFormat(format) {
			b.reject("RenderPipelineBuilderSetColorAttachmentFormat")
			return
		}
		n.RenderPipelineBuilderSetColorAttachmentFormat(b, index, format)
	}
	p.RenderPipelineBuilderSetDepthStencilAttachmentFormat = func(b *RenderPipelineBuilder, format gputypes.TextureFormat) {
		if !validFormat(format) {
			b.reject("RenderPipelineBuilderSetDepthStencilAttachmentFormat")
			return
		}
		n.RenderPipelineBuilderSetDepthStencilAttachmentFormat(b, format)
	}
	p.RenderPipelineBuilderSetSubpass = func(b *RenderPipelineBuilder, renderPass *RenderPassDescriptor, index uint32) {
		if renderPass == nil {
			b.reject("RenderPipelineBuilderSetSubpass")
			return
		}
		n.RenderPipelineBuilderSetSubpass(b, renderPass, index)
	}
	p.RenderPipelineBuilderSetColorAttachmentBlendState = func(b *RenderPipelineBuilder, index uint32, state *BlendState) {
		if state == nil {
			b.reject("RenderPipelineBuilderSetColorAttachmentBlendState")
			return
		}
		n.RenderPipelineBuilderSetColorAttachmentBlendState(b, index, state)
	}
	p.RenderPipelineBuilderSetDepthStencilState = func(b *RenderPipelineBuilder, state *DepthStencilState) {
		if state == nil {
			b.reject("RenderPipelineBuilderSetDepthStencilState")
			return
		}
		n.RenderPipelineBuilderSetDepthStencilState(b, state)
	}

	p.ComputePipelineBuilderSetLayout = func(b *ComputePipelineBuilder, layout *PipelineLayout) {
		if layout == nil {
			b.reject("ComputePipelineBuilderSetLayout")
			return
		}
		n.ComputePipelineBuilderSetLayout(b, layout)
	}
	p.ComputePipelineBuilderSetStage = func(b *ComputePipelineBuilder, stage gputypes.ShaderStage, module *ShaderModule, entryPoint string) {
		if module == nil || !validStage(stage) {
			b.reject("ComputePipelineBuilderSetStage")
			return
		}
		n.ComputePipelineBuilderSetStage(b, stage, module, entryPoint)
	}

	validateCommandBufferProcs(p, &n)

	p.SwapChainBuilderSetImplementation = func(b *SwapChainBuilder, impl SwapChainImplementation) {
		if impl == nil {
			b.reject("SwapChainBuilderSetImplementation")
			return
		}
		n.SwapChainBuilderSetImplementation(b, impl)
	}
	p.SwapChainConfigure = func(sc *SwapChain, format gputypes.TextureFormat, allowedUsage gputypes.TextureUsage, width, height uint32) {
		if !validFormat(format) || allowedUsage.ContainsUnknownBits() {
			sc.device.handleError(badValue("SwapChainConfigure"))
			return
		}
		n.SwapChainConfigure(sc, format, allowedUsage, width, height)
	}
	p.SwapChainPresent = func(sc *SwapChain, texture *Texture) {
		if texture == nil {
			sc.device.handleError(badValue("SwapChainPresent"))
			return
		}
		n.SwapChainPresent(sc, texture)
	}
	return p
}

// validateCommandBufferProcs installs the checking CommandBufferBuilder
// entries of p, forwarding to n.
func validateCommandBufferProcs(p, n *Procs) {
	p.CommandBufferBuilderBeginRenderPass = func(b *CommandBufferBuilder, renderPass *RenderPassDescriptor) {
		if renderPass == nil {
			b.reject("CommandBufferBuilderBeginRenderPass")
			return
		}
		n.CommandBufferBuilderBeginRenderPass(b, renderPass)
	}
	p.CommandBufferBuilderSetComputePipeline = func(b *CommandBufferBuilder, pipeline *ComputePipeline) {
		if pipeline == nil {
			b.reject("CommandBufferBuilderSetComputePipeline")
			return
		}
		n.CommandBufferBuilderSetComputePipeline(b, pipeline)
	}
	p.CommandBufferBuilderSetRenderPipeline = func(b *CommandBufferBuilder, pipeline *RenderPipeline) {
		if pipeline == nil {
			b.reject("CommandBufferBuilderSetRenderPipeline")
			return
		}
		n.CommandBufferBuilderSetRenderPipeline(b, pipeline)
	}
	p.CommandBufferBuilderSetBindGroup = func(b *CommandBufferBuilder, index uint32, group *BindGroup) {
		if group == nil {
			b.reject("CommandBufferBuilderSetBindGroup")
			return
		}
		n.CommandBufferBuilderSetBindGroup(b, index, group)
	}
	p.CommandBufferBuilderSetVertexBuffers = func(b *CommandBufferBuilder, startSlot uint32, buffers []*Buffer, offsets []uint64) {
		if hasNil(buffers) {
			b.reject("CommandBufferBuilderSetVertexBuffers")
			return
		}
		n.CommandBufferBuilderSetVertexBuffers(b, startSlot, buffers, offsets)
	}
	p.CommandBufferBuilderSetIndexBuffer = func(b *CommandBufferBuilder, buffer *Buffer, offset uint64) {
		if buffer == nil {
			b.reject("CommandBufferBuilderSetIndexBuffer")
			return
		}
		n.CommandBufferBuilderSetIndexBuffer(b, buffer, offset)
	}
	p.CommandBufferBuilderSetPushConstants = func(b *CommandBufferBuilder, stages gputypes.ShaderStages, offset uint32, values []uint32) {
		if stages == 0 || stages&^gputypes.ShaderStagesAll != 0 {
			b.reject("CommandBufferBuilderSetPushConstants")
			return
		}
		n.CommandBufferBuilderSetPushConstants(b, stages, offset, values)
	}
	p.CommandBufferBuilderTransitionBufferUsage = func(b *CommandBufferBuilder, buffer *Buffer, usage gputypes.BufferUsage) {
		if buffer == nil || usage.ContainsUnknownBits() {
			b.reject("CommandBufferBuilderTransitionBufferUsage")
			return
		}
		n.CommandBufferBuilderTransitionBufferUsage(b, buffer, usage)
	}
	p.CommandBufferBuilderTransitionTextureUsage = func(b *CommandBufferBuilder, texture *Texture, usage gputypes.TextureUsage) {
		if texture == nil || usage.ContainsUnknownBits() {
			b.reject("CommandBufferBuilderTransitionTextureUsage")
			return
		}
		n.CommandBufferBuilderTransitionTextureUsage(b, texture, usage)
	}
	p.CommandBufferBuilderCopyBufferToBuffer = func(b *CommandBufferBuilder, src *Buffer, srcOffset uint64, dst *Buffer, dstOffset, size uint64) {
		if src == nil || dst == nil {
			b.reject("CommandBufferBuilderCopyBufferToBuffer")
			return
		}
		n.CommandBufferBuilderCopyBufferToBuffer(b, src, srcOffset, dst, dstOffset, size)
	}
	p.CommandBufferBuilderCopyBufferToTexture = func(b *CommandBufferBuilder, buffer *Buffer, offset uint64, rowPitch uint32, region TextureRegion) {
		if buffer == nil || region.Texture == nil {
			b.reject("CommandBufferBuilderCopyBufferToTexture")
			return
		}
		n.CommandBufferBuilderCopyBufferToTexture(b, buffer, offset, rowPitch, region)
	}
	p.CommandBufferBuilderCopyTextureToBuffer = func(b *CommandBufferBuilder, region TextureRegion, buffer *Buffer, offset uint64, rowPitch uint32) {
		if buffer == nil || region.Texture == nil {
			b.reject("CommandBufferBuilderCopyTextureToBuffer")
			return
		}
		n.CommandBufferBuilderCopyTextureToBuffer(b, region, buffer, offset, rowPitch)
	}
	p.CommandBufferBuilderGetResult = func(b *CommandBufferBuilder) *CommandBuffer {
		return b.getResult(true)
	}
}
