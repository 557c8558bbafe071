package nxt

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/nxt/internal/commands"
)

// CommandBuffer is a validated, immutable command log. It keeps every
// referenced resource alive, and the device keeps it alive until the
// submissions using it complete.
type CommandBuffer struct {
	object
	enc    *commands.Encoding
	usages *usageMap
}

// Iterator returns an iterator over the recorded commands.
func (cb *CommandBuffer) Iterator() *CommandIterator {
	return &CommandIterator{dec: commands.NewDecoder(cb.enc), enc: cb.enc}
}

func (cb *CommandBuffer) destroyImpl() {
	commands.DefaultPool.Put(cb.enc)
	cb.enc = nil
}

// CommandBufferBuilder records commands. Recording only appends to the log;
// the log is validated as a whole by GetResult.
type CommandBufferBuilder struct {
	builder
	enc *commands.Encoding
}

// CreateCommandBufferBuilder starts a command buffer.
func (d *Device) CreateCommandBufferBuilder() *CommandBufferBuilder {
	b := &CommandBufferBuilder{enc: commands.DefaultPool.Get()}
	b.init(d)
	return b
}

// SetResultCallback sets the callback invoked by GetResult.
func (b *CommandBufferBuilder) SetResultCallback(fn BuilderCallback) *CommandBufferBuilder {
	b.callback = fn
	return b
}

// BeginComputePass opens a compute pass.
func (b *CommandBufferBuilder) BeginComputePass() *CommandBufferBuilder {
	b.device.procs.CommandBufferBuilderBeginComputePass(b)
	return b
}

// EndComputePass closes the current compute pass.
func (b *CommandBufferBuilder) EndComputePass() *CommandBufferBuilder {
	b.device.procs.CommandBufferBuilderEndComputePass(b)
	return b
}

// BeginRenderPass opens a render pass on renderPass's attachments.
func (b *CommandBufferBuilder) BeginRenderPass(renderPass *RenderPassDescriptor) *CommandBufferBuilder {
	b.device.procs.CommandBufferBuilderBeginRenderPass(b, renderPass)
	return b
}

// BeginRenderSubpass opens the next subpass.
func (b *CommandBufferBuilder) BeginRenderSubpass() *CommandBufferBuilder {
	b.device.procs.CommandBufferBuilderBeginRenderSubpass(b)
	return b
}

// EndRenderSubpass closes the current subpass.
func (b *CommandBufferBuilder) EndRenderSubpass() *CommandBufferBuilder {
	b.device.procs.CommandBufferBuilderEndRenderSubpass(b)
	return b
}

// EndRenderPass closes the render pass once every subpass has run.
func (b *CommandBufferBuilder) EndRenderPass() *CommandBufferBuilder {
	b.device.procs.CommandBufferBuilderEndRenderPass(b)
	return b
}

// SetComputePipeline binds a compute pipeline.
func (b *CommandBufferBuilder) SetComputePipeline(pipeline *ComputePipeline) *CommandBufferBuilder {
	b.device.procs.CommandBufferBuilderSetComputePipeline(b, pipeline)
	return b
}

// SetRenderPipeline binds a render pipeline.
func (b *CommandBufferBuilder) SetRenderPipeline(pipeline *RenderPipeline) *CommandBufferBuilder {
	b.device.procs.CommandBufferBuilderSetRenderPipeline(b, pipeline)
	return b
}

// SetBindGroup binds group at index.
func (b *CommandBufferBuilder) SetBindGroup(index uint32, group *BindGroup) *CommandBufferBuilder {
	b.device.procs.CommandBufferBuilderSetBindGroup(b, index, group)
	return b
}

// SetVertexBuffers binds buffers to consecutive slots from startSlot.
func (b *CommandBufferBuilder) SetVertexBuffers(startSlot uint32, buffers []*Buffer, offsets []uint64) *CommandBufferBuilder {
	b.device.procs.CommandBufferBuilderSetVertexBuffers(b, startSlot, buffers, offsets)
	return b
}

// SetIndexBuffer binds the index buffer. Its format comes from the render
// pipeline bound at draw time.
func (b *CommandBufferBuilder) SetIndexBuffer(buffer *Buffer, offset uint64) *CommandBufferBuilder {
	b.device.procs.CommandBufferBuilderSetIndexBuffer(b, buffer, offset)
	return b
}

// SetBlendColor sets the blend constant.
func (b *CommandBufferBuilder) SetBlendColor(r, g, bl, a float32) *CommandBufferBuilder {
	b.device.procs.CommandBufferBuilderSetBlendColor(b, r, g, bl, a)
	return b
}

// SetStencilReference sets the stencil reference value.
func (b *CommandBufferBuilder) SetStencilReference(reference uint32) *CommandBufferBuilder {
	b.device.procs.CommandBufferBuilderSetStencilReference(b, reference)
	return b
}

// SetPushConstants writes values to push constant slots starting at offset.
func (b *CommandBufferBuilder) SetPushConstants(stages gputypes.ShaderStages, offset uint32, values []uint32) *CommandBufferBuilder {
	b.device.procs.CommandBufferBuilderSetPushConstants(b, stages, offset, values)
	return b
}

// DrawArrays draws non-indexed primitives.
func (b *CommandBufferBuilder) DrawArrays(vertexCount, instanceCount, firstVertex, firstInstance uint32) *CommandBufferBuilder {
	b.device.procs.CommandBufferBuilderDrawArrays(b, vertexCount, instanceCount, firstVertex, firstInstance)
	return b
}

// DrawElements draws indexed primitives.
func (b *CommandBufferBuilder) DrawElements(indexCount, instanceCount, firstIndex, firstInstance uint32) *CommandBufferBuilder {
	b.device.procs.CommandBufferBuilderDrawElements(b, indexCount, instanceCount, firstIndex, firstInstance)
	return b
}

// Dispatch dispatches compute workgroups.
func (b *CommandBufferBuilder) Dispatch(x, y, z uint32) *CommandBufferBuilder {
	b.device.procs.CommandBufferBuilderDispatch(b, x, y, z)
	return b
}

// TransitionBufferUsage moves buffer to usage at this point of the log.
func (b *CommandBufferBuilder) TransitionBufferUsage(buffer *Buffer, usage gputypes.BufferUsage) *CommandBufferBuilder {
	b.device.procs.CommandBufferBuilderTransitionBufferUsage(b, buffer, usage)
	return b
}

// TransitionTextureUsage moves texture to usage at this point of the log.
func (b *CommandBufferBuilder) TransitionTextureUsage(texture *Texture, usage gputypes.TextureUsage) *CommandBufferBuilder {
	b.device.procs.CommandBufferBuilderTransitionTextureUsage(b, texture, usage)
	return b
}

// CopyBufferToBuffer copies size bytes between buffers.
func (b *CommandBufferBuilder) CopyBufferToBuffer(src *Buffer, srcOffset uint64, dst *Buffer, dstOffset, size uint64) *CommandBufferBuilder {
	b.device.procs.CommandBufferBuilderCopyBufferToBuffer(b, src, srcOffset, dst, dstOffset, size)
	return b
}

// TextureRegion is a box inside one mip level of a texture.
type TextureRegion struct {
	Texture              *Texture
	X, Y, Z              uint32
	Width, Height, Depth uint32
	Level                uint32
}

// CopyBufferToTexture copies rows of rowPitch bytes from buffer into region.
func (b *CommandBufferBuilder) CopyBufferToTexture(buffer *Buffer, offset uint64, rowPitch uint32, region TextureRegion) *CommandBufferBuilder {
	b.device.procs.CommandBufferBuilderCopyBufferToTexture(b, buffer, offset, rowPitch, region)
	return b
}

// CopyTextureToBuffer copies region into buffer as rows of rowPitch bytes.
func (b *CommandBufferBuilder) CopyTextureToBuffer(region TextureRegion, buffer *Buffer, offset uint64, rowPitch uint32) *CommandBufferBuilder {
	b.device.procs.CommandBufferBuilderCopyTextureToBuffer(b, region, buffer, offset, rowPitch)
	return b
}

// GetResult validates the log and returns the command buffer, or returns
// nil and reports the first invalid command.
func (b *CommandBufferBuilder) GetResult() *CommandBuffer {
	return b.device.procs.CommandBufferBuilderGetResult(b)
}

func (b *CommandBufferBuilder) beginComputePass() {
	if b.usable() {
		b.enc.EncodeBeginComputePass()
	}
}

func (b *CommandBufferBuilder) endComputePass() {
	if b.usable() {
		b.enc.EncodeEndComputePass()
	}
}

func (b *CommandBufferBuilder) beginRenderPass(renderPass *RenderPassDescriptor) {
	if b.usable() {
		b.enc.EncodeBeginRenderPass(renderPass)
	}
}

func (b *CommandBufferBuilder) beginRenderSubpass() {
	if b.usable() {
		b.enc.EncodeBeginRenderSubpass()
	}
}

func (b *CommandBufferBuilder) endRenderSubpass() {
	if b.usable() {
		b.enc.EncodeEndRenderSubpass()
	}
}

func (b *CommandBufferBuilder) endRenderPass() {
	if b.usable() {
		b.enc.EncodeEndRenderPass()
	}
}

func (b *CommandBufferBuilder) setComputePipeline(pipeline *ComputePipeline) {
	if b.usable() {
		b.enc.EncodeSetComputePipeline(pipeline)
	}
}

func (b *CommandBufferBuilder) setRenderPipeline(pipeline *RenderPipeline) {
	if b.usable() {
		b.enc.EncodeSetRenderPipeline(pipeline)
	}
}

func (b *CommandBufferBuilder) setBindGroup(index uint32, group *BindGroup) {
	if !b.usable() {
		return
	}
	if index >= MaxBindGroups {
		b.fail(validationError("BindGroup index greater than the maximum number of bind groups"))
		return
	}
	b.enc.EncodeSetBindGroup(index, group)
}

func (b *CommandBufferBuilder) setVertexBuffers(startSlot uint32, buffers []*Buffer, offsets []uint64) {
	if !b.usable() {
		return
	}
	switch {
	case len(buffers) != len(offsets):
		b.fail(validationError("Vertex buffers and offsets have different lengths"))
		return
	case uint64(startSlot)+uint64(len(buffers)) > MaxVertexInputs:
		b.fail(validationError("Vertex buffer slot out of bounds"))
		return
	}
	objs := make([]commands.Object, len(buffers))
	for i, buf := range buffers {
		objs[i] = buf
	}
	b.enc.EncodeSetVertexBuffers(startSlot, objs, offsets)
}

func (b *CommandBufferBuilder) setIndexBuffer(buffer *Buffer, offset uint64) {
	if b.usable() {
		b.enc.EncodeSetIndexBuffer(buffer, offset)
	}
}

func (b *CommandBufferBuilder) setBlendColor(r, g, bl, a float32) {
	if b.usable() {
		b.enc.EncodeSetBlendColor(r, g, bl, a)
	}
}

func (b *CommandBufferBuilder) setStencilReference(reference uint32) {
	if b.usable() {
		b.enc.EncodeSetStencilReference(reference)
	}
}

func (b *CommandBufferBuilder) setPushConstants(stages gputypes.ShaderStages, offset uint32, values []uint32) {
	if !b.usable() {
		return
	}
	if uint64(offset)+uint64(len(values)) > MaxPushConstants {
		b.fail(validationError("Setting push constants past the limit"))
		return
	}
	b.enc.EncodeSetPushConstants(uint32(stages), offset, values)
}

func (b *CommandBufferBuilder) drawArrays(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	if b.usable() {
		b.enc.EncodeDrawArrays(commands.DrawCmd{
			Count: vertexCount, InstanceCount: instanceCount,
			First: firstVertex, FirstInstance: firstInstance,
		})
	}
}

func (b *CommandBufferBuilder) drawElements(indexCount, instanceCount, firstIndex, firstInstance uint32) {
	if b.usable() {
		b.enc.EncodeDrawElements(commands.DrawCmd{
			Count: indexCount, InstanceCount: instanceCount,
			First: firstIndex, FirstInstance: firstInstance,
		})
	}
}

func (b *CommandBufferBuilder) dispatch(x, y, z uint32) {
	if b.usable() {
		b.enc.EncodeDispatch(x, y, z)
	}
}

func (b *CommandBufferBuilder) transitionBufferUsage(buffer *Buffer, usage gputypes.BufferUsage) {
	if b.usable() {
		b.enc.EncodeTransitionBufferUsage(buffer, uint64(usage))
	}
}

func (b *CommandBufferBuilder) transitionTextureUsage(texture *Texture, usage gputypes.TextureUsage) {
	if b.usable() {
		b.enc.EncodeTransitionTextureUsage(texture, uint64(usage))
	}
}

func (b *CommandBufferBuilder) copyBufferToBuffer(src *Buffer, srcOffset uint64, dst *Buffer, dstOffset, size uint64) {
	if !b.usable() {
		return
	}
	switch {
	case srcOffset > src.size || size > src.size-srcOffset:
		b.fail(validationError("Copy out of range of the source buffer"))
	case dstOffset > dst.size || size > dst.size-dstOffset:
		b.fail(validationError("Copy out of range of the destination buffer"))
	default:
		b.enc.EncodeCopyBufferToBuffer(commands.CopyBufferToBufferCmd{
			Src:  commands.BufferLocation{Buffer: src, Offset: srcOffset},
			Dst:  commands.BufferLocation{Buffer: dst, Offset: dstOffset},
			Size: size,
		})
	}
}

// copyRegion validates a buffer-texture copy and builds its payload.
func (b *CommandBufferBuilder) copyRegion(buffer *Buffer, offset uint64, rowPitch uint32, r TextureRegion) (commands.CopyBufferTextureCmd, bool) {
	t := r.Texture
	if r.Level >= t.mipLevels {
		b.fail(validationError("Copy mip level out of range"))
		return commands.CopyBufferTextureCmd{}, false
	}
	w, h, d := t.mipExtent(r.Level)
	if t.dimension != gputypes.TextureDimension3D {
		d = t.depth
	}
	if uint64(r.X)+uint64(r.Width) > uint64(w) || uint64(r.Y)+uint64(r.Height) > uint64(h) ||
		uint64(r.Z)+uint64(r.Depth) > uint64(d) {
		b.fail(validationError("Copy would touch outside of the texture"))
		return commands.CopyBufferTextureCmd{}, false
	}
	rowBytes := uint64(r.Width) * uint64(bytesPerTexel(t.format))
	if uint64(rowPitch) < rowBytes {
		b.fail(validationError("Row pitch must not be less than the number of bytes per row"))
		return commands.CopyBufferTextureCmd{}, false
	}
	var required uint64
	if r.Height > 0 && r.Depth > 0 {
		required = uint64(rowPitch)*(uint64(r.Height)*uint64(r.Depth)-1) + rowBytes
	}
	if offset > buffer.size || required > buffer.size-offset {
		b.fail(validationError("Copy would overflow the buffer"))
		return commands.CopyBufferTextureCmd{}, false
	}
	return commands.CopyBufferTextureCmd{
		Buffer:   commands.BufferLocation{Buffer: buffer, Offset: offset},
		RowPitch: rowPitch,
		Texture: commands.TextureLocation{
			Texture: t,
			X:       r.X, Y: r.Y, Z: r.Z,
			Width: r.Width, Height: r.Height, Depth: r.Depth,
			Level: r.Level,
		},
	}, true
}

func (b *CommandBufferBuilder) copyBufferToTexture(buffer *Buffer, offset uint64, rowPitch uint32, region TextureRegion) {
	if !b.usable() {
		return
	}
	if cmd, ok := b.copyRegion(buffer, offset, rowPitch, region); ok {
		b.enc.EncodeCopyBufferToTexture(cmd)
	}
}

func (b *CommandBufferBuilder) copyTextureToBuffer(region TextureRegion, buffer *Buffer, offset uint64, rowPitch uint32) {
	if !b.usable() {
		return
	}
	if cmd, ok := b.copyRegion(buffer, offset, rowPitch, region); ok {
		b.enc.EncodeCopyTextureToBuffer(cmd)
	}
}

// getResult validates the log when validate is set. The usage map is
// computed in both cases.
func (b *CommandBufferBuilder) getResult(validate bool) *CommandBuffer {
	cb := result(&b.builder, func() (*CommandBuffer, error) {
		usages, err := checkCommands(b.enc, validate)
		if err != nil {
			return nil, err
		}
		cb := &CommandBuffer{enc: b.enc, usages: usages}
		cb.init(b.device, "CommandBuffer", cb.destroyImpl)
		return cb, nil
	})
	if cb == nil {
		commands.DefaultPool.Put(b.enc)
	}
	b.enc = nil
	return cb
}
