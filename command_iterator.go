package nxt

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/nxt/internal/commands"
)

// CommandID identifies a recorded command.
type CommandID = commands.Tag

// CommandID values.
const (
	CommandBeginComputePass       = commands.TagBeginComputePass
	CommandEndComputePass         = commands.TagEndComputePass
	CommandBeginRenderPass        = commands.TagBeginRenderPass
	CommandBeginRenderSubpass     = commands.TagBeginRenderSubpass
	CommandEndRenderSubpass       = commands.TagEndRenderSubpass
	CommandEndRenderPass          = commands.TagEndRenderPass
	CommandSetComputePipeline     = commands.TagSetComputePipeline
	CommandSetRenderPipeline      = commands.TagSetRenderPipeline
	CommandSetBindGroup           = commands.TagSetBindGroup
	CommandSetVertexBuffers       = commands.TagSetVertexBuffers
	CommandSetIndexBuffer         = commands.TagSetIndexBuffer
	CommandSetBlendColor          = commands.TagSetBlendColor
	CommandSetStencilReference    = commands.TagSetStencilReference
	CommandSetPushConstants       = commands.TagSetPushConstants
	CommandDrawArrays             = commands.TagDrawArrays
	CommandDrawElements           = commands.TagDrawElements
	CommandDispatch               = commands.TagDispatch
	CommandTransitionBufferUsage  = commands.TagTransitionBufferUsage
	CommandTransitionTextureUsage = commands.TagTransitionTextureUsage
	CommandCopyBufferToBuffer     = commands.TagCopyBufferToBuffer
	CommandCopyBufferToTexture    = commands.TagCopyBufferToTexture
	CommandCopyTextureToBuffer    = commands.TagCopyTextureToBuffer
)

// Command payloads returned by CommandIterator.NextCommand.
type (
	BeginRenderPassCmd struct {
		RenderPass *RenderPassDescriptor
	}
	SetComputePipelineCmd struct {
		Pipeline *ComputePipeline
	}
	SetRenderPipelineCmd struct {
		Pipeline *RenderPipeline
	}
	SetBindGroupCmd struct {
		Index uint32
		Group *BindGroup
	}
	SetVertexBuffersCmd struct {
		StartSlot uint32
		Buffers   []*Buffer
		Offsets   []uint64
	}
	SetIndexBufferCmd struct {
		Buffer *Buffer
		Offset uint64
	}
	SetBlendColorCmd struct {
		R, G, B, A float32
	}
	SetStencilReferenceCmd struct {
		Reference uint32
	}
	SetPushConstantsCmd struct {
		Stages gputypes.ShaderStages
		Offset uint32
		Values []uint32
	}
	// DrawCmd is the payload of both draw commands; First is the first
	// index for DrawElements.
	DrawCmd struct {
		Count, InstanceCount, First, FirstInstance uint32
	}
	DispatchCmd struct {
		X, Y, Z uint32
	}
	TransitionBufferUsageCmd struct {
		Buffer *Buffer
		Usage  gputypes.BufferUsage
	}
	TransitionTextureUsageCmd struct {
		Texture *Texture
		Usage   gputypes.TextureUsage
	}
	CopyBufferToBufferCmd struct {
		Src       *Buffer
		SrcOffset uint64
		Dst       *Buffer
		DstOffset uint64
		Size      uint64
	}
	// CopyBufferTextureCmd is the payload of both buffer-texture copies.
	CopyBufferTextureCmd struct {
		Buffer   *Buffer
		Offset   uint64
		RowPitch uint32
		Region   TextureRegion
	}
)

// CommandIterator walks a command buffer's log. It can be restarted and
// several iterators may walk the same command buffer.
type CommandIterator struct {
	enc *commands.Encoding
	dec *commands.Decoder
}

// NextCommandID advances to the next command and returns its ID. ok is
// false at the end of the log.
func (it *CommandIterator) NextCommandID() (id CommandID, ok bool) {
	if !it.dec.Next() {
		return 0, false
	}
	return it.dec.Tag(), true
}

// NextCommand returns the payload of the current command, one of the *Cmd
// types, or nil for pass boundaries.
func (it *CommandIterator) NextCommand() any {
	d := it.dec
	switch d.Tag() {
	case commands.TagBeginRenderPass:
		return BeginRenderPassCmd{RenderPass: d.BeginRenderPass().(*RenderPassDescriptor)}
	case commands.TagSetComputePipeline:
		return SetComputePipelineCmd{Pipeline: d.Pipeline().(*ComputePipeline)}
	case commands.TagSetRenderPipeline:
		return SetRenderPipelineCmd{Pipeline: d.Pipeline().(*RenderPipeline)}
	case commands.TagSetBindGroup:
		index, group := d.SetBindGroup()
		return SetBindGroupCmd{Index: index, Group: group.(*BindGroup)}
	case commands.TagSetVertexBuffers:
		c := d.SetVertexBuffers()
		bufs := make([]*Buffer, len(c.Buffers))
		for i, o := range c.Buffers {
			bufs[i] = o.(*Buffer)
		}
		return SetVertexBuffersCmd{StartSlot: c.StartSlot, Buffers: bufs, Offsets: c.Offsets}
	case commands.TagSetIndexBuffer:
		buf, off := d.SetIndexBuffer()
		return SetIndexBufferCmd{Buffer: buf.(*Buffer), Offset: off}
	case commands.TagSetBlendColor:
		r, g, b, a := d.SetBlendColor()
		return SetBlendColorCmd{R: r, G: g, B: b, A: a}
	case commands.TagSetStencilReference:
		return SetStencilReferenceCmd{Reference: d.SetStencilReference()}
	case commands.TagSetPushConstants:
		c := d.SetPushConstants()
		return SetPushConstantsCmd{Stages: gputypes.ShaderStages(c.Stages), Offset: c.Offset, Values: c.Values}
	case commands.TagDrawArrays, commands.TagDrawElements:
		c := d.Draw()
		return DrawCmd{Count: c.Count, InstanceCount: c.InstanceCount, First: c.First, FirstInstance: c.FirstInstance}
	case commands.TagDispatch:
		x, y, z := d.Dispatch()
		return DispatchCmd{X: x, Y: y, Z: z}
	case commands.TagTransitionBufferUsage:
		obj, usage := d.Transition()
		return TransitionBufferUsageCmd{Buffer: obj.(*Buffer), Usage: gputypes.BufferUsage(usage)}
	case commands.TagTransitionTextureUsage:
		obj, usage := d.Transition()
		return TransitionTextureUsageCmd{Texture: obj.(*Texture), Usage: gputypes.TextureUsage(usage)}
	case commands.TagCopyBufferToBuffer:
		c := d.CopyBufferToBuffer()
		return CopyBufferToBufferCmd{
			Src: c.Src.Buffer.(*Buffer), SrcOffset: c.Src.Offset,
			Dst: c.Dst.Buffer.(*Buffer), DstOffset: c.Dst.Offset,
			Size: c.Size,
		}
	case commands.TagCopyBufferToTexture, commands.TagCopyTextureToBuffer:
		c := d.CopyBufferTexture()
		t := c.Texture
		return CopyBufferTextureCmd{
			Buffer:   c.Buffer.Buffer.(*Buffer),
			Offset:   c.Buffer.Offset,
			RowPitch: c.RowPitch,
			Region: TextureRegion{
				Texture: t.Texture.(*Texture),
				X:       t.X, Y: t.Y, Z: t.Z,
				Width: t.Width, Height: t.Height, Depth: t.Depth,
				Level: t.Level,
			},
		}
	}
	return nil
}

// Reset rewinds the iterator to the first command.
func (it *CommandIterator) Reset() {
	it.dec.Reset(it.enc)
}
