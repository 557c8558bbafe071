package nxt

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/nxt/internal/commands"
	"github.com/gogpu/wgpu/hal"
)

// replayer records a validated command log into a HAL command encoder.
//
// Each subpass becomes one HAL render pass: an attachment is loaded with
// its own load op in the first subpass using it and preserved afterwards.
// Top-level dispatches run in a transient compute pass rebuilt from the
// bound state.
type replayer struct {
	enc hal.CommandEncoder

	// current usage of every resource transitioned so far
	buffers  map[*Buffer]gputypes.BufferUsage
	textures map[*Texture]gputypes.TextureUsage

	compute hal.ComputePassEncoder
	render  hal.RenderPassEncoder

	renderPass *RenderPassDescriptor
	subpass    int
	pipeline   *RenderPipeline

	indexBuffer *Buffer
	indexOffset uint64

	// top-level compute bindings
	computePipeline *ComputePipeline
	bindGroups      [MaxBindGroups]*BindGroup
}

// replay records cb into enc.
func (cb *CommandBuffer) replay(enc hal.CommandEncoder) {
	r := &replayer{
		enc:      enc,
		buffers:  make(map[*Buffer]gputypes.BufferUsage),
		textures: make(map[*Texture]gputypes.TextureUsage),
	}
	it := cb.Iterator()
	for {
		id, ok := it.NextCommandID()
		if !ok {
			return
		}
		r.command(id, it.NextCommand())
	}
}

func (r *replayer) command(id commands.Tag, cmd any) {
	switch id {
	case commands.TagBeginComputePass:
		r.compute = r.enc.BeginComputePass(&hal.ComputePassDescriptor{})
	case commands.TagEndComputePass:
		r.compute.End()
		r.compute = nil
		r.resetCompute()
	case commands.TagBeginRenderPass:
		r.renderPass = cmd.(BeginRenderPassCmd).RenderPass
		r.subpass = 0
	case commands.TagBeginRenderSubpass:
		r.beginSubpass()
	case commands.TagEndRenderSubpass:
		r.render.End()
		r.render = nil
		r.pipeline = nil
		r.indexBuffer = nil
		r.subpass++
	case commands.TagEndRenderPass:
		r.renderPass = nil

	case commands.TagSetComputePipeline:
		p := cmd.(SetComputePipelineCmd).Pipeline
		if r.compute != nil {
			r.compute.SetPipeline(p.hal)
		} else {
			r.computePipeline = p
		}
	case commands.TagSetRenderPipeline:
		r.pipeline = cmd.(SetRenderPipelineCmd).Pipeline
		r.render.SetPipeline(r.pipeline.hal)
	case commands.TagSetBindGroup:
		c := cmd.(SetBindGroupCmd)
		switch {
		case r.render != nil:
			r.render.SetBindGroup(c.Index, c.Group.hal, nil)
		case r.compute != nil:
			r.compute.SetBindGroup(c.Index, c.Group.hal, nil)
		default:
			r.bindGroups[c.Index] = c.Group
		}
	case commands.TagSetVertexBuffers:
		c := cmd.(SetVertexBuffersCmd)
		for i, b := range c.Buffers {
			r.render.SetVertexBuffer(c.StartSlot+uint32(i), b.hal, c.Offsets[i])
		}
	case commands.TagSetIndexBuffer:
		c := cmd.(SetIndexBufferCmd)
		r.indexBuffer, r.indexOffset = c.Buffer, c.Offset
	case commands.TagSetBlendColor:
		c := cmd.(SetBlendColorCmd)
		r.render.SetBlendConstant(&gputypes.Color{
			R: float64(c.R), G: float64(c.G), B: float64(c.B), A: float64(c.A),
		})
	case commands.TagSetStencilReference:
		r.render.SetStencilReference(cmd.(SetStencilReferenceCmd).Reference)
	case commands.TagSetPushConstants:
		// HAL pipelines are created without push constant ranges.

	case commands.TagDrawArrays:
		c := cmd.(DrawCmd)
		r.render.Draw(c.Count, c.InstanceCount, c.First, c.FirstInstance)
	case commands.TagDrawElements:
		c := cmd.(DrawCmd)
		// The index format belongs to the pipeline, so the buffer is bound
		// at draw time.
		r.render.SetIndexBuffer(r.indexBuffer.hal, r.pipeline.indexFormat, r.indexOffset)
		r.render.DrawIndexed(c.Count, c.InstanceCount, c.First, 0, c.FirstInstance)
	case commands.TagDispatch:
		c := cmd.(DispatchCmd)
		r.dispatch(c.X, c.Y, c.Z)

	case commands.TagTransitionBufferUsage:
		c := cmd.(TransitionBufferUsageCmd)
		old, ok := r.buffers[c.Buffer]
		if !ok {
			old = c.Buffer.usage
		}
		r.buffers[c.Buffer] = c.Usage
		r.enc.TransitionBuffers([]hal.BufferBarrier{{
			Buffer: c.Buffer.hal,
			Usage:  hal.BufferUsageTransition{OldUsage: old, NewUsage: c.Usage},
		}})
	case commands.TagTransitionTextureUsage:
		c := cmd.(TransitionTextureUsageCmd)
		old, ok := r.textures[c.Texture]
		if !ok {
			old = c.Texture.usage
		}
		r.textures[c.Texture] = c.Usage
		r.enc.TransitionTextures([]hal.TextureBarrier{{
			Texture: c.Texture.hal,
			Range:   c.Texture.fullRange(),
			Usage:   hal.TextureUsageTransition{OldUsage: old, NewUsage: c.Usage},
		}})

	case commands.TagCopyBufferToBuffer:
		c := cmd.(CopyBufferToBufferCmd)
		r.enc.CopyBufferToBuffer(c.Src.hal, c.Dst.hal, []hal.BufferCopy{{
			SrcOffset: c.SrcOffset, DstOffset: c.DstOffset, Size: c.Size,
		}})
	case commands.TagCopyBufferToTexture:
		c := cmd.(CopyBufferTextureCmd)
		r.enc.CopyBufferToTexture(c.Buffer.hal, c.Region.Texture.hal, []hal.BufferTextureCopy{bufferTextureCopy(c)})
	case commands.TagCopyTextureToBuffer:
		c := cmd.(CopyBufferTextureCmd)
		r.enc.CopyTextureToBuffer(c.Region.Texture.hal, c.Buffer.hal, []hal.BufferTextureCopy{bufferTextureCopy(c)})
	}
}

func (r *replayer) resetCompute() {
	r.computePipeline = nil
	r.bindGroups = [MaxBindGroups]*BindGroup{}
}

func (r *replayer) dispatch(x, y, z uint32) {
	if r.compute != nil {
		r.compute.Dispatch(x, y, z)
		return
	}
	pass := r.enc.BeginComputePass(&hal.ComputePassDescriptor{})
	pass.SetPipeline(r.computePipeline.hal)
	for i, g := range r.bindGroups {
		if g != nil {
			pass.SetBindGroup(uint32(i), g.hal, nil)
		}
	}
	pass.Dispatch(x, y, z)
	pass.End()
}

func (r *replayer) beginSubpass() {
	rp := r.renderPass
	sp := rp.subpasses[r.subpass]
	desc := &hal.RenderPassDescriptor{
		ColorAttachments: make([]hal.RenderPassColorAttachment, len(sp.colors)),
	}
	for i, idx := range sp.colors {
		att := rp.colors[idx]
		loadOp := gputypes.LoadOpLoad
		if sp.firstUse[i] {
			loadOp = att.LoadOp
		}
		desc.ColorAttachments[i] = hal.RenderPassColorAttachment{
			View:       att.View.hal,
			LoadOp:     loadOp,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: att.ClearColor,
		}
	}
	if sp.depth {
		att := rp.depthStencil
		depthLoad, stencilLoad := gputypes.LoadOpLoad, gputypes.LoadOpLoad
		if sp.depthFirst {
			depthLoad, stencilLoad = att.DepthLoadOp, att.StencilLoadOp
		}
		desc.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:              att.View.hal,
			DepthLoadOp:       depthLoad,
			DepthStoreOp:      gputypes.StoreOpStore,
			DepthClearValue:   att.DepthClearValue,
			StencilLoadOp:     stencilLoad,
			StencilStoreOp:    gputypes.StoreOpStore,
			StencilClearValue: att.StencilClearValue,
		}
	}

	r.render = r.enc.BeginRenderPass(desc)
	w, h := rp.Size()
	r.render.SetViewport(0, 0, float32(w), float32(h), 0, 1)
	r.render.SetScissorRect(0, 0, w, h)
}

func bufferTextureCopy(c CopyBufferTextureCmd) hal.BufferTextureCopy {
	reg := c.Region
	return hal.BufferTextureCopy{
		BufferLayout: hal.ImageDataLayout{
			Offset:       c.Offset,
			BytesPerRow:  c.RowPitch,
			RowsPerImage: reg.Height,
		},
		TextureBase: hal.ImageCopyTexture{
			Texture:  reg.Texture.hal,
			MipLevel: reg.Level,
			Origin:   hal.Origin3D{X: reg.X, Y: reg.Y, Z: reg.Z},
			Aspect:   gputypes.TextureAspectAll,
		},
		Size: hal.Extent3D{Width: reg.Width, Height: reg.Height, DepthOrArrayLayers: reg.Depth},
	}
}
