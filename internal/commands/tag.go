// Package commands provides the typed, append-only command log recorded by
// command buffer builders and replayed by the queue.
//
// The log uses a split-stream layout:
//   - a compact tag stream (1 byte per command)
//   - a uint32 word stream for fixed and variable payloads
//   - an object stream holding referenced resources
//
// Every object appended to the log is referenced once and released when the
// log is released, so a recorded command buffer keeps its resources alive.
package commands

// Tag identifies a single command in the encoding stream.
// Tags are grouped by their high nibble:
//
//	0x0X: compute passes
//	0x1X: render passes and subpasses
//	0x2X: state binding
//	0x3X: draws and dispatches
//	0x4X: usage transitions
//	0x5X: copies
type Tag byte

// Tag constants. Each comment documents the payload layout as
// words (uint32) and objects.
const (
	// TagBeginComputePass opens a compute pass. Payload: none.
	TagBeginComputePass Tag = 0x01

	// TagEndComputePass closes the current compute pass. Payload: none.
	TagEndComputePass Tag = 0x02

	// TagBeginRenderPass opens a render pass.
	// Objects: [renderPassDescriptor]
	TagBeginRenderPass Tag = 0x10

	// TagBeginRenderSubpass opens the next subpass. Payload: none.
	TagBeginRenderSubpass Tag = 0x11

	// TagEndRenderSubpass closes the current subpass. Payload: none.
	TagEndRenderSubpass Tag = 0x12

	// TagEndRenderPass closes the current render pass. Payload: none.
	TagEndRenderPass Tag = 0x13

	// TagSetComputePipeline binds a compute pipeline. Objects: [pipeline]
	TagSetComputePipeline Tag = 0x20

	// TagSetRenderPipeline binds a render pipeline. Objects: [pipeline]
	TagSetRenderPipeline Tag = 0x21

	// TagSetBindGroup binds a bind group.
	// Words: [index], Objects: [group]
	TagSetBindGroup Tag = 0x22

	// TagSetVertexBuffers binds a range of vertex buffers.
	// Words: [startSlot, count, offsetLo0, offsetHi0, ...], Objects: count buffers
	TagSetVertexBuffers Tag = 0x23

	// TagSetIndexBuffer binds the index buffer.
	// Words: [offsetLo, offsetHi], Objects: [buffer]
	TagSetIndexBuffer Tag = 0x24

	// TagSetBlendColor sets the blend constant.
	// Words: 4 float32 bit patterns [r, g, b, a]
	TagSetBlendColor Tag = 0x25

	// TagSetStencilReference sets the stencil reference. Words: [reference]
	TagSetStencilReference Tag = 0x26

	// TagSetPushConstants updates push constant slots.
	// Words: [stages, offset, count, values...]
	TagSetPushConstants Tag = 0x27

	// TagDrawArrays draws non-indexed primitives.
	// Words: [vertexCount, instanceCount, firstVertex, firstInstance]
	TagDrawArrays Tag = 0x30

	// TagDrawElements draws indexed primitives.
	// Words: [indexCount, instanceCount, firstIndex, firstInstance]
	TagDrawElements Tag = 0x31

	// TagDispatch dispatches compute workgroups. Words: [x, y, z]
	TagDispatch Tag = 0x32

	// TagTransitionBufferUsage transitions a buffer to a usage.
	// Words: [usageLo, usageHi], Objects: [buffer]
	TagTransitionBufferUsage Tag = 0x40

	// TagTransitionTextureUsage transitions a texture to a usage.
	// Words: [usageLo, usageHi], Objects: [texture]
	TagTransitionTextureUsage Tag = 0x41

	// TagCopyBufferToBuffer copies between buffers.
	// Words: [srcOffset(2), dstOffset(2), size(2)], Objects: [src, dst]
	TagCopyBufferToBuffer Tag = 0x50

	// TagCopyBufferToTexture copies from a buffer into a texture region.
	// Words: [offset(2), rowPitch, x, y, z, width, height, depth, level],
	// Objects: [buffer, texture]
	TagCopyBufferToTexture Tag = 0x51

	// TagCopyTextureToBuffer copies a texture region into a buffer.
	// Words: same layout as TagCopyBufferToTexture, Objects: [texture, buffer]
	TagCopyTextureToBuffer Tag = 0x52
)

// String returns a human-readable name for the tag.
func (t Tag) String() string {
	switch t {
	case TagBeginComputePass:
		return "BeginComputePass"
	case TagEndComputePass:
		return "EndComputePass"
	case TagBeginRenderPass:
		return "BeginRenderPass"
	case TagBeginRenderSubpass:
		return "BeginRenderSubpass"
	case TagEndRenderSubpass:
		return "EndRenderSubpass"
	case TagEndRenderPass:
		return "EndRenderPass"
	case TagSetComputePipeline:
		return "SetComputePipeline"
	case TagSetRenderPipeline:
		return "SetRenderPipeline"
	case TagSetBindGroup:
		return "SetBindGroup"
	case TagSetVertexBuffers:
		return "SetVertexBuffers"
	case TagSetIndexBuffer:
		return "SetIndexBuffer"
	case TagSetBlendColor:
		return "SetBlendColor"
	case TagSetStencilReference:
		return "SetStencilReference"
	case TagSetPushConstants:
		return "SetPushConstants"
	case TagDrawArrays:
		return "DrawArrays"
	case TagDrawElements:
		return "DrawElements"
	case TagDispatch:
		return "Dispatch"
	case TagTransitionBufferUsage:
		return "TransitionBufferUsage"
	case TagTransitionTextureUsage:
		return "TransitionTextureUsage"
	case TagCopyBufferToBuffer:
		return "CopyBufferToBuffer"
	case TagCopyBufferToTexture:
		return "CopyBufferToTexture"
	case TagCopyTextureToBuffer:
		return "CopyTextureToBuffer"
	default:
		return "Unknown"
	}
}

// IsPassBoundary reports whether the tag opens or closes a pass or subpass.
func (t Tag) IsPassBoundary() bool {
	switch t {
	case TagBeginComputePass, TagEndComputePass,
		TagBeginRenderPass, TagBeginRenderSubpass,
		TagEndRenderSubpass, TagEndRenderPass:
		return true
	}
	return false
}

// payloadSize returns the fixed word and object counts for a tag.
// Variable-length commands return -1 words; their length is read from the
// word stream by the decoder.
func payloadSize(t Tag) (words, objects int) {
	switch t {
	case TagBeginComputePass, TagEndComputePass,
		TagBeginRenderSubpass, TagEndRenderSubpass, TagEndRenderPass:
		return 0, 0
	case TagBeginRenderPass, TagSetComputePipeline, TagSetRenderPipeline:
		return 0, 1
	case TagSetBindGroup:
		return 1, 1
	case TagSetIndexBuffer:
		return 2, 1
	case TagSetBlendColor:
		return 4, 0
	case TagSetStencilReference:
		return 1, 0
	case TagDrawArrays, TagDrawElements:
		return 4, 0
	case TagDispatch:
		return 3, 0
	case TagTransitionBufferUsage, TagTransitionTextureUsage:
		return 2, 1
	case TagCopyBufferToBuffer:
		return 6, 2
	case TagCopyBufferToTexture, TagCopyTextureToBuffer:
		return 10, 2
	}
	return -1, -1
}
