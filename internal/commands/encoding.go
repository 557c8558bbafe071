package commands

import "math"

// Object is a reference-counted resource held by the log.
type Object interface {
	Reference()
	Release()
}

// BufferLocation addresses a byte offset inside a buffer.
type BufferLocation struct {
	Buffer Object
	Offset uint64
}

// TextureLocation addresses a region of one mip level of a texture.
type TextureLocation struct {
	Texture              Object
	X, Y, Z              uint32
	Width, Height, Depth uint32
	Level                uint32
}

// SetVertexBuffersCmd is the payload of TagSetVertexBuffers.
type SetVertexBuffersCmd struct {
	StartSlot uint32
	Buffers   []Object
	Offsets   []uint64
}

// SetPushConstantsCmd is the payload of TagSetPushConstants.
type SetPushConstantsCmd struct {
	Stages uint32
	Offset uint32
	Values []uint32
}

// DrawCmd is the payload of TagDrawArrays and TagDrawElements.
// For DrawElements, First is the first index.
type DrawCmd struct {
	Count         uint32
	InstanceCount uint32
	First         uint32
	FirstInstance uint32
}

// CopyBufferToBufferCmd is the payload of TagCopyBufferToBuffer.
type CopyBufferToBufferCmd struct {
	Src  BufferLocation
	Dst  BufferLocation
	Size uint64
}

// CopyBufferTextureCmd is the payload of TagCopyBufferToTexture and
// TagCopyTextureToBuffer.
type CopyBufferTextureCmd struct {
	Buffer   BufferLocation
	RowPitch uint32
	Texture  TextureLocation
}

// Encoding holds the split-stream representation of recorded commands.
type Encoding struct {
	// tags is the command stream (1 byte per command)
	tags []Tag

	// words holds command parameters; uint64 values take two words (lo, hi)
	words []uint32

	// objects holds referenced resources in recording order
	objects []Object
}

// NewEncoding creates a new empty encoding.
func NewEncoding() *Encoding {
	return &Encoding{
		tags:    make([]Tag, 0, 64),
		words:   make([]uint32, 0, 256),
		objects: make([]Object, 0, 32),
	}
}

// Reset releases every held object and clears the streams for reuse
// without deallocating memory.
func (e *Encoding) Reset() {
	for i, obj := range e.objects {
		obj.Release()
		e.objects[i] = nil
	}
	e.tags = e.tags[:0]
	e.words = e.words[:0]
	e.objects = e.objects[:0]
}

// Len returns the number of recorded commands.
func (e *Encoding) Len() int {
	return len(e.tags)
}

// Tags returns the tag stream.
func (e *Encoding) Tags() []Tag {
	return e.tags
}

// Words returns the word stream.
func (e *Encoding) Words() []uint32 {
	return e.words
}

// Objects returns the object stream.
func (e *Encoding) Objects() []Object {
	return e.objects
}

func (e *Encoding) putU64(v uint64) {
	e.words = append(e.words, uint32(v), uint32(v>>32))
}

func (e *Encoding) putObject(obj Object) {
	obj.Reference()
	e.objects = append(e.objects, obj)
}

// EncodeBeginComputePass records TagBeginComputePass.
func (e *Encoding) EncodeBeginComputePass() {
	e.tags = append(e.tags, TagBeginComputePass)
}

// EncodeEndComputePass records TagEndComputePass.
func (e *Encoding) EncodeEndComputePass() {
	e.tags = append(e.tags, TagEndComputePass)
}

// EncodeBeginRenderPass records TagBeginRenderPass.
func (e *Encoding) EncodeBeginRenderPass(renderPass Object) {
	e.tags = append(e.tags, TagBeginRenderPass)
	e.putObject(renderPass)
}

// EncodeBeginRenderSubpass records TagBeginRenderSubpass.
func (e *Encoding) EncodeBeginRenderSubpass() {
	e.tags = append(e.tags, TagBeginRenderSubpass)
}

// EncodeEndRenderSubpass records TagEndRenderSubpass.
func (e *Encoding) EncodeEndRenderSubpass() {
	e.tags = append(e.tags, TagEndRenderSubpass)
}

// EncodeEndRenderPass records TagEndRenderPass.
func (e *Encoding) EncodeEndRenderPass() {
	e.tags = append(e.tags, TagEndRenderPass)
}

// EncodeSetComputePipeline records TagSetComputePipeline.
func (e *Encoding) EncodeSetComputePipeline(pipeline Object) {
	e.tags = append(e.tags, TagSetComputePipeline)
	e.putObject(pipeline)
}

// EncodeSetRenderPipeline records TagSetRenderPipeline.
func (e *Encoding) EncodeSetRenderPipeline(pipeline Object) {
	e.tags = append(e.tags, TagSetRenderPipeline)
	e.putObject(pipeline)
}

// EncodeSetBindGroup records TagSetBindGroup.
func (e *Encoding) EncodeSetBindGroup(index uint32, group Object) {
	e.tags = append(e.tags, TagSetBindGroup)
	e.words = append(e.words, index)
	e.putObject(group)
}

// EncodeSetVertexBuffers records TagSetVertexBuffers.
// len(offsets) must equal len(buffers).
func (e *Encoding) EncodeSetVertexBuffers(startSlot uint32, buffers []Object, offsets []uint64) {
	e.tags = append(e.tags, TagSetVertexBuffers)
	e.words = append(e.words, startSlot, uint32(len(buffers)))
	for i, buf := range buffers {
		e.putU64(offsets[i])
		e.putObject(buf)
	}
}

// EncodeSetIndexBuffer records TagSetIndexBuffer.
func (e *Encoding) EncodeSetIndexBuffer(buffer Object, offset uint64) {
	e.tags = append(e.tags, TagSetIndexBuffer)
	e.putU64(offset)
	e.putObject(buffer)
}

// EncodeSetBlendColor records TagSetBlendColor.
func (e *Encoding) EncodeSetBlendColor(r, g, b, a float32) {
	e.tags = append(e.tags, TagSetBlendColor)
	e.words = append(e.words,
		math.Float32bits(r), math.Float32bits(g),
		math.Float32bits(b), math.Float32bits(a))
}

// EncodeSetStencilReference records TagSetStencilReference.
func (e *Encoding) EncodeSetStencilReference(reference uint32) {
	e.tags = append(e.tags, TagSetStencilReference)
	e.words = append(e.words, reference)
}

// EncodeSetPushConstants records TagSetPushConstants.
func (e *Encoding) EncodeSetPushConstants(stages, offset uint32, values []uint32) {
	e.tags = append(e.tags, TagSetPushConstants)
	e.words = append(e.words, stages, offset, uint32(len(values)))
	e.words = append(e.words, values...)
}

// EncodeDrawArrays records TagDrawArrays.
func (e *Encoding) EncodeDrawArrays(cmd DrawCmd) {
	e.tags = append(e.tags, TagDrawArrays)
	e.words = append(e.words, cmd.Count, cmd.InstanceCount, cmd.First, cmd.FirstInstance)
}

// EncodeDrawElements records TagDrawElements.
func (e *Encoding) EncodeDrawElements(cmd DrawCmd) {
	e.tags = append(e.tags, TagDrawElements)
	e.words = append(e.words, cmd.Count, cmd.InstanceCount, cmd.First, cmd.FirstInstance)
}

// EncodeDispatch records TagDispatch.
func (e *Encoding) EncodeDispatch(x, y, z uint32) {
	e.tags = append(e.tags, TagDispatch)
	e.words = append(e.words, x, y, z)
}

// EncodeTransitionBufferUsage records TagTransitionBufferUsage.
func (e *Encoding) EncodeTransitionBufferUsage(buffer Object, usage uint64) {
	e.tags = append(e.tags, TagTransitionBufferUsage)
	e.putU64(usage)
	e.putObject(buffer)
}

// EncodeTransitionTextureUsage records TagTransitionTextureUsage.
func (e *Encoding) EncodeTransitionTextureUsage(texture Object, usage uint64) {
	e.tags = append(e.tags, TagTransitionTextureUsage)
	e.putU64(usage)
	e.putObject(texture)
}

// EncodeCopyBufferToBuffer records TagCopyBufferToBuffer.
func (e *Encoding) EncodeCopyBufferToBuffer(cmd CopyBufferToBufferCmd) {
	e.tags = append(e.tags, TagCopyBufferToBuffer)
	e.putU64(cmd.Src.Offset)
	e.putU64(cmd.Dst.Offset)
	e.putU64(cmd.Size)
	e.putObject(cmd.Src.Buffer)
	e.putObject(cmd.Dst.Buffer)
}

// EncodeCopyBufferToTexture records TagCopyBufferToTexture.
func (e *Encoding) EncodeCopyBufferToTexture(cmd CopyBufferTextureCmd) {
	e.tags = append(e.tags, TagCopyBufferToTexture)
	e.putCopyRegion(cmd)
	e.putObject(cmd.Buffer.Buffer)
	e.putObject(cmd.Texture.Texture)
}

// EncodeCopyTextureToBuffer records TagCopyTextureToBuffer.
func (e *Encoding) EncodeCopyTextureToBuffer(cmd CopyBufferTextureCmd) {
	e.tags = append(e.tags, TagCopyTextureToBuffer)
	e.putCopyRegion(cmd)
	e.putObject(cmd.Texture.Texture)
	e.putObject(cmd.Buffer.Buffer)
}

func (e *Encoding) putCopyRegion(cmd CopyBufferTextureCmd) {
	e.putU64(cmd.Buffer.Offset)
	t := cmd.Texture
	e.words = append(e.words, cmd.RowPitch, t.X, t.Y, t.Z, t.Width, t.Height, t.Depth, t.Level)
}

// Hash computes a 64-bit FNV-1a hash over the tag and word streams.
// Objects are not hashed; two encodings with equal hashes may still
// reference different resources.
func (e *Encoding) Hash() uint64 {
	const (
		fnvOffset = 14695981039346656037
		fnvPrime  = 1099511628211
	)

	hash := uint64(fnvOffset)
	for _, t := range e.tags {
		hash ^= uint64(t)
		hash *= fnvPrime
	}
	for _, w := range e.words {
		hash ^= uint64(w)
		hash *= fnvPrime
	}
	return hash
}
