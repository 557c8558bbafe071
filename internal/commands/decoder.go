package commands

import "math"

// Decoder iterates over an Encoding's command stream.
// It tracks positions in the tag, word and object streams and exposes one
// typed accessor per tag.
//
// A decoder is restartable: Reset rewinds it so the same log can be
// validated once and replayed afterwards.
//
//	dec := NewDecoder(enc)
//	for dec.Next() {
//	    switch dec.Tag() {
//	    case TagSetBindGroup:
//	        index, group := dec.SetBindGroup()
//	        // ...
//	    case TagDispatch:
//	        x, y, z := dec.Dispatch()
//	        // ...
//	    }
//	}
//
// Accessors that are not called for a command are skipped by the next call
// to Next, so callers only need to decode the commands they care about.
type Decoder struct {
	enc *Encoding

	tagIdx  int
	wordIdx int
	objIdx  int

	// stream positions after the current command's payload
	nextWord int
	nextObj  int

	currentTag Tag
}

// NewDecoder creates a decoder for the given encoding.
// Returns nil if enc is nil.
func NewDecoder(enc *Encoding) *Decoder {
	if enc == nil {
		return nil
	}
	return &Decoder{enc: enc}
}

// Reset rewinds the decoder to the start of enc.
func (d *Decoder) Reset(enc *Encoding) {
	d.enc = enc
	d.tagIdx = 0
	d.wordIdx = 0
	d.objIdx = 0
	d.nextWord = 0
	d.nextObj = 0
	d.currentTag = 0
}

// Next advances to the next command.
// Returns false when iteration is complete.
func (d *Decoder) Next() bool {
	if d.enc == nil || d.tagIdx >= len(d.enc.tags) {
		return false
	}
	d.wordIdx = d.nextWord
	d.objIdx = d.nextObj

	d.currentTag = d.enc.tags[d.tagIdx]
	d.tagIdx++

	words, objs := payloadSize(d.currentTag)
	switch d.currentTag {
	case TagSetVertexBuffers:
		count := int(d.enc.words[d.wordIdx+1])
		words, objs = 2+2*count, count
	case TagSetPushConstants:
		count := int(d.enc.words[d.wordIdx+2])
		words, objs = 3+count, 0
	}
	d.nextWord = d.wordIdx + words
	d.nextObj = d.objIdx + objs
	return true
}

// Tag returns the current command tag.
func (d *Decoder) Tag() Tag {
	return d.currentTag
}

// Peek returns the next tag without advancing.
// Returns 0 at the end of the stream.
func (d *Decoder) Peek() Tag {
	if d.enc == nil || d.tagIdx >= len(d.enc.tags) {
		return 0
	}
	return d.enc.tags[d.tagIdx]
}

// HasMore reports whether more commands remain.
func (d *Decoder) HasMore() bool {
	return d.enc != nil && d.tagIdx < len(d.enc.tags)
}

// Position returns the index of the next command in the tag stream.
func (d *Decoder) Position() int {
	return d.tagIdx
}

func (d *Decoder) word() uint32 {
	w := d.enc.words[d.wordIdx]
	d.wordIdx++
	return w
}

func (d *Decoder) u64() uint64 {
	lo := uint64(d.enc.words[d.wordIdx])
	hi := uint64(d.enc.words[d.wordIdx+1])
	d.wordIdx += 2
	return lo | hi<<32
}

func (d *Decoder) object() Object {
	obj := d.enc.objects[d.objIdx]
	d.objIdx++
	return obj
}

// BeginRenderPass returns the render pass descriptor of TagBeginRenderPass.
func (d *Decoder) BeginRenderPass() Object {
	return d.object()
}

// Pipeline returns the pipeline of TagSetComputePipeline or TagSetRenderPipeline.
func (d *Decoder) Pipeline() Object {
	return d.object()
}

// SetBindGroup returns the payload of TagSetBindGroup.
func (d *Decoder) SetBindGroup() (index uint32, group Object) {
	index = d.word()
	return index, d.object()
}

// SetVertexBuffers returns the payload of TagSetVertexBuffers.
func (d *Decoder) SetVertexBuffers() SetVertexBuffersCmd {
	cmd := SetVertexBuffersCmd{StartSlot: d.word()}
	count := int(d.word())
	cmd.Buffers = make([]Object, count)
	cmd.Offsets = make([]uint64, count)
	for i := 0; i < count; i++ {
		cmd.Offsets[i] = d.u64()
		cmd.Buffers[i] = d.object()
	}
	return cmd
}

// SetIndexBuffer returns the payload of TagSetIndexBuffer.
func (d *Decoder) SetIndexBuffer() (buffer Object, offset uint64) {
	offset = d.u64()
	return d.object(), offset
}

// SetBlendColor returns the payload of TagSetBlendColor.
func (d *Decoder) SetBlendColor() (r, g, b, a float32) {
	r = math.Float32frombits(d.word())
	g = math.Float32frombits(d.word())
	b = math.Float32frombits(d.word())
	a = math.Float32frombits(d.word())
	return r, g, b, a
}

// SetStencilReference returns the payload of TagSetStencilReference.
func (d *Decoder) SetStencilReference() uint32 {
	return d.word()
}

// SetPushConstants returns the payload of TagSetPushConstants.
func (d *Decoder) SetPushConstants() SetPushConstantsCmd {
	cmd := SetPushConstantsCmd{Stages: d.word(), Offset: d.word()}
	count := int(d.word())
	cmd.Values = make([]uint32, count)
	copy(cmd.Values, d.enc.words[d.wordIdx:d.wordIdx+count])
	d.wordIdx += count
	return cmd
}

// Draw returns the payload of TagDrawArrays or TagDrawElements.
func (d *Decoder) Draw() DrawCmd {
	return DrawCmd{
		Count:         d.word(),
		InstanceCount: d.word(),
		First:         d.word(),
		FirstInstance: d.word(),
	}
}

// Dispatch returns the payload of TagDispatch.
func (d *Decoder) Dispatch() (x, y, z uint32) {
	x = d.word()
	y = d.word()
	z = d.word()
	return x, y, z
}

// Transition returns the payload of TagTransitionBufferUsage or
// TagTransitionTextureUsage.
func (d *Decoder) Transition() (target Object, usage uint64) {
	usage = d.u64()
	return d.object(), usage
}

// CopyBufferToBuffer returns the payload of TagCopyBufferToBuffer.
func (d *Decoder) CopyBufferToBuffer() CopyBufferToBufferCmd {
	var cmd CopyBufferToBufferCmd
	cmd.Src.Offset = d.u64()
	cmd.Dst.Offset = d.u64()
	cmd.Size = d.u64()
	cmd.Src.Buffer = d.object()
	cmd.Dst.Buffer = d.object()
	return cmd
}

// CopyBufferTexture returns the payload of TagCopyBufferToTexture or
// TagCopyTextureToBuffer.
func (d *Decoder) CopyBufferTexture() CopyBufferTextureCmd {
	var cmd CopyBufferTextureCmd
	cmd.Buffer.Offset = d.u64()
	cmd.RowPitch = d.word()
	t := &cmd.Texture
	t.X, t.Y, t.Z = d.word(), d.word(), d.word()
	t.Width, t.Height, t.Depth = d.word(), d.word(), d.word()
	t.Level = d.word()
	if d.currentTag == TagCopyTextureToBuffer {
		t.Texture = d.object()
		cmd.Buffer.Buffer = d.object()
	} else {
		cmd.Buffer.Buffer = d.object()
		t.Texture = d.object()
	}
	return cmd
}
