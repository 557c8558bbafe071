package nxt

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/nxt/internal/commands"
)

// usageMap records, per resource referenced by a command buffer, the usage
// the command buffer assumes at submission and the usage it leaves behind.
// Entries keep first-reference order so write-back is deterministic.
type usageMap struct {
	buffers     []bufferUsage
	bufferIndex map[*Buffer]int

	textures     []textureUsage
	textureIndex map[*Texture]int
}

type bufferUsage struct {
	buffer         *Buffer
	initial, final gputypes.BufferUsage
}

type textureUsage struct {
	texture        *Texture
	initial, final gputypes.TextureUsage
}

func newUsageMap() *usageMap {
	return &usageMap{
		bufferIndex:  make(map[*Buffer]int),
		textureIndex: make(map[*Texture]int),
	}
}

// buffer returns the tracked usage of b, registering b on first use.
func (m *usageMap) buffer(b *Buffer) gputypes.BufferUsage {
	if i, ok := m.bufferIndex[b]; ok {
		return m.buffers[i].final
	}
	m.bufferIndex[b] = len(m.buffers)
	m.buffers = append(m.buffers, bufferUsage{buffer: b, initial: b.usage, final: b.usage})
	return b.usage
}

func (m *usageMap) setBuffer(b *Buffer, u gputypes.BufferUsage) {
	m.buffer(b)
	m.buffers[m.bufferIndex[b]].final = u
}

func (m *usageMap) texture(t *Texture) gputypes.TextureUsage {
	if i, ok := m.textureIndex[t]; ok {
		return m.textures[i].final
	}
	m.textureIndex[t] = len(m.textures)
	m.textures = append(m.textures, textureUsage{texture: t, initial: t.usage, final: t.usage})
	return t.usage
}

func (m *usageMap) setTexture(t *Texture, u gputypes.TextureUsage) {
	m.texture(t)
	m.textures[m.textureIndex[t]].final = u
}

// passState is the position of the validator in the pass structure.
type passState uint8

const (
	stateTopLevel passState = iota
	stateRenderPass
	stateSubpass
	stateComputePass
)

func (s passState) String() string {
	switch s {
	case stateRenderPass:
		return "inside a render pass"
	case stateSubpass:
		return "inside a subpass"
	case stateComputePass:
		return "inside a compute pass"
	}
	return "outside of a pass"
}

// permits reports whether command id may appear in state s.
func (s passState) permits(id commands.Tag) bool {
	switch s {
	case stateTopLevel:
		switch id {
		case commands.TagBeginRenderPass, commands.TagBeginComputePass,
			commands.TagSetComputePipeline, commands.TagSetBindGroup,
			commands.TagSetPushConstants, commands.TagDispatch,
			commands.TagTransitionBufferUsage, commands.TagTransitionTextureUsage,
			commands.TagCopyBufferToBuffer, commands.TagCopyBufferToTexture,
			commands.TagCopyTextureToBuffer:
			return true
		}
	case stateRenderPass:
		return id == commands.TagBeginRenderSubpass || id == commands.TagEndRenderPass
	case stateSubpass:
		switch id {
		case commands.TagSetRenderPipeline, commands.TagSetBindGroup,
			commands.TagSetVertexBuffers, commands.TagSetIndexBuffer,
			commands.TagSetBlendColor, commands.TagSetStencilReference,
			commands.TagSetPushConstants, commands.TagDrawArrays,
			commands.TagDrawElements, commands.TagEndRenderSubpass:
			return true
		}
	case stateComputePass:
		switch id {
		case commands.TagSetComputePipeline, commands.TagSetBindGroup,
			commands.TagSetPushConstants, commands.TagDispatch,
			commands.TagEndComputePass:
			return true
		}
	}
	return false
}

// commandValidator walks a log once, checking the pass structure and every
// per-command invariant while tracking resource usage.
type commandValidator struct {
	usages *usageMap
	state  passState

	renderPass *RenderPassDescriptor
	subpass    int

	computePipeline *ComputePipeline
	renderPipeline  *RenderPipeline
	bindGroups      [MaxBindGroups]*BindGroup
	vertexBuffers   uint32
	indexBuffer     bool
}

// resetBindings clears the state scoped to a pass or subpass.
func (v *commandValidator) resetBindings() {
	v.computePipeline = nil
	v.renderPipeline = nil
	v.bindGroups = [MaxBindGroups]*BindGroup{}
	v.vertexBuffers = 0
	v.indexBuffer = false
}

// checkCommands validates enc and computes its usage map. Without validate
// only transitions are tracked.
func checkCommands(enc *commands.Encoding, validate bool) (*usageMap, error) {
	v := &commandValidator{usages: newUsageMap()}
	it := &CommandIterator{enc: enc, dec: commands.NewDecoder(enc)}
	for {
		id, ok := it.NextCommandID()
		if !ok {
			break
		}
		if !validate {
			v.track(it.NextCommand())
			continue
		}
		if !v.state.permits(id) {
			return nil, validationError("%v is not allowed %v", id, v.state)
		}
		if err := v.check(id, it.NextCommand()); err != nil {
			return nil, err
		}
	}
	if validate && v.state != stateTopLevel {
		return nil, validationError("Command buffer ended %v", v.state)
	}
	return v.usages, nil
}

func (v *commandValidator) track(cmd any) {
	switch c := cmd.(type) {
	case TransitionBufferUsageCmd:
		v.usages.setBuffer(c.Buffer, c.Usage)
	case TransitionTextureUsageCmd:
		v.usages.setTexture(c.Texture, c.Usage)
	}
}

func (v *commandValidator) check(id commands.Tag, cmd any) error {
	switch id {
	case commands.TagBeginComputePass:
		v.state = stateComputePass
		v.resetBindings()
	case commands.TagEndComputePass:
		v.state = stateTopLevel
		v.resetBindings()
	case commands.TagBeginRenderPass:
		return v.beginRenderPass(cmd.(BeginRenderPassCmd).RenderPass)
	case commands.TagBeginRenderSubpass:
		if v.subpass >= len(v.renderPass.subpasses) {
			return validationError("Subpass index out of bounds")
		}
		v.state = stateSubpass
		v.resetBindings()
	case commands.TagEndRenderSubpass:
		v.subpass++
		v.state = stateRenderPass
		v.resetBindings()
	case commands.TagEndRenderPass:
		if v.subpass != len(v.renderPass.subpasses) {
			return validationError("Can't end render pass before all subpasses are done")
		}
		v.renderPass = nil
		v.state = stateTopLevel

	case commands.TagSetComputePipeline:
		v.computePipeline = cmd.(SetComputePipelineCmd).Pipeline
	case commands.TagSetRenderPipeline:
		p := cmd.(SetRenderPipelineCmd).Pipeline
		if p.attachmentLayout != v.renderPass.subpasses[v.subpass].layout {
			return validationError("Pipeline attachment layout is incompatible with the subpass")
		}
		v.renderPipeline = p
	case commands.TagSetBindGroup:
		c := cmd.(SetBindGroupCmd)
		v.bindGroups[c.Index] = c.Group
	case commands.TagSetVertexBuffers:
		c := cmd.(SetVertexBuffersCmd)
		for i, b := range c.Buffers {
			if !v.usages.buffer(b).Contains(gputypes.BufferUsageVertex) {
				return validationError("Buffer needs the Vertex usage bit")
			}
			v.vertexBuffers |= 1 << (c.StartSlot + uint32(i))
		}
	case commands.TagSetIndexBuffer:
		if !v.usages.buffer(cmd.(SetIndexBufferCmd).Buffer).Contains(gputypes.BufferUsageIndex) {
			return validationError("Buffer needs the Index usage bit")
		}
		v.indexBuffer = true
	case commands.TagSetPushConstants:
		c := cmd.(SetPushConstantsCmd)
		if c.Stages&^gputypes.ShaderStagesAll != 0 {
			return validationError("Push constants set on invalid stages")
		}

	case commands.TagDrawArrays:
		return v.checkDraw(false)
	case commands.TagDrawElements:
		return v.checkDraw(true)
	case commands.TagDispatch:
		return v.checkDispatch()

	case commands.TagTransitionBufferUsage:
		c := cmd.(TransitionBufferUsageCmd)
		if !BufferUsagePossible(c.Buffer.allowedUsage, c.Usage) {
			return validationError("Buffer usage is not possible")
		}
		v.usages.setBuffer(c.Buffer, c.Usage)
	case commands.TagTransitionTextureUsage:
		c := cmd.(TransitionTextureUsageCmd)
		if !TextureUsagePossible(c.Texture.allowedUsage, c.Usage) {
			return validationError("Texture usage is not possible")
		}
		v.usages.setTexture(c.Texture, c.Usage)

	case commands.TagCopyBufferToBuffer:
		c := cmd.(CopyBufferToBufferCmd)
		if err := v.needBuffer(c.Src, gputypes.BufferUsageCopySrc); err != nil {
			return err
		}
		return v.needBuffer(c.Dst, gputypes.BufferUsageCopyDst)
	case commands.TagCopyBufferToTexture:
		c := cmd.(CopyBufferTextureCmd)
		if err := v.needBuffer(c.Buffer, gputypes.BufferUsageCopySrc); err != nil {
			return err
		}
		return v.needTexture(c.Region.Texture, gputypes.TextureUsageCopyDst)
	case commands.TagCopyTextureToBuffer:
		c := cmd.(CopyBufferTextureCmd)
		if err := v.needTexture(c.Region.Texture, gputypes.TextureUsageCopySrc); err != nil {
			return err
		}
		return v.needBuffer(c.Buffer, gputypes.BufferUsageCopyDst)
	}
	return nil
}

func (v *commandValidator) needBuffer(b *Buffer, u gputypes.BufferUsage) error {
	if !v.usages.buffer(b).Contains(u) {
		return validationError("Buffer needs the %s usage bit", bufferUsageName(u))
	}
	return nil
}

func (v *commandValidator) needTexture(t *Texture, u gputypes.TextureUsage) error {
	if !v.usages.texture(t).Contains(u) {
		return validationError("Texture needs the %s usage bit", textureUsageName(u))
	}
	return nil
}

func (v *commandValidator) beginRenderPass(rp *RenderPassDescriptor) error {
	var err error
	rp.forEachAttachment(func(t *Texture) {
		if err == nil {
			err = v.needTexture(t, gputypes.TextureUsageRenderAttachment)
		}
	})
	if err != nil {
		return err
	}
	v.renderPass = rp
	v.subpass = 0
	v.state = stateRenderPass
	return nil
}

// checkBindGroups checks that every group populated by layout is bound
// with the identical layout, and that the bound resources are in the
// usage their bindings need.
func (v *commandValidator) checkBindGroups(layout *PipelineLayout) error {
	for g := range uint32(MaxBindGroups) {
		if layout.mask&(1<<g) == 0 {
			continue
		}
		group := v.bindGroups[g]
		if group == nil || group.layout != layout.bindGroupLayouts[g] {
			return validationError("Bind group %d is missing or has an incompatible layout", g)
		}
		var err error
		group.forEachBuffer(func(b *Buffer, u gputypes.BufferUsage) {
			if err == nil {
				err = v.needBuffer(b, u)
			}
		})
		group.forEachTexture(func(t *Texture, u gputypes.TextureUsage) {
			if err == nil {
				err = v.needTexture(t, u)
			}
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (v *commandValidator) checkDraw(indexed bool) error {
	p := v.renderPipeline
	if p == nil {
		return validationError("No active render pipeline")
	}
	if err := v.checkBindGroups(p.layout); err != nil {
		return err
	}
	if p.inputState.inputsSet&^v.vertexBuffers != 0 {
		return validationError("Render pipeline's input state requires vertex buffers not set")
	}
	if indexed {
		if !v.indexBuffer {
			return validationError("Draw elements requires an index buffer")
		}
		if p.indexFormat == gputypes.IndexFormatUndefined {
			return validationError("Render pipeline has no index format")
		}
	}
	return nil
}

func (v *commandValidator) checkDispatch() error {
	if v.computePipeline == nil {
		return validationError("No active compute pipeline")
	}
	return v.checkBindGroups(v.computePipeline.layout)
}

func textureUsageName(u gputypes.TextureUsage) string {
	switch u {
	case gputypes.TextureUsageCopySrc:
		return "CopySrc"
	case gputypes.TextureUsageCopyDst:
		return "CopyDst"
	case gputypes.TextureUsageTextureBinding:
		return "TextureBinding"
	case gputypes.TextureUsageStorageBinding:
		return "StorageBinding"
	case gputypes.TextureUsageRenderAttachment:
		return "RenderAttachment"
	}
	return "requested"
}
