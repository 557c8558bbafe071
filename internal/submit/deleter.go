package submit

import (
	"github.com/gogpu/nxt/internal/serial"
	"github.com/gogpu/wgpu/hal"
)

// fifo is a serial-keyed queue of handles of one HAL kind.
type fifo[T any] struct {
	queue   serial.Queue[T]
	destroy func(T)
}

func (f *fifo[T]) tick(completed serial.Serial) int {
	n := 0
	f.queue.IterateUpTo(completed, func(v T, _ serial.Serial) {
		f.destroy(v)
		n++
	})
	f.queue.ClearUpTo(completed)
	return n
}

// FencedDeleter defers destruction of HAL handles until the GPU has passed
// the serial that was current when they were released. Each handle kind has
// its own FIFO; within a kind handles are destroyed in release order.
type FencedDeleter struct {
	engine *Engine

	buffers          fifo[hal.Buffer]
	textures         fifo[hal.Texture]
	textureViews     fifo[hal.TextureView]
	samplers         fifo[hal.Sampler]
	bindGroupLayouts fifo[hal.BindGroupLayout]
	bindGroups       fifo[hal.BindGroup]
	pipelineLayouts  fifo[hal.PipelineLayout]
	shaderModules    fifo[hal.ShaderModule]
	renderPipelines  fifo[hal.RenderPipeline]
	computePipelines fifo[hal.ComputePipeline]
	fences           fifo[hal.Fence]
}

func newFencedDeleter(e *Engine) *FencedDeleter {
	d := e.device
	return &FencedDeleter{
		engine:           e,
		buffers:          fifo[hal.Buffer]{destroy: d.DestroyBuffer},
		textures:         fifo[hal.Texture]{destroy: d.DestroyTexture},
		textureViews:     fifo[hal.TextureView]{destroy: d.DestroyTextureView},
		samplers:         fifo[hal.Sampler]{destroy: d.DestroySampler},
		bindGroupLayouts: fifo[hal.BindGroupLayout]{destroy: d.DestroyBindGroupLayout},
		bindGroups:       fifo[hal.BindGroup]{destroy: d.DestroyBindGroup},
		pipelineLayouts:  fifo[hal.PipelineLayout]{destroy: d.DestroyPipelineLayout},
		shaderModules:    fifo[hal.ShaderModule]{destroy: d.DestroyShaderModule},
		renderPipelines:  fifo[hal.RenderPipeline]{destroy: d.DestroyRenderPipeline},
		computePipelines: fifo[hal.ComputePipeline]{destroy: d.DestroyComputePipeline},
		fences:           fifo[hal.Fence]{destroy: d.DestroyFence},
	}
}

func (d *FencedDeleter) serial() serial.Serial { return d.engine.nextSerial }

// DeleteBuffer destroys b once the current serial has passed.
func (d *FencedDeleter) DeleteBuffer(b hal.Buffer) { d.buffers.queue.Enqueue(b, d.serial()) }

// DeleteTexture destroys t once the current serial has passed.
func (d *FencedDeleter) DeleteTexture(t hal.Texture) { d.textures.queue.Enqueue(t, d.serial()) }

func (d *FencedDeleter) DeleteTextureView(v hal.TextureView) {
	d.textureViews.queue.Enqueue(v, d.serial())
}

func (d *FencedDeleter) DeleteSampler(s hal.Sampler) { d.samplers.queue.Enqueue(s, d.serial()) }

func (d *FencedDeleter) DeleteBindGroupLayout(l hal.BindGroupLayout) {
	d.bindGroupLayouts.queue.Enqueue(l, d.serial())
}

func (d *FencedDeleter) DeleteBindGroup(g hal.BindGroup) { d.bindGroups.queue.Enqueue(g, d.serial()) }

func (d *FencedDeleter) DeletePipelineLayout(l hal.PipelineLayout) {
	d.pipelineLayouts.queue.Enqueue(l, d.serial())
}

func (d *FencedDeleter) DeleteShaderModule(m hal.ShaderModule) {
	d.shaderModules.queue.Enqueue(m, d.serial())
}

func (d *FencedDeleter) DeleteRenderPipeline(p hal.RenderPipeline) {
	d.renderPipelines.queue.Enqueue(p, d.serial())
}

func (d *FencedDeleter) DeleteComputePipeline(p hal.ComputePipeline) {
	d.computePipelines.queue.Enqueue(p, d.serial())
}

// DeleteFence destroys f once the current serial has passed.
func (d *FencedDeleter) DeleteFence(f hal.Fence) { d.fences.queue.Enqueue(f, d.serial()) }

// Pending returns the number of handles waiting for their serial.
func (d *FencedDeleter) Pending() int {
	return d.buffers.queue.Len() + d.textures.queue.Len() + d.textureViews.queue.Len() +
		d.samplers.queue.Len() + d.bindGroupLayouts.queue.Len() + d.bindGroups.queue.Len() +
		d.pipelineLayouts.queue.Len() + d.shaderModules.queue.Len() +
		d.renderPipelines.queue.Len() + d.computePipelines.queue.Len() + d.fences.queue.Len()
}

// Tick destroys every handle whose serial is at most completed.
// Views and groups go before the objects they reference.
func (d *FencedDeleter) Tick(completed serial.Serial) {
	n := d.bindGroups.tick(completed)
	n += d.textureViews.tick(completed)
	n += d.renderPipelines.tick(completed)
	n += d.computePipelines.tick(completed)
	n += d.pipelineLayouts.tick(completed)
	n += d.bindGroupLayouts.tick(completed)
	n += d.shaderModules.tick(completed)
	n += d.samplers.tick(completed)
	n += d.buffers.tick(completed)
	n += d.textures.tick(completed)
	n += d.fences.tick(completed)
	if n > 0 {
		slogger().Debug("submit: destroyed handles", "count", n, "serial", uint64(completed))
	}
}
