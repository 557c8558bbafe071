package nxt

import (
	"image"
	"math"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// gatedQueue holds back completion of submissions past limit and counts
// submissions and presents. Submit fails with err when it is set.
type gatedQueue struct {
	*noop.Queue
	limit    uint64
	submits  int
	presents int
	err      error
}

func (q *gatedQueue) Submit(cbs []hal.CommandBuffer) (uint64, error) {
	if q.err != nil {
		return 0, q.err
	}
	q.submits++
	return q.Queue.Submit(cbs)
}

func (q *gatedQueue) Present(s hal.Surface, t hal.SurfaceTexture, damage []image.Rectangle) error {
	q.presents++
	return q.Queue.Present(s, t, damage)
}

func (q *gatedQueue) PollCompleted() uint64 {
	return min(q.limit, q.Queue.PollCompleted())
}

// hold stops completion at the submissions made so far.
func (q *gatedQueue) hold() { q.limit = q.Queue.PollCompleted() }

// releaseAll lets every submission complete.
func (q *gatedQueue) releaseAll() { q.limit = math.MaxUint64 }

// countingDevice counts backend object creation and destruction.
type countingDevice struct {
	*noop.Device
	bindGroupLayouts  int
	pipelineLayouts   int
	buffersDestroyed  int
	texturesDestroyed int
}

func (d *countingDevice) CreateBindGroupLayout(desc *hal.BindGroupLayoutDescriptor) (hal.BindGroupLayout, error) {
	d.bindGroupLayouts++
	return d.Device.CreateBindGroupLayout(desc)
}

func (d *countingDevice) CreatePipelineLayout(desc *hal.PipelineLayoutDescriptor) (hal.PipelineLayout, error) {
	d.pipelineLayouts++
	return d.Device.CreatePipelineLayout(desc)
}

func (d *countingDevice) DestroyBuffer(b hal.Buffer) {
	d.buffersDestroyed++
	d.Device.DestroyBuffer(b)
}

func (d *countingDevice) DestroyTexture(t hal.Texture) {
	d.texturesDestroyed++
	d.Device.DestroyTexture(t)
}

// harness is a device over the noop backend that records every error
// reported to the error callback.
type harness struct {
	t      *testing.T
	device *Device
	hal    *countingDevice
	queue  *gatedQueue
	errors []string
}

func newHarness(t *testing.T, opts ...DeviceOption) *harness {
	t.Helper()
	h := &harness{
		t:     t,
		hal:   &countingDevice{Device: &noop.Device{}},
		queue: &gatedQueue{Queue: &noop.Queue{}, limit: math.MaxUint64},
	}
	h.device = NewDeviceFromHAL(h.hal, h.queue, nil, opts...)
	h.device.SetErrorCallback(func(msg string) { h.errors = append(h.errors, msg) })
	t.Cleanup(func() {
		h.queue.releaseAll()
		h.device.Release()
	})
	return h
}

// newTestDevice returns a validating noop device.
func newTestDevice(t *testing.T) *Device {
	t.Helper()
	return newHarness(t).device
}

// expectError runs fn and checks that it reports exactly one error
// containing want.
func (h *harness) expectError(want string, fn func()) {
	h.t.Helper()
	h.errors = nil
	fn()
	switch {
	case len(h.errors) != 1:
		h.t.Errorf("got %d errors %q, want exactly one containing %q", len(h.errors), h.errors, want)
	case !strings.Contains(h.errors[0], want):
		h.t.Errorf("error = %q, want it to contain %q", h.errors[0], want)
	}
	h.errors = nil
}

// expectNoError runs fn and checks that it reports nothing.
func (h *harness) expectNoError(fn func()) {
	h.t.Helper()
	h.errors = nil
	fn()
	if len(h.errors) != 0 {
		h.t.Errorf("unexpected errors: %q", h.errors)
	}
	h.errors = nil
}

func (h *harness) tick(n int) {
	for range n {
		h.device.Tick()
	}
}

func (h *harness) buffer(size uint64, allowed, initial gputypes.BufferUsage) *Buffer {
	h.t.Helper()
	b := h.device.CreateBufferBuilder().
		SetSize(size).
		SetAllowedUsage(allowed).
		SetInitialUsage(initial).
		GetResult()
	if b == nil {
		h.t.Fatalf("buffer creation failed: %q", h.errors)
	}
	return b
}

func (h *harness) texture(width, height uint32, format gputypes.TextureFormat, allowed, initial gputypes.TextureUsage) *Texture {
	h.t.Helper()
	tex := h.device.CreateTextureBuilder().
		SetDimension(gputypes.TextureDimension2D).
		SetExtent(width, height, 1).
		SetFormat(format).
		SetMipLevels(1).
		SetAllowedUsage(allowed).
		SetInitialUsage(initial).
		GetResult()
	if tex == nil {
		h.t.Fatalf("texture creation failed: %q", h.errors)
	}
	return tex
}

func (h *harness) shader(source string) *ShaderModule {
	h.t.Helper()
	m := h.device.CreateShaderModuleBuilder().SetWGSL(source).GetResult()
	if m == nil {
		h.t.Fatalf("shader creation failed: %q", h.errors)
	}
	return m
}

const (
	vertexWGSL = `
@vertex
fn vs_main(@builtin(vertex_index) i: u32) -> @builtin(position) vec4<f32> {
    return vec4<f32>(f32(i), 0.0, 0.0, 1.0);
}
`
	vertexInputWGSL = `
@vertex
fn vs_main(@location(0) pos: vec4<f32>) -> @builtin(position) vec4<f32> {
    return pos;
}
`
	fragmentWGSL = `
@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 0.0, 0.0, 1.0);
}
`
	computeWGSL = `
@group(0) @binding(0) var<storage, read_write> data: array<u32>;

@compute @workgroup_size(1)
fn cs_main(@builtin(global_invocation_id) id: vec3<u32>) {
    data[id.x] = data[id.x] * 2u;
}
`
)

// renderSetup is a single color attachment render pass with a matching
// pipeline.
type renderSetup struct {
	target   *Texture
	pass     *RenderPassDescriptor
	pipeline *RenderPipeline
}

func (h *harness) renderSetup() renderSetup {
	h.t.Helper()
	target := h.texture(16, 16, gputypes.TextureFormatRGBA8Unorm,
		gputypes.TextureUsageRenderAttachment|gputypes.TextureUsageCopySrc,
		gputypes.TextureUsageRenderAttachment)
	view := target.CreateTextureViewBuilder().GetResult()
	pass := h.device.CreateRenderPassDescriptorBuilder().
		SetColorAttachment(0, view, gputypes.LoadOpClear).
		GetResult()
	view.Release()
	if pass == nil {
		h.t.Fatalf("render pass creation failed: %q", h.errors)
	}

	vs, fs := h.shader(vertexWGSL), h.shader(fragmentWGSL)
	pipeline := h.device.CreateRenderPipelineBuilder().
		SetStage(gputypes.ShaderStageVertex, vs, "vs_main").
		SetStage(gputypes.ShaderStageFragment, fs, "fs_main").
		SetSubpass(pass, 0).
		GetResult()
	vs.Release()
	fs.Release()
	if pipeline == nil {
		h.t.Fatalf("render pipeline creation failed: %q", h.errors)
	}
	h.t.Cleanup(func() {
		pipeline.Release()
		pass.Release()
		target.Release()
	})
	return renderSetup{target: target, pass: pass, pipeline: pipeline}
}

// computeSetup is a compute pipeline with one storage buffer bound at
// group 0.
type computeSetup struct {
	buffer   *Buffer
	group    *BindGroup
	pipeline *ComputePipeline
}

func (h *harness) computeSetup() computeSetup {
	h.t.Helper()
	d := h.device
	bgl := d.CreateBindGroupLayout(&BindGroupLayoutDescriptor{
		Bindings: []BindGroupLayoutBinding{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Type: BindingTypeStorageBuffer},
		},
	})
	layout := d.CreatePipelineLayout(&PipelineLayoutDescriptor{BindGroupLayouts: []*BindGroupLayout{bgl}})

	buf := h.buffer(64, gputypes.BufferUsageStorage|gputypes.BufferUsageCopyDst|gputypes.BufferUsageCopySrc,
		gputypes.BufferUsageStorage)
	view := buf.CreateBufferViewBuilder().SetExtent(0, 64).GetResult()
	group := d.CreateBindGroupBuilder().
		SetLayout(bgl).
		SetBufferViews(0, []*BufferView{view}).
		GetResult()
	view.Release()

	cs := h.shader(computeWGSL)
	pipeline := d.CreateComputePipelineBuilder().
		SetLayout(layout).
		SetStage(gputypes.ShaderStageCompute, cs, "cs_main").
		GetResult()
	cs.Release()
	layout.Release()
	bgl.Release()
	if group == nil || pipeline == nil {
		h.t.Fatalf("compute setup failed: %q", h.errors)
	}
	h.t.Cleanup(func() {
		pipeline.Release()
		group.Release()
		buf.Release()
	})
	return computeSetup{buffer: buf, group: group, pipeline: pipeline}
}
