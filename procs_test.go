package nxt

import (
	"reflect"
	"testing"

	"github.com/gogpu/gputypes"
)

func TestProcTablesComplete(t *testing.T) {
	for name, p := range map[string]*Procs{
		"validating":     ValidatingProcs(),
		"non-validating": NonValidatingProcs(),
	} {
		v := reflect.ValueOf(p).Elem()
		for i := range v.NumField() {
			if v.Field(i).IsNil() {
				t.Errorf("%s table has no %s", name, v.Type().Field(i).Name)
			}
		}
	}
}

func TestBadValues(t *testing.T) {
	const unknownBit = 1 << 30

	tests := []struct {
		method string
		call   func(h *harness)
	}{
		{"DeviceCreateBindGroupLayout", func(h *harness) {
			h.device.CreateBindGroupLayout(nil)
		}},
		{"DeviceCreatePipelineLayout", func(h *harness) {
			h.device.CreatePipelineLayout(nil)
		}},
		{"DeviceCreateSampler", func(h *harness) {
			h.device.CreateSampler(&SamplerDescriptor{MagFilter: gputypes.FilterMode(99)})
		}},
		{"BufferTransitionUsage", func(h *harness) {
			b := h.buffer(4, gputypes.BufferUsageVertex, gputypes.BufferUsageVertex)
			defer b.Release()
			b.TransitionUsage(unknownBit)
		}},
		{"BufferMapReadAsync", func(h *harness) {
			b := h.buffer(4, gputypes.BufferUsageMapRead, gputypes.BufferUsageMapRead)
			defer b.Release()
			b.MapReadAsync(0, 4, nil)
		}},
		{"BufferBuilderSetAllowedUsage", func(h *harness) {
			h.device.CreateBufferBuilder().SetAllowedUsage(unknownBit)
		}},
		{"TextureBuilderSetFormat", func(h *harness) {
			h.device.CreateTextureBuilder().SetFormat(gputypes.TextureFormat(9999))
		}},
		{"TextureBuilderSetDimension", func(h *harness) {
			h.device.CreateTextureBuilder().SetDimension(gputypes.TextureDimension(7))
		}},
		{"TextureWriteImage", func(h *harness) {
			tex := h.texture(4, 4, gputypes.TextureFormatRGBA8Unorm, gputypes.TextureUsageCopyDst, gputypes.TextureUsageCopyDst)
			defer tex.Release()
			tex.WriteImage(nil, false)
		}},
		{"BindGroupBuilderSetBufferViews", func(h *harness) {
			h.device.CreateBindGroupBuilder().SetBufferViews(0, []*BufferView{nil})
		}},
		{"InputStateBuilderSetInput", func(h *harness) {
			h.device.CreateInputStateBuilder().SetInput(0, 16, gputypes.VertexStepModeUndefined)
		}},
		{"BlendStateBuilderSetColorBlend", func(h *harness) {
			h.device.CreateBlendStateBuilder().SetColorBlend(gputypes.BlendOperation(42), gputypes.BlendFactorOne, gputypes.BlendFactorZero)
		}},
		{"RenderPipelineBuilderSetStage", func(h *harness) {
			vs := h.shader(vertexWGSL)
			defer vs.Release()
			h.device.CreateRenderPipelineBuilder().
				SetStage(gputypes.ShaderStageVertex|gputypes.ShaderStageFragment, vs, "vs_main")
		}},
		{"ComputePipelineBuilderSetStage", func(h *harness) {
			h.device.CreateComputePipelineBuilder().SetStage(gputypes.ShaderStageCompute, nil, "cs_main")
		}},
		{"CommandBufferBuilderSetPushConstants", func(h *harness) {
			h.device.CreateCommandBufferBuilder().SetPushConstants(0, 0, []uint32{1})
		}},
		{"CommandBufferBuilderBeginRenderPass", func(h *harness) {
			h.device.CreateCommandBufferBuilder().BeginRenderPass(nil)
		}},
		{"SwapChainBuilderSetImplementation", func(h *harness) {
			h.device.CreateSwapChainBuilder().SetImplementation(nil)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			h := newHarness(t)
			h.expectError("Bad value in "+tt.method, func() { tt.call(h) })
		})
	}
}

func TestBadValuePoisonsBuilder(t *testing.T) {
	h := newHarness(t)
	b := h.device.CreateBufferBuilder()

	h.expectError("Bad value in BufferBuilderSetAllowedUsage", func() { b.SetAllowedUsage(1 << 30) })
	h.expectNoError(func() {
		b.SetSize(4)
		if buf := b.GetResult(); buf != nil {
			t.Error("builder produced a buffer after a bad value")
		}
	})
}

func TestWithoutValidation(t *testing.T) {
	h := newHarness(t, WithoutValidation())
	d := h.device
	if d.Procs() == nil {
		t.Fatal("Procs() = nil")
	}

	// Argument checks are skipped; the operation's own checks remain.
	b := h.buffer(4, gputypes.BufferUsageVertex, gputypes.BufferUsageVertex)
	defer b.Release()
	h.expectError("Buffer usage is not possible", func() { b.TransitionUsage(1 << 30) })

	// Submissions are not checked against the current usages.
	src := h.buffer(16, gputypes.BufferUsageCopySrc|gputypes.BufferUsageCopyDst, gputypes.BufferUsageCopySrc)
	defer src.Release()
	dst := h.buffer(16, gputypes.BufferUsageCopyDst, gputypes.BufferUsageCopyDst)
	defer dst.Release()
	cb := d.CreateCommandBufferBuilder().CopyBufferToBuffer(src, 0, dst, 0, 16).GetResult()
	defer cb.Release()
	src.TransitionUsage(gputypes.BufferUsageCopyDst)

	queue := d.CreateQueue()
	defer queue.Release()
	h.expectNoError(func() { queue.Submit(cb) })
}
