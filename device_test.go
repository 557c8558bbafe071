package nxt

import (
	"bytes"
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/gputypes"
	_ "github.com/gogpu/wgpu/hal/noop"
)

func TestNewDeviceNoop(t *testing.T) {
	d, err := NewDevice(nil, WithBackend(BackendNoop), WithLabel("noop"))
	if err != nil {
		t.Fatalf("NewDevice() = %v", err)
	}
	defer d.Release()

	if d.NextSerial() != 1 || d.CompletedSerial() != 0 {
		t.Errorf("serials = %d/%d, want 1/0", d.NextSerial(), d.CompletedSerial())
	}
	if d.Limits() != gputypes.DefaultLimits() {
		t.Error("zero Limits should resolve to gputypes.DefaultLimits")
	}
	if d.Adapter() == nil {
		t.Error("Adapter() = nil for a device opened through NewDevice")
	}
}

func TestNewDeviceUnknownBackend(t *testing.T) {
	_, err := NewDevice(&DeviceDescriptor{Backend: "nonexistent"})
	if !errors.Is(err, ErrNoBackend) {
		t.Errorf("NewDevice() error = %v, want ErrNoBackend", err)
	}
}

func TestSerialAdvanceWithoutWork(t *testing.T) {
	h := newHarness(t)
	d := h.device

	for i := uint64(1); i <= 3; i++ {
		d.Tick()
		if d.NextSerial() != i+1 || d.CompletedSerial() != i {
			t.Errorf("after %d ticks serials = %d/%d, want %d/%d",
				i, d.NextSerial(), d.CompletedSerial(), i+1, i)
		}
	}
	if h.queue.submits != 0 {
		t.Errorf("idle ticks made %d submissions, want 0", h.queue.submits)
	}
}

func TestBindGroupLayoutDeduplication(t *testing.T) {
	h := newHarness(t)
	d := h.device
	desc := &BindGroupLayoutDescriptor{
		Bindings: []BindGroupLayoutBinding{
			{Binding: 0, Visibility: gputypes.ShaderStageVertex, Type: BindingTypeUniformBuffer},
			{Binding: 3, Visibility: gputypes.ShaderStageFragment, Type: BindingTypeSampler},
		},
	}

	a := d.CreateBindGroupLayout(desc)
	b := d.CreateBindGroupLayout(&BindGroupLayoutDescriptor{
		Label:    "different label, same structure",
		Bindings: append([]BindGroupLayoutBinding(nil), desc.Bindings...),
	})
	if a == nil || a != b {
		t.Fatalf("equal descriptors returned %p and %p, want one object", a, b)
	}
	if h.hal.bindGroupLayouts != 1 || d.BindGroupLayoutCacheLen() != 1 {
		t.Errorf("backend layouts = %d, cache = %d, want 1 and 1", h.hal.bindGroupLayouts, d.BindGroupLayoutCacheLen())
	}

	other := d.CreateBindGroupLayout(&BindGroupLayoutDescriptor{
		Bindings: []BindGroupLayoutBinding{
			{Binding: 0, Visibility: gputypes.ShaderStageFragment, Type: BindingTypeUniformBuffer},
		},
	})
	if other == a {
		t.Error("different visibility deduplicated to the same layout")
	}
	other.Release()

	a.Release()
	if d.BindGroupLayoutCacheLen() != 1 {
		t.Error("layout left the cache while still referenced")
	}
	b.Release()
	if d.BindGroupLayoutCacheLen() != 0 {
		t.Errorf("cache len = %d after last release, want 0", d.BindGroupLayoutCacheLen())
	}

	c := d.CreateBindGroupLayout(desc)
	defer c.Release()
	if h.hal.bindGroupLayouts != 3 {
		t.Errorf("backend layouts = %d, want a fresh layout after the cache entry died", h.hal.bindGroupLayouts)
	}
}

func TestPipelineLayoutDeduplication(t *testing.T) {
	h := newHarness(t)
	d := h.device
	bgl := d.CreateBindGroupLayout(&BindGroupLayoutDescriptor{
		Bindings: []BindGroupLayoutBinding{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Type: BindingTypeStorageBuffer},
		},
	})
	defer bgl.Release()

	a := d.CreatePipelineLayout(&PipelineLayoutDescriptor{BindGroupLayouts: []*BindGroupLayout{bgl}})
	b := d.CreatePipelineLayout(&PipelineLayoutDescriptor{BindGroupLayouts: []*BindGroupLayout{bgl}})
	defer a.Release()
	defer b.Release()
	if a != b || h.hal.pipelineLayouts != 1 {
		t.Errorf("pipeline layouts not shared: %p %p, backend = %d", a, b, h.hal.pipelineLayouts)
	}
	if bgl.RefCount() != 2 {
		t.Errorf("bind group layout refs = %d, want 2 (caller + pipeline layout)", bgl.RefCount())
	}
}

func TestBuilderConsumed(t *testing.T) {
	h := newHarness(t)
	b := h.device.CreateBufferBuilder().
		SetSize(16).
		SetAllowedUsage(gputypes.BufferUsageVertex)

	var buf *Buffer
	h.expectNoError(func() { buf = b.GetResult() })
	if buf == nil {
		t.Fatal("GetResult() = nil")
	}
	defer buf.Release()

	h.expectError(msgBuilderConsumed, func() {
		if b.GetResult() != nil {
			t.Error("second GetResult() returned an object")
		}
	})
	h.expectError(msgBuilderConsumed, func() { b.SetSize(32) })
}

func TestBuilderResultCallback(t *testing.T) {
	tests := []struct {
		name   string
		build  func(*BufferBuilder)
		status BuilderErrorStatus
		errors int
	}{
		{
			name: "success",
			build: func(b *BufferBuilder) {
				b.SetSize(4).SetAllowedUsage(gputypes.BufferUsageUniform)
			},
			status: BuilderErrorStatusSuccess,
		},
		{
			name:   "missing size",
			build:  func(b *BufferBuilder) { b.SetAllowedUsage(gputypes.BufferUsageUniform) },
			status: BuilderErrorStatusUnknown,
			errors: 1,
		},
		{
			// The repeated setter reports right away; GetResult stays silent.
			name: "poisoned",
			build: func(b *BufferBuilder) {
				b.SetSize(4).SetSize(8).SetAllowedUsage(gputypes.BufferUsageUniform)
			},
			status: BuilderErrorStatusUnknown,
			errors: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			calls := 0
			var got BuilderErrorStatus
			b := h.device.CreateBufferBuilder().SetResultCallback(func(s BuilderErrorStatus, _ string) {
				calls++
				got = s
			})
			tt.build(b)
			if buf := b.GetResult(); buf != nil {
				buf.Release()
			}
			if calls != 1 || got != tt.status {
				t.Errorf("callback calls = %d status = %v, want 1 call with %v", calls, got, tt.status)
			}
			if len(h.errors) != tt.errors {
				t.Errorf("errors = %q, want %d", h.errors, tt.errors)
			}
		})
	}
}

func TestFencedDestroy(t *testing.T) {
	h := newHarness(t)
	d := h.device
	src := h.buffer(16, gputypes.BufferUsageCopySrc|gputypes.BufferUsageMapWrite, gputypes.BufferUsageCopySrc)
	dst := h.buffer(16, gputypes.BufferUsageCopyDst, gputypes.BufferUsageCopyDst)
	defer dst.Release()

	cb := d.CreateCommandBufferBuilder().CopyBufferToBuffer(src, 0, dst, 0, 16).GetResult()
	queue := d.CreateQueue()
	defer queue.Release()

	h.queue.hold()
	h.expectNoError(func() { queue.Submit(cb) })
	cb.Release()
	src.Release()

	h.tick(3)
	if h.hal.buffersDestroyed != 0 {
		t.Fatalf("buffer destroyed while its submission is in flight")
	}

	h.queue.releaseAll()
	h.tick(3)
	if h.hal.buffersDestroyed != 1 {
		t.Errorf("buffers destroyed = %d after completion, want 1", h.hal.buffersDestroyed)
	}
}

func TestFencedDestroyTexture(t *testing.T) {
	h := newHarness(t)
	d := h.device
	src := h.buffer(64, gputypes.BufferUsageCopySrc, gputypes.BufferUsageCopySrc)
	defer src.Release()
	tex := h.texture(4, 4, gputypes.TextureFormatRGBA8Unorm, gputypes.TextureUsageCopyDst, gputypes.TextureUsageCopyDst)

	cb := d.CreateCommandBufferBuilder().
		CopyBufferToTexture(src, 0, 16, TextureRegion{Texture: tex, Width: 4, Height: 4, Depth: 1}).
		GetResult()
	if cb == nil {
		t.Fatalf("command buffer creation failed: %q", h.errors)
	}
	queue := d.CreateQueue()
	defer queue.Release()

	h.queue.hold()
	h.expectNoError(func() { queue.Submit(cb) })
	cb.Release()
	tex.Release()

	h.tick(3)
	if h.hal.texturesDestroyed != 0 {
		t.Fatalf("texture destroyed while its submission is in flight")
	}

	h.queue.releaseAll()
	h.tick(3)
	if h.hal.texturesDestroyed != 1 {
		t.Errorf("textures destroyed = %d after completion, want 1", h.hal.texturesDestroyed)
	}
}

func TestMapReadAfterSetSubData(t *testing.T) {
	h := newHarness(t)
	buf := h.buffer(8, gputypes.BufferUsageMapRead|gputypes.BufferUsageCopyDst, gputypes.BufferUsageCopyDst)
	defer buf.Release()

	want := []byte{1, 2, 3, 4}
	h.expectNoError(func() {
		buf.SetSubData(4, want)
		buf.TransitionUsage(gputypes.BufferUsageMapRead)
	})

	calls := 0
	var got []byte
	h.expectNoError(func() {
		buf.MapReadAsync(4, 4, func(status BufferMapAsyncStatus, data []byte) {
			calls++
			if status != BufferMapAsyncStatusSuccess {
				t.Errorf("map status = %v, want success", status)
			}
			got = bytes.Clone(data)
		})
	})
	if calls != 0 {
		t.Fatal("map callback fired synchronously")
	}
	if !buf.IsMapped() {
		t.Error("IsMapped() = false with a map request outstanding")
	}

	h.tick(2)
	if calls != 1 {
		t.Fatalf("map callback fired %d times, want 1", calls)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("mapped data = %v, want %v", got, want)
	}

	h.expectError("Buffer is mapped", func() { buf.TransitionUsage(gputypes.BufferUsageCopyDst) })
	buf.Unmap()
	if buf.IsMapped() {
		t.Error("IsMapped() = true after Unmap")
	}
}

func TestUnmapCancelsPendingMap(t *testing.T) {
	h := newHarness(t)
	buf := h.buffer(4, gputypes.BufferUsageMapWrite|gputypes.BufferUsageCopySrc, gputypes.BufferUsageMapWrite)
	defer buf.Release()

	var statuses []BufferMapAsyncStatus
	buf.MapWriteAsync(0, 4, func(status BufferMapAsyncStatus, _ []byte) {
		statuses = append(statuses, status)
	})
	buf.Unmap()
	h.tick(2)

	if len(statuses) != 1 || statuses[0] != BufferMapAsyncStatusUnknown {
		t.Errorf("statuses = %v, want one Unknown", statuses)
	}
}

func TestComputeThenRenderSingleSubmission(t *testing.T) {
	h := newHarness(t)
	d := h.device
	c := h.computeSetup()
	r := h.renderSetup()

	cb := d.CreateCommandBufferBuilder().
		BeginComputePass().
		SetComputePipeline(c.pipeline).
		SetBindGroup(0, c.group).
		Dispatch(1, 1, 1).
		EndComputePass().
		BeginRenderPass(r.pass).
		BeginRenderSubpass().
		SetRenderPipeline(r.pipeline).
		DrawArrays(3, 1, 0, 0).
		EndRenderSubpass().
		EndRenderPass().
		GetResult()
	if cb == nil {
		t.Fatalf("command buffer failed: %q", h.errors)
	}
	defer cb.Release()

	queue := d.CreateQueue()
	defer queue.Release()

	next := d.NextSerial()
	submits := h.queue.submits
	h.expectNoError(func() { queue.Submit(cb) })

	if got := h.queue.submits - submits; got != 1 {
		t.Errorf("backend submissions = %d, want 1", got)
	}
	if d.NextSerial() != next+1 {
		t.Errorf("NextSerial = %d, want %d", d.NextSerial(), next+1)
	}
}

func TestDeviceReleaseFlushesDeletions(t *testing.T) {
	h := newHarness(t)
	d := h.device

	buf := h.buffer(16, gputypes.BufferUsageVertex, gputypes.BufferUsageVertex)
	h.queue.hold()
	buf.Release()
	if h.hal.buffersDestroyed != 0 {
		t.Fatal("buffer destroyed before the device ticked")
	}

	d.Release()
	d.Reference() // balanced by the harness cleanup, which finds it closed
	if h.hal.buffersDestroyed != 1 {
		t.Errorf("buffers destroyed at shutdown = %d, want 1", h.hal.buffersDestroyed)
	}
	h.expectError("device lost", func() { d.CreateBufferBuilder().SetSize(4).GetResult() })
}

func TestDeviceReleaseCancelsMaps(t *testing.T) {
	h := newHarness(t)
	d := h.device
	buf := h.buffer(16, gputypes.BufferUsageMapRead, gputypes.BufferUsageMapRead)

	var statuses []BufferMapAsyncStatus
	h.queue.hold()
	h.expectNoError(func() {
		buf.MapReadAsync(0, 16, func(status BufferMapAsyncStatus, data []byte) {
			statuses = append(statuses, status)
			if data != nil {
				t.Error("data delivered with a failed map")
			}
		})
	})

	d.Release()
	d.Reference()
	if want := []BufferMapAsyncStatus{BufferMapAsyncStatusUnknown}; !slices.Equal(statuses, want) {
		t.Errorf("statuses at shutdown = %v, want %v", statuses, want)
	}
	buf.Release()
	if len(statuses) != 1 {
		t.Errorf("map callback fired %d times, want 1", len(statuses))
	}
}

func TestMemoryBudget(t *testing.T) {
	h := newHarness(t, WithMemoryBudget(100))
	a := h.buffer(64, gputypes.BufferUsageUniform, gputypes.BufferUsageUniform)
	defer a.Release()

	h.expectError("out of memory", func() {
		if b := h.device.CreateBufferBuilder().SetSize(64).SetAllowedUsage(gputypes.BufferUsageUniform).GetResult(); b != nil {
			t.Error("allocation past the budget succeeded")
		}
	})
	if s := h.device.MemoryStats(); s.UsedBytes != 64 {
		t.Errorf("used = %d, want 64", s.UsedBytes)
	}
}
