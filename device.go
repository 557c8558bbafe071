package nxt

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/nxt/internal/cache"
	"github.com/gogpu/nxt/internal/serial"
	"github.com/gogpu/nxt/internal/submit"
	"github.com/gogpu/wgpu/hal"
)

// ErrorCallback receives the message of every failed call.
type ErrorCallback func(message string)

// MemoryStats reports device memory accounting.
type MemoryStats = submit.MemoryStats

// Device owns one logical GPU: its caches, the serial clock and the
// submission engine. The public API is single-threaded per device; only
// Reference and Release on resources may be called from other goroutines.
type Device struct {
	refs atomic.Int32
	desc DeviceDescriptor

	instance hal.Instance
	adapter  hal.Adapter
	info     gputypes.AdapterInfo

	engine *submit.Engine
	procs  *Procs

	errorCallback ErrorCallback

	bindGroupLayouts  *cache.Content[*BindGroupLayout]
	pipelineLayouts   *cache.Content[*PipelineLayout]
	attachmentLayouts *cache.Content[*AttachmentLayout]
	shaderCode        *cache.LRU[string, compiledWGSL]
	nextID            uint64

	queue     *Queue
	swapChain *SwapChain

	// submitted command buffers, released once their serial completes
	inFlight serial.Queue[*CommandBuffer]

	closed bool
}

// NewDevice opens a device on a registered HAL backend.
//
// The backend is chosen by desc.Backend or, when empty, by priority
// (vulkan, metal, dx12, gl, noop). The first adapter exposing every
// required feature is opened. desc may be nil; opts are applied on top.
func NewDevice(desc *DeviceDescriptor, opts ...DeviceOption) (*Device, error) {
	d := resolveDescriptor(desc, opts)

	registry := backendRegistry()
	name := d.Backend
	if name == "" {
		name = registry.BestName()
	}
	backend := registry.Get(name)
	if backend == nil {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrNoBackend, name, Backends())
	}

	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Backends: gputypes.BackendsAll})
	if err != nil {
		return nil, fmt.Errorf("nxt: create %s instance: %w", name, err)
	}

	var exposed *hal.ExposedAdapter
	adapters := instance.EnumerateAdapters(nil)
	for i := range adapters {
		if adapters[i].Features.ContainsAll(d.RequiredFeatures) {
			exposed = &adapters[i]
			break
		}
	}
	if exposed == nil {
		instance.Destroy()
		return nil, fmt.Errorf("%w: %s backend, %d adapters", ErrNoAdapter, name, len(adapters))
	}

	open, err := exposed.Adapter.Open(d.RequiredFeatures, d.Limits)
	if err != nil {
		exposed.Adapter.Destroy()
		instance.Destroy()
		return nil, fmt.Errorf("nxt: open adapter %q: %w", exposed.Info.Name, err)
	}

	dev := newDevice(open.Device, open.Queue, d)
	dev.instance = instance
	dev.adapter = exposed.Adapter
	dev.info = exposed.Info
	Logger().Info("nxt: device opened",
		"backend", name, "adapter", exposed.Info.Name, "label", d.Label)
	return dev, nil
}

// NewDeviceFromHAL wraps an already opened HAL device and its queue.
// The device takes ownership of both and destroys them on shutdown.
func NewDeviceFromHAL(device hal.Device, queue hal.Queue, desc *DeviceDescriptor, opts ...DeviceOption) *Device {
	return newDevice(device, queue, resolveDescriptor(desc, opts))
}

func newDevice(device hal.Device, queue hal.Queue, desc DeviceDescriptor) *Device {
	d := &Device{
		desc:              desc,
		engine:            submit.NewEngine(device, queue, submit.Config{MemoryBudget: desc.MemoryBudget}),
		bindGroupLayouts:  cache.NewContent[*BindGroupLayout](),
		pipelineLayouts:   cache.NewContent[*PipelineLayout](),
		attachmentLayouts: cache.NewContent[*AttachmentLayout](),
		shaderCode:        cache.NewLRU[string, compiledWGSL](shaderCacheSize),
	}
	d.refs.Store(1)
	if desc.DisableValidation {
		d.procs = NonValidatingProcs()
	} else {
		d.procs = ValidatingProcs()
	}
	return d
}

// SetErrorCallback installs the callback receiving every error message.
// Exactly one message is reported per failed call.
func (d *Device) SetErrorCallback(fn ErrorCallback) {
	d.errorCallback = fn
}

// handleError reports err to the error callback.
func (d *Device) handleError(err error) {
	Logger().Debug("nxt: error", "label", d.desc.Label, "err", err)
	if d.errorCallback != nil {
		d.errorCallback(err.Error())
	}
}

// consumedError reports err, if any, and returns whether there was one.
func (d *Device) consumedError(err error) bool {
	if err == nil {
		return false
	}
	d.handleError(err)
	return true
}

// Procs returns the proc table the device dispatches through.
func (d *Device) Procs() *Procs {
	return d.procs
}

// Tick advances the serial clock: finished submissions are retired, their
// command pools recycled, deferred deletions and map callbacks run, and
// pending internal commands are submitted.
func (d *Device) Tick() {
	if d.closed {
		d.handleError(ErrDeviceLost)
		return
	}
	if d.consumedError(d.engine.Tick()) {
		return
	}
	d.releaseCompletedCommandBuffers()
}

// NextSerial returns the serial the next submission will be stamped with.
func (d *Device) NextSerial() uint64 {
	return uint64(d.engine.NextSerial())
}

// CompletedSerial returns the highest serial known to be finished.
func (d *Device) CompletedSerial() uint64 {
	return uint64(d.engine.CompletedSerial())
}

// MemoryStats returns memory accounting statistics.
func (d *Device) MemoryStats() MemoryStats {
	return d.engine.Memory().Stats()
}

// Limits returns the limits the device was opened with.
func (d *Device) Limits() gputypes.Limits {
	return d.desc.Limits
}

// HALAdapterInfo returns the adapter description reported by the backend.
// It is the zero value for devices created with NewDeviceFromHAL.
func (d *Device) HALAdapterInfo() gputypes.AdapterInfo {
	return d.info
}

// Reference adds a reference to the device.
func (d *Device) Reference() {
	d.refs.Add(1)
}

// Release drops a reference. The last release waits for the GPU to go
// idle, flushes every deferred deletion and destroys the HAL device.
func (d *Device) Release() {
	n := d.refs.Add(-1)
	switch {
	case n == 0:
		d.shutdown()
	case n < 0:
		d.refs.Add(1)
		Logger().Warn("nxt: release of destroyed device", "label", d.desc.Label)
	}
}

func (d *Device) shutdown() {
	if d.closed {
		return
	}
	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.swapChain != nil {
		d.swapChain.impl.Destroy()
		d.swapChain = nil
	}
	// Resources held only by submitted work are queued for deletion here
	// and flushed by the engine's final tick.
	d.inFlight.IterateAll(func(cb *CommandBuffer, _ serial.Serial) {
		cb.Release()
	})
	d.inFlight.Clear()
	d.engine.Shutdown()
	d.closed = true

	d.engine.Device().Destroy()
	if d.adapter != nil {
		d.adapter.Destroy()
	}
	if d.instance != nil {
		d.instance.Destroy()
	}
	Logger().Info("nxt: device shut down", "label", d.desc.Label,
		"serial", d.CompletedSerial())
}

// retain keeps a submitted command buffer alive until s completes.
func (d *Device) retain(cb *CommandBuffer, s serial.Serial) {
	cb.Reference()
	d.inFlight.Enqueue(cb, s)
}

func (d *Device) releaseCompletedCommandBuffers() {
	completed := d.engine.CompletedSerial()
	d.inFlight.IterateUpTo(completed, func(cb *CommandBuffer, _ serial.Serial) {
		cb.Release()
	})
	d.inFlight.ClearUpTo(completed)
}

// newID returns a device-unique identity for cache keys.
func (d *Device) newID() uint64 {
	d.nextID++
	return d.nextID
}

// CreateQueue returns the device's single universal queue.
func (d *Device) CreateQueue() *Queue {
	if d.queue == nil {
		d.queue = newQueue(d)
	}
	d.queue.Reference()
	return d.queue
}

// gpucontext.DeviceProvider

// Device returns the HAL device.
func (d *Device) Device() gpucontext.Device {
	return d.engine.Device()
}

// Queue returns the HAL queue.
func (d *Device) Queue() gpucontext.Queue {
	return d.engine.Queue()
}

// SurfaceFormat returns the configured swap chain format, or
// gputypes.TextureFormatUndefined when headless.
func (d *Device) SurfaceFormat() gputypes.TextureFormat {
	if d.swapChain == nil {
		return gputypes.TextureFormatUndefined
	}
	return d.swapChain.format
}

// Adapter returns the HAL adapter, nil for devices created from HAL.
func (d *Device) Adapter() gpucontext.Adapter {
	if d.adapter == nil {
		return nil
	}
	return d.adapter
}

// AdapterInfo returns the adapter name and type.
func (d *Device) AdapterInfo() gpucontext.AdapterInfo {
	info := gpucontext.AdapterInfo{Name: d.info.Name, Type: gpucontext.AdapterTypeUnknown}
	switch d.info.DeviceType {
	case gputypes.DeviceTypeDiscreteGPU:
		info.Type = gpucontext.AdapterTypeDiscrete
	case gputypes.DeviceTypeIntegratedGPU:
		info.Type = gpucontext.AdapterTypeIntegrated
	case gputypes.DeviceTypeCPU:
		info.Type = gpucontext.AdapterTypeSoftware
	}
	return info
}

var _ gpucontext.DeviceProvider = (*Device)(nil)
