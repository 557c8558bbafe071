package nxt

import (
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/nxt/internal/submit"
	"github.com/gogpu/wgpu/hal"
)

// BufferMapAsyncStatus is the status delivered to map callbacks.
type BufferMapAsyncStatus = submit.MapStatus

// BufferMapAsyncStatus values.
const (
	BufferMapAsyncStatusSuccess = submit.MapSuccess
	BufferMapAsyncStatusError   = submit.MapError
	BufferMapAsyncStatusUnknown = submit.MapUnknown
)

// BufferMapCallback receives the mapped range. data is nil unless status
// is BufferMapAsyncStatusSuccess and stays valid until Unmap.
type BufferMapCallback func(status BufferMapAsyncStatus, data []byte)

// Buffer is a linear GPU allocation. Its usage is tracked: operations check
// the current usage, and transitions are constrained to the allowed usage
// declared at creation.
type Buffer struct {
	object
	hal hal.Buffer

	label        string
	size         uint64
	allowedUsage gputypes.BufferUsage
	usage        gputypes.BufferUsage

	mapPending bool
	mapTicket  submit.MapTicket
	mapped     bool
}

// Size returns the buffer size in bytes.
func (b *Buffer) Size() uint64 { return b.size }

// AllowedUsage returns the usage mask declared at creation.
func (b *Buffer) AllowedUsage() gputypes.BufferUsage { return b.allowedUsage }

// Usage returns the current usage.
func (b *Buffer) Usage() gputypes.BufferUsage { return b.usage }

// IsMapped reports whether the buffer is mapped or has a map request
// outstanding.
func (b *Buffer) IsMapped() bool { return b.mapped || b.mapPending }

// HAL returns the backend buffer.
func (b *Buffer) HAL() hal.Buffer { return b.hal }

// SetSubData writes data at start. The buffer must be in a usage
// containing CopyDst.
func (b *Buffer) SetSubData(start uint64, data []byte) {
	b.device.procs.BufferSetSubData(b, start, data)
}

// MapReadAsync requests read access to [start, start+size). The callback
// fires from a later Tick, once the GPU has passed every submission made
// before the request.
func (b *Buffer) MapReadAsync(start, size uint64, callback BufferMapCallback) {
	b.device.procs.BufferMapReadAsync(b, start, size, callback)
}

// MapWriteAsync requests write access to [start, start+size). Writes are
// made visible to the GPU by Unmap.
func (b *Buffer) MapWriteAsync(start, size uint64, callback BufferMapCallback) {
	b.device.procs.BufferMapWriteAsync(b, start, size, callback)
}

// Unmap ends a mapping. An outstanding map request fires with
// BufferMapAsyncStatusUnknown.
func (b *Buffer) Unmap() {
	b.device.procs.BufferUnmap(b)
}

// TransitionUsage moves the buffer to usage outside of command buffers.
func (b *Buffer) TransitionUsage(usage gputypes.BufferUsage) {
	b.device.procs.BufferTransitionUsage(b, usage)
}

// CreateBufferViewBuilder starts a view of a range of the buffer.
func (b *Buffer) CreateBufferViewBuilder() *BufferViewBuilder {
	return b.device.procs.BufferCreateBufferViewBuilder(b)
}

func (b *Buffer) setSubData(start uint64, data []byte) {
	d := b.device
	switch {
	case b.mapped || b.mapPending:
		d.handleError(validationError("Buffer is mapped"))
		return
	case !b.usage.Contains(gputypes.BufferUsageCopyDst):
		d.handleError(validationError("Buffer needs the CopyDst usage bit"))
		return
	case start > b.size || uint64(len(data)) > b.size-start:
		d.handleError(validationError("Buffer subdata out of range"))
		return
	}
	d.consumedError(d.engine.Uploader().BufferSubData(b.hal, start, data))
}

func (b *Buffer) mapAsync(start, size uint64, usage gputypes.BufferUsage, callback BufferMapCallback) {
	d := b.device
	switch {
	case size == 0 || start > b.size || size > b.size-start:
		d.handleError(validationError("Buffer map range out of bounds"))
		return
	case !b.usage.Contains(usage):
		d.handleError(validationError("Buffer needs the %s usage bit", bufferUsageName(usage)))
		return
	case b.mapped || b.mapPending:
		d.handleError(validationError("Buffer already mapped"))
		return
	}

	b.mapPending = true
	b.mapTicket = d.engine.Maps().Track(d.engine.NextSerial(), func(status submit.MapStatus) {
		b.mapPending = false
		if status != submit.MapSuccess {
			callback(status, nil)
			return
		}
		m, err := d.engine.Device().MapBuffer(b.hal, start, size)
		if err != nil {
			Logger().Warn("nxt: map buffer failed", "label", b.label, "err", err)
			callback(submit.MapError, nil)
			return
		}
		b.mapped = true
		callback(submit.MapSuccess, unsafe.Slice((*byte)(m.Ptr), size))
	})
}

func (b *Buffer) unmap() {
	if b.mapPending {
		b.device.engine.Maps().Cancel(b.mapTicket)
		b.mapPending = false
	}
	if b.mapped {
		b.mapped = false
		if b.device.closed {
			return
		}
		if err := b.device.engine.Device().UnmapBuffer(b.hal); err != nil {
			Logger().Warn("nxt: unmap buffer failed", "label", b.label, "err", err)
		}
	}
}

func (b *Buffer) transitionUsage(usage gputypes.BufferUsage) {
	d := b.device
	switch {
	case b.mapped || b.mapPending:
		d.handleError(validationError("Buffer is mapped"))
		return
	case !BufferUsagePossible(b.allowedUsage, usage):
		d.handleError(validationError("Buffer usage is not possible"))
		return
	}
	if usage == b.usage {
		return
	}
	enc, err := d.engine.PendingCommands()
	if d.consumedError(err) {
		return
	}
	enc.TransitionBuffers([]hal.BufferBarrier{{
		Buffer: b.hal,
		Usage:  hal.BufferUsageTransition{OldUsage: b.usage, NewUsage: usage},
	}})
	b.usage = usage
}

func (b *Buffer) destroyImpl() {
	b.unmap()
	d := b.device
	if d.closed {
		return
	}
	d.engine.Deleter().DeleteBuffer(b.hal)
	d.engine.Memory().FreeWhenUnused(b.size, d.engine.NextSerial())
}

func bufferUsageName(u gputypes.BufferUsage) string {
	switch u {
	case gputypes.BufferUsageMapRead:
		return "MapRead"
	case gputypes.BufferUsageMapWrite:
		return "MapWrite"
	case gputypes.BufferUsageCopySrc:
		return "CopySrc"
	case gputypes.BufferUsageCopyDst:
		return "CopyDst"
	case gputypes.BufferUsageIndex:
		return "Index"
	case gputypes.BufferUsageVertex:
		return "Vertex"
	case gputypes.BufferUsageUniform:
		return "Uniform"
	case gputypes.BufferUsageStorage:
		return "Storage"
	case gputypes.BufferUsageIndirect:
		return "Indirect"
	}
	return "requested"
}

// Builder property bits, shared by builders that reject repeated setters.
const (
	propSize uint32 = 1 << iota
	propAllowedUsage
	propInitialUsage
	propFormat
	propDimension
	propMipLevels
	propExtent
	propSampleCount
)

// BufferBuilder configures a Buffer. Size and allowed usage are required.
type BufferBuilder struct {
	builder
	label        string
	size         uint64
	allowedUsage gputypes.BufferUsage
	initialUsage gputypes.BufferUsage
	props        uint32
}

// CreateBufferBuilder starts a buffer.
func (d *Device) CreateBufferBuilder() *BufferBuilder {
	b := &BufferBuilder{}
	b.init(d)
	return b
}

// SetLabel names the buffer in backend debug output.
func (b *BufferBuilder) SetLabel(label string) *BufferBuilder {
	if b.usable() {
		b.label = label
	}
	return b
}

// SetResultCallback sets the callback invoked by GetResult.
func (b *BufferBuilder) SetResultCallback(fn BuilderCallback) *BufferBuilder {
	b.callback = fn
	return b
}

// SetSize sets the size in bytes.
func (b *BufferBuilder) SetSize(size uint64) *BufferBuilder {
	b.device.procs.BufferBuilderSetSize(b, size)
	return b
}

// SetAllowedUsage declares every usage the buffer may be transitioned to.
func (b *BufferBuilder) SetAllowedUsage(usage gputypes.BufferUsage) *BufferBuilder {
	b.device.procs.BufferBuilderSetAllowedUsage(b, usage)
	return b
}

// SetInitialUsage sets the usage the buffer starts in.
func (b *BufferBuilder) SetInitialUsage(usage gputypes.BufferUsage) *BufferBuilder {
	b.device.procs.BufferBuilderSetInitialUsage(b, usage)
	return b
}

// GetResult creates the buffer, or returns nil and reports the error.
func (b *BufferBuilder) GetResult() *Buffer {
	return b.device.procs.BufferBuilderGetResult(b)
}

// setProp records a property and reports a repeated set.
func (b *builder) setProp(props *uint32, bit uint32, name string) bool {
	if !b.usable() {
		return false
	}
	if *props&bit != 0 {
		b.fail(validationError("%s property set multiple times", name))
		return false
	}
	*props |= bit
	return true
}

func (b *BufferBuilder) setSize(size uint64) {
	if b.setProp(&b.props, propSize, "Buffer size") {
		b.size = size
	}
}

func (b *BufferBuilder) setAllowedUsage(usage gputypes.BufferUsage) {
	if b.setProp(&b.props, propAllowedUsage, "Buffer allowedUsage") {
		b.allowedUsage = usage
	}
}

func (b *BufferBuilder) setInitialUsage(usage gputypes.BufferUsage) {
	if b.setProp(&b.props, propInitialUsage, "Buffer initialUsage") {
		b.initialUsage = usage
	}
}

func (b *BufferBuilder) getResult() *Buffer {
	return result(&b.builder, b.build)
}

func (b *BufferBuilder) build() (*Buffer, error) {
	const (
		mapRead  = gputypes.BufferUsageMapRead
		mapWrite = gputypes.BufferUsageMapWrite
	)
	switch {
	case b.props&propSize == 0:
		return nil, validationError("Buffer size not set")
	case b.size == 0:
		return nil, validationError("Buffer size cannot be zero")
	case b.props&propAllowedUsage == 0:
		return nil, validationError("Buffer allowed usage not set")
	case b.allowedUsage.Contains(mapRead) && b.allowedUsage&^(mapRead|gputypes.BufferUsageCopyDst) != 0:
		return nil, validationError("Only CopyDst is allowed with MapRead")
	case b.allowedUsage.Contains(mapWrite) && b.allowedUsage&^(mapWrite|gputypes.BufferUsageCopySrc) != 0:
		return nil, validationError("Only CopySrc is allowed with MapWrite")
	case !BufferUsagePossible(b.allowedUsage, b.initialUsage):
		return nil, validationError("Initial buffer usage is not allowed")
	}

	d := b.device
	if err := d.engine.Memory().Allocate(b.size); err != nil {
		return nil, outOfMemory("buffer", err)
	}
	hb, err := d.engine.Device().CreateBuffer(&hal.BufferDescriptor{
		Label: b.label,
		Size:  b.size,
		Usage: b.allowedUsage,
	})
	if err != nil {
		d.engine.Memory().Free(b.size)
		return nil, outOfMemory("create buffer", err)
	}

	buf := &Buffer{
		hal:          hb,
		label:        b.label,
		size:         b.size,
		allowedUsage: b.allowedUsage,
		usage:        b.initialUsage,
	}
	buf.init(d, "Buffer", buf.destroyImpl)
	return buf, nil
}

// BufferView is a range of a buffer, bound through bind groups.
type BufferView struct {
	object
	buffer *Buffer
	offset uint64
	size   uint64
}

// Buffer returns the viewed buffer.
func (v *BufferView) Buffer() *Buffer { return v.buffer }

// Offset returns the start of the range.
func (v *BufferView) Offset() uint64 { return v.offset }

// Size returns the length of the range.
func (v *BufferView) Size() uint64 { return v.size }

func (v *BufferView) destroyImpl() {
	v.buffer.Release()
}

// BufferViewBuilder configures a BufferView. The extent is required.
type BufferViewBuilder struct {
	builder
	buffer *Buffer
	offset uint64
	size   uint64
	props  uint32
}

func newBufferViewBuilder(buf *Buffer) *BufferViewBuilder {
	b := &BufferViewBuilder{buffer: buf}
	b.init(buf.device)
	return b
}

// SetResultCallback sets the callback invoked by GetResult.
func (b *BufferViewBuilder) SetResultCallback(fn BuilderCallback) *BufferViewBuilder {
	b.callback = fn
	return b
}

// SetExtent sets the viewed range.
func (b *BufferViewBuilder) SetExtent(offset, size uint64) *BufferViewBuilder {
	b.device.procs.BufferViewBuilderSetExtent(b, offset, size)
	return b
}

// GetResult creates the view, or returns nil and reports the error.
func (b *BufferViewBuilder) GetResult() *BufferView {
	return b.device.procs.BufferViewBuilderGetResult(b)
}

func (b *BufferViewBuilder) setExtent(offset, size uint64) {
	if b.setProp(&b.props, propExtent, "Buffer view extent") {
		b.offset, b.size = offset, size
	}
}

func (b *BufferViewBuilder) getResult() *BufferView {
	return result(&b.builder, func() (*BufferView, error) {
		switch {
		case b.props&propExtent == 0:
			return nil, validationError("Buffer view size not set")
		case b.offset > b.buffer.size || b.size > b.buffer.size-b.offset:
			return nil, validationError("Buffer view end is OOB")
		}
		b.buffer.Reference()
		v := &BufferView{buffer: b.buffer, offset: b.offset, size: b.size}
		v.init(b.device, "BufferView", v.destroyImpl)
		return v, nil
	})
}
