package submit

import (
	"fmt"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/nxt/internal/serial"
	"github.com/gogpu/wgpu/hal"
)

// copyAlignment is the allocation granularity of staging buffers.
const copyAlignment = 4

// Uploader writes data into GPU buffers.
//
// When the queue records copies in command buffers, data goes through a
// staging buffer copied in the pending commands; the staging buffer is
// retired once that submission's serial passes. Otherwise the write goes
// straight through hal.Queue.WriteBuffer.
type Uploader struct {
	engine  *Engine
	staging serial.Queue[stagingBuffer]

	// stagingBytes is the size of staging buffers not yet retired.
	stagingBytes uint64
}

type stagingBuffer struct {
	buffer hal.Buffer
	size   uint64
}

func newUploader(e *Engine) *Uploader {
	return &Uploader{engine: e}
}

// BufferSubData writes data into dst at offset.
func (u *Uploader) BufferSubData(dst hal.Buffer, offset uint64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	e := u.engine
	if !e.queue.SupportsCommandBufferCopies() {
		if err := e.queue.WriteBuffer(dst, offset, data); err != nil {
			return fmt.Errorf("submit: write buffer: %w", err)
		}
		return nil
	}

	size := alignUp(uint64(len(data)), copyAlignment)
	staging, err := e.device.CreateBuffer(&hal.BufferDescriptor{
		Label:            "nxt staging",
		Size:             size,
		Usage:            gputypes.BufferUsageMapWrite | gputypes.BufferUsageCopySrc,
		MappedAtCreation: true,
	})
	if err != nil {
		return fmt.Errorf("submit: create staging buffer: %w", err)
	}
	mapping, err := e.device.MapBuffer(staging, 0, size)
	if err != nil {
		e.device.DestroyBuffer(staging)
		return fmt.Errorf("submit: map staging buffer: %w", err)
	}
	copy(unsafe.Slice((*byte)(mapping.Ptr), size), data)
	if err := e.device.UnmapBuffer(staging); err != nil {
		e.device.DestroyBuffer(staging)
		return fmt.Errorf("submit: unmap staging buffer: %w", err)
	}

	enc, err := e.PendingCommands()
	if err != nil {
		e.device.DestroyBuffer(staging)
		return err
	}
	enc.CopyBufferToBuffer(staging, dst, []hal.BufferCopy{{
		SrcOffset: 0,
		DstOffset: offset,
		Size:      uint64(len(data)),
	}})

	u.staging.Enqueue(stagingBuffer{buffer: staging, size: size}, e.nextSerial)
	u.stagingBytes += size
	return nil
}

// TextureSubData writes data into a texture region.
func (u *Uploader) TextureSubData(dst *hal.ImageCopyTexture, data []byte, layout *hal.ImageDataLayout, size *hal.Extent3D) error {
	if err := u.engine.queue.WriteTexture(dst, data, layout, size); err != nil {
		return fmt.Errorf("submit: write texture: %w", err)
	}
	return nil
}

// StagingBytes returns the size of staging buffers not yet retired.
func (u *Uploader) StagingBytes() uint64 { return u.stagingBytes }

// Tick destroys staging buffers whose serial is at most completed.
func (u *Uploader) Tick(completed serial.Serial) {
	u.staging.IterateUpTo(completed, func(b stagingBuffer, _ serial.Serial) {
		u.engine.device.DestroyBuffer(b.buffer)
		u.stagingBytes -= b.size
	})
	u.staging.ClearUpTo(completed)
}

func (u *Uploader) shutdown() {
	u.staging.IterateAll(func(b stagingBuffer, _ serial.Serial) {
		u.engine.device.DestroyBuffer(b.buffer)
	})
	u.staging.Clear()
	u.stagingBytes = 0
}

func alignUp(v, a uint64) uint64 {
	return (v + a - 1) &^ (a - 1)
}
