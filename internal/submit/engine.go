package submit

import (
	"errors"
	"fmt"

	"github.com/gogpu/nxt/internal/serial"
	"github.com/gogpu/wgpu/hal"
)

// Engine errors.
var (
	// ErrEngineClosed is returned by operations after Shutdown.
	ErrEngineClosed = errors.New("submit: engine is shut down")
)

// fence records the HAL submission index a serial is waiting for.
// Fences are pooled and reused across submissions.
type fence struct {
	index uint64
}

// commandPool is a HAL command encoder together with the command buffers it
// has produced since it was last reset.
type commandPool struct {
	encoder hal.CommandEncoder
	buffers []hal.CommandBuffer
}

// Config configures an Engine.
type Config struct {
	// MemoryBudget is the byte budget for buffer and texture allocations.
	// Zero means unlimited.
	MemoryBudget uint64
}

// Engine sequences command submission against GPU completion.
type Engine struct {
	device hal.Device
	queue  hal.Queue

	nextSerial      serial.Serial
	completedSerial serial.Serial

	fencesInFlight serial.Queue[*fence]
	unusedFences   []*fence

	poolsInFlight serial.Queue[*commandPool]
	unusedPools   []*commandPool
	pending       *commandPool

	waitFences []hal.Fence

	deleter  *FencedDeleter
	maps     *MapTracker
	uploader *Uploader
	memory   *Memory

	closed bool
}

// NewEngine creates an engine driving queue on device.
func NewEngine(device hal.Device, queue hal.Queue, cfg Config) *Engine {
	e := &Engine{
		device:     device,
		queue:      queue,
		nextSerial: 1,
	}
	e.deleter = newFencedDeleter(e)
	e.maps = newMapTracker()
	e.uploader = newUploader(e)
	e.memory = NewMemory(cfg.MemoryBudget)
	return e
}

// Device returns the HAL device.
func (e *Engine) Device() hal.Device { return e.device }

// Queue returns the HAL queue.
func (e *Engine) Queue() hal.Queue { return e.queue }

// NextSerial returns the serial the next submission will carry.
func (e *Engine) NextSerial() serial.Serial { return e.nextSerial }

// CompletedSerial returns the highest serial the GPU has finished.
func (e *Engine) CompletedSerial() serial.Serial { return e.completedSerial }

// Deleter returns the fenced deleter.
func (e *Engine) Deleter() *FencedDeleter { return e.deleter }

// Maps returns the map request tracker.
func (e *Engine) Maps() *MapTracker { return e.maps }

// Uploader returns the buffer uploader.
func (e *Engine) Uploader() *Uploader { return e.uploader }

// Memory returns the memory accounting.
func (e *Engine) Memory() *Memory { return e.memory }

// FencesInFlight returns the number of submissions the GPU has not finished.
func (e *Engine) FencesInFlight() int { return e.fencesInFlight.Len() }

// HasPendingCommands reports whether a command pool is recording.
func (e *Engine) HasPendingCommands() bool { return e.pending != nil }

// PendingCommands returns the encoder of the recording command pool, taking
// an unused pool (or creating one) and beginning it when none is recording.
func (e *Engine) PendingCommands() (hal.CommandEncoder, error) {
	if e.closed {
		return nil, ErrEngineClosed
	}
	if e.pending != nil {
		return e.pending.encoder, nil
	}

	var pool *commandPool
	if n := len(e.unusedPools); n > 0 {
		pool = e.unusedPools[n-1]
		e.unusedPools[n-1] = nil
		e.unusedPools = e.unusedPools[:n-1]
	} else {
		enc, err := e.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "nxt pending commands"})
		if err != nil {
			return nil, fmt.Errorf("submit: create command encoder: %w", err)
		}
		pool = &commandPool{encoder: enc}
		slogger().Debug("submit: created command pool", "pools", len(e.unusedPools)+e.poolsInFlight.Len()+1)
	}

	if err := pool.encoder.BeginEncoding("nxt pending commands"); err != nil {
		e.unusedPools = append(e.unusedPools, pool)
		return nil, fmt.Errorf("submit: begin encoding: %w", err)
	}
	e.pending = pool
	return pool.encoder, nil
}

// AddWaitFence registers a fence the next submission depends on. Once that
// submission is made the fence is handed to the deleter.
func (e *Engine) AddWaitFence(f hal.Fence) {
	e.waitFences = append(e.waitFences, f)
}

// SubmitPendingCommands ends the recording pool, submits it to the queue and
// stamps it with the next serial. It is a no-op when nothing is recording.
func (e *Engine) SubmitPendingCommands() error {
	if e.pending == nil {
		return nil
	}
	pool := e.pending
	e.pending = nil

	cb, err := pool.encoder.EndEncoding()
	if err != nil {
		pool.encoder.DiscardEncoding()
		e.unusedPools = append(e.unusedPools, pool)
		return fmt.Errorf("submit: end encoding: %w", err)
	}
	pool.buffers = append(pool.buffers, cb)

	f := e.acquireFence()
	index, err := e.queue.Submit([]hal.CommandBuffer{cb})
	if err != nil {
		e.unusedFences = append(e.unusedFences, f)
		e.recyclePool(pool)
		return fmt.Errorf("submit: queue submit: %w", err)
	}
	f.index = index

	for _, wf := range e.waitFences {
		e.deleter.DeleteFence(wf)
	}
	clear(e.waitFences)
	e.waitFences = e.waitFences[:0]

	s := e.nextSerial
	e.poolsInFlight.Enqueue(pool, s)
	e.fencesInFlight.Enqueue(f, s)
	e.nextSerial++

	slogger().Debug("submit: submitted", "serial", uint64(s), "index", index)
	return nil
}

// Tick checks for finished submissions, recycles their command pools, drains
// every serial-keyed subsystem up to the completed serial and submits pending
// commands. With no pending commands and nothing in flight, both serials
// advance by one so serial-keyed work still makes progress.
func (e *Engine) Tick() error {
	if e.closed {
		return ErrEngineClosed
	}
	e.checkPassedFences()
	e.recycleCompletedPools()
	e.tickSubsystems()

	if e.pending != nil {
		return e.SubmitPendingCommands()
	}
	if e.completedSerial == e.nextSerial-1 {
		e.nextSerial++
		e.completedSerial++
		e.tickSubsystems()
	}
	return nil
}

// Shutdown waits for the GPU, completes every outstanding serial and frees
// all pooled objects. Map requests whose serial the GPU has not passed fire
// with MapUnknown before the serials are forced complete.
func (e *Engine) Shutdown() {
	if e.closed {
		return
	}

	if e.pending != nil {
		e.pending.encoder.DiscardEncoding()
		e.unusedPools = append(e.unusedPools, e.pending)
		e.pending = nil
	}
	if err := e.device.WaitIdle(); err != nil {
		slogger().Warn("submit: wait idle failed", "err", err)
	}
	e.checkPassedFences()
	e.maps.Tick(e.completedSerial)
	e.maps.Drain()
	e.completedSerial = e.nextSerial
	_ = e.Tick()

	for _, wf := range e.waitFences {
		e.device.DestroyFence(wf)
	}
	e.waitFences = nil

	e.poolsInFlight.IterateAll(func(pool *commandPool, _ serial.Serial) {
		e.unusedPools = append(e.unusedPools, pool)
	})
	e.poolsInFlight.Clear()
	for _, pool := range e.unusedPools {
		pool.encoder.ResetAll(pool.buffers)
		pool.encoder.Destroy()
	}
	e.unusedPools = nil
	e.fencesInFlight.Clear()
	e.unusedFences = nil

	e.uploader.shutdown()
	e.deleter.Tick(e.completedSerial)
	e.closed = true
	slogger().Debug("submit: engine shut down", "serial", uint64(e.completedSerial))
}

// acquireFence takes a fence from the pool or allocates a new one.
func (e *Engine) acquireFence() *fence {
	if n := len(e.unusedFences); n > 0 {
		f := e.unusedFences[n-1]
		e.unusedFences[n-1] = nil
		e.unusedFences = e.unusedFences[:n-1]
		return f
	}
	return &fence{}
}

// checkPassedFences pops every fence whose submission the queue reports as
// complete and advances the completed serial.
func (e *Engine) checkPassedFences() {
	done := e.queue.PollCompleted()
	for {
		f, s, ok := e.fencesInFlight.Front()
		if !ok || f.index > done {
			return
		}
		e.fencesInFlight.PopFront()
		f.index = 0
		e.unusedFences = append(e.unusedFences, f)
		if s > e.completedSerial {
			e.completedSerial = s
		}
	}
}

func (e *Engine) recycleCompletedPools() {
	e.poolsInFlight.IterateUpTo(e.completedSerial, func(pool *commandPool, _ serial.Serial) {
		e.recyclePool(pool)
	})
	e.poolsInFlight.ClearUpTo(e.completedSerial)
}

func (e *Engine) recyclePool(pool *commandPool) {
	pool.encoder.ResetAll(pool.buffers)
	clear(pool.buffers)
	pool.buffers = pool.buffers[:0]
	e.unusedPools = append(e.unusedPools, pool)
}

func (e *Engine) tickSubsystems() {
	c := e.completedSerial
	e.maps.Tick(c)
	e.uploader.Tick(c)
	e.memory.Tick(c)
	e.deleter.Tick(c)
}
