package nxt

import "github.com/gogpu/gputypes"

// Queue is the device's universal queue. Every submission becomes one HAL
// submission stamped with the next serial.
type Queue struct {
	object
}

func newQueue(d *Device) *Queue {
	q := &Queue{}
	q.init(d, "Queue", nil)
	return q
}

// Submit replays commandBuffers, in order, into one submission. Resources
// move to the usages the command buffers leave them in.
func (q *Queue) Submit(commandBuffers ...*CommandBuffer) {
	q.device.procs.QueueSubmit(q, commandBuffers)
}

// validateSubmit checks that every command buffer can run against the
// current resource state. Usages are simulated across the batch so a
// command buffer may rely on the transitions of the ones before it.
func (q *Queue) validateSubmit(commandBuffers []*CommandBuffer) error {
	buffers := make(map[*Buffer]gputypes.BufferUsage)
	textures := make(map[*Texture]gputypes.TextureUsage)
	for i, cb := range commandBuffers {
		switch {
		case cb == nil:
			return validationError("Command buffer %d is nil", i)
		case !cb.alive():
			return validationError("Command buffer %d was destroyed", i)
		case cb.device != q.device:
			return validationError("Command buffer %d belongs to another device", i)
		}
		for _, e := range cb.usages.buffers {
			b := e.buffer
			current, ok := buffers[b]
			if !ok {
				current = b.usage
			}
			switch {
			case !b.alive():
				return validationError("Buffer used in a submit was destroyed")
			case b.IsMapped():
				return validationError("Buffer used in a submit while mapped")
			case current != e.initial:
				return validationError("Buffer used in a submit with the wrong usage")
			}
			buffers[b] = e.final
		}
		for _, e := range cb.usages.textures {
			t := e.texture
			current, ok := textures[t]
			if !ok {
				current = t.usage
			}
			switch {
			case !t.alive():
				return validationError("Texture used in a submit was destroyed")
			case current != e.initial:
				return validationError("Texture used in a submit with the wrong usage")
			}
			textures[t] = e.final
		}
	}
	return nil
}

func (q *Queue) submit(commandBuffers []*CommandBuffer) {
	d := q.device
	if d.closed {
		d.handleError(ErrDeviceLost)
		return
	}
	enc, err := d.engine.PendingCommands()
	if d.consumedError(err) {
		return
	}
	s := d.engine.NextSerial()
	// Later command buffers replay against the usages earlier ones leave.
	prior := usageSnapshot{
		buffers:  make(map[*Buffer]gputypes.BufferUsage),
		textures: make(map[*Texture]gputypes.TextureUsage),
	}
	for _, cb := range commandBuffers {
		cb.replay(enc)
		cb.commitUsages(prior)
	}
	if err := d.engine.SubmitPendingCommands(); err != nil {
		prior.restore()
		d.handleError(err)
		return
	}
	for _, cb := range commandBuffers {
		d.retain(cb, s)
	}
	Logger().Debug("nxt: submit", "commandBuffers", len(commandBuffers), "serial", uint64(s))
}

// usageSnapshot holds the usages resources had before a submit.
type usageSnapshot struct {
	buffers  map[*Buffer]gputypes.BufferUsage
	textures map[*Texture]gputypes.TextureUsage
}

func (u usageSnapshot) restore() {
	for b, usage := range u.buffers {
		b.usage = usage
	}
	for t, usage := range u.textures {
		t.usage = usage
	}
}

// commitUsages moves every resource to the usage cb leaves it in, saving
// the first usage seen for each resource in prior.
func (cb *CommandBuffer) commitUsages(prior usageSnapshot) {
	for _, e := range cb.usages.buffers {
		if _, ok := prior.buffers[e.buffer]; !ok {
			prior.buffers[e.buffer] = e.buffer.usage
		}
		e.buffer.usage = e.final
	}
	for _, e := range cb.usages.textures {
		if _, ok := prior.textures[e.texture]; !ok {
			prior.textures[e.texture] = e.texture.usage
		}
		e.texture.usage = e.final
	}
}
