package submit

import (
	"fmt"
	"math"
	"testing"

	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// gatedQueue holds back completion of submissions past limit.
type gatedQueue struct {
	*noop.Queue
	limit  uint64
	copies bool
}

func (q *gatedQueue) PollCompleted() uint64 {
	return min(q.limit, q.Queue.PollCompleted())
}

func (q *gatedQueue) SupportsCommandBufferCopies() bool { return q.copies }

// hold stops completion at the submissions made so far.
func (q *gatedQueue) hold() { q.limit = q.Queue.PollCompleted() }

// releaseAll lets every submission complete.
func (q *gatedQueue) releaseAll() { q.limit = math.MaxUint64 }

// taggedTexture gives noop textures a distinct identity.
type taggedTexture struct {
	noop.Texture
	id int
}

// recordingDevice records destroy calls and encoder creation.
type recordingDevice struct {
	*noop.Device
	nextID    int
	destroyed []string
	buffers   []hal.Buffer
	fences    int
	encoders  int
}

func (d *recordingDevice) CreateTexture(*hal.TextureDescriptor) (hal.Texture, error) {
	d.nextID++
	return &taggedTexture{id: d.nextID}, nil
}

func (d *recordingDevice) DestroyTexture(t hal.Texture) {
	d.destroyed = append(d.destroyed, fmt.Sprintf("texture %d", t.(*taggedTexture).id))
}

func (d *recordingDevice) DestroyBuffer(b hal.Buffer) {
	d.buffers = append(d.buffers, b)
}

func (d *recordingDevice) DestroyFence(hal.Fence) { d.fences++ }

func (d *recordingDevice) CreateCommandEncoder(desc *hal.CommandEncoderDescriptor) (hal.CommandEncoder, error) {
	d.encoders++
	return d.Device.CreateCommandEncoder(desc)
}

func newTestEngine(t *testing.T, copies bool) (*Engine, *recordingDevice, *gatedQueue) {
	t.Helper()
	dev := &recordingDevice{Device: &noop.Device{}}
	q := &gatedQueue{Queue: &noop.Queue{}, limit: math.MaxUint64, copies: copies}
	e := NewEngine(dev, q, Config{})
	t.Cleanup(e.Shutdown)
	return e, dev, q
}

// submitWork records and submits an empty command buffer.
func submitWork(t *testing.T, e *Engine) {
	t.Helper()
	if _, err := e.PendingCommands(); err != nil {
		t.Fatalf("PendingCommands: %v", err)
	}
	if err := e.SubmitPendingCommands(); err != nil {
		t.Fatalf("SubmitPendingCommands: %v", err)
	}
}

func createTexture(t *testing.T, d *recordingDevice) hal.Texture {
	t.Helper()
	tex, err := d.CreateTexture(&hal.TextureDescriptor{})
	if err != nil {
		t.Fatalf("CreateTexture: %v", err)
	}
	return tex
}
