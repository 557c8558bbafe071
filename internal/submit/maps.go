package submit

import "github.com/gogpu/nxt/internal/serial"

// MapStatus is the outcome delivered to a map request.
type MapStatus uint8

// MapStatus values.
const (
	// MapSuccess means the request's serial has passed.
	MapSuccess MapStatus = iota
	// MapError means the mapping failed.
	MapError
	// MapUnknown means the request was canceled or the device shut down.
	MapUnknown
)

// String returns the status name.
func (s MapStatus) String() string {
	switch s {
	case MapSuccess:
		return "Success"
	case MapError:
		return "Error"
	default:
		return "Unknown"
	}
}

// MapTicket identifies a tracked map request.
type MapTicket uint64

type mapRequest struct {
	ticket MapTicket
	fn     func(MapStatus)
	fired  bool
}

// MapTracker fires map requests once the GPU passes their serial.
// Every request fires exactly once.
type MapTracker struct {
	queue  serial.Queue[*mapRequest]
	live   map[MapTicket]*mapRequest
	nextID MapTicket
}

func newMapTracker() *MapTracker {
	return &MapTracker{live: make(map[MapTicket]*mapRequest)}
}

// Track registers fn to fire when serial s has completed.
func (t *MapTracker) Track(s serial.Serial, fn func(MapStatus)) MapTicket {
	t.nextID++
	r := &mapRequest{ticket: t.nextID, fn: fn}
	t.live[r.ticket] = r
	t.queue.Enqueue(r, s)
	return r.ticket
}

// Cancel fires the request with MapUnknown immediately. It reports false if
// the request already fired.
func (t *MapTracker) Cancel(ticket MapTicket) bool {
	r, ok := t.live[ticket]
	if !ok {
		return false
	}
	t.fire(r, MapUnknown)
	return true
}

// Len returns the number of requests that have not fired.
func (t *MapTracker) Len() int { return len(t.live) }

// Tick fires every request whose serial is at most completed.
func (t *MapTracker) Tick(completed serial.Serial) {
	var ready []*mapRequest
	t.queue.IterateUpTo(completed, func(r *mapRequest, _ serial.Serial) {
		ready = append(ready, r)
	})
	t.queue.ClearUpTo(completed)
	// Callbacks may track new requests, so fire outside the iteration.
	for _, r := range ready {
		t.fire(r, MapSuccess)
	}
}

// Drain fires every remaining request with MapUnknown.
func (t *MapTracker) Drain() {
	var rest []*mapRequest
	t.queue.IterateAll(func(r *mapRequest, _ serial.Serial) {
		rest = append(rest, r)
	})
	t.queue.Clear()
	for _, r := range rest {
		t.fire(r, MapUnknown)
	}
}

func (t *MapTracker) fire(r *mapRequest, status MapStatus) {
	if r.fired {
		return
	}
	r.fired = true
	delete(t.live, r.ticket)
	r.fn(status)
}
