// Package serial provides the serial type and the serial-tagged FIFO used by
// every structure that defers work until the GPU has passed a submission.
package serial

// Serial stamps a GPU submission. Serials are assigned in increasing order
// and never reused.
type Serial uint64

// entry pairs a value with the serial it waits for.
type entry[T any] struct {
	value  T
	serial Serial
}

// Queue is a FIFO of values tagged with non-decreasing serials.
//
// Enqueue panics if the serial is lower than the last enqueued serial; the
// ordering lets IterateUpTo and ClearUpTo stop at the first pending entry.
//
// Queue is not safe for concurrent use.
type Queue[T any] struct {
	entries []entry[T]
	head    int
}

// Enqueue appends value tagged with s.
func (q *Queue[T]) Enqueue(value T, s Serial) {
	if n := len(q.entries); n > q.head && q.entries[n-1].serial > s {
		panic("serial: enqueue with decreasing serial")
	}
	q.entries = append(q.entries, entry[T]{value: value, serial: s})
}

// Len returns the number of queued entries.
func (q *Queue[T]) Len() int {
	return len(q.entries) - q.head
}

// Empty reports whether the queue has no entries.
func (q *Queue[T]) Empty() bool {
	return q.Len() == 0
}

// Front returns the oldest entry without removing it.
func (q *Queue[T]) Front() (value T, s Serial, ok bool) {
	if q.Empty() {
		var zero T
		return zero, 0, false
	}
	e := q.entries[q.head]
	return e.value, e.serial, true
}

// PopFront removes the oldest entry.
func (q *Queue[T]) PopFront() {
	if q.Empty() {
		return
	}
	var zero entry[T]
	q.entries[q.head] = zero
	q.head++
	q.compact()
}

// IterateUpTo calls fn for every entry with serial <= s, oldest first.
func (q *Queue[T]) IterateUpTo(s Serial, fn func(value T, s Serial)) {
	for i := q.head; i < len(q.entries); i++ {
		if q.entries[i].serial > s {
			return
		}
		fn(q.entries[i].value, q.entries[i].serial)
	}
}

// IterateAll calls fn for every entry, oldest first.
func (q *Queue[T]) IterateAll(fn func(value T, s Serial)) {
	for i := q.head; i < len(q.entries); i++ {
		fn(q.entries[i].value, q.entries[i].serial)
	}
}

// ClearUpTo removes every entry with serial <= s.
func (q *Queue[T]) ClearUpTo(s Serial) {
	var zero entry[T]
	for q.head < len(q.entries) && q.entries[q.head].serial <= s {
		q.entries[q.head] = zero
		q.head++
	}
	q.compact()
}

// Clear removes every entry.
func (q *Queue[T]) Clear() {
	clear(q.entries)
	q.entries = q.entries[:0]
	q.head = 0
}

// compact reclaims the consumed prefix once it dominates the backing array.
func (q *Queue[T]) compact() {
	if q.head == len(q.entries) {
		q.entries = q.entries[:0]
		q.head = 0
		return
	}
	if q.head > 32 && q.head*2 > len(q.entries) {
		n := copy(q.entries, q.entries[q.head:])
		clear(q.entries[n:])
		q.entries = q.entries[:n]
		q.head = 0
	}
}
