// Package timerq implements the timer queue of a cooperative scheduler:
// a registry of pending wake-ups ordered by wake time, ties broken by
// registration order.
//
// A Queue is not safe for concurrent use. It is owned by exactly one
// scheduler, which serializes every call.
package timerq

import (
	"container/heap"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidArgument is returned by Schedule for a negative delay.
var ErrInvalidArgument = errors.New("timerq: invalid argument")

// ID identifies a scheduled entry. The zero ID is never issued.
type ID uint64

// Queue holds pending entries of type T.
//
//	              Time Complexity
//	Schedule()    O(log n)
//	Cancel()      O(log n)
//	NextDeadline  O(1)
//	PopReady()    O(k log n) for k ready entries
type Queue[T any] struct {
	now    func() time.Duration
	heap   entryHeap[T]
	lookup map[ID]*entry[T]
	seq    uint64
}

// New returns an empty queue reading the current time from now.
func New[T any](now func() time.Duration) *Queue[T] {
	return &Queue[T]{
		now:    now,
		lookup: map[ID]*entry[T]{},
	}
}

// Schedule registers v to become ready delay after the current time.
// A delay of zero makes v ready on the next PopReady at the current time.
// Wake times saturate at the largest representable duration.
func (q *Queue[T]) Schedule(v T, delay time.Duration) (ID, error) {
	if delay < 0 {
		return 0, fmt.Errorf("%w: negative delay %v", ErrInvalidArgument, delay)
	}
	when := q.now()
	if delay > math.MaxInt64-when {
		when = math.MaxInt64
	} else {
		when += delay
	}
	q.seq++
	e := &entry[T]{
		id:    ID(q.seq),
		when:  when,
		seq:   q.seq,
		value: v,
	}
	heap.Push(&q.heap, e)
	q.lookup[e.id] = e
	return e.id, nil
}

// Cancel removes a pending entry. It reports false if the entry already
// fired, was cancelled before, or never existed.
func (q *Queue[T]) Cancel(id ID) bool {
	e, ok := q.lookup[id]
	if !ok {
		return false
	}
	heap.Remove(&q.heap, e.index)
	delete(q.lookup, id)
	return true
}

// NextDeadline returns the earliest pending wake time.
func (q *Queue[T]) NextDeadline() (time.Duration, bool) {
	if len(q.heap) == 0 {
		return 0, false
	}
	return q.heap[0].when, true
}

// PopReady removes and returns every entry whose wake time is not after
// now, in (wake time, registration) order.
func (q *Queue[T]) PopReady(now time.Duration) []T {
	var ready []T
	for len(q.heap) > 0 && q.heap[0].when <= now {
		e := heap.Pop(&q.heap).(*entry[T])
		delete(q.lookup, e.id)
		ready = append(ready, e.value)
	}
	return ready
}

// Len returns the number of pending entries.
func (q *Queue[T]) Len() int { return len(q.heap) }

type entry[T any] struct {
	id    ID
	when  time.Duration
	seq   uint64
	value T

	// index is maintained by the heap.Interface methods.
	index int
}

type entryHeap[T any] []*entry[T]

func (h entryHeap[T]) Len() int { return len(h) }

func (h entryHeap[T]) Less(i, j int) bool {
	if h[i].when != h[j].when {
		return h[i].when < h[j].when
	}
	return h[i].seq < h[j].seq
}

func (h entryHeap[T]) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap[T]) Push(x any) {
	e := x.(*entry[T])
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap[T]) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}
