package Queues

import (
	"sync/atomic"

	"github.com/g-m-twostay/concur/Backoff"
)

// RingQueue is the bounded ring queue from §4.3: four independent cursors
// (producer head/tail, consumer head/tail) over a fixed N-slot buffer, N a
// power of two. No SMR — storage is preallocated for the container's
// lifetime (§2), so there is nothing to retire. Cache-line padding between
// cursors follows the same instinct as Pam-La/jmt_for_mac's
// internal/async.RingBuffer (a pack example, not the teacher, cited per
// the grounding rules for material the teacher itself never needed).
type RingQueue[T any] struct {
	mask uint64

	_pad0 [7]uint64
	ph    atomic.Uint64
	_pad1 [7]uint64
	pt    atomic.Uint64
	_pad2 [7]uint64
	ch    atomic.Uint64
	_pad3 [7]uint64
	ct    atomic.Uint64
	_pad4 [7]uint64

	slots []T
}

// MakeRingQueue builds a queue of capacity n, which must be a power of two.
func MakeRingQueue[T any](n uint64) *RingQueue[T] {
	if n < 2 || n&(n-1) != 0 {
		panic("Queues: RingQueue capacity must be a power of two >= 2")
	}
	return &RingQueue[T]{mask: n - 1, slots: make([]T, n)}
}

func (q *RingQueue[T]) Capacity() uint64 {
	return q.mask + 1
}

// Push claims a slot by advancing ph, provided the queue isn't full, writes
// the value, then spins until every producer that claimed a slot before it
// has published, preserving the order consumers observe writes in.
func (q *RingQueue[T]) Push(value T) bool {
	var bo Backoff.Backoff
	for {
		old := q.ph.Load()
		if old-q.ct.Load() >= q.Capacity() {
			return false
		}
		if q.ph.CompareAndSwap(old, old+1) {
			q.slots[old&q.mask] = value
			for q.pt.Load() != old {
				bo.Pause()
			}
			q.pt.Store(old + 1)
			return true
		}
	}
}

// Pop is the mirror of Push over the consumer cursors.
func (q *RingQueue[T]) Pop() (T, bool) {
	var bo Backoff.Backoff
	for {
		old := q.ch.Load()
		if old >= q.pt.Load() {
			var zero T
			return zero, false
		}
		if q.ch.CompareAndSwap(old, old+1) {
			v := q.slots[old&q.mask]
			var zero T
			q.slots[old&q.mask] = zero
			for q.ct.Load() != old {
				bo.Pause()
			}
			q.ct.Store(old + 1)
			return v, true
		}
	}
}

func (q *RingQueue[T]) Empty() bool {
	return q.ch.Load() == q.pt.Load()
}
