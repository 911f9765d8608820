package Queues

import (
	"sync/atomic"

	"github.com/g-m-twostay/concur/Backoff"
	"github.com/g-m-twostay/concur/SMR"
)

const (
	defaultRMax     = 64
	defaultEraEvery = 64
)

// MSQueue is the unbounded Michael-Scott queue from the design (§4.7):
// SMR-backed nodes, a dummy head, and a tail that any thread may help
// advance. Grounded on Queues/ConcLinkedQueue.go's syncLinkedQ — the CAS
// loop shape and the "help the lagging tail forward" branch are carried
// over near verbatim, now wrapped in SMR guards so unlinked nodes are
// retired instead of left for the GC to find on its own schedule, and
// built with an explicit tid (a Registry.Lease's ID()) per call since Go
// has no implicit thread-local identity to read the way the design notes'
// "global static thread-local registry" assumed (§9).
type MSQueue[T any] struct {
	alloc      *SMR.Allocator[T]
	head, tail atomic.Pointer[SMR.Node[T]]
}

// MakeMSQueue builds an empty queue usable by up to maxThreads concurrent
// callers (typically Registry.MaxThreads).
func MakeMSQueue[T any](maxThreads int) *MSQueue[T] {
	a := SMR.NewAllocator[T](maxThreads, defaultRMax, defaultEraEvery)
	var zero T
	dummy := a.Allocate(zero)
	q := &MSQueue[T]{alloc: a}
	q.head.Store(dummy)
	q.tail.Store(dummy)
	return q
}

// Push enqueues value, attributed to tid.
func (q *MSQueue[T]) Push(tid int, value T) {
	g := q.alloc.EnterGuard(tid)
	defer g.Exit()

	n := q.alloc.Allocate(value)
	var bo Backoff.Backoff
	for {
		t := q.alloc.Protect(&q.tail)
		x := q.alloc.Protect(&t.Next)
		if t != q.tail.Load() {
			bo.Pause()
			continue
		}
		if x == nil {
			if t.Next.CompareAndSwap(nil, n) {
				q.tail.CompareAndSwap(t, n)
				return
			}
		} else {
			q.tail.CompareAndSwap(t, x)
		}
		bo.Pause()
	}
}

// Emplace is Push without requiring the caller to construct a T first when
// a builder is more natural at the call site.
func (q *MSQueue[T]) Emplace(tid int, build func() T) {
	q.Push(tid, build())
}

// Pop dequeues the front value, attributed to tid. Returns false if the
// queue was empty.
func (q *MSQueue[T]) Pop(tid int) (T, bool) {
	g := q.alloc.EnterGuard(tid)
	defer g.Exit()

	var bo Backoff.Backoff
	for {
		h := q.alloc.Protect(&q.head)
		t := q.tail.Load()
		x := q.alloc.Protect(&h.Next)
		if h != q.head.Load() {
			bo.Pause()
			continue
		}
		if h == t {
			if x == nil {
				var zero T
				return zero, false
			}
			q.tail.CompareAndSwap(t, x)
		} else {
			value := x.Value
			if q.head.CompareAndSwap(h, x) {
				q.alloc.Retire(tid, h)
				return value, true
			}
		}
		bo.Pause()
	}
}

// Empty reports whether the queue currently has no elements. Not
// linearizable with concurrent mutators, matching the teacher's own
// caveat on Maps.Size (§1.1).
func (q *MSQueue[T]) Empty() bool {
	h := q.head.Load()
	return h.Next.Load() == nil
}

// Clear drains the queue, attributed to tid.
func (q *MSQueue[T]) Clear(tid int) {
	for {
		if _, ok := q.Pop(tid); !ok {
			return
		}
	}
}

// Stats exposes the underlying allocator's bookkeeping, used by the
// liveness test (E5) to check the retired-node bound.
func (q *MSQueue[T]) Stats() SMR.Stats {
	return q.alloc.Stats()
}
