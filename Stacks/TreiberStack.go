package Stacks

import (
	"sync/atomic"

	"github.com/g-m-twostay/concur/Backoff"
	"github.com/g-m-twostay/concur/SMR"
)

const (
	defaultRMax     = 64
	defaultEraEvery = 64
)

// TreiberStack is the unbounded lock-free stack from §4.5: SMR-guarded
// singly-linked nodes, head swung by a plain CAS. Grounded on the
// teacher's absence of an SMR-backed linked structure — the shape follows
// Queues/ConcLinkedQueue.go's push/pop CAS loop, inverted for LIFO order.
type TreiberStack[T any] struct {
	alloc *SMR.Allocator[T]
	head  atomic.Pointer[SMR.Node[T]]
}

// MakeTreiberStack builds an empty stack usable by up to maxThreads
// concurrent callers.
func MakeTreiberStack[T any](maxThreads int) *TreiberStack[T] {
	return &TreiberStack[T]{alloc: SMR.NewAllocator[T](maxThreads, defaultRMax, defaultEraEvery)}
}

// Push places value atop the stack, attributed to tid.
func (s *TreiberStack[T]) Push(tid int, value T) {
	g := s.alloc.EnterGuard(tid)
	defer g.Exit()

	n := s.alloc.Allocate(value)
	var bo Backoff.Backoff
	for {
		h := s.head.Load()
		n.Next.Store(h)
		if s.head.CompareAndSwap(h, n) {
			return
		}
		bo.Pause()
	}
}

// Emplace is Push without requiring the caller to construct a T first.
func (s *TreiberStack[T]) Emplace(tid int, build func() T) {
	s.Push(tid, build())
}

// Pop removes and returns the top value, attributed to tid.
func (s *TreiberStack[T]) Pop(tid int) (T, bool) {
	g := s.alloc.EnterGuard(tid)
	defer g.Exit()

	var bo Backoff.Backoff
	for {
		h := s.alloc.Protect(&s.head)
		if h == nil {
			var zero T
			return zero, false
		}
		next := s.alloc.Protect(&h.Next)
		if s.head.CompareAndSwap(h, next) {
			value := h.Value
			s.alloc.Retire(tid, h)
			return value, true
		}
		bo.Pause()
	}
}

// Empty reports whether the stack currently has no elements. Not
// linearizable with concurrent mutators.
func (s *TreiberStack[T]) Empty() bool {
	return s.head.Load() == nil
}

// Clear drains the stack, attributed to tid, matching spec.md §6's
// "Unbounded stack<T>" clear() operation.
func (s *TreiberStack[T]) Clear(tid int) {
	for {
		if _, ok := s.Pop(tid); !ok {
			return
		}
	}
}

// Stats exposes the underlying allocator's bookkeeping.
func (s *TreiberStack[T]) Stats() SMR.Stats {
	return s.alloc.Stats()
}
