package Stacks

import (
	"sync/atomic"

	"github.com/g-m-twostay/concur/Backoff"
	"github.com/g-m-twostay/concur/SMR"
)

// DefaultBlockSize is B from §4.6: a bounded stack's capacity amortises one
// SMR retire over this many operations instead of one per pop.
const DefaultBlockSize = 128

// BlockedStack is the unbounded-blocked stack from §4.6: a Treiber-style
// chain of BoundedStack blocks. A block that fills gets a fresh one pushed
// in front of it; a block that drains to empty gets sealed (§4.2's Mark
// sentinel) and unlinked, amortising SMR retirement over DefaultBlockSize
// operations instead of one per element the way TreiberStack does.
type BlockedStack[T any] struct {
	alloc     *SMR.Allocator[*BoundedStack[T]]
	head      atomic.Pointer[SMR.Node[*BoundedStack[T]]]
	blockSize uint32
}

// MakeBlockedStack builds an empty stack, usable by up to maxThreads
// concurrent callers, whose blocks hold blockSize elements each.
func MakeBlockedStack[T any](maxThreads int, blockSize uint32) *BlockedStack[T] {
	if blockSize < 2 {
		blockSize = DefaultBlockSize
	}
	b := &BlockedStack[T]{
		alloc:     SMR.NewAllocator[*BoundedStack[T]](maxThreads, defaultRMax, defaultEraEvery),
		blockSize: blockSize,
	}
	n := b.alloc.Allocate(MakeBoundedStack[T](blockSize))
	b.head.Store(n)
	return b
}

// Push places value atop the current head block, growing the chain with a
// fresh block when the head is full or was just sealed out from under it.
func (b *BlockedStack[T]) Push(tid int, value T) {
	g := b.alloc.EnterGuard(tid)
	defer g.Exit()

	var bo Backoff.Backoff
	for {
		h := b.alloc.Protect(&b.head)
		if h.Value.Push(value) {
			return
		}

		n := b.alloc.Allocate(MakeBoundedStack[T](b.blockSize))
		n.Next.Store(h)
		if b.head.CompareAndSwap(h, n) {
			continue // next iteration pushes value into the new, empty head.
		}
		b.alloc.Retire(tid, n) // never published: abandoned, not a live head.
		bo.Pause()
	}
}

// Emplace is Push without requiring the caller to construct a T first.
func (b *BlockedStack[T]) Emplace(tid int, build func() T) {
	b.Push(tid, build())
}

// Pop removes and returns the top value across the chain, sealing and
// retiring head blocks that drain to empty along the way.
func (b *BlockedStack[T]) Pop(tid int) (T, bool) {
	g := b.alloc.EnterGuard(tid)
	defer g.Exit()

	var bo Backoff.Backoff
	for {
		h := b.alloc.Protect(&b.head)
		if v, ok := h.Value.Pop(); ok {
			return v, true
		}

		next := b.alloc.Protect(&h.Next)
		if next == nil {
			var zero T
			return zero, false
		}

		index, counter := h.Value.sealedFrom()
		if index == Mark || (index == 0 && h.Value.seal(index, counter)) {
			if b.head.CompareAndSwap(h, next) {
				b.alloc.Retire(tid, h)
			}
		}
		bo.Pause()
	}
}

// Empty reports whether the chain currently has no elements anywhere.
// Not linearizable with concurrent mutators.
func (b *BlockedStack[T]) Empty() bool {
	h := b.head.Load()
	for h != nil {
		if !h.Value.Empty() {
			return false
		}
		h = h.Next.Load()
	}
	return true
}

// Clear drains the chain, attributed to tid, matching spec.md §6's
// "Unbounded blocked stack<T, B=128>" clear() operation.
func (b *BlockedStack[T]) Clear(tid int) {
	for {
		if _, ok := b.Pop(tid); !ok {
			return
		}
	}
}

// Stats exposes the underlying allocator's bookkeeping.
func (b *BlockedStack[T]) Stats() SMR.Stats {
	return b.alloc.Stats()
}
