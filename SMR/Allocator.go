// Package SMR implements hazard-eras safe memory reclamation: the scheme
// chosen over hyaline/parsec per the design notes for being the simplest to
// implement correctly, scaling to stack/queue fast paths, and needing no
// OS-level quiescence (§4.1).
//
// In Go, memory underneath a dangling pointer is never unsafe to touch —
// the runtime's garbage collector already forbids literal use-after-free.
// What SMR still buys here, faithfully to the contract in spec, is: (1) a
// bound on how much retired-but-possibly-observed state accumulates
// (O(T·Rmax), checked by the liveness test), (2) a defined point — retire,
// confirmed safe by a scan — at which a value's Finalizer runs exactly
// once, and (3) genuine ABA-prevention for the allocator's own free list,
// which does reuse node addresses (see DWCAS.WidePointer's doc comment).
package SMR

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/alphadose/haxmap"
	"github.com/g-m-twostay/concur/Containers"
	"github.com/g-m-twostay/concur/DWCAS"
)

type retiredEntry[T any] struct {
	node *Node[T]
	era  uint64
}

type slot[T any] struct {
	entryEra atomic.Uint64 // 0 means this slot is not inside a guard.
	list     Containers.ArrayQueue[retiredEntry[T]]
}

// Allocator is a type-parametric SMR-backed allocator for Node[T]. One
// Allocator instance is shared by every thread participating in a single
// container; the container constructor creates it sized to the thread
// registry's MaxThreads.
type Allocator[T any] struct {
	rMax     int
	eraEvery uint64

	eraClock   atomic.Uint64
	allocSeq   atomic.Uint64
	allocCount atomic.Uint64
	freeCount  atomic.Uint64

	freeHead DWCAS.WidePointer[Node[T]]

	// nodes holds an ordinary *Node[T] to every node this allocator has
	// ever constructed, recycled or not. freeHead's tagged word hides its
	// pointer from the garbage collector (DWCAS.WidePointer's doc
	// comment), so without this slice a node sitting only on the free
	// list would be invisible to the GC's root scan and could be
	// collected out from under a live freeHead reference. Append-only,
	// guarded by nodesMu — the hot Allocate/Retire path only touches it
	// on the (comparatively rare) branch that builds a brand-new node.
	nodesMu sync.Mutex
	nodes   []*Node[T]

	slots []slot[T]

	leak *haxmap.Map[uintptr, int64]
}

// Option configures an Allocator at construction.
type Option[T any] func(*Allocator[T])

// WithLeakTracking records every outstanding (not yet freed) node's
// address in a concurrent map, independent of the per-thread retire
// lists, so a test can assert it drains to empty at quiescence. Backed by
// alphadose/haxmap: the one spot in this module where a lock-free
// concurrent map — rather than a sequential oracle — is the right tool,
// because allocation happens from arbitrary goroutines on the hot path
// and a tracker needs to keep up without becoming the new bottleneck.
func WithLeakTracking[T any]() Option[T] {
	return func(a *Allocator[T]) {
		a.leak = haxmap.New[uintptr, int64]()
	}
}

// NewAllocator builds an Allocator for up to maxThreads concurrent
// participants. rMax is the retire-list threshold that triggers a scan
// (§4.1); eraEvery is the allocation count, a power of two, after which
// the global era advances by one.
func NewAllocator[T any](maxThreads, rMax int, eraEvery uint64, opts ...Option[T]) *Allocator[T] {
	if rMax < 1 {
		rMax = 1
	}
	if eraEvery == 0 {
		eraEvery = 64
	}
	a := &Allocator[T]{
		rMax:     rMax,
		eraEvery: eraEvery,
		slots:    make([]slot[T], maxThreads),
	}
	a.eraClock.Store(1) // 0 is reserved to mean "no active guard".
	for i := range a.slots {
		a.slots[i].list = Containers.MakeArrayQueue[retiredEntry[T]](uint(rMax))
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

func (a *Allocator[T]) bumpEra() {
	if n := a.allocSeq.Add(1); n%a.eraEvery == 0 {
		a.eraClock.Add(1)
	}
}

func (a *Allocator[T]) track(n *Node[T]) {
	if a.leak != nil {
		a.leak.Set(uintptr(unsafe.Pointer(n)), int64(a.allocSeq.Load()))
	}
}

func (a *Allocator[T]) untrack(n *Node[T]) {
	if a.leak != nil {
		a.leak.Del(uintptr(unsafe.Pointer(n)))
	}
}

// LeakCount reports how many allocated nodes have not yet been freed,
// per the leak tracker. Requires WithLeakTracking; always 0 otherwise.
func (a *Allocator[T]) LeakCount() int {
	if a.leak == nil {
		return 0
	}
	return int(a.leak.Len())
}

// Allocate constructs (or recycles from the free list) a Node[T] holding
// value. Recycling is the only place this module reuses an address for a
// different logical object, which is exactly why the free list head is a
// DWCAS.WidePointer rather than a plain atomic pointer.
func (a *Allocator[T]) Allocate(value T) *Node[T] {
	for {
		head, ctr := a.freeHead.Load()
		if head == nil {
			break
		}
		if a.freeHead.CompareAndSwap(head, ctr, head.freeNext, ctr+1) {
			head.Value = value
			head.Next.Store(nil)
			head.freeNext = nil
			head.era = 0
			a.bumpEra()
			a.allocCount.Add(1)
			a.track(head)
			return head
		}
	}
	n := &Node[T]{Value: value}
	a.nodesMu.Lock()
	a.nodes = append(a.nodes, n)
	a.nodesMu.Unlock()
	a.bumpEra()
	a.allocCount.Add(1)
	a.track(n)
	return n
}

// Protect reads an atomic node pointer so concurrent retirers can see it
// was observed. For hazard-eras the era clock does the real work (§4.1):
// protection is conferred by the guard's entry era, not by this read
// itself, so Protect is a plain acquiring load.
func (a *Allocator[T]) Protect(ptr *atomic.Pointer[Node[T]]) *Node[T] {
	return ptr.Load()
}

// Retire appends n to tid's retire list, stamped with the current era.
// Crossing rMax entries triggers an immediate scan of that thread's own
// list — retirement and reclamation are both confined to the retiring
// thread, so no locking is needed around the list itself.
func (a *Allocator[T]) Retire(tid int, n *Node[T]) {
	era := a.eraClock.Load()
	a.slots[tid].list.Push(retiredEntry[T]{node: n, era: era})
	if a.slots[tid].list.Size() >= uint(a.rMax) {
		a.scan(tid)
	}
}

// reclaimable reports whether every active guard's entry era is strictly
// greater than era — the condition under which a record retired at era
// cannot be observed by any guard still running (§4.1: "no node retired at
// era ≥ entry-era may be freed beneath this thread").
func (a *Allocator[T]) reclaimable(era uint64) bool {
	for i := range a.slots {
		e := a.slots[i].entryEra.Load()
		if e != 0 && e <= era {
			return false
		}
	}
	return true
}

// scan drains tid's retire list, reclaiming every record that is provably
// unobserved and keeping the rest for the next scan. Best-effort: a record
// that cannot yet be freed simply stays on the list (§7).
func (a *Allocator[T]) scan(tid int) {
	list := a.slots[tid].list
	pending := make([]retiredEntry[T], 0, list.Size())
	for !list.Empty() {
		rec, _ := list.Pop()
		if a.reclaimable(rec.era) {
			a.reclaim(rec.node)
		} else {
			pending = append(pending, rec)
		}
	}
	for _, rec := range pending {
		list.Push(rec)
	}
}

// reclaim finalizes n's value (if it owns a resource), then pushes n onto
// the free list for Allocate to recycle.
func (a *Allocator[T]) reclaim(n *Node[T]) {
	if f, ok := any(&n.Value).(Finalizer); ok {
		f.Finalize()
	}
	var zero T
	n.Value = zero
	a.untrack(n)
	a.freeCount.Add(1)
	for {
		head, ctr := a.freeHead.Load()
		n.freeNext = head
		if a.freeHead.CompareAndSwap(head, ctr, n, ctr+1) {
			return
		}
	}
}

// DeallocateUnsafe directly drops n without going through a guard or the
// free list. Valid only during destruction, when no other thread operates
// on the structure n came from — spec's UB-in-release precondition; this
// module debug-asserts the common misuse (calling it while the allocator
// still has active guards) only when built with -tags smrdebug.
func (a *Allocator[T]) DeallocateUnsafe(n *Node[T]) {
	assertNoActiveGuards(a)
	if f, ok := any(&n.Value).(Finalizer); ok {
		f.Finalize()
	}
	a.untrack(n)
}

// Stats reports allocator bookkeeping counters. Allocated-Freed bounds the
// number of nodes this allocator currently has outstanding; Retired sums
// each thread's pending retire-list length.
type Stats struct {
	Allocated uint64
	Freed     uint64
	Retired   uint64
}

func (a *Allocator[T]) Stats() Stats {
	var retired uint64
	for i := range a.slots {
		retired += uint64(a.slots[i].list.Size())
	}
	return Stats{
		Allocated: a.allocCount.Load(),
		Freed:     a.freeCount.Load(),
		Retired:   retired,
	}
}
