package SMR

import "sync/atomic"

// Node is the allocator-owned envelope around a container value. Per the
// design notes, containers never roll their own intrusive next pointer —
// they get one for free from whatever Allocate returns, and the allocator
// is the only thing that ever repurposes the node header (the freeNext
// field below) once the node is retired.
type Node[T any] struct {
	Value T
	Next  atomic.Pointer[Node[T]] // owned by the container: Treiber/MS linkage.

	freeNext *Node[T] // owned by the allocator; only touched after retire.
	era      uint64
}

// Finalizer is implemented by value types that own a resource (a file, a
// pooled buffer) needing release. Finalize runs exactly once per retire,
// when a scan confirms the retired node is unobserved, just before the node
// goes onto the allocator's free list (or in DeallocateUnsafe).
type Finalizer interface {
	Finalize()
}
