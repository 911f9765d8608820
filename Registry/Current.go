package Registry

import (
	"runtime"
	"strconv"
	"sync"
)

// goroutineID parses this goroutine's id out of the header line runtime.Stack
// always writes first ("goroutine 123 [running]:..."), the standard pure-Go
// technique for keying a per-goroutine cache from outside the runtime
// package, which exposes no portable goroutine-local storage.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]
	const prefix = "goroutine "
	if len(b) > len(prefix) {
		b = b[len(prefix):]
	}
	i := 0
	for i < len(b) && b[i] != ' ' {
		i++
	}
	id, _ := strconv.ParseUint(string(b[:i]), 10, 64)
	return id
}

var leasePool = sync.Pool{
	New: func() any { return new(Lease) },
}

var current sync.Map // goroutine id (uint64) -> *Lease

// Current returns the Lease cached for the calling goroutine, acquiring one
// on first use, for call sites that did not thread a Lease through
// explicitly (spec.md §9's escape hatch). Slower than passing a Lease
// directly: every call parses this goroutine's id out of a runtime stack
// trace, which SMR's own fast path never does. Pairs with ReleaseCurrent,
// which every goroutine using Current must call before it exits — Registry
// has no way to observe goroutine death on its own.
func Current() Lease {
	gid := goroutineID()
	if v, ok := current.Load(gid); ok {
		return *v.(*Lease)
	}
	l := leasePool.Get().(*Lease)
	*l = Acquire()
	if actual, loaded := current.LoadOrStore(gid, l); loaded {
		// Lost the race to another call on this same goroutine id — cannot
		// happen for a true goroutine-local id, but a collision would leak
		// the lease we just acquired, so release it defensively.
		Release(*l)
		leasePool.Put(l)
		return *actual.(*Lease)
	}
	return *l
}

// ReleaseCurrent returns the calling goroutine's Current lease, if any, to
// the pool and its id to the free list.
func ReleaseCurrent() {
	gid := goroutineID()
	if v, ok := current.LoadAndDelete(gid); ok {
		l := v.(*Lease)
		Release(*l)
		leasePool.Put(l)
	}
}
