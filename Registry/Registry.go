// Package Registry assigns each active worker a dense id in [0, MaxThreads)
// so the rest of the library (SMR slots, per-thread retire lists) can index
// plain arrays instead of maps. The real per-thread-identity service this
// normally rides on (a monotone thread id with a known upper bound) is
// assumed available per the package's scope; Registry is the concrete,
// minimal implementation of that assumption.
package Registry

import (
	GoUtils "github.com/g-m-twostay/concur"
)

// MaxThreads bounds every dense id this registry ever hands out. Chosen
// generously for a library: callers needing a tighter bound should size
// their own pools off runtime.GOMAXPROCS and Acquire a Lease per worker
// goroutine, not per call.
const MaxThreads = 4096

var free = GoUtils.New(MaxThreads)
var freeMu chan struct{} = make(chan struct{}, 1)

func init() {
	for i := 0; i < MaxThreads; i++ {
		free.Up(i)
	}
	freeMu <- struct{}{}
}

// Lease is a dense thread id held for the lifetime of one worker goroutine.
// Passing a Lease explicitly into SMR and bounded-container calls is the
// fast path; Release returns the id to the pool once the goroutine exits.
type Lease struct {
	id int
}

// ID returns the dense id in [0, MaxThreads) this lease was issued.
func (l Lease) ID() int { return l.id }

// Acquire hands out an unused dense id. Panics if every id is in use —
// that is a configuration error (MaxThreads too small), not a transient
// condition a caller can retry past.
func Acquire() Lease {
	<-freeMu
	defer func() { freeMu <- struct{}{} }()
	for i := 0; i < MaxThreads; i++ {
		if free.Get(i) {
			free.Down(i)
			trackAcquire(i)
			return Lease{id: i}
		}
	}
	panic("Registry: MaxThreads exhausted")
}

// Release returns l's id to the pool. The caller must not use l, nor any
// SMR guard or container call keyed by l.ID(), after calling Release.
func Release(l Lease) {
	<-freeMu
	free.Up(l.id)
	freeMu <- struct{}{}
	trackRelease(l.id)
}

// Count reports how many leases are currently outstanding. Diagnostic only.
func Count() int {
	<-freeMu
	defer func() { freeMu <- struct{}{} }()
	n := 0
	for i := 0; i < MaxThreads; i++ {
		if !free.Get(i) {
			n++
		}
	}
	return n
}
