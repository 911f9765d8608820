// Package Backoff implements the exponential pause-spin policy every spin
// point in this module's containers shares: bounded-stack contention,
// ring-queue tail publish, and BBQ cross-block advance.
package Backoff

import (
	"runtime"

	GoUtils "github.com/g-m-twostay/concur"
)

const (
	minSpins = 1
	maxSpins = 1 << 10
)

// Backoff is a small, per-call-site value — not a package singleton, the
// way the teacher's FlagLock is one-per-node rather than shared. Zero value
// is ready to use.
type Backoff struct {
	spins uint32
}

// Pause spins, then doubles the spin budget for next time up to a cap. Go
// exposes no portable pause instruction to user code, so the "pause hint"
// from the design notes is realized as a jittered number (between half and
// all of the budget) of runtime.Gosched calls, so the scheduler can run
// other goroutines while this one waits.
func (b *Backoff) Pause() {
	n := b.spins
	if n == 0 {
		n = minSpins
	}
	jitter := n/2 + GoUtils.CheapRandN(n/2+1)
	for i := uint32(0); i < jitter; i++ {
		runtime.Gosched()
	}
	if n < maxSpins {
		b.spins = n * 2
	} else {
		b.spins = maxSpins
	}
}

// Reset clears the spin budget after a successful operation, so the next
// contention episode starts cold again instead of inheriting a long spin.
func (b *Backoff) Reset() {
	b.spins = 0
}
