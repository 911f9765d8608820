package Go_Utils

import (
	_ "runtime"
	_ "unsafe"
)

// CheapRandN returns a cheap, non-cryptographic random number in [0, n).
// Linked against the runtime's scheduler RNG so spin/backoff jitter costs
// no extra state or seeding.
//
//go:linkname CheapRandN runtime.fastrandn
//go:nosplit
func CheapRandN(n uint32) uint32
