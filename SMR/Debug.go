//go:build smrdebug

package SMR

// assertNoActiveGuards panics if any thread currently holds a guard,
// catching the classic DeallocateUnsafe-while-another-thread-operates
// precondition violation (§7) during test builds instead of silently
// racing in release builds.
func assertNoActiveGuards[T any](a *Allocator[T]) {
	for i := range a.slots {
		if a.slots[i].entryEra.Load() != 0 {
			panic("SMR: DeallocateUnsafe called with an active guard outstanding")
		}
	}
}
