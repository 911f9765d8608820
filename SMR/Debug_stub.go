//go:build !smrdebug

package SMR

func assertNoActiveGuards[T any](a *Allocator[T]) {}
