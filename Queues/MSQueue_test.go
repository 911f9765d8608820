package Queues

import (
	"sync"
	"testing"

	"github.com/emirpasic/gods/queues/arrayqueue"
	"github.com/g-m-twostay/concur/Registry"
)

func TestMSQueue_SequentialOracleOrder(t *testing.T) {
	lease := Registry.Acquire()
	defer Registry.Release(lease)

	q := MakeMSQueue[int](Registry.MaxThreads)
	oracle := arrayqueue.New()
	const n = 500
	for i := 0; i < n; i++ {
		q.Push(lease.ID(), i)
		oracle.Enqueue(i)
	}
	for i := 0; i < n; i++ {
		v, ok := q.Pop(lease.ID())
		want, _ := oracle.Dequeue()
		if !ok || v != want.(int) {
			t.Fatalf("order mismatch at %d: got (%v,%v) want %v", i, v, ok, want)
		}
	}
	if _, ok := q.Pop(lease.ID()); ok {
		t.Fatal("pop from empty queue: expected false")
	}
}

// TestMSQueue_LivenessBound drives many concurrent producers/consumers and
// checks the SMR allocator's retired-but-unreclaimed bound holds (§8 E5):
// Retired should never run away unboundedly relative to the thread count.
func TestMSQueue_LivenessBound(t *testing.T) {
	const producers = 4
	const consumers = 4
	const perProducer = 5000

	q := MakeMSQueue[int](Registry.MaxThreads)
	var wg sync.WaitGroup
	wg.Add(producers + consumers)

	var popped int64
	var poppedMu sync.Mutex

	for p := 0; p < producers; p++ {
		go func() {
			defer wg.Done()
			lease := Registry.Acquire()
			defer Registry.Release(lease)
			for i := 0; i < perProducer; i++ {
				q.Push(lease.ID(), i)
			}
		}()
	}
	total := producers * perProducer
	for c := 0; c < consumers; c++ {
		go func() {
			defer wg.Done()
			lease := Registry.Acquire()
			defer Registry.Release(lease)
			for {
				poppedMu.Lock()
				done := popped >= int64(total)
				poppedMu.Unlock()
				if done {
					return
				}
				if _, ok := q.Pop(lease.ID()); ok {
					poppedMu.Lock()
					popped++
					poppedMu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	stats := q.Stats()
	if stats.Retired > uint64(64*Registry.MaxThreads) {
		t.Fatalf("retired list grew unbounded: %+v", stats)
	}
}
