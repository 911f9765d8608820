package Queues

import (
	"sync"
	"testing"

	"github.com/emirpasic/gods/queues/arrayqueue"
)

func TestRingQueue_BoundedE1(t *testing.T) {
	q := MakeRingQueue[int](4)
	for i := 1; i <= 4; i++ {
		if !q.Push(i) {
			t.Fatalf("push %d: expected true", i)
		}
	}
	if q.Push(5) {
		t.Fatalf("push into full queue: expected false")
	}
	for i := 1; i <= 4; i++ {
		v, ok := q.Pop()
		if !ok || v != i {
			t.Fatalf("pop %d: got (%v,%v)", i, v, ok)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Fatalf("pop from empty queue: expected false")
	}
}

// TestRingQueue_OracleOrder cross-checks single-producer/single-consumer
// FIFO order against emirpasic/gods' sequential arrayqueue (§2.1).
func TestRingQueue_OracleOrder(t *testing.T) {
	const n = 1 << 12
	q := MakeRingQueue[int](1 << 8)
	oracle := arrayqueue.New()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			for !q.Push(i) {
			}
		}
	}()
	got := make([]int, 0, n)
	go func() {
		defer wg.Done()
		for len(got) < n {
			if v, ok := q.Pop(); ok {
				got = append(got, v)
			}
		}
	}()
	wg.Wait()

	for _, v := range got {
		oracle.Enqueue(v)
	}
	for i := 0; i < n; i++ {
		want, ok := oracle.Dequeue()
		if !ok || want.(int) != i {
			t.Fatalf("order mismatch at %d: got %v", i, want)
		}
	}
}

func TestRingQueue_EmptyAndCapacity(t *testing.T) {
	q := MakeRingQueue[int](8)
	if !q.Empty() {
		t.Fatal("fresh queue should be empty")
	}
	if q.Capacity() != 8 {
		t.Fatalf("capacity: got %d", q.Capacity())
	}
	q.Push(1)
	if q.Empty() {
		t.Fatal("queue with one element should not be empty")
	}
}

func TestRingQueue_RejectsNonPowerOfTwo(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for non-power-of-two capacity")
		}
	}()
	MakeRingQueue[int](3)
}
