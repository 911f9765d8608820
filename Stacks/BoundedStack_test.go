package Stacks

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/emirpasic/gods/stacks/arraystack"
)

// TestBoundedStack_E1 is spec's single-threaded capacity-4 walkthrough.
func TestBoundedStack_E1(t *testing.T) {
	s := MakeBoundedStack[int](4)
	for i := 1; i <= 4; i++ {
		if !s.Push(i) {
			t.Fatalf("push %d: expected true", i)
		}
	}
	if s.Push(5) {
		t.Fatal("push into full stack: expected false")
	}
	for i := 4; i >= 1; i-- {
		v, ok := s.Pop()
		if !ok || v != i {
			t.Fatalf("pop: got (%v,%v) want %d", v, ok, i)
		}
	}
	if _, ok := s.Pop(); ok {
		t.Fatal("pop from empty stack: expected false")
	}
}

// TestBoundedStack_OracleOrder cross-checks LIFO order against
// emirpasic/gods' sequential arraystack (§2.1).
func TestBoundedStack_OracleOrder(t *testing.T) {
	s := MakeBoundedStack[int](64)
	oracle := arraystack.New()
	for i := 0; i < 64; i++ {
		s.Push(i)
		oracle.Push(i)
	}
	for i := 0; i < 64; i++ {
		v, ok := s.Pop()
		want, _ := oracle.Pop()
		if !ok || v != want.(int) {
			t.Fatalf("order mismatch: got (%v,%v) want %v", v, ok, want)
		}
	}
}

func TestBoundedStack_EmptyFull(t *testing.T) {
	s := MakeBoundedStack[int](2)
	if !s.Empty() {
		t.Fatal("fresh stack should be empty")
	}
	s.Push(1)
	s.Push(2)
	if !s.Full() {
		t.Fatal("stack at capacity should report full")
	}
}

// TestBoundedStack_ConcurrentNoCorruption drives multiple producers and
// consumers against one shared BoundedStack under contention — the
// scenario that exposes a torn (index,counter,value) publish: a corrupted
// slot would surface here as a value popped twice, never popped, or
// outside the produced range. Meant to be run with -race (§1.1, §8 #1/#4).
func TestBoundedStack_ConcurrentNoCorruption(t *testing.T) {
	const (
		capacity    = 8
		producers   = 4
		perProducer = 500
		consumers   = 4
	)
	s := MakeBoundedStack[int](capacity)
	total := producers * perProducer

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				v := p*perProducer + i
				for !s.Push(v) {
				}
			}
		}(p)
	}

	seen := make([]int32, total)
	var consumed int64
	wg.Add(consumers)
	for c := 0; c < consumers; c++ {
		go func() {
			defer wg.Done()
			for atomic.LoadInt64(&consumed) < int64(total) {
				v, ok := s.Pop()
				if !ok {
					continue
				}
				if v < 0 || v >= total {
					t.Errorf("popped out-of-range value %d", v)
					return
				}
				if atomic.AddInt32(&seen[v], 1) != 1 {
					t.Errorf("value %d popped more than once", v)
					return
				}
				atomic.AddInt64(&consumed, 1)
			}
		}()
	}
	wg.Wait()

	for v, n := range seen {
		if n != 1 {
			t.Fatalf("value %d seen %d times, want exactly 1", v, n)
		}
	}
}

func TestBoundedStack_RejectsTinyCapacity(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for capacity < 2")
		}
	}()
	MakeBoundedStack[int](1)
}
