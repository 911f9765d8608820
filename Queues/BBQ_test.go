package Queues

import (
	"sync"
	"testing"

	"github.com/emirpasic/gods/queues/arrayqueue"
	"github.com/petar/GoLLRB/llrb"
)

type intItem int

func (a intItem) Less(than llrb.Item) bool {
	return a < than.(intItem)
}

func TestBBQ_Sequential(t *testing.T) {
	q := MakeBBQ[int](4, 4)
	oracle := arrayqueue.New()
	const n = 40
	for i := 0; i < n; i++ {
		if !q.Push(i) {
			t.Fatalf("push %d failed", i)
		}
		oracle.Enqueue(i)
		v, ok := q.Pop()
		if !ok {
			t.Fatalf("pop %d failed", i)
		}
		want, _ := oracle.Dequeue()
		if v != want.(int) {
			t.Fatalf("order mismatch: got %d want %v", v, want)
		}
	}
}

func TestBBQ_FillsAndDrains(t *testing.T) {
	q := MakeBBQ[int](2, 4) // capacity 8
	for i := 0; i < 8; i++ {
		if !q.Push(i) {
			t.Fatalf("push %d: expected room (capacity %d)", i, q.Capacity())
		}
	}
	for i := 0; i < 8; i++ {
		v, ok := q.Pop()
		if !ok || v != i {
			t.Fatalf("pop %d: got (%v,%v)", i, v, ok)
		}
	}
}

// TestBBQ_NoLostUpdates runs concurrent producers/consumers and checks,
// via a petar/GoLLRB tree as the de-duplicating "seen" set, that every
// produced value is consumed exactly once (§8 E1/E5 in spirit).
func TestBBQ_NoLostUpdates(t *testing.T) {
	const producers = 4
	const perProducer = 2000
	const total = producers * perProducer

	q := MakeBBQ[int](8, 32)
	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				for !q.Push(base*perProducer + i) {
				}
			}
		}(p)
	}

	seen := llrb.New()
	var mu sync.Mutex
	var consumerWG sync.WaitGroup
	consumerWG.Add(2)
	for c := 0; c < 2; c++ {
		go func() {
			defer consumerWG.Done()
			for {
				mu.Lock()
				n := seen.Len()
				mu.Unlock()
				if n >= total {
					return
				}
				v, ok := q.Pop()
				if !ok {
					continue
				}
				mu.Lock()
				if seen.Has(intItem(v)) {
					mu.Unlock()
					t.Errorf("value %d consumed twice", v)
					continue
				}
				seen.ReplaceOrInsert(intItem(v))
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	consumerWG.Wait()

	if seen.Len() != total {
		t.Fatalf("expected %d distinct values consumed, got %d", total, seen.Len())
	}
}

func TestBBQ_RejectsNonPowerOfTwo(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for non-power-of-two k or b")
		}
	}()
	MakeBBQ[int](3, 4)
}
