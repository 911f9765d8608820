package Queues

import (
	"sync/atomic"

	"github.com/g-m-twostay/concur/Backoff"
)

// cursor packs (offset:u32, version:u32) into one CAS-able word (§3), used
// for every BBQ cursor: per-block allocated/committed/reserved/consumed and
// the two block-selecting heads phead/chead.
type cursor = uint64

func packCursor(offset, version uint32) cursor {
	return uint64(version)<<32 | uint64(offset)
}

func unpackCursor(c cursor) (offset, version uint32) {
	return uint32(c), uint32(c >> 32)
}

// fetchMaxCursor installs proposed only if it is strictly greater than the
// current value, as a raw uint64 — version occupies the high bits, so
// numeric comparison is exactly the (version, offset) lexicographic order
// the monotone-raise rule needs (§4.4).
func fetchMaxCursor(c *atomic.Uint64, proposed cursor) {
	for {
		old := c.Load()
		if proposed <= old {
			return
		}
		if c.CompareAndSwap(old, proposed) {
			return
		}
	}
}

type bbqBlock[T any] struct {
	allocated atomic.Uint64
	committed atomic.Uint64
	reserved  atomic.Uint64
	consumed  atomic.Uint64
	entries   []T
}

func (b *bbqBlock[T]) resetForVersion(version uint32) {
	fetchMaxCursor(&b.allocated, packCursor(0, version))
	fetchMaxCursor(&b.committed, packCursor(0, version))
	fetchMaxCursor(&b.reserved, packCursor(0, version))
	fetchMaxCursor(&b.consumed, packCursor(0, version))
}

// BBQ is the block-based bounded queue from §4.4: K power-of-two blocks of
// B entries each, producer/consumer advancing across blocks via monotone
// versioned cursors so wrap-around never needs modular arithmetic on the
// cursors themselves — only on which block a head currently names.
type BBQ[T any] struct {
	k, b  uint32
	kMask uint32

	blocks []bbqBlock[T]

	_pad0 [7]uint64
	phead atomic.Uint64
	_pad1 [7]uint64
	chead atomic.Uint64
	_pad2 [7]uint64
}

// full queue result codes, per the design notes' "express optional<T> as a
// two-return (ok, value) or a tagged variant" (§9): advanceHead distinguishes
// a genuinely full/empty queue from a transient "the neighboring block
// hasn't drained/filled yet" condition the caller should just retry.
type advanceResult int

const (
	advanceOK advanceResult = iota
	advanceBusy
	advanceFull
)

// MakeBBQ builds a queue of k blocks of b entries each; both must be
// powers of two and k*b is the effective capacity. Per §6, pick b so
// log2(k) ≈ max(1, log2(k*b)/4) when no specific block size is needed.
func MakeBBQ[T any](k, b uint32) *BBQ[T] {
	if k < 2 || k&(k-1) != 0 || b < 1 || b&(b-1) != 0 {
		panic("Queues: BBQ k and b must be powers of two, k >= 2")
	}
	q := &BBQ[T]{k: k, b: b, kMask: k - 1, blocks: make([]bbqBlock[T], k)}
	for i := range q.blocks {
		q.blocks[i].entries = make([]T, b)
	}
	return q
}

func (q *BBQ[T]) Capacity() uint64 {
	return uint64(q.k) * uint64(q.b)
}

// Push allocates a slot in the current producer block, writes it, commits
// it, and advances to the next block when the current one fills.
func (q *BBQ[T]) Push(value T) bool {
	var bo Backoff.Backoff
	for {
		ph := q.phead.Load()
		idx, version := unpackCursor(ph)
		block := &q.blocks[idx&q.kMask]

		for {
			old := block.allocated.Load()
			offset, v := unpackCursor(old)
			if v != version {
				break // another thread already advanced phead past us; reload.
			}
			if offset >= q.b {
				break // this block is done; fall through to advance.
			}
			if block.allocated.CompareAndSwap(old, packCursor(offset+1, version)) {
				block.entries[offset] = value
				for {
					c, cv := unpackCursor(block.committed.Load())
					if cv == version && c == offset {
						block.committed.Store(packCursor(offset+1, version))
						return true
					}
					bo.Pause()
				}
			}
		}

		switch q.advancePHead(idx, version) {
		case advanceFull:
			return false
		case advanceBusy:
			bo.Pause()
		case advanceOK:
		}
	}
}

func (q *BBQ[T]) advancePHead(idx, version uint32) advanceResult {
	nextIdx := (idx + 1) & q.kMask
	nextVersion := version
	if nextIdx <= idx {
		nextVersion = version + 1
	}
	next := &q.blocks[nextIdx]
	cOffset, cVersion := unpackCursor(next.consumed.Load())
	// On the first lap (nextVersion 0) the block has no previous life to drain.
	if nextVersion > 0 && (cVersion < nextVersion-1 || (cVersion == nextVersion-1 && cOffset < q.b)) {
		// Consumer hasn't finished draining this block's previous life yet.
		if cVersion < nextVersion {
			return advanceFull
		}
		return advanceBusy
	}
	next.resetForVersion(nextVersion)
	fetchMaxCursor(&q.phead, packCursor(nextIdx, nextVersion))
	return advanceOK
}

// Pop is the mirror of Push over reserved/consumed and chead.
func (q *BBQ[T]) Pop() (T, bool) {
	var bo Backoff.Backoff
	for {
		ch := q.chead.Load()
		idx, version := unpackCursor(ch)
		block := &q.blocks[idx&q.kMask]

		for {
			old := block.reserved.Load()
			offset, v := unpackCursor(old)
			if v != version || offset >= q.b {
				break
			}
			committedOffset, committedVersion := unpackCursor(block.committed.Load())
			if committedVersion != version || committedOffset <= offset {
				var zero T
				return zero, false // producer hasn't published this slot yet: queue is empty from here.
			}
			if block.reserved.CompareAndSwap(old, packCursor(offset+1, version)) {
				value := block.entries[offset]
				var zero T
				block.entries[offset] = zero
				for {
					c, cv := unpackCursor(block.consumed.Load())
					if cv == version && c == offset {
						block.consumed.Store(packCursor(offset+1, version))
						return value, true
					}
					bo.Pause()
				}
			}
		}

		switch q.advanceCHead(idx, version) {
		case advanceFull:
			var zero T
			return zero, false
		case advanceBusy:
			bo.Pause()
		case advanceOK:
		}
	}
}

func (q *BBQ[T]) advanceCHead(idx, version uint32) advanceResult {
	nextIdx := (idx + 1) & q.kMask
	nextVersion := version
	if nextIdx <= idx {
		nextVersion = version + 1
	}
	next := &q.blocks[nextIdx]
	pOffset, pVersion := unpackCursor(next.committed.Load())
	if pVersion != nextVersion {
		return advanceFull // the producer hasn't reached this block yet: queue is empty.
	}
	if pOffset == 0 {
		return advanceFull
	}
	fetchMaxCursor(&q.chead, packCursor(nextIdx, nextVersion))
	return advanceOK
}

// Empty reports whether every block the consumer can currently see has
// nothing left reserved for it.
func (q *BBQ[T]) Empty() bool {
	ch := q.chead.Load()
	idx, version := unpackCursor(ch)
	block := &q.blocks[idx&q.kMask]
	rOffset, rVersion := unpackCursor(block.reserved.Load())
	cOffset, cVersion := unpackCursor(block.committed.Load())
	return rVersion == version && cVersion == version && rOffset >= cOffset
}

// Emplace is Push without requiring the caller to pre-build a T.
func (q *BBQ[T]) Emplace(build func() T) bool {
	return q.Push(build())
}
