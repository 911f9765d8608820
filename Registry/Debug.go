//go:build registrydebug

package Registry

import (
	"time"

	"github.com/cornelk/hashmap"
)

// describe is metadata about a live lease, recorded only when this file is
// compiled in (go build -tags registrydebug). In that build Acquire and
// Release write to this map; in the default build their hooks are no-ops.
type describe struct {
	AcquiredAt time.Time
}

var debugTable = hashmap.New[int, describe]()

func trackAcquire(id int) {
	debugTable.Set(id, describe{AcquiredAt: time.Now()})
}

func trackRelease(id int) {
	debugTable.Del(id)
}

// Describe reports when the given dense id was last acquired, for
// diagnosing "who holds lease N" questions during development. Returns
// false if the id is not currently leased. Defined only in builds with
// -tags registrydebug.
func Describe(id int) (time.Time, bool) {
	d, ok := debugTable.Get(id)
	return d.AcquiredAt, ok
}
