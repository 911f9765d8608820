// Package Maps carries the key constraint every container in this module
// keyed on user types shares.
package Maps

// Hashable is the key constraint for HashTable.EH, matching the teacher's
// own convention across its map implementations.
type Hashable interface {
	Hash() int64
	Equal(other Hashable) bool
}
