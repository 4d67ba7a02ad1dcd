// Package predicate provides an immutable, hash-indexed mapping from
// feature names to dense column ids.
package predicate

import (
	"github.com/dgryski/go-spooky"
	"github.com/pkg/errors"
)

var (
	// ErrDuplicateKey is returned when the keys passed to NewIndexTable are not unique.
	ErrDuplicateKey = errors.New("predicate: duplicate key")
	// ErrLoadFactor is returned for a load factor outside (0, 1].
	ErrLoadFactor = errors.New("predicate: load factor must be in (0, 1]")
)

// IndexTable maps each key to its position in the array it was built from.
// It uses open addressing with linear probing. Once built it is never
// modified, so concurrent Get calls need no locking.
type IndexTable struct {
	keys   []string // slot -> key
	values []int    // slot -> original index, -1 for an empty slot
	size   int
}

// NewIndexTable builds a table over keys. The bucket array holds
// len(keys)/loadFactor + 1 slots, so at least one slot is always empty.
func NewIndexTable(keys []string, loadFactor float64) (*IndexTable, error) {
	if !(loadFactor > 0 && loadFactor <= 1) {
		return nil, errors.Wrapf(ErrLoadFactor, "got %v", loadFactor)
	}

	capacity := int(float64(len(keys))/loadFactor) + 1
	t := &IndexTable{
		keys:   make([]string, capacity),
		values: make([]int, capacity),
		size:   len(keys),
	}
	for i := range t.values {
		t.values[i] = -1
	}

	for i, key := range keys {
		slot := t.indexFor(key)
		for t.values[slot] != -1 {
			if t.keys[slot] == key {
				return nil, errors.Wrapf(ErrDuplicateKey, "%q at positions %d and %d", key, t.values[slot], i)
			}
			slot = t.next(slot)
		}
		t.keys[slot] = key
		t.values[slot] = i
	}
	return t, nil
}

func (t *IndexTable) indexFor(key string) int {
	return int(spooky.Hash64([]byte(key)) % uint64(len(t.values)))
}

func (t *IndexTable) next(slot int) int {
	slot++
	if slot == len(t.values) {
		return 0
	}
	return slot
}

// Get returns the original position of key, or false if key was not part
// of the construction array.
func (t *IndexTable) Get(key string) (int, bool) {
	if t == nil || len(t.values) == 0 {
		return -1, false
	}
	slot := t.indexFor(key)
	for t.values[slot] != -1 {
		if t.keys[slot] == key {
			return t.values[slot], true
		}
		slot = t.next(slot)
	}
	return -1, false
}

// Size returns the number of keys.
func (t *IndexTable) Size() int {
	if t == nil {
		return 0
	}
	return t.size
}

// Keys returns the keys in their original order.
func (t *IndexTable) Keys() []string {
	if t == nil {
		return nil
	}
	out := make([]string, t.size)
	for slot, idx := range t.values {
		if idx != -1 {
			out[idx] = t.keys[slot]
		}
	}
	return out
}
