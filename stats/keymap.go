package stats

import (
	"github.com/zeebo/xxh3"

	"github.com/TFMV/onebrc/record"
)

// DefaultCapacity is the initial slot count used when none is given.
const DefaultCapacity = 1024

// KeyMap is a hash table from raw key bytes to their Stat, tuned for a single
// writer. It uses open addressing with linear probing.
//
// Lookups take the key as a borrowed byte slice and never allocate; the key
// is copied into owned storage only the first time it is inserted.
type KeyMap struct {
	keys     []string
	hashes   []uint64
	values   []Stat
	occupied []bool
	size     int
	mask     uint64
}

// NewKeyMap creates a KeyMap able to hold capacity keys before growing.
func NewKeyMap(capacity int) *KeyMap {
	if capacity < 1 {
		capacity = DefaultCapacity
	}

	// Keep the load factor under 3/4 at the requested capacity.
	slots := nextPowerOfTwo(capacity + capacity/3 + 1)

	return &KeyMap{
		keys:     make([]string, slots),
		hashes:   make([]uint64, slots),
		values:   make([]Stat, slots),
		occupied: make([]bool, slots),
		mask:     uint64(slots - 1),
	}
}

// nextPowerOfTwo returns the next power of two greater than or equal to v.
func nextPowerOfTwo(v int) int {
	n := 1
	for n < v {
		n <<= 1
	}
	return n
}

// find returns the slot holding key, or the empty slot where it belongs.
func (m *KeyMap) find(key []byte, h uint64) (uint64, bool) {
	i := h & m.mask
	for m.occupied[i] {
		if m.hashes[i] == h && m.keys[i] == string(key) {
			return i, true
		}
		i = (i + 1) & m.mask
	}
	return i, false
}

// Add folds value into the Stat of key, creating it on first sight.
func (m *KeyMap) Add(key []byte, value record.Tenths) {
	h := xxh3.Hash(key)

	i, ok := m.find(key, h)
	if ok {
		m.values[i].Add(value)
		return
	}

	if (m.size+1)*4 > len(m.keys)*3 {
		m.grow()
		i, _ = m.find(key, h)
	}

	m.keys[i] = string(key)
	m.hashes[i] = h
	m.values[i] = NewStat(value)
	m.occupied[i] = true
	m.size++
}

// Get returns the Stat of key. The pointer stays valid until the next Add.
func (m *KeyMap) Get(key []byte) (*Stat, bool) {
	i, ok := m.find(key, xxh3.Hash(key))
	if !ok {
		return nil, false
	}
	return &m.values[i], true
}

// Len returns the number of distinct keys.
func (m *KeyMap) Len() int {
	return m.size
}

// Range calls f for each key until f returns false.
func (m *KeyMap) Range(f func(key string, s *Stat) bool) {
	for i := range m.occupied {
		if m.occupied[i] {
			if !f(m.keys[i], &m.values[i]) {
				return
			}
		}
	}
}

// grow doubles the slot count and reinserts every entry using the cached
// hashes.
func (m *KeyMap) grow() {
	slots := len(m.keys) * 2
	keys := make([]string, slots)
	hashes := make([]uint64, slots)
	values := make([]Stat, slots)
	occupied := make([]bool, slots)
	mask := uint64(slots - 1)

	for i := range m.occupied {
		if !m.occupied[i] {
			continue
		}
		j := m.hashes[i] & mask
		for occupied[j] {
			j = (j + 1) & mask
		}
		keys[j] = m.keys[i]
		hashes[j] = m.hashes[i]
		values[j] = m.values[i]
		occupied[j] = true
	}

	m.keys = keys
	m.hashes = hashes
	m.values = values
	m.occupied = occupied
	m.mask = mask
}
