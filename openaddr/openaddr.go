// Copyright © 2014-2017 Lawrence E. Bakst. All rights reserved.

// Package openaddr implements a single threaded linear probing hash table
// with tombstones. Slot state lives in two bitsets, one for live slots and
// one for tombstones; a slot set in neither is empty. An empty slot always
// terminates a probe run, a tombstone never does, because live entries
// inserted after the deletion can sit behind it in probe order.
// Not safe for concurrent use.
package openaddr

import (
	"math/rand"

	"github.com/willf/bitset"

	"leb.io/hashtab/internal/keyhash"
)

const (
	// DefaultLoadFactor is the growth threshold used by New and WithCapacity.
	// Live and tombstone density are summed against it.
	DefaultLoadFactor = 0.4
	// fanout is how many slots WithCapacity allocates per expected entry.
	fanout = 8
	// lazySlots is the slot count materialized on the first insert into a
	// table constructed without capacity.
	lazySlots = 64
)

type entry[K comparable, V any] struct {
	key K
	val V
}

// Map is a linear probing hash table from K to V.
type Map[K comparable, V any] struct {
	slots      []entry[K, V]
	live       *bitset.BitSet
	tombs      *bitset.BitSet
	length     int
	tombCount  int
	loadFactor float64
	seed       uint64
	hash       keyhash.Func[K]
}

// New returns an empty table with the default load factor. Slots are not
// allocated until the first insert.
func New[K comparable, V any]() *Map[K, V] {
	return withExactCapacity[K, V](0, DefaultLoadFactor)
}

// WithCapacity pre-sizes the slot array to comfortably hold n entries at the
// default load factor.
func WithCapacity[K comparable, V any](n int) *Map[K, V] {
	return withExactCapacity[K, V](n*fanout, DefaultLoadFactor)
}

// WithLoadFactor returns an empty, lazily allocated table with a custom
// growth threshold.
func WithLoadFactor[K comparable, V any](f float64) *Map[K, V] {
	return withExactCapacity[K, V](0, f)
}

func withExactCapacity[K comparable, V any](capacity int, lf float64) *Map[K, V] {
	return &Map[K, V]{
		slots:      make([]entry[K, V], capacity),
		live:       bitset.New(uint(capacity)),
		tombs:      bitset.New(uint(capacity)),
		loadFactor: lf,
		seed:       rand.Uint64(),
		hash:       keyhash.New[K](),
	}
}

// Len returns the number of live entries. Tombstones do not count.
func (m *Map[K, V]) Len() int {
	return m.length
}

// Empty reports whether the table holds no live entries.
func (m *Map[K, V]) Empty() bool {
	return m.length == 0
}

// FillFactor is the ratio of live entries to slots, 0 for an unallocated
// table.
func (m *Map[K, V]) FillFactor() float64 {
	if len(m.slots) == 0 {
		return 0.0
	}
	return float64(m.length) / float64(len(m.slots))
}

// TombCount returns the number of tombstoned slots.
func (m *Map[K, V]) TombCount() int {
	return m.tombCount
}

func (m *Map[K, V]) tombFactor() float64 {
	if len(m.slots) == 0 {
		return 0.0
	}
	return float64(m.tombCount) / float64(len(m.slots))
}

// Clear drops every entry and every tombstone. The slot array keeps its
// size.
func (m *Map[K, V]) Clear() {
	m.length = 0
	m.tombCount = 0
	m.live.ClearAll()
	m.tombs.ClearAll()
	for i := range m.slots {
		m.slots[i] = entry[K, V]{}
	}
}

func (m *Map[K, V]) index(key K) int {
	return int(m.hash(key, m.seed) % uint64(len(m.slots)))
}

// Insert adds or overwrites key. The insertion point is the first tombstone
// or empty slot on the probe path, but the scan keeps going past tombstones
// until it hits an empty slot or the key itself: a duplicate sitting beyond
// a tombstone is overwritten in place, never inserted a second time.
func (m *Map[K, V]) Insert(key K, val V) (V, bool) {
	var zero V
	if len(m.slots) == 0 {
		*m = *withExactCapacity[K, V](lazySlots, m.loadFactor)
	}
	if m.FillFactor()+m.tombFactor() >= m.loadFactor {
		m.rehash()
	}
	i := m.index(key)
	insertAt := -1
	for probes := 0; probes < len(m.slots); probes++ {
		switch {
		case m.live.Test(uint(i)):
			if m.slots[i].key == key {
				old := m.slots[i].val
				m.slots[i].val = val
				return old, true
			}
		case m.tombs.Test(uint(i)):
			if insertAt < 0 {
				insertAt = i
			}
		default:
			if insertAt < 0 {
				insertAt = i
			}
			m.place(insertAt, key, val)
			return zero, false
		}
		i = (i + 1) % len(m.slots)
	}
	// The rehash above guarantees an empty slot on every probe path.
	panic("openaddr: probe overrun")
}

func (m *Map[K, V]) place(i int, key K, val V) {
	if m.tombs.Test(uint(i)) {
		m.tombs.Clear(uint(i))
		m.tombCount--
	}
	m.live.Set(uint(i))
	m.slots[i] = entry[K, V]{key: key, val: val}
	m.length++
}

// rehash doubles the slot array and reinserts every live entry, which
// recomputes all probe chains and drops the accumulated tombstones.
func (m *Map[K, V]) rehash() {
	n := withExactCapacity[K, V](len(m.slots)*2, m.loadFactor)
	n.seed = m.seed
	for i := range m.slots {
		if m.live.Test(uint(i)) {
			n.Insert(m.slots[i].key, m.slots[i].val)
		}
	}
	*m = *n
}

// Lookup returns the value stored under key.
func (m *Map[K, V]) Lookup(key K) (V, bool) {
	var zero V
	if m.Empty() {
		return zero, false
	}
	if i, ok := m.find(key); ok {
		return m.slots[i].val, true
	}
	return zero, false
}

// Ref returns a pointer to the value stored under key, or nil if absent.
// The pointer is invalidated by the next insert, delete or rehash.
func (m *Map[K, V]) Ref(key K) *V {
	if m.Empty() {
		return nil
	}
	if i, ok := m.find(key); ok {
		return &m.slots[i].val
	}
	return nil
}

// find probes for key, skipping tombstones and stopping at the first empty
// slot.
func (m *Map[K, V]) find(key K) (int, bool) {
	i := m.index(key)
	for probes := 0; probes < len(m.slots); probes++ {
		switch {
		case m.live.Test(uint(i)):
			if m.slots[i].key == key {
				return i, true
			}
		case m.tombs.Test(uint(i)):
			// probe past it
		default:
			return 0, false
		}
		i = (i + 1) % len(m.slots)
	}
	return 0, false
}

// Delete removes key and leaves a tombstone in its slot so probe runs that
// pass through it still terminate correctly.
func (m *Map[K, V]) Delete(key K) (V, bool) {
	var zero V
	if m.Empty() {
		return zero, false
	}
	i, ok := m.find(key)
	if !ok {
		return zero, false
	}
	val := m.slots[i].val
	m.slots[i] = entry[K, V]{}
	m.live.Clear(uint(i))
	m.tombs.Set(uint(i))
	m.length--
	m.tombCount++
	return val, true
}
