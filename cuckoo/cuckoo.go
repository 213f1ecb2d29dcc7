// Copyright © 2014-2017 Lawrence E. Bakst. All rights reserved.

// Package cuckoo implements a single threaded two-choice cuckoo hash table.
// The slot array is split into two equal halves, each addressed by its own
// independently seeded hash function, so every key has exactly one candidate
// slot per half. Inserts into a full pair of candidates displace an occupant
// and walk a bounded eviction chain; a chain that finds no hole is broken by
// rehashing at the same capacity with fresh seeds. Sensible load factors
// stay below 0.5 — the structure still behaves correctly above that, it just
// reseeds a lot. Not safe for concurrent use.
package cuckoo

import (
	"math/rand"

	"leb.io/hashtab/internal/keyhash"
)

const (
	// DefaultLoadFactor is the growth threshold used by New and WithCapacity.
	DefaultLoadFactor = 0.4
	// fanout is how many slots WithCapacity allocates per expected entry,
	// split across both halves.
	fanout = 16
	// lazySlots is the total slot count materialized on the first insert
	// into a table constructed without capacity.
	lazySlots = 64
)

type slot[K comparable, V any] struct {
	key  K
	val  V
	used bool
}

// Map is a two-choice cuckoo hash table from K to V.
type Map[K comparable, V any] struct {
	a, b       []slot[K, V]
	length     int
	loadFactor float64
	seedA      uint64
	seedB      uint64
	hash       keyhash.Func[K]
}

// New returns an empty table with the default load factor. Slots are not
// allocated until the first insert.
func New[K comparable, V any]() *Map[K, V] {
	return withExactCapacity[K, V](0, DefaultLoadFactor)
}

// WithCapacity pre-sizes the table to comfortably hold n entries at the
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
	half := capacity / 2
	return &Map[K, V]{
		a:          make([]slot[K, V], half),
		b:          make([]slot[K, V], capacity-half),
		loadFactor: lf,
		seedA:      rand.Uint64(),
		seedB:      rand.Uint64(),
		hash:       keyhash.New[K](),
	}
}

// Len returns the number of live entries.
func (m *Map[K, V]) Len() int {
	return m.length
}

// Empty reports whether the table holds no entries.
func (m *Map[K, V]) Empty() bool {
	return m.length == 0
}

// FillFactor is the ratio of live entries to total slots across both
// halves, 0 for an unallocated table.
func (m *Map[K, V]) FillFactor() float64 {
	if len(m.a)+len(m.b) == 0 {
		return 0.0
	}
	return float64(m.length) / float64(len(m.a)+len(m.b))
}

// Clear drops every entry. The slot arrays keep their size.
func (m *Map[K, V]) Clear() {
	m.length = 0
	for i := range m.a {
		m.a[i] = slot[K, V]{}
	}
	for i := range m.b {
		m.b[i] = slot[K, V]{}
	}
}

func (m *Map[K, V]) indexA(key K) int {
	return int(m.hash(key, m.seedA) % uint64(len(m.a)))
}

func (m *Map[K, V]) indexB(key K) int {
	return int(m.hash(key, m.seedB) % uint64(len(m.b)))
}

// Insert adds or overwrites key. A duplicate in either candidate slot is
// overwritten in place; otherwise the entry goes into whichever candidate is
// empty, preferring half A. With both candidates occupied by other keys the
// new entry displaces A's occupant and the eviction chain runs for at most
// len+1 hops before a same-capacity reseed rehash breaks the cycle.
func (m *Map[K, V]) Insert(key K, val V) (V, bool) {
	var zero V
	if len(m.a)+len(m.b) == 0 {
		*m = *withExactCapacity[K, V](lazySlots, m.loadFactor)
	}
	if m.FillFactor() >= m.loadFactor {
		m.rehash(2)
	}
	sa, sb := &m.a[m.indexA(key)], &m.b[m.indexB(key)]
	switch {
	case sa.used && sa.key == key:
		old := sa.val
		sa.val = val
		return old, true
	case sb.used && sb.key == key:
		old := sb.val
		sb.val = val
		return old, true
	case !sa.used:
		*sa = slot[K, V]{key: key, val: val, used: true}
		m.length++
		return zero, false
	case !sb.used:
		*sb = slot[K, V]{key: key, val: val, used: true}
		m.length++
		return zero, false
	}

	// Both candidates hold other keys. Kick A's occupant, take its slot,
	// and walk the displaced entry around; fromA alternates which half the
	// next victim comes from when both candidates of the displaced entry
	// are occupied.
	k, v := sa.key, sa.val
	sa.key, sa.val = key, val
	fromA := false
	for hops := 0; hops <= m.length; hops++ {
		sa, sb = &m.a[m.indexA(k)], &m.b[m.indexB(k)]
		switch {
		case !sa.used:
			*sa = slot[K, V]{key: k, val: v, used: true}
			m.length++
			return zero, false
		case !sb.used:
			*sb = slot[K, V]{key: k, val: v, used: true}
			m.length++
			return zero, false
		default:
			if fromA {
				k, sa.key = sa.key, k
				v, sa.val = sa.val, v
				fromA = false
			} else {
				k, sb.key = sb.key, k
				v, sb.val = sb.val, v
				fromA = true
			}
		}
	}

	// Cycle. Growing would work too but is not necessary: new hash seeds at
	// the same capacity break it, then the displaced entry goes back in.
	m.rehash(1)
	return m.Insert(k, v)
}

// rehash rebuilds the table at factor times the current capacity with fresh
// seeds and reinserts every entry.
func (m *Map[K, V]) rehash(factor int) {
	n := withExactCapacity[K, V]((len(m.a)+len(m.b))*factor, m.loadFactor)
	for i := range m.a {
		if m.a[i].used {
			n.Insert(m.a[i].key, m.a[i].val)
		}
	}
	for i := range m.b {
		if m.b[i].used {
			n.Insert(m.b[i].key, m.b[i].val)
		}
	}
	*m = *n
}

// Lookup returns the value stored under key. Only the two candidate slots
// are examined; there is no probing.
func (m *Map[K, V]) Lookup(key K) (V, bool) {
	var zero V
	if m.Empty() {
		return zero, false
	}
	if s := &m.a[m.indexA(key)]; s.used && s.key == key {
		return s.val, true
	}
	if s := &m.b[m.indexB(key)]; s.used && s.key == key {
		return s.val, true
	}
	return zero, false
}

// Ref returns a pointer to the value stored under key, or nil if absent.
// The pointer is invalidated by the next insert, delete or rehash.
func (m *Map[K, V]) Ref(key K) *V {
	if m.Empty() {
		return nil
	}
	if s := &m.a[m.indexA(key)]; s.used && s.key == key {
		return &s.val
	}
	if s := &m.b[m.indexB(key)]; s.used && s.key == key {
		return &s.val
	}
	return nil
}

// Delete removes key from whichever candidate slot holds it.
func (m *Map[K, V]) Delete(key K) (V, bool) {
	var zero V
	if m.Empty() {
		return zero, false
	}
	if s := &m.a[m.indexA(key)]; s.used && s.key == key {
		val := s.val
		*s = slot[K, V]{}
		m.length--
		return val, true
	}
	if s := &m.b[m.indexB(key)]; s.used && s.key == key {
		val := s.val
		*s = slot[K, V]{}
		m.length--
		return val, true
	}
	return zero, false
}
