// Copyright © 2014-2017 Lawrence E. Bakst. All rights reserved.

// Package chaining implements a single threaded separate chaining hash
// table. Each bucket holds a singly linked chain of entries; when the fill
// factor reaches the configured load factor the bucket array doubles and
// every entry is redistributed. Not safe for concurrent use.
package chaining

import (
	"math/rand"

	"leb.io/hashtab/internal/keyhash"
)

const (
	// DefaultLoadFactor is the growth threshold used by New and WithCapacity.
	DefaultLoadFactor = 0.4
	// fanout is how many buckets WithCapacity allocates per expected entry.
	fanout = 8
	// lazyBuckets is the bucket count materialized on the first insert into
	// a table constructed without capacity.
	lazyBuckets = 64
)

type entry[K comparable, V any] struct {
	key  K
	val  V
	next *entry[K, V]
}

// Map is a separate chaining hash table from K to V.
type Map[K comparable, V any] struct {
	buckets    []*entry[K, V]
	length     int
	loadFactor float64
	seed       uint64
	hash       keyhash.Func[K]
}

// New returns an empty table with the default load factor. The bucket array
// is not allocated until the first insert.
func New[K comparable, V any]() *Map[K, V] {
	return withExactCapacity[K, V](0, DefaultLoadFactor)
}

// WithCapacity pre-sizes the bucket array to comfortably hold n entries at
// the default load factor.
func WithCapacity[K comparable, V any](n int) *Map[K, V] {
	return withExactCapacity[K, V](n*fanout, DefaultLoadFactor)
}

// WithLoadFactor returns an empty, lazily allocated table with a custom
// growth threshold.
func WithLoadFactor[K comparable, V any](f float64) *Map[K, V] {
	return withExactCapacity[K, V](0, f)
}

func withExactCapacity[K comparable, V any](buckets int, lf float64) *Map[K, V] {
	return &Map[K, V]{
		buckets:    make([]*entry[K, V], buckets),
		loadFactor: lf,
		seed:       rand.Uint64(),
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

// FillFactor is the ratio of live entries to buckets, 0 for an unallocated
// table.
func (m *Map[K, V]) FillFactor() float64 {
	if len(m.buckets) == 0 {
		return 0.0
	}
	return float64(m.length) / float64(len(m.buckets))
}

// Clear drops every entry. The bucket array keeps its size.
func (m *Map[K, V]) Clear() {
	m.length = 0
	for i := range m.buckets {
		m.buckets[i] = nil
	}
}

func (m *Map[K, V]) index(key K) int {
	return int(m.hash(key, m.seed) % uint64(len(m.buckets)))
}

// Insert adds or overwrites key. When the key was already present its prior
// value is returned with replaced == true. An existing entry is unlinked
// before the new one is chained in as the bucket head, so a key never
// appears twice in a chain.
func (m *Map[K, V]) Insert(key K, val V) (old V, replaced bool) {
	if len(m.buckets) == 0 {
		m.buckets = make([]*entry[K, V], lazyBuckets)
	}
	if m.FillFactor() >= m.loadFactor {
		m.rehash()
	}
	old, replaced = m.Delete(key)
	i := m.index(key)
	m.buckets[i] = &entry[K, V]{key: key, val: val, next: m.buckets[i]}
	m.length++
	return old, replaced
}

// rehash doubles the bucket array and reinserts every entry. Every key lands
// at a new index; none are lost.
func (m *Map[K, V]) rehash() {
	n := withExactCapacity[K, V](len(m.buckets)*2, m.loadFactor)
	n.seed = m.seed
	for _, e := range m.buckets {
		for ; e != nil; e = e.next {
			n.Insert(e.key, e.val)
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
	for e := m.buckets[m.index(key)]; e != nil; e = e.next {
		if e.key == key {
			return e.val, true
		}
	}
	return zero, false
}

// Ref returns a pointer to the value stored under key, or nil if absent.
// The pointer is invalidated by the next insert, delete or rehash.
func (m *Map[K, V]) Ref(key K) *V {
	if m.Empty() {
		return nil
	}
	for e := m.buckets[m.index(key)]; e != nil; e = e.next {
		if e.key == key {
			return &e.val
		}
	}
	return nil
}

// Delete removes key and returns its value. The chain is relinked whether
// the entry was the head, mid chain or the sole entry. Deleting an absent
// key is a no-op.
func (m *Map[K, V]) Delete(key K) (V, bool) {
	var zero V
	if m.Empty() {
		return zero, false
	}
	for p := &m.buckets[m.index(key)]; *p != nil; p = &(*p).next {
		if (*p).key == key {
			e := *p
			*p = e.next
			m.length--
			return e.val, true
		}
	}
	return zero, false
}
