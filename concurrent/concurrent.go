// Copyright © 2014-2017 Lawrence E. Bakst. All rights reserved.

// Package concurrent implements lock striped separate chaining hash tables
// safe for use from many goroutines without external synchronization.
//
// Map is the resizable variant. Two lock granularities are in play: a
// structural RWMutex guarding the identity of the bucket array, and one
// RWMutex per bucket guarding that bucket's chain. Operations that only
// touch chain contents take the structural lock for read and then the
// bucket lock; replacing the bucket array wholesale (rehash, clear) takes
// the structural lock for write, which excludes all bucket level activity.
// No operation ever holds two bucket locks at once, so there is no lock
// ordering hazard across buckets. The length counter is atomic and read
// without any lock, so Len can transiently lag a just-committed insert seen
// from another goroutine, but never drifts.
//
// FixedMap trades growth for lower contention; see fixed.go.
package concurrent

import (
	"math/rand"
	"sync"
	"sync/atomic"

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

type bucket[K comparable, V any] struct {
	mu   sync.RWMutex
	head *entry[K, V]
}

// Map is a resizable lock striped chaining hash table from K to V.
type Map[K comparable, V any] struct {
	mu         sync.RWMutex // structural: guards the bucket array's identity
	buckets    []bucket[K, V]
	length     atomic.Int64
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
		buckets:    make([]bucket[K, V], buckets),
		loadFactor: lf,
		seed:       rand.Uint64(),
		hash:       keyhash.New[K](),
	}
}

// Len returns the number of live entries, read from the atomic counter
// without taking any lock.
func (m *Map[K, V]) Len() int {
	return int(m.length.Load())
}

// Empty reports whether the table holds no entries.
func (m *Map[K, V]) Empty() bool {
	return m.length.Load() == 0
}

// FillFactor is the ratio of live entries to buckets, 0 for an unallocated
// table.
func (m *Map[K, V]) FillFactor() float64 {
	m.mu.RLock()
	n := len(m.buckets)
	m.mu.RUnlock()
	if n == 0 {
		return 0.0
	}
	return float64(m.length.Load()) / float64(n)
}

// Clear drops every entry. Takes the structural write lock.
func (m *Map[K, V]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.length.Store(0)
	for i := range m.buckets {
		m.buckets[i].head = nil
	}
}

// index computes key's bucket. Callers must hold the structural lock.
func (m *Map[K, V]) index(key K) int {
	return int(m.hash(key, m.seed) % uint64(len(m.buckets)))
}

// unlink removes key from b's chain. Callers must hold b's write lock.
func unlink[K comparable, V any](b *bucket[K, V], key K) (V, bool) {
	var zero V
	for p := &b.head; *p != nil; p = &(*p).next {
		if (*p).key == key {
			e := *p
			*p = e.next
			return e.val, true
		}
	}
	return zero, false
}

// Insert adds or overwrites key and returns the prior value if the key
// existed. Unlinking any existing entry and prepending the new chain head
// happen under a single bucket write lock acquisition, so racing inserts of
// the same key serialize on the bucket lock and can never duplicate it;
// inserts to different buckets do not block each other.
func (m *Map[K, V]) Insert(key K, val V) (V, bool) {
	m.mu.RLock()
	n := len(m.buckets)
	m.mu.RUnlock()
	if n == 0 {
		m.mu.Lock()
		if len(m.buckets) == 0 {
			m.buckets = make([]bucket[K, V], lazyBuckets)
		}
		m.mu.Unlock()
	}
	if m.FillFactor() >= m.loadFactor {
		m.rehash()
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	b := &m.buckets[m.index(key)]
	b.mu.Lock()
	old, replaced := unlink(b, key)
	b.head = &entry[K, V]{key: key, val: val, next: b.head}
	b.mu.Unlock()
	if !replaced {
		m.length.Add(1)
	}
	return old, replaced
}

// rehash doubles the bucket array under the structural write lock, which
// blocks all bucket level activity table-wide until the swap. The trigger
// condition is re-checked after the lock is acquired in case another
// goroutine already resized.
func (m *Map[K, V]) rehash() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if float64(m.length.Load())/float64(len(m.buckets)) < m.loadFactor {
		return
	}
	next := make([]bucket[K, V], len(m.buckets)*2)
	for i := range m.buckets {
		e := m.buckets[i].head
		for e != nil {
			rest := e.next
			j := int(m.hash(e.key, m.seed) % uint64(len(next)))
			e.next = next[j].head
			next[j].head = e
			e = rest
		}
	}
	m.buckets = next
}

// Lookup returns the value stored under key. The value is returned by copy;
// there is no Ref on the concurrent variants since a pointer into a bucket
// would escape the locks that protect it.
func (m *Map[K, V]) Lookup(key K) (V, bool) {
	var zero V
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.buckets) == 0 {
		return zero, false
	}
	b := &m.buckets[m.index(key)]
	b.mu.RLock()
	defer b.mu.RUnlock()
	for e := b.head; e != nil; e = e.next {
		if e.key == key {
			return e.val, true
		}
	}
	return zero, false
}

// Delete removes key and returns its value if present.
func (m *Map[K, V]) Delete(key K) (V, bool) {
	var zero V
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.buckets) == 0 {
		return zero, false
	}
	b := &m.buckets[m.index(key)]
	b.mu.Lock()
	val, ok := unlink(b, key)
	b.mu.Unlock()
	if ok {
		m.length.Add(-1)
	}
	return val, ok
}
