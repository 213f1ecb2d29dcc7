// Copyright © 2014-2017 Lawrence E. Bakst. All rights reserved.

// Package quadcuckoo implements a single threaded d-ary bucketized cuckoo
// hash table. The bucket array is partitioned into hashers contiguous
// chunks, one per independently seeded hash function, and every chunk is
// divided into buckets of bucketSize slots. A key therefore has hashers
// candidate buckets and hashers*bucketSize candidate slots, which is what
// lets this variant run at far higher load factors than two-choice cuckoo —
// the default shape of 4 hash functions and 4 slot buckets fills to nearly
// 100%. When every candidate slot is occupied a uniformly random occupant is
// evicted and walked around; an eviction chain that finds no hole within
// len+1 hops is broken by a same-capacity rehash with fresh seeds.
// Not safe for concurrent use.
package quadcuckoo

import (
	"math/rand"

	"leb.io/hashtab/internal/keyhash"
)

const (
	// DefaultLoadFactor is the growth threshold used by New and WithCapacity.
	DefaultLoadFactor = 0.8
	// DefaultBucketSize is the number of slots per bucket.
	DefaultBucketSize = 4
	// DefaultHashers is the number of hash functions, one per chunk of the
	// bucket array.
	DefaultHashers = 4
	// fanout is how many slots WithCapacity allocates per expected entry.
	fanout = 16
	// lazySlots is the slot budget materialized on the first insert into a
	// table constructed without capacity, rounded to the configured shape.
	lazySlots = 64
)

type slot[K comparable, V any] struct {
	key  K
	val  V
	used bool
}

// Map is a d-ary bucketized cuckoo hash table from K to V.
type Map[K comparable, V any] struct {
	buckets    [][]slot[K, V]
	bucketSize int
	seeds      []uint64
	loadFactor float64
	length     int
	hash       keyhash.Func[K]
	rnd        *rand.Rand
}

// New returns an empty table with the default shape and load factor. Buckets
// are not allocated until the first insert.
func New[K comparable, V any]() *Map[K, V] {
	return WithShape[K, V](0, DefaultBucketSize, DefaultHashers, DefaultLoadFactor)
}

// WithCapacity pre-sizes the table to comfortably hold n entries at the
// default load factor.
func WithCapacity[K comparable, V any](n int) *Map[K, V] {
	return WithShape[K, V](n*fanout, DefaultBucketSize, DefaultHashers, DefaultLoadFactor)
}

// WithLoadFactor returns an empty, lazily allocated table with the default
// shape and a custom growth threshold.
func WithLoadFactor[K comparable, V any](f float64) *Map[K, V] {
	return WithShape[K, V](0, DefaultBucketSize, DefaultHashers, f)
}

// WithShape builds a table with an explicit slot capacity, bucket width and
// hash function count. The capacity must be zero (lazy allocation) or shape
// exact: a multiple of both bucketSize and hashers, large enough for one
// bucket per hash table, with the bucket count dividing evenly across the
// hash tables. A mismatched shape would corrupt the chunk index arithmetic,
// so construction panics instead of clamping.
func WithShape[K comparable, V any](capacity, bucketSize, hashers int, lf float64) *Map[K, V] {
	if bucketSize < 1 || hashers < 1 {
		panic("quadcuckoo: bucketSize and hashers must be positive")
	}
	if capacity != 0 && capacity < bucketSize*hashers {
		panic("quadcuckoo: capacity below one bucket per hash table")
	}
	if capacity%bucketSize != 0 || capacity%hashers != 0 {
		panic("quadcuckoo: capacity must be a multiple of bucketSize and hashers")
	}
	if (capacity/bucketSize)%hashers != 0 {
		panic("quadcuckoo: bucket count must divide evenly across hash tables")
	}
	m := &Map[K, V]{
		buckets:    makeBuckets[K, V](capacity/bucketSize, bucketSize),
		bucketSize: bucketSize,
		seeds:      make([]uint64, hashers),
		loadFactor: lf,
		hash:       keyhash.New[K](),
		rnd:        rand.New(rand.NewSource(rand.Int63())),
	}
	m.reseed()
	return m
}

func makeBuckets[K comparable, V any](n, width int) [][]slot[K, V] {
	b := make([][]slot[K, V], n)
	for i := range b {
		b[i] = make([]slot[K, V], width)
	}
	return b
}

func (m *Map[K, V]) reseed() {
	for i := range m.seeds {
		m.seeds[i] = rand.Uint64()
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

// FillFactor is the ratio of live entries to total slots, 0 for an
// unallocated table.
func (m *Map[K, V]) FillFactor() float64 {
	if len(m.buckets) == 0 {
		return 0.0
	}
	return float64(m.length) / float64(len(m.buckets)*m.bucketSize)
}

// Clear drops every entry. The bucket array keeps its shape.
func (m *Map[K, V]) Clear() {
	m.length = 0
	for _, b := range m.buckets {
		for s := range b {
			b[s] = slot[K, V]{}
		}
	}
}

// candidate returns the bucket index for key under hash table t: chunk t of
// the bucket array, offset by the seeded hash.
func (m *Map[K, V]) candidate(t int, key K) int {
	chunk := len(m.buckets) / len(m.seeds)
	return t*chunk + int(m.hash(key, m.seeds[t])%uint64(chunk))
}

// Insert adds or overwrites key. Each attempt first overwrites a duplicate
// in place, then takes any empty candidate slot, and only then evicts a
// uniformly random occupant among all candidates and goes around with the
// victim in hand. The loop is bounded at len+1 attempts; on exhaustion the
// table rehashes at the same capacity with fresh seeds and retries the
// entry it is still holding.
func (m *Map[K, V]) Insert(key K, val V) (V, bool) {
	var zero V
	if len(m.buckets) == 0 {
		m.buckets = makeBuckets[K, V](m.lazyBucketCount(), m.bucketSize)
	}
	if m.FillFactor() >= m.loadFactor {
		m.rehash(2)
	}
	k, v := key, val
	for attempts := 0; attempts <= m.length; attempts++ {
		for t := range m.seeds {
			b := m.buckets[m.candidate(t, k)]
			for s := range b {
				if b[s].used && b[s].key == k {
					old := b[s].val
					b[s].val = v
					return old, true
				}
			}
		}
		placed := false
		for t := range m.seeds {
			b := m.buckets[m.candidate(t, k)]
			for s := range b {
				if !b[s].used {
					b[s] = slot[K, V]{key: k, val: v, used: true}
					m.length++
					placed = true
					break
				}
			}
			if placed {
				break
			}
		}
		if placed {
			return zero, false
		}
		// All hashers*bucketSize candidates are occupied, so a random table
		// and slot picks uniformly among them.
		t := m.rnd.Intn(len(m.seeds))
		b := m.buckets[m.candidate(t, k)]
		s := m.rnd.Intn(m.bucketSize)
		k, b[s].key = b[s].key, k
		v, b[s].val = b[s].val, v
	}
	m.rehash(1)
	return m.Insert(k, v)
}

// lazyBucketCount rounds the lazy slot budget down to a bucket count that
// keeps the chunks equal, with at least one bucket per hash table.
func (m *Map[K, V]) lazyBucketCount() int {
	perChunk := lazySlots / (m.bucketSize * len(m.seeds))
	if perChunk < 1 {
		perChunk = 1
	}
	return perChunk * len(m.seeds)
}

// rehash rebuilds the table at factor times the current capacity, keeping
// the shape and drawing fresh seeds, then reinserts every entry. factor 1
// is the cycle breaker: same capacity, different hash functions.
func (m *Map[K, V]) rehash(factor int) {
	n := WithShape[K, V](len(m.buckets)*m.bucketSize*factor, m.bucketSize, len(m.seeds), m.loadFactor)
	for _, b := range m.buckets {
		for s := range b {
			if b[s].used {
				n.Insert(b[s].key, b[s].val)
			}
		}
	}
	*m = *n
}

// Lookup returns the value stored under key, scanning exactly the hashers
// candidate buckets.
func (m *Map[K, V]) Lookup(key K) (V, bool) {
	var zero V
	if m.Empty() {
		return zero, false
	}
	for t := range m.seeds {
		b := m.buckets[m.candidate(t, key)]
		for s := range b {
			if b[s].used && b[s].key == key {
				return b[s].val, true
			}
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
	for t := range m.seeds {
		b := m.buckets[m.candidate(t, key)]
		for s := range b {
			if b[s].used && b[s].key == key {
				return &b[s].val
			}
		}
	}
	return nil
}

// Delete removes key, clearing its slot back to empty. No tombstones are
// needed: lookups scan whole candidate buckets, not probe sequences.
func (m *Map[K, V]) Delete(key K) (V, bool) {
	var zero V
	if m.Empty() {
		return zero, false
	}
	for t := range m.seeds {
		b := m.buckets[m.candidate(t, key)]
		for s := range b {
			if b[s].used && b[s].key == key {
				val := b[s].val
				b[s] = slot[K, V]{}
				m.length--
				return val, true
			}
		}
	}
	return zero, false
}
