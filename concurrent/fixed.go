// Copyright © 2014-2017 Lawrence E. Bakst. All rights reserved.

package concurrent

import (
	"math/rand"

	"golang.org/x/sys/cpu"

	"leb.io/hashtab/internal/keyhash"
)

// fixedFanout is how many buckets FixedMap allocates per unit of requested
// capacity.
const fixedFanout = 8

// paddedBucket pads each bucket out to its own cache line so neighboring
// bucket locks don't false-share.
type paddedBucket[K comparable, V any] struct {
	bucket[K, V]
	_ cpu.CacheLinePad
}

// FixedMap is a lock striped chaining hash table whose bucket array is sized
// once at construction and never resized. There is no structural lock, no
// length counter and no load factor tracking: every operation contends only
// on its target bucket's lock, which makes this the fastest concurrent
// variant when the working set size is known up front. Chains simply grow
// past the estimate.
type FixedMap[K comparable, V any] struct {
	buckets []paddedBucket[K, V]
	seed    uint64
	hash    keyhash.Func[K]
}

// NewFixed returns a table with a fixed bucket array sized for roughly
// capacity entries. Panics when capacity is not positive: a zero shape would
// corrupt the index arithmetic and cannot be grown out of later.
func NewFixed[K comparable, V any](capacity int) *FixedMap[K, V] {
	if capacity <= 0 {
		panic("concurrent: fixed capacity must be positive")
	}
	return &FixedMap[K, V]{
		buckets: make([]paddedBucket[K, V], capacity*fixedFanout),
		seed:    rand.Uint64(),
		hash:    keyhash.New[K](),
	}
}

func (m *FixedMap[K, V]) index(key K) int {
	return int(m.hash(key, m.seed) % uint64(len(m.buckets)))
}

// Insert adds or overwrites key and returns the prior value if the key
// existed. Unlink and prepend happen under one bucket write lock, as in
// Map.Insert.
func (m *FixedMap[K, V]) Insert(key K, val V) (V, bool) {
	b := &m.buckets[m.index(key)]
	b.mu.Lock()
	defer b.mu.Unlock()
	old, replaced := unlink(&b.bucket, key)
	b.head = &entry[K, V]{key: key, val: val, next: b.head}
	return old, replaced
}

// Lookup returns the value stored under key.
func (m *FixedMap[K, V]) Lookup(key K) (V, bool) {
	var zero V
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
func (m *FixedMap[K, V]) Delete(key K) (V, bool) {
	b := &m.buckets[m.index(key)]
	b.mu.Lock()
	defer b.mu.Unlock()
	return unlink(&b.bucket, key)
}

// Clear drops every entry, bucket by bucket. Concurrent inserts that land
// on not yet cleared buckets survive; callers that need a quiescent clear
// must stop writers first.
func (m *FixedMap[K, V]) Clear() {
	for i := range m.buckets {
		b := &m.buckets[i]
		b.mu.Lock()
		b.head = nil
		b.mu.Unlock()
	}
}
