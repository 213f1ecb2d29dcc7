// Copyright © 2014-2017 Lawrence E. Bakst. All rights reserved.

// Package keyhash provides seeded 64 bit hashing over arbitrary comparable
// key types. Numeric keys take the aeshash fast path, strings go straight
// through murmur3, and everything else is serialized into bytes first and
// then hashed. A table that needs several independent hash functions seeds
// the same Func with distinct random values rather than using distinct
// algorithms.
package keyhash

import (
	"bytes"
	"math"

	"github.com/alecthomas/binary"
	"github.com/spaolacci/murmur3"
	"leb.io/aeshash"
)

// Func is a deterministic seeded hash over keys of type K. A Func carries no
// state and is safe for concurrent use.
type Func[K comparable] func(key K, seed uint64) uint64

// New returns the default hash function for K.
func New[K comparable]() Func[K] {
	return Hash[K]
}

// Hash hashes key under seed. Two calls with the same key and seed always
// produce the same sum; different seeds give independent functions.
func Hash[K comparable](key K, seed uint64) uint64 {
	switch k := any(key).(type) {
	case uint64:
		return aeshash.Hash64(k, seed)
	case int64:
		return aeshash.Hash64(uint64(k), seed)
	case int:
		return aeshash.Hash64(uint64(k), seed)
	case uint:
		return aeshash.Hash64(uint64(k), seed)
	case uintptr:
		return aeshash.Hash64(uint64(k), seed)
	case uint32:
		return aeshash.Hash64(uint64(k), seed)
	case int32:
		return aeshash.Hash64(uint64(k), seed)
	case uint16:
		return aeshash.Hash64(uint64(k), seed)
	case int16:
		return aeshash.Hash64(uint64(k), seed)
	case uint8:
		return aeshash.Hash64(uint64(k), seed)
	case int8:
		return aeshash.Hash64(uint64(k), seed)
	case float64:
		return aeshash.Hash64(math.Float64bits(k), seed)
	case float32:
		return aeshash.Hash64(uint64(math.Float32bits(k)), seed)
	case string:
		return murmur3.Sum64WithSeed([]byte(k), fold(seed))
	default:
		return murmur3.Sum64WithSeed(encode(key), fold(seed))
	}
}

// encode serializes a key of arbitrary type into hashable bytes. The
// encoding is reflection based, so exotic keys pay an allocation; the common
// numeric and string cases never reach here.
func encode[K comparable](key K) []byte {
	var b bytes.Buffer
	if err := binary.NewEncoder(&b).Encode(key); err != nil {
		panic("keyhash: encode: " + err.Error())
	}
	return b.Bytes()
}

// murmur3 takes a 32 bit seed; mix both halves in so distinct 64 bit seeds
// stay distinct.
func fold(seed uint64) uint32 {
	return uint32(seed) ^ uint32(seed>>32)
}
