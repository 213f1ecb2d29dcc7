// Copyright © 2014-2017 Lawrence E. Bakst. All rights reserved.

package keyhash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeterministic(t *testing.T) {
	const seed = 0xdeadbeef
	require.Equal(t, Hash(12345, seed), Hash(12345, seed))
	require.Equal(t, Hash("hello", seed), Hash("hello", seed))
	require.Equal(t, Hash(uint8(7), seed), Hash(uint8(7), seed))
}

func TestSeedChangesDistribution(t *testing.T) {
	// Different seeds must remap keys, that is what makes a reseed rehash
	// break eviction cycles. Identical images for every key under two seeds
	// would mean the seed is ignored.
	same := 0
	for i := 0; i < 1000; i++ {
		if Hash(i, 1) == Hash(i, 2) {
			same++
		}
	}
	require.Less(t, same, 10)

	same = 0
	keys := []string{"a", "b", "hello", "world", "", "longer key with spaces"}
	for _, k := range keys {
		if Hash(k, 1) == Hash(k, 2) {
			same++
		}
	}
	require.Less(t, same, len(keys))
}

func TestSpread(t *testing.T) {
	// Sequential integer keys should not collide under one seed.
	seen := make(map[uint64]bool)
	for i := 0; i < 10000; i++ {
		seen[Hash(i, 42)] = true
	}
	require.Greater(t, len(seen), 9990)
}

func TestStructKeys(t *testing.T) {
	type pair struct {
		A int32
		B string
	}
	k1 := pair{1, "x"}
	k2 := pair{1, "x"}
	k3 := pair{2, "x"}
	require.Equal(t, Hash(k1, 7), Hash(k2, 7))
	require.NotEqual(t, Hash(k1, 7), Hash(k3, 7))
}

func TestArrayKeys(t *testing.T) {
	k1 := [4]byte{1, 2, 3, 4}
	k2 := [4]byte{1, 2, 3, 4}
	k3 := [4]byte{4, 3, 2, 1}
	require.Equal(t, Hash(k1, 7), Hash(k2, 7))
	require.NotEqual(t, Hash(k1, 7), Hash(k3, 7))
}

func TestNewMatchesHash(t *testing.T) {
	f := New[string]()
	require.Equal(t, Hash("key", 9), f("key", 9))
}
