// Copyright © 2014-2017 Lawrence E. Bakst. All rights reserved.

package chaining

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"leb.io/hashtab/internal/maptest"
)

func TestMap(t *testing.T) {
	maptest.Run(t,
		func() maptest.Table[int, int] { return New[int, int]() },
		func(lf float64) maptest.Table[int, int] { return WithLoadFactor[int, int](lf) },
	)
}

func TestWithCapacityFillFactor(t *testing.T) {
	m := WithCapacity[int, int](100)
	maptest.Fill(t, m, 0, 100)
	require.InDelta(t, 0.125, m.FillFactor(), 1e-9)
}

func TestExactCapacityCollisions(t *testing.T) {
	// One bucket at a load factor high enough to never grow: every key
	// collides and the chain absorbs them all.
	m := withExactCapacity[int, int](1, 10.0)
	maptest.Fill(t, m, 0, 8)
	require.Equal(t, 8, m.Len())
	maptest.Verify(t, m, 0, 8)
}

func TestDeleteMidChain(t *testing.T) {
	// One bucket: all entries share a chain, so deletes exercise head, middle
	// and tail relinking.
	m := withExactCapacity[int, int](1, 1000.0)
	maptest.Fill(t, m, 0, 5)

	v, ok := m.Delete(2) // middle
	require.True(t, ok)
	require.Equal(t, 2, v)
	_, ok = m.Delete(4) // head of chain (last inserted)
	require.True(t, ok)
	_, ok = m.Delete(0) // tail
	require.True(t, ok)

	require.Equal(t, 2, m.Len())
	maptest.Verify(t, m, 1, 1)
	maptest.Verify(t, m, 3, 1)
}

func TestRef(t *testing.T) {
	m := New[string, int]()
	m.Insert("a", 1)
	require.Nil(t, m.Ref("b"))
	p := m.Ref("a")
	require.NotNil(t, p)
	*p = 42
	v, _ := m.Lookup("a")
	require.Equal(t, 42, v)
}

func TestStringKeys(t *testing.T) {
	m := New[string, string]()
	m.Insert("hello", "world")
	m.Insert("", "empty")
	v, ok := m.Lookup("hello")
	require.True(t, ok)
	require.Equal(t, "world", v)
	v, ok = m.Lookup("")
	require.True(t, ok)
	require.Equal(t, "empty", v)
}

var benchKeys []uint32

func init() {
	benchKeys = make([]uint32, 1<<20)
	for i := range benchKeys {
		benchKeys[i] = rand.Uint32()
	}
}

func BenchmarkInsert(b *testing.B) {
	m := New[uint32, uint32]()
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		k := benchKeys[i%len(benchKeys)]
		m.Insert(k, k)
	}
}

func BenchmarkLookup(b *testing.B) {
	m := New[uint32, uint32]()
	for _, k := range benchKeys {
		m.Insert(k, k)
	}
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		m.Lookup(benchKeys[i%len(benchKeys)])
	}
}

func BenchmarkGoMapInsert(b *testing.B) {
	m := make(map[uint32]uint32)
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		k := benchKeys[i%len(benchKeys)]
		m[k] = k
	}
}

func BenchmarkGoMapLookup(b *testing.B) {
	m := make(map[uint32]uint32)
	for _, k := range benchKeys {
		m[k] = k
	}
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = m[benchKeys[i%len(benchKeys)]]
	}
}
