// Copyright © 2014-2017 Lawrence E. Bakst. All rights reserved.

// Package maptest drives the operation set shared by the hashtab engines
// through one acceptance suite, so each engine's tests only add what is
// specific to its collision strategy.
package maptest

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Table is the operation set every resizable engine exposes.
type Table[K comparable, V any] interface {
	Insert(key K, val V) (V, bool)
	Lookup(key K) (V, bool)
	Delete(key K) (V, bool)
	Len() int
	Empty() bool
	FillFactor() float64
	Clear()
}

// Fill inserts keys base..base+n-1 mapped to themselves, failing on any
// insert that reports a prior value.
func Fill(t testing.TB, m Table[int, int], base, n int) {
	t.Helper()
	for i := base; i < base+n; i++ {
		_, replaced := m.Insert(i, i)
		require.False(t, replaced, "insert of fresh key %d reported a prior value", i)
	}
}

// Verify checks that every key in base..base+n-1 maps to itself.
func Verify(t testing.TB, m Table[int, int], base, n int) {
	t.Helper()
	for i := base; i < base+n; i++ {
		v, ok := m.Lookup(i)
		require.True(t, ok, "key %d not found", i)
		require.Equal(t, i, v, "key %d has wrong value", i)
	}
}

// Drain deletes every key in base..base+n-1 and checks each is gone
// afterwards.
func Drain(t testing.TB, m Table[int, int], base, n int) {
	t.Helper()
	for i := base; i < base+n; i++ {
		v, ok := m.Delete(i)
		require.True(t, ok, "delete of key %d found nothing", i)
		require.Equal(t, i, v)
		_, ok = m.Lookup(i)
		require.False(t, ok, "key %d still present after delete", i)
	}
}

// Run is the acceptance suite. mk builds a table with engine defaults; mkLF
// builds one with the given load factor.
func Run(t *testing.T, mk func() Table[int, int], mkLF func(lf float64) Table[int, int]) {
	t.Run("New", func(t *testing.T) {
		m := mk()
		require.Equal(t, 0, m.Len())
		require.True(t, m.Empty())
		require.Equal(t, 0.0, m.FillFactor())
	})

	t.Run("RoundTrip", func(t *testing.T) {
		m := mk()
		Fill(t, m, 0, 100)
		require.Equal(t, 100, m.Len())
		require.False(t, m.Empty())
		Verify(t, m, 0, 100)
		_, ok := m.Lookup(100)
		require.False(t, ok)
	})

	t.Run("Overwrite", func(t *testing.T) {
		m := mk()
		Fill(t, m, 0, 10)
		old, replaced := m.Insert(7, 700)
		require.True(t, replaced)
		require.Equal(t, 7, old)
		require.Equal(t, 10, m.Len())
		v, ok := m.Lookup(7)
		require.True(t, ok)
		require.Equal(t, 700, v)
	})

	t.Run("Delete", func(t *testing.T) {
		m := mk()
		_, ok := m.Delete(1)
		require.False(t, ok)
		Fill(t, m, 0, 10)
		_, ok = m.Delete(42)
		require.False(t, ok)
		require.Equal(t, 10, m.Len())
		v, ok := m.Delete(3)
		require.True(t, ok)
		require.Equal(t, 3, v)
		require.Equal(t, 9, m.Len())
		_, ok = m.Lookup(3)
		require.False(t, ok)
	})

	t.Run("KeyUniqueness", func(t *testing.T) {
		m := mk()
		for round := 0; round < 3; round++ {
			for i := 0; i < 1000; i++ {
				m.Insert(i, i*round)
			}
		}
		require.Equal(t, 1000, m.Len())
	})

	t.Run("RehashPreservesContent", func(t *testing.T) {
		// 5000 keys into a lazily allocated table forces several growth
		// rehashes from the initial 64 slots.
		m := mk()
		Fill(t, m, 0, 5000)
		require.Equal(t, 5000, m.Len())
		Verify(t, m, 0, 5000)
	})

	t.Run("Clear", func(t *testing.T) {
		m := mk()
		Fill(t, m, 0, 100)
		m.Clear()
		require.Equal(t, 0, m.Len())
		require.True(t, m.Empty())
		for i := 0; i < 100; i++ {
			_, ok := m.Lookup(i)
			require.False(t, ok)
		}
		// the table is still usable after a clear
		Fill(t, m, 0, 10)
		Verify(t, m, 0, 10)
	})

	t.Run("FillFactorBound", func(t *testing.T) {
		m := mkLF(0.5)
		for i := 0; i < 20000; i++ {
			m.Insert(i, i)
			if m.Len() > 2000 {
				require.LessOrEqual(t, m.FillFactor(), 0.5+0.01)
			}
		}
	})

	t.Run("Insert100k", func(t *testing.T) {
		m := mkLF(0.5)
		Fill(t, m, 0, 100000)
		require.Equal(t, 100000, m.Len())
		Verify(t, m, 0, 100000)
	})
}
