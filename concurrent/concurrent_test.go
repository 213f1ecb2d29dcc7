// Copyright © 2014-2017 Lawrence E. Bakst. All rights reserved.

package concurrent

import (
	"sync"
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

func TestParallelInsert(t *testing.T) {
	const goroutines = 1000
	m := New[int, int]()
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func(g int) {
			defer wg.Done()
			m.Insert(g, g*10)
		}(g)
	}
	wg.Wait()

	require.Equal(t, goroutines, m.Len())
	for g := 0; g < goroutines; g++ {
		v, ok := m.Lookup(g)
		require.True(t, ok, "key %d lost", g)
		require.Equal(t, g*10, v)
	}
}

func TestParallelInsertDelete(t *testing.T) {
	const goroutines = 16
	const perG = 500
	m := New[int, int]()

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func(base int) {
			defer wg.Done()
			for i := base; i < base+perG; i++ {
				m.Insert(i, i)
			}
		}(g * perG)
	}
	wg.Wait()
	require.Equal(t, goroutines*perG, m.Len())

	// Delete the even keys from all ranges concurrently.
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func(base int) {
			defer wg.Done()
			for i := base; i < base+perG; i += 2 {
				m.Delete(i)
			}
		}(g * perG)
	}
	wg.Wait()

	require.Equal(t, goroutines*perG/2, m.Len())
	for i := 0; i < goroutines*perG; i++ {
		_, ok := m.Lookup(i)
		require.Equal(t, i%2 == 1, ok, "key %d", i)
	}
}

func TestRehashUnderLoad(t *testing.T) {
	// Disjoint key ranges inserted from many goroutines through several
	// growth rehashes; nothing may be lost or duplicated.
	const goroutines = 8
	const perG = 5000
	m := WithLoadFactor[int, int](0.5)

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func(base int) {
			defer wg.Done()
			for i := base; i < base+perG; i++ {
				m.Insert(i, i)
			}
		}(g * perG)
	}
	wg.Wait()

	require.Equal(t, goroutines*perG, m.Len())
	maptest.Verify(t, m, 0, goroutines*perG)
}

func TestOverwriteRace(t *testing.T) {
	// All goroutines hammer the same key. Whatever interleaving wins, the
	// key exists exactly once afterwards.
	const goroutines = 64
	m := New[int, int]()
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				m.Insert(7, g)
			}
		}(g)
	}
	wg.Wait()

	require.Equal(t, 1, m.Len())
	_, ok := m.Lookup(7)
	require.True(t, ok)
}

func BenchmarkInsertParallel(b *testing.B) {
	m := New[int, int]()
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			m.Insert(i, i)
			i++
		}
	})
}

func BenchmarkLookupParallel(b *testing.B) {
	m := WithCapacity[int, int](1 << 16)
	for i := 0; i < 1<<16; i++ {
		m.Insert(i, i)
	}
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			m.Lookup(i % (1 << 16))
			i++
		}
	})
}

func BenchmarkGoMapMutexInsert(b *testing.B) {
	m := make(map[int]int)
	var mu sync.Mutex
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			mu.Lock()
			m[i] = i
			mu.Unlock()
			i++
		}
	})
}
