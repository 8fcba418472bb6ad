package pool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct{ n int }

func TestPoolResetsOnPut(t *testing.T) {
	p := New(func() *counter { return &counter{} }, func(c *counter) { c.n = 0 })

	c := p.Get()
	c.n = 42
	p.Put(c)

	_, inUse, _, _ := p.Stats()
	assert.Equal(t, int64(0), inUse)

	// sync.Pool may drop objects at any time; whatever comes back is reset.
	assert.Equal(t, 0, p.Get().n)
}

func TestPoolStats(t *testing.T) {
	p := New(func() *counter { return &counter{} }, nil)

	a := p.Get()
	b := p.Get()
	allocated, inUse, hits, misses := p.Stats()
	assert.Equal(t, int64(2), allocated)
	assert.Equal(t, int64(2), inUse)
	assert.Equal(t, int64(0), hits)
	assert.Equal(t, int64(2), misses)

	p.Put(a)
	p.Put(b)
	_, inUse, _, _ = p.Stats()
	assert.Equal(t, int64(0), inUse)
}

func TestGetFloatsIsZeroed(t *testing.T) {
	buf := GetFloats(8)
	require.Len(t, *buf, 8)
	for i := range *buf {
		(*buf)[i] = float64(i + 1)
	}
	PutFloats(buf)

	again := GetFloats(4)
	defer PutFloats(again)
	assert.Equal(t, []float64{0, 0, 0, 0}, *again)

	big := GetFloats(1000)
	defer PutFloats(big)
	assert.Len(t, *big, 1000)
}

func TestGetFloatsConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				buf := GetFloats(16)
				for _, x := range *buf {
					if x != 0 {
						t.Errorf("dirty buffer from pool")
						return
					}
				}
				(*buf)[i%16] = float64(g)
				PutFloats(buf)
			}
		}(g)
	}
	wg.Wait()
}
