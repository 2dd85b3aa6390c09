package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounter_Monotonic(t *testing.T) {
	var c Counter
	assert.Equal(t, int64(0), c.Current())
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())

	c.Reset()
	assert.Equal(t, int64(1), c.Next())
}

func TestCounter_Concurrent(t *testing.T) {
	var c Counter
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Next()
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(50), c.Current())
}

func TestSequentialRunIDs(t *testing.T) {
	gen := NewSequentialRunIDs("density")
	assert.Equal(t, "density-1", gen.Generate())
	assert.Equal(t, "density-2", gen.Generate())
}

func TestSequentialRunIDs_DefaultPrefix(t *testing.T) {
	gen := NewSequentialRunIDs("")
	assert.Equal(t, "run-1", gen.Generate())
}
