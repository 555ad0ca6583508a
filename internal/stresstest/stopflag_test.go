package stresstest

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStopFlag(t *testing.T) {
	var f StopFlag
	assert.False(t, f.IsSignaled())

	f.Signal()
	assert.True(t, f.IsSignaled())

	// Idempotent
	f.Signal()
	assert.True(t, f.IsSignaled())
}

func TestStopFlag_ConcurrentSignal(t *testing.T) {
	var f StopFlag
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.Signal()
			_ = f.IsSignaled()
		}()
	}
	wg.Wait()

	assert.True(t, f.IsSignaled())
}
