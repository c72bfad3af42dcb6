package gate

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGate_AcquireRelease(t *testing.T) {
	g := New()
	assert.False(t, g.Busy())

	assert.True(t, g.TryAcquire())
	assert.True(t, g.Busy())
	assert.False(t, g.TryAcquire(), "second acquire must be rejected while busy")

	g.Release()
	assert.False(t, g.Busy())
	assert.True(t, g.TryAcquire())
}

func TestGate_ReleaseWhenIdle(t *testing.T) {
	g := New()
	g.Release()
	assert.False(t, g.Busy())
	assert.True(t, g.TryAcquire())
}

func TestGate_ConcurrentAcquireHasSingleWinner(t *testing.T) {
	g := New()
	var winners atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if g.TryAcquire() {
				winners.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
}
