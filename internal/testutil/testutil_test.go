package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClock_AdvancesOneStepPerCall(t *testing.T) {
	clock := NewClock()

	assert.Equal(t, Origin.Add(time.Second), clock.Now())
	assert.Equal(t, Origin.Add(2*time.Second), clock.Now())
	assert.Equal(t, Origin.Add(2*time.Second), clock.Current())
}

func TestClock_Reset(t *testing.T) {
	clock := NewClock()
	clock.Now()
	clock.Now()

	clock.Reset()
	assert.Equal(t, Origin, clock.Current())
	assert.Equal(t, Origin.Add(time.Second), clock.Now())
}

func TestClock_ConcurrentCallsAllDistinct(t *testing.T) {
	clock := NewClock()
	const goroutines = 50

	var wg sync.WaitGroup
	instants := make(chan time.Time, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			instants <- clock.Now()
		}()
	}
	wg.Wait()
	close(instants)

	seen := make(map[time.Time]bool)
	for ts := range instants {
		assert.False(t, seen[ts], "duplicate instant %v", ts)
		seen[ts] = true
	}
	assert.Len(t, seen, goroutines)
}

func TestIDSequence_SequentialAndResettable(t *testing.T) {
	ids := NewIDSequence("note")

	assert.Equal(t, "note-0001", ids.Next())
	assert.Equal(t, "note-0002", ids.Next())

	ids.Reset()
	assert.Equal(t, "note-0001", ids.Next())
}
