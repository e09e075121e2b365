package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGateAllowsUpToMax(t *testing.T) {
	current := time.Unix(1700000000, 0)
	gate := NewGate(time.Minute, 3).WithClock(func() time.Time { return current })

	for i := 0; i < 3; i++ {
		_, ok := gate.Allow("0xowner")
		assert.True(t, ok, "request %d", i)
	}

	retryAfter, ok := gate.Allow("0xowner")
	assert.False(t, ok)
	assert.Greater(t, retryAfter, time.Duration(0))
}

func TestGateSlidingWindowReadmits(t *testing.T) {
	current := time.Unix(1700000000, 0)
	gate := NewGate(time.Minute, 2).WithClock(func() time.Time { return current })

	gate.Allow("0xowner")
	current = current.Add(30 * time.Second)
	gate.Allow("0xowner")

	_, ok := gate.Allow("0xowner")
	assert.False(t, ok)

	// The first entry expires, the second is still live.
	current = current.Add(31 * time.Second)
	_, ok = gate.Allow("0xowner")
	assert.True(t, ok)
}

func TestGateRetryAfterPointsAtOldestEntry(t *testing.T) {
	current := time.Unix(1700000000, 0)
	gate := NewGate(time.Minute, 1).WithClock(func() time.Time { return current })

	gate.Allow("0xowner")
	current = current.Add(20 * time.Second)

	retryAfter, ok := gate.Allow("0xowner")
	assert.False(t, ok)
	// The oldest entry leaves the window 40s from now.
	assert.Equal(t, 40*time.Second, retryAfter)
}

func TestGateIsolatesOwners(t *testing.T) {
	current := time.Unix(1700000000, 0)
	gate := NewGate(time.Minute, 1).WithClock(func() time.Time { return current })

	_, ok := gate.Allow("0xalpha")
	assert.True(t, ok)
	_, ok = gate.Allow("0xalpha")
	assert.False(t, ok)

	_, ok = gate.Allow("0xbeta")
	assert.True(t, ok)
}

func TestGateSweepEvictsIdleOwners(t *testing.T) {
	current := time.Unix(1700000000, 0)
	gate := NewGate(time.Minute, 5).WithClock(func() time.Time { return current })

	gate.Allow("0xidle")
	gate.Allow("0xactive")
	current = current.Add(2 * time.Minute)
	gate.Allow("0xactive")

	gate.sweep()

	gate.mu.Lock()
	defer gate.mu.Unlock()
	assert.NotContains(t, gate.windows, "0xidle")
	assert.Contains(t, gate.windows, "0xactive")
}

func TestGateStopIsIdempotent(t *testing.T) {
	gate := NewGate(time.Minute, 1)
	gate.StartSweeper(time.Millisecond)
	gate.Stop()
	gate.Stop()
}
