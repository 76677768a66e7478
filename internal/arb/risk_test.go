package arb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsStale(t *testing.T) {
	now := time.Now()
	maxSkew := 500 * time.Millisecond

	assert.False(t, IsStale(now, now.Add(400*time.Millisecond), maxSkew))
	assert.False(t, IsStale(now, now.Add(500*time.Millisecond), maxSkew))
	assert.True(t, IsStale(now, now.Add(600*time.Millisecond), maxSkew))

	// Order of the timestamps must not matter.
	assert.True(t, IsStale(now.Add(600*time.Millisecond), now, maxSkew))
}

func TestDynamicThreshold(t *testing.T) {
	assert.InDelta(t, 0.007, DynamicThreshold(0.002, 0.001, 5), 1e-12)
	assert.InDelta(t, 0.002, DynamicThreshold(0.002, 0, 5), 1e-12)
	assert.InDelta(t, 0.002, DynamicThreshold(0.002, 0.01, 0), 1e-12)

	// The base is a floor, never lowered.
	assert.InDelta(t, 0.002, DynamicThreshold(0.002, -0.01, 5), 1e-12)
}
