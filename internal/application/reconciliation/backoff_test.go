package reconciliation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff_DelayFor(t *testing.T) {
	b := DefaultBackoff()

	assert.Equal(t, 2*time.Second, b.DelayFor(1))
	assert.Equal(t, 4*time.Second, b.DelayFor(2))
	assert.Equal(t, 8*time.Second, b.DelayFor(3))
	assert.Equal(t, 16*time.Second, b.DelayFor(4))
	// capped at MaxDelay
	assert.Equal(t, 30*time.Second, b.DelayFor(5))
	assert.Equal(t, 30*time.Second, b.DelayFor(10))

	// out-of-range attempts clamp to the first delay
	assert.Equal(t, 2*time.Second, b.DelayFor(0))
	assert.Equal(t, 2*time.Second, b.DelayFor(-3))
}

func TestBackoff_Exhausted(t *testing.T) {
	b := DefaultBackoff()

	assert.False(t, b.Exhausted(1))
	assert.False(t, b.Exhausted(4))
	assert.True(t, b.Exhausted(5))
	assert.True(t, b.Exhausted(6))
}
