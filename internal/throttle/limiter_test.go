package throttle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllow_PerSenderBudget(t *testing.T) {
	l := NewLimiter(2)
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"), "third event within the window")
	assert.True(t, l.Allow("b"), "other senders have their own bucket")

	clock = clock.Add(30 * time.Second)
	assert.True(t, l.Allow("a"), "one token refilled after half a minute")
}

func TestAllow_DisabledWhenZero(t *testing.T) {
	l := NewLimiter(0)
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("a"))
	}
	assert.Zero(t, l.Len())
}

func TestCleanup(t *testing.T) {
	l := NewLimiter(10)
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }

	l.Allow("old")
	clock = clock.Add(2 * time.Hour)
	l.Allow("new")

	l.Cleanup(time.Hour)
	assert.Equal(t, 1, l.Len())
}
