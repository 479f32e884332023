package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type manualClock struct{ now time.Time }

func (c *manualClock) Now() time.Time { return c.now }

func (c *manualClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestRateLimiter_BurstThenRefill(t *testing.T) {
	clock := &manualClock{now: fixedTime}
	rl := newRateLimiter(RateLimitConfig{Burst: 3, RefillInterval: 3 * time.Second}, clock.Now)

	for i := range 3 {
		assert.True(t, rl.allow(), "message %d", i)
	}
	assert.False(t, rl.allow())

	clock.Advance(time.Second)
	assert.True(t, rl.allow())
	assert.False(t, rl.allow())

	clock.Advance(time.Hour)
	for range 3 {
		assert.True(t, rl.allow())
	}
	assert.False(t, rl.allow())
}

func TestRateLimiter_InvalidConfigFallsBack(t *testing.T) {
	clock := &manualClock{now: fixedTime}
	rl := newRateLimiter(RateLimitConfig{}, clock.Now)

	assert.True(t, rl.allow())
	assert.False(t, rl.allow())

	clock.Advance(time.Second)
	assert.True(t, rl.allow())
}

func TestRateLimiter_Nil(t *testing.T) {
	var rl *rateLimiter
	assert.True(t, rl.allow())
}
