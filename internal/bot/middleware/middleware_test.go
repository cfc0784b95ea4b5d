package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterBurstPerUser(t *testing.T) {
	rl := NewRateLimiter(1, 3)
	defer rl.Close()
	now := time.Date(2024, 6, 12, 15, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow(1))
	}
	assert.False(t, rl.Allow(1))
	assert.True(t, rl.Allow(2), "у другого пользователя свой лимит")

	now = now.Add(time.Second)
	assert.True(t, rl.Allow(1))
	assert.False(t, rl.Allow(1))
}

func TestRateLimiterEvictsIdle(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	defer rl.Close()
	now := time.Date(2024, 6, 12, 15, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow(1)
	now = now.Add(visitorTTL + time.Second)
	rl.Allow(2)
	rl.evict()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.visitors, int64(1))
	assert.Contains(t, rl.visitors, int64(2))
}

func TestDisabledLimiter(t *testing.T) {
	rl := NewRateLimiter(0, 1)
	defer rl.Close()
	for i := 0; i < 100; i++ {
		assert.True(t, rl.Allow(1))
	}
}

func TestRecoverFromPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		defer RecoverFromPanic("test")
		panic("boom")
	})
}
