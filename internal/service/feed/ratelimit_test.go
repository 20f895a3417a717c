package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_RefillsOverTime(t *testing.T) {
	t.Parallel()

	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewRateLimiter(1, 2, time.Hour)
	l.now = func() time.Time { return clock }

	assert.True(t, l.Allow("u1"))
	assert.True(t, l.Allow("u1"))
	assert.False(t, l.Allow("u1"))

	clock = clock.Add(time.Second)
	assert.True(t, l.Allow("u1"))
	assert.False(t, l.Allow("u1"))
}

func TestRateLimiter_PrunesIdleKeys(t *testing.T) {
	t.Parallel()

	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewRateLimiter(1, 1, time.Minute)
	l.now = func() time.Time { return clock }

	l.Allow("u1")
	l.Allow("u2")
	assert.Equal(t, 2, l.Len())

	clock = clock.Add(2 * time.Minute)
	l.Allow("u3")
	assert.Equal(t, 1, l.Len())
}
