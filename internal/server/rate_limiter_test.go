package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllowsUpToLimit(t *testing.T) {
	rl := NewRateLimiter(5, 10*time.Second)
	base := time.Now()

	for i := 0; i < 5; i++ {
		assert.True(t, rl.Allow("joe", base.Add(time.Duration(i)*time.Second)), "message %d should be allowed", i+1)
	}
	assert.False(t, rl.Allow("joe", base.Add(5*time.Second)), "6th message within the window should be rejected")
}

func TestRateLimiterRecordsRejectedMessages(t *testing.T) {
	rl := NewRateLimiter(5, 10*time.Second)
	base := time.Now()

	for i := 0; i < 6; i++ {
		rl.Allow("joe", base)
	}

	// The rejected 6th message extended the window, so the user stays
	// limited even after some of the original instants would have counted
	// out of a smaller burst.
	assert.False(t, rl.Allow("joe", base.Add(5*time.Second)))

	// Once the burst instants age out of the window, sending resumes.
	assert.True(t, rl.Allow("joe", base.Add(16*time.Second)))
}

func TestRateLimiterWindowSlides(t *testing.T) {
	rl := NewRateLimiter(5, 10*time.Second)
	base := time.Now()

	for i := 0; i < 5; i++ {
		require.True(t, rl.Allow("joe", base))
	}
	assert.False(t, rl.Allow("joe", base.Add(9*time.Second)))
	assert.True(t, rl.Allow("joe", base.Add(20*time.Second)))
}

func TestRateLimiterIsolatesUsers(t *testing.T) {
	rl := NewRateLimiter(1, 10*time.Second)
	now := time.Now()

	require.True(t, rl.Allow("joe", now))
	assert.False(t, rl.Allow("joe", now))
	assert.True(t, rl.Allow("bob", now), "one user's limit must not affect another")
}

func TestRateLimiterForget(t *testing.T) {
	rl := NewRateLimiter(2, 10*time.Second)
	now := time.Now()

	require.True(t, rl.Allow("joe", now))
	require.True(t, rl.Allow("joe", now))
	require.False(t, rl.Allow("joe", now))

	rl.Forget("joe")
	assert.True(t, rl.Allow("joe", now), "forgotten user starts with a clean window")
}

func TestNewRateLimiterGuardsInvalidParameters(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	now := time.Now()

	assert.True(t, rl.Allow("joe", now))
	assert.False(t, rl.Allow("joe", now))
}
