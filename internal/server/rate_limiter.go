// Package server implements a per-user sliding-window rate limiter that
// protects the hub from chat and file-upload floods.
package server

import (
	"sync"
	"time"
)

// RateLimiter tracks recent message instants per username and enforces a
// rolling-window cap. It is shared by all connection handlers and safe for
// concurrent use.
type RateLimiter struct {
	mu          sync.Mutex
	maxMessages int
	window      time.Duration
	records     map[string][]time.Time
}

// NewRateLimiter creates a limiter allowing at most maxMessages events per
// rolling window for each username.
func NewRateLimiter(maxMessages int, window time.Duration) *RateLimiter {
	if maxMessages <= 0 {
		maxMessages = 1
	}
	if window <= 0 {
		window = time.Second
	}
	return &RateLimiter{
		maxMessages: maxMessages,
		window:      window,
		records:     make(map[string][]time.Time),
	}
}

// Allow records one message instant for username at the given time and
// reports whether the message is within the limit. The instant is recorded
// even when the call is rejected, so a sustained burst keeps the user limited
// until the window drains.
func (rl *RateLimiter) Allow(username string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := now.Add(-rl.window)
	timestamps := rl.records[username]

	kept := timestamps[:0]
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, now)
	rl.records[username] = kept

	return len(kept) <= rl.maxMessages
}

// Forget drops all recorded instants for username. Called when a session
// ends so stale state does not leak across reconnects of the same user.
func (rl *RateLimiter) Forget(username string) {
	rl.mu.Lock()
	delete(rl.records, username)
	rl.mu.Unlock()
}
