package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_AllowsBeforeThreshold(t *testing.T) {
	rl := newLoginRateLimiter()

	for i := 0; i < maxFailures-1; i++ {
		rl.recordFailure("acct-1")
		blocked, _ := rl.check("acct-1")
		assert.False(t, blocked, "should not block before reaching maxFailures")
	}
}

func TestRateLimiter_BlocksAfterThreshold(t *testing.T) {
	rl := newLoginRateLimiter()

	for i := 0; i < maxFailures; i++ {
		rl.recordFailure("acct-1")
	}

	blocked, retryAfter := rl.check("acct-1")
	require.True(t, blocked, "should block after maxFailures")
	assert.Greater(t, retryAfter, time.Duration(0), "retry-after should be positive")
}

func TestRateLimiter_ExponentialBackoff(t *testing.T) {
	rl := newLoginRateLimiter()

	for i := 0; i < maxFailures; i++ {
		rl.recordFailure("acct-1")
	}
	_, first := rl.check("acct-1")

	// One more failure should double the lockout.
	rl.recordFailure("acct-1")
	_, second := rl.check("acct-1")
	assert.Greater(t, second, first, "lockout should increase with more failures")
}

func TestRateLimiter_SuccessResetsCounter(t *testing.T) {
	rl := newLoginRateLimiter()

	for i := 0; i < maxFailures; i++ {
		rl.recordFailure("acct-1")
	}
	blocked, _ := rl.check("acct-1")
	require.True(t, blocked)

	rl.recordSuccess("acct-1")
	blocked, _ = rl.check("acct-1")
	assert.False(t, blocked, "success should clear the lockout")
}

func TestRateLimiter_AccountsIndependent(t *testing.T) {
	rl := newLoginRateLimiter()

	for i := 0; i < maxFailures; i++ {
		rl.recordFailure("acct-1")
	}

	blocked, _ := rl.check("acct-2")
	assert.False(t, blocked, "other accounts are unaffected")
}

func TestRateLimiter_SweepDropsStaleRecords(t *testing.T) {
	rl := newLoginRateLimiter()

	rl.recordFailure("acct-1")
	rl.attempts["acct-1"].lastFailure = time.Now().Add(-2 * attemptExpiry)

	rl.sweep()
	assert.Empty(t, rl.attempts)
}

func TestRetryAfterString(t *testing.T) {
	assert.Equal(t, "60", retryAfterString(time.Minute))
	assert.Equal(t, "1", retryAfterString(100*time.Millisecond), "sub-second waits round up to 1")
}
