// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"sync"
	"time"
)

// Rate limiting configuration.
const (
	// LockoutDuration is the time a key is locked out after too many failures.
	LockoutDuration = 15 * time.Minute

	// LockoutThreshold is the number of failures that triggers a lockout.
	LockoutThreshold = 7

	// failureWindow is how long a failure counts against a key.
	failureWindow = 15 * time.Minute
)

// RateLimitResult contains the result of a rate limit check.
type RateLimitResult struct {
	// Delay is the time to wait before allowing another attempt.
	Delay time.Duration

	// IsLockedOut indicates the key is temporarily locked.
	IsLockedOut bool

	// LockoutRemaining is the time until the lockout expires.
	LockoutRemaining time.Duration
}

// CheckFailures evaluates the rate limit state for a failure count.
// lockedUntil is the current lockout timestamp (nil if not locked).
func CheckFailures(failures int, lockedUntil *time.Time) RateLimitResult {
	result := RateLimitResult{}

	if lockedUntil != nil && lockedUntil.After(time.Now()) {
		result.IsLockedOut = true
		result.LockoutRemaining = time.Until(*lockedUntil)
		return result
	}

	// Progressive delay: 2^(failures-1) seconds, max 32s before lockout
	if failures > 0 && failures < LockoutThreshold {
		result.Delay = time.Duration(1<<(failures-1)) * time.Second
		if result.Delay > 32*time.Second {
			result.Delay = 32 * time.Second
		}
	}

	if failures >= LockoutThreshold {
		result.IsLockedOut = true
		result.LockoutRemaining = LockoutDuration
	}

	return result
}

type attemptState struct {
	failures    int
	lastFailure time.Time
	lockedUntil *time.Time
}

// AttemptLimiter tracks authentication failures per key (an email or a
// remote address) in memory and applies progressive delay and lockout.
// State does not survive a restart, which is acceptable for a lockout
// measured in minutes.
type AttemptLimiter struct {
	mu    sync.Mutex
	state map[string]*attemptState
}

// NewAttemptLimiter creates an empty AttemptLimiter.
func NewAttemptLimiter() *AttemptLimiter {
	return &AttemptLimiter{
		state: make(map[string]*attemptState),
	}
}

// Check returns the current rate limit state for a key without changing it.
func (l *AttemptLimiter) Check(key string) RateLimitResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.state[key]
	if !ok {
		return RateLimitResult{}
	}

	if time.Since(st.lastFailure) > failureWindow && (st.lockedUntil == nil || st.lockedUntil.Before(time.Now())) {
		delete(l.state, key)
		return RateLimitResult{}
	}

	return CheckFailures(st.failures, st.lockedUntil)
}

// RecordFailure registers a failed attempt for a key and returns the
// resulting state, including a lockout when the threshold is crossed.
func (l *AttemptLimiter) RecordFailure(key string) RateLimitResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	st, ok := l.state[key]
	if !ok || (now.Sub(st.lastFailure) > failureWindow && (st.lockedUntil == nil || st.lockedUntil.Before(now))) {
		st = &attemptState{}
		l.state[key] = st
	}

	st.failures++
	st.lastFailure = now
	if st.failures >= LockoutThreshold && (st.lockedUntil == nil || st.lockedUntil.Before(now)) {
		until := now.Add(LockoutDuration)
		st.lockedUntil = &until
	}

	return CheckFailures(st.failures, st.lockedUntil)
}

// RecordSuccess clears the failure state for a key.
func (l *AttemptLimiter) RecordSuccess(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.state, key)
}

// Prune removes expired entries. Call it periodically from a maintenance
// goroutine; the limiter also self-prunes lazily on Check.
func (l *AttemptLimiter) Prune() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for key, st := range l.state {
		if now.Sub(st.lastFailure) > failureWindow && (st.lockedUntil == nil || st.lockedUntil.Before(now)) {
			delete(l.state, key)
		}
	}
}
