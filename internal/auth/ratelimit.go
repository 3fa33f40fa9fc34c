// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Driftmark Authors

package auth

import (
	"sync"
	"time"
)

// LimitPolicy configures a protected action: at most Limit admissions in
// any trailing Window.
type LimitPolicy struct {
	Limit  int
	Window time.Duration
}

// LimitResult is the outcome of a rate limit check.
type LimitResult struct {
	// Admitted is true if the event was admitted and recorded.
	Admitted bool

	// RetryAfter is the minimal wait until the window admits a new event,
	// computed from the oldest surviving timestamp. Zero when admitted.
	RetryAfter time.Duration
}

// Limiter is sliding-window admission control keyed by (bucket, identifier).
type Limiter interface {
	// Check admits or rejects one event for the key at the given time.
	Check(bucket, identifier string, policy LimitPolicy, now time.Time) LimitResult

	// Reset clears the key's history, e.g. failed-login counters after a
	// successful login.
	Reset(bucket, identifier string)
}

// SlidingWindowLimiter implements Limiter with in-process state.
// Each key serializes its own read-modify-write on a per-key mutex;
// unrelated keys never contend on a shared lock.
type SlidingWindowLimiter struct {
	keys sync.Map // limiter key -> *windowState
}

type windowState struct {
	mu     sync.Mutex
	events []time.Time
	// dead marks a state evicted by Prune; a Check that raced the
	// eviction must not record events on it.
	dead bool
}

// NewSlidingWindowLimiter creates an empty limiter.
func NewSlidingWindowLimiter() *SlidingWindowLimiter {
	return &SlidingWindowLimiter{}
}

func limiterKey(bucket, identifier string) string {
	return bucket + ":" + identifier
}

// Check admits or rejects one event for the key at the given time.
// A non-positive limit rejects everything; a non-positive window admits
// everything without recording.
func (l *SlidingWindowLimiter) Check(bucket, identifier string, policy LimitPolicy, now time.Time) LimitResult {
	if policy.Limit <= 0 {
		return LimitResult{Admitted: false, RetryAfter: policy.Window}
	}
	if policy.Window <= 0 {
		return LimitResult{Admitted: true}
	}

	key := limiterKey(bucket, identifier)
	var state *windowState
	for {
		v, _ := l.keys.LoadOrStore(key, &windowState{})
		state = v.(*windowState)
		state.mu.Lock()
		if !state.dead {
			break
		}
		state.mu.Unlock()
	}
	defer state.mu.Unlock()

	// Lazily drop events that have slid out of the window.
	cutoff := now.Add(-policy.Window)
	kept := state.events[:0]
	for _, ts := range state.events {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	state.events = kept

	if len(state.events) < policy.Limit {
		state.events = append(state.events, now)
		return LimitResult{Admitted: true}
	}

	// events is append-only in time order, so the oldest survivor is first.
	retry := state.events[0].Add(policy.Window).Sub(now)
	if retry < 0 {
		retry = 0
	}
	return LimitResult{Admitted: false, RetryAfter: retry}
}

// Reset clears a key's history. The state is marked dead under its mutex
// so a Check that loaded it before the delete retries onto a fresh entry
// instead of recording on the orphan, same as eviction in Prune.
func (l *SlidingWindowLimiter) Reset(bucket, identifier string) {
	key := limiterKey(bucket, identifier)
	v, ok := l.keys.Load(key)
	if !ok {
		return
	}
	state := v.(*windowState)
	state.mu.Lock()
	state.dead = true
	l.keys.Delete(key)
	state.mu.Unlock()
}

// Prune removes keys whose windows have fully drained at the given time.
// Intended for a periodic sweep; Check stays correct without it.
func (l *SlidingWindowLimiter) Prune(window time.Duration, now time.Time) {
	cutoff := now.Add(-window)
	l.keys.Range(func(key, v any) bool {
		state := v.(*windowState)
		state.mu.Lock()
		empty := true
		for _, ts := range state.events {
			if ts.After(cutoff) {
				empty = false
				break
			}
		}
		if empty {
			state.dead = true
			l.keys.Delete(key)
		}
		state.mu.Unlock()
		return true
	})
}

// Compile-time interface check.
var _ Limiter = (*SlidingWindowLimiter)(nil)
