// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sift Contributors

package health

import (
	"sync"
	"time"

	sifterr "github.com/sift-dev/sift/pkg/errors"
)

// Metrics exposes the current health state of an external service boundary
// (embedding model, generation backend) for operator visibility. All fields
// are point-in-time snapshots safe to serialize to JSON.
type Metrics struct {
	FailureCount  int64      `json:"failure_count"`
	LastFailureAt *time.Time `json:"last_failure_at,omitempty"`
	CooldownUntil *time.Time `json:"cooldown_until,omitempty"`
	Available     bool       `json:"available"`
}

// Tracker provides simple health state tracking for an external service.
// A service is considered healthy until RecordFailure is called. After a
// failure, the service is marked unhealthy for a cooldown period, after
// which it becomes available again to allow recovery. The core never
// retries on its own; the tracker only records what callers observed.
type Tracker struct {
	mu           sync.RWMutex
	healthy      bool
	failedAt     time.Time
	cooldown     time.Duration
	failureCount int64
	nowFunc      func() time.Time // for testing
}

// DefaultCooldown is the duration after which an unhealthy service becomes
// eligible for retry.
const DefaultCooldown = 30 * time.Second

// NewTracker creates a Tracker that starts healthy.
// Returns an error if cooldown is zero or negative.
func NewTracker(cooldown time.Duration) (*Tracker, error) {
	if cooldown <= 0 {
		return nil, sifterr.Errorf(sifterr.CodeConfigValidateInvalidValue,
			"health tracker cooldown must be positive, got %s", cooldown)
	}
	return &Tracker{
		healthy:  true,
		cooldown: cooldown,
		nowFunc:  time.Now,
	}, nil
}

// isHealthyLocked reports whether the service is healthy or the cooldown
// has elapsed. The caller MUST hold at least t.mu.RLock.
func (t *Tracker) isHealthyLocked() bool {
	if t.healthy {
		return true
	}
	// Allow retry after cooldown expires.
	return t.nowFunc().Sub(t.failedAt) >= t.cooldown
}

// IsHealthy returns true if the service is healthy or the cooldown has elapsed.
func (t *Tracker) IsHealthy() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.isHealthyLocked()
}

// RecordSuccess marks the service as healthy.
func (t *Tracker) RecordSuccess() {
	t.mu.Lock()
	t.healthy = true
	t.mu.Unlock()
}

// RecordFailure marks the service as unhealthy and increments the
// cumulative failure count.
func (t *Tracker) RecordFailure() {
	t.mu.Lock()
	t.healthy = false
	t.failedAt = t.nowFunc()
	t.failureCount++
	t.mu.Unlock()
}

// SetNowFunc overrides the time source (for testing).
func (t *Tracker) SetNowFunc(fn func() time.Time) {
	t.mu.Lock()
	t.nowFunc = fn
	t.mu.Unlock()
}

// Snapshot returns a point-in-time view of the tracker's health state.
// The returned struct does not hold any references to internal tracker state.
func (t *Tracker) Snapshot() Metrics {
	t.mu.RLock()
	defer t.mu.RUnlock()

	m := Metrics{
		FailureCount: t.failureCount,
	}

	if t.failureCount > 0 {
		at := t.failedAt
		m.LastFailureAt = &at
	}

	m.Available = t.isHealthyLocked()
	if !t.healthy {
		cooldownEnd := t.failedAt.Add(t.cooldown)
		m.CooldownUntil = &cooldownEnd
	}
	return m
}
