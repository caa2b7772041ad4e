// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sift Contributors

package health_test

import (
	"testing"
	"time"

	"github.com/sift-dev/sift/pkg/health"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_StartsHealthy(t *testing.T) {
	tr, err := health.NewTracker(time.Minute)
	require.NoError(t, err)

	assert.True(t, tr.IsHealthy())

	m := tr.Snapshot()
	assert.True(t, m.Available)
	assert.Zero(t, m.FailureCount)
	assert.Nil(t, m.LastFailureAt)
}

func TestTracker_InvalidCooldown(t *testing.T) {
	_, err := health.NewTracker(0)
	assert.Error(t, err)

	_, err = health.NewTracker(-time.Second)
	assert.Error(t, err)
}

func TestTracker_FailureAndCooldown(t *testing.T) {
	tr, err := health.NewTracker(30 * time.Second)
	require.NoError(t, err)

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	tr.SetNowFunc(func() time.Time { return now })

	tr.RecordFailure()
	assert.False(t, tr.IsHealthy())

	m := tr.Snapshot()
	assert.False(t, m.Available)
	assert.Equal(t, int64(1), m.FailureCount)
	require.NotNil(t, m.CooldownUntil)
	assert.Equal(t, now.Add(30*time.Second), *m.CooldownUntil)

	// After the cooldown elapses the service becomes eligible again.
	now = now.Add(31 * time.Second)
	assert.True(t, tr.IsHealthy())
}

func TestTracker_SuccessResets(t *testing.T) {
	tr, err := health.NewTracker(time.Hour)
	require.NoError(t, err)

	tr.RecordFailure()
	assert.False(t, tr.IsHealthy())

	tr.RecordSuccess()
	assert.True(t, tr.IsHealthy())

	// Failure count is cumulative across recoveries.
	m := tr.Snapshot()
	assert.Equal(t, int64(1), m.FailureCount)
}
