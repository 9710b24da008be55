package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerOpensOnConsecutiveFailures(t *testing.T) {
	b := New("coinbase", WithFailureThreshold(3))
	require.Equal(t, StateClosed, b.State())
	assert.Equal(t, "coinbase", b.Name())

	assert.False(t, b.RecordFailure().Opened)
	assert.False(t, b.RecordFailure().Opened)
	assert.True(t, b.RecordFailure().Opened)
	assert.True(t, b.IsOpen())
	assert.Equal(t, "open", b.State().String())

	assert.Equal(t, Change{}, b.RecordFailure(), "already open")
}

func TestBreakerSuccessClearsTheRun(t *testing.T) {
	b := New("drand", WithFailureThreshold(2))

	b.RecordFailure()
	assert.Equal(t, Change{}, b.RecordSuccess())
	b.RecordFailure()
	assert.False(t, b.IsOpen(), "failures separated by a success do not add up")

	assert.True(t, b.RecordFailure().Opened)
}

func TestBreakerCooldown(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	b := New("nist", WithFailureThreshold(1), WithCooldown(time.Minute), WithClock(func() time.Time { return now }))

	assert.True(t, b.Allow())
	b.RecordFailure()
	assert.False(t, b.Allow())

	now = now.Add(time.Minute)
	require.True(t, b.Allow())
	assert.True(t, b.IsOpen(), "admitting a trial call does not close the breaker")

	t.Run("failed trial restarts the cooldown", func(t *testing.T) {
		b.RecordFailure()
		assert.False(t, b.Allow())
		now = now.Add(time.Minute)
		assert.True(t, b.Allow())
	})

	t.Run("successful trial closes", func(t *testing.T) {
		assert.True(t, b.RecordSuccess().Closed)
		assert.Equal(t, StateClosed, b.State())
		assert.True(t, b.Allow())
	})
}

func TestBreakerWithoutCooldownStaysShut(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	b := New("binance", WithFailureThreshold(1), WithClock(func() time.Time { return now }))
	b.RecordFailure()

	now = now.Add(24 * time.Hour)
	assert.False(t, b.Allow())
}
