package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBreaker(cfg Config) (*Breaker, *time.Time) {
	b := New(cfg)
	now := time.Unix(1_700_000_000, 0)
	b.now = func() time.Time { return now }
	return b, &now
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	t.Parallel()

	b, _ := newTestBreaker(Config{FailureThreshold: 3})

	b.RecordFailure()
	b.RecordFailure()
	assert.Equal(t, StateClosed, b.CurrentState())

	b.RecordFailure()
	assert.Equal(t, StateOpen, b.CurrentState())
	require.ErrorIs(t, b.Allow(), ErrOpen)
}

func TestBreaker_SuccessResetsFailureStreak(t *testing.T) {
	t.Parallel()

	b, _ := newTestBreaker(Config{FailureThreshold: 2})

	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	assert.Equal(t, StateClosed, b.CurrentState())
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	t.Parallel()

	b, now := newTestBreaker(Config{FailureThreshold: 1, SuccessThreshold: 2, OpenTimeout: 10 * time.Second})

	b.RecordFailure()
	require.Equal(t, StateOpen, b.CurrentState())

	*now = now.Add(11 * time.Second)
	require.NoError(t, b.Allow())
	assert.Equal(t, StateHalfOpen, b.CurrentState())

	b.RecordSuccess()
	assert.Equal(t, StateHalfOpen, b.CurrentState())
	b.RecordSuccess()
	assert.Equal(t, StateClosed, b.CurrentState())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	t.Parallel()

	b, now := newTestBreaker(Config{FailureThreshold: 1, OpenTimeout: 10 * time.Second})

	b.RecordFailure()
	*now = now.Add(11 * time.Second)
	require.NoError(t, b.Allow())

	b.RecordFailure()
	assert.Equal(t, StateOpen, b.CurrentState())
}

func TestBreaker_Do(t *testing.T) {
	t.Parallel()

	b, _ := newTestBreaker(Config{FailureThreshold: 1})

	boom := errors.New("boom")
	require.ErrorIs(t, b.Do(func() error { return boom }), boom)

	// Breaker is now open; fn must not run.
	called := false
	err := b.Do(func() error { called = true; return nil })
	require.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestBreaker_StateChangeCallback(t *testing.T) {
	t.Parallel()

	var transitions []string
	b, _ := newTestBreaker(Config{
		FailureThreshold: 1,
		OnStateChange: func(from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	b.RecordFailure()
	assert.Equal(t, []string{"closed->open"}, transitions)
}
