package capture

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoveryBackoff(t *testing.T) {
	t.Parallel()

	p := RecoveryPolicy{MaxAttempts: 10, Delay: 50 * time.Millisecond, MaxDelay: 300 * time.Millisecond}
	want := []time.Duration{
		50 * time.Millisecond,
		100 * time.Millisecond,
		200 * time.Millisecond,
		300 * time.Millisecond,
		300 * time.Millisecond,
	}
	for i, w := range want {
		assert.Equal(t, w, p.backoff(i+1), "attempt %d", i+1)
	}
	assert.Equal(t, 50*time.Millisecond, p.backoff(0))
}

func TestReopenSucceedsAfterFailures(t *testing.T) {
	t.Parallel()

	calls := 0
	open := func() (Session, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("device busy")
		}
		return newFakeSession(), nil
	}
	p := RecoveryPolicy{MaxAttempts: 5, Delay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	sess, err := reopen(context.Background(), open, p, nil)
	require.NoError(t, err)
	assert.NotNil(t, sess)
	assert.Equal(t, 3, calls)
}

func TestReopenGivesUp(t *testing.T) {
	t.Parallel()

	calls := 0
	open := func() (Session, error) {
		calls++
		return nil, ErrDeviceCreation
	}
	p := RecoveryPolicy{MaxAttempts: 3, Delay: time.Millisecond, MaxDelay: time.Millisecond}
	_, err := reopen(context.Background(), open, p, nil)
	assert.ErrorIs(t, err, ErrReinitFailed)
	assert.Equal(t, KindFatal, Classify(err))
	assert.Equal(t, 3, calls)
}

func TestReopenCancelledDuringBackoff(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	open := func() (Session, error) {
		cancel()
		return nil, errors.New("nope")
	}
	p := RecoveryPolicy{MaxAttempts: 5, Delay: time.Hour, MaxDelay: time.Hour}
	_, err := reopen(ctx, open, p, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
