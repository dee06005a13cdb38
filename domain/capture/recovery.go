package capture

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RecoveryPolicy bounds how a lost session is rebuilt.
type RecoveryPolicy struct {
	MaxAttempts int           // reopen attempts before giving up
	Delay       time.Duration // wait after the first failed attempt
	MaxDelay    time.Duration // cap for the doubling delay
}

// DefaultRecoveryPolicy retries ten times, starting at 50ms and doubling up
// to 2s.
func DefaultRecoveryPolicy() RecoveryPolicy {
	return RecoveryPolicy{MaxAttempts: 10, Delay: 50 * time.Millisecond, MaxDelay: 2 * time.Second}
}

// backoff returns Delay * 2^(attempt-1), capped at MaxDelay.
func (p RecoveryPolicy) backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := p.Delay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// reopen opens a replacement session, backing off between failures. It
// returns ErrReinitFailed wrapped around the last error once MaxAttempts is
// exhausted, or ctx.Err() when cancelled during a wait.
func reopen(ctx context.Context, open func() (Session, error), p RecoveryPolicy, logger *slog.Logger) (Session, error) {
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sess, err := open()
		if err == nil {
			if logger != nil {
				logger.Info("capture.recovered", "attempt", attempt, "session_id", sess.ID())
			}
			return sess, nil
		}
		lastErr = err
		if attempt == p.MaxAttempts {
			break
		}
		delay := p.backoff(attempt)
		if logger != nil {
			logger.Warn("capture.reopen failed", "attempt", attempt, "max_attempts", p.MaxAttempts, "delay", delay, "error", err)
		}
		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("%w after %d attempts: %v", ErrReinitFailed, p.MaxAttempts, lastErr)
}
