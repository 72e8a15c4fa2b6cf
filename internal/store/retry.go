package store

import (
	"context"
	"time"

	"github.com/mesh-intelligence/propsync/internal/logging"
	"github.com/mesh-intelligence/propsync/pkg/types"
)

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// withRetry runs call until it succeeds, fails with an error the retry
// predicate rejects, or the attempts run out. Attempt n waits n*baseDelay
// before attempt n+1. Failures come back as *types.TerminalError.
func (s *Store) withRetry(ctx context.Context, op string, call func(context.Context) (types.Record, error)) (types.Record, error) {
	for attempt := 1; ; attempt++ {
		row, err := call(ctx)
		if err == nil {
			return row, nil
		}
		if !s.isRetryable(err) || attempt >= s.attempts {
			return nil, &types.TerminalError{Op: op, Attempts: attempt, Err: err}
		}
		delay := time.Duration(attempt) * s.baseDelay
		s.log.Warn("transient backend error, retrying", logging.Fields{
			"op": op, "attempt": attempt, "delay": delay.String(), "error": err.Error(),
		})
		if werr := s.sleep(ctx, delay); werr != nil {
			return nil, &types.TerminalError{Op: op, Attempts: attempt, Err: werr}
		}
	}
}
