// Package poll provides a fixed-interval wait loop with optional attempt and time ceilings.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrAttemptsExceeded is returned when MaxAttempts checks ran without completion.
	ErrAttemptsExceeded = errors.New("poll attempts exceeded")
	// ErrDeadlineExceeded is returned when MaxDuration elapsed without completion.
	ErrDeadlineExceeded = errors.New("poll deadline exceeded")
)

// Options configures Until. Zero MaxAttempts or MaxDuration means unbounded.
type Options struct {
	Interval    time.Duration
	MaxAttempts int
	MaxDuration time.Duration
}

// CheckFunc performs one poll. It returns done=true to stop successfully,
// or a non-nil error to stop with that error.
type CheckFunc func(ctx context.Context, attempt int) (done bool, err error)

// Until calls check immediately and then once per Interval until it reports done,
// returns an error, a ceiling is reached, or ctx is cancelled.
func Until(ctx context.Context, opts Options, check CheckFunc) error {
	if opts.Interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", opts.Interval)
	}

	var deadline <-chan time.Time
	if opts.MaxDuration > 0 {
		timer := time.NewTimer(opts.MaxDuration)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		done, err := check(ctx, attempt)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if opts.MaxAttempts > 0 && attempt >= opts.MaxAttempts {
			return fmt.Errorf("%w after %d attempts", ErrAttemptsExceeded, attempt)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("%w after %s", ErrDeadlineExceeded, opts.MaxDuration)
		case <-ticker.C:
		}
	}
}
