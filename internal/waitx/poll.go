// Package waitx waits for a condition that the backend satisfies
// asynchronously, such as a PDF being generated.
package waitx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
)

var (
	// ErrNotReady is returned by a probe to ask for another attempt.
	ErrNotReady = errors.New("not ready")
	// ErrAttemptsExhausted is returned when every attempt came back not ready.
	ErrAttemptsExhausted = errors.New("attempts exhausted")
)

// Policy bounds a Poll.
type Policy struct {
	MaxAttempts int
	Interval    time.Duration
}

// DefaultPolicy is five attempts one second apart.
var DefaultPolicy = Policy{MaxAttempts: 5, Interval: time.Second}

// Probe reports whether the awaited condition holds. Returning ErrNotReady
// (or a wrapped form of it) is the same as returning done == false.
type Probe func(ctx context.Context) (done bool, err error)

// Poll calls probe until it reports done, returns an error other than
// ErrNotReady, the attempts run out, or ctx is cancelled. Attempts are
// spaced by a fixed interval with no jitter.
func Poll(ctx context.Context, p Policy, probe Probe) error {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultPolicy.MaxAttempts
	}
	if p.Interval <= 0 {
		p.Interval = DefaultPolicy.Interval
	}

	b := retry.NewConstant(p.Interval)
	b = retry.WithMaxRetries(uint64(p.MaxAttempts-1), b)

	attempts := 0
	var last error
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempts++
		done, err := probe(ctx)
		switch {
		case err != nil && errors.Is(err, ErrNotReady):
			last = err
			return retry.RetryableError(err)
		case err != nil:
			return err
		case !done:
			last = ErrNotReady
			return retry.RetryableError(ErrNotReady)
		}
		return nil
	})

	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, ErrNotReady) {
		return fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, attempts, last)
	}
	return err
}
