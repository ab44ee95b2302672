// Package retry runs an operation until its result satisfies a predicate or the attempt cap is hit.
package retry

import (
	"context"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

// Policy bounds a retry loop. Delay is fixed between attempts; there is no backoff.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

// Until calls op with the 1-based attempt number until accept returns true.
// When every attempt is rejected the last result is returned with a nil error,
// so callers decide whether an unaccepted result is usable.
// Errors returned by op stop the loop immediately.
func Until[T any](ctx context.Context, p Policy, op func(ctx context.Context, attempt int) (T, error), accept func(T) bool) (T, error) {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	builder := retrypolicy.NewBuilder[T]().
		HandleIf(func(v T, err error) bool {
			return err == nil && !accept(v)
		}).
		WithMaxAttempts(p.MaxAttempts).
		ReturnLastFailure()
	if p.Delay > 0 {
		builder = builder.WithDelay(p.Delay)
	}

	attempt := 0
	return failsafe.With(builder.Build()).WithContext(ctx).Get(func() (T, error) {
		attempt++
		return op(ctx, attempt)
	})
}

// Sleep waits for d or until ctx is done. Non-positive durations return immediately.
func Sleep(ctx context.Context, d time.Duration) error {
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
