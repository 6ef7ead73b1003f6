package research

import (
	"context"
	"fmt"
	"time"
)

// callWithTimeout runs fn with a deadline and returns as soon as either fn
// finishes or the deadline passes, even if fn ignores its context. A panic in
// fn is returned as an error.
func callWithTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	callCtx := ctx
	cancel := context.CancelFunc(func() {})
	if d > 0 {
		callCtx, cancel = context.WithTimeout(ctx, d)
	}
	defer cancel()

	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("provider panicked: %v", r)}
			}
		}()
		v, err := fn(callCtx)
		done <- outcome{val: v, err: err}
	}()

	select {
	case out := <-done:
		return out.val, out.err
	case <-callCtx.Done():
		var zero T
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return zero, fmt.Errorf("provider call timed out after %s: %w", d, callCtx.Err())
	}
}
