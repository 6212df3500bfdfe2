// Package retry provides bounded-backoff execution of fallible operations
// against flaky upstreams: a sequential executor for single calls and a
// round-based parallel executor for independent batches.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/vietddude/genflow/internal/metrics"
)

// Options defines retry behavior for a single operation.
type Options struct {
	// MaxAttempts is the total attempt budget, including the first call.
	MaxAttempts int

	// InitialDelay is the backoff slept after the first failed attempt.
	InitialDelay time.Duration

	// MaxDelay caps the backoff regardless of multiplier growth.
	MaxDelay time.Duration

	// BackoffMultiplier grows the delay between attempts.
	// The delay after attempt n is InitialDelay * BackoffMultiplier^(n-1).
	BackoffMultiplier float64

	// GlobalTimeout, when set, abandons the sequence as soon as elapsed time
	// crosses it. Checked between attempts, never mid-attempt or mid-sleep.
	GlobalTimeout time.Duration

	// OperationName labels diagnostic output and metrics.
	OperationName string
}

// DefaultOptions provides sensible defaults.
func DefaultOptions() Options {
	return Options{
		MaxAttempts:       3,
		InitialDelay:      500 * time.Millisecond,
		MaxDelay:          10 * time.Second,
		BackoffMultiplier: 2.0,
		OperationName:     "operation",
	}
}

// Validate checks option values.
func (o Options) Validate() error {
	if o.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1")
	}
	if o.InitialDelay < 0 {
		return fmt.Errorf("initial delay must be non-negative")
	}
	if o.MaxDelay < o.InitialDelay {
		return fmt.Errorf("max delay must be >= initial delay")
	}
	if o.BackoffMultiplier < 1 {
		return fmt.Errorf("backoff multiplier must be >= 1")
	}
	return nil
}

// Delay returns the backoff slept after the given attempt (1-indexed).
func (o Options) Delay(attempt int) time.Duration {
	delay := float64(o.InitialDelay) * math.Pow(o.BackoffMultiplier, float64(attempt-1))
	if delay > float64(o.MaxDelay) {
		return o.MaxDelay
	}
	return time.Duration(delay)
}

// Result carries a successful operation value and how it was obtained.
type Result[T any] struct {
	Value    T
	Attempts int
	Elapsed  time.Duration
}

// ExhaustedError is returned when an operation never succeeded, either
// because the attempt budget was spent or the global deadline elapsed.
type ExhaustedError struct {
	Op               string
	Attempts         int
	DeadlineExceeded bool
	Cause            error
}

func (e *ExhaustedError) Error() string {
	if e.DeadlineExceeded {
		return fmt.Sprintf("%s: deadline exceeded after %d attempt(s): %v", e.Op, e.Attempts, e.Cause)
	}
	return fmt.Sprintf("%s: failed after %d attempt(s): %v", e.Op, e.Attempts, e.Cause)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Cause
}

// Classifier reports whether an error is retryable.
// A nil Classifier treats every error as retryable.
type Classifier func(error) bool

// Do executes op with exponential backoff, treating every error as retryable.
func Do[T any](ctx context.Context, opts Options, op func(context.Context) (T, error)) (*Result[T], error) {
	return DoClassified(ctx, opts, nil, op)
}

// DoClassified executes op with exponential backoff, consulting classify
// after each failure. Attempts run strictly sequentially. The global
// deadline is evaluated only at the top of each iteration after the first,
// so an in-flight call or backoff sleep is never interrupted.
func DoClassified[T any](
	ctx context.Context,
	opts Options,
	classify Classifier,
	op func(context.Context) (T, error),
) (*Result[T], error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry options: %w", err)
	}

	start := time.Now()
	var lastErr error

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if attempt > 1 && opts.GlobalTimeout > 0 && time.Since(start) >= opts.GlobalTimeout {
			metrics.RetryDeadlineCutoffsTotal.WithLabelValues(opts.OperationName).Inc()
			slog.Warn("Retry abandoned, global deadline elapsed",
				"operation", opts.OperationName,
				"attempts", attempt-1,
				"elapsed", time.Since(start),
				"timeout", opts.GlobalTimeout)
			return nil, &ExhaustedError{
				Op:               opts.OperationName,
				Attempts:         attempt - 1,
				DeadlineExceeded: true,
				Cause:            lastErr,
			}
		}

		value, err := op(ctx)
		if err == nil {
			return &Result[T]{
				Value:    value,
				Attempts: attempt,
				Elapsed:  time.Since(start),
			}, nil
		}
		lastErr = err

		if classify != nil && !classify(err) {
			slog.Warn("Non-retryable error, stopping",
				"operation", opts.OperationName,
				"attempt", attempt,
				"error", err)
			return nil, &ExhaustedError{Op: opts.OperationName, Attempts: attempt, Cause: err}
		}

		if attempt == opts.MaxAttempts {
			break
		}

		delay := opts.Delay(attempt)
		metrics.RetryAttemptsTotal.WithLabelValues(opts.OperationName).Inc()
		slog.Debug("Retrying operation",
			"operation", opts.OperationName,
			"attempt", attempt,
			"max_attempts", opts.MaxAttempts,
			"delay", delay,
			"elapsed", time.Since(start),
			"error", err)
		// Deadline is re-checked at the top of the next iteration.
		time.Sleep(delay)
	}

	return nil, &ExhaustedError{Op: opts.OperationName, Attempts: opts.MaxAttempts, Cause: lastErr}
}
