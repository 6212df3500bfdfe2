package retry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/genflow/internal/metrics"
)

// BatchOptions defines retry behavior for a batch of independent items.
type BatchOptions struct {
	// MaxAttempts is the maximum number of rounds per item.
	MaxAttempts int

	// MaxConcurrent caps how many operations run at once within a round.
	// Zero means unbounded: every failing item is relaunched simultaneously.
	MaxConcurrent int

	// RoundDelay is an optional pause between rounds.
	RoundDelay time.Duration

	// OperationName labels diagnostic output and metrics.
	OperationName string
}

// DefaultBatchOptions provides sensible defaults.
func DefaultBatchOptions() BatchOptions {
	return BatchOptions{
		MaxAttempts:   3,
		OperationName: "batch",
	}
}

// ItemResult is the outcome for one input item. Index is the item's stable
// position in the original input regardless of completion order.
type ItemResult[R any] struct {
	Index    int
	Value    R
	Err      error
	Attempts int
}

// Succeeded reports whether the item eventually produced a value.
func (r ItemResult[R]) Succeeded() bool {
	return r.Err == nil
}

// DoAll runs op for every item concurrently and retries only the failures in
// subsequent rounds. It always returns one entry per input item; individual
// failures are data, not errors. A round settles completely before the next
// begins, and an item that succeeds is never re-attempted.
func DoAll[T, R any](
	ctx context.Context,
	opts BatchOptions,
	items []T,
	op func(ctx context.Context, item T, index int) (R, error),
) []ItemResult[R] {
	results := make([]ItemResult[R], len(items))
	for i := range results {
		results[i].Index = i
	}
	if len(items) == 0 {
		return results
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}

	pending := make([]int, len(items))
	for i := range pending {
		pending[i] = i
	}

	for round := 1; round <= opts.MaxAttempts && len(pending) > 0; round++ {
		metrics.BatchRoundsTotal.WithLabelValues(opts.OperationName).Inc()

		var sem chan struct{}
		if opts.MaxConcurrent > 0 {
			sem = make(chan struct{}, opts.MaxConcurrent)
		}

		var wg sync.WaitGroup
		for _, idx := range pending {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				if sem != nil {
					sem <- struct{}{}
					defer func() { <-sem }()
				}
				value, err := op(ctx, items[idx], idx)
				results[idx].Value = value
				results[idx].Err = err
				results[idx].Attempts++
			}(idx)
		}
		wg.Wait()

		next := pending[:0]
		for _, idx := range pending {
			if results[idx].Err != nil {
				next = append(next, idx)
			}
		}
		pending = next

		if len(pending) > 0 && round < opts.MaxAttempts {
			slog.Debug("Batch round settled with failures",
				"operation", opts.OperationName,
				"round", round,
				"max_attempts", opts.MaxAttempts,
				"failing", len(pending),
				"total", len(items))
			if opts.RoundDelay > 0 {
				time.Sleep(opts.RoundDelay)
			}
		}
	}

	return results
}
