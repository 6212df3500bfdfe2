package model

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/genflow/internal/core/domain"
)

// FailoverProvider tries a list of providers in order, moving on when
// Classify marks an error as a failover condition. Retry-classified errors
// are returned to the caller unchanged so the retry loop above keeps pacing
// attempts against the same provider.
type FailoverProvider struct {
	providers []Provider
}

// NewFailoverProvider creates a provider chain. At least one is required.
func NewFailoverProvider(providers ...Provider) (*FailoverProvider, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("at least one provider is required")
	}
	return &FailoverProvider{providers: providers}, nil
}

// Name returns the name of the primary provider.
func (f *FailoverProvider) Name() string {
	return f.providers[0].Name()
}

// Generate calls providers in order until one succeeds or an error is not a
// failover condition.
func (f *FailoverProvider) Generate(ctx context.Context, req *Request) (*domain.Response, error) {
	var lastErr error
	for _, p := range f.providers {
		start := time.Now()
		resp, err := p.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		switch Classify(err) {
		case ActionFatal:
			return nil, fmt.Errorf("fatal error from provider %s: %w", p.Name(), err)
		case ActionFailover:
			if delay, ok := RetryAfter(err); ok {
				slog.Warn("Provider asked for backoff before failover",
					"provider", p.Name(),
					"retry_after", delay)
			}
			slog.Warn("Provider failed, trying next",
				"provider", p.Name(),
				"latency", time.Since(start),
				"error", err)
			continue
		default:
			// Transient: let the caller's retry loop pace another attempt.
			return nil, err
		}
	}
	return nil, fmt.Errorf("all providers failed: %w", lastErr)
}
