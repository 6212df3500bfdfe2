// Package storage defines the persistence interfaces the engine's wiring
// depends on. The retry core itself never touches storage.
package storage

import (
	"context"

	"github.com/vietddude/genflow/internal/core/domain"
)

// AttemptJournal records one row per generation attempt for audit trails.
type AttemptJournal interface {
	Record(ctx context.Context, rec *domain.AttemptRecord) error
	RecentBySession(ctx context.Context, sessionLabel string, limit int) ([]*domain.AttemptRecord, error)
}

// FailedGenerationRepository queues generations that exhausted their retry
// budget so operators can inspect or requeue them.
type FailedGenerationRepository interface {
	Add(ctx context.Context, fg *domain.FailedGeneration) error
	GetNext(ctx context.Context) (*domain.FailedGeneration, error)
	IncrementRetry(ctx context.Context, id string) error
	MarkResolved(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}
