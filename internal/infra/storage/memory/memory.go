// Package memory provides in-process implementations of the storage
// interfaces for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vietddude/genflow/internal/core/domain"
)

// AttemptJournal is an in-memory storage.AttemptJournal.
type AttemptJournal struct {
	mu      sync.RWMutex
	records []*domain.AttemptRecord
}

// NewAttemptJournal creates an empty in-memory journal.
func NewAttemptJournal() *AttemptJournal {
	return &AttemptJournal{}
}

// Record appends one attempt row.
func (j *AttemptJournal) Record(_ context.Context, rec *domain.AttemptRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	cp := *rec
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	j.records = append(j.records, &cp)
	return nil
}

// RecentBySession returns the most recent attempts for a session.
func (j *AttemptJournal) RecentBySession(
	_ context.Context,
	sessionLabel string,
	limit int,
) ([]*domain.AttemptRecord, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if limit <= 0 {
		limit = 20
	}

	var out []*domain.AttemptRecord
	for i := len(j.records) - 1; i >= 0 && len(out) < limit; i-- {
		if j.records[i].SessionLabel == sessionLabel {
			cp := *j.records[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

// FailedGenerationRepo is an in-memory storage.FailedGenerationRepository.
type FailedGenerationRepo struct {
	mu    sync.Mutex
	items map[string]*domain.FailedGeneration
	order []string
}

// NewFailedGenerationRepo creates an empty in-memory failure queue.
func NewFailedGenerationRepo() *FailedGenerationRepo {
	return &FailedGenerationRepo{items: make(map[string]*domain.FailedGeneration)}
}

// Add queues a failed generation.
func (r *FailedGenerationRepo) Add(_ context.Context, fg *domain.FailedGeneration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *fg
	r.items[fg.ID] = &cp
	r.order = append(r.order, fg.ID)
	return nil
}

// GetNext returns the pending entry with the lowest retry count.
func (r *FailedGenerationRepo) GetNext(_ context.Context) (*domain.FailedGeneration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var best *domain.FailedGeneration
	for _, id := range r.order {
		fg, ok := r.items[id]
		if !ok || fg.Status != domain.FailedGenerationStatusPending {
			continue
		}
		if best == nil || fg.RetryCount < best.RetryCount {
			best = fg
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

// IncrementRetry bumps the retry count of an entry.
func (r *FailedGenerationRepo) IncrementRetry(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fg, ok := r.items[id]
	if !ok {
		return fmt.Errorf("failed generation not found: %s", id)
	}
	fg.RetryCount++
	fg.LastAttempt = time.Now().Unix()
	return nil
}

// MarkResolved removes an entry from the pending queue.
func (r *FailedGenerationRepo) MarkResolved(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fg, ok := r.items[id]
	if !ok {
		return fmt.Errorf("failed generation not found: %s", id)
	}
	fg.Status = domain.FailedGenerationStatusResolved
	return nil
}

// Count returns the number of pending entries.
func (r *FailedGenerationRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, fg := range r.items {
		if fg.Status == domain.FailedGenerationStatusPending {
			n++
		}
	}
	return n, nil
}
