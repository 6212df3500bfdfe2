package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/genflow/internal/core/domain"
)

// journalTTL bounds how long an exhausted generation stays inspectable.
const journalTTL = 24 * time.Hour

// FailedGenerationRepo implements storage.FailedGenerationRepository using Redis.
type FailedGenerationRepo struct {
	rdb       *redis.Client
	namespace string
}

// NewFailedGenerationRepo creates a new Redis-backed failure journal.
func NewFailedGenerationRepo(client *Client, namespace string) *FailedGenerationRepo {
	return &FailedGenerationRepo{
		rdb:       client.rdb,
		namespace: namespace,
	}
}

// Key helpers
func (r *FailedGenerationRepo) queueKey() string {
	return fmt.Sprintf("failed_generations:%s", r.namespace)
}

func (r *FailedGenerationRepo) itemKey(id string) string {
	return fmt.Sprintf("failed_generation:%s:%s", r.namespace, id)
}

// Add queues a failed generation.
func (r *FailedGenerationRepo) Add(ctx context.Context, fg *domain.FailedGeneration) error {
	data, err := json.Marshal(fg)
	if err != nil {
		return fmt.Errorf("failed to marshal failed generation: %w", err)
	}

	if err := r.rdb.Set(ctx, r.itemKey(fg.ID), data, journalTTL).Err(); err != nil {
		return fmt.Errorf("failed to set failed generation: %w", err)
	}

	// Sorted set score = retry count, lower retried first
	if err := r.rdb.ZAdd(ctx, r.queueKey(), redis.Z{
		Score:  float64(fg.RetryCount),
		Member: fg.ID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add to queue: %w", err)
	}

	return nil
}

// GetNext retrieves the next failed generation to inspect or requeue.
func (r *FailedGenerationRepo) GetNext(ctx context.Context) (*domain.FailedGeneration, error) {
	results, err := r.rdb.ZRange(ctx, r.queueKey(), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange failed: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	id := results[0]

	data, err := r.rdb.Get(ctx, r.itemKey(id)).Bytes()
	if err == redis.Nil {
		// Data expired but ID still in queue, remove it
		r.rdb.ZRem(ctx, r.queueKey(), id)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get failed generation: %w", err)
	}

	var fg domain.FailedGeneration
	if err := json.Unmarshal(data, &fg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal failed generation: %w", err)
	}
	return &fg, nil
}

// IncrementRetry bumps retry count and updates last attempt.
func (r *FailedGenerationRepo) IncrementRetry(ctx context.Context, id string) error {
	data, err := r.rdb.Get(ctx, r.itemKey(id)).Bytes()
	if err != nil {
		return fmt.Errorf("failed to get failed generation: %w", err)
	}

	var fg domain.FailedGeneration
	if err := json.Unmarshal(data, &fg); err != nil {
		return fmt.Errorf("failed to unmarshal failed generation: %w", err)
	}

	fg.RetryCount++
	fg.LastAttempt = time.Now().Unix()

	updated, err := json.Marshal(&fg)
	if err != nil {
		return fmt.Errorf("failed to marshal failed generation: %w", err)
	}
	if err := r.rdb.Set(ctx, r.itemKey(id), updated, journalTTL).Err(); err != nil {
		return fmt.Errorf("failed to update failed generation: %w", err)
	}

	// Re-score so heavily retried entries sink to the back
	if err := r.rdb.ZAdd(ctx, r.queueKey(), redis.Z{
		Score:  float64(fg.RetryCount),
		Member: id,
	}).Err(); err != nil {
		return fmt.Errorf("failed to rescore queue entry: %w", err)
	}
	return nil
}

// MarkResolved removes an entry from the queue.
func (r *FailedGenerationRepo) MarkResolved(ctx context.Context, id string) error {
	if err := r.rdb.ZRem(ctx, r.queueKey(), id).Err(); err != nil {
		return fmt.Errorf("zrem failed: %w", err)
	}
	if err := r.rdb.Del(ctx, r.itemKey(id)).Err(); err != nil {
		return fmt.Errorf("del failed: %w", err)
	}
	return nil
}

// Count returns the queue depth.
func (r *FailedGenerationRepo) Count(ctx context.Context) (int64, error) {
	return r.rdb.ZCard(ctx, r.queueKey()).Result()
}
