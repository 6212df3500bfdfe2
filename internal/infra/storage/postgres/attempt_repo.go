package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/genflow/internal/core/domain"
)

// AttemptRepo implements storage.AttemptJournal using PostgreSQL.
type AttemptRepo struct {
	db *DB
}

// NewAttemptRepo creates a new PostgreSQL attempt journal.
func NewAttemptRepo(db *DB) *AttemptRepo {
	return &AttemptRepo{db: db}
}

// Record inserts one attempt row.
func (r *AttemptRepo) Record(ctx context.Context, rec *domain.AttemptRecord) error {
	id := rec.ID
	if id == "" {
		id = uuid.New().String()
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO attempt_journal
			(id, request_id, session_label, attempt, outcome, decision, provider, error_msg, elapsed_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		id,
		rec.RequestID,
		rec.SessionLabel,
		rec.Attempt,
		string(rec.Outcome),
		rec.Decision,
		rec.Provider,
		rec.Error,
		rec.Elapsed.Milliseconds(),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}

// RecentBySession returns the most recent attempts for a session.
func (r *AttemptRepo) RecentBySession(
	ctx context.Context,
	sessionLabel string,
	limit int,
) ([]*domain.AttemptRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, request_id, session_label, attempt, outcome, decision, provider, error_msg, elapsed_ms, created_at
		FROM attempt_journal
		WHERE session_label = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, sessionLabel, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	var records []*domain.AttemptRecord
	for rows.Next() {
		var rec domain.AttemptRecord
		var outcome string
		var elapsedMs int64
		if err := rows.Scan(
			&rec.ID,
			&rec.RequestID,
			&rec.SessionLabel,
			&rec.Attempt,
			&outcome,
			&rec.Decision,
			&rec.Provider,
			&rec.Error,
			&elapsedMs,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		rec.Outcome = domain.AttemptOutcome(outcome)
		rec.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		records = append(records, &rec)
	}
	return records, rows.Err()
}
