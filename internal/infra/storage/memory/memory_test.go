package memory

import (
	"context"
	"testing"

	"github.com/vietddude/genflow/internal/core/domain"
)

func TestAttemptJournal_RecentBySession(t *testing.T) {
	j := NewAttemptJournal()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		err := j.Record(ctx, &domain.AttemptRecord{
			RequestID:    "r1",
			SessionLabel: "s1",
			Attempt:      i,
			Outcome:      domain.AttemptOutcomeEmpty,
		})
		if err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}
	if err := j.Record(ctx, &domain.AttemptRecord{
		RequestID:    "r2",
		SessionLabel: "other",
		Attempt:      1,
		Outcome:      domain.AttemptOutcomeOK,
	}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	recs, err := j.RecentBySession(ctx, "s1", 2)
	if err != nil {
		t.Fatalf("RecentBySession failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	// Most recent first.
	if recs[0].Attempt != 3 || recs[1].Attempt != 2 {
		t.Errorf("attempts = %d, %d, want 3, 2", recs[0].Attempt, recs[1].Attempt)
	}
	for _, r := range recs {
		if r.SessionLabel != "s1" {
			t.Errorf("record from session %q leaked in", r.SessionLabel)
		}
	}
}

func TestFailedGenerationRepo_Lifecycle(t *testing.T) {
	r := NewFailedGenerationRepo()
	ctx := context.Background()

	if err := r.Add(ctx, &domain.FailedGeneration{
		ID:        "f1",
		RequestID: "r1",
		Reason:    "empty",
		Status:    domain.FailedGenerationStatusPending,
	}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := r.Add(ctx, &domain.FailedGeneration{
		ID:        "f2",
		RequestID: "r2",
		Reason:    "error",
		Status:    domain.FailedGenerationStatusPending,
	}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	n, err := r.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}

	// Bump f1 so f2 becomes the lowest-retry candidate.
	if err := r.IncrementRetry(ctx, "f1"); err != nil {
		t.Fatalf("IncrementRetry failed: %v", err)
	}
	next, err := r.GetNext(ctx)
	if err != nil {
		t.Fatalf("GetNext failed: %v", err)
	}
	if next == nil || next.ID != "f2" {
		t.Fatalf("GetNext = %+v, want f2", next)
	}

	if err := r.MarkResolved(ctx, "f2"); err != nil {
		t.Fatalf("MarkResolved failed: %v", err)
	}
	next, err = r.GetNext(ctx)
	if err != nil {
		t.Fatalf("GetNext failed: %v", err)
	}
	if next == nil || next.ID != "f1" {
		t.Fatalf("GetNext after resolve = %+v, want f1", next)
	}

	n, _ = r.Count(ctx)
	if n != 1 {
		t.Errorf("count after resolve = %d, want 1", n)
	}
}

func TestFailedGenerationRepo_EmptyQueue(t *testing.T) {
	r := NewFailedGenerationRepo()
	next, err := r.GetNext(context.Background())
	if err != nil {
		t.Fatalf("GetNext failed: %v", err)
	}
	if next != nil {
		t.Errorf("GetNext on empty queue = %+v, want nil", next)
	}
	if err := r.IncrementRetry(context.Background(), "missing"); err == nil {
		t.Error("IncrementRetry on unknown id should fail")
	}
	if err := r.MarkResolved(context.Background(), "missing"); err == nil {
		t.Error("MarkResolved on unknown id should fail")
	}
}
