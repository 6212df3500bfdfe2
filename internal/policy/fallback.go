package policy

import (
	"log/slog"

	"github.com/vietddude/genflow/internal/core/domain"
)

// Reason records why a response was rejected but kept as a fallback.
type Reason string

const (
	ReasonEmpty     Reason = "empty"
	ReasonDuplicate Reason = "duplicate"
)

// Candidate is a knowingly imperfect response retained for display in case
// no attempt fully succeeds.
type Candidate struct {
	Response domain.Response
	Reason   Reason
	Attempt  int
}

// SelectBetter ranks two fallback candidates and returns the winner.
// A duplicate beats an empty response because it still carries real content.
// Within the same reason, the later attempt wins. Pure function: calling it
// twice with the same inputs yields the same winner.
func SelectBetter(existing *Candidate, candidate Candidate) Candidate {
	if existing == nil {
		return candidate
	}
	winner := *existing
	if existing.Reason != candidate.Reason {
		if candidate.Reason == ReasonDuplicate {
			winner = candidate
		}
	} else if candidate.Attempt > existing.Attempt {
		winner = candidate
	}
	slog.Debug("Fallback candidate ranked",
		"existing_reason", existing.Reason,
		"existing_attempt", existing.Attempt,
		"candidate_reason", candidate.Reason,
		"candidate_attempt", candidate.Attempt,
		"kept_reason", winner.Reason,
		"kept_attempt", winner.Attempt)
	return winner
}
