// Package policy decides whether a generation attempt should be accepted,
// retried, or abandoned in favor of the best available fallback.
package policy

import (
	"log/slog"
	"strings"

	"github.com/vietddude/genflow/internal/core/domain"
)

// Decision classifies a generation attempt.
type Decision int

const (
	// Continue accepts the attempt as the final response.
	Continue Decision = iota
	// Retry discards the attempt and requests another.
	Retry
	// Return stops retrying and surfaces the best fallback.
	Return
)

func (d Decision) String() string {
	switch d {
	case Continue:
		return "continue"
	case Retry:
		return "retry"
	case Return:
		return "return"
	default:
		return "unknown"
	}
}

// AttemptContext is the read-only evidence a decision is made from.
type AttemptContext struct {
	Response    domain.Response
	Attempt     int
	MaxAttempts int

	// DuplicateMatchIndex is the history position of the matched prior turn.
	// Meaningful only for DecideOnDuplicate; it never changes the decision
	// but is carried into diagnostic output for audit trails.
	DuplicateMatchIndex int

	SessionLabel string
	Restricted   bool
}

// DecideOnEmpty classifies an attempt by response emptiness.
func DecideOnEmpty(ac AttemptContext) Decision {
	if strings.TrimSpace(ac.Response.Content) != "" {
		return Continue
	}
	if ac.Attempt < ac.MaxAttempts {
		slog.Info("Empty response, retrying",
			"session", ac.SessionLabel,
			"attempt", ac.Attempt,
			"max_attempts", ac.MaxAttempts)
		return Retry
	}
	slog.Warn("Empty response on final attempt, returning fallback",
		"session", ac.SessionLabel,
		"attempt", ac.Attempt,
		"max_attempts", ac.MaxAttempts)
	return Return
}

// DecideOnDuplicate classifies an attempt the caller has already flagged as a
// duplicate of a prior turn. Detection itself is the caller's job.
func DecideOnDuplicate(ac AttemptContext) Decision {
	if ac.Attempt < ac.MaxAttempts {
		slog.Info("Duplicate response, retrying",
			"session", ac.SessionLabel,
			"attempt", ac.Attempt,
			"max_attempts", ac.MaxAttempts,
			"match_index", ac.DuplicateMatchIndex,
			"restricted", ac.Restricted)
		return Retry
	}
	slog.Warn("Duplicate response on final attempt, returning fallback",
		"session", ac.SessionLabel,
		"attempt", ac.Attempt,
		"max_attempts", ac.MaxAttempts,
		"match_index", ac.DuplicateMatchIndex,
		"restricted", ac.Restricted)
	return Return
}

// Escalation recommends how the caller should relax generation parameters
// before the next attempt. The policy only recommends; the caller applies.
type Escalation struct {
	TemperatureBoost      float64
	FrequencyPenaltyBoost float64
	// HistoryTrim is the number of oldest conversation turns to drop.
	HistoryTrim int
}

// RecommendEscalation returns the adjustment for the given attempt.
// Attempt 1 performs no escalation by definition.
func RecommendEscalation(attempt int) Escalation {
	if attempt <= 1 {
		return Escalation{}
	}
	step := attempt - 1
	return Escalation{
		TemperatureBoost:      0.1 * float64(step),
		FrequencyPenaltyBoost: 0.2 * float64(step),
		HistoryTrim:           2 * step,
	}
}
