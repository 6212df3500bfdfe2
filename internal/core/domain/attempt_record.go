package domain

import "time"

// AttemptOutcome classifies what a single generation attempt produced.
type AttemptOutcome string

const (
	AttemptOutcomeOK        AttemptOutcome = "ok"
	AttemptOutcomeEmpty     AttemptOutcome = "empty"
	AttemptOutcomeDuplicate AttemptOutcome = "duplicate"
	AttemptOutcomeError     AttemptOutcome = "error"
)

// AttemptRecord is one row of the attempt audit journal.
type AttemptRecord struct {
	ID           string
	RequestID    string
	SessionLabel string
	Attempt      int
	Outcome      AttemptOutcome
	Decision     string
	Provider     string
	Error        string
	Elapsed      time.Duration
	CreatedAt    time.Time
}
