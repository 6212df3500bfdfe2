package domain

// FailedGeneration represents a generation that exhausted its retry budget
type FailedGeneration struct {
	ID           string `json:"id"`
	RequestID    string `json:"request_id"`
	SessionLabel string `json:"session_label"`
	Reason       string `json:"reason"`
	Error        string `json:"error_msg"`
	Attempts     int    `json:"attempts"`
	RetryCount   int    `json:"retry_count"`
	Status       FailedGenerationStatus
	LastAttempt  int64
	CreatedAt    int64
}

type FailedGenerationStatus string

const (
	FailedGenerationStatusPending  FailedGenerationStatus = "pending"
	FailedGenerationStatusResolved FailedGenerationStatus = "resolved"
	FailedGenerationStatusIgnored  FailedGenerationStatus = "ignored"
)
