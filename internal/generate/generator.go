// Package generate orchestrates response generation against unreliable
// model providers: paced retries, quality decisions, fallback selection,
// and attachment description.
package generate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/genflow/internal/core/domain"
	"github.com/vietddude/genflow/internal/infra/model"
	"github.com/vietddude/genflow/internal/infra/storage"
	"github.com/vietddude/genflow/internal/media"
	"github.com/vietddude/genflow/internal/metrics"
	"github.com/vietddude/genflow/internal/policy"
	"github.com/vietddude/genflow/internal/retry"
)

// Config tunes the generation loop.
type Config struct {
	Retry retry.Options

	// DuplicateWindow is how many recent assistant turns are compared when
	// looking for a repeated response.
	DuplicateWindow int

	// HistoryMin is the minimum number of messages kept when escalation
	// trims conversation history.
	HistoryMin int
}

// DefaultConfig provides sensible defaults.
func DefaultConfig() Config {
	opts := retry.DefaultOptions()
	opts.OperationName = "generate"
	return Config{
		Retry:           opts,
		DuplicateWindow: 6,
		HistoryMin:      4,
	}
}

// Request describes one response generation.
type Request struct {
	SessionLabel     string
	Model            string
	Messages         []domain.Message
	Temperature      float64
	FrequencyPenalty float64
	MaxTokens        int
	Restricted       bool
	Attachments      []domain.AttachmentDescriptor
}

// Result is the outcome of a generation, possibly degraded.
type Result struct {
	Response domain.Response
	Attempts int
	Elapsed  time.Duration

	// Degraded is true when the response is a fallback kept from an
	// unsatisfactory attempt because every attempt was rejected.
	Degraded       bool
	DegradedReason policy.Reason
}

// Generator drives the retry loop around a model provider.
type Generator struct {
	provider model.Provider
	cfg      Config
	journal  storage.AttemptJournal
	failed   storage.FailedGenerationRepository
	media    *media.Pipeline
}

// NewGenerator creates a generator for the given provider.
func NewGenerator(provider model.Provider, cfg Config) *Generator {
	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry = DefaultConfig().Retry
	}
	return &Generator{provider: provider, cfg: cfg}
}

// WithJournal attaches an attempt audit journal.
func (g *Generator) WithJournal(j storage.AttemptJournal) *Generator {
	g.journal = j
	return g
}

// WithFailedRepo attaches a journal for generations that exhaust retries.
func (g *Generator) WithFailedRepo(r storage.FailedGenerationRepository) *Generator {
	g.failed = r
	return g
}

// WithMedia attaches an attachment description pipeline.
func (g *Generator) WithMedia(p *media.Pipeline) *Generator {
	g.media = p
	return g
}

// Generate produces a response for the request. It returns a genuine model
// response when one passes the quality policy, the best-ranked fallback when
// every attempt is unsatisfactory, or an error only when every attempt
// failed outright with nothing to show.
func (g *Generator) Generate(ctx context.Context, req *Request) (*Result, error) {
	requestID := uuid.New().String()
	opts := g.cfg.Retry
	start := time.Now()

	messages := req.Messages
	if len(req.Attachments) > 0 && g.media != nil {
		messages = g.withDescribedAttachments(ctx, req)
	}

	var fallback *policy.Candidate
	var lastErr error
	attemptsMade := 0

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if attempt > 1 && opts.GlobalTimeout > 0 && time.Since(start) >= opts.GlobalTimeout {
			metrics.RetryDeadlineCutoffsTotal.WithLabelValues(opts.OperationName).Inc()
			slog.Warn("Generation deadline elapsed",
				"request_id", requestID,
				"session", req.SessionLabel,
				"attempts", attemptsMade,
				"elapsed", time.Since(start))
			break
		}
		attemptsMade = attempt

		esc := policy.RecommendEscalation(attempt)
		if attempt > 1 {
			slog.Info("Escalating generation parameters",
				"request_id", requestID,
				"session", req.SessionLabel,
				"attempt", attempt,
				"temperature_boost", esc.TemperatureBoost,
				"frequency_penalty_boost", esc.FrequencyPenaltyBoost,
				"history_trim", esc.HistoryTrim)
		}

		attemptStart := time.Now()
		resp, err := g.provider.Generate(ctx, &model.Request{
			Model:            req.Model,
			Messages:         trimHistory(messages, esc.HistoryTrim, g.cfg.HistoryMin),
			Temperature:      req.Temperature + esc.TemperatureBoost,
			FrequencyPenalty: req.FrequencyPenalty + esc.FrequencyPenaltyBoost,
			MaxTokens:        req.MaxTokens,
		})
		if err != nil {
			lastErr = err
			metrics.GenerationAttemptsTotal.WithLabelValues(string(domain.AttemptOutcomeError)).Inc()
			g.record(ctx, requestID, req, attempt, domain.AttemptOutcomeError, "retry", time.Since(attemptStart), err)
			if attempt < opts.MaxAttempts {
				time.Sleep(opts.Delay(attempt))
			}
			continue
		}

		ac := policy.AttemptContext{
			Response:     *resp,
			Attempt:      attempt,
			MaxAttempts:  opts.MaxAttempts,
			SessionLabel: req.SessionLabel,
			Restricted:   req.Restricted,
		}

		if decision := policy.DecideOnEmpty(ac); decision != policy.Continue {
			metrics.GenerationAttemptsTotal.WithLabelValues(string(domain.AttemptOutcomeEmpty)).Inc()
			g.record(ctx, requestID, req, attempt, domain.AttemptOutcomeEmpty, decision.String(), time.Since(attemptStart), nil)
			fb := policy.SelectBetter(fallback, policy.Candidate{
				Response: *resp,
				Reason:   policy.ReasonEmpty,
				Attempt:  attempt,
			})
			fallback = &fb
			if decision == policy.Return {
				break
			}
			time.Sleep(opts.Delay(attempt))
			continue
		}

		if idx, dup := duplicateIndex(resp.Content, req.Messages, g.cfg.DuplicateWindow); dup {
			ac.DuplicateMatchIndex = idx
			decision := policy.DecideOnDuplicate(ac)
			metrics.GenerationAttemptsTotal.WithLabelValues(string(domain.AttemptOutcomeDuplicate)).Inc()
			g.record(ctx, requestID, req, attempt, domain.AttemptOutcomeDuplicate, decision.String(), time.Since(attemptStart), nil)
			fb := policy.SelectBetter(fallback, policy.Candidate{
				Response: *resp,
				Reason:   policy.ReasonDuplicate,
				Attempt:  attempt,
			})
			fallback = &fb
			if decision == policy.Return {
				break
			}
			time.Sleep(opts.Delay(attempt))
			continue
		}

		metrics.GenerationAttemptsTotal.WithLabelValues(string(domain.AttemptOutcomeOK)).Inc()
		g.record(ctx, requestID, req, attempt, domain.AttemptOutcomeOK, "continue", time.Since(attemptStart), nil)
		return &Result{
			Response: *resp,
			Attempts: attempt,
			Elapsed:  time.Since(start),
		}, nil
	}

	if fallback != nil {
		metrics.GenerationFallbacksTotal.WithLabelValues(string(fallback.Reason)).Inc()
		g.journalFailure(ctx, requestID, req, string(fallback.Reason), attemptsMade, nil)
		slog.Warn("Serving fallback response",
			"request_id", requestID,
			"session", req.SessionLabel,
			"reason", fallback.Reason,
			"fallback_attempt", fallback.Attempt,
			"attempts", attemptsMade)
		return &Result{
			Response:       fallback.Response,
			Attempts:       attemptsMade,
			Elapsed:        time.Since(start),
			Degraded:       true,
			DegradedReason: fallback.Reason,
		}, nil
	}

	g.journalFailure(ctx, requestID, req, "error", attemptsMade, lastErr)
	return nil, &retry.ExhaustedError{
		Op:       opts.OperationName,
		Attempts: attemptsMade,
		Cause:    lastErr,
	}
}

// withDescribedAttachments prepends attachment descriptions to the
// conversation so the model can reason about media it cannot see.
func (g *Generator) withDescribedAttachments(ctx context.Context, req *Request) []domain.Message {
	described := g.media.DescribeAll(ctx, req.Attachments)

	var b []byte
	for _, d := range described {
		line := fmt.Sprintf("[%s] %s\n", d.Kind.Label(), d.Description)
		b = append(b, line...)
	}

	messages := make([]domain.Message, 0, len(req.Messages)+1)
	messages = append(messages, domain.Message{
		Role:    domain.RoleSystem,
		Content: "Attached media:\n" + string(b),
	})
	messages = append(messages, req.Messages...)
	return messages
}

func (g *Generator) record(
	ctx context.Context,
	requestID string,
	req *Request,
	attempt int,
	outcome domain.AttemptOutcome,
	decision string,
	elapsed time.Duration,
	err error,
) {
	if g.journal == nil {
		return
	}
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	rec := &domain.AttemptRecord{
		RequestID:    requestID,
		SessionLabel: req.SessionLabel,
		Attempt:      attempt,
		Outcome:      outcome,
		Decision:     decision,
		Provider:     g.provider.Name(),
		Error:        errMsg,
		Elapsed:      elapsed,
	}
	if jerr := g.journal.Record(ctx, rec); jerr != nil {
		slog.Warn("Failed to journal attempt", "request_id", requestID, "error", jerr)
	}
}

func (g *Generator) journalFailure(
	ctx context.Context,
	requestID string,
	req *Request,
	reason string,
	attempts int,
	cause error,
) {
	if g.failed == nil {
		return
	}
	errMsg := ""
	if cause != nil {
		errMsg = cause.Error()
	}
	now := time.Now().Unix()
	fg := &domain.FailedGeneration{
		ID:           uuid.New().String(),
		RequestID:    requestID,
		SessionLabel: req.SessionLabel,
		Reason:       reason,
		Error:        errMsg,
		Attempts:     attempts,
		Status:       domain.FailedGenerationStatusPending,
		LastAttempt:  now,
		CreatedAt:    now,
	}
	if err := g.failed.Add(ctx, fg); err != nil {
		slog.Warn("Failed to journal exhausted generation", "request_id", requestID, "error", err)
	}
}

// trimHistory drops the oldest non-system turns, never going below min
// messages.
func trimHistory(messages []domain.Message, trim, min int) []domain.Message {
	if trim <= 0 || len(messages) <= min {
		return messages
	}
	keep := len(messages) - trim
	if keep < min {
		keep = min
	}

	// System messages stay; the oldest conversational turns go.
	var system []domain.Message
	var turns []domain.Message
	for _, m := range messages {
		if m.Role == domain.RoleSystem {
			system = append(system, m)
		} else {
			turns = append(turns, m)
		}
	}
	drop := len(system) + len(turns) - keep
	if drop <= 0 {
		return messages
	}
	if drop > len(turns) {
		drop = len(turns)
	}
	out := make([]domain.Message, 0, keep)
	out = append(out, system...)
	out = append(out, turns[drop:]...)
	return out
}
