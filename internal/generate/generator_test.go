package generate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/genflow/internal/core/domain"
	"github.com/vietddude/genflow/internal/infra/model"
	"github.com/vietddude/genflow/internal/infra/storage/memory"
	"github.com/vietddude/genflow/internal/policy"
	"github.com/vietddude/genflow/internal/retry"
)

// fakeProvider replays scripted responses in order. A nil response with a
// non-nil error simulates a provider failure.
type fakeProvider struct {
	mu        sync.Mutex
	responses []*domain.Response
	errs      []error
	calls     int
	requests  []*model.Request
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Generate(_ context.Context, req *model.Request) (*domain.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.calls
	p.calls++
	cp := *req
	p.requests = append(p.requests, &cp)
	if i >= len(p.responses) {
		i = len(p.responses) - 1
	}
	if p.errs[i] != nil {
		return nil, p.errs[i]
	}
	return p.responses[i], nil
}

func (p *fakeProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func scripted(pairs ...any) *fakeProvider {
	p := &fakeProvider{}
	for _, v := range pairs {
		switch x := v.(type) {
		case string:
			p.responses = append(p.responses, &domain.Response{Content: x, Model: "test", Provider: "fake"})
			p.errs = append(p.errs, nil)
		case error:
			p.responses = append(p.responses, nil)
			p.errs = append(p.errs, x)
		}
	}
	return p
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Retry.InitialDelay = time.Millisecond
	cfg.Retry.MaxDelay = time.Millisecond
	cfg.Retry.BackoffMultiplier = 1.0
	return cfg
}

func TestGenerate_FirstAttemptSucceeds(t *testing.T) {
	p := scripted("hello there")
	g := NewGenerator(p, testConfig())

	res, err := g.Generate(context.Background(), &Request{SessionLabel: "s1"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if res.Response.Content != "hello there" {
		t.Errorf("content = %q", res.Response.Content)
	}
	if res.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", res.Attempts)
	}
	if res.Degraded {
		t.Error("unexpected degraded result")
	}
	if p.callCount() != 1 {
		t.Errorf("provider called %d times, want 1", p.callCount())
	}
}

func TestGenerate_EmptyThenSuccess(t *testing.T) {
	p := scripted("", "second try")
	g := NewGenerator(p, testConfig())

	res, err := g.Generate(context.Background(), &Request{SessionLabel: "s1"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if res.Response.Content != "second try" {
		t.Errorf("content = %q", res.Response.Content)
	}
	if res.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", res.Attempts)
	}
	if res.Degraded {
		t.Error("unexpected degraded result")
	}
}

func TestGenerate_AllEmptyServesFallback(t *testing.T) {
	p := scripted("", "", "")
	failed := memory.NewFailedGenerationRepo()
	g := NewGenerator(p, testConfig()).WithFailedRepo(failed)

	res, err := g.Generate(context.Background(), &Request{SessionLabel: "s1"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !res.Degraded {
		t.Fatal("expected degraded result")
	}
	if res.DegradedReason != policy.ReasonEmpty {
		t.Errorf("reason = %s, want %s", res.DegradedReason, policy.ReasonEmpty)
	}
	if res.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", res.Attempts)
	}
	if p.callCount() != 3 {
		t.Errorf("provider called %d times, want 3", p.callCount())
	}

	n, err := failed.Count(context.Background())
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 1 {
		t.Errorf("failure queue depth = %d, want 1", n)
	}
}

func TestGenerate_DuplicateThenSuccess(t *testing.T) {
	history := []domain.Message{
		{Role: domain.RoleUser, Content: "tell me a joke"},
		{Role: domain.RoleAssistant, Content: "Why did the gopher cross the road?"},
		{Role: domain.RoleUser, Content: "another one"},
	}
	p := scripted("Why did the gopher cross the road?", "A fresh joke")
	g := NewGenerator(p, testConfig())

	res, err := g.Generate(context.Background(), &Request{SessionLabel: "s1", Messages: history})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if res.Response.Content != "A fresh joke" {
		t.Errorf("content = %q", res.Response.Content)
	}
	if res.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", res.Attempts)
	}
}

func TestGenerate_DuplicateFallbackBeatsEmpty(t *testing.T) {
	history := []domain.Message{
		{Role: domain.RoleAssistant, Content: "repeated answer"},
		{Role: domain.RoleUser, Content: "again please"},
	}
	// Attempt 1 empty, attempt 2 duplicate, attempt 3 empty. The duplicate
	// has content, so it wins the fallback ranking despite the later empty.
	p := scripted("", "repeated answer", "")
	g := NewGenerator(p, testConfig())

	res, err := g.Generate(context.Background(), &Request{SessionLabel: "s1", Messages: history})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !res.Degraded {
		t.Fatal("expected degraded result")
	}
	if res.DegradedReason != policy.ReasonDuplicate {
		t.Errorf("reason = %s, want %s", res.DegradedReason, policy.ReasonDuplicate)
	}
	if res.Response.Content != "repeated answer" {
		t.Errorf("content = %q", res.Response.Content)
	}
}

func TestGenerate_AllErrorsExhausts(t *testing.T) {
	cause := errors.New("provider down")
	p := scripted(cause, cause, cause)
	g := NewGenerator(p, testConfig())

	_, err := g.Generate(context.Background(), &Request{SessionLabel: "s1"})
	var exhausted *retry.ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
	if exhausted.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", exhausted.Attempts)
	}
	if !errors.Is(err, cause) {
		t.Error("error chain should include provider error")
	}
}

func TestGenerate_EscalationAppliedOnRetries(t *testing.T) {
	p := scripted("", "better")
	g := NewGenerator(p, testConfig())

	_, err := g.Generate(context.Background(), &Request{
		SessionLabel: "s1",
		Temperature:  0.7,
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(p.requests) != 2 {
		t.Fatalf("got %d requests, want 2", len(p.requests))
	}
	if p.requests[0].Temperature != 0.7 {
		t.Errorf("attempt 1 temperature = %v, want 0.7", p.requests[0].Temperature)
	}
	if p.requests[1].Temperature <= p.requests[0].Temperature {
		t.Errorf("attempt 2 temperature = %v, should exceed attempt 1", p.requests[1].Temperature)
	}
	if p.requests[1].FrequencyPenalty <= p.requests[0].FrequencyPenalty {
		t.Error("attempt 2 frequency penalty should exceed attempt 1")
	}
}

func TestGenerate_JournalRecordsAttempts(t *testing.T) {
	p := scripted("", "fine")
	journal := memory.NewAttemptJournal()
	g := NewGenerator(p, testConfig()).WithJournal(journal)

	_, err := g.Generate(context.Background(), &Request{SessionLabel: "s1"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	recs, err := journal.RecentBySession(context.Background(), "s1", 10)
	if err != nil {
		t.Fatalf("RecentBySession failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	// Records come back most recent first.
	if recs[0].Outcome != domain.AttemptOutcomeOK {
		t.Errorf("latest outcome = %s, want %s", recs[0].Outcome, domain.AttemptOutcomeOK)
	}
	if recs[1].Outcome != domain.AttemptOutcomeEmpty {
		t.Errorf("first outcome = %s, want %s", recs[1].Outcome, domain.AttemptOutcomeEmpty)
	}
}

func TestDuplicateIndex(t *testing.T) {
	history := []domain.Message{
		{Role: domain.RoleSystem, Content: "be helpful"},
		{Role: domain.RoleAssistant, Content: "The answer is 42."},
		{Role: domain.RoleUser, Content: "and again?"},
	}

	tests := []struct {
		name     string
		content  string
		wantIdx  int
		wantDup  bool
	}{
		{"exact repeat", "The answer is 42.", 1, true},
		{"formatting differences ignored", "  the ANSWER is\n42. ", 1, true},
		{"fresh content", "Something new entirely.", 0, false},
		{"empty never matches", "   ", 0, false},
		{"user turns not compared", "and again?", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, dup := duplicateIndex(tt.content, history, 6)
			if dup != tt.wantDup {
				t.Fatalf("dup = %v, want %v", dup, tt.wantDup)
			}
			if dup && idx != tt.wantIdx {
				t.Errorf("index = %d, want %d", idx, tt.wantIdx)
			}
		})
	}
}

func TestDuplicateIndex_WindowLimitsScan(t *testing.T) {
	history := []domain.Message{
		{Role: domain.RoleAssistant, Content: "old answer"},
		{Role: domain.RoleAssistant, Content: "newer one"},
		{Role: domain.RoleAssistant, Content: "newest"},
	}
	if _, dup := duplicateIndex("old answer", history, 2); dup {
		t.Error("match outside the window should be ignored")
	}
	if _, dup := duplicateIndex("old answer", history, 3); !dup {
		t.Error("match inside the window should be found")
	}
}

func TestTrimHistory(t *testing.T) {
	messages := []domain.Message{
		{Role: domain.RoleSystem, Content: "sys"},
		{Role: domain.RoleUser, Content: "u1"},
		{Role: domain.RoleAssistant, Content: "a1"},
		{Role: domain.RoleUser, Content: "u2"},
		{Role: domain.RoleAssistant, Content: "a2"},
		{Role: domain.RoleUser, Content: "u3"},
	}

	out := trimHistory(messages, 2, 3)
	if len(out) != 4 {
		t.Fatalf("got %d messages, want 4", len(out))
	}
	if out[0].Role != domain.RoleSystem {
		t.Error("system message must survive trimming")
	}
	if out[1].Content != "u2" {
		t.Errorf("oldest surviving turn = %q, want u2", out[1].Content)
	}

	// min is a floor.
	out = trimHistory(messages, 10, 4)
	if len(out) != 4 {
		t.Errorf("got %d messages, want min of 4", len(out))
	}

	// No trim requested.
	out = trimHistory(messages, 0, 4)
	if len(out) != len(messages) {
		t.Errorf("got %d messages, want %d untouched", len(out), len(messages))
	}
}
