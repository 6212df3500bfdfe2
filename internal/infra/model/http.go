package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/vietddude/genflow/internal/core/domain"
	"github.com/vietddude/genflow/internal/metrics"
)

// HTTPProvider implements Provider for JSON-over-HTTP model endpoints.
type HTTPProvider struct {
	name       string
	endpoint   string
	apiKey     string
	httpClient *http.Client

	mu           sync.RWMutex
	successCount int
	failureCount int
	totalLatency time.Duration
}

// NewHTTPProvider creates a new HTTP-based model provider.
func NewHTTPProvider(name, endpoint, apiKey string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		name:     name,
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Name returns the provider label used in logs and metrics.
func (p *HTTPProvider) Name() string {
	return p.name
}

type generateResponse struct {
	Content   string `json:"content"`
	Reasoning string `json:"reasoning,omitempty"`
	Model     string `json:"model,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Generate makes a single generation call.
func (p *HTTPProvider) Generate(ctx context.Context, req *Request) (*domain.Response, error) {
	start := time.Now()

	jsonData, err := json.Marshal(req)
	if err != nil {
		p.recordFailure()
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		p.recordFailure()
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		p.recordFailure()
		return nil, fmt.Errorf("generation call: %w", err)
	}
	defer resp.Body.Close()

	latency := time.Since(start)

	if resp.StatusCode == http.StatusTooManyRequests {
		p.recordFailure()
		return nil, fmt.Errorf("rate limited (429), retry after: %s", resp.Header.Get("Retry-After"))
	}
	if resp.StatusCode == http.StatusForbidden {
		p.recordFailure()
		return nil, fmt.Errorf("forbidden (403) from provider %s", p.name)
	}
	if resp.StatusCode != http.StatusOK {
		p.recordFailure()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var gen generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		p.recordFailure()
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if gen.Error != "" {
		p.recordFailure()
		return nil, fmt.Errorf("provider error: %s", gen.Error)
	}

	p.recordSuccess(latency)
	metrics.ProviderLatency.WithLabelValues(p.name).Observe(latency.Seconds())

	return &domain.Response{
		Content:   gen.Content,
		Reasoning: gen.Reasoning,
		Model:     gen.Model,
		Provider:  p.name,
	}, nil
}

func (p *HTTPProvider) recordSuccess(latency time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.successCount++
	p.totalLatency += latency
	metrics.ProviderCallsTotal.WithLabelValues(p.name, "ok").Inc()
}

func (p *HTTPProvider) recordFailure() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failureCount++
	metrics.ProviderCallsTotal.WithLabelValues(p.name, "error").Inc()
}

// Stats returns success/failure counts since startup.
func (p *HTTPProvider) Stats() (successes, failures int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.successCount, p.failureCount
}
