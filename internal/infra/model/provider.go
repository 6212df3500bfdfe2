// Package model contains clients for upstream generation and media
// description endpoints.
package model

import (
	"context"

	"github.com/vietddude/genflow/internal/core/domain"
)

// Request is a single generation call to an upstream model endpoint.
type Request struct {
	Model            string           `json:"model"`
	Messages         []domain.Message `json:"messages"`
	Temperature      float64          `json:"temperature"`
	FrequencyPenalty float64          `json:"frequency_penalty"`
	MaxTokens        int              `json:"max_tokens,omitempty"`
}

// Provider is an upstream model endpoint capable of generating a response.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req *Request) (*domain.Response, error)
}
