package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vietddude/genflow/internal/core/domain"
)

// MediaClient calls vision-description and audio-transcription endpoints.
// It implements media.Describer.
type MediaClient struct {
	imageEndpoint string
	audioEndpoint string
	apiKey        string
	httpClient    *http.Client
}

// NewMediaClient creates a client for media understanding endpoints.
func NewMediaClient(imageEndpoint, audioEndpoint, apiKey string, timeout time.Duration) *MediaClient {
	return &MediaClient{
		imageEndpoint: imageEndpoint,
		audioEndpoint: audioEndpoint,
		apiKey:        apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type describeRequest struct {
	Locator     string `json:"locator"`
	DisplayName string `json:"display_name,omitempty"`
}

type describeResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// Describe produces a description for an image or a transcription for audio.
func (c *MediaClient) Describe(ctx context.Context, att domain.AttachmentDescriptor) (string, error) {
	var endpoint string
	switch att.Kind {
	case domain.MediaImage:
		endpoint = c.imageEndpoint
	case domain.MediaAudio:
		endpoint = c.audioEndpoint
	default:
		return "", fmt.Errorf("unsupported media kind: %s", att.Kind)
	}
	if endpoint == "" {
		return "", fmt.Errorf("no endpoint configured for media kind %s", att.Kind)
	}

	jsonData, err := json.Marshal(describeRequest{
		Locator:     att.Locator,
		DisplayName: att.DisplayName,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("describe call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var out describeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("describe error: %s", out.Error)
	}
	if strings.TrimSpace(out.Text) == "" {
		return "", fmt.Errorf("empty description for %s", att.Locator)
	}

	return out.Text, nil
}
