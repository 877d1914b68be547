// Package ollama implements the text-generation contract over the native
// Ollama generate API.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/nlquery/internal/domain"
	"github.com/kailas-cloud/nlquery/internal/metrics"
)

const providerName = "ollama"

// Client is a text-generation provider using a local or remote Ollama server.
type Client struct {
	baseURL string
	model   string
	http    *http.Client
	logger  *zap.Logger
}

// Config holds the Ollama connection settings.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewClient creates an Ollama text-generation client. The HTTP client
// timeout bounds every model call; there are no retries.
func NewClient(cfg *Config) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  cfg.Logger,
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	System string `json:"system"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

// Generate sends a system+prompt pair to /api/generate and returns the raw
// model text. Failures are wrapped with domain.ErrUpstream for 502 mapping.
func (c *Client) Generate(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		System: system,
		Prompt: user,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()

	resp, err := c.http.Do(req)

	duration := time.Since(start)

	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(providerName, c.model, "error").Inc()
		return "", fmt.Errorf("generate request failed: %w: %s", domain.ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(providerName, c.model, "error").Inc()
		return "", fmt.Errorf("read generate response: %w", domain.ErrUpstream)
	}

	if resp.StatusCode != http.StatusOK {
		metrics.LLMRequestsTotal.WithLabelValues(providerName, c.model, "error").Inc()
		return "", fmt.Errorf("generate API error %d: %s: %w",
			resp.StatusCode, errorDetail(payload), domain.ErrUpstream)
	}

	var parsed generateResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(providerName, c.model, "error").Inc()
		return "", fmt.Errorf("decode generate response: %w", domain.ErrUpstream)
	}
	if parsed.Error != "" {
		metrics.LLMRequestsTotal.WithLabelValues(providerName, c.model, "error").Inc()
		return "", fmt.Errorf("generate API error: %s: %w", parsed.Error, domain.ErrUpstream)
	}

	metrics.LLMRequestsTotal.WithLabelValues(providerName, c.model, "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues(providerName, c.model).Observe(duration.Seconds())

	return parsed.Response, nil
}

// HealthCheck verifies server availability via the tags endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("build tags request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("tags request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tags endpoint returned %d", resp.StatusCode)
	}
	return nil
}

// errorDetail extracts the "error" field from a JSON error body, falling
// back to the raw payload.
func errorDetail(payload []byte) string {
	var parsed struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(payload, &parsed) == nil && parsed.Error != "" {
		return parsed.Error
	}
	return string(payload)
}
