package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bnema/gemini-live-cli/internal/ports"
)

const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.2"

	generatePath          = "/api/generate"
	maxResponseBytes      = 1 << 20
	defaultRequestTimeout = 60 * time.Second
)

// Summarizer runs prompts through a local Ollama server.
type Summarizer struct {
	BaseURL        string
	Model          string
	Temperature    float64
	HTTPClient     *http.Client
	RequestTimeout time.Duration
}

func New(baseURL string, model string) *Summarizer {
	return &Summarizer{BaseURL: baseURL, Model: model, Temperature: 0.2}
}

var _ ports.Summarizer = (*Summarizer)(nil)

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Summarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("prompt is required")
	}

	endpoint, err := s.endpoint()
	if err != nil {
		return "", err
	}

	model := strings.TrimSpace(s.Model)
	if model == "" {
		model = DefaultModel
	}
	body, err := json.Marshal(generateRequest{
		Model:   model,
		Prompt:  prompt,
		Stream:  false,
		Options: map[string]any{"temperature": s.Temperature},
	})
	if err != nil {
		return "", fmt.Errorf("encode generate request: %w", err)
	}

	requestCtx, cancel := s.requestContext(ctx)
	defer cancel()
	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("request ollama generate: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var payload errorResponse
		if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err == nil && payload.Error != "" {
			return "", fmt.Errorf("ollama generate: status %d: %s", resp.StatusCode, payload.Error)
		}
		return "", fmt.Errorf("ollama generate: status %d", resp.StatusCode)
	}

	var payload generateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	return strings.TrimSpace(payload.Response), nil
}

func (s *Summarizer) endpoint() (string, error) {
	base := strings.TrimSpace(s.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse ollama url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("ollama url must use http or https")
	}
	if parsed.Host == "" {
		return "", errors.New("ollama url host is required")
	}
	return strings.TrimRight(parsed.String(), "/") + generatePath, nil
}

func (s *Summarizer) httpClient() *http.Client {
	if s.HTTPClient != nil {
		return s.HTTPClient
	}
	return http.DefaultClient
}

func (s *Summarizer) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}

	requestTimeout := s.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}

	return context.WithTimeout(ctx, requestTimeout)
}
