package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bnema/gemini-live-cli/internal/ports"
	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.0-flash"

// Summarizer calls generateContent with the same key the live connection
// uses.
type Summarizer struct {
	Credentials ports.CredentialSource
	Model       string
	BaseURL     string
	HTTPClient  *http.Client
	Temperature float32
}

func New(credentials ports.CredentialSource, model string) *Summarizer {
	return &Summarizer{Credentials: credentials, Model: model, Temperature: 0.2}
}

var _ ports.Summarizer = (*Summarizer)(nil)

func (s *Summarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("prompt is required")
	}
	if s.Credentials == nil {
		return "", errors.New("gemini summarizer has no credential source")
	}

	credential, err := s.Credentials.Credential(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve gemini credential: %w", err)
	}

	config := &genai.ClientConfig{
		APIKey:     credential.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: s.HTTPClient,
	}
	if base := strings.TrimSpace(s.BaseURL); base != "" {
		config.HTTPOptions = genai.HTTPOptions{BaseURL: base}
	}
	client, err := genai.NewClient(ctx, config)
	if err != nil {
		return "", fmt.Errorf("create gemini client: %w", err)
	}

	model := strings.TrimSpace(s.Model)
	if model == "" {
		model = DefaultModel
	}
	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr(s.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("generate summary: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}
