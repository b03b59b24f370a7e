package webui

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/bnema/gemini-live-cli/internal/domain"
	"github.com/bnema/gemini-live-cli/internal/ports"
)

const apiKeyPath = "/api/v1/gemini/api-key"

// APIKeySource asks the backend for the Gemini key it is configured with.
type APIKeySource struct {
	Client *Client
}

func NewAPIKeySource(client *Client) *APIKeySource {
	return &APIKeySource{Client: client}
}

var _ ports.CredentialSource = (*APIKeySource)(nil)

type apiKeyResponse struct {
	APIKey string `json:"api_key"`
	Voice  string `json:"voice"`
}

func (s *APIKeySource) Credential(ctx context.Context) (domain.Credential, error) {
	var payload apiKeyResponse
	if err := s.Client.do(ctx, http.MethodGet, apiKeyPath, nil, nil, &payload); err != nil {
		switch statusCode(err) {
		case http.StatusBadRequest, http.StatusForbidden, http.StatusNotFound:
			return domain.Credential{}, fmt.Errorf("%w: remote api key: %w", domain.ErrCredentialNotFound, err)
		}
		return domain.Credential{}, fmt.Errorf("fetch remote api key: %w", err)
	}

	credential := domain.Credential{
		APIKey: strings.TrimSpace(payload.APIKey),
		Voice:  strings.TrimSpace(payload.Voice),
		Source: "remote",
	}
	if !credential.Valid() {
		return domain.Credential{}, fmt.Errorf("%w: remote returned an empty api key", domain.ErrCredentialNotFound)
	}
	return credential, nil
}
