package ports

import (
	"context"

	"github.com/bnema/gemini-live-cli/internal/domain"
)

type CredentialSource interface {
	Credential(ctx context.Context) (domain.Credential, error)
}

type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}
