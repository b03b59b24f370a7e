package credential

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/bnema/gemini-live-cli/internal/domain"
	"github.com/bnema/gemini-live-cli/internal/ports"
)

const (
	DefaultEnvVar    = "GEMINI_API_KEY"
	DefaultSecretKey = "gemini_api_key"
)

// EnvSource reads the API key from an environment variable.
type EnvSource struct {
	Var   string
	Voice string

	lookup func(string) (string, bool)
}

var _ ports.CredentialSource = (*EnvSource)(nil)

func NewEnvSource(name string, voice string) *EnvSource {
	if strings.TrimSpace(name) == "" {
		name = DefaultEnvVar
	}
	return &EnvSource{Var: name, Voice: voice, lookup: os.LookupEnv}
}

func (s *EnvSource) Credential(ctx context.Context) (domain.Credential, error) {
	if err := ctx.Err(); err != nil {
		return domain.Credential{}, err
	}

	lookup := s.lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	value, ok := lookup(s.Var)
	if !ok || strings.TrimSpace(value) == "" {
		return domain.Credential{}, fmt.Errorf("%w: $%s is not set", domain.ErrCredentialNotFound, s.Var)
	}

	return domain.Credential{APIKey: strings.TrimSpace(value), Voice: s.Voice, Source: "env:" + s.Var}, nil
}

// SecretSource reads the API key from a secret store entry.
type SecretSource struct {
	Store ports.SecretStore
	Key   string
	Voice string
}

var _ ports.CredentialSource = (*SecretSource)(nil)

func NewSecretSource(store ports.SecretStore, key string, voice string) *SecretSource {
	if strings.TrimSpace(key) == "" {
		key = DefaultSecretKey
	}
	return &SecretSource{Store: store, Key: key, Voice: voice}
}

func (s *SecretSource) Credential(ctx context.Context) (domain.Credential, error) {
	value, err := s.Store.Get(ctx, s.Key)
	if err != nil {
		if errors.Is(err, domain.ErrSecretNotFound) {
			return domain.Credential{}, fmt.Errorf("%w: %w", domain.ErrCredentialNotFound, err)
		}
		return domain.Credential{}, fmt.Errorf("read secret %q: %w", s.Key, err)
	}

	credential := domain.Credential{APIKey: strings.TrimSpace(value), Voice: s.Voice, Source: "secret:" + s.Key}
	if !credential.Valid() {
		return domain.Credential{}, fmt.Errorf("%w: secret %q is empty", domain.ErrCredentialNotFound, s.Key)
	}
	return credential, nil
}

// Chain asks each source in order and returns the first credential found.
// A source that fails for any reason other than a missing credential is
// remembered but does not stop the lookup.
type Chain struct {
	sources []ports.CredentialSource
}

var _ ports.CredentialSource = (*Chain)(nil)

func NewChain(sources ...ports.CredentialSource) *Chain {
	kept := make([]ports.CredentialSource, 0, len(sources))
	for _, source := range sources {
		if source != nil {
			kept = append(kept, source)
		}
	}
	return &Chain{sources: kept}
}

func (c *Chain) Credential(ctx context.Context) (domain.Credential, error) {
	var failures []error
	for _, source := range c.sources {
		credential, err := source.Credential(ctx)
		if err == nil {
			return credential, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return domain.Credential{}, err
		}
		if errors.Is(err, domain.ErrCredentialNotFound) {
			continue
		}
		failures = append(failures, err)
	}

	if len(failures) > 0 {
		return domain.Credential{}, fmt.Errorf("%w: %w", domain.ErrCredentialNotFound, errors.Join(failures...))
	}
	return domain.Credential{}, fmt.Errorf("%w: no source configured a gemini api key", domain.ErrCredentialNotFound)
}
