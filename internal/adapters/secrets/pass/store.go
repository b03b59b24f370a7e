package pass

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/bnema/gemini-live-cli/internal/domain"
	"github.com/bnema/gemini-live-cli/internal/ports"
)

var ErrUnavailable = errors.New("pass command unavailable")

// DefaultPrefix namespaces every entry in the password store.
const DefaultPrefix = "glive/"

const notFoundMarker = "is not in the password store"

// invocation is one run of the pass binary.
type invocation struct {
	args  []string
	input string
	env   []string
}

type runFunc func(ctx context.Context, inv invocation) (stdout string, stderr string, err error)

type Option func(*Store)

// WithPrefix replaces DefaultPrefix. An empty prefix stores keys at the root.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithStoreDir points pass at a password store other than ~/.password-store.
func WithStoreDir(dir string) Option {
	return func(s *Store) {
		s.storeDir = strings.TrimSpace(dir)
	}
}

// Store keeps secrets in the pass(1) password store, one entry per key.
type Store struct {
	prefix   string
	storeDir string
	run      runFunc
}

var _ ports.SecretStore = (*Store)(nil)

func NewStore(opts ...Option) *Store {
	s := &Store{prefix: DefaultPrefix, run: runPass}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, stderr, err := s.run(ctx, s.invocation(value+"\n", "insert", "-m", "-f", s.entry(key)))
	if err != nil {
		return describe("put", key, err, stderr)
	}
	return nil
}

// Get returns the first line of the entry; pass keeps metadata on the lines
// that follow.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	stdout, stderr, err := s.run(ctx, s.invocation("", "show", s.entry(key)))
	if err != nil {
		return "", describe("get", key, err, stderr)
	}

	first, _, _ := strings.Cut(stdout, "\n")
	return strings.TrimSuffix(first, "\r"), nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, stderr, err := s.run(ctx, s.invocation("", "rm", "-f", s.entry(key)))
	switch {
	case err == nil:
		return nil
	case strings.Contains(stderr, notFoundMarker):
		return nil
	default:
		return describe("delete", key, err, stderr)
	}
}

func (s *Store) entry(key string) string {
	return s.prefix + strings.TrimPrefix(key, s.prefix)
}

func (s *Store) invocation(input string, args ...string) invocation {
	inv := invocation{args: args, input: input}
	if s.storeDir != "" {
		inv.env = []string{"PASSWORD_STORE_DIR=" + s.storeDir}
	}
	return inv
}

func runPass(ctx context.Context, inv invocation) (string, string, error) {
	path, err := exec.LookPath("pass")
	if errors.Is(err, exec.ErrNotFound) {
		return "", "", ErrUnavailable
	}
	if err != nil {
		return "", "", fmt.Errorf("locate pass command: %w", err)
	}

	cmd := exec.CommandContext(ctx, path, inv.args...)
	if inv.input != "" {
		cmd.Stdin = strings.NewReader(inv.input)
	}
	if len(inv.env) > 0 {
		cmd.Env = append(os.Environ(), inv.env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	return stdout.String(), strings.TrimSpace(stderr.String()), err
}

func describe(op string, key string, err error, stderr string) error {
	switch {
	case strings.Contains(stderr, notFoundMarker):
		return fmt.Errorf("pass %s %q: %w", op, key, domain.ErrSecretNotFound)
	case stderr == "":
		return fmt.Errorf("pass %s %q: %w", op, key, err)
	default:
		return fmt.Errorf("pass %s %q: %w: %s", op, key, err, stderr)
	}
}
