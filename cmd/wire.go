package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	credentialadapter "github.com/bnema/gemini-live-cli/internal/adapters/credential"
	promadapter "github.com/bnema/gemini-live-cli/internal/adapters/metrics/prometheus"
	statusadapter "github.com/bnema/gemini-live-cli/internal/adapters/render/status"
	tomlrepo "github.com/bnema/gemini-live-cli/internal/adapters/repo/toml"
	chainstore "github.com/bnema/gemini-live-cli/internal/adapters/secrets/chain"
	passstore "github.com/bnema/gemini-live-cli/internal/adapters/secrets/pass"
	sqlitestore "github.com/bnema/gemini-live-cli/internal/adapters/store/sqlite"
	"github.com/bnema/gemini-live-cli/internal/adapters/store/webui"
	geminisummarizer "github.com/bnema/gemini-live-cli/internal/adapters/summarizer/gemini"
	"github.com/bnema/gemini-live-cli/internal/adapters/summarizer/ollama"
	"github.com/bnema/gemini-live-cli/internal/adapters/transport/geminilive"
	"github.com/bnema/gemini-live-cli/internal/application"
	"github.com/bnema/gemini-live-cli/internal/config"
	"github.com/bnema/gemini-live-cli/internal/domain"
	"github.com/bnema/gemini-live-cli/internal/logging"
	"github.com/bnema/gemini-live-cli/internal/ports"
	"github.com/spf13/viper"
)

type app struct {
	cfg            config.Config
	logger         *slog.Logger
	secretStore    ports.SecretStore
	credentials    ports.CredentialSource
	history        ports.HistoryRepository
	dialer         ports.LiveDialer
	metrics        *promadapter.Metrics
	statusRenderer func([]domain.Session, statusadapter.RenderOptions) (string, error)
	detailRenderer func(domain.SessionContext, statusadapter.RenderOptions) (string, error)
	httpClient     *http.Client
	now            func() time.Time

	storeMu sync.Mutex
	store   ports.SessionStore
	closers []func() error
}

func wireApp(logOutput io.Writer) (*app, error) {
	cfg, err := config.Load(viper.New())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.Init(logOutput, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	secretStore, err := chainstore.NewPassFirstWithFileFallback(cfg.Credential.SecretsDir,
		passstore.WithPrefix(cfg.Credential.PassPrefix),
		passstore.WithStoreDir(cfg.Credential.PassDir),
	)
	if err != nil {
		return nil, fmt.Errorf("wire secret store chain: %w", err)
	}

	history, err := tomlrepo.NewRepository(cfg.History.Path)
	if err != nil {
		return nil, fmt.Errorf("wire history repository: %w", err)
	}

	httpClient := http.DefaultClient

	sources := []ports.CredentialSource{
		credentialadapter.NewEnvSource(cfg.Credential.Env, ""),
		credentialadapter.NewSecretSource(secretStore, cfg.Credential.SecretKey, ""),
	}
	if remote := remoteKeyURL(cfg); remote != "" {
		client := webui.NewClient(remote, cfg.Store.Token)
		client.HTTPClient = httpClient
		sources = append(sources, webui.NewAPIKeySource(client))
	}

	dialer := geminilive.NewDialer(cfg.Live.Endpoint)
	dialer.HandshakeTimeout = cfg.Live.DialTimeout

	return &app{
		cfg:            cfg,
		logger:         logger,
		secretStore:    secretStore,
		credentials:    credentialadapter.NewChain(sources...),
		history:        history,
		dialer:         dialer,
		metrics:        promadapter.New(),
		statusRenderer: statusadapter.Render,
		detailRenderer: statusadapter.RenderDetail,
		httpClient:     httpClient,
		now:            time.Now,
	}, nil
}

// remoteKeyURL is the open-webui instance that can hand out the API key:
// the explicit credential.remote_url, or the session store when it is one.
func remoteKeyURL(cfg config.Config) string {
	if url := strings.TrimSpace(cfg.Credential.RemoteURL); url != "" {
		return url
	}
	if cfg.Store.Backend == config.StoreBackendHTTP {
		return cfg.Store.URL
	}
	return ""
}

// sessionStore opens the configured backend on first use so commands that
// never touch sessions do not create a database.
func (a *app) sessionStore(ctx context.Context) (ports.SessionStore, error) {
	a.storeMu.Lock()
	defer a.storeMu.Unlock()

	if a.store != nil {
		return a.store, nil
	}

	switch a.cfg.Store.Backend {
	case config.StoreBackendHTTP:
		client := webui.NewClient(a.cfg.Store.URL, a.cfg.Store.Token)
		client.HTTPClient = a.httpClient
		client.RequestTimeout = a.cfg.Memory.RequestTimeout
		a.store = webui.NewSessionStore(client)
	case config.StoreBackendSQLite:
		store, err := sqlitestore.Open(ctx, a.cfg.Store.SQLitePath, sqlitestore.WithUserID(a.cfg.Store.UserID))
		if err != nil {
			return nil, fmt.Errorf("%w: open sqlite store: %w", domain.ErrPersistence, err)
		}
		a.store = store
		a.closers = append(a.closers, store.Close)
	default:
		return nil, fmt.Errorf("%w: unknown store backend %q", domain.ErrConfiguration, a.cfg.Store.Backend)
	}

	return a.store, nil
}

func (a *app) service(ctx context.Context) (*application.Service, error) {
	store, err := a.sessionStore(ctx)
	if err != nil {
		return nil, err
	}
	return application.NewService(store, a.history, a.secretStore, a.credentials, ports.SystemClock{}), nil
}

// localService serves commands that never need the session store.
func (a *app) localService() *application.Service {
	return application.NewService(nil, a.history, a.secretStore, a.credentials, ports.SystemClock{})
}

func (a *app) summarizer() ports.Summarizer {
	switch a.cfg.Summarizer.Backend {
	case config.SummarizerBackendOllama:
		baseURL := a.cfg.Summarizer.URL
		if baseURL == "" {
			baseURL = ollama.DefaultBaseURL
		}
		model := a.cfg.Summarizer.Model
		if model == "" {
			model = ollama.DefaultModel
		}
		s := ollama.New(baseURL, model)
		s.HTTPClient = a.httpClient
		s.RequestTimeout = a.cfg.Memory.RequestTimeout
		return s
	default:
		s := geminisummarizer.New(a.credentials, a.cfg.Summarizer.Model)
		s.BaseURL = a.cfg.Summarizer.URL
		s.HTTPClient = a.httpClient
		return s
	}
}

func (a *app) Close() error {
	a.storeMu.Lock()
	closers := a.closers
	a.closers = nil
	a.store = nil
	a.storeMu.Unlock()

	var errs []error
	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
