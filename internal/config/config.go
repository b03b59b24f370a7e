package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/gemini-live-cli/internal/domain"
	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "toml"
	configDir  = ".glive"
	envPrefix  = "GLIVE"

	StoreBackendHTTP   = "http"
	StoreBackendSQLite = "sqlite"

	SummarizerBackendOllama = "ollama"
	SummarizerBackendGemini = "gemini"
)

const defaultSystemInstruction = "You are a helpful voice assistant. Keep answers short and conversational."

type Config struct {
	Dir        string
	File       string
	Live       LiveConfig
	Memory     MemoryConfig
	Store      StoreConfig
	Summarizer SummarizerConfig
	Credential CredentialConfig
	History    HistoryConfig
	Metrics    MetricsConfig
	Log        LogConfig
}

type LiveConfig struct {
	Endpoint          string
	Model             string
	Voice             string
	Modalities        []string
	SystemInstruction string
	SessionLimit      time.Duration
	ReconnectDelay    time.Duration
	DialTimeout       time.Duration
	// WarningLead and FlushLead are measured back from SessionLimit.
	WarningLead time.Duration
	FlushLead   time.Duration
}

type MemoryConfig struct {
	SummaryThreshold   int
	SummaryInterval    time.Duration
	ContextTranscripts int
	RequestTimeout     time.Duration
}

type StoreConfig struct {
	Backend    string
	URL        string
	Token      string
	SQLitePath string
	UserID     string
}

type SummarizerConfig struct {
	Backend string
	URL     string
	Model   string
}

type CredentialConfig struct {
	Env        string
	SecretKey  string
	SecretsDir string
	PassDir    string
	PassPrefix string
	RemoteURL  string
}

type HistoryConfig struct {
	Path string
}

type MetricsConfig struct {
	Addr string
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads ~/.glive/config.toml when it exists and applies GLIVE_*
// environment overrides. A missing file is not an error.
func Load(cfg *viper.Viper) (Config, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve home directory: %w", err)
	}
	dir := filepath.Join(homeDir, configDir)

	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(dir)
	cfg.SetEnvPrefix(envPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()
	setDefaults(cfg, dir)

	if err := cfg.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	loaded := Config{
		Dir:  dir,
		File: cfg.ConfigFileUsed(),
		Live: LiveConfig{
			Endpoint:          cfg.GetString("live.endpoint"),
			Model:             cfg.GetString("live.model"),
			Voice:             cfg.GetString("live.voice"),
			Modalities:        cfg.GetStringSlice("live.modalities"),
			SystemInstruction: cfg.GetString("live.system_instruction"),
			SessionLimit:      cfg.GetDuration("live.session_limit"),
			ReconnectDelay:    cfg.GetDuration("live.reconnect_delay"),
			DialTimeout:       cfg.GetDuration("live.dial_timeout"),
			WarningLead:       cfg.GetDuration("live.warning_lead"),
			FlushLead:         cfg.GetDuration("live.flush_lead"),
		},
		Memory: MemoryConfig{
			SummaryThreshold:   cfg.GetInt("memory.summary_threshold"),
			SummaryInterval:    cfg.GetDuration("memory.summary_interval"),
			ContextTranscripts: cfg.GetInt("memory.context_transcripts"),
			RequestTimeout:     cfg.GetDuration("memory.request_timeout"),
		},
		Store: StoreConfig{
			Backend:    strings.ToLower(cfg.GetString("store.backend")),
			URL:        cfg.GetString("store.url"),
			Token:      cfg.GetString("store.token"),
			SQLitePath: expandHome(cfg.GetString("store.sqlite_path"), homeDir),
			UserID:     cfg.GetString("store.user_id"),
		},
		Summarizer: SummarizerConfig{
			Backend: strings.ToLower(cfg.GetString("summarizer.backend")),
			URL:     cfg.GetString("summarizer.url"),
			Model:   cfg.GetString("summarizer.model"),
		},
		Credential: CredentialConfig{
			Env:        cfg.GetString("credential.env"),
			SecretKey:  cfg.GetString("credential.secret_key"),
			SecretsDir: expandHome(cfg.GetString("credential.secrets_dir"), homeDir),
			PassDir:    expandHome(cfg.GetString("credential.pass_dir"), homeDir),
			PassPrefix: cfg.GetString("credential.pass_prefix"),
			RemoteURL:  cfg.GetString("credential.remote_url"),
		},
		History: HistoryConfig{Path: expandHome(cfg.GetString("history.path"), homeDir)},
		Metrics: MetricsConfig{Addr: cfg.GetString("metrics.addr")},
		Log: LogConfig{
			Level:  cfg.GetString("log.level"),
			Format: cfg.GetString("log.format"),
		},
	}

	if voice, ok := domain.ValidVoice(loaded.Live.Voice); ok {
		loaded.Live.Voice = voice
	}

	return loaded, nil
}

func setDefaults(cfg *viper.Viper, dir string) {
	cfg.SetDefault("live.endpoint", "")
	cfg.SetDefault("live.model", domain.DefaultLiveModel)
	cfg.SetDefault("live.voice", domain.DefaultVoice)
	cfg.SetDefault("live.modalities", []string{string(domain.ModalityAudio)})
	cfg.SetDefault("live.system_instruction", defaultSystemInstruction)
	cfg.SetDefault("live.session_limit", domain.HardSessionLimit)
	cfg.SetDefault("live.reconnect_delay", 2*time.Second)
	cfg.SetDefault("live.dial_timeout", 15*time.Second)
	cfg.SetDefault("live.warning_lead", time.Minute)
	cfg.SetDefault("live.flush_lead", 10*time.Second)

	cfg.SetDefault("memory.summary_threshold", 10)
	cfg.SetDefault("memory.summary_interval", 3*time.Minute)
	cfg.SetDefault("memory.context_transcripts", 50)
	cfg.SetDefault("memory.request_timeout", 30*time.Second)

	cfg.SetDefault("store.backend", StoreBackendSQLite)
	cfg.SetDefault("store.url", "http://localhost:8080")
	cfg.SetDefault("store.token", "")
	cfg.SetDefault("store.sqlite_path", filepath.Join(dir, "sessions.db"))
	cfg.SetDefault("store.user_id", "local")

	cfg.SetDefault("summarizer.backend", SummarizerBackendGemini)
	cfg.SetDefault("summarizer.url", "")
	cfg.SetDefault("summarizer.model", "")

	cfg.SetDefault("credential.env", "GEMINI_API_KEY")
	cfg.SetDefault("credential.secret_key", "gemini_api_key")
	cfg.SetDefault("credential.secrets_dir", filepath.Join(dir, "secrets"))
	cfg.SetDefault("credential.pass_dir", "")
	cfg.SetDefault("credential.pass_prefix", "glive/")
	cfg.SetDefault("credential.remote_url", "")

	cfg.SetDefault("history.path", filepath.Join(dir, "history.toml"))
	cfg.SetDefault("metrics.addr", "")
	cfg.SetDefault("log.level", "info")
	cfg.SetDefault("log.format", "text")
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	switch c.Store.Backend {
	case StoreBackendHTTP:
		if strings.TrimSpace(c.Store.URL) == "" {
			errs = append(errs, errors.New("store.url is required for the http backend"))
		}
	case StoreBackendSQLite:
		if strings.TrimSpace(c.Store.SQLitePath) == "" {
			errs = append(errs, errors.New("store.sqlite_path is required for the sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.backend %q (want %s or %s)", c.Store.Backend, StoreBackendHTTP, StoreBackendSQLite))
	}

	switch c.Summarizer.Backend {
	case SummarizerBackendOllama, SummarizerBackendGemini:
	default:
		errs = append(errs, fmt.Errorf("unknown summarizer.backend %q (want %s or %s)", c.Summarizer.Backend, SummarizerBackendOllama, SummarizerBackendGemini))
	}

	if strings.TrimSpace(c.Live.Model) == "" {
		errs = append(errs, errors.New("live.model is empty"))
	}
	if _, ok := domain.ValidVoice(c.Live.Voice); !ok {
		errs = append(errs, fmt.Errorf("unknown live.voice %q (want one of %s)", c.Live.Voice, strings.Join(domain.LiveVoices, ", ")))
	}
	for _, modality := range c.Live.Modalities {
		switch domain.Modality(strings.ToUpper(modality)) {
		case domain.ModalityAudio, domain.ModalityText:
		default:
			errs = append(errs, fmt.Errorf("unknown live.modalities entry %q", modality))
		}
	}

	for key, value := range map[string]time.Duration{
		"live.session_limit":      c.Live.SessionLimit,
		"live.reconnect_delay":    c.Live.ReconnectDelay,
		"live.dial_timeout":       c.Live.DialTimeout,
		"live.warning_lead":       c.Live.WarningLead,
		"live.flush_lead":         c.Live.FlushLead,
		"memory.summary_interval": c.Memory.SummaryInterval,
		"memory.request_timeout":  c.Memory.RequestTimeout,
	} {
		if value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", key, value))
		}
	}
	if c.Live.FlushLead > c.Live.WarningLead || c.Live.WarningLead >= c.Live.SessionLimit {
		errs = append(errs, fmt.Errorf("live leads must satisfy flush_lead <= warning_lead < session_limit, got %s, %s, %s", c.Live.FlushLead, c.Live.WarningLead, c.Live.SessionLimit))
	}
	if c.Memory.SummaryThreshold <= 0 {
		errs = append(errs, fmt.Errorf("memory.summary_threshold must be positive, got %d", c.Memory.SummaryThreshold))
	}
	if c.Memory.ContextTranscripts <= 0 {
		errs = append(errs, fmt.Errorf("memory.context_transcripts must be positive, got %d", c.Memory.ContextTranscripts))
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log.format %q", c.Log.Format))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", domain.ErrConfiguration, errors.Join(errs...))
}

// LiveModalities converts the configured names, defaulting to audio.
func (c LiveConfig) LiveModalities() []domain.Modality {
	modalities := make([]domain.Modality, 0, len(c.Modalities))
	for _, modality := range c.Modalities {
		modalities = append(modalities, domain.Modality(strings.ToUpper(strings.TrimSpace(modality))))
	}
	if len(modalities) == 0 {
		modalities = append(modalities, domain.ModalityAudio)
	}
	return modalities
}

func expandHome(path string, homeDir string) string {
	if path == "~" {
		return homeDir
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}
	return path
}
