package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version  int             `toml:"version"`
	Sessions []historySchema `toml:"sessions"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported history schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type historySchema struct {
	SessionID string `toml:"session_id"`
	Model     string `toml:"model,omitempty"`
	Voice     string `toml:"voice,omitempty"`
	Backend   string `toml:"backend,omitempty"`
	StartedAt string `toml:"started_at"`
	LastSeen  string `toml:"last_seen"`
}
