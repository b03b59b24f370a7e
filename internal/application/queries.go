package application

import "github.com/bnema/gemini-live-cli/internal/domain"

type ListSessionsQuery struct {
	Limit int
	// Local lists the history of this machine instead of the store.
	Local bool
}

type SessionContextQuery struct {
	ID              domain.SessionID
	TranscriptLimit int
}

// APIKeyStatus reports which credential source would serve a connect.
type APIKeyStatus struct {
	Found  bool
	Source string
	Err    error
}
