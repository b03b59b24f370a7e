package application

import "github.com/bnema/gemini-live-cli/internal/domain"

type SetAPIKeyCommand struct {
	SecretKey string
	Value     string
}

type RemoveAPIKeyCommand struct {
	SecretKey string
}

// ResumeCommand picks which stored session a connect should continue.
// Last takes the most recent entry of the local history.
type ResumeCommand struct {
	SessionID domain.SessionID
	Last      bool
}

type RecordHistoryCommand struct {
	Session domain.Session
	Backend string
}
