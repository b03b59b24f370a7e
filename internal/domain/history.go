package domain

import "time"

// HistoryEntry records a session started or resumed from this machine.
type HistoryEntry struct {
	SessionID SessionID
	Model     string
	Voice     string
	Backend   string
	StartedAt time.Time
	LastSeen  time.Time
}
