package domain

import (
	"strings"
	"time"
)

const (
	// HardSessionLimit is the provider-enforced lifetime of one live connection.
	HardSessionLimit = 10 * time.Minute

	// CloseCodeUserInitiated is the websocket close code sent when the user
	// disconnects on purpose. Provider-side closes use other codes.
	CloseCodeUserInitiated = 1000

	timeoutThresholdRatio = 0.9
)

type ConnectionState string

const (
	ConnectionIdle         ConnectionState = "idle"
	ConnectionConnecting   ConnectionState = "connecting"
	ConnectionLive         ConnectionState = "live"
	ConnectionReconnecting ConnectionState = "reconnecting"
	ConnectionClosed       ConnectionState = "closed"
)

// CanConnect reports whether Connect may be issued from s.
func (s ConnectionState) CanConnect() bool {
	switch s {
	case ConnectionIdle, ConnectionClosed, ConnectionReconnecting:
		return true
	default:
		return false
	}
}

type CloseKind string

const (
	CloseTimeout    CloseKind = "timeout"
	CloseDisconnect CloseKind = "disconnect"
	CloseUser       CloseKind = "user"
)

// ClassifyClose treats a close as a provider timeout when the connection
// lived past 90% of the hard limit.
func ClassifyClose(sessionDuration, limit time.Duration) CloseKind {
	if limit <= 0 {
		return CloseDisconnect
	}
	threshold := time.Duration(float64(limit) * timeoutThresholdRatio)
	if sessionDuration > threshold {
		return CloseTimeout
	}
	return CloseDisconnect
}

// CloseInfo describes how a transport connection ended.
type CloseInfo struct {
	Code   int
	Reason string
	Err    error
}

type Modality string

const (
	ModalityAudio Modality = "AUDIO"
	ModalityText  Modality = "TEXT"
)

// LiveSetup is the handshake payload for a live connection.
type LiveSetup struct {
	Model             string
	Voice             string
	Modalities        []Modality
	SystemInstruction string
	Transcription     bool
}

// WithRestoration returns a copy whose system instruction is prefixed with
// prompt. An empty prompt leaves the setup unchanged.
func (s LiveSetup) WithRestoration(prompt string) LiveSetup {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return s
	}
	if strings.TrimSpace(s.SystemInstruction) == "" {
		s.SystemInstruction = prompt
		return s
	}
	s.SystemInstruction = prompt + "\n\n" + s.SystemInstruction
	return s
}

// ServerMessage is one decoded inbound message from the live transport.
type ServerMessage struct {
	SetupComplete       bool
	Text                string
	Audio               []byte
	InputTranscription  string
	OutputTranscription string
	TurnComplete        bool
	Interrupted         bool
	GoAway              *time.Duration
	Error               string
}

type Credential struct {
	APIKey string
	Voice  string
	Source string
}

func (c Credential) Valid() bool {
	return strings.TrimSpace(c.APIKey) != ""
}
