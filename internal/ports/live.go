package ports

import (
	"context"

	"github.com/bnema/gemini-live-cli/internal/domain"
)

// LiveDialer opens a live connection and completes the setup handshake.
// A returned LiveConn is ready for traffic.
type LiveDialer interface {
	Dial(ctx context.Context, credential domain.Credential, setup domain.LiveSetup) (LiveConn, error)
}

type LiveConn interface {
	// Receive blocks until the next server message. It returns a
	// *CloseError once the connection is gone.
	Receive(ctx context.Context) (domain.ServerMessage, error)
	SendText(ctx context.Context, text string, turnComplete bool) error
	SendAudio(ctx context.Context, pcm []byte, mimeType string) error
	Close(code int, reason string) error
}

// CloseError reports the end of a live connection.
type CloseError struct {
	Info domain.CloseInfo
}

func (e *CloseError) Error() string {
	if e.Info.Err != nil {
		return "live connection closed: " + e.Info.Err.Error()
	}
	if e.Info.Reason != "" {
		return "live connection closed: " + e.Info.Reason
	}
	return "live connection closed"
}

func (e *CloseError) Unwrap() error {
	return e.Info.Err
}
