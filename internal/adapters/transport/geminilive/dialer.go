package geminilive

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bnema/gemini-live-cli/internal/domain"
	"github.com/bnema/gemini-live-cli/internal/ports"
	"github.com/gorilla/websocket"
)

const (
	DefaultEndpoint = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

	defaultHandshakeTimeout = 15 * time.Second
	closeWriteTimeout       = 2 * time.Second
	maxMessageBytes         = 16 << 20
	maxCloseReasonBytes     = 123
)

// Dialer opens Gemini Live sessions over a websocket.
type Dialer struct {
	Endpoint         string
	HandshakeTimeout time.Duration
	WSDialer         *websocket.Dialer
}

func NewDialer(endpoint string) *Dialer {
	return &Dialer{Endpoint: endpoint}
}

var _ ports.LiveDialer = (*Dialer)(nil)

// Dial connects, sends the setup message and waits for setupComplete.
func (d *Dialer) Dial(ctx context.Context, credential domain.Credential, setup domain.LiveSetup) (ports.LiveConn, error) {
	if strings.TrimSpace(setup.Model) == "" {
		return nil, errors.New("live model is required")
	}

	endpoint, err := d.buildURL(credential.APIKey)
	if err != nil {
		return nil, err
	}

	dialCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, d.handshakeTimeout())
		defer cancel()
	}

	dialer := d.WSDialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	ws, resp, err := dialer.DialContext(dialCtx, endpoint, http.Header{})
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial live endpoint (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial live endpoint: %w", err)
	}
	ws.SetReadLimit(maxMessageBytes)

	if err := ws.WriteJSON(newSetupMessage(setup)); err != nil {
		_ = ws.Close()
		return nil, fmt.Errorf("send live setup: %w", err)
	}

	deadline := time.Now().Add(d.handshakeTimeout())
	if ctxDeadline, ok := dialCtx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	_ = ws.SetReadDeadline(deadline)
	if err := awaitSetupComplete(ws); err != nil {
		_ = ws.Close()
		return nil, err
	}
	_ = ws.SetReadDeadline(time.Time{})

	return newConn(ws), nil
}

func (d *Dialer) handshakeTimeout() time.Duration {
	if d.HandshakeTimeout > 0 {
		return d.HandshakeTimeout
	}
	return defaultHandshakeTimeout
}

func (d *Dialer) buildURL(apiKey string) (string, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return "", errors.New("api key is required")
	}

	endpoint := strings.TrimSpace(d.Endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse live endpoint: %w", err)
	}
	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return "", fmt.Errorf("live endpoint must use ws or wss: %q", endpoint)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("live endpoint must include a host: %q", endpoint)
	}

	query := parsed.Query()
	query.Set("key", apiKey)
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func awaitSetupComplete(ws *websocket.Conn) error {
	for {
		messageType, payload, err := ws.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return fmt.Errorf("%w: closed during setup (%d %s)", errSetupRejected, closeErr.Code, closeErr.Text)
			}
			return fmt.Errorf("read live setup reply: %w", err)
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}

		msg, err := decodeServerMessage(payload)
		if err != nil {
			return err
		}
		if msg.Error != "" {
			return fmt.Errorf("%w: %s", errSetupRejected, msg.Error)
		}
		if msg.SetupComplete {
			return nil
		}
	}
}
