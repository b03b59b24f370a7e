package geminilive

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bnema/gemini-live-cli/internal/domain"
	"github.com/bnema/gemini-live-cli/internal/ports"
	"github.com/gorilla/websocket"
)

type conn struct {
	ws *websocket.Conn

	messages chan domain.ServerMessage
	stop     chan struct{}
	done     chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool

	infoMu sync.Mutex
	info   *domain.CloseInfo
}

var _ ports.LiveConn = (*conn)(nil)

func newConn(ws *websocket.Conn) *conn {
	c := &conn{
		ws:       ws,
		messages: make(chan domain.ServerMessage, 64),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *conn) Receive(ctx context.Context) (domain.ServerMessage, error) {
	select {
	case msg, ok := <-c.messages:
		if !ok {
			return domain.ServerMessage{}, &ports.CloseError{Info: c.closeInfo()}
		}
		return msg, nil
	case <-ctx.Done():
		return domain.ServerMessage{}, ctx.Err()
	}
}

func (c *conn) SendText(ctx context.Context, text string, turnComplete bool) error {
	return c.writeJSON(ctx, newTextMessage(text, turnComplete))
}

func (c *conn) SendAudio(ctx context.Context, pcm []byte, mimeType string) error {
	return c.writeJSON(ctx, newAudioMessage(pcm, mimeType))
}

// Close sends a close frame with code and reason and tears the socket down.
func (c *conn) Close(code int, reason string) error {
	var err error
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.setCloseInfo(domain.CloseInfo{Code: code, Reason: reason})

		if len(reason) > maxCloseReasonBytes {
			reason = reason[:maxCloseReasonBytes]
		}
		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(closeWriteTimeout))
		c.writeMu.Unlock()

		close(c.stop)
		err = c.ws.Close()
	})
	<-c.done
	return err
}

func (c *conn) writeJSON(ctx context.Context, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.closed.Load() {
		return errors.New("live connection is closed")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline, _ := ctx.Deadline()
	_ = c.ws.SetWriteDeadline(deadline)
	if err := c.ws.WriteJSON(v); err != nil {
		return fmt.Errorf("write live message: %w", err)
	}
	return nil
}

func (c *conn) readLoop() {
	defer close(c.done)
	defer close(c.messages)

	for {
		messageType, payload, err := c.ws.ReadMessage()
		if err != nil {
			c.setCloseInfo(closeInfoFromError(err))
			return
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}

		msg, err := decodeServerMessage(payload)
		if err != nil {
			msg = domain.ServerMessage{Error: err.Error()}
		}

		select {
		case c.messages <- msg:
		case <-c.stop:
			return
		}
	}
}

// setCloseInfo keeps the first reason recorded; a local Close wins over the
// read error it causes.
func (c *conn) setCloseInfo(info domain.CloseInfo) {
	c.infoMu.Lock()
	defer c.infoMu.Unlock()
	if c.info == nil {
		c.info = &info
	}
}

func (c *conn) closeInfo() domain.CloseInfo {
	c.infoMu.Lock()
	defer c.infoMu.Unlock()
	if c.info == nil {
		return domain.CloseInfo{Code: websocket.CloseAbnormalClosure}
	}
	return *c.info
}

func closeInfoFromError(err error) domain.CloseInfo {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return domain.CloseInfo{Code: closeErr.Code, Reason: closeErr.Text}
	}
	return domain.CloseInfo{Code: websocket.CloseAbnormalClosure, Err: err}
}
