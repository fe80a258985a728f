package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// Status reflects transport connectivity. The controller does not act on
// it; the presentation layer may surface it.
type Status string

const (
	StatusConnected    Status = "connected"
	StatusReconnecting Status = "reconnecting"
	StatusDisconnected Status = "disconnected"
)

// ErrNotConnected is returned by Send when no live connection exists.
// Callers decide what to do with the undelivered event; the channel does not
// queue.
var ErrNotConnected = errors.New("channel: not connected")

// Options configure a websocket channel. Zero values fall back to the
// defaults the original client shipped with.
type Options struct {
	// URL of the backend websocket endpoint, e.g. ws://localhost:8080/ws.
	URL         string
	DialTimeout time.Duration
	// ReconnectAttempts bounds how many redials are tried after a drop
	// before the channel gives up and reports StatusDisconnected.
	ReconnectAttempts int
	// ReconnectDelay is the initial redial backoff; it doubles per attempt
	// up to ReconnectDelayMax.
	ReconnectDelay    time.Duration
	ReconnectDelayMax time.Duration
	// OnStatus, when set, is invoked on every connectivity transition.
	OnStatus func(Status)
}

func (o Options) withDefaults() Options {
	if o.DialTimeout <= 0 {
		o.DialTimeout = 20 * time.Second
	}
	if o.ReconnectAttempts <= 0 {
		o.ReconnectAttempts = 10
	}
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = 500 * time.Millisecond
	}
	if o.ReconnectDelayMax <= 0 {
		o.ReconnectDelayMax = 2 * time.Second
	}
	return o
}

// WSChannel is a reconnecting websocket event transport. Handlers are
// invoked on the read goroutine, one event at a time.
type WSChannel struct {
	opts Options

	handlersMu sync.RWMutex
	handlers   map[string][]func(payload []byte)

	connMu sync.RWMutex
	conn   *websocket.Conn

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a channel for the given endpoint. Call On before Connect so no
// early event is missed.
func New(opts Options) *WSChannel {
	ctx, cancel := context.WithCancel(context.Background())
	return &WSChannel{
		opts:     opts.withDefaults(),
		handlers: make(map[string][]func([]byte)),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// On registers a handler for a named inbound event.
func (c *WSChannel) On(event string, handler func(payload []byte)) {
	c.handlersMu.Lock()
	c.handlers[event] = append(c.handlers[event], handler)
	c.handlersMu.Unlock()
}

// Connect dials the backend and starts the read loop. The passed context
// bounds only the initial dial; the connection itself lives until Close.
func (c *WSChannel) Connect(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return fmt.Errorf("connect %s: %w", c.opts.URL, err)
	}
	c.setConn(conn)
	c.setStatus(StatusConnected)
	go c.run()
	return nil
}

// Send emits a named event with the given payload. It returns immediately
// after the frame is written; responses arrive asynchronously through On
// handlers.
func (c *WSChannel) Send(ctx context.Context, event string, payload any) error {
	conn := c.current()
	if conn == nil {
		return ErrNotConnected
	}
	frame, err := EncodeEnvelope(event, payload)
	if err != nil {
		return err
	}
	if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
		return fmt.Errorf("send %s: %w", event, err)
	}
	return nil
}

// Close tears the channel down. No reconnect is attempted afterwards.
func (c *WSChannel) Close() error {
	c.cancel()
	conn := c.current()
	c.setConn(nil)
	if conn == nil {
		return nil
	}
	if err := conn.Close(websocket.StatusNormalClosure, "client closed"); err != nil {
		slog.Debug("Failed to close websocket", "error", err)
	}
	return nil
}

func (c *WSChannel) dial(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.opts.DialTimeout)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, c.opts.URL, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (c *WSChannel) run() {
	for {
		conn := c.current()
		if conn == nil {
			return
		}
		c.readLoop(conn)
		if c.ctx.Err() != nil {
			return
		}
		c.setStatus(StatusReconnecting)
		if !c.reconnect() {
			slog.Warn("Channel reconnect attempts exhausted", "url", c.opts.URL)
			c.setConn(nil)
			c.setStatus(StatusDisconnected)
			return
		}
		c.setStatus(StatusConnected)
	}
}

func (c *WSChannel) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(c.ctx)
		if err != nil {
			if c.ctx.Err() == nil {
				slog.Debug("Websocket read failed", "error", err)
			}
			return
		}
		c.dispatch(data)
	}
}

func (c *WSChannel) dispatch(data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		slog.Warn("Dropping malformed channel frame", "error", err)
		return
	}
	if env.Event == EventPing {
		if err := c.Send(c.ctx, EventPong, nil); err != nil {
			slog.Debug("Failed to answer ping", "error", err)
		}
		return
	}

	c.handlersMu.RLock()
	handlers := c.handlers[env.Event]
	c.handlersMu.RUnlock()
	if len(handlers) == 0 {
		slog.Debug("No handler for channel event", "event", env.Event)
		return
	}
	for _, h := range handlers {
		h(env.Data)
	}
}

// reconnect redials with doubling backoff until it succeeds or the attempt
// budget runs out. The session identity does not change across reconnects,
// so nothing needs re-deriving afterwards.
func (c *WSChannel) reconnect() bool {
	delay := c.opts.ReconnectDelay
	for attempt := 1; attempt <= c.opts.ReconnectAttempts; attempt++ {
		select {
		case <-c.ctx.Done():
			return false
		case <-time.After(delay):
		}

		conn, err := c.dial(c.ctx)
		if err == nil {
			c.setConn(conn)
			slog.Info("Channel reconnected", "url", c.opts.URL, "attempt", attempt)
			return true
		}
		slog.Debug("Reconnect attempt failed", "attempt", attempt, "error", err)

		delay *= 2
		if delay > c.opts.ReconnectDelayMax {
			delay = c.opts.ReconnectDelayMax
		}
	}
	return false
}

func (c *WSChannel) current() *websocket.Conn {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.conn
}

func (c *WSChannel) setConn(conn *websocket.Conn) {
	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
}

func (c *WSChannel) setStatus(s Status) {
	if c.opts.OnStatus != nil {
		c.opts.OnStatus(s)
	}
}
