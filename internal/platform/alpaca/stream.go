package alpaca

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/alpacabot/internal/domain"
)

const (
	// DefaultPaperStreamURL is the paper-trading account event stream.
	DefaultPaperStreamURL = "wss://paper-api.alpaca.markets/stream"

	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// reconnectDelay is the base delay before attempting to reconnect.
	reconnectDelay = 2 * time.Second

	// maxReconnectDelay caps the exponential backoff for reconnection.
	maxReconnectDelay = 60 * time.Second
)

// TradeUpdateHandler receives each trade_updates notification. It is called
// from the stream's read goroutine; implementations decide their own
// threading.
type TradeUpdateHandler func(TradeUpdate)

// streamMessage is the envelope every stream frame arrives in.
type streamMessage struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// authResult is the payload of an "authorization" frame.
type authResult struct {
	Status string `json:"status"`
	Action string `json:"action"`
}

// Stream consumes the Alpaca account event stream and forwards trade_updates
// notifications to its handler. It reconnects with exponential backoff until
// the context is cancelled.
type Stream struct {
	wsURL     string
	apiKey    string
	apiSecret string
	handler   TradeUpdateHandler
	logger    *slog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewStream creates a Stream for the given websocket URL and credentials.
// When wsURL is empty the paper-trading endpoint is used.
func NewStream(wsURL, apiKey, apiSecret string, handler TradeUpdateHandler, logger *slog.Logger) *Stream {
	if wsURL == "" {
		wsURL = DefaultPaperStreamURL
	}
	return &Stream{
		wsURL:     wsURL,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		handler:   handler,
		logger:    logger.With(slog.String("component", "alpaca_stream")),
	}
}

// Run connects, authenticates, subscribes to trade_updates, and reads until
// the connection drops or the context is cancelled. Dropped connections are
// retried with exponential backoff.
func (s *Stream) Run(ctx context.Context) error {
	var delay time.Duration

	for {
		started := time.Now()
		err := s.runOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		delay = nextBackoff(delay, time.Since(started))
		s.logger.Warn("stream disconnected, reconnecting",
			slog.String("error", err.Error()),
			slog.Duration("delay", delay),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// nextBackoff returns the wait before the next dial attempt. The first
// failure and any failure after a session that outlived the maximum backoff
// start over at the base delay; rapid failures double the previous wait up
// to the cap.
func nextBackoff(previous, sessionLife time.Duration) time.Duration {
	if previous == 0 || sessionLife > maxReconnectDelay {
		return reconnectDelay
	}
	next := previous * 2
	if next > maxReconnectDelay {
		return maxReconnectDelay
	}
	return next
}

func (s *Stream) runOnce(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		return fmt.Errorf("alpaca/stream: connect: %w", err)
	}
	defer conn.Close()

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	if err := s.authenticate(conn); err != nil {
		return err
	}
	if err := s.listen(conn); err != nil {
		return err
	}
	s.logger.Info("trade update stream connected")

	// Close the connection when ctx is cancelled so the read loop unblocks,
	// and keep the peer alive with periodic pings.
	pingCtx, cancelPing := context.WithCancel(ctx)
	defer cancelPing()
	go s.pingLoop(pingCtx, conn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("alpaca/stream: read: %w", domain.ErrWSDisconnect)
		}

		var msg streamMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Warn("undecodable stream frame", slog.Int("len", len(data)))
			continue
		}
		if msg.Stream != "trade_updates" {
			continue
		}

		var update TradeUpdate
		if err := json.Unmarshal(msg.Data, &update); err != nil {
			s.logger.Warn("undecodable trade update", slog.String("error", err.Error()))
			continue
		}
		s.handler(update)
	}
}

func (s *Stream) authenticate(conn *websocket.Conn) error {
	auth := map[string]any{
		"action": "auth",
		"key":    s.apiKey,
		"secret": s.apiSecret,
	}
	if err := s.writeJSON(conn, auth); err != nil {
		return fmt.Errorf("alpaca/stream: send auth: %w", err)
	}

	_, data, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("alpaca/stream: read auth reply: %w", err)
	}

	var msg streamMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("alpaca/stream: decode auth reply: %w", err)
	}
	var result authResult
	if err := json.Unmarshal(msg.Data, &result); err != nil {
		return fmt.Errorf("alpaca/stream: decode auth result: %w", err)
	}
	if result.Status != "authorized" {
		return fmt.Errorf("alpaca/stream: authentication failed: %s", result.Status)
	}
	return nil
}

func (s *Stream) listen(conn *websocket.Conn) error {
	cmd := map[string]any{
		"action": "listen",
		"data": map[string]any{
			"streams": []string{"trade_updates"},
		},
	}
	if err := s.writeJSON(conn, cmd); err != nil {
		return fmt.Errorf("alpaca/stream: subscribe trade_updates: %w", err)
	}
	return nil
}

func (s *Stream) writeJSON(conn *websocket.Conn, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

func (s *Stream) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close()
			return
		case <-ticker.C:
			s.mu.Lock()
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			s.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}
