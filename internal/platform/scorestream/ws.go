package scorestream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sportpools/matchpool/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// reconnectDelay is the base delay before attempting to reconnect.
	reconnectDelay = 2 * time.Second

	// maxReconnectDelay caps the exponential backoff for reconnection.
	maxReconnectDelay = 60 * time.Second
)

// ScoreHandler is called for every score update received from the provider.
type ScoreHandler func(domain.MatchSnapshot)

// WSClient is a WebSocket client for the score provider's real-time feed. It
// manages the connection lifecycle, subscriptions, and dispatches score
// updates to registered handlers.
type WSClient struct {
	wsURL            string
	apiKey           string
	handshakeTimeout time.Duration
	conn             *websocket.Conn

	mu     sync.RWMutex
	closed bool

	// Subscriptions to restore on reconnect.
	subscriptions []WSCommand

	scoreHandlers []ScoreHandler
	handlerMu     sync.RWMutex

	// done is closed when the client is shut down.
	done chan struct{}
}

// NewWSClient creates a new WebSocket client for the given feed URL. The API
// key is sent as a request header during the handshake.
func NewWSClient(wsURL, apiKey string, handshakeTimeout time.Duration) *WSClient {
	if handshakeTimeout <= 0 {
		handshakeTimeout = 15 * time.Second
	}
	return &WSClient{
		wsURL:            wsURL,
		apiKey:           apiKey,
		handshakeTimeout: handshakeTimeout,
		done:             make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection to the score provider.
func (w *WSClient) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("scorestream: %w", domain.ErrFeedDisconnect)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: w.handshakeTimeout,
	}

	header := http.Header{}
	if w.apiKey != "" {
		header.Set("X-Api-Key", w.apiKey)
	}

	conn, _, err := dialer.DialContext(ctx, w.wsURL, header)
	if err != nil {
		return fmt.Errorf("scorestream: connect: %w", err)
	}

	w.conn = conn

	// Set up pong handler for keep-alive.
	w.conn.SetReadDeadline(time.Now().Add(pongWait))
	w.conn.SetPongHandler(func(string) error {
		w.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go w.readLoop()
	go w.pingLoop()

	// Restore any previous subscriptions after reconnect.
	for _, cmd := range w.subscriptions {
		if err := w.sendCommand(cmd); err != nil {
			return fmt.Errorf("scorestream: restore subscription: %w", err)
		}
	}

	return nil
}

// Subscribe subscribes to score updates for the given competitions. An empty
// list subscribes to everything the API key is entitled to.
func (w *WSClient) Subscribe(ctx context.Context, competitions []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		return fmt.Errorf("scorestream: not connected")
	}

	cmd := WSCommand{
		Type:         "subscribe",
		Competitions: competitions,
	}

	if err := w.sendCommand(cmd); err != nil {
		return fmt.Errorf("scorestream: subscribe: %w", err)
	}

	// Track subscription for reconnection.
	w.subscriptions = append(w.subscriptions, cmd)

	return nil
}

// Close shuts down the WebSocket connection and stops the read loop.
func (w *WSClient) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true
	close(w.done)

	if w.conn != nil {
		// Send a close message to the server.
		_ = w.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		return w.conn.Close()
	}

	return nil
}

// OnScore registers a handler that is called for every score update.
func (w *WSClient) OnScore(handler ScoreHandler) {
	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()
	w.scoreHandlers = append(w.scoreHandlers, handler)
}

// sendCommand sends a JSON command to the WebSocket. Caller must hold w.mu.
func (w *WSClient) sendCommand(cmd WSCommand) error {
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))

	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}

	return w.conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop continuously reads messages from the WebSocket and dispatches
// them to the registered handlers. It runs in its own goroutine. On
// disconnect, it attempts to reconnect with exponential backoff.
func (w *WSClient) readLoop() {
	defer func() {
		w.mu.RLock()
		conn := w.conn
		w.mu.RUnlock()
		if conn != nil {
			conn.Close()
		}
	}()

	for {
		select {
		case <-w.done:
			return
		default:
		}

		w.mu.RLock()
		conn := w.conn
		w.mu.RUnlock()

		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			// Check if we've been shut down.
			select {
			case <-w.done:
				return
			default:
			}

			w.reconnect()
			return // readLoop is restarted by reconnect -> Connect
		}

		w.handleMessage(message)
	}
}

// pingLoop sends periodic ping messages to keep the WebSocket alive.
func (w *WSClient) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.mu.RLock()
			conn := w.conn
			w.mu.RUnlock()

			if conn == nil {
				return
			}

			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage parses a raw WebSocket message and routes score updates to
// the registered handlers. Unparseable or unknown messages are dropped.
func (w *WSClient) handleMessage(raw []byte) {
	var msg ScoreMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	if msg.Event != "score_update" || msg.MatchID == "" {
		return
	}

	snap := msg.ToDomain()

	w.handlerMu.RLock()
	handlers := w.scoreHandlers
	w.handlerMu.RUnlock()

	for _, h := range handlers {
		h(snap)
	}
}

// reconnect attempts to re-establish the WebSocket connection with
// exponential backoff. It blocks until successful or the client is closed.
func (w *WSClient) reconnect() {
	delay := reconnectDelay

	for {
		select {
		case <-w.done:
			return
		default:
		}

		time.Sleep(delay)

		ctx, cancel := context.WithTimeout(context.Background(), w.handshakeTimeout)
		err := w.Connect(ctx)
		cancel()

		if err == nil {
			return
		}

		// Exponential backoff.
		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}
