package hyperliquid

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// reconnectDelay is the base delay before attempting to reconnect.
	reconnectDelay = 2 * time.Second

	// maxReconnectDelay caps the exponential backoff.
	maxReconnectDelay = 60 * time.Second
)

// MidsHandler receives every allMids push as coin-to-price map.
type MidsHandler func(map[string]float64)

// WSClient streams mid prices from the Hyperliquid WebSocket feed.
type WSClient struct {
	wsURL string
	conn  *websocket.Conn

	mu         sync.RWMutex
	closed     bool
	subscribed bool

	handlerMu    sync.RWMutex
	midsHandlers []MidsHandler

	// done is closed when the client shuts down.
	done chan struct{}
}

// NewWSClient creates a new mids stream client.
//
// wsURL is the WebSocket endpoint, e.g. "wss://api.hyperliquid.xyz/ws".
func NewWSClient(wsURL string) *WSClient {
	return &WSClient{
		wsURL: wsURL,
		done:  make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection and restores the mids
// subscription if one was active.
func (w *WSClient) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("hyperliquid/ws: client is closed")
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, w.wsURL, nil)
	if err != nil {
		return fmt.Errorf("hyperliquid/ws: connect: %w", err)
	}

	w.conn = conn

	w.conn.SetReadDeadline(time.Now().Add(pongWait))
	w.conn.SetPongHandler(func(string) error {
		w.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go w.readLoop()
	go w.pingLoop()

	if w.subscribed {
		if err := w.sendSubscribe(); err != nil {
			return fmt.Errorf("hyperliquid/ws: restore subscription: %w", err)
		}
	}

	return nil
}

// SubscribeMids subscribes to the allMids channel.
func (w *WSClient) SubscribeMids(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		return fmt.Errorf("hyperliquid/ws: not connected")
	}

	if err := w.sendSubscribe(); err != nil {
		return fmt.Errorf("hyperliquid/ws: subscribe: %w", err)
	}
	w.subscribed = true

	return nil
}

// OnMids registers a handler called for every mids push.
func (w *WSClient) OnMids(handler MidsHandler) {
	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()
	w.midsHandlers = append(w.midsHandlers, handler)
}

// Close shuts down the WebSocket connection.
func (w *WSClient) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true
	close(w.done)

	if w.conn != nil {
		_ = w.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		return w.conn.Close()
	}

	return nil
}

// sendSubscribe sends the allMids subscription command. Caller must hold w.mu.
func (w *WSClient) sendSubscribe() error {
	cmd := wsSubscribeCmd{Method: "subscribe"}
	cmd.Subscription.Type = "allMids"

	w.conn.SetWriteDeadline(time.Now().Add(writeWait))

	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal subscribe: %w", err)
	}

	return w.conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop continuously reads messages and dispatches them to handlers. On
// disconnect it attempts reconnection.
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
			select {
			case <-w.done:
				return
			default:
			}

			w.reconnect()
			return
		}

		w.handleMessage(message)
	}
}

// pingLoop sends periodic pings to keep the connection alive.
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

// handleMessage parses a raw WebSocket message and routes it.
func (w *WSClient) handleMessage(raw []byte) {
	var envelope wsMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return
	}

	if envelope.Channel != "allMids" {
		return
	}

	mids := make(map[string]float64, len(envelope.Data.Mids))
	for coin, px := range envelope.Data.Mids {
		mids[coin] = parseDecimal(px)
	}

	w.handlerMu.RLock()
	handlers := w.midsHandlers
	w.handlerMu.RUnlock()

	for _, h := range handlers {
		h(mids)
	}
}

// reconnect attempts to re-establish the connection with exponential backoff.
func (w *WSClient) reconnect() {
	delay := reconnectDelay

	for {
		select {
		case <-w.done:
			return
		default:
		}

		time.Sleep(delay)

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err := w.Connect(ctx)
		cancel()

		if err == nil {
			return
		}

		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}
