package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"tictactoe/internal/logger"
	"tictactoe/internal/metrics"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 30 * time.Second
	pingPeriod     = 25 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 256
)

// Client is one websocket connection of an authenticated participant.
type Client struct {
	ID     string
	UserID int64
	Conn   *websocket.Conn

	hub        *Hub
	dispatcher *Dispatcher
	send       chan []byte

	mu     sync.Mutex
	closed bool
}

func NewClient(userID int64, conn *websocket.Conn, hub *Hub, dispatcher *Dispatcher) *Client {
	return &Client{
		ID:         uuid.NewString(),
		UserID:     userID,
		Conn:       conn,
		hub:        hub,
		dispatcher: dispatcher,
		send:       make(chan []byte, sendBuffer),
	}
}

func (c *Client) ParticipantID() int64 {
	return c.UserID
}

// Send queues an event without blocking. A client whose buffer is full is
// too slow to keep up and gets disconnected.
func (c *Client) Send(event string, payload any) {
	b, err := json.Marshal(Message{Type: event, Payload: payload})
	if err != nil {
		logger.Error("ws marshal failed", "event", event, "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- b:
	default:
		logger.Warn("ws send buffer full, dropping client", "participant", c.UserID, "client_id", c.ID)
		metrics.DroppedConnections.Inc()
		c.closed = true
		close(c.send)
	}
}

// Close stops the writer, which closes the socket and ends the read pump.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	return nil
}

// Run registers the client and pumps messages until the socket closes.
func (c *Client) Run(ctx context.Context) {
	ctx = logger.ContextWith(ctx, "participant", c.UserID, "client_id", c.ID)

	c.hub.Register(c.UserID, c)
	go c.writePump()

	c.readPump(ctx)

	c.hub.Unregister(c.UserID, c)
	_ = c.Close()
}

//read
func (c *Client) readPump(ctx context.Context) {
	defer c.Conn.Close()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WithContext(ctx).Debug("ws read error", "error", err)
			}
			return
		}
		c.dispatcher.Dispatch(ctx, c, msg)
	}
}

//write
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Debug("ws write error", "participant", c.UserID, "error", err)
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
