// Package client speaks the ringside WebSocket protocol.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/ringside/internal/server" // Reuse message types
	"github.com/lox/ringside/internal/session"
)

// ErrClosed is returned once the connection has gone away.
var ErrClosed = errors.New("client: connection closed")

// Client represents a WebSocket client for a ringside server
type Client struct {
	serverURL string
	conn      *websocket.Conn
	send      chan *server.Message
	events    chan *server.Message
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	nextID    atomic.Int64

	mu     sync.RWMutex
	player string
}

// New creates a client for the server at serverURL (http, https, ws or wss).
func New(serverURL string, logger *log.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		serverURL: serverURL,
		send:      make(chan *server.Message, 64),
		events:    make(chan *server.Message, 64),
		logger:    logger.WithPrefix("client"),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func wsURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = "/ws"
	return u.String(), nil
}

// Connect establishes a WebSocket connection to the server
func (c *Client) Connect(ctx context.Context) error {
	target, err := wsURL(c.serverURL)
	if err != nil {
		return err
	}
	c.logger.Info("Connecting to server", "url", target)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	c.conn = conn

	go c.readPump()
	go c.writePump()

	c.logger.Debug("Connected to server")
	return nil
}

// Close closes the WebSocket connection
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
	return nil
}

// Events delivers every message from the server in arrival order. It is
// closed when the connection ends.
func (c *Client) Events() <-chan *server.Message {
	return c.events
}

// Player returns the name confirmed by the last successful auth.
func (c *Client) Player() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.player
}

func (c *Client) readPump() {
	defer func() {
		close(c.events)
		_ = c.Close()
	}()

	for {
		var msg server.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}
		c.logger.Debug("Received message", "type", msg.Type, "requestId", msg.RequestID)

		if msg.Type == server.MessageTypeAuthResponse {
			var data server.AuthResponseData
			if err := msg.Decode(&data); err == nil && data.Success {
				c.mu.Lock()
				c.player = data.Player
				c.mu.Unlock()
			}
		}

		select {
		case c.events <- &msg:
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// request queues a message and returns its request id.
func (c *Client) request(t server.MessageType, data any) (string, error) {
	msg, err := server.NewMessage(t, data, time.Now())
	if err != nil {
		return "", err
	}
	msg.RequestID = strconv.FormatInt(c.nextID.Add(1), 10)

	if c.ctx.Err() != nil {
		return "", ErrClosed
	}
	select {
	case c.send <- msg:
		return msg.RequestID, nil
	case <-c.ctx.Done():
		return "", ErrClosed
	}
}

// Auth identifies as player. The outcome arrives as an auth_response event.
func (c *Client) Auth(player, token string) (string, error) {
	return c.request(server.MessageTypeAuth, server.AuthData{Player: player, Token: token})
}

// Start asks for a new match.
func (c *Client) Start() (string, error) {
	return c.request(server.MessageTypeStart, nil)
}

// Watch follows owner's match.
func (c *Client) Watch(owner string) (string, error) {
	return c.request(server.MessageTypeWatch, server.WatchData{Owner: owner})
}

// Act presses a control on the caller's match. sessionID may be empty.
func (c *Client) Act(kind session.ActionKind, sessionID string) (string, error) {
	return c.request(server.MessageTypeAction, server.ActionData{Kind: kind, SessionID: sessionID})
}

// WaitForServer polls /health until the server answers or ctx ends.
func WaitForServer(ctx context.Context, serverURL string) error {
	u, err := url.Parse(serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	}
	u.Path = "/health"

	hc := &http.Client{Timeout: time.Second}
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return err
		}
		if resp, err := hc.Do(req); err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
