package server

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/ringside/internal/session"
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	conn      *websocket.Conn
	send      chan *Message
	server    *Server
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closeOnce sync.Once

	player   string
	watching map[string]struct{}
}

func newConnection(conn *websocket.Conn, s *Server) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:     conn,
		send:     make(chan *Message, 256),
		server:   s,
		logger:   s.logger.WithPrefix("conn"),
		ctx:      ctx,
		cancel:   cancel,
		watching: make(map[string]struct{}),
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump(c.send)
	go c.readPump()
}

// Done is closed once the connection has shut down.
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		c.mu.Lock()
		close(c.send)
		c.send = nil
		c.mu.Unlock()
		err = c.conn.Close()
	})
	return err
}

// SendMessage queues msg for the client. A full buffer drops the client.
func (c *Connection) SendMessage(msg *Message) error {
	c.mu.RLock()
	if c.send == nil {
		c.mu.RUnlock()
		return ErrConnectionClosed
	}
	select {
	case c.send <- msg:
		c.mu.RUnlock()
		return nil
	default:
	}
	c.mu.RUnlock()

	c.logger.Warn("Connection send buffer full, closing connection", "player", c.Player())
	_ = c.Close()
	return ErrConnectionClosed
}

// setPlayer records the authenticated player and returns the previous one.
func (c *Connection) setPlayer(player string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.player
	c.player = player
	return prev
}

// Player returns the authenticated player, or "" before auth.
func (c *Connection) Player() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.player
}

func (c *Connection) addWatch(owner string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watching[owner] = struct{}{}
}

func (c *Connection) removeWatch(owner string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.watching, owner)
}

// Watching returns the owners whose matches this connection follows.
func (c *Connection) Watching() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	owners := make([]string, 0, len(c.watching))
	for o := range c.watching {
		owners = append(owners, o)
	}
	return owners
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096
)

var (
	ErrConnectionClosed = websocket.ErrCloseSent
)

func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}
		c.handleMessage(&msg)
	}
}

func (c *Connection) writePump(send <-chan *Message) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "player", c.Player())

	switch msg.Type {
	case MessageTypeAuth:
		var data AuthData
		if err := msg.Decode(&data); err != nil {
			c.reject(msg, CodeInvalidMessage, "Failed to parse auth data")
			return
		}
		c.handleAuth(msg, data)

	case MessageTypeStart:
		c.handleStart(msg)

	case MessageTypeWatch:
		var data WatchData
		if err := msg.Decode(&data); err != nil {
			c.reject(msg, CodeInvalidMessage, "Failed to parse watch data")
			return
		}
		c.handleWatch(msg, data)

	case MessageTypeAction:
		var data ActionData
		if err := msg.Decode(&data); err != nil {
			c.reject(msg, CodeInvalidMessage, "Failed to parse action data")
			return
		}
		c.handleAction(msg, data)

	default:
		c.reject(msg, CodeUnknownType, "Unknown message type: "+msg.Type.String())
	}
}

// reply sends a message answering req.
func (c *Connection) reply(req *Message, t MessageType, data any) {
	out, err := NewMessage(t, data, c.server.clock.Now())
	if err != nil {
		c.logger.Error("Failed to create message", "type", t, "error", err)
		return
	}
	if req != nil {
		out.RequestID = req.RequestID
	}
	_ = c.SendMessage(out)
}

// reject sends an error to this connection only.
func (c *Connection) reject(req *Message, code, message string) {
	c.server.metrics.Rejections.WithLabelValues(code).Inc()
	c.reply(req, MessageTypeError, ErrorData{Code: code, Message: message})
}

func (c *Connection) requirePlayer(req *Message) (string, bool) {
	player := c.Player()
	if player == "" {
		c.reject(req, CodeNotAuthenticated, "Must authenticate first")
		return "", false
	}
	return player, true
}

func (c *Connection) handleAuth(req *Message, data AuthData) {
	id, err := c.server.validator.Validate(c.ctx, data.Player, data.Token)
	if err != nil {
		c.logger.Info("Auth rejected", "player", data.Player, "error", err)
		c.reply(req, MessageTypeAuthResponse, AuthResponseData{Success: false, Error: err.Error()})
		return
	}

	if prev := c.setPlayer(id.Player); prev != "" && prev != id.Player {
		c.server.unwatch(c, prev)
	}
	c.server.watch(c, id.Player)
	c.logger.Info("Player authenticated", "player", id.Player, "admin", id.Admin)

	c.reply(req, MessageTypeAuthResponse, AuthResponseData{Success: true, Player: id.Player, Admin: id.Admin})

	if view, ok := c.server.ctrl.Peek(id.Player); ok {
		c.reply(nil, MessageTypeSessionView, view)
	}
	if status := c.server.Status(); status != "" {
		c.reply(nil, MessageTypeStatus, StatusData{Message: status})
	}
}

func (c *Connection) handleStart(req *Message) {
	player, ok := c.requirePlayer(req)
	if !ok {
		return
	}

	view, err := c.server.ctrl.Start(player, c.server.clock.Now())
	if err != nil {
		c.rejectErr(req, err)
		return
	}
	c.server.metrics.Started.Inc()
	c.server.Broadcast(player, view, req.RequestID)
}

func (c *Connection) handleWatch(req *Message, data WatchData) {
	if _, ok := c.requirePlayer(req); !ok {
		return
	}
	if data.Owner == "" {
		c.reject(req, CodeInvalidMessage, "Owner required")
		return
	}

	c.server.watch(c, data.Owner)
	if view, ok := c.server.ctrl.Peek(data.Owner); ok {
		c.reply(req, MessageTypeSessionView, view)
		return
	}
	c.reply(req, MessageTypeStatus, StatusData{Message: "No match in progress for " + data.Owner})
}

func (c *Connection) handleAction(req *Message, data ActionData) {
	player, ok := c.requirePlayer(req)
	if !ok {
		return
	}

	owner := data.Owner
	if owner == "" {
		owner = player
	}

	view, err := c.server.ctrl.Dispatch(session.ActionRequest{
		Requester: player,
		Owner:     owner,
		SessionID: data.SessionID,
		Kind:      data.Kind,
		At:        c.server.clock.Now(),
	})
	if err != nil {
		c.rejectErr(req, err)
		return
	}

	c.server.metrics.Turns.WithLabelValues(data.Kind.String()).Inc()
	c.server.Broadcast(owner, view, req.RequestID)
}

func (c *Connection) rejectErr(req *Message, err error) {
	code, message, retry := errorCode(err)
	c.server.metrics.Rejections.WithLabelValues(code).Inc()
	c.reply(req, MessageTypeError, ErrorData{Code: code, Message: message, RetryAfterMs: retry.Milliseconds()})
}
