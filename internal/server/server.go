// Package server exposes boxing matches over WebSocket. Every successful
// resolution is pushed to all connections watching the owner's match;
// rejections only ever go back to the connection that asked.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/lox/ringside/internal/auth"
	"github.com/lox/ringside/internal/session"
)

// Server represents the WebSocket server
type Server struct {
	ctrl      *session.Controller
	validator auth.Validator
	clock     quartz.Clock
	admin     string
	logger    *log.Logger
	metrics   *Metrics
	upgrader  websocket.Upgrader

	mu          sync.RWMutex
	connections map[*Connection]struct{}
	watchers    map[string]map[*Connection]struct{}
	status      string
}

// Option configures a Server.
type Option func(*Server)

// WithValidator sets how auth tokens are checked. The default accepts any
// player name.
func WithValidator(v auth.Validator) Option {
	return func(s *Server) {
		s.validator = v
	}
}

// WithClock sets the clock used to stamp requests.
func WithClock(c quartz.Clock) Option {
	return func(s *Server) {
		s.clock = c
	}
}

// WithAdmin names the player allowed to use the admin endpoints in addition
// to tokens carrying the admin claim.
func WithAdmin(player string) Option {
	return func(s *Server) {
		s.admin = player
	}
}

// NewServer creates a new WebSocket server
func NewServer(ctrl *session.Controller, logger *log.Logger, opts ...Option) *Server {
	s := &Server{
		ctrl:      ctrl,
		validator: auth.NewNoopValidator(),
		clock:     quartz.NewReal(),
		logger:    logger.WithPrefix("server"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[*Connection]struct{}),
		watchers:    make(map[string]map[*Connection]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics = newMetrics(func() float64 {
		return float64(ctrl.Registry().Len())
	})
	return s
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Handler returns the HTTP routes served by the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", s.metrics.Handler())
	mux.HandleFunc("/admin/sessions", s.requireAdmin(s.handleSessions))
	mux.HandleFunc("/admin/status", s.requireAdmin(s.handleStatus))
	return mux
}

// Serve listens on addr until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("Starting WebSocket server", "addr", addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		s.Stop()
		return err
	})
	return g.Wait()
}

// Stop closes every open connection.
func (s *Server) Stop() {
	s.mu.RLock()
	conns := make([]*Connection, 0, len(s.connections))
	for c := range s.connections {
		conns = append(conns, c)
	}
	s.mu.RUnlock()

	for _, c := range conns {
		_ = c.Close()
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	c := newConnection(ws, s)
	s.register(c)
	c.Start()

	go func() {
		<-c.Done()
		s.unregister(c)
	}()
}

func (s *Server) register(c *Connection) {
	s.mu.Lock()
	s.connections[c] = struct{}{}
	total := len(s.connections)
	s.mu.Unlock()

	s.metrics.Connections.Inc()
	s.logger.Debug("Client connected", "total", total)
}

func (s *Server) unregister(c *Connection) {
	s.mu.Lock()
	if _, ok := s.connections[c]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.connections, c)
	for _, owner := range c.Watching() {
		s.dropWatcher(c, owner)
	}
	total := len(s.connections)
	s.mu.Unlock()

	s.metrics.Connections.Dec()
	s.logger.Debug("Client disconnected", "player", c.Player(), "total", total)
}

func (s *Server) watch(c *Connection, owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.connections[c]; !ok {
		return
	}
	set, ok := s.watchers[owner]
	if !ok {
		set = make(map[*Connection]struct{})
		s.watchers[owner] = set
	}
	set[c] = struct{}{}
	c.addWatch(owner)
}

// unwatch stops c following owner's match.
func (s *Server) unwatch(c *Connection, owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropWatcher(c, owner)
	c.removeWatch(owner)
}

// dropWatcher removes c from owner's watchers. The caller holds s.mu.
func (s *Server) dropWatcher(c *Connection, owner string) {
	if set, ok := s.watchers[owner]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(s.watchers, owner)
		}
	}
}

func (s *Server) watchersOf(owner string) []*Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conns := make([]*Connection, 0, len(s.watchers[owner]))
	for c := range s.watchers[owner] {
		conns = append(conns, c)
	}
	return conns
}

// Broadcast pushes view to every connection watching owner's match.
func (s *Server) Broadcast(owner string, view session.View, requestID string) {
	s.fanOut(owner, MessageTypeSessionView, view, requestID)
}

// NotifyExpired tells owner's watchers that the reaper closed the match. It
// is the reaper's expire callback.
func (s *Server) NotifyExpired(owner string, view session.View) {
	s.metrics.Expired.Inc()
	s.fanOut(owner, MessageTypeSessionExpired, view, "")
}

func (s *Server) fanOut(owner string, t MessageType, data any, requestID string) {
	msg, err := NewMessage(t, data, s.clock.Now())
	if err != nil {
		s.logger.Error("Failed to create message", "type", t, "error", err)
		return
	}
	msg.RequestID = requestID

	count := 0
	for _, c := range s.watchersOf(owner) {
		if err := c.SendMessage(msg); err != nil {
			s.logger.Warn("Failed to send message to client", "error", err, "player", c.Player())
			continue
		}
		count++
	}
	s.logger.Debug("Broadcast", "owner", owner, "type", t, "recipients", count)
}

// Status returns the operator status line.
func (s *Server) Status() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// SetStatus stores the status line and pushes it to every connection.
func (s *Server) SetStatus(message string) {
	s.mu.Lock()
	s.status = message
	conns := make([]*Connection, 0, len(s.connections))
	for c := range s.connections {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	msg, err := NewMessage(MessageTypeStatus, StatusData{Message: message}, s.clock.Now())
	if err != nil {
		return
	}
	for _, c := range conns {
		_ = c.SendMessage(msg)
	}
	s.logger.Info("Status updated", "message", message, "recipients", len(conns))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

// requireAdmin checks the bearer token against the validator.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}

		id, err := s.validator.Validate(r.Context(), "", token)
		if err != nil {
			status := http.StatusUnauthorized
			if errors.Is(err, auth.ErrUnavailable) {
				status = http.StatusServiceUnavailable
			}
			http.Error(w, err.Error(), status)
			return
		}
		if !id.Admin && (s.admin == "" || id.Player != s.admin) {
			s.logger.Warn("Admin request refused", "player", id.Player, "path", r.URL.Path)
			http.Error(w, "admin only", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	owners := s.ctrl.Registry().Owners()
	writeJSON(w, SessionsData{Count: len(owners), Owners: owners})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var data StatusData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	s.SetStatus(data.Message)
	writeJSON(w, data)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// errorCode maps a controller error to its wire code.
func errorCode(err error) (code, message string, retry time.Duration) {
	var cd *session.CooldownError
	switch {
	case errors.As(err, &cd):
		return CodeOnCooldown, fmt.Sprintf("Special move is on cooldown for %.1fs", cd.Remaining.Seconds()), cd.Remaining
	case errors.Is(err, session.ErrNotOwner):
		return CodeNotOwner, "This match belongs to someone else", 0
	case errors.Is(err, session.ErrNoActiveSession):
		return CodeNoActiveSession, "No active match", 0
	case errors.Is(err, session.ErrAlreadyActive):
		return CodeAlreadyActive, "A match is already in progress", 0
	case errors.Is(err, session.ErrInvalidMove):
		return CodeInvalidMove, "Unknown move", 0
	case errors.Is(err, session.ErrStillActive):
		return CodeStillActive, "Finish the current match first", 0
	default:
		return CodeInternal, err.Error(), 0
	}
}
