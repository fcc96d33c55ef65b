package server

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/lox/ringside/internal/combat"
	"github.com/lox/ringside/internal/session"
)

const testIdleWindow = time.Minute

// testLogger creates a logger that discards output for tests
func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

type harness struct {
	clock  *quartz.Mock
	rng    *combat.ScriptedSource
	ctrl   *session.Controller
	reaper *session.Reaper
	srv    *Server
	http   *httptest.Server
}

// newHarness wires a full stack behind an httptest server. The random source
// misses every roll unless a test queues hits.
func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()

	h := &harness{
		clock: quartz.NewMock(t),
		rng:   &combat.ScriptedSource{FloatZero: 1},
	}
	res, err := combat.NewResolver(combat.DefaultPlayerTable(), combat.DefaultBotTable(), combat.DefaultCooldown, h.rng)
	require.NoError(t, err)

	reg := session.NewRegistry()
	h.reaper = session.NewReaper(reg, h.clock, testIdleWindow, testLogger(), func(owner string, v session.View) {
		h.srv.NotifyExpired(owner, v)
	})
	h.ctrl = session.NewController(reg, res, testLogger(), session.WithActivityTracker(h.reaper))
	h.srv = NewServer(h.ctrl, testLogger(), append([]Option{WithClock(h.clock)}, opts...)...)
	h.http = httptest.NewServer(h.srv.Handler())

	t.Cleanup(func() {
		h.reaper.Stop()
		h.srv.Stop()
		h.http.Close()
	})
	return h
}

func (h *harness) advance(t *testing.T, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	h.clock.Advance(d).MustWait(ctx)
}

type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func (h *harness) dial(t *testing.T) *wsClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.http.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &wsClient{t: t, conn: conn}
}

// login dials and authenticates as player.
func (h *harness) login(t *testing.T, player string) *wsClient {
	t.Helper()
	c := h.dial(t)
	c.send(MessageTypeAuth, AuthData{Player: player}, "")
	var resp AuthResponseData
	c.expect(MessageTypeAuthResponse, &resp)
	require.True(t, resp.Success, resp.Error)
	return c
}

func (c *wsClient) send(t MessageType, data any, requestID string) {
	c.t.Helper()
	msg, err := NewMessage(t, data, time.Now())
	require.NoError(c.t, err)
	msg.RequestID = requestID
	require.NoError(c.t, c.conn.WriteJSON(msg))
}

func (c *wsClient) read() *Message {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(c.t, c.conn.ReadJSON(&msg))
	return &msg
}

// expect reads the next message, requires its type and decodes it into v.
func (c *wsClient) expect(t MessageType, v any) *Message {
	c.t.Helper()
	msg := c.read()
	require.Equal(c.t, t, msg.Type, "payload: %s", string(msg.Data))
	if v != nil {
		require.NoError(c.t, msg.Decode(v))
	}
	return msg
}

func (c *wsClient) expectView() session.View {
	c.t.Helper()
	var v session.View
	c.expect(MessageTypeSessionView, &v)
	return v
}

func (c *wsClient) expectError(code string) ErrorData {
	c.t.Helper()
	var e ErrorData
	c.expect(MessageTypeError, &e)
	require.Equal(c.t, code, e.Code, e.Message)
	return e
}

// expectSilence asserts nothing arrives for a short while. The connection is
// unusable afterwards.
func (c *wsClient) expectSilence() {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	var msg Message
	err := c.conn.ReadJSON(&msg)
	require.Error(c.t, err, "unexpected %s message", msg.Type)
}
