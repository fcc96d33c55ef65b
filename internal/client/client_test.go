package client

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/ringside/internal/combat"
	"github.com/lox/ringside/internal/server"
	"github.com/lox/ringside/internal/session"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	res, err := combat.NewResolver(combat.DefaultPlayerTable(), combat.DefaultBotTable(), combat.DefaultCooldown,
		&combat.ScriptedSource{FloatZero: 1})
	require.NoError(t, err)

	ctrl := session.NewController(session.NewRegistry(), res, testLogger())
	srv := server.NewServer(ctrl, testLogger())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Stop()
		ts.Close()
	})
	return ts
}

func next(t *testing.T, c *Client) *server.Message {
	t.Helper()
	select {
	case msg, ok := <-c.Events():
		require.True(t, ok, "events closed")
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestClientPlaysATurn(t *testing.T) {
	ts := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, WaitForServer(ctx, ts.URL))

	c := New(ts.URL, testLogger())
	require.NoError(t, c.Connect(ctx))
	defer c.Close()

	authID, err := c.Auth("alice", "")
	require.NoError(t, err)
	msg := next(t, c)
	assert.Equal(t, server.MessageTypeAuthResponse, msg.Type)
	assert.Equal(t, authID, msg.RequestID)
	assert.Equal(t, "alice", c.Player())

	startID, err := c.Start()
	require.NoError(t, err)
	assert.NotEqual(t, authID, startID)

	msg = next(t, c)
	require.Equal(t, server.MessageTypeSessionView, msg.Type)
	var view session.View
	require.NoError(t, msg.Decode(&view))
	assert.Equal(t, session.PhaseActive, view.Phase)

	_, err = c.Act(session.ActionDefend, view.SessionID)
	require.NoError(t, err)
	msg = next(t, c)
	require.NoError(t, msg.Decode(&view))
	assert.Equal(t, 2, view.Round)

	_, err = c.Act(session.ActionRematch, "")
	require.NoError(t, err)
	msg = next(t, c)
	assert.Equal(t, server.MessageTypeError, msg.Type)
}

func TestClientCloseEndsEvents(t *testing.T) {
	ts := startServer(t)
	c := New(ts.URL, testLogger())
	require.NoError(t, c.Connect(context.Background()))
	require.NoError(t, c.Close())

	select {
	case _, ok := <-c.Events():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("events not closed")
	}

	_, err := c.Start()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestWSURL(t *testing.T) {
	u, err := wsURL("http://localhost:8080")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/ws", u)

	u, err = wsURL("https://ring.example.com/")
	require.NoError(t, err)
	assert.Equal(t, "wss://ring.example.com/ws", u)

	_, err = wsURL("ftp://nope")
	assert.Error(t, err)
}

func TestWaitForServerHonoursContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err := WaitForServer(ctx, "http://127.0.0.1:1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
