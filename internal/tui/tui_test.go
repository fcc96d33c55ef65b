package tui

import (
	"io"
	"os"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/ringside/internal/combat"
	"github.com/lox/ringside/internal/server"
	"github.com/lox/ringside/internal/session"
)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

func newLocalModel(t *testing.T) (*Model, *LocalDriver) {
	t.Helper()
	logger := log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel}) // Quiet logger for tests
	res, err := combat.NewResolver(combat.DefaultPlayerTable(), combat.DefaultBotTable(), combat.DefaultCooldown,
		&combat.ScriptedSource{FloatZero: 1})
	require.NoError(t, err)

	ctrl := session.NewController(session.NewRegistry(), res, logger)
	driver := NewLocalDriver(ctrl, "alice", quartz.NewMock(t))
	return New(driver, logger), driver
}

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// pressAndDeliver runs the key's command and feeds the resulting driver event
// back into the model.
func pressAndDeliver(t *testing.T, m *Model, d *LocalDriver, k string) {
	t.Helper()
	_, cmd := m.Update(keyPress(k))
	require.NotNil(t, cmd, "key %q did nothing", k)
	assert.Nil(t, cmd())

	select {
	case msg := <-d.events:
		_, next := m.Update(msg)
		assert.NotNil(t, next, "model must keep listening")
	case <-time.After(time.Second):
		t.Fatalf("no event after %q", k)
	}
}

func TestModelPlaysThroughAMatch(t *testing.T) {
	m, d := newLocalModel(t)
	assert.True(t, m.keys.Start.Enabled())
	assert.False(t, m.keys.Jab.Enabled())
	assert.Contains(t, m.View(), "Press s to start")

	pressAndDeliver(t, m, d, "s")
	require.NotNil(t, m.view)
	assert.Equal(t, 1, m.view.Round)
	assert.False(t, m.keys.Start.Enabled())
	assert.True(t, m.keys.Uppercut.Enabled())
	assert.False(t, m.keys.Rematch.Enabled())
	assert.Contains(t, m.View(), "Boxing Match")

	pressAndDeliver(t, m, d, "1")
	assert.Equal(t, 2, m.view.Round)
	assert.Contains(t, m.View(), "You attempted a jab but missed!")

	_, cmd := m.Update(keyPress("r"))
	assert.Nil(t, cmd, "rematch is not offered mid-fight")

	pressAndDeliver(t, m, d, "f")
	require.NotNil(t, m.view)
	assert.Equal(t, session.PhaseEndedForfeit, m.view.Phase)
	assert.True(t, m.keys.Rematch.Enabled())
	assert.False(t, m.keys.Jab.Enabled())

	pressAndDeliver(t, m, d, "m")
	assert.Nil(t, m.view)
	assert.True(t, m.keys.Start.Enabled())
	assert.Contains(t, m.View(), "Match over. Start a new match to play again.")
}

func TestModelShowsRejections(t *testing.T) {
	m, d := newLocalModel(t)
	pressAndDeliver(t, m, d, "s")

	// The special lands on cooldown the second time at the same instant.
	pressAndDeliver(t, m, d, "4")
	pressAndDeliver(t, m, d, "4")
	assert.True(t, m.isError)
	assert.Contains(t, m.View(), "cooldown")
	assert.Equal(t, 2, m.view.Round)
}

func TestModelExpiry(t *testing.T) {
	m, d := newLocalModel(t)
	pressAndDeliver(t, m, d, "s")

	d.Expired("bob", session.View{Owner: "bob"})
	d.Expired("alice", session.View{Owner: "alice", Phase: session.PhaseEndedTimeout, Narrative: "timed out", Allowed: session.Allowed(session.PhaseEndedTimeout)})

	_, cmd := m.Update(d.Next())
	assert.NotNil(t, cmd)
	assert.Nil(t, m.view)
	assert.Contains(t, m.View(), "timed out")
	assert.Empty(t, d.events, "other owners' expiries are ignored")
}

func TestModelQuit(t *testing.T) {
	m, _ := newLocalModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.View())
}

func TestTranslate(t *testing.T) {
	mk := func(mt server.MessageType, data any) *server.Message {
		msg, err := server.NewMessage(mt, data, time.Now())
		require.NoError(t, err)
		return msg
	}

	out := translate(mk(server.MessageTypeSessionExpired, session.View{Owner: "alice", Round: 3}))
	assert.Equal(t, ViewMsg{View: session.View{Owner: "alice", Round: 3}, Expired: true}, out)

	out = translate(mk(server.MessageTypeError, server.ErrorData{Code: server.CodeNotOwner, Message: "nope"}))
	assert.Equal(t, ErrorMsg{Message: "nope"}, out)

	out = translate(mk(server.MessageTypeAuthResponse, server.AuthResponseData{Success: true, Player: "alice"}))
	assert.Equal(t, StatusMsg{Message: "Signed in as alice"}, out)

	assert.Nil(t, translate(mk(server.MessageTypeWatch, nil)))
}
