package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/coder/quartz"

	"github.com/lox/ringside/internal/client"
	"github.com/lox/ringside/internal/server"
	"github.com/lox/ringside/internal/session"
)

// ViewMsg carries a fresh match card.
type ViewMsg struct {
	View    session.View
	Expired bool
}

// ErrorMsg is a rejected press.
type ErrorMsg struct {
	Message string
}

// StatusMsg is an informational line from the server.
type StatusMsg struct {
	Message string
}

// DisconnectedMsg means the driver can no longer deliver events.
type DisconnectedMsg struct{}

// Driver carries button presses to a match and match updates back.
type Driver interface {
	Start() error
	Act(kind session.ActionKind, sessionID string) error
	// Next blocks until the next event for the model.
	Next() tea.Msg
}

// LocalDriver plays against an in-process controller.
type LocalDriver struct {
	ctrl   *session.Controller
	owner  string
	clock  quartz.Clock
	events chan tea.Msg
}

// NewLocalDriver plays as owner on ctrl.
func NewLocalDriver(ctrl *session.Controller, owner string, clock quartz.Clock) *LocalDriver {
	return &LocalDriver{
		ctrl:   ctrl,
		owner:  owner,
		clock:  clock,
		events: make(chan tea.Msg, 16),
	}
}

func (d *LocalDriver) Start() error {
	d.publish(d.ctrl.Start(d.owner, d.clock.Now()))
	return nil
}

func (d *LocalDriver) Act(kind session.ActionKind, sessionID string) error {
	d.publish(d.ctrl.Dispatch(session.ActionRequest{
		Requester: d.owner,
		Owner:     d.owner,
		SessionID: sessionID,
		Kind:      kind,
		At:        d.clock.Now(),
	}))
	return nil
}

// Expired is the reaper callback for the local stack.
func (d *LocalDriver) Expired(owner string, v session.View) {
	if owner != d.owner {
		return
	}
	select {
	case d.events <- ViewMsg{View: v, Expired: true}:
	default:
	}
}

func (d *LocalDriver) Next() tea.Msg {
	return <-d.events
}

func (d *LocalDriver) publish(v session.View, err error) {
	if err != nil {
		d.events <- ErrorMsg{Message: err.Error()}
		return
	}
	d.events <- ViewMsg{View: v}
}

// RemoteDriver plays through a connected client.
type RemoteDriver struct {
	client *client.Client
}

// NewRemoteDriver wraps an authenticated-or-authenticating client.
func NewRemoteDriver(c *client.Client) *RemoteDriver {
	return &RemoteDriver{client: c}
}

func (d *RemoteDriver) Start() error {
	_, err := d.client.Start()
	return err
}

func (d *RemoteDriver) Act(kind session.ActionKind, sessionID string) error {
	_, err := d.client.Act(kind, sessionID)
	return err
}

func (d *RemoteDriver) Next() tea.Msg {
	for msg := range d.client.Events() {
		if out := translate(msg); out != nil {
			return out
		}
	}
	return DisconnectedMsg{}
}

func translate(msg *server.Message) tea.Msg {
	switch msg.Type {
	case server.MessageTypeSessionView, server.MessageTypeSessionExpired:
		var v session.View
		if err := msg.Decode(&v); err != nil {
			return ErrorMsg{Message: "malformed match update"}
		}
		return ViewMsg{View: v, Expired: msg.Type == server.MessageTypeSessionExpired}

	case server.MessageTypeError:
		var e server.ErrorData
		if err := msg.Decode(&e); err != nil {
			return ErrorMsg{Message: "request rejected"}
		}
		return ErrorMsg{Message: e.Message}

	case server.MessageTypeStatus:
		var s server.StatusData
		if err := msg.Decode(&s); err != nil {
			return nil
		}
		return StatusMsg{Message: s.Message}

	case server.MessageTypeAuthResponse:
		var a server.AuthResponseData
		if err := msg.Decode(&a); err != nil {
			return ErrorMsg{Message: "malformed auth response"}
		}
		if !a.Success {
			return ErrorMsg{Message: "Sign-in failed: " + a.Error}
		}
		return StatusMsg{Message: "Signed in as " + a.Player}
	}
	return nil
}
