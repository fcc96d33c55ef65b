// Package tui is the terminal front end for a match.
package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/lox/ringside/internal/render"
	"github.com/lox/ringside/internal/session"
)

// Model is the Bubble Tea model for one player's match.
type Model struct {
	driver Driver
	logger *log.Logger
	keys   keyMap
	help   help.Model

	view     *session.View
	notice   string
	isError  bool
	status   string
	quitting bool
	width    int
}

// New creates a model that plays through driver.
func New(driver Driver, logger *log.Logger) *Model {
	m := &Model{
		driver: driver,
		logger: logger.WithPrefix("tui"),
		keys:   newKeyMap(),
		help:   help.New(),
		notice: "Press s to start a match.",
	}
	m.keys.sync(nil)
	return m
}

// Init starts listening for driver events
func (m *Model) Init() tea.Cmd {
	return m.waitForEvent()
}

func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return m.driver.Next()
	}
}

// press sends kind to the driver off the UI goroutine.
func (m *Model) press(kind session.ActionKind) tea.Cmd {
	sessionID := ""
	if m.view != nil {
		sessionID = m.view.SessionID
	}
	return func() tea.Msg {
		if err := m.driver.Act(kind, sessionID); err != nil {
			return ErrorMsg{Message: err.Error()}
		}
		return nil
	}
}

func (m *Model) start() tea.Cmd {
	return func() tea.Msg {
		if err := m.driver.Start(); err != nil {
			return ErrorMsg{Message: err.Error()}
		}
		return nil
	}
}

// Update handles messages in the TUI
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case ViewMsg:
		v := msg.View
		if msg.Expired || len(v.Allowed) == 0 {
			m.view = nil
			m.setNotice(v.Narrative, false)
		} else {
			m.view = &v
			m.notice = ""
		}
		m.keys.sync(m.view)
		m.logger.Debug("Match updated", "phase", v.Phase, "round", v.Round, "expired", msg.Expired)
		return m, m.waitForEvent()

	case ErrorMsg:
		m.setNotice(msg.Message, true)
		return m, m.waitForEvent()

	case StatusMsg:
		m.status = msg.Message
		return m, m.waitForEvent()

	case DisconnectedMsg:
		m.setNotice("Disconnected from server", true)
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, m.keys.Quit) {
		m.quitting = true
		return tea.Quit
	}
	if key.Matches(msg, m.keys.Start) {
		return m.start()
	}
	for _, a := range m.keys.actions() {
		if key.Matches(msg, *a.binding) {
			return m.press(a.kind)
		}
	}
	return nil
}

func (m *Model) setNotice(s string, isError bool) {
	m.notice = s
	m.isError = isError
}

// View renders the TUI
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	if m.status != "" {
		b.WriteString(render.MutedStyle.Render(m.status))
		b.WriteString("\n\n")
	}
	if m.view != nil {
		b.WriteString(render.Match(*m.view))
		b.WriteString("\n")
	}
	if m.notice != "" {
		style := lipgloss.NewStyle()
		if m.isError {
			style = render.DangerStyle
		}
		b.WriteString("\n")
		b.WriteString(style.Render(render.Narrative(m.notice)))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}
