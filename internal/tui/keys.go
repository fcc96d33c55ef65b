package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/lox/ringside/internal/render"
	"github.com/lox/ringside/internal/session"
)

type keyMap struct {
	Jab      key.Binding
	Cross    key.Binding
	Hook     key.Binding
	Uppercut key.Binding
	Defend   key.Binding
	Forfeit  key.Binding
	Rematch  key.Binding
	Dismiss  key.Binding
	Start    key.Binding
	Quit     key.Binding
}

func newKeyMap() keyMap {
	bind := func(k string, kind session.ActionKind) key.Binding {
		return key.NewBinding(key.WithKeys(k), key.WithHelp(k, render.Label(kind)))
	}
	return keyMap{
		Jab:      bind("1", session.ActionLight),
		Cross:    bind("2", session.ActionMedium),
		Hook:     bind("3", session.ActionHeavy),
		Uppercut: bind("4", session.ActionSpecial),
		Defend:   bind("d", session.ActionDefend),
		Forfeit:  bind("f", session.ActionForfeit),
		Rematch:  bind("r", session.ActionRematch),
		Dismiss:  bind("m", session.ActionDismiss),
		Start:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "New match")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "Quit")),
	}
}

// actions pairs each match control with its binding.
func (k *keyMap) actions() []struct {
	binding *key.Binding
	kind    session.ActionKind
} {
	return []struct {
		binding *key.Binding
		kind    session.ActionKind
	}{
		{&k.Jab, session.ActionLight},
		{&k.Cross, session.ActionMedium},
		{&k.Hook, session.ActionHeavy},
		{&k.Uppercut, session.ActionSpecial},
		{&k.Defend, session.ActionDefend},
		{&k.Forfeit, session.ActionForfeit},
		{&k.Rematch, session.ActionRematch},
		{&k.Dismiss, session.ActionDismiss},
	}
}

// sync enables exactly the controls offered by v. Start is only offered when
// there is no match to play.
func (k *keyMap) sync(v *session.View) {
	for _, a := range k.actions() {
		a.binding.SetEnabled(v != nil && v.Allows(a.kind))
	}
	k.Start.SetEnabled(v == nil || len(v.Allowed) == 0)
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Jab, k.Cross, k.Hook, k.Uppercut, k.Defend, k.Forfeit, k.Rematch, k.Dismiss, k.Start, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Jab, k.Cross, k.Hook, k.Uppercut},
		{k.Defend, k.Forfeit},
		{k.Rematch, k.Dismiss, k.Start, k.Quit},
	}
}
