package session

import (
	"time"

	"github.com/lox/ringside/internal/combat"
)

// ActionKind is a control the owner can press.
type ActionKind string

const (
	ActionLight   ActionKind = ActionKind(combat.Light)
	ActionMedium  ActionKind = ActionKind(combat.Medium)
	ActionHeavy   ActionKind = ActionKind(combat.Heavy)
	ActionSpecial ActionKind = ActionKind(combat.Special)
	ActionDefend  ActionKind = "defend"
	ActionForfeit ActionKind = "forfeit"
	ActionRematch ActionKind = "rematch"
	ActionDismiss ActionKind = "dismiss"
)

// String returns the string representation of the action kind
func (k ActionKind) String() string {
	return string(k)
}

// IsValid reports whether k is a known control.
func (k ActionKind) IsValid() bool {
	switch k {
	case ActionLight, ActionMedium, ActionHeavy, ActionSpecial,
		ActionDefend, ActionForfeit, ActionRematch, ActionDismiss:
		return true
	default:
		return false
	}
}

// Attack returns the combat move for attack kinds.
func (k ActionKind) Attack() (combat.Move, bool) {
	m := combat.Move(k)
	return m, m.IsValid()
}

// ActionRequest is one button press. Requester is the authenticated identity
// that pressed it; Owner is whose match the control belongs to. SessionID is
// optional and pins the press to the match it was rendered for.
type ActionRequest struct {
	Requester string
	Owner     string
	SessionID string
	Kind      ActionKind
	At        time.Time
}
