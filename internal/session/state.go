package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/lox/ringside/internal/combat"
)

// Phase is a session's position in its lifecycle.
type Phase string

const (
	PhaseActive       Phase = "active"
	PhaseEndedWin     Phase = "ended_win"
	PhaseEndedLoss    Phase = "ended_loss"
	PhaseEndedForfeit Phase = "ended_forfeit"
	PhaseEndedTimeout Phase = "ended_timeout"
)

// String returns the string representation of the phase
func (p Phase) String() string {
	return string(p)
}

// Ended reports whether p is one of the terminal phases.
func (p Phase) Ended() bool {
	switch p {
	case PhaseEndedWin, PhaseEndedLoss, PhaseEndedForfeit, PhaseEndedTimeout:
		return true
	default:
		return false
	}
}

// DefaultMaxHP is the starting health of both fighters.
const DefaultMaxHP = 100

const openingNarrative = "Fight started! Choose your move below."

// State is one match. All fields are guarded by the owner's lock in the
// Registry; nothing outside this package mutates them.
type State struct {
	ID    string
	Owner string
	combat.Bout
	MaxHP        int
	Round        int
	Phase        Phase
	LastActivity time.Time
	Narrative    string
	MediaKey     string
}

func newState(owner string, maxHP int, now time.Time) *State {
	return &State{
		ID:    uuid.NewString(),
		Owner: owner,
		Bout: combat.Bout{
			PlayerHP:   maxHP,
			OpponentHP: maxHP,
		},
		MaxHP:        maxHP,
		Round:        1,
		Phase:        PhaseActive,
		LastActivity: now,
		Narrative:    openingNarrative,
	}
}

// advanceRound closes a fully resolved turn.
func (s *State) advanceRound() {
	s.Round++
	s.Defending = false
}

// View snapshots the state for rendering.
func (s *State) View() View {
	return View{
		SessionID:  s.ID,
		Owner:      s.Owner,
		Phase:      s.Phase,
		PlayerHP:   max(s.PlayerHP, 0),
		OpponentHP: max(s.OpponentHP, 0),
		MaxHP:      s.MaxHP,
		Round:      s.Round,
		Narrative:  s.Narrative,
		MediaKey:   s.MediaKey,
		Allowed:    Allowed(s.Phase),
	}
}

// View is the render-ready copy of a session handed to the boundary.
type View struct {
	SessionID  string       `json:"sessionId"`
	Owner      string       `json:"owner"`
	Phase      Phase        `json:"phase"`
	PlayerHP   int          `json:"playerHp"`
	OpponentHP int          `json:"opponentHp"`
	MaxHP      int          `json:"maxHp"`
	Round      int          `json:"round"`
	Narrative  string       `json:"narrative"`
	MediaKey   string       `json:"mediaKey,omitempty"`
	Allowed    []ActionKind `json:"allowed"`
}

// Allows reports whether kind is offered by the view.
func (v View) Allows(kind ActionKind) bool {
	for _, k := range v.Allowed {
		if k == kind {
			return true
		}
	}
	return false
}

// Allowed returns the controls offered in phase. A timed-out match has
// already been evicted, so there is nothing to rematch and only the
// idempotent dismiss is offered.
func Allowed(p Phase) []ActionKind {
	switch p {
	case PhaseActive:
		return []ActionKind{ActionLight, ActionMedium, ActionHeavy, ActionSpecial, ActionDefend, ActionForfeit}
	case PhaseEndedWin, PhaseEndedLoss, PhaseEndedForfeit:
		return []ActionKind{ActionRematch, ActionDismiss}
	case PhaseEndedTimeout:
		return []ActionKind{ActionDismiss}
	default:
		return []ActionKind{}
	}
}
