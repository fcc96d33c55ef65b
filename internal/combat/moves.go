package combat

import (
	"fmt"
	"time"
)

// Move identifies an attack. The set is closed; anything else is rejected.
type Move string

const (
	Light   Move = "light"
	Medium  Move = "medium"
	Heavy   Move = "heavy"
	Special Move = "special"
)

// Moves lists the attacks in ladder order, weakest first.
var Moves = []Move{Light, Medium, Heavy, Special}

// String returns the string representation of the move
func (m Move) String() string {
	return string(m)
}

// IsValid reports whether m is one of the known attacks.
func (m Move) IsValid() bool {
	switch m {
	case Light, Medium, Heavy, Special:
		return true
	default:
		return false
	}
}

// Stats is one row of a move table.
type Stats struct {
	Move   Move
	Label  string  // shown in narration, e.g. "jab"
	Chance float64 // probability of landing, (0,1]
	Min    int
	Max    int
}

// Table is an ordered set of moves available to one side of the bout.
type Table []Stats

// Lookup returns the row for m.
func (t Table) Lookup(m Move) (Stats, bool) {
	for _, s := range t {
		if s.Move == m {
			return s, true
		}
	}
	return Stats{}, false
}

// Validate checks ranges and the risk/reward ladder: a move later in Moves
// must hit less often and hit harder than every move before it.
func (t Table) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("move table is empty")
	}

	seen := make(map[Move]bool, len(t))
	for _, s := range t {
		if !s.Move.IsValid() {
			return fmt.Errorf("unknown move %q", s.Move)
		}
		if seen[s.Move] {
			return fmt.Errorf("move %s listed twice", s.Move)
		}
		seen[s.Move] = true
		if s.Chance <= 0 || s.Chance > 1 {
			return fmt.Errorf("move %s: chance must be in (0,1], got %v", s.Move, s.Chance)
		}
		if s.Min < 0 || s.Max < s.Min {
			return fmt.Errorf("move %s: invalid damage range %d-%d", s.Move, s.Min, s.Max)
		}
	}

	var prev *Stats
	for _, m := range Moves {
		s, ok := t.Lookup(m)
		if !ok {
			continue
		}
		if prev != nil {
			if s.Chance >= prev.Chance {
				return fmt.Errorf("move %s must hit less often than %s", s.Move, prev.Move)
			}
			if s.Max <= prev.Max {
				return fmt.Errorf("move %s must hit harder than %s", s.Move, prev.Move)
			}
		}
		prev = &s
	}
	return nil
}

// DefaultPlayerTable is the player's move table.
func DefaultPlayerTable() Table {
	return Table{
		{Move: Light, Label: "jab", Chance: 0.95, Min: 8, Max: 12},
		{Move: Medium, Label: "cross", Chance: 0.90, Min: 10, Max: 16},
		{Move: Heavy, Label: "hook", Chance: 0.85, Min: 12, Max: 20},
		{Move: Special, Label: "uppercut", Chance: 0.75, Min: 18, Max: 28},
	}
}

// DefaultBotTable is the bot's move table. The bot never throws the special.
func DefaultBotTable() Table {
	return Table{
		{Move: Light, Label: "jab", Chance: 0.95, Min: 8, Max: 12},
		{Move: Medium, Label: "cross", Chance: 0.90, Min: 10, Max: 16},
		{Move: Heavy, Label: "hook", Chance: 0.85, Min: 12, Max: 20},
	}
}

// DefaultCooldown is the minimum gap between two special moves.
const DefaultCooldown = 3 * time.Second
