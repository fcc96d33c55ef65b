// Package combat resolves single exchanges of a boxing bout. Nothing here
// blocks or keeps state beyond the Bout it is handed; callers serialize
// access to a Bout themselves.
package combat

import (
	"fmt"
	"time"
)

// Outcome is the result of one attack.
type Outcome int

const (
	Invalid Outcome = iota
	Hit
	Miss
	OnCooldown
)

func (o Outcome) String() string {
	switch o {
	case Hit:
		return "hit"
	case Miss:
		return "miss"
	case OnCooldown:
		return "on_cooldown"
	default:
		return "invalid"
	}
}

// Source is the randomness the resolver draws from.
type Source interface {
	Float64() float64
	IntN(n int) int
}

// Bout is the part of a session the resolver reads and writes.
type Bout struct {
	PlayerHP      int
	OpponentHP    int
	Defending     bool
	LastSpecialAt time.Time
}

// BotResult describes the bot's half of a turn.
type BotResult struct {
	Move    Move
	Label   string
	Damage  int
	Outcome Outcome
}

// Resolver computes attack, defend and bot-turn outcomes.
type Resolver struct {
	player   Table
	bot      Table
	cooldown time.Duration
	rng      Source
}

// NewResolver validates both tables and returns a resolver drawing from rng.
func NewResolver(player, bot Table, cooldown time.Duration, rng Source) (*Resolver, error) {
	if err := player.Validate(); err != nil {
		return nil, fmt.Errorf("player table: %w", err)
	}
	if err := bot.Validate(); err != nil {
		return nil, fmt.Errorf("bot table: %w", err)
	}
	if _, ok := bot.Lookup(Special); ok {
		return nil, fmt.Errorf("bot table: %s is player-only", Special)
	}
	if cooldown < 0 {
		return nil, fmt.Errorf("cooldown must not be negative")
	}
	return &Resolver{player: player, bot: bot, cooldown: cooldown, rng: rng}, nil
}

// PlayerStats returns the player's row for m.
func (r *Resolver) PlayerStats(m Move) (Stats, bool) {
	return r.player.Lookup(m)
}

// CooldownRemaining returns how long until the special is available again.
func (r *Resolver) CooldownRemaining(b *Bout, now time.Time) time.Duration {
	if b.LastSpecialAt.IsZero() {
		return 0
	}
	left := r.cooldown - now.Sub(b.LastSpecialAt)
	if left < 0 {
		return 0
	}
	return left
}

// ResolvePlayerAttack throws move at the opponent. OnCooldown and Invalid
// leave b untouched.
func (r *Resolver) ResolvePlayerAttack(move Move, b *Bout, now time.Time) (int, Outcome) {
	stats, ok := r.player.Lookup(move)
	if !ok {
		return 0, Invalid
	}
	if move == Special {
		if r.CooldownRemaining(b, now) > 0 {
			return 0, OnCooldown
		}
		b.LastSpecialAt = now
	}

	dmg, outcome := r.roll(stats)
	if outcome == Hit {
		b.OpponentHP -= dmg
	}
	return dmg, outcome
}

// ResolveDefend raises the guard for the bot's next attack.
func (r *Resolver) ResolveDefend(b *Bout) {
	b.Defending = true
}

// ResolveBotTurn picks a bot move uniformly and applies it to the player.
func (r *Resolver) ResolveBotTurn(b *Bout) BotResult {
	stats := r.bot[r.rng.IntN(len(r.bot))]
	dmg, outcome := r.roll(stats)
	if outcome == Hit {
		if b.Defending {
			dmg /= 2
		}
		b.PlayerHP -= dmg
	}
	return BotResult{Move: stats.Move, Label: stats.Label, Damage: dmg, Outcome: outcome}
}

func (r *Resolver) roll(s Stats) (int, Outcome) {
	if r.rng.Float64() > s.Chance {
		return 0, Miss
	}
	return s.Min + r.rng.IntN(s.Max-s.Min+1), Hit
}
