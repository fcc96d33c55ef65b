// Package session owns the lifecycle of boxing matches: the registry of
// matches per owner, the per-owner locking discipline, the turn state machine
// and idle expiry.
package session

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/ringside/internal/combat"
)

// ActivityTracker is told whenever a match sees accepted activity, and when
// a match goes away. The Reaper implements it.
type ActivityTracker interface {
	Touch(owner string)
	Forget(owner string)
}

type nopTracker struct{}

func (nopTracker) Touch(string)  {}
func (nopTracker) Forget(string) {}

// Controller interprets action requests against the registry.
type Controller struct {
	registry *Registry
	resolver *combat.Resolver
	tracker  ActivityTracker
	maxHP    int
	logger   *log.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithActivityTracker reports accepted activity to t.
func WithActivityTracker(t ActivityTracker) Option {
	return func(c *Controller) {
		c.tracker = t
	}
}

// WithMaxHP overrides the starting health of both fighters.
func WithMaxHP(hp int) Option {
	return func(c *Controller) {
		if hp > 0 {
			c.maxHP = hp
		}
	}
}

// NewController wires a controller over registry and resolver.
func NewController(registry *Registry, resolver *combat.Resolver, logger *log.Logger, opts ...Option) *Controller {
	c := &Controller{
		registry: registry,
		resolver: resolver,
		tracker:  nopTracker{},
		maxHP:    DefaultMaxHP,
		logger:   logger.WithPrefix("controller"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry returns the registry the controller works against.
func (c *Controller) Registry() *Registry {
	return c.registry
}

// Start opens a new match for owner.
func (c *Controller) Start(owner string, now time.Time) (View, error) {
	lock := c.registry.Lock(owner)
	lock.Lock()
	defer lock.Unlock()

	st := newState(owner, c.maxHP, now)
	if err := c.registry.Start(owner, st); err != nil {
		return View{}, err
	}
	c.tracker.Touch(owner)

	c.logger.Info("Match started", "owner", owner, "session", st.ID)
	return st.View(), nil
}

// Peek returns the current view of owner's match without changing it.
func (c *Controller) Peek(owner string) (View, bool) {
	lock, ok := c.lockTracked(owner)
	if !ok {
		return View{}, false
	}
	defer lock.Unlock()

	st, ok := c.registry.Get(owner)
	if !ok {
		return View{}, false
	}
	return st.View(), true
}

// Dispatch routes req to the handler for its kind.
func (c *Controller) Dispatch(req ActionRequest) (View, error) {
	switch req.Kind {
	case ActionRematch:
		return c.HandleRematch(req)
	case ActionDismiss:
		return c.HandleDismiss(req)
	default:
		return c.HandleAction(req)
	}
}

// HandleAction resolves one turn: the player's action and, unless the match
// ended on it, the bot's reply.
func (c *Controller) HandleAction(req ActionRequest) (View, error) {
	if req.Requester != req.Owner {
		return View{}, ErrNotOwner
	}
	switch req.Kind {
	case ActionDefend, ActionForfeit:
	default:
		if _, ok := req.Kind.Attack(); !ok {
			return View{}, ErrInvalidMove
		}
	}

	lock, ok := c.lockTracked(req.Owner)
	if !ok {
		return View{}, ErrNoActiveSession
	}
	defer lock.Unlock()

	st, err := c.current(req)
	if err != nil {
		return View{}, err
	}
	if st.Phase != PhaseActive {
		return View{}, ErrNoActiveSession
	}

	var narrative strings.Builder
	var media string

	switch req.Kind {
	case ActionForfeit:
		st.Phase = PhaseEndedForfeit
		st.Narrative = "You have forfeited the match. Better luck next time!"
		st.MediaKey = "forfeit"
		c.touch(st, req.At)
		c.logger.Info("Match forfeited", "owner", st.Owner, "session", st.ID, "round", st.Round)
		return st.View(), nil

	case ActionDefend:
		c.resolver.ResolveDefend(&st.Bout)
		narrative.WriteString("You brace yourself and take a defensive stance.")
		media = "defend"

	default:
		move, _ := req.Kind.Attack()
		dmg, outcome := c.resolver.ResolvePlayerAttack(move, &st.Bout, req.At)
		label := c.label(move)
		switch outcome {
		case combat.OnCooldown:
			return View{}, &CooldownError{Remaining: c.resolver.CooldownRemaining(&st.Bout, req.At)}
		case combat.Invalid:
			return View{}, ErrInvalidMove
		case combat.Miss:
			fmt.Fprintf(&narrative, "You attempted a **%s** but missed!", label)
			media = "miss:" + move.String()
		case combat.Hit:
			fmt.Fprintf(&narrative, "You landed a **%s** for **%d** damage!", label, dmg)
			media = "hit:" + move.String()
		}
	}

	if st.OpponentHP <= 0 {
		narrative.WriteString("\n\nYou knocked out the bot! You win!")
		st.Phase = PhaseEndedWin
		c.finishTurn(st, narrative.String(), "ko", req.At)
		c.logger.Info("Match won", "owner", st.Owner, "session", st.ID, "round", st.Round)
		return st.View(), nil
	}

	bot := c.resolver.ResolveBotTurn(&st.Bout)
	switch bot.Outcome {
	case combat.Miss:
		fmt.Fprintf(&narrative, "\nThe bot tried a **%s** but missed!", bot.Label)
	case combat.Hit:
		fmt.Fprintf(&narrative, "\nThe bot used **%s** and dealt **%d** damage to you!", bot.Label, bot.Damage)
	}

	if st.PlayerHP <= 0 {
		narrative.WriteString("\n\nYou have been knocked out by the bot. You lose.")
		st.Phase = PhaseEndedLoss
		media = "knocked_out"
		c.logger.Info("Match lost", "owner", st.Owner, "session", st.ID, "round", st.Round)
	}
	c.finishTurn(st, narrative.String(), media, req.At)

	c.logger.Debug("Turn resolved",
		"owner", st.Owner,
		"action", req.Kind,
		"round", st.Round,
		"playerHP", st.PlayerHP,
		"opponentHP", st.OpponentHP)
	return st.View(), nil
}

// HandleRematch replaces an ended match with a fresh one.
func (c *Controller) HandleRematch(req ActionRequest) (View, error) {
	if req.Requester != req.Owner {
		return View{}, ErrNotOwner
	}

	lock, ok := c.lockTracked(req.Owner)
	if !ok {
		return View{}, ErrNoActiveSession
	}
	defer lock.Unlock()

	old, err := c.current(req)
	if err != nil {
		return View{}, err
	}
	if !old.Phase.Ended() {
		return View{}, ErrStillActive
	}

	st := newState(req.Owner, c.maxHP, req.At)
	c.registry.Replace(req.Owner, st)
	c.tracker.Touch(req.Owner)

	c.logger.Info("Rematch started", "owner", req.Owner, "previous", old.ID, "session", st.ID)
	return st.View(), nil
}

// HandleDismiss drops owner's match, whatever its phase. Dismissing twice is
// not an error.
func (c *Controller) HandleDismiss(req ActionRequest) (View, error) {
	if req.Requester != req.Owner {
		return View{}, ErrNotOwner
	}

	view := View{Owner: req.Owner, Allowed: []ActionKind{}}
	if lock, ok := c.lockTracked(req.Owner); ok {
		if st, ok := c.registry.Remove(req.Owner); ok {
			view = st.View()
			view.Allowed = []ActionKind{}
			c.logger.Info("Match dismissed", "owner", req.Owner, "session", st.ID, "phase", st.Phase)
		}
		lock.Unlock()
	}
	view.Narrative = "Match over. Start a new match to play again."
	c.tracker.Forget(req.Owner)
	return view, nil
}

// lockTracked takes owner's lock only if owner has a match. Owners without
// one never get a lock allocated, so lookups for arbitrary names stay free.
// A miss is reported with no lock held.
func (c *Controller) lockTracked(owner string) (*sync.Mutex, bool) {
	if _, ok := c.registry.Get(owner); !ok {
		return nil, false
	}
	lock := c.registry.Lock(owner)
	lock.Lock()
	return lock, true
}

// current looks up the match req targets. The caller holds the owner lock.
func (c *Controller) current(req ActionRequest) (*State, error) {
	st, ok := c.registry.Get(req.Owner)
	if !ok {
		return nil, ErrNoActiveSession
	}
	if req.SessionID != "" && req.SessionID != st.ID {
		return nil, ErrNoActiveSession
	}
	return st, nil
}

func (c *Controller) finishTurn(st *State, narrative, media string, now time.Time) {
	st.Narrative = narrative
	st.MediaKey = media
	st.advanceRound()
	c.touch(st, now)
}

func (c *Controller) touch(st *State, now time.Time) {
	st.LastActivity = now
	c.tracker.Touch(st.Owner)
}

func (c *Controller) label(m combat.Move) string {
	if s, ok := c.resolver.PlayerStats(m); ok && s.Label != "" {
		return s.Label
	}
	return m.String()
}
