package session

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

// DefaultIdleTimeout is how long a match may sit without accepted activity.
const DefaultIdleTimeout = 300 * time.Second

// ExpireFunc receives the final view of a match the reaper evicted.
type ExpireFunc func(owner string, view View)

// Reaper keeps one deadline timer per owner and evicts matches that go idle.
// Expiry takes the same owner lock as the controller, so it either runs
// before an in-flight action (which then sees no session) or after it (and
// finds fresh activity and re-arms).
type Reaper struct {
	registry *Registry
	clock    quartz.Clock
	window   time.Duration
	onExpire ExpireFunc
	logger   *log.Logger

	mu      sync.Mutex
	timers  map[string]*quartz.Timer
	stopped bool
}

// NewReaper builds a reaper over registry. onExpire may be nil.
func NewReaper(registry *Registry, clock quartz.Clock, window time.Duration, logger *log.Logger, onExpire ExpireFunc) *Reaper {
	if window <= 0 {
		window = DefaultIdleTimeout
	}
	return &Reaper{
		registry: registry,
		clock:    clock,
		window:   window,
		onExpire: onExpire,
		logger:   logger.WithPrefix("reaper"),
		timers:   make(map[string]*quartz.Timer),
	}
}

// Window returns the idle window.
func (r *Reaper) Window() time.Duration {
	return r.window
}

// Touch pushes owner's deadline a full window into the future.
func (r *Reaper) Touch(owner string) {
	r.arm(owner, r.window)
}

// Forget cancels owner's deadline.
func (r *Reaper) Forget(owner string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.timers[owner]; ok {
		t.Stop()
		delete(r.timers, owner)
	}
}

// Pending returns the number of armed deadlines.
func (r *Reaper) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

// Stop cancels every deadline. Later Touch calls are ignored.
func (r *Reaper) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	for owner, t := range r.timers {
		t.Stop()
		delete(r.timers, owner)
	}
}

func (r *Reaper) arm(owner string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	if t, ok := r.timers[owner]; ok {
		t.Reset(d, "reaper", "reset")
		return
	}
	r.timers[owner] = r.clock.AfterFunc(d, func() { r.expire(owner) }, "reaper", "arm")
}

func (r *Reaper) expire(owner string) {
	lock := r.registry.Lock(owner)
	lock.Lock()

	st, ok := r.registry.Get(owner)
	if !ok {
		lock.Unlock()
		r.Forget(owner)
		return
	}

	idle := r.clock.Now().Sub(st.LastActivity)
	if idle < r.window {
		r.arm(owner, r.window-idle)
		lock.Unlock()
		return
	}

	if st.Phase == PhaseActive {
		st.Narrative = "The match timed out due to inactivity."
	} else {
		st.Narrative = "The match was closed due to inactivity."
	}
	st.Phase = PhaseEndedTimeout
	st.MediaKey = "timeout"
	view := st.View()
	r.registry.Remove(owner)
	r.Forget(owner)
	lock.Unlock()

	r.logger.Info("Match expired", "owner", owner, "session", st.ID, "idle", idle)
	if r.onExpire != nil {
		r.onExpire(owner, view)
	}
}
