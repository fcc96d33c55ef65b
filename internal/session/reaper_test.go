package session

import (
	"context"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/ringside/internal/combat"
)

type reaperHarness struct {
	clock   *quartz.Mock
	reaper  *Reaper
	ctrl    *Controller
	expired chan View
}

func newReaperHarness(t *testing.T, window time.Duration) *reaperHarness {
	t.Helper()
	h := &reaperHarness{
		clock:   quartz.NewMock(t),
		expired: make(chan View, 4),
	}
	res, err := combat.NewResolver(combat.DefaultPlayerTable(), combat.DefaultBotTable(), combat.DefaultCooldown,
		&combat.ScriptedSource{FloatZero: 1})
	require.NoError(t, err)

	reg := NewRegistry()
	h.reaper = NewReaper(reg, h.clock, window, testLogger(), func(owner string, v View) {
		h.expired <- v
	})
	t.Cleanup(h.reaper.Stop)
	h.ctrl = NewController(reg, res, testLogger(), WithActivityTracker(h.reaper))
	return h
}

func (h *reaperHarness) advance(t *testing.T, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	h.clock.Advance(d).MustWait(ctx)
}

func (h *reaperHarness) expectExpired(t *testing.T) View {
	t.Helper()
	select {
	case v := <-h.expired:
		return v
	case <-time.After(time.Second):
		t.Fatal("expected the match to expire")
		return View{}
	}
}

func (h *reaperHarness) expectNothing(t *testing.T) {
	t.Helper()
	select {
	case v := <-h.expired:
		t.Fatalf("unexpected expiry of %s", v.Owner)
	default:
	}
}

func TestReaperExpiresIdleMatch(t *testing.T) {
	h := newReaperHarness(t, time.Minute)

	_, err := h.ctrl.Start("alice", h.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, h.reaper.Pending())

	h.advance(t, time.Minute)

	v := h.expectExpired(t)
	assert.Equal(t, "alice", v.Owner)
	assert.Equal(t, PhaseEndedTimeout, v.Phase)
	assert.Equal(t, []ActionKind{ActionDismiss}, v.Allowed)
	assert.Equal(t, "timeout", v.MediaKey)
	assert.Zero(t, h.ctrl.Registry().Len())
	assert.Zero(t, h.reaper.Pending())

	_, err = h.ctrl.HandleAction(press("alice", ActionLight, h.clock.Now()))
	assert.ErrorIs(t, err, ErrNoActiveSession, "a press racing the timeout sees the match gone")
}

func TestReaperActivityPushesDeadline(t *testing.T) {
	h := newReaperHarness(t, time.Minute)

	_, err := h.ctrl.Start("alice", h.clock.Now())
	require.NoError(t, err)

	h.advance(t, 40*time.Second)
	_, err = h.ctrl.HandleAction(press("alice", ActionDefend, h.clock.Now()))
	require.NoError(t, err)

	h.advance(t, 40*time.Second)
	h.expectNothing(t)
	_, ok := h.ctrl.Peek("alice")
	assert.True(t, ok)

	h.advance(t, 20*time.Second)
	v := h.expectExpired(t)
	assert.Equal(t, 2, v.Round)
}

func TestReaperRearmsWhenActivityRacedTimer(t *testing.T) {
	h := newReaperHarness(t, time.Minute)

	_, err := h.ctrl.Start("alice", h.clock.Now())
	require.NoError(t, err)

	// Activity recorded under the lock whose Touch has not landed yet.
	l := h.ctrl.Registry().Lock("alice")
	l.Lock()
	st, _ := h.ctrl.Registry().Get("alice")
	st.LastActivity = st.LastActivity.Add(20 * time.Second)
	l.Unlock()

	h.advance(t, time.Minute)
	h.expectNothing(t)
	assert.Equal(t, 1, h.ctrl.Registry().Len())

	h.advance(t, 20*time.Second)
	h.expectExpired(t)
}

func TestReaperClosesEndedMatches(t *testing.T) {
	h := newReaperHarness(t, time.Minute)

	_, err := h.ctrl.Start("alice", h.clock.Now())
	require.NoError(t, err)
	_, err = h.ctrl.HandleAction(press("alice", ActionForfeit, h.clock.Now()))
	require.NoError(t, err)

	h.advance(t, time.Minute)
	v := h.expectExpired(t)
	assert.Equal(t, PhaseEndedTimeout, v.Phase)
	assert.Contains(t, v.Narrative, "closed")
}

func TestReaperDismissCancelsDeadline(t *testing.T) {
	h := newReaperHarness(t, time.Minute)

	_, err := h.ctrl.Start("alice", h.clock.Now())
	require.NoError(t, err)
	_, err = h.ctrl.HandleDismiss(press("alice", ActionDismiss, h.clock.Now()))
	require.NoError(t, err)
	assert.Zero(t, h.reaper.Pending())

	_, err = h.ctrl.Start("alice", h.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, h.reaper.Pending())
}

func TestReaperStop(t *testing.T) {
	h := newReaperHarness(t, time.Minute)
	_, err := h.ctrl.Start("alice", h.clock.Now())
	require.NoError(t, err)

	h.reaper.Stop()
	assert.Zero(t, h.reaper.Pending())

	h.reaper.Touch("bob")
	assert.Zero(t, h.reaper.Pending())
}
