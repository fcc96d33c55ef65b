package session

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotOwner is returned when someone other than the owner presses a
	// control on a session.
	ErrNotOwner = errors.New("this match isn't yours")

	// ErrNoActiveSession is returned for actions against a missing, ended or
	// replaced session.
	ErrNoActiveSession = errors.New("the match has ended")

	// ErrOnCooldown is returned when the special move is used too soon.
	ErrOnCooldown = errors.New("special move is on cooldown")

	// ErrAlreadyActive is returned when starting while a match is in progress.
	ErrAlreadyActive = errors.New("you already have an active match, use your current match controls")

	// ErrInvalidMove is returned for unrecognized action tokens.
	ErrInvalidMove = errors.New("invalid move")

	// ErrStillActive is returned for a rematch while the match is still running.
	ErrStillActive = errors.New("the match is still in progress")
)

// CooldownError carries how long the owner has to wait for the special.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s: ready in %.1fs", ErrOnCooldown, e.Remaining.Seconds())
}

func (e *CooldownError) Unwrap() error {
	return ErrOnCooldown
}
