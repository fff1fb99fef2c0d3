// Package timer computes remaining poll time from stored state. It keeps no
// timer state of its own; the driving ticker lives in the real-time layer.
package timer

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/classpulse/backend/internal/models"
)

// PollSource resolves polls from durable state.
type PollSource interface {
	ByID(ctx context.Context, id uuid.UUID) (*models.Poll, error)
}

// State is the authoritative answer to "is this poll still running".
type State struct {
	Remaining  int       `json:"remaining"`
	ServerTime time.Time `json:"serverTime"`
	Expired    bool      `json:"expired"`
}

// Authority is the single definition of remaining time, used by the periodic
// sync broadcast, on-demand sync requests, and state recovery. When it says
// expired while the stored status is still active, the sync paths
// force-expire before answering; recovery only reports what it computed.
type Authority struct {
	polls PollSource
	now   func() time.Time
}

// NewAuthority creates a clock authority over the given poll source.
func NewAuthority(polls PollSource) *Authority {
	return &Authority{polls: polls, now: time.Now}
}

// State returns the remaining time for a poll. A missing or non-active poll
// reports expired with zero remaining rather than an error.
func (a *Authority) State(ctx context.Context, pollID uuid.UUID) (State, error) {
	now := a.now()
	poll, err := a.polls.ByID(ctx, pollID)
	if err != nil {
		return State{ServerTime: now, Expired: true}, err
	}
	if poll == nil || !poll.IsActive() {
		return State{ServerTime: now, Expired: true}, nil
	}
	return StateOf(poll, now), nil
}

// StateOf computes the timer state for an already-loaded poll.
func StateOf(poll *models.Poll, now time.Time) State {
	if poll == nil || !poll.IsActive() {
		return State{ServerTime: now, Expired: true}
	}
	elapsed := int(now.Sub(poll.StartedAt).Seconds())
	remaining := poll.Duration - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return State{
		Remaining:  remaining,
		ServerTime: now,
		Expired:    remaining == 0,
	}
}
