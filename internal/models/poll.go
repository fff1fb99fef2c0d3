package models

import (
	"time"

	"github.com/google/uuid"
)

// PollStatus is the lifecycle status of a poll.
type PollStatus string

const (
	// PollActive accepts votes; at most one poll is active system-wide.
	PollActive PollStatus = "active"
	// PollEnded is the terminal status for a teacher-initiated end.
	PollEnded PollStatus = "ended"
	// PollExpired is the terminal status for a timer- or sweep-initiated end.
	PollExpired PollStatus = "expired"
)

// PollOption is one answer choice within a poll.
type PollOption struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	VoteCount int       `json:"voteCount"`
}

// Poll is a timed multiple-choice question.
type Poll struct {
	ID         uuid.UUID    `json:"id"`
	Question   string       `json:"question"`
	Options    []PollOption `json:"options"`
	Duration   int          `json:"duration"` // seconds
	Status     PollStatus   `json:"status"`
	StartedAt  time.Time    `json:"startedAt"`
	EndedAt    *time.Time   `json:"endedAt,omitempty"`
	TotalVotes int          `json:"totalVotes"`
	CreatedAt  time.Time    `json:"createdAt"`
}

// IsActive reports whether the poll still accepts votes.
func (p *Poll) IsActive() bool {
	return p.Status == PollActive
}

// HasOption reports whether optionID belongs to this poll.
func (p *Poll) HasOption(optionID uuid.UUID) bool {
	for _, opt := range p.Options {
		if opt.ID == optionID {
			return true
		}
	}
	return false
}
