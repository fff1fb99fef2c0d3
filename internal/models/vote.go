package models

import (
	"time"

	"github.com/google/uuid"
)

// Vote is a single student's answer to a poll. Immutable once recorded;
// the storage layer enforces one vote per (poll, session) pair.
type Vote struct {
	ID               uuid.UUID `json:"id"`
	PollID           uuid.UUID `json:"pollId"`
	OptionID         uuid.UUID `json:"optionId"`
	StudentSessionID string    `json:"studentSessionId"`
	StudentName      string    `json:"studentName"`
	VotedAt          time.Time `json:"votedAt"`
}

// VoteResult is the per-option aggregate returned to clients.
type VoteResult struct {
	OptionID   uuid.UUID `json:"optionId"`
	OptionText string    `json:"optionText"`
	Count      int       `json:"count"`
	Percentage float64   `json:"percentage"`
}

// DetailedVote is the teacher-only per-student view of a vote.
type DetailedVote struct {
	StudentName string    `json:"studentName"`
	OptionText  string    `json:"optionText"`
	VotedAt     time.Time `json:"votedAt"`
}
