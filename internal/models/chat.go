package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is an in-memory, best-effort chat entry scoped to a poll.
// Chat is never persisted; messages are dropped when the poll ends.
type ChatMessage struct {
	ID               uuid.UUID `json:"id"`
	PollID           uuid.UUID `json:"pollId"`
	StudentSessionID string    `json:"studentSessionId"`
	StudentName      string    `json:"studentName"`
	Message          string    `json:"message"`
	Timestamp        time.Time `json:"timestamp"`
}
