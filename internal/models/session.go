package models

import (
	"time"

	"github.com/google/uuid"
)

// StudentSession tracks a student's presence. The session ID is an opaque
// client-generated token that survives reconnects; IsBlocked is a one-way
// latch set by teacher removal.
type StudentSession struct {
	SessionID     string    `json:"sessionId"`
	PollID        uuid.UUID `json:"pollId"`
	StudentName   string    `json:"studentName"`
	IsActive      bool      `json:"isActive"`
	IsBlocked     bool      `json:"isBlocked"`
	LastHeartbeat time.Time `json:"lastHeartbeat"`
	CreatedAt     time.Time `json:"createdAt"`
}
