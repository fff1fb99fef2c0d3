// Package chat keeps a bounded, per-poll, in-memory message buffer. Chat is
// best-effort: it lives only as long as the process and is cleared when the
// poll reaches a terminal state.
package chat

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/classpulse/backend/internal/models"
)

// Log is a capped per-poll chat buffer.
type Log struct {
	mu       sync.Mutex
	messages map[uuid.UUID][]models.ChatMessage
	cap      int
	now      func() time.Time
}

// NewLog creates a chat log retaining at most capacity messages per poll.
func NewLog(capacity int) *Log {
	return &Log{
		messages: make(map[uuid.UUID][]models.ChatMessage),
		cap:      capacity,
		now:      time.Now,
	}
}

// Add appends a message to the poll's buffer, evicting the oldest once the
// cap is reached.
func (l *Log) Add(pollID uuid.UUID, sessionID, studentName, message string) models.ChatMessage {
	msg := models.ChatMessage{
		ID:               uuid.New(),
		PollID:           pollID,
		StudentSessionID: sessionID,
		StudentName:      studentName,
		Message:          strings.TrimSpace(message),
		Timestamp:        l.now(),
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	buf := append(l.messages[pollID], msg)
	if len(buf) > l.cap {
		buf = buf[len(buf)-l.cap:]
	}
	l.messages[pollID] = buf
	return msg
}

// Messages returns up to limit most-recent messages for a poll.
func (l *Log) Messages(pollID uuid.UUID, limit int) []models.ChatMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	buf := l.messages[pollID]
	if limit > 0 && len(buf) > limit {
		buf = buf[len(buf)-limit:]
	}
	out := make([]models.ChatMessage, len(buf))
	copy(out, buf)
	return out
}

// Clear drops all messages for a poll.
func (l *Log) Clear(pollID uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.messages, pollID)
}
