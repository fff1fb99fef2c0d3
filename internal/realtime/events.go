package realtime

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/classpulse/backend/internal/models"
	"github.com/classpulse/backend/internal/timer"
)

// EventType names a websocket event. The inbound set is closed: every type
// has an entry in the router's handler table, and anything else is rejected
// with an error event.
type EventType string

// Inbound events.
const (
	EventJoinTeacher   EventType = "join:teacher"
	EventJoinStudent   EventType = "join:student"
	EventPollCreate    EventType = "poll:create"
	EventPollEnd       EventType = "poll:end"
	EventVoteSubmit    EventType = "vote:submit"
	EventStudentRemove EventType = "student:remove"
	EventHeartbeat     EventType = "heartbeat"
	EventPollSync      EventType = "poll:sync"
	EventStateRequest  EventType = "state:request"
	EventChatSend      EventType = "chat:send"
)

// Outbound events.
const (
	EventPollCreated       EventType = "poll:created"
	EventPollEnded         EventType = "poll:ended"
	EventPollExpired       EventType = "poll:expired"
	EventTimerTick         EventType = "timer:tick"
	EventTimerSync         EventType = "timer:sync"
	EventVoteUpdateTeacher EventType = "vote:update:teacher"
	EventVoteUpdateStudent EventType = "vote:update:student"
	EventStudentsUpdate    EventType = "students:update"
	EventChatMessage       EventType = "chat:message"
	EventStudentRemoved    EventType = "student:removed"
	EventStateCurrent      EventType = "state:current"
	EventError             EventType = "error"
)

// Message is the websocket envelope.
type Message struct {
	Event EventType       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinStudentPayload is the body of join:student.
type JoinStudentPayload struct {
	SessionID   string    `json:"sessionId"`
	PollID      uuid.UUID `json:"pollId"`
	StudentName string    `json:"studentName"`
}

// PollCreatePayload is the body of poll:create.
type PollCreatePayload struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Duration int      `json:"duration"`
}

// PollRefPayload references a poll by id (poll:end, poll:sync).
type PollRefPayload struct {
	PollID uuid.UUID `json:"pollId"`
}

// VoteSubmitPayload is the body of vote:submit.
type VoteSubmitPayload struct {
	PollID           uuid.UUID `json:"pollId"`
	OptionID         uuid.UUID `json:"optionId"`
	StudentSessionID string    `json:"studentSessionId"`
	StudentName      string    `json:"studentName"`
}

// StudentRemovePayload is the body of student:remove.
type StudentRemovePayload struct {
	SessionID string    `json:"sessionId"`
	PollID    uuid.UUID `json:"pollId"`
}

// HeartbeatPayload is the body of heartbeat.
type HeartbeatPayload struct {
	SessionID string `json:"sessionId"`
}

// StateRequestPayload is the body of state:request. The snapshot's shape is
// decided by the connection role, never by the payload.
type StateRequestPayload struct {
	SessionID string `json:"sessionId"`
}

// ChatSendPayload is the body of chat:send.
type ChatSendPayload struct {
	PollID           uuid.UUID `json:"pollId"`
	StudentSessionID string    `json:"studentSessionId"`
	StudentName      string    `json:"studentName"`
	Message          string    `json:"message"`
}

// TimerTickPayload is broadcast every second while a poll runs.
type TimerTickPayload struct {
	PollID    uuid.UUID `json:"pollId"`
	Remaining int       `json:"remaining"`
}

// TimerSyncPayload carries the authoritative timer state for drift correction.
type TimerSyncPayload struct {
	PollID uuid.UUID `json:"pollId"`
	timer.State
}

// TeacherVoteUpdate is the teacher-scope payload after a vote: full detail.
type TeacherVoteUpdate struct {
	Results       []models.VoteResult   `json:"results"`
	DetailedVotes []models.DetailedVote `json:"detailedVotes"`
	TotalVotes    int                   `json:"totalVotes"`
}

// StudentVoteUpdate is the student-scope payload after a vote. It carries
// aggregates only; students never see other students' identities.
type StudentVoteUpdate struct {
	Results    []models.VoteResult `json:"results"`
	TotalVotes int                 `json:"totalVotes"`
}

// ErrorPayload is sent on the requesting channel when an operation fails.
type ErrorPayload struct {
	Message string `json:"message"`
}
