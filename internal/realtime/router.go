package realtime

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/classpulse/backend/internal/apperr"
	"github.com/classpulse/backend/internal/chat"
	"github.com/classpulse/backend/internal/polls"
	"github.com/classpulse/backend/internal/recovery"
	"github.com/classpulse/backend/internal/students"
	"github.com/classpulse/backend/internal/votes"
)

const handleTimeout = 10 * time.Second

type eventHandler func(ctx context.Context, c *Client, data json.RawMessage)

// Router dispatches inbound websocket events through a closed handler table.
// Every inbound EventType has exactly one entry; unknown events get an error
// reply instead of being silently dropped.
type Router struct {
	hub      *Hub
	co       *Coordinator
	polls    *polls.Service
	ledger   *votes.Ledger
	registry *students.Registry
	chatLog  *chat.Log
	recovery *recovery.Service
	logger   *zap.Logger

	handlers map[EventType]eventHandler
}

// NewRouter builds the dispatch table.
func NewRouter(
	hub *Hub,
	co *Coordinator,
	pollSvc *polls.Service,
	ledger *votes.Ledger,
	registry *students.Registry,
	chatLog *chat.Log,
	recoverySvc *recovery.Service,
	logger *zap.Logger,
) *Router {
	r := &Router{
		hub:      hub,
		co:       co,
		polls:    pollSvc,
		ledger:   ledger,
		registry: registry,
		chatLog:  chatLog,
		recovery: recoverySvc,
		logger:   logger,
	}
	r.handlers = map[EventType]eventHandler{
		EventJoinTeacher:   r.handleJoinTeacher,
		EventJoinStudent:   r.handleJoinStudent,
		EventPollCreate:    r.handlePollCreate,
		EventPollEnd:       r.handlePollEnd,
		EventVoteSubmit:    r.handleVoteSubmit,
		EventStudentRemove: r.handleStudentRemove,
		EventHeartbeat:     r.handleHeartbeat,
		EventPollSync:      r.handlePollSync,
		EventStateRequest:  r.handleStateRequest,
		EventChatSend:      r.handleChatSend,
	}
	return r
}

// Dispatch routes one inbound message.
func (r *Router) Dispatch(c *Client, msg Message) {
	handler, ok := r.handlers[msg.Event]
	if !ok {
		r.sendError(c, "unknown event")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()
	handler(ctx, c, msg.Data)
}

// ClientGone handles a dropped connection: students go soft-inactive so a
// heartbeat or rejoin can revive them.
func (r *Router) ClientGone(c *Client) {
	if c.Role != RoleStudent || c.SessionID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()
	if err := r.registry.Disconnect(ctx, c.SessionID); err != nil {
		r.logger.Error("disconnect student", zap.String("session_id", c.SessionID), zap.Error(err))
		return
	}
	if c.PollID != nil {
		r.co.broadcastRoster(*c.PollID)
	}
}

func (r *Router) sendError(c *Client, message string) {
	r.hub.Send(c, EventError, ErrorPayload{Message: message})
}

func (r *Router) handleJoinTeacher(_ context.Context, c *Client, _ json.RawMessage) {
	if c.Role != RoleTeacher {
		r.sendError(c, "teacher token required")
		return
	}
	r.hub.Join(ScopeTeacher, c)
	r.logger.Info("teacher joined", zap.String("client_id", c.ID))
}

func (r *Router) handleJoinStudent(ctx context.Context, c *Client, data json.RawMessage) {
	var p JoinStudentPayload
	if err := json.Unmarshal(data, &p); err != nil || p.SessionID == "" || p.StudentName == "" {
		r.sendError(c, "sessionId, pollId, and studentName are required")
		return
	}

	blocked, err := r.registry.IsBlocked(ctx, p.SessionID)
	if err != nil {
		r.sendError(c, "failed to join poll")
		return
	}
	if blocked {
		r.hub.Send(c, EventStudentRemoved, nil)
		return
	}

	if _, err := r.registry.CreateSession(ctx, p.SessionID, p.PollID, p.StudentName); err != nil {
		r.logger.Error("join student", zap.String("session_id", p.SessionID), zap.Error(err))
		r.sendError(c, "failed to join poll")
		return
	}

	c.SessionID = p.SessionID
	pollID := p.PollID
	c.PollID = &pollID
	r.hub.Join(ScopeStudent, c)
	r.hub.Join(PollScope(p.PollID), c)

	// Late joiners replay the poll's buffered chat on their own channel.
	for _, m := range r.chatLog.Messages(p.PollID, 0) {
		r.hub.Send(c, EventChatMessage, m)
	}

	r.co.broadcastRoster(p.PollID)
	r.logger.Info("student joined",
		zap.String("client_id", c.ID),
		zap.String("student", p.StudentName))
}

func (r *Router) handlePollCreate(ctx context.Context, c *Client, data json.RawMessage) {
	if c.Role != RoleTeacher {
		r.sendError(c, "only the teacher can create polls")
		return
	}
	var p PollCreatePayload
	if err := json.Unmarshal(data, &p); err != nil {
		r.sendError(c, "question, options, and duration are required")
		return
	}
	poll, err := r.polls.Create(ctx, p.Question, p.Options, p.Duration)
	if err != nil {
		r.replyDomainError(c, err, "failed to create poll")
		return
	}
	r.co.PollCreated(poll)
}

func (r *Router) handlePollEnd(ctx context.Context, c *Client, data json.RawMessage) {
	if c.Role != RoleTeacher {
		r.sendError(c, "only the teacher can end polls")
		return
	}
	var p PollRefPayload
	if err := json.Unmarshal(data, &p); err != nil {
		r.sendError(c, "pollId is required")
		return
	}
	poll, err := r.polls.End(ctx, p.PollID)
	if err != nil {
		r.replyDomainError(c, err, "failed to end poll")
		return
	}
	r.co.PollClosed(poll)
}

func (r *Router) handleVoteSubmit(ctx context.Context, c *Client, data json.RawMessage) {
	var p VoteSubmitPayload
	if err := json.Unmarshal(data, &p); err != nil || p.StudentSessionID == "" {
		r.sendError(c, "pollId, optionId, studentSessionId, and studentName are required")
		return
	}
	blocked, err := r.registry.IsBlocked(ctx, p.StudentSessionID)
	if err == nil && blocked {
		r.replyDomainError(c, apperr.ErrStudentBlocked, "")
		return
	}
	if _, err := r.ledger.Submit(ctx, p.PollID, p.OptionID, p.StudentSessionID, p.StudentName); err != nil {
		r.replyDomainError(c, err, "failed to submit vote")
		return
	}
	r.co.VoteSubmitted(p.PollID)
}

func (r *Router) handleStudentRemove(ctx context.Context, c *Client, data json.RawMessage) {
	if c.Role != RoleTeacher {
		r.sendError(c, "only the teacher can remove students")
		return
	}
	var p StudentRemovePayload
	if err := json.Unmarshal(data, &p); err != nil || p.SessionID == "" {
		r.sendError(c, "sessionId is required")
		return
	}
	if err := r.registry.Remove(ctx, p.SessionID); err != nil {
		r.logger.Error("remove student", zap.String("session_id", p.SessionID), zap.Error(err))
		r.sendError(c, "failed to remove student")
		return
	}
	r.co.StudentRemoved(p.SessionID, p.PollID)
}

func (r *Router) handleHeartbeat(ctx context.Context, c *Client, data json.RawMessage) {
	var p HeartbeatPayload
	if err := json.Unmarshal(data, &p); err != nil || p.SessionID == "" {
		return
	}
	// Best-effort: a failed heartbeat only delays the next one.
	if err := r.registry.Heartbeat(ctx, p.SessionID); err != nil {
		r.logger.Warn("heartbeat", zap.String("session_id", p.SessionID), zap.Error(err))
	}
}

// handlePollSync answers synchronously with authoritative timer state; the
// coordinator force-expires en route when the clock says the poll is done.
func (r *Router) handlePollSync(ctx context.Context, c *Client, data json.RawMessage) {
	var p PollRefPayload
	if err := json.Unmarshal(data, &p); err != nil {
		r.sendError(c, "pollId is required")
		return
	}
	state, err := r.co.SyncPoll(ctx, p.PollID)
	if err != nil {
		r.logger.Error("poll sync", zap.String("poll_id", p.PollID.String()), zap.Error(err))
	}
	r.hub.Send(c, EventTimerSync, TimerSyncPayload{PollID: p.PollID, State: state})
}

// handleStateRequest answers with the snapshot for the connection's
// authenticated role; the payload cannot escalate a student to the teacher
// view.
func (r *Router) handleStateRequest(ctx context.Context, c *Client, data json.RawMessage) {
	if c.Role == RoleTeacher {
		r.hub.Send(c, EventStateCurrent, r.recovery.TeacherState(ctx))
		return
	}
	var p StateRequestPayload
	_ = json.Unmarshal(data, &p)
	if p.SessionID == "" {
		p.SessionID = c.SessionID
	}
	r.hub.Send(c, EventStateCurrent, r.recovery.StudentState(ctx, p.SessionID))
}

// handleChatSend buffers and fans out one chat message. Students may only
// post to the poll they joined; teacher messages are checked against the
// stored poll so the buffer never grows for polls that don't exist.
func (r *Router) handleChatSend(ctx context.Context, c *Client, data json.RawMessage) {
	var p ChatSendPayload
	if err := json.Unmarshal(data, &p); err != nil || p.Message == "" {
		return
	}
	if c.Role != RoleTeacher {
		if c.PollID == nil || *c.PollID != p.PollID {
			r.sendError(c, "join the poll before sending messages")
			return
		}
	} else {
		poll, err := r.polls.ByID(ctx, p.PollID)
		if err != nil || poll == nil || !poll.IsActive() {
			r.replyDomainError(c, apperr.ErrPollNotActive, "")
			return
		}
	}
	blocked, err := r.registry.IsBlocked(ctx, p.StudentSessionID)
	if err == nil && blocked {
		r.replyDomainError(c, apperr.ErrStudentBlocked, "")
		return
	}
	msg := r.chatLog.Add(p.PollID, p.StudentSessionID, p.StudentName, p.Message)
	r.hub.Broadcast(PollScope(p.PollID), EventChatMessage, msg)
	r.hub.Broadcast(ScopeTeacher, EventChatMessage, msg)
}

// replyDomainError surfaces domain errors verbatim and everything else
// generically, so internals never leak over the socket.
func (r *Router) replyDomainError(c *Client, err error, fallback string) {
	if apperr.IsDomain(err) {
		r.sendError(c, err.Error())
		return
	}
	r.logger.Error("websocket handler", zap.Error(err))
	if fallback == "" {
		fallback = "internal error"
	}
	r.sendError(c, fallback)
}
