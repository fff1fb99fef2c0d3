// Package recovery composes point-in-time snapshots for clients rebuilding
// their view after a refresh, a dropped socket, or a late join. It is a pure
// read layer: the only mutation it performs is a heartbeat refresh during
// session restore. Every path degrades to a safe empty snapshot instead of
// propagating an error, because recovery must never itself block the UI.
package recovery

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classpulse/backend/internal/models"
	"github.com/classpulse/backend/internal/timer"
)

// PollSource resolves the active poll from durable state.
type PollSource interface {
	Current(ctx context.Context) (*models.Poll, error)
}

// VoteSource resolves a student's vote and the poll's vote list.
type VoteSource interface {
	ListByPoll(ctx context.Context, pollID uuid.UUID) ([]models.Vote, error)
	Find(ctx context.Context, pollID uuid.UUID, sessionID string) (*models.Vote, error)
}

// SessionSource resolves and refreshes student sessions.
type SessionSource interface {
	Session(ctx context.Context, sessionID string) (*models.StudentSession, error)
	Heartbeat(ctx context.Context, sessionID string) error
}

// Clock answers remaining-time questions.
type Clock interface {
	State(ctx context.Context, pollID uuid.UUID) (timer.State, error)
}

// VoteStatus is a student's personalized vote state within the snapshot.
type VoteStatus struct {
	HasVoted      bool       `json:"hasVoted"`
	VotedOptionID *uuid.UUID `json:"votedOptionId,omitempty"`
}

// StudentSnapshot is the recovery view for a student: the aggregate poll,
// their own vote status, and authoritative remaining time. It never includes
// other students' identities.
type StudentSnapshot struct {
	Poll          *models.Poll `json:"poll"`
	Vote          VoteStatus   `json:"vote"`
	RemainingTime int          `json:"remainingTime"`
	ServerTime    time.Time    `json:"serverTime"`
}

// TeacherVote is one vote row in the teacher snapshot.
type TeacherVote struct {
	OptionID    uuid.UUID `json:"optionId"`
	StudentName string    `json:"studentName"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// TeacherSnapshot is the full-detail recovery view for the teacher.
type TeacherSnapshot struct {
	Poll          *models.Poll  `json:"poll"`
	RemainingTime int           `json:"remainingTime"`
	TotalVotes    int           `json:"totalVotes"`
	Votes         []TeacherVote `json:"votes"`
	ServerTime    time.Time     `json:"serverTime"`
}

// RestoredSession confirms a session is still allowed to rejoin.
type RestoredSession struct {
	SessionID   string    `json:"sessionId"`
	StudentName string    `json:"studentName"`
	JoinedAt    time.Time `json:"joinedAt"`
	IsOnline    bool      `json:"isOnline"`
}

// Service composes snapshots from the read APIs of the other components.
type Service struct {
	polls    PollSource
	votes    VoteSource
	sessions SessionSource
	clock    Clock
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a state recovery service.
func NewService(polls PollSource, votes VoteSource, sessions SessionSource, clock Clock, logger *zap.Logger) *Service {
	return &Service{polls: polls, votes: votes, sessions: sessions, clock: clock, logger: logger, now: time.Now}
}

// StudentState returns the snapshot a reconnecting student needs. Repeated
// calls with no intervening mutation return equivalent snapshots.
func (s *Service) StudentState(ctx context.Context, sessionID string) StudentSnapshot {
	empty := StudentSnapshot{ServerTime: s.now()}

	session, err := s.sessions.Session(ctx, sessionID)
	if err != nil {
		s.logger.Error("recover student state: session lookup", zap.Error(err))
		return empty
	}
	if session == nil {
		return empty
	}

	poll, err := s.polls.Current(ctx)
	if err != nil {
		s.logger.Error("recover student state: poll lookup", zap.Error(err))
		return empty
	}
	if poll == nil {
		return empty
	}

	snapshot := StudentSnapshot{Poll: poll}

	vote, err := s.votes.Find(ctx, poll.ID, sessionID)
	if err != nil {
		s.logger.Error("recover student state: vote lookup", zap.Error(err))
		return empty
	}
	if vote != nil {
		opt := vote.OptionID
		snapshot.Vote = VoteStatus{HasVoted: true, VotedOptionID: &opt}
	}

	state, err := s.clock.State(ctx, poll.ID)
	if err != nil {
		s.logger.Error("recover student state: timer", zap.Error(err))
		return empty
	}
	snapshot.RemainingTime = state.Remaining
	snapshot.ServerTime = state.ServerTime
	return snapshot
}

// TeacherState returns the full-detail snapshot for the teacher dashboard.
func (s *Service) TeacherState(ctx context.Context) TeacherSnapshot {
	empty := TeacherSnapshot{Votes: []TeacherVote{}, ServerTime: s.now()}

	poll, err := s.polls.Current(ctx)
	if err != nil {
		s.logger.Error("recover teacher state: poll lookup", zap.Error(err))
		return empty
	}
	if poll == nil {
		return empty
	}

	votes, err := s.votes.ListByPoll(ctx, poll.ID)
	if err != nil {
		s.logger.Error("recover teacher state: votes", zap.Error(err))
		return empty
	}
	state, err := s.clock.State(ctx, poll.ID)
	if err != nil {
		s.logger.Error("recover teacher state: timer", zap.Error(err))
		return empty
	}

	out := TeacherSnapshot{
		Poll:          poll,
		RemainingTime: state.Remaining,
		TotalVotes:    len(votes),
		Votes:         make([]TeacherVote, 0, len(votes)),
		ServerTime:    state.ServerTime,
	}
	for _, v := range votes {
		out.Votes = append(out.Votes, TeacherVote{
			OptionID:    v.OptionID,
			StudentName: v.StudentName,
			SubmittedAt: v.VotedAt,
		})
	}
	return out
}

// RestoreSession validates that a session may rejoin: nil for unknown or
// blocked sessions, otherwise a confirmation with a refreshed heartbeat.
func (s *Service) RestoreSession(ctx context.Context, sessionID string) *RestoredSession {
	session, err := s.sessions.Session(ctx, sessionID)
	if err != nil {
		s.logger.Error("restore session", zap.Error(err))
		return nil
	}
	if session == nil || session.IsBlocked {
		return nil
	}
	if err := s.sessions.Heartbeat(ctx, sessionID); err != nil {
		s.logger.Error("restore session: heartbeat", zap.Error(err))
		return nil
	}
	return &RestoredSession{
		SessionID:   session.SessionID,
		StudentName: session.StudentName,
		JoinedAt:    session.CreatedAt,
		IsOnline:    session.IsActive,
	}
}
