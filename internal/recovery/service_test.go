package recovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classpulse/backend/internal/models"
	"github.com/classpulse/backend/internal/timer"
)

type fakePolls struct {
	current *models.Poll
	err     error
}

func (f *fakePolls) Current(_ context.Context) (*models.Poll, error) {
	return f.current, f.err
}

type fakeVotes struct {
	votes []models.Vote
	err   error
}

func (f *fakeVotes) ListByPoll(_ context.Context, _ uuid.UUID) ([]models.Vote, error) {
	return f.votes, f.err
}

func (f *fakeVotes) Find(_ context.Context, pollID uuid.UUID, sessionID string) (*models.Vote, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.votes {
		if f.votes[i].PollID == pollID && f.votes[i].StudentSessionID == sessionID {
			return &f.votes[i], nil
		}
	}
	return nil, nil
}

type fakeSessions struct {
	sessions   map[string]*models.StudentSession
	err        error
	heartbeats int
}

func (f *fakeSessions) Session(_ context.Context, sessionID string) (*models.StudentSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sessions[sessionID], nil
}

func (f *fakeSessions) Heartbeat(_ context.Context, _ string) error {
	f.heartbeats++
	return nil
}

type fakeClock struct {
	state timer.State
}

func (f *fakeClock) State(_ context.Context, _ uuid.UUID) (timer.State, error) {
	return f.state, nil
}

func fixture() (*models.Poll, *fakePolls, *fakeVotes, *fakeSessions, *fakeClock) {
	poll := &models.Poll{
		ID:        uuid.New(),
		Question:  "q",
		Status:    models.PollActive,
		Duration:  60,
		StartedAt: time.Now(),
		Options: []models.PollOption{
			{ID: uuid.New(), Text: "A"},
			{ID: uuid.New(), Text: "B"},
		},
	}
	polls := &fakePolls{current: poll}
	votes := &fakeVotes{votes: []models.Vote{
		{ID: uuid.New(), PollID: poll.ID, OptionID: poll.Options[0].ID, StudentSessionID: "sess-1", StudentName: "Alice", VotedAt: time.Now()},
	}}
	sessions := &fakeSessions{sessions: map[string]*models.StudentSession{
		"sess-1": {SessionID: "sess-1", PollID: poll.ID, StudentName: "Alice", IsActive: true, CreatedAt: time.Now()},
		"sess-2": {SessionID: "sess-2", PollID: poll.ID, StudentName: "Bob", IsActive: true, CreatedAt: time.Now()},
		"blocked": {SessionID: "blocked", PollID: poll.ID, StudentName: "Mallory", IsBlocked: true},
	}}
	clock := &fakeClock{state: timer.State{Remaining: 42, ServerTime: time.Now()}}
	return poll, polls, votes, sessions, clock
}

func TestStudentState(t *testing.T) {
	poll, polls, votes, sessions, clock := fixture()
	svc := NewService(polls, votes, sessions, clock, zap.NewNop())
	ctx := context.Background()

	snap := svc.StudentState(ctx, "sess-1")
	require.NotNil(t, snap.Poll)
	require.Equal(t, poll.ID, snap.Poll.ID)
	require.True(t, snap.Vote.HasVoted)
	require.Equal(t, poll.Options[0].ID, *snap.Vote.VotedOptionID)
	require.Equal(t, 42, snap.RemainingTime)

	// A session that hasn't voted.
	snap = svc.StudentState(ctx, "sess-2")
	require.False(t, snap.Vote.HasVoted)
	require.Nil(t, snap.Vote.VotedOptionID)
}

func TestStudentStateIsIdempotent(t *testing.T) {
	_, polls, votes, sessions, clock := fixture()
	svc := NewService(polls, votes, sessions, clock, zap.NewNop())
	ctx := context.Background()

	first := svc.StudentState(ctx, "sess-1")
	second := svc.StudentState(ctx, "sess-1")
	require.Equal(t, first.Poll, second.Poll)
	require.Equal(t, first.Vote, second.Vote)
	require.Equal(t, first.RemainingTime, second.RemainingTime)
}

func TestStudentStateUnknownSession(t *testing.T) {
	_, polls, votes, sessions, clock := fixture()
	svc := NewService(polls, votes, sessions, clock, zap.NewNop())

	snap := svc.StudentState(context.Background(), "never-seen")
	require.Nil(t, snap.Poll)
	require.False(t, snap.Vote.HasVoted)
	require.False(t, snap.ServerTime.IsZero())
}

func TestStudentStateDegradesOnError(t *testing.T) {
	_, polls, votes, sessions, clock := fixture()
	polls.err = errors.New("db down")
	svc := NewService(polls, votes, sessions, clock, zap.NewNop())

	snap := svc.StudentState(context.Background(), "sess-1")
	require.Nil(t, snap.Poll)
	require.False(t, snap.ServerTime.IsZero())
}

func TestTeacherState(t *testing.T) {
	poll, polls, votes, sessions, clock := fixture()
	svc := NewService(polls, votes, sessions, clock, zap.NewNop())

	snap := svc.TeacherState(context.Background())
	require.NotNil(t, snap.Poll)
	require.Equal(t, poll.ID, snap.Poll.ID)
	require.Equal(t, 1, snap.TotalVotes)
	require.Len(t, snap.Votes, 1)
	require.Equal(t, "Alice", snap.Votes[0].StudentName)
	require.Equal(t, 42, snap.RemainingTime)
}

func TestTeacherStateNoActivePoll(t *testing.T) {
	_, polls, votes, sessions, clock := fixture()
	polls.current = nil
	svc := NewService(polls, votes, sessions, clock, zap.NewNop())

	snap := svc.TeacherState(context.Background())
	require.Nil(t, snap.Poll)
	require.NotNil(t, snap.Votes)
	require.Empty(t, snap.Votes)
}

func TestTeacherStateDegradesOnError(t *testing.T) {
	_, polls, votes, sessions, clock := fixture()
	votes.err = errors.New("db down")
	svc := NewService(polls, votes, sessions, clock, zap.NewNop())

	snap := svc.TeacherState(context.Background())
	require.Nil(t, snap.Poll)
	require.Empty(t, snap.Votes)
}

func TestRestoreSession(t *testing.T) {
	_, polls, votes, sessions, clock := fixture()
	svc := NewService(polls, votes, sessions, clock, zap.NewNop())
	ctx := context.Background()

	restored := svc.RestoreSession(ctx, "sess-1")
	require.NotNil(t, restored)
	require.Equal(t, "sess-1", restored.SessionID)
	require.Equal(t, "Alice", restored.StudentName)
	require.True(t, restored.IsOnline)
	require.Equal(t, 1, sessions.heartbeats)

	require.Nil(t, svc.RestoreSession(ctx, "never-seen"))
	require.Nil(t, svc.RestoreSession(ctx, "blocked"))
	// Only the valid restore refreshed a heartbeat.
	require.Equal(t, 1, sessions.heartbeats)
}
