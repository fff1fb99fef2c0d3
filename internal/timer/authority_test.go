package timer

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/classpulse/backend/internal/models"
)

type fakePolls struct {
	polls map[uuid.UUID]*models.Poll
}

func (f *fakePolls) ByID(_ context.Context, id uuid.UUID) (*models.Poll, error) {
	return f.polls[id], nil
}

func newPoll(duration int, startedAt time.Time) *models.Poll {
	return &models.Poll{
		ID:        uuid.New(),
		Duration:  duration,
		Status:    models.PollActive,
		StartedAt: startedAt,
	}
}

func TestStateOf(t *testing.T) {
	start := time.Now()
	poll := newPoll(60, start)

	s := StateOf(poll, start.Add(10*time.Second))
	require.Equal(t, 50, s.Remaining)
	require.False(t, s.Expired)

	// Remaining never goes negative, and zero means expired.
	s = StateOf(poll, start.Add(90*time.Second))
	require.Equal(t, 0, s.Remaining)
	require.True(t, s.Expired)

	s = StateOf(poll, start.Add(60*time.Second))
	require.Equal(t, 0, s.Remaining)
	require.True(t, s.Expired)
}

func TestStateOfNonActive(t *testing.T) {
	now := time.Now()
	poll := newPoll(60, now)
	poll.Status = models.PollEnded

	s := StateOf(poll, now)
	require.True(t, s.Expired)
	require.Zero(t, s.Remaining)

	s = StateOf(nil, now)
	require.True(t, s.Expired)
}

func TestStateRemainingIsMonotonic(t *testing.T) {
	start := time.Now()
	poll := newPoll(60, start)

	prev := 61
	for elapsed := 0; elapsed <= 70; elapsed += 7 {
		s := StateOf(poll, start.Add(time.Duration(elapsed)*time.Second))
		require.LessOrEqual(t, s.Remaining, prev)
		prev = s.Remaining
	}
}

func TestAuthorityState(t *testing.T) {
	start := time.Now()
	poll := newPoll(60, start)
	authority := NewAuthority(&fakePolls{polls: map[uuid.UUID]*models.Poll{poll.ID: poll}})
	authority.now = func() time.Time { return start.Add(20 * time.Second) }

	s, err := authority.State(context.Background(), poll.ID)
	require.NoError(t, err)
	require.Equal(t, 40, s.Remaining)
	require.False(t, s.Expired)
	require.Equal(t, start.Add(20*time.Second), s.ServerTime)
}

func TestAuthorityStateMissingPoll(t *testing.T) {
	authority := NewAuthority(&fakePolls{polls: map[uuid.UUID]*models.Poll{}})

	s, err := authority.State(context.Background(), uuid.New())
	require.NoError(t, err)
	require.True(t, s.Expired)
	require.Zero(t, s.Remaining)
}
