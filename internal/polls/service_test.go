package polls

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/classpulse/backend/internal/apperr"
	"github.com/classpulse/backend/internal/models"
)

// fakeStore mimics the storage semantics the service relies on: at most one
// active poll, a conditional terminal update that only wins once, and a
// newest-first ended listing.
type fakeStore struct {
	polls     map[uuid.UUID]*models.Poll
	order     []uuid.UUID
	insertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{polls: make(map[uuid.UUID]*models.Poll)}
}

func (f *fakeStore) Insert(_ context.Context, p *models.Poll) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	for _, existing := range f.polls {
		if existing.Status == models.PollActive {
			return &pgconn.PgError{Code: "23505", ConstraintName: "polls_single_active"}
		}
	}
	cp := *p
	f.polls[p.ID] = &cp
	f.order = append(f.order, p.ID)
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*models.Poll, error) {
	p, ok := f.polls[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) GetActive(_ context.Context) (*models.Poll, error) {
	for _, p := range f.polls {
		if p.Status == models.PollActive {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListEnded(_ context.Context, limit int) ([]models.Poll, error) {
	var out []models.Poll
	for i := len(f.order) - 1; i >= 0; i-- {
		p := f.polls[f.order[i]]
		if p.Status == models.PollActive {
			continue
		}
		out = append(out, *p)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) MarkTerminal(_ context.Context, id uuid.UUID, status models.PollStatus, endedAt time.Time) (bool, error) {
	p, ok := f.polls[id]
	if !ok || p.Status != models.PollActive {
		return false, nil
	}
	p.Status = status
	p.EndedAt = &endedAt
	return true, nil
}

func newTestService(store Store) *Service {
	return NewService(store, 50, zap.NewNop())
}

func TestCreatePoll(t *testing.T) {
	svc := newTestService(newFakeStore())

	poll, err := svc.Create(context.Background(), "  Favorite language?  ", []string{"Go", "Python "}, 60)
	require.NoError(t, err)
	require.Equal(t, "Favorite language?", poll.Question)
	require.Equal(t, models.PollActive, poll.Status)
	require.Len(t, poll.Options, 2)
	require.Equal(t, "Python", poll.Options[1].Text)
	require.NotEqual(t, uuid.Nil, poll.ID)
}

func TestCreatePollValidation(t *testing.T) {
	svc := newTestService(newFakeStore())
	ctx := context.Background()

	cases := []struct {
		name     string
		question string
		options  []string
		duration int
		message  string
	}{
		{"empty question", "", []string{"a", "b"}, 60, "question must be 1-500 characters"},
		{"too few options", "q", []string{"only"}, 60, "poll must have between 2 and 10 options"},
		{"too many options", "q", make([]string, 11), 60, "poll must have between 2 and 10 options"},
		{"duration too short", "q", []string{"a", "b"}, 5, "duration must be between 10 and 600 seconds"},
		{"duration too long", "q", []string{"a", "b"}, 601, "duration must be between 10 and 600 seconds"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.question, tc.options, tc.duration)
			require.ErrorIs(t, err, apperr.ErrInvalidInput)
			require.EqualError(t, err, tc.message)
		})
	}
}

func TestCreatePollRejectsSecondActive(t *testing.T) {
	svc := newTestService(newFakeStore())
	ctx := context.Background()

	_, err := svc.Create(ctx, "first", []string{"a", "b"}, 60)
	require.NoError(t, err)

	_, err = svc.Create(ctx, "second", []string{"a", "b"}, 60)
	require.ErrorIs(t, err, apperr.ErrActivePollExists)
}

func TestCreatePollMapsUniqueViolation(t *testing.T) {
	// The pre-check passed but a concurrent create won the index race.
	store := newFakeStore()
	store.insertErr = &pgconn.PgError{Code: "23505", ConstraintName: "polls_single_active"}
	svc := newTestService(store)

	_, err := svc.Create(context.Background(), "q", []string{"a", "b"}, 60)
	require.ErrorIs(t, err, apperr.ErrActivePollExists)
}

func TestEndPoll(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	poll, err := svc.Create(ctx, "q", []string{"a", "b"}, 60)
	require.NoError(t, err)

	ended, err := svc.End(ctx, poll.ID)
	require.NoError(t, err)
	require.Equal(t, models.PollEnded, ended.Status)
	require.NotNil(t, ended.EndedAt)

	// Second end loses the transition.
	_, err = svc.End(ctx, poll.ID)
	require.ErrorIs(t, err, apperr.ErrPollNotActive)
}

func TestExpirePollStatus(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	poll, err := svc.Create(ctx, "q", []string{"a", "b"}, 60)
	require.NoError(t, err)

	expired, err := svc.Expire(ctx, poll.ID)
	require.NoError(t, err)
	require.Equal(t, models.PollExpired, expired.Status)
}

func TestEndUnknownPoll(t *testing.T) {
	svc := newTestService(newFakeStore())

	_, err := svc.End(context.Background(), uuid.New())
	require.ErrorIs(t, err, apperr.ErrPollNotFound)
}

func TestCurrentAfterEnd(t *testing.T) {
	svc := newTestService(newFakeStore())
	ctx := context.Background()

	poll, err := svc.Create(ctx, "q", []string{"a", "b"}, 60)
	require.NoError(t, err)

	current, err := svc.Current(ctx)
	require.NoError(t, err)
	require.Equal(t, poll.ID, current.ID)

	_, err = svc.End(ctx, poll.ID)
	require.NoError(t, err)

	current, err = svc.Current(ctx)
	require.NoError(t, err)
	require.Nil(t, current)

	// A new poll can start once the previous one ended.
	_, err = svc.Create(ctx, "next", []string{"a", "b"}, 60)
	require.NoError(t, err)
}

func TestSweepExpired(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	start := time.Now()
	svc.now = func() time.Time { return start }

	poll, err := svc.Create(ctx, "q", []string{"a", "b"}, 60)
	require.NoError(t, err)

	// Not yet due.
	svc.now = func() time.Time { return start.Add(30 * time.Second) }
	swept, err := svc.SweepExpired(ctx)
	require.NoError(t, err)
	require.Empty(t, swept)

	// Overdue.
	svc.now = func() time.Time { return start.Add(61 * time.Second) }
	swept, err = svc.SweepExpired(ctx)
	require.NoError(t, err)
	require.Len(t, swept, 1)
	require.Equal(t, poll.ID, swept[0].ID)
	require.Equal(t, models.PollExpired, swept[0].Status)

	// Nothing active anymore.
	swept, err = svc.SweepExpired(ctx)
	require.NoError(t, err)
	require.Empty(t, swept)
}

func TestHistoryExcludesActive(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	first, err := svc.Create(ctx, "first", []string{"a", "b"}, 60)
	require.NoError(t, err)
	_, err = svc.End(ctx, first.ID)
	require.NoError(t, err)

	second, err := svc.Create(ctx, "second", []string{"a", "b"}, 60)
	require.NoError(t, err)

	history, err := svc.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, first.ID, history[0].ID)
	require.NotEqual(t, second.ID, history[0].ID)
}

func TestHistoryNewestFirst(t *testing.T) {
	svc := newTestService(newFakeStore())
	ctx := context.Background()

	first, err := svc.Create(ctx, "first", []string{"a", "b"}, 60)
	require.NoError(t, err)
	_, err = svc.End(ctx, first.ID)
	require.NoError(t, err)

	second, err := svc.Create(ctx, "second", []string{"a", "b"}, 60)
	require.NoError(t, err)
	_, err = svc.End(ctx, second.ID)
	require.NoError(t, err)

	_, err = svc.Create(ctx, "still running", []string{"a", "b"}, 60)
	require.NoError(t, err)

	history, err := svc.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, second.ID, history[0].ID)
	require.Equal(t, first.ID, history[1].ID)
}
