package polls

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classpulse/backend/internal/apperr"
	"github.com/classpulse/backend/internal/models"
	"github.com/classpulse/backend/pkg/database"
)

const (
	minOptions  = 2
	maxOptions  = 10
	minDuration = 10
	maxDuration = 600
	maxQuestion = 500
)

// TerminalCause tags which path ended a poll. Manual ends produce the
// "ended" status, timer and sweep expiry produce "expired".
type TerminalCause int

const (
	CauseManual TerminalCause = iota
	CauseTimer
	CauseSweep
)

func (c TerminalCause) status() models.PollStatus {
	if c == CauseManual {
		return models.PollEnded
	}
	return models.PollExpired
}

// Store is the persistence surface the service needs.
type Store interface {
	Insert(ctx context.Context, p *models.Poll) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Poll, error)
	GetActive(ctx context.Context) (*models.Poll, error)
	ListEnded(ctx context.Context, limit int) ([]models.Poll, error)
	MarkTerminal(ctx context.Context, id uuid.UUID, status models.PollStatus, endedAt time.Time) (bool, error)
}

// Service owns the poll lifecycle: creation under the single-active-poll
// invariant and the one terminal transition used by every ending path.
type Service struct {
	store        Store
	historyLimit int
	logger       *zap.Logger
	now          func() time.Time
}

// NewService creates a poll lifecycle service.
func NewService(store Store, historyLimit int, logger *zap.Logger) *Service {
	return &Service{store: store, historyLimit: historyLimit, logger: logger, now: time.Now}
}

// Create validates and stores a new active poll. The pre-check on an existing
// active poll closes the common case; the partial unique index on
// status='active' closes the create-create race.
func (s *Service) Create(ctx context.Context, question string, options []string, duration int) (*models.Poll, error) {
	question = strings.TrimSpace(question)
	if question == "" || len(question) > maxQuestion {
		return nil, apperr.Invalidf("question must be 1-%d characters", maxQuestion)
	}
	if len(options) < minOptions || len(options) > maxOptions {
		return nil, apperr.Invalidf("poll must have between %d and %d options", minOptions, maxOptions)
	}
	if duration < minDuration || duration > maxDuration {
		return nil, apperr.Invalidf("duration must be between %d and %d seconds", minDuration, maxDuration)
	}

	existing, err := s.store.GetActive(ctx)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.ErrActivePollExists
	}

	poll := &models.Poll{
		ID:        uuid.New(),
		Question:  question,
		Duration:  duration,
		Status:    models.PollActive,
		StartedAt: s.now(),
	}
	for _, text := range options {
		poll.Options = append(poll.Options, models.PollOption{ID: uuid.New(), Text: strings.TrimSpace(text)})
	}

	if err := s.store.Insert(ctx, poll); err != nil {
		if database.IsUniqueViolation(err, "polls_single_active") {
			return nil, apperr.ErrActivePollExists
		}
		return nil, err
	}
	s.logger.Info("poll created",
		zap.String("poll_id", poll.ID.String()),
		zap.Int("duration", poll.Duration),
		zap.Int("options", len(poll.Options)))
	return poll, nil
}

// Current returns the active poll, or nil when none is running.
func (s *Service) Current(ctx context.Context) (*models.Poll, error) {
	return s.store.GetActive(ctx)
}

// ByID returns a poll by id, or nil when absent.
func (s *Service) ByID(ctx context.Context, id uuid.UUID) (*models.Poll, error) {
	return s.store.GetByID(ctx, id)
}

// End performs the teacher-initiated terminal transition.
func (s *Service) End(ctx context.Context, id uuid.UUID) (*models.Poll, error) {
	return s.transition(ctx, id, CauseManual)
}

// Expire performs the timer-initiated terminal transition.
func (s *Service) Expire(ctx context.Context, id uuid.UUID) (*models.Poll, error) {
	return s.transition(ctx, id, CauseTimer)
}

// transition is the single state-transition function for every ending path.
// Whichever caller gets here first wins; later callers see ErrPollNotActive.
func (s *Service) transition(ctx context.Context, id uuid.UUID, cause TerminalCause) (*models.Poll, error) {
	poll, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if poll == nil {
		return nil, apperr.ErrPollNotFound
	}
	if !poll.IsActive() {
		return nil, apperr.ErrPollNotActive
	}

	endedAt := s.now()
	won, err := s.store.MarkTerminal(ctx, id, cause.status(), endedAt)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, apperr.ErrPollNotActive
	}
	poll.Status = cause.status()
	poll.EndedAt = &endedAt
	s.logger.Info("poll closed",
		zap.String("poll_id", id.String()),
		zap.String("status", string(poll.Status)))
	return poll, nil
}

// History returns non-active polls, newest first, capped by the configured limit.
func (s *Service) History(ctx context.Context) ([]models.Poll, error) {
	return s.store.ListEnded(ctx, s.historyLimit)
}

// SweepExpired force-expires every active poll whose time ran out. It is the
// safety net behind the per-poll ticker, covering missed timers and process
// restarts. Returns the polls it transitioned.
func (s *Service) SweepExpired(ctx context.Context) ([]models.Poll, error) {
	active, err := s.store.GetActive(ctx)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, nil
	}
	elapsed := s.now().Sub(active.StartedAt)
	if elapsed < time.Duration(active.Duration)*time.Second {
		return nil, nil
	}
	poll, err := s.transition(ctx, active.ID, CauseSweep)
	if err != nil {
		// Lost the race to the ticker or a manual end; nothing left to sweep.
		if errors.Is(err, apperr.ErrPollNotActive) || errors.Is(err, apperr.ErrPollNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return []models.Poll{*poll}, nil
}
