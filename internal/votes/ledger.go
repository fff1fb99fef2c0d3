package votes

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classpulse/backend/internal/apperr"
	"github.com/classpulse/backend/internal/models"
	"github.com/classpulse/backend/pkg/database"
)

// Store is the persistence surface the ledger needs.
type Store interface {
	Insert(ctx context.Context, v *models.Vote) error
	Find(ctx context.Context, pollID uuid.UUID, sessionID string) (*models.Vote, error)
	ListByPoll(ctx context.Context, pollID uuid.UUID) ([]models.Vote, error)
	CountByPoll(ctx context.Context, pollID uuid.UUID) (int, error)
}

// PollSource resolves polls for validation and option text lookup.
type PollSource interface {
	ByID(ctx context.Context, id uuid.UUID) (*models.Poll, error)
}

// Ledger accepts at most one vote per (poll, session) pair and aggregates
// counts. The pre-check makes the common duplicate fast; the storage
// constraint is what actually guarantees uniqueness under concurrency.
type Ledger struct {
	store  Store
	polls  PollSource
	logger *zap.Logger
	now    func() time.Time
}

// NewLedger creates a vote ledger.
func NewLedger(store Store, polls PollSource, logger *zap.Logger) *Ledger {
	return &Ledger{store: store, polls: polls, logger: logger, now: time.Now}
}

// Submit validates and records one vote. A storage-level duplicate-key
// rejection maps to the same ErrDuplicateVote the pre-check produces, so
// callers can't tell which race path refused them.
func (l *Ledger) Submit(ctx context.Context, pollID, optionID uuid.UUID, sessionID, studentName string) (*models.Vote, error) {
	poll, err := l.polls.ByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if poll == nil {
		return nil, apperr.ErrPollNotFound
	}
	if !poll.IsActive() {
		return nil, apperr.ErrPollNotActive
	}
	if !poll.HasOption(optionID) {
		return nil, apperr.ErrInvalidOption
	}

	existing, err := l.store.Find(ctx, pollID, sessionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.ErrDuplicateVote
	}

	vote := &models.Vote{
		ID:               uuid.New(),
		PollID:           pollID,
		OptionID:         optionID,
		StudentSessionID: sessionID,
		StudentName:      strings.TrimSpace(studentName),
		VotedAt:          l.now(),
	}
	if err := l.store.Insert(ctx, vote); err != nil {
		if database.IsUniqueViolation(err, "votes_poll_session_key") {
			return nil, apperr.ErrDuplicateVote
		}
		return nil, err
	}
	l.logger.Info("vote recorded",
		zap.String("poll_id", pollID.String()),
		zap.String("option_id", optionID.String()))
	return vote, nil
}

// Results returns per-option counts and percentages for a poll. Percentages
// are rounded to one decimal; all zero when no votes were cast.
func (l *Ledger) Results(ctx context.Context, pollID uuid.UUID) ([]models.VoteResult, error) {
	poll, err := l.polls.ByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if poll == nil {
		return nil, apperr.ErrPollNotFound
	}
	votes, err := l.store.ListByPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}

	counts := make(map[uuid.UUID]int, len(poll.Options))
	for _, v := range votes {
		counts[v.OptionID]++
	}
	total := len(votes)

	results := make([]models.VoteResult, 0, len(poll.Options))
	for _, opt := range poll.Options {
		count := counts[opt.ID]
		var pct float64
		if total > 0 {
			pct = roundOneDecimal(float64(count) / float64(total) * 100)
		}
		results = append(results, models.VoteResult{
			OptionID:   opt.ID,
			OptionText: opt.Text,
			Count:      count,
			Percentage: pct,
		})
	}
	return results, nil
}

// Detailed returns the teacher-only per-student view, in submission order.
func (l *Ledger) Detailed(ctx context.Context, pollID uuid.UUID) ([]models.DetailedVote, error) {
	poll, err := l.polls.ByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if poll == nil {
		return nil, apperr.ErrPollNotFound
	}

	optionText := make(map[uuid.UUID]string, len(poll.Options))
	for _, opt := range poll.Options {
		optionText[opt.ID] = opt.Text
	}

	votes, err := l.store.ListByPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}
	detailed := make([]models.DetailedVote, 0, len(votes))
	for _, v := range votes {
		text, ok := optionText[v.OptionID]
		if !ok {
			text = "Unknown"
		}
		detailed = append(detailed, models.DetailedVote{
			StudentName: v.StudentName,
			OptionText:  text,
			VotedAt:     v.VotedAt,
		})
	}
	return detailed, nil
}

// Total returns the vote count for a poll.
func (l *Ledger) Total(ctx context.Context, pollID uuid.UUID) (int, error) {
	return l.store.CountByPoll(ctx, pollID)
}

// HasVoted reports whether the session already voted in the poll.
func (l *Ledger) HasVoted(ctx context.Context, pollID uuid.UUID, sessionID string) (bool, error) {
	v, err := l.store.Find(ctx, pollID, sessionID)
	if err != nil {
		return false, err
	}
	return v != nil, nil
}

// StudentVote returns the option the session voted for, or nil.
func (l *Ledger) StudentVote(ctx context.Context, pollID uuid.UUID, sessionID string) (*uuid.UUID, error) {
	v, err := l.store.Find(ctx, pollID, sessionID)
	if err != nil || v == nil {
		return nil, err
	}
	opt := v.OptionID
	return &opt, nil
}

func roundOneDecimal(f float64) float64 {
	return math.Round(f*10) / 10
}
