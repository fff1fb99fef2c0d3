package polls

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/classpulse/backend/internal/models"
)

// Repository handles poll persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a polls repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores a new poll with its options in one transaction. A unique
// violation on polls_single_active surfaces unchanged so the service can map
// it to the domain error.
func (r *Repository) Insert(ctx context.Context, p *models.Poll) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const pollQuery = `INSERT INTO polls (id, question, duration, status, started_at, total_votes)
		VALUES ($1, $2, $3, $4, $5, 0)
		RETURNING created_at`
	if err := tx.QueryRow(ctx, pollQuery, p.ID, p.Question, p.Duration, p.Status, p.StartedAt).
		Scan(&p.CreatedAt); err != nil {
		return err
	}

	const optQuery = `INSERT INTO poll_options (id, poll_id, text, vote_count, position)
		VALUES ($1, $2, $3, 0, $4)`
	for i, opt := range p.Options {
		if _, err := tx.Exec(ctx, optQuery, opt.ID, p.ID, opt.Text, i); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// GetByID returns a poll with its options, or nil when absent.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Poll, error) {
	const query = `SELECT id, question, duration, status, started_at, ended_at, total_votes, created_at
		FROM polls WHERE id = $1`
	return r.scanPoll(ctx, query, id)
}

// GetActive returns the single active poll, or nil when none is running.
func (r *Repository) GetActive(ctx context.Context) (*models.Poll, error) {
	const query = `SELECT id, question, duration, status, started_at, ended_at, total_votes, created_at
		FROM polls WHERE status = 'active'`
	return r.scanPoll(ctx, query)
}

func (r *Repository) scanPoll(ctx context.Context, query string, args ...any) (*models.Poll, error) {
	var p models.Poll
	err := r.pool.QueryRow(ctx, query, args...).
		Scan(&p.ID, &p.Question, &p.Duration, &p.Status, &p.StartedAt, &p.EndedAt, &p.TotalVotes, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadOptions(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) loadOptions(ctx context.Context, p *models.Poll) error {
	const query = `SELECT id, text, vote_count FROM poll_options WHERE poll_id = $1 ORDER BY position`
	rows, err := r.pool.Query(ctx, query, p.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var opt models.PollOption
		if err := rows.Scan(&opt.ID, &opt.Text, &opt.VoteCount); err != nil {
			return err
		}
		p.Options = append(p.Options, opt)
	}
	return rows.Err()
}

// ListEnded returns non-active polls, newest first, capped at limit.
func (r *Repository) ListEnded(ctx context.Context, limit int) ([]models.Poll, error) {
	const query = `SELECT id, question, duration, status, started_at, ended_at, total_votes, created_at
		FROM polls WHERE status <> 'active' ORDER BY created_at DESC LIMIT $1`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Poll
	for rows.Next() {
		var p models.Poll
		if err := rows.Scan(&p.ID, &p.Question, &p.Duration, &p.Status, &p.StartedAt, &p.EndedAt, &p.TotalVotes, &p.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range list {
		if err := r.loadOptions(ctx, &list[i]); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// MarkTerminal flips an active poll to a terminal status. Returns false when
// the poll was not active anymore (another path won the transition race).
func (r *Repository) MarkTerminal(ctx context.Context, id uuid.UUID, status models.PollStatus, endedAt time.Time) (bool, error) {
	const query = `UPDATE polls SET status = $2, ended_at = $3 WHERE id = $1 AND status = 'active'`
	tag, err := r.pool.Exec(ctx, query, id, status, endedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
