package votes

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/classpulse/backend/internal/models"
)

// Repository handles vote persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a votes repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert records a vote and bumps the option and poll counters in one
// transaction, so the counters can never drift from the vote rows. The
// votes_poll_session_key constraint rejects a concurrent duplicate; that
// error surfaces unchanged for the ledger to remap.
func (r *Repository) Insert(ctx context.Context, v *models.Vote) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const insertQuery = `INSERT INTO votes (id, poll_id, option_id, student_session_id, student_name, voted_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := tx.Exec(ctx, insertQuery, v.ID, v.PollID, v.OptionID, v.StudentSessionID, v.StudentName, v.VotedAt); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE poll_options SET vote_count = vote_count + 1 WHERE id = $1`, v.OptionID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE polls SET total_votes = total_votes + 1 WHERE id = $1`, v.PollID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Find returns the vote for a (poll, session) pair, or nil.
func (r *Repository) Find(ctx context.Context, pollID uuid.UUID, sessionID string) (*models.Vote, error) {
	const query = `SELECT id, poll_id, option_id, student_session_id, student_name, voted_at
		FROM votes WHERE poll_id = $1 AND student_session_id = $2`
	var v models.Vote
	err := r.pool.QueryRow(ctx, query, pollID, sessionID).
		Scan(&v.ID, &v.PollID, &v.OptionID, &v.StudentSessionID, &v.StudentName, &v.VotedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ListByPoll returns all votes for a poll in submission order.
func (r *Repository) ListByPoll(ctx context.Context, pollID uuid.UUID) ([]models.Vote, error) {
	const query = `SELECT id, poll_id, option_id, student_session_id, student_name, voted_at
		FROM votes WHERE poll_id = $1 ORDER BY voted_at`
	rows, err := r.pool.Query(ctx, query, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Vote
	for rows.Next() {
		var v models.Vote
		if err := rows.Scan(&v.ID, &v.PollID, &v.OptionID, &v.StudentSessionID, &v.StudentName, &v.VotedAt); err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return list, rows.Err()
}

// CountByPoll returns the total number of votes for a poll.
func (r *Repository) CountByPoll(ctx context.Context, pollID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM votes WHERE poll_id = $1`, pollID).Scan(&n)
	return n, err
}
