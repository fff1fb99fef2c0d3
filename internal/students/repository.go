package students

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/classpulse/backend/internal/models"
)

// Repository handles student session persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a student sessions repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert creates a session or refreshes an existing one. A re-join updates
// the poll, name, and heartbeat and flips the session active again, but never
// touches is_blocked.
func (r *Repository) Upsert(ctx context.Context, s *models.StudentSession) error {
	const query = `INSERT INTO student_sessions (session_id, poll_id, student_name, is_active, is_blocked, last_heartbeat)
		VALUES ($1, $2, $3, TRUE, FALSE, $4)
		ON CONFLICT (session_id) DO UPDATE
		SET poll_id = EXCLUDED.poll_id,
		    student_name = EXCLUDED.student_name,
		    is_active = TRUE,
		    last_heartbeat = EXCLUDED.last_heartbeat
		RETURNING is_blocked, created_at`
	return r.pool.QueryRow(ctx, query, s.SessionID, s.PollID, s.StudentName, s.LastHeartbeat).
		Scan(&s.IsBlocked, &s.CreatedAt)
}

// Get returns a session by id, or nil when unknown.
func (r *Repository) Get(ctx context.Context, sessionID string) (*models.StudentSession, error) {
	const query = `SELECT session_id, poll_id, student_name, is_active, is_blocked, last_heartbeat, created_at
		FROM student_sessions WHERE session_id = $1`
	var s models.StudentSession
	err := r.pool.QueryRow(ctx, query, sessionID).
		Scan(&s.SessionID, &s.PollID, &s.StudentName, &s.IsActive, &s.IsBlocked, &s.LastHeartbeat, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// TouchHeartbeat bumps last_heartbeat and revives the session unless blocked.
func (r *Repository) TouchHeartbeat(ctx context.Context, sessionID string, at time.Time) error {
	const query = `UPDATE student_sessions
		SET last_heartbeat = $2, is_active = (NOT is_blocked)
		WHERE session_id = $1`
	_, err := r.pool.Exec(ctx, query, sessionID, at)
	return err
}

// ListActive returns active, non-blocked sessions for a poll in join order.
func (r *Repository) ListActive(ctx context.Context, pollID uuid.UUID) ([]models.StudentSession, error) {
	const query = `SELECT session_id, poll_id, student_name, is_active, is_blocked, last_heartbeat, created_at
		FROM student_sessions
		WHERE poll_id = $1 AND is_active AND NOT is_blocked
		ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.StudentSession
	for rows.Next() {
		var s models.StudentSession
		if err := rows.Scan(&s.SessionID, &s.PollID, &s.StudentName, &s.IsActive, &s.IsBlocked, &s.LastHeartbeat, &s.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// SetBlocked marks a session removed: inactive and blocked, permanently.
func (r *Repository) SetBlocked(ctx context.Context, sessionID string) error {
	const query = `UPDATE student_sessions SET is_active = FALSE, is_blocked = TRUE WHERE session_id = $1`
	_, err := r.pool.Exec(ctx, query, sessionID)
	return err
}

// SetInactive marks a session disconnected without blocking it.
func (r *Repository) SetInactive(ctx context.Context, sessionID string) error {
	const query = `UPDATE student_sessions SET is_active = FALSE WHERE session_id = $1`
	_, err := r.pool.Exec(ctx, query, sessionID)
	return err
}

// DeleteStale purges sessions with no heartbeat since the cutoff. This is
// the TTL policy of the session store; heartbeats only gate eligibility.
func (r *Repository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM student_sessions WHERE last_heartbeat < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
