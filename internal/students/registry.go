package students

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classpulse/backend/internal/models"
)

// Store is the persistence surface the registry needs.
type Store interface {
	Upsert(ctx context.Context, s *models.StudentSession) error
	Get(ctx context.Context, sessionID string) (*models.StudentSession, error)
	TouchHeartbeat(ctx context.Context, sessionID string, at time.Time) error
	ListActive(ctx context.Context, pollID uuid.UUID) ([]models.StudentSession, error)
	SetBlocked(ctx context.Context, sessionID string) error
	SetInactive(ctx context.Context, sessionID string) error
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// Registry tracks student presence per poll. Presence is best-effort:
// lookups on unknown sessions return zero values, never errors.
type Registry struct {
	store  Store
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewRegistry creates a presence registry with the given session TTL.
func NewRegistry(store Store, ttl time.Duration, logger *zap.Logger) *Registry {
	return &Registry{store: store, ttl: ttl, logger: logger, now: time.Now}
}

// CreateSession registers a student joining a poll, reviving a known session
// or creating a fresh one. Blocked sessions stay blocked.
func (r *Registry) CreateSession(ctx context.Context, sessionID string, pollID uuid.UUID, studentName string) (*models.StudentSession, error) {
	s := &models.StudentSession{
		SessionID:     sessionID,
		PollID:        pollID,
		StudentName:   studentName,
		IsActive:      true,
		LastHeartbeat: r.now(),
	}
	if err := r.store.Upsert(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Session returns the session by id, or nil when unknown.
func (r *Registry) Session(ctx context.Context, sessionID string) (*models.StudentSession, error) {
	return r.store.Get(ctx, sessionID)
}

// Heartbeat bumps the session's liveness timestamp. A heartbeat revives a
// disconnected session but can never un-block a removed one.
func (r *Registry) Heartbeat(ctx context.Context, sessionID string) error {
	return r.store.TouchHeartbeat(ctx, sessionID, r.now())
}

// ActiveStudents lists connected, non-blocked students for a poll in join order.
func (r *Registry) ActiveStudents(ctx context.Context, pollID uuid.UUID) ([]models.StudentSession, error) {
	return r.store.ListActive(ctx, pollID)
}

// Remove blocks a student. The latch is one-way: no heartbeat or rejoin can
// restore the session afterwards.
func (r *Registry) Remove(ctx context.Context, sessionID string) error {
	if err := r.store.SetBlocked(ctx, sessionID); err != nil {
		return err
	}
	r.logger.Info("student removed", zap.String("session_id", sessionID))
	return nil
}

// Disconnect marks a student offline without blocking; the session revives
// on the next heartbeat or rejoin.
func (r *Registry) Disconnect(ctx context.Context, sessionID string) error {
	return r.store.SetInactive(ctx, sessionID)
}

// IsBlocked reports whether the session was removed by the teacher. Unknown
// sessions are not blocked.
func (r *Registry) IsBlocked(ctx context.Context, sessionID string) (bool, error) {
	s, err := r.store.Get(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return s != nil && s.IsBlocked, nil
}

// PurgeStale deletes sessions whose last heartbeat is older than the TTL.
func (r *Registry) PurgeStale(ctx context.Context) (int64, error) {
	n, err := r.store.DeleteStale(ctx, r.now().Add(-r.ttl))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		r.logger.Info("purged stale sessions", zap.Int64("count", n))
	}
	return n, nil
}
