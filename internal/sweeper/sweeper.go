package sweeper

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/classpulse/backend/internal/models"
	"github.com/classpulse/backend/internal/polls"
	"github.com/classpulse/backend/internal/students"
)

// Notifier receives polls the sweep transitioned so clients hear about them.
type Notifier interface {
	PollSwept(poll *models.Poll)
}

// Sweeper runs the background maintenance loops: force-expiring overdue
// polls that lost their ticker and purging student sessions whose heartbeat
// went silent past the TTL.
type Sweeper struct {
	polls    *polls.Service
	registry *students.Registry
	notifier Notifier
	interval time.Duration
	logger   *zap.Logger
}

func New(pollSvc *polls.Service, registry *students.Registry, notifier Notifier, interval time.Duration, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		polls:    pollSvc,
		registry: registry,
		notifier: notifier,
		interval: interval,
		logger:   logger,
	}
}

// Run blocks until ctx is canceled. Poll expiry is checked every interval;
// stale sessions are purged hourly.
func (s *Sweeper) Run(ctx context.Context) {
	pollTicker := time.NewTicker(s.interval)
	purgeTicker := time.NewTicker(time.Hour)
	defer pollTicker.Stop()
	defer purgeTicker.Stop()

	s.logger.Info("sweeper started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return
		case <-pollTicker.C:
			s.sweepPolls(ctx)
		case <-purgeTicker.C:
			s.purgeSessions(ctx)
		}
	}
}

func (s *Sweeper) sweepPolls(ctx context.Context) {
	swept, err := s.polls.SweepExpired(ctx)
	if err != nil {
		s.logger.Error("poll sweep failed", zap.Error(err))
		return
	}
	for i := range swept {
		s.logger.Info("swept overdue poll", zap.String("poll_id", swept[i].ID.String()))
		if s.notifier != nil {
			s.notifier.PollSwept(&swept[i])
		}
	}
}

func (s *Sweeper) purgeSessions(ctx context.Context) {
	purged, err := s.registry.PurgeStale(ctx)
	if err != nil {
		s.logger.Error("session purge failed", zap.Error(err))
		return
	}
	if purged > 0 {
		s.logger.Info("purged stale sessions", zap.Int64("count", purged))
	}
}
