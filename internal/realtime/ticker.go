package realtime

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TickerRegistry owns the per-poll driving tickers. It is an explicit
// dependency, never package-level state. Lifecycle rules: one ticker per poll
// id, starting a new ticker cancels every stale one first, and cancelling an
// already-cancelled ticker is a safe no-op.
type TickerRegistry struct {
	mu      sync.Mutex
	tickers map[uuid.UUID]*pollTicker
	logger  *zap.Logger
}

type pollTicker struct {
	cancel   context.CancelFunc
	stopOnce sync.Once
}

func (t *pollTicker) stop() {
	t.stopOnce.Do(t.cancel)
}

// NewTickerRegistry creates an empty ticker registry.
func NewTickerRegistry(logger *zap.Logger) *TickerRegistry {
	return &TickerRegistry{tickers: make(map[uuid.UUID]*pollTicker), logger: logger}
}

// Start cancels any stale tickers (including a previous one for the same
// poll) and launches run in its own goroutine under a cancellable context.
func (r *TickerRegistry) Start(pollID uuid.UUID, run func(ctx context.Context)) {
	ctx, cancel := context.WithCancel(context.Background())
	t := &pollTicker{cancel: cancel}

	r.mu.Lock()
	for id, stale := range r.tickers {
		stale.stop()
		delete(r.tickers, id)
		r.logger.Warn("cancelled stale poll ticker", zap.String("poll_id", id.String()))
	}
	r.tickers[pollID] = t
	r.mu.Unlock()

	go func() {
		defer r.cancelIf(pollID, t)
		run(ctx)
	}()
}

// cancelIf unregisters and stops the poll's ticker only when it is still t,
// so a finished run never tears down a replacement started under the same id.
func (r *TickerRegistry) cancelIf(pollID uuid.UUID, t *pollTicker) {
	r.mu.Lock()
	if current, ok := r.tickers[pollID]; ok && current == t {
		delete(r.tickers, pollID)
	}
	r.mu.Unlock()
	t.stop()
}

// Cancel stops the ticker for a poll. Idempotent; unknown ids are no-ops.
func (r *TickerRegistry) Cancel(pollID uuid.UUID) {
	r.mu.Lock()
	t, ok := r.tickers[pollID]
	if ok {
		delete(r.tickers, pollID)
	}
	r.mu.Unlock()
	if ok {
		t.stop()
	}
}

// CancelAll stops every ticker. Used on shutdown.
func (r *TickerRegistry) CancelAll() {
	r.mu.Lock()
	tickers := r.tickers
	r.tickers = make(map[uuid.UUID]*pollTicker)
	r.mu.Unlock()
	for _, t := range tickers {
		t.stop()
	}
}

// Active reports whether a ticker is currently registered for the poll.
func (r *TickerRegistry) Active(pollID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tickers[pollID]
	return ok
}
