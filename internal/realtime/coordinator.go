package realtime

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/classpulse/backend/internal/apperr"
	"github.com/classpulse/backend/internal/chat"
	"github.com/classpulse/backend/internal/models"
	"github.com/classpulse/backend/internal/polls"
	"github.com/classpulse/backend/internal/students"
	"github.com/classpulse/backend/internal/timer"
	"github.com/classpulse/backend/internal/votes"
)

const syncEvery = 5 // authoritative re-sync cadence, in ticks

// Coordinator connects the domain services to the fanout layer: it owns the
// per-poll driving tickers and translates lifecycle, vote, and presence
// changes into scope broadcasts. It implements the Notifier interfaces the
// HTTP handlers depend on, so HTTP and websocket mutations share one
// broadcast path.
type Coordinator struct {
	hub      *Hub
	tickers  *TickerRegistry
	polls    *polls.Service
	ledger   *votes.Ledger
	registry *students.Registry
	chatLog  *chat.Log
	clock    *timer.Authority
	logger   *zap.Logger
}

// NewCoordinator wires the fanout coordinator.
func NewCoordinator(
	hub *Hub,
	tickers *TickerRegistry,
	pollSvc *polls.Service,
	ledger *votes.Ledger,
	registry *students.Registry,
	chatLog *chat.Log,
	clock *timer.Authority,
	logger *zap.Logger,
) *Coordinator {
	return &Coordinator{
		hub:      hub,
		tickers:  tickers,
		polls:    pollSvc,
		ledger:   ledger,
		registry: registry,
		chatLog:  chatLog,
		clock:    clock,
		logger:   logger,
	}
}

// PollCreated broadcasts the new poll to everyone and starts its ticker.
func (co *Coordinator) PollCreated(poll *models.Poll) {
	co.hub.Broadcast(ScopeAll, EventPollCreated, poll)
	co.startTicker(poll)
}

// PollClosed finalizes a manual end: ticker cancelled, chat dropped,
// finality broadcast to everyone.
func (co *Coordinator) PollClosed(poll *models.Poll) {
	co.finalize(poll, EventPollEnded)
}

// startTicker launches the 1s tick / 5s sync loop that drives a poll to
// expiry.
func (co *Coordinator) startTicker(poll *models.Poll) {
	pollID := poll.ID
	remaining := poll.Duration
	co.tickers.Start(pollID, func(ctx context.Context) {
		co.runTicker(ctx, pollID, remaining)
	})
}

// ResumeActivePoll restarts the ticker for a poll that was active before a
// process restart, picking up remaining time from the clock authority.
func (co *Coordinator) ResumeActivePoll(ctx context.Context) error {
	poll, err := co.polls.Current(ctx)
	if err != nil || poll == nil {
		return err
	}
	state := timer.StateOf(poll, time.Now())
	if state.Expired {
		co.expire(poll.ID)
		return nil
	}
	pollID := poll.ID
	remaining := state.Remaining
	co.tickers.Start(pollID, func(tctx context.Context) {
		co.runTicker(tctx, pollID, remaining)
	})
	co.logger.Info("resumed poll ticker",
		zap.String("poll_id", pollID.String()),
		zap.Int("remaining", remaining))
	return nil
}

func (co *Coordinator) runTicker(ctx context.Context, pollID uuid.UUID, remaining int) {
	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	elapsed := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			remaining--
			elapsed++
			shown := remaining
			if shown < 0 {
				shown = 0
			}
			co.hub.Broadcast(ScopeAll, EventTimerTick, TimerTickPayload{PollID: pollID, Remaining: shown})

			// Periodic authoritative recomputation corrects local drift and
			// catches transitions made by another path (manual end, sweep).
			if elapsed%syncEvery == 0 {
				state, err := co.clock.State(ctx, pollID)
				if err != nil {
					co.logger.Error("timer sync", zap.String("poll_id", pollID.String()), zap.Error(err))
				} else {
					co.hub.Broadcast(ScopeAll, EventTimerSync, TimerSyncPayload{PollID: pollID, State: state})
					remaining = state.Remaining
					if state.Expired {
						co.expire(pollID)
						return
					}
				}
			}

			if remaining <= 0 {
				co.expire(pollID)
				return
			}
		}
	}
}

// expire performs the timer-initiated terminal transition. Losing the race
// to a manual end or the sweep is fine; the winner already broadcast.
func (co *Coordinator) expire(pollID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	poll, err := co.polls.Expire(ctx, pollID)
	if err != nil {
		if !errors.Is(err, apperr.ErrPollNotActive) && !errors.Is(err, apperr.ErrPollNotFound) {
			co.logger.Error("expire poll", zap.String("poll_id", pollID.String()), zap.Error(err))
		}
		co.tickers.Cancel(pollID)
		return
	}
	co.finalize(poll, EventPollExpired)
}

// PollSwept broadcasts finality for a poll the background sweep expired.
func (co *Coordinator) PollSwept(poll *models.Poll) {
	co.finalize(poll, EventPollExpired)
}

// finalize is the single finality path: whichever transition won, the ticker
// is cancelled exactly once, chat is dropped, and everyone hears about it.
func (co *Coordinator) finalize(poll *models.Poll, event EventType) {
	co.tickers.Cancel(poll.ID)
	co.chatLog.Clear(poll.ID)
	co.hub.Broadcast(ScopeAll, event, poll)
}

// VoteSubmitted recomputes aggregates and pushes the role-scoped updates:
// full detail to teachers, aggregates only to students.
func (co *Coordinator) VoteSubmitted(pollID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results, err := co.ledger.Results(ctx, pollID)
	if err != nil {
		co.logger.Error("vote update: results", zap.String("poll_id", pollID.String()), zap.Error(err))
		return
	}
	total, err := co.ledger.Total(ctx, pollID)
	if err != nil {
		co.logger.Error("vote update: total", zap.String("poll_id", pollID.String()), zap.Error(err))
		return
	}
	detailed, err := co.ledger.Detailed(ctx, pollID)
	if err != nil {
		co.logger.Error("vote update: detail", zap.String("poll_id", pollID.String()), zap.Error(err))
		return
	}

	co.hub.Broadcast(ScopeTeacher, EventVoteUpdateTeacher, TeacherVoteUpdate{
		Results:       results,
		DetailedVotes: detailed,
		TotalVotes:    total,
	})
	co.hub.Broadcast(ScopeStudent, EventVoteUpdateStudent, StudentVoteUpdate{
		Results:    results,
		TotalVotes: total,
	})
}

// StudentRemoved force-disconnects the student's channels and refreshes the
// teacher's roster.
func (co *Coordinator) StudentRemoved(sessionID string, pollID uuid.UUID) {
	co.hub.DisconnectSession(sessionID)
	co.broadcastRoster(pollID)
}

// broadcastRoster pushes the active-student list to the teacher scope.
func (co *Coordinator) broadcastRoster(pollID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	list, err := co.registry.ActiveStudents(ctx, pollID)
	if err != nil {
		co.logger.Error("roster update", zap.String("poll_id", pollID.String()), zap.Error(err))
		return
	}
	if list == nil {
		list = []models.StudentSession{}
	}
	co.hub.Broadcast(ScopeTeacher, EventStudentsUpdate, list)
}

// SyncPoll answers an on-demand sync request with authoritative state,
// opportunistically force-expiring a poll whose time ran out.
func (co *Coordinator) SyncPoll(ctx context.Context, pollID uuid.UUID) (timer.State, error) {
	state, err := co.clock.State(ctx, pollID)
	if err != nil {
		return state, err
	}
	if state.Expired {
		// The stored status may still read active; reconcile before answering.
		if poll, perr := co.polls.ByID(ctx, pollID); perr == nil && poll != nil && poll.IsActive() {
			co.expire(pollID)
		}
	}
	return state, nil
}

// Shutdown stops every driving ticker.
func (co *Coordinator) Shutdown() {
	co.tickers.CancelAll()
}
