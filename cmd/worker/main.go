// Package main runs the background maintenance worker (poll expiry sweep,
// stale session purge). It is optional: the server runs the same sweeps
// in-process, but a standalone worker keeps them alive when the API tier is
// scaled to zero or restarting.
package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/classpulse/backend/config"
	"github.com/classpulse/backend/internal/models"
	"github.com/classpulse/backend/internal/polls"
	"github.com/classpulse/backend/internal/realtime"
	"github.com/classpulse/backend/internal/students"
	"github.com/classpulse/backend/internal/sweeper"
	"github.com/classpulse/backend/pkg/database"
	"github.com/classpulse/backend/pkg/redis"
)

// redisNotifier relays swept polls to whichever server instances hold the
// websocket connections.
type redisNotifier struct {
	pub    *realtime.RedisPubSub
	origin string
	logger *zap.Logger
}

func (n *redisNotifier) PollSwept(poll *models.Poll) {
	data, err := json.Marshal(poll)
	if err != nil {
		return
	}
	if err := n.pub.PublishScopeEvent(realtime.ScopeAll, realtime.EventPollExpired, data, n.origin); err != nil {
		n.logger.Error("publish swept poll", zap.Error(err))
	}
}

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	pollRepo := polls.NewRepository(pool)
	pollSvc := polls.NewService(pollRepo, cfg.Poll.HistoryLimit, logger)
	sessionRepo := students.NewRepository(pool)
	registry := students.NewRegistry(sessionRepo, time.Duration(cfg.Poll.SessionTTLHours)*time.Hour, logger)

	notifier := &redisNotifier{
		pub:    realtime.NewRedisPubSub(rdb.Client, logger),
		origin: "worker-" + uuid.New().String(),
		logger: logger,
	}

	sweep := sweeper.New(pollSvc, registry, notifier, time.Duration(cfg.Poll.SweepIntervalSec)*time.Second, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go sweep.Run(workerCtx)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
