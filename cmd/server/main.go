// Package main runs the classroom polling HTTP server with WebSocket and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/classpulse/backend/config"
	"github.com/classpulse/backend/internal/auth"
	"github.com/classpulse/backend/internal/chat"
	"github.com/classpulse/backend/internal/middleware"
	"github.com/classpulse/backend/internal/polls"
	"github.com/classpulse/backend/internal/realtime"
	"github.com/classpulse/backend/internal/recovery"
	"github.com/classpulse/backend/internal/students"
	"github.com/classpulse/backend/internal/sweeper"
	"github.com/classpulse/backend/internal/timer"
	"github.com/classpulse/backend/internal/votes"
	"github.com/classpulse/backend/pkg/database"
	"github.com/classpulse/backend/pkg/redis"
	"github.com/classpulse/backend/pkg/response"
)

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

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jwtService := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.JWTExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)
	tickers := realtime.NewTickerRegistry(logger)

	// Poll lifecycle
	pollRepo := polls.NewRepository(pool)
	pollSvc := polls.NewService(pollRepo, cfg.Poll.HistoryLimit, logger)

	// Vote ledger
	voteRepo := votes.NewRepository(pool)
	ledger := votes.NewLedger(voteRepo, pollSvc, logger)

	// Student presence
	sessionRepo := students.NewRepository(pool)
	registry := students.NewRegistry(sessionRepo, time.Duration(cfg.Poll.SessionTTLHours)*time.Hour, logger)

	// Clock authority, chat, recovery
	clock := timer.NewAuthority(pollSvc)
	chatLog := chat.NewLog(cfg.Poll.ChatBufferSize)
	recoverySvc := recovery.NewService(pollSvc, voteRepo, registry, clock, logger)

	coordinator := realtime.NewCoordinator(hub, tickers, pollSvc, ledger, registry, chatLog, clock, logger)
	wsRouter := realtime.NewRouter(hub, coordinator, pollSvc, ledger, registry, chatLog, recoverySvc, logger)

	authHandler := auth.NewHandler(cfg.Auth, jwtService, logger)
	pollHandler := polls.NewHandler(pollSvc, coordinator, logger)
	voteHandler := votes.NewHandler(ledger, pollSvc, coordinator, logger)
	studentHandler := students.NewHandler(registry, coordinator, logger)
	recoveryHandler := recovery.NewHandler(recoverySvc, logger)

	jwtValidate := func(token string) (string, error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return "", err
		}
		return claims.Role, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	api := router.Group("/api")
	{
		api.POST("/auth/teacher", authHandler.Login)

		api.GET("/polls/current", pollHandler.Current)
		api.GET("/polls/:id/results", voteHandler.Results)

		teacherOnly := api.Group("")
		teacherOnly.Use(middleware.TeacherJWT(jwtService))
		{
			teacherOnly.POST("/polls", pollHandler.Create)
			teacherOnly.GET("/polls/history", pollHandler.History)
			teacherOnly.POST("/polls/:id/end", pollHandler.End)
			teacherOnly.DELETE("/students/:sessionId", studentHandler.Remove)
			teacherOnly.GET("/students/poll/:pollId", studentHandler.ListByPoll)
		}

		api.POST("/votes", middleware.ValidateStudent(registry), voteHandler.Submit)

		api.GET("/state/current", recoveryHandler.Current)
		api.GET("/state/student/:sessionId", recoveryHandler.StudentState)
		api.POST("/state/restore", recoveryHandler.Restore)
	}

	// WebSocket (teacher token in query; students connect anonymously)
	router.GET("/ws", realtime.ServeWs(hub, wsRouter, logger, jwtValidate))

	// Resume the ticker for a poll that was active before a restart.
	if err := coordinator.ResumeActivePoll(ctx); err != nil {
		logger.Error("resume active poll", zap.Error(err))
	}

	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	sweep := sweeper.New(pollSvc, registry, coordinator, time.Duration(cfg.Poll.SweepIntervalSec)*time.Second, logger)
	go sweep.Run(sweepCtx)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sweepCancel()
	coordinator.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
