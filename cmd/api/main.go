package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"prepaid-telecom/internal/auth"
	"prepaid-telecom/internal/callrecord"
	"prepaid-telecom/internal/callsession"
	"prepaid-telecom/internal/cashier"
	"prepaid-telecom/internal/config"
	"prepaid-telecom/internal/httpapi"
	"prepaid-telecom/internal/media"
	"prepaid-telecom/internal/operator"
	"prepaid-telecom/internal/rating"
	"prepaid-telecom/internal/subscriber"
	"prepaid-telecom/pkg/logger"
	"prepaid-telecom/pkg/utils"
)

func main() {
	// Root context that cancels on shutdown.
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Local .env is optional; real environments set vars directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Services over Postgres-backed repositories.
	subscribers := subscriber.NewService(subscriber.NewPostgresRepo(db))
	operators := operator.NewService(operator.NewPostgresRepo(db), subscribers)
	records := callrecord.NewService(callrecord.NewPostgresRepo(db))
	cash := cashier.NewService(cashier.NewPostgresRepo(db), subscribers, operators)
	rater := rating.NewResolver(operators)

	// Call engine: simulated capture device, WAV artifacts on disk, Redis
	// single-call lock.
	format := media.Format{SampleRate: cfg.Media.SampleRate, Channels: cfg.Media.Channels}
	calls := callsession.NewController(callsession.ControllerOptions{
		Subscribers: subscribers,
		Rater:       rater,
		Device:      &media.SimulatedDevice{},
		Cues: &media.SimulatedCuePlayer{Durations: map[media.Cue]time.Duration{
			media.CueRingback: cfg.Call.RingTimeout,
			media.CueEndCall:  2 * time.Second,
		}},
		Writer: callsession.NewRecordWriter(
			&media.FSArtifactStore{Dir: cfg.Call.ArtifactDir}, format, subscribers, records),
		Lock:        &callsession.RedisCallLock{Client: rdb, TTL: cfg.Call.SessionLockTTL},
		Log:         log,
		RingTimeout: cfg.Call.RingTimeout,
		Format:      format,
	})

	attempts := auth.NewAttemptLimiter(
		&auth.RedisAttemptStore{RDB: rdb}, cfg.Auth.MaxPINAttempts, cfg.Auth.PINLockout)

	handlers := httpapi.Handlers{
		Auth:        authManager,
		Attempts:    attempts,
		ManagerUser: cfg.Auth.ManagerUser,
		ManagerPIN:  cfg.Auth.ManagerPIN,
		Subscribers: subscribers,
		Operators:   operators,
		Records:     records,
		Cashier:     cash,
		Calls:       calls,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, handlers, auth.RequireAccessToken(authManager))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Calls block until they settle; the write timeout must outlast the
		// longest affordable call plus the ring window.
		WriteTimeout: 2 * time.Hour,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
