// Copyright (c) 2026 Tikra. All rights reserved.

// Command api is the entry point for the Tikra HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Wire HTTP handlers and the realtime hub.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
//
// # Exit Codes
//
//	0 — clean shutdown
//	1 — configuration error or other runtime failure
//	2 — bind/listen failure
//	3 — storage unavailable on startup
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

	"golang.org/x/sync/errgroup"

	"github.com/tikra-app/tikra/internal/api"
	"github.com/tikra-app/tikra/internal/auth"
	"github.com/tikra-app/tikra/internal/core/entry"
	"github.com/tikra-app/tikra/internal/core/project"
	"github.com/tikra-app/tikra/internal/core/timer"
	"github.com/tikra-app/tikra/internal/platform/config"
	"github.com/tikra-app/tikra/internal/platform/constants"
	"github.com/tikra-app/tikra/internal/platform/middleware"
	"github.com/tikra-app/tikra/internal/platform/migration"
	pgstore "github.com/tikra-app/tikra/internal/platform/postgres"
	redisstore "github.com/tikra-app/tikra/internal/platform/redis"
	"github.com/tikra-app/tikra/internal/platform/sec"
	"github.com/tikra-app/tikra/internal/platform/userlock"
	"github.com/tikra-app/tikra/internal/realtime"
)

// Process exit codes. The edge contract singles out bind and storage failures
// so orchestrators can react differently; everything else fatal shares the
// generic failure code.
const (
	exitClean   = 0
	exitFailure = 1
	exitBind    = 2
	exitStorage = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("service_initializing", slog.String("version", constants.AppVersion))

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Error("startup failure", slog.String("context", "load configuration"), slog.Any("error", err))
		return exitFailure
	}

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("bind_addr", cfg.BindAddr),
	)

	// The token service only validates the secret, so a bad secret is a
	// configuration fault, not a storage one.
	jwtService, err := sec.NewTokenService(cfg.TokenSecret, constants.AuthIssuer)
	if err != nil {
		log.Error("startup failure", slog.String("context", "initialize token service"), slog.Any("error", err))
		return exitFailure
	}

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	if err != nil {
		log.Error("startup failure", slog.String("context", "connect to postgres"), slog.Any("error", err))
		return exitStorage
	}
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.SessionStoreURL, log)
	if err != nil {
		log.Error("startup failure", slog.String("context", "connect to redis"), slog.Any("error", err))
		return exitStorage
	}
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	if err := migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log); err != nil {
		log.Error("startup failure", slog.String("context", "run migrations"), slog.Any("error", err))
		return exitStorage
	}

	// Lifetime context for background workers (lock reaper, poll reaper,
	// limiter janitor). Cancelled once shutdown begins.
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer rootCancel()

	// ── 6. Domain Wiring ──────────────────────────────────────────────────
	authOptions := auth.Options{
		AccessTTL:      cfg.AccessTTL,
		RefreshTTL:     cfg.RefreshTTL,
		SessionIdleTTL: cfg.SessionIdleTTL,
		PasswordCost:   cfg.PasswordKDFWork,
	}
	authService := auth.NewService(
		auth.NewUserRepository(pool),
		auth.NewRedisSessionStore(rdb),
		auth.NewRedisRefreshStore(rdb),
		jwtService,
		authOptions,
		log,
	)

	hub := realtime.NewHub(log)
	locks := userlock.NewKeyed(rootCtx)

	projectService := project.NewService(project.NewPostgresRepository(pool))
	entryService := entry.NewService(entry.NewPostgresRepository(pool), projectService, hub)
	timerService := timer.NewService(timer.NewPostgresStore(pool), projectService, hub, locks)

	// The hub dispatches channel commands into the timer service, which
	// publishes back through the hub; bind after both exist.
	timerCommands := timer.NewCommands(timerService)
	hub.Bind(timerCommands, timerCommands)

	pollManager := realtime.NewPollManager(rootCtx, hub, log)
	wsHandler := realtime.NewWSHandler(hub, log, func(request *http.Request) bool {
		origin := request.Header.Get(constants.HeaderOrigin)
		return origin == "" || cfg.IsDevelopment() || middleware.OriginAllowed(cfg, origin)
	})

	// ── 7. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
		CheckSessionStore: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
	}, log)

	// ── 8. HTTP Server ────────────────────────────────────────────────────
	limiters := api.Limiters{
		// Credential endpoints share one window across replicas; the general
		// API window is per instance.
		Auth: middleware.NewRedisLimiter(rdb, cfg.RateLimitAuthMax, cfg.RateLimitAuthWindow),
		API:  middleware.NewMemoryLimiter(rootCtx, cfg.RateLimitAPIMax, cfg.RateLimitAPIWindow),
	}

	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      auth.NewHandler(authService, authOptions),
		Timer:     timer.NewHandler(timerService),
		Entry:     entry.NewHandler(entryService),
		Project:   project.NewHandler(projectService),
		Channel:   wsHandler,
		Poll:      pollManager,
	}

	server := api.NewServer(cfg, log, jwtService, authService, limiters, handlers)

	// ── 9. Serve until signal or fatal error ──────────────────────────────
	group, groupCtx := errgroup.WithContext(rootCtx)

	bindFailed := false
	group.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			bindFailed = true
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutting down server", slog.Duration("timeout", constants.ShutdownTimeout))
		return server.Shutdown(constants.ShutdownTimeout)
	})

	if err := group.Wait(); err != nil {
		log.Error("server terminated with error", slog.Any("error", err))
		if bindFailed {
			return exitBind
		}
		// Non-bind runtime errors (a failed graceful shutdown, for one) are
		// not configuration faults; they exit with the generic code.
		return exitFailure
	}

	log.Info("server stopped cleanly")
	return exitClean
}
