// Package app wires the taskboard server runtime: config, logging, database,
// HTTP routes, and the realtime gateway.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"taskboard/cmd/identity"
	authapi "taskboard/cmd/internal/auth/api"
	"taskboard/cmd/internal/auth/session"
	"taskboard/cmd/internal/board"
	boardapi "taskboard/cmd/internal/board/api"
	"taskboard/cmd/internal/invite"
	"taskboard/cmd/internal/migrations"
	"taskboard/cmd/internal/realtime"

	"github.com/jackc/pgx/v5/pgxpool"
)

// App is the server runtime. It owns the connection pool and the wired
// handlers; Run drives the HTTP server lifecycle.
type App struct {
	cfg Config
	log Logger

	pool      *pgxpool.Pool
	userStore identity.Store
	sessions  *session.Service

	auth    *authapi.Handler
	board   *boardapi.Handler
	ws      *realtime.WSGateway
	hub     *realtime.Hub
	metrics *Metrics
}

// New constructs a fully wired App from config. A reachable Postgres is
// required; there is no in-memory fallback.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat, cfg.LogColor)
	}

	if err := ValidateSecurityConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("TASKBOARD_DATABASE_URL is required")
	}

	if cfg.MigrateOnStart {
		if err := migrations.Run(ctx, cfg.DatabaseURL); err != nil {
			return nil, err
		}
		log.Info("db.migrations.applied")
	}

	pool, err := NewDBPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db pool: %w", err)
	}

	a, err := build(cfg, log, pool)
	if err != nil {
		pool.Close()
		return nil, err
	}

	if err := ensureBootstrapAdmin(ctx, log, a.userStore, cfg); err != nil {
		pool.Close()
		return nil, err
	}

	return a, nil
}

func build(cfg Config, log Logger, pool *pgxpool.Pool) (*App, error) {
	users, err := identity.NewPostgresStore(pool)
	if err != nil {
		return nil, err
	}

	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	sessStore, err := session.NewPostgresStore(pool)
	if err != nil {
		return nil, err
	}
	sessions, err := session.NewService(sessCfg, users, sessStore)
	if err != nil {
		return nil, err
	}

	inviteStore, err := invite.NewPostgresStore(pool)
	if err != nil {
		return nil, err
	}
	invites, err := invite.NewService(inviteStore)
	if err != nil {
		return nil, err
	}

	authCfg := authapi.LoadConfigFromEnv()
	auth, err := authapi.NewHandler(log, authCfg, users, sessions, invites)
	if err != nil {
		return nil, err
	}

	hub := realtime.NewHub(log)
	ws, err := realtime.NewWSGateway(log, hub, sessions)
	if err != nil {
		return nil, err
	}

	taskStore, err := board.NewPostgresStore(pool)
	if err != nil {
		return nil, err
	}
	tasks, err := board.NewService(taskStore, hub)
	if err != nil {
		return nil, err
	}
	boardHandler, err := boardapi.NewHandler(log, tasks, authCfg.MaxBodyBytes)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:       cfg,
		log:       log,
		pool:      pool,
		userStore: users,
		sessions:  sessions,
		auth:      auth,
		board:     boardHandler,
		ws:        ws,
		hub:       hub,
		metrics:   NewMetrics(hub.ClientCount),
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or a fatal
// server error. Shutdown is graceful with a bounded deadline.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.pool, a.auth, a.board, a.ws, a.metrics)

	var handler http.Handler = mux
	handler = WithCORS(handler, a.cfg, a.log)
	handler = WithRequestLogging(handler, a.log, a.metrics)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go a.purgeLoop(sweepCtx)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		a.pool.Close()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	a.pool.Close()
	if err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	a.log.Info("server.stopped")
	return nil
}

// purgeLoop periodically deletes expired refresh-token rows so the sessions
// table does not grow without bound.
func (a *App) purgeLoop(ctx context.Context) {
	if a.cfg.SessionPurgeInterval <= 0 {
		return
	}

	t := time.NewTicker(a.cfg.SessionPurgeInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := a.sessions.PurgeExpired(ctx, time.Now().UTC())
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					a.log.Warn("session.purge.fail", "err", err)
				}
				continue
			}
			if n > 0 {
				a.log.Info("session.purge.ok", "deleted", n)
			}
		}
	}
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
