package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/doj0985/databricks-aibi-external-embedding/internal/config"
	"github.com/doj0985/databricks-aibi-external-embedding/internal/databricks"
	"github.com/doj0985/databricks-aibi-external-embedding/internal/database"
	"github.com/doj0985/databricks-aibi-external-embedding/internal/directory"
	"github.com/doj0985/databricks-aibi-external-embedding/internal/handler"
	"github.com/doj0985/databricks-aibi-external-embedding/internal/middleware"
	"github.com/doj0985/databricks-aibi-external-embedding/internal/router"
	"github.com/doj0985/databricks-aibi-external-embedding/internal/session"
)

type App struct {
	server       *http.Server
	cleanupFuncs []func()
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	userDirectory, err := directory.Load(cfg.UsersFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load user directory: %w", err)
	}
	slog.Info("user directory loaded", "users", len(userDirectory.Usernames()))

	var cleanupFuncs []func()

	// Sessions default to process memory; a DATABASE_URL switches to a
	// shared Postgres store.
	var sessionStore session.Store = session.NewMemoryStore()
	if cfg.DatabaseURL != "" {
		slog.Info("connecting to PostgreSQL for session storage")
		db, err := database.New(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.EnsureSchema(context.Background()); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ensure database schema: %w", err)
		}

		pgStore := session.NewPostgresStore(db.Pool)
		sessionStore = pgStore
		cleanupFuncs = append(cleanupFuncs, db.Close)

		cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
		go cleanExpiredSessions(cleanupCtx, pgStore)
		cleanupFuncs = append(cleanupFuncs, cleanupCancel)
	}

	sessions := session.NewService(userDirectory, sessionStore, cfg.SessionSecret, cfg.SessionTTL)
	sessionMiddleware := middleware.NewSessionMiddleware(sessions)
	authHandler := handler.NewAuthHandler(sessions, cfg.SessionTTL)

	minter := databricks.NewClient(cfg.Databricks)
	dashboardHandler := handler.NewDashboardHandler(minter, cfg.Databricks)

	if cfg.Databricks.WorkspaceURL == "" {
		slog.Warn("databricks workspace not configured; embed-config requests will fail")
	}

	appRouter := router.New(cfg, sessionMiddleware, authHandler, dashboardHandler)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{server: server, cleanupFuncs: cleanupFuncs}, nil
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

func cleanExpiredSessions(ctx context.Context, store *session.PostgresStore) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.CleanExpired(ctx)
			if err != nil {
				slog.Warn("session cleanup failed", "error", err)
				continue
			}
			if removed > 0 {
				slog.Info("expired sessions removed", "count", removed)
			}
		}
	}
}
