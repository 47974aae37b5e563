package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/diewo77/go-quotes/auth"
	"github.com/diewo77/go-quotes/internal/blob"
	"github.com/diewo77/go-quotes/internal/config"
	"github.com/diewo77/go-quotes/internal/db"
	"github.com/diewo77/go-quotes/internal/identity"
	"github.com/diewo77/go-quotes/internal/metrics"
	"github.com/diewo77/go-quotes/internal/persistence"
	"github.com/diewo77/go-quotes/internal/services"
)

var migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg := config.Load()
	setupLogging(cfg.App.Dev)
	if err := cfg.Validate(); err != nil {
		fatal("invalid configuration", err)
	}

	dbConn, err := db.Open(cfg.Database, cfg.App.Debug)
	if err != nil {
		fatal("failed to connect to database", err)
	}

	if *migrateOnlyFlag {
		if err := db.Migrate(dbConn, cfg.Database, true); err != nil {
			fatal("migration failed", err)
		}
		slog.Info("migrations completed successfully")
		return
	}

	// SQL migrations only when asked; AutoMigrate otherwise keeps a fresh
	// sqlite file usable without a separate step.
	if err := db.Migrate(dbConn, cfg.Database, cfg.App.Migrations); err != nil {
		fatal("migration failed", err)
	}

	app, err := build(context.Background(), cfg, dbConn)
	if err != nil {
		fatal("startup failed", err)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Server.Port, "dev", cfg.App.Dev,
			"storage", cfg.Storage.Driver, "auth", cfg.Auth.Provider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("server error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("error during shutdown", "err", err)
	}
	slog.Info("server stopped gracefully")
}

// build wires storage, identity, archiving and metrics into the App.
func build(ctx context.Context, cfg *config.Config, dbConn *gorm.DB) (*App, error) {
	if cfg.Auth.SessionSecret != "" {
		auth.SetSecret(cfg.Auth.SessionSecret)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewPrometheus(reg)

	var store persistence.Store
	switch cfg.Storage.Driver {
	case "memory":
		slog.Warn("documents are kept in memory and lost on restart")
		store = persistence.NewMemory()
	default:
		store = persistence.NewSQL(dbConn)
	}

	var provider identity.Provider
	switch cfg.Auth.Provider {
	case "supabase":
		provider = identity.NewSupabase(cfg.Auth.SupabaseURL, cfg.Auth.SupabaseAnonKey, cfg.Auth.ResetRedirect, &http.Client{Timeout: 10 * time.Second})
	default:
		local := identity.NewLocal(dbConn, identity.LogNotifier(cfg.App.Dev))
		// Sessions of deleted local accounts are dropped.
		auth.SetUserVerifier(local.Exists)
		provider = local
	}

	archive, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		return nil, err
	}

	ws := services.NewWorkspaces(store, services.Options{Metrics: rec, Logger: slog.Default()})
	return NewApp(Deps{
		Workspaces: ws,
		Identity:   provider,
		Archive:    archive,
		Metrics:    promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Ping: func(ctx context.Context) error {
			sqlDB, err := dbConn.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}), nil
}

func setupLogging(dev bool) {
	var h slog.Handler
	if dev {
		h = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		h = slog.NewJSONHandler(os.Stderr, nil)
	}
	slog.SetDefault(slog.New(h))
}

func fatal(msg string, err error) {
	slog.Error(msg, "err", err)
	os.Exit(1)
}
