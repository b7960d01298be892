package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/tudasmester/elira-backend/internal/config"
	"github.com/tudasmester/elira-backend/internal/database"
	"github.com/tudasmester/elira-backend/internal/logging"
	"github.com/tudasmester/elira-backend/internal/realtime"
	"github.com/tudasmester/elira-backend/internal/router"
	"github.com/tudasmester/elira-backend/internal/session"
	"github.com/tudasmester/elira-backend/internal/store"
)

func main() {
	// Initialize structured logging (reads LOGGING_LEVEL env var)
	logging.Initialize()

	// Load configuration
	cfg := config.Load()

	// Initialize database
	sqlDB, err := database.New(cfg.DatabasePath)
	if err != nil {
		slog.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer sqlDB.Close()

	// Run migrations
	if err := database.RunMigrations(sqlDB); err != nil {
		slog.Error("failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	st := store.New(sqlDB)

	// Session lifecycle tracker with periodic eviction sweep
	tracker := session.NewTracker(session.Thresholds{
		Expiry:  cfg.SessionExpiry,
		Warning: cfg.SessionWarning,
	})
	sweeper := session.NewSweeper(tracker, cfg.SessionSweepInterval)
	sweeper.Start()
	defer sweeper.Stop()

	// Change notification broker
	broker := realtime.NewBroker(st, cfg.PublishFetchTimeout)

	// Create router
	r := router.New(cfg, st, tracker, broker)

	// Start server
	addr := ":" + cfg.Port
	slog.Info("starting server", slog.String("addr", addr))

	if err := http.ListenAndServe(addr, r); err != nil {
		slog.Error("server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
