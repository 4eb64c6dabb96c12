package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"time"

	_ "github.com/lib/pq"
	goredis "github.com/redis/go-redis/v9"

	"github.com/vncsmyrnk/presencepoll/internal/adapters/repository/postgres"
	redisstore "github.com/vncsmyrnk/presencepoll/internal/adapters/repository/redis"
	"github.com/vncsmyrnk/presencepoll/internal/config"
	"github.com/vncsmyrnk/presencepoll/internal/core/ports"
	"github.com/vncsmyrnk/presencepoll/internal/core/services"
)

// maintenance persists lazy poll status transitions and purges presence
// credentials older than the retention window. Gating never depends on it
// having run.
func main() {
	config.LoadDotEnv(slog.Default())

	cfg, err := config.Parse("maintenance", os.Args[1:])
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	db, err := sql.Open("postgres", cfg.DatabaseURL())
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to reach database", "error", err)
		os.Exit(1)
	}

	var credentials ports.CredentialRepository = postgres.NewCredentialRepository(db)
	if cfg.PresenceStore == config.PresenceRedis {
		opts, err := goredis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "error", err)
			os.Exit(2)
		}
		client := goredis.NewClient(opts)
		defer client.Close()
		credentials = redisstore.NewCredentialStore(client, cfg.CredentialRetention)
	}

	clock := services.SystemClock{}
	maintenance := services.NewMaintenanceService(postgres.NewPollRepository(db), credentials, clock, logger)

	// Use a timeout for the job execution to prevent it from hanging indefinitely
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	logger.Info("starting maintenance job")

	if err := maintenance.RefreshStatuses(ctx); err != nil {
		logger.Error("status refresh failed", "error", err)
		os.Exit(1)
	}

	purged, err := maintenance.PurgeExpiredCredentials(ctx, clock.Now().Add(-cfg.CredentialRetention))
	if err != nil {
		logger.Error("credential purge failed", "error", err)
		os.Exit(1)
	}

	logger.Info("maintenance completed", "credentials_purged", purged)
}
