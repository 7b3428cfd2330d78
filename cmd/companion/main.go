package main

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/companionlabs/companion/internal/auth"
	"github.com/companionlabs/companion/internal/config"
	"github.com/companionlabs/companion/internal/domains"
	"github.com/companionlabs/companion/internal/metrics"
	"github.com/companionlabs/companion/internal/notify"
	"github.com/companionlabs/companion/internal/registrar"
	"github.com/companionlabs/companion/internal/server"
	"github.com/companionlabs/companion/internal/store/postgres"
	redisstore "github.com/companionlabs/companion/internal/store/redis"
	migrations "github.com/companionlabs/companion/migrations/postgres"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	// Local development convenience; missing .env is fine.
	_ = godotenv.Load()

	// Initialize structured logging from environment.
	logLevel := os.Getenv("COMPANION_LOG_LEVEL")
	level, parseErr := zerolog.ParseLevel(logLevel)
	if parseErr != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logFormat := os.Getenv("COMPANION_LOG_FORMAT")
	if logFormat == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	ctx := context.Background()

	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.Database.MaxConns < 0 || cfg.Database.MaxConns > math.MaxInt32 {
		return fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
	}

	// Connect to PostgreSQL.
	store, err := postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
	if err != nil {
		return err
	}
	defer store.Close()

	// Apply pending schema migrations.
	applied, err := store.Migrate(ctx, migrations.FS)
	if err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	if applied > 0 {
		log.Info().Int("applied", applied).Msg("schema migrations applied")
	}

	// Connect to Redis for the per-domain verification locks.
	locks, err := redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return err
	}
	defer locks.Close()

	// Register Prometheus collectors.
	if err := metrics.Register(nil); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// Create auth service.
	authSvc := auth.NewService(store.Users(), store.Tenants(), cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)

	// Create the registrar client for the edge provider's domain API.
	edge := registrar.NewEdgeClient(
		cfg.Registrar.BaseURL,
		cfg.Registrar.Token,
		cfg.Registrar.TeamID,
		&http.Client{Timeout: 15 * time.Second},
	)

	// Lifecycle events go to Slack when a bot token is configured.
	var notifier notify.Notifier = notify.Nop{}
	if cfg.Slack.BotToken != "" {
		notifier = notify.NewSlackNotifier(cfg.Slack.BotToken, cfg.Slack.Channel)
		log.Info().Str("channel", cfg.Slack.Channel).Msg("Slack notifications enabled")
	}

	// Create the domain lifecycle orchestrator.
	lifecycle := domains.NewService(
		store.Domains(),
		store.Tenants(),
		edge,
		locks,
		notifier,
		domains.Config{
			EdgeIP:            cfg.Domains.EdgeIP,
			CNAMETarget:       cfg.Domains.CNAMETarget,
			RecordTTL:         cfg.Domains.RecordTTL,
			MaxVerifyAttempts: cfg.Domains.MaxVerifyAttempts,
			LockTTL:           cfg.Domains.LockTTL,
		},
	)

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Create HTTP server with all routes wired.
	srv := server.New(ctx, cfg, store, authSvc, lifecycle)

	// Start server in background goroutine.
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
		}
	}()

	// Block until shutdown signal.
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	log.Info().Msg("stopped")
	return nil
}
