package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"
	"github.com/textfolk/server/internal/assist"
	"github.com/textfolk/server/internal/config"
	"github.com/textfolk/server/internal/db"
	httphandler "github.com/textfolk/server/internal/http"
	"github.com/textfolk/server/internal/http/handlers"
	"github.com/textfolk/server/internal/logger"
	"github.com/textfolk/server/internal/repo"
	"github.com/textfolk/server/internal/sms"

	_ "github.com/lib/pq"
)

func main() {
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init("textfolk", cfg.Debug)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer database.Close()

	if err := runMigrations(database); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	userRepo := repo.NewUserRepo(database)
	contactRepo := repo.NewContactRepo(database)
	groupRepo := repo.NewGroupRepo(database)
	pendingRepo := repo.NewPendingRepo(database)

	service := assist.NewService(userRepo, contactRepo, groupRepo, pendingRepo, cfg.DefaultRegion)

	var messenger sms.Messenger
	if cfg.OutboundEnabled() {
		messenger = sms.NewTwilioMessenger(cfg.Twilio.AccountSID, cfg.Twilio.APIKeySID, cfg.Twilio.APIKeySecret, cfg.Twilio.ServerNumber)
	} else {
		log.Warn().Msg("Twilio credentials not configured; outbound messages are log-only")
		messenger = sms.NewLogMessenger()
	}
	if cfg.Twilio.ClientNumber != "" {
		sid, err := messenger.Send(ctx, cfg.Twilio.ClientNumber, "Server is starting up")
		if err != nil {
			log.Error().Err(err).Msg("startup notification failed")
		} else {
			log.Debug().Str("sid", sid).Msg("startup notification sent")
		}
	}

	sweeper := assist.NewSweeper(pendingRepo)
	go sweeper.Run(ctx)

	smsHandler := handlers.NewSMSHandler(service, cfg.DefaultRegion)
	router := httphandler.NewRouter(smsHandler, cfg.Twilio.AuthToken, cfg.PublicURL)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server exited")
}

// runMigrations runs database migrations using goose
func runMigrations(database *sql.DB) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	migrationDir := "internal/db/migrations"
	if info, err := os.Stat(migrationDir); err != nil || !info.IsDir() {
		return fmt.Errorf("migrations directory not found (run from the module root)")
	}
	if err := goose.Up(database, migrationDir); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
