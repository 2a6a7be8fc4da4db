package main

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

	"github.com/joho/godotenv"

	"github.com/collabware/guest-lobby/guestlobby"
	"github.com/collabware/guest-lobby/internal/config"
	"github.com/collabware/guest-lobby/internal/directory"
	"github.com/collabware/guest-lobby/internal/notification"
	"github.com/collabware/guest-lobby/pkg/lobby"
	"github.com/collabware/guest-lobby/pkg/repository"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := repository.NewDB(repository.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	var notifier lobby.HostNotifier
	if cfg.HasSMTP() {
		notifier = notification.NewEmailService(notification.EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			FromName: cfg.SMTPFromName,
		})
		logger.Info("host notifications enabled", "smtp_host", cfg.SMTPHost)
	} else {
		logger.Info("host notifications disabled, SMTP not configured")
	}

	gl, err := guestlobby.New(guestlobby.Config{
		DB:                        db,
		JWTSecret:                 cfg.JWTSecret,
		Projects:                  directory.NewProjectDirectoryClient(cfg.ProjectDirectoryURL),
		Participants:              directory.NewParticipantRegistryClient(cfg.ParticipantRegistryURL),
		Users:                     directory.NewUserDirectoryClient(cfg.UserDirectoryURL),
		Notifier:                  notifier,
		MaxGuestsAllowedInProject: cfg.MaxGuestsAllowedInProject,
		DisableGuestMode:          !cfg.GuestModeEnabled,
		LobbyStateTTL:             cfg.LobbyStateTTL,
		GuestContextTTL:           cfg.GuestContextTTL,
		LobbyStateCacheSize:       cfg.LobbyStateCacheSize,
		GuestContextCacheSize:     cfg.GuestContextCacheSize,
		RateLimitEnabled:          cfg.RateLimitEnabled,
		GuestRequestsPerMinute:    cfg.GuestRequestsPerMinute,
		VerifyRequestsPerMinute:   cfg.VerifyRequestsPerMinute,
		MaxRequestBodySize:        cfg.MaxRequestBodySize,
		MetricsEnabled:            cfg.MetricsEnabled,
		Logger:                    logger,
	})
	if err != nil {
		return fmt.Errorf("init guest lobby: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	gl.Run(ctx)

	addr := fmt.Sprintf("%s:%d", cfg.ServerAddr, cfg.ServerPort)
	srv := &http.Server{
		Addr:              addr,
		Handler:           gl.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}

	logger.Info("server stopped")
	return nil
}
