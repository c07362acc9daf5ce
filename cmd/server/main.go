package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/garnizeh/intake/api"
	dbfs "github.com/garnizeh/intake/db"
	"github.com/garnizeh/intake/internal/auth"
	"github.com/garnizeh/intake/internal/config"
	"github.com/garnizeh/intake/internal/db"
	"github.com/garnizeh/intake/internal/jobs"
	"github.com/garnizeh/intake/internal/notify"
	"github.com/garnizeh/intake/internal/repository/sqlite"
	"github.com/garnizeh/intake/internal/requests"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to config YAML file")
		envFile    = flag.String("env-file", ".env", "Optional dotenv file loaded before the environment is read")
	)
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("Failed to load %s: %v", *envFile, err)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)
	api.SetLogger(logger)

	logger.Info("starting intake server", slog.String("version", version), slog.String("build_time", buildTime), slog.String("env", cfg.Env))

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", slog.Any("err", err))
		os.Exit(1)
	}
	logger.Info("server exited")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open database connection
	conn, err := db.New(ctx, cfg.DatabasePath, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Error("error closing db", slog.Any("err", err))
		}
	}()

	if cfg.MigrateOnStart {
		if err := db.Migrate(ctx, conn, dbfs.Migrations); err != nil {
			return err
		}
	}

	repo := sqlite.New(conn, logger)

	var sender notify.Sender
	if cfg.SMTP.Host != "" {
		sender = notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	} else {
		logger.Warn("smtp.host not set, e-mail will only be logged")
		sender = notify.NewLogSender(logger)
	}

	pool := jobs.NewWorkerPool(jobs.NewRepository(conn), map[string]jobs.Handler{
		notify.JobType: notify.SendHandler(sender),
	}, logger, cfg.Notify.Workers)
	pool.Start(ctx)
	defer pool.Stop()

	notifier := notify.NewQueuedNotifier(notify.NewMailer(cfg.AdminEmail), pool, cfg.Notify.MaxAttempts, logger)

	handler := api.SetupRoutes(cfg, version, buildTime, api.Deps{
		Gate:     auth.NewGate(repo, cfg.JWTSecret, cfg.TokenDuration, logger),
		Requests: requests.NewStore(repo, notifier, logger),
		Stats:    requests.NewAggregator(repo),
		DB:       conn,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadTimeout:       cfg.APITimeout,
		ReadHeaderTimeout: cfg.APITimeout,
		WriteTimeout:      cfg.APITimeout,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", cfg.Addr), slog.Bool("rate_limit", cfg.RateLimitEnabled()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}
