// Package main is the entry point for the umbrella API server.
//
// It loads configuration, connects to Postgres, wires the weather client,
// location resolver, host scheduler registry and reminder scheduler, mounts
// the HTTP handlers, and serves until SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/go-chi/chi/v5"

	"umbrella/internal/api/handlers"
	"umbrella/internal/config"
	"umbrella/internal/core"
	"umbrella/internal/db"
	"umbrella/internal/decision"
	"umbrella/internal/hostsched"
	"umbrella/internal/location"
	"umbrella/internal/notify"
	"umbrella/internal/scheduler"
	"umbrella/internal/types"
	"umbrella/internal/weather"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("umbrella API starting",
		"environment", cfg.Environment,
		"service", cfg.Service,
		"port", cfg.Server.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	if err := db.EnsureSchema(ctx, pool); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}

	prefs := db.NewPreferenceStore(pool, logger)
	weatherClient := weather.NewClient(cfg.Weather, logger)
	resolver := location.NewResolver(cfg.Location, weatherClient, logger)

	sink, err := buildSink(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("building delivery sink: %w", err)
	}

	registry := hostsched.NewRegistry(sink, cfg.Reminder.ConsentGranted, types.RealClock{}, logger)
	defer registry.Stop()

	reminders := scheduler.NewReminderScheduler(prefs, registry, resolver, weatherClient, types.RealClock{}, logger)
	decisions := decision.NewService(resolver, weatherClient, logger)

	// Trigger registrations are in-process and do not survive a restart.
	// Re-register from the persisted preference before accepting traffic.
	restoreReminder(ctx, prefs, reminders, logger)

	srv, err := core.NewServer(cfg, pool, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	decisionHandler := handlers.NewDecisionHandler(decisions, prefs, logger)
	preferenceHandler := handlers.NewPreferenceHandler(prefs, reminders, logger)
	reminderHandler := handlers.NewReminderHandler(reminders, logger)

	srv.Router().Route("/v1", func(r chi.Router) {
		r.Route("/decision", decisionHandler.RegisterRoutes)
		r.Route("/preferences", preferenceHandler.RegisterRoutes)
		r.Route("/reminders", reminderHandler.RegisterRoutes)
	})

	return serveHTTP(ctx, srv, cfg, logger)
}

// buildSink selects the delivery sink for fired triggers: an SQS publisher
// when a reminder queue is configured, otherwise a log-only sink for local
// development.
func buildSink(ctx context.Context, cfg *config.Config, logger *slog.Logger) (hostsched.Sink, error) {
	if cfg.AWS.ReminderQueue == "" {
		logger.Warn("SQS_REMINDERS not set; reminder deliveries will only be logged")
		return notify.NewLogSink(logger), nil
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWS.Region)}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.AWS.EndpointURL != "" {
			o.BaseEndpoint = &cfg.AWS.EndpointURL
		}
	})
	return notify.NewReminderPublisher(client, cfg.AWS.ReminderQueue, logger), nil
}

// restoreReminder re-registers the daily trigger when the persisted
// preference says reminders are enabled. Failure is logged, not fatal: the
// API must still come up so the user can re-enable.
func restoreReminder(ctx context.Context, prefs *db.PreferenceStore, reminders *scheduler.ReminderScheduler, logger *slog.Logger) {
	pref := prefs.Load(ctx)
	if !pref.Enabled {
		return
	}
	handle, err := reminders.Enable(ctx, pref.Hour, pref.Minute)
	if err != nil {
		logger.Error("failed to restore reminder registration", "error", err)
		return
	}
	logger.Info("restored reminder registration",
		"handle", handle, "hour", pref.Hour, "minute", pref.Minute)
}

// serveHTTP runs the HTTP server until the context is cancelled or the
// listener fails, then shuts down gracefully.
func serveHTTP(ctx context.Context, srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// newLogger builds the JSON slog logger at the configured level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
