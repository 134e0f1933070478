package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gabriel/boxd-companion/internal/broadcast"
	"github.com/gabriel/boxd-companion/internal/config"
	"github.com/gabriel/boxd-companion/internal/database"
	apihttp "github.com/gabriel/boxd-companion/internal/http"
	"github.com/gabriel/boxd-companion/internal/messaging"
	"github.com/gabriel/boxd-companion/internal/page"
	"github.com/gabriel/boxd-companion/internal/releasedates"
	"github.com/gabriel/boxd-companion/internal/repository"
	"github.com/gabriel/boxd-companion/internal/scheduler"
	"github.com/gabriel/boxd-companion/internal/trackers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	db, err := database.Open(cfg.SQLitePath)
	if err != nil {
		slog.Error("failed to open sqlite", "path", cfg.SQLitePath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.ApplyMigrations(db, cfg.MigrationsPath); err != nil {
		slog.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	if cfg.SeedDefaultData {
		if err := database.SeedDefaults(db); err != nil {
			slog.Error("failed to seed defaults", "error", err)
			os.Exit(1)
		}
	}

	pattern, err := broadcast.ParsePattern(cfg.TargetSitePattern)
	if err != nil {
		slog.Error("invalid target site pattern", "pattern", cfg.TargetSitePattern, "error", err)
		os.Exit(1)
	}
	hub := broadcast.NewHub(pattern, logger)
	broadcasters := []broadcast.Broadcaster{hub}
	var remote []*broadcast.Detached

	var natsBroadcaster *broadcast.NATSBroadcaster
	if cfg.NATSURL != "" {
		natsBroadcaster, err = broadcast.ConnectNATS(cfg.NATSURL, cfg.NATSSubject, cfg.AppName, logger)
		if err != nil {
			slog.Warn("nats unavailable, tracker updates stay local", "url", cfg.NATSURL, "error", err)
		} else {
			stopRelay, relayErr := natsBroadcaster.Relay(hub)
			if relayErr != nil {
				slog.Warn("nats relay not started", "error", relayErr)
			} else {
				defer func() { _ = stopRelay() }()
			}
			remote = append(remote, broadcast.NewDetached(natsBroadcaster, logger))
		}
	}
	if cfg.BroadcastWebhook != "" {
		webhook, webhookErr := broadcast.NewWebhook(cfg.BroadcastWebhook)
		if webhookErr != nil {
			slog.Warn("broadcast webhook disabled", "error", webhookErr)
		} else {
			remote = append(remote, broadcast.NewDetached(webhook, logger))
		}
	}
	for _, detached := range remote {
		broadcasters = append(broadcasters, detached)
	}

	registry := trackers.NewRegistry(repository.NewSettingsRepository(db), broadcast.NewMulti(broadcasters...), logger)
	resolver := releasedates.NewResolver(releasedates.Options{
		BaseURL: cfg.AggregatorBaseURL,
		Timeout: cfg.AggregatorTimeout,
		Logger:  logger,
	})
	background := messaging.NewBackground(resolver, logger)
	if cfg.BackgroundURL != "" {
		slog.Info("page sessions resolve through remote background", "url", cfg.BackgroundURL)
	}
	sessions := page.NewStore(page.StoreConfig{
		Channel:          messaging.ChannelFor(cfg.BackgroundURL, cfg.AggregatorTimeout, background),
		Trackers:         registry,
		Updates:          hub,
		DefaultSourceURL: cfg.AggregatorBaseURL,
		Logger:           logger,
	})

	prober := scheduler.NewProber(resolver, scheduler.ProberConfig{
		Interval: time.Duration(cfg.ProbeMinutes) * time.Minute,
	}, logger)
	deps := apihttp.Dependencies{
		Hub:        hub,
		Registry:   registry,
		Background: background,
		Sessions:   sessions,
	}

	proberCtx, proberCancel := context.WithCancel(context.Background())
	if cfg.ProbeEnabled {
		deps.Prober = prober
		prober.Start(proberCtx)
	}

	app := apihttp.NewServerWithDependencies(cfg, db, deps)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server stopped", "error", err)
		}
	}()

	slog.Info("api started", "port", cfg.Port, "env", cfg.Environment, "aggregator", resolver.BaseURL())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	slog.Info("shutting down server")
	sessions.CloseAll()
	proberCancel()
	if cfg.ProbeEnabled {
		prober.StopWait(2 * time.Second)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	for _, detached := range remote {
		detached.Wait()
	}
	if natsBroadcaster != nil {
		natsBroadcaster.Close()
	}
}
