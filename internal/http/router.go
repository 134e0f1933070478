package http

import (
	"database/sql"
	"log/slog"

	"github.com/gabriel/boxd-companion/internal/broadcast"
	"github.com/gabriel/boxd-companion/internal/config"
	"github.com/gabriel/boxd-companion/internal/http/handlers"
	"github.com/gabriel/boxd-companion/internal/messaging"
	"github.com/gabriel/boxd-companion/internal/page"
	"github.com/gabriel/boxd-companion/internal/releasedates"
	"github.com/gabriel/boxd-companion/internal/repository"
	"github.com/gabriel/boxd-companion/internal/scheduler"
	"github.com/gabriel/boxd-companion/internal/trackers"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Dependencies lets callers share components with the server. Nil fields are
// built from the config.
type Dependencies struct {
	Hub        *broadcast.Hub
	Registry   *trackers.Registry
	Background messaging.Handler
	Sessions   *page.Store
	Prober     *scheduler.Prober
}

func NewServer(cfg config.Config, db *sql.DB) *fiber.App {
	return NewServerWithDependencies(cfg, db, Dependencies{})
}

func NewServerWithDependencies(cfg config.Config, db *sql.DB, deps Dependencies) *fiber.App {
	deps = withDefaults(cfg, db, deps)

	app := fiber.New(fiber.Config{
		AppName: cfg.AppName,
	})

	app.Use(recover.New())

	var probes handlers.ProbeReporter
	if deps.Prober != nil {
		probes = deps.Prober
	}
	health := handlers.NewHealthHandler(db, probes)
	trackerHandlers := handlers.NewTrackersHandler(deps.Registry, deps.Hub)
	messages := handlers.NewMessagesHandler(deps.Background)
	sessions := handlers.NewSessionsHandler(deps.Sessions)
	settings := handlers.NewSettingsHandler(deps.Registry)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/settings", fiber.StatusFound)
	})
	app.Get("/settings", settings.Page)
	app.Post("/settings/trackers", settings.AddFromForm)
	app.Post("/settings/trackers/:id/toggle", settings.ToggleFromForm)
	app.Post("/settings/trackers/:id/delete", settings.DeleteFromForm)
	app.Get("/health", health.Check)
	app.Get("/v1/health", health.Check)

	v1 := app.Group("/v1")
	v1.Post("/messages", messages.Post)
	v1.Get("/trackers", trackerHandlers.List)
	v1.Post("/trackers", trackerHandlers.Create)
	v1.Get("/trackers/export", trackerHandlers.Export)
	v1.Post("/trackers/import", trackerHandlers.Import)
	v1.Get("/trackers/events", trackerHandlers.Events)
	v1.Put("/trackers/:id/enabled", trackerHandlers.SetEnabled)
	v1.Delete("/trackers/:id", trackerHandlers.Delete)
	v1.Post("/sessions", sessions.Open)
	v1.Get("/sessions/:id", sessions.Get)
	v1.Get("/sessions/:id/page", sessions.Page)
	v1.Post("/sessions/:id/observe", sessions.Observe)
	v1.Post("/sessions/:id/click", sessions.Click)
	v1.Post("/sessions/:id/select", sessions.Select)
	v1.Delete("/sessions/:id", sessions.Delete)

	return app
}

func withDefaults(cfg config.Config, db *sql.DB, deps Dependencies) Dependencies {
	if deps.Hub == nil {
		pattern, err := broadcast.ParsePattern(cfg.TargetSitePattern)
		if err != nil {
			slog.Warn("invalid target site pattern, broadcasting to every page", "pattern", cfg.TargetSitePattern, "error", err)
		}
		deps.Hub = broadcast.NewHub(pattern, slog.Default())
	}
	if deps.Registry == nil {
		deps.Registry = trackers.NewRegistry(repository.NewSettingsRepository(db), deps.Hub, slog.Default())
	}
	if deps.Background == nil {
		resolver := releasedates.NewResolver(releasedates.Options{
			BaseURL: cfg.AggregatorBaseURL,
			Timeout: cfg.AggregatorTimeout,
			Logger:  slog.Default(),
		})
		deps.Background = messaging.NewBackground(resolver, slog.Default())
	}
	if deps.Sessions == nil {
		deps.Sessions = page.NewStore(page.StoreConfig{
			Channel:          messaging.ChannelFor(cfg.BackgroundURL, cfg.AggregatorTimeout, deps.Background),
			Trackers:         deps.Registry,
			Updates:          deps.Hub,
			DefaultSourceURL: cfg.AggregatorBaseURL,
			Logger:           slog.Default(),
		})
	}
	return deps
}
