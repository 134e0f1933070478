package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"sort"

	"github.com/gabriel/boxd-companion/internal/config"
	"github.com/gabriel/boxd-companion/internal/database"
	"github.com/gabriel/boxd-companion/internal/models"
	"github.com/gabriel/boxd-companion/internal/repository"
	"github.com/gabriel/boxd-companion/internal/trackers"
)

type staleTracker struct {
	ID     string
	Name   string
	URL    string
	Reason string
}

type cleanupPlan struct {
	Stale    []staleTracker
	Restored []string
	Cleaned  models.Trackers
}

func main() {
	var apply bool
	var reset bool
	flag.BoolVar(&apply, "apply", false, "Apply cleanup changes. Without this flag, the command is a dry-run preview.")
	flag.BoolVar(&reset, "reset-unreadable", false, "Overwrite an unreadable tracker setting with the built-in defaults.")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
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

	ctx := context.Background()
	repo := repository.NewSettingsRepository(db)

	persisted, found, err := repo.ReadTrackers(ctx)
	if err != nil {
		slog.Warn("tracker setting is unreadable", "error", err)
		if !reset || !apply {
			slog.Info("dry-run complete", "unreadable", true, "hint", "rerun with -apply -reset-unreadable to restore defaults")
			return
		}
		if err := repo.WriteTrackers(ctx, trackers.Defaults()); err != nil {
			slog.Error("failed to restore default trackers", "error", err)
			os.Exit(1)
		}
		slog.Info("cleanup completed", "restored_defaults", true)
		return
	}
	if !found {
		slog.Info("no tracker setting stored; nothing to clean")
		return
	}

	plan := planCleanup(persisted)
	for _, item := range plan.Stale {
		slog.Info("stale tracker detected", "tracker_id", item.ID, "name", item.Name, "url", item.URL, "reason", item.Reason)
	}
	for _, id := range plan.Restored {
		slog.Info("built-in tracker will be restored", "tracker_id", id)
	}

	if len(plan.Stale) == 0 && len(plan.Restored) == 0 {
		slog.Info("no stale trackers found; nothing to clean")
		return
	}

	if !apply {
		slog.Info("dry-run complete", "trackers_to_delete", len(plan.Stale), "built_ins_to_restore", len(plan.Restored))
		return
	}

	if err := repo.WriteTrackers(ctx, plan.Cleaned); err != nil {
		slog.Error("failed to apply tracker cleanup", "error", err)
		os.Exit(1)
	}
	slog.Info("cleanup completed", "deleted_trackers", len(plan.Stale), "restored_built_ins", len(plan.Restored))
}

// planCleanup drops custom trackers that no longer pass validation and
// rewrites built-ins that drifted from their definition.
func planCleanup(persisted models.Trackers) cleanupPlan {
	plan := cleanupPlan{
		Stale:    []staleTracker{},
		Restored: []string{},
		Cleaned:  trackers.Merge(persisted),
	}

	for _, id := range sortedIDs(persisted) {
		tracker := persisted[id]
		if trackers.IsBuiltIn(id) {
			if builtInDrifted(id, tracker, plan.Cleaned[id]) {
				plan.Restored = append(plan.Restored, id)
			}
			continue
		}

		searchType := tracker.SearchType
		if searchType == "" {
			searchType = models.SearchTypeTitle
		}
		if err := trackers.ValidateCustom(tracker.Name, tracker.URL, searchType); err != nil {
			plan.Stale = append(plan.Stale, staleTracker{ID: id, Name: tracker.Name, URL: tracker.URL, Reason: err.Error()})
			delete(plan.Cleaned, id)
		}
	}

	for _, id := range trackers.BuiltInIDs() {
		if _, ok := persisted[id]; !ok {
			plan.Restored = append(plan.Restored, id)
		}
	}
	return plan
}

func builtInDrifted(id string, stored, canonical models.Tracker) bool {
	if !stored.BuiltIn {
		return true
	}
	stored.ID = id
	return stored != canonical
}

func sortedIDs(items models.Trackers) []string {
	ids := make([]string, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
