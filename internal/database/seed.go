package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/gabriel/boxd-companion/internal/repository"
	"github.com/gabriel/boxd-companion/internal/trackers"
)

// SeedDefaults stores the built-in trackers on first start. An existing
// tracker setting is left untouched, even an unreadable one.
func SeedDefaults(db *sql.DB) error {
	payload, err := json.Marshal(trackers.Defaults())
	if err != nil {
		return fmt.Errorf("encode default trackers: %w", err)
	}

	repo := repository.NewSettingsRepository(db)
	if _, err := repo.PutIfAbsent(context.Background(), repository.TrackersKey, string(payload)); err != nil {
		return fmt.Errorf("seed trackers: %w", err)
	}
	return nil
}
