package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gabriel/boxd-companion/internal/models"
)

const TrackersKey = "trackers"

type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) Get(ctx context.Context, key string) (*models.Setting, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT key, value, updated_at
		FROM settings
		WHERE key = ?
	`, key)

	var item models.Setting
	if err := row.Scan(&item.Key, &item.Value, &item.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get setting %s: %w", key, err)
	}

	return &item, nil
}

func (r *SettingsRepository) Put(ctx context.Context, key string, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
		WHERE settings.value IS NOT excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("put setting %s: %w", key, err)
	}
	return nil
}

// PutIfAbsent writes value only when key has never been set.
func (r *SettingsRepository) PutIfAbsent(ctx context.Context, key string, value string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)
	`, key, value)
	if err != nil {
		return false, fmt.Errorf("seed setting %s: %w", key, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("seed setting rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

func (r *SettingsRepository) ReadTrackers(ctx context.Context) (models.Trackers, bool, error) {
	setting, err := r.Get(ctx, TrackersKey)
	if err != nil {
		return nil, false, err
	}
	if setting == nil {
		return nil, false, nil
	}

	trackers := models.Trackers{}
	if err := json.Unmarshal([]byte(setting.Value), &trackers); err != nil {
		return nil, false, fmt.Errorf("decode trackers setting: %w", err)
	}
	return trackers, true, nil
}

func (r *SettingsRepository) WriteTrackers(ctx context.Context, trackers models.Trackers) error {
	payload, err := json.Marshal(trackers)
	if err != nil {
		return fmt.Errorf("encode trackers setting: %w", err)
	}
	return r.Put(ctx, TrackersKey, string(payload))
}
