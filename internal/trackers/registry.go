package trackers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gabriel/boxd-companion/internal/messaging"
	"github.com/gabriel/boxd-companion/internal/models"
)

var ErrNotFound = errors.New("tracker not found")

// Store persists the whole tracker mapping under a single settings key.
type Store interface {
	ReadTrackers(ctx context.Context) (models.Trackers, bool, error)
	WriteTrackers(ctx context.Context, trackers models.Trackers) error
}

type Broadcaster interface {
	Broadcast(ctx context.Context, msg messaging.UpdateTrackers) error
}

// StorageReadError accompanies the default mapping returned by Load when the
// store could not be read.
type StorageReadError struct {
	Err error
}

func (e *StorageReadError) Error() string {
	return fmt.Sprintf("read trackers: %v", e.Err)
}

func (e *StorageReadError) Unwrap() error { return e.Err }

type Registry struct {
	store       Store
	broadcaster Broadcaster
	logger      *slog.Logger
	now         func() time.Time

	// serialises read-modify-write sequences
	mu sync.Mutex
}

func NewRegistry(store Store, broadcaster Broadcaster, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		store:       store,
		broadcaster: broadcaster,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock replaces the time source used for custom tracker ids.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

// Load returns the effective tracker mapping. A store failure is not fatal:
// the built-in defaults are returned together with a *StorageReadError.
func (r *Registry) Load(ctx context.Context) (models.Trackers, error) {
	persisted, found, err := r.store.ReadTrackers(ctx)
	if err != nil {
		r.logger.Warn("tracker settings unreadable, using defaults", "error", err)
		return Defaults(), &StorageReadError{Err: err}
	}
	if !found {
		return Defaults(), nil
	}
	return Merge(persisted), nil
}

// Merge builds the effective mapping from a persisted one. Built-in ids always
// carry their canonical definition; the stored enabled flag survives only when
// the stored entry still carries the built-in marker. Other entries can never
// claim the built-in marker.
func Merge(persisted models.Trackers) models.Trackers {
	merged := make(models.Trackers, len(persisted)+len(builtIns))
	for id, tracker := range persisted {
		if IsBuiltIn(id) {
			continue
		}
		tracker.ID = id
		tracker.BuiltIn = false
		if !tracker.SearchType.Valid() {
			tracker.SearchType = models.SearchTypeTitle
		}
		merged[id] = tracker
	}

	for _, canonical := range builtIns {
		stored, ok := persisted[canonical.ID]
		if ok && stored.BuiltIn {
			canonical.Enabled = stored.Enabled
		}
		merged[canonical.ID] = canonical
	}
	return merged
}

// Save persists the full mapping, then tells every open page about it.
// Broadcast failures are logged and otherwise ignored.
func (r *Registry) Save(ctx context.Context, trackers models.Trackers) error {
	if err := r.store.WriteTrackers(ctx, trackers); err != nil {
		return fmt.Errorf("save trackers: %w", err)
	}

	if r.broadcaster != nil {
		if err := r.broadcaster.Broadcast(ctx, messaging.NewUpdateTrackers(trackers)); err != nil {
			r.logger.Debug("tracker broadcast incomplete", "error", err)
		}
	}
	return nil
}

// AddCustom validates and persists a user tracker. Nothing is written when
// validation fails.
func (r *Registry) AddCustom(ctx context.Context, name, urlTemplate string, searchType models.SearchType) (models.Tracker, error) {
	name = strings.TrimSpace(name)
	urlTemplate = strings.TrimSpace(urlTemplate)
	if searchType == "" {
		searchType = models.SearchTypeTitle
	}
	if err := ValidateCustom(name, urlTemplate, searchType); err != nil {
		return models.Tracker{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.loadForWrite(ctx)
	if err != nil {
		return models.Tracker{}, err
	}

	tracker := models.Tracker{
		ID:         r.nextID(current),
		Name:       name,
		URL:        urlTemplate,
		Enabled:    true,
		BuiltIn:    false,
		SearchType: searchType,
	}
	current[tracker.ID] = tracker

	if err := r.Save(ctx, current); err != nil {
		return models.Tracker{}, err
	}
	return tracker, nil
}

// Remove deletes a custom tracker. Built-in ids are ignored and report false.
func (r *Registry) Remove(ctx context.Context, id string) (bool, error) {
	if IsBuiltIn(id) {
		return false, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.loadForWrite(ctx)
	if err != nil {
		return false, err
	}
	if _, ok := current[id]; !ok {
		return false, nil
	}
	delete(current, id)

	if err := r.Save(ctx, current); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Registry) SetEnabled(ctx context.Context, id string, enabled bool) (models.Tracker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.loadForWrite(ctx)
	if err != nil {
		return models.Tracker{}, err
	}
	tracker, ok := current[id]
	if !ok {
		return models.Tracker{}, ErrNotFound
	}
	tracker.Enabled = enabled
	current[id] = tracker

	if err := r.Save(ctx, current); err != nil {
		return models.Tracker{}, err
	}
	return tracker, nil
}

// loadForWrite fails instead of falling back to the defaults.
func (r *Registry) loadForWrite(ctx context.Context) (models.Trackers, error) {
	current, err := r.Load(ctx)
	if err != nil {
		return nil, err
	}
	return current, nil
}

func (r *Registry) nextID(existing models.Trackers) string {
	millis := r.now().UnixMilli()
	for {
		id := "tracker_" + strconv.FormatInt(millis, 10)
		if _, taken := existing[id]; !taken {
			return id
		}
		millis++
	}
}
