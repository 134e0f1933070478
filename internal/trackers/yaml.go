package trackers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel/boxd-companion/internal/models"
	"gopkg.in/yaml.v3"
)

var ErrInvalidYAML = errors.New("invalid trackers yaml")

type yamlTracker struct {
	Name       string `yaml:"name"`
	URL        string `yaml:"url"`
	Enabled    *bool  `yaml:"enabled,omitempty"`
	SearchType string `yaml:"searchType,omitempty"`
}

func (t yamlTracker) isEnabled() bool {
	if t.Enabled == nil {
		return true
	}
	return *t.Enabled
}

// ExportYAML writes the custom trackers as a YAML list. Built-ins are never
// exported since every installation already has them.
func (r *Registry) ExportYAML(ctx context.Context) ([]byte, error) {
	current, err := r.Load(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]yamlTracker, 0, len(current))
	for _, tracker := range Sorted(current) {
		if tracker.BuiltIn {
			continue
		}
		enabled := tracker.Enabled
		items = append(items, yamlTracker{
			Name:       tracker.Name,
			URL:        tracker.URL,
			Enabled:    &enabled,
			SearchType: string(tracker.SearchType),
		})
	}

	out, err := yaml.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode trackers yaml: %w", err)
	}
	return out, nil
}

// ImportYAML adds every tracker of a YAML list as a new custom tracker. The
// import is all or nothing: one invalid entry rejects the whole document.
func (r *Registry) ImportYAML(ctx context.Context, raw []byte) ([]models.Tracker, error) {
	var items []yamlTracker
	if err := yaml.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	prepared := make([]models.Tracker, 0, len(items))
	for index, item := range items {
		searchType := models.SearchType(strings.TrimSpace(item.SearchType))
		if searchType == "" {
			searchType = models.SearchTypeTitle
		}
		tracker := models.Tracker{
			Name:       strings.TrimSpace(item.Name),
			URL:        strings.TrimSpace(item.URL),
			Enabled:    item.isEnabled(),
			SearchType: searchType,
		}
		if err := ValidateCustom(tracker.Name, tracker.URL, tracker.SearchType); err != nil {
			return nil, fmt.Errorf("tracker %d: %w", index+1, err)
		}
		prepared = append(prepared, tracker)
	}
	if len(prepared) == 0 {
		return []models.Tracker{}, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.loadForWrite(ctx)
	if err != nil {
		return nil, err
	}
	for index := range prepared {
		prepared[index].ID = r.nextID(current)
		current[prepared[index].ID] = prepared[index]
	}

	if err := r.Save(ctx, current); err != nil {
		return nil, err
	}
	return prepared, nil
}
