package trackers

import (
	_ "embed"
	"fmt"

	"github.com/gabriel/boxd-companion/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

var builtIns = mustLoadBuiltIns(defaultsYAML)

func mustLoadBuiltIns(raw []byte) []models.Tracker {
	items, err := parseBuiltIns(raw)
	if err != nil {
		panic(err)
	}
	return items
}

func parseBuiltIns(raw []byte) ([]models.Tracker, error) {
	var items []models.Tracker
	if err := yaml.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode built-in trackers: %w", err)
	}

	seen := make(map[string]bool, len(items))
	for index, item := range items {
		if item.ID == "" {
			return nil, fmt.Errorf("built-in tracker %d: id is required", index)
		}
		if seen[item.ID] {
			return nil, fmt.Errorf("built-in tracker %q declared twice", item.ID)
		}
		if err := validateTemplate(item.URL); err != nil {
			return nil, fmt.Errorf("built-in tracker %q: %w", item.ID, err)
		}
		seen[item.ID] = true
		items[index].BuiltIn = true
		if !item.SearchType.Valid() {
			items[index].SearchType = models.SearchTypeTitle
		}
	}
	return items, nil
}

// Defaults returns a fresh copy of the canonical built-in trackers.
func Defaults() models.Trackers {
	out := make(models.Trackers, len(builtIns))
	for _, tracker := range builtIns {
		out[tracker.ID] = tracker
	}
	return out
}

// BuiltInIDs lists the reserved ids in their canonical order.
func BuiltInIDs() []string {
	ids := make([]string, 0, len(builtIns))
	for _, tracker := range builtIns {
		ids = append(ids, tracker.ID)
	}
	return ids
}

func IsBuiltIn(id string) bool {
	_, ok := builtInByID(id)
	return ok
}

func builtInByID(id string) (models.Tracker, bool) {
	for _, tracker := range builtIns {
		if tracker.ID == id {
			return tracker, true
		}
	}
	return models.Tracker{}, false
}

func builtInRank(id string) int {
	for index, tracker := range builtIns {
		if tracker.ID == id {
			return index
		}
	}
	return -1
}
