package main

import (
	"reflect"
	"testing"

	"github.com/gabriel/boxd-companion/internal/models"
	"github.com/gabriel/boxd-companion/internal/trackers"
)

func TestPlanCleanupDropsInvalidCustomTrackers(t *testing.T) {
	persisted := trackers.Defaults()
	persisted["tracker_1"] = models.Tracker{ID: "tracker_1", Name: "YTS", URL: "https://yts.mx/browse-movies/{query}", Enabled: true, SearchType: models.SearchTypeTitle}
	persisted["tracker_2"] = models.Tracker{ID: "tracker_2", Name: "Broken", URL: "https://example.com/search", Enabled: true}
	persisted["tracker_3"] = models.Tracker{ID: "tracker_3", Name: "", URL: "https://example.com/{query}", Enabled: true}

	plan := planCleanup(persisted)

	var ids []string
	for _, item := range plan.Stale {
		ids = append(ids, item.ID)
	}
	if !reflect.DeepEqual(ids, []string{"tracker_2", "tracker_3"}) {
		t.Fatalf("unexpected stale trackers %v", ids)
	}
	if len(plan.Restored) != 0 {
		t.Fatalf("expected no built-ins to restore, got %v", plan.Restored)
	}
	if _, ok := plan.Cleaned["tracker_1"]; !ok {
		t.Fatalf("expected valid custom tracker to be kept")
	}
	if _, ok := plan.Cleaned["tracker_2"]; ok {
		t.Fatalf("expected invalid custom tracker to be dropped")
	}
}

func TestPlanCleanupRestoresDriftedBuiltIns(t *testing.T) {
	persisted := trackers.Defaults()
	tampered := persisted["rarbg"]
	tampered.URL = "https://example.com/{query}"
	persisted["rarbg"] = tampered
	delete(persisted, "piratebay")

	plan := planCleanup(persisted)

	if !reflect.DeepEqual(plan.Restored, []string{"rarbg", "piratebay"}) {
		t.Fatalf("unexpected restored built-ins %v", plan.Restored)
	}
	if plan.Cleaned["rarbg"].URL != trackers.Defaults()["rarbg"].URL {
		t.Fatalf("expected canonical rarbg url, got %q", plan.Cleaned["rarbg"].URL)
	}
	if _, ok := plan.Cleaned["piratebay"]; !ok {
		t.Fatalf("expected missing built-in to be restored")
	}
}

func TestPlanCleanupKeepsDisabledBuiltIn(t *testing.T) {
	persisted := trackers.Defaults()
	disabled := persisted["1337x"]
	disabled.Enabled = false
	persisted["1337x"] = disabled

	plan := planCleanup(persisted)

	if len(plan.Stale) != 0 || len(plan.Restored) != 0 {
		t.Fatalf("expected nothing to clean, got %+v", plan)
	}
	if plan.Cleaned["1337x"].Enabled {
		t.Fatalf("expected enabled flag to be preserved")
	}
}
