package handlers_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/gabriel/boxd-companion/internal/repository"
)

func TestSettingsPageListsTrackers(t *testing.T) {
	_, app, cleanup := setupTestApp(t)
	defer cleanup()

	res := doJSON(t, app, http.MethodGet, "/settings", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	body := readBody(t, res)
	for _, want := range []string{"1337x", "The RARBG", "The Pirate Bay", "IMDB", "Add custom tracker"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected settings page to contain %q", want)
		}
	}
	if strings.Contains(body, `class="delete"`) {
		t.Fatalf("built-in trackers must not offer delete")
	}
	if strings.Contains(body, `role="alert"`) {
		t.Fatalf("expected no storage warning")
	}
}

func TestSettingsAddTrackerFromForm(t *testing.T) {
	_, app, cleanup := setupTestApp(t)
	defer cleanup()

	invalid := doForm(t, app, "/settings/trackers", map[string]string{
		"name":       "YTS",
		"url":        "https://yts.mx/browse-movies",
		"searchType": "title",
	})
	if invalid.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", invalid.StatusCode)
	}
	invalidBody := readBody(t, invalid)
	if !strings.Contains(invalidBody, "URL must include {query} placeholder") {
		t.Fatalf("expected inline placeholder error")
	}
	if !strings.Contains(invalidBody, `value="https://yts.mx/browse-movies"`) {
		t.Fatalf("expected form values to be kept")
	}

	valid := doForm(t, app, "/settings/trackers", map[string]string{
		"name":       "YTS",
		"url":        "https://yts.mx/browse-movies/{query}",
		"searchType": "imdb",
	})
	if valid.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", valid.StatusCode)
	}
	if location := valid.Header.Get("Location"); location != "/settings" {
		t.Fatalf("expected redirect to /settings, got %q", location)
	}

	page := readBody(t, doJSON(t, app, http.MethodGet, "/settings", nil))
	if !strings.Contains(page, "YTS") || !strings.Contains(page, `class="delete"`) {
		t.Fatalf("expected custom tracker with delete button")
	}
}

func TestSettingsToggleAndDelete(t *testing.T) {
	_, app, cleanup := setupTestApp(t)
	defer cleanup()

	toggle := doForm(t, app, "/settings/trackers/1337x/toggle", nil)
	if toggle.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", toggle.StatusCode)
	}
	list := decodeMap(t, doJSON(t, app, http.MethodGet, "/v1/trackers?enabled=true", nil))
	for _, id := range itemIDs(t, list) {
		if id == "1337x" {
			t.Fatalf("expected 1337x to be disabled by toggle")
		}
	}

	explicit := doForm(t, app, "/settings/trackers/1337x/toggle", map[string]string{"enabled": "true"})
	if explicit.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", explicit.StatusCode)
	}
	list = decodeMap(t, doJSON(t, app, http.MethodGet, "/v1/trackers?enabled=true", nil))
	if got := len(itemIDs(t, list)); got != 3 {
		t.Fatalf("expected 3 enabled trackers, got %d", got)
	}

	missing := doForm(t, app, "/settings/trackers/tracker_1/toggle", nil)
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", missing.StatusCode)
	}

	created := decodeMap(t, doJSON(t, app, http.MethodPost, "/v1/trackers", map[string]any{
		"name": "YTS",
		"url":  "https://yts.mx/browse-movies/{query}",
	}))
	id, _ := created["id"].(string)

	deleted := doForm(t, app, "/settings/trackers/"+id+"/delete", nil)
	if deleted.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", deleted.StatusCode)
	}
	if got := len(itemIDs(t, decodeMap(t, doJSON(t, app, http.MethodGet, "/v1/trackers", nil)))); got != 3 {
		t.Fatalf("expected custom tracker to be deleted, got %d trackers", got)
	}
}

func TestSettingsPageShowsStorageWarning(t *testing.T) {
	db, app, cleanup := setupTestApp(t)
	defer cleanup()

	if err := repository.NewSettingsRepository(db).Put(context.Background(), repository.TrackersKey, "[]"); err != nil {
		t.Fatalf("corrupt settings: %v", err)
	}

	res := doJSON(t, app, http.MethodGet, "/settings", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	body := readBody(t, res)
	if !strings.Contains(body, `role="alert"`) || !strings.Contains(body, "The Pirate Bay") {
		t.Fatalf("expected warning banner over default trackers")
	}
}

func TestHealthReportsDatabase(t *testing.T) {
	db, app, cleanup := setupTestApp(t)
	defer cleanup()

	res := doJSON(t, app, http.MethodGet, "/health", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	if payload := decodeMap(t, res); payload["status"] != "ok" || payload["db"] != "up" {
		t.Fatalf("unexpected health payload %#v", payload)
	}

	_ = db.Close()
	down := doJSON(t, app, http.MethodGet, "/v1/health", nil)
	if down.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 with closed db, got %d", down.StatusCode)
	}
}
