package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gabriel/boxd-companion/internal/config"
)

func TestMessagesGetReleaseDates(t *testing.T) {
	_, app, cleanup := setupTestApp(t)
	defer cleanup()

	res := doJSON(t, app, http.MethodPost, "/v1/messages", map[string]any{
		"action":     "getReleaseDates",
		"movieTitle": "Inception",
		"movieYear":  "2010",
	})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	payload := decodeMap(t, res)
	if payload["success"] != true {
		t.Fatalf("expected success, got %#v", payload)
	}
	if url, _ := payload["url"].(string); !strings.HasSuffix(url, "/movies/inception-2010") {
		t.Fatalf("unexpected resolved url %q", url)
	}
	if html, _ := payload["html"].(string); !strings.Contains(html, "December 7, 2010") {
		t.Fatalf("expected movie page html, got %q", html)
	}
}

func TestMessagesFailuresStayInBody(t *testing.T) {
	_, app, cleanup := setupTestApp(t)
	defer cleanup()

	unknown := doJSON(t, app, http.MethodPost, "/v1/messages", map[string]any{"action": "ping"})
	if unknown.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", unknown.StatusCode)
	}
	if payload := decodeMap(t, unknown); payload["success"] != false || payload["error"] != "unknown action" {
		t.Fatalf("unexpected response %#v", payload)
	}

	missingTitle := doJSON(t, app, http.MethodPost, "/v1/messages", map[string]any{
		"action":     "getReleaseDates",
		"movieTitle": "",
	})
	if payload := decodeMap(t, missingTitle); payload["success"] != false || payload["error"] != "Missing movie title" {
		t.Fatalf("unexpected response %#v", payload)
	}
}

func TestSessionLifecycle(t *testing.T) {
	_, app, cleanup := setupTestApp(t)
	defer cleanup()

	openRes := doJSON(t, app, http.MethodPost, "/v1/sessions?wait=true", map[string]any{
		"url":  "https://letterboxd.com/film/inception/",
		"html": filmPage,
	})
	if openRes.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", openRes.StatusCode)
	}
	session := decodeMap(t, openRes)
	id, _ := session["id"].(string)
	if id == "" {
		t.Fatalf("expected session id")
	}
	if session["controlInserted"] != true {
		t.Fatalf("expected control to be inserted")
	}
	if session["resolution"] != "done" {
		t.Fatalf("expected resolution done, got %v (error %v)", session["resolution"], session["error"])
	}
	if info, _ := session["info"].(string); info != "DVD/Blu-ray: December 7, 2010 • Digital: November 23, 2010" {
		t.Fatalf("unexpected info %q", info)
	}

	pageRes := doJSON(t, app, http.MethodGet, "/v1/sessions/"+id+"/page", nil)
	pageHTML := readBody(t, pageRes)
	if strings.Count(pageHTML, "download-movie-button") != 1 {
		t.Fatalf("expected exactly one control in page, got %q", pageHTML)
	}
	if !strings.Contains(pageHTML, "/movies/inception-2010") {
		t.Fatalf("expected info button to link the source page")
	}

	observeRes := doJSON(t, app, http.MethodPost, "/v1/sessions/"+id+"/observe", map[string]any{"html": pageHTML})
	if observeRes.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", observeRes.StatusCode)
	}
	if decodeMap(t, observeRes)["inserted"] != false {
		t.Fatalf("control must not be inserted twice")
	}

	clickRes := doJSON(t, app, http.MethodPost, "/v1/sessions/"+id+"/click", map[string]any{"target": "control"})
	if clickRes.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", clickRes.StatusCode)
	}
	dropdown, ok := decodeMap(t, clickRes)["dropdown"].(map[string]any)
	if !ok {
		t.Fatalf("expected open dropdown")
	}
	if items, _ := dropdown["items"].([]any); len(items) != 3 {
		t.Fatalf("expected 3 dropdown items, got %d", len(items))
	}

	selectRes := doJSON(t, app, http.MethodPost, "/v1/sessions/"+id+"/select", map[string]any{"trackerId": "rarbg"})
	if selectRes.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", selectRes.StatusCode)
	}
	if got := decodeMap(t, selectRes)["url"]; got != "https://therarbg.to/get-posts/keywords:tt1375666/" {
		t.Fatalf("unexpected tracker url %v", got)
	}

	outsideRes := doJSON(t, app, http.MethodPost, "/v1/sessions/"+id+"/click", map[string]any{"target": "outside"})
	if payload := decodeMap(t, outsideRes); payload["dropdown"] != nil || payload["dismiss"] != "fired" {
		t.Fatalf("expected dropdown dismissed, got %#v", payload)
	}

	closedSelect := doJSON(t, app, http.MethodPost, "/v1/sessions/"+id+"/select", map[string]any{"trackerId": "rarbg"})
	if closedSelect.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 with closed dropdown, got %d", closedSelect.StatusCode)
	}

	deleteRes := doJSON(t, app, http.MethodDelete, "/v1/sessions/"+id, nil)
	if deleteRes.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", deleteRes.StatusCode)
	}
	if res := doJSON(t, app, http.MethodGet, "/v1/sessions/"+id, nil); res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", res.StatusCode)
	}
}

func TestSessionTrackerUpdateClosesDropdown(t *testing.T) {
	_, app, cleanup := setupTestApp(t)
	defer cleanup()

	openRes := doJSON(t, app, http.MethodPost, "/v1/sessions?wait=true", map[string]any{
		"url":  "https://letterboxd.com/film/inception/",
		"html": filmPage,
	})
	id, _ := decodeMap(t, openRes)["id"].(string)

	doJSON(t, app, http.MethodPost, "/v1/sessions/"+id+"/click", map[string]any{"target": "control"})

	disable := doJSON(t, app, http.MethodPut, "/v1/trackers/piratebay/enabled", map[string]any{"enabled": false})
	if disable.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", disable.StatusCode)
	}

	snapshot := decodeMap(t, doJSON(t, app, http.MethodGet, "/v1/sessions/"+id, nil))
	if snapshot["dropdown"] != nil {
		t.Fatalf("expected dropdown closed after tracker update")
	}

	reopened := decodeMap(t, doJSON(t, app, http.MethodPost, "/v1/sessions/"+id+"/click", map[string]any{"target": "control"}))
	dropdown, _ := reopened["dropdown"].(map[string]any)
	if items, _ := dropdown["items"].([]any); len(items) != 2 {
		t.Fatalf("expected 2 enabled trackers after update, got %d", len(items))
	}
}

func TestSessionErrors(t *testing.T) {
	_, app, cleanup := setupTestApp(t)
	defer cleanup()

	if res := doJSON(t, app, http.MethodPost, "/v1/sessions", map[string]any{"html": filmPage}); res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without url, got %d", res.StatusCode)
	}

	openRes := doJSON(t, app, http.MethodPost, "/v1/sessions", map[string]any{
		"url":  "https://letterboxd.com/films/",
		"html": "<html><body><p>No film here</p></body></html>",
	})
	if openRes.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", openRes.StatusCode)
	}
	session := decodeMap(t, openRes)
	id, _ := session["id"].(string)
	if session["controlInserted"] != false || session["resolution"] != "idle" {
		t.Fatalf("expected untouched page, got %#v", session)
	}

	if res := doJSON(t, app, http.MethodPost, "/v1/sessions/"+id+"/click", map[string]any{"target": "control"}); res.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 without control, got %d", res.StatusCode)
	}
	if res := doJSON(t, app, http.MethodPost, "/v1/sessions/"+id+"/click", map[string]any{"target": "banner"}); res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown target, got %d", res.StatusCode)
	}
	if res := doJSON(t, app, http.MethodDelete, "/v1/sessions/missing", nil); res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session, got %d", res.StatusCode)
	}
}

func TestSessionResolvesThroughRemoteBackground(t *testing.T) {
	var calls atomic.Int32
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/messages" {
			http.NotFound(w, r)
			return
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req["movieTitle"] != "Inception" {
			t.Errorf("unexpected remote request %v (%v)", req, err)
		}
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"url":     "https://remote.example/movies/inception-2010",
			"html":    `<h2>Inception DVD release date <span class="past">March 1, 2011</span><span class="past">February 8, 2011</span></h2>`,
		})
	}))
	defer remote.Close()

	_, app, cleanup := setupTestAppWithConfig(t, func(cfg *config.Config) {
		cfg.BackgroundURL = remote.URL
	})
	defer cleanup()

	openRes := doJSON(t, app, http.MethodPost, "/v1/sessions?wait=true", map[string]any{
		"url":  "https://letterboxd.com/film/inception/",
		"html": filmPage,
	})
	if openRes.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", openRes.StatusCode)
	}
	session := decodeMap(t, openRes)
	if session["resolution"] != "done" {
		t.Fatalf("expected resolution done, got %v (error %v)", session["resolution"], session["error"])
	}
	if info, _ := session["info"].(string); info != "DVD/Blu-ray: March 1, 2011 • Digital: February 8, 2011" {
		t.Fatalf("expected info from remote background, got %q", info)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one remote message, got %d", calls.Load())
	}
}
