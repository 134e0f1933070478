package handlers_test

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/gabriel/boxd-companion/internal/config"
	"github.com/gabriel/boxd-companion/internal/database"
	apihttp "github.com/gabriel/boxd-companion/internal/http"
	"github.com/gofiber/fiber/v2"
)

const filmPage = `<html><body><section class="film-header">
<h1 class="headline-1 primaryname"><span class="name">Inception</span></h1>
<div class="releasedate"><a href="/films/year/2010/">2010</a></div>
<p class="text-link text-footer">More at <a href="http://www.imdb.com/title/tt1375666/maindetails">IMDb</a></p>
</section></body></html>`

const searchResults = `<table>
<tr><td><a href="/movies/inception-2010"><img src="/posters/inception-2010.jpg" alt="Inception"></a></td></tr>
<tr><td><a href="/movies/inception-the-cobol-job"><img src="/posters/cobol-job-2010.jpg" alt="The Cobol Job"></a></td></tr>
</table>`

const moviePage = `<html><body>
<h2>Inception DVD release date <span class="past">December 7, 2010</span><span class="past">November 23, 2010</span></h2>
</body></html>`

// newFakeAggregator serves a minimal search and movie page pair.
func newFakeAggregator(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/search/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		_, _ = io.WriteString(w, searchResults)
	})
	mux.HandleFunc("/movies/inception-2010", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, moviePage)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, "<html><body>home</body></html>")
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func setupTestApp(t *testing.T) (*sql.DB, *fiber.App, func()) {
	t.Helper()
	return setupTestAppWithConfig(t, nil)
}

func setupTestAppWithConfig(t *testing.T, configure func(*config.Config)) (*sql.DB, *fiber.App, func()) {
	t.Helper()

	aggregator := newFakeAggregator(t)

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.sqlite")
	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	_, currentFile, _, _ := runtime.Caller(0)
	baseDir := filepath.Dir(currentFile)
	migrationsPath := filepath.Join(baseDir, "..", "..", "..", "migrations")
	if err := database.ApplyMigrations(db, migrationsPath); err != nil {
		_ = db.Close()
		t.Fatalf("apply migrations: %v", err)
	}
	if err := database.SeedDefaults(db); err != nil {
		_ = db.Close()
		t.Fatalf("seed defaults: %v", err)
	}

	cfg := config.Config{
		AppName:           "test-app",
		AggregatorBaseURL: aggregator.URL,
		TargetSitePattern: "*://letterboxd.com/*",
	}
	if configure != nil {
		configure(&cfg)
	}
	app := apihttp.NewServer(cfg, db)

	cleanup := func() {
		_ = app.Shutdown()
		_ = db.Close()
		_ = os.RemoveAll(tmpDir)
	}

	return db, app, cleanup
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := app.Test(req, 5000)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	return res
}

func doForm(t *testing.T, app *fiber.App, path string, values map[string]string) *http.Response {
	t.Helper()

	form := url.Values{}
	for key, value := range values {
		form.Set(key, value)
	}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res, err := app.Test(req, 5000)
	if err != nil {
		t.Fatalf("POST %s failed: %v", path, err)
	}
	return res
}

func decodeMap(t *testing.T, res *http.Response) map[string]any {
	t.Helper()

	var payload map[string]any
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return payload
}

func readBody(t *testing.T, res *http.Response) string {
	t.Helper()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(raw)
}
