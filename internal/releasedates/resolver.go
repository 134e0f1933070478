package releasedates

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultBaseURL = "https://www.dvdsreleasedates.com"
	searchPath     = "/search/"
	userAgent      = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Resolution is the movie page picked for a title, unparsed.
type Resolution struct {
	URL  string `json:"url"`
	HTML string `json:"html"`
}

type Options struct {
	BaseURL string
	// Timeout of zero leaves requests unbounded; the caller's context still applies.
	Timeout   time.Duration
	Extractor CandidateExtractor
	Logger    *slog.Logger
}

// Resolver finds and fetches the aggregator page for a movie. The search and
// the page fetch run strictly one after the other and are never retried.
type Resolver struct {
	client    *resty.Client
	baseURL   string
	extractor CandidateExtractor
	logger    *slog.Logger
}

func NewResolver(opts Options) *Resolver {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if opts.Extractor == nil {
		opts.Extractor = RegexExtractor{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("User-Agent", userAgent).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}

	return &Resolver{
		client:    client,
		baseURL:   baseURL,
		extractor: opts.Extractor,
		logger:    opts.Logger,
	}
}

func (r *Resolver) BaseURL() string {
	return r.baseURL
}

func (r *Resolver) Resolve(ctx context.Context, title, year string) (Resolution, error) {
	pageURL, err := r.search(ctx, strings.TrimSpace(title), strings.TrimSpace(year))
	if err != nil {
		r.logger.Warn("release date search failed", "title", title, "year", year, "error", err)
		return Resolution{}, err
	}

	html, err := r.fetch(ctx, pageURL)
	if err != nil {
		r.logger.Warn("release date page fetch failed", "url", pageURL, "error", err)
		return Resolution{}, err
	}

	r.logger.Debug("release date page resolved", "title", title, "year", year, "url", pageURL)
	return Resolution{URL: pageURL, HTML: html}, nil
}

func (r *Resolver) search(ctx context.Context, title, year string) (string, error) {
	resp, err := r.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{"searchStr": title}).
		Post(searchPath)
	if err != nil {
		return "", &ResolveError{Kind: ErrSearchFailed, URL: r.baseURL + searchPath, Err: err}
	}
	if !resp.IsSuccess() {
		return "", &ResolveError{Kind: ErrSearchFailed, URL: r.baseURL + searchPath, StatusCode: resp.StatusCode()}
	}

	candidates, err := r.extractor.Extract(resp.Body())
	if err != nil {
		return "", &ResolveError{Kind: ErrNoResults, Err: fmt.Errorf("extract candidates: %w", err)}
	}

	selected, ok := SelectCandidate(candidates, year)
	if !ok {
		return "", &ResolveError{Kind: ErrNoResults}
	}
	return AbsoluteURL(r.baseURL, selected.URL), nil
}

func (r *Resolver) fetch(ctx context.Context, pageURL string) (string, error) {
	resp, err := r.client.R().
		SetContext(ctx).
		Get(pageURL)
	if err != nil {
		return "", &ResolveError{Kind: ErrPageFetchFailed, URL: pageURL, Err: err}
	}
	if !resp.IsSuccess() {
		return "", &ResolveError{Kind: ErrPageFetchFailed, URL: pageURL, StatusCode: resp.StatusCode()}
	}
	return resp.String(), nil
}

// HealthCheck requests the aggregator home page once.
func (r *Resolver) HealthCheck(ctx context.Context) error {
	resp, err := r.client.R().
		SetContext(ctx).
		Get("/")
	if err != nil {
		return fmt.Errorf("aggregator unreachable: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("aggregator returned status %d", resp.StatusCode())
	}
	return nil
}
