package page

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/gabriel/boxd-companion/internal/messaging"
	"github.com/gabriel/boxd-companion/internal/models"
	"github.com/gabriel/boxd-companion/internal/releasedates"
	"github.com/gabriel/boxd-companion/internal/trackers"
)

var (
	ErrUnknownTarget    = errors.New("unknown click target")
	ErrNoControl        = errors.New("download control not on page")
	ErrDropdownClosed   = errors.New("dropdown is not open")
	ErrTrackerNotListed = errors.New("tracker not in dropdown")
	ErrSessionClosed    = errors.New("session closed")
)

// Target is where a click landed.
type Target string

const (
	TargetControl  Target = "control"
	TargetDropdown Target = "dropdown"
	TargetOutside  Target = "outside"
)

type ResolutionState string

const (
	ResolutionIdle    ResolutionState = "idle"
	ResolutionPending ResolutionState = "pending"
	ResolutionDone    ResolutionState = "done"
	ResolutionFailed  ResolutionState = "failed"
)

type TrackerSource interface {
	Load(ctx context.Context) (models.Trackers, error)
}

type DropdownItem struct {
	TrackerID string `json:"trackerId"`
	Name      string `json:"name"`
	URL       string `json:"url"`
}

type Dropdown struct {
	Items []DropdownItem `json:"items"`
	Empty string         `json:"empty,omitempty"`
}

type Config struct {
	PageURL          string
	Channel          messaging.Channel
	Trackers         TrackerSource
	Parse            func(html string) models.ReleaseDateSummary
	DefaultSourceURL string
	Logger           *slog.Logger
}

// Session is the page-side state of one open movie page.
type Session struct {
	id            string
	pageURL       string
	channel       messaging.Channel
	source        TrackerSource
	parse         func(string) models.ReleaseDateSummary
	defaultSource string
	logger        *slog.Logger

	mu         sync.Mutex
	doc        *goquery.Document
	movie      Movie
	trackers   models.Trackers
	inserted   bool
	state      ResolutionState
	lastError  string
	summary    *models.ReleaseDateSummary
	sourceURL  string
	dropdown   *Dropdown
	dismiss    *DismissSubscription
	closed     bool
	cancel     context.CancelFunc
	resolved   chan struct{}
	insertions int
}

func NewSession(cfg Config) *Session {
	if cfg.Parse == nil {
		cfg.Parse = releasedates.Parse
	}
	if cfg.DefaultSourceURL == "" {
		cfg.DefaultSourceURL = releasedates.DefaultBaseURL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	id := uuid.NewString()
	return &Session{
		id:            id,
		pageURL:       cfg.PageURL,
		channel:       cfg.Channel,
		source:        cfg.Trackers,
		parse:         cfg.Parse,
		defaultSource: cfg.DefaultSourceURL,
		logger:        cfg.Logger.With("session", id),
		trackers:      trackers.Defaults(),
		state:         ResolutionIdle,
		resolved:      make(chan struct{}),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) PageURL() string { return s.pageURL }

// Observe takes the latest snapshot of the host page and inserts the control
// when its anchor exists and the control is missing. The first insertion
// starts release date resolution in the background.
func (s *Session) Observe(ctx context.Context, doc *goquery.Document) bool {
	s.mu.Lock()
	if s.closed || doc == nil {
		s.mu.Unlock()
		return false
	}
	s.doc = doc

	inserted := s.insertControlLocked()
	start := inserted && s.state == ResolutionIdle
	var runCtx context.Context
	if start {
		s.state = ResolutionPending
		s.movie = ExtractMovie(doc)
		runCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	}
	movie := s.movie
	s.mu.Unlock()

	if start {
		go s.resolve(runCtx, movie)
	}
	return inserted
}

func (s *Session) insertControlLocked() bool {
	footer := s.doc.Find(footerSelector).First()
	if footer.Length() == 0 || s.doc.Find(controlSelector).Length() > 0 {
		return false
	}
	footer.AfterHtml(s.controlHTMLLocked())
	s.inserted = true
	s.insertions++
	return true
}

func (s *Session) controlHTMLLocked() string {
	return fmt.Sprintf(
		`<div class="download-wrapper"><a href="#" class="download-movie-button">Download</a>`+
			`<span class="release-dates-info">%s</span>`+
			`<a class="release-info-btn" href="%s" target="_blank" rel="noopener noreferrer" title="Source: dvdsreleasedates.com">🛈</a></div>`,
		s.infoHTMLLocked(), html.EscapeString(s.sourceURLLocked()),
	)
}

func (s *Session) resolve(ctx context.Context, movie Movie) {
	resp := s.channel.Send(ctx, messaging.Request{
		Action:     messaging.ActionGetReleaseDates,
		MovieTitle: movie.Title,
		MovieYear:  movie.Year,
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	defer close(s.resolved)
	s.cancel()

	if s.closed {
		return
	}

	if !resp.Success {
		s.state = ResolutionFailed
		s.lastError = resp.Error
		s.logger.Warn("release dates unavailable", "title", movie.Title, "year", movie.Year, "error", resp.Error)
		s.doc.Find(infoSelector).SetText(NoReleaseDataMsg)
		return
	}

	summary := s.parse(resp.HTML)
	s.summary = &summary
	s.sourceURL = resp.URL
	s.state = ResolutionDone
	s.doc.Find(infoSelector).SetHtml(FormatInfoHTML(s.summary))
	s.doc.Find(infoBtnSelector).SetAttr("href", s.sourceURL)
}

// Wait blocks until the resolution started by Observe has finished.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.resolved:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Click routes a click on the page. A control click toggles the dropdown; an
// outside click fires the armed dismiss subscription.
func (s *Session) Click(ctx context.Context, target Target) error {
	switch target {
	case TargetControl:
		return s.toggleDropdown(ctx)
	case TargetOutside:
		s.mu.Lock()
		if s.dismiss != nil && s.dismiss.Fire() {
			s.dropdown = nil
		}
		s.mu.Unlock()
		return nil
	case TargetDropdown:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTarget, target)
	}
}

func (s *Session) toggleDropdown(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return ErrSessionClosed
	case !s.inserted:
		s.mu.Unlock()
		return ErrNoControl
	case s.dropdown != nil:
		s.closeDropdownLocked()
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	loaded := s.LoadTrackers(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dropdown != nil {
		return nil
	}
	s.dropdown = buildDropdown(loaded, ExtractMovie(s.doc))
	s.dismiss = NewDismissSubscription()
	s.dismiss.Arm()
	return nil
}

// LoadTrackers refreshes the session's tracker mapping from the shared store.
// The last known mapping is kept when the store has nothing usable.
func (s *Session) LoadTrackers(ctx context.Context) models.Trackers {
	if s.source == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.trackers.Clone()
	}

	loaded, err := s.source.Load(ctx)
	if err != nil {
		s.logger.Warn("tracker settings load failed", "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if loaded != nil {
		s.trackers = loaded.Clone()
	}
	return s.trackers.Clone()
}

func buildDropdown(all models.Trackers, movie Movie) *Dropdown {
	enabled := trackers.Enabled(all)
	if len(enabled) == 0 {
		return &Dropdown{Items: []DropdownItem{}, Empty: NoSourcesMsg}
	}

	items := make([]DropdownItem, 0, len(enabled))
	for _, tracker := range enabled {
		query := trackers.QueryFor(tracker, movie.TitleQuery, movie.IMDbID)
		items = append(items, DropdownItem{
			TrackerID: tracker.ID,
			Name:      tracker.Name,
			URL:       trackers.Expand(tracker.URL, query),
		})
	}
	return &Dropdown{Items: items}
}

func (s *Session) closeDropdownLocked() {
	s.dropdown = nil
	if s.dismiss != nil {
		s.dismiss.Cancel()
	}
}

// Select returns the URL to open in a new tab for a dropdown entry.
func (s *Session) Select(trackerID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dropdown == nil {
		return "", ErrDropdownClosed
	}
	for _, item := range s.dropdown.Items {
		if item.TrackerID == trackerID {
			return item.URL, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrTrackerNotListed, trackerID)
}

// ApplyUpdate swaps in a broadcast tracker mapping. An open dropdown is
// closed and stays closed until the next control click.
func (s *Session) ApplyUpdate(updated models.Trackers) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trackers = updated.Clone()
	if s.dropdown != nil {
		s.closeDropdownLocked()
	}
}

func (s *Session) Info() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.infoLocked()
}

func (s *Session) infoLocked() string {
	switch s.state {
	case ResolutionDone:
		return FormatInfo(s.summary)
	case ResolutionFailed:
		return NoReleaseDataMsg
	default:
		return LoadingMsg
	}
}

func (s *Session) InfoHTML() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.infoHTMLLocked()
}

func (s *Session) infoHTMLLocked() string {
	switch s.state {
	case ResolutionDone:
		return FormatInfoHTML(s.summary)
	case ResolutionFailed:
		return NoReleaseDataMsg
	default:
		return LoadingMsg
	}
}

// SourceURL is the aggregator page backing the summary, or the aggregator
// home page until one is known.
func (s *Session) SourceURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sourceURLLocked()
}

func (s *Session) sourceURLLocked() string {
	if s.sourceURL != "" {
		return s.sourceURL
	}
	return s.defaultSource
}

// HTML renders the current page snapshot including injected markup.
func (s *Session) HTML() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return "", nil
	}
	return s.doc.Html()
}

type Snapshot struct {
	ID              string                     `json:"id"`
	PageURL         string                     `json:"pageUrl"`
	ControlInserted bool                       `json:"controlInserted"`
	Insertions      int                        `json:"insertions"`
	Movie           Movie                      `json:"movie"`
	Resolution      ResolutionState            `json:"resolution"`
	Error           string                     `json:"error,omitempty"`
	Summary         *models.ReleaseDateSummary `json:"summary,omitempty"`
	Info            string                     `json:"info"`
	InfoHTML        string                     `json:"infoHtml"`
	SourceURL       string                     `json:"sourceUrl"`
	Dropdown        *Dropdown                  `json:"dropdown,omitempty"`
	Dismiss         DismissState               `json:"dismiss"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := Snapshot{
		ID:              s.id,
		PageURL:         s.pageURL,
		ControlInserted: s.inserted,
		Insertions:      s.insertions,
		Movie:           s.movie,
		Resolution:      s.state,
		Error:           s.lastError,
		Info:            s.infoLocked(),
		InfoHTML:        s.infoHTMLLocked(),
		SourceURL:       s.sourceURLLocked(),
		Dismiss:         DismissIdle,
	}
	if s.summary != nil {
		summary := *s.summary
		snapshot.Summary = &summary
	}
	if s.dropdown != nil {
		dropdown := *s.dropdown
		dropdown.Items = append([]DropdownItem(nil), s.dropdown.Items...)
		snapshot.Dropdown = &dropdown
	}
	if s.dismiss != nil {
		snapshot.Dismiss = s.dismiss.State()
	}
	return snapshot
}

// Close discards the session. A resolution still in flight is cancelled and
// its eventual response ignored.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	s.closeDropdownLocked()
}
