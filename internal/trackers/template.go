package trackers

import (
	"net/url"
	"sort"
	"strings"

	"github.com/gabriel/boxd-companion/internal/models"
)

const Placeholder = "{query}"

var (
	ErrMissingFields       = &ValidationError{Field: "fields", Message: "Please fill in both fields"}
	ErrMissingPlaceholder  = &ValidationError{Field: "url", Message: "URL must include {query} placeholder"}
	ErrRepeatedPlaceholder = &ValidationError{Field: "url", Message: "URL must include {query} placeholder only once"}
	ErrInvalidURL          = &ValidationError{Field: "url", Message: "Please enter a valid URL"}
	ErrInvalidSearchType   = &ValidationError{Field: "searchType", Message: "Search type must be title or imdb"}
)

// ValidationError is a rejected custom tracker input. Message is shown inline
// to the user as is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidateCustom applies the add-tracker rules to already trimmed input.
func ValidateCustom(name, urlTemplate string, searchType models.SearchType) error {
	if name == "" || urlTemplate == "" {
		return ErrMissingFields
	}
	if err := validateTemplate(urlTemplate); err != nil {
		return err
	}
	if !searchType.Valid() {
		return ErrInvalidSearchType
	}
	return nil
}

func validateTemplate(urlTemplate string) error {
	switch strings.Count(urlTemplate, Placeholder) {
	case 0:
		return ErrMissingPlaceholder
	case 1:
	default:
		return ErrRepeatedPlaceholder
	}

	parsed, err := url.Parse(strings.Replace(urlTemplate, Placeholder, "test", 1))
	if err != nil || parsed.Scheme == "" || (parsed.Host == "" && parsed.Opaque == "") {
		return ErrInvalidURL
	}
	return nil
}

// Expand substitutes the percent-encoded query into the tracker template.
func Expand(urlTemplate, query string) string {
	return strings.Replace(urlTemplate, Placeholder, EncodeQuery(query), 1)
}

// uriComponentUnescaper restores the characters encodeURIComponent leaves
// alone but url.QueryEscape does not, and turns '+' back into %20.
var uriComponentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EncodeQuery escapes a value the way encodeURIComponent does.
func EncodeQuery(query string) string {
	return uriComponentUnescaper.Replace(url.QueryEscape(query))
}

// QueryFor picks the identifier an imdb tracker needs when the page exposes
// one, and the title query otherwise.
func QueryFor(tracker models.Tracker, titleQuery, imdbID string) string {
	if tracker.SearchType == models.SearchTypeIMDb && imdbID != "" {
		return imdbID
	}
	return titleQuery
}

// Sorted orders built-ins canonically, then custom trackers by id.
func Sorted(trackers models.Trackers) []models.Tracker {
	items := make([]models.Tracker, 0, len(trackers))
	for id, tracker := range trackers {
		tracker.ID = id
		items = append(items, tracker)
	}

	sort.SliceStable(items, func(i, j int) bool {
		ri, rj := builtInRank(items[i].ID), builtInRank(items[j].ID)
		switch {
		case ri >= 0 && rj >= 0:
			return ri < rj
		case ri >= 0:
			return true
		case rj >= 0:
			return false
		default:
			return items[i].ID < items[j].ID
		}
	})
	return items
}

// Enabled returns the enabled trackers in display order.
func Enabled(trackers models.Trackers) []models.Tracker {
	items := Sorted(trackers)
	enabled := items[:0]
	for _, tracker := range items {
		if tracker.Enabled {
			enabled = append(enabled, tracker)
		}
	}
	return enabled
}
