package releasedates

import (
	"errors"
	"fmt"
)

var (
	ErrSearchFailed    = errors.New("search failed")
	ErrNoResults       = errors.New("no results found")
	ErrPageFetchFailed = errors.New("page fetch failed")
)

// ResolveError is the single reason a resolution stopped. Its message is
// handed to the requesting page verbatim.
type ResolveError struct {
	Kind       error
	URL        string
	StatusCode int
	Err        error
}

func (e *ResolveError) Error() string {
	if e == nil {
		return "resolve failed"
	}
	switch e.Kind {
	case ErrSearchFailed:
		if e.StatusCode > 0 {
			return fmt.Sprintf("Search failed (%d)", e.StatusCode)
		}
		if e.Err != nil {
			return fmt.Sprintf("Search failed: %v", e.Err)
		}
		return "Search failed"
	case ErrNoResults:
		return "No movie link found"
	case ErrPageFetchFailed:
		return "Failed to fetch movie page"
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "resolve failed"
}

func (e *ResolveError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
