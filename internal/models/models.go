package models

import "time"

type SearchType string

const (
	SearchTypeTitle SearchType = "title"
	SearchTypeIMDb  SearchType = "imdb"
)

func (s SearchType) Valid() bool {
	return s == SearchTypeTitle || s == SearchTypeIMDb
}

// Label is the badge shown next to a tracker in the settings list.
func (s SearchType) Label() string {
	if s == SearchTypeIMDb {
		return "IMDB"
	}
	return "Title"
}

type Tracker struct {
	ID         string     `json:"id,omitempty" yaml:"id,omitempty"`
	Name       string     `json:"name" yaml:"name"`
	URL        string     `json:"url" yaml:"url"`
	Enabled    bool       `json:"enabled" yaml:"enabled"`
	BuiltIn    bool       `json:"builtIn" yaml:"builtIn"`
	SearchType SearchType `json:"searchType" yaml:"searchType"`
}

// Trackers is keyed by tracker id, mirroring the persisted settings layout.
type Trackers map[string]Tracker

func (t Trackers) Clone() Trackers {
	out := make(Trackers, len(t))
	for id, tracker := range t {
		out[id] = tracker
	}
	return out
}

type Candidate struct {
	URL  string `json:"url"`
	Year string `json:"year"`
}

type ReleaseStatus string

const (
	StatusReleased ReleaseStatus = "released"
	StatusUpcoming ReleaseStatus = "upcoming"
	StatusUnknown  ReleaseStatus = "unknown"
)

type ReleaseDateEntry struct {
	Value  string        `json:"value"`
	Status ReleaseStatus `json:"status"`
}

type ReleaseDateSummary struct {
	Physical *ReleaseDateEntry `json:"physical,omitempty"`
	Digital  *ReleaseDateEntry `json:"digital,omitempty"`
	HasData  bool              `json:"hasData"`
}

type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}
