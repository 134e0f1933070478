package messaging

import (
	"context"

	"github.com/gabriel/boxd-companion/internal/models"
)

const (
	ActionGetReleaseDates = "getReleaseDates"
	ActionUpdateTrackers  = "updateTrackers"
)

// Request is sent by a page context to the background context.
type Request struct {
	Action     string `json:"action"`
	MovieTitle string `json:"movieTitle"`
	MovieYear  string `json:"movieYear,omitempty"`
}

// Response answers exactly one Request.
type Response struct {
	Success bool   `json:"success"`
	URL     string `json:"url,omitempty"`
	HTML    string `json:"html,omitempty"`
	Error   string `json:"error,omitempty"`
}

// UpdateTrackers is broadcast to page contexts after the settings change.
// Delivery is best effort and nothing is sent back.
type UpdateTrackers struct {
	Action   string          `json:"action"`
	Trackers models.Trackers `json:"trackers"`
}

func NewUpdateTrackers(trackers models.Trackers) UpdateTrackers {
	return UpdateTrackers{Action: ActionUpdateTrackers, Trackers: trackers.Clone()}
}

func (m UpdateTrackers) Clone() UpdateTrackers {
	return UpdateTrackers{Action: m.Action, Trackers: m.Trackers.Clone()}
}

// Channel carries one request/response round trip between contexts.
type Channel interface {
	Send(ctx context.Context, req Request) Response
}
