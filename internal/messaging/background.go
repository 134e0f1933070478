package messaging

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gabriel/boxd-companion/internal/releasedates"
)

type Resolver interface {
	Resolve(ctx context.Context, title, year string) (releasedates.Resolution, error)
}

// Background answers requests sent by page contexts.
type Background struct {
	resolver Resolver
	logger   *slog.Logger
}

func NewBackground(resolver Resolver, logger *slog.Logger) *Background {
	if logger == nil {
		logger = slog.Default()
	}
	return &Background{resolver: resolver, logger: logger}
}

// Handle never fails: every outcome is encoded in the Response.
func (b *Background) Handle(ctx context.Context, req Request) Response {
	switch req.Action {
	case ActionGetReleaseDates:
		return b.getReleaseDates(ctx, req)
	default:
		b.logger.Debug("unknown message action", "action", req.Action)
		return Response{Success: false, Error: "unknown action"}
	}
}

func (b *Background) getReleaseDates(ctx context.Context, req Request) Response {
	title := strings.TrimSpace(req.MovieTitle)
	if title == "" {
		return Response{Success: false, Error: "Missing movie title"}
	}

	resolution, err := b.resolver.Resolve(ctx, title, strings.TrimSpace(req.MovieYear))
	if err != nil {
		return Response{Success: false, Error: err.Error()}
	}
	return Response{Success: true, URL: resolution.URL, HTML: resolution.HTML}
}
