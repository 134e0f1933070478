package broadcast

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/gabriel/boxd-companion/internal/messaging"
)

// Broadcaster delivers tracker updates to page contexts. Delivery is best
// effort; callers log returned errors and carry on.
type Broadcaster interface {
	Broadcast(ctx context.Context, msg messaging.UpdateTrackers) error
}

type Noop struct{}

func (Noop) Broadcast(context.Context, messaging.UpdateTrackers) error {
	return nil
}

// Multi fans a message out to every broadcaster at once, even after one
// fails. It returns when all of them have returned.
type Multi struct {
	broadcasters []Broadcaster
}

func NewMulti(items ...Broadcaster) *Multi {
	filtered := make([]Broadcaster, 0, len(items))
	for _, item := range items {
		if item != nil {
			filtered = append(filtered, item)
		}
	}
	return &Multi{broadcasters: filtered}
}

func (m *Multi) Broadcast(ctx context.Context, msg messaging.UpdateTrackers) error {
	if len(m.broadcasters) == 1 {
		return m.broadcasters[0].Broadcast(ctx, msg)
	}

	errs := make([]error, len(m.broadcasters))
	var wg sync.WaitGroup
	for i, broadcaster := range m.broadcasters {
		wg.Add(1)
		go func(i int, broadcaster Broadcaster) {
			defer wg.Done()
			errs[i] = broadcaster.Broadcast(ctx, msg.Clone())
		}(i, broadcaster)
	}
	wg.Wait()
	return errors.Join(errs...)
}

// Detached hands every message to a remote broadcaster in the background and
// returns immediately. A receiver that is slow or down only misses updates.
type Detached struct {
	inner  Broadcaster
	logger *slog.Logger
	wg     sync.WaitGroup
}

func NewDetached(inner Broadcaster, logger *slog.Logger) *Detached {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detached{inner: inner, logger: logger}
}

func (d *Detached) Broadcast(ctx context.Context, msg messaging.UpdateTrackers) error {
	ctx = context.WithoutCancel(ctx)
	msg = msg.Clone()
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.inner.Broadcast(ctx, msg); err != nil {
			d.logger.Warn("background tracker broadcast failed", "error", err)
		}
	}()
	return nil
}

// Wait blocks until every background delivery has returned.
func (d *Detached) Wait() {
	d.wg.Wait()
}
