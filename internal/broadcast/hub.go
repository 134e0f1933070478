package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gabriel/boxd-companion/internal/messaging"
	"github.com/google/uuid"
)

type Handler func(ctx context.Context, msg messaging.UpdateTrackers)

type subscription struct {
	url     string
	handler Handler
}

// Hub delivers updates to in-process page contexts whose URL matches the
// target site pattern. Every subscriber runs in its own goroutine, so a
// panicking or slow handler does not affect delivery to the others.
// Broadcast returns once every subscriber has finished, so handlers must not
// block; remote receivers belong behind a Detached broadcaster.
type Hub struct {
	pattern *Pattern
	logger  *slog.Logger

	mu   sync.RWMutex
	subs map[string]subscription
}

func NewHub(pattern *Pattern, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		pattern: pattern,
		logger:  logger,
		subs:    make(map[string]subscription),
	}
}

// Subscribe registers a handler for the page at pageURL. The returned func
// removes the subscription and is safe to call more than once.
func (h *Hub) Subscribe(pageURL string, handler Handler) (string, func()) {
	id := uuid.NewString()

	h.mu.Lock()
	h.subs[id] = subscription{url: pageURL, handler: handler}
	h.mu.Unlock()

	return id, func() { h.Unsubscribe(id) }
}

func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
}

// Matches reports whether a page at pageURL would receive broadcasts.
func (h *Hub) Matches(pageURL string) bool {
	return h.pattern.Match(pageURL)
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) Broadcast(ctx context.Context, msg messaging.UpdateTrackers) error {
	h.mu.RLock()
	targets := make(map[string]Handler, len(h.subs))
	for id, sub := range h.subs {
		if h.pattern.Match(sub.url) {
			targets[id] = sub.handler
		}
	}
	h.mu.RUnlock()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for id, handler := range targets {
		wg.Add(1)
		go func(id string, handler Handler) {
			defer wg.Done()
			defer func() {
				if recovered := recover(); recovered != nil {
					h.logger.Debug("subscriber dropped update", "subscription", id, "panic", recovered)
					mu.Lock()
					errs = append(errs, fmt.Errorf("subscriber %s: %v", id, recovered))
					mu.Unlock()
				}
			}()
			handler(ctx, msg.Clone())
		}(id, handler)
	}
	wg.Wait()

	return errors.Join(errs...)
}
