package page

import (
	"context"
	"log/slog"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/gabriel/boxd-companion/internal/broadcast"
	"github.com/gabriel/boxd-companion/internal/messaging"
	"github.com/gabriel/boxd-companion/internal/models"
)

type Subscriber interface {
	Subscribe(pageURL string, handler broadcast.Handler) (string, func())
}

type StoreConfig struct {
	Channel          messaging.Channel
	Trackers         TrackerSource
	Updates          Subscriber
	Parse            func(html string) models.ReleaseDateSummary
	DefaultSourceURL string
	Logger           *slog.Logger
}

// Store keeps the live page sessions. Every session listens for tracker
// updates until it is closed.
type Store struct {
	cfg StoreConfig

	mu           sync.RWMutex
	sessions     map[string]*Session
	unsubscribes map[string]func()
}

func NewStore(cfg StoreConfig) *Store {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Store{
		cfg:          cfg,
		sessions:     make(map[string]*Session),
		unsubscribes: make(map[string]func()),
	}
}

// Open starts a session for a page snapshot and observes it once.
func (st *Store) Open(ctx context.Context, pageURL string, doc *goquery.Document) *Session {
	session := NewSession(Config{
		PageURL:          pageURL,
		Channel:          st.cfg.Channel,
		Trackers:         st.cfg.Trackers,
		Parse:            st.cfg.Parse,
		DefaultSourceURL: st.cfg.DefaultSourceURL,
		Logger:           st.cfg.Logger,
	})
	session.LoadTrackers(ctx)

	unsubscribe := func() {}
	if st.cfg.Updates != nil {
		_, unsubscribe = st.cfg.Updates.Subscribe(pageURL, func(_ context.Context, msg messaging.UpdateTrackers) {
			session.ApplyUpdate(msg.Trackers)
		})
	}

	st.mu.Lock()
	st.sessions[session.ID()] = session
	st.unsubscribes[session.ID()] = unsubscribe
	st.mu.Unlock()

	session.Observe(ctx, doc)
	return session
}

func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	session, ok := st.sessions[id]
	return session, ok
}

func (st *Store) Close(id string) bool {
	st.mu.Lock()
	session, ok := st.sessions[id]
	unsubscribe := st.unsubscribes[id]
	delete(st.sessions, id)
	delete(st.unsubscribes, id)
	st.mu.Unlock()

	if !ok {
		return false
	}
	unsubscribe()
	session.Close()
	return true
}

func (st *Store) CloseAll() {
	st.mu.RLock()
	ids := make([]string, 0, len(st.sessions))
	for id := range st.sessions {
		ids = append(ids, id)
	}
	st.mu.RUnlock()

	for _, id := range ids {
		st.Close(id)
	}
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
