package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry keeps the view state of every browser session in memory, keyed by session id. Nothing
// survives a restart.
type Registry struct {
	asker           Asker
	defaultCategory string
	language        string
	now             func() time.Time

	mu     sync.Mutex
	states map[string]*State

	logger *slog.Logger
}

// NewRegistry creates an empty registry. New sessions start on the home screen with defaultCategory
// selected, and ask their questions in language.
func NewRegistry(asker Asker, defaultCategory, language string, logger *slog.Logger) *Registry {
	return &Registry{
		asker:           asker,
		defaultCategory: defaultCategory,
		language:        language,
		now:             time.Now,
		states:          make(map[string]*State),
		logger:          logger.With(slog.String("module", "session")),
	}
}

// Get returns the session with the given id and marks it as seen.
func (r *Registry) Get(id string) (*State, bool) {
	r.mu.Lock()
	s, ok := r.states[id]
	r.mu.Unlock()

	if ok {
		s.touch(r.now())
	}
	return s, ok
}

// Create registers a new session with a random id.
func (r *Registry) Create() *State {
	s := newState(uuid.New().String(), r.asker, r.defaultCategory, r.language, r.now(), r.logger)

	r.mu.Lock()
	r.states[s.ID] = s
	r.mu.Unlock()

	return s
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.states)
}

// Prune removes sessions not seen for longer than maxIdle and returns how many were removed.
func (r *Registry) Prune(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.states {
		if s.idleSince().Before(cutoff) {
			delete(r.states, id)
			removed++
		}
	}
	return removed
}

// PruneEvery calls Prune on every tick of interval until ctx is done.
func (r *Registry) PruneEvery(ctx context.Context, interval, maxIdle time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := r.Prune(maxIdle); n > 0 {
				r.logger.Info("Pruned idle sessions", slog.Int("count", n), slog.Int("remaining", r.Len()))
			}
		}
	}
}
