package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/showcall/showcall-core/internal/show"
)

// RegistryConfig tunes session lifecycle behaviour.
type RegistryConfig struct {
	// QueueSize is the per-session command buffer.
	QueueSize int
	// EvictionGrace is how long a completed show's session stays resident
	// before the janitor releases it.
	EvictionGrace time.Duration
	// JanitorInterval is how often the janitor sweeps for evictable sessions.
	JanitorInterval time.Duration
}

// Registry owns the live sessions, one per show.
//
// GetOrCreate lazily hydrates a session from the repository on first access,
// so a restart loses no state: the next command against any show rebuilds
// its session from what was persisted. Completed shows are evicted after a
// grace period; a late read simply rehydrates.
type Registry struct {
	repo     show.Repository
	cfg      RegistryConfig
	emitters []Emitter
	logger   Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry builds a session registry over repo. Emitters are shared by
// every session the registry creates.
func NewRegistry(repo show.Repository, cfg RegistryConfig, emitters []Emitter, logger Logger) *Registry {
	if logger == nil {
		logger = noopLogger{}
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 64
	}
	if cfg.JanitorInterval <= 0 {
		cfg.JanitorInterval = time.Minute
	}
	return &Registry{
		repo:     repo,
		cfg:      cfg,
		emitters: emitters,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// GetOrCreate returns the live session for showID, hydrating it from the
// repository if none is resident. Returns show.ErrShowNotFound for an
// unknown show.
func (r *Registry) GetOrCreate(ctx context.Context, showID string) (*Session, error) {
	r.mu.Lock()
	if s, ok := r.sessions[showID]; ok {
		r.mu.Unlock()
		return s, nil
	}
	r.mu.Unlock()

	// Hydration hits the database, so it happens outside the registry lock.
	// A concurrent duplicate load is harmless; the loser's sequencer is
	// discarded below.
	seq, err := show.Load(ctx, r.repo, showID, r.logger)
	if err != nil {
		return nil, fmt.Errorf("hydrating session for show %s: %w", showID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[showID]; ok {
		return s, nil
	}

	s := newSession(seq, r.cfg.QueueSize, r.emitters, r.logger)
	r.sessions[showID] = s
	r.logger.Info("session hydrated", "show_id", showID, "status", seq.Status())
	return s, nil
}

// Get returns the resident session for showID, or nil if none is loaded.
func (r *Registry) Get(showID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[showID]
}

// Count returns the number of resident sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Run sweeps for evictable sessions until ctx is cancelled, then closes
// every resident session.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.JanitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Close()
			return
		case <-ticker.C:
			r.evictCompleted(time.Now().UTC())
		}
	}
}

// evictCompleted releases sessions whose show completed at least the grace
// period ago.
func (r *Registry) evictCompleted(now time.Time) {
	r.mu.Lock()
	var evicted []*Session
	for id, s := range r.sessions {
		since := s.evictableSince()
		if since.IsZero() {
			continue
		}
		if now.Sub(since) < r.cfg.EvictionGrace {
			continue
		}
		delete(r.sessions, id)
		evicted = append(evicted, s)
	}
	r.mu.Unlock()

	for _, s := range evicted {
		s.close()
		r.logger.Info("session evicted", "show_id", s.ShowID())
	}
}

// Close shuts down every resident session. Used on server shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		delete(r.sessions, id)
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
}
