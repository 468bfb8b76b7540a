package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// CleanupCallback is called with the session id of every evicted session.
type CleanupCallback func(sessionID string)

type entry struct {
	orch     *Orchestrator
	lastSeen time.Time
}

// Registry holds one orchestrator per session and evicts idle sessions.
type Registry struct {
	mu        sync.Mutex
	sessions  map[string]*entry
	factory   func() *Orchestrator
	ttl       time.Duration
	now       func() time.Time
	onCleanup []CleanupCallback
	logger    *slog.Logger
}

// NewRegistry creates a registry that builds orchestrators with factory
// and evicts sessions idle for longer than ttl.
func NewRegistry(factory func() *Orchestrator, ttl time.Duration, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sessions: make(map[string]*entry),
		factory:  factory,
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}
}

// OnCleanup registers a callback for evicted sessions. Callbacks run in
// registration order. Register them before the TTL worker starts.
func (r *Registry) OnCleanup(fn CleanupCallback) { r.onCleanup = append(r.onCleanup, fn) }

// Get returns the session's orchestrator, creating it on first use, and
// marks the session active.
func (r *Registry) Get(sessionID string) *Orchestrator {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[sessionID]
	if !ok {
		e = &entry{orch: r.factory()}
		r.sessions[sessionID] = e
		r.logger.Debug("Session created", "session_id", sessionID)
	}
	e.lastSeen = r.now()
	return e.orch
}

// Len is the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep evicts sessions idle longer than the TTL and returns their ids.
func (r *Registry) Sweep() []string {
	r.mu.Lock()
	cutoff := r.now().Add(-r.ttl)
	var expired []string
	for id, e := range r.sessions {
		if e.lastSeen.Before(cutoff) {
			expired = append(expired, id)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	if len(expired) > 0 {
		r.logger.Info("TTL worker evicted idle sessions", "count", len(expired), "ttl", r.ttl)
	}
	for _, id := range expired {
		for _, fn := range r.onCleanup {
			fn(id)
		}
	}
	return expired
}

// StartTTLWorker sweeps every interval until ctx is done. The returned
// channel is closed once the worker has stopped.
func (r *Registry) StartTTLWorker(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		r.logger.Info("TTL worker started", "interval", interval, "ttl", r.ttl)

		for {
			select {
			case <-ticker.C:
				r.Sweep()
			case <-ctx.Done():
				r.logger.Info("TTL worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
	return done
}
