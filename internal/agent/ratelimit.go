package agent

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands each chat session its own token bucket. Buckets idle
// for longer than the eviction interval are dropped by a background sweep.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	limit    rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time

	stop     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter creates a limiter allowing rps requests per second with the
// given burst per session, and starts the eviction goroutine. Call Stop to
// release it.
func NewRateLimiter(rps float64, burst int, idle time.Duration) *RateLimiter {
	if idle <= 0 {
		idle = 10 * time.Minute
	}
	r := &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		limit:    rate.Limit(rps),
		burst:    burst,
		idle:     idle,
		now:      time.Now,
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go r.evictLoop()
	return r
}

// Allow reports whether one more request for key may proceed now.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	e, ok := r.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// Forget drops the bucket for key. It is registered as a session cleanup
// callback so evicted sessions release their limiter immediately.
func (r *RateLimiter) Forget(key string) {
	r.mu.Lock()
	delete(r.limiters, key)
	r.mu.Unlock()
}

// Len is the number of tracked sessions.
func (r *RateLimiter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.limiters)
}

func (r *RateLimiter) evictIdle() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.idle)
	n := 0
	for key, e := range r.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(r.limiters, key)
			n++
		}
	}
	return n
}

func (r *RateLimiter) evictLoop() {
	defer close(r.stopped)
	ticker := time.NewTicker(r.idle)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.evictIdle()
		case <-r.stop:
			return
		}
	}
}

// Stop ends the eviction goroutine and waits for it to exit.
func (r *RateLimiter) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	<-r.stopped
}
