package ratelimit

import (
	"sync"
	"time"
)

// Limiter applies a sliding-window request limit per key. Keys are
// usernames for authenticated traffic; an empty key is never limited.
type Limiter struct {
	mu       sync.RWMutex
	buckets  map[string]*bucket
	maxReqs  int
	window   time.Duration
	cleanup  *time.Ticker
	done     chan struct{}
	stopOnce sync.Once
}

type bucket struct {
	requests []time.Time
	lastSeen time.Time
}

// NewLimiter creates a limiter allowing maxRequests per window per key
func NewLimiter(maxRequests int, window time.Duration) *Limiter {
	limiter := &Limiter{
		buckets: make(map[string]*bucket),
		maxReqs: maxRequests,
		window:  window,
		cleanup: time.NewTicker(5 * time.Minute),
		done:    make(chan struct{}),
	}
	go limiter.cleanupLoop()
	return limiter
}

// Allow reports whether a request for key fits in the current window and
// records it if so
func (l *Limiter) Allow(key string) bool {
	if key == "" {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, exists := l.buckets[key]
	if !exists {
		b = &bucket{requests: []time.Time{}}
		l.buckets[key] = b
	}

	cutoff := now.Add(-l.window)
	var reqs []time.Time
	for _, t := range b.requests {
		if t.After(cutoff) {
			reqs = append(reqs, t)
		}
	}
	b.requests = reqs
	b.lastSeen = now

	if len(b.requests) >= l.maxReqs {
		return false
	}

	b.requests = append(b.requests, now)
	return true
}

// cleanupLoop runs bucket cleanup until Stop is called. Ticker.Stop never
// closes the tick channel, so the loop needs the done channel to exit.
func (l *Limiter) cleanupLoop() {
	for {
		select {
		case <-l.done:
			return
		case <-l.cleanup.C:
			l.cleanupOldBuckets()
		}
	}
}

// cleanupOldBuckets drops buckets whose keys have gone quiet so the map
// does not grow with every username ever seen
func (l *Limiter) cleanupOldBuckets() {
	l.mu.Lock()
	defer l.mu.Unlock()
	staleThreshold := time.Now().Add(-15 * time.Minute)
	for key, b := range l.buckets {
		if b.lastSeen.Before(staleThreshold) {
			delete(l.buckets, key)
		}
	}
}

// Stop halts background bucket cleanup; safe to call more than once
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		l.cleanup.Stop()
		close(l.done)
	})
}
