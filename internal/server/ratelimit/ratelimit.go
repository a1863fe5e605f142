// Package ratelimit provides per-client token bucket rate limiting for the HTTP API.
package ratelimit

import (
	"sync"
	"time"
)

type bucket struct {
	mu         sync.Mutex
	capacity   float64
	refillRate float64 // tokens per second
	tokens     float64
	lastRefill time.Time
	lastSeen   time.Time
}

func newBucket(capacity int, refillRate float64, now time.Time) *bucket {
	return &bucket{
		capacity:   float64(capacity),
		refillRate: refillRate,
		tokens:     float64(capacity),
		lastRefill: now,
		lastSeen:   now,
	}
}

// take refills, then consumes one token if available.
// It returns the tokens left and when the bucket will be full again.
func (b *bucket) take(now time.Time) (bool, int, time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tokens = min(b.capacity, b.tokens+now.Sub(b.lastRefill).Seconds()*b.refillRate)
	b.lastRefill = now
	b.lastSeen = now

	allowed := b.tokens >= 1
	if allowed {
		b.tokens--
	}

	full := now
	if b.tokens < b.capacity {
		full = now.Add(time.Duration((b.capacity - b.tokens) / b.refillRate * float64(time.Second)))
	}
	return allowed, int(b.tokens), full
}

func (b *bucket) idleSince(cutoff time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastSeen.Before(cutoff)
}

// Info contains information about rate limit status.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Limiter manages rate limiting for multiple clients using token buckets.
type Limiter struct {
	config    *Config
	whitelist map[string]bool
	blacklist map[string]bool

	mu      sync.Mutex
	buckets map[string]*bucket

	stop chan struct{}
	once sync.Once
	now  func() time.Time
}

// NewLimiter creates a rate limiter. A nil config enables the default limit only.
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = &Config{
			Enabled:         true,
			DefaultLimit:    1000,
			DefaultWindow:   time.Minute,
			CleanupInterval: 5 * time.Minute,
		}
	}

	l := &Limiter{
		config:    config,
		whitelist: toSet(config.Whitelist),
		blacklist: toSet(config.Blacklist),
		buckets:   make(map[string]*bucket),
		stop:      make(chan struct{}),
		now:       time.Now,
	}

	if config.Enabled && config.CleanupInterval > 0 {
		go l.cleanupLoop(config.CleanupInterval)
	}
	return l
}

// Allow reports whether clientID may call method on path now.
func (l *Limiter) Allow(clientID, path, method string) (bool, Info) {
	if !l.config.Enabled || l.whitelist[clientID] {
		return true, Info{Allowed: true}
	}
	if l.blacklist[clientID] {
		return false, Info{}
	}

	endpoint := MatchEndpoint(path, method, l.config.Endpoints)
	if endpoint == nil {
		endpoint = &EndpointConfig{
			Path:   path,
			Limit:  l.config.DefaultLimit,
			Window: l.config.DefaultWindow,
		}
	}
	if endpoint.Limit <= 0 || endpoint.Window <= 0 {
		return true, Info{Allowed: true}
	}

	// Prefix rules share one bucket per client
	key := clientID + ":" + method + ":" + endpoint.Path
	now := l.now()
	b := l.bucket(key, endpoint, now)

	allowed, remaining, reset := b.take(now)
	info := Info{
		Allowed:   allowed,
		Limit:     endpoint.Limit,
		Remaining: remaining,
		ResetTime: reset,
	}
	if !allowed {
		// One token is enough to retry
		info.RetryAfter = time.Duration(float64(time.Second) / b.refillRate)
	}
	return allowed, info
}

func (l *Limiter) bucket(key string, endpoint *EndpointConfig, now time.Time) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.buckets[key]; ok {
		return b
	}
	capacity := endpoint.Burst
	if capacity <= 0 {
		capacity = endpoint.Limit
	}
	b := newBucket(capacity, float64(endpoint.Limit)/endpoint.Window.Seconds(), now)
	l.buckets[key] = b
	return b
}

func (l *Limiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.evictIdle(l.now().Add(-interval))
		case <-l.stop:
			return
		}
	}
}

// evictIdle drops buckets not used since cutoff
func (l *Limiter) evictIdle(cutoff time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, b := range l.buckets {
		if b.idleSince(cutoff) {
			delete(l.buckets, key)
		}
	}
}

// Stop stops the cleanup goroutine. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}
