package auth

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LoginLimiter throttles login attempts per account key.
//
// A key idle for longer than it takes its bucket to refill is forgotten; a
// fresh limiter would allow exactly the same attempts.
type LoginLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*keyLimiter
	every     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type keyLimiter struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewLoginLimiter allows burst attempts per key, refilled once per interval.
// A non-positive interval disables throttling.
func NewLoginLimiter(interval time.Duration, burst int) *LoginLimiter {
	every := rate.Inf
	if interval > 0 {
		every = rate.Every(interval)
	}
	if burst <= 0 {
		burst = 1
	}
	return &LoginLimiter{
		limiters: make(map[string]*keyLimiter),
		every:    every,
		burst:    burst,
		idle:     interval * time.Duration(burst),
		now:      time.Now,
	}
}

// Allow reports whether another attempt for key may proceed now.
func (l *LoginLimiter) Allow(key string) bool {
	if l.every == rate.Inf {
		return true
	}
	key = strings.ToLower(strings.TrimSpace(key))

	l.mu.Lock()
	now := l.now()
	l.sweepLocked(now)
	k, ok := l.limiters[key]
	if !ok {
		k = &keyLimiter{lim: rate.NewLimiter(l.every, l.burst)}
		l.limiters[key] = k
	}
	k.seen = now
	l.mu.Unlock()

	return k.lim.AllowN(now, 1)
}

// sweepLocked drops idle keys, at most once per idle period.
func (l *LoginLimiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < l.idle {
		return
	}
	l.lastSweep = now
	for key, k := range l.limiters {
		if now.Sub(k.seen) >= l.idle {
			delete(l.limiters, key)
		}
	}
}
