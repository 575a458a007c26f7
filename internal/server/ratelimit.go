package server

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const limiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type rateLimiter struct {
	mu        sync.Mutex
	perMinute int
	entries   map[string]*limiterEntry
	lastSweep time.Time
}

// newRateLimiter returns nil when perMinute is not positive, which allows
// every request.
func newRateLimiter(perMinute int) *rateLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &rateLimiter{
		perMinute: perMinute,
		entries:   make(map[string]*limiterEntry),
	}
}

func (l *rateLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.lastSweep) > limiterIdleTTL {
		for k, entry := range l.entries {
			if now.Sub(entry.lastSeen) > limiterIdleTTL {
				delete(l.entries, k)
			}
		}
		l.lastSweep = now
	}
	entry, ok := l.entries[key]
	if !ok {
		every := rate.Every(time.Minute / time.Duration(l.perMinute))
		entry = &limiterEntry{limiter: rate.NewLimiter(every, l.perMinute)}
		l.entries[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.Allow()
}

// allow throttles room creation and joins per client address.
func (s *Server) allow(c *gin.Context, action string) bool {
	if s.limiter.Allow(action + ":" + c.ClientIP()) {
		return true
	}
	s.log.WithField("action", action).WithField("ip", c.ClientIP()).Info("rate limited")
	s.writeKind(c, kindRateLimited)
	return false
}
