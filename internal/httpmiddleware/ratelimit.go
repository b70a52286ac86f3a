package httpmiddleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"classattend/internal/auth"
)

// RateLimiter is an in-memory per-caller token bucket. Callers idle long
// enough to have refilled their bucket are dropped.
type RateLimiter struct {
	limit rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time

	mu        sync.Mutex
	state     map[string]*callerLimit
	lastSweep time.Time
}

type callerLimit struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows perMinute requests per caller with bursts of
// capacity (perMinute when capacity <= 0).
func NewRateLimiter(capacity, perMinute int) *RateLimiter {
	if capacity <= 0 {
		capacity = perMinute
	}
	limit := rate.Limit(float64(perMinute) / 60)
	idle := time.Minute
	if limit > 0 {
		if refill := time.Duration(float64(capacity) / float64(limit) * float64(time.Second)); refill > idle {
			idle = refill
		}
	}
	return &RateLimiter{
		limit: limit,
		burst: capacity,
		idle:  idle,
		now:   time.Now,
		state: make(map[string]*callerLimit),
	}
}

// GinMiddleware limits authenticated callers by user id and everyone else
// by client IP.
func (l *RateLimiter) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(callerKey(c)) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit"})
			return
		}
		c.Next()
	}
}

// Allow reports whether key may make a request now.
func (l *RateLimiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	if now.Sub(l.lastSweep) >= l.idle {
		l.sweep(now)
	}
	cl, ok := l.state[key]
	if !ok {
		cl = &callerLimit{lim: rate.NewLimiter(l.limit, l.burst)}
		l.state[key] = cl
	}
	cl.lastSeen = now
	l.mu.Unlock()
	return cl.lim.AllowN(now, 1)
}

// sweep drops idle callers. l.mu must be held.
func (l *RateLimiter) sweep(now time.Time) {
	for key, cl := range l.state {
		if now.Sub(cl.lastSeen) >= l.idle {
			delete(l.state, key)
		}
	}
	l.lastSweep = now
}

// Len returns the number of tracked callers.
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.state)
}

func callerKey(c *gin.Context) string {
	if p, ok := auth.PrincipalFrom(c); ok {
		return "user:" + p.UserID
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}
