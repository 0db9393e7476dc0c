package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type clientState struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter gives every client IP a token bucket holding max requests
// that refills over one window.
type RateLimiter struct {
	max    int
	window time.Duration
	limit  rate.Limit
	now    func() time.Time

	mu      sync.Mutex
	clients map[string]*clientState
}

func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	if max < 1 {
		max = 1
	}
	return &RateLimiter{
		max:     max,
		window:  window,
		limit:   rate.Every(window / time.Duration(max)),
		now:     time.Now,
		clients: make(map[string]*clientState),
	}
}

// Allow counts one request from ip.
func (l *RateLimiter) Allow(ip string) bool {
	ok, _ := l.take(ip)
	return ok
}

// take spends a token for ip, or reports how long until one is free.
func (l *RateLimiter) take(ip string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	state, ok := l.clients[ip]
	if !ok {
		state = &clientState{limiter: rate.NewLimiter(l.limit, l.max)}
		l.clients[ip] = state
	}
	state.lastSeen = now

	r := state.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, l.window
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Run drops idle clients every window until ctx is done.
func (l *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.cleanup()
		}
	}
}

func (l *RateLimiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for ip, state := range l.clients {
		if now.Sub(state.lastSeen) > 2*l.window {
			delete(l.clients, ip)
		}
	}
}

func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, retry := l.take(c.ClientIP())
		if ok {
			c.Next()
			return
		}
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
		if WantsJSON(c) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": true, "message": "Too many requests. Please try again later."})
			return
		}
		c.String(http.StatusTooManyRequests, "Too many requests. Please try again later.")
		c.Abort()
	}
}
