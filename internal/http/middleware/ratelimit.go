package middleware

import (
	"net/http"
	"sync"
	"time"
)

// staleAfter is how long an idle client keeps its bucket before eviction.
const staleAfter = 10 * time.Minute

// visitor tracks the token bucket for one client IP.
type visitor struct {
	tokens float64
	seen   time.Time
}

// ChatLimiter throttles the chat surfaces per client IP. Each inbound
// request drains one token; tokens refill at perSecond up to burst. Stale
// visitors are evicted lazily on the next request that touches the map, so
// the limiter needs no background goroutine.
type ChatLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	perSecond float64
	burst     float64
	lastSweep time.Time
	now       func() time.Time
}

// NewChatLimiter creates a limiter allowing perSecond requests with the
// given burst per IP.
func NewChatLimiter(perSecond float64, burst int) *ChatLimiter {
	if burst < 1 {
		burst = 1
	}
	return &ChatLimiter{
		visitors:  make(map[string]*visitor),
		perSecond: perSecond,
		burst:     float64(burst),
		now:       time.Now,
	}
}

// Allow reports whether one more request from ip fits the limit.
func (l *ChatLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{tokens: l.burst}
		l.visitors[ip] = v
	} else {
		v.tokens += now.Sub(v.seen).Seconds() * l.perSecond
		if v.tokens > l.burst {
			v.tokens = l.burst
		}
	}
	v.seen = now

	if v.tokens < 1 {
		return false
	}
	v.tokens--
	return true
}

// sweep drops buckets idle past staleAfter, at most once per staleAfter.
// Caller holds the mutex.
func (l *ChatLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < staleAfter {
		return
	}
	l.lastSweep = now
	for ip, v := range l.visitors {
		if now.Sub(v.seen) > staleAfter {
			delete(l.visitors, ip)
		}
	}
}

// RateLimit rejects requests beyond the per-IP limit with 429. The client
// IP comes from X-Real-Ip when chi's RealIP middleware ran earlier in the
// chain, falling back to the socket address.
func RateLimit(perSecond float64, burst int) func(http.Handler) http.Handler {
	limiter := NewChatLimiter(perSecond, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.Header.Get("X-Real-Ip")
			if ip == "" {
				ip = r.RemoteAddr
			}
			if !limiter.Allow(ip) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
