package api

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// RequestIDFromContext returns the request ID set by the server middleware
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// requestIDMiddleware reuses an incoming X-Request-Id or mints one, and
// echoes it on the response
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", reqID)
		ctx := context.WithValue(r.Context(), requestIDKey, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// limiterIdleTTL is how long an unused client bucket is kept. An idle
// bucket has refilled by then, so evicting it forgets nothing.
const limiterIdleTTL = 10 * time.Minute

// RateLimit configures the per-client limiter on command endpoints. A
// non-positive RPS disables limiting.
type RateLimit struct {
	RPS   int
	Burst int
	// TrustProxy keys clients by the first X-Forwarded-For hop. Enable it
	// only behind a reverse proxy that sets the header itself.
	TrustProxy bool
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter hands out one token bucket per client IP
type ipLimiter struct {
	limit     RateLimit
	limiters  map[string]*clientLimiter
	lastPrune time.Time
	now       func() time.Time
	mu        sync.Mutex
}

func newIPLimiter(limit RateLimit) *ipLimiter {
	if limit.Burst <= 0 {
		limit.Burst = 1
	}
	return &ipLimiter{
		limit:     limit,
		limiters:  make(map[string]*clientLimiter),
		lastPrune: time.Now(),
		now:       time.Now,
	}
}

func (l *ipLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastPrune) >= limiterIdleTTL {
		l.prune(now)
	}
	if c, ok := l.limiters[key]; ok {
		c.lastSeen = now
		return c.limiter
	}
	lim := rate.NewLimiter(rate.Every(time.Second/time.Duration(l.limit.RPS)), l.limit.Burst)
	l.limiters[key] = &clientLimiter{limiter: lim, lastSeen: now}
	return lim
}

// prune drops buckets idle for at least limiterIdleTTL. Callers hold l.mu.
func (l *ipLimiter) prune(now time.Time) {
	for key, c := range l.limiters {
		if now.Sub(c.lastSeen) >= limiterIdleTTL {
			delete(l.limiters, key)
		}
	}
	l.lastPrune = now
}

func (l *ipLimiter) middleware(next http.Handler) http.Handler {
	if l.limit.RPS <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.get(clientIP(r, l.limit.TrustProxy)).Allow() {
			respondError(w, http.StatusTooManyRequests, "Too many requests. Please slow down.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the remote host, or the first X-Forwarded-For hop when
// the proxy in front of the server is trusted
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			return strings.TrimSpace(first)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
