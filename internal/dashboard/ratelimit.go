package dashboard

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Maximus17a/BotRexy/internal/config"

	"golang.org/x/time/rate"
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiter hands every dashboard client its own token bucket. Buckets idle
// for longer than the configured TTL are swept at most once per TTL.
type clientLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	limit     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newClientLimiter(cfg config.DashboardConfig, now func() time.Time) *clientLimiter {
	if now == nil {
		now = time.Now
	}
	return &clientLimiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(cfg.Rate),
		burst:   cfg.Burst,
		idle:    time.Duration(cfg.IdleMinutes) * time.Minute,
		now:     now,
	}
}

// allow spends one token for client. When none is left it reports how long
// until the next one.
func (c *clientLimiter) allow(client string) (bool, time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if now.Sub(c.lastSweep) >= c.idle {
		c.lastSweep = now
		for key, b := range c.buckets {
			if now.Sub(b.lastSeen) >= c.idle {
				delete(c.buckets, key)
			}
		}
	}

	b, ok := c.buckets[client]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(c.limit, c.burst)}
		c.buckets[client] = b
	}
	b.lastSeen = now

	reservation := b.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false, 0
	}
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		return false, delay
	}
	return true, 0
}

func (c *clientLimiter) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buckets)
}

// rateLimit rejects clients over their budget with 429 and a Retry-After hint.
func rateLimit(limiter *clientLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := limiter.allow(clientAddr(r))
			if !ok {
				if wait > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				}
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

const (
	corsMethods = "GET, POST, PATCH, DELETE, OPTIONS"
	corsHeaders = "Content-Type, Authorization"
)

// allowOrigins answers preflights and tags responses for the dashboard front end.
// Unknown origins get no CORS headers and their preflights are refused.
func allowOrigins(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(origins))
	for _, origin := range origins {
		allowed[strings.TrimRight(origin, "/")] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			known := origin != "" && allowed[origin]
			if known {
				w.Header().Add("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", corsMethods)
				w.Header().Set("Access-Control-Allow-Headers", corsHeaders)
			}
			if r.Method == http.MethodOptions {
				if origin != "" && !known {
					writeError(w, http.StatusForbidden, "origin not allowed")
					return
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
