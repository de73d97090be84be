package httpx

import (
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/provision/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines the rate limiting parameters.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the time window
	RequestsPerWindow int
	// Window is the time window for rate limiting
	Window time.Duration
	// Burst allows for temporary bursts above the rate limit
	Burst int
}

var (
	// RunLimit guards endpoints that start remote automation.
	// Override with: PROVISION_RATELIMIT_RUN_REQUESTS, _WINDOW_SEC, _BURST
	RunLimit = RateLimitConfig{
		RequestsPerWindow: 10,
		Window:            time.Minute,
		Burst:             5,
	}

	// ReadLimit guards read-only operator endpoints.
	// Override with: PROVISION_RATELIMIT_READ_REQUESTS, _WINDOW_SEC, _BURST
	ReadLimit = RateLimitConfig{
		RequestsPerWindow: 300,
		Window:            time.Minute,
		Burst:             60,
	}
)

func init() {
	RunLimit = ParseRateLimitFromEnv("RUN", RunLimit)
	ReadLimit = ParseRateLimitFromEnv("READ", ReadLimit)
}

// ParseRateLimitFromEnv reads PROVISION_RATELIMIT_{prefix}_{REQUESTS,WINDOW_SEC,BURST}
// over defaultConfig. Invalid or non-positive values are ignored.
func ParseRateLimitFromEnv(prefix string, defaultConfig RateLimitConfig) RateLimitConfig {
	config := defaultConfig
	envInt := func(name string) (int, bool) {
		n, err := strconv.Atoi(os.Getenv("PROVISION_RATELIMIT_" + prefix + "_" + name))
		return n, err == nil && n > 0
	}

	if n, ok := envInt("REQUESTS"); ok {
		config.RequestsPerWindow = n
	}
	if n, ok := envInt("WINDOW_SEC"); ok {
		config.Window = time.Duration(n) * time.Second
	}
	if n, ok := envInt("BURST"); ok {
		config.Burst = n
	}
	return config
}

// KeyExtractor groups requests for rate limiting.
type KeyExtractor func(*http.Request) string

// IPKeyExtractor extracts the client IP address, honouring X-Forwarded-For
// and X-Real-IP for proxied requests.
func IPKeyExtractor(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// OperatorKeyExtractor uses the authenticated operator, falling back to the
// client IP when the API runs without tokens.
func OperatorKeyExtractor(r *http.Request) string {
	if op := OperatorFromContext(r.Context()); op != "" {
		return "op:" + op
	}
	return "ip:" + IPKeyExtractor(r)
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// keyedLimiter holds one token bucket per key and forgets keys idle for
// longer than idleTTL.
type keyedLimiter struct {
	mu          sync.Mutex
	limiters    map[string]*limiterEntry
	rate        rate.Limit
	burst       int
	idleTTL     time.Duration
	lastCleanup time.Time
	now         func() time.Time
}

func newKeyedLimiter(config RateLimitConfig) *keyedLimiter {
	return &keyedLimiter{
		limiters:    make(map[string]*limiterEntry),
		rate:        rate.Limit(float64(config.RequestsPerWindow) / config.Window.Seconds()),
		burst:       config.Burst,
		idleTTL:     max(config.Window, 5*time.Minute),
		lastCleanup: time.Now(),
		now:         time.Now,
	}
}

func (kl *keyedLimiter) get(key string) *rate.Limiter {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	now := kl.now()
	if now.Sub(kl.lastCleanup) > kl.idleTTL {
		for k, e := range kl.limiters {
			if now.Sub(e.lastSeen) > kl.idleTTL {
				delete(kl.limiters, k)
			}
		}
		kl.lastCleanup = now
	}

	e, ok := kl.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(kl.rate, kl.burst)}
		kl.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter
}

// RateLimitMiddleware rejects requests over config with 429, grouping them
// with keyExtractor. Requests without a key are allowed.
func RateLimitMiddleware(config RateLimitConfig, keyExtractor KeyExtractor) Middleware {
	kl := newKeyedLimiter(config)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := slogx.FromContext(r.Context())

			key := keyExtractor(r)
			if key == "" {
				log.Warn("rate limit: unable to extract key, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			limiter := kl.get(key)
			if !limiter.Allow() {
				reservation := limiter.Reserve()
				retryAfter := max(int(reservation.Delay().Seconds()), 1)
				reservation.Cancel()

				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(config.RequestsPerWindow))
				w.Header().Set("X-RateLimit-Window", config.Window.String())

				log.Warn("rate limit exceeded", "key", key, "endpoint", r.URL.Path, "retry_after", retryAfter)
				WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Too many requests. Please try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
