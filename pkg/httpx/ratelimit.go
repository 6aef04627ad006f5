package httpx

import (
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimit is a token bucket refilled at Requests per Window.
type RateLimit struct {
	Requests int
	Window   time.Duration
	Burst    int
}

func (l RateLimit) perSecond() rate.Limit {
	if l.Window <= 0 {
		return rate.Inf
	}
	return rate.Limit(float64(l.Requests) / l.Window.Seconds())
}

// Default profiles. RateLimitFromEnv applies RATELIMIT_<NAME>_* overrides.
var (
	// StrictLimit guards login and token verification.
	StrictLimit = RateLimit{Requests: 5, Window: time.Minute, Burst: 5}
	// ModerateLimit guards writes and provider calls.
	ModerateLimit = RateLimit{Requests: 20, Window: time.Minute, Burst: 20}
	LenientLimit  = RateLimit{Requests: 100, Window: time.Minute, Burst: 100}
	// PublicLimit is for probes and scrapes.
	PublicLimit = RateLimit{Requests: 1000, Window: time.Minute, Burst: 1000}
)

// RateLimitFromEnv overrides def from RATELIMIT_<name>_REQUESTS,
// RATELIMIT_<name>_WINDOW_SEC and RATELIMIT_<name>_BURST. Values that are
// not positive integers are ignored.
func RateLimitFromEnv(name string, def RateLimit) RateLimit {
	out := def
	if n, ok := positiveEnv("RATELIMIT_" + name + "_REQUESTS"); ok {
		out.Requests = n
	}
	if n, ok := positiveEnv("RATELIMIT_" + name + "_WINDOW_SEC"); ok {
		out.Window = time.Duration(n) * time.Second
	}
	if n, ok := positiveEnv("RATELIMIT_" + name + "_BURST"); ok {
		out.Burst = n
	}
	return out
}

func positiveEnv(key string) (int, bool) {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// KeyFunc groups requests into buckets. An empty key bypasses the limiter.
type KeyFunc func(*http.Request) string

// ClientIP is the first X-Forwarded-For hop, then X-Real-IP, then the
// connection's remote address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// PrincipalOrIP keys on the resolved caller, or on the client IP before
// authentication has run.
func PrincipalOrIP(r *http.Request) string {
	if key := PrincipalKey(r); key != "" {
		return key
	}
	return "ip:" + ClientIP(r)
}

// idleAfter is how long an untouched bucket is kept.
const idleAfter = 10 * time.Minute

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type buckets struct {
	limit RateLimit
	now   func() time.Time

	mu        sync.Mutex
	byKey     map[string]*bucket
	lastSweep time.Time
}

func newBuckets(limit RateLimit) *buckets {
	return &buckets{
		limit:     limit,
		now:       time.Now,
		byKey:     make(map[string]*bucket),
		lastSweep: time.Now(),
	}
}

func (b *buckets) get(key string) *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	if now.Sub(b.lastSweep) >= idleAfter {
		for k, v := range b.byKey {
			if now.Sub(v.lastSeen) >= idleAfter {
				delete(b.byKey, k)
			}
		}
		b.lastSweep = now
	}

	bk, ok := b.byKey[key]
	if !ok {
		bk = &bucket{limiter: rate.NewLimiter(b.limit.perSecond(), b.limit.Burst)}
		b.byKey[key] = bk
	}
	bk.lastSeen = now
	return bk.limiter
}

func (b *buckets) size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.byKey)
}

// RateLimitBy answers 429 with Retry-After once key's bucket is empty.
func RateLimitBy(limit RateLimit, key KeyFunc) Middleware {
	b := newBuckets(limit)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}

			lim := b.get(k)
			if lim.Allow() {
				next.ServeHTTP(w, r)
				return
			}

			res := lim.Reserve()
			wait := res.Delay()
			res.Cancel()
			retryAfter := max(int(wait.Round(time.Second).Seconds()), 1)

			slogx.FromContext(r.Context()).Warn("rate limited",
				"key", k,
				"path", r.URL.Path,
				"retry_after", retryAfter,
			)

			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit.Requests))
			w.Header().Set("X-RateLimit-Window", limit.Window.String())
			WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Too many requests. Please try again later.")
		})
	}
}

// RateLimitByIP limits per client IP.
func RateLimitByIP(limit RateLimit) Middleware {
	return RateLimitBy(limit, ClientIP)
}

// RateLimitByPrincipal limits per user or module. Chain it after the actor
// middleware.
func RateLimitByPrincipal(limit RateLimit) Middleware {
	return RateLimitBy(limit, PrincipalOrIP)
}
