package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/AnshRaj112/calmsteps-backend/pkg/clientip"
)

const (
	headerXContentTypeOptions     = "X-Content-Type-Options"
	headerXFrameOptions           = "X-Frame-Options"
	headerReferrerPolicy          = "Referrer-Policy"
	headerContentSecurityPolicy   = "Content-Security-Policy"
	headerStrictTransportSecurity = "Strict-Transport-Security"
)

// SecurityHeaders sets security-related response headers.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(headerXContentTypeOptions, "nosniff")
		w.Header().Set(headerXFrameOptions, "DENY")
		w.Header().Set(headerReferrerPolicy, "no-referrer")
		w.Header().Set(headerContentSecurityPolicy, "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set(headerStrictTransportSecurity, "max-age=31536000; includeSubDomains")
		next.ServeHTTP(w, r)
	})
}

// HostCheck returns 403 when r.Host does not match allowedHost (e.g. api.calmsteps.app).
// allowedHost should be the bare hostname without scheme or port.
func HostCheck(allowedHost string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if allowedHost == "" {
				next.ServeHTTP(w, r)
				return
			}
			reqHost := r.Host
			if host, _, err := net.SplitHostPort(reqHost); err == nil {
				reqHost = host
			}
			if !strings.EqualFold(strings.TrimSpace(reqHost), strings.TrimSpace(allowedHost)) {
				writeError(w, http.StatusForbidden, "forbidden", "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

const (
	limiterSweepInterval = 5 * time.Minute
	limiterTTL           = 30 * time.Minute
)

type limiterEntry struct {
	limiter *rate.Limiter
	lastUse time.Time
}

// IPLimiter keeps one token bucket per client IP. Idle buckets are dropped
// during Allow once limiterTTL has passed.
type IPLimiter struct {
	limit      rate.Limit
	burst      int
	trustProxy bool

	mu        sync.Mutex
	entries   map[string]*limiterEntry
	lastSweep time.Time
	now       func() time.Time
}

func NewIPLimiter(limit rate.Limit, burst int, trustProxy bool) *IPLimiter {
	return &IPLimiter{
		limit:      limit,
		burst:      burst,
		trustProxy: trustProxy,
		entries:    make(map[string]*limiterEntry),
		now:        time.Now,
	}
}

// Allow consumes one token for the request's client IP.
func (l *IPLimiter) Allow(r *http.Request) bool {
	ip := clientip.RealClientIP(r, l.trustProxy)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.lastSweep) > limiterSweepInterval {
		for key, e := range l.entries {
			if now.Sub(e.lastUse) > limiterTTL {
				delete(l.entries, key)
			}
		}
		l.lastSweep = now
	}
	e, ok := l.entries[ip]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[ip] = e
	}
	e.lastUse = now
	return e.limiter.AllowN(now, 1)
}

func (l *IPLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Per-IP defaults. The global bucket leaves room for worksheet autosave
// (one PATCH every 1-2s while typing) plus page loads.
const (
	GlobalRateLimitRPS   = 5
	GlobalRateLimitBurst = 30
	LoginRateLimitEvery  = 5 * time.Second
	LoginRateLimitBurst  = 3
)

// GlobalRateLimit returns 429 when the client's bucket is empty.
func GlobalRateLimit(l *IPLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(r) {
				writeError(w, http.StatusTooManyRequests, "rate_limited", "Too many requests. Please slow down.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

var loginPaths = map[string]bool{
	"/api/auth/signin": true,
	"/api/auth/signup": true,
}

// LoginRateLimit applies a stricter limit to the credential routes only.
func LoginRateLimit(l *IPLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !loginPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			if !l.Allow(r) {
				writeError(w, http.StatusTooManyRequests, "rate_limited", "Too many login attempts. Please try again later.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ProductionSecurity returns middlewares for production: SecurityHeaders → HostCheck → GlobalRateLimit → LoginRateLimit.
func ProductionSecurity(allowedHost string, trustProxy bool) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		SecurityHeaders,
		HostCheck(allowedHost),
		GlobalRateLimit(NewIPLimiter(GlobalRateLimitRPS, GlobalRateLimitBurst, trustProxy)),
		LoginRateLimit(NewIPLimiter(rate.Every(LoginRateLimitEvery), LoginRateLimitBurst, trustProxy)),
	}
}
