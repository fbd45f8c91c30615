package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/calmsteps-backend/internal/logger"
	"github.com/AnshRaj112/calmsteps-backend/pkg/clientip"
)

const (
	// WriteLimitWindow is the fixed window for per-user write limits.
	WriteLimitWindow = 60 * time.Second
	// WriteLimitMax allows continuous autosave (about 40 saves a minute) with headroom.
	WriteLimitMax = 120
	// RateLimitKeyPrefix is the Redis key prefix for rate limiting
	RateLimitKeyPrefix = "ratelimit:"
)

// WriteRateLimit counts mutating requests per user in a Redis fixed window so
// the limit holds across instances. Reads pass through. Redis errors fail open.
// Must run after RequireAuth; anonymous requests are keyed by IP.
func WriteRateLimit(rdb *redis.Client, max int64, window time.Duration, trustProxy bool, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			key := RateLimitKeyPrefix + "ip:" + clientip.RealClientIP(r, trustProxy)
			if id, ok := UserID(r.Context()); ok {
				key = RateLimitKeyPrefix + "user:" + id.String()
			}

			ctx := r.Context()
			pipe := rdb.TxPipeline()
			incr := pipe.Incr(ctx, key)
			pipe.ExpireNX(ctx, key, window)
			ttl := pipe.TTL(ctx, key)
			if _, err := pipe.Exec(ctx); err != nil {
				log.Warn("rate limit check failed, allowing request", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			count := incr.Val()
			reset := time.Now().Add(ttl.Val())
			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(max, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
			if count > max {
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Retry-After", strconv.Itoa(int(ttl.Val().Seconds())+1))
				writeError(w, http.StatusTooManyRequests, "rate_limited", "Too many changes in a short time. Your work is safe; retrying shortly.")
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(max-count, 10))
			next.ServeHTTP(w, r)
		})
	}
}
