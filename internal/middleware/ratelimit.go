package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/medoshield/chatassist/internal/logging"
)

// DefaultRateWindow replaces a non-positive window passed to NewRateLimiter.
const DefaultRateWindow = time.Minute

// RateLimiter is a fixed-window request counter kept in Redis.
type RateLimiter struct {
	redis      *redis.Client
	limit      int64
	window     time.Duration
	prefix     string
	keyFunc    func(*http.Request) string
	failClosed bool
	logger     *logging.Logger

	// incr counts a hit; nil disables limiting.
	incr func(ctx context.Context, key string) (int64, error)
	now  func() time.Time
}

// NewRateLimiter builds a limiter allowing limit requests per window for each
// key. A nil keyFunc keys by client IP. A nil client disables limiting; when
// Redis errors the request passes unless failClosed is set.
func NewRateLimiter(redisClient *redis.Client, limit int64, window time.Duration, prefix string, keyFunc func(*http.Request) string, failClosed bool) *RateLimiter {
	if keyFunc == nil {
		keyFunc = GetClientIP
	}
	// A non-positive window would give every request its own key.
	if window <= 0 {
		window = DefaultRateWindow
	}
	rl := &RateLimiter{
		redis:      redisClient,
		limit:      limit,
		window:     window,
		prefix:     prefix,
		keyFunc:    keyFunc,
		failClosed: failClosed,
		logger:     logging.Default,
		now:        time.Now,
	}
	if redisClient != nil {
		rl.incr = rl.redisIncr
	}
	return rl
}

// WithLogger sets the logger used for backend errors.
func (rl *RateLimiter) WithLogger(l *logging.Logger) *RateLimiter {
	if l != nil {
		rl.logger = l
	}
	return rl
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.incr == nil {
			next.ServeHTTP(w, r)
			return
		}

		now := rl.now()
		windowStart := now.Truncate(rl.window)
		resetAt := windowStart.Add(rl.window)
		key := fmt.Sprintf("%s%s:%d", rl.prefix, rl.keyFunc(r), windowStart.Unix())

		count, err := rl.incr(r.Context(), key)
		if err != nil {
			rl.logger.FromContext(r.Context()).Error("Rate limiter backend error", map[string]interface{}{
				"error":       err.Error(),
				"fail_closed": rl.failClosed,
			})
			if rl.failClosed {
				writeError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		remaining := rl.limit - count
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(rl.limit, 10))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if count > rl.limit {
			retry := int64(resetAt.Sub(now).Seconds())
			if retry < 1 {
				retry = 1
			}
			w.Header().Set("Retry-After", strconv.FormatInt(retry, 10))
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) redisIncr(ctx context.Context, key string) (int64, error) {
	pipe := rl.redis.TxPipeline()
	incrCmd := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incrCmd.Val(), nil
}

// GetClientIP returns the first X-Forwarded-For hop, then X-Real-IP, then
// the connection's remote address.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if host, _, err := net.SplitHostPort(first); err == nil {
			return host
		}
		if first != "" {
			return first
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: message})
}
