package httpx

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimiter counts requests per client in fixed windows stored in
// Redis, so every portal replica shares one budget.
type RedisRateLimiter struct {
	rdb    redis.Scripter
	limit  int
	window time.Duration
	prefix string
}

// The script returns the hit count and the milliseconds left in the window.
var fixedWindow = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {n, ttl}
`)

func NewRedisRateLimiter(rdb redis.Scripter, limit int, window time.Duration, prefix string) *RedisRateLimiter {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "rl"
	}
	return &RedisRateLimiter{rdb: rdb, limit: limit, window: window, prefix: prefix}
}

// Window is the state of one client's current window.
type Window struct {
	Count     int64
	Remaining int
	ResetIn   time.Duration
}

func (w Window) exceeded() bool { return w.Remaining < 0 }

// Hit records one request for key.
func (rl *RedisRateLimiter) Hit(ctx context.Context, key string) (Window, error) {
	res, err := fixedWindow.Run(ctx, rl.rdb, []string{rl.prefix + ":" + key}, rl.window.Milliseconds()).Result()
	if err != nil {
		return Window{}, err
	}
	vals, ok := res.([]any)
	if !ok || len(vals) != 2 {
		return Window{}, fmt.Errorf("unexpected rate limit script result %T", res)
	}
	count, err := toInt64(vals[0])
	if err != nil {
		return Window{}, err
	}
	ttl, err := toInt64(vals[1])
	if err != nil {
		return Window{}, err
	}
	if ttl < 0 {
		ttl = rl.window.Milliseconds()
	}
	return Window{
		Count:     count,
		Remaining: rl.limit - int(count),
		ResetIn:   time.Duration(ttl) * time.Millisecond,
	}, nil
}

// Middleware limits requests per client. When Redis fails the request is
// let through if failOpen is set and refused with 503 otherwise.
func (rl *RedisRateLimiter) Middleware(logger *slog.Logger, failOpen bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			win, err := rl.Hit(r.Context(), clientKey(r))
			if err != nil {
				if logger != nil {
					logger.Warn("rate limiter unavailable", "err", err, "fail_open", failOpen)
				}
				if failOpen {
					next.ServeHTTP(w, r)
					return
				}
				WriteError(w, http.StatusServiceUnavailable, "rate limiter unavailable")
				return
			}
			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(max(win.Remaining, 0)))
			if win.exceeded() {
				secs := int(win.ResetIn.Round(time.Second) / time.Second)
				h.Set("Retry-After", strconv.Itoa(max(secs, 1)))
				WriteError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected rate limit value %T", v)
	}
}
