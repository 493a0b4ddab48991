package middleware

import (
	"context"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "wastewatch-backend/internal/errors"
	"wastewatch-backend/pkg/utils"
)

// Limiter counts requests per key within a fixed window.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

// RedisLimiter is a fixed-window counter: INCR a per-key counter and arm its
// expiry in the same MULTI. EXPIRE NX never extends a running window but
// repairs a counter that somehow lost its TTL.
type RedisLimiter struct {
	client redis.Cmdable
	prefix string
	limit  int
	window time.Duration
}

func NewRedisLimiter(client redis.Cmdable, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix, limit: limit, window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	userKey := l.prefix + ":" + key

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, userKey)
		pipe.ExpireNX(ctx, userKey, l.window)
		return nil
	})
	if err != nil {
		return false, 0, fmt.Errorf("redis incr: %w", err)
	}
	count := incr.Val()

	if count > int64(l.limit) {
		retryAfter, err := l.client.TTL(ctx, userKey).Result()
		if err != nil || retryAfter < 0 {
			retryAfter = l.window
		}
		return false, retryAfter, nil
	}
	return true, 0, nil
}

// RateLimit rejects requests once the authenticated user exceeds the limiter.
// A nil limiter disables the check. Limiter failures let the request through.
func RateLimit(l Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetUserFromContext(r)
			if !ok {
				utils.RespondError(w, http.StatusUnauthorized, apperrors.KindUnauthorized, "authentication required")
				return
			}

			allowed, retryAfter, err := l.Allow(r.Context(), user.UserID)
			if err != nil {
				log.Printf("⚠️  Rate limiter unavailable, allowing request: %v", err)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
				utils.RespondError(w, http.StatusTooManyRequests, apperrors.KindRateLimited, "daily report limit reached, try again later")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
