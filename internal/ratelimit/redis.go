package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"mixdown/internal/config"
	"mixdown/internal/logging"
	"mixdown/internal/services"
)

// Redis shares fixed windows across nodes with one INCR-counted key per
// caller, rule, and window.
type Redis struct {
	client *redis.Client
	rules  []Rule
	now    func() time.Time
	logger *slog.Logger
}

// NewRedis builds the shared limiter from daemon configuration.
func NewRedis(cfg *config.Config, rules []Rule, logger *slog.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RateLimit.RedisAddr,
		Password: cfg.RateLimit.RedisPassword,
		DB:       cfg.RateLimit.RedisDB,
	})
	return &Redis{
		client: client,
		rules:  rules,
		now:    time.Now,
		logger: logging.NewComponentLogger(logger, "ratelimit"),
	}
}

// Allow counts one request. Redis being unreachable is an error, not a
// denial; the API layer decides whether to fail open.
func (r *Redis) Allow(ctx context.Context, callerKey, route string) (Decision, error) {
	rule := Resolve(r.rules, route)
	now := r.now()
	windowStart := now.Truncate(rule.Window)
	key := fmt.Sprintf("ratelimit:%s:%s:%d", callerKey, rule.Pattern, windowStart.Unix())

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return Decision{}, services.Wrap(services.ErrTransient, "ratelimit", "incr", "redis increment failed", err)
	}
	if count == 1 {
		// First hit owns the expiry. Losing this write only leaks one key
		// per window; the window-stamped key name keeps counting correct.
		if err := r.client.Expire(ctx, key, rule.Window+time.Second).Err(); err != nil {
			r.logger.WarnContext(ctx, "failed to set rate limit expiry",
				logging.String("key", key), logging.Error(err))
		}
	}
	if int(count) > rule.Limit {
		decision := denied(rule, windowStart, now)
		if ttl, err := r.client.TTL(ctx, key).Result(); err == nil && ttl > 0 {
			decision.RetryAfter = ttl
		}
		return decision, nil
	}
	return Decision{Allowed: true, Remaining: rule.Limit - int(count)}, nil
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
