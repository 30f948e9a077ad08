// Package ratelimit enforces fixed-window request quotas per caller and
// route. Two backends exist: an in-process map for single-node deployments
// and a Redis counter when several API nodes must share one budget.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mixdown/internal/config"
	"mixdown/internal/services"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Remaining int
	// RetryAfter is how long the caller should wait when denied.
	RetryAfter time.Duration
}

// Limiter answers whether one request may proceed.
type Limiter interface {
	Allow(ctx context.Context, callerKey, route string) (Decision, error)
}

// Rule binds a route pattern to a quota. Patterns are slash-separated with
// "*" matching exactly one segment.
type Rule struct {
	Pattern string
	Limit   int
	Window  time.Duration
}

// DefaultRules covers the mutating API surface. Order matters: the first
// matching rule wins, and the trailing catch-all backstops everything else.
func DefaultRules() []Rule {
	return []Rule{
		{Pattern: "jobs/create", Limit: 10, Window: time.Minute},
		{Pattern: "jobs/*/pay", Limit: 5, Window: 5 * time.Minute},
		{Pattern: "jobs/*/render", Limit: 20, Window: 10 * time.Minute},
		{Pattern: "*", Limit: 100, Window: 15 * time.Minute},
	}
}

// Resolve picks the rule governing a route.
func Resolve(rules []Rule, route string) Rule {
	for _, rule := range rules {
		if matchRoute(rule.Pattern, route) {
			return rule
		}
	}
	// No configured match; fail open with a generous default window.
	return Rule{Pattern: route, Limit: 100, Window: 15 * time.Minute}
}

func matchRoute(pattern, route string) bool {
	if pattern == "*" {
		return true
	}
	patternParts := strings.Split(strings.Trim(pattern, "/"), "/")
	routeParts := strings.Split(strings.Trim(route, "/"), "/")
	if len(patternParts) != len(routeParts) {
		return false
	}
	for i, part := range patternParts {
		if part != "*" && part != routeParts[i] {
			return false
		}
	}
	return true
}

// New builds the limiter selected by configuration.
func New(cfg *config.Config, logger *slog.Logger) (Limiter, error) {
	switch cfg.RateLimit.Backend {
	case "memory", "":
		return NewMemory(DefaultRules(), logger), nil
	case "redis":
		return NewRedis(cfg, DefaultRules(), logger), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "ratelimit", "init",
			fmt.Sprintf("unknown rate limit backend %q", cfg.RateLimit.Backend), nil)
	}
}

func denied(rule Rule, windowStart time.Time, now time.Time) Decision {
	retry := windowStart.Add(rule.Window).Sub(now)
	if retry < 0 {
		retry = 0
	}
	return Decision{Allowed: false, Remaining: 0, RetryAfter: retry}
}
