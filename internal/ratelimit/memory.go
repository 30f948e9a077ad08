package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"mixdown/internal/logging"
)

// Memory counts requests in process memory. Windows reset when the daemon
// restarts, which is acceptable for a single-node deployment and documented
// at the API surface.
type Memory struct {
	rules []Rule
	now   func() time.Time

	mu        sync.Mutex
	counters  map[string]*window
	lastSweep time.Time

	logger *slog.Logger
}

type window struct {
	start time.Time
	count int
}

// NewMemory builds the in-process limiter.
func NewMemory(rules []Rule, logger *slog.Logger) *Memory {
	return &Memory{
		rules:    rules,
		now:      time.Now,
		counters: make(map[string]*window),
		logger:   logging.NewComponentLogger(logger, "ratelimit"),
	}
}

// Allow counts one request against the caller's fixed window.
func (m *Memory) Allow(ctx context.Context, callerKey, route string) (Decision, error) {
	rule := Resolve(m.rules, route)
	now := m.now()
	windowStart := now.Truncate(rule.Window)
	key := callerKey + "|" + rule.Pattern

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweepLocked(now)

	w := m.counters[key]
	if w == nil || !w.start.Equal(windowStart) {
		w = &window{start: windowStart}
		m.counters[key] = w
	}
	if w.count >= rule.Limit {
		return denied(rule, windowStart, now), nil
	}
	w.count++
	return Decision{Allowed: true, Remaining: rule.Limit - w.count}, nil
}

// sweepLocked drops stale windows at most once a minute so the map does not
// grow with the caller population forever.
func (m *Memory) sweepLocked(now time.Time) {
	if now.Sub(m.lastSweep) < time.Minute {
		return
	}
	m.lastSweep = now
	for key, w := range m.counters {
		rule := Resolve(m.rules, keyRoute(key))
		if now.Sub(w.start) > 2*rule.Window {
			delete(m.counters, key)
		}
	}
}

func keyRoute(key string) string {
	for i := 0; i < len(key); i++ {
		if key[i] == '|' {
			return key[i+1:]
		}
	}
	return key
}
