// Package idempotency makes mutating operations safe to replay. Callers wrap
// the operation in Do with the client-supplied key; the first execution runs
// and records its response, every later call with the same key gets the
// recorded bytes back without re-running anything.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mixdown/internal/logging"
	"mixdown/internal/queue"
	"mixdown/internal/services"
)

// Store is the subset of the queue store the guard needs.
type Store interface {
	GetIdempotencyRecord(ctx context.Context, key string) (*queue.IdempotencyRecord, error)
	BeginIdempotent(ctx context.Context, key string) (bool, error)
	TakeOverIdempotent(ctx context.Context, key string, observed time.Time) (bool, error)
	CompleteIdempotent(ctx context.Context, key string, response []byte) error
	ReleaseIdempotent(ctx context.Context, key string) error
	ReclaimIdempotent(ctx context.Context, cutoff time.Time) (int64, error)
}

// Guard executes operations at most once per key.
type Guard struct {
	store  Store
	logger *slog.Logger
}

// NewGuard wires a guard over the queue store.
func NewGuard(store Store, logger *slog.Logger) *Guard {
	return &Guard{store: store, logger: logging.NewComponentLogger(logger, "idempotency")}
}

// Operation produces the response bytes for a guarded call.
type Operation func(ctx context.Context) ([]byte, error)

// Do runs op at most once for the given key. The returned bool reports a
// replay: true means the bytes came from a previous execution. An empty key
// opts out of guarding entirely. A key whose earlier execution never recorded
// a response is treated as a new request and taken over; losing that takeover
// to a concurrent request yields ErrConflict, a retry-later condition.
func (g *Guard) Do(ctx context.Context, key string, op Operation) ([]byte, bool, error) {
	if key == "" {
		response, err := op(ctx)
		return response, false, err
	}

	claimed, err := g.store.BeginIdempotent(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("claim idempotency key: %w", err)
	}
	if !claimed {
		record, err := g.store.GetIdempotencyRecord(ctx, key)
		if err != nil {
			if errors.Is(err, queue.ErrNotFound) {
				// The holder released between our claim attempt and this read.
				return nil, false, services.Wrap(services.ErrConflict, "idempotency", "claim",
					fmt.Sprintf("key %q is being retried elsewhere", key), nil)
			}
			return nil, false, fmt.Errorf("load idempotency record: %w", err)
		}
		switch record.Status {
		case queue.IdempotencyCompleted:
			g.logger.InfoContext(ctx, "replaying recorded response", logging.String("key", key))
			return record.Response, true, nil
		case queue.IdempotencyProcessing:
			// The earlier attempt crashed or is still running. Treat the
			// request as new so a crash never pins the key forever; the
			// stamp guard lets exactly one taker through.
			taken, err := g.store.TakeOverIdempotent(ctx, key, record.UpdatedAt)
			if err != nil {
				return nil, false, fmt.Errorf("take over idempotency key: %w", err)
			}
			if !taken {
				return nil, false, services.Wrap(services.ErrConflict, "idempotency", "claim",
					fmt.Sprintf("key %q was just claimed by another request", key), nil)
			}
			g.logger.WarnContext(ctx, "took over unfinished idempotency claim", logging.String("key", key))
		default:
			return nil, false, fmt.Errorf("idempotency key %q in unknown state %q", key, record.Status)
		}
	}

	response, err := op(ctx)
	if err != nil {
		// Release the key so the caller can retry the same request.
		if releaseErr := g.store.ReleaseIdempotent(ctx, key); releaseErr != nil {
			g.logger.ErrorContext(ctx, "failed to release idempotency key",
				logging.String("key", key), logging.Error(releaseErr))
		}
		return nil, false, err
	}

	if err := g.store.CompleteIdempotent(ctx, key, response); err != nil {
		return nil, false, fmt.Errorf("record idempotent response: %w", err)
	}
	return response, false, nil
}

// Sweep drops processing claims older than maxAge, freeing keys orphaned by
// a crash mid-operation.
func (g *Guard) Sweep(ctx context.Context, maxAge time.Duration) (int64, error) {
	dropped, err := g.store.ReclaimIdempotent(ctx, time.Now().Add(-maxAge))
	if err != nil {
		return 0, err
	}
	if dropped > 0 {
		g.logger.InfoContext(ctx, "reclaimed orphaned idempotency keys", logging.Int64("dropped", dropped))
	}
	return dropped, nil
}
