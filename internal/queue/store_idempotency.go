package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// GetIdempotencyRecord fetches a stored idempotency key, or ErrNotFound.
func (s *Store) GetIdempotencyRecord(ctx context.Context, key string) (*IdempotencyRecord, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT key, status, response, created_at, updated_at FROM idempotency_keys WHERE key = ?`, key)

	var (
		record     IdempotencyRecord
		status     string
		response   []byte
		createdRaw string
		updatedRaw string
	)
	if err := row.Scan(&record.Key, &status, &response, &createdRaw, &updatedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("idempotency key %q: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("get idempotency record: %w", err)
	}
	record.Status = IdempotencyStatus(status)
	record.Response = response
	record.CreatedAt = parseTimestamp(createdRaw)
	record.UpdatedAt = parseTimestamp(updatedRaw)
	return &record, nil
}

// BeginIdempotent claims a key by inserting a processing record. Returns false
// when the key already exists.
func (s *Store) BeginIdempotent(ctx context.Context, key string) (bool, error) {
	now := timestamp(time.Now())
	err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO idempotency_keys (key, status, response, created_at, updated_at)
        VALUES (?, ?, NULL, ?, ?)`,
		key, string(IdempotencyProcessing), now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("begin idempotent: %w", err)
	}
	return true, nil
}

// CompleteIdempotent stores the response bytes and flips the key to completed.
func (s *Store) CompleteIdempotent(ctx context.Context, key string, response []byte) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE idempotency_keys SET status = ?, response = ?, updated_at = ?
        WHERE key = ? AND status = ?`,
		string(IdempotencyCompleted), response, timestamp(time.Now()),
		key, string(IdempotencyProcessing),
	)
	if err != nil {
		return fmt.Errorf("complete idempotent: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("idempotency key %q not processing: %w", key, ErrConflict)
	}
	return nil
}

// TakeOverIdempotent re-stamps an unfinished processing claim so a new
// attempt can run the operation. The guard on the previously observed stamp
// serializes concurrent takers: exactly one wins per observation.
func (s *Store) TakeOverIdempotent(ctx context.Context, key string, observed time.Time) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE idempotency_keys SET updated_at = ? WHERE key = ? AND status = ? AND updated_at = ?`,
		timestamp(time.Now()), key, string(IdempotencyProcessing), timestamp(observed),
	)
	if err != nil {
		return false, fmt.Errorf("take over idempotent: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected == 1, nil
}

// ReleaseIdempotent drops a processing record so a failed operation can be
// retried with the same key.
func (s *Store) ReleaseIdempotent(ctx context.Context, key string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`DELETE FROM idempotency_keys WHERE key = ? AND status = ?`,
		key, string(IdempotencyProcessing),
	); err != nil {
		return fmt.Errorf("release idempotent: %w", err)
	}
	return nil
}

// ReclaimIdempotent deletes processing records older than the cutoff so
// crashed operations do not hold their keys forever.
func (s *Store) ReclaimIdempotent(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM idempotency_keys WHERE status = ? AND updated_at < ?`,
		string(IdempotencyProcessing), timestamp(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim idempotent: %w", err)
	}
	return res.RowsAffected()
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed: UNIQUE")
}
