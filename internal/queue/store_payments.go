package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// RecordPaymentEvent inserts a webhook event into the dedup ledger. Returns
// false when the event id has already been processed.
func (s *Store) RecordPaymentEvent(ctx context.Context, eventID, eventType, jobID string) (bool, error) {
	err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO payment_events (event_id, event_type, job_id, processed_at)
        VALUES (?, ?, ?, ?)`,
		eventID, eventType, jobID, timestamp(time.Now()),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("record payment event: %w", err)
	}
	return true, nil
}

// GetPaymentEvent fetches a processed event by id, or ErrNotFound.
func (s *Store) GetPaymentEvent(ctx context.Context, eventID string) (*PaymentEvent, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT event_id, event_type, job_id, processed_at FROM payment_events WHERE event_id = ?`,
		eventID)

	var (
		event        PaymentEvent
		processedRaw string
	)
	if err := row.Scan(&event.EventID, &event.Type, &event.JobID, &processedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("payment event %q: %w", eventID, ErrNotFound)
		}
		return nil, fmt.Errorf("get payment event: %w", err)
	}
	event.ProcessedAt = parseTimestamp(processedRaw)
	return &event, nil
}
