// Package payments turns provider webhook events into job transitions.
// Providers redeliver webhooks freely, so every event passes through a dedup
// ledger before it can touch a job.
package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"mixdown/internal/logging"
	"mixdown/internal/queue"
	"mixdown/internal/services"
)

// Event types accepted from the payment provider.
const (
	EventPaymentSucceeded = "payment_succeeded"
	EventPaymentFailed    = "payment_failed"
)

// Event is one webhook delivery, already authenticated by the API layer.
type Event struct {
	EventID string
	Type    string
	JobID   string
}

// Outcome reports what a delivery did.
type Outcome struct {
	// Duplicate means the event id was seen before and nothing changed.
	Duplicate bool
	// Applied means the job transitioned (or recorded the failure).
	Applied bool
}

// Store is the queue surface the processor needs.
type Store interface {
	RecordPaymentEvent(ctx context.Context, eventID, eventType, jobID string) (bool, error)
	Transition(ctx context.Context, id string, from, to queue.Status) error
	RecordJobError(ctx context.Context, id, message string) error
	GetJob(ctx context.Context, id string) (*queue.Job, error)
}

// Processor applies payment events to jobs.
type Processor struct {
	store  Store
	logger *slog.Logger
}

// NewProcessor wires a processor over the queue store.
func NewProcessor(store Store, logger *slog.Logger) *Processor {
	return &Processor{store: store, logger: logging.NewComponentLogger(logger, "payments")}
}

// HandleEvent processes one delivery. Duplicates acknowledge without side
// effects; that keeps webhook retries harmless.
func (p *Processor) HandleEvent(ctx context.Context, event Event) (Outcome, error) {
	if err := validateEvent(event); err != nil {
		return Outcome{}, err
	}

	fresh, err := p.store.RecordPaymentEvent(ctx, event.EventID, event.Type, event.JobID)
	if err != nil {
		return Outcome{}, fmt.Errorf("record payment event: %w", err)
	}
	if !fresh {
		p.logger.InfoContext(ctx, "duplicate payment event acknowledged",
			logging.String("event_id", event.EventID),
			logging.String(logging.FieldJobID, event.JobID))
		return Outcome{Duplicate: true}, nil
	}

	switch event.Type {
	case EventPaymentSucceeded:
		return p.applySuccess(ctx, event)
	case EventPaymentFailed:
		return p.applyFailure(ctx, event)
	default:
		// Recorded but irrelevant; acknowledge so the provider stops retrying.
		p.logger.WarnContext(ctx, "ignoring unhandled payment event type",
			logging.String("event_type", event.Type),
			logging.String("event_id", event.EventID))
		return Outcome{}, nil
	}
}

func (p *Processor) applySuccess(ctx context.Context, event Event) (Outcome, error) {
	err := p.store.Transition(ctx, event.JobID, queue.StatusUploaded, queue.StatusPaid)
	if err == nil {
		p.logger.InfoContext(ctx, "job paid",
			logging.String(logging.FieldJobID, event.JobID),
			logging.String("event_id", event.EventID))
		return Outcome{Applied: true}, nil
	}
	if errors.Is(err, queue.ErrConflict) {
		// The job moved on already, most likely a second provider attempt
		// racing the first. The ledger has the event; nothing to do.
		p.logger.WarnContext(ctx, "payment event arrived for job not awaiting payment",
			logging.String(logging.FieldJobID, event.JobID), logging.Error(err))
		return Outcome{}, nil
	}
	return Outcome{}, fmt.Errorf("apply payment: %w", err)
}

func (p *Processor) applyFailure(ctx context.Context, event Event) (Outcome, error) {
	// A failed payment leaves the job uploaded so the owner can retry; only
	// the error message records what happened.
	message := fmt.Sprintf("payment failed (event %s)", event.EventID)
	if err := p.store.RecordJobError(ctx, event.JobID, message); err != nil {
		return Outcome{}, fmt.Errorf("record payment failure: %w", err)
	}
	p.logger.InfoContext(ctx, "payment failure recorded",
		logging.String(logging.FieldJobID, event.JobID),
		logging.String("event_id", event.EventID))
	return Outcome{Applied: true}, nil
}

func validateEvent(event Event) error {
	switch {
	case strings.TrimSpace(event.EventID) == "":
		return services.Wrap(services.ErrValidation, "payments", "validate", "event id is required", nil)
	case strings.TrimSpace(event.Type) == "":
		return services.Wrap(services.ErrValidation, "payments", "validate", "event type is required", nil)
	case strings.TrimSpace(event.JobID) == "":
		return services.Wrap(services.ErrValidation, "payments", "validate", "job id is required", nil)
	}
	return nil
}
