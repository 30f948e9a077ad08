package payments_test

import (
	"context"
	"testing"

	"mixdown/internal/payments"
	"mixdown/internal/queue"
	"mixdown/internal/testsupport"
)

func TestHandleEventPaysJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, "owner-1", "standard")
	processor := payments.NewProcessor(store, nil)
	ctx := context.Background()

	outcome, err := processor.HandleEvent(ctx, payments.Event{
		EventID: "evt-1", Type: payments.EventPaymentSucceeded, JobID: job.ID,
	})
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if !outcome.Applied || outcome.Duplicate {
		t.Fatalf("outcome = %+v, want applied", outcome)
	}

	updated, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != queue.StatusPaid {
		t.Fatalf("status = %s, want paid", updated.Status)
	}
}

func TestHandleEventDeduplicatesRedelivery(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, "owner-1", "standard")
	processor := payments.NewProcessor(store, nil)
	ctx := context.Background()

	event := payments.Event{EventID: "evt-dup", Type: payments.EventPaymentSucceeded, JobID: job.ID}
	if _, err := processor.HandleEvent(ctx, event); err != nil {
		t.Fatalf("first delivery: %v", err)
	}

	outcome, err := processor.HandleEvent(ctx, event)
	if err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if !outcome.Duplicate || outcome.Applied {
		t.Fatalf("outcome = %+v, want duplicate no-op", outcome)
	}
}

func TestHandleEventFailureLeavesStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewJob(t, store, "owner-1", "lite")
	processor := payments.NewProcessor(store, nil)
	ctx := context.Background()

	outcome, err := processor.HandleEvent(ctx, payments.Event{
		EventID: "evt-fail", Type: payments.EventPaymentFailed, JobID: job.ID,
	})
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if !outcome.Applied {
		t.Fatalf("outcome = %+v, want applied", outcome)
	}

	updated, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != queue.StatusUploaded {
		t.Fatalf("status = %s, want uploaded", updated.Status)
	}
	if updated.ErrorMessage == "" {
		t.Fatal("payment failure left no error message")
	}
}

func TestHandleEventSuccessOnAdvancedJobIsNoop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	job := testsupport.NewPaidJob(t, store, "owner-1", "standard")
	processor := payments.NewProcessor(store, nil)
	ctx := context.Background()

	outcome, err := processor.HandleEvent(ctx, payments.Event{
		EventID: "evt-late", Type: payments.EventPaymentSucceeded, JobID: job.ID,
	})
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if outcome.Applied || outcome.Duplicate {
		t.Fatalf("outcome = %+v, want silent acknowledgement", outcome)
	}
}

func TestHandleEventValidation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	processor := payments.NewProcessor(store, nil)

	if _, err := processor.HandleEvent(context.Background(), payments.Event{}); err == nil {
		t.Fatal("empty event accepted")
	}
}
