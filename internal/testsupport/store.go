package testsupport

import (
	"context"
	"testing"

	"mixdown/internal/config"
	"mixdown/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewJob creates an uploaded job for tests using the provided store.
func NewJob(t testing.TB, store *queue.Store, ownerID, planCode string) *queue.Job {
	t.Helper()

	job, err := store.CreateJob(context.Background(), queue.NewJobParams{
		OwnerID:          ownerID,
		PlanCode:         planCode,
		InstrumentalPath: "stems/" + ownerID + "/inst.wav",
		VocalPath:        "stems/" + ownerID + "/vocal.wav",
	})
	if err != nil {
		t.Fatalf("store.CreateJob: %v", err)
	}
	return job
}

// NewPaidJob creates a job already transitioned to paid.
func NewPaidJob(t testing.TB, store *queue.Store, ownerID, planCode string) *queue.Job {
	t.Helper()

	job := NewJob(t, store, ownerID, planCode)
	if err := store.Transition(context.Background(), job.ID, queue.StatusUploaded, queue.StatusPaid); err != nil {
		t.Fatalf("transition to paid: %v", err)
	}
	refreshed, err := store.GetJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	return refreshed
}
