package artifacts

import (
	"context"
	"errors"
	"testing"
	"time"

	"mixdown/internal/queue"
	"mixdown/internal/services"
	"mixdown/internal/testsupport"
)

func newTestManager(t *testing.T) (*Manager, *queue.Store, *time.Time) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	manager := NewManager(store, cfg, nil)
	now := time.Now()
	manager.now = func() time.Time { return now }
	return manager, store, &now
}

func TestEnsurePrepStartsRegeneration(t *testing.T) {
	manager, store, _ := newTestManager(t)
	job := testsupport.NewJob(t, store, "owner-1", "creator")
	ctx := context.Background()

	result, err := manager.EnsurePrep(ctx, job.ID)
	if err != nil {
		t.Fatalf("EnsurePrep: %v", err)
	}
	if result.Ready {
		t.Fatal("fresh job reported a ready prep artifact")
	}
	if result.RetryAfter <= 0 {
		t.Fatalf("retry after = %v, want positive", result.RetryAfter)
	}

	updated, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != queue.StatusPrepping {
		t.Fatalf("status = %s, want prepping", updated.Status)
	}

	// A second check while the worker owns the job must not double-park it.
	again, err := manager.EnsurePrep(ctx, job.ID)
	if err != nil {
		t.Fatalf("EnsurePrep while prepping: %v", err)
	}
	if again.Ready || again.RetryAfter <= 0 {
		t.Fatalf("in-flight check = %+v, want retry-after", again)
	}
}

func TestEnsurePrepServesValidArtifact(t *testing.T) {
	manager, store, _ := newTestManager(t)
	job := testsupport.NewJob(t, store, "owner-1", "creator")
	ctx := context.Background()

	if _, err := manager.EnsurePrep(ctx, job.ID); err != nil {
		t.Fatal(err)
	}
	saved, err := manager.SavePrep(ctx, job.ID, "artifacts/prep.wav", 42, "{}")
	if err != nil {
		t.Fatalf("SavePrep: %v", err)
	}

	result, err := manager.EnsurePrep(ctx, job.ID)
	if err != nil {
		t.Fatalf("EnsurePrep: %v", err)
	}
	if !result.Ready || result.Artifact == nil || result.Artifact.ID != saved.ID {
		t.Fatalf("result = %+v, want ready artifact %s", result, saved.ID)
	}

	updated, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != queue.StatusPrepReady || updated.OffsetMS != 42 {
		t.Fatalf("job = %s offset %d, want prep_ready offset 42", updated.Status, updated.OffsetMS)
	}
}

func TestEnsurePrepRegeneratesExpiredWithLaterExpiry(t *testing.T) {
	manager, store, now := newTestManager(t)
	job := testsupport.NewJob(t, store, "owner-1", "creator")
	ctx := context.Background()

	if _, err := manager.EnsurePrep(ctx, job.ID); err != nil {
		t.Fatal(err)
	}
	first, err := manager.SavePrep(ctx, job.ID, "artifacts/prep-1.wav", 10, "{}")
	if err != nil {
		t.Fatalf("first SavePrep: %v", err)
	}

	*now = first.ExpiresAt.Add(time.Second)

	result, err := manager.EnsurePrep(ctx, job.ID)
	if err != nil {
		t.Fatalf("EnsurePrep after expiry: %v", err)
	}
	if result.Ready {
		t.Fatal("expired artifact served as ready")
	}

	second, err := manager.SavePrep(ctx, job.ID, "artifacts/prep-2.wav", 10, "{}")
	if err != nil {
		t.Fatalf("second SavePrep: %v", err)
	}
	if !second.ExpiresAt.After(first.ExpiresAt) {
		t.Fatalf("regenerated expiry %v not after replaced expiry %v", second.ExpiresAt, first.ExpiresAt)
	}
}

func TestEnsureAIOkRequiresUsablePrep(t *testing.T) {
	manager, store, _ := newTestManager(t)
	job := testsupport.NewJob(t, store, "owner-1", "creator")
	ctx := context.Background()

	_, err := manager.EnsureAIOk(ctx, job.ID)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v, want validation marker", err)
	}

	if updated, _ := store.GetJob(ctx, job.ID); updated.Status != queue.StatusUploaded {
		t.Fatalf("failed fast-path still moved the job to %s", updated.Status)
	}
}

func TestEnsureAIOkLifecycle(t *testing.T) {
	manager, store, _ := newTestManager(t)
	job := testsupport.NewJob(t, store, "owner-1", "creator")
	ctx := context.Background()

	if _, err := manager.EnsurePrep(ctx, job.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := manager.SavePrep(ctx, job.ID, "artifacts/prep.wav", 0, "{}"); err != nil {
		t.Fatal(err)
	}

	result, err := manager.EnsureAIOk(ctx, job.ID)
	if err != nil {
		t.Fatalf("EnsureAIOk: %v", err)
	}
	if result.Ready || result.RetryAfter <= 0 {
		t.Fatalf("result = %+v, want regeneration started", result)
	}
	if updated, _ := store.GetJob(ctx, job.ID); updated.Status != queue.StatusAIMixing {
		t.Fatalf("status = %s, want ai_mixing", updated.Status)
	}

	saved, err := manager.SaveAIOk(ctx, job.ID, "artifacts/aimix.mp3", "wide_pop", "{}")
	if err != nil {
		t.Fatalf("SaveAIOk: %v", err)
	}
	ready, err := manager.EnsureAIOk(ctx, job.ID)
	if err != nil {
		t.Fatalf("EnsureAIOk after save: %v", err)
	}
	if !ready.Ready || ready.Artifact.ID != saved.ID {
		t.Fatalf("result = %+v, want ready artifact %s", ready, saved.ID)
	}

	updated, _ := store.GetJob(ctx, job.ID)
	if updated.Status != queue.StatusAIOk || updated.PresetKey != "wide_pop" {
		t.Fatalf("job = %s preset %q, want ai_ok with wide_pop", updated.Status, updated.PresetKey)
	}
}

func TestEnsurePrepRefusesTerminalJob(t *testing.T) {
	manager, store, _ := newTestManager(t)
	job := testsupport.NewJob(t, store, "owner-1", "lite")
	ctx := context.Background()

	if err := store.MarkFailed(ctx, job.ID, queue.StatusUploaded, "validation failed"); err != nil {
		t.Fatal(err)
	}
	if _, err := manager.EnsurePrep(ctx, job.ID); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("err = %v, want conflict marker", err)
	}
}
