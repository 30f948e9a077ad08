package idempotency_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"mixdown/internal/idempotency"
	"mixdown/internal/queue"
	"mixdown/internal/services"
	"mixdown/internal/testsupport"
)

func TestDoRunsOperationOnce(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	guard := idempotency.NewGuard(store, nil)
	ctx := context.Background()

	calls := 0
	op := func(ctx context.Context) ([]byte, error) {
		calls++
		return []byte(`{"job_id":"abc"}`), nil
	}

	first, replayed, err := guard.Do(ctx, "client-key-1", op)
	if err != nil {
		t.Fatalf("first Do: %v", err)
	}
	if replayed {
		t.Fatal("first call reported as replay")
	}

	second, replayed, err := guard.Do(ctx, "client-key-1", op)
	if err != nil {
		t.Fatalf("second Do: %v", err)
	}
	if !replayed {
		t.Fatal("second call not reported as replay")
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("replay differs: %q vs %q", first, second)
	}
	if calls != 1 {
		t.Fatalf("operation ran %d times, want 1", calls)
	}
}

func TestDoEmptyKeyBypassesGuard(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	guard := idempotency.NewGuard(store, nil)
	ctx := context.Background()

	calls := 0
	op := func(ctx context.Context) ([]byte, error) {
		calls++
		return []byte("x"), nil
	}
	for i := 0; i < 3; i++ {
		if _, replayed, err := guard.Do(ctx, "", op); err != nil || replayed {
			t.Fatalf("bypass call %d: replayed=%v err=%v", i, replayed, err)
		}
	}
	if calls != 3 {
		t.Fatalf("operation ran %d times, want 3", calls)
	}
}

func TestDoReleasesKeyOnFailure(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	guard := idempotency.NewGuard(store, nil)
	ctx := context.Background()

	boom := errors.New("downstream unavailable")
	_, _, err := guard.Do(ctx, "key-retry", func(ctx context.Context) ([]byte, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want operation error", err)
	}

	// The failed attempt must not poison the key.
	response, replayed, err := guard.Do(ctx, "key-retry", func(ctx context.Context) ([]byte, error) {
		return []byte("ok"), nil
	})
	if err != nil || replayed {
		t.Fatalf("retry after failure: replayed=%v err=%v", replayed, err)
	}
	if string(response) != "ok" {
		t.Fatalf("response = %q", response)
	}
}

func TestDoTakesOverUnfinishedClaim(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	guard := idempotency.NewGuard(store, nil)
	ctx := context.Background()

	// A processing record with no completion is what a crash mid-operation
	// leaves behind. The next request with the same key must run as new
	// instead of being refused forever.
	if ok, err := store.BeginIdempotent(ctx, "key-stuck"); err != nil || !ok {
		t.Fatalf("seed processing claim: ok=%v err=%v", ok, err)
	}

	calls := 0
	response, replayed, err := guard.Do(ctx, "key-stuck", func(ctx context.Context) ([]byte, error) {
		calls++
		return []byte("recovered"), nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if replayed {
		t.Fatal("takeover reported as replay")
	}
	if calls != 1 {
		t.Fatalf("operation ran %d times, want 1", calls)
	}
	if string(response) != "recovered" {
		t.Fatalf("response = %q", response)
	}

	record, err := store.GetIdempotencyRecord(ctx, "key-stuck")
	if err != nil {
		t.Fatalf("GetIdempotencyRecord: %v", err)
	}
	if record.Status != queue.IdempotencyCompleted {
		t.Fatalf("status = %s, want completed after takeover", record.Status)
	}
}

func TestDoConflictsWhenTakeoverIsLost(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	if ok, err := store.BeginIdempotent(ctx, "key-contended"); err != nil || !ok {
		t.Fatalf("seed processing claim: ok=%v err=%v", ok, err)
	}
	record, err := store.GetIdempotencyRecord(ctx, "key-contended")
	if err != nil {
		t.Fatalf("GetIdempotencyRecord: %v", err)
	}

	// Another request wins the takeover first; the loser's observation is
	// stale and must turn into a retry-later conflict.
	guard := idempotency.NewGuard(&racingStore{Store: store, stale: record.UpdatedAt}, nil)
	_, _, err = guard.Do(ctx, "key-contended", func(ctx context.Context) ([]byte, error) {
		t.Fatal("operation must not run after a lost takeover")
		return nil, nil
	})
	if !errors.Is(err, services.ErrConflict) {
		t.Fatalf("err = %v, want conflict marker", err)
	}
}

// racingStore makes the guard observe a stamp that another taker has already
// replaced, forcing the takeover to lose.
type racingStore struct {
	idempotency.Store
	stale time.Time
}

func (r *racingStore) GetIdempotencyRecord(ctx context.Context, key string) (*queue.IdempotencyRecord, error) {
	record, err := r.Store.GetIdempotencyRecord(ctx, key)
	if err != nil {
		return nil, err
	}
	if taken, err := r.Store.TakeOverIdempotent(ctx, key, record.UpdatedAt); err != nil || !taken {
		return nil, fmt.Errorf("simulate rival takeover: taken=%v err=%v", taken, err)
	}
	record.UpdatedAt = r.stale
	return record, nil
}

func TestSweepFreesOrphanedKeys(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	guard := idempotency.NewGuard(store, nil)
	ctx := context.Background()

	if ok, err := store.BeginIdempotent(ctx, "key-orphan"); err != nil || !ok {
		t.Fatalf("seed claim: ok=%v err=%v", ok, err)
	}
	// A negative max age puts the cutoff in the future, so even the fresh
	// claim counts as orphaned.
	dropped, err := guard.Sweep(ctx, -time.Minute)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if dropped != 1 {
		t.Fatalf("dropped = %d, want 1", dropped)
	}

	response, replayed, err := guard.Do(ctx, "key-orphan", func(ctx context.Context) ([]byte, error) {
		return []byte("fresh"), nil
	})
	if err != nil || replayed || string(response) != "fresh" {
		t.Fatalf("rerun after sweep: %q replayed=%v err=%v", response, replayed, err)
	}
}
