package redis

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeStore struct {
	keys    map[string]bool
	setErr  error
	deleted []string
}

func (f *fakeStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if f.setErr != nil {
		return false, f.setErr
	}
	if f.keys == nil {
		f.keys = map[string]bool{}
	}
	if f.keys[key] {
		return false, nil
	}
	f.keys[key] = true
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "thstore:idempotency:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.keys, key)
		f.deleted = append(f.deleted, key)
	}
	return nil
}

func TestIdempotencyGuard_CheckAndMark(t *testing.T) {
	t.Parallel()

	guard, err := NewIdempotencyGuard(&fakeStore{}, time.Hour, "test")
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}

	seen, err := guard.CheckAndMark(context.Background(), "evt_1")
	if err != nil {
		t.Fatalf("check and mark: %v", err)
	}
	if seen {
		t.Fatal("first mark should not be seen")
	}

	seen, err = guard.CheckAndMark(context.Background(), "evt_1")
	if err != nil {
		t.Fatalf("check and mark: %v", err)
	}
	if !seen {
		t.Fatal("second mark should be seen")
	}
}

func TestIdempotencyGuard_DeleteAllowsRetry(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	guard, err := NewIdempotencyGuard(store, time.Hour, "test")
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}

	if _, err := guard.CheckAndMark(context.Background(), "evt_1"); err != nil {
		t.Fatalf("check and mark: %v", err)
	}
	if err := guard.Delete(context.Background(), "evt_1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	seen, err := guard.CheckAndMark(context.Background(), "evt_1")
	if err != nil {
		t.Fatalf("check and mark after delete: %v", err)
	}
	if seen {
		t.Fatal("mark should be clear after delete")
	}
}

func TestIdempotencyGuard_PropagatesStoreError(t *testing.T) {
	t.Parallel()

	guard, err := NewIdempotencyGuard(&fakeStore{setErr: errors.New("redis down")}, time.Hour, "test")
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}

	if _, err := guard.CheckAndMark(context.Background(), "evt_1"); err == nil {
		t.Fatal("expected store error to propagate")
	}
}

func TestNewIdempotencyGuard_Validation(t *testing.T) {
	t.Parallel()

	if _, err := NewIdempotencyGuard(nil, time.Hour, "test"); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := NewIdempotencyGuard(&fakeStore{}, time.Hour, ""); err == nil {
		t.Fatal("expected error for empty scope")
	}
}
