package redis

import (
	"context"
	"testing"
	"time"
)

func TestGuardCheckAndMark(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	guard, err := NewGuard(&Client{store: mock}, time.Hour, "payment:order")
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}

	dup, err := guard.CheckAndMark(ctx, "val-1")
	if err != nil || dup {
		t.Fatalf("first mark should not be a duplicate: dup=%v err=%v", dup, err)
	}
	if mock.ttls["pb:idempotency:payment:order:val-1"] != time.Hour {
		t.Fatalf("expected ttl to be applied")
	}
	if dup, _ := guard.CheckAndMark(ctx, "val-1"); !dup {
		t.Fatalf("second mark should be a duplicate")
	}

	if err := guard.Delete(ctx, "val-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if dup, _ := guard.CheckAndMark(ctx, "val-1"); dup {
		t.Fatalf("deleted id should be processed again")
	}
}

func TestNewGuardValidation(t *testing.T) {
	if _, err := NewGuard(nil, time.Hour, "s"); err == nil {
		t.Fatalf("expected store error")
	}
	if _, err := NewGuard(&Client{}, -time.Second, "s"); err == nil {
		t.Fatalf("expected ttl error")
	}
	if _, err := NewGuard(&Client{}, time.Hour, ""); err == nil {
		t.Fatalf("expected scope error")
	}
	guard, _ := NewGuard(&Client{store: newMockCmdable()}, 0, "s")
	if _, err := guard.CheckAndMark(context.Background(), ""); err == nil {
		t.Fatalf("expected id error")
	}
}
