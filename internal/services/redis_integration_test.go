package services

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/calmsteps-backend/internal/database"
)

// Example: REDIS_TEST_URI="redis://localhost:6379/15"
func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	uri := os.Getenv("REDIS_TEST_URI")
	if uri == "" {
		t.Skip("REDIS_TEST_URI not set, skipping Redis integration test")
	}
	rdb, err := database.ConnectRedis(context.Background(), uri)
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestRedisSessionLifecycle(t *testing.T) {
	rdb := setupRedis(t)
	store := NewSessionStore(rdb)
	ctx := context.Background()
	user := uuid.New()
	t.Cleanup(func() { store.InvalidateUser(ctx, user) })

	first, err := store.Create(ctx, user)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, ok, err := store.Validate(ctx, first)
	if err != nil || !ok || got != user {
		t.Fatalf("validate = %v %v %v", got, ok, err)
	}
	if err := store.Refresh(ctx, first); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	// Signing in again replaces the previous token.
	second, err := store.Create(ctx, user)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if _, ok, _ := store.Validate(ctx, first); ok {
		t.Error("old token still valid after new sign-in")
	}

	if err := store.Invalidate(ctx, second); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok, _ := store.Validate(ctx, second); ok {
		t.Error("token valid after sign-out")
	}
	if err := store.Refresh(ctx, second); err == nil {
		t.Error("refresh of a signed-out token should fail")
	}
}

func TestRedisEventLedgerClaimOnce(t *testing.T) {
	rdb := setupRedis(t)
	ledger := NewEventLedger(rdb)
	ctx := context.Background()
	key := "test:" + uuid.NewString()
	t.Cleanup(func() { ledger.Release(ctx, key) })

	if ok, err := ledger.Claim(ctx, key); err != nil || !ok {
		t.Fatalf("first claim = %v %v", ok, err)
	}
	if ok, _ := ledger.Claim(ctx, key); ok {
		t.Fatal("second claim should fail")
	}
	if err := ledger.Release(ctx, key); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := ledger.Claim(ctx, key); !ok {
		t.Fatal("claim after release should succeed")
	}
}
