package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupRedisChallenges(t *testing.T) (*RedisChallenges, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisChallenges(client), mr
}

func TestRedisChallengesRoundtrip(t *testing.T) {
	store, _ := setupRedisChallenges(t)
	ctx := context.Background()

	ch := Challenge{Phone: "+21698765432", Code: "123456"}
	if err := store.Put(ctx, "handle-1", ch, time.Minute); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := store.Get(ctx, "handle-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != ch {
		t.Fatalf("expected %+v, got %+v", ch, got)
	}

	if err := store.Delete(ctx, "handle-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "handle-1"); !errors.Is(err, errChallengeNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestRedisChallengesExpiry(t *testing.T) {
	store, mr := setupRedisChallenges(t)
	ctx := context.Background()

	if err := store.Put(ctx, "handle-1", Challenge{Phone: "+21698765432", Code: "123456"}, time.Minute); err != nil {
		t.Fatalf("put: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := store.Get(ctx, "handle-1"); !errors.Is(err, errChallengeNotFound) {
		t.Fatalf("expected expired challenge to be gone, got %v", err)
	}
}

func TestRedisChallengesUnknownHandle(t *testing.T) {
	store, _ := setupRedisChallenges(t)

	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, errChallengeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
