package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemoryCache_RememberProducesOnce(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	calls := 0
	producer := func(context.Context) (string, error) {
		calls++
		return "25", nil
	}

	for i := 0; i < 3; i++ {
		val, err := c.Remember(ctx, "tenant:action:email_click", time.Hour, producer)
		if err != nil {
			t.Fatalf("Remember returned error: %v", err)
		}
		if val != "25" {
			t.Fatalf("expected cached value 25, got %q", val)
		}
	}

	if calls != 1 {
		t.Fatalf("expected producer to run once, ran %d times", calls)
	}
}

func TestMemoryCache_ExpiredEntryReproduced(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	current := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c.SetClock(func() time.Time { return current })

	calls := 0
	producer := func(context.Context) (string, error) {
		calls++
		return "10", nil
	}

	if _, err := c.Remember(ctx, "k", time.Hour, producer); err != nil {
		t.Fatalf("Remember returned error: %v", err)
	}

	current = current.Add(61 * time.Minute)

	if _, err := c.Remember(ctx, "k", time.Hour, producer); err != nil {
		t.Fatalf("Remember returned error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected producer to run again after expiry, ran %d times", calls)
	}
}

func TestMemoryCache_ProducerErrorNotCached(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	boom := errors.New("config store down")
	if _, err := c.Remember(ctx, "k", time.Hour, func(context.Context) (string, error) {
		return "", boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected producer error, got %v", err)
	}

	val, err := c.Remember(ctx, "k", time.Hour, func(context.Context) (string, error) {
		return "ok", nil
	})
	if err != nil || val != "ok" {
		t.Fatalf("expected retry to succeed, got %q, %v", val, err)
	}
}

func TestRedisCache_RememberAndForget(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewRedisCacheFromClient(client)
	ctx := context.Background()

	calls := 0
	producer := func(context.Context) (string, error) {
		calls++
		return "15", nil
	}

	val, err := c.Remember(ctx, "scoring:t1:campaign_view", time.Hour, producer)
	if err != nil || val != "15" {
		t.Fatalf("expected 15, got %q, %v", val, err)
	}

	val, err = c.Remember(ctx, "scoring:t1:campaign_view", time.Hour, producer)
	if err != nil || val != "15" {
		t.Fatalf("expected cached 15, got %q, %v", val, err)
	}
	if calls != 1 {
		t.Fatalf("expected single producer call, got %d", calls)
	}

	if err := c.Forget(ctx, "scoring:t1:campaign_view"); err != nil {
		t.Fatalf("Forget returned error: %v", err)
	}

	if _, err := c.Remember(ctx, "scoring:t1:campaign_view", time.Hour, producer); err != nil {
		t.Fatalf("Remember returned error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected producer to run after Forget, got %d calls", calls)
	}
}

func TestRedisCache_TTLSet(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewRedisCacheFromClient(client)

	_, err := c.Remember(context.Background(), "k", time.Hour, func(context.Context) (string, error) {
		return "v", nil
	})
	if err != nil {
		t.Fatalf("Remember returned error: %v", err)
	}

	mr.FastForward(2 * time.Hour)
	if mr.Exists("k") {
		t.Fatal("expected key to expire after TTL")
	}
}
