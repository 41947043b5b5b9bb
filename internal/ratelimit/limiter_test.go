package ratelimit

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"
)

func TestMemoryLimiterWindow(t *testing.T) {
	l := NewMemoryLimiter()
	now := time.Unix(1000, 0)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		d, err := l.Allow(ctx, "u1", 3, time.Minute)
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !d.Allowed {
			t.Fatalf("hit %d blocked; want allowed", i)
		}
		if d.Remaining != int64(3-i) {
			t.Fatalf("hit %d remaining = %d; want %d", i, d.Remaining, 3-i)
		}
	}

	d, _ := l.Allow(ctx, "u1", 3, time.Minute)
	if d.Allowed {
		t.Fatalf("4th hit allowed; want blocked")
	}

	// other keys are independent
	if d, _ := l.Allow(ctx, "u2", 3, time.Minute); !d.Allowed {
		t.Fatalf("u2 blocked by u1's window")
	}

	now = now.Add(time.Minute)
	if d, _ := l.Allow(ctx, "u1", 3, time.Minute); !d.Allowed || d.Count != 1 {
		t.Fatalf("new window: allowed=%v count=%d; want true,1", d.Allowed, d.Count)
	}
}

func TestMemoryLimiterSweep(t *testing.T) {
	l := NewMemoryLimiter()
	now := time.Unix(1000, 0)
	l.now = func() time.Time { return now }

	_, _ = l.Allow(context.Background(), "a", 1, time.Second)
	now = now.Add(time.Hour)
	l.Sweep(time.Minute)

	if len(l.windows) != 0 {
		t.Fatalf("windows after sweep = %d; want 0", len(l.windows))
	}
}

// Integration-style test: runs only if REDIS_ADDR env is set.
func TestRedisLimiterIntegration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set; skipping integration test")
	}
	db := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			db = n
		}
	}

	l, err := NewRedisLimiter(addr, os.Getenv("REDIS_PASSWORD"), db)
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	defer l.Close()

	key := "test:" + strconv.FormatInt(time.Now().UnixNano(), 10)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		d, err := l.Allow(ctx, key, 2, 2*time.Second)
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !d.Allowed {
			t.Fatalf("hit %d blocked", i+1)
		}
	}
	d, err := l.Allow(ctx, key, 2, 2*time.Second)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if d.Allowed {
		t.Fatalf("3rd hit allowed; want blocked")
	}
}
