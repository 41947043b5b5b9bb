// Package ratelimit implements fixed-window counters shared by the HTTP
// middleware and the websocket intent dispatcher.
package ratelimit

import (
	"context"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Count     int64
	Remaining int64
}

// Limiter counts hits per key inside a fixed window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error)
}

func decide(count int64, limit int) Decision {
	remaining := int64(limit) - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: count <= int64(limit), Count: count, Remaining: remaining}
}

// RedisLimiter uses INCR/EXPIRE so limits hold across restarts.
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

// NewRedisLimiter connects and pings Redis. Callers fall back to a
// MemoryLimiter when this fails.
func NewRedisLimiter(addr, password string, db int) (*RedisLimiter, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &RedisLimiter{client: client, prefix: "rl:"}, nil
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error) {
	k := l.prefix + key
	val, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return Decision{}, err
	}
	if val == 1 {
		// first hit opens the window
		if err := l.client.Expire(ctx, k, window).Err(); err != nil {
			return Decision{}, err
		}
	}
	return decide(val, limit), nil
}

func (l *RedisLimiter) Close() error {
	return l.client.Close()
}

type memWindow struct {
	start time.Time
	count int64
}

// MemoryLimiter keeps windows in process memory.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*memWindow
	now     func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*memWindow),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= window {
		w = &memWindow{start: now}
		l.windows[key] = w
	}
	w.count++
	return decide(w.count, limit), nil
}

// Sweep forgets windows older than maxAge.
func (l *MemoryLimiter) Sweep(maxAge time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for k, w := range l.windows {
		if now.Sub(w.start) >= maxAge {
			delete(l.windows, k)
		}
	}
}
