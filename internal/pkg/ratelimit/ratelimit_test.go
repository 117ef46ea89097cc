package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	srv := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: srv.Addr()})
}

func TestMemoryLimiterEnforcesLimit(t *testing.T) {
	l := NewMemoryLimiter(5, time.Hour)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ok, err := l.Allow(ctx, "1.2.3.4")
		if err != nil {
			t.Fatalf("Allow %d: %v", i, err)
		}
		if !ok {
			t.Fatalf("request %d denied, limit is 5", i+1)
		}
	}

	ok, err := l.Allow(ctx, "1.2.3.4")
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if ok {
		t.Fatal("sixth request allowed, want denied")
	}
}

func TestMemoryLimiterKeysAreIndependent(t *testing.T) {
	l := NewMemoryLimiter(1, time.Hour)
	ctx := context.Background()

	if ok, _ := l.Allow(ctx, "1.2.3.4"); !ok {
		t.Fatal("first key denied")
	}
	if ok, _ := l.Allow(ctx, "5.6.7.8"); !ok {
		t.Fatal("second key denied, limits must be per key")
	}
	if ok, _ := l.Allow(ctx, "1.2.3.4"); ok {
		t.Fatal("first key allowed past its limit")
	}
}

func TestMemoryLimiterWindowSlides(t *testing.T) {
	l := NewMemoryLimiter(1, 20*time.Millisecond)
	ctx := context.Background()

	if ok, _ := l.Allow(ctx, "1.2.3.4"); !ok {
		t.Fatal("first request denied")
	}
	if ok, _ := l.Allow(ctx, "1.2.3.4"); ok {
		t.Fatal("second request inside the window allowed")
	}

	time.Sleep(30 * time.Millisecond)

	if ok, _ := l.Allow(ctx, "1.2.3.4"); !ok {
		t.Fatal("request denied after the window expired")
	}
}

func TestDeniedCallRecordsNothing(t *testing.T) {
	l := NewMemoryLimiter(1, 50*time.Millisecond)
	ctx := context.Background()

	l.Allow(ctx, "1.2.3.4")

	// Hammering while denied must not extend the window
	for i := 0; i < 10; i++ {
		if ok, _ := l.Allow(ctx, "1.2.3.4"); ok {
			t.Fatal("denied window allowed a request")
		}
		time.Sleep(3 * time.Millisecond)
	}

	time.Sleep(40 * time.Millisecond)

	if ok, _ := l.Allow(ctx, "1.2.3.4"); !ok {
		t.Fatal("window was extended by denied requests")
	}
}

func TestNewWithoutRedisFallsBack(t *testing.T) {
	l := New(nil, 5, time.Hour)
	if _, ok := l.(*MemoryLimiter); !ok {
		t.Fatalf("New(nil, ...) = %T, want *MemoryLimiter", l)
	}
}

func TestRedisLimiterEnforcesLimit(t *testing.T) {
	l := NewRedisLimiter(newTestRedis(t), 5, time.Hour)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ok, err := l.Allow(ctx, "1.2.3.4")
		if err != nil {
			t.Fatalf("Allow %d: %v", i, err)
		}
		if !ok {
			t.Fatalf("request %d denied, limit is 5", i+1)
		}
	}

	ok, err := l.Allow(ctx, "1.2.3.4")
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if ok {
		t.Fatal("sixth request allowed, want denied")
	}

	// A second key is unaffected
	if ok, _ := l.Allow(ctx, "5.6.7.8"); !ok {
		t.Fatal("second key denied, limits must be per key")
	}
}

func TestRedisLimiterDeniedCallRecordsNothing(t *testing.T) {
	client := newTestRedis(t)
	l := NewRedisLimiter(client, 2, time.Hour)
	ctx := context.Background()

	l.Allow(ctx, "1.2.3.4")
	l.Allow(ctx, "1.2.3.4")
	for i := 0; i < 5; i++ {
		if ok, _ := l.Allow(ctx, "1.2.3.4"); ok {
			t.Fatal("request over the limit allowed")
		}
	}

	n, err := client.ZCard(ctx, "ratelimit:create:1.2.3.4").Result()
	if err != nil {
		t.Fatalf("ZCard: %v", err)
	}
	if n != 2 {
		t.Fatalf("window holds %d entries after denials, want 2", n)
	}
}

func TestRedisLimiterConcurrentBoundary(t *testing.T) {
	l := NewRedisLimiter(newTestRedis(t), 5, time.Hour)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if ok, err := l.Allow(ctx, "1.2.3.4"); err != nil || !ok {
			t.Fatalf("setup Allow %d: ok=%v err=%v", i, ok, err)
		}
	}

	// One slot left; concurrent racers must not oversubscribe it
	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := l.Allow(ctx, "1.2.3.4")
			if err != nil {
				t.Errorf("Allow: %v", err)
				return
			}
			if ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := allowed.Load(); got != 1 {
		t.Fatalf("%d concurrent requests won the last slot, want exactly 1", got)
	}
}
