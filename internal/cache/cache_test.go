package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"adminbot/pkg/logger"
)

func TestConcurrentFetchesDeduplicated(t *testing.T) {
	c := New(time.Minute, logger.New("cache-test", "error"))

	var calls int32
	fetch := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(50 * time.Millisecond)
		return "value", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			value, err := c.GetOrFetch(context.Background(), "key", fetch)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if value != "value" {
				t.Errorf("unexpected value %v", value)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected a single in-flight fetch, got %d", got)
	}
}

func TestInvalidateForcesRefetch(t *testing.T) {
	c := New(time.Minute, logger.New("cache-test", "error"))

	var calls int32
	fetch := func(ctx context.Context) (interface{}, error) {
		return atomic.AddInt32(&calls, 1), nil
	}

	first, _ := c.GetOrFetch(context.Background(), "key", fetch)
	second, _ := c.GetOrFetch(context.Background(), "key", fetch)
	if first != second {
		t.Fatalf("expected cached value, got %v then %v", first, second)
	}

	c.Invalidate("key")

	third, _ := c.GetOrFetch(context.Background(), "key", fetch)
	if third == first {
		t.Fatal("expected a refetch after invalidation")
	}
}

func TestStaleHitServesCachedAndRefreshesInBackground(t *testing.T) {
	c := New(10*time.Millisecond, logger.New("cache-test", "error"))

	var calls int32
	fetch := func(ctx context.Context) (interface{}, error) {
		return atomic.AddInt32(&calls, 1), nil
	}

	first, _ := c.GetOrFetch(context.Background(), "key", fetch)
	if first != int32(1) {
		t.Fatalf("expected first fetch, got %v", first)
	}

	time.Sleep(20 * time.Millisecond)

	// Past the staleness window the cached value still comes back
	// immediately; the refresh happens off to the side.
	stale, _ := c.GetOrFetch(context.Background(), "key", fetch)
	if stale != int32(1) {
		t.Fatalf("expected stale value to be served, got %v", stale)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if atomic.LoadInt32(&calls) >= 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if atomic.LoadInt32(&calls) < 2 {
		t.Fatal("background refresh never ran")
	}
}

func TestSetSeedsKey(t *testing.T) {
	c := New(time.Minute, logger.New("cache-test", "error"))
	c.Set("key", "seeded")

	value, err := c.GetOrFetch(context.Background(), "key", func(ctx context.Context) (interface{}, error) {
		t.Fatal("fetch must not run for a seeded key")
		return nil, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != "seeded" {
		t.Fatalf("unexpected value %v", value)
	}
}

func TestClearDropsEverything(t *testing.T) {
	c := New(time.Minute, logger.New("cache-test", "error"))
	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()

	var calls int32
	fetch := func(ctx context.Context) (interface{}, error) {
		return atomic.AddInt32(&calls, 1), nil
	}
	c.GetOrFetch(context.Background(), "a", fetch)
	c.GetOrFetch(context.Background(), "b", fetch)
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected both keys refetched, got %d calls", calls)
	}
}
