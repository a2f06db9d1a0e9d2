package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrFillCachesValue(t *testing.T) {
	c := New[string, int](time.Minute)
	calls := 0
	load := func(ctx context.Context) (int, error) {
		calls++
		return 42, nil
	}

	v, err := c.GetOrFill(context.Background(), "k", load)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	v, err = c.GetOrFill(context.Background(), "k", load)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)
}

func TestGetOrFillExpiry(t *testing.T) {
	now := time.Now()
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	c := New(time.Minute, withClock[string, int](clock))

	calls := 0
	load := func(ctx context.Context) (int, error) {
		calls++
		return calls, nil
	}

	v, err := c.GetOrFill(context.Background(), "k", load)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()

	v, err = c.GetOrFill(context.Background(), "k", load)
	require.NoError(t, err)
	assert.Equal(t, 2, v, "expired entry must be reloaded")
}

func TestGetOrFillDeduplicatesConcurrentLoads(t *testing.T) {
	c := New[string, int](time.Minute)

	var calls atomic.Int32
	release := make(chan struct{})
	load := func(ctx context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 7, nil
	}

	const n = 16
	var wg sync.WaitGroup
	results := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrFill(context.Background(), "k", load)
			require.NoError(t, err)
			results[i] = v
		}(i)
	}

	// Let every goroutine reach the wait before releasing the leader.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, v := range results {
		assert.Equal(t, 7, v)
	}
}

func TestGetOrFillFailureDoesNotPoison(t *testing.T) {
	c := New[string, int](time.Minute)

	boom := errors.New("boom")
	fail := func(ctx context.Context) (int, error) { return 0, boom }
	_, err := c.GetOrFill(context.Background(), "k", fail)
	require.ErrorIs(t, err, boom)

	v, err := c.GetOrFill(context.Background(), "k", func(ctx context.Context) (int, error) {
		return 9, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 9, v)
}

func TestWaitersRetryAfterLeaderFailure(t *testing.T) {
	c := New[string, int](time.Minute)

	boom := errors.New("boom")
	release := make(chan struct{})
	var calls atomic.Int32
	load := func(ctx context.Context) (int, error) {
		n := calls.Add(1)
		if n == 1 {
			<-release
			return 0, boom
		}
		return 11, nil
	}

	errs := make(chan error, 1)
	go func() {
		_, err := c.GetOrFill(context.Background(), "k", load)
		errs <- err
	}()
	time.Sleep(20 * time.Millisecond)

	done := make(chan int, 1)
	go func() {
		v, err := c.GetOrFill(context.Background(), "k", load)
		require.NoError(t, err)
		done <- v
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)

	require.ErrorIs(t, <-errs, boom)
	assert.Equal(t, 11, <-done, "waiter must re-run the load after the leader failed")
}

func TestGetOrFillContextCancelledWhileWaiting(t *testing.T) {
	c := New[string, int](time.Minute)

	release := make(chan struct{})
	go func() {
		_, _ = c.GetOrFill(context.Background(), "k", func(ctx context.Context) (int, error) {
			<-release
			return 1, nil
		})
	}()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.GetOrFill(ctx, "k", func(ctx context.Context) (int, error) { return 2, nil })
	require.ErrorIs(t, err, context.Canceled)
	close(release)
}

func TestSharedMapCoordinatesCaches(t *testing.T) {
	m := NewMap[string, int]()
	a := New(time.Minute, WithMap(m))
	b := New(time.Minute, WithMap(m))

	calls := 0
	load := func(ctx context.Context) (int, error) {
		calls++
		return 5, nil
	}

	_, err := a.GetOrFill(context.Background(), "k", load)
	require.NoError(t, err)
	v, err := b.GetOrFill(context.Background(), "k", load)
	require.NoError(t, err)
	assert.Equal(t, 5, v)
	assert.Equal(t, 1, calls, "caches sharing a map must share entries")
}

func TestForget(t *testing.T) {
	c := New[string, int](time.Minute)
	_, err := c.GetOrFill(context.Background(), "k", func(ctx context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)

	c.Forget("k")

	v, err := c.GetOrFill(context.Background(), "k", func(ctx context.Context) (int, error) { return 2, nil })
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}
