package catalog

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

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestCache(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)}
	var loads atomic.Int32
	load := func(ctx context.Context) (Snapshot, error) {
		n := loads.Add(1)
		meal := "lunch"
		if n > 1 {
			meal = "dinner"
		}
		return Snapshot{Meal: meal, Catalog: Catalog{"North": {"Grill": {{Name: "Burger"}}}}}, nil
	}

	c := NewCache(load, 0, clock.Now)
	ctx := context.Background()

	meal, cat, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "lunch", meal)
	assert.Equal(t, 1, cat.Len())

	clock.Advance(DefaultTTL - time.Second)
	meal, _, err = c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "lunch", meal)
	assert.EqualValues(t, 1, loads.Load())

	clock.Advance(time.Second)
	meal, _, err = c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "dinner", meal)
	assert.EqualValues(t, 2, loads.Load())

	c.Invalidate()
	_, _, err = c.Get(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, loads.Load())
}

func TestCacheError(t *testing.T) {
	boom := errors.New("upstream down")
	c := NewCache(func(ctx context.Context) (Snapshot, error) { return Snapshot{}, boom }, time.Minute, nil)
	_, _, err := c.Get(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestCacheSharesConcurrentLoads(t *testing.T) {
	var loads atomic.Int32
	release := make(chan struct{})
	c := NewCache(func(ctx context.Context) (Snapshot, error) {
		loads.Add(1)
		<-release
		return Snapshot{Meal: "lunch", Catalog: Catalog{"North": {}}}, nil
	}, time.Minute, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			meal, _, err := c.Get(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, "lunch", meal)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, loads.Load())
}

func TestCacheLoadSurvivesCanceledCaller(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var loadErr atomic.Value
	var loads atomic.Int32
	c := NewCache(func(ctx context.Context) (Snapshot, error) {
		loads.Add(1)
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			loadErr.Store(err)
			return Snapshot{}, err
		}
		return Snapshot{Meal: "dinner", Catalog: Catalog{"North": {}}}, nil
	}, time.Minute, nil)

	firstCtx, cancel := context.WithCancel(context.Background())
	firstDone := make(chan error, 1)
	go func() {
		_, err := c.Snapshot(firstCtx)
		firstDone <- err
	}()
	<-started

	secondDone := make(chan error, 1)
	var second Snapshot
	go func() {
		var err error
		second, err = c.Snapshot(context.Background())
		secondDone <- err
	}()

	cancel()
	assert.ErrorIs(t, <-firstDone, context.Canceled)

	close(release)
	require.NoError(t, <-secondDone)
	assert.Equal(t, "dinner", second.Meal)
	assert.Nil(t, loadErr.Load(), "load saw the first caller's cancellation")
	assert.EqualValues(t, 1, loads.Load())

	s, err := c.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "dinner", s.Meal)
	assert.EqualValues(t, 1, loads.Load())
}

func TestCacheCanceledCallerStopsWaiting(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	c := NewCache(func(ctx context.Context) (Snapshot, error) {
		<-release
		return Snapshot{}, nil
	}, time.Minute, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := c.Snapshot(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
