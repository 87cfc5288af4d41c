package client

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

func counter(calls *atomic.Int32, value any) func(context.Context) (any, error) {
	return func(context.Context) (any, error) {
		calls.Add(1)
		return value, nil
	}
}

func TestQueryCacheFetch(t *testing.T) {
	q := NewQueryCache()
	var calls atomic.Int32
	ctx := context.Background()

	v, err := q.Fetch(ctx, "folders", counter(&calls, "first"))
	require.NoError(t, err)
	assert.Equal(t, "first", v)

	v, err = q.Fetch(ctx, "folders", counter(&calls, "second"))
	require.NoError(t, err)
	assert.Equal(t, "first", v, "fresh entries are served from cache")
	assert.EqualValues(t, 1, calls.Load())

	q.Invalidate("folders")
	assert.True(t, q.IsStale("folders"))
	stale, ok := q.GetData("folders")
	require.True(t, ok)
	assert.Equal(t, "first", stale, "stale data stays readable")

	v, err = q.Fetch(ctx, "folders", counter(&calls, "second"))
	require.NoError(t, err)
	assert.Equal(t, "second", v)
	assert.EqualValues(t, 2, calls.Load())
}

func TestQueryCacheFetchError(t *testing.T) {
	q := NewQueryCache()
	boom := errors.New("boom")

	_, err := q.Fetch(context.Background(), "k", func(context.Context) (any, error) { return nil, boom })

	assert.ErrorIs(t, err, boom)
	_, ok := q.GetData("k")
	assert.False(t, ok)
}

func TestQueryCacheDedupesConcurrentFetches(t *testing.T) {
	q := NewQueryCache()
	var calls atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{})

	fn := func(context.Context) (any, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	results := make([]any, 5)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = q.Fetch(context.Background(), "k", fn)
		}()
	}

	<-started
	// Let the other callers join the in-flight fetch
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	for _, r := range results {
		assert.Equal(t, 42, r)
	}
}

func TestQueryCacheCancelBeforeOverwrite(t *testing.T) {
	q := NewQueryCache()
	q.SetData("images:all", []string{"a", "b"})
	q.Invalidate("images:")

	started := make(chan struct{})
	done := make(chan any)
	go func() {
		v, _ := q.Fetch(context.Background(), "images:all", func(ctx context.Context) (any, error) {
			close(started)
			<-ctx.Done()
			return []string{"server"}, ctx.Err()
		})
		done <- v
	}()

	<-started
	q.Cancel("images:all")
	q.SetData("images:all", []string{"a"})

	select {
	case v := <-done:
		assert.Equal(t, []string{"a"}, v)
	case <-time.After(time.Second):
		t.Fatal("abandoned fetch did not return")
	}

	data, ok := q.GetData("images:all")
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, data, "abandoned fetch must not overwrite the optimistic value")
	assert.False(t, q.IsStale("images:all"))
}

func TestQueryCacheInvalidatePrefix(t *testing.T) {
	q := NewQueryCache()
	q.SetData(imagesKey(""), 1)
	q.SetData(imagesKey("f1"), 2)
	q.SetData(keyFolders, 3)

	q.Invalidate(keyImages)

	assert.True(t, q.IsStale(imagesKey("")))
	assert.True(t, q.IsStale(imagesKey("f1")))
	assert.False(t, q.IsStale(keyFolders))
	assert.ElementsMatch(t, []string{"images:all", "images:f1"}, q.Keys(keyImages))
}

func TestQueryCacheInvalidateDuringFetch(t *testing.T) {
	q := NewQueryCache()
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan any)
	go func() {
		v, _ := q.Fetch(context.Background(), "images:all", func(context.Context) (any, error) {
			calls.Add(1)
			close(started)
			<-release
			return "before upload", nil
		})
		done <- v
	}()

	<-started
	q.Invalidate(keyImages)
	close(release)

	select {
	case v := <-done:
		assert.Equal(t, "before upload", v)
	case <-time.After(time.Second):
		t.Fatal("fetch did not return")
	}

	assert.True(t, q.IsStale("images:all"), "data fetched across an invalidation stays stale")

	v, err := q.Fetch(context.Background(), "images:all", counter(&calls, "after upload"))
	require.NoError(t, err)
	assert.Equal(t, "after upload", v)
	assert.EqualValues(t, 2, calls.Load())
	assert.False(t, q.IsStale("images:all"))
}

func TestGetTyped(t *testing.T) {
	q := NewQueryCache()
	q.SetData("n", 7)

	n, ok := Get[int](q, "n")
	assert.True(t, ok)
	assert.Equal(t, 7, n)

	_, ok = Get[string](q, "n")
	assert.False(t, ok)

	_, ok = Get[int](q, "missing")
	assert.False(t, ok)
}

func TestMutation(t *testing.T) {
	boom := errors.New("boom")

	t.Run("keeps optimistic value and invalidates on success", func(t *testing.T) {
		q := NewQueryCache()
		q.SetData("count", 1)
		var settled error = boom

		m := Mutation[int, string]{
			Cache:      q,
			Keys:       func(int) []string { return []string{"count"} },
			Optimistic: func(v int) { q.SetData("count", v) },
			Fn:         func(context.Context, int) (string, error) { return "ok", nil },
			Invalidate: []string{"count"},
			OnSettled:  func(_ int, err error) { settled = err },
		}

		res, err := m.Run(context.Background(), 5)

		require.NoError(t, err)
		assert.Equal(t, "ok", res)
		v, _ := Get[int](q, "count")
		assert.Equal(t, 5, v)
		assert.True(t, q.IsStale("count"))
		assert.NoError(t, settled)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		q := NewQueryCache()
		q.SetData("count", 1)
		succeeded := false

		m := Mutation[int, string]{
			Cache:      q,
			Keys:       func(int) []string { return []string{"count", "absent"} },
			Optimistic: func(v int) {
				q.SetData("count", v)
				q.SetData("absent", v)
			},
			Fn:         func(context.Context, int) (string, error) { return "", boom },
			OnSuccess:  func(int, string) { succeeded = true },
		}

		_, err := m.Run(context.Background(), 5)

		assert.ErrorIs(t, err, boom)
		assert.False(t, succeeded)
		v, _ := Get[int](q, "count")
		assert.Equal(t, 1, v)
		_, ok := q.GetData("absent")
		assert.False(t, ok)
	})
}
