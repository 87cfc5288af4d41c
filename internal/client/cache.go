package client

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Query keys
const (
	keyFolders     = "folders"
	keyHidePrivate = "hidePrivate"
	keyImages      = "images:"
)

func imagesKey(folder string) string {
	if folder == "" {
		return keyImages + "all"
	}
	return keyImages + folder
}

type entry struct {
	data    any
	present bool
	stale   bool
	// gen changes whenever data is written or a fetch is abandoned so that
	// a fetch started earlier cannot overwrite newer data.
	gen    uint64
	cancel context.CancelFunc
	// invalidated is set when Invalidate runs while a fetch is in flight;
	// the fetched data may predate the change and is stored as stale.
	invalidated bool
}

// QueryCache holds the last known server state per query key
type QueryCache struct {
	mu      sync.Mutex
	entries map[string]*entry
	group   singleflight.Group
}

func NewQueryCache() *QueryCache {
	return &QueryCache{entries: make(map[string]*entry)}
}

func (q *QueryCache) entry(key string) *entry {
	e, ok := q.entries[key]
	if !ok {
		e = &entry{}
		q.entries[key] = e
	}
	return e
}

// GetData returns the cached value for key, stale or not
func (q *QueryCache) GetData(key string) (any, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.entries[key]
	if !ok || !e.present {
		return nil, false
	}
	return e.data, true
}

// SetData overwrites the value for key. Callers about to apply an optimistic
// update should Cancel first.
func (q *QueryCache) SetData(key string, data any) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e := q.entry(key)
	e.data, e.present, e.stale = data, true, false
	e.gen++
}

// UpdateData applies fn to the current value of key if one is cached
func (q *QueryCache) UpdateData(key string, fn func(any) any) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.entries[key]
	if !ok || !e.present {
		return
	}
	e.data = fn(e.data)
	e.gen++
}

// Keys returns the cached keys starting with prefix
func (q *QueryCache) Keys(prefix string) []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	var keys []string
	for k, e := range q.entries {
		if e.present && strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys
}

// Cancel abandons any in-flight fetch for key. Its result will not be stored.
func (q *QueryCache) Cancel(key string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.entries[key]
	if !ok {
		return
	}
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.gen++
	q.group.Forget(key)
}

// Invalidate marks every key starting with one of prefixes as stale so the
// next Fetch goes back to the server.
func (q *QueryCache) Invalidate(prefixes ...string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for k, e := range q.entries {
		for _, p := range prefixes {
			if strings.HasPrefix(k, p) {
				e.stale = true
				if e.cancel != nil {
					e.invalidated = true
				}
				break
			}
		}
	}
}

// IsStale reports whether key needs a refetch
func (q *QueryCache) IsStale(key string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.entries[key]
	return !ok || !e.present || e.stale
}

// Fetch returns the cached value for key when it is fresh, otherwise calls fn.
// Concurrent fetches of the same key share one call.
func (q *QueryCache) Fetch(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	q.mu.Lock()
	if e, ok := q.entries[key]; ok && e.present && !e.stale {
		data := e.data
		q.mu.Unlock()
		return data, nil
	}
	q.mu.Unlock()

	v, err, _ := q.group.Do(key, func() (any, error) {
		fetchCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		q.mu.Lock()
		e := q.entry(key)
		e.cancel = cancel
		e.invalidated = false
		gen := e.gen
		q.mu.Unlock()

		data, err := fn(fetchCtx)

		q.mu.Lock()
		defer q.mu.Unlock()
		if e.gen != gen {
			// Superseded by SetData or Cancel while in flight
			if e.present {
				return e.data, nil
			}
			return nil, context.Canceled
		}
		e.cancel = nil
		invalidated := e.invalidated
		e.invalidated = false
		if err != nil {
			return nil, err
		}
		e.data, e.present, e.stale = data, true, invalidated
		return data, nil
	})
	return v, err
}

// snapshot cancels fetches for keys and records their current values
func (q *QueryCache) snapshot(keys []string) map[string]entry {
	for _, k := range keys {
		q.Cancel(k)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	snap := make(map[string]entry, len(keys))
	for _, k := range keys {
		if e, ok := q.entries[k]; ok {
			snap[k] = entry{data: e.data, present: e.present, stale: e.stale}
			continue
		}
		snap[k] = entry{}
	}
	return snap
}

// restore puts back the values recorded by snapshot
func (q *QueryCache) restore(snap map[string]entry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for k, s := range snap {
		e := q.entry(k)
		e.data, e.present, e.stale = s.data, s.present, s.stale
		e.gen++
	}
}

// Get returns the cached value for key as T
func Get[T any](q *QueryCache, key string) (T, bool) {
	var zero T
	v, ok := q.GetData(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// FetchAs is Fetch with a typed result
func FetchAs[T any](ctx context.Context, q *QueryCache, key string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	v, err := q.Fetch(ctx, key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cached %s holds %T", key, v)
	}
	return t, nil
}
