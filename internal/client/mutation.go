package client

import "context"

// Mutation runs a remote change with an optimistic local update.
//
// Run cancels in-flight fetches of Keys and snapshots them, applies
// Optimistic, then calls Fn. On error the snapshot is restored. Either way the
// Invalidate prefixes are marked stale once the call settles.
type Mutation[V, R any] struct {
	Cache      *QueryCache
	Keys       func(vars V) []string
	Optimistic func(vars V)
	Fn         func(ctx context.Context, vars V) (R, error)
	Invalidate []string
	OnSuccess  func(vars V, result R)
	OnSettled  func(vars V, err error)
}

func (m *Mutation[V, R]) Run(ctx context.Context, vars V) (R, error) {
	var keys []string
	if m.Keys != nil {
		keys = m.Keys(vars)
	}
	snap := m.Cache.snapshot(keys)

	if m.Optimistic != nil {
		m.Optimistic(vars)
	}

	result, err := m.Fn(ctx, vars)
	if err != nil {
		m.Cache.restore(snap)
	} else if m.OnSuccess != nil {
		m.OnSuccess(vars, result)
	}

	m.Cache.Invalidate(m.Invalidate...)
	if m.OnSettled != nil {
		m.OnSettled(vars, err)
	}
	return result, err
}
