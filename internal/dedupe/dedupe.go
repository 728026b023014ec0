// Package dedupe wraps singleflight so that only one call runs per key
// while concurrent callers wait for, and share, its result. Groups are
// owned by their users; there is no package-level state.
package dedupe

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Group coalesces calls by key. The zero value is ready to use.
type Group struct {
	sf singleflight.Group
}

// Do runs fn once for all concurrent callers of key. fn receives a context
// detached from the caller's cancellation, so the caller that started the
// call leaving early does not fail the ones that joined it. Each caller
// stops waiting when its own ctx is done. Callers must treat the shared
// result as read-only.
func (g *Group) Do(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	shared := context.WithoutCancel(ctx)
	ch := g.sf.DoChan(key, func() (any, error) {
		return fn(shared)
	})
	select {
	case r := <-ch:
		return r.Val, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Go starts fn in the background unless a call for key is already in
// flight, in which case it does nothing.
func (g *Group) Go(key string, fn func()) {
	g.sf.DoChan(key, func() (any, error) {
		fn()
		return nil, nil
	})
}
