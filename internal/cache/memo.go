// Package cache memoizes expensive results keyed by content hash.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// Key returns the hex-encoded SHA-256 digest of data.
func Key(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Memo is a bounded least-recently-used cache that runs the loader for a
// missing key at most once at a time. Failed loads are not cached.
type Memo[V any] struct {
	entries *lru.Cache[string, V]
	group   singleflight.Group
}

func NewMemo[V any](size int) (*Memo[V], error) {
	entries, err := lru.New[string, V](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru cache: %w", err)
	}
	return &Memo[V]{entries: entries}, nil
}

// Get returns the value for key, calling load on a miss. Concurrent callers
// asking for the same missing key share one load. hit reports whether the
// value was already cached.
//
// The shared load runs detached from any single caller's cancellation; each
// caller stops waiting when its own ctx is done, and the load carries on for
// the others. load is responsible for its own timeout.
func (m *Memo[V]) Get(ctx context.Context, key string, load func(ctx context.Context) (V, error)) (v V, hit bool, err error) {
	if v, ok := m.entries.Get(key); ok {
		return v, true, nil
	}

	ch := m.group.DoChan(key, func() (any, error) {
		// A load that finished between the check above and DoChan has already
		// populated the cache.
		if v, ok := m.entries.Get(key); ok {
			return v, nil
		}
		v, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return v, err
		}
		m.entries.Add(key, v)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return v, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return v, false, res.Err
		}
		v, _ = res.Val.(V)
		return v, false, nil
	}
}

// Remove forgets key so the next Get loads it again.
func (m *Memo[V]) Remove(key string) {
	m.entries.Remove(key)
}
