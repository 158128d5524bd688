package cache

import (
	"context"
	"time"
)

// Overflow is the durable tier that receives entries evicted for capacity.
// Implementations must be safe for concurrent use on distinct keys; calls for
// the same key are serialized by the cache.
type Overflow[K ~string, V any] interface {
	// Store persists e under key, replacing any previous blob.
	Store(ctx context.Context, key K, e *Entry[K, V]) error
	// Load returns the stored entry, or nil and no error when key is absent.
	Load(ctx context.Context, key K) (*Entry[K, V], error)
	// Delete removes the blob for key and reports whether one existed.
	Delete(ctx context.Context, key K) (bool, error)
}

// Purger is implemented by overflow tiers that can drop their own expired
// blobs. The cache calls it after each sweep.
type Purger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}

// discard is used when no overflow tier is configured; evicted entries are dropped.
type discard[K ~string, V any] struct{}

func (discard[K, V]) Store(context.Context, K, *Entry[K, V]) error { return nil }

func (discard[K, V]) Load(context.Context, K) (*Entry[K, V], error) { return nil, nil }

func (discard[K, V]) Delete(context.Context, K) (bool, error) { return false, nil }
