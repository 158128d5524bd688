package overflow

import (
	"context"
	"errors"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/ashpect/tiercache/pkg/cache"
	"github.com/ashpect/tiercache/pkg/codec"
)

// BoltStore is a durable overflow tier backed by a single bbolt file.
// Each key holds one encoded record. It is safe for concurrent use.
type BoltStore[K ~string, V any] struct {
	db     *bolt.DB
	bucket []byte
	codec  codec.Codec[V]
}

type Options struct {
	// Bucket is the name of the Bolt bucket to use.
	Bucket string
	// LockTimeout bounds how long Open waits for the file lock.
	LockTimeout time.Duration
	// NoSync skips fsync after each commit. Only for tests and scratch data.
	NoSync bool
}

var _ cache.Overflow[string, []byte] = (*BoltStore[string, []byte])(nil)
var _ cache.Purger = (*BoltStore[string, []byte])(nil)

// OpenBolt initializes or opens a BoltStore at the given path.
func OpenBolt[K ~string, V any](path string, c codec.Codec[V], opts Options) (*BoltStore[K, V], error) {
	timeout := opts.LockTimeout
	if timeout <= 0 {
		timeout = 1 * time.Second
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: timeout, NoSync: opts.NoSync})
	if err != nil {
		return nil, err
	}
	bucket := []byte("overflow")
	if opts.Bucket != "" {
		bucket = []byte(opts.Bucket)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &BoltStore[K, V]{db: db, bucket: bucket, codec: c}, nil
}

// Close closes the underlying database.
func (s *BoltStore[K, V]) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Store writes e under key, replacing any previous record.
func (s *BoltStore[K, V]) Store(ctx context.Context, key K, e *cache.Entry[K, V]) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	buf, err := encodeEntry(s.codec, e)
	if err != nil {
		return err
	}
	return s.update(func(b *bolt.Bucket) error {
		return b.Put([]byte(key), buf)
	})
}

// Load returns the record for key, or nil if there is none.
// Expired records are returned as-is; the cache decides what to do with them.
func (s *BoltStore[K, V]) Load(ctx context.Context, key K) (*cache.Entry[K, V], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var raw []byte
	if err := s.view(func(b *bolt.Bucket) error {
		if v := b.Get([]byte(key)); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	return decodeEntry[K](s.codec, raw)
}

// Delete removes key and reports whether it was present.
// A missing key does not open a write transaction.
func (s *BoltStore[K, V]) Delete(ctx context.Context, key K) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var exists bool
	if err := s.view(func(b *bolt.Bucket) error {
		exists = b.Get([]byte(key)) != nil
		return nil
	}); err != nil || !exists {
		return false, err
	}
	if err := s.update(func(b *bolt.Bucket) error {
		return b.Delete([]byte(key))
	}); err != nil {
		return false, err
	}
	return true, nil
}

// PurgeExpired deletes every record whose expiry is before now. Records that
// fail to decode are deleted too, since they can never be loaded.
func (s *BoltStore[K, V]) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	purged := 0
	err := s.update(func(b *bolt.Bucket) error {
		var stale [][]byte
		if err := b.ForEach(func(k, v []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			expiresAt, err := recordExpiry(v)
			if err != nil || now.After(expiresAt) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		}); err != nil {
			return err
		}
		// Deleting while iterating with ForEach is not allowed, so collect first.
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		purged = len(stale)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return purged, nil
}

// Len returns the number of records on disk.
func (s *BoltStore[K, V]) Len() (int, error) {
	n := 0
	err := s.view(func(b *bolt.Bucket) error {
		n = b.Stats().KeyN
		return nil
	})
	return n, err
}

func (s *BoltStore[K, V]) view(fn func(b *bolt.Bucket) error) error {
	if s.db == nil {
		return ErrClosed
	}
	err := s.db.View(func(tx *bolt.Tx) error {
		return fn(tx.Bucket(s.bucket))
	})
	if errors.Is(err, bolt.ErrDatabaseNotOpen) {
		return ErrClosed
	}
	return err
}

func (s *BoltStore[K, V]) update(fn func(b *bolt.Bucket) error) error {
	if s.db == nil {
		return ErrClosed
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return fn(tx.Bucket(s.bucket))
	})
	if errors.Is(err, bolt.ErrDatabaseNotOpen) {
		return ErrClosed
	}
	return err
}
