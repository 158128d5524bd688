package overflow

import (
	"context"
	"sync"
	"time"

	"github.com/ashpect/tiercache/pkg/cache"
	"github.com/ashpect/tiercache/pkg/codec"
)

// MemoryStore is an in-process overflow tier. It keeps records encoded, the
// same as BoltStore, so payloads cannot be mutated through it.
type MemoryStore[K ~string, V any] struct {
	mu      sync.RWMutex
	codec   codec.Codec[V]
	records map[K][]byte
}

var _ cache.Overflow[string, []byte] = (*MemoryStore[string, []byte])(nil)
var _ cache.Purger = (*MemoryStore[string, []byte])(nil)

func NewMemoryStore[K ~string, V any](c codec.Codec[V]) *MemoryStore[K, V] {
	return &MemoryStore[K, V]{codec: c, records: make(map[K][]byte)}
}

func (s *MemoryStore[K, V]) Store(ctx context.Context, key K, e *cache.Entry[K, V]) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	buf, err := encodeEntry(s.codec, e)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = buf
	return nil
}

func (s *MemoryStore[K, V]) Load(ctx context.Context, key K) (*cache.Entry[K, V], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	raw, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return decodeEntry[K](s.codec, raw)
}

func (s *MemoryStore[K, V]) Delete(ctx context.Context, key K) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[key]
	delete(s.records, key)
	return ok, nil
}

func (s *MemoryStore[K, V]) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	purged := 0
	for k, raw := range s.records {
		expiresAt, err := recordExpiry(raw)
		if err != nil || now.After(expiresAt) {
			delete(s.records, k)
			purged++
		}
	}
	return purged, nil
}

func (s *MemoryStore[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Has reports whether key has a record, without decoding it.
func (s *MemoryStore[K, V]) Has(key K) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[key]
	return ok
}
