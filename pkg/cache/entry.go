package cache

import (
	"errors"
	"fmt"
	"reflect"
	"time"
)

const (
	MinTTL     = 1 * time.Minute
	MaxTTL     = 2 * time.Hour
	DefaultTTL = 10 * time.Minute
)

var (
	ErrInvalidEntry = errors.New("cache: invalid entry")
	ErrDuplicateKey = errors.New("cache: key already exists")
	ErrClosed       = errors.New("cache: closed")
)

// Entry is a cached payload with its creation and absolute expiry time.
// It is never mutated once admitted; promotion on read only moves its LRU position.
type Entry[K ~string, V any] struct {
	key       K
	payload   V
	createdAt time.Time
	expiresAt time.Time
}

// NewEntry builds an entry using DefaultTTL.
func NewEntry[K ~string, V any](key K, payload V, now time.Time) (*Entry[K, V], error) {
	return newEntry(key, payload, DefaultTTL, now)
}

// NewEntryWithTTL builds an entry expiring ttl after now. ttl must lie within [MinTTL, MaxTTL].
func NewEntryWithTTL[K ~string, V any](key K, payload V, ttl time.Duration, now time.Time) (*Entry[K, V], error) {
	if ttl < MinTTL || ttl > MaxTTL {
		return nil, fmt.Errorf("%w: ttl %s out of range [%s, %s]", ErrInvalidEntry, ttl, MinTTL, MaxTTL)
	}
	return newEntry(key, payload, ttl, now)
}

// RestoreEntry rebuilds an entry read back from an overflow tier, keeping its
// original timestamps. The ttl range is not re-checked.
func RestoreEntry[K ~string, V any](key K, payload V, createdAt, expiresAt time.Time) (*Entry[K, V], error) {
	if err := validate(key, payload); err != nil {
		return nil, err
	}
	if expiresAt.Before(createdAt) {
		return nil, fmt.Errorf("%w: expiry %s before creation %s", ErrInvalidEntry, expiresAt, createdAt)
	}
	return &Entry[K, V]{key: key, payload: payload, createdAt: createdAt, expiresAt: expiresAt}, nil
}

func newEntry[K ~string, V any](key K, payload V, ttl time.Duration, now time.Time) (*Entry[K, V], error) {
	if err := validate(key, payload); err != nil {
		return nil, err
	}
	return &Entry[K, V]{
		key:       key,
		payload:   payload,
		createdAt: now,
		expiresAt: now.Add(ttl),
	}, nil
}

func validate[K ~string, V any](key K, payload V) error {
	if len(key) == 0 {
		return fmt.Errorf("%w: empty key", ErrInvalidEntry)
	}
	if isNil(payload) {
		return fmt.Errorf("%w: nil payload for key %q", ErrInvalidEntry, string(key))
	}
	return nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan, reflect.Func:
		return rv.IsNil()
	}
	return false
}

func (e *Entry[K, V]) Key() K               { return e.key }
func (e *Entry[K, V]) Payload() V           { return e.payload }
func (e *Entry[K, V]) CreatedAt() time.Time { return e.createdAt }
func (e *Entry[K, V]) ExpiresAt() time.Time { return e.expiresAt }
func (e *Entry[K, V]) TTL() time.Duration   { return e.expiresAt.Sub(e.createdAt) }

// ExpiredAt reports whether now is past the entry's expiry.
func (e *Entry[K, V]) ExpiredAt(now time.Time) bool {
	return now.After(e.expiresAt)
}
