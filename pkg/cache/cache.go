package cache

import "time"

type Cache[K ~string, V any] interface {
	// Get returns the payload for key and true if present in memory or overflow and not expired.
	Get(key K) (V, bool)

	// Set stores the payload for key using DefaultTTL.
	Set(key K, value V) error

	// SetWithTTL stores the payload for key with ttl in [MinTTL, MaxTTL].
	SetWithTTL(key K, value V, ttl time.Duration) error

	// Delete removes the key from whichever tier holds it and reports whether anything was removed.
	Delete(key K) bool

	// Contains reports whether key is resident in memory. It does not promote or consult overflow.
	Contains(key K) bool

	// Len returns the number of memory-resident entries.
	Len() int

	// Keys returns memory-resident keys from least to most recently used.
	Keys() []K

	// Sweep removes every memory entry whose expiry has passed and returns how many were removed.
	Sweep() int

	// Stats returns a snapshot of the hit/miss/eviction counters.
	Stats() Stats

	//// TTL Specific ////

	// StartCleanupDaemon starts the background sweeper.
	StartCleanupDaemon()

	// StopCleanupDaemon stops the background sweeper if running.
	StopCleanupDaemon()

	// Close stops the sweeper and rejects further writes. It does not close the overflow tier.
	Close()
}
