package cache

import "sync/atomic"

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits          uint64
	Misses        uint64
	Evictions     uint64 // entries pushed out of memory for capacity
	Spills        uint64 // evicted entries written to the overflow tier
	SpillFailures uint64
	Rehydrations  uint64 // overflow entries loaded back into memory
	Expirations   uint64 // entries discarded because their ttl passed
}

type counters struct {
	hits, misses, evictions, spills, spillFailures, rehydrations, expirations atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Evictions:     c.evictions.Load(),
		Spills:        c.spills.Load(),
		SpillFailures: c.spillFailures.Load(),
		Rehydrations:  c.rehydrations.Load(),
		Expirations:   c.expirations.Load(),
	}
}
