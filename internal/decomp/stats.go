package decomp

import "sync/atomic"

// Stats accumulates walker counters. It is safe for concurrent use.
type Stats struct {
	rootRows       atomic.Int64
	bagEvaluations atomic.Int64
	inconsistent   atomic.Int64
	cacheHits      atomic.Int64
	cacheMisses    atomic.Int64
	emitted        atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	RootRows       int64 `json:"root_rows"`
	BagEvaluations int64 `json:"bag_evaluations"`
	Inconsistent   int64 `json:"inconsistent"`
	CacheHits      int64 `json:"cache_hits"`
	CacheMisses    int64 `json:"cache_misses"`
	Emitted        int64 `json:"emitted"`
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() StatsSnapshot {
	if s == nil {
		return StatsSnapshot{}
	}
	return StatsSnapshot{
		RootRows:       s.rootRows.Load(),
		BagEvaluations: s.bagEvaluations.Load(),
		Inconsistent:   s.inconsistent.Load(),
		CacheHits:      s.cacheHits.Load(),
		CacheMisses:    s.cacheMisses.Load(),
		Emitted:        s.emitted.Load(),
	}
}
