package join

import "sync/atomic"

// Stats accumulates enumeration counters. It is safe for concurrent use;
// enumerations count locally and flush once when they finish.
type Stats struct {
	resolutions   atomic.Int64
	intersections atomic.Int64
	pruned        atomic.Int64
	emitted       atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	// Resolutions counts candidate-set computations, one per variable
	// binding step.
	Resolutions int64 `json:"resolutions"`

	// Intersections counts pairwise candidate-set intersections.
	Intersections int64 `json:"intersections"`

	// Pruned counts binding steps that produced no candidates.
	Pruned int64 `json:"pruned"`

	// Emitted counts complete assignments produced.
	Emitted int64 `json:"emitted"`
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() StatsSnapshot {
	if s == nil {
		return StatsSnapshot{}
	}
	return StatsSnapshot{
		Resolutions:   s.resolutions.Load(),
		Intersections: s.intersections.Load(),
		Pruned:        s.pruned.Load(),
		Emitted:       s.emitted.Load(),
	}
}

func (s *Stats) add(c StatsSnapshot) {
	if s == nil {
		return
	}
	s.resolutions.Add(c.Resolutions)
	s.intersections.Add(c.Intersections)
	s.pruned.Add(c.Pruned)
	s.emitted.Add(c.Emitted)
}
