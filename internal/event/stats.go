package event

import "sync/atomic"

// Stats provides lock-free per-Kind counters.
// Snapshot atomically reads and resets all counters.
type Stats struct {
	counts [MaxKind + 1]atomic.Uint64
}

// NewStats creates a new Stats instance.
func NewStats() *Stats {
	return &Stats{}
}

// Record increments the counter for the given kind by one.
func (s *Stats) Record(k Kind) {
	if k > MaxKind {
		return
	}

	s.counts[k].Add(1)
}

// Snapshot atomically reads and resets all counters, returning
// a map of only non-zero entries.
func (s *Stats) Snapshot() map[Kind]uint64 {
	result := make(map[Kind]uint64, MaxKind)

	for i := range s.counts {
		v := s.counts[i].Swap(0)
		if v > 0 {
			result[Kind(i)] = v
		}
	}

	return result
}
