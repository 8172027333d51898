package snapshot

import (
	"sync"
	"time"

	tdigest "github.com/caio/go-tdigest/v4"
)

// Stats tracks snapshot operation counters and a latency digest for
// creation times.
type Stats struct {
	mu       sync.Mutex
	created  uint64
	failed   uint64
	released uint64
	td       *tdigest.TDigest
}

// StatsSnapshot is a point-in-time copy of the counters plus selected
// creation-latency quantiles in seconds.
type StatsSnapshot struct {
	Created    uint64
	Failed     uint64
	Released   uint64
	LatencyP50 float64
	LatencyP99 float64
}

func newStats() (*Stats, error) {
	td, err := tdigest.New()
	if err != nil {
		return nil, err
	}
	return &Stats{td: td}, nil
}

func (s *Stats) observeCreate(d time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.failed++
		return
	}
	s.created++
	// AddWeighted only fails on non-positive weight.
	_ = s.td.AddWeighted(d.Seconds(), 1)
}

func (s *Stats) observeRelease() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released++
}

// Snapshot returns a copy of the current counters and latency quantiles.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := StatsSnapshot{
		Created:  s.created,
		Failed:   s.failed,
		Released: s.released,
	}
	if s.td.Count() > 0 {
		out.LatencyP50 = s.td.Quantile(0.5)
		out.LatencyP99 = s.td.Quantile(0.99)
	}
	return out
}
