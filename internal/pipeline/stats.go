package pipeline

import (
	"slices"
	"sync"
	"time"
)

type callSample struct {
	at       time.Time
	duration time.Duration
	failed   bool
}

// LatencySnapshot aggregates the batchUpdate calls still inside the window.
type LatencySnapshot struct {
	Calls    int       `json:"calls"`
	Failures int       `json:"failures"`
	MinMs    int64     `json:"min_ms"`
	MaxMs    int64     `json:"max_ms"`
	AvgMs    float64   `json:"avg_ms"`
	P50Ms    float64   `json:"p50_ms"`
	P95Ms    float64   `json:"p95_ms"`
	LastCall time.Time `json:"last_call,omitzero"`
}

// BatchStats keeps a rolling window of batchUpdate call latencies. It is
// safe for concurrent use by several executors.
type BatchStats struct {
	mu      sync.Mutex
	window  time.Duration
	samples []callSample
	now     func() time.Time
}

func NewBatchStats(window time.Duration) *BatchStats {
	if window <= 0 {
		window = time.Hour
	}
	return &BatchStats{window: window, now: time.Now}
}

// Record adds one call. failed marks calls that returned an error.
func (s *BatchStats) Record(d time.Duration, failed bool) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.evict(now)
	s.samples = append(s.samples, callSample{at: now, duration: max(d, 0), failed: failed})
}

func (s *BatchStats) Snapshot() LatencySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evict(s.now())
	if len(s.samples) == 0 {
		return LatencySnapshot{}
	}

	ms := make([]int64, len(s.samples))
	var sum int64
	snap := LatencySnapshot{Calls: len(s.samples), LastCall: s.samples[len(s.samples)-1].at}
	for i, c := range s.samples {
		ms[i] = c.duration.Milliseconds()
		sum += ms[i]
		if c.failed {
			snap.Failures++
		}
	}
	slices.Sort(ms)
	snap.MinMs = ms[0]
	snap.MaxMs = ms[len(ms)-1]
	snap.AvgMs = float64(sum) / float64(len(ms))
	snap.P50Ms = quantile(ms, 0.50)
	snap.P95Ms = quantile(ms, 0.95)
	return snap
}

// evict drops samples older than the window. Samples are appended in time
// order so the expired ones form a prefix.
func (s *BatchStats) evict(now time.Time) {
	cutoff := now.Add(-s.window)
	i := 0
	for i < len(s.samples) && s.samples[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		s.samples = slices.Delete(s.samples, 0, i)
	}
}

// quantile interpolates linearly between the two nearest ranks of a sorted
// slice.
func quantile(sorted []int64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	if lo >= len(sorted)-1 {
		return float64(sorted[len(sorted)-1])
	}
	frac := pos - float64(lo)
	return float64(sorted[lo]) + frac*float64(sorted[lo+1]-sorted[lo])
}
