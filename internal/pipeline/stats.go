package pipeline

import (
	"sort"
	"sync"
	"time"

	"github.com/dgallion1/text2mind/internal/convert"
)

type sample struct {
	timestamp  time.Time
	durationMs int64
}

// StatsSnapshot aggregates recent conversion latencies and lifetime
// per-tier counts.
type StatsSnapshot struct {
	Count    int              `json:"count"`
	MinMs    int64            `json:"min_ms"`
	MaxMs    int64            `json:"max_ms"`
	AvgMs    float64          `json:"avg_ms"`
	P50Ms    float64          `json:"p50_ms"`
	P95Ms    float64          `json:"p95_ms"`
	P99Ms    float64          `json:"p99_ms"`
	Tiers    map[string]int64 `json:"tiers"`
	Failures int64            `json:"failures"`
}

// Stats tracks conversion latencies within a rolling window.
type Stats struct {
	mu       sync.Mutex
	samples  []sample
	maxAge   time.Duration
	tiers    map[convert.Tier]int64
	failures int64
}

func NewStats(maxAge time.Duration) *Stats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &Stats{
		samples: make([]sample, 0, 256),
		maxAge:  maxAge,
		tiers:   make(map[convert.Tier]int64),
	}
}

// Record adds a successful conversion that finished in tier.
func (s *Stats) Record(d time.Duration, tier convert.Tier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLocked(d)
	s.tiers[tier]++
}

// RecordFailure adds a conversion that produced no output.
func (s *Stats) RecordFailure(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLocked(d)
	s.failures++
}

func (s *Stats) addLocked(d time.Duration) {
	durationMs := d.Milliseconds()
	if durationMs < 0 {
		durationMs = 0
	}
	now := time.Now()
	s.pruneLocked(now)
	s.samples = append(s.samples, sample{
		timestamp:  now,
		durationMs: durationMs,
	})
}

func (s *Stats) Snapshot() StatsSnapshot {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	tiers := make(map[string]int64, len(s.tiers))
	for t, n := range s.tiers {
		tiers[t.String()] = n
	}

	s.pruneLocked(now)
	if len(s.samples) == 0 {
		return StatsSnapshot{Tiers: tiers, Failures: s.failures}
	}

	values := make([]int64, 0, len(s.samples))
	var sum int64
	for _, sm := range s.samples {
		values = append(values, sm.durationMs)
		sum += sm.durationMs
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	return StatsSnapshot{
		Count:    len(values),
		MinMs:    values[0],
		MaxMs:    values[len(values)-1],
		AvgMs:    float64(sum) / float64(len(values)),
		P50Ms:    percentile(values, 50),
		P95Ms:    percentile(values, 95),
		P99Ms:    percentile(values, 99),
		Tiers:    tiers,
		Failures: s.failures,
	}
}

func (s *Stats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.maxAge)
	writeIdx := 0
	for _, sm := range s.samples {
		if !sm.timestamp.Before(cutoff) {
			s.samples[writeIdx] = sm
			writeIdx++
		}
	}
	s.samples = s.samples[:writeIdx]
}

func percentile(sortedValues []int64, pct float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sortedValues[0])
	}
	if pct >= 100 {
		return float64(sortedValues[len(sortedValues)-1])
	}

	index := (float64(len(sortedValues)-1) * pct) / 100.0
	lower := int(index)
	upper := lower + 1
	if upper >= len(sortedValues) {
		return float64(sortedValues[lower])
	}
	weight := index - float64(lower)
	lo := float64(sortedValues[lower])
	hi := float64(sortedValues[upper])
	return lo + ((hi - lo) * weight)
}
