// Package stats keeps a rolling window of request latencies.
package stats

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

type sample struct {
	timestamp  time.Time
	route      string
	status     int
	durationMs int64
}

// Latency aggregates the samples of one route, or of all routes.
type Latency struct {
	Count int     `json:"count"`
	MinMs int64   `json:"min_ms"`
	MaxMs int64   `json:"max_ms"`
	AvgMs float64 `json:"avg_ms"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
	P99Ms float64 `json:"p99_ms"`
}

// Snapshot is a point-in-time view of the window.
type Snapshot struct {
	WindowSeconds float64            `json:"window_seconds"`
	All           Latency            `json:"all"`
	Routes        map[string]Latency `json:"routes"`
	Status        map[string]int     `json:"status"`
}

// Recorder tracks recent request latencies within a rolling window.
type Recorder struct {
	mu      sync.Mutex
	samples []sample
	maxAge  time.Duration
	now     func() time.Time
}

func NewRecorder(maxAge time.Duration) *Recorder {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &Recorder{
		samples: make([]sample, 0, 256),
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// Record adds one finished request. route is the router pattern, not the raw
// path, so ids do not explode the route set.
func (r *Recorder) Record(route string, status int, d time.Duration) {
	ms := d.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked(now)
	r.samples = append(r.samples, sample{
		timestamp:  now,
		route:      route,
		status:     status,
		durationMs: ms,
	})
}

func (r *Recorder) Snapshot() Snapshot {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked(now)
	snap := Snapshot{
		WindowSeconds: r.maxAge.Seconds(),
		Routes:        map[string]Latency{},
		Status:        map[string]int{},
	}

	all := make([]int64, 0, len(r.samples))
	byRoute := map[string][]int64{}
	for _, sm := range r.samples {
		all = append(all, sm.durationMs)
		byRoute[sm.route] = append(byRoute[sm.route], sm.durationMs)
		snap.Status[statusClass(sm.status)]++
	}
	snap.All = aggregate(all)
	for route, values := range byRoute {
		snap.Routes[route] = aggregate(values)
	}
	return snap
}

func (r *Recorder) pruneLocked(now time.Time) {
	cutoff := now.Add(-r.maxAge)
	writeIdx := 0
	for _, sm := range r.samples {
		if !sm.timestamp.Before(cutoff) {
			r.samples[writeIdx] = sm
			writeIdx++
		}
	}
	r.samples = r.samples[:writeIdx]
}

func statusClass(code int) string {
	if code < 100 || code > 599 {
		return "other"
	}
	return fmt.Sprintf("%dxx", code/100)
}

func aggregate(values []int64) Latency {
	if len(values) == 0 {
		return Latency{}
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	var sum int64
	for _, v := range values {
		sum += v
	}
	return Latency{
		Count: len(values),
		MinMs: values[0],
		MaxMs: values[len(values)-1],
		AvgMs: float64(sum) / float64(len(values)),
		P50Ms: percentile(values, 50),
		P95Ms: percentile(values, 95),
		P99Ms: percentile(values, 99),
	}
}

// percentile interpolates linearly between the two nearest ranks.
func percentile(sorted []int64, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sorted[0])
	}
	if pct >= 100 {
		return float64(sorted[len(sorted)-1])
	}

	index := (float64(len(sorted)-1) * pct) / 100.0
	lower := int(index)
	upper := lower + 1
	if upper >= len(sorted) {
		return float64(sorted[lower])
	}
	weight := index - float64(lower)
	lo := float64(sorted[lower])
	hi := float64(sorted[upper])
	return lo + ((hi - lo) * weight)
}
