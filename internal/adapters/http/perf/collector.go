package perf

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultRingSize is the default capacity of the ring buffer.
const DefaultRingSize = 10000

// EntryKind distinguishes what was timed.
type EntryKind uint8

const (
	// KindRequest is an inbound page or form request.
	KindRequest EntryKind = iota
	// KindUpstream is an outbound call to the booking API.
	KindUpstream
	// KindQuery is a session store query.
	KindQuery
)

// Entry is a single timing record stored in the ring buffer.
type Entry struct {
	Kind       EntryKind
	Path       string // "METHOD /path" for requests and upstream calls, op name for queries
	StatusCode int    // 0 for queries and transport failures
	DurationMs float64
	Timestamp  time.Time
}

// Collector is a fixed-size ring buffer for timing entries.
// When full, the oldest entries are overwritten; aggregation happens on read.
type Collector struct {
	mu      sync.Mutex
	entries []Entry
	size    int
	pos     int
	count   int64 // total entries ever written
}

// NewCollector creates a collector with the given ring buffer capacity.
// PRE: size > 0 (non-positive falls back to DefaultRingSize)
// POST: Returns a ready-to-use collector with pre-allocated storage
func NewCollector(size int) *Collector {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Collector{
		entries: make([]Entry, size),
		size:    size,
	}
}

// Record appends an entry to the ring buffer.
// PRE: e is a valid Entry
// POST: Entry stored; if buffer full, oldest entry overwritten
func (c *Collector) Record(e Entry) {
	c.mu.Lock()
	c.entries[c.pos] = e
	c.pos = (c.pos + 1) % c.size
	c.mu.Unlock()
	atomic.AddInt64(&c.count, 1)
}

// TotalRecorded returns the total number of entries ever recorded.
func (c *Collector) TotalRecorded() int64 {
	return atomic.LoadInt64(&c.count)
}

// Snapshot holds aggregated performance data computed on read.
type Snapshot struct {
	TotalRecorded   int64      `json:"total_recorded"`
	RequestP50Ms    float64    `json:"request_p50_ms"`
	RequestP95Ms    float64    `json:"request_p95_ms"`
	RequestP99Ms    float64    `json:"request_p99_ms"`
	UpstreamP95Ms   float64    `json:"upstream_p95_ms"`
	UpstreamErrors  int        `json:"upstream_errors"`
	SlowestPaths    []PathStat `json:"slowest_paths"`
	SlowestUpstream []PathStat `json:"slowest_upstream"`
	SlowestQueries  []PathStat `json:"slowest_queries"`
}

// PathStat aggregates timing for a single path or op.
type PathStat struct {
	Path    string  `json:"path"`
	AvgMs   float64 `json:"avg_ms"`
	MaxMs   float64 `json:"max_ms"`
	Count   int     `json:"count"`
	TotalMs float64 `json:"total_ms"`
}

type aggregate struct {
	durations []float64
	stats     map[string]*PathStat
}

func (a *aggregate) add(e Entry) {
	a.durations = append(a.durations, e.DurationMs)
	s, ok := a.stats[e.Path]
	if !ok {
		s = &PathStat{Path: e.Path}
		a.stats[e.Path] = s
	}
	s.Count++
	s.TotalMs += e.DurationMs
	if e.DurationMs > s.MaxMs {
		s.MaxMs = e.DurationMs
	}
}

// Snapshot computes aggregated stats from entries recorded after since.
// Sorting makes this expensive; call it only when the numbers are requested.
// PRE: topN > 0
// POST: Returns a Snapshot with percentiles and top-N lists per kind
func (c *Collector) Snapshot(since time.Time, topN int) Snapshot {
	c.mu.Lock()
	buf := make([]Entry, c.size)
	copy(buf, c.entries)
	c.mu.Unlock()

	byKind := map[EntryKind]*aggregate{
		KindRequest:  {stats: map[string]*PathStat{}},
		KindUpstream: {stats: map[string]*PathStat{}},
		KindQuery:    {stats: map[string]*PathStat{}},
	}

	upstreamErrors := 0
	for _, e := range buf {
		if e.Timestamp.IsZero() || e.Timestamp.Before(since) {
			continue
		}
		agg, ok := byKind[e.Kind]
		if !ok {
			continue
		}
		agg.add(e)
		if e.Kind == KindUpstream && (e.StatusCode == 0 || e.StatusCode >= 400) {
			upstreamErrors++
		}
	}

	snap := Snapshot{
		TotalRecorded:   c.TotalRecorded(),
		UpstreamErrors:  upstreamErrors,
		SlowestPaths:    topByAvg(byKind[KindRequest].stats, topN),
		SlowestUpstream: topByAvg(byKind[KindUpstream].stats, topN),
		SlowestQueries:  topByAvg(byKind[KindQuery].stats, topN),
	}

	if d := byKind[KindRequest].durations; len(d) > 0 {
		sort.Float64s(d)
		snap.RequestP50Ms = percentile(d, 50)
		snap.RequestP95Ms = percentile(d, 95)
		snap.RequestP99Ms = percentile(d, 99)
	}
	if d := byKind[KindUpstream].durations; len(d) > 0 {
		sort.Float64s(d)
		snap.UpstreamP95Ms = percentile(d, 95)
	}

	return snap
}

// percentile returns the p-th percentile from a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (p / 100) * float64(len(sorted)-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))
	if lower == upper || upper >= len(sorted) {
		return sorted[lower]
	}
	frac := idx - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// topByAvg returns the top N paths sorted by average duration (descending).
func topByAvg(stats map[string]*PathStat, n int) []PathStat {
	list := make([]PathStat, 0, len(stats))
	for _, s := range stats {
		s.AvgMs = s.TotalMs / float64(s.Count)
		list = append(list, *s)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].AvgMs > list[j].AvgMs
	})
	if len(list) > n {
		list = list[:n]
	}
	return list
}
