// internal/loadtest/framework.go
package loadtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/FairForge/kvbench/internal/models"
)

// LatencyStats describes a latency distribution
type LatencyStats struct {
	Count int
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
	P50   time.Duration
	P95   time.Duration
	P99   time.Duration
}

// GroupSummary aggregates the records of one scenario and operation
type GroupSummary struct {
	Scenario     models.Scenario
	Operation    models.Operation
	SuccessCount int64
	FailureCount int64
	Phases       map[models.Phase]LatencyStats
}

// Total returns the number of records in the group
func (g GroupSummary) Total() int64 {
	return g.SuccessCount + g.FailureCount
}

// Summary aggregates results from a simulation run.
type Summary struct {
	StartTime       time.Time
	EndTime         time.Time
	TotalScenarios  int64
	SuccessCount    int64
	FailureCount    int64
	ScenariosPerSec float64
	ErrorRate       float64
	Latency         LatencyStats
	Groups          []GroupSummary
}

type groupKey struct {
	scenario  models.Scenario
	operation models.Operation
}

type group struct {
	success int64
	failure int64
	phases  map[models.Phase]*latencyHistogram
}

// Aggregator is a sink that folds every record into fixed-size latency
// histograms, so its memory does not grow with the length of the run.
type Aggregator struct {
	mu        sync.Mutex
	startTime time.Time
	success   int64
	failure   int64
	latency   *latencyHistogram
	groups    map[groupKey]*group
	now       func() time.Time
}

// NewAggregator creates an aggregator whose clock starts now
func NewAggregator() *Aggregator {
	return &Aggregator{
		startTime: time.Now(),
		latency:   newLatencyHistogram(),
		groups:    make(map[groupKey]*group),
		now:       time.Now,
	}
}

// Publish adds one record
func (a *Aggregator) Publish(_ context.Context, m models.SimulationMetrics) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := groupKey{scenario: m.Scenario, operation: m.Operation}
	g, ok := a.groups[key]
	if !ok {
		g = &group{phases: make(map[models.Phase]*latencyHistogram)}
		a.groups[key] = g
	}

	if m.Successful {
		a.success++
		g.success++
	} else {
		a.failure++
		g.failure++
	}

	for _, p := range m.Phases() {
		d := millisToDuration(p.Millis)
		h, ok := g.phases[p.Phase]
		if !ok {
			h = newLatencyHistogram()
			g.phases[p.Phase] = h
		}
		h.record(d)
		if p.Phase == models.PhaseSimulation {
			a.latency.record(d)
		}
	}
	return nil
}

// Summary builds the summary of everything published so far
func (a *Aggregator) Summary() *Summary {
	a.mu.Lock()
	defer a.mu.Unlock()

	endTime := a.now()
	duration := endTime.Sub(a.startTime).Seconds()
	total := a.success + a.failure

	summary := &Summary{
		StartTime:      a.startTime,
		EndTime:        endTime,
		TotalScenarios: total,
		SuccessCount:   a.success,
		FailureCount:   a.failure,
		Latency:        a.latency.stats(),
	}

	if duration > 0 {
		summary.ScenariosPerSec = float64(total) / duration
	}
	if total > 0 {
		summary.ErrorRate = float64(a.failure) / float64(total)
	}

	for key, g := range a.groups {
		gs := GroupSummary{
			Scenario:     key.scenario,
			Operation:    key.operation,
			SuccessCount: g.success,
			FailureCount: g.failure,
			Phases:       make(map[models.Phase]LatencyStats, len(g.phases)),
		}
		for phase, h := range g.phases {
			gs.Phases[phase] = h.stats()
		}
		summary.Groups = append(summary.Groups, gs)
	}
	sort.Slice(summary.Groups, func(i, j int) bool {
		gi, gj := summary.Groups[i], summary.Groups[j]
		if gi.Scenario != gj.Scenario {
			return gi.Scenario < gj.Scenario
		}
		return gi.Operation < gj.Operation
	})

	return summary
}

// Histogram bounds in microseconds. Samples above the ceiling are clamped.
const (
	histogramMin     = 1
	histogramMax     = int64(time.Hour / time.Microsecond)
	histogramSigFigs = 3
)

// latencyHistogram tracks a latency distribution in constant memory. Count,
// min, max and the mean are exact; percentiles are accurate to the
// histogram's significant figures.
type latencyHistogram struct {
	hist  *hdrhistogram.Histogram
	count int
	min   time.Duration
	max   time.Duration
	sum   time.Duration
}

func newLatencyHistogram() *latencyHistogram {
	return &latencyHistogram{hist: hdrhistogram.New(histogramMin, histogramMax, histogramSigFigs)}
}

func (h *latencyHistogram) record(d time.Duration) {
	if d < 0 {
		d = 0
	}
	us := int64(d / time.Microsecond)
	if us > histogramMax {
		us = histogramMax
	}
	_ = h.hist.RecordValue(us)

	if h.count == 0 || d < h.min {
		h.min = d
	}
	if d > h.max {
		h.max = d
	}
	h.sum += d
	h.count++
}

// stats computes latency statistics.
func (h *latencyHistogram) stats() LatencyStats {
	if h.count == 0 {
		return LatencyStats{}
	}
	return LatencyStats{
		Count: h.count,
		Min:   h.min,
		Max:   h.max,
		Avg:   h.sum / time.Duration(h.count),
		P50:   h.quantile(50),
		P95:   h.quantile(95),
		P99:   h.quantile(99),
	}
}

func (h *latencyHistogram) quantile(percent float64) time.Duration {
	d := time.Duration(h.hist.ValueAtQuantile(percent)) * time.Microsecond
	if d < h.min {
		return h.min
	}
	if d > h.max {
		return h.max
	}
	return d
}

func millisToDuration(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
