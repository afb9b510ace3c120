// internal/loadtest/sla.go
package loadtest

import (
	"fmt"
	"strings"
)

// SLOMetric identifies what an objective measures
type SLOMetric string

const (
	MetricLatencyP50 SLOMetric = "latency_p50"
	MetricLatencyP95 SLOMetric = "latency_p95"
	MetricLatencyP99 SLOMetric = "latency_p99"
	MetricLatencyMax SLOMetric = "latency_max"
	MetricErrorRate  SLOMetric = "error_rate"
	MetricThroughput SLOMetric = "throughput"
)

// Comparator defines how to compare metric against target.
type Comparator string

const (
	ComparatorLessOrEqual    Comparator = "<="
	ComparatorGreaterOrEqual Comparator = ">="
)

// SLO is one measurable target of a run. Latencies are milliseconds of
// simulationTime, error rate is a percentage, throughput is scenarios/s.
type SLO struct {
	Name       string
	Metric     SLOMetric
	Target     float64
	Comparator Comparator
}

// SLOResult captures the result of a single SLO check.
type SLOResult struct {
	SLO         SLO
	ActualValue float64
	TargetMet   bool
	Margin      float64 // negative when missed
}

// SLAResult captures the result of validating a run.
type SLAResult struct {
	ObjectiveResults []SLOResult
	OverallPass      bool
}

// NewLatencySLO creates an upper bound on a simulationTime percentile
func NewLatencySLO(metric SLOMetric, targetMs float64) SLO {
	return SLO{
		Name:       strings.ReplaceAll(string(metric), "_", " "),
		Metric:     metric,
		Target:     targetMs,
		Comparator: ComparatorLessOrEqual,
	}
}

// NewErrorRateSLO creates an upper bound on the failure percentage
func NewErrorRateSLO(targetPercent float64) SLO {
	return SLO{Name: "error rate", Metric: MetricErrorRate, Target: targetPercent, Comparator: ComparatorLessOrEqual}
}

// NewThroughputSLO creates a lower bound on scenarios per second
func NewThroughputSLO(target float64) SLO {
	return SLO{Name: "throughput", Metric: MetricThroughput, Target: target, Comparator: ComparatorGreaterOrEqual}
}

// Validate checks summary against every objective
func Validate(summary *Summary, objectives ...SLO) *SLAResult {
	result := &SLAResult{
		ObjectiveResults: make([]SLOResult, 0, len(objectives)),
		OverallPass:      true,
	}
	for _, slo := range objectives {
		r := checkSLO(slo, summary)
		result.ObjectiveResults = append(result.ObjectiveResults, r)
		if !r.TargetMet {
			result.OverallPass = false
		}
	}
	return result
}

func checkSLO(slo SLO, summary *Summary) SLOResult {
	result := SLOResult{SLO: slo}

	switch slo.Metric {
	case MetricLatencyP50:
		result.ActualValue = millis(summary.Latency.P50)
	case MetricLatencyP95:
		result.ActualValue = millis(summary.Latency.P95)
	case MetricLatencyP99:
		result.ActualValue = millis(summary.Latency.P99)
	case MetricLatencyMax:
		result.ActualValue = millis(summary.Latency.Max)
	case MetricErrorRate:
		result.ActualValue = summary.ErrorRate * 100
	case MetricThroughput:
		result.ActualValue = summary.ScenariosPerSec
	}

	switch slo.Comparator {
	case ComparatorLessOrEqual:
		result.TargetMet = result.ActualValue <= slo.Target
		result.Margin = slo.Target - result.ActualValue
	case ComparatorGreaterOrEqual:
		result.TargetMet = result.ActualValue >= slo.Target
		result.Margin = result.ActualValue - slo.Target
	}
	return result
}

// GenerateReport creates a human-readable validation report.
func (r *SLAResult) GenerateReport() string {
	var b strings.Builder

	status := "PASS"
	if !r.OverallPass {
		status = "FAIL"
	}
	fmt.Fprintf(&b, "Objectives: %s (%d/%d met)\n", status, r.countPassed(), len(r.ObjectiveResults))
	for _, res := range r.ObjectiveResults {
		mark := "ok"
		if !res.TargetMet {
			mark = fmt.Sprintf("MISSED by %.2f", -res.Margin)
		}
		fmt.Fprintf(&b, "  %s: %.2f %s %.2f %s\n",
			res.SLO.Name, res.ActualValue, res.SLO.Comparator, res.SLO.Target, mark)
	}
	return b.String()
}

func (r *SLAResult) countPassed() int {
	count := 0
	for _, res := range r.ObjectiveResults {
		if res.TargetMet {
			count++
		}
	}
	return count
}

// GetAllFailed returns all failed SLOs.
func (r *SLAResult) GetAllFailed() []SLOResult {
	failed := make([]SLOResult, 0)
	for _, res := range r.ObjectiveResults {
		if !res.TargetMet {
			failed = append(failed, res)
		}
	}
	return failed
}
