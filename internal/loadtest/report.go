// internal/loadtest/report.go
package loadtest

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/FairForge/kvbench/internal/models"
)

// WriteReport prints a human readable summary
func WriteReport(w io.Writer, s *Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "Run duration:\t%s\n", s.EndTime.Sub(s.StartTime).Round(time.Millisecond))
	fmt.Fprintf(tw, "Scenarios:\t%d (%d succeeded, %d failed)\n", s.TotalScenarios, s.SuccessCount, s.FailureCount)
	fmt.Fprintf(tw, "Error rate:\t%.2f%%\n", s.ErrorRate*100)
	fmt.Fprintf(tw, "Throughput:\t%.2f scenarios/s\n", s.ScenariosPerSec)
	fmt.Fprintf(tw, "Latency:\tp50 %s  p95 %s  p99 %s  max %s\n",
		s.Latency.P50, s.Latency.P95, s.Latency.P99, s.Latency.Max)

	if len(s.Groups) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "SCENARIO\tOPERATION\tCOUNT\tFAILED\tP50\tP95\tP99")
		for _, g := range s.Groups {
			lat := g.Phases[models.PhaseSimulation]
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
				g.Scenario, g.Operation, g.Total(), g.FailureCount, lat.P50, lat.P95, lat.P99)
		}
	}
	return tw.Flush()
}
