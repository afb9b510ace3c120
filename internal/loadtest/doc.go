// Package loadtest turns the records of a simulation run into an end-of-run
// report.
//
// Aggregator is a publisher sink. After the run its Summary gives totals,
// error rate, throughput and simulationTime percentiles, overall and per
// scenario and operation:
//
//	agg := loadtest.NewAggregator()
//	// ... publish records into agg ...
//	summary := agg.Summary()
//	_ = loadtest.WriteReport(os.Stdout, summary)
//
// Objectives can be checked against the summary:
//
//	result := loadtest.Validate(summary,
//	    loadtest.NewLatencySLO(loadtest.MetricLatencyP99, 500),
//	    loadtest.NewErrorRateSLO(1))
//	fmt.Print(result.GenerateReport())
package loadtest
