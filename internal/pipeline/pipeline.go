// internal/pipeline/pipeline.go
package pipeline

import (
	"time"

	"booking-insights-go/internal/actionable"
	"booking-insights-go/internal/aggregator"
	"booking-insights-go/internal/correlation"
	"booking-insights-go/internal/forecast"
	"booking-insights-go/internal/metrics"
	"booking-insights-go/internal/types"
)

type Options struct {
	// GeneratedAt stamps the report and is the run date for recency
	// calculations. Zero means time.Now().
	GeneratedAt time.Time
}

// Run executes the five layers over one fully-resolved set of datasets.
// Identical inputs and GeneratedAt produce identical reports.
func Run(ds types.Datasets, opts Options) types.Report {
	now := opts.GeneratedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	period := types.ResolvePeriod(ds.Bookings, now)
	raw := aggregator.Aggregate(ds, period)
	derived := metrics.Calculate(raw, ds)
	connected := correlation.Analyze(raw, derived, ds)
	predictive := forecast.Project(raw, derived, ds, period, now)
	prescriptive := actionable.Generate(raw, derived, connected, predictive)

	return types.Report{
		Raw:          raw,
		Derived:      derived,
		Connected:    connected,
		Predictive:   predictive,
		Prescriptive: prescriptive,
		GeneratedAt:  now,
		DataPeriod:   dataPeriod(ds, period),
	}
}

func dataPeriod(ds types.Datasets, period types.Period) types.DataPeriod {
	rng := period.DateRange()
	dp := types.DataPeriod{StartDate: rng.StartDate, EndDate: rng.EndDate}
	if ds.Previous == nil {
		return dp
	}
	prev := types.ResolvePeriod(ds.Previous.Bookings, time.Time{})
	if !prev.Start.IsZero() {
		cmp := prev.DateRange()
		dp.ComparisonPeriodStart = cmp.StartDate
		dp.ComparisonPeriodEnd = cmp.EndDate
	}
	return dp
}
