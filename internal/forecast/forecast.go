// Package forecast computes Layer 4: short-horizon projections whose
// confidence never exceeds what the inputs support.
package forecast

import (
	"fmt"
	"math"
	"sort"
	"time"

	"booking-insights-go/internal/ratio"
	"booking-insights-go/internal/types"
)

const (
	band30Days = 0.15
	band90Days = 0.225

	atRiskAfterDays    = 90
	returnWindowStart  = 30
	returnWindowEnd    = 60
	returnProbability  = 65.0
	customerListLimit  = 20
	voucherMonthlyPace = 0.25
)

// Project builds the Layer 4 predictions. now is the run date used for
// customer recency.
func Project(raw types.RawFacts, derived types.DerivedMetrics, ds types.Datasets, period types.Period, now time.Time) types.Predictions {
	return types.Predictions{
		Revenue:          revenueForecast(raw, derived, period),
		Bookings:         bookingForecast(raw, derived, period),
		CapacityFill:     capacityFill(derived),
		Customers:        customerForecast(ds, now),
		SelloutDates:     selloutDates(ds),
		LowDemandPeriods: lowDemandPeriods(ds),
		Vouchers:         voucherForecast(raw, derived),
	}
}

// growthFactor applies only positive growth; flat or declining trends
// project the current rate.
func growthFactor(pct float64) float64 {
	if pct > 0 {
		return 1 + pct/100
	}
	return 1
}

func revenueForecast(raw types.RawFacts, derived types.DerivedMetrics, period types.Period) types.RevenueForecast {
	days := period.Days()
	daily := ratio.Divide(raw.Revenue.GrossRevenue.Value, float64(days))
	factor := growthFactor(derived.Growth.RevenueGrowth.Value)
	sample := raw.Revenue.TransactionCount.Value

	project := func(horizon int, band, confidence float64) types.Insight[types.Band] {
		expected := daily * float64(horizon) * factor
		return types.NewInsight(types.Band{
			Expected: expected,
			Low:      expected * (1 - band),
			High:     expected * (1 + band),
		}, types.SourceTransactions).
			WithCalculation(fmt.Sprintf("daily_rate * %d * (1 + max(revenue_growth, 0)/100), band +/-%.1f%%", horizon, band*100)).
			WithSample(sample).WithConfidence(confidence)
	}

	return types.RevenueForecast{
		DailyRate: types.NewInsight(daily, types.SourceTransactions).
			WithCalculation(fmt.Sprintf("gross_revenue / %d days", days)).
			WithRange(period.DateRange()).WithSample(sample),
		Next30Days: project(30, band30Days, 0.75),
		Next90Days: project(90, band90Days, 0.65),
	}
}

func bookingForecast(raw types.RawFacts, derived types.DerivedMetrics, period types.Period) types.BookingForecast {
	days := period.Days()
	total := raw.Bookings.TotalBookings.Value
	daily := ratio.Divide(float64(total), float64(days))
	factor := growthFactor(derived.Growth.BookingGrowth.Value)

	project := func(horizon int, confidence float64) types.Insight[float64] {
		return types.NewInsight(daily*float64(horizon)*factor, types.SourceBookings).
			WithCalculation(fmt.Sprintf("daily_bookings * %d * (1 + max(booking_growth, 0)/100)", horizon)).
			WithSample(total).WithConfidence(confidence)
	}

	return types.BookingForecast{
		DailyRate: types.NewInsight(daily, types.SourceBookings).
			WithCalculation(fmt.Sprintf("total_bookings / %d days", days)).
			WithRange(period.DateRange()).WithSample(total),
		Next7Days:  project(7, 0.8),
		Next30Days: project(30, 0.75),
		Next90Days: project(90, 0.65),
	}
}

func capacityFill(derived types.DerivedMetrics) types.Insight[map[string]float64] {
	out := make(map[string]float64, len(derived.ActivityPerformance))
	sample := 0
	for activity, perf := range derived.ActivityPerformance {
		out[activity] = math.Min(100, perf.CapacityUtilization.Value*(1+perf.BookingGrowth.Value/100))
		sample += perf.CapacityUtilization.Sample()
	}
	return types.NewInsight(out, types.SourceBookings, types.SourceAvailability).
		WithCalculation("min(100, utilization * (1 + activity_booking_growth/100))").
		WithSample(sample)
}

// --------------------------------------------
// Customers
// --------------------------------------------

type history struct {
	email string
	last  time.Time
	clv   float64
}

func customerHistories(ds types.Datasets) []history {
	cat := types.NewCatalog(ds)
	byEmail := map[string]*history{}
	for _, b := range ds.Bookings {
		e := cat.Email(b)
		if e == "" {
			continue
		}
		h := byEmail[e]
		if h == nil {
			h = &history{email: e}
			byEmail[e] = h
		}
		h.clv += b.Revenue
		if b.Date.After(h.last) {
			h.last = b.Date
		}
	}
	out := make([]history, 0, len(byEmail))
	for _, h := range byEmail {
		if !h.last.IsZero() {
			out = append(out, *h)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].clv != out[j].clv {
			return out[i].clv > out[j].clv
		}
		return out[i].email < out[j].email
	})
	return out
}

func customerForecast(ds types.Datasets, now time.Time) types.CustomerForecast {
	histories := customerHistories(ds)
	atRisk := []types.AtRiskCustomer{}
	returning := []types.ReturnCandidate{}
	for _, h := range histories {
		days := types.DaysBetween(h.last, now)
		switch {
		case days > atRiskAfterDays:
			if len(atRisk) < customerListLimit {
				atRisk = append(atRisk, types.AtRiskCustomer{
					Email:                h.email,
					LastBooking:          h.last.Format(types.DateLayout),
					DaysSinceLastBooking: days,
					CLV:                  h.clv,
				})
			}
		case days >= returnWindowStart && days <= returnWindowEnd:
			if len(returning) < customerListLimit {
				returning = append(returning, types.ReturnCandidate{
					Email:                h.email,
					LastBooking:          h.last.Format(types.DateLayout),
					DaysSinceLastBooking: days,
					CLV:                  h.clv,
					ReturnProbability:    returnProbability,
					ExpectedRevenue:      h.clv * returnProbability / 100,
				})
			}
		}
	}

	rng := types.DateRange{StartDate: now.Format(types.DateLayout), EndDate: now.Format(types.DateLayout)}
	return types.CustomerForecast{
		AtRisk: types.NewInsight(atRisk, types.SourceBookings, types.SourceCustomers).
			WithCalculation(fmt.Sprintf("customers whose last booking is > %d days before run date, by booking CLV, top %d", atRiskAfterDays, customerListLimit)).
			WithRange(rng).WithSample(len(histories)),
		LikelyToReturn: types.NewInsight(returning, types.SourceBookings, types.SourceCustomers).
			WithCalculation(fmt.Sprintf("customers whose last booking is %d-%d days before run date; probability fixed at %.0f%%", returnWindowStart, returnWindowEnd, returnProbability)).
			WithRange(rng).WithSample(len(histories)).WithConfidence(returnProbability / 100),
	}
}

// --------------------------------------------
// Placeholders
// --------------------------------------------

func selloutDates(ds types.Datasets) types.Insight[[]types.SelloutPrediction] {
	return types.NewInsight([]types.SelloutPrediction{}, types.SourceFutureBookings, types.SourceAvailability).
		WithCalculation("placeholder: seasonal sellout model not implemented").
		WithSample(len(ds.FutureBookings)).WithConfidence(0)
}

func lowDemandPeriods(ds types.Datasets) types.Insight[[]string] {
	return types.NewInsight([]string{}, types.SourceFutureBookings).
		WithCalculation("placeholder: seasonal demand model not implemented").
		WithSample(len(ds.FutureBookings)).WithConfidence(0)
}

func voucherForecast(raw types.RawFacts, derived types.DerivedMetrics) types.VoucherForecast {
	activeCount := float64(raw.Vouchers.ActiveCount.Value)
	activeValue := raw.Vouchers.ActiveValue.Value
	redemption := derived.Vouchers.RedemptionRate.Value / 100
	breakage := derived.Vouchers.BreakageRate.Value / 100
	sample := raw.Vouchers.ActiveCount.Value

	src := []string{types.SourceVouchers}
	return types.VoucherForecast{
		ExpectedRedemptions30Days: types.NewInsight(activeCount*redemption*voucherMonthlyPace, src...).
			WithCalculation("active_count * redemption_rate * 0.25").WithSample(sample),
		ExpectedRedemptionValue30Days: types.NewInsight(activeValue*redemption*voucherMonthlyPace, src...).
			WithCalculation("active_value * redemption_rate * 0.25").WithSample(sample),
		ExpectedBreakage: types.NewInsight(activeCount*breakage, src...).
			WithCalculation("active_count * breakage_rate").WithSample(sample),
		Liability: types.NewInsight(activeValue*(1-breakage), src...).
			WithCalculation("active_value * (1 - breakage_rate)").WithSample(sample),
	}
}
