// Package metrics computes Layer 2: ratios, growth rates and per-activity
// performance derived from Layer 1 facts, the raw datasets and the optional
// previous-period datasets.
package metrics

import (
	"fmt"

	"booking-insights-go/internal/ratio"
	"booking-insights-go/internal/types"
)

// Placeholders pending real tracking data. Reported with low confidence.
const (
	placeholderDaysToRedemption    = 30
	placeholderDaysBetweenBookings = 45
	placeholderConfidence          = 0.1
)

const (
	peakHourCount   = 3
	revenueDayCount = 5
)

// Calculate derives Layer 2 metrics.
func Calculate(raw types.RawFacts, ds types.Datasets) types.DerivedMetrics {
	cat := types.NewCatalog(ds)
	return types.DerivedMetrics{
		Efficiency:          efficiency(raw),
		Growth:              growth(raw, ds),
		Customers:           customers(raw, ds, cat),
		ActivityPerformance: activityPerformance(raw, ds, cat),
		TimePatterns:        timePatterns(raw, ds),
		Vouchers:            vouchers(raw),
	}
}

func efficiency(raw types.RawFacts) types.EfficiencyMetrics {
	gross := raw.Revenue.GrossRevenue.Value
	bookings := raw.Bookings.TotalBookings.Value
	capacity := raw.Capacity.TotalCapacity.Value
	guests := raw.Guests.TotalGuests.Value
	txs := raw.Revenue.TransactionCount.Value
	slots := raw.Capacity.TotalCapacity.Sample()

	rev := []string{types.SourceTransactions}
	return types.EfficiencyMetrics{
		CapacityUtilization: types.NewInsight(ratio.Percent(float64(raw.Capacity.SlotsBooked.Value), float64(capacity)), types.SourceAvailability).
			WithCalculation("slots_booked / total_capacity * 100").WithSample(raw.Capacity.TotalCapacity.Sample()),
		RevenuePerAvailableSlot: types.NewInsight(ratio.Divide(gross, float64(capacity)), types.SourceTransactions, types.SourceAvailability).
			WithCalculation("gross_revenue / total_capacity; sample = transactions + availability instances").WithSample(txs + slots),
		RevenuePerBooking: types.NewInsight(ratio.Divide(gross, float64(bookings)), types.SourceTransactions, types.SourceBookings).
			WithCalculation("gross_revenue / total_bookings; sample = transactions + bookings").WithSample(txs + bookings),
		RevenuePerGuest: types.NewInsight(ratio.Divide(gross, float64(guests)), types.SourceTransactions, types.SourceBookings).
			WithCalculation("gross_revenue / total_guests; sample = transactions + bookings").WithSample(txs + bookings),
		DiscountCostPercent: types.NewInsight(ratio.Percent(raw.Revenue.Discounts.Value, gross), rev...).
			WithCalculation("discounts / gross_revenue * 100").WithSample(txs),
		RefundPercent: types.NewInsight(ratio.Percent(raw.Revenue.Refunds.Value, gross), rev...).
			WithCalculation("refunds / gross_revenue * 100").WithSample(txs),
		NoShowPercent: types.NewInsight(ratio.Percent(float64(raw.Bookings.NoShows.Value), float64(bookings)), types.SourceBookings).
			WithCalculation("no_shows / total_bookings * 100").WithSample(bookings),
	}
}

func growth(raw types.RawFacts, ds types.Datasets) types.GrowthMetrics {
	unique := raw.Customers.UniqueCustomers.Value
	acquisition := types.NewInsight(ratio.Percent(float64(raw.Customers.NewCustomers.Value), float64(unique)),
		types.SourceTransactions, types.SourceCustomers).
		WithCalculation("new_customers / unique_customers * 100").WithSample(unique)

	if ds.Previous == nil {
		none := func(calc string) types.Insight[float64] {
			return types.NewInsight(0.0).WithCalculation(calc + " (no comparison period supplied)").
				WithSample(0).WithConfidence(0)
		}
		return types.GrowthMetrics{
			RevenueGrowth:          none("pct_change(gross_revenue)"),
			BookingGrowth:          none("pct_change(total_bookings)"),
			GuestGrowth:            none("pct_change(total_guests)"),
			NewCustomerAcquisition: acquisition,
			CustomerRetention:      none("|current ∩ previous customers| / |previous customers| * 100"),
		}
	}

	prev := ds.Previous
	prevGross := 0.0
	for _, t := range prev.Transactions {
		prevGross += t.Gross
	}
	prevGuests := 0
	for _, b := range prev.Bookings {
		prevGuests += b.Guests()
	}
	current, previous := customerSets(ds)
	retained := intersect(current, previous)

	return types.GrowthMetrics{
		RevenueGrowth: types.NewInsight(ratio.Change(raw.Revenue.GrossRevenue.Value, prevGross),
			types.SourceTransactions, types.SourcePreviousTransactions).
			WithCalculation("(gross_revenue - previous_gross_revenue) / previous_gross_revenue * 100").
			WithSample(len(ds.Transactions) + len(prev.Transactions)),
		BookingGrowth: types.NewInsight(ratio.Change(float64(raw.Bookings.TotalBookings.Value), float64(len(prev.Bookings))),
			types.SourceBookings, types.SourcePreviousBookings).
			WithCalculation("(total_bookings - previous_total_bookings) / previous_total_bookings * 100").
			WithSample(len(ds.Bookings) + len(prev.Bookings)),
		GuestGrowth: types.NewInsight(ratio.Change(float64(raw.Guests.TotalGuests.Value), float64(prevGuests)),
			types.SourceBookings, types.SourcePreviousBookings).
			WithCalculation("(total_guests - previous_total_guests) / previous_total_guests * 100").
			WithSample(len(ds.Bookings) + len(prev.Bookings)),
		NewCustomerAcquisition: acquisition,
		CustomerRetention: types.NewInsight(ratio.Percent(float64(retained), float64(len(previous))),
			types.SourceTransactions, types.SourcePreviousTransactions).
			WithCalculation("|current ∩ previous customers| / |previous customers| * 100").
			WithSample(len(previous)),
	}
}

// customerSets returns the distinct customer emails of the current and
// previous transactions.
func customerSets(ds types.Datasets) (map[string]bool, map[string]bool) {
	current := emailSet(ds.Transactions)
	previous := map[string]bool{}
	if ds.Previous != nil {
		previous = emailSet(ds.Previous.Transactions)
	}
	return current, previous
}

func emailSet(txs []types.Transaction) map[string]bool {
	out := map[string]bool{}
	for _, t := range txs {
		if e := types.NormalizeEmail(t.CustomerEmail); e != "" {
			out[e] = true
		}
	}
	return out
}

func intersect(a, b map[string]bool) int {
	n := 0
	for k := range b {
		if a[k] {
			n++
		}
	}
	return n
}

func customers(raw types.RawFacts, ds types.Datasets, cat types.Catalog) types.CustomerMetrics {
	unique := raw.Customers.UniqueCustomers.Value
	perCustomer := map[string]int{}
	for _, b := range ds.Bookings {
		if e := cat.Email(b); e != "" {
			perCustomer[e]++
		}
	}
	repeat := 0
	for _, n := range perCustomer {
		if n >= 2 {
			repeat++
		}
	}

	churn := types.NewInsight(0.0).WithCalculation("(previous_customers - retained) / previous_customers * 100 (no comparison period supplied)").
		WithSample(0).WithConfidence(0)
	if ds.Previous != nil {
		current, previous := customerSets(ds)
		retained := intersect(current, previous)
		churn = types.NewInsight(ratio.Percent(float64(len(previous)-retained), float64(len(previous))),
			types.SourceTransactions, types.SourcePreviousTransactions).
			WithCalculation("(previous_customers - retained) / previous_customers * 100").
			WithSample(len(previous))
	}

	return types.CustomerMetrics{
		AverageCLV: types.NewInsight(ratio.Divide(raw.Revenue.GrossRevenue.Value, float64(unique)), types.SourceTransactions).
			WithCalculation("gross_revenue / unique_customers").WithSample(unique),
		RepeatCustomerPercent: types.NewInsight(ratio.Percent(float64(repeat), float64(len(perCustomer))), types.SourceBookings, types.SourceCustomers).
			WithCalculation("customers with >= 2 bookings / customers with bookings * 100").WithSample(len(perCustomer)),
		ChurnPercent: churn,
		AverageDaysBetweenBookings: types.NewInsight(float64(placeholderDaysBetweenBookings), types.SourceBookings).
			WithCalculation("placeholder pending booking-interval tracking").WithSample(0).WithConfidence(placeholderConfidence),
	}
}

// activityPerformance reports per-activity figures. Profit margin allocates
// the dataset-wide discount and refund totals to each activity by its share
// of activity revenue; it is an estimate, not a measured per-activity margin.
func activityPerformance(raw types.RawFacts, ds types.Datasets, cat types.Catalog) map[string]types.ActivityPerformance {
	bookingsBy := raw.Activities.BookingsByActivity.Value
	revenueBy := raw.Activities.RevenueByActivity.Value
	capacityBy := raw.Activities.CapacityByActivity.Value

	totalRevenue := ratio.Sum(revenueBy)
	discounts := raw.Revenue.Discounts.Value
	refunds := raw.Revenue.Refunds.Value

	var prevBy map[string]int
	if ds.Previous != nil {
		prevBy = map[string]int{}
		for _, b := range ds.Previous.Bookings {
			if key := cat.Activity(b.ActivityID); key != "" {
				prevBy[key]++
			}
		}
	}

	out := make(map[string]types.ActivityPerformance, len(bookingsBy))
	for activity, n := range bookingsBy {
		revenue := revenueBy[activity]
		share := ratio.Divide(revenue, totalRevenue)
		margin := ratio.Percent(revenue-discounts*share-refunds*share, revenue)

		growth := types.NewInsight(0.0).
			WithCalculation("pct_change(bookings) (no comparison period supplied)").WithSample(0).WithConfidence(0)
		if prevBy != nil {
			growth = types.NewInsight(ratio.Change(float64(n), float64(prevBy[activity])), types.SourceBookings, types.SourcePreviousBookings).
				WithCalculation("(bookings - previous_bookings) / previous_bookings * 100").WithSample(n + prevBy[activity])
		}

		out[activity] = types.ActivityPerformance{
			RevenuePerBooking: types.NewInsight(ratio.Divide(revenue, float64(n)), types.SourceBookings).
				WithCalculation("activity_revenue / activity_bookings").WithSample(n),
			ProfitMargin: types.NewInsight(margin, types.SourceTransactions, types.SourceBookings).
				WithCalculation("(revenue - discounts*share - refunds*share) / revenue * 100, share = revenue / total_activity_revenue (proportional allocation estimate)").
				WithSample(n),
			CapacityUtilization: types.NewInsight(ratio.Percent(float64(n), float64(capacityBy[activity])), types.SourceBookings, types.SourceAvailability).
				WithCalculation("activity_bookings / activity_capacity * 100").WithSample(n),
			BookingGrowth: growth,
		}
	}
	return out
}

func timePatterns(raw types.RawFacts, ds types.Datasets) types.TimePatterns {
	byHour := raw.Bookings.ByHour.Value
	total := 0
	for _, n := range byHour {
		total += n
	}
	shares := func(desc bool) []types.HourShare {
		out := []types.HourShare{}
		for _, e := range ratio.Top(byHour, peakHourCount, desc, true) {
			out = append(out, types.HourShare{Hour: e.Key, Bookings: e.Value, Share: ratio.Percent(float64(e.Value), float64(total))})
		}
		return out
	}

	byDay := map[string]float64{}
	dated := 0
	for _, t := range ds.Transactions {
		if t.Date.IsZero() {
			continue
		}
		dated++
		byDay[t.Date.Format(types.DateLayout)] += t.Gross
	}
	days := func(desc bool) []types.DayRevenue {
		out := []types.DayRevenue{}
		for _, e := range ratio.Top(byDay, revenueDayCount, desc, true) {
			out = append(out, types.DayRevenue{Date: e.Key, Revenue: e.Value})
		}
		return out
	}

	return types.TimePatterns{
		PeakHours: types.NewInsight(shares(true), types.SourceBookings).
			WithCalculation(fmt.Sprintf("top %d hours by share of bookings", peakHourCount)).WithSample(total),
		LowDemandHours: types.NewInsight(shares(false), types.SourceBookings).
			WithCalculation(fmt.Sprintf("bottom %d non-zero hours by share of bookings", peakHourCount)).WithSample(total),
		TopRevenueDays: types.NewInsight(days(true), types.SourceTransactions).
			WithCalculation(fmt.Sprintf("top %d days by sum(gross)", revenueDayCount)).WithSample(dated),
		BottomRevenueDays: types.NewInsight(days(false), types.SourceTransactions).
			WithCalculation(fmt.Sprintf("bottom %d non-zero days by sum(gross)", revenueDayCount)).WithSample(dated),
	}
}

func vouchers(raw types.RawFacts) types.VoucherPerformance {
	v := raw.Vouchers
	total := v.ActiveCount.Value + v.RedeemedCount.Value + v.ExpiredCount.Value
	return types.VoucherPerformance{
		RedemptionRate: types.NewInsight(ratio.Percent(float64(v.RedeemedCount.Value), float64(total)), types.SourceVouchers).
			WithCalculation("redeemed / (active + redeemed + expired) * 100").WithSample(total),
		BreakageRate: types.NewInsight(ratio.Percent(float64(v.ExpiredCount.Value), float64(total)), types.SourceVouchers).
			WithCalculation("expired / (active + redeemed + expired) * 100").WithSample(total),
		AverageDaysToRedemption: types.NewInsight(float64(placeholderDaysToRedemption), types.SourceVouchers).
			WithCalculation("placeholder pending voucher issue-date tracking").WithSample(0).WithConfidence(placeholderConfidence),
	}
}
