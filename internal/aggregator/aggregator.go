// Package aggregator extracts Layer 1 facts: sums, counts and groupings taken
// directly over the raw datasets, with no derived ratios beyond simple averages.
package aggregator

import (
	"fmt"
	"strings"
	"time"

	"booking-insights-go/internal/ratio"
	"booking-insights-go/internal/types"
)

var weekdays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// Aggregate folds the datasets into Layer 1 facts for the resolved period.
func Aggregate(ds types.Datasets, period types.Period) types.RawFacts {
	cat := types.NewCatalog(ds)
	rng := period.DateRange()
	return types.RawFacts{
		Revenue:    revenueFacts(ds.Transactions, rng),
		Bookings:   bookingFacts(ds.Bookings, rng),
		Guests:     guestFacts(ds.Bookings, rng),
		Activities: activityFacts(ds, cat, rng),
		Customers:  customerFacts(ds.Transactions, cat, rng),
		Vouchers:   voucherFacts(ds.Vouchers),
		Capacity:   capacityFacts(ds.AvailabilityInstances, rng),
	}
}

func revenueFacts(txs []types.Transaction, rng types.DateRange) types.RevenueFacts {
	var gross, net, refunds, discounts float64
	for _, t := range txs {
		gross += t.Gross
		net += t.Net
		refunds += t.Refund
		discounts += t.Discount
	}
	n := len(txs)
	fact := func(v float64, calc string) types.Insight[float64] {
		return types.NewInsight(v, types.SourceTransactions).
			WithCalculation(calc).WithSample(n).WithRange(rng)
	}
	return types.RevenueFacts{
		GrossRevenue:            fact(gross, "sum(transactions.gross)"),
		NetRevenue:              fact(net, "sum(transactions.net)"),
		Refunds:                 fact(refunds, "sum(transactions.refund)"),
		Discounts:               fact(discounts, "sum(transactions.discount)"),
		TransactionCount:        types.NewInsight(n, types.SourceTransactions).WithSample(n).WithRange(rng),
		AverageTransactionValue: fact(ratio.Divide(gross, float64(n)), "gross_revenue / transaction_count"),
	}
}

func bookingFacts(bookings []types.Booking, rng types.DateRange) types.BookingFacts {
	online, cancelled, noShows := 0, 0, 0
	byDay := map[string]int{}
	for _, d := range weekdays {
		byDay[d.String()] = 0
	}
	byHour := map[int]int{}
	dated := 0
	for _, b := range bookings {
		if b.Online {
			online++
		}
		if b.Cancelled() {
			cancelled++
		}
		if b.NoShow {
			noShows++
		}
		if b.Date.IsZero() {
			continue
		}
		dated++
		byDay[b.Date.Weekday().String()]++
		byHour[b.Date.Hour()]++
	}
	n := len(bookings)
	count := func(v int, calc string) types.Insight[int] {
		return types.NewInsight(v, types.SourceBookings).WithCalculation(calc).WithSample(n).WithRange(rng)
	}
	return types.BookingFacts{
		TotalBookings:     count(n, "count(bookings)"),
		OnlineBookings:    count(online, "count(bookings where online)"),
		OperatorBookings:  count(n-online, "count(bookings where not online)"),
		CancelledBookings: count(cancelled, "count(bookings where status = cancelled)"),
		NoShows:           count(noShows, "count(bookings where no_show)"),
		ByDayOfWeek: types.NewInsight(byDay, types.SourceBookings).
			WithCalculation("count(bookings) group by weekday(date)").WithSample(dated).WithRange(rng),
		ByHour: types.NewInsight(byHour, types.SourceBookings).
			WithCalculation("count(bookings) group by hour(date)").WithSample(dated).WithRange(rng),
	}
}

func guestFacts(bookings []types.Booking, rng types.DateRange) types.GuestFacts {
	adults, children, completed, required := 0, 0, 0, 0
	for _, b := range bookings {
		adults += b.Adults
		children += b.Children
		if b.WaiverRequired {
			required++
		}
		if b.WaiverCompleted {
			completed++
		}
	}
	n := len(bookings)
	total := adults + children
	return types.GuestFacts{
		TotalGuests: types.NewInsight(total, types.SourceBookings).
			WithCalculation("sum(adults + children)").WithSample(n).WithRange(rng),
		AverageGroupSize: types.NewInsight(ratio.Divide(float64(total), float64(n)), types.SourceBookings).
			WithCalculation("total_guests / total_bookings").WithSample(n).WithRange(rng),
		AdultChildRatio: types.NewInsight(adultChildRatio(adults, children), types.SourceBookings).
			WithCalculation("sum(adults) : sum(children)").WithSample(n).WithRange(rng),
		WaiversCompleted: types.NewInsight(completed, types.SourceBookings).
			WithCalculation("count(bookings where waiver_completed)").WithSample(n).WithRange(rng),
		WaiversRequired: types.NewInsight(required, types.SourceBookings).
			WithCalculation("count(bookings where waiver_required)").WithSample(n).WithRange(rng),
	}
}

// adultChildRatio renders "<adults per child>:1", or "<adults>:0" without children.
func adultChildRatio(adults, children int) string {
	if children == 0 {
		return fmt.Sprintf("%d:0", adults)
	}
	return fmt.Sprintf("%.1f:1", float64(adults)/float64(children))
}

func activityFacts(ds types.Datasets, cat types.Catalog, rng types.DateRange) types.ActivityFacts {
	bookingsBy := map[string]int{}
	for _, b := range ds.Bookings {
		if key := cat.Activity(b.ActivityID); key != "" {
			bookingsBy[key]++
		}
	}

	revenueBy := map[string]float64{}
	revenueSource := types.SourceBookings
	revenueSample := 0
	if len(ds.ItemizedRevenue) > 0 {
		revenueSource = types.SourceItemizedRevenue
		for _, it := range ds.ItemizedRevenue {
			if key := cat.Activity(it.ActivityID); key != "" {
				revenueBy[key] += it.Amount
				revenueSample++
			}
		}
	} else {
		for _, b := range ds.Bookings {
			if key := cat.Activity(b.ActivityID); key != "" {
				revenueBy[key] += b.Revenue
				revenueSample++
			}
		}
	}

	capacityBy := map[string]int{}
	capacitySample := 0
	for _, a := range ds.AvailabilityInstances {
		if key := cat.Activity(a.ActivityID); key != "" {
			capacityBy[key] += a.Capacity
			capacitySample++
		}
	}

	booked := 0
	for _, v := range bookingsBy {
		booked += v
	}
	return types.ActivityFacts{
		ActiveInventory: types.NewInsight(len(ds.InventoryItems), types.SourceInventoryItems).
			WithCalculation("count(inventory_items)").WithSample(len(ds.InventoryItems)),
		BookingsByActivity: types.NewInsight(bookingsBy, types.SourceBookings, types.SourceInventoryItems).
			WithCalculation("count(bookings) group by activity").WithSample(booked).WithRange(rng),
		RevenueByActivity: types.NewInsight(revenueBy, revenueSource, types.SourceInventoryItems).
			WithCalculation("sum(revenue) group by activity").WithSample(revenueSample).WithRange(rng),
		CapacityByActivity: types.NewInsight(capacityBy, types.SourceAvailability, types.SourceInventoryItems).
			WithCalculation("sum(availability.capacity) group by activity").WithSample(capacitySample).WithRange(rng),
	}
}

func customerFacts(txs []types.Transaction, cat types.Catalog, rng types.DateRange) types.CustomerFacts {
	unique := map[string]bool{}
	sample := 0
	for _, t := range txs {
		e := types.NormalizeEmail(t.CustomerEmail)
		if e == "" {
			continue
		}
		sample++
		unique[e] = true
	}
	fresh := 0
	for e := range unique {
		if !cat.Known(e) {
			fresh++
		}
	}
	src := []string{types.SourceTransactions, types.SourceCustomers}
	return types.CustomerFacts{
		UniqueCustomers: types.NewInsight(len(unique), src...).
			WithCalculation("count(distinct transactions.customer_email)").WithSample(sample).WithRange(rng),
		NewCustomers: types.NewInsight(fresh, src...).
			WithCalculation("count(emails not in customer master list)").WithSample(sample).WithRange(rng),
		ReturningCustomers: types.NewInsight(len(unique)-fresh, src...).
			WithCalculation("unique_customers - new_customers").WithSample(sample).WithRange(rng),
	}
}

func voucherFacts(vouchers []types.GiftVoucher) types.VoucherFacts {
	counts := map[string]int{}
	values := map[string]float64{}
	for _, v := range vouchers {
		s := strings.ToLower(strings.TrimSpace(v.Status))
		counts[s]++
		values[s] += v.Value
	}
	count := func(status string) types.Insight[int] {
		return types.NewInsight(counts[status], types.SourceVouchers).
			WithCalculation(fmt.Sprintf("count(vouchers where status = %s)", status)).WithSample(counts[status])
	}
	value := func(status string) types.Insight[float64] {
		return types.NewInsight(values[status], types.SourceVouchers).
			WithCalculation(fmt.Sprintf("sum(vouchers.value where status = %s)", status)).WithSample(counts[status])
	}
	return types.VoucherFacts{
		ActiveCount:   count(types.VoucherActive),
		ActiveValue:   value(types.VoucherActive),
		RedeemedCount: count(types.VoucherRedeemed),
		RedeemedValue: value(types.VoucherRedeemed),
		ExpiredCount:  count(types.VoucherExpired),
		ExpiredValue:  value(types.VoucherExpired),
	}
}

func capacityFacts(slots []types.AvailabilityInstance, rng types.DateRange) types.CapacityFacts {
	capacity, booked := 0, 0
	for _, s := range slots {
		capacity += s.Capacity
		booked += s.Booked
	}
	n := len(slots)
	fact := func(v int, calc string) types.Insight[int] {
		return types.NewInsight(v, types.SourceAvailability).WithCalculation(calc).WithSample(n).WithRange(rng)
	}
	return types.CapacityFacts{
		TotalCapacity:  fact(capacity, "sum(availability.capacity)"),
		SlotsBooked:    fact(booked, "sum(availability.booked)"),
		SlotsAvailable: fact(capacity-booked, "total_capacity - slots_booked"),
	}
}
