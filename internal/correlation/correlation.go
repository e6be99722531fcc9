// Package correlation computes Layer 3: relationships that span datasets, such
// as channel value, co-booked activities, customer segments and capacity
// mismatches.
package correlation

import (
	"fmt"
	"sort"
	"strings"

	"booking-insights-go/internal/ratio"
	"booking-insights-go/internal/types"
)

const (
	largeGroupSize = 6

	vipMultiplier     = 2.0
	regularMultiplier = 0.5

	expansionUtilization = 80.0
	expansionUplift      = 0.5
	underusedUtilization = 50.0
	healthyMargin        = 70.0
	saturatedUtilization = 90.0
	idleSlotUtilization  = 20.0

	topRepeatDrivers    = 5
	topCrossSellPairs   = 5
	topSegmentActivites = 3
	topBundles          = 3
)

const (
	SegmentVIP     = "vip"
	SegmentRegular = "regular"
	SegmentNew     = "new"
)

// Analyze derives Layer 3 connections from Layers 1–2 and the raw datasets.
func Analyze(raw types.RawFacts, derived types.DerivedMetrics, ds types.Datasets) types.Connections {
	cat := types.NewCatalog(ds)
	pairs := crossSellPairs(ds.Bookings, cat)
	customers := distinctCustomers(ds.Bookings, cat)
	return types.Connections{
		RevenueDrivers:       revenueDrivers(raw, derived, ds),
		CustomerBehavior:     customerBehavior(derived, ds, cat, pairs, customers),
		CancellationPatterns: cancellationPatterns(ds.Bookings),
		CapacityOptimization: capacityOptimization(raw, derived, ds, cat, pairs, customers),
		Operations:           operations(raw, ds),
	}
}

// --------------------------------------------
// Revenue drivers
// --------------------------------------------

func revenueDrivers(raw types.RawFacts, derived types.DerivedMetrics, ds types.Datasets) types.RevenueDrivers {
	revenueBy := raw.Activities.RevenueByActivity.Value
	total := ratio.Sum(revenueBy)
	top, topRevenue := "", 0.0
	if best := ratio.Top(revenueBy, 1, true, true); len(best) == 1 {
		top, topRevenue = best[0].Key, best[0].Value
	}
	activitySrc := raw.Activities.RevenueByActivity.Metadata.Source
	activitySample := raw.Activities.RevenueByActivity.Sample()

	var onlineSum, operatorSum float64
	var online, operator int
	for _, b := range ds.Bookings {
		if b.Online {
			onlineSum += b.Revenue
			online++
		} else {
			operatorSum += b.Revenue
			operator++
		}
	}
	onlineAvg := ratio.Divide(onlineSum, float64(online))
	operatorAvg := ratio.Divide(operatorSum, float64(operator))
	gap := types.NewInsight(ratio.Change(onlineAvg, operatorAvg), types.SourceBookings).
		WithCalculation("(online_average_value - operator_average_value) / operator_average_value * 100").
		WithSample(len(ds.Bookings))
	if online == 0 || operator == 0 {
		gap = types.NewInsight(0.0, types.SourceBookings).
			WithCalculation("channel gap requires bookings on both channels").
			WithSample(len(ds.Bookings)).WithConfidence(0)
	}

	return types.RevenueDrivers{
		TopActivity: types.NewInsight(top, activitySrc...).
			WithCalculation("argmax(revenue_by_activity)").WithSample(activitySample),
		TopActivityShare: types.NewInsight(ratio.Percent(topRevenue, total), activitySrc...).
			WithCalculation("top_activity_revenue / sum(revenue_by_activity) * 100").WithSample(activitySample),
		OnlineAverageValue: types.NewInsight(onlineAvg, types.SourceBookings).
			WithCalculation("sum(online booking revenue) / online bookings").WithSample(online),
		OperatorAverageValue: types.NewInsight(operatorAvg, types.SourceBookings).
			WithCalculation("sum(operator booking revenue) / operator bookings").WithSample(operator),
		ChannelValueGap: gap,
		GroupSizeImpact:  groupSizeImpact(ds.Bookings),
		DiscountImpact:   discountImpact(ds.Transactions, derived.Efficiency.DiscountCostPercent.Value),
	}
}

func groupSizeImpact(bookings []types.Booking) types.Insight[string] {
	var largeSum, smallSum float64
	var large, small int
	for _, b := range bookings {
		if b.Guests() >= largeGroupSize {
			largeSum += b.Revenue
			large++
		} else {
			smallSum += b.Revenue
			small++
		}
	}
	largeAvg := ratio.Divide(largeSum, float64(large))
	smallAvg := ratio.Divide(smallSum, float64(small))

	var text string
	switch {
	case large == 0 || small == 0:
		text = "Insufficient data to compare group sizes"
	case largeAvg >= smallAvg:
		text = fmt.Sprintf("Groups of %d+ generate %.1f%% more revenue per booking than smaller groups",
			largeGroupSize, ratio.Change(largeAvg, smallAvg))
	default:
		text = fmt.Sprintf("Smaller groups generate %.1f%% more revenue per booking than groups of %d+",
			ratio.Change(smallAvg, largeAvg), largeGroupSize)
	}
	return types.NewInsight(text, types.SourceBookings).
		WithCalculation(fmt.Sprintf("avg revenue of bookings with >= %d guests vs < %d guests", largeGroupSize, largeGroupSize)).
		WithSample(len(bookings))
}

func discountImpact(txs []types.Transaction, discountCost float64) types.Insight[string] {
	discounted := 0
	for _, t := range txs {
		if t.Discount > 0 {
			discounted++
		}
	}
	share := ratio.Percent(float64(discounted), float64(len(txs)))
	text := "No transactions to assess discount impact"
	if len(txs) > 0 {
		text = fmt.Sprintf("%.1f%% of transactions were discounted, costing %.1f%% of gross revenue", share, discountCost)
	}
	return types.NewInsight(text, types.SourceTransactions).
		WithCalculation("discounted transactions / transactions vs discount_cost_percent").
		WithSample(len(txs))
}

// --------------------------------------------
// Customer behavior
// --------------------------------------------

type pair struct {
	activities [2]string
	frequency  int
}

// crossSellPairs counts, per customer, every unordered pair of distinct
// activities booked. Pairs are keyed by sorted names so (A,B) == (B,A).
func crossSellPairs(bookings []types.Booking, cat types.Catalog) []pair {
	perCustomer := map[string]map[string]bool{}
	for _, b := range bookings {
		e, activity := cat.Email(b), cat.Activity(b.ActivityID)
		if e == "" || activity == "" {
			continue
		}
		if perCustomer[e] == nil {
			perCustomer[e] = map[string]bool{}
		}
		perCustomer[e][activity] = true
	}

	counts := map[string]*pair{}
	for _, set := range perCustomer {
		if len(set) < 2 {
			continue
		}
		names := make([]string, 0, len(set))
		for n := range set {
			names = append(names, n)
		}
		sort.Strings(names)
		for i := 0; i < len(names); i++ {
			for j := i + 1; j < len(names); j++ {
				key := names[i] + "\x00" + names[j]
				if counts[key] == nil {
					counts[key] = &pair{activities: [2]string{names[i], names[j]}}
				}
				counts[key].frequency++
			}
		}
	}

	out := make([]pair, 0, len(counts))
	for _, p := range counts {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].frequency != out[j].frequency {
			return out[i].frequency > out[j].frequency
		}
		if out[i].activities[0] != out[j].activities[0] {
			return out[i].activities[0] < out[j].activities[0]
		}
		return out[i].activities[1] < out[j].activities[1]
	})
	return out
}

func distinctCustomers(bookings []types.Booking, cat types.Catalog) int {
	seen := map[string]bool{}
	for _, b := range bookings {
		if e := cat.Email(b); e != "" {
			seen[e] = true
		}
	}
	return len(seen)
}

func customerBehavior(derived types.DerivedMetrics, ds types.Datasets, cat types.Catalog, pairs []pair, customers int) types.CustomerBehavior {
	perCustomerActivity := map[[2]string]int{}
	for _, b := range ds.Bookings {
		e, activity := cat.Email(b), cat.Activity(b.ActivityID)
		if e == "" || activity == "" {
			continue
		}
		perCustomerActivity[[2]string{e, activity}]++
	}
	repeatBy := map[string]int{}
	for k, n := range perCustomerActivity {
		if n >= 2 {
			repeatBy[k[1]]++
		}
	}
	drivers := []types.ActivityRate{}
	for _, e := range ratio.Top(repeatBy, topRepeatDrivers, true, true) {
		drivers = append(drivers, types.ActivityRate{
			Activity: e.Key,
			Count:    e.Value,
			Rate:     ratio.Percent(float64(e.Value), float64(customers)),
		})
	}

	cross := []types.CrossSellPair{}
	for i := 0; i < len(pairs) && i < topCrossSellPairs; i++ {
		cross = append(cross, types.CrossSellPair{Activities: pairs[i].activities, Frequency: pairs[i].frequency})
	}

	return types.CustomerBehavior{
		RepeatBookingDrivers: types.NewInsight(drivers, types.SourceBookings, types.SourceCustomers).
			WithCalculation("count((customer, activity) with >= 2 bookings) / distinct customers * 100, top 5").
			WithSample(customers),
		CrossSellPatterns: types.NewInsight(cross, types.SourceBookings, types.SourceInventoryItems).
			WithCalculation("count(customers booking both activities), top 5").
			WithSample(customers),
		SegmentPreferences: segmentPreferences(derived.Customers.AverageCLV.Value, ds.Bookings, cat),
	}
}

// Segment classifies a customer value against the run's average CLV. The
// boundaries are strict: exactly 2× average is regular, exactly 0.5× is new.
func Segment(clv, averageCLV float64) string {
	switch {
	case clv > vipMultiplier*averageCLV:
		return SegmentVIP
	case clv > regularMultiplier*averageCLV:
		return SegmentRegular
	default:
		return SegmentNew
	}
}

func segmentPreferences(averageCLV float64, bookings []types.Booking, cat types.Catalog) types.Insight[map[string][]types.ActivityCount] {
	clv := map[string]float64{}
	for _, b := range bookings {
		if e := cat.Email(b); e != "" {
			clv[e] += b.Revenue
		}
	}
	counts := map[string]map[string]int{
		SegmentVIP:     {},
		SegmentRegular: {},
		SegmentNew:     {},
	}
	sample := 0
	for _, b := range bookings {
		e, activity := cat.Email(b), cat.Activity(b.ActivityID)
		if e == "" || activity == "" {
			continue
		}
		sample++
		counts[Segment(clv[e], averageCLV)][activity]++
	}
	out := map[string][]types.ActivityCount{}
	for seg, m := range counts {
		list := []types.ActivityCount{}
		for _, e := range ratio.Top(m, topSegmentActivites, true, true) {
			list = append(list, types.ActivityCount{Activity: e.Key, Bookings: e.Value})
		}
		out[seg] = list
	}
	return types.NewInsight(out, types.SourceBookings, types.SourceTransactions).
		WithCalculation(fmt.Sprintf("segment by customer booking revenue vs average CLV %.2f (vip > 2x, regular > 0.5x), top 3 activities", averageCLV)).
		WithSample(sample)
}

func cancellationPatterns(bookings []types.Booking) types.Insight[map[string]float64] {
	total := map[string]int{types.ChannelOnline: 0, types.ChannelOperator: 0}
	cancelled := map[string]int{}
	for _, b := range bookings {
		total[b.Channel()]++
		if b.Cancelled() {
			cancelled[b.Channel()]++
		}
	}
	out := map[string]float64{}
	for ch, n := range total {
		out[ch] = ratio.Percent(float64(cancelled[ch]), float64(n))
	}
	return types.NewInsight(out, types.SourceBookings).
		WithCalculation("cancelled / total bookings * 100 per channel").WithSample(len(bookings))
}

// --------------------------------------------
// Capacity optimization
// --------------------------------------------

func capacityOptimization(raw types.RawFacts, derived types.DerivedMetrics, ds types.Datasets, cat types.Catalog, pairs []pair, customers int) types.CapacityOptimization {
	bookingsBy := raw.Activities.BookingsByActivity.Value
	activities := make([]string, 0, len(derived.ActivityPerformance))
	for a := range derived.ActivityPerformance {
		activities = append(activities, a)
	}
	sort.Strings(activities)

	expansion := []types.ExpansionOpportunity{}
	pricing := []types.PricingOpportunity{}
	for _, a := range activities {
		perf := derived.ActivityPerformance[a]
		util := perf.CapacityUtilization.Value
		margin := perf.ProfitMargin.Value
		if util > expansionUtilization {
			expansion = append(expansion, types.ExpansionOpportunity{
				Activity:         a,
				Utilization:      util,
				Bookings:         bookingsBy[a],
				PotentialRevenue: float64(bookingsBy[a]) * expansionUplift * perf.RevenuePerBooking.Value,
			})
		}
		switch {
		case util < underusedUtilization && margin > healthyMargin:
			pricing = append(pricing, types.PricingOpportunity{Activity: a, Utilization: util, ProfitMargin: margin, Suggestion: types.SuggestPriceDecrease})
		case util > saturatedUtilization:
			pricing = append(pricing, types.PricingOpportunity{Activity: a, Utilization: util, ProfitMargin: margin, Suggestion: types.SuggestPriceIncrease})
		}
	}
	sort.SliceStable(expansion, func(i, j int) bool { return expansion[i].PotentialRevenue > expansion[j].PotentialRevenue })
	sort.SliceStable(pricing, func(i, j int) bool { return pricing[i].Utilization > pricing[j].Utilization })

	bundles := []types.BundleOpportunity{}
	for i := 0; i < len(pairs) && i < topBundles; i++ {
		bundles = append(bundles, types.BundleOpportunity{
			Activities:    pairs[i].activities,
			Frequency:     pairs[i].frequency,
			CoBookingRate: ratio.Percent(float64(pairs[i].frequency), float64(customers)),
		})
	}

	slots, slotSample := idleSlots(ds.AvailabilityInstances)
	perfSample := raw.Activities.BookingsByActivity.Sample()
	return types.CapacityOptimization{
		ExpansionOpportunities: types.NewInsight(expansion, types.SourceBookings, types.SourceAvailability).
			WithCalculation("activities with utilization > 80%; potential = bookings * 0.5 * revenue_per_booking").
			WithSample(perfSample),
		PricingOpportunities: types.NewInsight(pricing, types.SourceBookings, types.SourceAvailability, types.SourceTransactions).
			WithCalculation("utilization < 50% and margin > 70% => decrease; utilization > 90% => increase").
			WithSample(perfSample),
		TimeSlotOptimization: types.NewInsight(slots, types.SourceAvailability).
			WithCalculation("hours with sum(booked) / sum(capacity) < 20% flagged for consolidation").
			WithSample(slotSample),
		BundleOpportunities: types.NewInsight(bundles, types.SourceBookings).
			WithCalculation("top 3 cross-sell pairs; co_booking_rate = frequency / distinct customers * 100").
			WithSample(customers),
	}
}

func idleSlots(slots []types.AvailabilityInstance) ([]types.TimeSlotFlag, int) {
	capacity := map[int]int{}
	booked := map[int]int{}
	sample := 0
	for _, s := range slots {
		if s.Start.IsZero() {
			continue
		}
		sample++
		capacity[s.Start.Hour()] += s.Capacity
		booked[s.Start.Hour()] += s.Booked
	}
	hours := make([]int, 0, len(capacity))
	for h := range capacity {
		hours = append(hours, h)
	}
	sort.Ints(hours)

	out := []types.TimeSlotFlag{}
	for _, h := range hours {
		if capacity[h] == 0 {
			continue
		}
		util := ratio.Percent(float64(booked[h]), float64(capacity[h]))
		if util < idleSlotUtilization {
			out = append(out, types.TimeSlotFlag{Hour: h, Utilization: util, Action: "consolidate"})
		}
	}
	return out, sample
}

// --------------------------------------------
// Operations
// --------------------------------------------

func operations(raw types.RawFacts, ds types.Datasets) types.OperationalInsights {
	noShows := map[string]int{types.ChannelOnline: 0, types.ChannelOperator: 0}
	for _, b := range ds.Bookings {
		if b.NoShow {
			noShows[b.Channel()]++
		}
	}
	methods := map[string]int{}
	for _, p := range ds.Payments {
		m := strings.ToLower(strings.TrimSpace(p.Method))
		if m == "" {
			m = "unknown"
		}
		methods[m]++
	}
	required := raw.Guests.WaiversRequired.Value
	return types.OperationalInsights{
		WaiverCompletionRate: types.NewInsight(ratio.Percent(float64(raw.Guests.WaiversCompleted.Value), float64(required)), types.SourceBookings).
			WithCalculation("waivers_completed / waivers_required * 100").WithSample(required),
		NoShowsByChannel: types.NewInsight(noShows, types.SourceBookings).
			WithCalculation("count(no_show bookings) per channel").WithSample(raw.Bookings.NoShows.Value),
		PaymentMethods: types.NewInsight(methods, types.SourcePayments).
			WithCalculation("count(payments) group by method").WithSample(len(ds.Payments)),
		PaymentTiming: types.NewInsight("Online bookings are paid immediately at checkout; operator bookings show mixed timing (deposit, on arrival, invoice)",
			types.SourcePayments, types.SourceBookings).
			WithCalculation("descriptive placeholder pending payment-timestamp correlation").
			WithSample(len(ds.Payments)).WithConfidence(0.3),
	}
}
