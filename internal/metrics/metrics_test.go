package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booking-insights-go/internal/aggregator"
	"booking-insights-go/internal/types"
)

func day(d, hour int) time.Time {
	return time.Date(2025, 6, d, hour, 0, 0, 0, time.UTC)
}

func derive(ds types.Datasets) (types.RawFacts, types.DerivedMetrics) {
	p := types.ResolvePeriod(ds.Bookings, day(30, 0))
	raw := aggregator.Aggregate(ds, p)
	return raw, Calculate(raw, ds)
}

func TestCalculate_EmptyDatasetsNeverProduceNaN(t *testing.T) {
	_, d := derive(types.Datasets{})

	values := []float64{
		d.Efficiency.CapacityUtilization.Value,
		d.Efficiency.RevenuePerAvailableSlot.Value,
		d.Efficiency.RevenuePerBooking.Value,
		d.Efficiency.RevenuePerGuest.Value,
		d.Efficiency.DiscountCostPercent.Value,
		d.Efficiency.RefundPercent.Value,
		d.Efficiency.NoShowPercent.Value,
		d.Growth.RevenueGrowth.Value,
		d.Growth.BookingGrowth.Value,
		d.Growth.GuestGrowth.Value,
		d.Growth.NewCustomerAcquisition.Value,
		d.Growth.CustomerRetention.Value,
		d.Customers.AverageCLV.Value,
		d.Customers.RepeatCustomerPercent.Value,
		d.Customers.ChurnPercent.Value,
		d.Vouchers.RedemptionRate.Value,
		d.Vouchers.BreakageRate.Value,
	}
	for i, v := range values {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "value %d is not finite", i)
		assert.Equal(t, 0.0, v, "value %d", i)
	}
	assert.Empty(t, d.ActivityPerformance)
	assert.Empty(t, d.TimePatterns.PeakHours.Value)
}

func TestCalculate_NoPreviousPeriodReportsZeroGrowthWithZeroConfidence(t *testing.T) {
	ds := types.Datasets{}
	for i := 0; i < 100; i++ {
		ds.Bookings = append(ds.Bookings, types.Booking{Date: day(1+i%20, 10), Adults: 2})
	}
	ds.Transactions = []types.Transaction{{Gross: 10000, CustomerEmail: "a@x.io"}}
	_, d := derive(ds)

	assert.Equal(t, 0.0, d.Growth.RevenueGrowth.Value)
	require.NotNil(t, d.Growth.RevenueGrowth.Metadata.Confidence)
	assert.Equal(t, 0.0, *d.Growth.RevenueGrowth.Metadata.Confidence)
	assert.Equal(t, 100.0, d.Efficiency.RevenuePerBooking.Value)
	assert.Equal(t, 50.0, d.Efficiency.RevenuePerGuest.Value)
}

func TestCalculate_GrowthAgainstPreviousPeriod(t *testing.T) {
	ds := types.Datasets{
		Transactions: []types.Transaction{
			{Gross: 150, CustomerEmail: "a@x.io"},
			{Gross: 150, CustomerEmail: "b@x.io"},
		},
		Bookings: []types.Booking{{Adults: 2}, {Adults: 1}, {Adults: 1}},
		Previous: &types.PeriodData{
			Transactions: []types.Transaction{
				{Gross: 200, CustomerEmail: "a@x.io"},
				{Gross: 0, CustomerEmail: "c@x.io"},
				{Gross: 0, CustomerEmail: "d@x.io"},
				{Gross: 0, CustomerEmail: "e@x.io"},
			},
			Bookings: []types.Booking{{Adults: 4}, {Adults: 4}},
		},
	}
	_, d := derive(ds)

	assert.Equal(t, 50.0, d.Growth.RevenueGrowth.Value)
	assert.Equal(t, 50.0, d.Growth.BookingGrowth.Value)
	assert.Equal(t, -50.0, d.Growth.GuestGrowth.Value)
	assert.Equal(t, 25.0, d.Growth.CustomerRetention.Value)
	assert.Equal(t, 75.0, d.Customers.ChurnPercent.Value)
	assert.Nil(t, d.Growth.RevenueGrowth.Metadata.Confidence)
}

func TestCalculate_PreviousPeriodEmptyUsesGuardedChange(t *testing.T) {
	ds := types.Datasets{
		Transactions: []types.Transaction{{Gross: 10}},
		Previous:     &types.PeriodData{},
	}
	_, d := derive(ds)

	assert.Equal(t, 100.0, d.Growth.RevenueGrowth.Value)
	assert.Equal(t, 0.0, d.Growth.BookingGrowth.Value)
	assert.Equal(t, 0.0, d.Growth.CustomerRetention.Value)
}

func TestCalculate_CustomerMetrics(t *testing.T) {
	ds := types.Datasets{
		Customers: []types.Customer{{ID: "c2", Email: "b@x.io"}},
		Transactions: []types.Transaction{
			{Gross: 300, CustomerEmail: "a@x.io"},
			{Gross: 100, CustomerEmail: "b@x.io"},
		},
		Bookings: []types.Booking{
			{CustomerEmail: "a@x.io"},
			{CustomerEmail: "A@x.io"},
			{CustomerID: "c2"},
			{},
		},
	}
	_, d := derive(ds)

	assert.Equal(t, 200.0, d.Customers.AverageCLV.Value)
	assert.Equal(t, 50.0, d.Customers.RepeatCustomerPercent.Value)
	assert.Equal(t, 2, d.Customers.RepeatCustomerPercent.Sample())
	assert.Equal(t, 50.0, d.Growth.NewCustomerAcquisition.Value)
	assert.Equal(t, 45.0, d.Customers.AverageDaysBetweenBookings.Value)
}

func TestCalculate_ActivityPerformanceAllocatesDiscountsByShare(t *testing.T) {
	ds := types.Datasets{
		Transactions: []types.Transaction{{Gross: 1000, Discount: 100, Refund: 100}},
		Bookings: []types.Booking{
			{ActivityID: "A", Revenue: 300},
			{ActivityID: "A", Revenue: 300},
			{ActivityID: "B", Revenue: 400},
		},
		AvailabilityInstances: []types.AvailabilityInstance{
			{ActivityID: "A", Capacity: 4},
		},
		Previous: &types.PeriodData{Bookings: []types.Booking{{ActivityID: "A"}}},
	}
	_, d := derive(ds)

	a := d.ActivityPerformance["A"]
	assert.Equal(t, 300.0, a.RevenuePerBooking.Value)
	// share 0.6: 600 - 60 - 60 = 480 -> 80%
	assert.InDelta(t, 80.0, a.ProfitMargin.Value, 1e-9)
	assert.Equal(t, 50.0, a.CapacityUtilization.Value)
	assert.Equal(t, 100.0, a.BookingGrowth.Value)

	b := d.ActivityPerformance["B"]
	assert.Equal(t, 0.0, b.CapacityUtilization.Value)
	assert.Equal(t, 100.0, b.BookingGrowth.Value)
}

func TestCalculate_ActivityGrowthWithoutPreviousHasZeroConfidence(t *testing.T) {
	ds := types.Datasets{Bookings: []types.Booking{{ActivityID: "A"}}}
	_, d := derive(ds)

	g := d.ActivityPerformance["A"].BookingGrowth
	assert.Equal(t, 0.0, g.Value)
	require.NotNil(t, g.Metadata.Confidence)
	assert.Equal(t, 0.0, *g.Metadata.Confidence)
}

func TestCalculate_TimePatterns(t *testing.T) {
	ds := types.Datasets{}
	hours := map[int]int{9: 5, 10: 4, 11: 3, 12: 2, 13: 1}
	for h, n := range hours {
		for i := 0; i < n; i++ {
			ds.Bookings = append(ds.Bookings, types.Booking{Date: day(2, h)})
		}
	}
	ds.Transactions = []types.Transaction{
		{Date: day(1, 0), Gross: 10},
		{Date: day(2, 0), Gross: 60},
		{Date: day(3, 0), Gross: 30},
		{Date: day(4, 0), Gross: 0},
	}
	_, d := derive(ds)

	peak := d.TimePatterns.PeakHours.Value
	require.Len(t, peak, 3)
	assert.Equal(t, 9, peak[0].Hour)
	assert.InDelta(t, 33.333, peak[0].Share, 0.001)
	assert.Equal(t, 11, peak[2].Hour)

	low := d.TimePatterns.LowDemandHours.Value
	require.Len(t, low, 3)
	assert.Equal(t, 13, low[0].Hour)
	assert.Equal(t, 11, low[2].Hour)

	top := d.TimePatterns.TopRevenueDays.Value
	require.Len(t, top, 3)
	assert.Equal(t, "2025-06-02", top[0].Date)
	bottom := d.TimePatterns.BottomRevenueDays.Value
	require.Len(t, bottom, 3)
	assert.Equal(t, "2025-06-01", bottom[0].Date)
}

func TestCalculate_VoucherPerformance(t *testing.T) {
	ds := types.Datasets{Vouchers: []types.GiftVoucher{
		{Status: "active"}, {Status: "redeemed"}, {Status: "redeemed"}, {Status: "expired"},
	}}
	_, d := derive(ds)

	assert.Equal(t, 50.0, d.Vouchers.RedemptionRate.Value)
	assert.Equal(t, 25.0, d.Vouchers.BreakageRate.Value)
	assert.Equal(t, 30.0, d.Vouchers.AverageDaysToRedemption.Value)
	assert.Equal(t, 0.1, *d.Vouchers.AverageDaysToRedemption.Metadata.Confidence)
}

func TestCalculate_EfficiencySampleCountsBothDatasets(t *testing.T) {
	ds := types.Datasets{
		Transactions: []types.Transaction{{Gross: 100}, {Gross: 50}, {Gross: 30}},
		Bookings:     []types.Booking{{Date: day(2, 10), Adults: 2}, {Date: day(3, 10), Adults: 1}},
		AvailabilityInstances: []types.AvailabilityInstance{
			{ActivityID: "er", Capacity: 10}, {ActivityID: "er", Capacity: 10},
			{ActivityID: "ax", Capacity: 10}, {ActivityID: "ax", Capacity: 10},
		},
	}
	_, d := derive(ds)

	assert.Equal(t, 4.5, d.Efficiency.RevenuePerAvailableSlot.Value)
	assert.Equal(t, 7, d.Efficiency.RevenuePerAvailableSlot.Sample())
	assert.Contains(t, d.Efficiency.RevenuePerAvailableSlot.Metadata.Calculation, "transactions + availability instances")
	assert.Equal(t, 90.0, d.Efficiency.RevenuePerBooking.Value)
	assert.Equal(t, 5, d.Efficiency.RevenuePerBooking.Sample())
	assert.Equal(t, 60.0, d.Efficiency.RevenuePerGuest.Value)
	assert.Equal(t, 5, d.Efficiency.RevenuePerGuest.Sample())
}
