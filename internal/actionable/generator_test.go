package actionable

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booking-insights-go/internal/aggregator"
	"booking-insights-go/internal/correlation"
	"booking-insights-go/internal/forecast"
	"booking-insights-go/internal/metrics"
	"booking-insights-go/internal/types"
)

var runDate = time.Date(2025, 9, 30, 0, 0, 0, 0, time.UTC)

func generate(ds types.Datasets) types.Prescriptive {
	p := types.ResolvePeriod(ds.Bookings, runDate)
	raw := aggregator.Aggregate(ds, p)
	derived := metrics.Calculate(raw, ds)
	connected := correlation.Analyze(raw, derived, ds)
	predicted := forecast.Project(raw, derived, ds, p, runDate)
	return Generate(raw, derived, connected, predicted)
}

func TestGenerate_EmptyDatasetsProduceNoRecommendations(t *testing.T) {
	out := generate(types.Datasets{})

	for _, list := range out.Recommendations.All() {
		assert.NotNil(t, list)
		assert.Empty(t, list)
	}
	assert.Equal(t, 0, out.HighPriority.Value)
}

func TestGenerate_NoShowRateAboveThreshold(t *testing.T) {
	ds := types.Datasets{Transactions: []types.Transaction{{Gross: 1000}}}
	for i := 0; i < 100; i++ {
		ds.Bookings = append(ds.Bookings, types.Booking{Online: true, NoShow: i < 6})
	}
	out := generate(ds)

	ops := out.Recommendations.Operations
	require.Len(t, ops, 1)
	assert.Contains(t, ops[0].Recommendation, "3% baseline")
	require.NotNil(t, ops[0].Impact.ExpectedRevenue)
	assert.InDelta(t, 30.0, *ops[0].Impact.ExpectedRevenue, 1e-9)
	assert.Equal(t, 1, out.Recommendations.Len())
}

func TestGenerate_NoShowRateAtThresholdIsQuiet(t *testing.T) {
	ds := types.Datasets{}
	for i := 0; i < 100; i++ {
		ds.Bookings = append(ds.Bookings, types.Booking{NoShow: i < 5})
	}
	out := generate(ds)

	assert.Empty(t, out.Recommendations.Operations)
}

func TestGenerate_EscapeRoomAtNinetyTwoPercent(t *testing.T) {
	ds := types.Datasets{
		InventoryItems:        []types.InventoryItem{{ActivityID: "er", Name: "Escape Room"}},
		AvailabilityInstances: []types.AvailabilityInstance{{ActivityID: "er", Capacity: 100}},
		Transactions:          []types.Transaction{{Gross: 4600}},
	}
	for i := 0; i < 92; i++ {
		ds.Bookings = append(ds.Bookings, types.Booking{ActivityID: "er", Revenue: 50})
	}
	out := generate(ds)

	pricing := out.Recommendations.Pricing
	require.Len(t, pricing, 1)
	assert.Equal(t, "Raise prices for Escape Room", pricing[0].Recommendation)
	assert.InDelta(t, 368.0, *pricing[0].Impact.ExpectedRevenue, 1e-9)

	capacity := out.Recommendations.Capacity
	require.Len(t, capacity, 1)
	assert.Equal(t, 2300.0, *capacity[0].Impact.ExpectedRevenue)

	revenue := out.Recommendations.Revenue
	require.Len(t, revenue, 1)
	assert.Equal(t, types.PriorityHigh, revenue[0].Priority)
	assert.InDelta(t, 690.0, *revenue[0].Impact.ExpectedRevenue, 1e-9)

	assert.Equal(t, 3, out.HighPriority.Value)
}

func crossSell(customers int) types.Datasets {
	ds := types.Datasets{Transactions: []types.Transaction{{Gross: float64(customers) * 200}}}
	for i := 0; i < customers; i++ {
		email := fmt.Sprintf("c%d@x.io", i)
		ds.Bookings = append(ds.Bookings,
			types.Booking{CustomerEmail: email, ActivityID: "X", Online: true},
			types.Booking{CustomerEmail: email, ActivityID: "Y", Online: true},
		)
	}
	return ds
}

func TestGenerate_BundleNeedsMoreThanFiveCoBookings(t *testing.T) {
	out := generate(crossSell(5))
	assert.Empty(t, out.Recommendations.Revenue)

	out = generate(crossSell(6))
	require.Len(t, out.Recommendations.Revenue, 1)
	r := out.Recommendations.Revenue[0]
	assert.Equal(t, "Create a X + Y bundle", r.Recommendation)
	// revenue per booking 100: 0.5 * (6 * 100 * 2)
	assert.InDelta(t, 600.0, *r.Impact.ExpectedRevenue, 1e-9)
}

func TestGenerate_WinBackForAtRiskCustomers(t *testing.T) {
	ds := types.Datasets{}
	for i := 0; i < 10; i++ {
		ds.Bookings = append(ds.Bookings, types.Booking{
			CustomerEmail: fmt.Sprintf("c%d@x.io", i),
			Date:          runDate.AddDate(0, 0, -100),
			Revenue:       100,
			Online:        true,
		})
	}
	out := generate(ds)

	customer := out.Recommendations.Customer
	require.Len(t, customer, 1)
	assert.Equal(t, types.PriorityHigh, customer[0].Priority)
	assert.InDelta(t, 300.0, *customer[0].Impact.ExpectedRevenue, 1e-9)
	assert.InDelta(t, 3.0, *customer[0].Impact.ExpectedBookings, 1e-9)
}

func TestGenerate_ChannelFocus(t *testing.T) {
	ds := types.Datasets{
		Transactions: []types.Transaction{{Gross: 1000}},
		Bookings: []types.Booking{
			{Online: true, Revenue: 150},
			{Online: false, Revenue: 100},
		},
	}
	out := generate(ds)

	marketing := out.Recommendations.Marketing
	require.Len(t, marketing, 1)
	assert.Equal(t, "Shift marketing toward online bookings", marketing[0].Recommendation)
	assert.InDelta(t, 120.0, *marketing[0].Impact.ExpectedRevenue, 1e-9)
}

func TestGenerate_ConsolidateIdleHour(t *testing.T) {
	ds := types.Datasets{AvailabilityInstances: []types.AvailabilityInstance{
		{Start: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC), Capacity: 10, Booked: 1},
		{Start: time.Date(2025, 6, 2, 17, 0, 0, 0, time.UTC), Capacity: 10, Booked: 9},
	}}
	out := generate(ds)

	capacity := out.Recommendations.Capacity
	require.Len(t, capacity, 1)
	assert.Equal(t, types.PriorityLow, capacity[0].Priority)
	assert.Nil(t, capacity[0].Impact.ExpectedRevenue)
	assert.InDelta(t, 10.0, *capacity[0].Impact.ExpectedEfficiencyGain, 1e-9)
}
