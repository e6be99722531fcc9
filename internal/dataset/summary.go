package dataset

import (
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"booking-insights-go/internal/logger"
	"booking-insights-go/internal/types"
)

// Summary is a compact description of a loaded dataset set, logged at
// startup and returned alongside workbook reports.
type Summary struct {
	Records       map[string]int  `json:"records"`
	Period        types.DateRange `json:"period"`
	Activities    []string        `json:"activities"`
	HasComparison bool            `json:"has_comparison"`
}

// Summarize counts records per dataset and resolves the booking period.
func Summarize(ds types.Datasets) Summary {
	records := map[string]int{
		types.SourceTransactions:    len(ds.Transactions),
		types.SourceItemizedRevenue: len(ds.ItemizedRevenue),
		types.SourceBookings:        len(ds.Bookings),
		types.SourcePayments:        len(ds.Payments),
		types.SourceInventoryItems:  len(ds.InventoryItems),
		types.SourceAvailability:    len(ds.AvailabilityInstances),
		types.SourceCustomers:       len(ds.Customers),
		types.SourceVouchers:        len(ds.Vouchers),
		types.SourceFutureBookings:  len(ds.FutureBookings),
	}
	if ds.Previous != nil {
		records[types.SourcePreviousTransactions] = len(ds.Previous.Transactions)
		records[types.SourcePreviousBookings] = len(ds.Previous.Bookings)
		records[types.SourcePreviousPayments] = len(ds.Previous.Payments)
	}

	cat := types.NewCatalog(ds)
	seen := map[string]bool{}
	activities := []string{}
	for _, b := range ds.Bookings {
		name := cat.Activity(b.ActivityID)
		if name != "" && !seen[name] {
			seen[name] = true
			activities = append(activities, name)
		}
	}
	sort.Strings(activities)

	var period types.DateRange
	if p := types.ResolvePeriod(ds.Bookings, time.Time{}); !p.Start.IsZero() {
		period = p.DateRange()
	}

	return Summary{
		Records:       records,
		Period:        period,
		Activities:    activities,
		HasComparison: ds.Previous != nil,
	}
}

// LogSummary writes s at info level.
func LogSummary(log *logger.Logger, source string, s Summary) {
	log.Component("dataset.summary").WithFields(logrus.Fields{
		"source":         source,
		"bookings":       s.Records[types.SourceBookings],
		"transactions":   s.Records[types.SourceTransactions],
		"activities":     len(s.Activities),
		"period_start":   s.Period.StartDate,
		"period_end":     s.Period.EndDate,
		"has_comparison": s.HasComparison,
	}).Info("dataset summarization complete")
}
