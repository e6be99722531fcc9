package dataset

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"booking-insights-go/internal/logger"
	"booking-insights-go/internal/types"
)

// LoadStats reports what LoadWorkbook read.
type LoadStats struct {
	Rows    map[string]int `json:"rows"`    // records kept, by dataset
	Skipped map[string]int `json:"skipped"` // malformed rows dropped, by dataset
	Ignored []string       `json:"ignored"` // sheets not matching any dataset
}

// sheet names are matched after normalize(); several spellings per dataset.
var sheetAliases = map[string]string{
	"bookings":              types.SourceBookings,
	"allbookings":           types.SourceBookings,
	"transactions":          types.SourceTransactions,
	"itemizedrevenue":       types.SourceItemizedRevenue,
	"revenueitems":          types.SourceItemizedRevenue,
	"payments":              types.SourcePayments,
	"allpayments":           types.SourcePayments,
	"inventory":             types.SourceInventoryItems,
	"inventoryitems":        types.SourceInventoryItems,
	"activities":            types.SourceInventoryItems,
	"availability":          types.SourceAvailability,
	"availabilityinstances": types.SourceAvailability,
	"customers":             types.SourceCustomers,
	"vouchers":              types.SourceVouchers,
	"giftvouchers":          types.SourceVouchers,
	"previoustransactions":  types.SourcePreviousTransactions,
	"previousbookings":      types.SourcePreviousBookings,
	"previouspayments":      types.SourcePreviousPayments,
	"futurebookings":        types.SourceFutureBookings,
}

// LoadWorkbook reads one venue workbook, one sheet per dataset. Columns are
// found by header name. Rows with unparseable numbers or dates are skipped
// and counted. Sheets that are absent leave their dataset nil; Previous is
// set only when at least one previous-period sheet exists.
func LoadWorkbook(path string) (types.Datasets, LoadStats, error) {
	log := logger.New().Component("dataset.loader").WithField("path", path)
	stats := LoadStats{Rows: map[string]int{}, Skipped: map[string]int{}, Ignored: []string{}}

	f, err := excelize.OpenFile(path)
	if err != nil {
		log.WithError(err).Error("open failed")
		return types.Datasets{}, stats, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return types.Datasets{}, stats, fmt.Errorf("no sheets")
	}

	var ds types.Datasets
	var prev types.PeriodData
	hasPrev := false
	matched := 0
	for _, sheet := range sheets {
		name, ok := sheetAliases[normalize(sheet)]
		if !ok {
			stats.Ignored = append(stats.Ignored, sheet)
			continue
		}
		rows, err := f.GetRows(sheet)
		if err != nil {
			return types.Datasets{}, stats, fmt.Errorf("read %s rows: %w", sheet, err)
		}
		matched++

		var kept, skipped int
		switch name {
		case types.SourceBookings:
			ds.Bookings, skipped = parseSheet(rows, bookingRow)
			kept = len(ds.Bookings)
		case types.SourceTransactions:
			ds.Transactions, skipped = parseSheet(rows, transactionRow)
			kept = len(ds.Transactions)
		case types.SourceItemizedRevenue:
			ds.ItemizedRevenue, skipped = parseSheet(rows, revenueItemRow)
			kept = len(ds.ItemizedRevenue)
		case types.SourcePayments:
			ds.Payments, skipped = parseSheet(rows, paymentRow)
			kept = len(ds.Payments)
		case types.SourceInventoryItems:
			ds.InventoryItems, skipped = parseSheet(rows, inventoryRow)
			kept = len(ds.InventoryItems)
		case types.SourceAvailability:
			ds.AvailabilityInstances, skipped = parseSheet(rows, availabilityRow)
			kept = len(ds.AvailabilityInstances)
		case types.SourceCustomers:
			ds.Customers, skipped = parseSheet(rows, customerRow)
			kept = len(ds.Customers)
		case types.SourceVouchers:
			ds.Vouchers, skipped = parseSheet(rows, voucherRow)
			kept = len(ds.Vouchers)
		case types.SourceFutureBookings:
			ds.FutureBookings, skipped = parseSheet(rows, bookingRow)
			kept = len(ds.FutureBookings)
		case types.SourcePreviousTransactions:
			prev.Transactions, skipped = parseSheet(rows, transactionRow)
			kept, hasPrev = len(prev.Transactions), true
		case types.SourcePreviousBookings:
			prev.Bookings, skipped = parseSheet(rows, bookingRow)
			kept, hasPrev = len(prev.Bookings), true
		case types.SourcePreviousPayments:
			prev.Payments, skipped = parseSheet(rows, paymentRow)
			kept, hasPrev = len(prev.Payments), true
		}
		stats.Rows[name] += kept
		stats.Skipped[name] += skipped
		if skipped > 0 {
			log.WithFields(logrus.Fields{"sheet": sheet, "skipped": skipped}).Warn("malformed rows skipped")
		}
	}
	if matched == 0 {
		return types.Datasets{}, stats, fmt.Errorf("no dataset sheets found in %v", sheets)
	}
	if hasPrev {
		ds.Previous = &prev
	}

	log.WithFields(logrus.Fields{
		"sheets":  matched,
		"ignored": len(stats.Ignored),
		"rows":    stats.Rows,
	}).Info("workbook loaded")
	return ds, stats, nil
}

// --------------------------------------------
// Sheet parsing
// --------------------------------------------

func parseSheet[T any](rows [][]string, build func(header, *row) T) ([]T, int) {
	if len(rows) == 0 {
		return nil, 0
	}
	h := newHeader(rows[0])
	out := make([]T, 0, len(rows)-1)
	skipped := 0
	for _, cells := range rows[1:] {
		if blank(cells) {
			continue
		}
		r := &row{cells: cells}
		rec := build(h, r)
		if r.err != nil {
			skipped++
			continue
		}
		out = append(out, rec)
	}
	return out, skipped
}

func bookingRow(h header, r *row) types.Booking {
	b := types.Booking{
		ID:              r.str(h.col("id", "bookingid")),
		Date:            r.time(h.col("date", "bookingdate", "startdate", "start", "starttime")),
		Status:          r.str(h.col("status", "bookingstatus")),
		Adults:          r.int(h.col("adults", "adultcount")),
		Children:        r.int(h.col("children", "childcount", "kids")),
		Revenue:         r.num(h.col("revenue", "total", "amount", "price", "bookingtotal")),
		WaiverRequired:  r.flag(h.col("waiverrequired", "requireswaiver")),
		WaiverCompleted: r.flag(h.col("waivercompleted", "waiversigned")),
		NoShow:          r.flag(h.col("noshow", "isnoshow")),
		ActivityID:      r.str(h.col("activityid", "activity", "itemid", "inventoryid")),
		CustomerID:      r.str(h.col("customerid")),
		CustomerEmail:   r.str(h.col("email", "customeremail")),
	}
	if i := h.col("online", "createdonline", "isonline"); i >= 0 {
		b.Online = r.flag(i)
	} else {
		ch := strings.ToLower(r.str(h.col("channel", "source", "createdby")))
		b.Online = strings.Contains(ch, "online") || strings.Contains(ch, "web")
	}
	return b
}

func transactionRow(h header, r *row) types.Transaction {
	return types.Transaction{
		ID:            r.str(h.col("id", "transactionid")),
		Date:          r.time(h.col("date", "transactiondate", "createdat")),
		Gross:         r.num(h.col("gross", "grossrevenue", "total", "amount")),
		Net:           r.num(h.col("net", "netrevenue")),
		Discount:      r.num(h.col("discount", "discounts", "discountamount")),
		Refund:        r.num(h.col("refund", "refunds", "refundamount")),
		CustomerEmail: r.str(h.col("email", "customeremail")),
	}
}

func revenueItemRow(h header, r *row) types.RevenueItem {
	return types.RevenueItem{
		BookingID:  r.str(h.col("bookingid")),
		ActivityID: r.str(h.col("activityid", "activity", "itemid")),
		Date:       r.time(h.col("date")),
		Amount:     r.num(h.col("amount", "revenue", "total")),
	}
}

func paymentRow(h header, r *row) types.Payment {
	return types.Payment{
		ID:        r.str(h.col("id", "paymentid")),
		BookingID: r.str(h.col("bookingid")),
		Date:      r.time(h.col("date", "paymentdate", "paidat")),
		Amount:    r.num(h.col("amount", "total")),
		Method:    r.str(h.col("method", "paymentmethod", "type")),
		Status:    r.str(h.col("status")),
	}
}

func inventoryRow(h header, r *row) types.InventoryItem {
	return types.InventoryItem{
		ActivityID: r.str(h.col("activityid", "id", "itemid")),
		Name:       r.str(h.col("name", "activityname", "title")),
	}
}

func availabilityRow(h header, r *row) types.AvailabilityInstance {
	return types.AvailabilityInstance{
		ActivityID: r.str(h.col("activityid", "activity", "itemid")),
		Start:      r.time(h.col("start", "starttime", "startdate", "date")),
		Capacity:   r.int(h.col("capacity", "slots", "totalcapacity")),
		Booked:     r.int(h.col("booked", "slotsbooked", "bookedcount")),
	}
}

func customerRow(h header, r *row) types.Customer {
	return types.Customer{
		ID:    r.str(h.col("id", "customerid")),
		Email: r.str(h.col("email", "customeremail")),
		Name:  r.str(h.col("name", "fullname", "customername")),
	}
}

func voucherRow(h header, r *row) types.GiftVoucher {
	return types.GiftVoucher{
		Code:   r.str(h.col("code", "vouchercode", "id")),
		Value:  r.num(h.col("value", "amount", "balance")),
		Status: r.str(h.col("status")),
	}
}

// --------------------------------------------
// Cells
// --------------------------------------------

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

type header map[string]int

func newHeader(cells []string) header {
	h := header{}
	for i, c := range cells {
		n := normalize(c)
		if _, dup := h[n]; !dup && n != "" {
			h[n] = i
		}
	}
	return h
}

// col returns the index of the first alias present, or -1.
func (h header) col(aliases ...string) int {
	for _, a := range aliases {
		if i, ok := h[a]; ok {
			return i
		}
	}
	return -1
}

// row reads typed cells; the first parse failure marks the row malformed.
type row struct {
	cells []string
	err   error
}

func (r *row) str(i int) string {
	if i < 0 || i >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[i])
}

func (r *row) num(i int) float64 {
	s := r.str(i)
	if s == "" {
		return 0
	}
	s = strings.NewReplacer("$", "", "€", "", "£", "", ",", "").Replace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		r.fail(i, err)
		return 0
	}
	return v
}

func (r *row) int(i int) int {
	return int(r.num(i))
}

func (r *row) flag(i int) bool {
	switch strings.ToLower(r.str(i)) {
	case "true", "yes", "y", "1", "x":
		return true
	}
	return false
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"1/2/06 15:04",
	"1/2/06",
	"01-02-06 15:04",
	"01-02-06",
}

func (r *row) time(i int) time.Time {
	s := r.str(i)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t
		}
	}
	// unformatted date cells come through as Excel serial numbers
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t.UTC()
		}
	}
	r.fail(i, fmt.Errorf("unrecognized date %q", s))
	return time.Time{}
}

func (r *row) fail(i int, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("column %d: %w", i, err)
	}
}
