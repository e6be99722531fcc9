package types

import (
	"strings"
	"time"
)

// Dataset names used in insight provenance.
const (
	SourceTransactions         = "transactions"
	SourceItemizedRevenue      = "itemized_revenue"
	SourceBookings             = "bookings"
	SourcePayments             = "payments"
	SourceInventoryItems       = "inventory_items"
	SourceAvailability         = "availability_instances"
	SourceCustomers            = "customers"
	SourceVouchers             = "vouchers"
	SourcePreviousTransactions = "previous_transactions"
	SourcePreviousBookings     = "previous_bookings"
	SourcePreviousPayments     = "previous_payments"
	SourceFutureBookings       = "future_bookings"
)

const (
	ChannelOnline   = "online"
	ChannelOperator = "operator"

	VoucherActive   = "active"
	VoucherRedeemed = "redeemed"
	VoucherExpired  = "expired"

	DateLayout = "2006-01-02"
)

type Booking struct {
	ID              string    `json:"id"`
	Date            time.Time `json:"date"`
	Online          bool      `json:"online"`
	Status          string    `json:"status"`
	Adults          int       `json:"adults"`
	Children        int       `json:"children"`
	Revenue         float64   `json:"revenue"`
	WaiverRequired  bool      `json:"waiver_required"`
	WaiverCompleted bool      `json:"waiver_completed"`
	NoShow          bool      `json:"no_show"`
	ActivityID      string    `json:"activity_id"`
	CustomerID      string    `json:"customer_id,omitempty"`
	CustomerEmail   string    `json:"customer_email,omitempty"`
}

func (b Booking) Guests() int { return b.Adults + b.Children }

func (b Booking) Cancelled() bool {
	s := strings.ToLower(strings.TrimSpace(b.Status))
	return s == "cancelled" || s == "canceled"
}

func (b Booking) Channel() string {
	if b.Online {
		return ChannelOnline
	}
	return ChannelOperator
}

type Transaction struct {
	ID            string    `json:"id"`
	Date          time.Time `json:"date"`
	Gross         float64   `json:"gross"`
	Net           float64   `json:"net"`
	Discount      float64   `json:"discount"`
	Refund        float64   `json:"refund"`
	CustomerEmail string    `json:"customer_email,omitempty"`
}

// RevenueItem is one itemized revenue line of a booking.
type RevenueItem struct {
	BookingID  string    `json:"booking_id"`
	ActivityID string    `json:"activity_id"`
	Date       time.Time `json:"date"`
	Amount     float64   `json:"amount"`
}

type Payment struct {
	ID        string    `json:"id"`
	BookingID string    `json:"booking_id,omitempty"`
	Date      time.Time `json:"date"`
	Amount    float64   `json:"amount"`
	Method    string    `json:"method"`
	Status    string    `json:"status"`
}

type InventoryItem struct {
	ActivityID string `json:"activity_id"`
	Name       string `json:"name"`
}

type AvailabilityInstance struct {
	ActivityID string    `json:"activity_id"`
	Start      time.Time `json:"start"`
	Capacity   int       `json:"capacity"`
	Booked     int       `json:"booked"`
}

type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type GiftVoucher struct {
	Code   string  `json:"code"`
	Value  float64 `json:"value"`
	Status string  `json:"status"`
}

// PeriodData holds the comparison-period datasets.
type PeriodData struct {
	Transactions []Transaction `json:"transactions"`
	Bookings     []Booking     `json:"bookings"`
	Payments     []Payment     `json:"payments"`
}

// Datasets is the full, already-fetched input of one engine invocation.
// Previous is nil when no comparison period was supplied.
type Datasets struct {
	Transactions          []Transaction          `json:"transactions"`
	ItemizedRevenue       []RevenueItem          `json:"itemizedRevenue"`
	Bookings              []Booking              `json:"allBookings"`
	Payments              []Payment              `json:"allPayments"`
	InventoryItems        []InventoryItem        `json:"inventoryItems"`
	AvailabilityInstances []AvailabilityInstance `json:"availabilityInstances"`
	Customers             []Customer             `json:"customers"`
	Vouchers              []GiftVoucher          `json:"vouchers"`
	Previous              *PeriodData            `json:"previousPeriod,omitempty"`
	FutureBookings        []Booking              `json:"futureBookings,omitempty"`
}

// --------------------------------------------
// Catalog: cross-dataset lookups
// --------------------------------------------

// Catalog resolves activity ids to display names and bookings to customer
// emails using the inventory and customer master lists.
type Catalog struct {
	activityNames map[string]string
	emailsByID    map[string]string
	known         map[string]bool
}

func NewCatalog(ds Datasets) Catalog {
	c := Catalog{
		activityNames: map[string]string{},
		emailsByID:    map[string]string{},
		known:         map[string]bool{},
	}
	for _, it := range ds.InventoryItems {
		if it.ActivityID != "" && strings.TrimSpace(it.Name) != "" {
			c.activityNames[it.ActivityID] = strings.TrimSpace(it.Name)
		}
	}
	for _, cu := range ds.Customers {
		e := NormalizeEmail(cu.Email)
		if e == "" {
			continue
		}
		c.known[e] = true
		if cu.ID != "" {
			c.emailsByID[cu.ID] = e
		}
	}
	return c
}

// Activity returns the activity key used in every per-activity map.
func (c Catalog) Activity(id string) string {
	if name, ok := c.activityNames[id]; ok {
		return name
	}
	return strings.TrimSpace(id)
}

// Email returns the normalized customer email of a booking, falling back to
// the customer master list by customer id. Empty means unknown.
func (c Catalog) Email(b Booking) string {
	if e := NormalizeEmail(b.CustomerEmail); e != "" {
		return e
	}
	return c.emailsByID[b.CustomerID]
}

// Known reports whether the email exists in the customer master list.
func (c Catalog) Known(email string) bool { return c.known[email] }

func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
