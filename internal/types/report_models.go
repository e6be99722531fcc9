package types

import "time"

// --------------------------------------------
// Aggregate result of one engine invocation
// --------------------------------------------
type Report struct {
	Raw          RawFacts       `json:"raw"`
	Derived      DerivedMetrics `json:"derived"`
	Connected    Connections    `json:"connected"`
	Predictive   Predictions    `json:"predictive"`
	Prescriptive Prescriptive   `json:"prescriptive"`
	GeneratedAt  time.Time      `json:"generated_at"`
	DataPeriod   DataPeriod     `json:"data_period"`
}

type DataPeriod struct {
	StartDate             string `json:"start_date"`
	EndDate               string `json:"end_date"`
	ComparisonPeriodStart string `json:"comparison_period_start,omitempty"`
	ComparisonPeriodEnd   string `json:"comparison_period_end,omitempty"`
}

// --------------------------------------------
// Layer 1: raw facts
// --------------------------------------------
type RawFacts struct {
	Revenue    RevenueFacts  `json:"revenue"`
	Bookings   BookingFacts  `json:"bookings"`
	Guests     GuestFacts    `json:"guests"`
	Activities ActivityFacts `json:"activities"`
	Customers  CustomerFacts `json:"customers"`
	Vouchers   VoucherFacts  `json:"vouchers"`
	Capacity   CapacityFacts `json:"capacity"`
}

type RevenueFacts struct {
	GrossRevenue            Insight[float64] `json:"gross_revenue"`
	NetRevenue              Insight[float64] `json:"net_revenue"`
	Refunds                 Insight[float64] `json:"refunds"`
	Discounts               Insight[float64] `json:"discounts"`
	TransactionCount        Insight[int]     `json:"transaction_count"`
	AverageTransactionValue Insight[float64] `json:"average_transaction_value"`
}

type BookingFacts struct {
	TotalBookings     Insight[int]            `json:"total_bookings"`
	OnlineBookings    Insight[int]            `json:"online_bookings"`
	OperatorBookings  Insight[int]            `json:"operator_bookings"`
	CancelledBookings Insight[int]            `json:"cancelled_bookings"`
	NoShows           Insight[int]            `json:"no_shows"`
	ByDayOfWeek       Insight[map[string]int] `json:"by_day_of_week"`
	ByHour            Insight[map[int]int]    `json:"by_hour"`
}

type GuestFacts struct {
	TotalGuests      Insight[int]     `json:"total_guests"`
	AverageGroupSize Insight[float64] `json:"average_group_size"`
	AdultChildRatio  Insight[string]  `json:"adult_child_ratio"`
	WaiversCompleted Insight[int]     `json:"waivers_completed"`
	WaiversRequired  Insight[int]     `json:"waivers_required"`
}

type ActivityFacts struct {
	ActiveInventory    Insight[int]                `json:"active_inventory"`
	BookingsByActivity Insight[map[string]int]     `json:"bookings_by_activity"`
	RevenueByActivity  Insight[map[string]float64] `json:"revenue_by_activity"`
	CapacityByActivity Insight[map[string]int]     `json:"capacity_by_activity"`
}

type CustomerFacts struct {
	UniqueCustomers    Insight[int] `json:"unique_customers"`
	NewCustomers       Insight[int] `json:"new_customers"`
	ReturningCustomers Insight[int] `json:"returning_customers"`
}

type VoucherFacts struct {
	ActiveCount   Insight[int]     `json:"active_count"`
	ActiveValue   Insight[float64] `json:"active_value"`
	RedeemedCount Insight[int]     `json:"redeemed_count"`
	RedeemedValue Insight[float64] `json:"redeemed_value"`
	ExpiredCount  Insight[int]     `json:"expired_count"`
	ExpiredValue  Insight[float64] `json:"expired_value"`
}

type CapacityFacts struct {
	TotalCapacity  Insight[int] `json:"total_capacity"`
	SlotsBooked    Insight[int] `json:"slots_booked"`
	SlotsAvailable Insight[int] `json:"slots_available"`
}

// --------------------------------------------
// Layer 2: derived metrics
// --------------------------------------------
type DerivedMetrics struct {
	Efficiency          EfficiencyMetrics              `json:"efficiency"`
	Growth              GrowthMetrics                  `json:"growth"`
	Customers           CustomerMetrics                `json:"customers"`
	ActivityPerformance map[string]ActivityPerformance `json:"activity_performance"`
	TimePatterns        TimePatterns                   `json:"time_patterns"`
	Vouchers            VoucherPerformance             `json:"vouchers"`
}

type EfficiencyMetrics struct {
	CapacityUtilization     Insight[float64] `json:"capacity_utilization"`
	RevenuePerAvailableSlot Insight[float64] `json:"revenue_per_available_slot"`
	RevenuePerBooking       Insight[float64] `json:"revenue_per_booking"`
	RevenuePerGuest         Insight[float64] `json:"revenue_per_guest"`
	DiscountCostPercent     Insight[float64] `json:"discount_cost_percent"`
	RefundPercent           Insight[float64] `json:"refund_percent"`
	NoShowPercent           Insight[float64] `json:"no_show_percent"`
}

type GrowthMetrics struct {
	RevenueGrowth          Insight[float64] `json:"revenue_growth"`
	BookingGrowth          Insight[float64] `json:"booking_growth"`
	GuestGrowth            Insight[float64] `json:"guest_growth"`
	NewCustomerAcquisition Insight[float64] `json:"new_customer_acquisition"`
	CustomerRetention      Insight[float64] `json:"customer_retention"`
}

type CustomerMetrics struct {
	AverageCLV                 Insight[float64] `json:"average_clv"`
	RepeatCustomerPercent      Insight[float64] `json:"repeat_customer_percent"`
	ChurnPercent               Insight[float64] `json:"churn_percent"`
	AverageDaysBetweenBookings Insight[float64] `json:"average_days_between_bookings"`
}

type ActivityPerformance struct {
	RevenuePerBooking   Insight[float64] `json:"revenue_per_booking"`
	ProfitMargin        Insight[float64] `json:"profit_margin"`
	CapacityUtilization Insight[float64] `json:"capacity_utilization"`
	BookingGrowth       Insight[float64] `json:"booking_growth"`
}

type HourShare struct {
	Hour     int     `json:"hour"`
	Bookings int     `json:"bookings"`
	Share    float64 `json:"share"`
}

type DayRevenue struct {
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
}

type TimePatterns struct {
	PeakHours         Insight[[]HourShare]  `json:"peak_hours"`
	LowDemandHours    Insight[[]HourShare]  `json:"low_demand_hours"`
	TopRevenueDays    Insight[[]DayRevenue] `json:"top_revenue_days"`
	BottomRevenueDays Insight[[]DayRevenue] `json:"bottom_revenue_days"`
}

type VoucherPerformance struct {
	RedemptionRate          Insight[float64] `json:"redemption_rate"`
	BreakageRate            Insight[float64] `json:"breakage_rate"`
	AverageDaysToRedemption Insight[float64] `json:"average_days_to_redemption"`
}

// --------------------------------------------
// Layer 3: cross-dataset connections
// --------------------------------------------
type Connections struct {
	RevenueDrivers       RevenueDrivers              `json:"revenue_drivers"`
	CustomerBehavior     CustomerBehavior            `json:"customer_behavior"`
	CancellationPatterns Insight[map[string]float64] `json:"cancellation_patterns"`
	CapacityOptimization CapacityOptimization        `json:"capacity_optimization"`
	Operations           OperationalInsights         `json:"operations"`
}

type RevenueDrivers struct {
	TopActivity          Insight[string]  `json:"top_activity"`
	TopActivityShare     Insight[float64] `json:"top_activity_share"`
	OnlineAverageValue   Insight[float64] `json:"online_average_value"`
	OperatorAverageValue Insight[float64] `json:"operator_average_value"`
	ChannelValueGap      Insight[float64] `json:"channel_value_gap"`
	GroupSizeImpact      Insight[string]  `json:"group_size_impact"`
	DiscountImpact       Insight[string]  `json:"discount_impact"`
}

type ActivityRate struct {
	Activity string  `json:"activity"`
	Count    int     `json:"count"`
	Rate     float64 `json:"rate"`
}

type CrossSellPair struct {
	Activities [2]string `json:"activities"`
	Frequency  int       `json:"frequency"`
}

type ActivityCount struct {
	Activity string `json:"activity"`
	Bookings int    `json:"bookings"`
}

type CustomerBehavior struct {
	RepeatBookingDrivers Insight[[]ActivityRate]             `json:"repeat_booking_drivers"`
	CrossSellPatterns    Insight[[]CrossSellPair]            `json:"cross_sell_patterns"`
	SegmentPreferences   Insight[map[string][]ActivityCount] `json:"segment_preferences"`
}

type ExpansionOpportunity struct {
	Activity         string  `json:"activity"`
	Utilization      float64 `json:"utilization"`
	Bookings         int     `json:"bookings"`
	PotentialRevenue float64 `json:"potential_revenue"`
}

type PricingOpportunity struct {
	Activity     string  `json:"activity"`
	Utilization  float64 `json:"utilization"`
	ProfitMargin float64 `json:"profit_margin"`
	Suggestion   string  `json:"suggestion"`
}

const (
	SuggestPriceDecrease = "price_decrease"
	SuggestPriceIncrease = "price_increase"
)

type TimeSlotFlag struct {
	Hour        int     `json:"hour"`
	Utilization float64 `json:"utilization"`
	Action      string  `json:"action"`
}

type BundleOpportunity struct {
	Activities    [2]string `json:"activities"`
	Frequency     int       `json:"frequency"`
	CoBookingRate float64   `json:"co_booking_rate"`
}

type CapacityOptimization struct {
	ExpansionOpportunities Insight[[]ExpansionOpportunity] `json:"expansion_opportunities"`
	PricingOpportunities   Insight[[]PricingOpportunity]   `json:"pricing_opportunities"`
	TimeSlotOptimization   Insight[[]TimeSlotFlag]         `json:"time_slot_optimization"`
	BundleOpportunities    Insight[[]BundleOpportunity]    `json:"bundle_opportunities"`
}

type OperationalInsights struct {
	WaiverCompletionRate Insight[float64]        `json:"waiver_completion_rate"`
	NoShowsByChannel     Insight[map[string]int] `json:"no_shows_by_channel"`
	PaymentMethods       Insight[map[string]int] `json:"payment_methods"`
	PaymentTiming        Insight[string]         `json:"payment_timing"`
}

// --------------------------------------------
// Layer 4: predictions
// --------------------------------------------
type Predictions struct {
	Revenue          RevenueForecast              `json:"revenue"`
	Bookings         BookingForecast              `json:"bookings"`
	CapacityFill     Insight[map[string]float64]  `json:"capacity_fill"`
	Customers        CustomerForecast             `json:"customers"`
	SelloutDates     Insight[[]SelloutPrediction] `json:"sellout_dates"`
	LowDemandPeriods Insight[[]string]            `json:"low_demand_periods"`
	Vouchers         VoucherForecast              `json:"vouchers"`
}

// Band is a point forecast with its confidence band.
type Band struct {
	Expected float64 `json:"expected"`
	Low      float64 `json:"low"`
	High     float64 `json:"high"`
}

type RevenueForecast struct {
	DailyRate  Insight[float64] `json:"daily_rate"`
	Next30Days Insight[Band]    `json:"next_30_days"`
	Next90Days Insight[Band]    `json:"next_90_days"`
}

type BookingForecast struct {
	DailyRate  Insight[float64] `json:"daily_rate"`
	Next7Days  Insight[float64] `json:"next_7_days"`
	Next30Days Insight[float64] `json:"next_30_days"`
	Next90Days Insight[float64] `json:"next_90_days"`
}

type AtRiskCustomer struct {
	Email                string  `json:"email"`
	LastBooking          string  `json:"last_booking"`
	DaysSinceLastBooking int     `json:"days_since_last_booking"`
	CLV                  float64 `json:"clv"`
}

type ReturnCandidate struct {
	Email                string  `json:"email"`
	LastBooking          string  `json:"last_booking"`
	DaysSinceLastBooking int     `json:"days_since_last_booking"`
	CLV                  float64 `json:"clv"`
	ReturnProbability    float64 `json:"return_probability"`
	ExpectedRevenue      float64 `json:"expected_revenue"`
}

type CustomerForecast struct {
	AtRisk         Insight[[]AtRiskCustomer]  `json:"at_risk"`
	LikelyToReturn Insight[[]ReturnCandidate] `json:"likely_to_return"`
}

type SelloutPrediction struct {
	Activity string `json:"activity"`
	Date     string `json:"date"`
}

type VoucherForecast struct {
	ExpectedRedemptions30Days     Insight[float64] `json:"expected_redemptions_30_days"`
	ExpectedRedemptionValue30Days Insight[float64] `json:"expected_redemption_value_30_days"`
	ExpectedBreakage              Insight[float64] `json:"expected_breakage"`
	Liability                     Insight[float64] `json:"liability"`
}

// --------------------------------------------
// Layer 5: recommendations
// --------------------------------------------
type Category string

const (
	CategoryRevenue    Category = "revenue"
	CategoryCustomer   Category = "customer"
	CategoryOperations Category = "operations"
	CategoryPricing    Category = "pricing"
	CategoryMarketing  Category = "marketing"
	CategoryCapacity   Category = "capacity"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

type Impact struct {
	ExpectedRevenue        *float64 `json:"expected_revenue,omitempty"`
	ExpectedBookings       *float64 `json:"expected_bookings,omitempty"`
	ExpectedEfficiencyGain *float64 `json:"expected_efficiency_gain,omitempty"`
}

type Recommendation struct {
	Recommendation  string   `json:"recommendation"`
	Category        Category `json:"category"`
	Priority        Priority `json:"priority"`
	Impact          Impact   `json:"impact"`
	Rationale       string   `json:"rationale"`
	DataSupporting  []string `json:"data_supporting"`
	ActionableSteps []string `json:"actionable_steps"`
}

// RecommendationSet partitions recommendations by category. Every slice is
// non-nil so empty categories serialize as [].
type RecommendationSet struct {
	Revenue    []Recommendation `json:"revenue"`
	Customer   []Recommendation `json:"customer"`
	Operations []Recommendation `json:"operations"`
	Pricing    []Recommendation `json:"pricing"`
	Marketing  []Recommendation `json:"marketing"`
	Capacity   []Recommendation `json:"capacity"`
}

func NewRecommendationSet() RecommendationSet {
	return RecommendationSet{
		Revenue:    []Recommendation{},
		Customer:   []Recommendation{},
		Operations: []Recommendation{},
		Pricing:    []Recommendation{},
		Marketing:  []Recommendation{},
		Capacity:   []Recommendation{},
	}
}

// Add files r under its category.
func (s *RecommendationSet) Add(r Recommendation) {
	switch r.Category {
	case CategoryRevenue:
		s.Revenue = append(s.Revenue, r)
	case CategoryCustomer:
		s.Customer = append(s.Customer, r)
	case CategoryOperations:
		s.Operations = append(s.Operations, r)
	case CategoryPricing:
		s.Pricing = append(s.Pricing, r)
	case CategoryMarketing:
		s.Marketing = append(s.Marketing, r)
	case CategoryCapacity:
		s.Capacity = append(s.Capacity, r)
	}
}

// All returns the category slices in a fixed order.
func (s RecommendationSet) All() [][]Recommendation {
	return [][]Recommendation{s.Revenue, s.Customer, s.Operations, s.Pricing, s.Marketing, s.Capacity}
}

// Len returns the number of recommendations across all categories.
func (s RecommendationSet) Len() int {
	return len(s.Revenue) + len(s.Customer) + len(s.Operations) +
		len(s.Pricing) + len(s.Marketing) + len(s.Capacity)
}

type Prescriptive struct {
	Recommendations RecommendationSet `json:"recommendations"`
	HighPriority    Insight[int]      `json:"high_priority_count"`
}
