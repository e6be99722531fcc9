package actionable

import (
	"fmt"
	"math"

	"booking-insights-go/internal/types"
)

const (
	concentrationShare   = 40.0
	diversificationShare = 0.15

	maxExpansionCards = 3

	winBackRate       = 0.30
	winBackHighVolume = 10

	bundleMinFrequency = 5
	bundleUptake       = 0.5

	noShowThreshold = 5.0
	noShowBaseline  = 3.0
	noShowRecovery  = 0.5

	maxPricingCards = 2
	priceCutShare   = 0.05
	priceRiseShare  = 0.08

	channelGapThreshold = 20.0
	channelFocusShare   = 0.12

	idleHourThreshold = 15.0
	idleHourTarget    = 20.0
)

// Generate maps thresholds on the four analytical layers to recommendations.
// Every rule fires independently; a rule with nothing to say adds nothing.
func Generate(raw types.RawFacts, derived types.DerivedMetrics, connected types.Connections, predictive types.Predictions) types.Prescriptive {
	set := types.NewRecommendationSet()
	gross := raw.Revenue.GrossRevenue.Value

	rules := []func() []types.Recommendation{
		func() []types.Recommendation { return diversify(connected.RevenueDrivers, gross) },
		func() []types.Recommendation { return expandCapacity(connected.CapacityOptimization) },
		func() []types.Recommendation { return winBack(predictive.Customers) },
		func() []types.Recommendation { return bundle(connected.CustomerBehavior, derived.Efficiency) },
		func() []types.Recommendation { return reduceNoShows(derived.Efficiency, gross) },
		func() []types.Recommendation { return adjustPricing(connected.CapacityOptimization, gross) },
		func() []types.Recommendation { return channelFocus(connected.RevenueDrivers, gross) },
		func() []types.Recommendation { return consolidateSlots(connected.CapacityOptimization) },
	}
	for _, rule := range rules {
		for _, r := range rule() {
			set.Add(r)
		}
	}

	high := 0
	for _, list := range set.All() {
		for _, r := range list {
			if r.Priority == types.PriorityHigh {
				high++
			}
		}
	}
	return types.Prescriptive{
		Recommendations: set,
		HighPriority: types.NewInsight(high).
			WithCalculation("count(recommendations where priority = high)").WithSample(set.Len()),
	}
}

func money(v float64) *float64 { return &v }

func diversify(d types.RevenueDrivers, gross float64) []types.Recommendation {
	share := d.TopActivityShare.Value
	if share <= concentrationShare || d.TopActivity.Value == "" {
		return nil
	}
	return []types.Recommendation{{
		Recommendation: fmt.Sprintf("Reduce reliance on %s by promoting other activities", d.TopActivity.Value),
		Category:       types.CategoryRevenue,
		Priority:       types.PriorityHigh,
		Impact:         types.Impact{ExpectedRevenue: money(gross * diversificationShare)},
		Rationale:      fmt.Sprintf("%s drives %.1f%% of activity revenue, above the %.0f%% concentration threshold", d.TopActivity.Value, share, concentrationShare),
		DataSupporting: []string{
			fmt.Sprintf("top_activity: %s", d.TopActivity.Value),
			fmt.Sprintf("top_activity_share: %.1f%%", share),
		},
		ActionableSteps: []string{
			"Feature secondary activities on the booking page",
			"Offer an introductory discount on the next two best sellers",
			"Review the revenue mix monthly",
		},
	}}
}

func expandCapacity(c types.CapacityOptimization) []types.Recommendation {
	var out []types.Recommendation
	for i, op := range c.ExpansionOpportunities.Value {
		if i == maxExpansionCards {
			break
		}
		out = append(out, types.Recommendation{
			Recommendation: fmt.Sprintf("Add sessions for %s", op.Activity),
			Category:       types.CategoryCapacity,
			Priority:       types.PriorityHigh,
			Impact:         types.Impact{ExpectedRevenue: money(op.PotentialRevenue)},
			Rationale:      fmt.Sprintf("%s runs at %.1f%% utilization with %d bookings", op.Activity, op.Utilization, op.Bookings),
			DataSupporting: []string{
				fmt.Sprintf("utilization: %.1f%%", op.Utilization),
				fmt.Sprintf("bookings: %d", op.Bookings),
				fmt.Sprintf("potential_revenue: %.2f", op.PotentialRevenue),
			},
			ActionableSteps: []string{
				"Open additional time slots on the busiest days",
				"Check staffing and equipment for the extra sessions",
				"Track utilization after two weeks",
			},
		})
	}
	return out
}

func winBack(c types.CustomerForecast) []types.Recommendation {
	atRisk := c.AtRisk.Value
	if len(atRisk) == 0 {
		return nil
	}
	clv := 0.0
	for _, a := range atRisk {
		clv += a.CLV
	}
	priority := types.PriorityMedium
	if len(atRisk) >= winBackHighVolume {
		priority = types.PriorityHigh
	}
	return []types.Recommendation{{
		Recommendation: fmt.Sprintf("Run a win-back campaign for %d lapsed customers", len(atRisk)),
		Category:       types.CategoryCustomer,
		Priority:       priority,
		Impact: types.Impact{
			ExpectedRevenue:  money(clv * winBackRate),
			ExpectedBookings: money(float64(len(atRisk)) * winBackRate),
		},
		Rationale: fmt.Sprintf("%d customers have not booked in over 90 days, together worth %.2f", len(atRisk), clv),
		DataSupporting: []string{
			fmt.Sprintf("at_risk_customers: %d", len(atRisk)),
			fmt.Sprintf("at_risk_clv: %.2f", clv),
		},
		ActionableSteps: []string{
			"Email a personalised offer referencing their last activity",
			"Follow up after one week with a reminder",
			"Measure returns over the next 30 days",
		},
	}}
}

func bundle(b types.CustomerBehavior, e types.EfficiencyMetrics) []types.Recommendation {
	pairs := b.CrossSellPatterns.Value
	if len(pairs) == 0 || pairs[0].Frequency <= bundleMinFrequency {
		return nil
	}
	top := pairs[0]
	potential := float64(top.Frequency) * e.RevenuePerBooking.Value * 2
	return []types.Recommendation{{
		Recommendation: fmt.Sprintf("Create a %s + %s bundle", top.Activities[0], top.Activities[1]),
		Category:       types.CategoryRevenue,
		Priority:       types.PriorityMedium,
		Impact:         types.Impact{ExpectedRevenue: money(potential * bundleUptake)},
		Rationale:      fmt.Sprintf("%d customers already book both activities", top.Frequency),
		DataSupporting: []string{
			fmt.Sprintf("pair_frequency: %d", top.Frequency),
			fmt.Sprintf("revenue_per_booking: %.2f", e.RevenuePerBooking.Value),
		},
		ActionableSteps: []string{
			"Price the bundle slightly below the two activities booked separately",
			"Offer the bundle at checkout for either activity",
		},
	}}
}

func reduceNoShows(e types.EfficiencyMetrics, gross float64) []types.Recommendation {
	rate := e.NoShowPercent.Value
	if rate <= noShowThreshold {
		return nil
	}
	loss := rate / 100 * gross
	return []types.Recommendation{{
		Recommendation: fmt.Sprintf("Reduce no-shows from %.1f%% toward the %.0f%% baseline", rate, noShowBaseline),
		Category:       types.CategoryOperations,
		Priority:       types.PriorityHigh,
		Impact:         types.Impact{ExpectedRevenue: money(loss * noShowRecovery)},
		Rationale:      fmt.Sprintf("No-show rate of %.1f%% is above the %.0f%% threshold; the %.0f%% baseline is typical for reminder-driven venues", rate, noShowThreshold, noShowBaseline),
		DataSupporting: []string{
			fmt.Sprintf("no_show_percent: %.1f%%", rate),
			fmt.Sprintf("estimated_no_show_loss: %.2f", loss),
		},
		ActionableSteps: []string{
			"Send SMS reminders 24 hours and 2 hours before the session",
			"Require a deposit for large groups",
			"Offer easy rescheduling instead of silent no-shows",
		},
	}}
}

func adjustPricing(c types.CapacityOptimization, gross float64) []types.Recommendation {
	var out []types.Recommendation
	for i, op := range c.PricingOpportunities.Value {
		if i == maxPricingCards {
			break
		}
		r := types.Recommendation{
			Category: types.CategoryPricing,
			DataSupporting: []string{
				fmt.Sprintf("utilization: %.1f%%", op.Utilization),
				fmt.Sprintf("profit_margin: %.1f%%", op.ProfitMargin),
			},
		}
		switch op.Suggestion {
		case types.SuggestPriceIncrease:
			r.Recommendation = fmt.Sprintf("Raise prices for %s", op.Activity)
			r.Priority = types.PriorityHigh
			r.Impact = types.Impact{ExpectedRevenue: money(gross * priceRiseShare)}
			r.Rationale = fmt.Sprintf("%s is %.1f%% utilized; demand supports a higher price", op.Activity, op.Utilization)
			r.ActionableSteps = []string{"Test a 10% increase on peak sessions", "Watch conversion for two weeks"}
		default:
			r.Recommendation = fmt.Sprintf("Lower prices for %s to fill capacity", op.Activity)
			r.Priority = types.PriorityMedium
			r.Impact = types.Impact{ExpectedRevenue: money(gross * priceCutShare)}
			r.Rationale = fmt.Sprintf("%s is only %.1f%% utilized while keeping a %.1f%% margin", op.Activity, op.Utilization, op.ProfitMargin)
			r.ActionableSteps = []string{"Introduce off-peak pricing", "Promote the activity to past customers"}
		}
		out = append(out, r)
	}
	return out
}

func channelFocus(d types.RevenueDrivers, gross float64) []types.Recommendation {
	gap := d.ChannelValueGap.Value
	if math.Abs(gap) <= channelGapThreshold {
		return nil
	}
	stronger, weaker := "online", "operator"
	if gap < 0 {
		stronger, weaker = weaker, stronger
	}
	return []types.Recommendation{{
		Recommendation: fmt.Sprintf("Shift marketing toward %s bookings", stronger),
		Category:       types.CategoryMarketing,
		Priority:       types.PriorityMedium,
		Impact:         types.Impact{ExpectedRevenue: money(gross * channelFocusShare)},
		Rationale:      fmt.Sprintf("%s bookings are worth %.1f%% more on average than %s bookings", stronger, math.Abs(gap), weaker),
		DataSupporting: []string{
			fmt.Sprintf("online_average_value: %.2f", d.OnlineAverageValue.Value),
			fmt.Sprintf("operator_average_value: %.2f", d.OperatorAverageValue.Value),
			fmt.Sprintf("channel_value_gap: %.1f%%", gap),
		},
		ActionableSteps: []string{
			fmt.Sprintf("Move promotional budget to the %s channel", stronger),
			fmt.Sprintf("Review upsell prompts in the %s flow", weaker),
		},
	}}
}

func consolidateSlots(c types.CapacityOptimization) []types.Recommendation {
	slots := c.TimeSlotOptimization.Value
	if len(slots) == 0 {
		return nil
	}
	lowest := slots[0]
	for _, s := range slots[1:] {
		if s.Utilization < lowest.Utilization {
			lowest = s
		}
	}
	if lowest.Utilization >= idleHourThreshold {
		return nil
	}
	return []types.Recommendation{{
		Recommendation: fmt.Sprintf("Consolidate sessions around %02d:00", lowest.Hour),
		Category:       types.CategoryCapacity,
		Priority:       types.PriorityLow,
		Impact:         types.Impact{ExpectedEfficiencyGain: money(idleHourTarget - lowest.Utilization)},
		Rationale:      fmt.Sprintf("The %02d:00 hour is only %.1f%% utilized", lowest.Hour, lowest.Utilization),
		DataSupporting: []string{
			fmt.Sprintf("hour: %d", lowest.Hour),
			fmt.Sprintf("utilization: %.1f%%", lowest.Utilization),
		},
		ActionableSteps: []string{
			"Merge low-demand sessions into neighbouring slots",
			"Reassign staff from the idle hour",
		},
	}}
}
