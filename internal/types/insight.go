package types

import "time"

// --------------------------------------------
// Provenance envelope shared by all layers
// --------------------------------------------

type Metadata struct {
	Source      []string   `json:"source"`
	Calculation string     `json:"calculation,omitempty"`
	DateRange   *DateRange `json:"date_range,omitempty"`
	SampleSize  *int       `json:"sample_size,omitempty"`
	Confidence  *float64   `json:"confidence,omitempty"` // 0..1
}

// Insight wraps every output value with its provenance.
type Insight[T any] struct {
	Value    T        `json:"value"`
	Metadata Metadata `json:"metadata"`
}

func NewInsight[T any](value T, sources ...string) Insight[T] {
	src := make([]string, len(sources))
	copy(src, sources)
	return Insight[T]{Value: value, Metadata: Metadata{Source: src}}
}

func (i Insight[T]) WithCalculation(calc string) Insight[T] {
	i.Metadata.Calculation = calc
	return i
}

func (i Insight[T]) WithSample(n int) Insight[T] {
	i.Metadata.SampleSize = &n
	return i
}

func (i Insight[T]) WithConfidence(c float64) Insight[T] {
	i.Metadata.Confidence = &c
	return i
}

func (i Insight[T]) WithRange(r DateRange) Insight[T] {
	i.Metadata.DateRange = &r
	return i
}

// Sample returns the recorded sample size, 0 when none was recorded.
func (i Insight[T]) Sample() int {
	if i.Metadata.SampleSize == nil {
		return 0
	}
	return *i.Metadata.SampleSize
}

// --------------------------------------------
// Periods
// --------------------------------------------

type DateRange struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// Period is the resolved date range of a dataset, in whole dates.
type Period struct {
	Start time.Time
	End   time.Time
}

func (p Period) DateRange() DateRange {
	return DateRange{StartDate: p.Start.Format(DateLayout), EndDate: p.End.Format(DateLayout)}
}

// Days counts whole days in the period, inclusive of both ends, never below 1.
func (p Period) Days() int {
	start := truncateDay(p.Start)
	end := truncateDay(p.End)
	d := int(end.Sub(start).Hours()/24) + 1
	if d < 1 {
		return 1
	}
	return d
}

// ResolvePeriod returns the min/max booking date. Bookings without a date are
// ignored; when none has one both bounds fall back to now.
func ResolvePeriod(bookings []Booking, now time.Time) Period {
	var p Period
	for _, b := range bookings {
		if b.Date.IsZero() {
			continue
		}
		if p.Start.IsZero() || b.Date.Before(p.Start) {
			p.Start = b.Date
		}
		if p.End.IsZero() || b.Date.After(p.End) {
			p.End = b.Date
		}
	}
	if p.Start.IsZero() {
		return Period{Start: now, End: now}
	}
	return p
}

// Window selects the records a source should fetch. The comparison bounds
// are optional; both zero means no previous period.
type Window struct {
	Start        time.Time
	End          time.Time
	CompareStart time.Time
	CompareEnd   time.Time
}

func (w Window) HasComparison() bool {
	return !w.CompareStart.IsZero() && !w.CompareEnd.IsZero()
}

// DaysBetween returns whole days elapsed from earlier to later.
func DaysBetween(earlier, later time.Time) int {
	return int(truncateDay(later).Sub(truncateDay(earlier)).Hours() / 24)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
