package recurrence

import (
	"slices"
	"time"
)

// Kind is the unit a rule repeats in.
type Kind string

const (
	KindDaily   Kind = "daily"
	KindWeekly  Kind = "weekly"
	KindMonthly Kind = "monthly"
	KindYearly  Kind = "yearly"
)

// MonthlyDayType selects how monthly and yearly rules pick the day.
type MonthlyDayType string

const (
	DayTypeDayOfMonth     MonthlyDayType = "dayOfMonth"
	DayTypeNthWeekday     MonthlyDayType = "nthWeekday"
	DayTypeLastDayOfMonth MonthlyDayType = "lastDayOfMonth"
)

// LastOrdinal is the WeekdayOrdinal meaning "last in the month".
const LastOrdinal = -1

// Rule is the persisted form of a recurrence rule. Only the fields relevant
// to Kind (and, for monthly/yearly, to MonthlyDayType) are read by the
// calculator; the others are inert. Use Variant for the typed view.
type Rule struct {
	Kind           Kind           `json:"kind"`
	Interval       int            `json:"interval"`
	Weekdays       []time.Weekday `json:"weekdays,omitempty"`
	MonthlyDayType MonthlyDayType `json:"monthlyDayType,omitempty"`
	DayOfMonth     int            `json:"dayOfMonth,omitempty"`
	WeekdayOrdinal int            `json:"weekdayOrdinal,omitempty"`
	Weekday        *time.Weekday  `json:"weekday,omitempty"`
	Month          time.Month     `json:"month,omitempty"`
	AnchorDate     Date           `json:"anchorDate"`
}

// Variant is the tagged-union view of a Rule: one of Daily, Weekly, Monthly
// or Yearly. The interface is sealed.
type Variant interface {
	variant()
}

type Daily struct {
	Interval int
}

type Weekly struct {
	Interval int
	// Weekdays is sorted ascending and free of duplicates.
	Weekdays []time.Weekday
}

type Monthly struct {
	Interval int
	Day      DaySelector
}

type Yearly struct {
	Interval int
	// Month is zero when the month of the date being advanced is kept.
	Month time.Month
	Day   DaySelector
}

func (Daily) variant()   {}
func (Weekly) variant()  {}
func (Monthly) variant() {}
func (Yearly) variant()  {}

// DaySelector resolves the day inside a target month. Sealed: DayOfMonth,
// NthWeekday or LastDayOfMonthSelector.
type DaySelector interface {
	resolve(year int, month time.Month) Date
}

// DayOfMonth picks a fixed day, clamped to the month's length.
type DayOfMonth struct {
	Day int
}

// NthWeekday picks the Ordinal-th Weekday (1..5, or LastOrdinal).
type NthWeekday struct {
	Ordinal int
	Weekday time.Weekday
}

// LastDayOfMonthSelector picks the final day of the month.
type LastDayOfMonthSelector struct{}

func (s DayOfMonth) resolve(year int, month time.Month) Date {
	return NewDate(year, month, min(s.Day, LastDayOfMonth(year, month)))
}

// resolve falls back to the last matching weekday when the month has no
// Ordinal-th one (e.g. a 5th Friday), so the result stays inside the month.
// An unvalidated weekday resolves to the last day of the month.
func (s NthWeekday) resolve(year int, month time.Month) Date {
	if d, ok := NthWeekdayOfMonth(year, month, s.Weekday, s.Ordinal).Get(); ok {
		return d
	}
	if d, ok := NthWeekdayOfMonth(year, month, s.Weekday, LastOrdinal).Get(); ok {
		return d
	}
	return LastDayOfMonthSelector{}.resolve(year, month)
}

func (LastDayOfMonthSelector) resolve(year int, month time.Month) Date {
	return NewDate(year, month, LastDayOfMonth(year, month))
}

// Variant returns the typed view of r, filling unset day fields from the
// anchor date. It returns nil for an unknown Kind.
func (r Rule) Variant() Variant {
	switch r.Kind {
	case KindDaily:
		return Daily{Interval: r.Interval}
	case KindWeekly:
		return Weekly{Interval: r.Interval, Weekdays: normalizeWeekdays(r.Weekdays)}
	case KindMonthly:
		return Monthly{Interval: r.Interval, Day: r.daySelector()}
	case KindYearly:
		return Yearly{Interval: r.Interval, Month: r.Month, Day: r.daySelector()}
	default:
		return nil
	}
}

func (r Rule) daySelector() DaySelector {
	switch r.MonthlyDayType {
	case DayTypeNthWeekday:
		return NthWeekday{Ordinal: r.ordinal(), Weekday: r.weekday()}
	case DayTypeLastDayOfMonth:
		return LastDayOfMonthSelector{}
	default:
		return DayOfMonth{Day: r.dayOfMonth()}
	}
}

func (r Rule) dayOfMonth() int {
	if r.DayOfMonth != 0 {
		return r.DayOfMonth
	}
	if r.AnchorDate.IsZero() {
		return 1
	}
	return r.AnchorDate.Day()
}

func (r Rule) weekday() time.Weekday {
	if r.Weekday != nil {
		return *r.Weekday
	}
	return r.AnchorDate.Weekday()
}

func (r Rule) ordinal() int {
	if r.WeekdayOrdinal != 0 {
		return r.WeekdayOrdinal
	}
	if r.AnchorDate.IsZero() {
		return 1
	}
	return (r.AnchorDate.Day()-1)/7 + 1
}

func normalizeWeekdays(in []time.Weekday) []time.Weekday {
	out := slices.Clone(in)
	slices.Sort(out)
	return slices.Compact(out)
}

// WeekdayPtr is a helper for filling Rule.Weekday.
func WeekdayPtr(w time.Weekday) *time.Weekday {
	return &w
}
