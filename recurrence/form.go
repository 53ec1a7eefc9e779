package recurrence

import (
	"strconv"
	"strings"
	"time"

	"github.com/samber/mo"
)

// FormValues carries the raw recurrence fields collected from the task form.
// Every field is a string as submitted; parsing happens in BuildRule.
type FormValues struct {
	// Kind is "none", one of the Kind values, or a preset name.
	Kind           string
	Interval       string
	Weekdays       []string
	MonthlyDayType string
	DayOfMonth     string
	WeekdayOrdinal string
	Weekday        string
	Month          string
	AnchorDate     string
}

// Presets are UI shortcuts over weekly rules. They never become kinds of
// their own.
var Presets = map[string][]time.Weekday{
	"weekdays": {time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
	"weekends": {time.Sunday, time.Saturday},
}

// BuildRule turns form values into a rule. It returns None when no recurrence
// was requested. The result is not validated; call ValidateRule.
func BuildRule(form FormValues, today Date) mo.Option[Rule] {
	kind := strings.ToLower(strings.TrimSpace(form.Kind))
	if kind == "" || kind == "none" {
		return mo.None[Rule]()
	}

	rule := Rule{
		Kind:           Kind(kind),
		Interval:       1,
		MonthlyDayType: DayTypeDayOfMonth,
		AnchorDate:     today,
	}
	if n, err := strconv.Atoi(strings.TrimSpace(form.Interval)); err == nil {
		rule.Interval = n
	}
	if form.AnchorDate != "" {
		if d, err := ParseDate(strings.TrimSpace(form.AnchorDate)); err == nil {
			rule.AnchorDate = d
		}
	}

	if preset, ok := Presets[kind]; ok {
		rule.Kind = KindWeekly
		rule.Weekdays = append([]time.Weekday(nil), preset...)
		return mo.Some(rule)
	}

	switch rule.Kind {
	case KindWeekly:
		rule.Weekdays = []time.Weekday{}
		for _, s := range form.Weekdays {
			// out of range numbers are kept so validation can report them
			if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
				rule.Weekdays = append(rule.Weekdays, time.Weekday(n))
			} else if wd, ok := ParseWeekday(s); ok {
				rule.Weekdays = append(rule.Weekdays, wd)
			}
		}
	case KindMonthly, KindYearly:
		if t := strings.TrimSpace(form.MonthlyDayType); t != "" {
			rule.MonthlyDayType = MonthlyDayType(t)
		}
		rule.DayOfMonth = atoiOr(form.DayOfMonth, 0)
		rule.WeekdayOrdinal = atoiOr(form.WeekdayOrdinal, 0)
		if s := strings.TrimSpace(form.Weekday); s != "" {
			if n, err := strconv.Atoi(s); err == nil {
				rule.Weekday = WeekdayPtr(time.Weekday(n))
			} else if wd, ok := ParseWeekday(s); ok {
				rule.Weekday = WeekdayPtr(wd)
			}
		}
		if rule.Kind == KindYearly {
			if m, ok := ParseMonth(form.Month); ok {
				rule.Month = m
			}
		}
	}
	return mo.Some(rule)
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}

// ParseWeekday accepts a weekday number (0=Sunday), an English weekday name
// or its three letter abbreviation.
func ParseWeekday(s string) (time.Weekday, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 6 {
			return 0, false
		}
		return time.Weekday(n), true
	}
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		name := wd.String()
		if strings.EqualFold(s, name) || strings.EqualFold(s, name[:3]) {
			return wd, true
		}
	}
	return 0, false
}

// ParseMonth accepts 1..12 or an English month name or abbreviation.
// Out of range numbers are returned as-is with ok=true so that validation
// can reject them with a proper reason.
func ParseMonth(s string) (time.Month, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return time.Month(n), true
	}
	for m := time.January; m <= time.December; m++ {
		name := m.String()
		if strings.EqualFold(s, name) || strings.EqualFold(s, name[:3]) {
			return m, true
		}
	}
	return 0, false
}
