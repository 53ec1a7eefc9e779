package recurrence

import (
	"iter"

	"github.com/samber/mo"
)

// MaxPreviewOccurrences caps every preview regardless of the requested count.
const MaxPreviewOccurrences = 10

// NextOccurrence returns the first occurrence of rule strictly after from.
// It is None only when the rule has an unknown kind or a weekly rule has no
// weekdays.
func NextOccurrence(rule Rule, from Date) mo.Option[Date] {
	switch v := rule.Variant().(type) {
	case Daily:
		return mo.Some(from.AddDays(v.Interval))
	case Weekly:
		return nextWeekly(v, from)
	case Monthly:
		y, m := addMonths(from.Year(), from.Month(), v.Interval)
		return mo.Some(v.Day.resolve(y, m))
	case Yearly:
		y, m := from.Year()+v.Interval, from.Month()
		if v.Month != 0 {
			m = v.Month
		}
		return mo.Some(v.Day.resolve(y, m))
	default:
		return mo.None[Date]()
	}
}

// nextWeekly stays inside the current week while a later selected weekday
// remains; the interval only multiplies the jump to the next active week.
func nextWeekly(v Weekly, from Date) mo.Option[Date] {
	if len(v.Weekdays) == 0 {
		return mo.None[Date]()
	}
	cur := from.Weekday()
	for _, wd := range v.Weekdays {
		if wd > cur {
			return mo.Some(from.AddDays(int(wd - cur)))
		}
	}
	ahead := 7 - int(cur) + int(v.Weekdays[0]) + (v.Interval-1)*7
	return mo.Some(from.AddDays(ahead))
}

// Occurrences yields successive occurrences after start, feeding each result
// back in as the next anchor. The sequence holds no cursor state: ranging
// over it again from the same arguments yields the same dates. It stops at
// the first None and after MaxPreviewOccurrences dates.
func Occurrences(rule Rule, start Date) iter.Seq[Date] {
	return func(yield func(Date) bool) {
		from := start
		for range MaxPreviewOccurrences {
			next, ok := NextOccurrence(rule, from).Get()
			if !ok || !yield(next) {
				return
			}
			from = next
		}
	}
}

// NextNOccurrences returns up to n (at most MaxPreviewOccurrences) upcoming
// dates after start.
func NextNOccurrences(rule Rule, n int, start Date) []Date {
	if n <= 0 {
		return []Date{}
	}
	out := make([]Date, 0, min(n, MaxPreviewOccurrences))
	for d := range Occurrences(rule, start) {
		out = append(out, d)
		if len(out) == n {
			break
		}
	}
	return out
}

// FirstOccurrence is the occurrence following the rule's anchor date. It is
// used to pre-fill a due date before any instance exists.
func FirstOccurrence(rule Rule) mo.Option[Date] {
	return NextOccurrence(rule, rule.AnchorDate)
}
