package recurrence

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/samber/mo"
)

// DateLayout is the wire and storage format of a calendar date.
const DateLayout = "2006-01-02"

// Date is a timezone-naive calendar day.
//
// The value is kept as midnight UTC so that day arithmetic never crosses a
// DST transition or an offset change. Use In to get local midnight.
type Date struct {
	t time.Time
}

// NewDate returns the calendar date y-m-d. Out of range values are normalized
// the same way time.Date normalizes them.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate parses a YYYY-MM-DD string. No timezone conversion is applied.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid calendar date %q: %w", s, err)
	}
	return Date{t: t}, nil
}

// MustParseDate is like ParseDate but panics on error. Intended for tests and
// static tables.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// FormatDate renders d as zero-padded YYYY-MM-DD.
func FormatDate(d Date) string {
	return d.t.Format(DateLayout)
}

func (d Date) Year() int { return d.t.Year() }
func (d Date) Month() time.Month { return d.t.Month() }
func (d Date) Day() int { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) IsZero() bool { return d.t.IsZero() }
func (d Date) String() string { return FormatDate(d) }
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) Before(other Date) bool { return d.t.Before(other.t) }
func (d Date) After(other Date) bool { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool { return d.t.Equal(other.t) }

// Compare returns -1, 0 or +1.
func (d Date) Compare(other Date) int {
	return d.t.Compare(other.t)
}

// In returns midnight of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
}

// DaysUntil returns the number of days from d to other (negative when other
// is earlier).
func (d Date) DaysUntil(other Date) int {
	return int(other.t.Sub(d.t).Hours() / 24)
}

func (d Date) MarshalText() ([]byte, error) {
	if d.IsZero() {
		return []byte{}, nil
	}
	return []byte(FormatDate(d)), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer; zero dates are stored as NULL.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return FormatDate(d), nil
}

// Scan implements sql.Scanner.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case string:
		return d.UnmarshalText([]byte(v))
	case []byte:
		return d.UnmarshalText(v)
	case time.Time:
		*d = DateOf(v)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

// LastDayOfMonth returns the number of days in the given month (28..31).
func LastDayOfMonth(year int, month time.Month) int {
	// day 0 of the following month is the last day of this one
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// NthWeekdayOfMonth finds the ordinal-th weekday in the month. Ordinals 1..5
// count forward from the first of the month and yield None when the month has
// fewer matching days; -1 is the last matching day and always resolves. A
// weekday outside Sunday..Saturday yields None.
func NthWeekdayOfMonth(year int, month time.Month, weekday time.Weekday, ordinal int) mo.Option[Date] {
	switch {
	case weekday < time.Sunday || weekday > time.Saturday:
		return mo.None[Date]()
	case ordinal == -1:
		last := NewDate(year, month, LastDayOfMonth(year, month))
		back := (int(last.Weekday()) - int(weekday) + 7) % 7
		return mo.Some(last.AddDays(-back))
	case ordinal >= 1 && ordinal <= 5:
		first := NewDate(year, month, 1)
		ahead := (int(weekday) - int(first.Weekday()) + 7) % 7
		day := 1 + ahead + (ordinal-1)*7
		if day > LastDayOfMonth(year, month) {
			return mo.None[Date]()
		}
		return mo.Some(NewDate(year, month, day))
	default:
		return mo.None[Date]()
	}
}

// addMonths moves (year, month) by n months without touching the day, so
// that Jan 31 + 1 month stays in February.
func addMonths(year int, month time.Month, n int) (int, time.Month) {
	idx := year*12 + int(month-1) + n
	return idx / 12, time.Month(idx%12 + 1)
}
