package recurrence

import "fmt"

// EndType tags an EndCondition.
type EndType string

const (
	EndNever      EndType = "never"
	EndOnDate     EndType = "onDate"
	EndAfterCount EndType = "afterCount"
)

// EndCondition says when a series stops producing instances. The zero value
// means Never.
type EndCondition struct {
	Type  EndType `json:"type,omitempty"`
	Date  *Date   `json:"date,omitempty"`
	Count int     `json:"count,omitempty"`
}

func Never() EndCondition {
	return EndCondition{Type: EndNever}
}

// EndsOn ends the series after d; d itself is still a valid occurrence.
func EndsOn(d Date) EndCondition {
	return EndCondition{Type: EndOnDate, Date: &d}
}

// EndsAfter ends the series once n instances exist.
func EndsAfter(n int) EndCondition {
	return EndCondition{Type: EndAfterCount, Count: n}
}

func (ec EndCondition) String() string {
	switch ec.Type {
	case EndOnDate:
		if ec.Date == nil {
			return "on <unset>"
		}
		return "on " + ec.Date.String()
	case EndAfterCount:
		return fmt.Sprintf("after %d", ec.Count)
	default:
		return "never"
	}
}

// HasEnded reports whether a series with this end condition and
// occurrenceCount instances is over as of today. It must be evaluated fresh
// before every generation attempt.
func HasEnded(ec EndCondition, occurrenceCount int, today Date) bool {
	switch ec.Type {
	case EndOnDate:
		return ec.Date != nil && today.After(*ec.Date)
	case EndAfterCount:
		return occurrenceCount >= ec.Count
	default:
		return false
	}
}

// ExceededBy reports whether generating an instance due on next, which would
// bring the series to nextCount instances, would overrun ec.
func ExceededBy(ec EndCondition, next Date, nextCount int) bool {
	switch ec.Type {
	case EndOnDate:
		return ec.Date != nil && next.After(*ec.Date)
	case EndAfterCount:
		return nextCount > ec.Count
	default:
		return false
	}
}
