package recurrence

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidRule is matched by every ValidationError.
var ErrInvalidRule = errors.New("invalid recurrence rule")

// ValidationError names the first constraint a rule violates.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidRule, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidRule
}

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// ruleFields projects a Rule onto the fields relevant to its kind. Fields
// left nil are not checked. Field order is the order constraints are
// reported in.
type ruleFields struct {
	Kind           string  `json:"kind" validate:"oneof=daily weekly monthly yearly"`
	Interval       int     `json:"interval" validate:"min=1,max=365"`
	Weekdays       []int   `json:"weekdays" validate:"omitnil,min=1,dive,min=0,max=6"`
	DayOfMonth     *int    `json:"dayOfMonth" validate:"omitnil,min=1,max=31"`
	Weekday        *int    `json:"weekday" validate:"omitnil,min=0,max=6"`
	WeekdayOrdinal *int    `json:"weekdayOrdinal" validate:"omitnil,oneof=1 2 3 4 5 -1"`
	MonthlyDayType *string `json:"monthlyDayType" validate:"omitnil,oneof=dayOfMonth nthWeekday lastDayOfMonth"`
	Month          *int    `json:"month" validate:"omitnil,min=1,max=12"`
}

func project(r Rule) ruleFields {
	f := ruleFields{Kind: string(r.Kind), Interval: r.Interval}
	switch r.Kind {
	case KindWeekly:
		f.Weekdays = make([]int, 0, len(r.Weekdays))
		for _, wd := range r.Weekdays {
			f.Weekdays = append(f.Weekdays, int(wd))
		}
	case KindMonthly, KindYearly:
		dayType := r.MonthlyDayType
		if dayType == "" {
			dayType = DayTypeDayOfMonth
		}
		if dayType == DayTypeDayOfMonth && r.DayOfMonth != 0 {
			f.DayOfMonth = &r.DayOfMonth
		}
		if r.Weekday != nil {
			wd := int(*r.Weekday)
			f.Weekday = &wd
		}
		if dayType == DayTypeNthWeekday && r.WeekdayOrdinal != 0 {
			f.WeekdayOrdinal = &r.WeekdayOrdinal
		}
		if r.MonthlyDayType != "" {
			t := string(r.MonthlyDayType)
			f.MonthlyDayType = &t
		}
		if r.Kind == KindYearly && r.Month != 0 {
			m := int(r.Month)
			f.Month = &m
		}
	}
	return f
}

// ValidateRule checks rule and returns a *ValidationError for the first
// violated constraint, or nil.
func ValidateRule(rule Rule) error {
	err := validate.Struct(project(rule))
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Reason: err.Error()}
	}
	fe := verrs[0]
	return &ValidationError{Field: fieldName(fe), Reason: reason(fe, rule)}
}

func fieldName(fe validator.FieldError) string {
	name, _, _ := strings.Cut(fe.Field(), "[")
	return name
}

func reason(fe validator.FieldError, rule Rule) string {
	switch fieldName(fe) {
	case "kind":
		return fmt.Sprintf("kind must be one of daily, weekly, monthly, yearly (got %q)", rule.Kind)
	case "interval":
		return fmt.Sprintf("interval must be between 1 and 365 (got %d)", rule.Interval)
	case "weekdays":
		if fe.Field() == "weekdays" {
			return "weekly rules need at least one weekday"
		}
		return fmt.Sprintf("weekdays must be between 0 and 6 (got %v)", fe.Value())
	case "dayOfMonth":
		return fmt.Sprintf("dayOfMonth must be between 1 and 31 (got %d)", rule.DayOfMonth)
	case "weekday":
		return fmt.Sprintf("weekday must be between 0 and 6 (got %d)", int(*rule.Weekday))
	case "weekdayOrdinal":
		return fmt.Sprintf("weekdayOrdinal must be 1-5 or -1 (got %d)", rule.WeekdayOrdinal)
	case "monthlyDayType":
		return fmt.Sprintf("monthlyDayType must be one of dayOfMonth, nthWeekday, lastDayOfMonth (got %q)", rule.MonthlyDayType)
	case "month":
		return fmt.Sprintf("month must be between 1 and 12 (got %d)", rule.Month)
	default:
		return fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag())
	}
}

// ValidateEndCondition checks that an onDate condition carries a date and an
// afterCount condition a positive count.
func ValidateEndCondition(ec EndCondition) error {
	switch ec.Type {
	case "", EndNever:
		return nil
	case EndOnDate:
		if ec.Date == nil || ec.Date.IsZero() {
			return &ValidationError{Field: "endCondition.date", Reason: "onDate end condition needs a date"}
		}
	case EndAfterCount:
		if ec.Count < 1 {
			return &ValidationError{Field: "endCondition.count", Reason: fmt.Sprintf("afterCount must be at least 1 (got %d)", ec.Count)}
		}
	default:
		return &ValidationError{Field: "endCondition.type", Reason: fmt.Sprintf("unknown end condition %q", ec.Type)}
	}
	return nil
}
