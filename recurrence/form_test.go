package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRule_None(t *testing.T) {
	today := MustParseDate("2024-05-01")
	assert.True(t, BuildRule(FormValues{}, today).IsAbsent())
	assert.True(t, BuildRule(FormValues{Kind: "none"}, today).IsAbsent())
	assert.True(t, BuildRule(FormValues{Kind: " None "}, today).IsAbsent())
}

func TestBuildRule_Defaults(t *testing.T) {
	today := MustParseDate("2024-05-01")

	rule, ok := BuildRule(FormValues{Kind: "monthly", Interval: "abc"}, today).Get()
	require.True(t, ok)
	assert.Equal(t, KindMonthly, rule.Kind)
	assert.Equal(t, 1, rule.Interval)
	assert.Equal(t, DayTypeDayOfMonth, rule.MonthlyDayType)
	assert.True(t, today.Equal(rule.AnchorDate))
	assert.NoError(t, ValidateRule(rule))
}

func TestBuildRule_Weekly(t *testing.T) {
	rule := BuildRule(FormValues{
		Kind:       "weekly",
		Interval:   "2",
		Weekdays:   []string{"2", "thu"},
		AnchorDate: "2024-01-02",
	}, MustParseDate("2024-05-01")).MustGet()

	assert.Equal(t, 2, rule.Interval)
	assert.Equal(t, []time.Weekday{time.Tuesday, time.Thursday}, rule.Weekdays)
	assert.Equal(t, "2024-01-02", rule.AnchorDate.String())
	assert.Equal(t, "Every 2 weeks on Tue, Thu", FormatRuleSummary(rule))
}

func TestBuildRule_WeeklyKeepsOutOfRangeForValidation(t *testing.T) {
	rule := BuildRule(FormValues{Kind: "weekly", Weekdays: []string{"9"}}, MustParseDate("2024-05-01")).MustGet()

	var verr *ValidationError
	require.ErrorAs(t, ValidateRule(rule), &verr)
	assert.Equal(t, "weekdays", verr.Field)
}

func TestBuildRule_Presets(t *testing.T) {
	today := MustParseDate("2024-05-01")

	weekdays := BuildRule(FormValues{Kind: "weekdays"}, today).MustGet()
	assert.Equal(t, KindWeekly, weekdays.Kind)
	assert.Equal(t, []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}, weekdays.Weekdays)

	weekends := BuildRule(FormValues{Kind: "weekends", Interval: "3"}, today).MustGet()
	assert.Equal(t, KindWeekly, weekends.Kind)
	assert.Equal(t, 3, weekends.Interval)
	assert.Equal(t, []time.Weekday{time.Sunday, time.Saturday}, weekends.Weekdays)

	// presets hand out copies
	weekends.Weekdays[0] = time.Wednesday
	assert.Equal(t, time.Sunday, Presets["weekends"][0])
}

func TestBuildRule_YearlyNthWeekday(t *testing.T) {
	rule := BuildRule(FormValues{
		Kind:           "yearly",
		MonthlyDayType: "nthWeekday",
		WeekdayOrdinal: "3",
		Weekday:        "Monday",
		Month:          "jun",
	}, MustParseDate("2024-01-01")).MustGet()

	require.NotNil(t, rule.Weekday)
	assert.Equal(t, time.Monday, *rule.Weekday)
	assert.Equal(t, 3, rule.WeekdayOrdinal)
	assert.Equal(t, time.June, rule.Month)
	assert.NoError(t, ValidateRule(rule))
	assert.Equal(t, "Every year on the 3rd Monday of June", FormatRuleSummary(rule))
}

func TestBuildRule_UnknownKindIsKeptForValidation(t *testing.T) {
	rule := BuildRule(FormValues{Kind: "fortnightly"}, MustParseDate("2024-01-01")).MustGet()
	var verr *ValidationError
	require.ErrorAs(t, ValidateRule(rule), &verr)
	assert.Equal(t, "kind", verr.Field)
}

func TestParseWeekday(t *testing.T) {
	tests := map[string]time.Weekday{
		"0":         time.Sunday,
		"6":         time.Saturday,
		"tue":       time.Tuesday,
		"THU":       time.Thursday,
		"Wednesday": time.Wednesday,
		" fri ":     time.Friday,
	}
	for in, want := range tests {
		got, ok := ParseWeekday(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "7", "-1", "tues", "x"} {
		_, ok := ParseWeekday(bad)
		assert.False(t, ok, bad)
	}
}

func TestParseMonth(t *testing.T) {
	m, ok := ParseMonth("12")
	require.True(t, ok)
	assert.Equal(t, time.December, m)

	m, ok = ParseMonth("September")
	require.True(t, ok)
	assert.Equal(t, time.September, m)

	m, ok = ParseMonth("13")
	require.True(t, ok)
	assert.Equal(t, time.Month(13), m)

	_, ok = ParseMonth("")
	assert.False(t, ok)
	_, ok = ParseMonth("smarch")
	assert.False(t, ok)
}
