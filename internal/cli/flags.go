package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cyp0633/taskrecur/recurrence"
	"github.com/cyp0633/taskrecur/series"
	"github.com/spf13/cobra"
)

// ruleFlags mirror the recurrence fields of the task form.
type ruleFlags struct {
	form      recurrence.FormValues
	endsOn    string
	endsAfter int
}

func (f *ruleFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.form.Kind, "every", "", "daily, weekly, monthly, yearly, weekdays or weekends")
	fs.StringVar(&f.form.Interval, "interval", "1", "repeat every N days, weeks, months or years")
	fs.StringSliceVar(&f.form.Weekdays, "on", nil, "weekdays of a weekly rule, e.g. tue,thu")
	fs.StringVar(&f.form.MonthlyDayType, "day-type", "", "dayOfMonth, nthWeekday or lastDayOfMonth")
	fs.StringVar(&f.form.DayOfMonth, "day", "", "day of month (1-31)")
	fs.StringVar(&f.form.WeekdayOrdinal, "ordinal", "", "weekday ordinal (1-5, or -1 for last)")
	fs.StringVar(&f.form.Weekday, "weekday", "", "weekday of an nthWeekday rule")
	fs.StringVar(&f.form.Month, "month", "", "month of a yearly rule")
	fs.StringVar(&f.form.AnchorDate, "anchor", "", "anchor date (YYYY-MM-DD), defaults to today")
	fs.StringVar(&f.endsOn, "ends-on", "", "stop the series after this date (YYYY-MM-DD)")
	fs.IntVar(&f.endsAfter, "ends-after", 0, "stop the series after N occurrences")
	cmd.MarkFlagsMutuallyExclusive("ends-on", "ends-after")
}

// rule builds and validates the rule. A missing --every is an error.
func (f *ruleFlags) rule(today recurrence.Date) (recurrence.Rule, error) {
	if f.form.AnchorDate != "" {
		if _, err := recurrence.ParseDate(f.form.AnchorDate); err != nil {
			return recurrence.Rule{}, fmt.Errorf("--anchor: %w", err)
		}
	}
	rule, ok := recurrence.BuildRule(f.form, today).Get()
	if !ok {
		return recurrence.Rule{}, errors.New("--every is required")
	}
	if err := recurrence.ValidateRule(rule); err != nil {
		return recurrence.Rule{}, err
	}
	return rule, nil
}

func (f *ruleFlags) end() (recurrence.EndCondition, error) {
	switch {
	case f.endsOn != "":
		d, err := recurrence.ParseDate(f.endsOn)
		if err != nil {
			return recurrence.EndCondition{}, fmt.Errorf("--ends-on: %w", err)
		}
		return recurrence.EndsOn(d), nil
	case f.endsAfter != 0:
		end := recurrence.EndsAfter(f.endsAfter)
		return end, recurrence.ValidateEndCondition(end)
	default:
		return recurrence.Never(), nil
	}
}

// taskFlags carry the content fields of a task.
type taskFlags struct {
	comment  string
	category string
	project  string
	context  string
	priority string
	due      string
}

func (f *taskFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.comment, "comment", "", "free-text comment")
	fs.StringVar(&f.category, "category", "", "category")
	fs.StringVar(&f.project, "project", "", "project")
	fs.StringVar(&f.context, "context", "", "GTD context, e.g. @home")
	fs.StringVar(&f.priority, "priority", "", "priority")
	fs.StringVar(&f.due, "due", "", "due date (YYYY-MM-DD)")
}

func (f *taskFlags) data(userID string, args []string) (series.TaskData, error) {
	data := series.TaskData{
		UserID:   userID,
		Text:     strings.Join(args, " "),
		Comment:  f.comment,
		Category: f.category,
		Project:  f.project,
		Context:  f.context,
		Priority: f.priority,
	}
	if f.due != "" {
		d, err := recurrence.ParseDate(f.due)
		if err != nil {
			return series.TaskData{}, fmt.Errorf("--due: %w", err)
		}
		data.DueDate = &d
	}
	return data, nil
}

// outputFlag selects how results are printed.
type outputFlag struct {
	format string
}

func (f *outputFlag) register(cmd *cobra.Command, formats ...string) {
	cmd.Flags().StringVarP(&f.format, "output", "o", formats[0], "output format: "+strings.Join(formats, ", "))
}
