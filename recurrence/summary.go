package recurrence

import (
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

var summaryCatalog = catalog.NewBuilder(catalog.Fallback(language.English))

// English keys are the message ids; only translations are registered.
var germanSummaries = map[string]string{
	"Does not repeat": "Keine Wiederholung",
	"Every day":       "Jeden Tag",
	"Every %d days":   "Alle %d Tage",
	"Every week":      "Jede Woche",
	"Every %d weeks":  "Alle %d Wochen",
	"Every month":     "Jeden Monat",
	"Every %d months": "Alle %d Monate",
	"Every year":      "Jedes Jahr",
	"Every %d years":  "Alle %d Jahre",

	"on %s":                 "am %s",
	"on day %d":             "am %d.",
	"on the %s %s":          "am %s %s",
	"on the last day":       "am letzten Tag",
	"on %s %d":              "am %[2]d. %[1]s",
	"on the %s %s of %s":    "am %s %s im %s",
	"on the last day of %s": "am letzten Tag im %s",

	"1st":  "ersten",
	"2nd":  "zweiten",
	"3rd":  "dritten",
	"4th":  "vierten",
	"5th":  "fünften",
	"last": "letzten",

	"Sun": "So",
	"Mon": "Mo",
	"Tue": "Di",
	"Wed": "Mi",
	"Thu": "Do",
	"Fri": "Fr",
	"Sat": "Sa",

	"Sunday":    "Sonntag",
	"Monday":    "Montag",
	"Tuesday":   "Dienstag",
	"Wednesday": "Mittwoch",
	"Thursday":  "Donnerstag",
	"Friday":    "Freitag",
	"Saturday":  "Samstag",

	"January":  "Januar",
	"February": "Februar",
	"March":    "März",
	"May":      "Mai",
	"June":     "Juni",
	"July":     "Juli",
	"October":  "Oktober",
	"December": "Dezember",
}

func init() {
	for key, msg := range germanSummaries {
		if err := summaryCatalog.SetString(language.German, key, msg); err != nil {
			panic(err)
		}
	}
}

// FormatRuleSummary describes rule in English, e.g. "Every 2 weeks on Tue,
// Thu" or "Every month on the last Friday".
func FormatRuleSummary(rule Rule) string {
	return FormatRuleSummaryIn(language.English, rule)
}

// FormatRuleSummaryIn describes rule in the language closest to tag.
// English and German are available.
func FormatRuleSummaryIn(tag language.Tag, rule Rule) string {
	p := message.NewPrinter(tag, message.Catalog(summaryCatalog))

	switch v := rule.Variant().(type) {
	case Daily:
		return every(p, v.Interval, "Every day", "Every %d days")
	case Weekly:
		head := every(p, v.Interval, "Every week", "Every %d weeks")
		if len(v.Weekdays) == 0 {
			return head
		}
		names := make([]string, len(v.Weekdays))
		for i, wd := range v.Weekdays {
			names[i] = p.Sprintf(wd.String()[:3])
		}
		return head + " " + p.Sprintf("on %s", strings.Join(names, ", "))
	case Monthly:
		head := every(p, v.Interval, "Every month", "Every %d months")
		return head + " " + dayPhrase(p, v.Day, 0)
	case Yearly:
		head := every(p, v.Interval, "Every year", "Every %d years")
		month := v.Month
		if month == 0 && !rule.AnchorDate.IsZero() {
			month = rule.AnchorDate.Month()
		}
		return head + " " + dayPhrase(p, v.Day, month)
	default:
		return p.Sprintf("Does not repeat")
	}
}

func every(p *message.Printer, interval int, one, many string) string {
	if interval == 1 {
		return p.Sprintf(one)
	}
	return p.Sprintf(many, interval)
}

// dayPhrase renders the day selector; month is zero when the rule keeps the
// month of the date being advanced.
func dayPhrase(p *message.Printer, sel DaySelector, month time.Month) string {
	switch s := sel.(type) {
	case NthWeekday:
		ord := p.Sprintf(ordinalWord(s.Ordinal))
		wd := p.Sprintf(s.Weekday.String())
		if month == 0 {
			return p.Sprintf("on the %s %s", ord, wd)
		}
		return p.Sprintf("on the %s %s of %s", ord, wd, p.Sprintf(month.String()))
	case LastDayOfMonthSelector:
		if month == 0 {
			return p.Sprintf("on the last day")
		}
		return p.Sprintf("on the last day of %s", p.Sprintf(month.String()))
	case DayOfMonth:
		if month == 0 {
			return p.Sprintf("on day %d", s.Day)
		}
		return p.Sprintf("on %s %d", p.Sprintf(month.String()), s.Day)
	default:
		return ""
	}
}

func ordinalWord(n int) string {
	switch n {
	case 1:
		return "1st"
	case 2:
		return "2nd"
	case 3:
		return "3rd"
	case 4:
		return "4th"
	case 5:
		return "5th"
	default:
		return "last"
	}
}
