// Package export renders task instances and rule previews as iCalendar
// VTODO components. Every to-do carries a concrete DUE date; no RRULE is
// emitted.
package export

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cyp0633/taskrecur/recurrence"
	"github.com/cyp0633/taskrecur/storage"
	"github.com/emersion/go-ical"
)

// ProductID identifies the exporter in PRODID.
const ProductID = "-//taskrecur//Recurring Tasks//EN"

// Item is one exported to-do.
type Item struct {
	UID         string
	Summary     string
	Description string
	Categories  []string
	Due         recurrence.Date // zero means no DUE
	Completed   bool
	CompletedAt time.Time
	// Stamp becomes DTSTAMP; zero uses the current time.
	Stamp time.Time
}

// ItemFromTask builds an Item from a stored task. summary and description
// are the revealed plaintext of the task's text and comment.
func ItemFromTask(t *storage.Task, summary, description string) Item {
	item := Item{
		UID:         t.ID,
		Summary:     summary,
		Description: description,
		Completed:   t.Completed,
		Stamp:       t.UpdatedAt,
	}
	if t.Category != "" {
		item.Categories = []string{t.Category}
	}
	if t.DueDate != nil {
		item.Due = *t.DueDate
	}
	if t.CompletedAt != nil {
		item.CompletedAt = *t.CompletedAt
	}
	return item
}

// PreviewItems turns previewed dates into to-dos with stable UIDs derived
// from prefix and the date.
func PreviewItems(prefix, summary string, dates []recurrence.Date) []Item {
	items := make([]Item, 0, len(dates))
	for _, d := range dates {
		items = append(items, Item{
			UID:     fmt.Sprintf("%s-%s", prefix, strings.ReplaceAll(d.String(), "-", "")),
			Summary: summary,
			Due:     d,
		})
	}
	return items
}

// Calendar builds a VCALENDAR holding one VTODO per item.
func Calendar(items []Item) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)

	now := time.Now().UTC()
	for _, item := range items {
		cal.Children = append(cal.Children, todo(item, now))
	}
	return cal
}

func todo(item Item, now time.Time) *ical.Component {
	comp := ical.NewComponent(ical.CompToDo)
	comp.Props.SetText(ical.PropUID, item.UID)
	comp.Props.SetText(ical.PropSummary, item.Summary)

	stamp := item.Stamp
	if stamp.IsZero() {
		stamp = now
	}
	comp.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())

	if !item.Due.IsZero() {
		comp.Props.SetDate(ical.PropDue, item.Due.In(time.UTC))
	}
	if item.Description != "" {
		comp.Props.SetText(ical.PropDescription, item.Description)
	}
	if len(item.Categories) > 0 {
		prop := ical.NewProp(ical.PropCategories)
		escaped := make([]string, len(item.Categories))
		for i, c := range item.Categories {
			escaped[i] = textEscaper.Replace(c)
		}
		prop.Value = strings.Join(escaped, ",")
		comp.Props.Set(prop)
	}

	if item.Completed {
		comp.Props.SetText(ical.PropStatus, "COMPLETED")
		if !item.CompletedAt.IsZero() {
			comp.Props.SetDateTime(ical.PropCompleted, item.CompletedAt.UTC())
		}
	} else {
		comp.Props.SetText(ical.PropStatus, "NEEDS-ACTION")
	}
	return comp
}

var textEscaper = strings.NewReplacer(
	"\\", "\\\\",
	";", "\\;",
	",", "\\,",
	"\n", "\\n",
)

// Encode writes items as an iCalendar stream.
func Encode(w io.Writer, items []Item) error {
	if err := ical.NewEncoder(w).Encode(Calendar(items)); err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}
	return nil
}

// EncodeString is Encode into a string.
func EncodeString(items []Item) (string, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, items); err != nil {
		return "", err
	}
	return buf.String(), nil
}
