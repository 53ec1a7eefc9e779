package export

import (
	"strings"
	"testing"
	"time"

	"github.com/cyp0633/taskrecur/recurrence"
	"github.com/cyp0633/taskrecur/storage"
	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, ics string) *ical.Calendar {
	t.Helper()
	cal, err := ical.NewDecoder(strings.NewReader(ics)).Decode()
	require.NoError(t, err)
	return cal
}

func TestEncode_Preview(t *testing.T) {
	dates := []recurrence.Date{
		recurrence.MustParseDate("2024-01-04"),
		recurrence.MustParseDate("2024-01-09"),
	}
	ics, err := EncodeString(PreviewItems("gym", "Gym", dates))
	require.NoError(t, err)
	assert.NotContains(t, ics, "RRULE")

	cal := decode(t, ics)
	prodID, err := cal.Props.Text(ical.PropProductID)
	require.NoError(t, err)
	assert.Equal(t, ProductID, prodID)

	var todos []*ical.Component
	for _, child := range cal.Children {
		if child.Name == ical.CompToDo {
			todos = append(todos, child)
		}
	}
	require.Len(t, todos, 2)

	uid, err := todos[0].Props.Text(ical.PropUID)
	require.NoError(t, err)
	assert.Equal(t, "gym-20240104", uid)

	due := todos[1].Props.Get(ical.PropDue)
	require.NotNil(t, due)
	assert.Equal(t, "20240109", due.Value)
	assert.Equal(t, ical.ValueDate, due.ValueType())

	status, err := todos[0].Props.Text(ical.PropStatus)
	require.NoError(t, err)
	assert.Equal(t, "NEEDS-ACTION", status)
	assert.NotNil(t, todos[0].Props.Get(ical.PropDateTimeStamp))
}

func TestItemFromTask(t *testing.T) {
	due := recurrence.MustParseDate("2024-02-29")
	done := time.Date(2024, 2, 29, 18, 0, 0, 0, time.UTC)
	task := &storage.Task{
		ID:          "task-1",
		Category:    "home",
		DueDate:     &due,
		Completed:   true,
		CompletedAt: &done,
		UpdatedAt:   done,
	}

	item := ItemFromTask(task, "pay rent", "via bank")
	assert.Equal(t, "task-1", item.UID)
	assert.Equal(t, []string{"home"}, item.Categories)
	assert.True(t, due.Equal(item.Due))

	ics, err := EncodeString([]Item{item})
	require.NoError(t, err)
	assert.Contains(t, ics, "STATUS:COMPLETED")
	assert.Contains(t, ics, "DUE;VALUE=DATE:20240229")
	assert.Contains(t, ics, "DESCRIPTION:via bank")
	assert.Contains(t, ics, "CATEGORIES:home")
	assert.Contains(t, ics, "COMPLETED:20240229T180000Z")
}

func TestEncode_NoDue(t *testing.T) {
	ics, err := EncodeString([]Item{{UID: "x", Summary: "someday"}})
	require.NoError(t, err)
	assert.NotContains(t, ics, "DUE")
}
