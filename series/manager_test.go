package series

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cyp0633/taskrecur/recurrence"
	"github.com/cyp0633/taskrecur/storage"
	"github.com/cyp0633/taskrecur/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// prefixCipher is a reversible stand-in for a real cipher.
type prefixCipher struct{}

func (prefixCipher) Encrypt(s string) (string, error) { return "enc:" + s, nil }

func (prefixCipher) Decrypt(s string) (string, error) {
	if !strings.HasPrefix(s, "enc:") {
		return "", errors.New("not encrypted")
	}
	return strings.TrimPrefix(s, "enc:"), nil
}

type failingCipher struct{}

func (failingCipher) Encrypt(string) (string, error) { return "", errors.New("no key") }
func (failingCipher) Decrypt(string) (string, error) { return "", errors.New("no key") }

func fixedClock(s string) func() time.Time {
	d := recurrence.MustParseDate(s)
	return func() time.Time {
		return time.Date(d.Year(), d.Month(), d.Day(), 10, 0, 0, 0, time.UTC)
	}
}

func tueThu() recurrence.Rule {
	return recurrence.Rule{
		Kind:       recurrence.KindWeekly,
		Interval:   1,
		Weekdays:   []time.Weekday{time.Tuesday, time.Thursday},
		AnchorDate: recurrence.MustParseDate("2024-01-02"),
	}
}

func datePtr(s string) *recurrence.Date {
	d := recurrence.MustParseDate(s)
	return &d
}

func newTestManager(t *testing.T, today string, opts ...Option) (*Manager, *memory.Store) {
	t.Helper()
	store := memory.New()
	opts = append([]Option{WithClock(fixedClock(today))}, opts...)
	m := New(store, opts...)
	t.Cleanup(m.Close)
	return m, store
}

func TestManager_WeeklySeriesEndsAfterCount(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager(t, "2024-01-02", WithCipher(prefixCipher{}))

	first, err := m.CreateSeries(ctx, TaskData{
		UserID:   "alice",
		Text:     "gym",
		Comment:  "bring towel",
		Category: "health",
		DueDate:  datePtr("2024-01-02"),
	}, tueThu(), recurrence.EndsAfter(2))
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "2024-01-02", first.DueDate.String())
	assert.Equal(t, "enc:gym", first.Text, "text is stored encrypted")
	assert.Equal(t, storage.StatusScheduled, first.Status)
	require.NotEmpty(t, first.TemplateID)

	tmpl, err := store.GetTask(ctx, first.TemplateID)
	require.NoError(t, err)
	assert.True(t, tmpl.IsTemplate)
	assert.Equal(t, 1, tmpl.OccurrenceCount)
	assert.Equal(t, "enc:bring towel", tmpl.Comment)

	second, err := m.CompleteInstance(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, "2024-01-04", second.DueDate.String())
	assert.Equal(t, first.TemplateID, second.TemplateID)
	assert.Equal(t, "enc:gym", second.Text, "ciphertext is copied verbatim")
	assert.Equal(t, "health", second.Category)

	tmpl, err = store.GetTask(ctx, first.TemplateID)
	require.NoError(t, err)
	assert.Equal(t, 2, tmpl.OccurrenceCount)

	third, err := m.CompleteInstance(ctx, second.ID)
	require.NoError(t, err)
	assert.Nil(t, third, "series ended after two instances")

	state, err := m.SeriesState(ctx, first.TemplateID)
	require.NoError(t, err)
	assert.Equal(t, StateEnded, state)

	completed, err := store.GetTask(ctx, second.ID)
	require.NoError(t, err)
	assert.True(t, completed.Completed)
	assert.Equal(t, storage.StatusDone, completed.Status)
	require.NotNil(t, completed.CompletedAt)

	revealed, err := m.Reveal(completed)
	require.NoError(t, err)
	assert.Equal(t, "gym", revealed.Text)
	assert.Equal(t, "bring towel", revealed.Comment)

	all, err := store.ListTasks(ctx, &storage.ListOptions{TemplateID: first.TemplateID})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestManager_CreateSeriesUsesFirstOccurrence(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, "2024-01-01")

	rule := recurrence.Rule{
		Kind:           recurrence.KindMonthly,
		Interval:       1,
		MonthlyDayType: recurrence.DayTypeLastDayOfMonth,
		AnchorDate:     recurrence.MustParseDate("2024-01-31"),
	}
	inst, err := m.CreateSeries(ctx, TaskData{Text: "pay rent"}, rule, recurrence.Never())
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", inst.DueDate.String())
}

func TestManager_CreateSeriesPinsMissingAnchor(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager(t, "2024-01-15")

	monthly := recurrence.Rule{Kind: recurrence.KindMonthly, Interval: 1, MonthlyDayType: recurrence.DayTypeDayOfMonth}
	first, err := m.CreateSeries(ctx, TaskData{Text: "water filter"}, monthly, recurrence.Never())
	require.NoError(t, err)
	assert.Equal(t, "2024-02-15", first.DueDate.String())

	tmpl, err := store.GetTask(ctx, first.TemplateID)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-15", tmpl.RecurrenceRule.AnchorDate.String())

	second, err := m.GenerateNext(ctx, first.TemplateID, *first.DueDate)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, "2024-03-15", second.DueDate.String())

	third, err := m.GenerateNext(ctx, first.TemplateID, *second.DueDate)
	require.NoError(t, err)
	require.NotNil(t, third)
	assert.Equal(t, "2024-04-15", third.DueDate.String())
}

func TestManager_CreateSeriesAnchorsOnDueDate(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, "2024-01-15")

	// 2024-03-12 is the 2nd Tuesday
	nth := recurrence.Rule{Kind: recurrence.KindMonthly, Interval: 1, MonthlyDayType: recurrence.DayTypeNthWeekday}
	first, err := m.CreateSeries(ctx, TaskData{Text: "standup notes", DueDate: datePtr("2024-03-12")}, nth, recurrence.Never())
	require.NoError(t, err)

	next, err := m.GenerateNext(ctx, first.TemplateID, *first.DueDate)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "2024-04-09", next.DueDate.String())
}

func TestManager_ConvertAndUpdateKeepAnchor(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager(t, "2024-01-15")

	task, err := m.AddTask(ctx, TaskData{Text: "invoice", DueDate: datePtr("2024-01-20")}, storage.StatusNext)
	require.NoError(t, err)

	monthly := recurrence.Rule{Kind: recurrence.KindMonthly, Interval: 1}
	converted, err := m.ConvertToRecurring(ctx, task.ID, TaskData{Text: "invoice"}, monthly, recurrence.Never())
	require.NoError(t, err)

	tmpl, err := store.GetTask(ctx, converted.TemplateID)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-20", tmpl.RecurrenceRule.AnchorDate.String())

	updated, err := m.UpdateRule(ctx, converted.TemplateID, recurrence.Rule{Kind: recurrence.KindMonthly, Interval: 2}, recurrence.Never())
	require.NoError(t, err)
	assert.Equal(t, "2024-01-20", updated.RecurrenceRule.AnchorDate.String())

	next, err := m.GenerateNext(ctx, converted.TemplateID, *converted.DueDate)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "2024-03-20", next.DueDate.String())
}

func TestManager_CompleteInstanceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager(t, "2024-01-02")

	first, err := m.CreateSeries(ctx, TaskData{Text: "x", DueDate: datePtr("2024-01-02")}, tueThu(), recurrence.Never())
	require.NoError(t, err)

	next, err := m.CompleteInstance(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, next)

	again, err := m.CompleteInstance(ctx, first.ID)
	require.NoError(t, err)
	assert.Nil(t, again)

	instances, err := store.ListTasks(ctx, &storage.ListOptions{TemplateID: first.TemplateID})
	require.NoError(t, err)
	assert.Len(t, instances, 2)
}

func TestManager_CompletePlainTask(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager(t, "2024-01-02")

	task, err := m.AddTask(ctx, TaskData{Text: "one-off"}, storage.StatusNext)
	require.NoError(t, err)

	next, err := m.CompleteInstance(ctx, task.ID)
	require.NoError(t, err)
	assert.Nil(t, next)

	got, err := store.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, got.Completed)
}

func TestManager_CompleteTemplateIsRejected(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, "2024-01-02")

	inst, err := m.CreateSeries(ctx, TaskData{Text: "x"}, tueThu(), recurrence.Never())
	require.NoError(t, err)

	_, err = m.CompleteInstance(ctx, inst.TemplateID)
	assert.True(t, IsValidation(err))
}

func TestManager_GenerateNextRespectsEndDate(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, "2024-01-02")

	first, err := m.CreateSeries(ctx, TaskData{Text: "x", DueDate: datePtr("2024-01-02")},
		tueThu(), recurrence.EndsOn(recurrence.MustParseDate("2024-01-04")))
	require.NoError(t, err)

	// the end date itself is still a valid occurrence
	second, err := m.GenerateNext(ctx, first.TemplateID, *first.DueDate)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, "2024-01-04", second.DueDate.String())

	third, err := m.GenerateNext(ctx, first.TemplateID, *second.DueDate)
	require.NoError(t, err)
	assert.Nil(t, third, "2024-01-09 is past the end date")

	tmpl, err := m.Template(ctx, first.TemplateID)
	require.NoError(t, err)
	assert.Equal(t, 2, tmpl.OccurrenceCount)
}

func TestManager_StopAndUpdateRule(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, "2024-01-02")

	first, err := m.CreateSeries(ctx, TaskData{Text: "x", DueDate: datePtr("2024-01-02")}, tueThu(), recurrence.Never())
	require.NoError(t, err)
	id := first.TemplateID

	require.NoError(t, m.StopSeries(ctx, id))
	state, err := m.SeriesState(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StateEnded, state)

	next, err := m.GenerateNext(ctx, id, *first.DueDate)
	require.NoError(t, err)
	assert.Nil(t, next)

	daily := recurrence.Rule{Kind: recurrence.KindDaily, Interval: 2}
	updated, err := m.UpdateRule(ctx, id, daily, recurrence.Never())
	require.NoError(t, err)
	assert.Equal(t, recurrence.KindDaily, updated.RecurrenceRule.Kind)

	state, err = m.SeriesState(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StateActive, state, "a new end condition re-opens the series")

	next, err = m.GenerateNext(ctx, id, *first.DueDate)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "2024-01-04", next.DueDate.String())

	_, err = m.UpdateRule(ctx, id, recurrence.Rule{Kind: recurrence.KindDaily}, recurrence.Never())
	assert.True(t, IsValidation(err))
	assert.ErrorIs(t, err, recurrence.ErrInvalidRule)

	_, err = m.UpdateRule(ctx, "missing", daily, recurrence.Never())
	assert.True(t, IsNotFound(err))
}

func TestManager_DeleteSeries(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager(t, "2024-01-02")

	first, err := m.CreateSeries(ctx, TaskData{Text: "x", DueDate: datePtr("2024-01-02")}, tueThu(), recurrence.Never())
	require.NoError(t, err)
	_, err = m.GenerateNext(ctx, first.TemplateID, *first.DueDate)
	require.NoError(t, err)
	_, err = m.AddTask(ctx, TaskData{Text: "unrelated"}, storage.StatusInbox)
	require.NoError(t, err)

	require.NoError(t, m.DeleteSeries(ctx, first.TemplateID))
	assert.Equal(t, 1, store.Len())

	_, err = m.Template(ctx, first.TemplateID)
	assert.True(t, IsNotFound(err), "cache must not resurrect a deleted template")

	assert.True(t, IsNotFound(m.DeleteSeries(ctx, first.TemplateID)))
}

func TestManager_ConvertToRecurring(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager(t, "2024-01-02", WithCipher(prefixCipher{}))

	task, err := m.AddTask(ctx, TaskData{UserID: "alice", Text: "water plants"}, storage.StatusNext)
	require.NoError(t, err)

	updated, err := m.ConvertToRecurring(ctx, task.ID, TaskData{
		Text:    "water plants",
		Project: "home",
		DueDate: datePtr("2024-01-02"),
	}, tueThu(), recurrence.EndsAfter(3))
	require.NoError(t, err)
	require.NotEmpty(t, updated.TemplateID)
	assert.Equal(t, "home", updated.Project)
	assert.Equal(t, "2024-01-02", updated.DueDate.String())

	tmpl, err := store.GetTask(ctx, updated.TemplateID)
	require.NoError(t, err)
	assert.Equal(t, 1, tmpl.OccurrenceCount)
	assert.Equal(t, "alice", tmpl.UserID)
	assert.Equal(t, "enc:water plants", tmpl.Text)

	next, err := m.CompleteInstance(ctx, task.ID)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, "2024-01-04", next.DueDate.String())

	_, err = m.ConvertToRecurring(ctx, task.ID, TaskData{Text: "again"}, tueThu(), recurrence.Never())
	assert.True(t, IsValidation(err), "already part of a series")

	_, err = m.ConvertToRecurring(ctx, "missing", TaskData{}, tueThu(), recurrence.Never())
	assert.True(t, IsNotFound(err))
}

func TestManager_PreviewAndSummary(t *testing.T) {
	m, _ := newTestManager(t, "2024-01-03")

	got := m.Preview(recurrence.Rule{Kind: recurrence.KindDaily, Interval: 1}, 3)
	require.Len(t, got, 3)
	assert.Equal(t, "2024-01-04", got[0].String(), "unset anchor previews from today")

	assert.Len(t, m.Preview(tueThu(), 50), recurrence.MaxPreviewOccurrences)
	assert.Equal(t, "Every week on Tue, Thu", m.Summary(tueThu()))
}

func TestManager_CipherFailure(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager(t, "2024-01-02", WithCipher(failingCipher{}))

	_, err := m.CreateSeries(ctx, TaskData{Text: "secret"}, tueThu(), recurrence.Never())
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ErrCipher, se.Type)
	assert.Equal(t, 0, store.Len(), "nothing is written unencrypted")
}

func TestManager_ValidationWritesNothing(t *testing.T) {
	ctx := context.Background()
	ms := &storage.MockStorage{}
	m := New(ms, WithClock(fixedClock("2024-01-02")), WithConfig(DisabledCacheConfig))

	rule := recurrence.Rule{Kind: recurrence.KindWeekly, Interval: 1}
	_, err := m.CreateSeries(ctx, TaskData{Text: "x"}, rule, recurrence.Never())
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	var verr *recurrence.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "weekdays", verr.Field)

	_, err = m.CreateSeries(ctx, TaskData{Text: "x"}, tueThu(), recurrence.EndsAfter(0))
	assert.True(t, IsValidation(err))

	ms.AssertNotCalled(t, "InsertTask", mock.Anything, mock.Anything)
}

func TestManager_InstanceInsertFailureLeavesTemplate(t *testing.T) {
	ctx := context.Background()
	ms := &storage.MockStorage{}
	m := New(ms, WithClock(fixedClock("2024-01-02")), WithConfig(DisabledCacheConfig))

	ms.ExpectInsertEcho("tmpl-1")
	ms.On("InsertTask", mock.Anything, mock.Anything).
		Return(nil, storage.Unavailable("insert task", errors.New("disk full"))).Once()

	_, err := m.CreateSeries(ctx, TaskData{Text: "x"}, tueThu(), recurrence.Never())
	require.Error(t, err)

	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ErrStorage, se.Type)
	assert.Equal(t, "tmpl-1", se.ID)

	var stErr *storage.Error
	require.ErrorAs(t, err, &stErr)
	assert.Equal(t, storage.ErrUnavailable, stErr.Type)

	ms.AssertNumberOfCalls(t, "InsertTask", 2)
	ms.AssertNotCalled(t, "UpdateTask", mock.Anything, mock.Anything, mock.Anything)
	ms.AssertNotCalled(t, "DeleteTask", mock.Anything, mock.Anything)
}

func TestManager_GenerateNextCountFailure(t *testing.T) {
	ctx := context.Background()
	ms := &storage.MockStorage{}
	m := New(ms, WithClock(fixedClock("2024-01-02")))
	defer m.Close()

	tmpl := storage.NewMockTemplate("tmpl-1", "alice", tueThu(), 1)
	ms.On("GetTask", mock.Anything, "tmpl-1").Return(tmpl, nil).Once()
	ms.ExpectInsertEcho("inst-2")
	ms.On("UpdateTask", mock.Anything, "tmpl-1", mock.Anything).
		Return(nil, storage.Unavailable("update task", errors.New("locked"))).Once()

	_, err := m.GenerateNext(ctx, "tmpl-1", recurrence.MustParseDate("2024-01-02"))
	require.Error(t, err)
	assert.False(t, IsNotFound(err))

	// the failed count write must not leave a stale template cached
	ms.On("GetTask", mock.Anything, "tmpl-1").Return(tmpl, nil).Once()
	_, err = m.Template(ctx, "tmpl-1")
	require.NoError(t, err)
	ms.AssertNumberOfCalls(t, "GetTask", 2)
}

func TestManager_GenerateNextNotFound(t *testing.T) {
	ms := &storage.MockStorage{}
	m := New(ms, WithConfig(DisabledCacheConfig))

	ms.On("GetTask", mock.Anything, "nope").Return(nil, storage.NotFound("nope"))

	_, err := m.GenerateNext(context.Background(), "nope", recurrence.MustParseDate("2024-01-02"))
	assert.True(t, IsNotFound(err))
	assert.True(t, storage.IsNotFound(err))
}

func TestManager_GenerateNextOnPlainTask(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, "2024-01-02")

	task, err := m.AddTask(ctx, TaskData{Text: "plain"}, storage.StatusInbox)
	require.NoError(t, err)

	_, err = m.GenerateNext(ctx, task.ID, recurrence.MustParseDate("2024-01-02"))
	assert.True(t, IsValidation(err))
}

func TestManager_CacheServesTemplate(t *testing.T) {
	ctx := context.Background()
	ms := &storage.MockStorage{}
	m := New(ms, WithClock(fixedClock("2024-01-02")))
	defer m.Close()

	tmpl := storage.NewMockTemplate("tmpl-1", "alice", tueThu(), 1)
	ms.On("GetTask", mock.Anything, "tmpl-1").Return(tmpl, nil).Once()

	for range 3 {
		got, err := m.Template(ctx, "tmpl-1")
		require.NoError(t, err)
		assert.Equal(t, "tmpl-1", got.ID)
	}
	ms.AssertNumberOfCalls(t, "GetTask", 1)
	assert.Equal(t, 1, m.CacheStats().ActiveEntries)
}
