package storage

import (
	"context"

	"github.com/cyp0633/taskrecur/recurrence"
	"github.com/stretchr/testify/mock"
)

// MockStorage implements the Storage interface for testing
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GetTask(ctx context.Context, id string) (*Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Task), args.Error(1)
}

func (m *MockStorage) ListTasks(ctx context.Context, opts *ListOptions) ([]*Task, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Task), args.Error(1)
}

func (m *MockStorage) InsertTask(ctx context.Context, task *Task) (*Task, error) {
	args := m.Called(ctx, task)
	if fn, ok := args.Get(0).(func(context.Context, *Task) (*Task, error)); ok {
		return fn(ctx, task)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Task), args.Error(1)
}

func (m *MockStorage) UpdateTask(ctx context.Context, id string, patch TaskPatch) (*Task, error) {
	args := m.Called(ctx, id, patch)
	if fn, ok := args.Get(0).(func(context.Context, string, TaskPatch) (*Task, error)); ok {
		return fn(ctx, id, patch)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Task), args.Error(1)
}

func (m *MockStorage) DeleteTask(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStorage) DeleteTasksByTemplate(ctx context.Context, templateID string) error {
	args := m.Called(ctx, templateID)
	return args.Error(0)
}

// --- Helper methods for creating test data ---

// NewMockTemplate creates a template task owning rule.
func NewMockTemplate(id, userID string, rule recurrence.Rule, count int) *Task {
	r := rule
	return &Task{
		ID:              id,
		UserID:          userID,
		Text:            "template " + id,
		Status:          StatusScheduled,
		IsTemplate:      true,
		RecurrenceRule:  &r,
		OccurrenceCount: count,
	}
}

// NewMockInstance creates an instance of templateID due on due.
func NewMockInstance(id, userID, templateID string, due recurrence.Date, completed bool) *Task {
	d := due
	return &Task{
		ID:         id,
		UserID:     userID,
		Text:       "instance " + id,
		Status:     StatusScheduled,
		Completed:  completed,
		DueDate:    &d,
		TemplateID: templateID,
	}
}

// --- Convenience methods for setting up common test scenarios ---

// ExpectInsertEcho makes InsertTask return its argument with id assigned.
func (m *MockStorage) ExpectInsertEcho(id string) *mock.Call {
	return m.On("InsertTask", mock.Anything, mock.AnythingOfType("*storage.Task")).
		Return(func(_ context.Context, t *Task) (*Task, error) {
			c := t.Clone()
			c.ID = id
			return c, nil
		}).Once()
}
