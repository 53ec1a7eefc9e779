package storage

import (
	"context"
	"slices"
	"time"

	"github.com/cyp0633/taskrecur/recurrence"
)

// Storage connects the series manager with a task backend. Implementations
// must return *Error values so callers can tell a missing task from a broken
// backend.
type Storage interface {
	// GetTask loads a single task by id.
	GetTask(ctx context.Context, id string) (*Task, error)
	// ListTasks returns the tasks matching opts. A nil opts lists everything.
	ListTasks(ctx context.Context, opts *ListOptions) ([]*Task, error)
	// InsertTask stores a new task. The store assigns ID, CreatedAt and
	// UpdatedAt and returns the stored record.
	InsertTask(ctx context.Context, task *Task) (*Task, error)
	// UpdateTask applies the non-nil fields of patch and returns the result.
	UpdateTask(ctx context.Context, id string, patch TaskPatch) (*Task, error)
	// DeleteTask removes a task.
	DeleteTask(ctx context.Context, id string) error
	// DeleteTasksByTemplate removes every instance linked to templateID. The
	// template itself is left alone.
	DeleteTasksByTemplate(ctx context.Context, templateID string) error
}

// GTDStatus is the workflow bucket of a task.
type GTDStatus string

const (
	StatusInbox     GTDStatus = "inbox"
	StatusNext      GTDStatus = "next"
	StatusWaiting   GTDStatus = "waiting"
	StatusScheduled GTDStatus = "scheduled"
	StatusSomeday   GTDStatus = "someday"
	StatusDone      GTDStatus = "done"
)

// Task is a stored to-do. A recurring series is one hidden template task
// (IsTemplate, owning RecurrenceRule, EndCondition and OccurrenceCount) plus
// the instances pointing at it through TemplateID.
type Task struct {
	ID     string `json:"id" yaml:"id"`
	UserID string `json:"userId" yaml:"user_id"`

	// Text and Comment hold ciphertext when the manager has a cipher.
	Text     string    `json:"text" yaml:"text"`
	Comment  string    `json:"comment,omitempty" yaml:"comment,omitempty"`
	Category string    `json:"category,omitempty" yaml:"category,omitempty"`
	Project  string    `json:"project,omitempty" yaml:"project,omitempty"`
	Context  string    `json:"context,omitempty" yaml:"context,omitempty"`
	Priority string    `json:"priority,omitempty" yaml:"priority,omitempty"`
	Status   GTDStatus `json:"gtdStatus" yaml:"gtd_status"`

	Completed   bool             `json:"completed" yaml:"completed"`
	CompletedAt *time.Time       `json:"completedAt,omitempty" yaml:"completed_at,omitempty"`
	DueDate     *recurrence.Date `json:"dueDate,omitempty" yaml:"due_date,omitempty"`

	IsTemplate      bool                    `json:"isTemplate" yaml:"is_template"`
	TemplateID      string                  `json:"templateId,omitempty" yaml:"template_id,omitempty"`
	RecurrenceRule  *recurrence.Rule        `json:"recurrenceRule,omitempty" yaml:"recurrence_rule,omitempty"`
	EndCondition    recurrence.EndCondition `json:"endCondition" yaml:"end_condition"`
	OccurrenceCount int                     `json:"occurrenceCount" yaml:"occurrence_count"`

	CreatedAt time.Time `json:"createdAt" yaml:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updated_at"`
}

// IsInstance reports whether t belongs to a series.
func (t *Task) IsInstance() bool {
	return t.TemplateID != ""
}

// Clone returns a deep copy of t.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.RecurrenceRule != nil {
		c.RecurrenceRule = cloneRule(t.RecurrenceRule)
	}
	if t.EndCondition.Date != nil {
		d := *t.EndCondition.Date
		c.EndCondition.Date = &d
	}
	return &c
}

func cloneRule(r *recurrence.Rule) *recurrence.Rule {
	c := *r
	c.Weekdays = slices.Clone(r.Weekdays)
	if r.Weekday != nil {
		c.Weekday = recurrence.WeekdayPtr(*r.Weekday)
	}
	return &c
}

// TaskPatch is a partial update. Nil fields are left unchanged.
type TaskPatch struct {
	Text            *string
	Comment         *string
	Category        *string
	Project         *string
	Context         *string
	Priority        *string
	Status          *GTDStatus
	Completed       *bool
	CompletedAt     *time.Time
	DueDate         *recurrence.Date
	IsTemplate      *bool
	TemplateID      *string
	RecurrenceRule  *recurrence.Rule
	EndCondition    *recurrence.EndCondition
	OccurrenceCount *int
}

// Apply copies the set fields of p onto t.
func (p TaskPatch) Apply(t *Task) {
	setIf(&t.Text, p.Text)
	setIf(&t.Comment, p.Comment)
	setIf(&t.Category, p.Category)
	setIf(&t.Project, p.Project)
	setIf(&t.Context, p.Context)
	setIf(&t.Priority, p.Priority)
	setIf(&t.Status, p.Status)
	setIf(&t.Completed, p.Completed)
	setIf(&t.IsTemplate, p.IsTemplate)
	setIf(&t.TemplateID, p.TemplateID)
	setIf(&t.OccurrenceCount, p.OccurrenceCount)
	if p.CompletedAt != nil {
		at := *p.CompletedAt
		t.CompletedAt = &at
	}
	if p.DueDate != nil {
		d := *p.DueDate
		t.DueDate = &d
	}
	if p.RecurrenceRule != nil {
		t.RecurrenceRule = cloneRule(p.RecurrenceRule)
	}
	if p.EndCondition != nil {
		t.EndCondition = *p.EndCondition
		if p.EndCondition.Date != nil {
			d := *p.EndCondition.Date
			t.EndCondition.Date = &d
		}
	}
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// Ptr is a helper for building patches.
func Ptr[T any](v T) *T {
	return &v
}

// ListOptions filters ListTasks. Zero fields do not filter.
type ListOptions struct {
	UserID string
	// Templates selects only templates when true and only non-templates when
	// false. Nil returns both.
	Templates  *bool
	TemplateID string
}

// Match reports whether t passes the filter.
func (o *ListOptions) Match(t *Task) bool {
	if o == nil {
		return true
	}
	if o.UserID != "" && t.UserID != o.UserID {
		return false
	}
	if o.Templates != nil && t.IsTemplate != *o.Templates {
		return false
	}
	if o.TemplateID != "" && t.TemplateID != o.TemplateID {
		return false
	}
	return true
}

// SortTasks orders tasks by creation time, then id, so listings are stable
// across backends.
func SortTasks(tasks []*Task) {
	slices.SortStableFunc(tasks, func(a, b *Task) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
}
