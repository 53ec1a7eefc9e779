package series

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cyp0633/taskrecur/recurrence"
	"github.com/cyp0633/taskrecur/storage"
)

// TaskData is the user-editable content of a task in plaintext.
type TaskData struct {
	UserID   string
	Text     string
	Comment  string
	Category string
	Project  string
	Context  string
	Priority string
	// DueDate of the first instance. When nil the rule's first occurrence
	// after its anchor date is used.
	DueDate *recurrence.Date
}

// State is the lifecycle state of a series.
type State string

const (
	StateActive State = "active"
	StateEnded  State = "ended"
)

// Manager owns the template/instance protocol of recurring tasks. It keeps
// no series state of its own; everything lives in the store.
type Manager struct {
	store  storage.Storage
	cipher Cipher
	logger *slog.Logger
	now    func() time.Time
	config ManagerConfig
	cache  *TemplateCache
}

// Option represents a configuration option for the Manager
type Option func(*Manager)

// WithCipher sets the cipher applied to task text and comments.
func WithCipher(c Cipher) Option {
	return func(m *Manager) {
		if c != nil {
			m.cipher = c
		}
	}
}

// WithLogger sets the logger for the manager
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock replaces time.Now. "Today" is the calendar day of the returned
// time in its own location.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithConfig replaces DefaultManagerConfig.
func WithConfig(cfg ManagerConfig) Option {
	return func(m *Manager) {
		m.config = cfg
	}
}

// New creates a series manager on top of store.
func New(store storage.Storage, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		cipher: PlainText{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
		config: DefaultManagerConfig,
	}

	// Apply options
	for _, opt := range opts {
		opt(m)
	}

	if m.config.CacheEnabled {
		m.cache = newTemplateCache(m.config.CacheConfig, m.now)
	}
	return m
}

// Close stops the template cache.
func (m *Manager) Close() {
	if m.cache != nil {
		m.cache.Close()
	}
}

// CacheStats reports the template cache contents. It is zero when caching
// is disabled.
func (m *Manager) CacheStats() CacheStats {
	if m.cache == nil {
		return CacheStats{}
	}
	return m.cache.Stats()
}

func (m *Manager) today() recurrence.Date {
	return recurrence.DateOf(m.now())
}

// CreateSeries stores a new template for rule and end and its first
// instance. It returns the instance.
func (m *Manager) CreateSeries(ctx context.Context, data TaskData, rule recurrence.Rule, end recurrence.EndCondition) (*storage.Task, error) {
	const op = "create series"

	if err := validate(rule, end); err != nil {
		return nil, &Error{Type: ErrValidation, Op: op, Err: err}
	}
	rule = m.anchored(rule, data.DueDate)
	tmpl, err := m.sealed(data)
	if err != nil {
		return nil, &Error{Type: ErrCipher, Op: op, Err: err}
	}
	tmpl.Status = storage.StatusScheduled
	tmpl.IsTemplate = true
	tmpl.RecurrenceRule = &rule
	tmpl.EndCondition = end
	tmpl.OccurrenceCount = 0

	created, err := m.store.InsertTask(ctx, tmpl)
	if err != nil {
		m.logger.Error("failed to insert series template", "error", err)
		return nil, storageError(op, "", err)
	}

	due := m.firstDue(data, rule)
	instance, err := m.store.InsertTask(ctx, newInstance(created, due))
	if err != nil {
		m.logger.Warn("series template left without instance",
			"template_id", created.ID,
			"error", err)
		return nil, storageError(op, created.ID, err)
	}

	updated, err := m.store.UpdateTask(ctx, created.ID, storage.TaskPatch{OccurrenceCount: storage.Ptr(1)})
	if err != nil {
		m.logger.Warn("series occurrence count not updated",
			"template_id", created.ID,
			"instance_id", instance.ID,
			"error", err)
		return nil, storageError(op, created.ID, err)
	}
	m.remember(updated)

	m.logger.Info("series created",
		"template_id", created.ID,
		"instance_id", instance.ID,
		"due", due)
	return instance, nil
}

// anchored pins a missing anchor date to due, or to today when due is unset,
// so the day fields derived from the anchor stay fixed for the life of the
// series.
func (m *Manager) anchored(rule recurrence.Rule, due *recurrence.Date) recurrence.Rule {
	if !rule.AnchorDate.IsZero() {
		return rule
	}
	if due != nil && !due.IsZero() {
		rule.AnchorDate = *due
	} else {
		rule.AnchorDate = m.today()
	}
	return rule
}

func (m *Manager) firstDue(data TaskData, rule recurrence.Rule) recurrence.Date {
	if data.DueDate != nil && !data.DueDate.IsZero() {
		return *data.DueDate
	}
	if d, ok := recurrence.FirstOccurrence(rule).Get(); ok {
		return d
	}
	return rule.AnchorDate
}

// GenerateNext creates the instance following from. It returns nil and no
// error when the series has ended or the rule yields no further date.
func (m *Manager) GenerateNext(ctx context.Context, templateID string, from recurrence.Date) (*storage.Task, error) {
	return m.generateNext(ctx, templateID, from, m.today())
}

// generateNext evaluates the end condition as of today.
func (m *Manager) generateNext(ctx context.Context, templateID string, from, today recurrence.Date) (*storage.Task, error) {
	const op = "generate next"

	tmpl, err := m.template(ctx, op, templateID)
	if err != nil {
		return nil, err
	}
	rule := *tmpl.RecurrenceRule

	if recurrence.HasEnded(tmpl.EndCondition, tmpl.OccurrenceCount, today) {
		m.logger.Debug("series ended, nothing generated",
			"template_id", templateID,
			"occurrence_count", tmpl.OccurrenceCount,
			"end", tmpl.EndCondition.String())
		return nil, nil
	}

	next, ok := recurrence.NextOccurrence(rule, from).Get()
	if !ok {
		m.logger.Debug("rule yields no next occurrence",
			"template_id", templateID,
			"from", from)
		return nil, nil
	}

	count := tmpl.OccurrenceCount + 1
	if recurrence.ExceededBy(tmpl.EndCondition, next, count) {
		m.logger.Debug("next occurrence past end of series",
			"template_id", templateID,
			"next", next,
			"end", tmpl.EndCondition.String())
		return nil, nil
	}

	instance, err := m.store.InsertTask(ctx, newInstance(tmpl, next))
	if err != nil {
		m.logger.Error("failed to insert series instance",
			"template_id", templateID,
			"error", err)
		return nil, storageError(op, templateID, err)
	}

	updated, err := m.store.UpdateTask(ctx, templateID, storage.TaskPatch{OccurrenceCount: &count})
	if err != nil {
		m.forget(templateID)
		m.logger.Warn("series occurrence count not updated",
			"template_id", templateID,
			"instance_id", instance.ID,
			"error", err)
		return nil, storageError(op, templateID, err)
	}
	m.remember(updated)

	m.logger.Info("series instance generated",
		"template_id", templateID,
		"instance_id", instance.ID,
		"due", next,
		"occurrence_count", count)
	return instance, nil
}

// CompleteInstance marks a task completed. When the task belongs to a series
// the next instance is generated from its due date (today when it has none)
// and returned; the result is nil when the series has ended. Completing an
// already completed task changes nothing.
func (m *Manager) CompleteInstance(ctx context.Context, taskID string) (*storage.Task, error) {
	const op = "complete instance"

	task, err := m.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, storageError(op, taskID, err)
	}
	if task.IsTemplate {
		return nil, &Error{Type: ErrValidation, Op: op, ID: taskID, Err: fmt.Errorf("series templates cannot be completed")}
	}
	if task.Completed {
		m.logger.Debug("task already completed", "task_id", taskID)
		return nil, nil
	}

	now := m.now()
	_, err = m.store.UpdateTask(ctx, taskID, storage.TaskPatch{
		Completed:   storage.Ptr(true),
		CompletedAt: &now,
		Status:      storage.Ptr(storage.StatusDone),
	})
	if err != nil {
		return nil, storageError(op, taskID, err)
	}
	if !task.IsInstance() {
		return nil, nil
	}

	from := m.today()
	if task.DueDate != nil {
		from = *task.DueDate
	}
	return m.GenerateNext(ctx, task.TemplateID, from)
}

// StopSeries ends a series at its current instance count.
func (m *Manager) StopSeries(ctx context.Context, templateID string) error {
	const op = "stop series"

	tmpl, err := m.template(ctx, op, templateID)
	if err != nil {
		return err
	}
	end := recurrence.EndsAfter(tmpl.OccurrenceCount)
	updated, err := m.store.UpdateTask(ctx, templateID, storage.TaskPatch{EndCondition: &end})
	if err != nil {
		m.forget(templateID)
		return storageError(op, templateID, err)
	}
	m.remember(updated)

	m.logger.Info("series stopped",
		"template_id", templateID,
		"occurrence_count", tmpl.OccurrenceCount)
	return nil
}

// DeleteSeries removes every instance of the series and then its template.
func (m *Manager) DeleteSeries(ctx context.Context, templateID string) error {
	const op = "delete series"

	m.forget(templateID)
	if err := m.store.DeleteTasksByTemplate(ctx, templateID); err != nil {
		m.logger.Error("failed to delete series instances",
			"template_id", templateID,
			"error", err)
		return storageError(op, templateID, err)
	}
	if err := m.store.DeleteTask(ctx, templateID); err != nil {
		if !storage.IsNotFound(err) {
			m.logger.Warn("series instances deleted but template remains",
				"template_id", templateID,
				"error", err)
		}
		return storageError(op, templateID, err)
	}

	m.logger.Info("series deleted", "template_id", templateID)
	return nil
}

// ConvertToRecurring turns an existing task into instance #1 of a new
// series built from data, rule and end. It returns the updated task.
func (m *Manager) ConvertToRecurring(ctx context.Context, taskID string, data TaskData, rule recurrence.Rule, end recurrence.EndCondition) (*storage.Task, error) {
	const op = "convert to recurring"

	if err := validate(rule, end); err != nil {
		return nil, &Error{Type: ErrValidation, Op: op, ID: taskID, Err: err}
	}
	task, err := m.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, storageError(op, taskID, err)
	}
	if task.IsTemplate || task.IsInstance() {
		return nil, &Error{Type: ErrValidation, Op: op, ID: taskID, Err: fmt.Errorf("task already belongs to a series")}
	}
	if data.UserID == "" {
		data.UserID = task.UserID
	}
	due := data.DueDate
	if due == nil {
		due = task.DueDate
	}
	rule = m.anchored(rule, due)

	tmpl, err := m.sealed(data)
	if err != nil {
		return nil, &Error{Type: ErrCipher, Op: op, ID: taskID, Err: err}
	}
	tmpl.Status = storage.StatusScheduled
	tmpl.IsTemplate = true
	tmpl.RecurrenceRule = &rule
	tmpl.EndCondition = end
	tmpl.OccurrenceCount = 1

	created, err := m.store.InsertTask(ctx, tmpl)
	if err != nil {
		m.logger.Error("failed to insert series template", "task_id", taskID, "error", err)
		return nil, storageError(op, taskID, err)
	}
	m.remember(created)

	patch := storage.TaskPatch{
		Text:       &created.Text,
		Comment:    &created.Comment,
		Category:   &created.Category,
		Project:    &created.Project,
		Context:    &created.Context,
		Priority:   &created.Priority,
		TemplateID: &created.ID,
		DueDate:    data.DueDate,
	}
	updated, err := m.store.UpdateTask(ctx, taskID, patch)
	if err != nil {
		m.logger.Warn("series template created but task not linked",
			"template_id", created.ID,
			"task_id", taskID,
			"error", err)
		return nil, storageError(op, taskID, err)
	}

	m.logger.Info("task converted to series",
		"template_id", created.ID,
		"task_id", taskID)
	return updated, nil
}

// UpdateRule replaces the rule and end condition of a series. Existing
// instances are not touched. A stopped or ended series may become active
// again.
func (m *Manager) UpdateRule(ctx context.Context, templateID string, rule recurrence.Rule, end recurrence.EndCondition) (*storage.Task, error) {
	const op = "update rule"

	if err := validate(rule, end); err != nil {
		return nil, &Error{Type: ErrValidation, Op: op, ID: templateID, Err: err}
	}
	current, err := m.template(ctx, op, templateID)
	if err != nil {
		return nil, err
	}
	if rule.AnchorDate.IsZero() && current.RecurrenceRule != nil {
		rule.AnchorDate = current.RecurrenceRule.AnchorDate
	}
	rule = m.anchored(rule, nil)

	updated, err := m.store.UpdateTask(ctx, templateID, storage.TaskPatch{
		RecurrenceRule: &rule,
		EndCondition:   &end,
	})
	if err != nil {
		m.forget(templateID)
		return nil, storageError(op, templateID, err)
	}
	m.remember(updated)

	m.logger.Info("series rule updated",
		"template_id", templateID,
		"rule", recurrence.FormatRuleSummary(rule),
		"end", end.String())
	return updated, nil
}

// SeriesState reports whether the series is still producing instances.
func (m *Manager) SeriesState(ctx context.Context, templateID string) (State, error) {
	tmpl, err := m.template(ctx, "series state", templateID)
	if err != nil {
		return "", err
	}
	if recurrence.HasEnded(tmpl.EndCondition, tmpl.OccurrenceCount, m.today()) {
		return StateEnded, nil
	}
	return StateActive, nil
}

// Template returns the template of a series.
func (m *Manager) Template(ctx context.Context, templateID string) (*storage.Task, error) {
	return m.template(ctx, "get template", templateID)
}

// Preview lists up to n upcoming dates of rule after its anchor date (today
// when unset), capped at recurrence.MaxPreviewOccurrences.
func (m *Manager) Preview(rule recurrence.Rule, n int) []recurrence.Date {
	start := rule.AnchorDate
	if start.IsZero() {
		start = m.today()
	}
	return recurrence.NextNOccurrences(rule, n, start)
}

// Summary describes rule in the configured language.
func (m *Manager) Summary(rule recurrence.Rule) string {
	return recurrence.FormatRuleSummaryIn(m.config.SummaryLanguage, rule)
}

// Reveal decrypts the text fields of a stored task.
func (m *Manager) Reveal(task *storage.Task) (TaskData, error) {
	text, err := m.open(task.Text)
	if err != nil {
		return TaskData{}, &Error{Type: ErrCipher, Op: "reveal", ID: task.ID, Err: err}
	}
	comment, err := m.open(task.Comment)
	if err != nil {
		return TaskData{}, &Error{Type: ErrCipher, Op: "reveal", ID: task.ID, Err: err}
	}
	return TaskData{
		UserID:   task.UserID,
		Text:     text,
		Comment:  comment,
		Category: task.Category,
		Project:  task.Project,
		Context:  task.Context,
		Priority: task.Priority,
		DueDate:  task.DueDate,
	}, nil
}

// AddTask stores a plain, non-recurring task with its text encrypted.
func (m *Manager) AddTask(ctx context.Context, data TaskData, status storage.GTDStatus) (*storage.Task, error) {
	const op = "add task"

	t, err := m.sealed(data)
	if err != nil {
		return nil, &Error{Type: ErrCipher, Op: op, Err: err}
	}
	t.Status = status
	if data.DueDate != nil {
		d := *data.DueDate
		t.DueDate = &d
	}
	created, err := m.store.InsertTask(ctx, t)
	if err != nil {
		return nil, storageError(op, "", err)
	}
	return created, nil
}

// template loads a series template, from the cache when possible.
func (m *Manager) template(ctx context.Context, op, id string) (*storage.Task, error) {
	if m.cache != nil {
		if t, ok := m.cache.Get(id); ok {
			return t, nil
		}
	}
	t, err := m.store.GetTask(ctx, id)
	if err != nil {
		return nil, storageError(op, id, err)
	}
	if !t.IsTemplate || t.RecurrenceRule == nil {
		return nil, &Error{Type: ErrValidation, Op: op, ID: id, Err: fmt.Errorf("task is not a series template")}
	}
	m.remember(t)
	return t, nil
}

func (m *Manager) remember(t *storage.Task) {
	if m.cache != nil {
		m.cache.Set(t)
	}
}

func (m *Manager) forget(id string) {
	if m.cache != nil {
		m.cache.Invalidate(id)
	}
}

// sealed builds a task from data with text and comment encrypted.
func (m *Manager) sealed(data TaskData) (*storage.Task, error) {
	text, err := m.seal(data.Text)
	if err != nil {
		return nil, err
	}
	comment, err := m.seal(data.Comment)
	if err != nil {
		return nil, err
	}
	return &storage.Task{
		UserID:   data.UserID,
		Text:     text,
		Comment:  comment,
		Category: data.Category,
		Project:  data.Project,
		Context:  data.Context,
		Priority: data.Priority,
	}, nil
}

// seal and open leave empty strings empty.
func (m *Manager) seal(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	return m.cipher.Encrypt(s)
}

func (m *Manager) open(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	return m.cipher.Decrypt(s)
}

// newInstance copies the template's content verbatim; text and comment are
// already ciphertext.
func newInstance(tmpl *storage.Task, due recurrence.Date) *storage.Task {
	return &storage.Task{
		UserID:     tmpl.UserID,
		Text:       tmpl.Text,
		Comment:    tmpl.Comment,
		Category:   tmpl.Category,
		Project:    tmpl.Project,
		Context:    tmpl.Context,
		Priority:   tmpl.Priority,
		Status:     storage.StatusScheduled,
		DueDate:    &due,
		TemplateID: tmpl.ID,
	}
}

func validate(rule recurrence.Rule, end recurrence.EndCondition) error {
	if err := recurrence.ValidateRule(rule); err != nil {
		return err
	}
	return recurrence.ValidateEndCondition(end)
}
