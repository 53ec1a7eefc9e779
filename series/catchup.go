package series

import (
	"context"
	"errors"

	"github.com/cyp0633/taskrecur/recurrence"
	"github.com/cyp0633/taskrecur/storage"
)

// CheckPendingCatchUp generates the instances missed while the user was
// away. For every active template whose latest instance (by due date) is
// completed and due before today, one instance is generated from that due
// date. A long gap therefore closes one instance per check. End conditions
// are evaluated as of today, not the manager clock.
//
// A failing template does not stop the others; the failures are joined into
// the returned error next to whatever was generated.
func (m *Manager) CheckPendingCatchUp(ctx context.Context, templates, tasks []*storage.Task, today recurrence.Date) ([]*storage.Task, error) {
	latest := latestInstances(tasks)

	var generated []*storage.Task
	var errs []error
	for _, tmpl := range templates {
		if tmpl == nil || !tmpl.IsTemplate || tmpl.RecurrenceRule == nil {
			continue
		}
		if recurrence.HasEnded(tmpl.EndCondition, tmpl.OccurrenceCount, today) {
			continue
		}
		last, ok := latest[tmpl.ID]
		if !ok || !last.Completed || !last.DueDate.Before(today) {
			continue
		}

		m.logger.Debug("catching up series",
			"template_id", tmpl.ID,
			"last_due", *last.DueDate)
		instance, err := m.generateNext(ctx, tmpl.ID, *last.DueDate, today)
		if err != nil {
			m.logger.Error("catch-up failed",
				"template_id", tmpl.ID,
				"error", err)
			errs = append(errs, err)
			continue
		}
		if instance != nil {
			generated = append(generated, instance)
		}
	}
	return generated, errors.Join(errs...)
}

// CatchUp runs CheckPendingCatchUp over the stored series of userID as of
// the manager's today.
func (m *Manager) CatchUp(ctx context.Context, userID string) ([]*storage.Task, error) {
	const op = "catch up"

	templates, err := m.store.ListTasks(ctx, &storage.ListOptions{UserID: userID, Templates: storage.Ptr(true)})
	if err != nil {
		return nil, storageError(op, userID, err)
	}
	tasks, err := m.store.ListTasks(ctx, &storage.ListOptions{UserID: userID, Templates: storage.Ptr(false)})
	if err != nil {
		return nil, storageError(op, userID, err)
	}

	generated, err := m.CheckPendingCatchUp(ctx, templates, tasks, m.today())
	if len(generated) > 0 {
		m.logger.Info("catch-up generated instances",
			"user_id", userID,
			"count", len(generated))
	}
	return generated, err
}

// latestInstances maps template id to its instance with the latest due date.
// Instances without a due date are ignored. Ties go to the later created.
func latestInstances(tasks []*storage.Task) map[string]*storage.Task {
	latest := make(map[string]*storage.Task)
	for _, t := range tasks {
		if t == nil || !t.IsInstance() || t.DueDate == nil {
			continue
		}
		cur, ok := latest[t.TemplateID]
		if !ok {
			latest[t.TemplateID] = t
			continue
		}
		switch c := t.DueDate.Compare(*cur.DueDate); {
		case c > 0, c == 0 && t.CreatedAt.After(cur.CreatedAt):
			latest[t.TemplateID] = t
		}
	}
	return latest
}
