package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/cyp0633/taskrecur/export"
	"github.com/cyp0633/taskrecur/recurrence"
	"github.com/cyp0633/taskrecur/storage"
	"gopkg.in/yaml.v3"
)

const (
	formatTable = "table"
	formatYAML  = "yaml"
	formatICS   = "ics"
)

// colors is the output palette.
var colors = struct {
	Header lipgloss.Color
	Muted  lipgloss.Color
	Done   lipgloss.Color
	Ended  lipgloss.Color
}{
	Header: lipgloss.Color("#6C5CE7"),
	Muted:  lipgloss.Color("#636E72"),
	Done:   lipgloss.Color("#00B894"),
	Ended:  lipgloss.Color("#D63031"),
}

// taskView is a revealed task as printed by list and show.
type taskView struct {
	ID          string `yaml:"id"`
	Text        string `yaml:"text"`
	Comment     string `yaml:"comment,omitempty"`
	Status      string `yaml:"status"`
	Due         string `yaml:"due,omitempty"`
	Completed   bool   `yaml:"completed"`
	Template    bool   `yaml:"template,omitempty"`
	TemplateID  string `yaml:"templateId,omitempty"`
	Rule        string `yaml:"rule,omitempty"`
	Ends        string `yaml:"ends,omitempty"`
	Occurrences int    `yaml:"occurrences,omitempty"`
	Category    string `yaml:"category,omitempty"`
	Project     string `yaml:"project,omitempty"`
	Context     string `yaml:"context,omitempty"`
	Priority    string `yaml:"priority,omitempty"`
}

func (a *App) view(t *storage.Task) (taskView, error) {
	data, err := a.Manager.Reveal(t)
	if err != nil {
		return taskView{}, err
	}
	v := taskView{
		ID:         t.ID,
		Text:       data.Text,
		Comment:    data.Comment,
		Status:     string(t.Status),
		Completed:  t.Completed,
		Template:   t.IsTemplate,
		TemplateID: t.TemplateID,
		Category:   t.Category,
		Project:    t.Project,
		Context:    t.Context,
		Priority:   t.Priority,
	}
	if t.DueDate != nil {
		v.Due = t.DueDate.String()
	}
	if t.IsTemplate {
		if t.RecurrenceRule != nil {
			v.Rule = a.Manager.Summary(*t.RecurrenceRule)
		}
		v.Ends = t.EndCondition.String()
		v.Occurrences = t.OccurrenceCount
	}
	return v, nil
}

func (a *App) printTasks(w io.Writer, tasks []*storage.Task, format string) error {
	views := make([]taskView, 0, len(tasks))
	for _, t := range tasks {
		v, err := a.view(t)
		if err != nil {
			return err
		}
		views = append(views, v)
	}

	switch format {
	case formatYAML:
		return writeYAML(w, views)
	case formatICS:
		var items []export.Item
		for i, t := range tasks {
			if t.IsTemplate {
				continue
			}
			items = append(items, export.ItemFromTask(t, views[i].Text, views[i].Comment))
		}
		return export.Encode(w, items)
	case formatTable:
		if len(views) == 0 {
			_, err := fmt.Fprintln(w, "No tasks.")
			return err
		}
		rows := make([][]string, 0, len(views))
		for _, v := range views {
			kind := ""
			switch {
			case v.Template:
				kind = "series"
			case v.TemplateID != "":
				kind = "instance"
			}
			rows = append(rows, []string{v.ID, v.Due, v.Status, kind, v.Text, v.Rule})
		}
		renderTable(w, []string{"ID", "DUE", "STATUS", "KIND", "TEXT", "RULE"}, rows)
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

type previewView struct {
	Rule  string   `yaml:"rule"`
	Dates []string `yaml:"dates"`
}

func printPreview(w io.Writer, summary string, dates []recurrence.Date, format string) error {
	strs := make([]string, len(dates))
	for i, d := range dates {
		strs[i] = d.String()
	}

	switch format {
	case formatYAML:
		return writeYAML(w, previewView{Rule: summary, Dates: strs})
	case formatICS:
		return export.Encode(w, export.PreviewItems("preview", summary, dates))
	case formatTable:
		r := lipgloss.NewRenderer(w)
		fmt.Fprintln(w, r.NewStyle().Bold(true).Render(summary))
		if len(dates) == 0 {
			fmt.Fprintln(w, r.NewStyle().Foreground(colors.Muted).Render("no upcoming dates"))
			return nil
		}
		rows := make([][]string, len(dates))
		for i, d := range dates {
			rows[i] = []string{strconv.Itoa(i + 1), strs[i], d.Weekday().String()[:3]}
		}
		renderTable(w, []string{"#", "DATE", "DAY"}, rows)
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// renderTable prints left-aligned columns sized to their widest cell.
func renderTable(w io.Writer, headers []string, rows [][]string) {
	r := lipgloss.NewRenderer(w)
	head := r.NewStyle().Bold(true).Foreground(colors.Header).PaddingRight(2)
	cell := r.NewStyle().PaddingRight(2)

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, c := range row {
			widths[i] = max(widths[i], lipgloss.Width(c))
		}
	}

	var b strings.Builder
	for i, h := range headers {
		b.WriteString(head.Width(widths[i] + 2).Render(h))
	}
	b.WriteString("\n")
	for _, row := range rows {
		for i, c := range row {
			style := cell
			if c == string(storage.StatusDone) {
				style = style.Foreground(colors.Done)
			}
			b.WriteString(style.Width(widths[i] + 2).Render(c))
		}
		b.WriteString("\n")
	}
	fmt.Fprint(w, b.String())
}

func stateStyle(w io.Writer, state string) lipgloss.Style {
	s := lipgloss.NewRenderer(w).NewStyle().Bold(true)
	if state == "ended" {
		return s.Foreground(colors.Ended)
	}
	return s.Foreground(colors.Done)
}
