package cli

import (
	"errors"
	"fmt"

	"github.com/cyp0633/taskrecur/recurrence"
	"github.com/cyp0633/taskrecur/storage"
	"github.com/spf13/cobra"
)

func newSeriesCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "series",
		Aliases: []string{"s"},
		Short:   "Create and manage recurring series",
	}
	cmd.AddCommand(
		newSeriesCreateCommand(e),
		newSeriesShowCommand(e),
		newSeriesCompleteCommand(e),
		newSeriesGenerateCommand(e),
		newSeriesStopCommand(e),
		newSeriesDeleteCommand(e),
		newSeriesConvertCommand(e),
		newSeriesUpdateCommand(e),
	)
	return cmd
}

func newSeriesCreateCommand(e *env) *cobra.Command {
	var (
		rf ruleFlags
		tf taskFlags
	)

	cmd := &cobra.Command{
		Use:   "create TEXT...",
		Short: "Create a series and its first instance",
		Example: `  recurctl series create Water the plants --every weekly --on mon,thu
  recurctl series create Pay rent --every monthly --day 1 --ends-after 12`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := e.app
			rule, err := rf.rule(a.Today())
			if err != nil {
				return err
			}
			end, err := rf.end()
			if err != nil {
				return err
			}
			data, err := tf.data(a.Config.User.ID, args)
			if err != nil {
				return err
			}

			inst, err := a.Manager.CreateSeries(cmd.Context(), data, rule, end)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Created series %s: %s\n", inst.TemplateID, a.Manager.Summary(rule))
			fmt.Fprintf(w, "First instance %s due %s\n", inst.ID, inst.DueDate)
			return nil
		},
	}
	rf.register(cmd)
	tf.register(cmd)
	return cmd
}

func newSeriesShowCommand(e *env) *cobra.Command {
	var out outputFlag

	cmd := &cobra.Command{
		Use:   "show TEMPLATE_ID",
		Short: "Show a series and its instances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := e.app
			ctx := cmd.Context()

			tmpl, err := a.Manager.Template(ctx, args[0])
			if err != nil {
				return err
			}
			state, err := a.Manager.SeriesState(ctx, tmpl.ID)
			if err != nil {
				return err
			}
			instances, err := a.Store.ListTasks(ctx, &storage.ListOptions{TemplateID: tmpl.ID})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out.format == formatTable {
				v, err := a.view(tmpl)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s  %s\n", v.Text, stateStyle(w, string(state)).Render(string(state)))
				fmt.Fprintf(w, "%s, %s, %d generated\n\n", v.Rule, v.Ends, v.Occurrences)
				return a.printTasks(w, instances, out.format)
			}
			return a.printTasks(w, append([]*storage.Task{tmpl}, instances...), out.format)
		},
	}
	out.register(cmd, formatTable, formatYAML, formatICS)
	return cmd
}

func newSeriesCompleteCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "complete TASK_ID",
		Short: "Complete a task, generating the next instance of its series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := e.app
			next, err := a.Manager.CompleteInstance(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Completed %s\n", args[0])
			if next != nil {
				fmt.Fprintf(w, "Next instance %s due %s\n", next.ID, next.DueDate)
			}
			return nil
		},
	}
}

func newSeriesGenerateCommand(e *env) *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "generate TEMPLATE_ID",
		Short: "Generate the next instance of a series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := e.app
			start := a.Today()
			if from != "" {
				d, err := recurrence.ParseDate(from)
				if err != nil {
					return fmt.Errorf("--from: %w", err)
				}
				start = d
			}

			next, err := a.Manager.GenerateNext(cmd.Context(), args[0], start)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if next == nil {
				fmt.Fprintln(w, "Series has ended, nothing generated")
				return nil
			}
			fmt.Fprintf(w, "Generated %s due %s\n", next.ID, next.DueDate)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "generate the first occurrence after this date (default today)")
	return cmd
}

func newSeriesStopCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "stop TEMPLATE_ID",
		Short: "Stop a series, keeping its instances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.app.Manager.StopSeries(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stopped series %s\n", args[0])
			return nil
		},
	}
}

func newSeriesDeleteCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "delete TEMPLATE_ID",
		Short: "Delete a series with all its instances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := e.app.Manager.DeleteSeries(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted series %s\n", args[0])
			return nil
		},
	}
}

func newSeriesConvertCommand(e *env) *cobra.Command {
	var rf ruleFlags

	cmd := &cobra.Command{
		Use:   "convert TASK_ID",
		Short: "Turn an existing task into the first instance of a new series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := e.app
			ctx := cmd.Context()

			task, err := a.Store.GetTask(ctx, args[0])
			if err != nil {
				return err
			}
			data, err := a.Manager.Reveal(task)
			if err != nil {
				return err
			}
			if data.DueDate == nil {
				today := a.Today()
				data.DueDate = &today
			}
			rule, err := rf.rule(*data.DueDate)
			if err != nil {
				return err
			}
			end, err := rf.end()
			if err != nil {
				return err
			}

			updated, err := a.Manager.ConvertToRecurring(ctx, task.ID, data, rule, end)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task %s now belongs to series %s: %s\n",
				updated.ID, updated.TemplateID, a.Manager.Summary(rule))
			return nil
		},
	}
	rf.register(cmd)
	return cmd
}

func newSeriesUpdateCommand(e *env) *cobra.Command {
	var rf ruleFlags

	cmd := &cobra.Command{
		Use:   "update TEMPLATE_ID",
		Short: "Replace the rule and end condition of a series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := e.app
			ctx := cmd.Context()

			tmpl, err := a.Manager.Template(ctx, args[0])
			if err != nil {
				return err
			}
			anchor := a.Today()
			if tmpl.RecurrenceRule != nil && !tmpl.RecurrenceRule.AnchorDate.IsZero() {
				anchor = tmpl.RecurrenceRule.AnchorDate
			}
			rule, err := rf.rule(anchor)
			if err != nil {
				return err
			}
			end, err := rf.end()
			if err != nil {
				return err
			}

			updated, err := a.Manager.UpdateRule(ctx, tmpl.ID, rule, end)
			if err != nil {
				return err
			}
			if updated.RecurrenceRule == nil {
				return errors.New("series has no rule after update")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated series %s: %s, %s\n",
				updated.ID, a.Manager.Summary(*updated.RecurrenceRule), updated.EndCondition)
			return nil
		},
	}
	rf.register(cmd)
	return cmd
}
