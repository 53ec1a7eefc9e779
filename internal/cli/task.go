package cli

import (
	"fmt"
	"slices"

	"github.com/cyp0633/taskrecur/storage"
	"github.com/spf13/cobra"
)

var statuses = []storage.GTDStatus{
	storage.StatusInbox,
	storage.StatusNext,
	storage.StatusWaiting,
	storage.StatusScheduled,
	storage.StatusSomeday,
}

func newTaskCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "task",
		Aliases: []string{"t"},
		Short:   "Manage plain tasks",
	}
	cmd.AddCommand(newTaskAddCommand(e))
	return cmd
}

func newTaskAddCommand(e *env) *cobra.Command {
	var (
		tf     taskFlags
		status string
	)

	cmd := &cobra.Command{
		Use:   "add TEXT...",
		Short: "Add a non-recurring task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := e.app
			st := storage.GTDStatus(status)
			if !slices.Contains(statuses, st) {
				return fmt.Errorf("unknown status %q", status)
			}
			data, err := tf.data(a.Config.User.ID, args)
			if err != nil {
				return err
			}
			task, err := a.Manager.AddTask(cmd.Context(), data, st)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added task %s\n", task.ID)
			return nil
		},
	}
	tf.register(cmd)
	cmd.Flags().StringVar(&status, "status", string(storage.StatusInbox), "GTD status: inbox, next, waiting, scheduled or someday")
	return cmd
}

func newListCommand(e *env) *cobra.Command {
	var (
		out       outputFlag
		templates bool
		all       bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks of the current user",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := e.app
			opts := &storage.ListOptions{UserID: a.Config.User.ID}
			switch {
			case all:
			case templates:
				opts.Templates = storage.Ptr(true)
			default:
				opts.Templates = storage.Ptr(false)
			}
			tasks, err := a.Store.ListTasks(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return a.printTasks(cmd.OutOrStdout(), tasks, out.format)
		},
	}
	out.register(cmd, formatTable, formatYAML, formatICS)
	cmd.Flags().BoolVar(&templates, "templates", false, "list series templates instead of tasks")
	cmd.Flags().BoolVar(&all, "all", false, "list tasks and series templates")
	cmd.MarkFlagsMutuallyExclusive("templates", "all")
	return cmd
}

func newCatchUpCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "catchup",
		Short: "Generate instances missed while away",
		Long: `catchup looks at every active series of the current user. When the
latest instance is completed and due before today, the next instance is
generated. Each run advances a series by at most one instance.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := e.app
			generated, err := a.Manager.CatchUp(cmd.Context(), a.Config.User.ID)
			w := cmd.OutOrStdout()
			for _, t := range generated {
				fmt.Fprintf(w, "Generated %s due %s (series %s)\n", t.ID, t.DueDate, t.TemplateID)
			}
			if err == nil && len(generated) == 0 {
				fmt.Fprintln(w, "Nothing to catch up")
			}
			return err
		},
	}
}
