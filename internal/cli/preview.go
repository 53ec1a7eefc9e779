package cli

import (
	"github.com/cyp0633/taskrecur/recurrence"
	"github.com/spf13/cobra"
)

func newPreviewCommand(e *env) *cobra.Command {
	var (
		rf    ruleFlags
		out   outputFlag
		count int
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show the upcoming dates of a recurrence rule",
		Example: `  recurctl preview --every weekly --interval 2 --on tue,thu --anchor 2024-01-02
  recurctl preview --every monthly --day-type nthWeekday --ordinal -1 --weekday fri -n 10
  recurctl preview --every yearly --month feb --day 29 -o ics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := e.app
			rule, err := rf.rule(a.Today())
			if err != nil {
				return err
			}
			end, err := rf.end()
			if err != nil {
				return err
			}

			dates := a.Manager.Preview(rule, count)
			for i, d := range dates {
				if recurrence.ExceededBy(end, d, i+1) {
					dates = dates[:i]
					break
				}
			}
			return printPreview(cmd.OutOrStdout(), a.Manager.Summary(rule), dates, out.format)
		},
	}

	rf.register(cmd)
	out.register(cmd, formatTable, formatYAML, formatICS)
	cmd.Flags().IntVarP(&count, "count", "n", 5, "number of dates to show (at most 10)")
	return cmd
}
