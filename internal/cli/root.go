// Package cli provides the recurctl command-line interface.
package cli

import (
	"github.com/cyp0633/taskrecur/internal/config"
	"github.com/spf13/cobra"
)

// Command group IDs.
const (
	groupSeries = "series"
	groupTasks  = "tasks"
)

// env is filled in by the root command before any subcommand runs.
type env struct {
	app   *App
	owned bool
}

func (e *env) close() error {
	if e.app == nil || !e.owned {
		return nil
	}
	err := e.app.Close()
	e.app = nil
	return err
}

// rootFlags are the persistent flags that override configuration keys.
type rootFlags struct {
	configFile string
	store      string
	db         string
	user       string
	logLevel   string
	logFormat  string
	locale     string
}

// overrides returns the config keys for the flags set on cmd.
func (f *rootFlags) overrides(cmd *cobra.Command) map[string]any {
	out := make(map[string]any)
	flags := cmd.Flags()
	for name, key := range map[string]string{
		"store":      "store.driver",
		"db":         "store.path",
		"user":       "user.id",
		"log-level":  "log.level",
		"log-format": "log.format",
		"locale":     "summary.locale",
	} {
		if !flags.Changed(name) {
			continue
		}
		if v, err := flags.GetString(name); err == nil {
			out[key] = v
		}
	}
	return out
}

// NewRootCommand creates the root command for recurctl.
func NewRootCommand(version string) *cobra.Command {
	return newRootCommand(&env{}, version)
}

func newRootCommand(e *env, version string) *cobra.Command {
	var flags rootFlags

	root := &cobra.Command{
		Use:   "recurctl",
		Short: "Recurring task series for a GTD task list",
		Long: `recurctl manages recurring task series. A series is a template task
holding the recurrence rule; completing one of its instances generates the
next one. Use the sqlite store to keep series between runs.`,
		Version: version,
		// SilenceUsage prevents usage from being printed on errors
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Already wired (tests inject an App)
			if e.app != nil {
				return nil
			}
			cfg, err := config.Load(flags.configFile, flags.overrides(cmd))
			if err != nil {
				return err
			}
			app, err := NewApp(cfg, cmd.ErrOrStderr(), nil)
			if err != nil {
				return err
			}
			e.app, e.owned = app, true
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return e.close()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "config file (default ./recurctl.yaml or $HOME/recurctl.yaml)")
	pf.StringVar(&flags.store, "store", "", "task store: memory or sqlite")
	pf.StringVar(&flags.db, "db", "", "sqlite database path")
	pf.StringVar(&flags.user, "user", "", "user id owning the tasks")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&flags.logFormat, "log-format", "", "log format: text or json")
	pf.StringVar(&flags.locale, "locale", "", "language of rule summaries, e.g. en or de")

	root.AddGroup(
		&cobra.Group{ID: groupSeries, Title: "Series Commands:"},
		&cobra.Group{ID: groupTasks, Title: "Task Commands:"},
	)

	seriesCmd := newSeriesCommand(e)
	seriesCmd.GroupID = groupSeries
	previewCmd := newPreviewCommand(e)
	previewCmd.GroupID = groupSeries
	catchUpCmd := newCatchUpCommand(e)
	catchUpCmd.GroupID = groupSeries
	taskCmd := newTaskCommand(e)
	taskCmd.GroupID = groupTasks
	listCmd := newListCommand(e)
	listCmd.GroupID = groupTasks

	root.AddCommand(seriesCmd, previewCmd, catchUpCmd, taskCmd, listCmd)
	return root
}
