package cmd

import (
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Reconcile continuously",
		Long: `Runs a reconciliation at startup, then every watch.interval and
whenever the configuration file or the definitions of a local source
change. Failed runs are logged and retried on the next trigger.

Under systemd, use Type=notify: readiness is reported after the first run
and WatchdogSec is honoured.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApplication(false)
			if err != nil {
				return err
			}
			defer application.Close()
			return application.Watch(cmd.Context())
		},
	}
}
