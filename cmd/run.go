package cmd

import (
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var out outputFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Reconcile the host once",
		Long: `Runs one reconciliation: resolves every source, generates the
staging snapshot, brings up all declared units, tears down the units no
longer declared and promotes the staging snapshot.

A failing source does not stop the run; its units are simply absent from
the new state. The exit code is 2 in that case, 3 when the state could not
be transitioned and 4 when another run holds the lock.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := out.formatter(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			application, err := newApplication(false)
			if err != nil {
				return err
			}
			defer application.Close()

			report, runErr := application.Run(cmd.Context())
			if report != nil {
				if err := f.FormatReport(report); err != nil {
					return err
				}
			}
			return runErr
		},
	}
	out.register(cmd)
	return cmd
}
