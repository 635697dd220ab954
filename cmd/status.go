package cmd

import (
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	var out outputFlags
	cmd := &cobra.Command{
		Use:   "status",
		Short: "List the recorded units",
		Long: `Lists the units of the current state and the units whose teardown
failed and will be retried by the next run. The state lock is not taken.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := out.formatter(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			application, err := newApplication(true)
			if err != nil {
				return err
			}
			defer application.Close()

			status, err := application.Status()
			if err != nil {
				return err
			}
			return f.FormatStatus(status)
		},
	}
	out.register(cmd)
	return cmd
}
