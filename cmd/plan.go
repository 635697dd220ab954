package cmd

import (
	"github.com/spf13/cobra"
)

func newPlanCmd() *cobra.Command {
	var out outputFlags
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show what a run would change",
		Long: `Resolves and renders every source into a scratch snapshot and compares
it with the recorded state. Nothing is applied or torn down and the recorded
snapshots are left untouched; source checkouts are updated.`,
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

			var stop func()
			if out.interactive(cmd.OutOrStdout()) {
				stop = startSpinner(cmd.OutOrStdout(), "Resolving sources...")
			}
			plan, err := application.Plan(cmd.Context())
			if stop != nil {
				stop()
			}
			if err != nil {
				return err
			}
			return f.FormatPlan(plan)
		},
	}
	out.register(cmd)
	return cmd
}
