package cmd

import (
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var (
		out   outputFlags
		limit int
	)
	cmd := &cobra.Command{
		Use:   "history [RUN]",
		Short: "Show past runs",
		Long: `Without arguments, lists the most recent runs. With a run id, or a
unique prefix of one, shows the units that run applied and tore down.`,
		Args: cobra.MaximumNArgs(1),
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

			if len(args) == 1 {
				run, events, err := application.HistoryRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return f.FormatRun(run, events)
			}
			runs, err := application.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return f.FormatRuns(runs)
		},
	}
	out.register(cmd)
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to list")
	return cmd
}
