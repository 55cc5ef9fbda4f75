package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"discrip/internal/history"
	"discrip/internal/ripping"
	"discrip/internal/services"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent rip runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.resolve()
			if err != nil {
				return err
			}
			path := cfg.Settings.Paths.HistoryDB
			if path == "" {
				return services.Wrap(services.ErrConfiguration, "history", "open", "run history is disabled; set paths.history_db or DISCRIP_HISTORY_DB", nil)
			}
			store, err := history.Open(cmd.Context(), path)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.Started.Local().Format(time.DateTime),
					run.Label,
					run.Device,
					run.Outcome,
					strconv.Itoa(run.ExitCode),
					fmt.Sprintf("%d/%d", run.TitlesOK(), len(run.Titles)),
					ripping.FormatElapsed(run.Duration),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Started", "Label", "Device", "Outcome", "Exit", "Titles", "Elapsed"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show (0 for all)")
	return cmd
}
