package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"discrip/internal/hooks"
)

func newHooksCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "hooks",
		Short: "List hook scripts found in the hook directory",
		Long:  "List the hook-<point>.sh scripts a run would execute. --all includes points with no script.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.resolve()
			if err != nil {
				return err
			}
			runner := hooks.New(cfg.HookDir)
			out := cmd.OutOrStdout()

			var rows [][]string
			for _, point := range hooks.Points() {
				script, ok := runner.Lookup(point)
				if !ok && !all {
					continue
				}
				path, mode := "-", "-"
				if ok {
					path = script.Path
					mode = "shell"
					if script.Executable {
						mode = "exec"
					}
				}
				rows = append(rows, []string{point.String(), path, mode, yesNo(point.Critical())})
			}
			if len(rows) == 0 {
				fmt.Fprintf(out, "No hook scripts in %s\n", cfg.HookDir)
				return nil
			}
			fmt.Fprintln(out, renderTable([]string{"Point", "Script", "Runs via", "Failure fails run"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include hook points without a script")
	return cmd
}
