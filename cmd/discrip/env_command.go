package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newEnvCommand(ctx *commandContext) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "env",
		Short: "Show the resolved run configuration",
		Long:  "Show how the config file, the dotenv file, and the environment resolve for the next run. --raw prints the merged environment hooks receive.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.resolve()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if raw {
				for _, kv := range cfg.Environ() {
					fmt.Fprintln(out, kv)
				}
				return nil
			}

			device := cfg.DeviceName
			if device == "" {
				device = "(search candidates)"
			}
			historyDB := cfg.Settings.Paths.HistoryDB
			if historyDB == "" {
				historyDB = "(disabled)"
			}
			rows := [][]string{
				{"Device", device},
				{"Output root", cfg.OutputRoot},
				{"Hook directory", cfg.HookDir},
				{"Owner", fmt.Sprintf("%d:%d", cfg.UID, cfg.GID)},
				{"Umask", octal(cfg.Umask)},
				{"Directory mode", octal(cfg.DirMode())},
				{"File mode", octal(cfg.FileMode())},
				{"Debug", yesNo(cfg.Debug)},
				{"No eject", yesNo(cfg.NoEject)},
				{"Eject on failure", yesNo(cfg.FailedEject)},
				{"Minimum free space", strconv.Itoa(cfg.Settings.Ripping.MinFreeMiB) + " MiB"},
				{"Run history", historyDB},
			}
			fmt.Fprintln(out, renderTable([]string{"Setting", "Value"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the merged environment as KEY=VALUE lines")
	return cmd
}
