package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var envFileFlag string

	ctx := newCommandContext(&configFlag, &envFileFlag)
	runCmd := newRunCommand(ctx)

	rootCmd := &cobra.Command{
		Use:           "discrip",
		Short:         "Rip optical discs to MKV with MakeMKV",
		Long:          "discrip rips every title of the disc in the optical drive to MKV files under the output root, running hook scripts around each step.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          runCmd.RunE,
	}
	rootCmd.Flags().AddFlagSet(runCmd.Flags())

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (default $DISCRIP_CONFIG or /config/discrip.toml)")
	rootCmd.PersistentFlags().StringVar(&envFileFlag, "env-file", "", "Dotenv file merged under the process environment (default $DISCRIP_ENV_FILE or /config/discrip.env)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(newEnvCommand(ctx))
	rootCmd.AddCommand(newDeviceCommand(ctx))
	rootCmd.AddCommand(newHooksCommand(ctx))
	rootCmd.AddCommand(newWatchCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}
