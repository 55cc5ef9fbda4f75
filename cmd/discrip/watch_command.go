package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"discrip/internal/watch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var device string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rip every disc inserted into the drive",
		Long:  "Listen for udev media-change events on the drive and run the rip pipeline for each inserted disc until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.resolve()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cfg)
			if err != nil {
				return err
			}
			path, err := ctx.locate(cfg, device)
			if err != nil {
				return err
			}

			sigCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			monitor, err := watch.New(path, watch.WithLogger(logger))
			if err != nil {
				return err
			}
			stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
			return monitor.Run(sigCtx, func(runCtx context.Context, dev string) error {
				_, err := ripOnce(runCtx, ctx, dev, stdout, stderr)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&device, "device", "d", "", "Optical device node (overrides DEVNAME)")
	return cmd
}
