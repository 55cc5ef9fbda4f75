package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"discrip/internal/preflight"
)

func newDeviceCommand(ctx *commandContext) *cobra.Command {
	var device string
	var check bool

	cmd := &cobra.Command{
		Use:   "device",
		Short: "Locate the optical drive",
		Long:  "Print the device node a run would use. --check also verifies the tools, directories, and free space a rip needs.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.resolve()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			path, locateErr := ctx.locate(cfg, device)
			if !check {
				if locateErr != nil {
					return locateErr
				}
				fmt.Fprintln(out, path)
				return nil
			}

			if locateErr == nil {
				cfg = cfg.WithDevice(path)
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				status := "ok"
				if !r.Passed {
					status = "FAIL"
				}
				rows = append(rows, []string{r.Name, status, r.Detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Check", "Status", "Detail"}, rows, nil))
			if locateErr != nil {
				return locateErr
			}
			if preflight.Failed(results) {
				return errors.New("preflight checks failed")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&device, "device", "d", "", "Optical device node (overrides DEVNAME)")
	cmd.Flags().BoolVar(&check, "check", false, "Run preflight checks")
	return cmd
}
