package main

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"discrip/internal/config"
	"discrip/internal/disc"
	"discrip/internal/history"
	"discrip/internal/hooks"
	"discrip/internal/logging"
	"discrip/internal/ripping"
	"discrip/internal/services"
	"discrip/internal/services/makemkv"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var device string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Rip the disc in the drive once and exit",
		Long: "Rip every title of the disc in the drive. The exit status reports the outcome: " +
			"0 success, 2 configuration, 3 device, 4 disc open, 5 low space, 6 title failure, 7 hook failure.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := ripOnce(cmd.Context(), ctx, device, cmd.OutOrStdout(), cmd.ErrOrStderr())
			return err
		},
	}
	cmd.Flags().StringVarP(&device, "device", "d", "", "Optical device node (overrides DEVNAME)")
	return cmd
}

// ripOnce runs one disc through the pipeline. Every error it returns has
// already been printed to stderr.
func ripOnce(ctx context.Context, cc *commandContext, device string, stdout, stderr io.Writer) (ripping.Result, error) {
	cfg, err := cc.resolve()
	if err != nil {
		ripping.NewReporter(stdout, stderr, false).Errorf("ERROR: %v", err)
		return ripping.Result{}, reported(err)
	}
	reporter := ripping.NewReporter(stdout, stderr, cfg.Debug)
	reporter.Environment(cfg.Environ())

	logger, err := cc.logger(cfg)
	if err != nil {
		reporter.Errorf("ERROR: %v", err)
		return ripping.Result{}, reported(err)
	}

	path, err := cc.locate(cfg, device)
	if err != nil {
		var invalid *disc.DeviceInvalidError
		if errors.As(err, &invalid) {
			reporter.Errorf("Device %s not a block-special file.", invalid.Path)
		} else {
			reporter.Errorf("ERROR: Unable to find optical device.")
		}
		logging.ErrorWithContext(logger, "device lookup failed", "device_lookup_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "set DEVNAME or pass the drive into the container"),
		)
		return ripping.Result{}, reported(err)
	}
	cfg = cfg.WithDevice(path)

	lock, err := disc.AcquireLock(cfg.Settings.Paths.LockDir, path)
	if err != nil {
		reporter.Errorf("ERROR: %v", err)
		return ripping.Result{}, reported(err)
	}
	defer func() { _ = lock.Release() }()

	previous := unix.Umask(int(cfg.Umask.Perm()))
	defer unix.Umask(previous)

	client, err := makemkv.New(cfg.Settings.Tools.MakeMKV,
		makemkv.WithDirectIO(cfg.Settings.Ripping.DirectIO),
		makemkv.WithProfile(cfg.Settings.Ripping.Profile),
		makemkv.WithExtraArgs(cfg.Settings.Ripping.ExtraArgs...),
		makemkv.WithLogger(logger),
		makemkv.WithTrace(reporter.Trace),
	)
	if err != nil {
		err = services.Wrap(services.ErrConfiguration, "config", "makemkv", "", err)
		reporter.Errorf("ERROR: %v", err)
		return ripping.Result{}, reported(err)
	}

	ejector := disc.NewEjector(cfg.Settings.Tools.Eject,
		disc.WithVerbose(cfg.Debug),
		disc.WithOutput(stdout, stderr),
		disc.WithTrace(reporter.Trace),
	)
	runner := hooks.New(cfg.HookDir,
		hooks.WithShell(cfg.Settings.Tools.Shell),
		hooks.WithEnviron(cfg.Environ()),
		hooks.WithOutput(stdout, stderr),
		hooks.WithTimeout(cfg.Settings.Ripping.HookDeadline()),
		hooks.WithLogger(logger),
	)

	pipeline := ripping.NewPipeline(cfg, client,
		ripping.WithLogger(logger),
		ripping.WithReporter(reporter),
		ripping.WithHooks(runner),
		ripping.WithEjector(ejector),
	)
	res := pipeline.Run(ctx)
	recordHistory(ctx, cfg, res, logger)
	return res, reported(res.Err)
}

// recordHistory stores res when a history database is configured. Failures
// are logged and never change the run outcome.
func recordHistory(ctx context.Context, cfg config.RunConfig, res ripping.Result, logger *slog.Logger) {
	path := cfg.Settings.Paths.HistoryDB
	if path == "" {
		return
	}
	store, err := history.Open(ctx, path)
	if err == nil {
		err = store.RecordRun(ctx, res)
		_ = store.Close()
	}
	if err != nil {
		logging.WarnWithContext(logger, "failed to record run history", "history_record_failed",
			logging.Error(err),
			logging.String("history_db", path),
			logging.String(logging.FieldImpact, "run missing from discrip history"),
		)
	}
}
