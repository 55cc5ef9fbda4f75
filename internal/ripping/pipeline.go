package ripping

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"discrip/internal/config"
	"discrip/internal/disc"
	"discrip/internal/fileutil"
	"discrip/internal/hooks"
	"discrip/internal/logging"
	"discrip/internal/services"
	"discrip/internal/services/makemkv"
	"discrip/internal/textutil"
)

// UnknownLabel names the run directory when no disc label can be read.
const UnknownLabel = "Unknown"

const labelTimeout = 5 * time.Second

// Ripper is the makemkvcon surface the pipeline drives.
type Ripper interface {
	Info(ctx context.Context, device string, onEvent func(makemkv.Line, makemkv.Event)) (makemkv.DiscInfo, error)
	StartRip(ctx context.Context, device, dir string) (makemkv.Process, error)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithReporter sets the stdout/stderr contract writer.
func WithReporter(r *Reporter) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.reporter = r
		}
	}
}

// WithHooks sets the hook runner.
func WithHooks(firer HookFirer) Option {
	return func(p *Pipeline) { p.hooks = firer }
}

// WithEjector sets the eject implementation.
func WithEjector(ejector disc.Ejector) Option {
	return func(p *Pipeline) { p.ejector = ejector }
}

// WithFreeSpace overrides the free-space probe.
func WithFreeSpace(fn func(path string) (uint64, error)) Option {
	return func(p *Pipeline) {
		if fn != nil {
			p.freeSpace = fn
		}
	}
}

// WithTitleWatcher overrides how finished title files are detected.
func WithTitleWatcher(fn func(dir string) (TitleWatcher, error)) Option {
	return func(p *Pipeline) { p.newWatcher = fn }
}

// WithLabelReader overrides the fallback disc label lookup.
func WithLabelReader(fn func(ctx context.Context, device string) (string, error)) Option {
	return func(p *Pipeline) { p.readLabel = fn }
}

// WithDriveProbe overrides the drive status check run before scanning.
func WithDriveProbe(fn func(ctx context.Context, device string) (disc.DriveStatus, error)) Option {
	return func(p *Pipeline) { p.probeDrive = fn }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id string) Option {
	return func(p *Pipeline) { p.runID = strings.TrimSpace(id) }
}

// Pipeline drives one disc through scan, prepare, rip and finalize.
type Pipeline struct {
	cfg        config.RunConfig
	ripper     Ripper
	hooks      HookFirer
	ejector    disc.Ejector
	reporter   *Reporter
	logger     *slog.Logger
	freeSpace  func(string) (uint64, error)
	newWatcher func(string) (TitleWatcher, error)
	readLabel  func(context.Context, string) (string, error)
	probeDrive func(context.Context, string) (disc.DriveStatus, error)
	now        func() time.Time
	runID      string
}

// NewPipeline builds a pipeline for cfg. cfg.Device must already be located.
func NewPipeline(cfg config.RunConfig, ripper Ripper, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:        cfg,
		ripper:     ripper,
		reporter:   NewReporter(os.Stdout, os.Stderr, cfg.Debug),
		freeSpace:  fileutil.FreeBytes,
		newWatcher: NewTitleWatcher,
		now:        time.Now,
	}
	p.readLabel = func(ctx context.Context, device string) (string, error) {
		return disc.ReadLabel(ctx, cfg.Settings.Tools.Lsblk, device, labelTimeout)
	}
	p.probeDrive = func(_ context.Context, device string) (disc.DriveStatus, error) {
		return disc.CheckDriveStatus(device)
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.NewComponentLogger(p.logger, "pipeline")
	return p
}

// Run executes the pipeline to a terminal state. Cancelling ctx does not
// abort a run in progress; only its values are used.
func (p *Pipeline) Run(ctx context.Context) Result {
	runID := p.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	ctx = context.WithoutCancel(ctx)
	ctx = services.WithRunID(ctx, runID)
	ctx = services.WithDevice(ctx, p.cfg.Device)

	r := &run{
		p:      p,
		titles: newTitleTracker(),
		res: Result{
			RunID:   runID,
			Device:  p.cfg.Device,
			Started: p.now(),
		},
		final: NewFinalizer(p.cfg, p.logger),
	}
	r.eject = NewEjectController(r, p.ejector, p.reporter, p.logger)
	r.execute(ctx)
	r.res.Titles = r.titles.snapshot()
	r.res.Duration = p.now().Sub(r.res.Started)
	p.reporter.Done(r.res.Duration)

	logger := logging.WithContext(ctx, p.logger)
	logger.Info("run finished",
		logging.String(logging.FieldEventType, "run_finished"),
		logging.String("outcome", r.res.Outcome.String()),
		logging.Int("exit_code", r.res.ExitCode()),
		logging.Int("titles_ok", r.res.TitlesOK()),
		logging.Int("titles_failed", r.res.TitlesFailed()),
		logging.Duration("duration", r.res.Duration),
	)
	return r.res
}

// run holds the mutable state of one Pipeline.Run.
type run struct {
	p        *Pipeline
	res      Result
	titles   *titleTracker
	eject    *EjectController
	final    *Finalizer
	hookErr  error
	lowSpace bool
}

func (r *run) execute(ctx context.Context) {
	ctx = r.enter(ctx, StateInit)
	r.fire(ctx, hooks.PostEnv, nil)

	ctx = r.enter(ctx, StateScanning)
	info, err := r.scan(ctx)
	if err != nil {
		r.fail(ctx, OutcomeHardFailure, err)
		return
	}

	ctx = r.enter(ctx, StatePreparing)
	r.fire(ctx, hooks.PrePrepare, nil)
	if err := r.prepare(ctx); err != nil {
		r.fail(ctx, OutcomeHardFailure, err)
		return
	}
	r.fire(ctx, hooks.PostPrepare, nil)

	ctx = r.enter(ctx, StateRipping)
	r.fire(ctx, hooks.PreRip, nil)
	if outcome, err := r.rip(ctx, info); err != nil {
		r.fail(ctx, outcome, err)
		return
	}
	if r.hookErr != nil {
		r.fail(ctx, OutcomePartialFailure, r.hookErr)
		return
	}

	ctx = r.enter(ctx, StateFinalizing)
	if err := r.final.Apply(r.res.OutputDir); err != nil {
		r.fail(ctx, OutcomePartialFailure, err)
		return
	}
	r.p.reporter.Titles(r.titles.snapshot())
	r.res.Outcome = OutcomeSuccess
	r.res.Ejected = r.eject.Run(ctx, DecideEject(r.p.cfg.NoEject, r.p.cfg.FailedEject, OutcomeSuccess), r.p.cfg.Device, r.vars(nil))
	r.fire(ctx, hooks.End, nil)
	if r.hookErr != nil {
		// The success eject branch already ran; only the exit status changes.
		r.res.Outcome = OutcomePartialFailure
		r.res.Err = r.hookErr
		r.reportError(r.hookErr)
		r.enter(ctx, StateFailed)
		return
	}
	r.enter(ctx, StateDone)
}

func (r *run) enter(ctx context.Context, state State) context.Context {
	r.res.States = append(r.res.States, state)
	ctx = services.WithStage(ctx, string(state))
	logging.WithContext(ctx, r.p.logger).Debug("pipeline state",
		logging.String(logging.FieldEventType, "state_enter"),
	)
	return ctx
}

// fail routes a failed run through the on-err hooks, the sentinel, ownership
// and the failure eject branch.
func (r *run) fail(ctx context.Context, outcome Outcome, err error) {
	ctx = r.enter(ctx, StateFailed)
	r.res.Outcome = outcome
	r.res.Err = err
	logger := logging.WithContext(ctx, r.p.logger)
	logging.ErrorWithContext(logger, "run failed", "run_failed",
		logging.String("outcome", outcome.String()),
		logging.Error(err),
	)
	r.reportError(err)

	vars := map[string]string{"FAILURE_REASON": failureReason(err)}
	r.fire(ctx, hooks.PreOnErr, vars)
	r.fire(ctx, hooks.PreOnErrTouch, vars)
	if r.p.cfg.FailedEject {
		if dir, err := r.ensureRunDir(); err != nil {
			logging.WarnWithContext(logger, "cannot create run directory for failure sentinel", "sentinel_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "no failed marker for this run"),
			)
		} else if _, err := r.final.MarkFailed(dir); err != nil {
			logging.WarnWithContext(logger, "failure sentinel not written", "sentinel_failed", logging.Error(err))
		}
	}
	r.fire(ctx, hooks.PostOnErrTouch, vars)
	r.fire(ctx, hooks.PostOnErr, vars)

	if err := r.final.Apply(r.res.OutputDir); err != nil {
		logging.WarnWithContext(logger, "ownership not applied to failed run", "ownership_failed", logging.Error(err))
	}
	r.p.reporter.Titles(r.titles.snapshot())
	r.res.Ejected = r.eject.Run(ctx, DecideEject(r.p.cfg.NoEject, r.p.cfg.FailedEject, outcome), r.p.cfg.Device, r.vars(vars))
}

func (r *run) reportError(err error) {
	rep := r.p.reporter
	switch {
	case errors.Is(err, services.ErrDiscOpen):
		rep.Errorf("%s", msgDiscOpen)
	case errors.Is(err, services.ErrLowSpace):
		// Printed when detected.
	case errors.Is(err, services.ErrTitleFailure):
		rep.Errorf("%s", msgTitlesFailed)
	default:
		rep.Errorf("ERROR: %v", err)
	}
}

// Fire runs a hook and records a failure on the result. It lets the eject
// controller share the run's bookkeeping.
func (r *run) Fire(ctx context.Context, point hooks.Point, vars map[string]string) (hooks.Result, error) {
	if r.p.hooks == nil {
		return hooks.Result{Point: point}, nil
	}
	res, err := r.p.hooks.Fire(ctx, point, vars)
	if err != nil {
		r.res.HookFailures = append(r.res.HookFailures, HookFailure{Point: point, Err: err})
		if point.Critical() && r.hookErr == nil {
			r.hookErr = err
		}
	}
	return res, err
}

// fire runs a hook with the run variables merged in. Failures at critical
// points are remembered so the run cannot finish successfully.
func (r *run) fire(ctx context.Context, point hooks.Point, extra map[string]string) {
	res, err := r.Fire(ctx, point, r.vars(extra))
	if err == nil {
		return
	}
	impact := "run continues"
	if point.Critical() {
		impact = "run will exit nonzero"
	}
	logging.WarnWithContext(logging.WithContext(ctx, r.p.logger), "hook failed", "hook_failed",
		logging.String(logging.FieldHookPoint, string(point)),
		logging.Int("exit_code", res.ExitCode),
		logging.Bool("timed_out", res.TimedOut),
		logging.Error(err),
		logging.String(logging.FieldImpact, impact),
	)
}

func (r *run) vars(extra map[string]string) map[string]string {
	vars := map[string]string{
		"RUN_ID":      r.res.RunID,
		"DEVNAME":     r.p.cfg.Device,
		"OUTPUT_ROOT": r.p.cfg.OutputRoot,
	}
	if r.res.Label != "" {
		vars["DISC_LABEL"] = r.res.Label
	}
	if r.res.OutputDir != "" {
		vars["OUTPUT_DIR"] = r.res.OutputDir
	}
	for k, v := range extra {
		vars[k] = v
	}
	return vars
}

func (r *run) scan(ctx context.Context) (makemkv.DiscInfo, error) {
	logger := logging.WithContext(ctx, r.p.logger)
	device := r.p.cfg.Device
	if r.p.probeDrive != nil {
		status, err := r.p.probeDrive(ctx, device)
		if err != nil {
			logger.Debug("drive status unavailable", logging.Error(err))
		} else {
			logger.Info("drive status", logging.String("status", status.String()))
		}
	}

	info, err := r.p.ripper.Info(ctx, device, r.display)
	if err != nil {
		return info, err
	}

	label := info.BestLabel()
	if label == "" && r.p.readLabel != nil {
		if fsLabel, err := r.p.readLabel(ctx, device); err != nil {
			logger.Debug("lsblk label unavailable", logging.Error(err))
		} else {
			label = fsLabel
		}
	}
	r.res.Label = textutil.SanitizeLabel(label, UnknownLabel)
	logger.Info("disc scanned",
		logging.String(logging.FieldEventType, "disc_scanned"),
		logging.String("disc_label", r.res.Label),
		logging.Int("title_count", info.TitleCount),
	)
	return info, nil
}

func (r *run) prepare(ctx context.Context) error {
	root := r.p.cfg.OutputRoot
	if err := os.MkdirAll(root, r.p.cfg.DirMode()); err != nil {
		return services.Wrap(services.ErrConfiguration, "preparing", "output root", "output directory is not writable", err)
	}
	minFree := r.p.cfg.Settings.Ripping.MinFreeBytes()
	if minFree > 0 {
		free, err := r.p.freeSpace(root)
		if err != nil {
			return services.Wrap(services.ErrConfiguration, "preparing", "free space", "cannot stat output filesystem", err)
		}
		if free < minFree {
			r.p.reporter.Errorf("%s", msgLowSpace)
			return services.Wrap(services.ErrLowSpace, "preparing", "free space",
				fmt.Sprintf("%d MiB free in %s, %d MiB required", free>>20, root, minFree>>20), nil)
		}
	}
	dir, err := r.ensureRunDir()
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "preparing", "run directory", "", err)
	}
	logging.WithContext(ctx, r.p.logger).Info("run directory created",
		logging.String(logging.FieldEventType, "run_dir_created"),
		logging.String("path", dir),
	)
	return nil
}

func (r *run) ensureRunDir() (string, error) {
	if r.res.OutputDir != "" {
		return r.res.OutputDir, nil
	}
	label := r.res.Label
	if label == "" {
		label = UnknownLabel
	}
	dir, err := fileutil.NextRunDir(r.p.cfg.OutputRoot, label, r.p.cfg.DirMode())
	if err != nil {
		return "", err
	}
	r.res.OutputDir = dir
	return dir, nil
}

// rip runs makemkvcon and multiplexes its output, finished title files and
// the low-space watchdog until the process exits.
func (r *run) rip(ctx context.Context, info makemkv.DiscInfo) (Outcome, error) {
	logger := logging.WithContext(ctx, r.p.logger)
	settings := r.p.cfg.Settings.Ripping
	dir := r.res.OutputDir

	ripCtx := ctx
	if d := settings.RipDeadline(); d > 0 {
		var cancel context.CancelFunc
		ripCtx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	var watcher TitleWatcher
	if r.p.newWatcher != nil {
		w, err := r.p.newWatcher(dir)
		if err != nil {
			logging.WarnWithContext(logger, "title watcher unavailable", "title_watcher_unavailable",
				logging.Error(err),
				logging.String(logging.FieldImpact, "post-title hooks fire after makemkvcon exits"),
			)
		} else {
			watcher = w
		}
	}

	proc, err := r.p.ripper.StartRip(ripCtx, r.p.cfg.Device, dir)
	if err != nil {
		if watcher != nil {
			_ = watcher.Close()
		}
		return OutcomeHardFailure, err
	}
	logger.Info("makemkv rip started",
		logging.String(logging.FieldEventType, "rip_started"),
		logging.Int("pid", proc.Pid()),
		logging.String("destination_dir", dir),
	)

	var tick <-chan time.Time
	if interval := settings.SpaceCheckEvery(); interval > 0 && settings.MinFreeBytes() > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	classifier := makemkv.NewClassifier(r.p.logger)
	lines := proc.Lines()
	var events <-chan string
	if watcher != nil {
		events = watcher.Events()
	}
	for lines != nil {
		select {
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			ev := classifier.Classify(line.Text)
			r.display(line, ev)
			if ev.Kind == makemkv.EventTitleFailed {
				r.titles.markFailed(r.resolveTitlePath(ev.TitlePath), ev.Text)
			}
		case path, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			r.completeTitle(ctx, info, path)
		case <-tick:
			if !r.lowSpace && r.lowOnSpace(ctx) {
				r.lowSpace = true
				r.p.reporter.Errorf("%s", msgLowSpace)
				if err := proc.Terminate(); err != nil {
					logger.Warn("terminate makemkvcon failed", logging.Error(err))
				}
			}
		}
	}
	waitErr := proc.Wait()
	timedOut := errors.Is(ripCtx.Err(), context.DeadlineExceeded)

	if watcher != nil {
		_ = watcher.Close()
		for path := range watcher.Events() {
			r.completeTitle(ctx, info, path)
		}
	}
	if r.lowSpace {
		r.removeIncomplete(ctx, dir)
	} else {
		r.sweep(ctx, info, dir)
	}
	for _, path := range r.titles.unreported() {
		r.failedTitle(ctx, path)
	}

	summary := classifier.Summary()
	r.fire(ctx, hooks.PostRip, map[string]string{
		"RIP_EXIT_STATUS": strconv.Itoa(makemkv.ExitStatus(waitErr)),
		"TITLES_OK":       strconv.Itoa(r.countTitles(true)),
		"TITLES_FAILED":   strconv.Itoa(r.countTitles(false)),
	})
	logger.Info("makemkv rip finished",
		logging.String(logging.FieldEventType, "rip_finished"),
		logging.Int("exit_status", makemkv.ExitStatus(waitErr)),
		logging.Int("titles_ok", r.countTitles(true)),
		logging.Int("titles_failed", r.countTitles(false)),
		logging.Bool("summary_seen", summary.SummarySeen),
	)

	okTitles := r.countTitles(true)
	switch {
	case r.lowSpace:
		return OutcomeHardFailure, services.Wrap(services.ErrLowSpace, "ripping", "free space", "output filesystem filled during rip", nil)
	case timedOut:
		return OutcomeHardFailure, services.Wrap(services.ErrTimeout, "ripping", "makemkv",
			fmt.Sprintf("rip exceeded %s", settings.RipDeadline()), waitErr)
	case summary.Fatal != nil:
		return OutcomeHardFailure, services.Wrap(services.ErrExternalTool, "ripping", "makemkv", "MakeMKV refused to rip", summary.Fatal)
	case summary.DiscOpenFailed && okTitles == 0:
		return OutcomeHardFailure, services.Wrap(services.ErrDiscOpen, "ripping", "makemkv", "Failed to open disc", waitErr)
	case summary.AnyFailed() || r.countTitles(false) > 0:
		return OutcomePartialFailure, services.Wrap(services.ErrTitleFailure, "ripping", "makemkv",
			fmt.Sprintf("%d titles saved, %d failed", okTitles, max(summary.Failed, r.countTitles(false))), nil)
	case waitErr != nil && okTitles == 0:
		return OutcomeHardFailure, services.Wrap(services.ErrExternalTool, "ripping", "makemkv", "makemkvcon exited abnormally", waitErr)
	case waitErr != nil:
		return OutcomePartialFailure, services.Wrap(services.ErrExternalTool, "ripping", "makemkv", "makemkvcon exited abnormally", waitErr)
	case okTitles == 0:
		return OutcomeHardFailure, services.Wrap(services.ErrTitleFailure, "ripping", "makemkv", "no titles were saved", nil)
	}
	return OutcomeSuccess, nil
}

// display forwards a classified line to the progress stream.
func (r *run) display(line makemkv.Line, ev makemkv.Event) {
	text, ok := ev.Display()
	if !ok {
		return
	}
	if line.Stderr {
		r.p.reporter.Errorf("%s", text)
		return
	}
	r.p.reporter.Progress(text)
}

func (r *run) resolveTitlePath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(r.res.OutputDir, path)
}

func (r *run) lowOnSpace(ctx context.Context) bool {
	free, err := r.p.freeSpace(r.res.OutputDir)
	if err != nil {
		logging.WithContext(ctx, r.p.logger).Warn("free space check failed", logging.Error(err))
		return false
	}
	return free < r.p.cfg.Settings.Ripping.MinFreeBytes()
}

// completeTitle records a finished title file, normalizes its name and fires
// post-title.
func (r *run) completeTitle(ctx context.Context, info makemkv.DiscInfo, path string) {
	if r.lowSpace || r.titles.known(path) {
		return
	}
	st, err := os.Stat(path)
	if err != nil || !st.Mode().IsRegular() || st.Size() == 0 {
		return
	}
	idx := r.titles.assignIndex(path, info.TitleIndexForFile(filepath.Base(path)))
	final := filepath.Join(filepath.Dir(path), TitleFileName(idx))
	if final != path {
		if _, err := os.Lstat(final); err == nil {
			final = path
		} else if err := fileutil.ReplaceFile(path, final); err != nil {
			logging.WithContext(ctx, r.p.logger).Warn("title rename failed", logging.Error(err))
			final = path
		}
	}
	msg, failed := r.titles.isFailed(path)
	result := TitleResult{Index: idx, Path: final, Success: !failed, SizeBytes: st.Size(), Message: msg}
	r.titles.add(result, path)
	logging.WithContext(ctx, r.p.logger).Info("title finished",
		logging.String(logging.FieldEventType, "title_finished"),
		logging.Int("title_index", idx),
		logging.String("path", final),
		logging.Int64("size_bytes", st.Size()),
		logging.Bool("success", !failed),
	)
	r.fire(ctx, hooks.PostTitle, titleVars(result))
}

// failedTitle fires post-title for a title MakeMKV reported as failed that
// never produced a finished file.
func (r *run) failedTitle(ctx context.Context, path string) {
	msg, _ := r.titles.isFailed(path)
	size := int64(-1)
	if st, err := os.Stat(path); err == nil {
		size = st.Size()
	}
	result := TitleResult{
		Index:     r.titles.assignIndex(path, -1),
		Path:      path,
		SizeBytes: size,
		Message:   msg,
	}
	r.titles.add(result)
	r.fire(ctx, hooks.PostTitle, titleVars(result))
}

// sweep picks up finished files the watcher missed.
func (r *run) sweep(ctx context.Context, info makemkv.DiscInfo, dir string) {
	files, err := fileutil.ListFiles(dir, ".mkv")
	if err != nil {
		logging.WithContext(ctx, r.p.logger).Warn("output sweep failed", logging.Error(err))
		return
	}
	for _, path := range files {
		r.completeTitle(ctx, info, path)
	}
}

// removeIncomplete deletes MKV files that were still being written when the
// rip was stopped.
func (r *run) removeIncomplete(ctx context.Context, dir string) {
	files, err := fileutil.ListFiles(dir, ".mkv")
	if err != nil {
		return
	}
	logger := logging.WithContext(ctx, r.p.logger)
	for _, path := range files {
		if r.titles.known(path) {
			continue
		}
		if err := os.Remove(path); err != nil {
			logger.Warn("remove partial title failed", logging.String("path", path), logging.Error(err))
			continue
		}
		logger.Info("removed partial title", logging.String("path", path))
	}
}

func (r *run) countTitles(success bool) int {
	n := 0
	for _, t := range r.titles.results {
		if t.Success == success {
			n++
		}
	}
	return n
}

func titleVars(t TitleResult) map[string]string {
	status := "success"
	if !t.Success {
		status = "failed"
	}
	return map[string]string{
		"TITLE_PATH":   t.Path,
		"TITLE_INDEX":  strconv.Itoa(t.Index),
		"TITLE_STATUS": status,
		"TITLE_SIZE":   strconv.FormatInt(t.SizeBytes, 10),
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, services.ErrDiscOpen):
		return "disc_open"
	case errors.Is(err, services.ErrLowSpace):
		return "low_space"
	case errors.Is(err, services.ErrTitleFailure):
		return "title_failure"
	case errors.Is(err, services.ErrHookFailure):
		return "hook_failure"
	case errors.Is(err, services.ErrTimeout):
		return "timeout"
	default:
		return "error"
	}
}
