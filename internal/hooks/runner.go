package hooks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"discrip/internal/logging"
	"discrip/internal/services"
)

const defaultGroupPoll = 100 * time.Millisecond

// Script is a hook discovered on disk.
type Script struct {
	Point      Point
	Path       string
	Executable bool
}

// Result describes one Fire call.
type Result struct {
	Point    Point
	Path     string
	Ran      bool
	ExitCode int
	Reaped   int
	Duration time.Duration
	TimedOut bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithShell sets the interpreter used for non-executable scripts.
func WithShell(shell string) Option {
	return func(r *Runner) {
		if s := strings.TrimSpace(shell); s != "" {
			r.shell = s
		}
	}
}

// WithEnviron sets the base environment handed to every hook.
func WithEnviron(environ []string) Option {
	return func(r *Runner) { r.environ = append([]string(nil), environ...) }
}

// WithOutput sets where hook stdout and stderr go. Defaults are the
// process's own streams.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(r *Runner) {
		r.stdout = stdout
		r.stderr = stderr
	}
}

// WithTimeout bounds a hook including its background descendants. Zero
// disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) { r.timeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logging.NewComponentLogger(logger, "hooks") }
}

// Runner fires hook scripts from a directory.
type Runner struct {
	dir     string
	shell   string
	environ []string
	stdout  io.Writer
	stderr  io.Writer
	timeout time.Duration
	poll    time.Duration
	logger  *slog.Logger
}

// New constructs a Runner for scripts in dir.
func New(dir string, opts ...Option) *Runner {
	r := &Runner{
		dir:    dir,
		shell:  "bash",
		stdout: os.Stdout,
		stderr: os.Stderr,
		poll:   defaultGroupPoll,
		logger: logging.NewComponentLogger(nil, "hooks"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dir returns the directory scripts are looked up in.
func (r *Runner) Dir() string { return r.dir }

// Lookup checks for the script bound to point. Only regular files count.
func (r *Runner) Lookup(point Point) (Script, bool) {
	path := filepath.Join(r.dir, point.ScriptName())
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return Script{}, false
	}
	return Script{Point: point, Path: path, Executable: info.Mode().Perm()&0o111 != 0}, true
}

// Discover lists every script currently present, in pipeline order.
func (r *Runner) Discover() []Script {
	var scripts []Script
	for _, p := range allPoints {
		if s, ok := r.Lookup(p); ok {
			scripts = append(scripts, s)
		}
	}
	return scripts
}

// Fire runs the script for point, if present, with vars added to the base
// environment. It blocks until the script and all of its descendants that
// stay in its process group have exited. A nonzero exit is returned as an
// error marked services.ErrHookFailure.
func (r *Runner) Fire(ctx context.Context, point Point, vars map[string]string) (Result, error) {
	result := Result{Point: point}
	script, ok := r.Lookup(point)
	if !ok {
		return result, nil
	}
	result.Path = script.Path
	result.Ran = true

	logger := logging.WithContext(ctx, r.logger).With(logging.String(logging.FieldHookPoint, string(point)))
	if err := enableSubreaper(); err != nil {
		logging.WarnWithContext(logger, "child subreaper unavailable", "hook_subreaper_unavailable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "orphaned hook jobs are awaited by polling"),
		)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	cmd, err := r.start(script, r.buildEnv(point, vars))
	if err != nil {
		result.ExitCode = -1
		return result, services.Wrap(services.ErrHookFailure, "hooks", string(point), "start", err)
	}
	logger.Debug("hook started", logging.String("path", script.Path), logging.Int("pgid", cmd.Process.Pid))

	type waited struct {
		err    error
		reaped int
	}
	done := make(chan waited, 1)
	go func() {
		err := cmd.Wait()
		done <- waited{err: err, reaped: reapGroup(cmd.Process.Pid, r.poll)}
	}()

	var w waited
	select {
	case w = <-done:
	case <-ctx.Done():
		result.TimedOut = true
		killGroup(cmd.Process.Pid)
		w = <-done
	}
	result.Duration = time.Since(start)
	result.Reaped = w.reaped
	result.ExitCode = exitCode(cmd, w.err)

	logger.Info("hook finished",
		logging.Int("exit_code", result.ExitCode),
		logging.Int("descendants_reaped", result.Reaped),
		logging.Duration("duration", result.Duration),
	)

	switch {
	case result.TimedOut:
		return result, services.Wrap(services.ErrHookFailure, "hooks", string(point), fmt.Sprintf("timed out after %s", r.timeout), ctx.Err())
	case result.ExitCode != 0:
		return result, services.Wrap(services.ErrHookFailure, "hooks", string(point), fmt.Sprintf("exit status %d", result.ExitCode), w.err)
	}
	return result, nil
}

func (r *Runner) start(script Script, env []string) (*exec.Cmd, error) {
	build := func(direct bool) *exec.Cmd {
		var cmd *exec.Cmd
		if direct {
			cmd = exec.Command(script.Path) //nolint:gosec
		} else {
			cmd = exec.Command(r.shell, script.Path) //nolint:gosec
		}
		cmd.Dir = r.dir
		cmd.Env = env
		cmd.Stdout = r.stdout
		cmd.Stderr = r.stderr
		cmd.SysProcAttr = groupAttr()
		return cmd
	}

	cmd := build(script.Executable)
	err := cmd.Start()
	if err != nil && script.Executable && errors.Is(err, syscall.ENOEXEC) {
		// Executable bit without a shebang.
		cmd = build(false)
		err = cmd.Start()
	}
	if err != nil {
		return nil, err
	}
	return cmd, nil
}

func (r *Runner) buildEnv(point Point, vars map[string]string) []string {
	env := make([]string, 0, len(r.environ)+len(vars)+1)
	override := make(map[string]struct{}, len(vars)+1)
	override["HOOK_POINT"] = struct{}{}
	for k := range vars {
		override[k] = struct{}{}
	}
	for _, kv := range r.environ {
		key, _, _ := strings.Cut(kv, "=")
		if _, ok := override[key]; ok {
			continue
		}
		env = append(env, kv)
	}
	env = append(env, "HOOK_POINT="+string(point))
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+vars[k])
	}
	return env
}

func exitCode(cmd *exec.Cmd, err error) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	if err != nil {
		return -1
	}
	return 0
}

