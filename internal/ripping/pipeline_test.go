package ripping_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"discrip/internal/config"
	"discrip/internal/hooks"
	"discrip/internal/ripping"
	"discrip/internal/services"
	"discrip/internal/services/makemkv"
)

type firedHook struct {
	Point hooks.Point
	Vars  map[string]string
}

type recordingHooks struct {
	mu    sync.Mutex
	fired []firedHook
	fail  map[hooks.Point]bool
}

func (h *recordingHooks) Fire(_ context.Context, point hooks.Point, vars map[string]string) (hooks.Result, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	copied := make(map[string]string, len(vars))
	for k, v := range vars {
		copied[k] = v
	}
	h.fired = append(h.fired, firedHook{Point: point, Vars: copied})
	if h.fail[point] {
		return hooks.Result{Point: point, Ran: true, ExitCode: 1},
			services.Wrap(services.ErrHookFailure, "hooks", string(point), "exit status 1", nil)
	}
	return hooks.Result{Point: point, Ran: true}, nil
}

func (h *recordingHooks) points() []hooks.Point {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]hooks.Point, 0, len(h.fired))
	for _, f := range h.fired {
		out = append(out, f.Point)
	}
	return out
}

func (h *recordingHooks) varsFor(point hooks.Point) []map[string]string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []map[string]string
	for _, f := range h.fired {
		if f.Point == point {
			out = append(out, f.Vars)
		}
	}
	return out
}

type stubEjector struct {
	calls []string
	err   error
}

func (s *stubEjector) Eject(_ context.Context, device string) error {
	s.calls = append(s.calls, device)
	return s.err
}

type fakeProcess struct {
	lines      chan makemkv.Line
	waitErr    error
	terminated bool
	once       sync.Once
	hold       bool
}

func (p *fakeProcess) Lines() <-chan makemkv.Line { return p.lines }
func (p *fakeProcess) Wait() error                { return p.waitErr }
func (p *fakeProcess) Pid() int                   { return 1234 }
func (p *fakeProcess) Terminate() error {
	p.once.Do(func() {
		p.terminated = true
		if p.hold {
			close(p.lines)
		}
	})
	return nil
}

type stubRipper struct {
	info      makemkv.DiscInfo
	infoLines []string
	infoErr   error
	ripLines  []string
	files     []string
	waitErr   error
	hold      bool
	started   int
	proc      *fakeProcess
}

func (s *stubRipper) Info(_ context.Context, _ string, onEvent func(makemkv.Line, makemkv.Event)) (makemkv.DiscInfo, error) {
	c := makemkv.NewClassifier(nil)
	for _, l := range s.infoLines {
		line := makemkv.Line{Text: l}
		if onEvent != nil {
			onEvent(line, c.Classify(l))
		}
	}
	return s.info, s.infoErr
}

func (s *stubRipper) StartRip(_ context.Context, _ string, dir string) (makemkv.Process, error) {
	s.started++
	for _, name := range s.files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("matroska"), 0o600); err != nil {
			return nil, err
		}
	}
	ch := make(chan makemkv.Line, len(s.ripLines)+1)
	for _, l := range s.ripLines {
		ch <- makemkv.Line{Text: l}
	}
	if !s.hold {
		close(ch)
	}
	s.proc = &fakeProcess{lines: ch, waitErr: s.waitErr, hold: s.hold}
	return s.proc, nil
}

func sampleRipper() *stubRipper {
	return &stubRipper{
		info: makemkv.DiscInfo{
			Label:      "Sample Disc",
			TitleCount: 2,
			Titles: []makemkv.TitleInfo{
				{Index: 0, OutputName: "Sample_Disc_t00.mkv"},
				{Index: 1, OutputName: "Sample_Disc_t01.mkv"},
			},
		},
		infoLines: []string{`PRGT:5018,0,"Scanning CD-ROM devices"`},
		ripLines: []string{
			`PRGT:5018,0,"Saving to MKV file"`,
			`PRGV:0,65536,65536`,
			`MSG:5036,0,1,"Copy complete. 2 titles saved.","Copy complete. %1 titles saved.","2"`,
		},
		files: []string{"Sample_Disc_t00.mkv", "Sample_Disc_t01.mkv"},
	}
}

type harness struct {
	cfg      config.RunConfig
	hooks    *recordingHooks
	ejector  *stubEjector
	stdout   *bytes.Buffer
	stderr   *bytes.Buffer
	pipeline *ripping.Pipeline
}

func newHarness(t *testing.T, env []string, ripper ripping.Ripper, opts ...ripping.Option) *harness {
	t.Helper()
	settings := config.Default()
	settings.Paths.OutputDir = filepath.Join(t.TempDir(), "output")
	settings.Paths.HookDir = t.TempDir()
	environ := append([]string{
		"MKV_UID=" + strconv.Itoa(os.Getuid()),
		"MKV_GID=" + strconv.Itoa(os.Getgid()),
	}, env...)
	rc, err := config.Resolve(config.Inputs{Environ: environ, Settings: &settings})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return newHarnessWithConfig(t, rc.WithDevice("/dev/sr0"), ripper, opts...)
}

func newHarnessWithConfig(t *testing.T, rc config.RunConfig, ripper ripping.Ripper, opts ...ripping.Option) *harness {
	t.Helper()
	h := &harness{
		cfg:     rc,
		hooks:   &recordingHooks{fail: map[hooks.Point]bool{}},
		ejector: &stubEjector{},
		stdout:  &bytes.Buffer{},
		stderr:  &bytes.Buffer{},
	}
	base := []ripping.Option{
		ripping.WithReporter(ripping.NewReporter(h.stdout, h.stderr, rc.Debug)),
		ripping.WithHooks(h.hooks),
		ripping.WithEjector(h.ejector),
		ripping.WithFreeSpace(func(string) (uint64, error) { return 1 << 40, nil }),
		ripping.WithTitleWatcher(nil),
		ripping.WithLabelReader(nil),
		ripping.WithDriveProbe(nil),
		ripping.WithRunID("run-1"),
	}
	h.pipeline = ripping.NewPipeline(rc, ripper, append(base, opts...)...)
	return h
}

func TestPipelineSuccess(t *testing.T) {
	ripper := sampleRipper()
	h := newHarness(t, nil, ripper)

	res := h.pipeline.Run(context.Background())
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.ExitCode() != 0 || res.Outcome != ripping.OutcomeSuccess {
		t.Fatalf("exit=%d outcome=%v", res.ExitCode(), res.Outcome)
	}

	wantPoints := []hooks.Point{
		hooks.PostEnv, hooks.PrePrepare, hooks.PostPrepare, hooks.PreRip,
		hooks.PostTitle, hooks.PostTitle, hooks.PostRip,
		hooks.PreSuccessEject, hooks.PostSuccessEject, hooks.End,
	}
	if diff := cmp.Diff(wantPoints, h.hooks.points()); diff != "" {
		t.Fatalf("hook order mismatch (-want +got):\n%s", diff)
	}
	wantStates := []ripping.State{
		ripping.StateInit, ripping.StateScanning, ripping.StatePreparing,
		ripping.StateRipping, ripping.StateFinalizing, ripping.StateDone,
	}
	if diff := cmp.Diff(wantStates, res.States); diff != "" {
		t.Fatalf("state mismatch (-want +got):\n%s", diff)
	}

	runDir := filepath.Join(h.cfg.OutputRoot, "Sample_Disc_01")
	if res.OutputDir != runDir {
		t.Fatalf("output dir = %s, want %s", res.OutputDir, runDir)
	}
	entries, err := os.ReadDir(runDir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	if diff := cmp.Diff([]string{"title00.mkv", "title01.mkv"}, names); diff != "" {
		t.Fatalf("output files mismatch (-want +got):\n%s", diff)
	}
	assertMode(t, runDir, 0o755)
	assertMode(t, filepath.Join(runDir, "title00.mkv"), 0o644)

	titleVars := h.hooks.varsFor(hooks.PostTitle)
	if got := titleVars[0]["TITLE_PATH"]; got != filepath.Join(runDir, "title00.mkv") {
		t.Fatalf("TITLE_PATH = %q", got)
	}
	if got := titleVars[1]["TITLE_INDEX"]; got != "1" {
		t.Fatalf("TITLE_INDEX = %q", got)
	}
	if got := titleVars[0]["RUN_ID"]; got != "run-1" {
		t.Fatalf("RUN_ID = %q", got)
	}

	if diff := cmp.Diff([]string{"/dev/sr0"}, h.ejector.calls); diff != "" {
		t.Fatalf("eject calls mismatch (-want +got):\n%s", diff)
	}
	stdout := h.stdout.String()
	for _, want := range []string{"Current operation: Scanning CD-ROM devices", "Current operation: Saving to MKV file", "Ejecting...", "Done after 00:00:"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("stdout missing %q:\n%s", want, stdout)
		}
	}
	if h.stderr.Len() != 0 {
		t.Fatalf("unexpected stderr: %s", h.stderr.String())
	}
}

func TestPipelineDiscOpenFailure(t *testing.T) {
	ripper := &stubRipper{
		infoLines: []string{`MSG:5010,0,0,"Failed to open disc","Failed to open disc"`},
		infoErr:   services.Wrap(services.ErrDiscOpen, "makemkv", "info", "Failed to open disc", nil),
	}
	h := newHarness(t, nil, ripper)

	res := h.pipeline.Run(context.Background())
	if res.ExitCode() != services.ExitDiscOpen {
		t.Fatalf("exit = %d, want %d (err=%v)", res.ExitCode(), services.ExitDiscOpen, res.Err)
	}
	want := []hooks.Point{hooks.PostEnv, hooks.PreOnErr, hooks.PreOnErrTouch, hooks.PostOnErrTouch, hooks.PostOnErr}
	if diff := cmp.Diff(want, h.hooks.points()); diff != "" {
		t.Fatalf("hook order mismatch (-want +got):\n%s", diff)
	}
	if ripper.started != 0 {
		t.Fatal("rip must not start after a disc open failure")
	}
	if len(h.ejector.calls) != 0 {
		t.Fatal("failed run must not eject without FAILED_EJECT")
	}
	if entries, err := os.ReadDir(h.cfg.OutputRoot); err == nil && len(entries) > 0 {
		t.Fatalf("expected no output, found %d entries", len(entries))
	}
	if !strings.Contains(h.stdout.String(), "Failed to open disc") {
		t.Fatalf("stdout missing disc open marker:\n%s", h.stdout.String())
	}
	if !strings.Contains(h.stderr.String(), "Failed to open disc") {
		t.Fatalf("stderr missing disc open marker:\n%s", h.stderr.String())
	}
	if res.State() != ripping.StateFailed {
		t.Fatalf("state = %s", res.State())
	}
}

func TestPipelineLowSpaceBeforeRip(t *testing.T) {
	ripper := sampleRipper()
	h := newHarness(t, []string{"FAILED_EJECT=true"}, ripper,
		ripping.WithFreeSpace(func(string) (uint64, error) { return 5 << 20, nil }),
	)

	res := h.pipeline.Run(context.Background())
	if res.ExitCode() != services.ExitLowSpace {
		t.Fatalf("exit = %d, want %d (err=%v)", res.ExitCode(), services.ExitLowSpace, res.Err)
	}
	if ripper.started != 0 {
		t.Fatal("rip must be bypassed on low space")
	}
	want := []hooks.Point{
		hooks.PostEnv, hooks.PrePrepare,
		hooks.PreOnErr, hooks.PreOnErrTouch, hooks.PostOnErrTouch, hooks.PostOnErr,
		hooks.PreFailedEject, hooks.PostFailedEject,
	}
	if diff := cmp.Diff(want, h.hooks.points()); diff != "" {
		t.Fatalf("hook order mismatch (-want +got):\n%s", diff)
	}
	if got := strings.Count(h.stderr.String(), "Terminating MakeMKV due to low disk space."); got != 1 {
		t.Fatalf("low space message printed %d times:\n%s", got, h.stderr.String())
	}
	if _, err := os.Stat(filepath.Join(h.cfg.OutputRoot, "Sample_Disc_01", ripping.FailedSentinel)); err != nil {
		t.Fatalf("expected failed sentinel: %v", err)
	}
	if !strings.Contains(h.stdout.String(), "Ejecting due to failure...") {
		t.Fatalf("stdout missing failure eject line:\n%s", h.stdout.String())
	}
}

func TestPipelineLowSpaceDuringRip(t *testing.T) {
	ripper := sampleRipper()
	ripper.hold = true
	ripper.files = []string{"Sample_Disc_t00.mkv"}
	ripper.waitErr = errors.New("signal: terminated")

	var mu sync.Mutex
	calls := 0
	free := func(string) (uint64, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			return 1 << 40, nil
		}
		return 1 << 20, nil
	}

	settings := config.Default()
	settings.Paths.OutputDir = filepath.Join(t.TempDir(), "output")
	settings.Paths.HookDir = t.TempDir()
	settings.Ripping.SpaceCheckInterval = 1
	rc, err := config.Resolve(config.Inputs{
		Environ:  []string{"MKV_UID=" + strconv.Itoa(os.Getuid()), "MKV_GID=" + strconv.Itoa(os.Getgid())},
		Settings: &settings,
	})
	if err != nil {
		t.Fatal(err)
	}
	h := newHarnessWithConfig(t, rc.WithDevice("/dev/sr0"), ripper, ripping.WithFreeSpace(free))

	res := h.pipeline.Run(context.Background())
	if res.ExitCode() != services.ExitLowSpace {
		t.Fatalf("exit = %d, want %d (err=%v)", res.ExitCode(), services.ExitLowSpace, res.Err)
	}
	if !ripper.proc.terminated {
		t.Fatal("expected makemkvcon to be terminated")
	}
	if !strings.Contains(h.stderr.String(), "Terminating MakeMKV due to low disk space.") {
		t.Fatalf("stderr missing low space message:\n%s", h.stderr.String())
	}
	matches, _ := filepath.Glob(filepath.Join(res.OutputDir, "*.mkv"))
	if len(matches) != 0 {
		t.Fatalf("partial titles left behind: %v", matches)
	}
	points := h.hooks.points()
	if !containsPoint(points, hooks.PostRip) || containsPoint(points, hooks.End) {
		t.Fatalf("unexpected hooks: %v", points)
	}
}

func TestPipelineTitleFailure(t *testing.T) {
	ripper := sampleRipper()
	ripper.files = []string{"Sample_Disc_t00.mkv"}
	ripper.ripLines = []string{
		`MSG:5003,0,2,"Failed to save title 1 to file Sample_Disc_t01.mkv","Failed to save title %1 to file %2","1","Sample_Disc_t01.mkv"`,
		`MSG:5004,0,2,"1 titles saved, 1 failed.","%1 titles saved, %2 failed.","1","1"`,
	}
	h := newHarness(t, nil, ripper)

	res := h.pipeline.Run(context.Background())
	if res.ExitCode() != services.ExitTitleFailure {
		t.Fatalf("exit = %d, want %d (err=%v)", res.ExitCode(), services.ExitTitleFailure, res.Err)
	}
	if res.Outcome != ripping.OutcomePartialFailure {
		t.Fatalf("outcome = %v", res.Outcome)
	}
	want := []hooks.Point{
		hooks.PostEnv, hooks.PrePrepare, hooks.PostPrepare, hooks.PreRip,
		hooks.PostTitle, hooks.PostTitle, hooks.PostRip,
		hooks.PreOnErr, hooks.PreOnErrTouch, hooks.PostOnErrTouch, hooks.PostOnErr,
	}
	if diff := cmp.Diff(want, h.hooks.points()); diff != "" {
		t.Fatalf("hook order mismatch (-want +got):\n%s", diff)
	}
	titleVars := h.hooks.varsFor(hooks.PostTitle)
	if titleVars[0]["TITLE_STATUS"] != "success" || titleVars[1]["TITLE_STATUS"] != "failed" {
		t.Fatalf("unexpected title statuses: %v / %v", titleVars[0], titleVars[1])
	}
	if res.TitlesOK() != 1 || res.TitlesFailed() != 1 {
		t.Fatalf("titles ok=%d failed=%d", res.TitlesOK(), res.TitlesFailed())
	}
	if !strings.Contains(h.stderr.String(), "ERROR: One or more titles failed.") {
		t.Fatalf("stderr missing title failure line:\n%s", h.stderr.String())
	}
	if len(h.ejector.calls) != 0 {
		t.Fatal("failed run must not eject without FAILED_EJECT")
	}
}

func TestPipelineCriticalHookFailure(t *testing.T) {
	tests := []struct {
		name       string
		point      hooks.Point
		wantEject  bool
		wantOnErr  bool
		wantEndHit bool
	}{
		{name: "post-title", point: hooks.PostTitle, wantOnErr: true},
		{name: "post-rip", point: hooks.PostRip, wantOnErr: true},
		{name: "end", point: hooks.End, wantEject: true, wantEndHit: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil, sampleRipper())
			h.hooks.fail[tt.point] = true

			res := h.pipeline.Run(context.Background())
			if res.ExitCode() != services.ExitHookFailure {
				t.Fatalf("exit = %d, want %d (err=%v)", res.ExitCode(), services.ExitHookFailure, res.Err)
			}
			points := h.hooks.points()
			if got := containsPoint(points, hooks.PreOnErr); got != tt.wantOnErr {
				t.Fatalf("pre-on-err fired=%v, want %v: %v", got, tt.wantOnErr, points)
			}
			if got := containsPoint(points, hooks.End); got != tt.wantEndHit {
				t.Fatalf("end fired=%v, want %v: %v", got, tt.wantEndHit, points)
			}
			if got := len(h.ejector.calls) == 1; got != tt.wantEject {
				t.Fatalf("ejected=%v, want %v", got, tt.wantEject)
			}
			if len(res.HookFailures) == 0 || res.HookFailures[0].Point != tt.point {
				t.Fatalf("hook failures = %v", res.HookFailures)
			}
		})
	}
}

func TestPipelineNonCriticalHookFailureContinues(t *testing.T) {
	h := newHarness(t, nil, sampleRipper())
	h.hooks.fail[hooks.PrePrepare] = true
	h.hooks.fail[hooks.PreSuccessEject] = true

	res := h.pipeline.Run(context.Background())
	if res.Err != nil {
		t.Fatalf("non-critical hook failures must not fail the run: %v", res.Err)
	}
	if len(res.HookFailures) != 2 {
		t.Fatalf("hook failures = %v", res.HookFailures)
	}
}

func TestPipelineEjectBranches(t *testing.T) {
	discOpen := func() *stubRipper {
		return &stubRipper{infoErr: services.Wrap(services.ErrDiscOpen, "makemkv", "info", "Failed to open disc", nil)}
	}
	tests := []struct {
		name       string
		env        []string
		ripper     *stubRipper
		wantPoints []hooks.Point
		wantEject  bool
		sentinel   bool
	}{
		{
			name:       "no eject on success",
			env:        []string{"NO_EJECT=true"},
			ripper:     sampleRipper(),
			wantPoints: nil,
		},
		{
			name:       "failure without failed eject",
			ripper:     discOpen(),
			wantPoints: nil,
		},
		{
			name:       "failure with failed eject",
			env:        []string{"FAILED_EJECT=true"},
			ripper:     discOpen(),
			wantPoints: []hooks.Point{hooks.PreFailedEject, hooks.PostFailedEject},
			wantEject:  true,
			sentinel:   true,
		},
		{
			name:       "no eject wins over failed eject",
			env:        []string{"NO_EJECT=true", "FAILED_EJECT=true"},
			ripper:     discOpen(),
			wantPoints: nil,
			sentinel:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.env, tt.ripper)
			res := h.pipeline.Run(context.Background())

			var ejectPoints []hooks.Point
			for _, p := range h.hooks.points() {
				switch p {
				case hooks.PreSuccessEject, hooks.PostSuccessEject, hooks.PreFailedEject, hooks.PostFailedEject:
					ejectPoints = append(ejectPoints, p)
				}
			}
			if diff := cmp.Diff(tt.wantPoints, ejectPoints); diff != "" {
				t.Fatalf("eject hooks mismatch (-want +got):\n%s", diff)
			}
			if got := len(h.ejector.calls) > 0; got != tt.wantEject {
				t.Fatalf("ejected=%v, want %v", got, tt.wantEject)
			}
			if res.Ejected != tt.wantEject {
				t.Fatalf("Result.Ejected=%v, want %v", res.Ejected, tt.wantEject)
			}
			sentinel := filepath.Join(h.cfg.OutputRoot, ripping.UnknownLabel+"_01", ripping.FailedSentinel)
			if _, err := os.Stat(sentinel); (err == nil) != tt.sentinel {
				t.Fatalf("sentinel present=%v, want %v", err == nil, tt.sentinel)
			}
		})
	}
}

func TestPipelineFallsBackToLsblkLabel(t *testing.T) {
	ripper := sampleRipper()
	ripper.info.Label = ""
	h := newHarness(t, nil, ripper, ripping.WithLabelReader(func(context.Context, string) (string, error) {
		return "BLURAY_2017", nil
	}))
	res := h.pipeline.Run(context.Background())
	if res.Label != "BLURAY_2017" {
		t.Fatalf("label = %q", res.Label)
	}
	if filepath.Base(res.OutputDir) != "BLURAY_2017_01" {
		t.Fatalf("output dir = %s", res.OutputDir)
	}
}

func TestPipelineSecondRunGetsNextSuffix(t *testing.T) {
	h := newHarness(t, nil, sampleRipper())
	first := h.pipeline.Run(context.Background())
	second := ripping.NewPipeline(h.cfg, sampleRipper(),
		ripping.WithReporter(ripping.NewReporter(nil, nil, false)),
		ripping.WithTitleWatcher(nil),
		ripping.WithDriveProbe(nil),
		ripping.WithFreeSpace(func(string) (uint64, error) { return 1 << 40, nil }),
		ripping.WithEjector(&stubEjector{}),
	).Run(context.Background())
	if second.Err != nil {
		t.Fatalf("second run: %v", second.Err)
	}
	if filepath.Base(first.OutputDir) != "Sample_Disc_01" || filepath.Base(second.OutputDir) != "Sample_Disc_02" {
		t.Fatalf("dirs = %s, %s", first.OutputDir, second.OutputDir)
	}
	if first.RunID == second.RunID {
		t.Fatal("expected distinct run ids")
	}
}

func containsPoint(points []hooks.Point, want hooks.Point) bool {
	for _, p := range points {
		if p == want {
			return true
		}
	}
	return false
}

func assertMode(t *testing.T, path string, want os.FileMode) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := info.Mode().Perm(); got != want {
		t.Fatalf("%s mode = %s, want %s", path, fmt.Sprintf("%#o", got), fmt.Sprintf("%#o", want))
	}
}
