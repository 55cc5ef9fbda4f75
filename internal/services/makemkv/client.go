package makemkv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"discrip/internal/logging"
	"discrip/internal/services"
)

// ProgressUpdate captures a PRGV progress sample.
type ProgressUpdate struct {
	Current float64
	Total   float64
	Max     float64
	Percent float64
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithDirectIO toggles the --directio flag passed to makemkvcon mkv.
func WithDirectIO(enabled bool) Option {
	return func(c *Client) { c.directIO = enabled }
}

// WithProfile sets a MakeMKV profile file passed via --profile.
func WithProfile(path string) Option {
	return func(c *Client) { c.profile = strings.TrimSpace(path) }
}

// WithExtraArgs appends arguments ahead of the mkv source specification.
func WithExtraArgs(args ...string) Option {
	return func(c *Client) {
		c.extraArgs = append([]string(nil), args...)
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTrace registers a callback that receives each command line before it
// runs. Debug mode uses it to echo commands.
func WithTrace(fn func(argv []string)) Option {
	return func(c *Client) { c.trace = fn }
}

// Client wraps makemkvcon interactions.
type Client struct {
	binary    string
	exec      Executor
	directIO  bool
	profile   string
	extraArgs []string
	logger    *slog.Logger
	trace     func([]string)
}

// New constructs a MakeMKV client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("makemkv binary required")
	}
	client := &Client{
		binary:   binary,
		exec:     commandExecutor{},
		directIO: true,
	}
	for _, opt := range opts {
		opt(client)
	}
	client.logger = logging.NewComponentLogger(client.logger, "makemkv")
	return client, nil
}

// Binary returns the configured makemkvcon path.
func (c *Client) Binary() string { return c.binary }

// InfoArgs returns the argument list for a disc info scan.
func (c *Client) InfoArgs(device string) []string {
	return []string{"info", "--robot", "--cache=1", "--progress=-same", "dev:" + device}
}

// RipArgs returns the argument list for ripping every title on device into dir.
func (c *Client) RipArgs(device, dir string) []string {
	args := []string{"mkv", "--robot", "--progress=-same"}
	if c.profile != "" {
		args = append(args, "--profile="+c.profile)
	}
	args = append(args, c.extraArgs...)
	args = append(args, "--directio", strconv.FormatBool(c.directIO), "dev:"+device, "all", dir)
	return args
}

// Info scans the disc in device. onEvent, when non-nil, receives every
// classified line. A disc MakeMKV cannot open, or one with no titles, yields
// an error tagged services.ErrDiscOpen.
func (c *Client) Info(ctx context.Context, device string, onEvent func(Line, Event)) (DiscInfo, error) {
	args := c.InfoArgs(device)
	proc, err := c.start(ctx, args)
	if err != nil {
		return DiscInfo{}, err
	}

	classifier := NewClassifier(c.logger)
	collector := newInfoCollector()
	for line := range proc.Lines() {
		ev := classifier.Classify(line.Text)
		if ev.Kind == EventData {
			collector.add(strings.TrimSpace(line.Text))
		}
		if onEvent != nil {
			onEvent(line, ev)
		}
	}
	waitErr := proc.Wait()
	info := collector.result()
	summary := classifier.Summary()

	switch {
	case summary.Fatal != nil:
		return info, services.Wrap(services.ErrExternalTool, "makemkv", "info", "MakeMKV refused to run", summary.Fatal)
	case summary.DiscOpenFailed, info.TitleCount == 0:
		return info, services.Wrap(services.ErrDiscOpen, "makemkv", "info", "Failed to open disc", waitErr)
	case waitErr != nil:
		return info, services.Wrap(services.ErrExternalTool, "makemkv", "info", "makemkvcon info failed", waitErr)
	}
	c.logger.Info("makemkv disc scanned",
		logging.String(logging.FieldEventType, "makemkv_info_complete"),
		logging.String("disc_label", info.BestLabel()),
		logging.Int("title_count", info.TitleCount),
	)
	return info, nil
}

// StartRip launches makemkvcon mkv for all titles on device, writing into dir.
// The caller drains Lines, classifies them, and calls Wait.
func (c *Client) StartRip(ctx context.Context, device, dir string) (Process, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("destination directory required")
	}
	return c.start(ctx, c.RipArgs(device, dir))
}

func (c *Client) start(ctx context.Context, args []string) (Process, error) {
	if c.trace != nil {
		c.trace(append([]string{c.binary}, args...))
	}
	c.logger.Debug("starting makemkvcon",
		logging.String("binary", c.binary),
		logging.String("args", strings.Join(args, " ")),
	)
	proc, err := c.exec.Start(ctx, c.binary, args)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "makemkv", args[0], fmt.Sprintf("start %s", c.binary), err)
	}
	return proc, nil
}

// ParseProgress decodes a PRGV:current,total,max line.
func ParseProgress(line string) (ProgressUpdate, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "PRGV:") {
		return ProgressUpdate{}, false
	}
	parts := strings.Split(strings.TrimPrefix(line, "PRGV:"), ",")
	if len(parts) < 3 {
		return ProgressUpdate{}, false
	}
	current, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return ProgressUpdate{}, false
	}
	total, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return ProgressUpdate{}, false
	}
	maximum, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	if err != nil || maximum <= 0 {
		return ProgressUpdate{}, false
	}
	return ProgressUpdate{
		Current: current,
		Total:   total,
		Max:     maximum,
		Percent: (total / maximum) * 100,
	}, true
}
