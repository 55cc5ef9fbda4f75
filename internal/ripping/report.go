package ripping

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const (
	msgLowSpace     = "Terminating MakeMKV due to low disk space."
	msgTitlesFailed = "ERROR: One or more titles failed."
	msgDiscOpen     = "ERROR: Failed to open disc."
)

// Reporter writes the plain-text progress contract. Progress goes to stdout,
// errors and trace markers to stderr. It is safe for concurrent use.
type Reporter struct {
	mu     sync.Mutex
	stdout io.Writer
	stderr io.Writer
	debug  bool
}

// NewReporter builds a Reporter. debug enables "+ cmd" trace markers.
func NewReporter(stdout, stderr io.Writer, debug bool) *Reporter {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	return &Reporter{stdout: stdout, stderr: stderr, debug: debug}
}

// Stdout is where child processes should write their own output.
func (r *Reporter) Stdout() io.Writer { return r.stdout }

// Stderr is where child processes should write their own diagnostics.
func (r *Reporter) Stderr() io.Writer { return r.stderr }

// Debug reports whether trace output is enabled.
func (r *Reporter) Debug() bool { return r.debug }

// Progress prints one progress line to stdout.
func (r *Reporter) Progress(line string) {
	r.println(r.stdout, line)
}

// Errorf prints one formatted error line to stderr.
func (r *Reporter) Errorf(format string, args ...any) {
	r.println(r.stderr, fmt.Sprintf(format, args...))
}

// Trace prints a shell-style "+ argv" marker to stderr in debug mode.
func (r *Reporter) Trace(argv []string) {
	if !r.debug || len(argv) == 0 {
		return
	}
	r.println(r.stderr, "+ "+shellJoin(argv))
}

// Environment dumps environ in debug mode: the "+ env" marker on stderr and
// the variables on stdout.
func (r *Reporter) Environment(environ []string) {
	if !r.debug {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.stderr, "+ env")
	for _, kv := range environ {
		fmt.Fprintln(r.stdout, kv)
	}
}

// Ejecting announces an eject.
func (r *Reporter) Ejecting(failure bool) {
	if failure {
		r.Progress("Ejecting due to failure...")
		return
	}
	r.Progress("Ejecting...")
}

// Done prints the elapsed run time as HH:MM:SS.
func (r *Reporter) Done(elapsed time.Duration) {
	r.Progress("Done after " + FormatElapsed(elapsed))
}

// Titles renders a per-title summary table to stdout.
func (r *Reporter) Titles(titles []TitleResult) {
	if len(titles) == 0 {
		return
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "File", "Size", "Status"})
	for _, t := range titles {
		status := "ok"
		if !t.Success {
			status = "failed"
		}
		size := "-"
		if t.SizeBytes >= 0 {
			size = formatBytes(t.SizeBytes)
		}
		tw.AppendRow(table.Row{t.Index, displayPath(t.Path), size, status})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})
	r.println(r.stdout, tw.Render())
}

func (r *Reporter) println(w io.Writer, line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(w, line)
}

// FormatElapsed renders d as HH:MM:SS, truncating sub-second precision.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}

func shellJoin(argv []string) string {
	parts := make([]string, len(argv))
	for i, a := range argv {
		parts[i] = shellQuote(a)
	}
	return strings.Join(parts, " ")
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.ContainsAny(s, " \t\n'\"\\$`!*?[]{}()<>|&;#~") {
		return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
	}
	return s
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return strconv.FormatInt(n, 10) + " B"
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func displayPath(path string) string {
	if path == "" {
		return "-"
	}
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
