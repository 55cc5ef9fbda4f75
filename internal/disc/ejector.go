package disc

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Ejector defines disc eject operations.
type Ejector interface {
	Eject(ctx context.Context, device string) error
}

// EjectorOption configures the command ejector.
type EjectorOption func(*commandEjector)

// WithVerbose passes --verbose to eject.
func WithVerbose(verbose bool) EjectorOption {
	return func(e *commandEjector) { e.verbose = verbose }
}

// WithOutput routes eject's own output; nil discards it.
func WithOutput(stdout, stderr io.Writer) EjectorOption {
	return func(e *commandEjector) {
		e.stdout = stdout
		e.stderr = stderr
	}
}

// WithTrace registers a callback that receives the command line before it runs.
func WithTrace(trace func(argv []string)) EjectorOption {
	return func(e *commandEjector) { e.trace = trace }
}

type commandEjector struct {
	binary  string
	verbose bool
	stdout  io.Writer
	stderr  io.Writer
	trace   func([]string)
}

// NewEjector creates an ejector that shells out to the eject utility.
func NewEjector(binary string, opts ...EjectorOption) Ejector {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "eject"
	}
	e := &commandEjector{binary: binary}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Args returns the eject argument list for device.
func (e *commandEjector) Args(device string) []string {
	var args []string
	if e.verbose {
		args = append(args, "--verbose")
	}
	if device != "" {
		args = append(args, device)
	}
	return args
}

func (e *commandEjector) Eject(ctx context.Context, device string) error {
	args := e.Args(device)
	if e.trace != nil {
		e.trace(append([]string{e.binary}, args...))
	}
	cmd := exec.CommandContext(ctx, e.binary, args...) //nolint:gosec
	cmd.Stdout = e.stdout
	cmd.Stderr = e.stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("eject %s: %w", device, err)
	}
	return nil
}
