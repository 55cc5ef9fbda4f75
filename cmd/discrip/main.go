package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"discrip/internal/services"
)

func main() {
	os.Exit(execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return services.ExitOK
	}
	var reported *reportedError
	if !errors.As(err, &reported) && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
	}
	return services.ExitCode(err)
}

// reportedError marks an error whose message already reached stderr through
// the run reporter, so main only needs its exit code.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }

func (e *reportedError) Unwrap() error { return e.err }

func reported(err error) error {
	if err == nil {
		return nil
	}
	return &reportedError{err: err}
}
