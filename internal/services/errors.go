package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration  = errors.New("configuration error")
	ErrDeviceNotFound = errors.New("optical device not found")
	ErrDeviceInvalid  = errors.New("device is not block-special")
	ErrDeviceBusy     = errors.New("device busy")
	ErrDiscOpen       = errors.New("failed to open disc")
	ErrLowSpace       = errors.New("insufficient free space")
	ErrTitleFailure   = errors.New("title failure")
	ErrHookFailure    = errors.New("hook failure")
	ErrExternalTool   = errors.New("external tool error")
	ErrTimeout        = errors.New("timeout")
)

// Process exit codes. Zero is reserved for a fully successful run.
const (
	ExitOK           = 0
	ExitGeneric      = 1
	ExitConfig       = 2
	ExitDevice       = 3
	ExitDiscOpen     = 4
	ExitLowSpace     = 5
	ExitTitleFailure = 6
	ExitHookFailure  = 7
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later exit-code classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ExitCode maps an error to the process exit status reported to the caller.
// When an error carries several markers the earliest failure class wins.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrConfiguration):
		return ExitConfig
	case errors.Is(err, ErrDeviceNotFound), errors.Is(err, ErrDeviceInvalid), errors.Is(err, ErrDeviceBusy):
		return ExitDevice
	case errors.Is(err, ErrDiscOpen):
		return ExitDiscOpen
	case errors.Is(err, ErrLowSpace):
		return ExitLowSpace
	case errors.Is(err, ErrTitleFailure):
		return ExitTitleFailure
	case errors.Is(err, ErrHookFailure):
		return ExitHookFailure
	default:
		return ExitGeneric
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
