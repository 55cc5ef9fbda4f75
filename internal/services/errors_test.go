package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"discrip/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "ripping", "makemkvcon", "exited", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"ripping", "makemkvcon", "exited"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutDetail(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected default marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestExitCodeMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: services.ExitOK},
		{name: "config", err: services.Wrap(services.ErrConfiguration, "env", "UMASK", "bad", nil), want: services.ExitConfig},
		{name: "device missing", err: services.ErrDeviceNotFound, want: services.ExitDevice},
		{name: "device invalid", err: services.ErrDeviceInvalid, want: services.ExitDevice},
		{name: "device busy", err: services.ErrDeviceBusy, want: services.ExitDevice},
		{name: "disc open", err: services.Wrap(services.ErrDiscOpen, "scanning", "info", "", nil), want: services.ExitDiscOpen},
		{name: "low space", err: services.ErrLowSpace, want: services.ExitLowSpace},
		{name: "title", err: services.ErrTitleFailure, want: services.ExitTitleFailure},
		{name: "hook", err: services.ErrHookFailure, want: services.ExitHookFailure},
		{name: "unclassified", err: errors.New("io"), want: services.ExitGeneric},
		{name: "title beats hook", err: errors.Join(services.ErrHookFailure, services.ErrTitleFailure), want: services.ExitTitleFailure},
		{name: "wrapped twice", err: fmt.Errorf("outer: %w", services.ErrLowSpace), want: services.ExitLowSpace},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.ExitCode(tc.err); got != tc.want {
				t.Fatalf("ExitCode(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}
