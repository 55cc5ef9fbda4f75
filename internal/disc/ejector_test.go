package disc

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-eject")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestEjectorArgs(t *testing.T) {
	plain := NewEjector("").(*commandEjector)
	if diff := cmp.Diff([]string{"/dev/sr0"}, plain.Args("/dev/sr0")); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
	verbose := NewEjector("eject", WithVerbose(true)).(*commandEjector)
	if diff := cmp.Diff([]string{"--verbose", "/dev/cdrom"}, verbose.Args("/dev/cdrom")); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestEjectRunsCommandAndTraces(t *testing.T) {
	script := writeScript(t, "echo \"eject: device name is $2\"\n")
	var stdout bytes.Buffer
	var traced []string
	ejector := NewEjector(script,
		WithVerbose(true),
		WithOutput(&stdout, nil),
		WithTrace(func(argv []string) { traced = argv }),
	)
	if err := ejector.Eject(context.Background(), "/dev/sr0"); err != nil {
		t.Fatalf("Eject returned error: %v", err)
	}
	if !strings.Contains(stdout.String(), "eject: device name is /dev/sr0") {
		t.Fatalf("unexpected eject output %q", stdout.String())
	}
	if diff := cmp.Diff([]string{script, "--verbose", "/dev/sr0"}, traced); diff != "" {
		t.Fatalf("trace mismatch (-want +got):\n%s", diff)
	}
}

func TestEjectReportsFailure(t *testing.T) {
	script := writeScript(t, "exit 1\n")
	if err := NewEjector(script).Eject(context.Background(), "/dev/sr0"); err == nil {
		t.Fatal("expected eject failure")
	}
}
