package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pilebones/go-udev/netlink"

	"discrip/internal/disc"
)

type fakeSource struct {
	queue   chan netlink.UEvent
	errs    chan error
	matcher netlink.Matcher
	ready   chan struct{}
	quit    chan struct{}

	mu     sync.Mutex
	closed bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{ready: make(chan struct{})}
}

func (f *fakeSource) Monitor(queue chan netlink.UEvent, errs chan error, matcher netlink.Matcher) chan struct{} {
	f.queue, f.errs, f.matcher = queue, errs, matcher
	f.quit = make(chan struct{})
	close(f.ready)
	return f.quit
}

func (f *fakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// send delivers uevent the way go-udev does: only when the matcher accepts it.
func (f *fakeSource) send(t *testing.T, uevent netlink.UEvent) {
	t.Helper()
	<-f.ready
	if !f.matcher.Evaluate(uevent) {
		return
	}
	select {
	case f.queue <- uevent:
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not accept event")
	}
}

func mediaEvent(devname string) netlink.UEvent {
	return netlink.UEvent{
		Action: netlink.CHANGE,
		Env: map[string]string{
			"SUBSYSTEM":      "block",
			"ID_CDROM":       "1",
			"ID_CDROM_MEDIA": "1",
			"DEVNAME":        devname,
		},
	}
}

func newTestMonitor(t *testing.T, device string, src *fakeSource, opts ...Option) *Monitor {
	t.Helper()
	m, err := New(device, append([]Option{WithCooldown(0)}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.connect = func() (eventSource, error) { return src, nil }
	return m
}

func TestNewRequiresDevice(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Fatal("expected error for empty device")
	}
}

func TestBuildMatcher(t *testing.T) {
	matcher := buildMatcher()
	tests := []struct {
		name  string
		event netlink.UEvent
		want  bool
	}{
		{"change with media", mediaEvent("/dev/sr0"), true},
		{"add with media", netlink.UEvent{Action: netlink.ADD, Env: mediaEvent("/dev/sr0").Env}, true},
		{"remove", netlink.UEvent{Action: netlink.REMOVE, Env: mediaEvent("/dev/sr0").Env}, false},
		{"no media", netlink.UEvent{Action: netlink.CHANGE, Env: map[string]string{
			"SUBSYSTEM": "block",
			"ID_CDROM":  "1",
		}}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := matcher.Evaluate(tc.event); got != tc.want {
				t.Fatalf("Evaluate = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestExtractDeviceName(t *testing.T) {
	tests := []struct {
		env  map[string]string
		want string
	}{
		{map[string]string{"DEVNAME": "/dev/sr0"}, "/dev/sr0"},
		{map[string]string{"DEVNAME": "sr1"}, "/dev/sr1"},
		{map[string]string{"DEVPATH": "/devices/pci0000:00/ata1/host0/target0:0:0/0:0:0:0/block/sr0"}, "/dev/sr0"},
		{map[string]string{}, ""},
	}
	for _, tc := range tests {
		if got := extractDeviceName(netlink.UEvent{Env: tc.env}); got != tc.want {
			t.Fatalf("extractDeviceName(%v) = %q, want %q", tc.env, got, tc.want)
		}
	}
}

func TestRunInvokesHandlerForConfiguredDevice(t *testing.T) {
	src := newFakeSource()
	m := newTestMonitor(t, "/dev/sr0", src, WithReadiness(nil))

	calls := make(chan string, 4)
	handler := func(ctx context.Context, device string) error {
		calls <- device
		return errors.New("rip failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, handler) }()

	src.send(t, mediaEvent("/dev/sr1"))
	src.send(t, netlink.UEvent{Action: netlink.REMOVE, Env: mediaEvent("/dev/sr0").Env})
	src.send(t, mediaEvent("/dev/sr0"))
	select {
	case got := <-calls:
		if got != "/dev/sr0" {
			t.Fatalf("handler device = %q", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("handler not called")
	}

	// A failing handler does not stop the monitor.
	src.send(t, mediaEvent("sr0"))
	select {
	case <-calls:
	case <-time.After(5 * time.Second):
		t.Fatal("handler not called for second disc")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if len(calls) != 0 {
		t.Fatalf("unexpected extra handler calls: %d", len(calls))
	}
	src.mu.Lock()
	closed := src.closed
	src.mu.Unlock()
	if !closed {
		t.Fatal("expected netlink connection to be closed")
	}
	select {
	case <-src.quit:
	default:
		t.Fatal("expected monitor quit channel to be closed")
	}
}

func TestRunSkipsDriveThatIsNotReady(t *testing.T) {
	src := newFakeSource()
	var probes int
	ready := func(ctx context.Context, device string) (disc.DriveStatus, error) {
		probes++
		if probes == 1 {
			return disc.DriveStatusNotReady, nil
		}
		return disc.DriveStatusDiscOK, nil
	}
	m := newTestMonitor(t, "/dev/sr0", src, WithReadiness(ready))

	calls := make(chan string, 2)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = m.Run(ctx, func(ctx context.Context, device string) error {
			calls <- device
			return nil
		})
	}()

	src.send(t, mediaEvent("/dev/sr0"))
	src.send(t, mediaEvent("/dev/sr0"))
	select {
	case <-calls:
	case <-time.After(5 * time.Second):
		t.Fatal("handler not called once drive was ready")
	}
	if probes != 2 {
		t.Fatalf("probes = %d, want 2", probes)
	}
}

func TestRunMatchesSymlinkTarget(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "sr0")
	if err := os.WriteFile(target, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "cdrom")
	if err := os.Symlink(target, link); err != nil {
		t.Fatal(err)
	}

	src := newFakeSource()
	m := newTestMonitor(t, link, src, WithReadiness(nil))
	calls := make(chan string, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = m.Run(ctx, func(ctx context.Context, device string) error {
			calls <- device
			return nil
		})
	}()

	src.send(t, mediaEvent(target))
	select {
	case got := <-calls:
		if got != link {
			t.Fatalf("handler device = %q, want configured %q", got, link)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("handler not called for symlink target")
	}
}

func TestRunIgnoresEventsDuringCooldown(t *testing.T) {
	src := newFakeSource()
	m := newTestMonitor(t, "/dev/sr0", src, WithReadiness(nil), WithCooldown(time.Hour))

	var calls int
	handler := func(context.Context, string) error {
		calls++
		return nil
	}
	m.handleEvent(context.Background(), mediaEvent("/dev/sr0"), handler)
	m.handleEvent(context.Background(), mediaEvent("/dev/sr0"), handler)
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestRunConnectFailure(t *testing.T) {
	m, err := New("/dev/sr0")
	if err != nil {
		t.Fatal(err)
	}
	m.connect = func() (eventSource, error) { return nil, errors.New("permission denied") }
	if err := m.Run(context.Background(), func(context.Context, string) error { return nil }); err == nil {
		t.Fatal("expected connect error")
	}
	if err := m.Run(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil handler")
	}
}
