package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/pilebones/go-udev/netlink"

	"discrip/internal/disc"
	"discrip/internal/logging"
)

// Handler runs one rip for device. Errors are logged and watching continues.
type Handler func(ctx context.Context, device string) error

// ReadinessFunc blocks until the drive reports a usable disc.
type ReadinessFunc func(ctx context.Context, device string) (disc.DriveStatus, error)

type eventSource interface {
	Monitor(queue chan netlink.UEvent, errs chan error, matcher netlink.Matcher) chan struct{}
	Close() error
}

const (
	defaultReadyPolls    = 15
	defaultReadyInterval = time.Second
	defaultCooldown      = 5 * time.Second
)

// Monitor watches one optical drive for inserted media.
type Monitor struct {
	device   string
	resolved string
	logger   *slog.Logger
	ready    ReadinessFunc
	cooldown time.Duration
	connect  func() (eventSource, error)

	lastRun time.Time
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithLogger sets the monitor logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) { m.logger = logger }
}

// WithReadiness overrides the drive readiness probe. A nil probe disables it.
func WithReadiness(fn ReadinessFunc) Option {
	return func(m *Monitor) { m.ready = fn }
}

// WithCooldown sets how long after a run finishes media events are ignored.
// go-udev delivers events queued during a rip once the handler returns.
func WithCooldown(d time.Duration) Option {
	return func(m *Monitor) { m.cooldown = d }
}

// New builds a monitor for device. Symlinks such as /dev/cdrom are resolved
// so udev events naming the kernel node still match.
func New(device string, opts ...Option) (*Monitor, error) {
	device = strings.TrimSpace(device)
	if device == "" {
		return nil, errors.New("watch: device is required")
	}
	m := &Monitor{
		device:   device,
		resolved: resolveDevice(device),
		ready: func(ctx context.Context, dev string) (disc.DriveStatus, error) {
			return disc.WaitForReady(ctx, dev, defaultReadyPolls, defaultReadyInterval)
		},
		cooldown: defaultCooldown,
		connect:  connectNetlink,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.NewComponentLogger(m.logger, "watch")
	return m, nil
}

// Device returns the device node the monitor filters on.
func (m *Monitor) Device() string { return m.device }

func connectNetlink() (eventSource, error) {
	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		return nil, err
	}
	return conn, nil
}

// Run blocks until ctx is cancelled, calling handler for every disc
// inserted into the monitored drive.
func (m *Monitor) Run(ctx context.Context, handler Handler) error {
	if handler == nil {
		return errors.New("watch: handler is required")
	}
	conn, err := m.connect()
	if err != nil {
		return fmt.Errorf("connect netlink socket: %w", err)
	}
	defer func() { _ = conn.Close() }()

	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, buildMatcher())
	defer close(monitorQuit)

	m.logger.Info("watching for discs",
		logging.String(logging.FieldEventType, "watch_started"),
		logging.String(logging.FieldDevice, m.device),
	)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("watch stopped",
				logging.String(logging.FieldEventType, "watch_stopped"),
			)
			return nil
		case uevent := <-queue:
			m.handleEvent(ctx, uevent, handler)
		case err := <-errs:
			m.logger.Warn("netlink monitor error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "netlink_monitor_error"),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "disc insertions may be missed"),
			)
		}
	}
}

// buildMatcher matches SUBSYSTEM=block, ID_CDROM=1, ID_CDROM_MEDIA=1, ACTION=change|add.
func buildMatcher() netlink.Matcher {
	action := "change|add"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM":      "block",
			"ID_CDROM":       "1",
			"ID_CDROM_MEDIA": "1",
		},
	})
	return rules
}

func (m *Monitor) handleEvent(ctx context.Context, uevent netlink.UEvent, handler Handler) {
	devname := extractDeviceName(uevent)
	if devname == "" {
		m.logger.Debug("ignoring event without device name",
			logging.String("action", string(uevent.Action)),
			logging.String("kobj", uevent.KObj),
		)
		return
	}
	if devname != m.device && devname != m.resolved {
		m.logger.Debug("ignoring event for other device",
			logging.String(logging.FieldDevice, devname),
			logging.String("configured_device", m.device),
		)
		return
	}
	if !m.lastRun.IsZero() && time.Since(m.lastRun) < m.cooldown {
		m.logger.Debug("ignoring media event queued during previous run",
			logging.String(logging.FieldDevice, devname),
		)
		return
	}

	m.logger.Info("disc media detected",
		logging.String(logging.FieldEventType, "disc_detected"),
		logging.String(logging.FieldDevice, devname),
		logging.String("action", string(uevent.Action)),
	)

	if m.ready != nil {
		status, err := m.ready(ctx, m.device)
		if err != nil || status != disc.DriveStatusDiscOK {
			m.logger.Warn("drive not ready after media event",
				logging.Error(err),
				logging.String(logging.FieldDevice, m.device),
				logging.String("drive_status", status.String()),
				logging.String(logging.FieldEventType, "drive_not_ready"),
				logging.String(logging.FieldImpact, "disc skipped"),
			)
			return
		}
	}

	err := handler(ctx, m.device)
	m.lastRun = time.Now()
	if err != nil {
		m.logger.Warn("disc run failed",
			logging.Error(err),
			logging.String(logging.FieldDevice, m.device),
			logging.String(logging.FieldEventType, "watch_run_failed"),
			logging.String(logging.FieldImpact, "waiting for next disc"),
		)
	}
}

// extractDeviceName gets the device path from a uevent.
func extractDeviceName(uevent netlink.UEvent) string {
	if devname := strings.TrimSpace(uevent.Env["DEVNAME"]); devname != "" {
		if !strings.HasPrefix(devname, "/") {
			devname = "/dev/" + devname
		}
		return devname
	}

	// DEVPATH looks like /devices/pci.../block/sr0.
	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	return "/dev/" + filepath.Base(devpath)
}

func resolveDevice(device string) string {
	resolved, err := filepath.EvalSymlinks(device)
	if err != nil {
		return device
	}
	return resolved
}
