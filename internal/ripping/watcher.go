package ripping

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// TitleWatcher reports output files as the ripper finishes writing them.
type TitleWatcher interface {
	// Events delivers absolute paths of closed, non-empty .mkv files. Each
	// path is delivered at most once. The channel closes after Close.
	Events() <-chan string
	Close() error
}

// inotifyWatcher watches one directory for IN_CLOSE_WRITE on *.mkv.
type inotifyWatcher struct {
	dir    string
	file   *os.File
	events chan string
	done   chan struct{}

	closeOnce sync.Once
	seenMu    sync.Mutex
	seen      map[string]struct{}
}

// NewTitleWatcher starts watching dir.
func NewTitleWatcher(dir string) (TitleWatcher, error) {
	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		return nil, fmt.Errorf("inotify init: %w", err)
	}
	if _, err := unix.InotifyAddWatch(fd, dir, unix.IN_CLOSE_WRITE); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("inotify watch %s: %w", dir, err)
	}
	w := &inotifyWatcher{
		dir: dir,
		// A non-blocking fd wrapped in os.File is serviced by the runtime
		// poller, so Close unblocks a pending Read.
		file:   os.NewFile(uintptr(fd), "inotify"),
		events: make(chan string, 16),
		done:   make(chan struct{}),
		seen:   make(map[string]struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *inotifyWatcher) Events() <-chan string { return w.events }

func (w *inotifyWatcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.file.Close()
	})
	return err
}

func (w *inotifyWatcher) loop() {
	defer close(w.events)
	buf := make([]byte, 64*(unix.SizeofInotifyEvent+unix.NAME_MAX+1))
	for {
		n, err := w.file.Read(buf)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return
		}
		for _, name := range parseInotifyNames(buf[:n]) {
			path := filepath.Join(w.dir, name)
			if !w.accept(path) {
				continue
			}
			select {
			case w.events <- path:
			case <-w.done:
				return
			}
		}
	}
}

func (w *inotifyWatcher) accept(path string) bool {
	if !isMKV(path) {
		return false
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() || info.Size() == 0 {
		return false
	}
	w.seenMu.Lock()
	defer w.seenMu.Unlock()
	if _, ok := w.seen[path]; ok {
		return false
	}
	w.seen[path] = struct{}{}
	return true
}

// parseInotifyNames extracts the file names from a buffer of inotify events.
func parseInotifyNames(buf []byte) []string {
	var names []string
	for offset := 0; offset+unix.SizeofInotifyEvent <= len(buf); {
		raw := (*unix.InotifyEvent)(unsafe.Pointer(&buf[offset])) //nolint:gosec
		nameLen := int(raw.Len)
		start := offset + unix.SizeofInotifyEvent
		end := start + nameLen
		if end > len(buf) {
			break
		}
		if nameLen > 0 && raw.Mask&unix.IN_ISDIR == 0 {
			name := strings.TrimRight(string(buf[start:end]), "\x00")
			if name != "" {
				names = append(names, name)
			}
		}
		offset = end
	}
	return names
}

func isMKV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".mkv")
}
