package makemkv

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// terminateGrace is how long a terminated makemkvcon gets before SIGKILL.
const terminateGrace = 10 * time.Second

// Line is one line of subprocess output.
type Line struct {
	Text   string
	Stderr bool
}

// Process is a running makemkvcon invocation.
type Process interface {
	// Lines delivers stdout and stderr lines. The channel is closed once both
	// streams reach EOF.
	Lines() <-chan Line
	// Wait blocks until the process exits. It must be called after Lines is drained.
	Wait() error
	// Terminate asks the process group to stop, escalating to SIGKILL.
	Terminate() error
	Pid() int
}

// Executor starts processes. Tests substitute a scripted implementation.
type Executor interface {
	Start(ctx context.Context, binary string, args []string) (Process, error)
}

type commandExecutor struct {
	grace time.Duration
}

func (e commandExecutor) Start(ctx context.Context, binary string, args []string) (Process, error) {
	cmd := exec.Command(binary, args...) //nolint:gosec
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start command: %w", err)
	}

	grace := e.grace
	if grace <= 0 {
		grace = terminateGrace
	}
	p := &commandProcess{
		cmd:   cmd,
		lines: make(chan Line, 64),
		done:  make(chan struct{}),
		grace: grace,
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go p.scan(&wg, stdout, false)
	go p.scan(&wg, stderr, true)
	go func() {
		wg.Wait()
		close(p.lines)
	}()

	if ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				_ = p.Terminate()
			case <-p.done:
			}
		}()
	}
	return p, nil
}

type commandProcess struct {
	cmd   *exec.Cmd
	lines chan Line
	done  chan struct{}
	grace time.Duration

	waitOnce sync.Once
	waitErr  error
	termOnce sync.Once

	scanMu  sync.Mutex
	scanErr error
}

func (p *commandProcess) scan(wg *sync.WaitGroup, r io.Reader, isStderr bool) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		p.lines <- Line{Text: scanner.Text(), Stderr: isStderr}
	}
	if err := scanner.Err(); err != nil {
		p.scanMu.Lock()
		if p.scanErr == nil {
			p.scanErr = err
		}
		p.scanMu.Unlock()
		// Keep draining so the child never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, r)
	}
}

func (p *commandProcess) Lines() <-chan Line { return p.lines }

func (p *commandProcess) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *commandProcess) Wait() error {
	p.waitOnce.Do(func() {
		err := p.cmd.Wait()
		close(p.done)
		p.scanMu.Lock()
		scanErr := p.scanErr
		p.scanMu.Unlock()
		switch {
		case err != nil:
			p.waitErr = fmt.Errorf("wait command: %w", err)
		case scanErr != nil:
			p.waitErr = fmt.Errorf("scan output: %w", scanErr)
		}
	})
	return p.waitErr
}

func (p *commandProcess) Terminate() error {
	pid := p.Pid()
	if pid <= 0 {
		return errors.New("process not started")
	}
	var err error
	p.termOnce.Do(func() {
		err = signalGroup(pid, unix.SIGTERM)
		go func() {
			select {
			case <-p.done:
			case <-time.After(p.grace):
				_ = signalGroup(pid, unix.SIGKILL)
			}
		}()
	})
	return err
}

func signalGroup(pgid int, sig unix.Signal) error {
	if err := unix.Kill(-pgid, sig); err != nil && !errors.Is(err, unix.ESRCH) {
		return fmt.Errorf("signal process group %d: %w", pgid, err)
	}
	return nil
}

// ExitStatus extracts the exit status from an error returned by Process.Wait.
// It returns -1 when err does not carry one.
func ExitStatus(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
