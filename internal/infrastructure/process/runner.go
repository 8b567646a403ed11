package process

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/glowlab/studioport/internal/domain/model"
	"github.com/glowlab/studioport/internal/domain/port"
)

const (
	// probeInterval is how often the readiness probe retries
	probeInterval = 250 * time.Millisecond
	// killGrace bounds the wait for the process to die after SIGKILL
	killGrace = 2 * time.Second
	// defaultStopTimeout applies when the spec leaves StopTimeout zero
	defaultStopTimeout = 10 * time.Second
)

// Runner launches web-service processes with os/exec.
type Runner struct {
	logger port.Logger
}

// NewRunner creates a new Runner instance
func NewRunner(logger port.Logger) *Runner {
	return &Runner{logger: logger}
}

// Start launches the spec's command through the shell so operators can
// write the command line the same way they run it by hand. The process
// gets its own process group; Stop signals the whole group so shell
// children go down with it. Cancellation of ctx does not kill the
// process: shutdown ordering belongs to the orchestrator.
func (r *Runner) Start(ctx context.Context, spec model.ServiceSpec) (port.Process, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cmd := exec.Command("/bin/sh", "-c", spec.Command)
	cmd.Dir = spec.Dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting service: %v", err)
	}
	r.logger.Info("service started: pid=%d command=%q", cmd.Process.Pid, spec.Command)

	p := &Process{
		cmd:    cmd,
		spec:   spec,
		logger: r.logger,
		done:   make(chan struct{}),
	}
	go p.wait()
	return p, nil
}

// Process is one supervised service command.
type Process struct {
	cmd    *exec.Cmd
	spec   model.ServiceSpec
	logger port.Logger

	done chan struct{}

	mu  sync.Mutex
	err error

	stopOnce sync.Once
	stopErr  error
}

// wait collects the exit status and settles the done channel.
func (p *Process) wait() {
	err := p.cmd.Wait()
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
	close(p.done)
}

// WaitReady blocks until the probe address accepts a connection or the
// ready timeout elapses. Specs without a probe address just sit out the
// grace delay. An early process exit fails the wait immediately.
func (p *Process) WaitReady(ctx context.Context) error {
	if p.spec.ProbeAddr == "" {
		select {
		case <-time.After(p.spec.GraceDelay):
			return nil
		case <-p.done:
			return fmt.Errorf("service exited during startup: %v", p.Err())
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	deadline := time.NewTimer(p.spec.ReadyTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(probeInterval)
	defer ticker.Stop()
	dialer := net.Dialer{Timeout: probeInterval}

	for {
		conn, err := dialer.DialContext(ctx, "tcp", p.spec.ProbeAddr)
		if err == nil {
			conn.Close()
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.done:
			return fmt.Errorf("service exited during startup: %v", p.Err())
		case <-deadline.C:
			return fmt.Errorf("service not ready on %s after %s", p.spec.ProbeAddr, p.spec.ReadyTimeout)
		case <-ticker.C:
		}
	}
}

// Done is closed when the process exits
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Err returns the exit cause once Done is closed
func (p *Process) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Pid returns the operating system process id
func (p *Process) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Stop terminates the process group, graceful first, then hard after
// the spec's stop timeout. Idempotent.
func (p *Process) Stop() error {
	p.stopOnce.Do(func() {
		p.stopErr = p.stop()
	})
	return p.stopErr
}

func (p *Process) stop() error {
	select {
	case <-p.done:
		return nil
	default:
	}

	pid := p.Pid()
	if pid == 0 {
		return nil
	}

	// Negative pid signals the whole process group.
	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil {
		p.cmd.Process.Signal(syscall.SIGTERM)
	}

	timeout := p.spec.StopTimeout
	if timeout <= 0 {
		timeout = defaultStopTimeout
	}
	select {
	case <-p.done:
		p.logger.Info("service stopped: pid=%d", pid)
		return nil
	case <-time.After(timeout):
	}

	p.logger.Warn("service did not stop within %s, killing pid=%d", timeout, pid)
	syscall.Kill(-pid, syscall.SIGKILL)
	select {
	case <-p.done:
	case <-time.After(killGrace):
		return fmt.Errorf("service pid=%d survived SIGKILL", pid)
	}
	return nil
}

// Ensure the implementations satisfy the ports
var (
	_ port.Runner  = (*Runner)(nil)
	_ port.Process = (*Process)(nil)
)
