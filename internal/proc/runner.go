// Package proc launches the external programs the agent depends on: PDF
// renderers and update installers.
//
// Two shapes are supported:
//   - Run starts a program and waits for it to exit, honouring ctx. A non-zero
//     exit status is an error carrying the captured stderr.
//   - Start launches a program and returns immediately. The caller may wait a
//     bounded time and then Terminate it (SIGTERM, grace period, SIGKILL).
//
// Every started process is reaped by a background wait, so abandoned
// processes never linger as zombies.
package proc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"syscall"
	"time"

	"github.com/mattjoyce/printmesh/internal/log"
)

const (
	terminationGracePeriod = 2 * time.Second
	maxStderrBytes         = 4 * 1024
)

// Runner launches external programs.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
	Start(name string, args ...string) (Process, error)
}

// Process is a running program started by Runner.Start.
type Process interface {
	// Wait blocks until the process exits or timeout elapses and reports
	// whether it exited.
	Wait(timeout time.Duration) (bool, error)
	// Terminate asks the process to stop and kills it after a grace period.
	Terminate() error
}

// ExecRunner runs real OS processes.
type ExecRunner struct {
	logger *slog.Logger
}

func NewExecRunner() *ExecRunner {
	return &ExecRunner{logger: log.WithComponent("proc")}
}

// Run starts name and waits for it to exit. Cancelling ctx terminates it.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	// Not CommandContext: termination goes through the SIGTERM/grace/SIGKILL path.
	cmd := exec.Command(name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	r.logger.Debug("running process", "name", name, "args", args)
	p, err := start(cmd, r.logger)
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		r.logger.Warn("process cancelled, terminating", "name", name)
		_ = p.Terminate()
		return ctx.Err()
	case <-p.done:
	}

	if p.err != nil {
		var exitErr *exec.ExitError
		if errors.As(p.err, &exitErr) {
			return fmt.Errorf("%s exited with status %d: %s", name, exitErr.ExitCode(), truncate(stderr.String()))
		}
		return fmt.Errorf("wait for %s: %w", name, p.err)
	}
	return nil
}

// Start launches name without waiting for it.
func (r *ExecRunner) Start(name string, args ...string) (Process, error) {
	r.logger.Debug("starting process", "name", name, "args", args)
	return start(exec.Command(name, args...), r.logger)
}

type execProcess struct {
	cmd    *exec.Cmd
	done   chan struct{}
	err    error
	logger *slog.Logger
}

func start(cmd *exec.Cmd, logger *slog.Logger) (*execProcess, error) {
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start process: %w", err)
	}
	p := &execProcess{cmd: cmd, done: make(chan struct{}), logger: logger}
	go func() {
		p.err = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

func (p *execProcess) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func (p *execProcess) Wait(timeout time.Duration) (bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-p.done:
		return true, p.err
	case <-timer.C:
		return false, nil
	}
}

func (p *execProcess) Terminate() error {
	if p.Exited() {
		return nil
	}

	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// Windows has no SIGTERM; go straight to kill.
		p.logger.Debug("SIGTERM not delivered, killing", "error", err)
		return p.kill()
	}

	grace := time.NewTimer(terminationGracePeriod)
	defer grace.Stop()

	select {
	case <-p.done:
		p.logger.Debug("process exited after SIGTERM")
		return nil
	case <-grace.C:
		p.logger.Warn("process did not exit after SIGTERM, sending SIGKILL")
		return p.kill()
	}
}

func (p *execProcess) kill() error {
	if err := p.cmd.Process.Kill(); err != nil && !p.Exited() {
		return fmt.Errorf("kill process: %w", err)
	}
	<-p.done
	return nil
}

func truncate(s string) string {
	if len(s) <= maxStderrBytes {
		return s
	}
	return s[:maxStderrBytes] + "...(truncated)"
}
