// Package proc runs external commands with a deadline and a cooperative
// cancellation check. It is the only place in the runtime that manages OS
// process lifetimes: every process-spawning tool calls Run so interrupt
// and timeout semantics are uniform.
package proc

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"syscall"
	"time"
)

const (
	// DefaultTimeout applies when the caller passes no timeout.
	DefaultTimeout = 120 * time.Second

	// pollInterval is how often the interrupt check runs while a
	// long-running command is alive.
	pollInterval = 500 * time.Millisecond

	// termGrace is how long a terminated process gets to exit before it
	// is force-killed.
	termGrace = 2 * time.Second

	// noPollThreshold: commands with a timeout at or below this run to
	// completion (or natural timeout) without interim polling; short
	// commands are not worth the polling overhead.
	noPollThreshold = 10 * time.Second

	// interruptExitCode is the conventional exit code reported for a
	// command stopped by a user interrupt.
	interruptExitCode = 130
)

// Command specifies an external command. Exactly one of Shell or Argv is
// set: Shell runs the string through "sh -c", Argv execs directly.
type Command struct {
	Shell string
	Argv  []string
	Dir   string
	Env   []string // nil inherits the parent environment
}

// Result is the outcome of a Run.
type Result struct {
	ExitCode    int
	Stdout      string
	Stderr      string
	Interrupted bool
	TimedOut    bool
}

// Run executes cmd with the given timeout, polling interrupted while the
// process is alive. The contract:
//
//   - interrupted already true → return Interrupted immediately, nothing
//     is spawned;
//   - timeout ≤ 10s → run to completion or natural timeout with no
//     interim interrupt polling;
//   - otherwise poll every 500ms; on interrupt, terminate gracefully,
//     wait 2s, then force-kill, and return Interrupted;
//   - on reaching timeout with no interrupt, the same terminate→wait→kill
//     escalation runs and the result reports TimedOut.
//
// Context cancellation is treated like an interrupt. A nil interrupted
// func never interrupts.
func Run(ctx context.Context, cmd Command, timeout time.Duration, interrupted func() bool) Result {
	if interrupted == nil {
		interrupted = func() bool { return false }
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	if cmd.Shell == "" && len(cmd.Argv) == 0 {
		return Result{ExitCode: -1, Stderr: "no command specified"}
	}

	if interrupted() || ctx.Err() != nil {
		return Result{
			ExitCode:    interruptExitCode,
			Stderr:      "Process interrupted by user",
			Interrupted: true,
		}
	}

	c, stdout, stderr := build(cmd)
	if err := c.Start(); err != nil {
		return Result{ExitCode: -1, Stderr: "failed to start: " + err.Error()}
	}

	waitCh := make(chan error, 1)
	go func() { waitCh <- c.Wait() }()

	if timeout <= noPollThreshold {
		return awaitShort(c, waitCh, timeout, stdout, stderr)
	}
	return awaitPolling(ctx, c, waitCh, timeout, interrupted, stdout, stderr)
}

// awaitShort waits for completion or the deadline with no interim polling.
func awaitShort(c *exec.Cmd, waitCh chan error, timeout time.Duration, stdout, stderr *bytes.Buffer) Result {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-waitCh:
		return finished(err, stdout, stderr)
	case <-timer.C:
		escalate(c, waitCh)
		return Result{
			ExitCode: -1,
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			TimedOut: true,
		}
	}
}

// awaitPolling waits for completion, checking the interrupt every
// pollInterval and enforcing the overall deadline.
func awaitPolling(ctx context.Context, c *exec.Cmd, waitCh chan error, timeout time.Duration, interrupted func() bool, stdout, stderr *bytes.Buffer) Result {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case err := <-waitCh:
			return finished(err, stdout, stderr)

		case <-ticker.C:
			if !interrupted() {
				continue
			}
			escalate(c, waitCh)
			return Result{
				ExitCode:    interruptExitCode,
				Stdout:      stdout.String(),
				Stderr:      "Process interrupted by user",
				Interrupted: true,
			}

		case <-ctx.Done():
			escalate(c, waitCh)
			return Result{
				ExitCode:    interruptExitCode,
				Stdout:      stdout.String(),
				Stderr:      "Process interrupted by user",
				Interrupted: true,
			}

		case <-deadline.C:
			escalate(c, waitCh)
			return Result{
				ExitCode: -1,
				Stdout:   stdout.String(),
				Stderr:   stderr.String(),
				TimedOut: true,
			}
		}
	}
}

// build assembles the exec.Cmd with captured output buffers.
func build(cmd Command) (*exec.Cmd, *bytes.Buffer, *bytes.Buffer) {
	var c *exec.Cmd
	if cmd.Shell != "" {
		c = exec.Command("sh", "-c", cmd.Shell)
	} else {
		c = exec.Command(cmd.Argv[0], cmd.Argv[1:]...)
	}
	c.Dir = cmd.Dir
	c.Env = cmd.Env

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr
	return c, &stdout, &stderr
}

// finished converts a completed Wait into a Result.
func finished(err error, stdout, stderr *bytes.Buffer) Result {
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
			if res.Stderr == "" {
				res.Stderr = err.Error()
			}
		}
	}
	return res
}

// escalate stops a live process: graceful terminate, a short grace
// period, then force-kill. Always reaps the process before returning so
// no zombie is left behind.
func escalate(c *exec.Cmd, waitCh chan error) {
	if c.Process == nil {
		return
	}
	if err := c.Process.Signal(syscall.SIGTERM); err != nil {
		// Already gone or signalling unsupported; fall through to Kill.
		_ = c.Process.Kill()
		<-waitCh
		return
	}

	grace := time.NewTimer(termGrace)
	defer grace.Stop()
	select {
	case <-waitCh:
	case <-grace.C:
		_ = c.Process.Kill()
		<-waitCh
	}
}
