package proc

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunCapturesOutput(t *testing.T) {
	res := Run(context.Background(), Command{Shell: "echo out; echo err >&2"}, 5*time.Second, nil)
	if res.ExitCode != 0 {
		t.Fatalf("ExitCode = %d, want 0 (stderr: %q)", res.ExitCode, res.Stderr)
	}
	if res.Stdout != "out\n" {
		t.Errorf("Stdout = %q, want %q", res.Stdout, "out\n")
	}
	if res.Stderr != "err\n" {
		t.Errorf("Stderr = %q, want %q", res.Stderr, "err\n")
	}
	if res.Interrupted || res.TimedOut {
		t.Errorf("unexpected Interrupted=%v TimedOut=%v", res.Interrupted, res.TimedOut)
	}
}

func TestRunReportsExitCode(t *testing.T) {
	res := Run(context.Background(), Command{Shell: "exit 3"}, 5*time.Second, nil)
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
}

func TestRunArgvForm(t *testing.T) {
	res := Run(context.Background(), Command{Argv: []string{"echo", "hello"}}, 5*time.Second, nil)
	if res.ExitCode != 0 || res.Stdout != "hello\n" {
		t.Errorf("got exit=%d stdout=%q", res.ExitCode, res.Stdout)
	}
}

func TestRunInterruptedBeforeStart(t *testing.T) {
	var checks atomic.Int64
	res := Run(context.Background(), Command{Shell: "echo should-not-run > " + filepath.Join(t.TempDir(), "marker")}, 5*time.Second, func() bool {
		checks.Add(1)
		return true
	})
	if !res.Interrupted {
		t.Fatal("expected Interrupted")
	}
	if res.ExitCode != 130 {
		t.Errorf("ExitCode = %d, want 130", res.ExitCode)
	}
	if res.Stdout != "" {
		t.Errorf("Stdout = %q, want empty (nothing should have spawned)", res.Stdout)
	}
}

func TestRunShortTimeoutNeverPolls(t *testing.T) {
	var checks atomic.Int64
	res := Run(context.Background(), Command{Shell: "sleep 2"}, 3*time.Second, func() bool {
		checks.Add(1)
		return false
	})
	if res.ExitCode != 0 {
		t.Fatalf("ExitCode = %d, want 0", res.ExitCode)
	}
	// The short path performs at most the single up-front check.
	if n := checks.Load(); n > 1 {
		t.Errorf("interrupt check ran %d times, want at most 1 (no interim polling)", n)
	}
}

func TestRunTimeoutKillsProcess(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "survived")
	start := time.Now()
	res := Run(context.Background(), Command{Shell: "sleep 3 && touch " + marker}, 1*time.Second, nil)
	if !res.TimedOut {
		t.Fatal("expected TimedOut")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Run took %s, escalation should finish within timeout+grace", elapsed)
	}

	// If the process were still alive it would create the marker.
	time.Sleep(3 * time.Second)
	if _, err := os.Stat(marker); err == nil {
		t.Error("process survived the timeout escalation")
	}
}

func TestRunInterruptMidExecution(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "survived")
	var flag atomic.Bool
	go func() {
		time.Sleep(300 * time.Millisecond)
		flag.Store(true)
	}()

	start := time.Now()
	// Timeout above the no-poll threshold so the polling path runs.
	res := Run(context.Background(), Command{Shell: "sleep 5 && touch " + marker}, 30*time.Second, flag.Load)
	if !res.Interrupted {
		t.Fatal("expected Interrupted")
	}
	if res.ExitCode != 130 {
		t.Errorf("ExitCode = %d, want 130", res.ExitCode)
	}
	// One polling interval plus kill escalation, with slack for slow CI.
	if elapsed := time.Since(start); elapsed > 4*time.Second {
		t.Errorf("interrupt took %s, want within poll interval + grace", elapsed)
	}

	time.Sleep(6 * time.Second)
	if _, err := os.Stat(marker); err == nil {
		t.Error("process survived the interrupt escalation")
	}
}

func TestRunContextCancelStopsProcess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(300 * time.Millisecond)
		cancel()
	}()

	res := Run(ctx, Command{Shell: "sleep 5"}, 30*time.Second, nil)
	if !res.Interrupted {
		t.Errorf("expected context cancellation to report Interrupted, got %+v", res)
	}
}

func TestRunDefaultTimeout(t *testing.T) {
	res := Run(context.Background(), Command{Shell: "true"}, 0, nil)
	if res.ExitCode != 0 || res.TimedOut {
		t.Errorf("got %+v, want clean exit with defaulted timeout", res)
	}
}
