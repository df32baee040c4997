package executor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLocalRun(t *testing.T) {
	l := NewLocal(0)

	out, err := l.Run(context.Background(), []string{"sh", "-c", "echo hello"}, Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if strings.TrimSpace(string(out.Stdout)) != "hello" {
		t.Errorf("stdout = %q, want hello", out.Stdout)
	}
	if out.ExitCode != 0 {
		t.Errorf("exit code = %d, want 0", out.ExitCode)
	}
}

func TestLocalRun_NonZeroExit(t *testing.T) {
	l := NewLocal(0)

	out, err := l.Run(context.Background(), []string{"sh", "-c", "echo bad >&2; exit 3"}, Options{})
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("Run() error = %v, want ExitError", err)
	}
	if exitErr.ExitCode != 3 || out.ExitCode != 3 {
		t.Errorf("exit code = %d/%d, want 3", exitErr.ExitCode, out.ExitCode)
	}
	if !strings.Contains(exitErr.Stderr, "bad") {
		t.Errorf("stderr not retained: %q", exitErr.Stderr)
	}
}

func TestLocalRun_Timeout(t *testing.T) {
	l := NewLocal(0)

	start := time.Now()
	_, err := l.Run(context.Background(), []string{"sleep", "10"}, Options{Timeout: 100 * time.Millisecond})
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("Run() error = %v, want timeout", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Error("timeout was not enforced")
	}
}

func TestLocalRun_EmptyCommand(t *testing.T) {
	l := NewLocal(0)

	if _, err := l.Run(context.Background(), nil, Options{}); err == nil {
		t.Error("Run(nil) must fail")
	}
}

func TestFakeMatchesLongestPrefix(t *testing.T) {
	f := NewFake()
	f.Respond("pct", FakeResult{Stdout: "generic"})
	f.Respond("pct list", FakeResult{Stdout: "specific"})

	out, err := f.Run(context.Background(), []string{"pct", "list"}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if string(out.Stdout) != "specific" {
		t.Errorf("stdout = %q, want the longest prefix match", out.Stdout)
	}
}

func TestFakeRecordsCalls(t *testing.T) {
	f := NewFake()

	f.Run(context.Background(), []string{"zfs", "create", "rpool/x"}, Options{})

	if !f.CalledWith("zfs create") {
		t.Error("call was not recorded")
	}
	calls := f.Calls()
	if len(calls) != 1 || calls[0] != "zfs create rpool/x" {
		t.Errorf("Calls() = %v", calls)
	}
}

func TestFakeNonZeroExitIsExitError(t *testing.T) {
	f := NewFake()
	f.Respond("fail", FakeResult{ExitCode: 1, Stderr: "boom"})

	_, err := f.Run(context.Background(), []string{"fail"}, Options{})
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("error = %v, want ExitError", err)
	}
	if exitErr.Stderr != "boom" {
		t.Errorf("stderr = %q", exitErr.Stderr)
	}
}
