package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/hutch/pkg/log"
	"github.com/cuemby/hutch/pkg/metrics"
)

// Output captures the result of one external command invocation
type Output struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// Options controls a single invocation
type Options struct {
	// Timeout bounds the command. Zero uses the executor default.
	Timeout time.Duration

	// Dir is the working directory for the command
	Dir string

	// Stdin is connected to the command's standard input when non-nil
	Stdin io.Reader
}

// Executor is the capability interface for running external tools. The
// orchestrator and the tool wrappers depend on this rather than os/exec so
// their logic is testable with a fake.
type Executor interface {
	Run(ctx context.Context, argv []string, opts Options) (Output, error)
}

// ExitError reports a command that ran but exited non-zero. The stderr
// tail is retained for error translation.
type ExitError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d: %s", e.Command, e.ExitCode, e.Stderr)
}

// Local runs commands on the host. Every invocation is bounded by a
// timeout; this is the single enforcement point for subprocess deadlines.
type Local struct {
	defaultTimeout time.Duration
	logger         zerolog.Logger
}

// NewLocal creates a host executor with the given default timeout
func NewLocal(defaultTimeout time.Duration) *Local {
	if defaultTimeout <= 0 {
		defaultTimeout = 2 * time.Minute
	}
	return &Local{
		defaultTimeout: defaultTimeout,
		logger:         log.WithComponent("executor"),
	}
}

// Run executes argv and waits for it to finish
func (l *Local) Run(ctx context.Context, argv []string, opts Options) (Output, error) {
	if len(argv) == 0 {
		return Output{}, fmt.Errorf("empty command")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = l.defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = opts.Dir
	cmd.Stdin = opts.Stdin

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	l.logger.Debug().Strs("argv", argv).Msg("running external command")

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	metrics.ExternalCommandDuration.WithLabelValues(argv[0]).Observe(duration.Seconds())

	out := Output{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: duration,
	}

	if ctx.Err() == context.DeadlineExceeded {
		return out, fmt.Errorf("%s timed out after %s", argv[0], timeout)
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			out.ExitCode = exitErr.ExitCode()
			return out, &ExitError{
				Command:  argv[0],
				ExitCode: out.ExitCode,
				Stderr:   tail(stderr.String(), 512),
			}
		}
		return out, fmt.Errorf("failed to run %s: %w", argv[0], err)
	}

	return out, nil
}

// tail returns at most n trailing bytes of s with surrounding space trimmed
func tail(s string, n int) string {
	if len(s) > n {
		s = s[len(s)-n:]
	}
	return string(bytes.TrimSpace([]byte(s)))
}
