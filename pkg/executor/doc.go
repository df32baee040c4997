/*
Package executor runs external commands with bounded execution time.

hutch shells out for everything host-facing (pct, zfs, zpool, tar), and
every one of those invocations flows through the Executor interface.
That gives the rest of the codebase exactly one place where timeouts
are enforced, durations are measured, and subprocess plumbing lives,
and it gives tests a seam: swap in the Fake and no test ever spawns a
real process.

# Implementations

Local wraps os/exec. Each call gets a context deadline (per-call
Options.Timeout, falling back to the executor default), captures stdout
and stderr separately, records the duration in the command metrics, and
turns a non-zero exit into an *ExitError carrying the exit code and a
bounded tail of stderr.

Fake is scripted: tests register results keyed by command-line prefix,
the longest matching prefix wins, and every invocation is recorded for
later assertion. A scripted result can carry a Do hook to mimic the
filesystem side effects of real tools.

# Usage

	execr := executor.NewLocal(cfg.CommandTimeout())

	out, err := execr.Run(ctx, []string{"pct", "list"}, executor.Options{})
	var exitErr *executor.ExitError
	if errors.As(err, &exitErr) {
		// exitErr.Stderr holds what the tool printed
	}

# See Also

  - pkg/pct and pkg/zfs, the main callers
  - pkg/metrics for the recorded command durations
*/
package executor
