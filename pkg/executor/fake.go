package executor

import (
	"context"
	"strings"
	"sync"
)

// FakeResult is the scripted outcome for a matched command
type FakeResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error

	// Do runs when the command matches, before the result is returned.
	// Tests use it to mimic filesystem side effects of real tools.
	Do func(argv []string)
}

// Fake is an in-memory Executor for tests. Commands are matched by the
// longest scripted prefix of the space-joined argv; unmatched commands
// succeed with empty output.
type Fake struct {
	mu        sync.Mutex
	calls     [][]string
	Responses map[string]FakeResult
}

// NewFake creates an empty fake executor
func NewFake() *Fake {
	return &Fake{Responses: make(map[string]FakeResult)}
}

// Respond scripts a result for commands matching the given prefix
func (f *Fake) Respond(prefix string, res FakeResult) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Responses[prefix] = res
}

// Run records the call and returns the scripted result
func (f *Fake) Run(ctx context.Context, argv []string, opts Options) (Output, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string(nil), argv...))

	joined := strings.Join(argv, " ")
	var best string
	var res FakeResult
	for prefix, r := range f.Responses {
		if strings.HasPrefix(joined, prefix) && len(prefix) > len(best) {
			best = prefix
			res = r
		}
	}
	f.mu.Unlock()

	if res.Do != nil {
		res.Do(argv)
	}

	out := Output{
		Stdout:   []byte(res.Stdout),
		Stderr:   []byte(res.Stderr),
		ExitCode: res.ExitCode,
	}

	if res.Err != nil {
		return out, res.Err
	}
	if res.ExitCode != 0 {
		return out, &ExitError{
			Command:  argv[0],
			ExitCode: res.ExitCode,
			Stderr:   strings.TrimSpace(res.Stderr),
		}
	}
	return out, nil
}

// Calls returns every recorded invocation as space-joined command lines
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, argv := range f.calls {
		out[i] = strings.Join(argv, " ")
	}
	return out
}

// CalledWith reports whether any recorded command line starts with prefix
func (f *Fake) CalledWith(prefix string) bool {
	for _, c := range f.Calls() {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}
