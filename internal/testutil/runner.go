// Package testutil provides test doubles shared across releaser packages.
//
// It should only be imported by test files (*_test.go).
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hydragram/releaser/internal/command"
	relerrors "github.com/hydragram/releaser/internal/errors"
)

// Handler produces the outcome of a faked command.
type Handler func(spec command.Spec) (*command.Result, error)

type rule struct {
	prefix  string
	handler Handler
}

// FakeRunner is a command.Runner that records every call and answers from
// rules matched by command-line prefix. Unmatched commands succeed with
// empty output. The longest matching prefix wins.
type FakeRunner struct {
	mu    sync.Mutex
	rules []rule
	calls []command.Spec
}

// NewFakeRunner creates an empty FakeRunner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{}
}

// On registers a handler for commands whose String() starts with prefix.
func (f *FakeRunner) On(prefix string, h Handler) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, rule{prefix: prefix, handler: h})
	return f
}

// Stdout makes matching commands succeed with the given stdout.
func (f *FakeRunner) Stdout(prefix, stdout string) *FakeRunner {
	return f.On(prefix, func(spec command.Spec) (*command.Result, error) {
		return &command.Result{Command: spec.String(), Success: true, Stdout: stdout}, nil
	})
}

// Fail makes matching commands exit with code and stderr.
func (f *FakeRunner) Fail(prefix string, code int, stderr string) *FakeRunner {
	return f.On(prefix, func(spec command.Spec) (*command.Result, error) {
		return &command.Result{Command: spec.String(), ExitCode: code, Stderr: stderr},
			fmt.Errorf("%s exited with code %d: %w", spec.String(), code, relerrors.ErrCommandFailed)
	})
}

// Run implements command.Runner.
func (f *FakeRunner) Run(ctx context.Context, spec command.Spec) (*command.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.calls = append(f.calls, spec)
	var match *rule
	line := spec.String()
	for i := range f.rules {
		r := &f.rules[i]
		if strings.HasPrefix(line, r.prefix) && (match == nil || len(r.prefix) > len(match.prefix)) {
			match = r
		}
	}
	f.mu.Unlock()

	if match == nil {
		return &command.Result{Command: line, Success: true}, nil
	}
	return match.handler(spec)
}

// Calls returns a copy of every spec passed to Run, in order.
func (f *FakeRunner) Calls() []command.Spec {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]command.Spec, len(f.calls))
	copy(out, f.calls)
	return out
}

// Lines returns the command line of every call, in order.
func (f *FakeRunner) Lines() []string {
	calls := f.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.String()
	}
	return out
}

// Ensure FakeRunner implements command.Runner.
var _ command.Runner = (*FakeRunner)(nil)
