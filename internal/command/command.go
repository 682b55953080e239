// Package command runs external tools for the release pipeline.
//
// Commands are executed directly (no shell) from an argv list, in a working
// directory, with the parent environment extended by per-command variables.
// Extra variables are only ever placed in the child process environment:
// a Result never records them, which is how the registry credential reaches
// the upload tool without touching disk or logs.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	relerrors "github.com/hydragram/releaser/internal/errors"
)

// DefaultTimeout bounds a single command when the runner has no timeout set.
const DefaultTimeout = 30 * time.Minute

// Spec describes one external tool invocation.
type Spec struct {
	// Name is the executable, resolved through PATH unless it contains a separator.
	Name string
	// Args are passed verbatim; there is no shell expansion.
	Args []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Env holds extra KEY=VALUE pairs appended to the parent environment.
	Env []string
}

// String renders the command line for logs. Env is never included.
func (s Spec) String() string {
	if len(s.Args) == 0 {
		return s.Name
	}
	return s.Name + " " + strings.Join(s.Args, " ")
}

// Result captures the outcome of a single command.
type Result struct {
	Command     string    `json:"command"`
	Success     bool      `json:"success"`
	ExitCode    int       `json:"exit_code"`
	Stdout      string    `json:"stdout"`
	Stderr      string    `json:"stderr"`
	DurationMs  int64     `json:"duration_ms"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// Output returns stdout and stderr joined, for error classification.
func (r *Result) Output() string {
	if r == nil {
		return ""
	}
	return r.Stdout + r.Stderr
}

// Runner executes a Spec.
//
// Run returns a non-nil Result whenever the process was started. A non-zero
// exit yields an error wrapping ErrCommandFailed; a missing executable wraps
// ErrToolNotFound; a per-command timeout returns ErrCommandTimeout; parent
// context cancellation returns the context error.
type Runner interface {
	Run(ctx context.Context, spec Spec) (*Result, error)
}

// ExecRunner implements Runner with os/exec.
type ExecRunner struct {
	// Timeout bounds each command. Zero means DefaultTimeout.
	Timeout time.Duration
	// LiveOutput, when set, receives stdout and stderr as they are produced.
	LiveOutput io.Writer
	// Environ returns the base environment. Nil means os.Environ.
	Environ func() []string
}

// NewExecRunner creates an ExecRunner with the given timeout.
func NewExecRunner(timeout time.Duration) *ExecRunner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ExecRunner{Timeout: timeout}
}

// Run executes spec and waits for it to exit.
func (r *ExecRunner) Run(ctx context.Context, spec Spec) (*Result, error) {
	log := zerolog.Ctx(ctx)

	if spec.Name == "" {
		return nil, fmt.Errorf("command name %w", relerrors.ErrEmptyValue)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, spec.Name, spec.Args...) //#nosec G204 -- argv is built by pipeline steps from configuration
	cmd.Dir = spec.Dir
	cmd.Env = append(r.baseEnv(), spec.Env...)

	var outBuf, errBuf bytes.Buffer
	if r.LiveOutput != nil {
		cmd.Stdout = io.MultiWriter(&outBuf, r.LiveOutput)
		cmd.Stderr = io.MultiWriter(&errBuf, r.LiveOutput)
	} else {
		cmd.Stdout = &outBuf
		cmd.Stderr = &errBuf
	}

	log.Debug().
		Str("command", spec.String()).
		Str("work_dir", spec.Dir).
		Int("extra_env", len(spec.Env)).
		Msg("executing command")

	startedAt := time.Now()
	runErr := cmd.Run()
	completedAt := time.Now()

	result := &Result{
		Command:     spec.String(),
		Stdout:      outBuf.String(),
		Stderr:      errBuf.String(),
		DurationMs:  completedAt.Sub(startedAt).Milliseconds(),
		StartedAt:   startedAt,
		CompletedAt: completedAt,
	}

	return result, classify(ctx, cmdCtx, spec, result, runErr)
}

func (r *ExecRunner) baseEnv() []string {
	if r.Environ != nil {
		return r.Environ()
	}
	return os.Environ()
}

// classify fills in result status and maps runErr onto the sentinel errors.
func classify(ctx, cmdCtx context.Context, spec Spec, result *Result, runErr error) error {
	if runErr == nil {
		result.Success = true
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
	} else {
		result.ExitCode = -1
	}
	result.Error = runErr.Error()

	switch {
	case ctx.Err() != nil:
		result.Error = "context canceled"
		return ctx.Err()
	case errors.Is(cmdCtx.Err(), context.DeadlineExceeded):
		result.Error = "command timed out"
		return fmt.Errorf("%s: %w", spec.Name, relerrors.ErrCommandTimeout)
	case errors.Is(runErr, exec.ErrNotFound) || errors.Is(runErr, os.ErrNotExist):
		return fmt.Errorf("%s: %w", spec.Name, relerrors.ErrToolNotFound)
	case exitErr != nil:
		return fmt.Errorf("%s exited with code %d: %w", spec.String(), result.ExitCode, relerrors.ErrCommandFailed)
	default:
		return fmt.Errorf("%s: %w: %w", spec.String(), relerrors.ErrCommandFailed, runErr)
	}
}

// LookPath reports the absolute path of an executable on PATH.
func LookPath(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, relerrors.ErrToolNotFound)
	}
	return path, nil
}

// Ensure ExecRunner implements Runner.
var _ Runner = (*ExecRunner)(nil)
