// Package steps implements the executors of the release procedure:
// checkout, setup_runtime, install_tools, clean, build and publish.
//
// Every executor delegates the real work to an external tool through a
// command.Runner and maps its failure onto one sentinel error per step:
// ErrCheckoutFailed, ErrProvisionFailed, ErrCleanFailed, ErrBuildFailed
// and ErrPublishFailed.
//
// Import rules:
//   - CAN import: internal/pipeline, internal/command, internal/git, internal/secret, internal/logging, internal/constants, internal/errors
//   - MUST NOT import: internal/cli, internal/config, internal/history
package steps

import (
	"context"
	"fmt"
	"strings"

	"github.com/hydragram/releaser/internal/command"
	relerrors "github.com/hydragram/releaser/internal/errors"
	"github.com/hydragram/releaser/internal/logging"
	"github.com/hydragram/releaser/internal/pipeline"
	"github.com/hydragram/releaser/internal/secret"
)

// Deps are the collaborators shared by every executor.
type Deps struct {
	Runner   command.Runner
	Secrets  secret.Store
	Redactor *logging.Redactor

	// LookPath resolves executables. Nil means command.LookPath.
	LookPath func(string) (string, error)

	// TempDir is the parent of temporary workspaces and environments.
	// Empty means the system temp directory.
	TempDir string
}

// Options configure the executors.
type Options struct {
	Checkout CheckoutOptions
	Runtime  RuntimeOptions
	Tools    ToolsOptions
	Clean    CleanOptions
	Build    BuildOptions
	Publish  PublishOptions
}

// NewRegistry returns a registry holding every executor.
func NewRegistry(deps Deps, opts Options) *pipeline.Registry {
	if opts.Clean.OutDir == "" {
		opts.Clean.OutDir = opts.Build.OutDir
	}
	r := pipeline.NewRegistry()
	r.Register(NewCheckoutExecutor(deps, opts.Checkout))
	r.Register(NewSetupRuntimeExecutor(deps, opts.Runtime))
	r.Register(NewInstallToolsExecutor(deps, opts.Tools))
	r.Register(NewCleanExecutor(opts.Clean))
	r.Register(NewBuildExecutor(deps, opts.Build))
	r.Register(NewPublishExecutor(deps, opts.Publish))
	return r
}

// toolRunner runs commands for a step and records redacted command lines
// and output into the step result.
type toolRunner struct {
	runner   command.Runner
	redactor *logging.Redactor
}

func newToolRunner(deps Deps) toolRunner {
	r := deps.Redactor
	if r == nil {
		r = logging.DefaultRedactor()
	}
	return toolRunner{runner: deps.Runner, redactor: r}
}

// redact hides registered secrets and credential shaped text.
func (t toolRunner) redact(s string) string {
	return t.redactor.Filter(s)
}

// run executes spec, appending its command line and output to res.
func (t toolRunner) run(ctx context.Context, res *pipeline.StepResult, spec command.Spec) (*command.Result, error) {
	res.Commands = append(res.Commands, t.redact(spec.String()))

	out, err := t.runner.Run(ctx, spec)
	if out != nil {
		res.ExitCode = out.ExitCode
		if text := out.Output(); text != "" {
			if res.Output != "" && !strings.HasSuffix(res.Output, "\n") {
				res.Output += "\n"
			}
			res.Output += t.redact(text)
		}
	}
	return out, err
}

// stepError wraps cause with the step sentinel. Context errors stay
// reachable through errors.Is.
func stepError(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %w", sentinel, fmt.Errorf(format, args...))
}

// requireWorkspace returns the workspace or a wrapped ErrWorkspaceMissing.
func requireWorkspace(run *pipeline.Run, sentinel error) (string, error) {
	if run.State.Workspace == "" {
		return "", stepError(sentinel, "no workspace: %w", relerrors.ErrWorkspaceMissing)
	}
	return run.State.Workspace, nil
}

// requireInterpreter returns the interpreter or an error saying the
// runtime step has not run.
func requireInterpreter(run *pipeline.Run, sentinel error) (string, error) {
	if run.State.Interpreter == "" {
		return "", stepError(sentinel, "python runtime not provisioned: %w", relerrors.ErrToolNotFound)
	}
	return run.State.Interpreter, nil
}
