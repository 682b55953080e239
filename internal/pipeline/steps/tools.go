package steps

import (
	"context"
	"strings"

	"github.com/hydragram/releaser/internal/command"
	relerrors "github.com/hydragram/releaser/internal/errors"
	"github.com/hydragram/releaser/internal/pipeline"
)

// DefaultToolPackages are installed into the runtime before building.
var DefaultToolPackages = []string{"build", "twine"}

// ToolsOptions configure the install_tools step.
type ToolsOptions struct {
	// Packages to install. Empty means DefaultToolPackages.
	Packages []string
	// UpgradeInstaller upgrades pip first.
	UpgradeInstaller bool
}

// InstallToolsExecutor installs the build and upload tools with pip.
type InstallToolsExecutor struct {
	tools toolRunner
	opts  ToolsOptions
}

// NewInstallToolsExecutor creates the install_tools executor.
func NewInstallToolsExecutor(deps Deps, opts ToolsOptions) *InstallToolsExecutor {
	if len(opts.Packages) == 0 {
		opts.Packages = DefaultToolPackages
	}
	return &InstallToolsExecutor{tools: newToolRunner(deps), opts: opts}
}

// Type implements pipeline.Executor.
func (e *InstallToolsExecutor) Type() pipeline.StepType {
	return pipeline.StepTypeInstallTools
}

// Execute implements pipeline.Executor.
func (e *InstallToolsExecutor) Execute(ctx context.Context, run *pipeline.Run, _ *pipeline.StepDefinition) (*pipeline.StepResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res := &pipeline.StepResult{}

	python, err := requireInterpreter(run, relerrors.ErrProvisionFailed)
	if err != nil {
		return res, err
	}

	for _, args := range e.argLists() {
		if _, err := e.tools.run(ctx, res, command.Spec{Name: python, Args: args, Dir: run.State.Workspace}); err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			return res, stepError(relerrors.ErrProvisionFailed, "%w", err)
		}
	}
	return res, nil
}

func (e *InstallToolsExecutor) argLists() [][]string {
	var lists [][]string
	if e.opts.UpgradeInstaller {
		lists = append(lists, []string{"-m", "pip", "install", "--upgrade", "pip"})
	}
	install := append([]string{"-m", "pip", "install", "--upgrade"}, e.opts.Packages...)
	return append(lists, install)
}

// Describe implements pipeline.Describer.
func (e *InstallToolsExecutor) Describe(run *pipeline.Run) []string {
	python := run.State.Interpreter
	if python == "" {
		python = "<python>"
	}
	var cmds []string
	for _, args := range e.argLists() {
		cmds = append(cmds, python+" "+strings.Join(args, " "))
	}
	return cmds
}
