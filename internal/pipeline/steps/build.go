package steps

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hydragram/releaser/internal/command"
	"github.com/hydragram/releaser/internal/constants"
	relerrors "github.com/hydragram/releaser/internal/errors"
	"github.com/hydragram/releaser/internal/pipeline"
)

// BuildOptions configure the build step.
type BuildOptions struct {
	// OutDir is the workspace relative output directory. Empty means dist.
	OutDir string
}

// BuildExecutor runs the build frontend and collects its artifacts.
type BuildExecutor struct {
	tools toolRunner
	opts  BuildOptions
}

// NewBuildExecutor creates the build executor.
func NewBuildExecutor(deps Deps, opts BuildOptions) *BuildExecutor {
	if opts.OutDir == "" {
		opts.OutDir = constants.DistDir
	}
	return &BuildExecutor{tools: newToolRunner(deps), opts: opts}
}

// Type implements pipeline.Executor.
func (e *BuildExecutor) Type() pipeline.StepType {
	return pipeline.StepTypeBuild
}

func (e *BuildExecutor) args() []string {
	return []string{"-m", "build", "--outdir", e.opts.OutDir, "."}
}

// Execute implements pipeline.Executor.
func (e *BuildExecutor) Execute(ctx context.Context, run *pipeline.Run, _ *pipeline.StepDefinition) (*pipeline.StepResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res := &pipeline.StepResult{}

	ws, err := requireWorkspace(run, relerrors.ErrBuildFailed)
	if err != nil {
		return res, err
	}
	python, err := requireInterpreter(run, relerrors.ErrBuildFailed)
	if err != nil {
		return res, err
	}

	if _, err := e.tools.run(ctx, res, command.Spec{Name: python, Args: e.args(), Dir: ws}); err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		return res, stepError(relerrors.ErrBuildFailed, "%w", err)
	}

	artifacts, err := ListArtifacts(ws, e.opts.OutDir)
	if err != nil {
		return res, stepError(relerrors.ErrBuildFailed, "%w", err)
	}
	if len(artifacts) == 0 {
		return res, stepError(relerrors.ErrBuildFailed, "%s is empty: %w", e.opts.OutDir, relerrors.ErrNoArtifacts)
	}
	run.State.Artifacts = artifacts
	return res, nil
}

// Describe implements pipeline.Describer.
func (e *BuildExecutor) Describe(*pipeline.Run) []string {
	return []string{fmt.Sprintf("<python> -m build --outdir %s .", e.opts.OutDir)}
}

// ListArtifacts returns the regular files directly inside root/outDir,
// relative to root and sorted. A missing directory lists nothing.
func ListArtifacts(root, outDir string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(root, outDir))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}

	var out []string
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			out = append(out, filepath.ToSlash(filepath.Join(outDir, entry.Name())))
		}
	}
	sort.Strings(out)
	return out, nil
}
