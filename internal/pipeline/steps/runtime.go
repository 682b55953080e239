package steps

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/blang/semver"
	"github.com/rs/zerolog"

	"github.com/hydragram/releaser/internal/command"
	"github.com/hydragram/releaser/internal/constants"
	relerrors "github.com/hydragram/releaser/internal/errors"
	"github.com/hydragram/releaser/internal/pipeline"
)

// pythonVersionRegex extracts X.Y[.Z] from "Python 3.10.14".
var pythonVersionRegex = regexp.MustCompile(`Python (\d+)\.(\d+)(?:\.(\d+))?`)

// RuntimeOptions configure the setup_runtime step.
type RuntimeOptions struct {
	// PythonVersion is the pinned major.minor version. Empty means 3.10.
	PythonVersion string
	// Interpreter, when set, is the only interpreter considered.
	Interpreter string
	// Venv creates an isolated virtual environment from the interpreter so
	// tool installation never touches the system site-packages.
	Venv bool
}

// SetupRuntimeExecutor resolves a Python interpreter of the pinned version.
type SetupRuntimeExecutor struct {
	tools    toolRunner
	opts     RuntimeOptions
	lookPath func(string) (string, error)
	tempDir  string
}

// NewSetupRuntimeExecutor creates the setup_runtime executor.
func NewSetupRuntimeExecutor(deps Deps, opts RuntimeOptions) *SetupRuntimeExecutor {
	if opts.PythonVersion == "" {
		opts.PythonVersion = constants.DefaultPythonVersion
	}
	lookPath := deps.LookPath
	if lookPath == nil {
		lookPath = command.LookPath
	}
	return &SetupRuntimeExecutor{tools: newToolRunner(deps), opts: opts, lookPath: lookPath, tempDir: deps.TempDir}
}

// Type implements pipeline.Executor.
func (e *SetupRuntimeExecutor) Type() pipeline.StepType {
	return pipeline.StepTypeSetupRuntime
}

// Candidates returns the interpreter names tried, in order.
func (e *SetupRuntimeExecutor) Candidates() []string {
	if e.opts.Interpreter != "" {
		return []string{e.opts.Interpreter}
	}
	return []string{"python" + e.opts.PythonVersion, "python3", "python"}
}

// Execute implements pipeline.Executor. The first candidate on PATH whose
// version matches the pin wins.
func (e *SetupRuntimeExecutor) Execute(ctx context.Context, run *pipeline.Run, _ *pipeline.StepDefinition) (*pipeline.StepResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := zerolog.Ctx(ctx)
	res := &pipeline.StepResult{}

	want, err := semver.ParseTolerant(e.opts.PythonVersion)
	if err != nil {
		return res, stepError(relerrors.ErrProvisionFailed, "python version %q: %w", e.opts.PythonVersion, relerrors.ErrConfigInvalidRuntime)
	}

	var found []string
	for _, name := range e.Candidates() {
		path, err := e.lookPath(name)
		if err != nil {
			continue
		}

		out, err := e.tools.run(ctx, res, command.Spec{Name: path, Args: []string{"--version"}})
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			log.Debug().Err(err).Str("interpreter", path).Msg("interpreter did not report a version")
			continue
		}

		got, err := ParsePythonVersion(out.Output())
		if err != nil {
			found = append(found, path+" (unknown version)")
			continue
		}
		if got.Major != want.Major || got.Minor != want.Minor {
			found = append(found, fmt.Sprintf("%s (%s)", path, got))
			continue
		}

		run.State.Interpreter = path
		run.State.RuntimeVersion = got.String()
		if e.opts.Venv {
			if err := e.createVenv(ctx, run, res, path); err != nil {
				return res, err
			}
		}
		log.Info().Str("interpreter", run.State.Interpreter).Str("version", run.State.RuntimeVersion).Msg("python runtime ready")
		return res, nil
	}

	if len(found) == 0 {
		return res, stepError(relerrors.ErrProvisionFailed, "no python interpreter among %s: %w",
			strings.Join(e.Candidates(), ", "), relerrors.ErrToolNotFound)
	}
	return res, stepError(relerrors.ErrProvisionFailed, "need python %d.%d, found %s: %w",
		want.Major, want.Minor, strings.Join(found, ", "), relerrors.ErrRuntimeVersionMismatch)
}

// createVenv makes a throwaway virtual environment and switches the run
// to its interpreter.
func (e *SetupRuntimeExecutor) createVenv(ctx context.Context, run *pipeline.Run, res *pipeline.StepResult, base string) error {
	dir, err := os.MkdirTemp(e.tempDir, "releaser-venv-")
	if err != nil {
		return stepError(relerrors.ErrProvisionFailed, "create venv directory: %w", err)
	}
	run.AddCleanup(func() error { return os.RemoveAll(dir) })

	if _, err := e.tools.run(ctx, res, command.Spec{Name: base, Args: []string{"-m", "venv", dir}}); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return stepError(relerrors.ErrProvisionFailed, "create venv: %w", err)
	}
	run.State.Interpreter = VenvPython(dir)
	return nil
}

// Describe implements pipeline.Describer.
func (e *SetupRuntimeExecutor) Describe(*pipeline.Run) []string {
	cmds := []string{
		fmt.Sprintf("find %s (python %s)", strings.Join(e.Candidates(), " | "), e.opts.PythonVersion),
		"<python> --version",
	}
	if e.opts.Venv {
		cmds = append(cmds, "<python> -m venv <tmp>")
	}
	return cmds
}

// ParsePythonVersion reads the version from `python --version` output.
func ParsePythonVersion(output string) (semver.Version, error) {
	m := pythonVersionRegex.FindStringSubmatch(output)
	if m == nil {
		return semver.Version{}, fmt.Errorf("no python version in %q: %w", strings.TrimSpace(output), relerrors.ErrRuntimeVersionMismatch)
	}
	v := m[1] + "." + m[2]
	if m[3] != "" {
		v += "." + m[3]
	}
	return semver.ParseTolerant(v)
}

// VenvPython returns the interpreter path inside a virtual environment.
func VenvPython(dir string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(dir, "Scripts", "python.exe")
	}
	return filepath.Join(dir, "bin", "python")
}
