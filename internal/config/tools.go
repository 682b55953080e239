// This file implements the tool detection behind `releaser doctor`.

package config

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/blang/semver"
	"golang.org/x/sync/errgroup"

	"github.com/hydragram/releaser/internal/command"
	"github.com/hydragram/releaser/internal/constants"
	"github.com/hydragram/releaser/internal/pipeline/steps"
)

//nolint:gochecknoglobals // compiled once
var gitVersionRe = regexp.MustCompile(`git version (\d+\.\d+(?:\.\d+)?)`)

// MinVersionGit is the oldest git whose fetch-by-SHA we rely on.
const MinVersionGit = "2.20.0"

// ToolStatus represents the installation status of an external tool.
type ToolStatus int

const (
	// ToolStatusMissing indicates the tool is not installed.
	ToolStatusMissing ToolStatus = iota

	// ToolStatusInstalled indicates the tool is installed and meets version requirements.
	ToolStatusInstalled

	// ToolStatusOutdated indicates the tool is installed but below the minimum version.
	ToolStatusOutdated

	// ToolStatusMismatch indicates an interpreter exists but not at the pinned version.
	ToolStatusMismatch
)

// String returns a human-readable representation of the tool status.
func (s ToolStatus) String() string {
	switch s {
	case ToolStatusInstalled:
		return "installed"
	case ToolStatusMissing:
		return "missing"
	case ToolStatusOutdated:
		return "outdated"
	case ToolStatusMismatch:
		return "mismatch"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler for JSON output.
func (s ToolStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// OK reports whether the tool is usable.
func (s ToolStatus) OK() bool {
	return s == ToolStatusInstalled
}

// Tool represents an external tool that releaser depends on.
type Tool struct {
	// Name is the tool identifier (e.g., "git", "python").
	Name string `json:"name"`

	// Path is the resolved executable, when found.
	Path string `json:"path,omitempty"`

	// Required indicates if the tool is mandatory for a run.
	Required bool `json:"required"`

	// MinVersion is the minimum or pinned version.
	MinVersion string `json:"min_version,omitempty"`

	// CurrentVersion is the detected installed version.
	CurrentVersion string `json:"current_version,omitempty"`

	// Status is the current installation status.
	Status ToolStatus `json:"status"`

	// InstallHint provides installation instructions for missing tools.
	InstallHint string `json:"install_hint,omitempty"`
}

// ToolDetectionResult holds the results of detecting all tools.
type ToolDetectionResult struct {
	// Tools contains the detection result for each tool, in a fixed order.
	Tools []Tool `json:"tools"`

	// HasMissingRequired indicates if any required tool is unusable.
	HasMissingRequired bool `json:"has_missing_required"`
}

// MissingRequiredTools returns the required tools that are not usable.
func (r *ToolDetectionResult) MissingRequiredTools() []Tool {
	var missing []Tool
	for _, tool := range r.Tools {
		if tool.Required && !tool.Status.OK() {
			missing = append(missing, tool)
		}
	}
	return missing
}

// ToolDetector detects the external tools a run needs.
type ToolDetector struct {
	runner   command.Runner
	lookPath func(string) (string, error)
	runtime  RuntimeConfig
}

// NewToolDetector creates a detector. Nil lookPath means command.LookPath.
func NewToolDetector(runner command.Runner, lookPath func(string) (string, error), runtime RuntimeConfig) *ToolDetector {
	if lookPath == nil {
		lookPath = command.LookPath
	}
	if runtime.PythonVersion == "" {
		runtime.PythonVersion = constants.DefaultPythonVersion
	}
	return &ToolDetector{runner: runner, lookPath: lookPath, runtime: runtime}
}

// Detect checks every tool in parallel within ToolDetectionTimeout.
func (d *ToolDetector) Detect(ctx context.Context) (*ToolDetectionResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	detectCtx, cancel := context.WithTimeout(ctx, constants.ToolDetectionTimeout)
	defer cancel()

	probes := []func(context.Context) Tool{d.detectGit, d.detectPython}
	result := &ToolDetectionResult{Tools: make([]Tool, len(probes))}

	g, gCtx := errgroup.WithContext(detectCtx)
	for i, probe := range probes {
		g.Go(func() error {
			// Each probe owns one slot.
			result.Tools[i] = probe(gCtx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to detect tools: %w", err)
	}

	result.HasMissingRequired = len(result.MissingRequiredTools()) > 0
	return result, nil
}

func (d *ToolDetector) detectGit(ctx context.Context) Tool {
	tool := Tool{
		Name:        constants.ToolGit,
		Required:    true,
		MinVersion:  MinVersionGit,
		Status:      ToolStatusMissing,
		InstallHint: "Install Git from https://git-scm.com/downloads (version 2.20+)",
	}

	path, err := d.lookPath(constants.ToolGit)
	if err != nil {
		return tool
	}
	tool.Path = path

	res, err := d.runner.Run(ctx, command.Spec{Name: path, Args: []string{"--version"}})
	if err != nil {
		tool.Status = ToolStatusInstalled
		tool.CurrentVersion = "unknown"
		return tool
	}

	m := gitVersionRe.FindStringSubmatch(res.Output())
	if m == nil {
		tool.Status = ToolStatusInstalled
		tool.CurrentVersion = "unknown"
		return tool
	}
	tool.CurrentVersion = m[1]
	if CompareVersions(tool.CurrentVersion, MinVersionGit) < 0 {
		tool.Status = ToolStatusOutdated
	} else {
		tool.Status = ToolStatusInstalled
	}
	return tool
}

// detectPython tries the same candidates as the setup_runtime step.
func (d *ToolDetector) detectPython(ctx context.Context) Tool {
	tool := Tool{
		Name:        constants.ToolPython,
		Required:    true,
		MinVersion:  d.runtime.PythonVersion,
		Status:      ToolStatusMissing,
		InstallHint: "Install Python " + d.runtime.PythonVersion + " or set runtime.interpreter",
	}

	rt := steps.NewSetupRuntimeExecutor(steps.Deps{Runner: d.runner, LookPath: d.lookPath}, steps.RuntimeOptions{
		PythonVersion: d.runtime.PythonVersion,
		Interpreter:   d.runtime.Interpreter,
	})
	want, err := semver.ParseTolerant(d.runtime.PythonVersion)
	if err != nil {
		return tool
	}

	for _, name := range rt.Candidates() {
		path, err := d.lookPath(name)
		if err != nil {
			continue
		}
		res, err := d.runner.Run(ctx, command.Spec{Name: path, Args: []string{"--version"}})
		if err != nil {
			continue
		}
		got, err := steps.ParsePythonVersion(res.Output())
		if err != nil {
			continue
		}
		if got.Major == want.Major && got.Minor == want.Minor {
			tool.Path = path
			tool.CurrentVersion = got.String()
			tool.Status = ToolStatusInstalled
			return tool
		}
		if tool.Status == ToolStatusMissing {
			tool.Path = path
			tool.CurrentVersion = got.String()
			tool.Status = ToolStatusMismatch
		}
	}
	return tool
}

// CompareVersions compares two versions tolerantly (missing parts are zero,
// a leading v is ignored). Unparsable versions compare as 0.0.0.
// Returns -1, 0 or 1.
func CompareVersions(current, required string) int {
	return parseTolerant(current).Compare(parseTolerant(required))
}

func parseTolerant(v string) semver.Version {
	parsed, err := semver.ParseTolerant(strings.TrimSpace(v))
	if err != nil {
		return semver.Version{}
	}
	return parsed
}

// FormatMissingToolsError builds a user message for unusable required tools.
func FormatMissingToolsError(missing []Tool) string {
	if len(missing) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("required tools are missing or unusable:\n")
	for _, t := range missing {
		fmt.Fprintf(&b, "  - %s (%s)", t.Name, t.Status)
		if t.CurrentVersion != "" {
			fmt.Fprintf(&b, " found %s", t.CurrentVersion)
		}
		if t.InstallHint != "" {
			fmt.Fprintf(&b, ": %s", t.InstallHint)
		}
		b.WriteString("\n")
	}
	return b.String()
}
