package steps

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar"

	"github.com/hydragram/releaser/internal/constants"
	relerrors "github.com/hydragram/releaser/internal/errors"
	"github.com/hydragram/releaser/internal/pipeline"
)

// DefaultCleanPaths are removed before every build.
var DefaultCleanPaths = []string{constants.DistDir, constants.BuildDir, constants.EggInfoPattern}

// CleanOptions configure the clean step.
type CleanOptions struct {
	// Paths are workspace relative paths or doublestar patterns.
	// Empty means DefaultCleanPaths.
	Paths []string
	// OutDir is the build output directory. It is always removed, even
	// when Paths does not name it.
	OutDir string
}

// CleanExecutor deletes stale build outputs so every build starts clean.
type CleanExecutor struct {
	opts CleanOptions
}

// NewCleanExecutor creates the clean executor.
func NewCleanExecutor(opts CleanOptions) *CleanExecutor {
	paths := opts.Paths
	if len(paths) == 0 {
		paths = DefaultCleanPaths
	}
	opts.Paths = withOutDir(paths, opts.OutDir)
	return &CleanExecutor{opts: opts}
}

// Type implements pipeline.Executor.
func (e *CleanExecutor) Type() pipeline.StepType {
	return pipeline.StepTypeClean
}

// withOutDir returns paths with outDir appended unless already listed.
func withOutDir(paths []string, outDir string) []string {
	out := append([]string(nil), paths...)
	if outDir == "" {
		return out
	}
	clean := filepath.ToSlash(filepath.Clean(outDir))
	for _, p := range out {
		if filepath.ToSlash(filepath.Clean(p)) == clean {
			return out
		}
	}
	return append(out, outDir)
}

// Execute implements pipeline.Executor.
func (e *CleanExecutor) Execute(ctx context.Context, run *pipeline.Run, _ *pipeline.StepDefinition) (*pipeline.StepResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res := &pipeline.StepResult{Commands: e.Describe(run)}

	ws, err := requireWorkspace(run, relerrors.ErrCleanFailed)
	if err != nil {
		return res, err
	}

	removed, err := Clean(ws, e.opts.Paths)
	if len(removed) > 0 {
		res.Output = "removed " + strings.Join(removed, ", ")
	}
	if err != nil {
		return res, stepError(relerrors.ErrCleanFailed, "%w", err)
	}
	run.State.Artifacts = nil
	return res, nil
}

// Describe implements pipeline.Describer.
func (e *CleanExecutor) Describe(*pipeline.Run) []string {
	return []string{"rm -rf " + strings.Join(e.opts.Paths, " ")}
}

// Clean removes every path or pattern match under root and returns the
// removed paths relative to root. Missing paths are not an error, so
// cleaning twice is the same as cleaning once. Patterns may not reach
// outside root.
func Clean(root string, patterns []string) ([]string, error) {
	var targets []string
	for _, pattern := range patterns {
		if err := checkCleanPattern(pattern); err != nil {
			return nil, err
		}
		if !hasGlobMeta(pattern) {
			targets = append(targets, filepath.FromSlash(pattern))
			continue
		}
		matches, err := globUnder(root, pattern)
		if err != nil {
			return nil, err
		}
		targets = append(targets, matches...)
	}

	sort.Strings(targets)
	var removed []string
	for _, rel := range targets {
		path := filepath.Join(root, rel)
		if _, err := os.Lstat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			return removed, fmt.Errorf("remove %s: %w", rel, err)
		}
		removed = append(removed, filepath.ToSlash(rel))
	}
	return removed, nil
}

// checkCleanPattern refuses absolute paths and parent references.
func checkCleanPattern(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("clean path %w", relerrors.ErrEmptyValue)
	}
	slashed := filepath.ToSlash(pattern)
	if filepath.IsAbs(pattern) || strings.HasPrefix(slashed, "/") {
		return fmt.Errorf("clean path %q: %w", pattern, relerrors.ErrPathTraversal)
	}
	for _, part := range strings.Split(slashed, "/") {
		if part == ".." {
			return fmt.Errorf("clean path %q: %w", pattern, relerrors.ErrPathTraversal)
		}
	}
	if slashed == "." || slashed == "**" {
		return fmt.Errorf("clean path %q would remove the workspace: %w", pattern, relerrors.ErrPathTraversal)
	}
	return nil
}

func hasGlobMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

// globUnder walks root and returns relative paths matching pattern.
// Matched directories are not descended into and .git is never visited.
func globUnder(root, pattern string) ([]string, error) {
	bare := strings.TrimPrefix(pattern, "**/")
	var matches []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if path == root {
			return nil
		}
		if d.IsDir() && d.Name() == ".git" {
			return filepath.SkipDir
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		slashed := filepath.ToSlash(rel)

		ok, err := doublestar.Match(pattern, slashed)
		if err != nil {
			return fmt.Errorf("clean pattern %q: %w", pattern, err)
		}
		// A leading **/ also matches at the top level.
		if !ok && bare != pattern && !strings.Contains(slashed, "/") {
			ok, _ = doublestar.Match(bare, slashed)
		}
		if !ok {
			return nil
		}

		matches = append(matches, rel)
		if d.IsDir() {
			return filepath.SkipDir
		}
		return nil
	})
	return matches, err
}
