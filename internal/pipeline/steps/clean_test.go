package steps

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	relerrors "github.com/hydragram/releaser/internal/errors"
)

func TestClean_RemovesStaleOutputs(t *testing.T) {
	ws := t.TempDir()
	touch(t, ws,
		"dist/old-0.9.0.tar.gz",
		"dist/old-0.9.0-py3-none-any.whl",
		"build/lib/pkg/__init__.py",
		"hydragram.egg-info/PKG-INFO",
		"src/hydragram.egg-info/PKG-INFO",
		".git/weird.egg-info/keep",
		"src/hydragram/__init__.py",
		"pyproject.toml",
	)

	removed, err := Clean(ws, DefaultCleanPaths)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"build", "dist", "hydragram.egg-info", "src/hydragram.egg-info"}, removed)

	assert.NoDirExists(t, filepath.Join(ws, "dist"))
	assert.NoDirExists(t, filepath.Join(ws, "build"))
	assert.NoDirExists(t, filepath.Join(ws, "hydragram.egg-info"))
	assert.NoDirExists(t, filepath.Join(ws, "src", "hydragram.egg-info"))
	assert.FileExists(t, filepath.Join(ws, "src", "hydragram", "__init__.py"))
	assert.FileExists(t, filepath.Join(ws, "pyproject.toml"))
	assert.FileExists(t, filepath.Join(ws, ".git", "weird.egg-info", "keep"), ".git is never touched")
}

func TestClean_IdempotentAndAbsentPathsOK(t *testing.T) {
	ws := t.TempDir()

	removed, err := Clean(ws, DefaultCleanPaths)
	require.NoError(t, err, "nothing to clean is success")
	assert.Empty(t, removed)

	touch(t, ws, "dist/a.whl")
	_, err = Clean(ws, DefaultCleanPaths)
	require.NoError(t, err)
	removed, err = Clean(ws, DefaultCleanPaths)
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestClean_RefusesEscapes(t *testing.T) {
	ws := t.TempDir()
	for _, pattern := range []string{"../outside", "/etc", "a/../../b", ".", "**", ""} {
		_, err := Clean(ws, []string{pattern})
		require.Error(t, err, pattern)
		if pattern != "" {
			require.ErrorIs(t, err, relerrors.ErrPathTraversal, pattern)
		}
	}
}

func TestCleanExecutor_Execute(t *testing.T) {
	run := provisioned(t)
	run.State.Artifacts = []string{"dist/stale.whl"}
	touch(t, run.State.Workspace, "dist/stale.whl", "pkg.egg-info/PKG-INFO")

	exec := NewCleanExecutor(CleanOptions{})
	res, err := exec.Execute(context.Background(), run, &run.Definitions[3])
	require.NoError(t, err)
	assert.Contains(t, res.Output, "dist")
	assert.Equal(t, []string{"rm -rf dist build **/*.egg-info"}, res.Commands)
	assert.Empty(t, run.State.Artifacts, "stale artifact list dropped")
	assert.NoDirExists(t, filepath.Join(run.State.Workspace, "dist"))
}

func TestCleanExecutor_AlwaysRemovesOutDir(t *testing.T) {
	run := provisioned(t)
	touch(t, run.State.Workspace, "out/pkg-0.0.1.tar.gz", "dist/old.whl")

	exec := NewCleanExecutor(CleanOptions{OutDir: "out"})
	res, err := exec.Execute(context.Background(), run, &run.Definitions[3])
	require.NoError(t, err)
	assert.Equal(t, []string{"rm -rf dist build **/*.egg-info out"}, res.Commands)
	assert.NoDirExists(t, filepath.Join(run.State.Workspace, "out"))
	assert.NoDirExists(t, filepath.Join(run.State.Workspace, "dist"))

	listed := NewCleanExecutor(CleanOptions{Paths: []string{"out/", "build"}, OutDir: "out"})
	assert.Equal(t, []string{"rm -rf out/ build"}, listed.Describe(run), "outdir already listed")
	assert.Equal(t, []string{"dist", "build", "**/*.egg-info"}, DefaultCleanPaths, "defaults untouched")
}

func TestCleanExecutor_RequiresWorkspace(t *testing.T) {
	run := newTestRun(t)
	_, err := NewCleanExecutor(CleanOptions{}).Execute(context.Background(), run, &run.Definitions[3])
	require.ErrorIs(t, err, relerrors.ErrCleanFailed)
	require.ErrorIs(t, err, relerrors.ErrWorkspaceMissing)
}

func TestCleanExecutor_TraversalFailsStep(t *testing.T) {
	run := provisioned(t)
	_, err := NewCleanExecutor(CleanOptions{Paths: []string{"../x"}}).Execute(context.Background(), run, &run.Definitions[3])
	require.ErrorIs(t, err, relerrors.ErrCleanFailed)
	require.ErrorIs(t, err, relerrors.ErrPathTraversal)
}
