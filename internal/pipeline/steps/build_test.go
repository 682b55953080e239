package steps

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	relerrors "github.com/hydragram/releaser/internal/errors"
	"github.com/hydragram/releaser/internal/testutil"
)

func TestBuild_CollectsArtifacts(t *testing.T) {
	runner := testutil.NewFakeRunner().
		On(testPython+" -m build", writeArtifacts(t, "hydragram-1.2.3.tar.gz", "hydragram-1.2.3-py3-none-any.whl"))
	exec := NewBuildExecutor(testDeps(runner, nil), BuildOptions{})
	run := provisioned(t)

	res, err := exec.Execute(context.Background(), run, &run.Definitions[4])
	require.NoError(t, err)
	assert.Equal(t, []string{testPython + " -m build --outdir dist ."}, res.Commands)
	assert.Equal(t, []string{"dist/hydragram-1.2.3-py3-none-any.whl", "dist/hydragram-1.2.3.tar.gz"}, run.State.Artifacts)
	assert.Equal(t, run.State.Workspace, runner.Calls()[0].Dir)
}

func TestBuild_NonZeroExit(t *testing.T) {
	runner := testutil.NewFakeRunner().Fail(testPython+" -m build", 1, "ERROR Backend subprocess exited")
	exec := NewBuildExecutor(testDeps(runner, nil), BuildOptions{})
	run := provisioned(t)

	res, err := exec.Execute(context.Background(), run, &run.Definitions[4])
	require.ErrorIs(t, err, relerrors.ErrBuildFailed)
	require.ErrorIs(t, err, relerrors.ErrCommandFailed)
	assert.Equal(t, 1, res.ExitCode)
	assert.Contains(t, res.Output, "Backend subprocess exited")
	assert.Empty(t, run.State.Artifacts)
}

func TestBuild_NoArtifacts(t *testing.T) {
	exec := NewBuildExecutor(testDeps(testutil.NewFakeRunner(), nil), BuildOptions{})
	run := provisioned(t)

	_, err := exec.Execute(context.Background(), run, &run.Definitions[4])
	require.ErrorIs(t, err, relerrors.ErrBuildFailed)
	require.ErrorIs(t, err, relerrors.ErrNoArtifacts)
}

func TestBuild_CustomOutDir(t *testing.T) {
	runner := testutil.NewFakeRunner().On(testPython+" -m build --outdir out", writeArtifacts(t))
	exec := NewBuildExecutor(testDeps(runner, nil), BuildOptions{OutDir: "out"})
	run := provisioned(t)
	touch(t, run.State.Workspace, "out/pkg-1.0.tar.gz")

	_, err := exec.Execute(context.Background(), run, &run.Definitions[4])
	require.NoError(t, err)
	assert.Equal(t, []string{"out/pkg-1.0.tar.gz"}, run.State.Artifacts)
}

func TestListArtifacts_RegularFilesOnly(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "dist/b.whl", "dist/a.tar.gz", "dist/sub/nested.whl")

	got, err := ListArtifacts(root, "dist")
	require.NoError(t, err)
	assert.Equal(t, []string{"dist/a.tar.gz", "dist/b.whl"}, got)

	got, err = ListArtifacts(t.TempDir(), "dist")
	require.NoError(t, err)
	assert.Empty(t, got)

	file := filepath.Join(t.TempDir(), "dist")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
	_, err = ListArtifacts(filepath.Dir(file), "dist")
	require.Error(t, err)
}

func TestBuild_RequiresState(t *testing.T) {
	exec := NewBuildExecutor(testDeps(testutil.NewFakeRunner(), nil), BuildOptions{})
	run := newTestRun(t)
	_, err := exec.Execute(context.Background(), run, &run.Definitions[4])
	require.ErrorIs(t, err, relerrors.ErrBuildFailed)
}
