package config

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydragram/releaser/internal/errors"
	"github.com/hydragram/releaser/internal/secret"
)

func TestStepOptions_InPlaceByDefault(t *testing.T) {
	t.Parallel()

	opts := validConfig().StepOptions()
	assert.Equal(t, ".", opts.Checkout.Workspace)
	assert.Empty(t, opts.Checkout.RepoURL)
	assert.Equal(t, "origin", opts.Checkout.Remote)
	assert.Equal(t, "3.10", opts.Runtime.PythonVersion)
	assert.Equal(t, []string{"build", "twine"}, opts.Tools.Packages)
	assert.True(t, opts.Tools.UpgradeInstaller)
	assert.Equal(t, []string{"dist", "build", "**/*.egg-info"}, opts.Clean.Paths)
	assert.Equal(t, "dist", opts.Build.OutDir)
	assert.Equal(t, "dist", opts.Clean.OutDir)
	assert.Equal(t, "PYPI_API_TOKEN", opts.Publish.SecretName)
	assert.Equal(t, "__token__", opts.Publish.Username)
}

func TestStepOptions_CustomOutDirIsCleaned(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Build.OutDir = "out"
	opts := cfg.StepOptions()
	assert.Equal(t, "out", opts.Build.OutDir)
	assert.Equal(t, "out", opts.Clean.OutDir)
}

func TestStepOptions_RepoSelectsFetchMode(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Checkout.Repo = "https://github.com/hydragram/hydragram.git"
	opts := cfg.StepOptions()
	assert.Empty(t, opts.Checkout.Workspace)
	assert.Equal(t, cfg.Checkout.Repo, opts.Checkout.RepoURL)
	assert.Equal(t, 1, opts.Checkout.Depth)
}

func TestLockOptions(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	opts := cfg.LockOptions("/var/lib/releaser")
	assert.Equal(t, "file", opts.Backend)
	assert.Equal(t, filepath.Join("/var/lib/releaser", "locks"), opts.Dir)

	cfg.Lock.Dir = "/tmp/locks"
	assert.Equal(t, "/tmp/locks", cfg.LockOptions("/var/lib/releaser").Dir)
}

func TestSecretStore_EnvThenDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "PYPI_API_TOKEN"), "pypi-from-file\n")

	cfg := validConfig()
	cfg.Publish.SecretDir = dir
	store := cfg.SecretStore()

	t.Setenv("PYPI_API_TOKEN", "")
	v, err := store.Lookup(context.Background(), "PYPI_API_TOKEN")
	require.NoError(t, err)
	assert.Equal(t, "pypi-from-file", v.Reveal())

	t.Setenv("PYPI_API_TOKEN", "pypi-from-env")
	v, err = store.Lookup(context.Background(), "PYPI_API_TOKEN")
	require.NoError(t, err)
	assert.Equal(t, "pypi-from-env", v.Reveal())
}

func TestSecretStore_EnvOnly(t *testing.T) {
	t.Setenv("RELEASER_TEST_ABSENT_SECRET", "")

	store := validConfig().SecretStore()
	chain, ok := store.(secret.Chain)
	require.True(t, ok)
	assert.Len(t, chain, 1)

	_, err := store.Lookup(context.Background(), "RELEASER_TEST_ABSENT_SECRET")
	require.ErrorIs(t, err, errors.ErrSecretNotFound)
}
