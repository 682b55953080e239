package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydragram/releaser/internal/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// isolate points RELEASER_HOME and the working directory at fresh temp dirs.
func isolate(t *testing.T) (home, project string) {
	t.Helper()
	home = t.TempDir()
	project = filepath.Join(t.TempDir(), "hydragram")
	require.NoError(t, os.MkdirAll(project, 0o750))
	t.Setenv("RELEASER_HOME", home)
	t.Chdir(project)
	return home, project
}

func TestLoad_ReturnsDefaultsWhenNoConfigFile(t *testing.T) {
	isolate(t)

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	want := DefaultConfig()
	want.Package.Name = "hydragram"
	assert.Equal(t, want, cfg)
}

func TestLoad_MergesGlobalAndProjectConfigs(t *testing.T) {
	home, project := isolate(t)

	writeFile(t, filepath.Join(home, "config.yaml"), `
publish:
  secret_name: GLOBAL_TOKEN
  repository_url: https://test.pypi.org/legacy/
lock:
  backend: none
`)
	writeFile(t, filepath.Join(project, ".releaser", "config.yaml"), `
package:
  name: hydragram-sdk
publish:
  secret_name: PROJECT_TOKEN
trigger:
  tags: ["release-*"]
`)

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "hydragram-sdk", cfg.Package.Name)
	assert.Equal(t, "PROJECT_TOKEN", cfg.Publish.SecretName, "project overrides global")
	assert.Equal(t, "https://test.pypi.org/legacy/", cfg.Publish.RepositoryURL, "global survives where project is silent")
	assert.Equal(t, "none", cfg.Lock.Backend)
	assert.Equal(t, []string{"release-*"}, cfg.Trigger.Tags)
	assert.Equal(t, []string{"main"}, cfg.Trigger.Branches, "nested keys merge")
}

func TestLoad_EnvVarOverridesConfigFile(t *testing.T) {
	_, project := isolate(t)
	writeFile(t, filepath.Join(project, ".releaser", "config.yaml"), `
runtime:
  python_version: "3.11"
step_timeout: 10m
`)
	t.Setenv("RELEASER_RUNTIME_PYTHON_VERSION", "3.12")
	t.Setenv("RELEASER_STEP_TIMEOUT", "45s")
	t.Setenv("RELEASER_TRIGGER_BRANCHES", "main,release/*")

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "3.12", cfg.Runtime.PythonVersion)
	assert.Equal(t, 45*time.Second, cfg.StepTimeout)
	assert.Equal(t, []string{"main", "release/*"}, cfg.Trigger.Branches)
}

func TestLoad_InvalidProjectConfigFails(t *testing.T) {
	_, project := isolate(t)
	writeFile(t, filepath.Join(project, ".releaser", "config.yaml"), `
lock:
  backend: zookeeper
`)

	_, err := Load(context.Background())
	require.ErrorIs(t, err, errors.ErrConfigInvalidLock)
}

func TestLoadFromPaths_DurationParsing(t *testing.T) {
	dir := t.TempDir()
	project := filepath.Join(dir, "project.yaml")
	writeFile(t, project, `
package:
  name: demo
step_timeout: 90s
lock:
  backend: redis
  redis_url: redis://localhost:6379/0
  ttl: 15m
`)

	cfg, err := LoadFromPaths(context.Background(), project, "")
	require.NoError(t, err)

	assert.Equal(t, 90*time.Second, cfg.StepTimeout)
	assert.Equal(t, 15*time.Minute, cfg.Lock.TTL)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Lock.RedisURL)
}

func TestLoadFromPaths_MissingFilesUseDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadFromPaths(context.Background(),
		filepath.Join(dir, "missing-project.yaml"),
		filepath.Join(dir, "missing-global.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "3.10", cfg.Runtime.PythonVersion)
	assert.NotEmpty(t, cfg.Package.Name)
}

func TestLoadFromPaths_InvalidConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	writeFile(t, path, "package: [unterminated\n")

	_, err := LoadFromPaths(context.Background(), path, "")
	require.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "release.yaml")
	writeFile(t, path, `
package:
  name: explicit
publish:
  secret_dir: /run/secrets
`)

	cfg, err := LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "explicit", cfg.Package.Name)
	assert.Equal(t, "/run/secrets", cfg.Publish.SecretDir)

	_, err = LoadFile(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadWithOverrides_AppliesCLIOverrides(t *testing.T) {
	isolate(t)

	cfg, err := LoadWithOverrides(context.Background(), &Config{
		Package:  PackageConfig{Name: "override"},
		Checkout: CheckoutConfig{Repo: "https://github.com/hydragram/hydragram.git", Depth: 5},
		Runtime:  RuntimeConfig{Venv: true},
		Publish:  PublishConfig{SecretName: "OTHER_TOKEN"},
	})
	require.NoError(t, err)

	assert.Equal(t, "override", cfg.Package.Name)
	assert.Equal(t, "https://github.com/hydragram/hydragram.git", cfg.Checkout.Repo)
	assert.Equal(t, 5, cfg.Checkout.Depth)
	assert.True(t, cfg.Runtime.Venv)
	assert.Equal(t, "OTHER_TOKEN", cfg.Publish.SecretName)
	assert.Equal(t, "__token__", cfg.Publish.Username, "untouched fields keep their defaults")
}

func TestLoadWithOverrides_NilOverrides(t *testing.T) {
	isolate(t)
	cfg, err := LoadWithOverrides(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "hydragram", cfg.Package.Name)
}

func TestOverride_RevalidatesResult(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Package.Name = "demo"

	_, err := Override(cfg, &Config{Runtime: RuntimeConfig{PythonVersion: "three"}})
	require.ErrorIs(t, err, errors.ErrConfigInvalidRuntime)
}

func TestPackageNameFromDir(t *testing.T) {
	tests := []struct {
		dir  string
		want string
	}{
		{"/src/hydragram", "hydragram"},
		{"/src/Hydragram SDK", "hydragram-sdk"},
		{"/src/.hidden", "hidden"},
		{"/", "package"},
		{"", "package"},
	}
	for _, tt := range tests {
		t.Run(tt.dir, func(t *testing.T) {
			assert.Equal(t, tt.want, PackageNameFromDir(tt.dir))
		})
	}
}
