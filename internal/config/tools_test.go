package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydragram/releaser/internal/errors"
	"github.com/hydragram/releaser/internal/testutil"
)

func lookPathFor(paths map[string]string) func(string) (string, error) {
	return func(name string) (string, error) {
		if p, ok := paths[name]; ok {
			return p, nil
		}
		return "", errors.ErrToolNotFound
	}
}

func TestToolDetector_AllInstalled(t *testing.T) {
	t.Parallel()

	runner := testutil.NewFakeRunner().
		Stdout("/usr/bin/git --version", "git version 2.43.0\n").
		Stdout("/usr/bin/python3.10 --version", "Python 3.10.14\n")
	lookPath := lookPathFor(map[string]string{
		"git":        "/usr/bin/git",
		"python3.10": "/usr/bin/python3.10",
	})

	result, err := NewToolDetector(runner, lookPath, RuntimeConfig{PythonVersion: "3.10"}).Detect(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Tools, 2)
	assert.Equal(t, "git", result.Tools[0].Name)
	assert.Equal(t, ToolStatusInstalled, result.Tools[0].Status)
	assert.Equal(t, "2.43.0", result.Tools[0].CurrentVersion)
	assert.Equal(t, "python", result.Tools[1].Name)
	assert.Equal(t, ToolStatusInstalled, result.Tools[1].Status)
	assert.Equal(t, "/usr/bin/python3.10", result.Tools[1].Path)
	assert.Equal(t, "3.10.14", result.Tools[1].CurrentVersion)
	assert.False(t, result.HasMissingRequired)
	assert.Empty(t, result.MissingRequiredTools())
}

func TestToolDetector_PythonMismatchFallsThroughCandidates(t *testing.T) {
	t.Parallel()

	runner := testutil.NewFakeRunner().
		Stdout("/usr/bin/git --version", "git version 2.43.0").
		Stdout("/usr/bin/python3 --version", "Python 3.12.1").
		Stdout("/usr/local/bin/python --version", "Python 3.10.9")
	lookPath := lookPathFor(map[string]string{
		"git":     "/usr/bin/git",
		"python3": "/usr/bin/python3",
		"python":  "/usr/local/bin/python",
	})

	result, err := NewToolDetector(runner, lookPath, RuntimeConfig{}).Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ToolStatusInstalled, result.Tools[1].Status)
	assert.Equal(t, "/usr/local/bin/python", result.Tools[1].Path)
}

func TestToolDetector_MissingAndOutdated(t *testing.T) {
	t.Parallel()

	runner := testutil.NewFakeRunner().
		Stdout("/usr/bin/git --version", "git version 2.17.1").
		Stdout("/usr/bin/python3 --version", "Python 3.8.10")
	lookPath := lookPathFor(map[string]string{
		"git":     "/usr/bin/git",
		"python3": "/usr/bin/python3",
	})

	result, err := NewToolDetector(runner, lookPath, RuntimeConfig{PythonVersion: "3.10"}).Detect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, ToolStatusOutdated, result.Tools[0].Status)
	assert.Equal(t, ToolStatusMismatch, result.Tools[1].Status)
	assert.Equal(t, "3.8.10", result.Tools[1].CurrentVersion)
	assert.True(t, result.HasMissingRequired)

	missing := result.MissingRequiredTools()
	require.Len(t, missing, 2)
	msg := FormatMissingToolsError(missing)
	assert.Contains(t, msg, "git (outdated)")
	assert.Contains(t, msg, "python (mismatch) found 3.8.10")
}

func TestToolDetector_NothingInstalled(t *testing.T) {
	t.Parallel()

	result, err := NewToolDetector(testutil.NewFakeRunner(), lookPathFor(nil), RuntimeConfig{}).Detect(context.Background())
	require.NoError(t, err)
	for _, tool := range result.Tools {
		assert.Equal(t, ToolStatusMissing, tool.Status, tool.Name)
		assert.NotEmpty(t, tool.InstallHint)
	}
}

func TestToolDetector_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewToolDetector(testutil.NewFakeRunner(), lookPathFor(nil), RuntimeConfig{}).Detect(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCompareVersions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		current, required string
		want              int
	}{
		{"2.43.0", "2.20.0", 1},
		{"2.20", "2.20.0", 0},
		{"v2.19.9", "2.20.0", -1},
		{"garbage", "0.0.0", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CompareVersions(tt.current, tt.required), "%s vs %s", tt.current, tt.required)
	}
}

func TestToolStatus_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "installed", ToolStatusInstalled.String())
	assert.Equal(t, "missing", ToolStatusMissing.String())
	assert.Equal(t, "outdated", ToolStatusOutdated.String())
	assert.Equal(t, "mismatch", ToolStatusMismatch.String())
	assert.Equal(t, "unknown", ToolStatus(42).String())
}
