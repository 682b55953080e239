package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydragram/releaser/internal/config"
	"github.com/hydragram/releaser/internal/constants"
	"github.com/hydragram/releaser/internal/errors"
	"github.com/hydragram/releaser/internal/pipeline"
)

func writeProjectConfig(t *testing.T, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(config.ProjectConfigDir(), 0o750))
	require.NoError(t, os.WriteFile(config.ProjectConfigPath(), []byte(content), 0o600))
}

func TestTrigger_TaggedPush(t *testing.T) {
	h := newHarness(t)

	out, err := h.execute("trigger", "--tag", "v1.2.3")
	require.NoError(t, err)
	assert.Contains(t, out, `Triggered: push to tag v1.2.3 matches "v*" (version 1.2.3)`)
	assert.Empty(t, h.runner.Calls())
}

func TestTrigger_ExitCode(t *testing.T) {
	h := newHarness(t)

	out, err := h.execute("trigger", "--ref", "refs/heads/feature/x", "--exit-code")
	require.Error(t, err)
	require.ErrorIs(t, err, errors.ErrNotTriggered)
	assert.Equal(t, ExitNotTriggered, ExitCodeForError(err))
	assert.Contains(t, out, "Not triggered")

	_, err = h.execute("trigger", "--ref", "refs/heads/main", "--exit-code")
	require.NoError(t, err)
}

func TestTrigger_NonPushEvent(t *testing.T) {
	h := newHarness(t)

	out, err := h.execute("trigger", "--event", "pull_request", "--branch", "main")
	require.NoError(t, err)
	assert.Contains(t, out, `event "pull_request" is not a push`)
}

func TestTrigger_JSON(t *testing.T) {
	h := newHarness(t)
	h.vars["GITHUB_EVENT_NAME"] = "push"
	h.vars["GITHUB_REF"] = "refs/heads/main"
	h.vars["GITHUB_SHA"] = testSHA

	out, err := h.execute("trigger", "-o", "json")
	require.NoError(t, err)

	var got decisionOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.True(t, got.Decision.Triggered)
	assert.Equal(t, "main", got.Decision.Pattern)
	assert.Equal(t, testSHA, got.Event.SHA)
}

func TestTrigger_ProjectPatterns(t *testing.T) {
	h := newHarness(t)
	writeProjectConfig(t, "trigger:\n  tags: [\"release-*\"]\n  branches: [\"stable\"]\n")

	out, err := h.execute("trigger", "--tag", "release-7")
	require.NoError(t, err)
	assert.Contains(t, out, "Triggered")

	out, err = h.execute("trigger", "--tag", "v1.0.0")
	require.NoError(t, err)
	assert.Contains(t, out, "Not triggered: tag v1.0.0 matches no tag pattern")
}

func TestTrigger_ConflictingEventFlags(t *testing.T) {
	h := newHarness(t)

	_, err := h.execute("trigger", "--tag", "v1", "--branch", "main")
	require.Error(t, err)
	assert.Equal(t, ExitInvalidInput, ExitCodeForError(err))
}

func TestPlan_WithoutEvent(t *testing.T) {
	h := newHarness(t)

	out, err := h.execute("plan")
	require.NoError(t, err)

	assert.Contains(t, out, "Release plan for hydragram")
	assert.NotContains(t, out, "Triggered")
	assert.Contains(t, out, "$ git rev-parse HEAD")
	assert.Contains(t, out, "$ <python> -m build --outdir dist .")
	assert.Contains(t, out, "TWINE_PASSWORD=[REDACTED]")
	assert.Empty(t, h.runner.Calls())
}

func TestPlan_JSON(t *testing.T) {
	h := newHarness(t)

	out, err := h.execute("plan", "--tag", "v3.1.0", "--repository-url", "https://test.pypi.org/legacy/", "-o", "json")
	require.NoError(t, err)

	var got struct {
		Package  string `json:"package"`
		Decision struct {
			Triggered bool `json:"triggered"`
		} `json:"decision"`
		Steps []pipeline.PlannedStep `json:"steps"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "hydragram", got.Package)
	assert.True(t, got.Decision.Triggered)
	require.Len(t, got.Steps, 6)
	assert.Equal(t, "publish", got.Steps[5].Name)
	require.NotEmpty(t, got.Steps[5].Commands)
	assert.Contains(t, got.Steps[5].Commands[0], "--repository-url https://test.pypi.org/legacy/")
}

func TestHistory_ListAndShow(t *testing.T) {
	h := newHarness(t)
	t.Setenv(constants.DefaultSecretName, fakeToken())
	h.releasable("hydragram-1.2.3.tar.gz")

	out, err := h.execute("history")
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded.")

	out, err = h.execute("history", "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)

	_, err = h.execute("run", "--tag", "v1.2.3")
	require.NoError(t, err)

	out, err = h.execute("history", "-o", "json")
	require.NoError(t, err)
	var runs []pipeline.Run
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	id := runs[0].ID

	out, err = h.execute("history")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "hydragram")
	assert.Contains(t, out, "succeeded")

	out, err = h.execute("history", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Run "+id+" succeeded")
	assert.Contains(t, out, "dist/hydragram-1.2.3.tar.gz")
}

func TestHistory_UnknownRun(t *testing.T) {
	h := newHarness(t)

	_, err := h.execute("history", "run-20990101-000000-deadbeef")
	require.ErrorIs(t, err, errors.ErrRunNotFound)
	assert.Equal(t, ExitError, ExitCodeForError(err))
}

func TestWorkflow_Stdout(t *testing.T) {
	h := newHarness(t)

	out, err := h.execute("workflow")
	require.NoError(t, err)

	assert.Contains(t, out, "actions/setup-python@v5")
	assert.Contains(t, out, `python-version: "3.10"`)
	assert.Contains(t, out, "group: release-hydragram")
	assert.Contains(t, out, "${{ secrets.PYPI_API_TOKEN }}")
	assert.Contains(t, out, "python -m twine upload --non-interactive dist/*")
}

func TestWorkflow_File(t *testing.T) {
	h := newHarness(t)
	writeProjectConfig(t, "lock:\n  backend: none\n")
	target := filepath.Join(".github", "workflows", "release.yml")

	out, err := h.execute("workflow", "--file", target, "--python", "3.12", "--secret-name", "TEST_PYPI_TOKEN")
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), `python-version: "3.12"`)
	assert.Contains(t, string(data), "${{ secrets.TEST_PYPI_TOKEN }}")
	assert.NotContains(t, string(data), "concurrency:")
}

func TestDoctor_AllInstalled(t *testing.T) {
	h := newHarness(t)
	h.runner.
		Stdout("/usr/bin/git --version", "git version 2.43.0\n").
		Stdout("/usr/bin/python3.10 --version", "Python 3.10.14\n")

	out, err := h.execute("doctor")
	require.NoError(t, err)
	assert.Contains(t, out, "TOOL")
	assert.Contains(t, out, "2.43.0")
	assert.Contains(t, out, "3.10.14")
	assert.Contains(t, out, "installed")
}

func TestDoctor_PythonMismatch(t *testing.T) {
	h := newHarness(t)
	h.runner.
		Stdout("/usr/bin/git --version", "git version 2.43.0\n").
		Stdout("/usr/bin/python3.10 --version", "Python 3.9.18\n")

	out, err := h.execute("doctor", "-o", "json")
	require.ErrorIs(t, err, errors.ErrToolNotFound)
	assert.Contains(t, err.Error(), "python (mismatch) found 3.9.18")

	var result struct {
		Tools []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
		} `json:"tools"`
		HasMissingRequired bool `json:"has_missing_required"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.True(t, result.HasMissingRequired)
	require.Len(t, result.Tools, 2)
	assert.Equal(t, "mismatch", result.Tools[1].Status)
}
