package workflow

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/hydragram/releaser/internal/trigger"
)

type renderedWorkflow struct {
	Name string `yaml:"name"`
	On   struct {
		Push struct {
			Tags     []string `yaml:"tags"`
			Branches []string `yaml:"branches"`
		} `yaml:"push"`
	} `yaml:"on"`
	Permissions map[string]string `yaml:"permissions"`
	Concurrency *struct {
		Group            string `yaml:"group"`
		CancelInProgress bool   `yaml:"cancel-in-progress"`
	} `yaml:"concurrency"`
	Jobs map[string]struct {
		RunsOn string `yaml:"runs-on"`
		Steps  []struct {
			Name string            `yaml:"name"`
			Uses string            `yaml:"uses"`
			With map[string]any    `yaml:"with"`
			Env  map[string]string `yaml:"env"`
			Run  string            `yaml:"run"`
		} `yaml:"steps"`
	} `yaml:"jobs"`
}

func render(t *testing.T, opts Options) (string, renderedWorkflow) {
	t.Helper()
	out, err := Render(opts)
	require.NoError(t, err)
	var wf renderedWorkflow
	require.NoError(t, yaml.Unmarshal(out, &wf))
	return string(out), wf
}

func TestRender_Defaults(t *testing.T) {
	raw, wf := render(t, Options{UpgradeInstaller: true})

	assert.Equal(t, "Release", wf.Name)
	assert.Equal(t, []string{"v*"}, wf.On.Push.Tags)
	assert.Equal(t, []string{"main"}, wf.On.Push.Branches)
	assert.Equal(t, map[string]string{"contents": "read"}, wf.Permissions)
	assert.Nil(t, wf.Concurrency)

	job, ok := wf.Jobs["release"]
	require.True(t, ok)
	assert.Equal(t, "ubuntu-latest", job.RunsOn)

	names := make([]string, len(job.Steps))
	for i, s := range job.Steps {
		names[i] = s.Name
	}
	assert.Equal(t, []string{
		"Checkout", "Set up Python", "Install build tools",
		"Clean build outputs", "Build distributions", "Publish to registry",
	}, names)

	assert.Equal(t, "3.10", job.Steps[1].With["python-version"], "pin survives as a string")
	assert.Contains(t, raw, `python-version: "3.10"`)
	assert.Equal(t, "python -m pip install --upgrade pip\npython -m pip install --upgrade build twine\n", job.Steps[2].Run)
	assert.Equal(t, "rm -rf dist build\nfind . -name '*.egg-info' -prune -exec rm -rf {} +\n", job.Steps[3].Run)
	assert.Equal(t, "python -m build --outdir dist .", job.Steps[4].Run)

	publish := job.Steps[5]
	assert.Equal(t, "__token__", publish.Env["TWINE_USERNAME"])
	assert.Equal(t, "${{ secrets.PYPI_API_TOKEN }}", publish.Env["TWINE_PASSWORD"])
	assert.Equal(t, "python -m twine upload --non-interactive dist/*", publish.Run)
}

func TestRender_KeyOrder(t *testing.T) {
	raw, _ := render(t, Options{Concurrency: true, Package: "hydragram"})

	order := []string{"name:", "on:", "permissions:", "concurrency:", "jobs:"}
	last := -1
	for _, key := range order {
		idx := strings.Index(raw, "\n"+key)
		if key == "name:" {
			idx = strings.Index(raw, key)
		}
		require.GreaterOrEqual(t, idx, 0, key)
		assert.Greater(t, idx, last, key)
		last = idx
	}
}

func TestRender_Concurrency(t *testing.T) {
	_, wf := render(t, Options{Concurrency: true, Package: "hydragram"})
	require.NotNil(t, wf.Concurrency)
	assert.Equal(t, "release-hydragram", wf.Concurrency.Group)
	assert.False(t, wf.Concurrency.CancelInProgress)
}

func TestRender_CustomOptions(t *testing.T) {
	_, wf := render(t, Options{
		Name:          "Publish",
		Policy:        trigger.Policy{Tags: []string{"release-*"}},
		PythonVersion: "3.11",
		SecretName:    "TEST_PYPI_TOKEN",
		RepositoryURL: "https://test.pypi.org/legacy/",
		OutDir:        "out",
		Tools:         []string{"build==1.2.1", "twine"},
	})

	assert.Equal(t, "Publish", wf.Name)
	assert.Equal(t, []string{"release-*"}, wf.On.Push.Tags)
	assert.Empty(t, wf.On.Push.Branches)

	job := wf.Jobs["release"]
	assert.Equal(t, "3.11", job.Steps[1].With["python-version"])
	assert.Equal(t, "python -m pip install --upgrade build==1.2.1 twine", job.Steps[2].Run)
	assert.Equal(t, "rm -rf dist build out\nfind . -name '*.egg-info' -prune -exec rm -rf {} +\n", job.Steps[3].Run)
	assert.Equal(t, "python -m build --outdir out .", job.Steps[4].Run)
	assert.Equal(t, "${{ secrets.TEST_PYPI_TOKEN }}", job.Steps[5].Env["TWINE_PASSWORD"])
	assert.Equal(t, "python -m twine upload --non-interactive --repository-url https://test.pypi.org/legacy/ out/*", job.Steps[5].Run)
}

func TestCleanCommands(t *testing.T) {
	assert.Equal(t, []string{"rm -rf dist"}, cleanCommands([]string{"dist"}))
	assert.Equal(t, []string{"find . -name '*.pyc' -prune -exec rm -rf {} +"}, cleanCommands([]string{"**/*.pyc"}))
}
