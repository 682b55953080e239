package steps

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/hydragram/releaser/internal/command"
	relerrors "github.com/hydragram/releaser/internal/errors"
	"github.com/hydragram/releaser/internal/logging"
	"github.com/hydragram/releaser/internal/pipeline"
	"github.com/hydragram/releaser/internal/secret"
	"github.com/hydragram/releaser/internal/testutil"
	"github.com/hydragram/releaser/internal/trigger"
)

const (
	testSHA    = "0123456789abcdef0123456789abcdef01234567"
	testPython = "/usr/bin/python3.10"
)

// fakeToken is assembled at runtime so the literal never sits in the tree.
func fakeToken() string {
	return "pypi-" + "AgEIcHlwaS5vcmcCJDEXAMPLEONLY" + "0000"
}

func newTestRun(t *testing.T) *pipeline.Run {
	t.Helper()
	event := trigger.Event{Name: "push", Ref: "refs/tags/v1.2.3", SHA: testSHA, Repository: "hydragram/hydragram"}
	decision := trigger.DefaultPolicy().Evaluate(event)
	return pipeline.NewRun(pipeline.GenerateRunID(time.Now()), "hydragram", event, decision, pipeline.DefaultSteps(), time.Now())
}

// provisioned returns a run whose earlier steps have populated the state.
func provisioned(t *testing.T) *pipeline.Run {
	t.Helper()
	run := newTestRun(t)
	run.State.Workspace = t.TempDir()
	run.State.Interpreter = testPython
	run.State.RuntimeVersion = "3.10.14"
	return run
}

func fakeLookPath(available ...string) func(string) (string, error) {
	set := make(map[string]bool, len(available))
	for _, name := range available {
		set[name] = true
	}
	return func(name string) (string, error) {
		if set[name] {
			return "/usr/bin/" + name, nil
		}
		return "", relerrors.ErrToolNotFound
	}
}

func testDeps(runner *testutil.FakeRunner, secrets secret.Store) Deps {
	return Deps{
		Runner:   runner,
		Secrets:  secrets,
		Redactor: logging.NewRedactor(),
		LookPath: fakeLookPath("python3.10"),
	}
}

func tokenStore() secret.Store {
	return secret.EnvStore{LookupEnv: func(name string) (string, bool) {
		if name == "PYPI_API_TOKEN" {
			return fakeToken(), true
		}
		return "", false
	}}
}

// writeArtifacts makes a build handler that drops distributions into dist.
func writeArtifacts(t *testing.T, names ...string) testutil.Handler {
	t.Helper()
	return writeArtifactsTo(t, "dist", names...)
}

// writeArtifactsTo fakes a build that writes names into outDir.
func writeArtifactsTo(t *testing.T, outDir string, names ...string) testutil.Handler {
	t.Helper()
	return func(spec command.Spec) (*command.Result, error) {
		dist := filepath.Join(spec.Dir, filepath.FromSlash(outDir))
		require.NoError(t, os.MkdirAll(dist, 0o750))
		for _, name := range names {
			require.NoError(t, os.WriteFile(filepath.Join(dist, name), []byte("artifact "+name), 0o600))
		}
		return &command.Result{Command: spec.String(), Success: true, Stdout: "Successfully built"}, nil
	}
}

func touch(t *testing.T, root string, rels ...string) {
	t.Helper()
	for _, rel := range rels {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	}
}

func newEngine(t *testing.T, deps Deps, opts Options) *pipeline.Engine {
	t.Helper()
	return pipeline.NewEngine(NewRegistry(deps, opts), zerolog.Nop(), pipeline.WithRedaction(deps.Redactor.Filter))
}
