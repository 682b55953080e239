package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/require"

	"github.com/hydragram/releaser/internal/clock"
	"github.com/hydragram/releaser/internal/command"
	"github.com/hydragram/releaser/internal/constants"
	"github.com/hydragram/releaser/internal/errors"
	"github.com/hydragram/releaser/internal/testutil"
)

const testSHA = "0123456789abcdef0123456789abcdef01234567"

// Plain output keeps assertions independent of the terminal running the tests.
func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

// fakeToken is assembled at runtime so the literal never sits in the tree.
func fakeToken() string {
	return "pypi-" + "AgEIcHlwaS5vcmcCJDEXAMPLEONLY" + "0000"
}

// harness runs the command tree against a fake runner inside an isolated
// home and project directory.
type harness struct {
	t         *testing.T
	home      string
	workspace string
	runner    *testutil.FakeRunner
	vars      map[string]string
	clock     *clock.Fixed
	logs      *bytes.Buffer
	env       *env
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	home := t.TempDir()
	ws := filepath.Join(t.TempDir(), "hydragram")
	require.NoError(t, os.MkdirAll(ws, 0o750))
	t.Setenv(constants.HomeEnvVar, home)
	t.Chdir(ws)

	h := &harness{
		t:         t,
		home:      home,
		workspace: ws,
		runner:    testutil.NewFakeRunner(),
		vars:      map[string]string{},
		clock:     &clock.Fixed{T: time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)},
		logs:      &bytes.Buffer{},
	}
	h.env = &env{
		getenv:   func(key string) string { return h.vars[key] },
		lookPath: fakeLookPath("git", "python3.10"),
		newRunner: func(time.Duration, io.Writer) command.Runner {
			return h.runner
		},
		clock:     h.clock,
		logWriter: h.logs,
	}
	return h
}

func (h *harness) execute(args ...string) (string, error) {
	h.t.Helper()
	cmd := newRootCmdWithEnv(&GlobalFlags{}, BuildInfo{Version: "test"}, h.env)
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// releasable stubs every tool a successful release run calls.
func (h *harness) releasable(artifacts ...string) {
	h.runner.
		Stdout("git rev-parse HEAD", testSHA).
		Stdout("/usr/bin/python3.10 --version", "Python 3.10.14").
		On("/usr/bin/python3.10 -m build", writeArtifacts(h.t, artifacts...))
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
		return "", errors.ErrToolNotFound
	}
}

// writeArtifacts makes a build handler that drops distributions into dist.
func writeArtifacts(t *testing.T, names ...string) testutil.Handler {
	t.Helper()
	return func(spec command.Spec) (*command.Result, error) {
		dist := filepath.Join(spec.Dir, "dist")
		require.NoError(t, os.MkdirAll(dist, 0o750))
		for _, name := range names {
			require.NoError(t, os.WriteFile(filepath.Join(dist, name), []byte("artifact "+name), 0o600))
		}
		return &command.Result{Command: spec.String(), Success: true, Stdout: "Successfully built"}, nil
	}
}
