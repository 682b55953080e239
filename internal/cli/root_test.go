package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Help(t *testing.T) {
	t.Parallel()

	flags := &GlobalFlags{}
	cmd := newRootCmd(flags, BuildInfo{Version: "test"})
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--help"})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "checkout → setup runtime → install tools → clean → build → publish")
	for _, name := range []string{"run", "trigger", "plan", "history", "workflow", "doctor", "version"} {
		assert.Contains(t, output, name)
	}
	assert.Contains(t, output, "--output")
	assert.Contains(t, output, "--verbose")
	assert.Contains(t, output, "--quiet")
	assert.Contains(t, output, "--config")
}

func TestRootCmd_Version(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		info           BuildInfo
		expectContains []string
	}{
		{
			name:           "full version info",
			info:           BuildInfo{Version: "1.0.0", Commit: "abc1234", Date: "2026-01-01"},
			expectContains: []string{"1.0.0", "abc1234", "2026-01-01"},
		},
		{
			name:           "default dev version",
			info:           BuildInfo{},
			expectContains: []string{"dev", "none", "unknown"},
		},
		{
			name:           "partial version info",
			info:           BuildInfo{Version: "2.0.0-beta"},
			expectContains: []string{"2.0.0-beta", "none", "unknown"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cmd := newRootCmd(&GlobalFlags{}, tc.info)
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs([]string{"--version"})

			require.NoError(t, cmd.Execute())
			for _, expected := range tc.expectContains {
				assert.Contains(t, buf.String(), expected)
			}
		})
	}
}

func TestFormatVersion(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1.2.3 (commit: abc, built: today)", formatVersion(BuildInfo{Version: "1.2.3", Commit: "abc", Date: "today"}))
	assert.Equal(t, "dev (commit: none, built: unknown)", formatVersion(BuildInfo{}))
}

func TestVersionCommand(t *testing.T) {
	h := newHarness(t)

	out, err := h.execute("version")
	require.NoError(t, err)
	assert.Equal(t, "releaser test (commit: none, built: unknown)\n", out)

	out, err = h.execute("version", "-o", "json")
	require.NoError(t, err)
	var info BuildInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, BuildInfo{Version: "test", Commit: "none", Date: "unknown"}, info)
}

func TestRootCmd_InvalidOutputFormat(t *testing.T) {
	h := newHarness(t)

	_, err := h.execute("version", "--output", "yaml")
	require.Error(t, err)
	assert.Equal(t, ExitInvalidInput, ExitCodeForError(err))
}

func TestRootCmd_VerboseAndQuietConflict(t *testing.T) {
	h := newHarness(t)

	_, err := h.execute("version", "--verbose", "--quiet")
	require.Error(t, err)
	assert.Equal(t, ExitInvalidInput, ExitCodeForError(err))
}
