package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	relerrors "github.com/hydragram/releaser/internal/errors"
)

func TestNewOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	assert.IsType(t, &JSONOutput{}, NewOutput(&buf, "json"))
	assert.IsType(t, &TTYOutput{}, NewOutput(&buf, "text"))
	assert.True(t, NewOutput(&buf, "json").IsJSON())
	assert.False(t, NewOutput(&buf, "").IsJSON())
}

func TestValidateFormat(t *testing.T) {
	t.Parallel()
	require.NoError(t, ValidateFormat(""))
	require.NoError(t, ValidateFormat("json"))
	require.ErrorIs(t, ValidateFormat("yaml"), relerrors.ErrInvalidOutputFormat)
}

func TestTTYOutput_ErrorWithAction(t *testing.T) {
	var buf bytes.Buffer
	out := NewTTYOutput(&buf)

	out.Error(fmt.Errorf("step publish: %w", relerrors.ErrVersionExists))

	text := buf.String()
	assert.Contains(t, text, "✗ The registry already has this version.")
	assert.Contains(t, text, "step publish: version already published")
	assert.Contains(t, text, "▸ Try: Bump the package version")
}

func TestTTYOutput_Messages(t *testing.T) {
	var buf bytes.Buffer
	out := NewTTYOutput(&buf)
	out.Success("done")
	out.Warning("careful")
	out.Info("note")

	assert.Equal(t, "✓ done\n⚠ careful\nnote\n", buf.String())
}

func TestJSONOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	out := NewJSONOutput(&buf)
	out.Success("ignored")
	out.Info("ignored")
	out.Warning("ignored")
	assert.Empty(t, buf.String())

	out.Error(relerrors.ErrRunLocked)
	var payload map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &payload))
	assert.Equal(t, "another run holds the package lock", payload["error"])
	assert.NotEmpty(t, payload["message"])
}
