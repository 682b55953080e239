package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hydragram/releaser/internal/constants"
	"github.com/hydragram/releaser/internal/logging"
)

func TestInitLogger_LogLevelPrecedence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		verbose       bool
		quiet         bool
		expectedLevel zerolog.Level
	}{
		{name: "default is info level", expectedLevel: zerolog.InfoLevel},
		{name: "verbose sets debug level", verbose: true, expectedLevel: zerolog.DebugLevel},
		{name: "quiet sets warn level", quiet: true, expectedLevel: zerolog.WarnLevel},
		{name: "verbose wins over quiet", verbose: true, quiet: true, expectedLevel: zerolog.DebugLevel},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			logger := InitLoggerWithWriter(tc.verbose, tc.quiet, &buf)
			assert.Equal(t, tc.expectedLevel, logger.GetLevel())
		})
	}
}

func TestInitLogger_FieldNames(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := InitLoggerWithWriter(false, false, &buf)
	logger.Info().Msg("hello")

	assert.Contains(t, buf.String(), `"event":"hello"`)
	assert.Contains(t, buf.String(), `"ts":`)
}

func TestInitLogger_RedactsRegisteredSecrets(t *testing.T) {
	t.Parallel()

	secret := "s3cr3t-" + "value-for-logger-test"
	logging.DefaultRedactor().Register(secret)

	var buf bytes.Buffer
	logger := InitLoggerWithWriter(false, false, &buf)
	logger.Info().Msg("token is " + secret)

	assert.NotContains(t, buf.String(), secret)
	assert.Contains(t, buf.String(), `"contains_filtered_data":true`)
}

func TestLogFilePath(t *testing.T) {
	home := t.TempDir()
	t.Setenv(constants.HomeEnvVar, home)

	path, err := LogFilePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, constants.LogsDir, constants.CLILogFileName), path)
}

func TestInitLogger_CreatesLogFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv(constants.HomeEnvVar, home)
	t.Cleanup(CloseLogFile)

	logger := InitLogger(false, true)
	logger.Warn().Msg("written to file")
	CloseLogFile()

	path, err := LogFilePath()
	require.NoError(t, err)
	assert.FileExists(t, path)
}
