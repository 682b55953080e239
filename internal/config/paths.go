package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hydragram/releaser/internal/constants"
	"github.com/hydragram/releaser/internal/errors"
)

// Home returns the releaser state directory. RELEASER_HOME wins over the
// default ~/.releaser.
//
// Returns an error if the home directory cannot be determined.
func Home() (string, error) {
	if dir := os.Getenv(constants.HomeEnvVar); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(home, constants.ReleaserHome), nil
}

// GlobalConfigDir returns the directory holding the global configuration.
func GlobalConfigDir() (string, error) {
	return Home()
}

// ProjectConfigDir returns the relative path to the project configuration directory.
// This is always .releaser relative to the project root.
func ProjectConfigDir() string {
	return constants.ReleaserHome
}

// GlobalConfigPath returns the full path to the global configuration file.
func GlobalConfigPath() (string, error) {
	dir, err := GlobalConfigDir()
	if err != nil {
		return "", fmt.Errorf("get global config path: %w", err)
	}
	return filepath.Join(dir, constants.ConfigFileName), nil
}

// ProjectConfigPath returns the relative path to the project configuration file.
func ProjectConfigPath() string {
	return filepath.Join(ProjectConfigDir(), constants.ConfigFileName)
}

// RunsDir returns where run records are stored.
func RunsDir(home string) string {
	return filepath.Join(home, constants.RunsDir)
}

// LocksDir returns where file locks are stored.
func LocksDir(home string) string {
	return filepath.Join(home, constants.LocksDir)
}

// LogsDir returns where the rotating CLI log lives.
func LogsDir(home string) string {
	return filepath.Join(home, constants.LogsDir)
}
