// Package constants provides centralized constant values used throughout releaser.
// This package is the single source of truth for all shared constants and MUST NOT
// import any other internal packages.
package constants

import "time"

// Directory names and paths used by releaser for organizing data.
const (
	// ReleaserHome is the hidden directory name where releaser stores all its data.
	// This directory is created in the user's home directory.
	ReleaserHome = ".releaser"

	// HomeEnvVar overrides the location of the releaser home directory.
	HomeEnvVar = "RELEASER_HOME"

	// EnvPrefix is the prefix for configuration environment variables (RELEASER_*).
	EnvPrefix = "RELEASER"

	// RunsDir is the directory name where run records are stored.
	RunsDir = "runs"

	// LocksDir is the directory name where per-package lock files live.
	LocksDir = "locks"

	// LogsDir is the directory name where log files are stored.
	LogsDir = "logs"
)

// Log file configuration.
const (
	// CLILogFileName is the name of the global CLI log file.
	// This file is located in ~/.releaser/logs/releaser.log
	CLILogFileName = "releaser.log"

	// LogMaxSizeMB is the maximum size in megabytes before a log file is rotated.
	LogMaxSizeMB = 10

	// LogMaxBackups is the number of rotated log files to keep.
	LogMaxBackups = 5

	// LogMaxAgeDays is the number of days to retain rotated log files.
	LogMaxAgeDays = 30

	// LogCompress enables gzip compression of rotated log files.
	LogCompress = true
)

// Configuration file names.
const (
	// ConfigFileName is the name of both the global and project configuration files.
	ConfigFileName = "config.yaml"
)

// Build output locations inside a workspace.
const (
	// DistDir is the conventional output directory for distributable artifacts.
	DistDir = "dist"

	// BuildDir is the intermediate build directory left behind by setuptools.
	BuildDir = "build"

	// EggInfoPattern matches setuptools metadata directories at any depth.
	EggInfoPattern = "**/*.egg-info"
)

// Publish defaults.
const (
	// TokenUsername is the fixed identity selector that puts twine into token auth mode.
	TokenUsername = "__token__"

	// DefaultSecretName is the secret store key holding the registry token.
	DefaultSecretName = "PYPI_API_TOKEN"

	// TwineUsernameEnv is the environment variable twine reads the username from.
	TwineUsernameEnv = "TWINE_USERNAME"

	// TwinePasswordEnv is the environment variable twine reads the password from.
	TwinePasswordEnv = "TWINE_PASSWORD" //nolint:gosec // G101: variable name, not a credential
)

// Runtime defaults.
const (
	// DefaultPythonVersion is the pinned major.minor Python version.
	DefaultPythonVersion = "3.10"

	// DefaultBranch is the branch whose pushes trigger a run.
	DefaultBranch = "main"

	// DefaultTagPattern is the tag pattern whose pushes trigger a run.
	DefaultTagPattern = "v*"

	// DefaultRemote is the name used for the fetched remote in a fresh checkout.
	DefaultRemote = "origin"
)

// Timeout configurations for various operations.
const (
	// DefaultStepTimeout bounds a single external tool invocation.
	DefaultStepTimeout = 30 * time.Minute

	// DefaultLockTTL is how long a Redis run lock survives a crashed run.
	DefaultLockTTL = 1 * time.Hour

	// LockTimeout is the maximum duration to wait for a record file lock.
	LockTimeout = 5 * time.Second
)

// Schema version constants for data migration support.
const (
	// RunSchemaVersion is the current version of the run record JSON schema.
	RunSchemaVersion = "1.0"
)
