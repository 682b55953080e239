// Package config provides configuration management for releaser with layered precedence.
//
// Configuration sources are loaded in the following order (highest precedence first):
//  1. CLI flags (passed via LoadWithOverrides)
//  2. Environment variables (RELEASER_* prefix)
//  3. Project config (.releaser/config.yaml)
//  4. Global config (~/.releaser/config.yaml)
//  5. Built-in defaults
//
// Each higher level completely overrides the lower level for the same key.
//
// IMPORTANT: This package may import internal/constants, internal/errors and
// the packages whose options it produces (trigger, lock, pipeline/steps),
// but MUST NOT import internal/cli.
package config

import "time"

// Config is the root configuration structure for releaser.
type Config struct {
	// Package identifies the published package. Its name keys the run lock.
	Package PackageConfig `yaml:"package" mapstructure:"package"`

	// Trigger selects which pushes start a run.
	Trigger TriggerConfig `yaml:"trigger" mapstructure:"trigger"`

	// Checkout controls how the source snapshot is produced.
	Checkout CheckoutConfig `yaml:"checkout" mapstructure:"checkout"`

	// Runtime pins the Python interpreter.
	Runtime RuntimeConfig `yaml:"runtime" mapstructure:"runtime"`

	// Tools lists the packages installed into the runtime.
	Tools ToolsConfig `yaml:"tools" mapstructure:"tools"`

	// Build controls cleaning and the artifact output directory.
	Build BuildConfig `yaml:"build" mapstructure:"build"`

	// Publish controls the upload identity and credential source.
	Publish PublishConfig `yaml:"publish" mapstructure:"publish"`

	// Lock guards against concurrent runs for the same package.
	Lock LockConfig `yaml:"lock" mapstructure:"lock"`

	// StepTimeout bounds every external tool invocation.
	// Default: 30m
	StepTimeout time.Duration `yaml:"step_timeout" mapstructure:"step_timeout"`
}

// PackageConfig identifies the package being released.
type PackageConfig struct {
	// Name is the package name. Empty derives it from the working directory.
	Name string `yaml:"name" mapstructure:"name"`
}

// TriggerConfig holds the ref patterns that start a run.
type TriggerConfig struct {
	// Tags are doublestar patterns matched against tag names.
	// Default: ["v*"]
	Tags []string `yaml:"tags" mapstructure:"tags"`

	// Branches are doublestar patterns matched against branch names.
	// Default: ["main"]
	Branches []string `yaml:"branches" mapstructure:"branches"`
}

// CheckoutConfig controls workspace creation.
type CheckoutConfig struct {
	// Workspace is an existing checkout used in place.
	// Empty together with Repo means the current directory.
	Workspace string `yaml:"workspace" mapstructure:"workspace"`

	// Repo is a clone URL. When set, every run fetches a fresh temporary
	// workspace at the triggering revision.
	Repo string `yaml:"repo" mapstructure:"repo"`

	// Remote names the fetched remote.
	// Default: "origin"
	Remote string `yaml:"remote" mapstructure:"remote"`

	// Depth limits fetched history. Zero fetches everything.
	// Default: 1
	Depth int `yaml:"depth" mapstructure:"depth"`
}

// RuntimeConfig pins the interpreter.
type RuntimeConfig struct {
	// PythonVersion is the pinned major.minor version.
	// Default: "3.10"
	PythonVersion string `yaml:"python_version" mapstructure:"python_version"`

	// Interpreter, when set, is the only interpreter considered.
	Interpreter string `yaml:"interpreter" mapstructure:"interpreter"`

	// Venv installs the tools into a throwaway virtual environment.
	// Default: false
	Venv bool `yaml:"venv" mapstructure:"venv"`
}

// ToolsConfig lists the tools installed before building.
type ToolsConfig struct {
	// Install are pip requirement specifiers.
	// Default: ["build", "twine"]
	Install []string `yaml:"install" mapstructure:"install"`

	// UpgradeInstaller upgrades pip itself first.
	// Default: true
	UpgradeInstaller bool `yaml:"upgrade_installer" mapstructure:"upgrade_installer"`
}

// BuildConfig controls the build outputs.
type BuildConfig struct {
	// OutDir is the workspace relative artifact directory.
	// Default: "dist"
	OutDir string `yaml:"outdir" mapstructure:"outdir"`

	// CleanPaths are removed before building. Doublestar patterns allowed.
	// Default: ["dist", "build", "**/*.egg-info"]
	CleanPaths []string `yaml:"clean_paths" mapstructure:"clean_paths"`
}

// PublishConfig controls the upload.
type PublishConfig struct {
	// SecretName is the secret store key holding the registry token.
	// Default: "PYPI_API_TOKEN"
	SecretName string `yaml:"secret_name" mapstructure:"secret_name"`

	// Username is the upload identity.
	// Default: "__token__"
	Username string `yaml:"username" mapstructure:"username"`

	// RepositoryURL overrides the registry upload endpoint.
	RepositoryURL string `yaml:"repository_url" mapstructure:"repository_url"`

	// SecretDir, when set, is searched for a file named SecretName after
	// the environment.
	SecretDir string `yaml:"secret_dir" mapstructure:"secret_dir"`
}

// LockConfig selects the run lock backend.
type LockConfig struct {
	// Backend is one of "file", "redis" or "none".
	// Default: "file"
	Backend string `yaml:"backend" mapstructure:"backend"`

	// Dir holds file locks. Empty means <home>/locks.
	Dir string `yaml:"dir" mapstructure:"dir"`

	// RedisURL is the redis:// URL for the redis backend.
	RedisURL string `yaml:"redis_url" mapstructure:"redis_url"`

	// TTL expires a redis lock whose holder died.
	// Default: 1h
	TTL time.Duration `yaml:"ttl" mapstructure:"ttl"`
}
