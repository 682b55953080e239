package config

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/hydragram/releaser/internal/constants"
	"github.com/hydragram/releaser/internal/errors"
)

// newViperInstance creates a new Viper instance with the RELEASER_ prefix,
// key replacer and defaults.
func newViperInstance() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// isConfigNotFoundError returns true if the error is a viper config file not found error.
func isConfigNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var configNotFoundErr viper.ConfigFileNotFoundError
	return stderrors.As(err, &configNotFoundErr)
}

// unmarshalAndValidate unmarshals viper config into Config, derives missing
// values and validates the result.
func unmarshalAndValidate(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	derive(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}

// Load reads configuration from all available sources with proper precedence.
// Configuration is loaded in the following order (highest precedence first):
//  1. Environment variables (RELEASER_* prefix)
//  2. Project config (.releaser/config.yaml)
//  3. Global config (~/.releaser/config.yaml)
//  4. Built-in defaults
//
// For CLI flag overrides, use LoadWithOverrides instead.
// Missing config files are not an error.
func Load(ctx context.Context) (*Config, error) {
	v := newViperInstance()

	if err := loadGlobalConfig(v); err != nil {
		return nil, err
	}
	if err := loadProjectConfig(v); err != nil {
		return nil, err
	}

	cfg, err := unmarshalAndValidate(v)
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Debug().
		Str("component", "config").
		Str("package", cfg.Package.Name).
		Str("lock_backend", cfg.Lock.Backend).
		Dur("step_timeout", cfg.StepTimeout).
		Msg("configuration loaded")

	return cfg, nil
}

// LoadFile reads one explicit config file over the defaults, for --config.
// Environment variables still take precedence over the file.
func LoadFile(_ context.Context, path string) (*Config, error) {
	v := newViperInstance()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file: %s", path)
	}
	return unmarshalAndValidate(v)
}

// loadGlobalConfig attempts to load the global config file.
// Returns nil if the file doesn't exist or home directory cannot be determined.
func loadGlobalConfig(v *viper.Viper) error {
	globalConfigPath, ok := getGlobalConfigPathIfExists()
	if !ok {
		return nil
	}

	v.SetConfigFile(globalConfigPath)
	if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) {
		return errors.Wrap(err, "failed to read global config file")
	}
	return nil
}

// getGlobalConfigPathIfExists returns the global config path if it exists.
func getGlobalConfigPathIfExists() (string, bool) {
	globalConfigPath, err := GlobalConfigPath()
	if err != nil {
		return "", false
	}
	if !fileExists(globalConfigPath) {
		return "", false
	}
	return globalConfigPath, true
}

// loadProjectConfig attempts to load the project config file.
// Returns nil if the file doesn't exist.
func loadProjectConfig(v *viper.Viper) error {
	projectConfigPath := ProjectConfigPath()
	if !fileExists(projectConfigPath) {
		return nil
	}

	v.SetConfigFile(projectConfigPath)
	if err := v.MergeInConfig(); err != nil && !isConfigNotFoundError(err) {
		return errors.Wrap(err, "failed to read project config file")
	}
	return nil
}

// fileExists returns true if the file at path exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LoadWithOverrides loads configuration and applies CLI flag overrides.
// Only non-zero values in overrides are applied.
func LoadWithOverrides(ctx context.Context, overrides *Config) (*Config, error) {
	cfg, err := Load(ctx)
	if err != nil {
		return nil, err
	}
	return Override(cfg, overrides)
}

// Override applies non-zero overrides to cfg and validates the result.
func Override(cfg, overrides *Config) (*Config, error) {
	if overrides != nil {
		applyOverrides(cfg, overrides)
	}
	if err := Validate(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration after overrides")
	}
	return cfg, nil
}

// LoadFromPaths loads configuration from specific file paths for testing.
// Either path can be empty to skip that level.
func LoadFromPaths(_ context.Context, projectConfigPath, globalConfigPath string) (*Config, error) {
	v := newViperInstance()

	if globalConfigPath != "" {
		v.SetConfigFile(globalConfigPath)
		if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to read global config: %s", globalConfigPath)
		}
	}

	if projectConfigPath != "" {
		v.SetConfigFile(projectConfigPath)
		if err := v.MergeInConfig(); err != nil && !isConfigNotFoundError(err) && !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to read project config: %s", projectConfigPath)
		}
	}

	return unmarshalAndValidate(v)
}

// setDefaults configures all default values on the Viper instance.
// Keys must match the mapstructure tag names exactly.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("package.name", d.Package.Name)

	v.SetDefault("trigger.tags", d.Trigger.Tags)
	v.SetDefault("trigger.branches", d.Trigger.Branches)

	v.SetDefault("checkout.workspace", d.Checkout.Workspace)
	v.SetDefault("checkout.repo", d.Checkout.Repo)
	v.SetDefault("checkout.remote", d.Checkout.Remote)
	v.SetDefault("checkout.depth", d.Checkout.Depth)

	v.SetDefault("runtime.python_version", d.Runtime.PythonVersion)
	v.SetDefault("runtime.interpreter", d.Runtime.Interpreter)
	v.SetDefault("runtime.venv", d.Runtime.Venv)

	v.SetDefault("tools.install", d.Tools.Install)
	v.SetDefault("tools.upgrade_installer", d.Tools.UpgradeInstaller)

	v.SetDefault("build.outdir", d.Build.OutDir)
	v.SetDefault("build.clean_paths", d.Build.CleanPaths)

	v.SetDefault("publish.secret_name", d.Publish.SecretName)
	v.SetDefault("publish.username", d.Publish.Username)
	v.SetDefault("publish.repository_url", d.Publish.RepositoryURL)
	v.SetDefault("publish.secret_dir", d.Publish.SecretDir)

	v.SetDefault("lock.backend", d.Lock.Backend)
	v.SetDefault("lock.dir", d.Lock.Dir)
	v.SetDefault("lock.redis_url", d.Lock.RedisURL)
	v.SetDefault("lock.ttl", d.Lock.TTL.String())

	v.SetDefault("step_timeout", d.StepTimeout.String())
}

// applyOverrides merges non-zero override values into the config.
//
// IMPORTANT: Boolean fields (Venv, UpgradeInstaller) cannot be overridden
// to false here. CLI implementations handle boolean flags separately with
// cmd.Flags().Changed.
func applyOverrides(cfg, overrides *Config) {
	if overrides.Package.Name != "" {
		cfg.Package.Name = overrides.Package.Name
	}

	if len(overrides.Trigger.Tags) > 0 {
		cfg.Trigger.Tags = overrides.Trigger.Tags
	}
	if len(overrides.Trigger.Branches) > 0 {
		cfg.Trigger.Branches = overrides.Trigger.Branches
	}

	applyCheckoutOverrides(&cfg.Checkout, &overrides.Checkout)

	if overrides.Runtime.PythonVersion != "" {
		cfg.Runtime.PythonVersion = overrides.Runtime.PythonVersion
	}
	if overrides.Runtime.Interpreter != "" {
		cfg.Runtime.Interpreter = overrides.Runtime.Interpreter
	}
	if overrides.Runtime.Venv {
		cfg.Runtime.Venv = true
	}

	if len(overrides.Tools.Install) > 0 {
		cfg.Tools.Install = overrides.Tools.Install
	}

	if overrides.Build.OutDir != "" {
		cfg.Build.OutDir = overrides.Build.OutDir
	}
	if len(overrides.Build.CleanPaths) > 0 {
		cfg.Build.CleanPaths = overrides.Build.CleanPaths
	}

	applyPublishOverrides(&cfg.Publish, &overrides.Publish)

	if overrides.Lock.Backend != "" {
		cfg.Lock.Backend = overrides.Lock.Backend
	}
	if overrides.Lock.RedisURL != "" {
		cfg.Lock.RedisURL = overrides.Lock.RedisURL
	}
	if overrides.Lock.TTL != 0 {
		cfg.Lock.TTL = overrides.Lock.TTL
	}

	if overrides.StepTimeout != 0 {
		cfg.StepTimeout = overrides.StepTimeout
	}
}

func applyCheckoutOverrides(cfg, overrides *CheckoutConfig) {
	if overrides.Workspace != "" {
		cfg.Workspace = overrides.Workspace
	}
	if overrides.Repo != "" {
		cfg.Repo = overrides.Repo
	}
	if overrides.Remote != "" {
		cfg.Remote = overrides.Remote
	}
	if overrides.Depth != 0 {
		cfg.Depth = overrides.Depth
	}
}

func applyPublishOverrides(cfg, overrides *PublishConfig) {
	if overrides.SecretName != "" {
		cfg.SecretName = overrides.SecretName
	}
	if overrides.Username != "" {
		cfg.Username = overrides.Username
	}
	if overrides.RepositoryURL != "" {
		cfg.RepositoryURL = overrides.RepositoryURL
	}
	if overrides.SecretDir != "" {
		cfg.SecretDir = overrides.SecretDir
	}
}

// viperDecoderOption returns the decoder options for Viper unmarshal.
// Durations decode from strings and lists from comma separated env values.
func viperDecoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	)
}

//nolint:gochecknoglobals // compiled once
var unsafeNameChars = regexp.MustCompile(`[^a-z0-9._-]+`)

// derive fills values computed from the environment rather than defaults.
func derive(cfg *Config) {
	if cfg.Package.Name == "" {
		dir := cfg.Checkout.Workspace
		if dir == "" {
			dir, _ = os.Getwd()
		}
		cfg.Package.Name = PackageNameFromDir(dir)
	}
}

// PackageNameFromDir turns a directory basename into a lock-safe package name.
// Returns "package" when nothing usable remains.
func PackageNameFromDir(dir string) string {
	if dir == "" {
		return "package"
	}
	name := strings.ToLower(filepath.Base(filepath.Clean(dir)))
	name = unsafeNameChars.ReplaceAllString(name, "-")
	name = strings.TrimLeft(name, "._-")
	if name == "" {
		return "package"
	}
	return name
}
