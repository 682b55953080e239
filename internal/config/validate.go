package config

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/hydragram/releaser/internal/errors"
	"github.com/hydragram/releaser/internal/lock"
	"github.com/hydragram/releaser/internal/trigger"
)

//nolint:gochecknoglobals // compiled once
var (
	pythonVersionRe = regexp.MustCompile(`^\d+\.\d+$`)
	secretNameRe    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Validate checks the configuration for invalid or inconsistent values.
// It returns an error describing the first validation failure found.
//
// Validation rules:
//   - package.name must be a lock-safe name
//   - trigger needs at least one tag or branch pattern, all well formed
//   - runtime.python_version must be major.minor
//   - build.outdir must stay inside the workspace
//   - publish.secret_name must be a valid secret identifier
//   - lock.backend must be file, redis or none
//   - step_timeout and, for redis, lock.ttl must be positive
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.ErrConfigNil
	}

	if err := validatePackageConfig(&cfg.Package); err != nil {
		return err
	}
	if err := cfg.TriggerPolicy().Validate(); err != nil {
		return err
	}
	if err := validateRuntimeConfig(&cfg.Runtime); err != nil {
		return err
	}
	if err := validateBuildConfig(&cfg.Build); err != nil {
		return err
	}
	if err := validatePublishConfig(&cfg.Publish); err != nil {
		return err
	}
	if err := validateLockConfig(&cfg.Lock); err != nil {
		return err
	}

	if cfg.StepTimeout <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidTimeout,
			"step_timeout must be positive, got %s", cfg.StepTimeout)
	}
	if cfg.Checkout.Depth < 0 {
		return errors.Wrapf(errors.ErrConfigInvalidPackage,
			"checkout.depth cannot be negative, got %d", cfg.Checkout.Depth)
	}

	return nil
}

func validatePackageConfig(cfg *PackageConfig) error {
	if cfg.Name == "" {
		return errors.Wrap(errors.ErrConfigInvalidPackage, "package.name must not be empty")
	}
	if err := lock.ValidateKey(cfg.Name); err != nil {
		return errors.Wrapf(errors.ErrConfigInvalidPackage,
			"package.name %q may only contain letters, digits, dot, dash and underscore", cfg.Name)
	}
	return nil
}

func validateRuntimeConfig(cfg *RuntimeConfig) error {
	if !pythonVersionRe.MatchString(cfg.PythonVersion) {
		return errors.Wrapf(errors.ErrConfigInvalidRuntime,
			"runtime.python_version must look like 3.10, got %q", cfg.PythonVersion)
	}
	return nil
}

func validateBuildConfig(cfg *BuildConfig) error {
	out := strings.TrimSpace(cfg.OutDir)
	if out == "" {
		return errors.Wrap(errors.ErrConfigInvalidBuild, "build.outdir must not be empty")
	}
	clean := path.Clean(strings.ReplaceAll(out, `\`, "/"))
	if path.IsAbs(clean) || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return errors.Wrapf(errors.ErrConfigInvalidBuild,
			"build.outdir must be a directory inside the workspace, got %q", cfg.OutDir)
	}
	for _, p := range cfg.CleanPaths {
		if strings.TrimSpace(p) == "" {
			return errors.Wrap(errors.ErrConfigInvalidBuild, "build.clean_paths must not contain empty entries")
		}
	}
	return nil
}

func validatePublishConfig(cfg *PublishConfig) error {
	if !secretNameRe.MatchString(cfg.SecretName) {
		return errors.Wrapf(errors.ErrConfigInvalidPublish,
			"publish.secret_name must be an identifier, got %q", cfg.SecretName)
	}
	if cfg.Username == "" {
		return errors.Wrap(errors.ErrConfigInvalidPublish, "publish.username must not be empty")
	}
	if cfg.RepositoryURL != "" {
		u, err := url.Parse(cfg.RepositoryURL)
		if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
			return errors.Wrapf(errors.ErrConfigInvalidPublish,
				"publish.repository_url must be an http(s) URL, got %q", cfg.RepositoryURL)
		}
	}
	return nil
}

func validateLockConfig(cfg *LockConfig) error {
	if !lock.IsValidBackend(cfg.Backend) {
		return errors.Wrapf(errors.ErrConfigInvalidLock,
			"lock.backend must be one of %s, got %q", strings.Join(lock.ValidBackends, ", "), cfg.Backend)
	}
	if cfg.Backend != lock.BackendRedis {
		return nil
	}
	if cfg.RedisURL == "" {
		return errors.Wrap(errors.ErrConfigInvalidLock, "lock.redis_url is required for the redis backend")
	}
	if cfg.TTL <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalidTimeout,
			"lock.ttl must be positive, got %s", cfg.TTL)
	}
	return nil
}

// TriggerPolicy returns the trigger policy described by the configuration.
func (c *Config) TriggerPolicy() trigger.Policy {
	return trigger.Policy{
		Tags:     c.Trigger.Tags,
		Branches: c.Trigger.Branches,
	}
}
