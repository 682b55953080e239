package config

import (
	"github.com/hydragram/releaser/internal/constants"
	"github.com/hydragram/releaser/internal/lock"
)

// DefaultConfig returns a new Config with the built-in defaults.
// These are the base layer under config files, environment variables and flags.
func DefaultConfig() *Config {
	return &Config{
		Trigger: TriggerConfig{
			Tags:     []string{constants.DefaultTagPattern},
			Branches: []string{constants.DefaultBranch},
		},
		Checkout: CheckoutConfig{
			Remote: constants.DefaultRemote,
			// A shallow fetch of the triggering revision is all a build needs.
			Depth: 1,
		},
		Runtime: RuntimeConfig{
			PythonVersion: constants.DefaultPythonVersion,
		},
		Tools: ToolsConfig{
			Install:          []string{constants.ToolBuild, constants.ToolTwine},
			UpgradeInstaller: true,
		},
		Build: BuildConfig{
			OutDir:     constants.DistDir,
			CleanPaths: []string{constants.DistDir, constants.BuildDir, constants.EggInfoPattern},
		},
		Publish: PublishConfig{
			SecretName: constants.DefaultSecretName,
			Username:   constants.TokenUsername,
		},
		Lock: LockConfig{
			Backend: lock.BackendFile,
			TTL:     constants.DefaultLockTTL,
		},
		StepTimeout: constants.DefaultStepTimeout,
	}
}
