package config

import (
	"github.com/hydragram/releaser/internal/lock"
	"github.com/hydragram/releaser/internal/pipeline/steps"
	"github.com/hydragram/releaser/internal/secret"
)

// StepOptions returns the executor options described by the configuration.
// A configured repo selects fetch mode; otherwise the workspace (or the
// current directory) is used in place.
func (c *Config) StepOptions() steps.Options {
	workspace := c.Checkout.Workspace
	if workspace == "" && c.Checkout.Repo == "" {
		workspace = "."
	}
	return steps.Options{
		Checkout: steps.CheckoutOptions{
			Workspace: workspace,
			RepoURL:   c.Checkout.Repo,
			Remote:    c.Checkout.Remote,
			Depth:     c.Checkout.Depth,
		},
		Runtime: steps.RuntimeOptions{
			PythonVersion: c.Runtime.PythonVersion,
			Interpreter:   c.Runtime.Interpreter,
			Venv:          c.Runtime.Venv,
		},
		Tools: steps.ToolsOptions{
			Packages:         c.Tools.Install,
			UpgradeInstaller: c.Tools.UpgradeInstaller,
		},
		Clean: steps.CleanOptions{Paths: c.Build.CleanPaths, OutDir: c.Build.OutDir},
		Build: steps.BuildOptions{OutDir: c.Build.OutDir},
		Publish: steps.PublishOptions{
			SecretName:    c.Publish.SecretName,
			Username:      c.Publish.Username,
			RepositoryURL: c.Publish.RepositoryURL,
		},
	}
}

// LockOptions returns the run lock options. File locks default to
// <home>/locks.
func (c *Config) LockOptions(home string) lock.Options {
	dir := c.Lock.Dir
	if dir == "" && home != "" {
		dir = LocksDir(home)
	}
	return lock.Options{
		Backend:  c.Lock.Backend,
		Dir:      dir,
		RedisURL: c.Lock.RedisURL,
		TTL:      c.Lock.TTL,
	}
}

// SecretStore returns the credential sources in lookup order: the process
// environment, then publish.secret_dir when set.
func (c *Config) SecretStore() secret.Store {
	chain := secret.Chain{secret.EnvStore{}}
	if c.Publish.SecretDir != "" {
		chain = append(chain, secret.DirStore{Dir: c.Publish.SecretDir})
	}
	return chain
}
