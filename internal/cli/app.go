package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hydragram/releaser/internal/clock"
	"github.com/hydragram/releaser/internal/command"
	"github.com/hydragram/releaser/internal/config"
)

// env holds the process collaborators of the commands.
type env struct {
	getenv    func(string) string
	lookPath  func(string) (string, error)
	newRunner func(timeout time.Duration, live io.Writer) command.Runner
	clock     clock.Clock
	// logWriter replaces the console and file logger when set.
	logWriter io.Writer
}

func defaultEnv() *env {
	return &env{
		getenv:   os.Getenv,
		lookPath: command.LookPath,
		newRunner: func(timeout time.Duration, live io.Writer) command.Runner {
			r := command.NewExecRunner(timeout)
			r.LiveOutput = live
			return r
		},
		clock: clock.RealClock{},
	}
}

// loadConfig loads the explicit --config file or the global and project
// files, then applies flag overrides.
func loadConfig(ctx context.Context, flags *GlobalFlags, overrides *config.Config) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flags.Config != "" {
		cfg, err = config.LoadFile(ctx, flags.Config)
	} else {
		cfg, err = config.Load(ctx)
	}
	if err != nil {
		return nil, err
	}
	return config.Override(cfg, overrides)
}

// configFlags are the configuration overrides shared by run, plan and
// workflow.
type configFlags struct {
	pkg           string
	workspace     string
	repo          string
	python        string
	interpreter   string
	secretName    string
	repositoryURL string
	lockBackend   string
	venv          bool
}

func addConfigFlags(cmd *cobra.Command, f *configFlags) {
	cmd.Flags().StringVar(&f.pkg, "package", "", "package name (default: workspace directory name)")
	cmd.Flags().StringVar(&f.python, "python", "", "pinned Python major.minor version")
	cmd.Flags().StringVar(&f.secretName, "secret-name", "", "secret holding the registry API token")
	cmd.Flags().StringVar(&f.repositoryURL, "repository-url", "", "registry upload URL")
}

func addExecutionFlags(cmd *cobra.Command, f *configFlags) {
	cmd.Flags().StringVar(&f.workspace, "workspace", "", "existing checkout to build in place")
	cmd.Flags().StringVar(&f.repo, "repo", "", "repository URL to fetch into a temporary workspace")
	cmd.Flags().StringVar(&f.interpreter, "interpreter", "", "use exactly this Python interpreter")
	cmd.Flags().StringVar(&f.lockBackend, "lock", "", "run lock backend (file|redis|none)")
	cmd.Flags().BoolVar(&f.venv, "venv", false, "install tools into a throwaway virtual environment")
}

func (f *configFlags) overrides() *config.Config {
	o := &config.Config{}
	o.Package.Name = f.pkg
	o.Checkout.Workspace = f.workspace
	o.Checkout.Repo = f.repo
	o.Runtime.PythonVersion = f.python
	o.Runtime.Interpreter = f.interpreter
	o.Runtime.Venv = f.venv
	o.Publish.SecretName = f.secretName
	o.Publish.RepositoryURL = f.repositoryURL
	o.Lock.Backend = f.lockBackend
	return o
}
