package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hydragram/releaser/internal/config"
	"github.com/hydragram/releaser/internal/lock"
	"github.com/hydragram/releaser/internal/workflow"
)

type workflowOptions struct {
	config configFlags
	name   string
	file   string
	runsOn string
}

// AddWorkflowCommand adds the workflow command to the root command.
func AddWorkflowCommand(root *cobra.Command, flags *GlobalFlags, _ *env) {
	opts := &workflowOptions{}
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Render the equivalent GitHub Actions workflow",
		Long: `Render a GitHub Actions workflow that runs the same release procedure
natively on a hosted runner, using the configured trigger patterns, Python
version, build tools and registry secret.

Examples:
  releaser workflow
  releaser workflow --file .github/workflows/release.yml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWorkflow(cmd.Context(), cmd.OutOrStdout(), flags, opts)
		},
	}
	addConfigFlags(cmd, &opts.config)
	cmd.Flags().StringVar(&opts.name, "name", "", "workflow name (default: Release)")
	cmd.Flags().StringVar(&opts.runsOn, "runs-on", "", "runner label (default: ubuntu-latest)")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "write the workflow to this file instead of stdout")
	root.AddCommand(cmd)
}

func runWorkflow(ctx context.Context, w io.Writer, flags *GlobalFlags, opts *workflowOptions) error {
	cfg, err := loadConfig(ctx, flags, opts.config.overrides())
	if err != nil {
		return err
	}

	data, err := workflow.Render(workflowFromConfig(cfg, opts))
	if err != nil {
		return err
	}

	if opts.file == "" {
		_, err = w.Write(data)
		return err
	}

	if err := os.MkdirAll(filepath.Dir(opts.file), 0o750); err != nil {
		return fmt.Errorf("failed to create workflow directory: %w", err)
	}
	if err := os.WriteFile(opts.file, data, 0o600); err != nil {
		return fmt.Errorf("failed to write workflow: %w", err)
	}
	zerolog.Ctx(ctx).Info().Str("path", opts.file).Msg("workflow written")
	return nil
}

func workflowFromConfig(cfg *config.Config, opts *workflowOptions) workflow.Options {
	return workflow.Options{
		Name:             opts.name,
		Package:          cfg.Package.Name,
		Policy:           cfg.TriggerPolicy(),
		PythonVersion:    cfg.Runtime.PythonVersion,
		Tools:            cfg.Tools.Install,
		UpgradeInstaller: cfg.Tools.UpgradeInstaller,
		CleanPaths:       cfg.Build.CleanPaths,
		OutDir:           cfg.Build.OutDir,
		SecretName:       cfg.Publish.SecretName,
		Username:         cfg.Publish.Username,
		RepositoryURL:    cfg.Publish.RepositoryURL,
		Concurrency:      cfg.Lock.Backend != lock.BackendNone,
		RunsOn:           opts.runsOn,
	}
}
