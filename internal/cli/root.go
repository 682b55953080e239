// Package cli provides the command-line interface for releaser.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hydragram/releaser/internal/errors"
	"github.com/hydragram/releaser/internal/tui"
)

// BuildInfo contains version information set at build time via ldflags.
type BuildInfo struct {
	// Version is the semantic version (e.g., "1.0.0").
	Version string `json:"version"`
	// Commit is the git commit hash.
	Commit string `json:"commit"`
	// Date is the build date.
	Date string `json:"date"`
}

// newRootCmd creates the root command with the process environment.
func newRootCmd(flags *GlobalFlags, info BuildInfo) *cobra.Command {
	return newRootCmdWithEnv(flags, info, defaultEnv())
}

// newRootCmdWithEnv creates the root command. Tests pass a fake env.
func newRootCmdWithEnv(flags *GlobalFlags, info BuildInfo, e *env) *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "releaser",
		Short: "releaser - build and publish a Python package on release pushes",
		Long: `releaser reacts to a push of a version tag (v*) or to the main branch by
running a fixed, fail-fast release procedure:

  checkout → setup runtime → install tools → clean → build → publish

The registry credential comes from the secret store and is only ever
passed to the publish step's environment.`,
		Version: formatVersion(info),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := BindGlobalFlags(v, cmd); err != nil {
				return fmt.Errorf("failed to bind flags: %w", err)
			}
			flags.Output = v.GetString("output")

			if !IsValidOutputFormat(flags.Output) {
				return fmt.Errorf("%w: %q must be one of %v", errors.ErrInvalidOutputFormat, flags.Output, ValidOutputFormats())
			}

			var logger zerolog.Logger
			if e.logWriter != nil {
				logger = InitLoggerWithWriter(flags.Verbose, flags.Quiet, e.logWriter)
			} else {
				logger = InitLogger(flags.Verbose, flags.Quiet)
			}
			cmd.SetContext(logger.WithContext(cmd.Context()))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	AddGlobalFlags(cmd, flags)

	AddRunCommand(cmd, flags, e)
	AddTriggerCommand(cmd, flags, e)
	AddPlanCommand(cmd, flags, e)
	AddHistoryCommand(cmd, flags, e)
	AddWorkflowCommand(cmd, flags, e)
	AddDoctorCommand(cmd, flags, e)
	AddVersionCommand(cmd, flags, info)

	return cmd
}

// formatVersion creates the version string from build info.
func formatVersion(info BuildInfo) string {
	info = info.withDefaults()
	return fmt.Sprintf("%s (commit: %s, built: %s)", info.Version, info.Commit, info.Date)
}

func (b BuildInfo) withDefaults() BuildInfo {
	if b.Version == "" {
		b.Version = "dev"
	}
	if b.Commit == "" {
		b.Commit = "none"
	}
	if b.Date == "" {
		b.Date = "unknown"
	}
	return b
}

// Execute runs the root command and reports any error on stderr in the
// selected output format. A not-triggered exit is reported by the decision
// output alone.
func Execute(ctx context.Context, info BuildInfo) error {
	defer CloseLogFile()

	flags := &GlobalFlags{}
	//nolint:contextcheck // Cobra command pattern uses cmd.Context() internally
	cmd := newRootCmd(flags, info)
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		if code, ok := errors.ExitCodeOf(err); !ok || code != ExitNotTriggered {
			tui.NewOutput(os.Stderr, flags.Output).Error(err)
		}
	}
	return err
}
