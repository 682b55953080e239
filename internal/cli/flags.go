package cli

import (
	stderrors "errors"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hydragram/releaser/internal/constants"
	"github.com/hydragram/releaser/internal/errors"
	"github.com/hydragram/releaser/internal/tui"
)

// Exit codes for the CLI.
const (
	// ExitSuccess indicates success, including an event that starts no run.
	ExitSuccess = 0
	// ExitError indicates a failed run or a general error.
	ExitError = 1
	// ExitInvalidInput indicates invalid user input or configuration.
	ExitInvalidInput = 2
	// ExitNotTriggered is returned by `trigger --exit-code` for a
	// non-triggering event.
	ExitNotTriggered = 3
)

// Output format constants.
const (
	// OutputText is the default human-readable output format.
	OutputText = tui.FormatText
	// OutputJSON is the machine-readable JSON output format.
	OutputJSON = tui.FormatJSON
)

// GlobalFlags holds flags available to all commands.
type GlobalFlags struct {
	// Output specifies the output format (text or json).
	Output string
	// Verbose enables debug-level logging and streams tool output.
	Verbose bool
	// Quiet suppresses non-essential output (warn level only).
	Quiet bool
	// Config is an explicit config file replacing the global and project files.
	Config string
}

// AddGlobalFlags adds global flags to a command.
// These flags are available to all subcommands via PersistentFlags.
func AddGlobalFlags(cmd *cobra.Command, flags *GlobalFlags) {
	cmd.PersistentFlags().StringVarP(&flags.Output, "output", "o", OutputText, "output format (text|json)")
	cmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "enable verbose output")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "suppress non-essential output")
	cmd.PersistentFlags().StringVar(&flags.Config, "config", "", "config file (default: ~/.releaser/config.yaml and .releaser/config.yaml)")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
}

// BindGlobalFlags binds global flags to Viper so RELEASER_OUTPUT can set the
// output format.
func BindGlobalFlags(v *viper.Viper, cmd *cobra.Command) error {
	// Root().PersistentFlags() finds flags defined on the root command even
	// when called from a subcommand.
	rootFlags := cmd.Root().PersistentFlags()

	if err := v.BindPFlag("output", rootFlags.Lookup("output")); err != nil {
		return err
	}

	v.SetEnvPrefix(constants.EnvPrefix)
	v.AutomaticEnv()

	return nil
}

// ValidOutputFormats returns the list of valid output format values.
func ValidOutputFormats() []string {
	return []string{OutputText, OutputJSON}
}

// IsValidOutputFormat checks if the given format is a valid output format.
func IsValidOutputFormat(format string) bool {
	return tui.ValidateFormat(format) == nil && format != ""
}

//nolint:gochecknoglobals // fixed set of input errors
var invalidInputErrors = []error{
	errors.ErrInvalidOutputFormat,
	errors.ErrInvalidEvent,
	errors.ErrConfigNil,
	errors.ErrConfigInvalidPackage,
	errors.ErrConfigInvalidTrigger,
	errors.ErrConfigInvalidRuntime,
	errors.ErrConfigInvalidBuild,
	errors.ErrConfigInvalidPublish,
	errors.ErrConfigInvalidLock,
	errors.ErrConfigInvalidTimeout,
}

// ExitCodeForError returns the appropriate exit code for the given error.
// An explicit ExitCodeError wins; input and configuration errors give
// ExitInvalidInput; everything else is ExitError.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if code, ok := errors.ExitCodeOf(err); ok {
		return code
	}

	for _, target := range invalidInputErrors {
		if stderrors.Is(err, target) {
			return ExitInvalidInput
		}
	}

	// Cobra flag parsing errors carry no sentinel.
	if isInvalidInputError(err.Error()) {
		return ExitInvalidInput
	}

	return ExitError
}

// isInvalidInputError checks if an error message indicates invalid user input.
func isInvalidInputError(errMsg string) bool {
	invalidInputPatterns := []string{
		"unknown flag",
		"unknown shorthand flag",
		"flag needs an argument",
		"invalid argument",
		"if any flags in the group",
		"required flag",
		"unknown command",
		"accepts at most",
	}

	for _, pattern := range invalidInputPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
