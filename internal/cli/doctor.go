package cli

import (
	"context"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/hydragram/releaser/internal/config"
	"github.com/hydragram/releaser/internal/constants"
	"github.com/hydragram/releaser/internal/errors"
	"github.com/hydragram/releaser/internal/tui"
)

// AddDoctorCommand adds the doctor command to the root command.
func AddDoctorCommand(root *cobra.Command, flags *GlobalFlags, e *env) {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that git and the pinned Python runtime are available",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd.Context(), cmd.OutOrStdout(), flags, e)
		},
	}
	root.AddCommand(cmd)
}

func runDoctor(ctx context.Context, w io.Writer, flags *GlobalFlags, e *env) error {
	cfg, err := loadConfig(ctx, flags, nil)
	if err != nil {
		return err
	}

	runner := e.newRunner(constants.ToolDetectionTimeout, nil)
	result, err := config.NewToolDetector(runner, e.lookPath, cfg.Runtime).Detect(ctx)
	if err != nil {
		return err
	}

	out := tui.NewOutput(w, flags.Output)
	if out.IsJSON() {
		if err := out.JSON(result); err != nil {
			return err
		}
	} else {
		renderTools(out.Writer(), result.Tools)
	}

	if result.HasMissingRequired {
		return errors.Wrap(errors.ErrToolNotFound, strings.TrimSpace(config.FormatMissingToolsError(result.MissingRequiredTools())))
	}
	return nil
}

func renderTools(w io.Writer, tools []config.Tool) {
	table := tui.NewTable(w, []tui.TableColumn{
		{Name: "TOOL", Width: 8},
		{Name: "STATUS", Width: 12},
		{Name: "VERSION", Width: 10},
		{Name: "PATH", Width: 40},
	})
	table.WriteHeader()
	for _, tool := range tools {
		status := tool.Status.String()
		color := tui.ColorSuccess
		if !tool.Status.OK() {
			color = tui.ColorError
		}
		table.WriteRow(
			[]string{tool.Name, status, tool.CurrentVersion, tool.Path},
			map[int]string{1: lipgloss.NewStyle().Foreground(color).Render(status)},
		)
	}
}
