package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hydragram/releaser/internal/tui"
)

// AddVersionCommand adds the version command to the root command.
func AddVersionCommand(root *cobra.Command, flags *GlobalFlags, info BuildInfo) {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := tui.NewOutput(cmd.OutOrStdout(), flags.Output)
			if out.IsJSON() {
				return out.JSON(info.withDefaults())
			}
			_, err := fmt.Fprintln(out.Writer(), "releaser "+formatVersion(info))
			return err
		},
	}
	root.AddCommand(cmd)
}
