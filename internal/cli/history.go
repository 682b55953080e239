package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/hydragram/releaser/internal/config"
	"github.com/hydragram/releaser/internal/history"
	"github.com/hydragram/releaser/internal/pipeline"
	"github.com/hydragram/releaser/internal/tui"
)

// AddHistoryCommand adds the history command to the root command.
func AddHistoryCommand(root *cobra.Command, flags *GlobalFlags, e *env) {
	var limit int
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded runs or show one run",
		Long: `Without arguments, list recorded runs newest first. With a run ID, show
that run's steps, artifacts and error.

Examples:
  releaser history
  releaser history --limit 5
  releaser history run-20261014-093000-deadbeef`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return runHistory(cmd.Context(), cmd.OutOrStdout(), flags, e, id, limit)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs to list (0 for all)")
	root.AddCommand(cmd)
}

func runHistory(ctx context.Context, w io.Writer, flags *GlobalFlags, e *env, id string, limit int) error {
	home, err := config.Home()
	if err != nil {
		return err
	}
	store, err := history.NewFileStore(home)
	if err != nil {
		return err
	}
	out := tui.NewOutput(w, flags.Output)

	if id != "" {
		run, err := store.Get(ctx, id)
		if err != nil {
			return err
		}
		if out.IsJSON() {
			return out.JSON(run)
		}
		tui.RenderRun(out.Writer(), run)
		return nil
	}

	runs, err := store.List(ctx)
	if err != nil {
		return err
	}
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	if out.IsJSON() {
		if runs == nil {
			runs = []*pipeline.Run{}
		}
		return out.JSON(runs)
	}
	tui.RenderHistory(out.Writer(), runs, e.clock)
	return nil
}
