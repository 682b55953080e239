package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/hydragram/releaser/internal/errors"
	"github.com/hydragram/releaser/internal/trigger"
	"github.com/hydragram/releaser/internal/tui"
)

type triggerOptions struct {
	event    eventFlags
	exitCode bool
}

// decisionOutput is the JSON shape of an evaluated event.
type decisionOutput struct {
	Event    trigger.Event    `json:"event"`
	Decision trigger.Decision `json:"decision"`
}

// AddTriggerCommand adds the trigger command to the root command.
func AddTriggerCommand(root *cobra.Command, flags *GlobalFlags, e *env) {
	opts := &triggerOptions{}
	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Report whether a push event starts a release run",
		Long: `Evaluate a push event against the configured tag and branch patterns
without running anything.

With --exit-code a non-triggering event exits with status 3, which lets
shell scripts branch on the decision.

Examples:
  releaser trigger --tag v1.2.3
  releaser trigger --ref refs/heads/feature/x --exit-code`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTrigger(cmd.Context(), cmd.OutOrStdout(), flags, e, opts)
		},
	}
	addEventFlags(cmd, &opts.event)
	cmd.Flags().BoolVar(&opts.exitCode, "exit-code", false, "exit with status 3 when the event does not trigger")
	root.AddCommand(cmd)
}

func runTrigger(ctx context.Context, w io.Writer, flags *GlobalFlags, e *env, opts *triggerOptions) error {
	event, err := opts.event.resolve(e)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(ctx, flags, nil)
	if err != nil {
		return err
	}

	decision := cfg.TriggerPolicy().Evaluate(event)

	out := tui.NewOutput(w, flags.Output)
	if out.IsJSON() {
		if err := out.JSON(decisionOutput{Event: event, Decision: decision}); err != nil {
			return err
		}
	} else {
		tui.RenderDecision(out.Writer(), decision)
	}

	if opts.exitCode && !decision.Triggered {
		return errors.NewExitCodeError(ExitNotTriggered, decision.Err())
	}
	return nil
}

