package cli

import (
	"context"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hydragram/releaser/internal/pipeline"
	"github.com/hydragram/releaser/internal/pipeline/steps"
	"github.com/hydragram/releaser/internal/trigger"
	"github.com/hydragram/releaser/internal/tui"
)

type planOptions struct {
	event  eventFlags
	config configFlags
}

// AddPlanCommand adds the plan command to the root command.
func AddPlanCommand(root *cobra.Command, flags *GlobalFlags, e *env) {
	opts := &planOptions{}
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the release steps and the commands they run",
		Long: `Print the ordered release steps with the command lines each step would
execute under the current configuration. Nothing is run and no event is
required; when one is given its trigger decision is shown first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlan(cmd.Context(), cmd.OutOrStdout(), flags, e, opts)
		},
	}
	addEventFlags(cmd, &opts.event)
	addConfigFlags(cmd, &opts.config)
	addExecutionFlags(cmd, &opts.config)
	root.AddCommand(cmd)
}

func runPlan(ctx context.Context, w io.Writer, flags *GlobalFlags, e *env, opts *planOptions) error {
	event := trigger.Event{Name: trigger.EventPush}
	hasEvent := opts.event.explicit() || e.getenv(trigger.EnvEventName) != ""
	if hasEvent {
		var err error
		if event, err = opts.event.resolve(e); err != nil {
			return err
		}
	}

	cfg, err := loadConfig(ctx, flags, opts.config.overrides())
	if err != nil {
		return err
	}

	decision := cfg.TriggerPolicy().Evaluate(event)
	registry := steps.NewRegistry(steps.Deps{LookPath: e.lookPath}, cfg.StepOptions())
	engine := pipeline.NewEngine(registry, *zerolog.Ctx(ctx))

	now := e.clock.Now()
	run := pipeline.NewRun(pipeline.GenerateRunID(now), cfg.Package.Name, event, decision, pipeline.DefaultSteps(), now)
	plan, err := engine.Plan(run)
	if err != nil {
		return err
	}

	out := tui.NewOutput(w, flags.Output)
	if out.IsJSON() {
		return out.JSON(planOutput{Package: cfg.Package.Name, Event: event, Decision: decision, Steps: plan})
	}
	if hasEvent {
		tui.RenderDecision(out.Writer(), decision)
	}
	tui.RenderPlan(out.Writer(), run, plan)
	return nil
}

type planOutput struct {
	Package  string                 `json:"package"`
	Event    trigger.Event          `json:"event"`
	Decision trigger.Decision       `json:"decision"`
	Steps    []pipeline.PlannedStep `json:"steps"`
}
