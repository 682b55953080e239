package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hydragram/releaser/internal/config"
	"github.com/hydragram/releaser/internal/history"
	"github.com/hydragram/releaser/internal/lock"
	"github.com/hydragram/releaser/internal/logging"
	"github.com/hydragram/releaser/internal/pipeline"
	"github.com/hydragram/releaser/internal/pipeline/steps"
	"github.com/hydragram/releaser/internal/signal"
	"github.com/hydragram/releaser/internal/tui"
)

type runOptions struct {
	event  eventFlags
	config configFlags
	dryRun bool
}

// AddRunCommand adds the run command to the root command.
func AddRunCommand(root *cobra.Command, flags *GlobalFlags, e *env) {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the release procedure for a push event",
		Long: `Evaluate the push event and, when it triggers, run the release procedure:
checkout, setup runtime, install tools, clean, build and publish.

The event is read from --event-file, --ref, --tag or --branch, or from the
GitHub Actions environment. A non-triggering event exits successfully
without running anything.

Examples:
  releaser run --tag v1.2.3
  releaser run --branch main --dry-run
  releaser run --event-file "$GITHUB_EVENT_PATH" --fetch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRelease(cmd.Context(), cmd.OutOrStdout(), flags, e, opts)
		},
	}
	addEventFlags(cmd, &opts.event)
	opts.event.addFetchFlag(cmd)
	addConfigFlags(cmd, &opts.config)
	addExecutionFlags(cmd, &opts.config)
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "show the commands that would run without running them")
	root.AddCommand(cmd)
}

func runRelease(ctx context.Context, w io.Writer, flags *GlobalFlags, e *env, opts *runOptions) error {
	logger := zerolog.Ctx(ctx)
	out := tui.NewOutput(w, flags.Output)

	event, err := opts.event.resolve(e)
	if err != nil {
		return err
	}

	overrides := opts.config.overrides()
	if err := opts.event.applyFetch(e, event, overrides); err != nil {
		return err
	}
	cfg, err := loadConfig(ctx, flags, overrides)
	if err != nil {
		return err
	}

	decision := cfg.TriggerPolicy().Evaluate(event)
	logger.Info().
		Str("ref", event.Ref).
		Bool("triggered", decision.Triggered).
		Str("reason", decision.Reason).
		Msg("event evaluated")
	if !decision.Triggered {
		if out.IsJSON() {
			return out.JSON(decisionOutput{Event: event, Decision: decision})
		}
		tui.RenderDecision(out.Writer(), decision)
		return nil
	}

	home, err := config.Home()
	if err != nil {
		return err
	}
	store, err := history.NewFileStore(home)
	if err != nil {
		return err
	}

	redactor := logging.DefaultRedactor()
	var live io.Writer
	if flags.Verbose {
		live = logging.NewFilteringWriter(os.Stderr, redactor)
	}
	deps := steps.Deps{
		Runner:   e.newRunner(cfg.StepTimeout, live),
		Secrets:  cfg.SecretStore(),
		Redactor: redactor,
		LookPath: e.lookPath,
	}
	registry := steps.NewRegistry(deps, cfg.StepOptions())

	now := e.clock.Now()
	run := pipeline.NewRun(pipeline.GenerateRunID(now), cfg.Package.Name, event, decision, pipeline.DefaultSteps(), now)
	engine := pipeline.NewEngine(registry, *logger,
		pipeline.WithSaver(store),
		pipeline.WithClock(e.clock),
		pipeline.WithRedaction(redactor.Filter),
	)

	if opts.dryRun {
		plan, err := engine.Plan(run)
		if err != nil {
			return err
		}
		if out.IsJSON() {
			return out.JSON(plan)
		}
		tui.RenderPlan(out.Writer(), run, plan)
		return nil
	}

	return executeLocked(ctx, out, cfg, home, engine, run)
}

// executeLocked runs the pipeline while holding the package lock so two
// runs for the same package never publish concurrently.
func executeLocked(ctx context.Context, out tui.Output, cfg *config.Config, home string, engine *pipeline.Engine, run *pipeline.Run) error {
	logger := zerolog.Ctx(ctx)

	locker, err := lock.New(cfg.LockOptions(home))
	if err != nil {
		return err
	}
	defer func() { _ = locker.Close() }()

	lease, err := locker.Acquire(ctx, cfg.Package.Name)
	if err != nil {
		return err
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn().Err(err).Str("key", lease.Key()).Msg("failed to release run lock")
		}
	}()

	handler := signal.NewHandler(ctx)
	defer handler.Stop()

	runErr := engine.Execute(handler.Context(), run)
	if sig := handler.Signal(); sig != nil {
		logger.Warn().Str("signal", sig.String()).Str("run_id", run.ID).Msg("run interrupted")
	}

	if out.IsJSON() {
		if err := out.JSON(run); err != nil {
			return err
		}
	} else {
		tui.RenderRun(out.Writer(), run)
	}

	if runErr != nil {
		return fmt.Errorf("run %s: %w", run.ID, runErr)
	}
	return nil
}
