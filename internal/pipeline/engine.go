package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hydragram/releaser/internal/clock"
	"github.com/hydragram/releaser/internal/constants"
	relerrors "github.com/hydragram/releaser/internal/errors"
)

// Saver persists run records.
type Saver interface {
	Save(ctx context.Context, run *Run) error
}

// Engine executes runs step by step.
type Engine struct {
	registry *Registry
	saver    Saver
	clock    clock.Clock
	logger   zerolog.Logger
	redact   func(string) string
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithSaver persists every finished run through s.
func WithSaver(s Saver) EngineOption {
	return func(e *Engine) {
		e.saver = s
	}
}

// WithClock sets the time source for timestamps.
func WithClock(c clock.Clock) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithRedaction filters every error message and output recorded on a run.
func WithRedaction(fn func(string) string) EngineOption {
	return func(e *Engine) {
		e.redact = fn
	}
}

// NewEngine creates an engine resolving executors from registry.
func NewEngine(registry *Registry, logger zerolog.Logger, opts ...EngineOption) *Engine {
	e := &Engine{
		registry: registry,
		clock:    clock.RealClock{},
		logger:   logger,
		redact:   func(s string) string { return s },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs every step of run in order and stops at the first failure.
// A run naming a step type without an executor is refused before any step
// runs.
// Steps after a failure are marked skipped. The run ends succeeded or
// failed, cleanups registered by steps run, and the record is saved when
// a Saver is configured. The first step error is returned.
func (e *Engine) Execute(ctx context.Context, run *Run) error {
	if run == nil {
		return fmt.Errorf("run %w", relerrors.ErrEmptyValue)
	}
	if len(run.Definitions) != len(run.Steps) {
		return fmt.Errorf("run %s has %d definitions and %d step results: %w",
			run.ID, len(run.Definitions), len(run.Steps), relerrors.ErrInvalidTransition)
	}
	for _, def := range run.Definitions {
		if !e.registry.Has(def.Type) {
			return fmt.Errorf("step %s: %w: %s", def.Name, relerrors.ErrExecutorNotFound, def.Type)
		}
	}
	if err := Transition(run, constants.RunStatusRunning, e.clock.Now(), run.Decision.Reason); err != nil {
		return err
	}

	logger := e.logger.With().Str("run_id", run.ID).Str("package", run.Package).Logger()
	ctx = logger.WithContext(ctx)
	logger.Info().Int("steps", len(run.Steps)).Msg("run started")

	var runErr error
	for i := range run.Steps {
		if runErr != nil {
			e.skip(&run.Steps[i])
			continue
		}
		runErr = e.runStep(ctx, run, i)
	}

	e.runCleanups(ctx, run)

	if runErr != nil {
		run.Error = e.redact(runErr.Error())
		_ = Transition(run, constants.RunStatusFailed, e.clock.Now(), run.Error)
		logger.Error().Err(runErr).Int64("duration_ms", run.Duration().Milliseconds()).Msg("run failed")
	} else {
		_ = Transition(run, constants.RunStatusSucceeded, e.clock.Now(), "all steps succeeded")
		logger.Info().Int64("duration_ms", run.Duration().Milliseconds()).Msg("run succeeded")
	}

	if e.saver != nil {
		// Save with a context that survives cancellation so an interrupted
		// run still leaves a record.
		if err := e.saver.Save(context.WithoutCancel(ctx), run); err != nil {
			logger.Warn().Err(err).Msg("failed to save run record")
			if runErr == nil {
				return fmt.Errorf("save run record: %w", err)
			}
		}
	}
	return runErr
}

// runStep executes step i and records its outcome.
func (e *Engine) runStep(ctx context.Context, run *Run, i int) error {
	def := &run.Definitions[i]
	slot := &run.Steps[i]

	started := e.clock.Now().UTC()
	slot.Status = constants.StepStatusRunning
	slot.StartedAt = &started

	result, err := e.execute(ctx, run, def)

	completed := e.clock.Now().UTC()
	slot.CompletedAt = &completed
	slot.DurationMs = completed.Sub(started).Milliseconds()
	if result != nil {
		slot.ExitCode = result.ExitCode
		slot.Commands = result.Commands
		slot.Output = e.redact(result.Output)
	}

	if err != nil {
		slot.Status = constants.StepStatusFailed
		slot.Error = e.redact(err.Error())
		e.stepLog(run, def, zerolog.ErrorLevel, slot.DurationMs).Err(err).Msg("step failed")
		return fmt.Errorf("step %s: %w", def.Name, err)
	}

	slot.Status = constants.StepStatusSucceeded
	e.stepLog(run, def, zerolog.InfoLevel, slot.DurationMs).Msg("step completed")
	return nil
}

func (e *Engine) execute(ctx context.Context, run *Run, def *StepDefinition) (*StepResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	executor, err := e.registry.Get(def.Type)
	if err != nil {
		return nil, err
	}

	e.stepLog(run, def, zerolog.InfoLevel, 0).Msg("executing step")
	return executor.Execute(ctx, run, def)
}

func (e *Engine) skip(slot *StepResult) {
	slot.Status = constants.StepStatusSkipped
}

// runCleanups runs registered cleanups newest first. Failures are logged
// and do not change the run outcome.
func (e *Engine) runCleanups(ctx context.Context, run *Run) {
	logger := zerolog.Ctx(ctx)
	var errs []error
	for i := len(run.cleanups) - 1; i >= 0; i-- {
		if err := run.cleanups[i](); err != nil {
			errs = append(errs, err)
		}
	}
	run.cleanups = nil
	if err := errors.Join(errs...); err != nil {
		logger.Warn().Err(err).Msg("run cleanup failed")
	}
}

// stepLog creates a log event with common step fields.
func (e *Engine) stepLog(run *Run, def *StepDefinition, level zerolog.Level, durationMs int64) *zerolog.Event {
	event := e.logger.WithLevel(level). //nolint:zerologlint // event returned for caller to dispatch
						Str("run_id", run.ID).
						Str("step_name", def.Name).
						Str("step_type", string(def.Type))
	if durationMs > 0 {
		event = event.Int64("duration_ms", durationMs)
	}
	return event
}

// PlannedStep is one entry of a plan.
type PlannedStep struct {
	StepDefinition

	Commands []string `json:"commands,omitempty"`
}

// Plan lists the steps of run with the commands each would execute.
func (e *Engine) Plan(run *Run) ([]PlannedStep, error) {
	plan := make([]PlannedStep, 0, len(run.Definitions))
	for _, def := range run.Definitions {
		executor, err := e.registry.Get(def.Type)
		if err != nil {
			return nil, err
		}
		p := PlannedStep{StepDefinition: def}
		if d, ok := executor.(Describer); ok {
			p.Commands = d.Describe(run)
		}
		plan = append(plan, p)
	}
	return plan, nil
}
