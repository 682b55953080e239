// Package pipeline runs the release procedure.
//
// A run is a fixed, ordered list of steps executed one at a time. A step
// either succeeds, letting the next one start, or fails, which halts the
// run: the remaining steps are reported skipped and the run ends failed.
// There is no retry, no branching and no parallelism.
//
// Import rules:
//   - CAN import: internal/constants, internal/errors, internal/clock, internal/trigger, std lib
//   - MUST NOT import: internal/pipeline/steps, internal/history, internal/cli
package pipeline

import (
	"time"

	"github.com/hydragram/releaser/internal/constants"
	"github.com/hydragram/releaser/internal/trigger"
)

// StepType identifies which executor runs a step.
type StepType string

// Step types, in procedure order.
const (
	StepTypeCheckout     StepType = "checkout"
	StepTypeSetupRuntime StepType = "setup_runtime"
	StepTypeInstallTools StepType = "install_tools"
	StepTypeClean        StepType = "clean"
	StepTypeBuild        StepType = "build"
	StepTypePublish      StepType = "publish"
)

// StepDefinition describes one step of the procedure.
type StepDefinition struct {
	Name        string   `json:"name"`
	Type        StepType `json:"type"`
	Description string   `json:"description"`
}

// DefaultSteps returns the release procedure. Each step is a precondition
// for the next.
func DefaultSteps() []StepDefinition {
	return []StepDefinition{
		{Name: "checkout", Type: StepTypeCheckout, Description: "Snapshot the repository at the triggering commit"},
		{Name: "setup_runtime", Type: StepTypeSetupRuntime, Description: "Provision the pinned Python runtime"},
		{Name: "install_tools", Type: StepTypeInstallTools, Description: "Upgrade pip and install build and twine"},
		{Name: "clean", Type: StepTypeClean, Description: "Remove dist, build and egg-info outputs"},
		{Name: "build", Type: StepTypeBuild, Description: "Build source and wheel distributions"},
		{Name: "publish", Type: StepTypePublish, Description: "Upload distributions to the package registry"},
	}
}

// StepResult is the recorded outcome of one step. Command output is kept
// in memory for error reporting but never persisted.
type StepResult struct {
	Name        string               `json:"name"`
	Type        StepType             `json:"type"`
	Status      constants.StepStatus `json:"status"`
	ExitCode    int                  `json:"exit_code,omitempty"`
	DurationMs  int64                `json:"duration_ms"`
	Error       string               `json:"error,omitempty"`
	Commands    []string             `json:"commands,omitempty"`
	StartedAt   *time.Time           `json:"started_at,omitempty"`
	CompletedAt *time.Time           `json:"completed_at,omitempty"`
	Output      string               `json:"-"`
}

// State is shared by the steps of one run. Secrets never go here.
type State struct {
	// Workspace is the absolute path of the source checkout.
	Workspace string `json:"workspace,omitempty"`
	// Ephemeral marks a workspace created for this run and removed after it.
	Ephemeral bool `json:"ephemeral,omitempty"`
	// Commit is the checked out commit.
	Commit string `json:"commit,omitempty"`
	// Interpreter is the resolved Python executable.
	Interpreter string `json:"interpreter,omitempty"`
	// RuntimeVersion is the full interpreter version, such as 3.10.14.
	RuntimeVersion string `json:"runtime_version,omitempty"`
	// Artifacts are the built files, relative to Workspace.
	Artifacts []string `json:"artifacts,omitempty"`
}

// StatusTransition records one run status change.
type StatusTransition struct {
	From   constants.RunStatus `json:"from"`
	To     constants.RunStatus `json:"to"`
	At     time.Time           `json:"at"`
	Reason string              `json:"reason,omitempty"`
}

// Run is one execution of the procedure and its persisted record.
type Run struct {
	SchemaVersion string              `json:"schema_version"`
	ID            string              `json:"id"`
	Package       string              `json:"package"`
	Event         trigger.Event       `json:"event"`
	Decision      trigger.Decision    `json:"decision"`
	Status        constants.RunStatus `json:"status"`
	Definitions   []StepDefinition    `json:"definitions"`
	Steps         []StepResult        `json:"steps"`
	State         State               `json:"state"`
	CreatedAt     time.Time           `json:"created_at"`
	StartedAt     *time.Time          `json:"started_at,omitempty"`
	CompletedAt   *time.Time          `json:"completed_at,omitempty"`
	Error         string              `json:"error,omitempty"`
	Transitions   []StatusTransition  `json:"transitions,omitempty"`

	cleanups []func() error
}

// NewRun creates an idle run for the given steps. Every step starts pending.
func NewRun(id, pkg string, event trigger.Event, decision trigger.Decision, defs []StepDefinition, createdAt time.Time) *Run {
	run := &Run{
		SchemaVersion: constants.RunSchemaVersion,
		ID:            id,
		Package:       pkg,
		Event:         event,
		Decision:      decision,
		Status:        constants.RunStatusIdle,
		Definitions:   append([]StepDefinition(nil), defs...),
		Steps:         make([]StepResult, len(defs)),
		CreatedAt:     createdAt.UTC(),
	}
	for i, def := range defs {
		run.Steps[i] = StepResult{Name: def.Name, Type: def.Type, Status: constants.StepStatusPending}
	}
	return run
}

// AddCleanup registers fn to run when the run ends, success or failure.
// Cleanups run in reverse registration order.
func (r *Run) AddCleanup(fn func() error) {
	r.cleanups = append(r.cleanups, fn)
}

// Step returns the result for the named step, or nil.
func (r *Run) Step(name string) *StepResult {
	for i := range r.Steps {
		if r.Steps[i].Name == name {
			return &r.Steps[i]
		}
	}
	return nil
}

// FailedStep returns the first failed step, or nil.
func (r *Run) FailedStep() *StepResult {
	for i := range r.Steps {
		if r.Steps[i].Status == constants.StepStatusFailed {
			return &r.Steps[i]
		}
	}
	return nil
}

// Duration returns the wall time between start and completion.
func (r *Run) Duration() time.Duration {
	if r.StartedAt == nil || r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(*r.StartedAt)
}
