package pipeline

import (
	"context"
	"fmt"
	"sync"

	relerrors "github.com/hydragram/releaser/internal/errors"
)

// Executor runs one step type.
//
// Execute must honor ctx cancellation and return a non-nil StepResult
// whenever it ran a command, so exit codes and output reach the run record.
// It reads and updates run.State; it must not touch run.Status or run.Steps.
type Executor interface {
	Execute(ctx context.Context, run *Run, step *StepDefinition) (*StepResult, error)
	Type() StepType
}

// Describer is implemented by executors that can list the commands they
// would run, for plans and dry runs.
type Describer interface {
	Describe(run *Run) []string
}

// Registry maps step types to executors. It is safe for concurrent reads
// after setup.
type Registry struct {
	mu        sync.RWMutex
	executors map[StepType]Executor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{executors: make(map[StepType]Executor)}
}

// Register adds e, replacing any executor for the same type.
func (r *Registry) Register(e Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[e.Type()] = e
}

// Get returns the executor for stepType or ErrExecutorNotFound.
func (r *Registry) Get(stepType StepType) (Executor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.executors[stepType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", relerrors.ErrExecutorNotFound, stepType)
	}
	return e, nil
}

// Has reports whether stepType has an executor.
func (r *Registry) Has(stepType StepType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.executors[stepType]
	return ok
}
