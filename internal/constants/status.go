package constants

// RunStatus represents the state of a pipeline run.
// Status values use snake_case for JSON serialization compatibility.
type RunStatus string

// Run status constants define the valid states a run can be in.
// These follow the state machine:
//
//	Idle → Running
//	Running → Succeeded, Failed
const (
	// RunStatusIdle indicates a run has been created but not started.
	RunStatusIdle RunStatus = "idle"

	// RunStatusRunning indicates steps are executing.
	RunStatusRunning RunStatus = "running"

	// RunStatusSucceeded indicates every step finished successfully.
	RunStatusSucceeded RunStatus = "succeeded"

	// RunStatusFailed indicates a step failed or the run was canceled.
	RunStatusFailed RunStatus = "failed"
)

// String returns the string representation of the RunStatus.
func (s RunStatus) String() string {
	return string(s)
}

// StepStatus represents the state of a single step within a run.
type StepStatus string

// Step status constants.
const (
	// StepStatusPending indicates the step has not started.
	StepStatusPending StepStatus = "pending"

	// StepStatusRunning indicates the step is executing.
	StepStatusRunning StepStatus = "running"

	// StepStatusSucceeded indicates the step finished successfully.
	StepStatusSucceeded StepStatus = "succeeded"

	// StepStatusFailed indicates the step failed.
	StepStatusFailed StepStatus = "failed"

	// StepStatusSkipped indicates the step never ran because an earlier step failed.
	StepStatusSkipped StepStatus = "skipped"
)

// String returns the string representation of the StepStatus.
func (s StepStatus) String() string {
	return string(s)
}
