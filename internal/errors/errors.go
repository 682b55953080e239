// Package errors provides centralized error handling for releaser.
//
// This package defines sentinel errors used for programmatic error categorization
// throughout the application. All error types can be checked using errors.Is().
//
// IMPORTANT: This package MUST NOT import any other internal packages.
// Only standard library imports are allowed.
package errors

import "errors"

// Sentinel errors for error categorization.
// These allow callers to check error types with errors.Is().
// All errors use lowercase descriptions per Go conventions.
var (
	// ErrCheckoutFailed indicates the source snapshot could not be obtained.
	ErrCheckoutFailed = errors.New("checkout failed")

	// ErrProvisionFailed indicates the runtime or the build tools could not be installed.
	ErrProvisionFailed = errors.New("environment provisioning failed")

	// ErrCleanFailed indicates stale build outputs could not be removed.
	ErrCleanFailed = errors.New("clean failed")

	// ErrBuildFailed indicates the build tool reported an error or produced nothing.
	ErrBuildFailed = errors.New("build failed")

	// ErrPublishFailed indicates the upload tool reported an error.
	ErrPublishFailed = errors.New("publish failed")

	// ErrNoArtifacts indicates the build step produced no distributable files.
	ErrNoArtifacts = errors.New("no build artifacts produced")

	// ErrSecretNotFound indicates the named secret is missing or empty.
	ErrSecretNotFound = errors.New("secret not found")

	// ErrVersionExists indicates the registry already holds this version.
	ErrVersionExists = errors.New("version already published")

	// ErrAuthRejected indicates the registry rejected the credential.
	ErrAuthRejected = errors.New("registry authentication rejected")

	// ErrRuntimeVersionMismatch indicates the interpreter is not the pinned version.
	ErrRuntimeVersionMismatch = errors.New("runtime version mismatch")

	// ErrToolNotFound indicates a required external executable is not on PATH.
	ErrToolNotFound = errors.New("tool not found")

	// ErrGitOperation indicates that a git command failed during execution.
	ErrGitOperation = errors.New("git operation failed")

	// ErrCommandFailed indicates that a command execution failed.
	ErrCommandFailed = errors.New("command failed")

	// ErrCommandTimeout indicates a command exceeded its timeout duration.
	ErrCommandTimeout = errors.New("command timeout exceeded")

	// ErrRunLocked indicates another run for the same package holds the lock.
	ErrRunLocked = errors.New("another run holds the package lock")

	// ErrRunNotFound indicates the requested run record does not exist.
	ErrRunNotFound = errors.New("run not found")

	// ErrRunExists indicates an attempt to create a run record that already exists.
	ErrRunExists = errors.New("run already exists")

	// ErrInvalidTransition indicates an attempt to make an invalid state transition.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrExecutorNotFound indicates no executor is registered for the given step type.
	ErrExecutorNotFound = errors.New("executor not found for step type")

	// ErrWorkspaceMissing indicates the configured workspace is not a directory.
	ErrWorkspaceMissing = errors.New("workspace not found")

	// ErrPathTraversal indicates a path resolved outside of its allowed root.
	ErrPathTraversal = errors.New("path traversal detected")

	// ErrLockTimeout indicates a file lock could not be acquired within the timeout period.
	ErrLockTimeout = errors.New("lock acquisition timeout")

	// ErrNotTriggered indicates the event does not satisfy the trigger policy.
	ErrNotTriggered = errors.New("event does not trigger a run")

	// ErrInvalidEvent indicates an event payload could not be understood.
	ErrInvalidEvent = errors.New("invalid event")

	// ErrConfigNil indicates that a nil config was passed to validation.
	ErrConfigNil = errors.New("config is nil")

	// ErrConfigInvalidPackage indicates an invalid package configuration value.
	ErrConfigInvalidPackage = errors.New("invalid package configuration")

	// ErrConfigInvalidTrigger indicates an invalid trigger configuration value.
	ErrConfigInvalidTrigger = errors.New("invalid trigger configuration")

	// ErrConfigInvalidRuntime indicates an invalid runtime configuration value.
	ErrConfigInvalidRuntime = errors.New("invalid runtime configuration")

	// ErrConfigInvalidPublish indicates an invalid publish configuration value.
	ErrConfigInvalidPublish = errors.New("invalid publish configuration")

	// ErrConfigInvalidLock indicates an invalid lock configuration value.
	ErrConfigInvalidLock = errors.New("invalid lock configuration")

	// ErrConfigInvalidBuild indicates an invalid build configuration value.
	ErrConfigInvalidBuild = errors.New("invalid build configuration")

	// ErrConfigInvalidTimeout indicates a non-positive timeout.
	ErrConfigInvalidTimeout = errors.New("invalid timeout configuration")

	// ErrInvalidOutputFormat indicates an invalid output format was specified.
	ErrInvalidOutputFormat = errors.New("invalid output format")

	// ErrEmptyValue indicates that a required value was empty.
	ErrEmptyValue = errors.New("value cannot be empty")

	// ErrCommandNotConfigured indicates that a mock command was not configured in tests.
	ErrCommandNotConfigured = errors.New("command not configured")
)

// ExitCodeError carries a specific process exit code alongside an error.
type ExitCodeError struct {
	Err  error
	Code int
}

// NewExitCodeError wraps an error with the exit code the CLI should use.
func NewExitCodeError(code int, err error) *ExitCodeError {
	return &ExitCodeError{Err: err, Code: code}
}

// Error implements the error interface.
func (e *ExitCodeError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ExitCodeError) Unwrap() error {
	return e.Err
}

// ExitCodeOf returns the exit code carried by err and whether one was found.
func ExitCodeOf(err error) (int, bool) {
	var e *ExitCodeError
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}
