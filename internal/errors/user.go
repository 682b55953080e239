package errors

import "errors"

// ErrorInfo holds user-facing message and suggested action for an error.
type ErrorInfo struct {
	// Message is the user-friendly error description.
	Message string
	// Action is a suggested action to resolve the issue (empty if none).
	Action string
}

// errorEntry pairs a sentinel error with its user-facing info.
type errorEntry struct {
	err  error
	info ErrorInfo
}

// errorInfoEntries maps sentinel errors to their user-facing messages.
// Order matters: wrapped errors match the first entry found, so specific
// causes come before the step-level categories that wrap them.
//
//nolint:gochecknoglobals // Pre-built mapping for efficiency
var errorInfoEntries = []errorEntry{
	// ===================
	// Publish causes
	// ===================
	{
		err: ErrVersionExists,
		info: ErrorInfo{
			Message: "The registry already has this version. Published versions are immutable.",
			Action:  "Bump the package version and push a new tag.",
		},
	},
	{
		err: ErrAuthRejected,
		info: ErrorInfo{
			Message: "The registry rejected the upload token.",
			Action:  "Rotate the API token and update the secret in the secret store.",
		},
	},
	{
		err: ErrSecretNotFound,
		info: ErrorInfo{
			Message: "The registry token secret is missing or empty.",
			Action:  "Set the secret named by publish.secret_name (default PYPI_API_TOKEN).",
		},
	},

	// ===================
	// Provisioning causes
	// ===================
	{
		err: ErrRuntimeVersionMismatch,
		info: ErrorInfo{
			Message: "The Python interpreter does not match the pinned version.",
			Action:  "Install the pinned Python version or set runtime.interpreter to its path.",
		},
	},
	{
		err: ErrToolNotFound,
		info: ErrorInfo{
			Message: "A required tool is not installed.",
			Action:  "Run 'releaser doctor' to see which tools are missing.",
		},
	},
	{
		err: ErrNoArtifacts,
		info: ErrorInfo{
			Message: "The build finished but produced no artifacts.",
			Action:  "Check the packaging metadata (pyproject.toml or setup.cfg).",
		},
	},

	// ===================
	// Step categories
	// ===================
	{
		err: ErrCheckoutFailed,
		info: ErrorInfo{
			Message: "Could not obtain a snapshot of the repository.",
			Action:  "Check the repository URL, commit SHA and network access.",
		},
	},
	{
		err: ErrProvisionFailed,
		info: ErrorInfo{
			Message: "Environment provisioning failed. No artifacts were built.",
			Action:  "Check network access to the package index and tool version constraints.",
		},
	},
	{
		err: ErrCleanFailed,
		info: ErrorInfo{
			Message: "Could not remove stale build outputs.",
			Action:  "Check file permissions in the workspace.",
		},
	},
	{
		err: ErrBuildFailed,
		info: ErrorInfo{
			Message: "Build failed. Nothing was published.",
			Action:  "Fix the errors reported by the build tool and push again.",
		},
	},
	{
		err: ErrPublishFailed,
		info: ErrorInfo{
			Message: "Publish failed. Some artifacts may already be on the registry.",
			Action:  "Inspect the registry before retrying; uploads are not rolled back.",
		},
	},

	// ===================
	// Run management
	// ===================
	{
		err: ErrRunLocked,
		info: ErrorInfo{
			Message: "Another release run for this package is in progress.",
			Action:  "Wait for the other run to finish.",
		},
	},
	{
		err: ErrRunNotFound,
		info: ErrorInfo{
			Message: "Run not found.",
			Action:  "Run 'releaser history' to list recorded runs.",
		},
	},
	{
		err: ErrNotTriggered,
		info: ErrorInfo{
			Message: "This event does not start a release run.",
		},
	},

	// ===================
	// Configuration
	// ===================
	{
		err: ErrInvalidOutputFormat,
		info: ErrorInfo{
			Message: "Invalid output format.",
			Action:  "Use --output text or --output json.",
		},
	},
}

//nolint:gochecknoglobals // Built once from errorInfoEntries
var errorInfoMap = buildErrorInfoMap()

func buildErrorInfoMap() map[error]ErrorInfo {
	m := make(map[error]ErrorInfo, len(errorInfoEntries))
	for _, entry := range errorInfoEntries {
		m[entry.err] = entry.info
	}
	return m
}

// getErrorInfo looks up the ErrorInfo for a given error.
// It first tries O(1) direct map lookup for unwrapped sentinel errors,
// then falls back to errors.Is() traversal for wrapped errors.
// Returns an ErrorInfo with the original error message if not found.
func getErrorInfo(err error) ErrorInfo {
	if info, ok := errorInfoMap[err]; ok {
		return info
	}

	for _, entry := range errorInfoEntries {
		if errors.Is(err, entry.err) {
			return entry.info
		}
	}

	return ErrorInfo{Message: err.Error()}
}

// UserMessage returns a user-friendly message for common errors.
// For unrecognized errors, it returns the error's original message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	return getErrorInfo(err).Message
}

// Actionable returns a user-friendly error message along with a suggested
// action the user can take to resolve or work around the issue.
//
// For errors that have no clear action, the action string will be empty.
func Actionable(err error) (message, action string) {
	if err == nil {
		return "", ""
	}
	info := getErrorInfo(err)
	return info.Message, info.Action
}
