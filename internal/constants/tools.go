package constants

import "time"

// Tool detection timeout configuration.
const (
	// ToolDetectionTimeout is the maximum duration for detecting all tools.
	// Detection runs in parallel but must complete within this timeout.
	ToolDetectionTimeout = 5 * time.Second
)

// Tool names used by the pipeline and the tool detection system.
const (
	// ToolGit is the Git version control system.
	ToolGit = "git"

	// ToolPython is the Python interpreter.
	ToolPython = "python"

	// ToolPip is the Python package installer.
	ToolPip = "pip"

	// ToolBuild is the PyPA build frontend.
	ToolBuild = "build"

	// ToolTwine is the PyPA upload tool.
	ToolTwine = "twine"
)
