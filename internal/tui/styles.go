// Package tui renders releaser output for terminals.
//
// This package provides a centralized style system using Lip Gloss. All
// colors use AdaptiveColor for light/dark terminal support.
//
// # Semantic Colors
//
//   - ColorPrimary (Blue): running states, headings
//   - ColorSuccess (Green): succeeded runs and steps
//   - ColorWarning (Yellow): skipped steps, not triggered decisions
//   - ColorError (Red): failed runs and steps
//   - ColorMuted (Gray): pending steps, secondary text
//
// Every status is shown with icon, color and text together, so output
// stays readable without color.
//
// # NO_COLOR Support
//
// Call CheckNoColor() at the start of commands to respect the NO_COLOR
// environment variable. Colors are also disabled when TERM=dumb.
package tui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/hydragram/releaser/internal/constants"
)

//nolint:gochecknoglobals // Intentional package-level constants for styling API
var (
	// ColorPrimary is blue, used for active states and headings.
	ColorPrimary = lipgloss.AdaptiveColor{Light: "#0087AF", Dark: "#00D7FF"}

	// ColorSuccess is green, used for success states and completed items.
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#008700", Dark: "#00FF87"}

	// ColorWarning is yellow, used for skipped items and non-triggering decisions.
	ColorWarning = lipgloss.AdaptiveColor{Light: "#AF8700", Dark: "#FFD700"}

	// ColorError is red, used for error states and failed items.
	ColorError = lipgloss.AdaptiveColor{Light: "#AF0000", Dark: "#FF5F5F"}

	// ColorMuted is gray, used for dim/inactive states and secondary text.
	ColorMuted = lipgloss.AdaptiveColor{Light: "#585858", Dark: "#6C6C6C"}

	// StyleBold applies bold formatting to text.
	StyleBold = lipgloss.NewStyle().Bold(true)

	// StyleDim applies dim/faint formatting to text.
	StyleDim = lipgloss.NewStyle().Faint(true)
)

// OutputStyles holds common output styles.
type OutputStyles struct {
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Dim     lipgloss.Style
	Heading lipgloss.Style
}

// NewOutputStyles creates common output styles.
func NewOutputStyles() *OutputStyles {
	return &OutputStyles{
		Success: lipgloss.NewStyle().Foreground(ColorSuccess),
		Error:   lipgloss.NewStyle().Foreground(ColorError),
		Warning: lipgloss.NewStyle().Foreground(ColorWarning),
		Info:    lipgloss.NewStyle().Foreground(ColorPrimary),
		Dim:     lipgloss.NewStyle().Foreground(ColorMuted),
		Heading: lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary),
	}
}

// CheckNoColor respects the NO_COLOR environment variable.
// Call this at the start of commands that output styled text.
func CheckNoColor() {
	if !HasColorSupport() {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// HasColorSupport returns true if the terminal supports colors.
// Returns false if NO_COLOR is set (any value including empty string) or TERM=dumb.
// This follows the NO_COLOR standard: https://no-color.org/
func HasColorSupport() bool {
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return false
	}
	return os.Getenv("TERM") != "dumb"
}

// RunStatusColor returns the semantic color for a run status.
func RunStatusColor(status constants.RunStatus) lipgloss.AdaptiveColor {
	switch status {
	case constants.RunStatusSucceeded:
		return ColorSuccess
	case constants.RunStatusFailed:
		return ColorError
	case constants.RunStatusRunning:
		return ColorPrimary
	case constants.RunStatusIdle:
		return ColorMuted
	default:
		return ColorMuted
	}
}

// RunStatusIcon returns the icon for a run status.
func RunStatusIcon(status constants.RunStatus) string {
	switch status {
	case constants.RunStatusSucceeded:
		return "✓"
	case constants.RunStatusFailed:
		return "✗"
	case constants.RunStatusRunning:
		return "●"
	case constants.RunStatusIdle:
		return "○"
	default:
		return "?"
	}
}

// StepStatusColor returns the semantic color for a step status.
func StepStatusColor(status constants.StepStatus) lipgloss.AdaptiveColor {
	switch status {
	case constants.StepStatusSucceeded:
		return ColorSuccess
	case constants.StepStatusFailed:
		return ColorError
	case constants.StepStatusSkipped:
		return ColorWarning
	case constants.StepStatusRunning:
		return ColorPrimary
	case constants.StepStatusPending:
		return ColorMuted
	default:
		return ColorMuted
	}
}

// StepStatusIcon returns the icon for a step status.
func StepStatusIcon(status constants.StepStatus) string {
	switch status {
	case constants.StepStatusSucceeded:
		return "✓"
	case constants.StepStatusFailed:
		return "✗"
	case constants.StepStatusSkipped:
		return "⊘"
	case constants.StepStatusRunning:
		return "●"
	case constants.StepStatusPending:
		return "○"
	default:
		return "?"
	}
}

// StepTitle turns a step name such as "setup_runtime" into "Setup Runtime".
// A Caser holds state, so each call gets its own.
func StepTitle(name string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(name, "_", " "))
}
