package tui

import (
	"encoding/json"
	"fmt"
	"io"

	relerrors "github.com/hydragram/releaser/internal/errors"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Output provides methods for structured output to a terminal.
type Output interface {
	// Success prints a success message.
	Success(msg string)
	// Error prints an error with its suggested action, when known.
	Error(err error)
	// Warning prints a warning message.
	Warning(msg string)
	// Info prints an informational message.
	Info(msg string)
	// JSON outputs a value as formatted JSON.
	JSON(v any) error
	// Writer is the underlying writer, for renderers.
	Writer() io.Writer
	// IsJSON reports whether structured output was requested.
	IsJSON() bool
}

// NewOutput creates the appropriate output based on format.
func NewOutput(w io.Writer, format string) Output {
	if format == FormatJSON {
		return NewJSONOutput(w)
	}
	return NewTTYOutput(w)
}

// ValidateFormat accepts "text" and "json". Empty means text.
func ValidateFormat(format string) error {
	switch format {
	case "", FormatText, FormatJSON:
		return nil
	default:
		return fmt.Errorf("%q: %w", format, relerrors.ErrInvalidOutputFormat)
	}
}

// TTYOutput provides styled terminal output using Lip Gloss.
type TTYOutput struct {
	w      io.Writer
	styles *OutputStyles
}

// NewTTYOutput creates a new TTYOutput. Respects NO_COLOR.
func NewTTYOutput(w io.Writer) *TTYOutput {
	CheckNoColor()
	return &TTYOutput{w: w, styles: NewOutputStyles()}
}

// Success outputs a success message with a ✓ icon.
func (o *TTYOutput) Success(msg string) {
	_, _ = fmt.Fprintln(o.w, o.styles.Success.Render("✓ "+msg))
}

// Error outputs an error with a ✗ icon. Known errors add a dim "▸ Try:" line.
func (o *TTYOutput) Error(err error) {
	msg, action := relerrors.Actionable(err)
	_, _ = fmt.Fprintln(o.w, o.styles.Error.Render("✗ "+msg))
	if msg != err.Error() {
		_, _ = fmt.Fprintln(o.w, o.styles.Dim.Render("  "+err.Error()))
	}
	if action != "" {
		_, _ = fmt.Fprintln(o.w, o.styles.Dim.Render("  ▸ Try: "+action))
	}
}

// Warning outputs a warning message with a ⚠ icon.
func (o *TTYOutput) Warning(msg string) {
	_, _ = fmt.Fprintln(o.w, o.styles.Warning.Render("⚠ "+msg))
}

// Info outputs an informational message.
func (o *TTYOutput) Info(msg string) {
	_, _ = fmt.Fprintln(o.w, o.styles.Info.Render(msg))
}

// JSON outputs a value as formatted JSON.
func (o *TTYOutput) JSON(v any) error {
	return writeJSON(o.w, v)
}

// Writer implements Output.
func (o *TTYOutput) Writer() io.Writer {
	return o.w
}

// IsJSON implements Output.
func (o *TTYOutput) IsJSON() bool {
	return false
}

// JSONOutput provides plain JSON output without styling. Only JSON and
// Error write anything.
type JSONOutput struct {
	w io.Writer
}

// NewJSONOutput creates a new JSONOutput.
func NewJSONOutput(w io.Writer) *JSONOutput {
	return &JSONOutput{w: w}
}

// Success is a no-op for JSON output.
func (o *JSONOutput) Success(_ string) {}

// Error outputs the error as a JSON object.
func (o *JSONOutput) Error(err error) {
	msg, action := relerrors.Actionable(err)
	_ = writeJSON(o.w, errorPayload{Error: err.Error(), Message: msg, Action: action})
}

// Warning is a no-op for JSON output.
func (o *JSONOutput) Warning(_ string) {}

// Info is a no-op for JSON output.
func (o *JSONOutput) Info(_ string) {}

// JSON outputs a value as formatted JSON.
func (o *JSONOutput) JSON(v any) error {
	return writeJSON(o.w, v)
}

// Writer implements Output.
func (o *JSONOutput) Writer() io.Writer {
	return o.w
}

// IsJSON implements Output.
func (o *JSONOutput) IsJSON() bool {
	return true
}

type errorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Action  string `json:"action,omitempty"`
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
