package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/hydragram/releaser/internal/clock"
	"github.com/hydragram/releaser/internal/constants"
	"github.com/hydragram/releaser/internal/pipeline"
	"github.com/hydragram/releaser/internal/trigger"
)

const (
	stepTitleWidth = 15
	shortSHALen    = 7
)

func colored(c lipgloss.AdaptiveColor, s string) string {
	return lipgloss.NewStyle().Foreground(c).Render(s)
}

// ShortSHA abbreviates a commit hash.
func ShortSHA(sha string) string {
	if len(sha) > shortSHALen {
		return sha[:shortSHALen]
	}
	return sha
}

// RenderDecision writes one line describing whether the event starts a run.
func RenderDecision(w io.Writer, d trigger.Decision) {
	if !d.Triggered {
		_, _ = fmt.Fprintln(w, colored(ColorWarning, "⚠ Not triggered: "+d.Reason))
		return
	}
	line := "✓ Triggered: " + d.Reason
	if d.Version != "" {
		line += " (version " + d.Version + ")"
	}
	_, _ = fmt.Fprintln(w, colored(ColorSuccess, line))
}

// RenderPlan writes the ordered steps and the commands each will run.
func RenderPlan(w io.Writer, run *pipeline.Run, plan []pipeline.PlannedStep) {
	styles := NewOutputStyles()
	heading := "Release plan for " + run.Package
	if run.Event.Ref != "" {
		heading += " at " + run.Event.Ref
	}
	_, _ = fmt.Fprintln(w, styles.Heading.Render(heading))

	for i, step := range plan {
		_, _ = fmt.Fprintf(w, "  %d. %s %s\n", i+1,
			StyleBold.Render(pad(StepTitle(step.Name), stepTitleWidth, AlignLeft)),
			styles.Dim.Render(step.Description))
		for _, cmd := range step.Commands {
			_, _ = fmt.Fprintln(w, "       $ "+cmd)
		}
	}
}

// RenderRun writes the outcome of a run: a status line, the triggering
// event, one line per step, and the artifacts or the error.
func RenderRun(w io.Writer, run *pipeline.Run) {
	styles := NewOutputStyles()
	color := RunStatusColor(run.Status)

	head := fmt.Sprintf("%s Run %s %s", RunStatusIcon(run.Status), run.ID, run.Status)
	if d := run.Duration(); d > 0 {
		head += " (" + FormatDuration(d) + ")"
	}
	_, _ = fmt.Fprintln(w, lipgloss.NewStyle().Bold(true).Foreground(color).Render(head))

	meta := []string{"package " + run.Package}
	if run.Event.Ref != "" {
		meta = append(meta, "ref "+run.Event.Ref)
	}
	if sha := firstNonEmpty(run.State.Commit, run.Event.SHA); sha != "" {
		meta = append(meta, "commit "+ShortSHA(sha))
	}
	_, _ = fmt.Fprintln(w, styles.Dim.Render("  "+strings.Join(meta, "  ")))
	_, _ = fmt.Fprintln(w)

	for _, step := range run.Steps {
		icon := colored(StepStatusColor(step.Status), StepStatusIcon(step.Status))
		line := fmt.Sprintf("  %s %s %s", icon, pad(StepTitle(step.Name), stepTitleWidth, AlignLeft),
			pad(stepDuration(step), 8, AlignRight))
		if step.Status == constants.StepStatusSkipped {
			line += " " + styles.Dim.Render("skipped")
		}
		_, _ = fmt.Fprintln(w, line)
	}

	if len(run.State.Artifacts) > 0 {
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, "  artifacts:")
		for _, a := range run.State.Artifacts {
			_, _ = fmt.Fprintln(w, "    "+a)
		}
	}
	if run.Error != "" {
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, styles.Error.Render("  error: "+run.Error))
	}
}

func stepDuration(step pipeline.StepResult) string {
	if step.Status == constants.StepStatusPending || step.Status == constants.StepStatusSkipped {
		return "-"
	}
	return FormatDuration(time.Duration(step.DurationMs) * time.Millisecond)
}

// RenderHistory writes one table row per run record, newest first as given.
func RenderHistory(w io.Writer, runs []*pipeline.Run, c clock.Clock) {
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(w, StyleDim.Render("No runs recorded."))
		return
	}

	table := NewTable(w, []TableColumn{
		{Name: "RUN", Width: 30},
		{Name: "STATUS", Width: 11},
		{Name: "PACKAGE", Width: 16},
		{Name: "REF", Width: 22},
		{Name: "CREATED", Width: 15},
		{Name: "DURATION", Width: 8, Align: AlignRight},
	})
	table.WriteHeader()
	for _, run := range runs {
		status := RunStatusIcon(run.Status) + " " + run.Status.String()
		table.WriteRow(
			[]string{run.ID, status, run.Package, run.Event.Ref, RelativeTimeWith(run.CreatedAt, c), FormatDuration(run.Duration())},
			map[int]string{1: colored(RunStatusColor(run.Status), status)},
		)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
