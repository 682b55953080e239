package pipeline

import (
	"fmt"
	"time"

	"github.com/hydragram/releaser/internal/constants"
	relerrors "github.com/hydragram/releaser/internal/errors"
)

// ValidTransitions defines all allowed run status changes.
//
//	Idle → Running
//	Running → Succeeded, Failed
//
//nolint:gochecknoglobals // Exported for testing and read-only lookup table
var ValidTransitions = map[constants.RunStatus][]constants.RunStatus{
	constants.RunStatusIdle:    {constants.RunStatusRunning},
	constants.RunStatusRunning: {constants.RunStatusSucceeded, constants.RunStatusFailed},
}

// IsValidTransition reports whether from → to is allowed.
func IsValidTransition(from, to constants.RunStatus) bool {
	for _, target := range ValidTransitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether no transition leaves status.
// Succeeded and Failed are terminal.
func IsTerminalStatus(status constants.RunStatus) bool {
	return status == constants.RunStatusSucceeded || status == constants.RunStatusFailed
}

// Transition validates and applies a status change to run and appends it
// to the audit trail. The caller persists the run.
func Transition(run *Run, to constants.RunStatus, at time.Time, reason string) error {
	if run == nil {
		return fmt.Errorf("%w: run is nil", relerrors.ErrInvalidTransition)
	}

	from := run.Status
	if !IsValidTransition(from, to) {
		return fmt.Errorf("%w: cannot transition from %s to %s", relerrors.ErrInvalidTransition, from, to)
	}

	at = at.UTC()
	run.Transitions = append(run.Transitions, StatusTransition{
		From:   from,
		To:     to,
		At:     at,
		Reason: reason,
	})
	run.Status = to

	switch {
	case to == constants.RunStatusRunning:
		run.StartedAt = &at
	case IsTerminalStatus(to):
		run.CompletedAt = &at
	}
	return nil
}
