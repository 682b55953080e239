// Package git provides the read-only git operations used to snapshot a
// repository at the triggering commit. Nothing in this package writes to a
// remote.
package git

import (
	"context"
	"fmt"
	"strings"

	"github.com/hydragram/releaser/internal/command"
	relerrors "github.com/hydragram/releaser/internal/errors"
)

// ErrGitOperation is re-exported from internal/errors for convenience.
var ErrGitOperation = relerrors.ErrGitOperation

// RunCommand executes a git command in workDir and returns trimmed stdout.
// Errors wrap ErrGitOperation and carry stderr for debugging; context
// cancellation is returned as is.
func RunCommand(ctx context.Context, runner command.Runner, workDir string, args ...string) (string, error) {
	result, err := runner.Run(ctx, command.Spec{Name: "git", Args: args, Dir: workDir})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		sub := "git"
		if len(args) > 0 {
			sub = args[0]
		}
		if result != nil && strings.TrimSpace(result.Stderr) != "" {
			return "", fmt.Errorf("git %s failed: %s: %w: %w", sub, strings.TrimSpace(result.Stderr), ErrGitOperation, err)
		}
		return "", fmt.Errorf("git %s failed: %w: %w", sub, ErrGitOperation, err)
	}
	return strings.TrimSpace(result.Stdout), nil
}
