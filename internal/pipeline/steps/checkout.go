package steps

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/hydragram/releaser/internal/constants"
	relerrors "github.com/hydragram/releaser/internal/errors"
	"github.com/hydragram/releaser/internal/git"
	"github.com/hydragram/releaser/internal/pipeline"
)

// CheckoutOptions configure the checkout step.
type CheckoutOptions struct {
	// Workspace is an existing checkout used in place and never removed.
	// When empty a temporary workspace is fetched from RepoURL.
	Workspace string
	// RepoURL is the clone URL for temporary workspaces.
	RepoURL string
	// Remote names the fetched remote. Empty means "origin".
	Remote string
	// Depth limits fetched history. Below one fetches everything.
	Depth int
}

// CheckoutExecutor produces the read-only source snapshot for a run.
type CheckoutExecutor struct {
	tools   toolRunner
	opts    CheckoutOptions
	tempDir string
}

// NewCheckoutExecutor creates the checkout executor.
func NewCheckoutExecutor(deps Deps, opts CheckoutOptions) *CheckoutExecutor {
	if opts.Remote == "" {
		opts.Remote = constants.DefaultRemote
	}
	return &CheckoutExecutor{tools: newToolRunner(deps), opts: opts, tempDir: deps.TempDir}
}

// Type implements pipeline.Executor.
func (e *CheckoutExecutor) Type() pipeline.StepType {
	return pipeline.StepTypeCheckout
}

// Execute implements pipeline.Executor.
func (e *CheckoutExecutor) Execute(ctx context.Context, run *pipeline.Run, _ *pipeline.StepDefinition) (*pipeline.StepResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res := &pipeline.StepResult{}
	if e.opts.Workspace != "" {
		return res, e.useInPlace(ctx, run, res)
	}
	return res, e.fetch(ctx, run, res)
}

// useInPlace adopts an existing checkout. When both the event commit and
// the checkout HEAD are known they must agree.
func (e *CheckoutExecutor) useInPlace(ctx context.Context, run *pipeline.Run, res *pipeline.StepResult) error {
	log := zerolog.Ctx(ctx)

	abs, err := filepath.Abs(e.opts.Workspace)
	if err != nil {
		return stepError(relerrors.ErrCheckoutFailed, "resolve workspace: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return stepError(relerrors.ErrCheckoutFailed, "%s: %w", abs, relerrors.ErrWorkspaceMissing)
	}

	run.State.Workspace = abs
	run.State.Ephemeral = false
	run.State.Commit = run.Event.SHA

	res.Commands = append(res.Commands, "git rev-parse HEAD")
	head, err := git.HeadSHA(ctx, e.tools.runner, abs)
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case err != nil:
		log.Warn().Err(err).Str("workspace", abs).Msg("workspace HEAD unknown, commit not verified")
	case run.Event.SHA != "" && head != run.Event.SHA:
		return stepError(relerrors.ErrCheckoutFailed, "workspace HEAD %s does not match event commit %s", head, run.Event.SHA)
	default:
		run.State.Commit = head
	}
	return nil
}

// fetch creates a temporary workspace holding only the triggering commit.
// The engine removes it when the run ends.
func (e *CheckoutExecutor) fetch(ctx context.Context, run *pipeline.Run, res *pipeline.StepResult) error {
	if e.opts.RepoURL == "" {
		return stepError(relerrors.ErrCheckoutFailed, "no repository URL and no workspace: %w", relerrors.ErrEmptyValue)
	}
	rev := revision(run)
	if rev == "" {
		return stepError(relerrors.ErrCheckoutFailed, "event has neither commit nor ref: %w", relerrors.ErrInvalidEvent)
	}

	dir, err := os.MkdirTemp(e.tempDir, "releaser-"+run.ID+"-")
	if err != nil {
		return stepError(relerrors.ErrCheckoutFailed, "create workspace: %w", err)
	}
	run.AddCleanup(func() error { return os.RemoveAll(dir) })
	run.State.Workspace = dir
	run.State.Ephemeral = true

	res.Commands = append(res.Commands, e.commands(rev)...)
	sha, err := git.NewSnapshotter(e.tools.runner, e.opts.Remote, e.opts.Depth).Snapshot(ctx, dir, e.opts.RepoURL, rev)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return stepError(relerrors.ErrCheckoutFailed, "%w", err)
	}
	run.State.Commit = sha
	return nil
}

// Describe implements pipeline.Describer.
func (e *CheckoutExecutor) Describe(run *pipeline.Run) []string {
	if e.opts.Workspace != "" {
		return []string{"use workspace " + e.opts.Workspace, "git rev-parse HEAD"}
	}
	return e.commands(revision(run))
}

func (e *CheckoutExecutor) commands(rev string) []string {
	fetch := "git fetch --quiet --no-tags"
	if e.opts.Depth > 0 {
		fetch += " --depth " + strconv.Itoa(e.opts.Depth)
	}
	return []string{
		"git init --quiet",
		"git remote add " + e.opts.Remote + " " + e.tools.redact(e.opts.RepoURL),
		fetch + " " + e.opts.Remote + " " + rev,
		"git checkout --quiet --detach FETCH_HEAD",
		"git rev-parse HEAD",
	}
}

// revision prefers the exact commit over the moving ref.
func revision(run *pipeline.Run) string {
	if run.Event.SHA != "" {
		return run.Event.SHA
	}
	return run.Event.Ref
}
