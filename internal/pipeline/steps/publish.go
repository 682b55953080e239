package steps

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hydragram/releaser/internal/command"
	"github.com/hydragram/releaser/internal/constants"
	relerrors "github.com/hydragram/releaser/internal/errors"
	"github.com/hydragram/releaser/internal/pipeline"
	"github.com/hydragram/releaser/internal/secret"
)

var (
	// versionExistsRegex matches the registry's duplicate upload answers.
	versionExistsRegex = regexp.MustCompile(`(?i)file already exists|already exists|version .* exists`)
	// authRejectedRegex matches credential rejections.
	authRejectedRegex = regexp.MustCompile(`(?i)\b40[13]\b|invalid or non-existent authentication|forbidden|unauthorized`)
)

// PublishOptions configure the publish step.
type PublishOptions struct {
	// SecretName is the secret store key. Empty means PYPI_API_TOKEN.
	SecretName string
	// Username is passed as TWINE_USERNAME. Empty means __token__.
	Username string
	// RepositoryURL overrides the upload endpoint.
	RepositoryURL string
}

// PublishExecutor uploads the built artifacts with twine.
type PublishExecutor struct {
	tools   toolRunner
	secrets secret.Store
	opts    PublishOptions
}

// NewPublishExecutor creates the publish executor. A nil secret store
// reads the process environment.
func NewPublishExecutor(deps Deps, opts PublishOptions) *PublishExecutor {
	if opts.SecretName == "" {
		opts.SecretName = constants.DefaultSecretName
	}
	if opts.Username == "" {
		opts.Username = constants.TokenUsername
	}
	store := deps.Secrets
	if store == nil {
		store = secret.EnvStore{}
	}
	return &PublishExecutor{tools: newToolRunner(deps), secrets: store, opts: opts}
}

// Type implements pipeline.Executor.
func (e *PublishExecutor) Type() pipeline.StepType {
	return pipeline.StepTypePublish
}

func (e *PublishExecutor) args(artifacts []string) []string {
	args := []string{"-m", "twine", "upload", "--non-interactive"}
	if e.opts.RepositoryURL != "" {
		args = append(args, "--repository-url", e.opts.RepositoryURL)
	}
	return append(args, artifacts...)
}

// Execute implements pipeline.Executor. The credential is resolved here,
// registered with the log redactor and handed to twine only through its
// environment. Nothing is rolled back on failure.
func (e *PublishExecutor) Execute(ctx context.Context, run *pipeline.Run, _ *pipeline.StepDefinition) (*pipeline.StepResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := zerolog.Ctx(ctx)
	res := &pipeline.StepResult{}

	ws, err := requireWorkspace(run, relerrors.ErrPublishFailed)
	if err != nil {
		return res, err
	}
	python, err := requireInterpreter(run, relerrors.ErrPublishFailed)
	if err != nil {
		return res, err
	}
	if len(run.State.Artifacts) == 0 {
		return res, stepError(relerrors.ErrPublishFailed, "nothing to upload: %w", relerrors.ErrNoArtifacts)
	}

	token, err := e.secrets.Lookup(ctx, e.opts.SecretName)
	if err != nil {
		return res, stepError(relerrors.ErrPublishFailed, "%w", err)
	}
	e.tools.redactor.Register(token.Reveal())

	artifacts := make([]string, len(run.State.Artifacts))
	for i, a := range run.State.Artifacts {
		artifacts[i] = filepath.FromSlash(a)
	}

	spec := command.Spec{
		Name: python,
		Args: e.args(artifacts),
		Dir:  ws,
		Env: []string{
			constants.TwineUsernameEnv + "=" + e.opts.Username,
			constants.TwinePasswordEnv + "=" + token.Reveal(),
		},
	}
	log.Info().Int("artifacts", len(artifacts)).Str("secret_name", e.opts.SecretName).Msg("uploading artifacts")

	out, err := e.tools.run(ctx, res, spec)
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		return res, classifyUpload(out, err)
	}
	return res, nil
}

// classifyUpload maps twine failure output onto the publish sentinels.
func classifyUpload(out *command.Result, err error) error {
	text := out.Output()
	switch {
	case versionExistsRegex.MatchString(text):
		return fmt.Errorf("%w: %w: %w", relerrors.ErrPublishFailed, relerrors.ErrVersionExists, err)
	case authRejectedRegex.MatchString(text):
		return fmt.Errorf("%w: %w: %w", relerrors.ErrPublishFailed, relerrors.ErrAuthRejected, err)
	default:
		return fmt.Errorf("%w: %w", relerrors.ErrPublishFailed, err)
	}
}

// Describe implements pipeline.Describer. The secret value is never shown.
func (e *PublishExecutor) Describe(run *pipeline.Run) []string {
	artifacts := run.State.Artifacts
	if len(artifacts) == 0 {
		artifacts = []string{"dist/*"}
	}
	return []string{fmt.Sprintf("%s=%s %s=[REDACTED] <python> %s",
		constants.TwineUsernameEnv, e.opts.Username,
		constants.TwinePasswordEnv,
		strings.Join(e.args(artifacts), " "))}
}
