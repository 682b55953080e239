package git

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/hydragram/releaser/internal/command"
)

// Snapshotter creates a detached, shallow checkout of a single revision.
type Snapshotter struct {
	runner command.Runner
	remote string
	depth  int
}

// NewSnapshotter creates a Snapshotter. An empty remote name defaults to
// "origin"; a depth below one fetches the full history.
func NewSnapshotter(runner command.Runner, remote string, depth int) *Snapshotter {
	if remote == "" {
		remote = "origin"
	}
	return &Snapshotter{runner: runner, remote: remote, depth: depth}
}

// Snapshot initializes dir as a repository, fetches rev from url and checks
// it out detached. rev may be a commit SHA or a ref such as refs/tags/v1.2.3.
func (s *Snapshotter) Snapshot(ctx context.Context, dir, url, rev string) (string, error) {
	if url == "" || rev == "" {
		return "", fmt.Errorf("snapshot needs a url and a revision: %w", ErrGitOperation)
	}

	steps := [][]string{
		{"init", "--quiet"},
		{"remote", "add", s.remote, url},
		s.fetchArgs(rev),
		{"checkout", "--quiet", "--detach", "FETCH_HEAD"},
	}
	for _, args := range steps {
		if _, err := RunCommand(ctx, s.runner, dir, args...); err != nil {
			return "", err
		}
	}

	return HeadSHA(ctx, s.runner, dir)
}

func (s *Snapshotter) fetchArgs(rev string) []string {
	args := []string{"fetch", "--quiet", "--no-tags"}
	if s.depth > 0 {
		args = append(args, "--depth", strconv.Itoa(s.depth))
	}
	return append(args, s.remote, rev)
}

// HeadSHA returns the commit checked out in dir. Empty output is an error.
func HeadSHA(ctx context.Context, runner command.Runner, dir string) (string, error) {
	sha, err := RunCommand(ctx, runner, dir, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	if sha == "" {
		return "", fmt.Errorf("git rev-parse HEAD returned no commit: %w", ErrGitOperation)
	}
	return sha, nil
}

// IsClean reports whether dir has no uncommitted or untracked changes.
func IsClean(ctx context.Context, runner command.Runner, dir string) (bool, error) {
	out, err := RunCommand(ctx, runner, dir, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return out == "", nil
}

// RemoteURL builds an HTTPS clone URL from a server URL and an owner/name
// repository slug, as exposed by GitHub Actions.
func RemoteURL(serverURL, repository string) string {
	if repository == "" {
		return ""
	}
	if serverURL == "" {
		serverURL = "https://github.com"
	}
	return strings.TrimSuffix(serverURL, "/") + "/" + strings.Trim(repository, "/") + ".git"
}
