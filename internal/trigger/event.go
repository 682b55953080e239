// Package trigger decides whether a repository event starts a release run.
//
// The policy has one transition: a push whose ref is a tag matching one of
// the tag patterns (default "v*") or a branch matching one of the branch
// patterns (default "main") moves the automator from idle to running.
// Every other event is ignored.
package trigger

import "strings"

// EventPush is the only event kind that can start a run.
const EventPush = "push"

// Ref prefixes used by git for fully qualified refs.
const (
	tagPrefix    = "refs/tags/"
	branchPrefix = "refs/heads/"
)

// RefKind classifies a git ref.
type RefKind string

// Ref kinds.
const (
	RefTag    RefKind = "tag"
	RefBranch RefKind = "branch"
	RefNone   RefKind = "none"
)

// Event is a repository event as reported by the hosting service.
type Event struct {
	// Name is the event kind, such as "push" or "pull_request".
	Name string `json:"name"`

	// Ref is the full git ref, such as "refs/tags/v1.2.3".
	Ref string `json:"ref"`

	// SHA is the commit the event points at.
	SHA string `json:"sha,omitempty"`

	// Repository is the "owner/name" slug of the repository.
	Repository string `json:"repository,omitempty"`
}

// ParseRef splits a full ref into its kind and short name.
// Anything that is not under refs/tags/ or refs/heads/ is RefNone and is
// returned unchanged.
func ParseRef(ref string) (RefKind, string) {
	switch {
	case strings.HasPrefix(ref, tagPrefix):
		return RefTag, strings.TrimPrefix(ref, tagPrefix)
	case strings.HasPrefix(ref, branchPrefix):
		return RefBranch, strings.TrimPrefix(ref, branchPrefix)
	default:
		return RefNone, ref
	}
}

// TagRef returns the full ref for a tag name.
func TagRef(name string) string {
	return tagPrefix + name
}

// BranchRef returns the full ref for a branch name.
func BranchRef(name string) string {
	return branchPrefix + name
}
