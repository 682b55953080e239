package trigger

import (
	"fmt"
	"path"

	"github.com/blang/semver"
	"github.com/bmatcuk/doublestar"

	"github.com/hydragram/releaser/internal/constants"
	relerrors "github.com/hydragram/releaser/internal/errors"
)

// Policy lists the tag and branch patterns that start a run.
// Patterns follow the hosting service's filter globs: "*" matches any
// run of characters except "/", and "**" also matches "/".
type Policy struct {
	Tags     []string `json:"tags" yaml:"tags"`
	Branches []string `json:"branches" yaml:"branches"`
}

// DefaultPolicy returns the release contract: tags "v*" and branch "main".
func DefaultPolicy() Policy {
	return Policy{
		Tags:     []string{constants.DefaultTagPattern},
		Branches: []string{constants.DefaultBranch},
	}
}

// Validate checks that the policy has at least one pattern and that every
// pattern is well formed.
func (p Policy) Validate() error {
	if len(p.Tags) == 0 && len(p.Branches) == 0 {
		return fmt.Errorf("at least one tag or branch pattern is required: %w", relerrors.ErrConfigInvalidTrigger)
	}
	for _, pattern := range append(append([]string{}, p.Tags...), p.Branches...) {
		if pattern == "" {
			return fmt.Errorf("empty trigger pattern: %w", relerrors.ErrConfigInvalidTrigger)
		}
		// doublestar v1 has no validator; path.Match checks the same syntax.
		if _, err := path.Match(pattern, ""); err != nil {
			return fmt.Errorf("trigger pattern %q: %v: %w", pattern, err, relerrors.ErrConfigInvalidTrigger)
		}
	}
	return nil
}

// Decision is the outcome of evaluating an event against a policy.
type Decision struct {
	Triggered bool    `json:"triggered"`
	Kind      RefKind `json:"kind"`
	RefName   string  `json:"ref_name,omitempty"`
	Pattern   string  `json:"pattern,omitempty"`
	Reason    string  `json:"reason"`

	// Version is the tag parsed as a tolerant semantic version, when it is
	// one. It is informational and never affects Triggered.
	Version string `json:"version,omitempty"`
}

// Err returns nil for a triggering decision and an error wrapping
// ErrNotTriggered otherwise.
func (d Decision) Err() error {
	if d.Triggered {
		return nil
	}
	return fmt.Errorf("%s: %w", d.Reason, relerrors.ErrNotTriggered)
}

// Evaluate applies the policy to e.
func (p Policy) Evaluate(e Event) Decision {
	kind, name := ParseRef(e.Ref)
	d := Decision{Kind: kind, RefName: name}

	switch {
	case e.Name != EventPush:
		d.Reason = fmt.Sprintf("event %q is not a push", e.Name)
		return d
	case e.Ref == "":
		d.Reason = "push has no ref"
		return d
	}

	var patterns []string
	switch kind {
	case RefTag:
		patterns = p.Tags
		if v, err := semver.ParseTolerant(name); err == nil {
			d.Version = v.String()
		}
	case RefBranch:
		patterns = p.Branches
	default:
		d.Reason = fmt.Sprintf("ref %q is neither a tag nor a branch", e.Ref)
		return d
	}

	if pattern, ok := firstMatch(patterns, name); ok {
		d.Triggered = true
		d.Pattern = pattern
		d.Reason = fmt.Sprintf("push to %s %s matches %q", kind, name, pattern)
		return d
	}

	d.Reason = fmt.Sprintf("%s %s matches no %s pattern", kind, name, kind)
	return d
}

func firstMatch(patterns []string, name string) (string, bool) {
	for _, pattern := range patterns {
		ok, err := doublestar.Match(pattern, name)
		if err == nil && ok {
			return pattern, true
		}
	}
	return "", false
}
