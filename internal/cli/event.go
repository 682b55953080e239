package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hydragram/releaser/internal/config"
	"github.com/hydragram/releaser/internal/errors"
	"github.com/hydragram/releaser/internal/git"
	"github.com/hydragram/releaser/internal/trigger"
)

// eventFlags select where the triggering event comes from.
type eventFlags struct {
	file   string
	name   string
	ref    string
	tag    string
	branch string
	sha    string
	fetch  bool
}

func addEventFlags(cmd *cobra.Command, f *eventFlags) {
	cmd.Flags().StringVar(&f.file, "event-file", "", "push webhook payload file")
	cmd.Flags().StringVar(&f.name, "event", "", "event name (default: push)")
	cmd.Flags().StringVar(&f.ref, "ref", "", "full ref that was pushed, such as refs/tags/v1.2.3")
	cmd.Flags().StringVar(&f.tag, "tag", "", "pushed tag name")
	cmd.Flags().StringVar(&f.branch, "branch", "", "pushed branch name")
	cmd.Flags().StringVar(&f.sha, "sha", "", "commit the event points at")
	cmd.MarkFlagsMutuallyExclusive("ref", "tag", "branch", "event-file")
}

func (f *eventFlags) addFetchFlag(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.fetch, "fetch", false, "fetch the event repository into a temporary workspace")
}

// explicit reports whether the event is given on the command line.
func (f *eventFlags) explicit() bool {
	return f.file != "" || f.ref != "" || f.tag != "" || f.branch != ""
}

// resolve builds the event from flags, falling back to the CI environment.
func (f *eventFlags) resolve(e *env) (trigger.Event, error) {
	var (
		event trigger.Event
		err   error
	)

	switch {
	case f.file != "":
		event, err = trigger.FromFile(f.file, f.name)
	case f.ref != "" || f.tag != "" || f.branch != "":
		event = trigger.Event{Name: f.name, Ref: f.ref, Repository: e.getenv(trigger.EnvRepository)}
		if f.tag != "" {
			event.Ref = trigger.TagRef(f.tag)
		}
		if f.branch != "" {
			event.Ref = trigger.BranchRef(f.branch)
		}
		if event.Name == "" {
			event.Name = trigger.EventPush
		}
	default:
		event, err = trigger.FromEnv(e.getenv)
	}
	if err != nil {
		return trigger.Event{}, err
	}

	if f.sha != "" {
		event.SHA = f.sha
	}
	return event, nil
}

// applyFetch points the checkout at the event repository.
func (f *eventFlags) applyFetch(e *env, event trigger.Event, overrides *config.Config) error {
	if !f.fetch {
		return nil
	}
	url := git.RemoteURL(e.getenv(trigger.EnvServerURL), event.Repository)
	if url == "" {
		return fmt.Errorf("%w: --fetch needs the event repository", errors.ErrInvalidEvent)
	}
	overrides.Checkout.Repo = url
	return nil
}
