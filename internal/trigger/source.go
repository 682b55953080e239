package trigger

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"

	relerrors "github.com/hydragram/releaser/internal/errors"
)

// GitHub Actions variables read by FromEnv.
const (
	EnvEventName  = "GITHUB_EVENT_NAME"
	EnvRef        = "GITHUB_REF"
	EnvSHA        = "GITHUB_SHA"
	EnvRepository = "GITHUB_REPOSITORY"
	EnvServerURL  = "GITHUB_SERVER_URL"
)

// FromEnv builds an Event from the variables a GitHub Actions runner sets.
// getenv defaults to os.Getenv.
func FromEnv(getenv func(string) string) (Event, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	e := Event{
		Name:       getenv(EnvEventName),
		Ref:        getenv(EnvRef),
		SHA:        getenv(EnvSHA),
		Repository: getenv(EnvRepository),
	}
	if e.Name == "" {
		return Event{}, fmt.Errorf("%s is not set: %w", EnvEventName, relerrors.ErrInvalidEvent)
	}
	return e, nil
}

// pushPayload is the subset of a push webhook body the automator reads.
type pushPayload struct {
	Ref        string `json:"ref"`
	After      string `json:"after"`
	HeadCommit *struct {
		ID string `json:"id"`
	} `json:"head_commit"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
}

// FromFile reads a push webhook payload from path. Comments and trailing
// commas are accepted. The event name defaults to "push" when name is empty.
func FromFile(path, name string) (Event, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- path is an operator supplied event file
	if err != nil {
		return Event{}, fmt.Errorf("read event file: %w", err)
	}
	return ParsePayload(data, name)
}

// ParsePayload decodes a push webhook body.
func ParsePayload(data []byte, name string) (Event, error) {
	var p pushPayload
	if err := json.Unmarshal(jsonc.ToJSON(data), &p); err != nil {
		return Event{}, fmt.Errorf("decode event payload: %v: %w", err, relerrors.ErrInvalidEvent)
	}
	if name == "" {
		name = EventPush
	}
	sha := p.After
	if sha == "" && p.HeadCommit != nil {
		sha = p.HeadCommit.ID
	}
	return Event{
		Name:       name,
		Ref:        p.Ref,
		SHA:        sha,
		Repository: p.Repository.FullName,
	}, nil
}
