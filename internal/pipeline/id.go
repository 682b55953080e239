package pipeline

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	relerrors "github.com/hydragram/releaser/internal/errors"
)

// validRunIDRegex matches run-YYYYMMDD-HHMMSS-xxxxxxxx.
var validRunIDRegex = regexp.MustCompile(`^run-\d{8}-\d{6}-[0-9a-f]{8}$`)

// GenerateRunID returns a run ID for a run created at t. The random suffix
// keeps IDs from the same second distinct.
func GenerateRunID(t time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("run-%s-%s", t.UTC().Format("20060102-150405"), suffix)
}

// ValidateRunID rejects anything that is not a generated run ID, which
// also rules out path traversal through IDs.
func ValidateRunID(id string) error {
	if id == "" {
		return fmt.Errorf("run ID %w", relerrors.ErrEmptyValue)
	}
	if !validRunIDRegex.MatchString(id) {
		return fmt.Errorf("run ID %q: %w", id, relerrors.ErrPathTraversal)
	}
	return nil
}
