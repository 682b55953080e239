// Package secret resolves the registry credential from a protected store.
//
// A resolved credential is held in a Value, whose printed, formatted and
// JSON forms are always redacted. The only way to read it is Reveal, which
// the publish step calls when building the upload tool's environment.
package secret

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	relerrors "github.com/hydragram/releaser/internal/errors"
)

// redacted is what every printable form of a Value shows.
const redacted = "[REDACTED]"

// Value is an opaque secret string.
type Value struct {
	v string
}

// NewValue wraps s.
func NewValue(s string) Value {
	return Value{v: s}
}

// Reveal returns the secret. Callers must not log or persist the result.
func (v Value) Reveal() string {
	return v.v
}

// IsZero reports whether the value is empty.
func (v Value) IsZero() bool {
	return v.v == ""
}

// String implements fmt.Stringer.
func (v Value) String() string {
	return redacted
}

// GoString implements fmt.GoStringer so %#v does not leak the value.
func (v Value) GoString() string {
	return redacted
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}

// MarshalText implements encoding.TextMarshaler, which YAML encoders honor.
func (v Value) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}

// Store looks up secrets by name.
type Store interface {
	// Lookup returns the named secret. A missing or empty secret returns
	// an error wrapping ErrSecretNotFound.
	Lookup(ctx context.Context, name string) (Value, error)
}

// EnvStore reads secrets from environment variables, the way CI runners
// inject them from their secret store.
type EnvStore struct {
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Lookup implements Store.
func (s EnvStore) Lookup(ctx context.Context, name string) (Value, error) {
	if err := ctx.Err(); err != nil {
		return Value{}, err
	}
	lookup := s.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	v, ok := lookup(name)
	if !ok || v == "" {
		return Value{}, fmt.Errorf("environment variable %s: %w", name, relerrors.ErrSecretNotFound)
	}
	return NewValue(v), nil
}

// DirStore reads secrets from files in a directory, one file per secret,
// as mounted by Docker or Kubernetes (for example /run/secrets).
type DirStore struct {
	Dir string
}

// Lookup implements Store. Surrounding whitespace in the file is trimmed.
func (s DirStore) Lookup(ctx context.Context, name string) (Value, error) {
	if err := ctx.Err(); err != nil {
		return Value{}, err
	}
	if s.Dir == "" {
		return Value{}, fmt.Errorf("secret directory not configured: %w", relerrors.ErrSecretNotFound)
	}
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return Value{}, fmt.Errorf("secret name %q: %w", name, relerrors.ErrPathTraversal)
	}

	data, err := os.ReadFile(filepath.Join(s.Dir, name)) //#nosec G304 -- name is validated above
	if errors.Is(err, os.ErrNotExist) {
		return Value{}, fmt.Errorf("secret file %s: %w", name, relerrors.ErrSecretNotFound)
	}
	if err != nil {
		return Value{}, fmt.Errorf("read secret %s: %w", name, err)
	}

	v := strings.TrimSpace(string(data))
	if v == "" {
		return Value{}, fmt.Errorf("secret file %s is empty: %w", name, relerrors.ErrSecretNotFound)
	}
	return NewValue(v), nil
}

// Chain tries each store in order and returns the first secret found.
// Errors other than ErrSecretNotFound stop the search.
type Chain []Store

// Lookup implements Store.
func (c Chain) Lookup(ctx context.Context, name string) (Value, error) {
	for _, s := range c {
		v, err := s.Lookup(ctx, name)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, relerrors.ErrSecretNotFound) {
			return Value{}, err
		}
	}
	return Value{}, fmt.Errorf("secret %s: %w", name, relerrors.ErrSecretNotFound)
}

var (
	_ Store = EnvStore{}
	_ Store = DirStore{}
	_ Store = Chain{}
)
