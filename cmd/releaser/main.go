// Package main provides the entry point for the releaser CLI.
package main

import (
	"context"
	"os"

	"github.com/hydragram/releaser/internal/cli"
)

// Set at build time with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx := context.Background()
	err := cli.Execute(ctx, cli.BuildInfo{Version: version, Commit: commit, Date: date})
	os.Exit(cli.ExitCodeForError(err))
}
