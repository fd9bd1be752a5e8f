package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ironsheep/arion/internal/cli"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cli.Version = Version
	cli.BuildTime = BuildTime
	cli.GitCommit = GitCommit

	if err := cli.New().Execute(context.Background()); err != nil {
		if errors.Is(err, cli.ErrFailed) {
			// The reports on stdout already describe the failure.
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "arion: %v\n", err)
		os.Exit(2)
	}
}
