package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/phylum-dev/cli/internal/cmd"
)

// version is overridden at build time via -ldflags.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	os.Exit(cmd.RunWithArgs(ctx, os.Args[1:], version))
}
