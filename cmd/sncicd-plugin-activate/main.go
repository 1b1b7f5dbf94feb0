package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/leeforge/sncicd-plugin-activate/action"
)

// Build information, set with -ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr, action.NewEnvInputs())
	stop()
	os.Exit(code)
}
