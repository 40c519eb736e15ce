// Package main is the entry point for the reachmap server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/randytsao24/reachmap/cmd/server/commands"
)

func main() {
	if err := run(); err != nil {
		// zerr prints metadata and stack traces with %+v
		_, _ = fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return commands.New().Execute(ctx)
}
