package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/bolide-lang/bolide/internal/logger"
)

// runWatch runs filename, then runs it again after every change until
// interrupted.
func runWatch(filename string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	for {
		code := runFile(filename)
		logger.Debug("Watch run finished", "file", filename, "exit", code)
		fmt.Fprintf(os.Stderr, "[watch] exit %d, waiting for changes to %s\n", code, filename)
		if err := waitForChange(ctx, filename); err != nil {
			if ctx.Err() != nil {
				return exitOK
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return exitError
		}
	}
}
