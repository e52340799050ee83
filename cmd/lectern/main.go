package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// main ties signal handling into the command context so a Ctrl-C mid-book
// cancels extraction instead of orphaning poppler or tesseract processes.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
