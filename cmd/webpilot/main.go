// Package main provides the webpilot command: a browser agent that lets a
// vision-capable model operate a Chromium session step by step.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/entrhq/webpilot/pkg/logging"
)

func main() {
	// Cancel the run on Ctrl-C so the browser session is stopped cleanly
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := newRootCommand().ExecuteContext(ctx)
	_ = logging.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cancel()
		os.Exit(1)
	}
}
