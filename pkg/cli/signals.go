package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// SignalContext returns a context that is cancelled on the first SIGINT or
// SIGTERM. A second signal exits the process with status 1. Call stop to
// release the signal handler.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signalContext(parent, func() { os.Exit(ExitFailure) })
}

func signalContext(parent context.Context, forceExit func()) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigChan:
			fmt.Fprintf(os.Stderr, "received %s, shutting down (signal again to force)\n", sig)
			cancel()
		case <-done:
			return
		}
		select {
		case <-sigChan:
			forceExit()
		case <-done:
		}
	}()

	var stopped bool
	return ctx, func() {
		if stopped {
			return
		}
		stopped = true
		signal.Stop(sigChan)
		close(done)
		cancel()
	}
}
