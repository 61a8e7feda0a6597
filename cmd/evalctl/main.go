package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Exit codes.
const (
	ExitSuccess = 0
	ExitFailed  = 1 // the platform rejected the action or was unreachable
	ExitUsage   = 2 // bad flags or arguments
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := execute(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)

		var actionErr *actionError
		if errors.As(err, &actionErr) {
			os.Exit(ExitFailed)
		}
		os.Exit(ExitUsage)
	}
}
