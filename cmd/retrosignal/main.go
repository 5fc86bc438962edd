// @title         Retrosignal API
// @version       0.1.0
// @description   Capture learning signals and fold them into retrospectives

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"retrosignal/cmd/retrosignal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
