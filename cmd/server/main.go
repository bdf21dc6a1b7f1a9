package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bertybuttface/sponsorblock-mirror/internal/middleware"
)

// Version is set at build time.
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCLIApp().RunContext(ctx, os.Args); err != nil {
		middleware.Logger.Fatal().Err(err).Msg("exiting")
	}
}
