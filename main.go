package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"audioviz/cmd"
	"audioviz/internal/log"
	"audioviz/pkg/build"
)

func main() {
	build.Initialize()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Infof("Main: interrupted")
			os.Exit(130)
		}
		log.Errorf("Main: %v", err)
		os.Exit(1)
	}
}
