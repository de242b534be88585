package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"usertimer/internal/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, os.Args[1:], cli.Options{LoadDotEnv: true})
	cancel()
	os.Exit(code)
}
