package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/lifetime-memories/albumkeeper/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return cli.Execute(ctx, version, os.Args[1:])
}
