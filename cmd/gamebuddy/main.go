// Package main provides the entry point for the gamebuddy client.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/txn2/gamebuddy/internal/cli"
)

// version is set by the release build.
var version = ""

func main() {
	if version != "" {
		cli.Version = version
	}
	ctx, stop := setupSignalHandler()
	code := cli.Execute(ctx, os.Args[1:], cli.Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr})
	stop()
	os.Exit(code)
}

func setupSignalHandler() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
