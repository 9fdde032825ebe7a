// Package main provides the entry point for the spelldeck command line.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spellcardmanager/spellcards/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cli.New(os.Stdin, os.Stdout, os.Stderr, version).Main(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
