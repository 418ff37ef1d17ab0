// Command reportforge renders slide decks from templates and datasets.
package main

import (
	"context"
	"os"
	"os/signal"
)

var version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
