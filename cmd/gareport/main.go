// gareport runs analytics report queries from the command line.
// Build with: go build -o bin/gareport ./cmd/gareport
// Usage: gareport query --profile 12345 --start 2024-01-01 --metrics sessions
package main

import (
	"context"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
