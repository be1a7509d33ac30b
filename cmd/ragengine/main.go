// Command ragengine crawls documentation sites and git repositories,
// ingests them into a local vector store and property graph, and serves
// retrieval-augmented tool calls over MCP.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fgarofalo56/ragengine/cmd/root"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.Execute(ctx, os.Stdin, os.Stdout, os.Stderr, os.Args[1:]...); err != nil {
		os.Exit(1)
	}
}
