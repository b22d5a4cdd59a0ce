/*
Package main is the entry point for the study-advisor CLI.

Usage:

	study-advisor [command]

Examples:

	# Analyse a student and keep chatting
	study-advisor analyze --survey khaosat.json --transcript diem.json --chat

	# Serve the streaming HTTP API
	study-advisor serve --addr 127.0.0.1:5000

	# Run as an MCP server over stdio
	study-advisor mcp
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/khanglvm/study-advisor/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
