package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/prooflab/zkrun/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:        "zkrun",
		Usage:       "zkVM proof pipeline driver",
		Description: "Drives a guest computation through execution, Groth16 proof generation and verification.",
		Commands: []*cli.Command{
			cmd.RunCommand,
			cmd.ExportVKCommand,
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		if errors.Is(err, ctx.Err()) {
			fmt.Fprintln(os.Stderr, "command interrupted")
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
