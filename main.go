package main

import (
	"context"
	"fmt"
	"os"

	_ "promptgate/pkg/channels/autoload" // registers channels
	_ "promptgate/pkg/llm/autoload"      // registers LLM providers

	"github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:   "promptgate",
		Usage:  "HTTP gateway for declarative LLM programs: configure, register, predict, optimize",
		Flags:  serveFlags(),
		Action: serve,
		Commands: []*cli.Command{
			serveCmd(),
			captureCmd(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
