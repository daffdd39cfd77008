package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"promptgate/pkg/config"
	"promptgate/pkg/llm"
	"promptgate/pkg/monitor"
	"promptgate/pkg/utils"

	"github.com/urfave/cli/v3"
)

func captureCmd() *cli.Command {
	var (
		provider string
		model    string
		apiKey   string
		baseURL  string
		prompt   string
		system   string
	)

	return &cli.Command{
		Name:  "capture",
		Usage: "Stream one prompt through a provider and save the raw chunks under debug/chunks",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "provider", Usage: "provider name as used in /configure", Required: true, Destination: &provider},
			&cli.StringFlag{Name: "model", Aliases: []string{"m"}, Usage: "model name", Required: true, Destination: &model},
			&cli.StringFlag{Name: "api-key", Usage: "API key; defaults to <PROVIDER>_API_KEY or the config file", Destination: &apiKey},
			&cli.StringFlag{Name: "base-url", Usage: "endpoint override", Destination: &baseURL},
			&cli.StringFlag{Name: "prompt", Aliases: []string{"p"}, Usage: "user message", Value: "Briefly explain what a Go channel is.", Destination: &prompt},
			&cli.StringFlag{Name: "system-prompt", Usage: "optional system message", Destination: &system},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if err := config.LoadDotEnv(envFile); err != nil {
				return err
			}
			sys := loadSystem()
			sys.DebugChunks = true
			monitor.SetupSlog(sys.LogLevel)
			cfg := loadConfig()

			client, pc, err := llm.DefaultRegistry().New(llm.Request{
				Provider: provider,
				Model:    model,
				APIKey:   apiKey,
				BaseURL:  baseURL,
			}, cfg, sys)
			if err != nil {
				return err
			}

			var msgs []llm.Message
			if system != "" {
				msgs = append(msgs, llm.NewSystemMessage(system))
			}
			msgs = append(msgs, llm.NewUserMessage(prompt))

			id := utils.ShortID()
			ctx = utils.WithDebugID(ctx, id)
			stream, err := client.StreamChat(ctx, msgs)
			if err != nil {
				return err
			}

			chunks := 0
			for chunk := range stream {
				chunks++
				if chunk.Err != nil {
					slog.WarnContext(ctx, "Chunk error", "fatal", chunk.Fatal, "error", chunk.Err)
					continue
				}
				for _, b := range chunk.ContentBlocks {
					switch b.Type {
					case llm.BlockTypeThinking:
						fmt.Fprintf(os.Stderr, "\033[90m%s\033[0m", b.Text)
					case llm.BlockTypeText:
						fmt.Print(b.Text)
					case llm.BlockTypeError:
						slog.WarnContext(ctx, "Provider warning", "warning", b.Text)
					}
				}
			}
			fmt.Println()
			slog.InfoContext(ctx, "Capture finished", "provider", pc.Name, "model", pc.Model, "chunks", chunks, "dir", "debug/chunks/"+id)
			return nil
		},
	}
}
