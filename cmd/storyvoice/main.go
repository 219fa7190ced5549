package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

var version = "dev"

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	app := &cli.Command{
		Name:    "storyvoice",
		Usage:   "Turn a story into speech through the Story Voice API",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Usage:   "Story Voice API base URL (env STORYVOICE_SERVER)",
				Value:   defaultServer(),
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "HTTP timeout for each request",
				Value: 2 * time.Minute,
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"V"},
				Usage:   "Enable verbose logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:    "voices",
				Usage:   "List available voices",
				Aliases: []string{"ls"},
				Action:  handleVoices,
			},
			{
				Name:   "generate",
				Usage:  "Generate speech from text (--text, --file, or stdin)",
				Action: handleGenerate,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "voice",
						Usage:    "Voice ID (see `storyvoice voices`)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "text",
						Usage: "Story text",
					},
					&cli.StringFlag{
						Name:  "file",
						Usage: "Read story text from a file",
					},
					&cli.StringFlag{
						Name:  "out",
						Usage: "Where to write the MP3",
						Value: "story-voice.mp3",
					},
				},
			},
		},
		Before: func(ctx context.Context, c *cli.Command) error {
			if c.Bool("verbose") {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.WarnLevel)
			}
			return nil
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultServer() string {
	if v := os.Getenv("STORYVOICE_SERVER"); v != "" {
		return v
	}
	return "http://localhost:8080"
}
