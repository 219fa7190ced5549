package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/minhister1020/story-voice-generator/internal/client"
)

func newOrchestrator(c *cli.Command) (*client.Orchestrator, error) {
	store, err := client.NewTempFileStore("")
	if err != nil {
		return nil, err
	}
	api := client.NewHTTPClient(c.String("server"), c.Duration("timeout"))
	return client.NewOrchestrator(api, store), nil
}

func handleVoices(ctx context.Context, c *cli.Command) error {
	o, err := newOrchestrator(c)
	if err != nil {
		return err
	}
	defer o.Close()

	o.Mount(ctx)
	state := o.State()
	if state.Error != "" {
		return errors.New(state.Error)
	}

	return printVoices(os.Stdout, state)
}

func printVoices(w io.Writer, state client.State) error {
	if len(state.Voices) == 0 {
		fmt.Fprintln(w, "No voices available")
		return nil
	}

	id := color.New(color.FgCyan).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()
	for _, v := range state.Voices {
		line := fmt.Sprintf("%s  %s", id(v.VoiceID), v.Name)
		if v.Category != "" {
			line += " " + faint("["+v.Category+"]")
		}
		if v.Description != "" {
			line += " " + faint(v.Description)
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

func handleGenerate(ctx context.Context, c *cli.Command) error {
	text, err := readStory(c)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("story text is empty")
	}

	o, err := newOrchestrator(c)
	if err != nil {
		return err
	}
	defer o.Close()

	o.SetText(text)
	o.SelectVoice(c.String("voice"))

	o.Generate(ctx)
	state := o.State()
	if state.Error != "" {
		return errors.New(state.Error)
	}
	if state.Audio == nil {
		return errors.New("no audio was generated")
	}

	out := c.String("out")
	if err := copyFile(state.Audio.Path, out); err != nil {
		return err
	}

	log.Debug().Str("resource_id", state.Audio.ID.String()).Str("out", out).Msg("Audio saved")
	color.New(color.FgGreen).Fprintf(os.Stdout, "Saved %d bytes to %s\n", state.Audio.Size, out)
	return nil
}

// readStory prefers --text, then --file, then stdin.
func readStory(c *cli.Command) (string, error) {
	if text := c.String("text"); text != "" {
		return text, nil
	}
	if path := c.String("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read story file: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open generated audio: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return out.Close()
}
