package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli"

	"github.com/boeker/psxgo/psx"
	"github.com/boeker/psxgo/psx/render"
)

func main() {
	app := cli.NewApp()
	app.Name = "psxgo"
	app.Description = "A PlayStation 1 emulator core"
	app.Usage = "psxgo --bios <BIOS file> [options]"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "bios",
			Usage: "Path to the 512 KiB BIOS image (required)",
		},
		cli.StringFlag{
			Name:  "exe",
			Usage: "Path to a PSX-EXE file to sideload after BIOS shell init",
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "Run without the terminal display, for scripted/test use",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Run exactly N frames then exit (0 = unbounded)",
			Value: 0,
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "debug, info, warn, or error",
			Value: "info",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		slog.Error("psxgo exited with an error", "error", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	level, err := parseLogLevel(c.String("log-level"))
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	biosPath := c.String("bios")
	if biosPath == "" {
		cli.ShowAppHelp(c)
		return errors.New("no BIOS path provided, use --bios")
	}
	bios, err := os.ReadFile(biosPath)
	if err != nil {
		return fmt.Errorf("reading BIOS: %w", err)
	}

	renderer := render.NewMemoryRenderer()
	emu, err := psx.New(bios, renderer, logger)
	if err != nil {
		return err
	}

	if exePath := c.String("exe"); exePath != "" {
		exe, err := os.ReadFile(exePath)
		if err != nil {
			return fmt.Errorf("reading sideload EXE: %w", err)
		}
		if err := emu.LoadSideload(exe); err != nil {
			return fmt.Errorf("parsing sideload EXE: %w", err)
		}
	}

	frames := c.Int("frames")
	if c.Bool("headless") {
		return runHeadless(emu, frames, logger)
	}
	return runTerminal(emu, renderer, frames)
}

func parseLogLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown --log-level %q", s)
}

// runHeadless drives the emulator without any presentation backend, for
// scripted or test use; frames == 0 means run forever.
func runHeadless(emu *psx.Emulator, frames int, logger *slog.Logger) error {
	for i := 0; frames == 0 || i < frames; i++ {
		emu.RunUntilFrame()
		if (i+1)%60 == 0 {
			logger.Info("frame progress", "completed", i+1)
		}
	}
	logger.Info("headless run completed", "frames", emu.FrameCount())
	return nil
}

// runTerminal drives the emulator with the tcell-based terminal backend,
// presenting once per emulated frame; there is no wall-clock pacing.
func runTerminal(emu *psx.Emulator, source render.FrameSource, frames int) error {
	term := render.NewTerminal(source, emu)
	if err := term.Init(); err != nil {
		return err
	}
	defer term.Close()

	for i := 0; (frames == 0 || i < frames) && term.Running(); i++ {
		term.PollEvents()
		emu.RunUntilFrame()
		x, y := emu.GPU.DisplayOrigin()
		term.SetDisplayOrigin(x, y)
		term.Present()
	}
	return nil
}
