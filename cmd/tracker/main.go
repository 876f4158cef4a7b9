package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configFile string
	remoteURL  string
	jsonOutput bool
	noColor    bool
	debug      bool
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: failed to load .env: %v\n", err)
	}

	if err := newRootCommand().Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "tracker",
		Short:         "Track progress through a tutorial and review what you have learned",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			setupLogger(opts.debug)
			if opts.noColor {
				color.NoColor = true
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "Config file (default: ./tracker.yaml)")
	flags.StringVar(&opts.remoteURL, "remote", "", "Base URL of a running tracker server; the local store is used when empty")
	flags.BoolVar(&opts.jsonOutput, "json", false, "Print raw JSON responses")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	flags.BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	root.AddCommand(
		newCreateCommand(opts),
		newTemplateCommand(),
		newStartCommand(opts),
		newPositionCommand(opts),
		newAdvanceCommand(opts),
		newQueueCommand(opts),
		newReviewCommand(opts),
		newQuizCommand(opts),
		newInterviewCommand(opts),
		newCapstoneCommand(opts),
		newStatsCommand(opts),
		newShowCommand(opts),
		newResetCommand(opts),
		newPrefsCommand(opts),
		newExportCommand(opts),
		newToolsCommand(opts),
	)

	return root
}

func setupLogger(debug bool) {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
