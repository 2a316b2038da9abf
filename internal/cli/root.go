package cli

import (
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/keepsake/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose       bool
	Format        string // "json" | "text"
	Seed          uint64
	Database      string
	NoAutoAdvance bool

	// Config is the environment configuration with flag overrides applied.
	// Filled in by the root command before any subcommand runs.
	Config config.Config

	// Logger is installed by the root command; subcommands pass it on.
	Logger *slog.Logger

	loaded bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the keepsake CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "keepsake",
		Short: "keepsake - a chapter book player",
		Long: `Play a book of chapters step by step: title cards, quotes, mini-games,
quizzes and image galleries.

Runtime timings come from KEEPSAKE_* environment variables; flags override them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return opts.setup(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().Uint64Var(&opts.Seed, "seed", 0, "mini-game random seed (overrides KEEPSAKE_SEED)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "trace database path (overrides KEEPSAKE_DB)")
	cmd.PersistentFlags().BoolVar(&opts.NoAutoAdvance, "no-auto-advance", false, "disable automatic advance after games and answers")

	cmd.AddCommand(NewPlayCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewSequenceCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))

	return cmd
}

// setup installs the logger and resolves the configuration. Flags the user
// set explicitly win over the environment.
func (o *RootOptions) setup(cmd *cobra.Command) error {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	o.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(o.Logger)

	cfg, err := config.Load()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = o.Seed
	}
	if flags.Changed("db") {
		cfg.DB = o.Database
	}
	if flags.Changed("no-auto-advance") {
		cfg.AutoAdvance = !o.NoAutoAdvance
	}
	o.Config = cfg
	o.loaded = true
	return nil
}

// config returns the resolved configuration. Commands built without the
// root command fall back to the defaults plus the flag fields.
func (o *RootOptions) config() config.Config {
	if o.loaded {
		return o.Config
	}
	cfg := config.Default()
	cfg.Seed = o.Seed
	if o.Database != "" {
		cfg.DB = o.Database
	}
	if o.NoAutoAdvance {
		cfg.AutoAdvance = false
	}
	return cfg
}

// logger returns the installed logger, or the default one when a command
// runs without the root command (as in tests).
func (o *RootOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
