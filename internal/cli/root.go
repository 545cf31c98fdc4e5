package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/tagtree/internal/engine"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	// Config is loaded from ConfigPath on first use.
	Config *Config

	// Sessions allows overriding the session token generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	Sessions engine.SessionGenerator
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the tagtree CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "tagtree",
		Short: "tagtree - canonical labels for position sets",
		Long: `Intern sets of positions as 32-bit labels in a shared, append-only arena.

Equal sets usually share a label, but label equality is not set equality:
a shorter intern can split a gap that a later identical intern would have
reused, and that later intern then gets a new label for the same set.
Compare sets with decode. Every operation is recorded in a SQLite op log,
so the arena can be replayed, snapshotted and inspected.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "CUE configuration file")

	// Add subcommands
	cmd.AddCommand(NewInternCommand(opts))
	cmd.AddCommand(NewUnionCommand(opts))
	cmd.AddCommand(NewMarkCommand(opts))
	cmd.AddCommand(NewDecodeCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewSnapshotCommand(opts))
	cmd.AddCommand(NewLogCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// config returns the loaded configuration, reading ConfigPath on first use.
func (o *RootOptions) config() (*Config, error) {
	if o.Config != nil {
		return o.Config, nil
	}
	cfg, err := LoadConfig(o.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	o.Config = cfg
	return cfg, nil
}

// database returns the --db flag value, falling back to the configured path.
func (o *RootOptions) database(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	cfg, err := o.config()
	if err != nil {
		return "", err
	}
	return cfg.DB, nil
}

// sessions returns the session generator (UUIDv7 unless overridden).
func (o *RootOptions) sessions() engine.SessionGenerator {
	if o.Sessions != nil {
		return o.Sessions
	}
	return engine.UUIDv7Generator{}
}

// newLogger configures logging based on the verbose flag.
func (o *RootOptions) newLogger(w io.Writer) *slog.Logger {
	logLevel := slog.LevelWarn
	if o.Verbose {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	}))
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}
