package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool    `json:"valid"`
	Config *Config `json:"config,omitempty"`
	Error  string  `json:"error,omitempty"`
	Line   int     `json:"line,omitempty"`
	Column int     `json:"column,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config.cue>",
		Short: "Validate a configuration file",
		Long: `Validate a CUE configuration file against the tagtree schema.

Unknown fields, out-of-range values and type errors are reported with
their position. On success the resolved configuration, defaults included,
is printed.

Example:
  tagtree validate ./tagtree.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	formatter.VerboseLog("Validating %s", path)
	cfg, err := LoadConfig(path)
	if err != nil {
		var loadErr *LoadError
		if !errors.As(err, &loadErr) {
			_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitCommandError, "validation error", err)
		}

		// Missing file is a command error (exit code 2)
		if loadErr.Code == ErrCodeNotFound {
			_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
			return NewExitError(ExitCommandError, loadErr.Error())
		}

		return outputValidationError(formatter, loadErr)
	}

	if formatter.IsJSON() {
		return formatter.Success(ValidationResult{Valid: true, Config: cfg})
	}

	fmt.Fprintln(formatter.Writer, "✓ Configuration valid")
	fmt.Fprintf(formatter.Writer, "  capacity: %d\n", cfg.Capacity)
	fmt.Fprintf(formatter.Writer, "  db: %s\n", cfg.DB)
	fmt.Fprintf(formatter.Writer, "  snapshot_every: %d\n", cfg.SnapshotEvery)
	return nil
}

// outputValidationError outputs a schema violation.
func outputValidationError(formatter *OutputFormatter, loadErr *LoadError) error {
	result := ValidationResult{Valid: false, Error: loadErr.Message}
	if loadErr.Pos.IsValid() {
		result.Line = loadErr.Pos.Line()
		result.Column = loadErr.Pos.Column()
	}

	if formatter.IsJSON() {
		if err := formatter.Failure(loadErr.Code, loadErr.Message, result); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(formatter.Writer, "✗ Validation failed")
		fmt.Fprintln(formatter.Writer)
		if result.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", result.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", loadErr.Code, loadErr.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, "validation failed")
}
